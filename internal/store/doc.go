// Package store provides SQLite-backed durable storage for skein batch logs.
//
// The store holds two things:
//   - Batches: the append-only log of every batch a session applied
//   - Knots: the latest materialized snapshot of the knot store
//
// # Patterns
//
// Logical ordering:
//   - Batches are keyed by seq INTEGER (logical clock), never timestamps
//   - ReadBatches always returns ORDER BY seq ASC
//
// Idempotent writes:
//   - WriteBatch uses ON CONFLICT(seq) DO NOTHING
//   - Restoring a session and re-writing history is a no-op
//
// Content addressing:
//   - Batch bodies are RFC 8785 canonical JSON
//   - digest = knot.BatchDigest(body), re-verified on read
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
package store
