// Package session sequences update batches into a skein tree.
//
// A Session is the single writer for one skein. Every batch it applies is
// stamped with a logical sequence number from Clock, written to the batch
// log (if one is configured), and then applied to the tree. Logical clocks
// only, never wall-clock timestamps, so a log replays to the same tree on
// any machine.
//
// # Replay
//
// Restore rebuilds a session from its batch log by re-applying every batch
// in seq order through the same Tree.Apply path used live. The clock
// resumes after the last logged seq. Writing a batch is idempotent on seq,
// so restoring and continuing never duplicates history.
//
// Thread-safety model:
//   - Apply: serialized internally; safe from any goroutine
//   - Tree views: safe to read at any time (see skein.Tree)
package session
