package store

import (
	"context"
	"fmt"

	"github.com/roach88/skein/internal/knot"
)

// WriteBatch appends a batch to the log under seq.
// Uses ON CONFLICT(seq) DO NOTHING for idempotency - rewriting a seq that is
// already logged is silently ignored, even if the body differs.
//
// The body is stored as plain JSON with text untouched; digest is
// knot.BatchDigest of the batch.
func (s *Store) WriteBatch(ctx context.Context, session string, seq int64, batch knot.Batch) error {
	body, err := marshalBatch(batch)
	if err != nil {
		return fmt.Errorf("write batch: %w", err)
	}

	digest, err := knot.BatchDigest(batch)
	if err != nil {
		return fmt.Errorf("write batch: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO batches (seq, session, digest, body)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(seq) DO NOTHING
	`, seq, session, digest, body)
	if err != nil {
		return fmt.Errorf("write batch: %w", err)
	}

	return nil
}

// SaveSnapshot replaces the materialized knot snapshot in one transaction.
// The snapshot digest is stored alongside so LoadSnapshot can verify it.
func (s *Store) SaveSnapshot(ctx context.Context, knots knot.Knots) error {
	digest, err := knot.SnapshotDigest(knots)
	if err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("save snapshot: begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM knots`); err != nil {
		return fmt.Errorf("save snapshot: clear: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO knots (id, parent_id, label, command, response, unblessed, children, selected)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("save snapshot: prepare: %w", err)
	}
	defer stmt.Close()

	for _, id := range knots.SortedIDs() {
		k := knots[id]
		children, err := marshalChildren(k.Children)
		if err != nil {
			return fmt.Errorf("save snapshot: knot %d: %w", id, err)
		}
		_, err = stmt.ExecContext(ctx,
			k.ID,
			nullableInt(k.ParentID),
			k.Label,
			k.Command,
			nullableString(k.Response),
			nullableString(k.Unblessed),
			children,
			nullableInt(k.Selected),
		)
		if err != nil {
			return fmt.Errorf("save snapshot: knot %d: %w", id, err)
		}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO snapshot_meta (key, value) VALUES ('digest', ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, digest)
	if err != nil {
		return fmt.Errorf("save snapshot: digest: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("save snapshot: commit: %w", err)
	}
	return nil
}
