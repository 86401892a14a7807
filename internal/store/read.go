package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/skein/internal/knot"
	"github.com/roach88/skein/internal/session"
)

var _ session.BatchLog = (*Store)(nil)

// ErrDigestMismatch is returned when stored content no longer matches its digest.
var ErrDigestMismatch = errors.New("digest mismatch")

// ReadBatches returns the whole batch log ordered by seq ASC.
// Every body is re-digested; a mismatch fails the read.
//
// Returns an empty slice (not nil) if the log is empty.
func (s *Store) ReadBatches(ctx context.Context) ([]session.LoggedBatch, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, session, digest, body
		FROM batches
		ORDER BY seq ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query batches: %w", err)
	}
	defer rows.Close()

	batches := []session.LoggedBatch{}
	for rows.Next() {
		lb, err := scanBatch(rows)
		if err != nil {
			return nil, err
		}
		batches = append(batches, lb)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate batches: %w", err)
	}

	return batches, nil
}

// ReadBatch returns the batch logged under seq.
// Returns (LoggedBatch{}, false, nil) if no batch has that seq.
func (s *Store) ReadBatch(ctx context.Context, seq int64) (session.LoggedBatch, bool, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT seq, session, digest, body
		FROM batches
		WHERE seq = ?
	`, seq)

	lb, err := scanBatch(row)
	if errors.Is(err, sql.ErrNoRows) {
		return session.LoggedBatch{}, false, nil
	}
	if err != nil {
		return session.LoggedBatch{}, false, err
	}
	return lb, true, nil
}

// LastSeq returns the highest logged seq, or 0 for an empty log.
func (s *Store) LastSeq(ctx context.Context) (int64, error) {
	var seq sql.NullInt64
	if err := s.db.QueryRowContext(ctx, `SELECT MAX(seq) FROM batches`).Scan(&seq); err != nil {
		return 0, fmt.Errorf("last seq: %w", err)
	}
	return seq.Int64, nil
}

// LoadSnapshot reads the materialized knot snapshot.
// Returns an empty map if no snapshot was saved.
func (s *Store) LoadSnapshot(ctx context.Context) (knot.Knots, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, parent_id, label, command, response, unblessed, children, selected
		FROM knots
		ORDER BY id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query knots: %w", err)
	}
	defer rows.Close()

	knots := knot.Knots{}
	for rows.Next() {
		k, err := scanKnot(rows)
		if err != nil {
			return nil, err
		}
		knots[k.ID] = k
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate knots: %w", err)
	}

	var want string
	err = s.db.QueryRowContext(ctx, `SELECT value FROM snapshot_meta WHERE key = 'digest'`).Scan(&want)
	if errors.Is(err, sql.ErrNoRows) {
		return knots, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read snapshot digest: %w", err)
	}

	got, err := knot.SnapshotDigest(knots)
	if err != nil {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}
	if got != want {
		return nil, fmt.Errorf("load snapshot: %w: stored %s, computed %s", ErrDigestMismatch, want, got)
	}

	return knots, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBatch(row rowScanner) (session.LoggedBatch, error) {
	var (
		lb   session.LoggedBatch
		body string
	)
	if err := row.Scan(&lb.Seq, &lb.Session, &lb.Digest, &body); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return session.LoggedBatch{}, err
		}
		return session.LoggedBatch{}, fmt.Errorf("scan batch: %w", err)
	}

	batch, err := unmarshalBatch(body)
	if err != nil {
		return session.LoggedBatch{}, fmt.Errorf("batch %d: %w", lb.Seq, err)
	}

	digest, err := knot.BatchDigest(batch)
	if err != nil {
		return session.LoggedBatch{}, fmt.Errorf("batch %d: %w", lb.Seq, err)
	}
	if digest != lb.Digest {
		return session.LoggedBatch{}, fmt.Errorf("batch %d: %w", lb.Seq, ErrDigestMismatch)
	}

	lb.Batch = batch
	return lb, nil
}

func scanKnot(row rowScanner) (knot.Knot, error) {
	var (
		k         knot.Knot
		parentID  sql.NullInt64
		response  sql.NullString
		unblessed sql.NullString
		children  string
		selected  sql.NullInt64
	)
	err := row.Scan(&k.ID, &parentID, &k.Label, &k.Command, &response, &unblessed, &children, &selected)
	if err != nil {
		return knot.Knot{}, fmt.Errorf("scan knot: %w", err)
	}

	if parentID.Valid {
		k.ParentID = knot.Int64(parentID.Int64)
	}
	if response.Valid {
		k.Response = knot.String(response.String)
	}
	if unblessed.Valid {
		k.Unblessed = knot.String(unblessed.String)
	}
	if selected.Valid {
		k.Selected = knot.Int64(selected.Int64)
	}

	k.Children, err = unmarshalChildren(children)
	if err != nil {
		return knot.Knot{}, fmt.Errorf("knot %d: %w", k.ID, err)
	}
	return k, nil
}
