package store

import (
	"path/filepath"
	"testing"

	"github.com/roach88/skein/internal/knot"
)

// createTestStore creates a new store in a temp dir for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestBatch creates a two-knot batch: a labelled root and one child.
func createTestBatch(command string) knot.Batch {
	return knot.Batch{
		Updates: []knot.Knot{
			{ID: 0, Label: "START", Children: []int64{1}, Selected: knot.Int64(1)},
			{ID: 1, ParentID: knot.Int64(0), Command: command, Unblessed: knot.String("Output."), Children: []int64{}},
		},
		RemovedIDs: []int64{},
	}
}

// createTestKnots creates a small snapshot with every optional field exercised.
func createTestKnots() knot.Knots {
	return knot.Knots{
		0: {ID: 0, Label: "START", Children: []int64{1, 2}, Selected: knot.Int64(2)},
		1: {ID: 1, ParentID: knot.Int64(0), Command: "look", Response: knot.String("A room."), Children: []int64{}},
		2: {ID: 2, ParentID: knot.Int64(0), Command: "north", Response: knot.String("A hall."),
			Unblessed: knot.String("A dark hall."), Children: []int64{}},
	}
}
