package skein

import (
	"github.com/roach88/skein/internal/knot"
)

// DisplayPath returns the ids currently visible, from the root down through
// each knot's selected child. The walk stops at a knot without a selection
// or at an id that is not in the store.
//
// An empty store (no root) yields an empty path and no error. The walk is
// bounded by the store size; if the bound is hit the path so far is
// returned with a CYCLE_DETECTED error.
func DisplayPath(knots knot.Knots) ([]int64, error) {
	path := []int64{}
	id := knot.RootID

	for {
		k, ok := knots[id]
		if !ok {
			return path, nil
		}
		if len(path) >= len(knots) {
			return path, newInvariantError(ErrCodeCycleDetected, id, nil,
				"selected chain longer than the store")
		}

		path = append(path, id)

		if k.Selected == nil {
			return path, nil
		}
		id = *k.Selected
	}
}
