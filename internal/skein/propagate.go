package skein

import (
	"errors"

	"github.com/roach88/skein/internal/knot"
)

// Categories maps knot ids to categories. Only non-ok entries are stored;
// ok is the propagation identity, so absent ids read as ok.
type Categories map[int64]knot.Category

// Of returns the category recorded for id, or ok if there is none.
func (c Categories) Of(id int64) knot.Category {
	if cat, ok := c[id]; ok {
		return cat
	}
	return knot.CategoryOK
}

// SelfCategories classifies every knot on its own.
// Knots that fail classification are left out of the map and reported in
// the returned error (joined, one *InvariantError per knot).
func SelfCategories(knots knot.Knots) (Categories, error) {
	result := make(Categories)
	var errs []error

	for _, id := range knots.SortedIDs() {
		c, err := Classify(knots[id])
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if c != knot.CategoryOK {
			result[id] = c
		}
	}

	return result, errors.Join(errs...)
}

// Propagate computes each knot's tree category: the worst category found
// anywhere in its subtree, itself included.
//
// Every non-ok knot walks upward through parent ids, merging its category
// into each ancestor, until it reaches a knot without a parent or a parent
// id that is not in the store. Shared ancestors are revisited once per
// failing descendant; Merge is idempotent so the result is independent of
// processing order.
//
// The map is always returned. The error joins classification failures and,
// if a walk exceeds the store size (a parent cycle), a CYCLE_DETECTED error.
func Propagate(knots knot.Knots) (Categories, error) {
	result, classifyErr := SelfCategories(knots)
	errs := []error{classifyErr}

	// Snapshot the failing ids before the map grows with ancestors.
	failed := make([]int64, 0, len(result))
	for _, id := range knots.SortedIDs() {
		if _, ok := result[id]; ok {
			failed = append(failed, id)
		}
	}

	limit := len(knots)
	for _, failedID := range failed {
		c := result[failedID]
		id := failedID

		for steps := 0; ; steps++ {
			if steps >= limit {
				errs = append(errs, newInvariantError(ErrCodeCycleDetected, failedID, nil,
					"parent chain longer than the store"))
				break
			}

			k, ok := knots[id]
			if !ok || k.ParentID == nil {
				break
			}
			parentID := *k.ParentID
			if _, ok := knots[parentID]; !ok {
				break
			}

			merged := Merge(c, result.Of(parentID))
			result[parentID] = merged
			id = parentID
		}
	}

	return result, errors.Join(errs...)
}
