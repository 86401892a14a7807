package skein

import (
	"github.com/roach88/skein/internal/knot"
)

// Classify returns a knot's own category from its response and unblessed
// fields alone:
//
//	response  unblessed  category
//	present   absent     ok
//	absent    present    new
//	present   present    error
//	absent    absent     *InvariantError (UNEXPECTED_STATE)
//
// The root knot carries no command and is always ok. For any other knot the
// both-absent case is not a legal steady state; Classify does not guess and
// leaves the decision to the caller.
func Classify(k knot.Knot) (knot.Category, error) {
	switch {
	case k.Unblessed == nil && k.Response != nil:
		return knot.CategoryOK, nil
	case k.Unblessed != nil && k.Response == nil:
		return knot.CategoryNew, nil
	case k.Unblessed != nil && k.Response != nil:
		return knot.CategoryError, nil
	case k.IsRoot():
		return knot.CategoryOK, nil
	default:
		return "", newInvariantError(ErrCodeUnexpectedState, k.ID, nil,
			"knot has neither response nor unblessed output")
	}
}

// Merge combines two categories, keeping the more severe:
// error > new > ok. Merge is commutative, associative, and idempotent,
// and ok is its identity.
func Merge(left, right knot.Category) knot.Category {
	if left == knot.CategoryError || right == knot.CategoryError {
		return knot.CategoryError
	}
	if left == knot.CategoryNew || right == knot.CategoryNew {
		return knot.CategoryNew
	}
	return knot.CategoryOK
}
