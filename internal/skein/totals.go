package skein

import (
	"errors"

	"github.com/roach88/skein/internal/knot"
)

// Totals counts knots by their own category.
type Totals struct {
	OK      int `json:"ok"`
	New     int `json:"new"`
	Error   int `json:"error"`
	Invalid int `json:"invalid"` // knots Classify rejected
}

// Total is the number of knots counted.
func (t Totals) Total() int {
	return t.OK + t.New + t.Error + t.Invalid
}

// Of returns the count for a category.
func (t Totals) Of(c knot.Category) int {
	switch c {
	case knot.CategoryOK:
		return t.OK
	case knot.CategoryNew:
		return t.New
	case knot.CategoryError:
		return t.Error
	default:
		return 0
	}
}

// CountCategories tallies the self category of every knot. Knots that fail
// classification are counted as Invalid and reported in the error.
func CountCategories(knots knot.Knots) (Totals, error) {
	var t Totals
	var errs []error

	for _, id := range knots.SortedIDs() {
		c, err := Classify(knots[id])
		if err != nil {
			t.Invalid++
			errs = append(errs, err)
			continue
		}
		switch c {
		case knot.CategoryOK:
			t.OK++
		case knot.CategoryNew:
			t.New++
		case knot.CategoryError:
			t.Error++
		}
	}

	return t, errors.Join(errs...)
}
