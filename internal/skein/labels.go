package skein

import (
	"sort"

	"github.com/roach88/skein/internal/knot"
)

// Labels builds the navigation index of labeled knots.
//
// Order: "START" first, then ascending byte-wise label order. Knots sharing
// a label are ordered by id, so the result is the same on every call.
func Labels(knots knot.Knots) []knot.LabelEntry {
	result := []knot.LabelEntry{}

	for _, id := range knots.SortedIDs() {
		if label := knots[id].Label; label != "" {
			result = append(result, knot.LabelEntry{Label: label, ID: id})
		}
	}

	sort.SliceStable(result, func(i, j int) bool {
		return labelLess(result[i].Label, result[j].Label)
	})

	return result
}

func labelLess(a, b string) bool {
	if a == b {
		return false
	}
	if a == knot.StartLabel {
		return true
	}
	if b == knot.StartLabel {
		return false
	}
	return a < b
}
