package harness

import (
	"fmt"
	"slices"
	"sort"

	"github.com/roach88/skein/internal/knot"
	"github.com/roach88/skein/internal/skein"
)

// EvaluateExpectations checks every set field of expect against result and
// returns one message per mismatch.
func EvaluateExpectations(result *Result, expect Expect) []string {
	var errs []string
	fail := func(what string, want, got any) {
		errs = append(errs, fmt.Sprintf("%s: expected %v, got %v", what, want, got))
	}

	views := result.Views

	if expect.DisplayPath != nil && !slices.Equal(*expect.DisplayPath, views.DisplayPath) {
		fail("display_path", *expect.DisplayPath, views.DisplayPath)
	}

	if expect.Labels != nil {
		want := make([]knot.LabelEntry, len(*expect.Labels))
		for i, l := range *expect.Labels {
			want[i] = knot.LabelEntry{Label: l.Label, ID: l.ID}
		}
		if !slices.Equal(want, views.Labels) {
			fail("labels", want, views.Labels)
		}
	}

	errs = append(errs, checkCategories("tree_categories", expect.TreeCategories, result.Knots, views.Tree)...)
	errs = append(errs, checkCategories("self_categories", expect.SelfCategories, result.Knots, views.Self)...)

	if expect.Totals != nil {
		want := skein.Totals{
			OK:      expect.Totals.OK,
			New:     expect.Totals.New,
			Error:   expect.Totals.Error,
			Invalid: expect.Totals.Invalid,
		}
		if want != views.Totals {
			fail("totals", want, views.Totals)
		}
	}

	if expect.Issues != nil {
		got := result.IssueCodes()
		if !slices.Equal(*expect.Issues, got) {
			fail("issues", *expect.Issues, got)
		}
	}

	if expect.Violations != nil {
		got := []string{}
		for _, v := range views.Violations {
			got = append(got, string(v.Code))
		}
		if !slices.Equal(*expect.Violations, got) {
			fail("violations", *expect.Violations, got)
		}
	}

	if expect.Title != nil && *expect.Title != result.Envelope.Title {
		fail("title", *expect.Title, result.Envelope.Title)
	}

	if expect.Knots != nil && *expect.Knots != len(result.Knots) {
		fail("knots", *expect.Knots, len(result.Knots))
	}

	return errs
}

// checkCategories compares expected categories by id, in id order so
// messages are stable.
func checkCategories(what string, want map[int64]string, knots knot.Knots, got skein.Categories) []string {
	ids := make([]int64, 0, len(want))
	for id := range want {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	var errs []string
	for _, id := range ids {
		if _, ok := knots[id]; !ok {
			errs = append(errs, fmt.Sprintf("%s[%d]: knot not in store", what, id))
			continue
		}
		if actual := got.Of(id); string(actual) != want[id] {
			errs = append(errs, fmt.Sprintf("%s[%d]: expected %s, got %s", what, id, want[id], actual))
		}
	}
	return errs
}
