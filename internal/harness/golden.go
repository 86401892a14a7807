package harness

import (
	"strconv"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/skein/internal/knot"
	"github.com/roach88/skein/internal/testutil"
)

// Snapshot renders a scenario's outcome as canonical JSON: the step records
// and the final derived views and knots. Identical runs produce identical
// bytes.
func Snapshot(scenario *Scenario, result *Result) ([]byte, error) {
	token := scenario.SessionToken
	if token == "" {
		token = testutil.DefaultSessionToken
	}

	steps := make([]any, len(result.Steps))
	for i, s := range result.Steps {
		issues := make([]any, len(s.Issues))
		for j, is := range s.Issues {
			issues[j] = map[string]any{"code": is.Code, "knot_id": is.KnotID}
		}
		steps[i] = map[string]any{
			"kind":     s.Kind,
			"seq":      s.Seq,
			"inserted": s.Inserted,
			"replaced": s.Replaced,
			"removed":  s.Removed,
			"issues":   issues,
		}
	}

	views := result.Views
	tree := make(map[string]any, len(result.Knots))
	for _, id := range result.Knots.SortedIDs() {
		tree[strconv.FormatInt(id, 10)] = string(views.Tree.Of(id))
	}

	snap := map[string]any{
		"scenario_name":   scenario.Name,
		"session_token":   token,
		"steps":           steps,
		"display_path":    nonNil(views.DisplayPath),
		"labels":          views.Labels,
		"tree_categories": tree,
		"totals": map[string]any{
			"ok":      views.Totals.OK,
			"new":     views.Totals.New,
			"error":   views.Totals.Error,
			"invalid": views.Totals.Invalid,
		},
		"knots": result.Knots,
	}
	if views.Labels == nil {
		snap["labels"] = []knot.LabelEntry{}
	}
	if title := result.Envelope.Title; title != "" {
		snap["title"] = title
	}

	return knot.MarshalCanonical(snap)
}

// RunWithGolden executes a scenario and compares its snapshot against a
// golden file in testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}

	if err := AssertGolden(t, scenario, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares an already-run result against its golden file.
func AssertGolden(t *testing.T, scenario *Scenario, result *Result) error {
	t.Helper()

	data, err := Snapshot(scenario, result)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenario.Name, data)

	return nil
}
