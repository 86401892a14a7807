package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"gopkg.in/yaml.v3"

	"github.com/roach88/skein/internal/feed"
	"github.com/roach88/skein/internal/knot"
	"github.com/roach88/skein/internal/session"
	"github.com/roach88/skein/internal/skein"
	"github.com/roach88/skein/internal/store"
	"github.com/roach88/skein/internal/testutil"
)

// Harness is the test execution engine.
// It runs scenarios with a deterministic clock and a fixed session token.
type Harness struct {
	scenario *Scenario
	store    *store.Store
	session  *session.Session
	clock    *testutil.DeterministicClock
	tokens   *testutil.FixedTokenGenerator
	logger   *slog.Logger
}

// Run executes a test scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database for isolation.
//
// Execution flow:
// 1. Create fresh in-memory store and session
// 2. Apply every batch step in order
// 3. Restore a second session from the log and compare snapshots
// 4. Evaluate expectations against the final state
//
// An error is returned only when the scenario cannot be executed (bad batch
// file, store failure). Failed expectations are reported in Result.Errors.
func Run(scenario *Scenario) (*Result, error) {
	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	h := &Harness{
		scenario: scenario,
		store:    st,
		clock:    testutil.NewDeterministicClock(),
		tokens:   testutil.NewFixedTokenGenerator(scenario.SessionToken),
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)), // Suppress logs in tests
	}
	h.session = session.New(st, h.tokens,
		session.WithClock(h.clock),
		session.WithLogger(h.logger),
	)

	ctx := context.Background()
	result := NewResult()

	for i, step := range scenario.Batches {
		rec, err := h.executeStep(ctx, i, step)
		if err != nil {
			return nil, fmt.Errorf("batches[%d]: %w", i, err)
		}
		result.Steps = append(result.Steps, rec)
	}

	tree := h.session.Tree()
	result.Views = tree.Views()
	result.Knots = tree.Snapshot()
	result.Envelope = h.session.Envelope()

	if err := h.verifyReplay(ctx, result); err != nil {
		return nil, err
	}

	for _, msg := range EvaluateExpectations(result, scenario.Expect) {
		result.AddError(msg)
	}

	return result, nil
}

// executeStep applies one step. A rejected selection is recorded as a step
// with an issue and seq 0; it is not an execution error.
func (h *Harness) executeStep(ctx context.Context, i int, step BatchStep) (StepRecord, error) {
	switch step.Kind() {
	case StepSelect:
		res, err := h.session.Select(ctx, step.Select.Parent, step.Select.Child)
		var ie *skein.InvariantError
		if errors.As(err, &ie) {
			rec := newStepRecord(StepSelect, 0, skein.ApplyReport{})
			rec.Issues = append(rec.Issues, Issue{Code: string(ie.Code), KnotID: ie.KnotID})
			return rec, nil
		}
		if err != nil {
			return StepRecord{}, err
		}
		return newStepRecord(StepSelect, res.Seq, res.Report), nil

	case StepFile:
		batch, err := feed.LoadBatch(h.scenario.resolve(step.File))
		if err != nil {
			return StepRecord{}, err
		}
		return h.apply(ctx, StepFile, batch)

	default:
		batch, err := inlineBatch(fmt.Sprintf("%s#batches[%d]", h.scenario.Name, i), step.Inline)
		if err != nil {
			return StepRecord{}, err
		}
		return h.apply(ctx, StepBatch, batch)
	}
}

func (h *Harness) apply(ctx context.Context, kind string, batch knot.Batch) (StepRecord, error) {
	res, err := h.session.Apply(ctx, batch)
	if err != nil {
		return StepRecord{}, err
	}
	return newStepRecord(kind, res.Seq, res.Report), nil
}

// inlineBatch validates an inline YAML batch through the same schema as
// batch files.
func inlineBatch(name string, node *yaml.Node) (knot.Batch, error) {
	data, err := yaml.Marshal(node)
	if err != nil {
		return knot.Batch{}, fmt.Errorf("re-encode inline batch: %w", err)
	}
	return feed.ParseBatch(name, ".yaml", data)
}

// verifyReplay rebuilds the tree from the batch log and records an error if
// the replayed snapshot differs from the live one.
func (h *Harness) verifyReplay(ctx context.Context, result *Result) error {
	restored, err := session.Restore(ctx, h.store, h.tokens, session.WithLogger(h.logger))
	if err != nil {
		return fmt.Errorf("replay: %w", err)
	}

	want, err := knot.SnapshotDigest(result.Knots)
	if err != nil {
		return fmt.Errorf("replay: %w", err)
	}
	got, err := knot.SnapshotDigest(restored.Tree().Snapshot())
	if err != nil {
		return fmt.Errorf("replay: %w", err)
	}
	if got != want {
		result.AddError(fmt.Sprintf("replay diverged: live snapshot %s, replayed %s", want, got))
	}
	return nil
}
