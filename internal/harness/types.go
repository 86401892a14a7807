package harness

import (
	"github.com/roach88/skein/internal/knot"
	"github.com/roach88/skein/internal/session"
	"github.com/roach88/skein/internal/skein"
)

// Issue is one record a step skipped or repaired.
type Issue struct {
	Code   string `json:"code"`
	KnotID int64  `json:"knot_id"`
}

// StepRecord is the outcome of one batch step.
type StepRecord struct {
	Kind     string  `json:"kind"`
	Seq      int64   `json:"seq"` // 0 when the step was rejected before logging
	Inserted []int64 `json:"inserted"`
	Replaced []int64 `json:"replaced"`
	Removed  []int64 `json:"removed"`
	Issues   []Issue `json:"issues"`
}

// Result is the outcome of a test scenario execution.
type Result struct {
	// Pass indicates overall test success.
	// True if every expectation matched and replay reproduced the snapshot.
	Pass bool `json:"pass"`

	// Steps records what each batch step changed, in order.
	Steps []StepRecord `json:"steps"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// Final state.
	Views    skein.Views      `json:"-"`
	Knots    knot.Knots       `json:"-"`
	Envelope session.Envelope `json:"-"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Steps:  []StepRecord{},
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// IssueCodes flattens every step's issues into codes, in order.
func (r *Result) IssueCodes() []string {
	codes := []string{}
	for _, s := range r.Steps {
		for _, i := range s.Issues {
			codes = append(codes, i.Code)
		}
	}
	return codes
}

func newStepRecord(kind string, seq int64, report skein.ApplyReport) StepRecord {
	rec := StepRecord{
		Kind:     kind,
		Seq:      seq,
		Inserted: nonNil(report.Inserted),
		Replaced: nonNil(report.Replaced),
		Removed:  nonNil(report.Removed),
		Issues:   []Issue{},
	}
	for _, ie := range report.Issues {
		rec.Issues = append(rec.Issues, Issue{Code: string(ie.Code), KnotID: ie.KnotID})
	}
	return rec
}

func nonNil(ids []int64) []int64 {
	if ids == nil {
		return []int64{}
	}
	return ids
}
