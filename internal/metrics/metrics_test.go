package metrics

import (
	"context"
	"io"
	"log/slog"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/skein/internal/knot"
	"github.com/roach88/skein/internal/session"
	"github.com/roach88/skein/internal/skein"
	skeintest "github.com/roach88/skein/internal/testutil"
)

func newTestMetrics(t *testing.T) (*Metrics, *prometheus.Registry) {
	t.Helper()
	reg := prometheus.NewRegistry()
	return New(reg), reg
}

func newObservedSession(m *Metrics) *session.Session {
	return session.New(nil, skeintest.NewFixedTokenGenerator(""),
		session.WithObserver(m),
		session.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
}

func TestMetrics_Registered(t *testing.T) {
	_, reg := newTestMetrics(t)
	m2 := func() { New(reg) }
	assert.Panics(t, m2, "registering twice on one registry must fail")
}

func TestMetrics_ObserveApply(t *testing.T) {
	m, _ := newTestMetrics(t)
	s := newObservedSession(m)
	ctx := context.Background()

	_, err := s.Apply(ctx, knot.Batch{Updates: []knot.Knot{
		{ID: 0, Children: []int64{1, 2}},
		{ID: 1, ParentID: knot.Int64(0), Command: "look", Response: knot.String("A room.")},
		{ID: 2, ParentID: knot.Int64(0), Command: "xyzzy", Unblessed: knot.String("Nothing happens.")},
		{ID: 9, ParentID: knot.Int64(5), Command: "orphan", Response: knot.String("-")},
	}})
	require.NoError(t, err)

	_, err = s.Apply(ctx, knot.Batch{
		Updates:    []knot.Knot{{ID: 1, ParentID: knot.Int64(0), Command: "look", Response: knot.String("A room."), Unblessed: knot.String("A dark room.")}},
		RemovedIDs: []int64{2, 40},
	})
	require.NoError(t, err)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.BatchesApplied))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.KnotChanges.WithLabelValues(OpInserted)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.KnotChanges.WithLabelValues(OpReplaced)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.KnotChanges.WithLabelValues(OpRemoved)))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.BatchIssues.WithLabelValues(string(skein.ErrCodeMissingParent))))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.BatchIssues.WithLabelValues(string(skein.ErrCodeUnknownRemoval))))

	// root ok, knot 1 now error, knot 2 removed
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Knots.WithLabelValues(string(knot.CategoryOK))))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.Knots.WithLabelValues(string(knot.CategoryNew))))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Knots.WithLabelValues(string(knot.CategoryError))))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.Knots.WithLabelValues(CategoryInvalid)))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.Violations))
}

func TestMetrics_InvalidKnots(t *testing.T) {
	m, _ := newTestMetrics(t)
	s := newObservedSession(m)

	_, err := s.Apply(context.Background(), knot.Batch{Updates: []knot.Knot{
		{ID: 0, Children: []int64{1}},
		{ID: 1, ParentID: knot.Int64(0), Command: "wait"},
	}})
	require.NoError(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Knots.WithLabelValues(CategoryInvalid)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Violations))
}

func TestHandler_ServesMetrics(t *testing.T) {
	m, reg := newTestMetrics(t)
	m.BatchesApplied.Inc()

	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	assert.Equal(t, 200, rec.Code)
	assert.Contains(t, rec.Body.String(), "skein_batches_applied_total 1")
}
