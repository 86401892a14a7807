// Package metrics exposes skein tree activity as Prometheus metrics.
//
// Metrics implements skein.Observer; register it on a session with
// session.WithObserver and it is updated after every applied batch.
//
// Exposed series (namespace "skein"):
//   - batches_applied_total: batches applied
//   - knot_changes_total{op}: knots inserted, replaced, removed
//   - batch_issues_total{code}: records skipped or repaired, by invariant code
//   - knots{category}: current knot count by own category (plus "invalid")
//   - violations: derivation violations in the current snapshot
//
// All metric operations are thread-safe via Prometheus's internal locking.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/roach88/skein/internal/knot"
	"github.com/roach88/skein/internal/skein"
)

const namespace = "skein"

// Change operations for knot_changes_total.
const (
	OpInserted = "inserted"
	OpReplaced = "replaced"
	OpRemoved  = "removed"
)

// CategoryInvalid labels knots that could not be classified.
const CategoryInvalid = "invalid"

// Metrics holds the collectors for one registry.
type Metrics struct {
	BatchesApplied prometheus.Counter
	KnotChanges    *prometheus.CounterVec
	BatchIssues    *prometheus.CounterVec
	Knots          *prometheus.GaugeVec
	Violations     prometheus.Gauge
}

var _ skein.Observer = (*Metrics)(nil)

// New creates the collectors and registers them with reg.
// Pass prometheus.NewRegistry() in tests to avoid global state.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		BatchesApplied: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "batches_applied_total",
			Help:      "Total number of update batches applied to the knot store.",
		}),
		KnotChanges: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "knot_changes_total",
			Help:      "Knot records changed by applied batches, by operation.",
		}, []string{"op"}),
		BatchIssues: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "batch_issues_total",
			Help:      "Batch records skipped or repaired, by invariant code.",
		}, []string{"code"}),
		Knots: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "knots",
			Help:      "Current number of knots by own category.",
		}, []string{"category"}),
		Violations: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "violations",
			Help:      "Derivation violations in the current snapshot.",
		}),
	}
}

// ObserveApply implements skein.Observer.
func (m *Metrics) ObserveApply(report skein.ApplyReport, views skein.Views) {
	m.BatchesApplied.Inc()

	m.KnotChanges.WithLabelValues(OpInserted).Add(float64(len(report.Inserted)))
	m.KnotChanges.WithLabelValues(OpReplaced).Add(float64(len(report.Replaced)))
	m.KnotChanges.WithLabelValues(OpRemoved).Add(float64(len(report.Removed)))

	for _, issue := range report.Issues {
		m.BatchIssues.WithLabelValues(string(issue.Code)).Inc()
	}

	for _, c := range knot.AllCategories {
		m.Knots.WithLabelValues(string(c)).Set(float64(views.Totals.Of(c)))
	}
	m.Knots.WithLabelValues(CategoryInvalid).Set(float64(views.Totals.Invalid))
	m.Violations.Set(float64(len(views.Violations)))
}

// Handler serves the metrics in reg in the Prometheus text format.
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
}
