// Package obsmetrics exposes Prometheus counters for validation
// outcomes as a validation.Observer, so wiring metrics into a facade
// never touches the state machine itself (grounded on the
// promauto-registered counter/histogram shape used across the
// example pack's metrics packages).
package obsmetrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/readium/r2-lcp-go/internal/validation"
)

// Metrics holds every Prometheus series this package registers.
type Metrics struct {
	OutcomesTotal    *prometheus.CounterVec
	ValidationSeconds prometheus.Histogram
}

// New registers and returns a Metrics set against the default
// registerer. Call it once per process.
func New() *Metrics {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

// NewWithRegisterer registers against reg; use prometheus.NewRegistry()
// in tests for isolation between cases.
func NewWithRegisterer(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		OutcomesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "lcp_validation_outcomes_total",
			Help: "Count of terminal license validation outcomes by kind.",
		}, []string{"outcome"}),
		ValidationSeconds: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "lcp_validation_duration_seconds",
			Help:    "Wall-clock duration of a license validation from seed to terminal outcome.",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

// Observer returns a validation.Observer that records outcomes. start
// should be the time the corresponding Validate call was made.
func (m *Metrics) Observer(start time.Time) validation.Observer {
	return func(docs *validation.ValidatedDocuments, err error) {
		m.ValidationSeconds.Observe(time.Since(start).Seconds())
		m.OutcomesTotal.WithLabelValues(outcomeLabel(docs, err)).Inc()
	}
}

func outcomeLabel(docs *validation.ValidatedDocuments, err error) string {
	switch {
	case err != nil:
		return "failed"
	case docs == nil:
		return "cancelled"
	case docs.Context.IsUsable():
		return "valid"
	}

	switch docs.Context.StatusErr().(type) {
	case *validation.Expired:
		return "expired"
	case *validation.Returned:
		return "returned"
	case *validation.Revoked:
		return "revoked"
	case *validation.Cancelled:
		return "license_cancelled"
	default:
		return "status_error"
	}
}
