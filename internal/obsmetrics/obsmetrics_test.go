package obsmetrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/readium/r2-lcp-go/internal/validation"
)

func TestMetrics_RecordsFailedOutcome(t *testing.T) {
	m := NewWithRegisterer(prometheus.NewRegistry())
	obs := m.Observer(time.Now())

	obs(nil, errFake{})

	if got := testutil.ToFloat64(m.OutcomesTotal.WithLabelValues("failed")); got != 1 {
		t.Errorf("outcomes_total{outcome=failed} = %v, want 1", got)
	}
}

type errFake struct{}

func (errFake) Error() string { return "boom" }
