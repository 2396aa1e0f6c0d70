package differ

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics tracks diff computation latency and failures.
type Metrics struct {
	diffDuration prometheus.Histogram
	diffErrors   *prometheus.CounterVec
}

// NewMetrics creates and registers the differ metrics on the given
// registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		diffDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "position_ledger",
				Subsystem: "differ",
				Name:      "diff_duration_seconds",
				Help:      "Latency of full state diff computations.",
				Buckets:   prometheus.DefBuckets,
			},
		),
		diffErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "position_ledger",
				Subsystem: "differ",
				Name:      "diff_errors_total",
				Help:      "Count of failed component diff computations.",
			},
			[]string{"component"},
		),
	}

	reg.MustRegister(m.diffDuration, m.diffErrors)
	return m
}
