package coordinator

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics tracks coordinator operation outcomes and latency.
type Metrics struct {
	operations *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	saturation prometheus.Counter
}

// NewMetrics creates and registers the coordinator metrics on the given
// registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		operations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "position_ledger",
				Subsystem: "coordinator",
				Name:      "operations_total",
				Help:      "Count of coordinator operations by operation and outcome.",
			},
			[]string{"operation", "outcome"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "position_ledger",
				Subsystem: "coordinator",
				Name:      "operation_duration_seconds",
				Help:      "Latency of coordinator operations.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		saturation: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "position_ledger",
				Subsystem: "coordinator",
				Name:      "owed_saturation_total",
				Help:      "Count of fee accruals that pinned an owed-token field at its maximum.",
			},
		),
	}

	reg.MustRegister(m.operations, m.duration, m.saturation)
	return m
}

func (m *Metrics) observe(op string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.operations.WithLabelValues(op, outcome).Inc()
}
