package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks dashboard cache effectiveness.
type Metrics struct {
	// Cache lookups by result: hit, miss, error
	CacheLookups *prometheus.CounterVec

	ComputeDuration prometheus.Histogram
}

func New() *Metrics {
	return &Metrics{
		CacheLookups: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "leadline_stats_cache_lookups_total",
			Help: "Dashboard stats cache lookups by result",
		}, []string{"result"}),
		ComputeDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "leadline_stats_compute_duration_seconds",
			Help:    "Time to recompute a dashboard snapshot from the lead store",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5},
		}),
	}
}

func (m *Metrics) IncrementLookup(result string) {
	if m != nil {
		m.CacheLookups.WithLabelValues(result).Inc()
	}
}

func (m *Metrics) ObserveCompute(seconds float64) {
	if m != nil {
		m.ComputeDuration.Observe(seconds)
	}
}
