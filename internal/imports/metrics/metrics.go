package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for bulk imports.
type Metrics struct {
	// Finished sessions by source and final status
	SessionsFinished *prometheus.CounterVec

	// Processed rows by result: imported, failed
	Rows *prometheus.CounterVec

	ImportDuration prometheus.Histogram
}

func New() *Metrics {
	return &Metrics{
		SessionsFinished: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "leadline_import_sessions_finished_total",
			Help: "Import sessions that reached a terminal status",
		}, []string{"source", "status"}),
		Rows: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "leadline_import_rows_total",
			Help: "Import rows processed by result",
		}, []string{"result"}),
		ImportDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "leadline_import_duration_seconds",
			Help:    "Wall time of a full import session",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
		}),
	}
}

func (m *Metrics) ObserveSession(source, status string, seconds float64) {
	if m == nil {
		return
	}
	m.SessionsFinished.WithLabelValues(source, status).Inc()
	m.ImportDuration.Observe(seconds)
}

func (m *Metrics) AddRows(imported, failed int) {
	if m == nil {
		return
	}
	m.Rows.WithLabelValues("imported").Add(float64(imported))
	m.Rows.WithLabelValues("failed").Add(float64(failed))
}
