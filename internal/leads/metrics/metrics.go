package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the lead lifecycle.
type Metrics struct {
	// Status transitions by source and target stage
	Transitions *prometheus.CounterVec

	// Best-effort bookkeeping failures by step: renumber, interaction, note, stats, event
	SoftFailures *prometheus.CounterVec

	// Rows rewritten by renumbering
	RenumberedRows prometheus.Counter

	// Leads created by origin: manual, import
	LeadsCreated *prometheus.CounterVec

	ChangeStatusLatency prometheus.Histogram
}

// New creates a new Metrics instance with all lead metrics registered.
func New() *Metrics {
	return &Metrics{
		Transitions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "leadline_lead_status_transitions_total",
			Help: "Lead status transitions by source and target status",
		}, []string{"from", "to"}),

		SoftFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "leadline_lead_soft_failures_total",
			Help: "Non-fatal failures of post-transition bookkeeping by step",
		}, []string{"step"}),

		RenumberedRows: promauto.NewCounter(prometheus.CounterOpts{
			Name: "leadline_lead_renumbered_rows_total",
			Help: "Lead rows whose display number was rewritten",
		}),

		LeadsCreated: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "leadline_leads_created_total",
			Help: "Leads created by origin",
		}, []string{"origin"}),

		ChangeStatusLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "leadline_lead_change_status_duration_seconds",
			Help:    "Duration of a full status change including bookkeeping",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}),
	}
}

func (m *Metrics) IncrementTransition(from, to string) {
	if m != nil {
		m.Transitions.WithLabelValues(from, to).Inc()
	}
}

func (m *Metrics) IncrementSoftFailure(step string) {
	if m != nil {
		m.SoftFailures.WithLabelValues(step).Inc()
	}
}

func (m *Metrics) AddRenumbered(n int) {
	if m != nil && n > 0 {
		m.RenumberedRows.Add(float64(n))
	}
}

func (m *Metrics) IncrementCreated(origin string) {
	if m != nil {
		m.LeadsCreated.WithLabelValues(origin).Inc()
	}
}

func (m *Metrics) ObserveChangeStatus(d time.Duration) {
	if m != nil {
		m.ChangeStatusLatency.Observe(d.Seconds())
	}
}
