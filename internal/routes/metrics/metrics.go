package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for route generation.
type Metrics struct {
	// Generated routes
	RoutesGenerated prometheus.Counter

	// Rejected generation requests by reason: empty, too_many_stops, missing_coordinates
	RoutesRejected *prometheus.CounterVec

	// Stops per generated route
	RouteStops prometheus.Histogram

	// Promotion outcomes by result: promoted, skipped, failed
	Promotions *prometheus.CounterVec
}

func New() *Metrics {
	return &Metrics{
		RoutesGenerated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "leadline_routes_generated_total",
			Help: "Routes generated",
		}),
		RoutesRejected: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "leadline_routes_rejected_total",
			Help: "Route generation requests rejected by validation",
		}, []string{"reason"}),
		RouteStops: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "leadline_route_stops",
			Help:    "Number of stops per generated route",
			Buckets: []float64{1, 2, 5, 10, 15, 20, 25},
		}),
		Promotions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "leadline_route_promotions_total",
			Help: "Lead promotions after route generation by result",
		}, []string{"result"}),
	}
}

func (m *Metrics) IncrementGenerated(stops int) {
	if m == nil {
		return
	}
	m.RoutesGenerated.Inc()
	m.RouteStops.Observe(float64(stops))
}

func (m *Metrics) IncrementRejected(reason string) {
	if m != nil {
		m.RoutesRejected.WithLabelValues(reason).Inc()
	}
}

func (m *Metrics) AddPromotions(result string, n int) {
	if m != nil && n > 0 {
		m.Promotions.WithLabelValues(result).Add(float64(n))
	}
}
