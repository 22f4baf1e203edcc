package loop

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Reply routes counted by microbot_agent_replies_total.
const (
	RouteQuick     = "quick"
	RouteDelegated = "delegated"
	RouteSelector  = "selector"
	RouteDirect    = "direct_tool"
	RouteAnswer    = "answer"
	RouteFallback  = "fallback"
	RouteError     = "error"
)

// Metrics counts replies by the path that produced them. A nil *Metrics is a no-op.
type Metrics struct {
	replies    *prometheus.CounterVec
	iterations prometheus.Histogram
}

// NewMetrics registers loop metrics under namespace.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	m := &Metrics{
		replies: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "agent_replies_total",
				Help:      "Replies produced by the agent loop, by route",
			},
			[]string{"route"},
		),
		iterations: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "agent_iterations",
				Help:      "THINK iterations used per request",
				Buckets:   []float64{1, 2, 3, 4, 6, 8, 12},
			},
		),
	}
	reg.MustRegister(m.replies, m.iterations)
	return m
}

func (m *Metrics) reply(route string) {
	if m == nil {
		return
	}
	m.replies.WithLabelValues(route).Inc()
}

func (m *Metrics) observeIterations(n int) {
	if m == nil {
		return
	}
	m.iterations.Observe(float64(n))
}
