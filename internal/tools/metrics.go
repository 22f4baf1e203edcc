package tools

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Outcome labels of microbot_tool_calls_total.
const (
	OutcomeOK          = "ok"
	OutcomeError       = "error"
	OutcomeAllowlist   = "allowlist"
	OutcomeRateLimited = "rate_limited"
	OutcomeInvalidArgs = "invalid_args"
	OutcomeShield      = "shield"
	OutcomeUnknown     = "unknown_tool"
)

// Metrics counts gateway dispatches. A nil *Metrics is a no-op.
type Metrics struct {
	calls *prometheus.CounterVec
}

// NewMetrics registers tool metrics under namespace.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	m := &Metrics{
		calls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "tool_calls_total",
				Help:      "Tool dispatches through the gateway, by tool and outcome",
			},
			[]string{"tool", "outcome"},
		),
	}
	reg.MustRegister(m.calls)
	return m
}

func (m *Metrics) observe(tool, outcome string) {
	if m == nil {
		return
	}
	m.calls.WithLabelValues(tool, outcome).Inc()
}
