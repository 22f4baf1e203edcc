package cron

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes reconciliation counters. A nil *Metrics is a no-op.
type Metrics struct {
	passesTotal  prometheus.Counter
	ticksTotal   prometheus.Counter
	firedTotal   *prometheus.CounterVec
	errorsTotal  prometheus.Counter
	removedTotal prometheus.Counter
	lastPass     prometheus.Gauge
}

// NewMetrics registers scheduler metrics under namespace.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	m := &Metrics{
		passesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "schedule_passes_total",
				Help:      "Total number of reconciliation passes",
			},
		),
		ticksTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "schedule_ticks_total",
				Help:      "Total number of minute ticks evaluated",
			},
		),
		firedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "schedule_fired_total",
				Help:      "Directives fired, by type",
			},
			[]string{"type"},
		),
		errorsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "schedule_errors_total",
				Help:      "Directive side effects that failed",
			},
		),
		removedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "schedule_removed_total",
				Help:      "One-shot directives removed after firing",
			},
		),
		lastPass: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "schedule_last_pass_ticks",
				Help:      "Ticks evaluated by the most recent pass",
			},
		),
	}

	reg.MustRegister(
		m.passesTotal,
		m.ticksTotal,
		m.firedTotal,
		m.errorsTotal,
		m.removedTotal,
		m.lastPass,
	)

	return m
}

func (m *Metrics) observePass(r PassResult) {
	if m == nil {
		return
	}
	m.passesTotal.Inc()
	m.ticksTotal.Add(float64(r.Ticks))
	m.lastPass.Set(float64(r.Ticks))
	for _, f := range r.Fired {
		m.firedTotal.WithLabelValues(f.Type).Inc()
	}
	m.errorsTotal.Add(float64(r.Errors))
	m.removedTotal.Add(float64(len(r.Removed)))
}
