package server

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Invocation phases.
const (
	PhaseResolve = "resolve"
	PhaseExecute = "execute"
)

// Metrics records operator invocations.
type Metrics struct {
	invocations *prometheus.CounterVec
	duration    *prometheus.HistogramVec
}

// NewMetrics creates the operator metrics and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		invocations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pluginhost_operator_invocations_total",
				Help: "Total number of operator invocations",
			},
			[]string{"operator", "phase", "outcome"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "pluginhost_operator_duration_seconds",
				Help:    "Duration of operator invocations",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operator", "phase"},
		),
	}
	reg.MustRegister(m.invocations, m.duration)
	return m
}

// Observe records one invocation of op.
func (m *Metrics) Observe(op, phase string, start time.Time, err error) {
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	m.invocations.WithLabelValues(op, phase, outcome).Inc()
	m.duration.WithLabelValues(op, phase).Observe(time.Since(start).Seconds())
}
