package metrics

import "github.com/prometheus/client_golang/prometheus"

type Metrics struct {
	transitions        *prometheus.CounterVec
	sideEffectFailures *prometheus.CounterVec
	badDebtDecisions   *prometheus.CounterVec
}

func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tutoring_transitions_total",
			Help: "Committed tutoring record transitions by action.",
		}, []string{"action"}),
		sideEffectFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tutoring_side_effect_failures_total",
			Help: "Attendance and course extension side effects that failed after commit.",
		}, []string{"kind"}),
		badDebtDecisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bad_debt_decisions_total",
			Help: "Bad-debt reconciliation outcomes by action.",
		}, []string{"action"}),
	}

	reg.MustRegister(m.transitions, m.sideEffectFailures, m.badDebtDecisions)
	return m
}

// The recorders are no-ops on a nil *Metrics.

func (m *Metrics) Transition(action string) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(action).Inc()
}

func (m *Metrics) SideEffectFailure(kind string) {
	if m == nil {
		return
	}
	m.sideEffectFailures.WithLabelValues(kind).Inc()
}

func (m *Metrics) BadDebtDecision(action string) {
	if m == nil {
		return
	}
	m.badDebtDecisions.WithLabelValues(action).Inc()
}
