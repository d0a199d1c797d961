package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.Transition("complete")
	m.Transition("complete")
	m.SideEffectFailure("attendance")
	m.BadDebtDecision("keep_bad_debt")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.transitions.WithLabelValues("complete")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.sideEffectFailures.WithLabelValues("attendance")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.badDebtDecisions.WithLabelValues("keep_bad_debt")))
}

func TestMetrics_Nil(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.Transition("undo")
		m.SideEffectFailure("course_extension")
		m.BadDebtDecision("no_action")
	})
}
