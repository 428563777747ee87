package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.IncrementOutcome("Accepted")
	m.IncrementOutcome("Accepted")
	m.IncrementFinding("income", "fail")
	m.IncrementTransition("Inferring")
	m.IncrementExplanationFallback("explanation_failed")
	m.ObserveInferenceLatency(30 * time.Millisecond)
	m.ObserveRunLatency(time.Second)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.RunOutcome.WithLabelValues("Accepted")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Findings.WithLabelValues("income", "fail")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Transitions.WithLabelValues("Inferring")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ExplanationFallbacks.WithLabelValues("explanation_failed")))
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.IncrementOutcome("Accepted")
		m.IncrementFinding("income", "fail")
		m.IncrementTransition("Inferring")
		m.IncrementExplanationFallback("x")
		m.ObserveInferenceLatency(time.Millisecond)
		m.ObserveRunLatency(time.Millisecond)
	})
}
