// Package metrics exposes Prometheus metrics for verification runs.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the decision pipeline. A nil *Metrics
// is valid and records nothing.
type Metrics struct {
	// Terminal outcomes by verdict status
	RunOutcome *prometheus.CounterVec

	// Findings by check and severity
	Findings *prometheus.CounterVec

	// Stage transitions by target stage
	Transitions *prometheus.CounterVec

	// Classifier call latency
	InferenceLatency prometheus.Histogram

	// Explanation fallbacks by reason code
	ExplanationFallbacks *prometheus.CounterVec

	// Overall run latency, extraction included
	RunLatency prometheus.Histogram
}

// New registers the pipeline metrics with reg. Pass prometheus.DefaultRegisterer
// in production and a fresh registry in tests.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		RunOutcome: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "verifier_run_outcomes_total",
			Help: "Total verification runs by terminal verdict status",
		}, []string{"status"}),

		Findings: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "verifier_findings_total",
			Help: "Total validation findings by check and severity",
		}, []string{"check", "severity"}),

		Transitions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "verifier_stage_transitions_total",
			Help: "Total stage transitions by target stage",
		}, []string{"stage"}),

		InferenceLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "verifier_inference_duration_seconds",
			Help:    "Duration of classifier calls",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),

		ExplanationFallbacks: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "verifier_explanation_fallbacks_total",
			Help: "Explanations replaced by the templated fallback, by reason",
		}, []string{"reason"}),

		RunLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "verifier_run_duration_seconds",
			Help:    "Duration of a full verification run",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
	}
}

// IncrementOutcome records a terminal verdict.
func (m *Metrics) IncrementOutcome(status string) {
	if m != nil {
		m.RunOutcome.WithLabelValues(status).Inc()
	}
}

// IncrementFinding records one finding.
func (m *Metrics) IncrementFinding(check, severity string) {
	if m != nil {
		m.Findings.WithLabelValues(check, severity).Inc()
	}
}

// IncrementTransition records a move into stage.
func (m *Metrics) IncrementTransition(stage string) {
	if m != nil {
		m.Transitions.WithLabelValues(stage).Inc()
	}
}

// ObserveInferenceLatency records the duration of a classifier call.
func (m *Metrics) ObserveInferenceLatency(d time.Duration) {
	if m != nil {
		m.InferenceLatency.Observe(d.Seconds())
	}
}

// IncrementExplanationFallback records a fallback explanation.
func (m *Metrics) IncrementExplanationFallback(reason string) {
	if m != nil {
		m.ExplanationFallbacks.WithLabelValues(reason).Inc()
	}
}

// ObserveRunLatency records the total run duration.
func (m *Metrics) ObserveRunLatency(d time.Duration) {
	if m != nil {
		m.RunLatency.Observe(d.Seconds())
	}
}
