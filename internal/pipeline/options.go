package pipeline

import (
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Roosh27/Sovereign-AI-Verifier/internal/classifier"
	"github.com/Roosh27/Sovereign-AI-Verifier/internal/llm"
	"github.com/Roosh27/Sovereign-AI-Verifier/internal/normalize"
	"github.com/Roosh27/Sovereign-AI-Verifier/internal/parsing"
	"github.com/Roosh27/Sovereign-AI-Verifier/internal/pipeline/metrics"
	"github.com/Roosh27/Sovereign-AI-Verifier/internal/validation"
)

// Default policy values
const (
	DefaultSeverityThreshold = 5
	DefaultExplainTimeout    = 20 * time.Second
)

// Policy holds the decision thresholds and time bounds of a run.
type Policy struct {
	Validation        validation.Policy `json:"validation" yaml:"validation"`
	Limits            normalize.Limits  `json:"limits" yaml:"limits"`
	SeverityThreshold int               `json:"severity_threshold" yaml:"severity_threshold"`
	ClassifierTimeout time.Duration     `json:"classifier_timeout" yaml:"classifier_timeout"`
	ExplainTimeout    time.Duration     `json:"explain_timeout" yaml:"explain_timeout"`
}

// DefaultPolicy returns the policy used when none is configured.
func DefaultPolicy() Policy {
	return Policy{
		Validation:        validation.DefaultPolicy(),
		Limits:            normalize.DefaultLimits(),
		SeverityThreshold: DefaultSeverityThreshold,
		ClassifierTimeout: classifier.DefaultTimeout,
		ExplainTimeout:    DefaultExplainTimeout,
	}
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithPolicy replaces the default policy.
func WithPolicy(p Policy) Option {
	return func(o *Orchestrator) { o.policy = p }
}

// WithRegistry replaces the default extractor registry.
func WithRegistry(r *parsing.Registry) Option {
	return func(o *Orchestrator) {
		if r != nil {
			o.registry = r
		}
	}
}

// WithExplainer sets the explanation generator. Without one every explanation
// is the templated fallback.
func WithExplainer(e llm.Explainer) Option {
	return func(o *Orchestrator) { o.explainer = e }
}

// WithExplanations makes Verify explain every terminal verdict before
// returning. Otherwise explanations are only produced by Explain.
func WithExplanations(eager bool) Option {
	return func(o *Orchestrator) { o.eagerExplain = eager }
}

// WithRecorder persists extractions, transitions and terminal runs.
func WithRecorder(r Recorder) Option {
	return func(o *Orchestrator) { o.recorder = r }
}

// WithMetrics records Prometheus metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *Orchestrator) { o.metrics = m }
}

// WithLogger replaces the global logger.
func WithLogger(l *logrus.Logger) Option {
	return func(o *Orchestrator) {
		if l != nil {
			o.log = l
		}
	}
}

// WithProgress registers a callback for stage transitions.
func WithProgress(cb ProgressCallback) Option {
	return func(o *Orchestrator) { o.onProgress = cb }
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) {
		if now != nil {
			o.clock = now
		}
	}
}
