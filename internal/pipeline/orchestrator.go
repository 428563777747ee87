// Package pipeline drives a verification run through the staged decision
// machine: validate, infer eligibility, decide, recommend.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/Roosh27/Sovereign-AI-Verifier/internal/classifier"
	"github.com/Roosh27/Sovereign-AI-Verifier/internal/features"
	"github.com/Roosh27/Sovereign-AI-Verifier/internal/llm"
	"github.com/Roosh27/Sovereign-AI-Verifier/internal/logger"
	"github.com/Roosh27/Sovereign-AI-Verifier/internal/normalize"
	"github.com/Roosh27/Sovereign-AI-Verifier/internal/parsing"
	"github.com/Roosh27/Sovereign-AI-Verifier/internal/pipeline/metrics"
	"github.com/Roosh27/Sovereign-AI-Verifier/internal/types"
	"github.com/Roosh27/Sovereign-AI-Verifier/internal/validation"
)

// Recorder persists the audit trail of a run. Recording is best effort: a
// failing recorder is logged and never changes the outcome of a run.
type Recorder interface {
	SaveExtraction(ctx context.Context, runID uuid.UUID, rec types.ExtractedRecord) error
	RecordTransition(ctx context.Context, runID uuid.UUID, t types.Transition) error
	CompleteApplication(ctx context.Context, run types.VerificationRun) error
}

// Orchestrator executes verification runs. It holds only immutable handles and
// is safe for concurrent use by independent runs.
type Orchestrator struct {
	classifier   classifier.Classifier
	explainer    llm.Explainer
	registry     *parsing.Registry
	policy       Policy
	recorder     Recorder
	metrics      *metrics.Metrics
	log          *logrus.Logger
	onProgress   ProgressCallback
	eagerExplain bool
	clock        func() time.Time
}

// NewOrchestrator creates an orchestrator around the eligibility classifier.
func NewOrchestrator(c classifier.Classifier, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		classifier: c,
		registry:   parsing.DefaultRegistry(),
		policy:     DefaultPolicy(),
		log:        logger.Log,
		clock:      time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// With returns a copy of the orchestrator with opts applied on top of its
// current settings. o is left untouched.
func (o *Orchestrator) With(opts ...Option) *Orchestrator {
	cp := *o
	for _, opt := range opts {
		opt(&cp)
	}
	return &cp
}

// Policy returns the policy the orchestrator decides with.
func (o *Orchestrator) Policy() Policy {
	return o.policy
}

// NewRun creates a run in the Validating stage holding its own copy of docs.
func (o *Orchestrator) NewRun(decl types.ApplicantDeclaration, docs []types.RawDocument) types.VerificationRun {
	owned := make([]types.RawDocument, 0, len(docs))
	for _, d := range docs {
		owned = append(owned, types.NewRawDocument(d.Kind, d.Name, d.Text, d.Rows))
	}
	return types.VerificationRun{
		ID:          uuid.New(),
		Declaration: decl,
		Documents:   owned,
		Stage:       types.StageValidating,
		CreatedAt:   o.now(),
	}
}

// Verify creates a run for the application and executes it once.
func (o *Orchestrator) Verify(ctx context.Context, decl types.ApplicantDeclaration, docs []types.RawDocument) (types.VerificationRun, error) {
	return o.Run(ctx, o.NewRun(decl, docs))
}

// Run executes the decision machine on a run in the Validating stage and
// returns the terminal run. Nothing is retried.
//
// A rejected run is returned together with a *validation.Failure and a run
// whose classifier failed together with a *classifier.InferenceError. Both
// runs carry their verdict. Any other error means the run did not reach a
// terminal stage, for example because ctx was cancelled during extraction.
func (o *Orchestrator) Run(ctx context.Context, run types.VerificationRun) (types.VerificationRun, error) {
	if run.IsTerminal() || run.Stage != types.StageValidating {
		return run, fmt.Errorf("run %s cannot start from stage %s", run.ID, run.Stage)
	}
	start := time.Now()
	log := o.log.WithField("run_id", run.ID.String())
	log.Info("verification run started")

	run, verdictErr, err := o.execute(ctx, run)
	if err != nil {
		log.WithError(err).Error("verification run aborted")
		return run, err
	}

	if o.eagerExplain {
		run, _ = o.Explain(ctx, run)
	}
	o.finish(ctx, run, time.Since(start))
	return run, verdictErr
}

// execute walks the stages. verdictErr is the typed error belonging to the
// terminal verdict; err reports a run that never reached one.
func (o *Orchestrator) execute(ctx context.Context, run types.VerificationRun) (_ types.VerificationRun, verdictErr error, err error) {
	run, result, err := o.validate(ctx, run)
	if err != nil {
		return run, nil, err
	}
	if result.Rejected() {
		failure := validation.NewFailure(run.Findings)
		run, err = o.reject(ctx, run, failure)
		return run, failure, err
	}

	run, err = o.advance(ctx, run, types.StageInferring, "validation passed")
	if err != nil {
		return run, nil, err
	}
	run, inferenceErr := o.infer(ctx, run)
	if inferenceErr != nil {
		run, err = o.inferenceUnavailable(ctx, run, inferenceErr)
		return run, inferenceErr, err
	}

	run, err = o.decide(ctx, run)
	if err != nil || run.IsTerminal() {
		return run, nil, err
	}
	run, err = o.recommend(ctx, run)
	return run, nil, err
}

// validate extracts every document, normalizes the records and the
// declaration, and cross-checks them. It never changes the stage.
func (o *Orchestrator) validate(ctx context.Context, run types.VerificationRun) (types.VerificationRun, validation.Result, error) {
	extracted, err := parsing.ExtractAll(ctx, o.registry, run.Documents)
	if err != nil {
		return run, validation.Result{}, err
	}
	for _, kind := range types.AllDocumentKinds() {
		if rec, ok := extracted.Records[kind]; ok {
			o.record(run, "save extraction", func() error {
				return o.recorder.SaveExtraction(ctx, run.ID, rec)
			})
		}
	}

	records, recordFindings := normalize.Records(extracted.Records)
	decl, declFindings := normalize.Declaration(run.Declaration, o.policy.Limits)
	cross := validation.CrossValidate(decl, records, o.policy.Validation)
	ownership := validation.CheckDocumentOwnership(decl, run.Documents)

	var findings types.Findings
	findings = append(findings, extracted.Findings...)
	findings = append(findings, recordFindings...)
	findings = append(findings, declFindings...)
	findings = append(findings, cross.Findings...)
	findings = append(findings, ownership...)

	next := run.Clone()
	next.Declaration = decl
	next.Records = records
	next.Findings = findings
	return next, validation.NewResult(findings), nil
}

func (o *Orchestrator) reject(ctx context.Context, run types.VerificationRun, failure *validation.Failure) (types.VerificationRun, error) {
	run, err := o.advance(ctx, run, types.StageRejected, failure.Error())
	if err != nil {
		return run, err
	}
	run.Verdict = &types.Verdict{
		Status:     types.StatusRejected,
		ReasonCode: failure.Reason,
		Messages:   failure.Messages,
		Findings:   append(types.Findings(nil), run.Findings...),
		DecidedAt:  o.now(),
	}
	return run, nil
}

// infer builds the feature vector and asks the classifier once.
func (o *Orchestrator) infer(ctx context.Context, run types.VerificationRun) (types.VerificationRun, *classifier.InferenceError) {
	fv, err := features.Build(run.Declaration, run.Records)
	if err != nil {
		return run, &classifier.InferenceError{
			Reason:   classifier.ReasonMalformedFeatures,
			Messages: []string{"cannot encode applicant features"},
			Cause:    err,
		}
	}

	next := run.Clone()
	next.Features = &fv

	start := time.Now()
	pred, err := classifier.Predict(ctx, o.classifier, fv, o.policy.ClassifierTimeout)
	o.metrics.ObserveInferenceLatency(time.Since(start))
	if err != nil {
		var inferenceErr *classifier.InferenceError
		if !errors.As(err, &inferenceErr) {
			inferenceErr = &classifier.InferenceError{
				Reason:   classifier.ReasonUnavailable,
				Messages: []string{"classifier call failed"},
				Cause:    err,
			}
		}
		return next, inferenceErr
	}
	next.Prediction = &pred
	return next, nil
}

func (o *Orchestrator) inferenceUnavailable(ctx context.Context, run types.VerificationRun, cause *classifier.InferenceError) (types.VerificationRun, error) {
	run, err := o.advance(ctx, run, types.StageInferenceUnavailable, cause.Error())
	if err != nil {
		return run, err
	}
	run.Verdict = &types.Verdict{
		Status:     types.StatusInferenceUnavailable,
		ReasonCode: cause.Reason,
		Messages:   cause.Messages,
		Findings:   append(types.Findings(nil), run.Findings...),
		DecidedAt:  o.now(),
	}
	return run, nil
}

// decide turns the prediction into SoftDeclined or Accepted. Only the
// soft-declined run is terminal here.
func (o *Orchestrator) decide(ctx context.Context, run types.VerificationRun) (types.VerificationRun, error) {
	run, err := o.advance(ctx, run, types.StageDeciding, "prediction received")
	if err != nil {
		return run, err
	}
	pred := *run.Prediction
	confidence := pred.Confidence

	if !pred.Eligible() {
		run, err = o.advance(ctx, run, types.StageSoftDeclined, fmt.Sprintf("ineligible (confidence %.2f)", confidence))
		if err != nil {
			return run, err
		}
		run.Verdict = &types.Verdict{
			Status:     types.StatusSoftDeclined,
			Message:    fmt.Sprintf("Sorry %s, your application has been soft declined based on eligibility rules.", run.Declaration.Name),
			Findings:   append(types.Findings(nil), run.Findings...),
			Confidence: &confidence,
			DecidedAt:  o.now(),
		}
		return run, nil
	}

	return o.advance(ctx, run, types.StageAccepted, fmt.Sprintf("eligible (confidence %.2f)", confidence))
}

// recommend attaches the support pathway to an accepted run.
func (o *Orchestrator) recommend(ctx context.Context, run types.VerificationRun) (types.VerificationRun, error) {
	run, err := o.advance(ctx, run, types.StageRecommending, "")
	if err != nil {
		return run, err
	}
	rec := Recommend(run, o.policy.SeverityThreshold)
	run, err = o.advance(ctx, run, types.StageAcceptedWithRecommendation, string(rec.Category))
	if err != nil {
		return run, err
	}
	confidence := run.Prediction.Confidence
	run.Recommendation = &rec
	run.Verdict = &types.Verdict{
		Status:         types.StatusAccepted,
		Message:        fmt.Sprintf("Congratulations %s, your application is accepted.", run.Declaration.Name),
		Findings:       append(types.Findings(nil), run.Findings...),
		Confidence:     &confidence,
		Recommendation: &types.Recommendation{Category: rec.Category, Rationale: rec.Rationale},
		DecidedAt:      o.now(),
	}
	return run, nil
}

// Recommend chooses FinancialSupport for applicants with a disability or a
// medical severity at or above threshold, and EconomicEnablement otherwise.
func Recommend(run types.VerificationRun, threshold int) types.Recommendation {
	severity := 0
	if rec, ok := run.Records[types.KindMedicalReport]; ok && rec.Medical != nil && rec.Medical.SeverityScore != nil {
		severity = *rec.Medical.SeverityScore
	}
	disabled := run.Features != nil && run.Features.Disabled()

	switch {
	case severity >= threshold:
		return types.Recommendation{
			Category:  types.FinancialSupport,
			Rationale: fmt.Sprintf("medical severity %d is at or above %d", severity, threshold),
		}
	case disabled:
		return types.Recommendation{
			Category:  types.FinancialSupport,
			Rationale: "applicant has a recorded disability",
		}
	default:
		return types.Recommendation{
			Category:  types.EconomicEnablement,
			Rationale: "no medical condition requiring monetary aid; job training and coaching offered",
		}
	}
}

// Explain returns a copy of a terminal run with the explanation attached.
// Runs that stopped on an unavailable classifier, and every explainer
// failure, get the templated fallback text; the only error is a run without
// a verdict.
func (o *Orchestrator) Explain(ctx context.Context, run types.VerificationRun) (types.VerificationRun, error) {
	if !run.IsTerminal() {
		return run, &llm.ExplanationError{
			Reason:   llm.ReasonVerdictMissing,
			Messages: []string{fmt.Sprintf("run %s is at stage %s and has no verdict", run.ID, run.Stage)},
		}
	}

	text, err := o.explain(ctx, run)
	if err != nil {
		reason := llm.ReasonExplanationFailed
		var explainErr *llm.ExplanationError
		if errors.As(err, &explainErr) {
			reason = explainErr.Reason
		}
		o.log.WithFields(logrus.Fields{
			"run_id": run.ID.String(),
			"reason": reason,
		}).WithError(err).Warn("using fallback explanation")
		o.metrics.IncrementExplanationFallback(reason)
		text = llm.FallbackExplanation(run)
	}

	next := run.Clone()
	next.Verdict.Explanation = &text
	return next, nil
}

func (o *Orchestrator) explain(ctx context.Context, run types.VerificationRun) (string, error) {
	if run.Verdict.Status == types.StatusInferenceUnavailable {
		return llm.FallbackExplanation(run), nil
	}
	if o.explainer == nil {
		return "", &llm.ExplanationError{
			Reason:   llm.ReasonExplanationFailed,
			Messages: []string{"no explainer configured"},
		}
	}

	timeout := o.policy.ExplainTimeout
	if timeout <= 0 {
		timeout = DefaultExplainTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type outcome struct {
		text string
		err  error
	}
	done := make(chan outcome, 1)
	go func() {
		text, err := o.explainer.Explain(ctx, run)
		done <- outcome{text: text, err: err}
	}()

	select {
	case out := <-done:
		return out.text, out.err
	case <-ctx.Done():
		return "", &llm.ExplanationError{
			Reason:   llm.ReasonExplanationFailed,
			Messages: []string{fmt.Sprintf("explainer did not answer within %s", timeout)},
			Cause:    ctx.Err(),
		}
	}
}

// finish records metrics and persists the terminal run.
func (o *Orchestrator) finish(ctx context.Context, run types.VerificationRun, elapsed time.Duration) {
	for _, f := range run.Findings {
		o.metrics.IncrementFinding(f.Check, string(f.Severity))
	}
	o.metrics.ObserveRunLatency(elapsed)
	if run.Verdict != nil {
		o.metrics.IncrementOutcome(string(run.Verdict.Status))
	}
	o.record(run, "complete application", func() error {
		return o.recorder.CompleteApplication(ctx, run)
	})

	o.log.WithFields(logrus.Fields{
		"run_id":   run.ID.String(),
		"stage":    run.Stage,
		"findings": len(run.Findings),
		"elapsed":  elapsed.Round(time.Millisecond).String(),
	}).Info("verification run finished")
}

func (o *Orchestrator) onTransition(ctx context.Context, run types.VerificationRun, t types.Transition) {
	o.log.WithFields(logrus.Fields{
		"run_id": run.ID.String(),
		"from":   t.From,
		"stage":  t.To,
	}).Debug("stage transition")
	o.metrics.IncrementTransition(string(t.To))
	o.record(run, "record transition", func() error {
		return o.recorder.RecordTransition(ctx, run.ID, t)
	})

	if o.onProgress != nil {
		msg := t.Detail
		if msg == "" {
			msg = fmt.Sprintf("%s -> %s", t.From, t.To)
		}
		o.onProgress(ProgressEvent{
			Step:     string(t.To),
			Category: StageRegistry[t.To].Category,
			Message:  msg,
			RunID:    run.ID.String(),
		})
	}
}

// record calls fn when a recorder is configured and logs its failure.
func (o *Orchestrator) record(run types.VerificationRun, what string, fn func() error) {
	if o.recorder == nil {
		return
	}
	if err := fn(); err != nil {
		o.log.WithFields(logrus.Fields{
			"run_id": run.ID.String(),
			"stage":  run.Stage,
		}).WithError(err).Warn("failed to " + what)
	}
}

func (o *Orchestrator) now() time.Time {
	return o.clock().UTC()
}
