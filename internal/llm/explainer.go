package llm

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/Roosh27/Sovereign-AI-Verifier/internal/prompts"
	"github.com/Roosh27/Sovereign-AI-Verifier/internal/types"
)

const explanationPrompts = "explanation.json"

// genericFallback is used when even the fallback template cannot be rendered.
const genericFallback = "A decision has been recorded for your application. Please contact the support office for details."

// Explanation failure reason codes
const (
	ReasonVerdictMissing    = "verdict_missing"
	ReasonExplanationFailed = "explanation_failed"
	ReasonEmptyExplanation  = "empty_explanation"
)

// ExplanationError is never fatal: callers replace the explanation with
// FallbackExplanation.
type ExplanationError struct {
	Reason   string
	Messages []string
	Cause    error
}

func (e *ExplanationError) Error() string {
	msg := strings.Join(e.Messages, "; ")
	if e.Cause != nil {
		return fmt.Sprintf("explanation error (%s): %s: %v", e.Reason, msg, e.Cause)
	}
	return fmt.Sprintf("explanation error (%s): %s", e.Reason, msg)
}

func (e *ExplanationError) Unwrap() error {
	return e.Cause
}

// Explainer turns a decided run into prose for the applicant. It must only be
// called on runs that already carry a verdict.
type Explainer interface {
	Explain(ctx context.Context, run types.VerificationRun) (string, error)
}

// LLMExplainer explains verdicts with a language model.
type LLMExplainer struct {
	client Client
	tier   ModelTier
}

// NewExplainer creates an explainer using the lite tier of client.
func NewExplainer(client Client) *LLMExplainer {
	return &LLMExplainer{client: client, tier: TierLite}
}

// Explain implements Explainer.
func (e *LLMExplainer) Explain(ctx context.Context, run types.VerificationRun) (string, error) {
	if run.Verdict == nil {
		return "", &ExplanationError{
			Reason:   ReasonVerdictMissing,
			Messages: []string{"explanation requested before a verdict exists"},
		}
	}
	prompt, err := BuildPrompt(run)
	if err != nil {
		return "", &ExplanationError{Reason: ReasonExplanationFailed, Messages: []string{"cannot build prompt"}, Cause: err}
	}

	text, err := e.client.GenerateContent(ctx, prompt, e.tier)
	if err != nil {
		return "", &ExplanationError{
			Reason:   ReasonExplanationFailed,
			Messages: []string{fmt.Sprintf("model %s did not answer", e.client.GetModel(e.tier))},
			Cause:    err,
		}
	}
	text = CleanExplanation(text)
	if text == "" {
		return "", &ExplanationError{Reason: ReasonEmptyExplanation, Messages: []string{"model returned an empty explanation"}}
	}
	return text, nil
}

// BuildPrompt renders the explanation prompt for the run's verdict. Runs that
// stopped with an unavailable classifier have no prompt.
func BuildPrompt(run types.VerificationRun) (string, error) {
	if run.Verdict == nil {
		return "", fmt.Errorf("run %s has no verdict", run.ID)
	}

	var key string
	switch run.Verdict.Status {
	case types.StatusAccepted:
		key = "explain-accepted"
	case types.StatusSoftDeclined:
		key = "explain-soft-declined"
	case types.StatusRejected:
		key = "explain-rejected"
	default:
		return "", fmt.Errorf("no explanation prompt for status %s", run.Verdict.Status)
	}
	return prompts.Render(explanationPrompts, key, promptData(run))
}

// FallbackExplanation returns the templated message used when the model is
// unavailable, slow or returns nothing useful.
func FallbackExplanation(run types.VerificationRun) string {
	if run.Verdict == nil {
		return genericFallback
	}

	var key string
	switch run.Verdict.Status {
	case types.StatusAccepted:
		key = "fallback-accepted"
	case types.StatusSoftDeclined:
		key = "fallback-soft-declined"
	case types.StatusRejected:
		key = "fallback-rejected"
	case types.StatusInferenceUnavailable:
		key = "fallback-inference-unavailable"
	default:
		return genericFallback
	}
	text, err := prompts.Render(explanationPrompts, key, promptData(run))
	if err != nil {
		return genericFallback
	}
	return text
}

func promptData(run types.VerificationRun) map[string]string {
	data := map[string]string{
		"Name":           run.Declaration.Name,
		"Recommendation": "none",
		"Confidence":     "n/a",
		"Features":       "n/a",
		"Findings":       formatFindings(run.Findings),
		"Reasons":        strings.Join(run.Verdict.Messages, "; "),
	}
	if rec := run.Verdict.Recommendation; rec != nil {
		data["Recommendation"] = string(rec.Category)
	}
	if c := run.Verdict.Confidence; c != nil {
		data["Confidence"] = strconv.FormatFloat(*c, 'f', 2, 64)
	}
	if run.Features != nil {
		data["Features"] = formatFeatures(*run.Features)
	}
	if data["Reasons"] == "" {
		data["Reasons"] = run.Findings.Summary()
	}
	return data
}

func formatFeatures(v types.FeatureVector) string {
	var sb strings.Builder
	for i, value := range v.Values() {
		fmt.Fprintf(&sb, "- %s: %s\n", types.FeatureNames[i], strconv.FormatFloat(value, 'f', -1, 64))
	}
	return strings.TrimRight(sb.String(), "\n")
}

func formatFindings(findings types.Findings) string {
	if len(findings) == 0 {
		return "none"
	}
	var sb strings.Builder
	for _, f := range findings {
		fmt.Fprintf(&sb, "- [%s] %s\n", f.Severity, f.Message)
	}
	return strings.TrimRight(sb.String(), "\n")
}
