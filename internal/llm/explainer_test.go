package llm

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Roosh27/Sovereign-AI-Verifier/internal/types"
)

type fakeClient struct {
	reply  string
	err    error
	prompt string
}

func (f *fakeClient) GenerateContent(_ context.Context, prompt string, _ ModelTier) (string, error) {
	f.prompt = prompt
	return f.reply, f.err
}

func (f *fakeClient) GetModel(ModelTier) string { return "fake-model" }

func (f *fakeClient) Close() error { return nil }

func decidedRun(status types.VerdictStatus) types.VerificationRun {
	confidence := 0.82
	run := types.VerificationRun{
		ID:          uuid.New(),
		Declaration: types.ApplicantDeclaration{Name: "Ahmed Ali"},
		Features:    &types.FeatureVector{Age: 35, MonthlyIncome: 4500},
		Findings: types.Findings{
			{Check: types.CheckIncome, Severity: types.SeverityInfo, Message: "income differs by 100"},
		},
		Verdict: &types.Verdict{
			Status:     status,
			Confidence: &confidence,
			DecidedAt:  time.Now(),
		},
	}
	if status == types.StatusAccepted {
		run.Verdict.Recommendation = &types.Recommendation{Category: types.EconomicEnablement}
	}
	return run
}

func TestLLMExplainer_Explain(t *testing.T) {
	client := &fakeClient{reply: "```\nYou qualified because your income is below the threshold.\n```"}
	e := NewExplainer(client)

	text, err := e.Explain(context.Background(), decidedRun(types.StatusAccepted))
	require.NoError(t, err)

	assert.Equal(t, "You qualified because your income is below the threshold.", text)
	assert.Contains(t, client.prompt, "Applicant: Ahmed Ali")
	assert.Contains(t, client.prompt, "Recommendation: EconomicEnablement")
	assert.Contains(t, client.prompt, "Classifier confidence: 0.82")
	assert.Contains(t, client.prompt, "- monthly_income: 4500")
	assert.Contains(t, client.prompt, "- [info] income differs by 100")
}

func TestLLMExplainer_Errors(t *testing.T) {
	tests := []struct {
		name   string
		client *fakeClient
		run    types.VerificationRun
		reason string
	}{
		{"no verdict", &fakeClient{reply: "x"}, types.VerificationRun{}, ReasonVerdictMissing},
		{"model failure", &fakeClient{err: errors.New("connection refused")}, decidedRun(types.StatusSoftDeclined), ReasonExplanationFailed},
		{"empty reply", &fakeClient{reply: "  \"\"  "}, decidedRun(types.StatusRejected), ReasonEmptyExplanation},
		{"unexplained status", &fakeClient{reply: "x"}, decidedRun(types.StatusInferenceUnavailable), ReasonExplanationFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewExplainer(tt.client).Explain(context.Background(), tt.run)
			var explErr *ExplanationError
			require.True(t, errors.As(err, &explErr))
			assert.Equal(t, tt.reason, explErr.Reason)
		})
	}
}

func TestFallbackExplanation(t *testing.T) {
	accepted := FallbackExplanation(decidedRun(types.StatusAccepted))
	assert.Contains(t, accepted, "accepted")
	assert.Contains(t, accepted, "EconomicEnablement")

	rejected := decidedRun(types.StatusRejected)
	rejected.Verdict.Messages = []string{"familySize mismatch"}
	assert.Contains(t, FallbackExplanation(rejected), "inconsistent: familySize mismatch.")

	assert.Contains(t, FallbackExplanation(decidedRun(types.StatusSoftDeclined)), "reapply")
	assert.Contains(t, FallbackExplanation(decidedRun(types.StatusInferenceUnavailable)), "temporarily unavailable")
	assert.Equal(t, genericFallback, FallbackExplanation(types.VerificationRun{}))
}
