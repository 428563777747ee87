package pipeline

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Roosh27/Sovereign-AI-Verifier/internal/classifier"
	"github.com/Roosh27/Sovereign-AI-Verifier/internal/llm"
	"github.com/Roosh27/Sovereign-AI-Verifier/internal/pipeline/metrics"
	"github.com/Roosh27/Sovereign-AI-Verifier/internal/types"
	"github.com/Roosh27/Sovereign-AI-Verifier/internal/validation"
)

const applicantID = "784-1990-1234567-1"

func declaration() types.ApplicantDeclaration {
	return types.ApplicantDeclaration{
		Name:             "Ahmed Ali",
		IDNumber:         applicantID,
		Age:              35,
		MaritalStatus:    "Single",
		FamilySize:       1,
		Dependents:       0,
		EmploymentStatus: "Employed",
	}
}

func doc(kind types.DocumentKind, text string) types.RawDocument {
	return types.NewRawDocument(kind, string(kind)+".txt", text, nil)
}

type docSet struct {
	identity string
	salary   string
	income   string
	savings  string
	medical  string
}

func idealDocs() docSet {
	return docSet{
		identity: "ID Number: " + applicantID + "\nFull Name: Ahmed Ali\nMarital Status: Single\nFamily Size: 1",
		salary:   "4,000.00",
		income:   "4,000",
		savings:  "10,000",
		medical:  "Diagnosis: None\nSeverity Score: 0",
	}
}

func (s docSet) build() []types.RawDocument {
	return []types.RawDocument{
		doc(types.KindIdentity, s.identity),
		doc(types.KindBankStatement, "2024-01-01 SALARY TRANSFER "+s.salary+"\nClosing Balance: 9,000.00"),
		doc(types.KindCreditReport, "Credit Score: 700\nMonthly Income: "+s.income+"\nTotal Savings: "+s.savings+"\nTotal Outstanding Balance: 0"),
		doc(types.KindMedicalReport, s.medical),
		doc(types.KindResume, "WORK EXPERIENCE\nWarehouse supervisor"),
		doc(types.KindAssetSheet, "Total Asset Value: 300,000"),
	}
}

func labelled(label int, confidence float64) classifier.Classifier {
	return classifier.Func(func(context.Context, types.FeatureVector) (types.Prediction, error) {
		return types.Prediction{Label: label, Confidence: confidence}, nil
	})
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(&strings.Builder{})
	return l
}

func newTestOrchestrator(c classifier.Classifier, opts ...Option) *Orchestrator {
	base := []Option{
		WithLogger(quietLogger()),
		WithClock(func() time.Time { return time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC) }),
	}
	return NewOrchestrator(c, append(base, opts...)...)
}

func stages(run types.VerificationRun) []types.Stage {
	out := []types.Stage{}
	for _, t := range run.History {
		out = append(out, t.To)
	}
	return out
}

func TestVerify_Accepted(t *testing.T) {
	o := newTestOrchestrator(labelled(1, 0.9))

	run, err := o.Verify(context.Background(), declaration(), idealDocs().build())
	require.NoError(t, err)

	assert.Equal(t, types.StageAcceptedWithRecommendation, run.Stage)
	require.NotNil(t, run.Verdict)
	assert.Equal(t, types.StatusAccepted, run.Verdict.Status)
	assert.Equal(t, "Congratulations Ahmed Ali, your application is accepted.", run.Verdict.Message)
	require.NotNil(t, run.Verdict.Recommendation)
	assert.Equal(t, types.EconomicEnablement, run.Verdict.Recommendation.Category)
	require.NotNil(t, run.Verdict.Confidence)
	assert.Equal(t, 0.9, *run.Verdict.Confidence)
	assert.Nil(t, run.Verdict.Explanation)
	assert.False(t, run.Findings.HasFail())

	require.NotNil(t, run.Features)
	assert.Equal(t, 4000.0, run.Features.MonthlyIncome)
	assert.Equal(t, 10000.0, run.Features.TotalSavings)
	assert.Equal(t, 300000.0, run.Features.PropertyValue)

	assert.Equal(t, []types.Stage{
		types.StageInferring,
		types.StageDeciding,
		types.StageAccepted,
		types.StageRecommending,
		types.StageAcceptedWithRecommendation,
	}, stages(run))
	assert.Equal(t, types.StageValidating, run.History[0].From)
}

func TestVerify_FinancialSupportForSevereCondition(t *testing.T) {
	docs := idealDocs()
	docs.medical = "Diagnosis: Chronic kidney disease\nSeverity Score: 7"

	run, err := newTestOrchestrator(labelled(1, 0.8)).Verify(context.Background(), declaration(), docs.build())
	require.NoError(t, err)

	require.NotNil(t, run.Verdict.Recommendation)
	assert.Equal(t, types.FinancialSupport, run.Verdict.Recommendation.Category)
	assert.Contains(t, run.Verdict.Recommendation.Rationale, "7")
}

func TestVerify_BlankOptionalLabelsAreNotRejected(t *testing.T) {
	docs := idealDocs()
	docs.medical = "Diagnosis: Asthma\nSeverity Score:\nPhysician: Dr Omar"
	docs.identity = "ID Number: " + applicantID + "\nFull Name: Ahmed Ali\nMarital Status:\nFamily Size: 1"

	run, err := newTestOrchestrator(labelled(1, 0.9)).Verify(context.Background(), declaration(), docs.build())
	require.NoError(t, err)

	assert.Equal(t, types.StageAcceptedWithRecommendation, run.Stage)
	assert.False(t, run.Findings.HasFail())
	require.NotNil(t, run.Features)
	assert.Equal(t, 0.0, run.Features.MedicalSeverity)
}

func TestVerify_IncomeMismatchRejected(t *testing.T) {
	called := false
	c := classifier.Func(func(context.Context, types.FeatureVector) (types.Prediction, error) {
		called = true
		return types.Prediction{Label: 1, Confidence: 1}, nil
	})
	docs := idealDocs()
	docs.income = "6,000"

	run, err := newTestOrchestrator(c).Verify(context.Background(), declaration(), docs.build())

	var failure *validation.Failure
	require.ErrorAs(t, err, &failure)
	assert.Equal(t, validation.ReasonValidationFailed, failure.Reason)
	require.Len(t, failure.Messages, 1)
	for _, want := range []string{"4000", "6000", "500"} {
		assert.Contains(t, failure.Messages[0], want)
	}

	assert.False(t, called, "classifier must not run for a rejected application")
	assert.Equal(t, types.StageRejected, run.Stage)
	require.NotNil(t, run.Verdict)
	assert.Equal(t, types.StatusRejected, run.Verdict.Status)
	assert.Equal(t, failure.Messages, run.Verdict.Messages)
	assert.Nil(t, run.Prediction)
	assert.Equal(t, []types.Stage{types.StageRejected}, stages(run))
}

func TestVerify_MissingIDRejected(t *testing.T) {
	docs := idealDocs()
	docs.identity = "Full Name: Ahmed Ali\nMarital Status: Single\nFamily Size: 1"

	run, err := newTestOrchestrator(labelled(1, 1)).Verify(context.Background(), declaration(), docs.build())

	var failure *validation.Failure
	require.ErrorAs(t, err, &failure)
	assert.Equal(t, types.StageRejected, run.Stage)

	found := false
	for _, f := range failure.Findings {
		if f.Field == "idNumber" && len(f.Documents) > 0 && f.Documents[0] == types.KindIdentity {
			found = true
		}
	}
	assert.True(t, found, "expected a failure naming the Identity idNumber field, got %v", failure.Messages)
}

func TestVerify_SoftDeclined(t *testing.T) {
	docs := idealDocs()
	docs.salary = "4,500.00"
	docs.income = "4,500"
	docs.savings = "39,267"

	run, err := newTestOrchestrator(labelled(0, 0.7)).Verify(context.Background(), declaration(), docs.build())
	require.NoError(t, err)

	assert.Equal(t, types.StageSoftDeclined, run.Stage)
	assert.Equal(t, types.StatusSoftDeclined, run.Verdict.Status)
	assert.Equal(t, "Sorry Ahmed Ali, your application has been soft declined based on eligibility rules.", run.Verdict.Message)
	assert.Nil(t, run.Verdict.Recommendation)
	assert.Nil(t, run.Recommendation)
	assert.NotContains(t, stages(run), types.StageRecommending)
	assert.Equal(t, 39267.0, run.Features.TotalSavings)
	assert.Equal(t, 4500.0, run.Features.MonthlyIncome)
}

func TestVerify_InferenceTimeout(t *testing.T) {
	slow := classifier.Func(func(ctx context.Context, _ types.FeatureVector) (types.Prediction, error) {
		<-ctx.Done()
		return types.Prediction{}, ctx.Err()
	})
	policy := DefaultPolicy()
	policy.ClassifierTimeout = 20 * time.Millisecond

	run, err := newTestOrchestrator(slow, WithPolicy(policy)).Verify(context.Background(), declaration(), idealDocs().build())

	var inferenceErr *classifier.InferenceError
	require.ErrorAs(t, err, &inferenceErr)
	assert.Equal(t, classifier.ReasonTimeout, inferenceErr.Reason)
	assert.Equal(t, types.StageInferenceUnavailable, run.Stage)
	require.NotNil(t, run.Verdict)
	assert.Equal(t, types.StatusInferenceUnavailable, run.Verdict.Status)
	assert.Equal(t, classifier.ReasonTimeout, run.Verdict.ReasonCode)
	assert.Nil(t, run.Prediction)
	assert.NotNil(t, run.Features)
}

func TestVerify_MalformedPrediction(t *testing.T) {
	run, err := newTestOrchestrator(labelled(2, 0.5)).Verify(context.Background(), declaration(), idealDocs().build())

	var inferenceErr *classifier.InferenceError
	require.ErrorAs(t, err, &inferenceErr)
	assert.Equal(t, classifier.ReasonMalformedPrediction, inferenceErr.Reason)
	assert.Equal(t, types.StageInferenceUnavailable, run.Stage)
}

func TestVerify_CancelledDuringExtraction(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	run, err := newTestOrchestrator(labelled(1, 1)).Verify(ctx, declaration(), idealDocs().build())
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, run.Verdict)
	assert.Equal(t, types.StageValidating, run.Stage)
}

type stubExplainer struct {
	text string
	err  error
	wait bool
}

func (s stubExplainer) Explain(ctx context.Context, _ types.VerificationRun) (string, error) {
	if s.wait {
		<-ctx.Done()
		return "", ctx.Err()
	}
	return s.text, s.err
}

func TestExplain(t *testing.T) {
	run, err := newTestOrchestrator(labelled(1, 0.9)).Verify(context.Background(), declaration(), idealDocs().build())
	require.NoError(t, err)
	fallback := llm.FallbackExplanation(run)

	policy := DefaultPolicy()
	policy.ExplainTimeout = 20 * time.Millisecond

	tests := []struct {
		name      string
		explainer llm.Explainer
		want      string
	}{
		{name: "model text", explainer: stubExplainer{text: "You qualify for job coaching."}, want: "You qualify for job coaching."},
		{name: "model error", explainer: stubExplainer{err: errors.New("connection refused")}, want: fallback},
		{name: "model timeout", explainer: stubExplainer{wait: true}, want: fallback},
		{name: "no explainer", explainer: nil, want: fallback},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := newTestOrchestrator(labelled(1, 0.9), WithPolicy(policy), WithExplainer(tt.explainer))

			explained, err := o.Explain(context.Background(), run)
			require.NoError(t, err)
			require.NotNil(t, explained.Verdict.Explanation)
			assert.Equal(t, tt.want, *explained.Verdict.Explanation)
			assert.Nil(t, run.Verdict.Explanation, "input run must not change")
		})
	}
}

func TestExplain_RequiresVerdict(t *testing.T) {
	o := newTestOrchestrator(labelled(1, 1))
	run := o.NewRun(declaration(), nil)

	_, err := o.Explain(context.Background(), run)
	var explainErr *llm.ExplanationError
	require.ErrorAs(t, err, &explainErr)
	assert.Equal(t, llm.ReasonVerdictMissing, explainErr.Reason)
}

func TestExplain_InferenceUnavailableUsesFallback(t *testing.T) {
	failing := classifier.Func(func(context.Context, types.FeatureVector) (types.Prediction, error) {
		return types.Prediction{}, errors.New("model server down")
	})
	explainer := stubExplainer{text: "should not be used"}
	o := newTestOrchestrator(failing, WithExplainer(explainer), WithExplanations(true))

	run, err := o.Verify(context.Background(), declaration(), idealDocs().build())
	require.Error(t, err)
	require.NotNil(t, run.Verdict.Explanation)
	assert.Equal(t, llm.FallbackExplanation(run), *run.Verdict.Explanation)
}

func TestVerify_EagerExplanation(t *testing.T) {
	o := newTestOrchestrator(labelled(1, 0.9),
		WithExplainer(stubExplainer{text: "Accepted because income is below the threshold."}),
		WithExplanations(true))

	run, err := o.Verify(context.Background(), declaration(), idealDocs().build())
	require.NoError(t, err)
	require.NotNil(t, run.Verdict.Explanation)
	assert.Equal(t, "Accepted because income is below the threshold.", *run.Verdict.Explanation)
}

func TestRun_TerminalRunIsNotRestarted(t *testing.T) {
	o := newTestOrchestrator(labelled(1, 0.9))
	run, err := o.Verify(context.Background(), declaration(), idealDocs().build())
	require.NoError(t, err)

	again, err := o.Run(context.Background(), run)
	require.Error(t, err)
	assert.Equal(t, run.History, again.History)
}

func TestNewRun_OwnsDocuments(t *testing.T) {
	rows := [][]string{{"Asset", "Value"}, {"Car", "20000"}}
	docs := []types.RawDocument{{Kind: types.KindAssetSheet, Rows: rows}}

	run := newTestOrchestrator(labelled(1, 1)).NewRun(declaration(), docs)
	rows[1][1] = "999999"

	assert.Equal(t, "20000", run.Documents[0].Rows[1][1])
	assert.Equal(t, types.StageValidating, run.Stage)
	assert.NotEqual(t, uuid.Nil, run.ID)
}

type memoryRecorder struct {
	mu          sync.Mutex
	extractions []types.DocumentKind
	transitions []types.Stage
	completed   []types.VerificationRun
	failWith    error
}

func (m *memoryRecorder) SaveExtraction(_ context.Context, _ uuid.UUID, rec types.ExtractedRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.extractions = append(m.extractions, rec.Kind)
	return m.failWith
}

func (m *memoryRecorder) RecordTransition(_ context.Context, _ uuid.UUID, t types.Transition) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.transitions = append(m.transitions, t.To)
	return m.failWith
}

func (m *memoryRecorder) CompleteApplication(_ context.Context, run types.VerificationRun) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.completed = append(m.completed, run)
	return m.failWith
}

func TestVerify_RecorderAndProgress(t *testing.T) {
	rec := &memoryRecorder{}
	var events []ProgressEvent
	o := newTestOrchestrator(labelled(1, 0.9),
		WithRecorder(rec),
		WithProgress(func(e ProgressEvent) { events = append(events, e) }))

	run, err := o.Verify(context.Background(), declaration(), idealDocs().build())
	require.NoError(t, err)

	assert.Equal(t, types.AllDocumentKinds(), rec.extractions)
	assert.Equal(t, stages(run), rec.transitions)
	require.Len(t, rec.completed, 1)
	assert.Equal(t, run.ID, rec.completed[0].ID)

	require.Len(t, events, len(run.History))
	assert.Equal(t, string(types.StageInferring), events[0].Step)
	assert.Equal(t, CategoryInference, events[0].Category)
	assert.Equal(t, CategoryRecommendation, events[len(events)-1].Category)
	assert.Equal(t, run.ID.String(), events[0].RunID)
}

func TestVerify_FailingRecorderDoesNotChangeOutcome(t *testing.T) {
	rec := &memoryRecorder{failWith: errors.New("database is locked")}
	o := newTestOrchestrator(labelled(1, 0.9), WithRecorder(rec))

	run, err := o.Verify(context.Background(), declaration(), idealDocs().build())
	require.NoError(t, err)
	assert.Equal(t, types.StageAcceptedWithRecommendation, run.Stage)
}

func TestVerify_Metrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	o := newTestOrchestrator(labelled(0, 0.6), WithMetrics(metrics.New(reg)))

	_, err := o.Verify(context.Background(), declaration(), idealDocs().build())
	require.NoError(t, err)

	families, err := reg.Gather()
	require.NoError(t, err)
	names := map[string]bool{}
	for _, f := range families {
		names[f.GetName()] = true
	}
	assert.True(t, names["verifier_run_outcomes_total"])
	assert.True(t, names["verifier_stage_transitions_total"])
	assert.True(t, names["verifier_inference_duration_seconds"])
}

func TestVerify_ConcurrentRuns(t *testing.T) {
	o := newTestOrchestrator(labelled(1, 0.9))

	var wg sync.WaitGroup
	results := make([]types.VerificationRun, 8)
	errs := make([]error, 8)
	for i := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i], errs[i] = o.Verify(context.Background(), declaration(), idealDocs().build())
		}()
	}
	wg.Wait()

	seen := map[uuid.UUID]bool{}
	for i, run := range results {
		require.NoError(t, errs[i])
		assert.Equal(t, types.StageAcceptedWithRecommendation, run.Stage)
		seen[run.ID] = true
	}
	assert.Len(t, seen, len(results))
}

func TestRecommend(t *testing.T) {
	withSeverity := func(sev int, disabled bool) types.VerificationRun {
		rec := types.NewRecord(types.KindMedicalReport, "")
		rec.Medical.SeverityScore = types.Ptr(sev)
		fv := types.FeatureVector{}
		if disabled {
			fv.HasDisability = 1
		}
		return types.VerificationRun{
			Records:  map[types.DocumentKind]types.ExtractedRecord{types.KindMedicalReport: rec},
			Features: &fv,
		}
	}

	assert.Equal(t, types.FinancialSupport, Recommend(withSeverity(5, true), 5).Category)
	assert.Equal(t, types.FinancialSupport, Recommend(withSeverity(2, true), 5).Category)
	assert.Equal(t, types.EconomicEnablement, Recommend(withSeverity(0, false), 5).Category)
	assert.Equal(t, types.EconomicEnablement, Recommend(types.VerificationRun{}, 5).Category)
}

func TestWith_LeavesOriginalUntouched(t *testing.T) {
	var events []ProgressEvent
	base := newTestOrchestrator(labelled(1, 0.9))
	derived := base.With(WithProgress(func(e ProgressEvent) {
		events = append(events, e)
	}))

	_, err := base.Verify(context.Background(), declaration(), idealDocs().build())
	require.NoError(t, err)
	assert.Empty(t, events)

	run, err := derived.Verify(context.Background(), declaration(), idealDocs().build())
	require.NoError(t, err)
	require.Len(t, events, 5)
	assert.Equal(t, string(types.StageAcceptedWithRecommendation), events[4].Step)
	assert.Equal(t, run.ID.String(), events[0].RunID)
	assert.Equal(t, base.Policy(), derived.Policy())
}
