package db

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Roosh27/Sovereign-AI-Verifier/internal/types"
)

func setupSQLite(t *testing.T) *SQLite {
	t.Helper()
	ctx := context.Background()
	store, err := OpenSQLite(ctx, filepath.Join(t.TempDir(), "verifier.db"))
	require.NoError(t, err)
	t.Cleanup(store.Close)
	require.NoError(t, store.Migrate(ctx))
	return store
}

func testDeclaration() types.ApplicantDeclaration {
	return types.ApplicantDeclaration{
		Name:             "Ahmed Ali",
		IDNumber:         "784-1990-1234567-1",
		Age:              35,
		MaritalStatus:    "Single",
		FamilySize:       1,
		EmploymentStatus: "Employed",
	}
}

func TestSQLite_MigrateIsIdempotent(t *testing.T) {
	store := setupSQLite(t)
	assert.NoError(t, store.Migrate(context.Background()))
}

func TestSQLite_ApplicationLifecycle(t *testing.T) {
	store := setupSQLite(t)
	ctx := context.Background()
	id := uuid.New()

	// 1. Create
	app, err := store.CreateApplication(ctx, id, testDeclaration())
	require.NoError(t, err)
	assert.Equal(t, types.StageValidating, app.Stage)
	assert.False(t, app.IsCompleted())

	// 2. Documents keep their upload order and rows
	require.NoError(t, store.SaveDocument(ctx, id, types.NewRawDocument(types.KindIdentity, "id.txt", "ID Number: 784", nil)))
	require.NoError(t, store.SaveDocument(ctx, id, types.NewRawDocument(types.KindAssetSheet, "assets.xlsx", "", [][]string{{"Asset", "Value"}, {"Car", "20000"}})))

	docs, err := store.ListDocuments(ctx, id)
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, types.KindIdentity, docs[0].Kind)
	assert.Equal(t, "ID Number: 784", docs[0].Text)
	assert.Nil(t, docs[0].Rows)
	assert.Equal(t, [][]string{{"Asset", "Value"}, {"Car", "20000"}}, docs[1].Rows)

	// 3. Extractions are replaced per kind
	rec := types.NewRecord(types.KindBankStatement, "bank.txt")
	rec.Bank.MonthlySalary = types.Ptr(4000.0)
	require.NoError(t, store.SaveExtraction(ctx, id, rec))
	rec.Bank.MonthlySalary = types.Ptr(4500.0)
	require.NoError(t, store.SaveExtraction(ctx, id, rec))

	// 4. Transitions
	at := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	require.NoError(t, store.RecordTransition(ctx, id, types.Transition{
		From: types.StageValidating, To: types.StageInferring, At: at, Detail: "validation passed",
	}))
	require.NoError(t, store.RecordTransition(ctx, id, types.Transition{
		From: types.StageInferring, To: types.StageDeciding, At: at.Add(time.Second),
	}))

	got, err := store.GetApplication(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, types.StageDeciding, got.Stage)

	logs, err := store.ListAuditLogs(ctx, id)
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, types.StageInferring, logs[0].To)
	assert.Equal(t, "validation passed", logs[0].Detail)
	assert.True(t, at.Equal(logs[0].CreatedAt))
	assert.Equal(t, id, logs[1].ApplicationID)

	// 5. Complete
	confidence := 0.4
	run := types.VerificationRun{
		ID:    id,
		Stage: types.StageSoftDeclined,
		Findings: types.Findings{{
			Check: types.CheckOwnership, Severity: types.SeverityWarning, Message: "ID missing in CreditReport document",
		}},
		Verdict: &types.Verdict{
			Status:     types.StatusSoftDeclined,
			Message:    "Sorry Ahmed Ali, your application has been soft declined based on eligibility rules.",
			Confidence: &confidence,
			DecidedAt:  at.Add(2 * time.Second),
		},
	}
	require.NoError(t, store.CompleteApplication(ctx, run))

	got, err = store.GetApplication(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, types.StageSoftDeclined, got.Stage)
	assert.Equal(t, "Ahmed Ali", got.Declaration.Name)
	require.NotNil(t, got.Verdict)
	assert.Equal(t, types.StatusSoftDeclined, got.Verdict.Status)
	assert.Equal(t, 0.4, *got.Verdict.Confidence)
	require.Len(t, got.Findings, 1)
	assert.Equal(t, types.SeverityWarning, got.Findings[0].Severity)
	require.True(t, got.IsCompleted())
	assert.True(t, at.Add(2*time.Second).Equal(*got.CompletedAt))
}

func TestSQLite_GetApplication_NotFound(t *testing.T) {
	store := setupSQLite(t)

	app, err := store.GetApplication(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Nil(t, app)
}

func TestSQLite_CompleteApplication_NotFound(t *testing.T) {
	store := setupSQLite(t)

	err := store.CompleteApplication(context.Background(), types.VerificationRun{ID: uuid.New(), Stage: types.StageRejected})
	assert.Error(t, err)
}

func TestSQLite_CompleteApplication_KeepsFirstVerdict(t *testing.T) {
	store := setupSQLite(t)
	ctx := context.Background()
	id := uuid.New()
	_, err := store.CreateApplication(ctx, id, testDeclaration())
	require.NoError(t, err)

	decided := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	first := types.VerificationRun{
		ID:      id,
		Stage:   types.StageAcceptedWithRecommendation,
		Verdict: &types.Verdict{Status: types.StatusAccepted, DecidedAt: decided},
	}
	require.NoError(t, store.CompleteApplication(ctx, first))

	err = store.CompleteApplication(ctx, types.VerificationRun{
		ID:      id,
		Stage:   types.StageRejected,
		Verdict: &types.Verdict{Status: types.StatusRejected, DecidedAt: decided.Add(time.Minute)},
	})
	assert.ErrorIs(t, err, ErrAlreadyCompleted)

	require.NoError(t, store.RecordTransition(ctx, id, types.Transition{
		From: types.StageValidating, To: types.StageInferring, At: decided.Add(time.Minute),
	}))

	got, err := store.GetApplication(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, types.StageAcceptedWithRecommendation, got.Stage)
	assert.Equal(t, types.StatusAccepted, got.Verdict.Status)
	assert.True(t, decided.Equal(*got.CompletedAt))
}

func TestSQLite_AttachExplanation(t *testing.T) {
	store := setupSQLite(t)
	ctx := context.Background()
	id := uuid.New()
	_, err := store.CreateApplication(ctx, id, testDeclaration())
	require.NoError(t, err)

	run := types.VerificationRun{
		ID:      id,
		Stage:   types.StageSoftDeclined,
		Verdict: &types.Verdict{Status: types.StatusSoftDeclined, DecidedAt: time.Now()},
	}
	assert.Error(t, store.AttachExplanation(ctx, run), "no stored verdict yet")

	require.NoError(t, store.CompleteApplication(ctx, run))
	explanation := "Your savings exceed the support threshold."
	run.Verdict.Explanation = &explanation
	require.NoError(t, store.AttachExplanation(ctx, run))

	got, err := store.GetApplication(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, got.Verdict.Explanation)
	assert.Equal(t, explanation, *got.Verdict.Explanation)
	assert.Equal(t, types.StageSoftDeclined, got.Stage)
}

func TestSQLite_ListApplications(t *testing.T) {
	store := setupSQLite(t)
	ctx := context.Background()

	var ids []uuid.UUID
	for i := 0; i < 3; i++ {
		id := uuid.New()
		ids = append(ids, id)
		_, err := store.CreateApplication(ctx, id, testDeclaration())
		require.NoError(t, err)
	}
	require.NoError(t, store.CompleteApplication(ctx, types.VerificationRun{
		ID:      ids[1],
		Stage:   types.StageRejected,
		Verdict: &types.Verdict{Status: types.StatusRejected, DecidedAt: time.Now()},
	}))

	all, err := store.ListApplications(ctx, ApplicationFilters{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, ids[2], all[0].ID, "newest first")

	rejected, err := store.ListApplications(ctx, ApplicationFilters{Stage: string(types.StageRejected)})
	require.NoError(t, err)
	require.Len(t, rejected, 1)
	assert.Equal(t, ids[1], rejected[0].ID)

	limited, err := store.ListApplications(ctx, ApplicationFilters{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}

func TestSQLite_DocumentRequiresApplication(t *testing.T) {
	store := setupSQLite(t)

	err := store.SaveDocument(context.Background(), uuid.New(), types.NewRawDocument(types.KindResume, "cv.txt", "x", nil))
	assert.Error(t, err)
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	_, err := Open(ctx, "")
	assert.Error(t, err)

	store, err := Open(ctx, "sqlite://"+filepath.Join(t.TempDir(), "a.db"))
	require.NoError(t, err)
	defer store.Close()
	_, ok := store.(*SQLite)
	assert.True(t, ok)
}
