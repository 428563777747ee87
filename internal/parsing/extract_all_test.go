package parsing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Roosh27/Sovereign-AI-Verifier/internal/types"
)

func applicationDocs() []types.RawDocument {
	return []types.RawDocument{
		textDoc(types.KindAssetSheet, "Total Asset Value: 300,000"),
		textDoc(types.KindCreditReport, "Credit Score: 700\nMonthly Income: 4,000\nTotal Savings: 10,000\nTotal Outstanding Balance: 0"),
		textDoc(types.KindIdentity, "ID Number: 784-1990-1234567-1\nFull Name: Ahmed Ali\nMarital Status: Single\nFamily Size: 1"),
		textDoc(types.KindBankStatement, "2024-01-01 SALARY TRANSFER 4,000.00\nClosing Balance: 9,000.00"),
		textDoc(types.KindMedicalReport, "Checkup only"),
	}
}

func TestExtractAll(t *testing.T) {
	res, err := ExtractAll(context.Background(), nil, applicationDocs())
	require.NoError(t, err)

	assert.Len(t, res.Records, 5)
	assert.Equal(t, "Ahmed Ali", *res.Records[types.KindIdentity].Identity.FullName)
	assert.Equal(t, 4000.0, *res.Records[types.KindBankStatement].Bank.MonthlySalary)
	assert.Equal(t, 300000.0, *res.Records[types.KindAssetSheet].Assets.TotalAssetValue)

	// Only the medical report is incomplete, and only informationally.
	assert.False(t, res.Findings.HasFail())
	require.Len(t, res.Findings, 2)
	for _, f := range res.Findings {
		assert.Equal(t, []types.DocumentKind{types.KindMedicalReport}, f.Documents)
	}
}

func TestExtractAll_DeterministicOrder(t *testing.T) {
	docs := []types.RawDocument{
		textDoc(types.KindResume, "nothing relevant"),
		textDoc(types.KindCreditReport, "nothing relevant"),
		textDoc(types.KindIdentity, "nothing relevant"),
		textDoc("Payslip", "Net: 100"),
	}

	first, err := ExtractAll(context.Background(), DefaultRegistry(), docs)
	require.NoError(t, err)

	for i := 0; i < 20; i++ {
		again, err := ExtractAll(context.Background(), DefaultRegistry(), docs)
		require.NoError(t, err)
		assert.Equal(t, first.Findings, again.Findings)
	}

	var kinds []types.DocumentKind
	for _, f := range first.Findings {
		if len(kinds) == 0 || kinds[len(kinds)-1] != f.Documents[0] {
			kinds = append(kinds, f.Documents[0])
		}
	}
	assert.Equal(t, []types.DocumentKind{
		types.KindIdentity, types.KindCreditReport, types.KindResume, "Payslip",
	}, kinds)
}

func TestExtractAll_DuplicateKind(t *testing.T) {
	docs := []types.RawDocument{
		types.NewRawDocument(types.KindResume, "cv-2024.txt", "WORK EXPERIENCE\nEngineer", nil),
		types.NewRawDocument(types.KindResume, "cv-2019.txt", "WORK EXPERIENCE\nIntern", nil),
	}

	res, err := ExtractAll(context.Background(), nil, docs)
	require.NoError(t, err)

	rec := res.Records[types.KindResume]
	assert.Equal(t, "cv-2024.txt", rec.Source)
	assert.Equal(t, "Engineer", *rec.Resume.EmploymentSummary)

	warnings := res.Findings.BySeverity(types.SeverityWarning)
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0].Message, "cv-2019.txt")
}

func TestExtractAll_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := ExtractAll(ctx, nil, applicationDocs())
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}
