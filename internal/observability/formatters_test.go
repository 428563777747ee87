package observability

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Roosh27/Sovereign-AI-Verifier/internal/types"
)

func ptr[T any](v T) *T { return &v }

func TestPrintRecords(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	identity := types.NewRecord(types.KindIdentity, "emirates_id.pdf")
	identity.Identity.IDNumber = ptr("784-1990-1234567-1")
	identity.Identity.FullName = ptr("Ahmed Ali")
	identity.Identity.FamilySize = ptr(4)

	credit := types.NewRecord(types.KindCreditReport, "")
	credit.Credit.ReportedIncome = ptr(4000.0)

	p.PrintRecords(map[types.DocumentKind]types.ExtractedRecord{
		types.KindCreditReport: credit,
		types.KindIdentity:     identity,
	})
	output := buf.String()

	assert.Contains(t, output, "EXTRACTED RECORDS")
	assert.Contains(t, output, "emirates_id.pdf")
	assert.Contains(t, output, "Ahmed Ali")
	assert.Contains(t, output, "4000.00")
	// Missing values print as a dash
	assert.Contains(t, output, "Marital Status: -")
	assert.Less(t, strings.Index(output, string(types.KindIdentity)), strings.Index(output, string(types.KindCreditReport)))
}

func TestPrintRecords_Empty(t *testing.T) {
	var buf bytes.Buffer
	NewPrinter(&buf).PrintRecords(nil)
	assert.Empty(t, buf.String())
}

func TestPrintFindings(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.PrintFindings(types.Findings{
		{Check: types.CheckOwnership, Severity: types.SeverityWarning, Message: "address keyword missing"},
		{Check: types.CheckIncome, Field: "monthlyIncome", Severity: types.SeverityFail, Message: "declared income differs"},
	})
	output := buf.String()

	assert.Contains(t, output, "VALIDATION FINDINGS")
	assert.Contains(t, output, "Found 2 findings (1 failing)")
	assert.Contains(t, output, "✗ income.monthlyIncome")
	assert.Contains(t, output, "⚠ ownership")
	assert.Less(t, strings.Index(output, "income.monthlyIncome"), strings.Index(output, "ownership"))
}

func TestPrintFindings_None(t *testing.T) {
	var buf bytes.Buffer
	NewPrinter(&buf).PrintFindings(nil)
	assert.Contains(t, buf.String(), "ALL CHECKS PASSED")
}

func TestPrintFindings_ManyFindings(t *testing.T) {
	var buf bytes.Buffer
	findings := make(types.Findings, 8)
	for i := range findings {
		findings[i] = types.Finding{Check: types.CheckCompleteness, Severity: types.SeverityInfo, Message: "note"}
	}

	NewPrinter(&buf).PrintFindings(findings)
	assert.Contains(t, buf.String(), "... and 3 more findings")
}

func TestPrintFeatures(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.PrintFeatures(&types.FeatureVector{Age: 35, MonthlyIncome: 4000}, &types.Prediction{Label: 1, Confidence: 0.82})
	output := buf.String()

	assert.Contains(t, output, "CLASSIFIER FEATURES")
	assert.Contains(t, output, "monthly_income")
	assert.Contains(t, output, "4000.00")
	assert.Contains(t, output, "Prediction: eligible (confidence 0.82)")
}

func TestPrintFeatures_Nil(t *testing.T) {
	var buf bytes.Buffer
	NewPrinter(&buf).PrintFeatures(nil, nil)
	assert.Empty(t, buf.String())
}

func TestPrintVerdict(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.PrintVerdict(&types.Verdict{
		Status:     types.StatusAccepted,
		Confidence: ptr(0.9),
		Recommendation: &types.Recommendation{
			Category:  types.EconomicEnablement,
			Rationale: "stable income",
		},
		Message:     "Congratulations Ahmed Ali, your application has been accepted for economic enablement support.",
		Explanation: ptr("Your income is below the threshold."),
	})
	output := buf.String()

	assert.Contains(t, output, "VERDICT")
	assert.Contains(t, output, "Status:   Accepted")
	assert.Contains(t, output, "Support:  EconomicEnablement")
	assert.Contains(t, output, "Congratulations Ahmed Ali")
	assert.Contains(t, output, "Your income is below the threshold.")
	assert.NotContains(t, output, "...")
}

func TestPrintVerdict_Rejected(t *testing.T) {
	var buf bytes.Buffer
	NewPrinter(&buf).PrintVerdict(&types.Verdict{
		Status:     types.StatusRejected,
		ReasonCode: "validation_failed",
		Messages:   []string{"family size 4 does not match 5"},
	})
	output := buf.String()

	assert.Contains(t, output, "Reason:   validation_failed")
	assert.Contains(t, output, "• family size 4 does not match 5")
}

func TestWrap(t *testing.T) {
	lines := wrap("one two three four five", 9)
	assert.Equal(t, []string{"one two", "three", "four five"}, lines)
	assert.Empty(t, wrap("   ", 10))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcdefg...", truncate("abcdefghijklmnop", 10))
	assert.Equal(t, "ééé...", truncate("éééééééé", 6))
}

func TestPrintBox_Width(t *testing.T) {
	var buf bytes.Buffer
	NewPrinter(&buf).printBox("TITLE", strings.Repeat("x", 100))

	for _, line := range strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n") {
		assert.Equal(t, boxWidth, len([]rune(line)), line)
	}
}
