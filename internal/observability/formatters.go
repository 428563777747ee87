// Package observability provides formatted output utilities for verbose CLI mode.
package observability

import (
	"fmt"
	"io"
	"strings"

	"github.com/Roosh27/Sovereign-AI-Verifier/internal/types"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 5
)

// Printer handles formatted output for verbose mode
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, title)
	fmt.Fprintf(p.out, "├%s┤\n", border)

	lines := strings.Split(content, "\n")
	for _, line := range lines {
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, truncate(line, boxWidth-4))
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// truncate shortens s to at most n runes, marking the cut with "...".
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

func orDash[T any](v *T, format string) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf(format, *v)
}

// PrintRecords outputs the fields extracted from each document, in the
// canonical document order.
func (p *Printer) PrintRecords(records map[types.DocumentKind]types.ExtractedRecord) {
	if len(records) == 0 {
		return
	}

	var sb strings.Builder
	for _, kind := range types.AllDocumentKinds() {
		rec, ok := records[kind]
		if !ok {
			continue
		}
		sb.WriteString(string(kind))
		if rec.Source != "" {
			sb.WriteString(fmt.Sprintf(" (%s)", rec.Source))
		}
		sb.WriteString("\n")
		for _, line := range recordLines(rec) {
			sb.WriteString(fmt.Sprintf("  %s\n", line))
		}
	}

	p.printBox("EXTRACTED RECORDS", strings.TrimSuffix(sb.String(), "\n"))
}

func recordLines(rec types.ExtractedRecord) []string {
	switch {
	case rec.Identity != nil:
		return []string{
			"ID Number:      " + orDash(rec.Identity.IDNumber, "%s"),
			"Full Name:      " + orDash(rec.Identity.FullName, "%s"),
			"Marital Status: " + orDash(rec.Identity.MaritalStatus, "%s"),
			"Family Size:    " + orDash(rec.Identity.FamilySize, "%d"),
		}
	case rec.Bank != nil:
		return []string{
			"Monthly Salary: " + orDash(rec.Bank.MonthlySalary, "%.2f"),
			"Balance:        " + orDash(rec.Bank.AccountBalance, "%.2f"),
			fmt.Sprintf("Salary Credits: %d", rec.Bank.SalaryCredits),
		}
	case rec.Credit != nil:
		return []string{
			"Credit Score:   " + orDash(rec.Credit.CreditScore, "%d"),
			"Income:         " + orDash(rec.Credit.ReportedIncome, "%.2f"),
			"Savings:        " + orDash(rec.Credit.TotalSavings, "%.2f"),
			"Outstanding:    " + orDash(rec.Credit.OutstandingDebt, "%.2f"),
		}
	case rec.Medical != nil:
		return []string{
			"Diagnosis:      " + orDash(rec.Medical.Diagnosis, "%s"),
			"Severity:       " + orDash(rec.Medical.SeverityScore, "%d"),
		}
	case rec.Resume != nil:
		return []string{"Employment:     " + orDash(rec.Resume.EmploymentSummary, "%s")}
	case rec.Assets != nil:
		return []string{
			"Asset Value:    " + orDash(rec.Assets.TotalAssetValue, "%.2f"),
			fmt.Sprintf("Items:          %d", rec.Assets.ItemCount),
		}
	}
	return nil
}

// PrintFindings outputs validation findings, failures first.
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) PrintFindings(findings types.Findings) {
	if len(findings) == 0 {
		fmt.Fprintf(p.out, "┌%s┐\n", strings.Repeat("─", boxWidth-2))
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, "✅ ALL CHECKS PASSED")
		fmt.Fprintf(p.out, "└%s┘\n", strings.Repeat("─", boxWidth-2))
		return
	}

	ordered := append(findings.BySeverity(types.SeverityFail), findings.BySeverity(types.SeverityWarning)...)
	ordered = append(ordered, findings.BySeverity(types.SeverityInfo)...)

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Found %d findings (%d failing):\n\n", len(findings), len(findings.Fails())))

	count := min(len(ordered), maxItemsToShow)
	for i := 0; i < count; i++ {
		f := ordered[i]
		marker := "ℹ"
		switch f.Severity {
		case types.SeverityFail:
			marker = "✗"
		case types.SeverityWarning:
			marker = "⚠"
		}
		label := f.Check
		if f.Field != "" {
			label += "." + f.Field
		}
		sb.WriteString(fmt.Sprintf("%s %s\n", marker, label))
		sb.WriteString(fmt.Sprintf("  %s\n", f.Message))
		if i < count-1 {
			sb.WriteString("\n")
		}
	}

	if len(ordered) > maxItemsToShow {
		sb.WriteString(fmt.Sprintf("\n... and %d more findings", len(ordered)-maxItemsToShow))
	}

	p.printBox("VALIDATION FINDINGS", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintFeatures outputs the classifier inputs and, when present, its answer.
func (p *Printer) PrintFeatures(features *types.FeatureVector, prediction *types.Prediction) {
	if features == nil {
		return
	}

	var sb strings.Builder
	values := features.Values()
	for i, name := range types.FeatureNames {
		sb.WriteString(fmt.Sprintf("%-18s %12.2f\n", name, values[i]))
	}
	if prediction != nil {
		label := "ineligible"
		if prediction.Eligible() {
			label = "eligible"
		}
		sb.WriteString(fmt.Sprintf("\nPrediction: %s (confidence %.2f)\n", label, prediction.Confidence))
	}

	p.printBox("CLASSIFIER FEATURES", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintVerdict outputs the decision and its supporting text.
func (p *Printer) PrintVerdict(verdict *types.Verdict) {
	if verdict == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Status:   %s\n", verdict.Status))
	if verdict.ReasonCode != "" {
		sb.WriteString(fmt.Sprintf("Reason:   %s\n", verdict.ReasonCode))
	}
	if verdict.Confidence != nil {
		sb.WriteString(fmt.Sprintf("Confidence: %.2f\n", *verdict.Confidence))
	}
	if verdict.Recommendation != nil {
		sb.WriteString(fmt.Sprintf("Support:  %s\n", verdict.Recommendation.Category))
	}
	if verdict.Message != "" {
		sb.WriteString("\n")
		for _, line := range wrap(verdict.Message, boxWidth-4) {
			sb.WriteString(line + "\n")
		}
	}
	if len(verdict.Messages) > 0 {
		sb.WriteString("\n")
		for _, msg := range verdict.Messages {
			sb.WriteString(fmt.Sprintf("• %s\n", msg))
		}
	}
	if verdict.Explanation != nil {
		sb.WriteString("\nExplanation:\n")
		for _, line := range wrap(*verdict.Explanation, boxWidth-4) {
			sb.WriteString(line + "\n")
		}
	}

	p.printBox("VERDICT", strings.TrimSuffix(sb.String(), "\n"))
}

// wrap splits text into lines of at most width runes on word boundaries.
func wrap(text string, width int) []string {
	var lines []string
	var line strings.Builder
	for _, word := range strings.Fields(text) {
		if line.Len() > 0 && len([]rune(line.String()))+1+len([]rune(word)) > width {
			lines = append(lines, line.String())
			line.Reset()
		}
		if line.Len() > 0 {
			line.WriteString(" ")
		}
		line.WriteString(word)
	}
	if line.Len() > 0 {
		lines = append(lines, line.String())
	}
	return lines
}
