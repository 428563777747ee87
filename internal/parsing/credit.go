package parsing

import (
	"regexp"

	"github.com/Roosh27/Sovereign-AI-Verifier/internal/types"
)

var (
	creditScoreRe    = regexp.MustCompile(`(?im)credit\s+score[ \t]*:[ \t]*(\S+)`)
	reportedIncomeRe = regexp.MustCompile(`(?im)(?:reported\s+)?monthly\s+income[ \t]*:[ \t]*(.+)$`)
	totalSavingsRe   = regexp.MustCompile(`(?im)total\s+savings[ \t]*:[ \t]*(.+)$`)
	outstandingRe    = regexp.MustCompile(`(?im)total\s+outstanding\s+(?:balance|debt)[ \t]*:[ \t]*(.+)$`)
)

// CreditReportExtractor reads the credit bureau report.
type CreditReportExtractor struct{}

// Kind implements Extractor.
func (CreditReportExtractor) Kind() types.DocumentKind { return types.KindCreditReport }

// Extract implements Extractor. Reported income and total savings are
// required; score and outstanding debt are informational.
func (CreditReportExtractor) Extract(doc types.RawDocument) (types.ExtractedRecord, []types.Finding) {
	rec := types.NewRecord(types.KindCreditReport, doc.Name)
	f := newFieldReader(doc)

	rec.Credit.CreditScore = f.count("creditScore", creditScoreRe, types.SeverityInfo)
	rec.Credit.ReportedIncome = f.amount("reportedIncome", reportedIncomeRe, types.SeverityFail)
	rec.Credit.TotalSavings = f.amount("totalSavings", totalSavingsRe, types.SeverityFail)
	rec.Credit.OutstandingDebt = f.amount("outstandingDebt", outstandingRe, types.SeverityInfo)

	return rec, f.findings
}
