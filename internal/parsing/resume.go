package parsing

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/Roosh27/Sovereign-AI-Verifier/internal/types"
)

// maxSummaryRunes bounds the employment summary kept from a résumé.
const maxSummaryRunes = 200

var experienceRe = regexp.MustCompile(`(?is)\b(?:WORK\s+EXPERIENCE|EMPLOYMENT\s+HISTORY|PROFESSIONAL\s+EXPERIENCE)\b\s*:?\s*(.*)`)

// ResumeExtractor reads the work experience section of a résumé.
type ResumeExtractor struct{}

// Kind implements Extractor.
func (ResumeExtractor) Kind() types.DocumentKind { return types.KindResume }

// Extract implements Extractor. A résumé without an experience section only
// produces an Info finding.
func (ResumeExtractor) Extract(doc types.RawDocument) (types.ExtractedRecord, []types.Finding) {
	rec := types.NewRecord(types.KindResume, doc.Name)
	f := newFieldReader(doc)

	m := experienceRe.FindStringSubmatch(doc.Text)
	if len(m) < 2 || strings.TrimSpace(m[1]) == "" {
		f.missing("employmentSummary", types.SeverityInfo)
		return rec, f.findings
	}

	summary := truncateRunes(strings.Join(strings.Fields(m[1]), " "), maxSummaryRunes)
	rec.Resume.EmploymentSummary = &summary
	return rec, f.findings
}

// truncateRunes cuts s to at most n runes, preferring a word boundary.
func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	cut := string(runes[:n])
	if i := strings.LastIndex(cut, " "); i > n/2 {
		cut = cut[:i]
	}
	return cut + "..."
}
