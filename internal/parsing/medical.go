package parsing

import (
	"regexp"

	"github.com/Roosh27/Sovereign-AI-Verifier/internal/types"
)

var (
	diagnosisRe = regexp.MustCompile(`(?im)diagnosis[ \t]*:[ \t]*(.+)$`)
	severityRe  = regexp.MustCompile(`(?im)severity(?:\s+score)?[ \t]*:[ \t]*([^\s/]+)`)
)

// MedicalReportExtractor reads the medical report. Every field is optional.
type MedicalReportExtractor struct{}

// Kind implements Extractor.
func (MedicalReportExtractor) Kind() types.DocumentKind { return types.KindMedicalReport }

// Extract implements Extractor.
func (MedicalReportExtractor) Extract(doc types.RawDocument) (types.ExtractedRecord, []types.Finding) {
	rec := types.NewRecord(types.KindMedicalReport, doc.Name)
	f := newFieldReader(doc)

	rec.Medical.Diagnosis = f.str("diagnosis", diagnosisRe, types.SeverityInfo)
	rec.Medical.SeverityScore = f.count("severityScore", severityRe, types.SeverityInfo)

	return rec, f.findings
}
