// Package parsing extracts typed fields from application documents. There is
// one Extractor per document kind, looked up through a Registry.
package parsing

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/Roosh27/Sovereign-AI-Verifier/internal/types"
)

// Extractor turns one RawDocument of its kind into an ExtractedRecord plus the
// findings produced while reading it. Extractors are pure and never fail as a
// whole: a missing field becomes a finding.
type Extractor interface {
	Kind() types.DocumentKind
	Extract(doc types.RawDocument) (types.ExtractedRecord, []types.Finding)
}

// Registry is the fixed lookup table from document kind to extractor.
type Registry struct {
	extractors map[types.DocumentKind]Extractor
}

// NewRegistry builds a registry from the given extractors. A later extractor
// for the same kind replaces an earlier one.
func NewRegistry(extractors ...Extractor) *Registry {
	r := &Registry{extractors: make(map[types.DocumentKind]Extractor, len(extractors))}
	for _, e := range extractors {
		r.extractors[e.Kind()] = e
	}
	return r
}

// DefaultRegistry returns a registry with an extractor for every document kind.
func DefaultRegistry() *Registry {
	return NewRegistry(
		IdentityExtractor{},
		BankStatementExtractor{},
		CreditReportExtractor{},
		MedicalReportExtractor{},
		ResumeExtractor{},
		AssetSheetExtractor{},
	)
}

// Lookup returns the extractor registered for kind.
func (r *Registry) Lookup(kind types.DocumentKind) (Extractor, bool) {
	e, ok := r.extractors[kind]
	return e, ok
}

// Extract dispatches doc to its extractor. Empty documents and kinds without
// an extractor yield an empty record and a single Fail finding.
func (r *Registry) Extract(doc types.RawDocument) (types.ExtractedRecord, []types.Finding) {
	e, ok := r.Lookup(doc.Kind)
	if !ok {
		err := &ExtractionError{
			Kind:     doc.Kind,
			Reason:   ReasonUnsupportedKind,
			Messages: []string{fmt.Sprintf("no extractor registered for %q", doc.Kind)},
		}
		return types.ExtractedRecord{Kind: doc.Kind, Source: doc.Name}, []types.Finding{err.Finding()}
	}
	if doc.IsEmpty() {
		err := &ExtractionError{
			Kind:     doc.Kind,
			Reason:   ReasonEmptyDocument,
			Messages: []string{fmt.Sprintf("%s document is empty or unreadable", doc.Kind)},
		}
		return types.NewRecord(doc.Kind, doc.Name), []types.Finding{err.Finding()}
	}
	return e.Extract(doc)
}

// nextLabelRe finds the start of a following "Label:" on the same line, so
// that "Name: Ahmed Ali Nationality: UAE" yields "Ahmed Ali". Multi-word
// labels are only recognised when joined by a lowercase word ("Date of Birth").
var nextLabelRe = regexp.MustCompile(`\s[A-Z][A-Za-z]*(?:\s[a-z]+\s[A-Z][A-Za-z]*)?\s?:`)

// labelValue returns the trimmed first capture of re in text.
func labelValue(text string, re *regexp.Regexp) (string, bool) {
	m := re.FindStringSubmatch(text)
	if len(m) < 2 {
		return "", false
	}
	v := m[1]
	if loc := nextLabelRe.FindStringIndex(v); loc != nil {
		v = v[:loc[0]]
	}
	v = strings.TrimSpace(v)
	return v, v != ""
}

// fieldReader accumulates findings while reading fields of one document.
type fieldReader struct {
	kind     types.DocumentKind
	text     string
	findings []types.Finding
}

func newFieldReader(doc types.RawDocument) *fieldReader {
	return &fieldReader{kind: doc.Kind, text: doc.Text}
}

func (f *fieldReader) missing(field string, sev types.Severity) {
	f.findings = append(f.findings, types.Finding{
		Check:     types.CheckExtraction,
		Field:     field,
		Documents: []types.DocumentKind{f.kind},
		Severity:  sev,
		Message:   fmt.Sprintf("%s not found in %s document", field, f.kind),
	})
}

func (f *fieldReader) unparseable(field, raw, what string) {
	f.findings = append(f.findings, types.Finding{
		Check:     types.CheckExtraction,
		Field:     field,
		Documents: []types.DocumentKind{f.kind},
		Observed:  raw,
		Severity:  types.SeverityFail,
		Message:   fmt.Sprintf("unparseable %s %q for %s in %s document", what, raw, field, f.kind),
	})
}

func (f *fieldReader) note(field string, sev types.Severity, msg string) {
	f.findings = append(f.findings, types.Finding{
		Check:     types.CheckExtraction,
		Field:     field,
		Documents: []types.DocumentKind{f.kind},
		Severity:  sev,
		Message:   msg,
	})
}

// str reads a text field; absence is reported with sev.
func (f *fieldReader) str(field string, re *regexp.Regexp, sev types.Severity) *string {
	v, ok := labelValue(f.text, re)
	if !ok {
		f.missing(field, sev)
		return nil
	}
	return &v
}

// amount reads a monetary field; absence is reported with sev and an
// unparseable value is always a Fail.
func (f *fieldReader) amount(field string, re *regexp.Regexp, sev types.Severity) *float64 {
	raw, ok := labelValue(f.text, re)
	if !ok {
		f.missing(field, sev)
		return nil
	}
	v, err := ParseAmount(raw)
	if err != nil {
		f.unparseable(field, raw, "amount")
		return nil
	}
	return &v
}

// count reads a whole-number field; absence is reported with sev and an
// unparseable value is always a Fail.
func (f *fieldReader) count(field string, re *regexp.Regexp, sev types.Severity) *int {
	raw, ok := labelValue(f.text, re)
	if !ok {
		f.missing(field, sev)
		return nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		f.unparseable(field, raw, "number")
		return nil
	}
	return &n
}
