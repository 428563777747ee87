package normalize

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/Roosh27/Sovereign-AI-Verifier/internal/types"
)

// Severity score bounds on medical reports
const (
	MinSeverity = 0
	MaxSeverity = 10
)

// Record returns a normalized copy of rec together with findings for values
// that are out of range. The input is not modified and out-of-range values are
// reported, never clamped, so Record(Record(r)) equals Record(r).
func Record(rec types.ExtractedRecord) (types.ExtractedRecord, []types.Finding) {
	out := rec.Clone()
	n := &normalizer{kind: rec.Kind}

	if id := out.Identity; id != nil {
		id.IDNumber = n.identifier(id.IDNumber)
		id.FullName = n.identifier(id.FullName)
		if id.MaritalStatus != nil {
			if canonical, ok := MaritalStatus(*id.MaritalStatus); ok {
				id.MaritalStatus = &canonical
			} else {
				n.fail("maritalStatus", *id.MaritalStatus, "unknown marital status %q", *id.MaritalStatus)
			}
		}
		if id.FamilySize != nil && *id.FamilySize < 1 {
			n.fail("familySize", strconv.Itoa(*id.FamilySize), "family size %d is below 1", *id.FamilySize)
		}
	}
	if b := out.Bank; b != nil {
		b.MonthlySalary = n.money("monthlySalary", b.MonthlySalary, false)
		b.AccountBalance = n.money("accountBalance", b.AccountBalance, true)
	}
	if c := out.Credit; c != nil {
		c.ReportedIncome = n.money("reportedIncome", c.ReportedIncome, false)
		c.TotalSavings = n.money("totalSavings", c.TotalSavings, false)
		c.OutstandingDebt = n.money("outstandingDebt", c.OutstandingDebt, false)
	}
	if m := out.Medical; m != nil {
		if m.Diagnosis != nil {
			d := collapse(*m.Diagnosis)
			m.Diagnosis = &d
		}
		if s := m.SeverityScore; s != nil && (*s < MinSeverity || *s > MaxSeverity) {
			n.fail("severityScore", strconv.Itoa(*s), "severity score %d outside [%d, %d]", *s, MinSeverity, MaxSeverity)
		}
	}
	if a := out.Assets; a != nil {
		a.TotalAssetValue = n.money("totalAssetValue", a.TotalAssetValue, false)
	}

	return out, n.findings
}

// Records normalizes every record in the map and returns the findings in
// document-kind order.
func Records(records map[types.DocumentKind]types.ExtractedRecord) (map[types.DocumentKind]types.ExtractedRecord, []types.Finding) {
	out := make(map[types.DocumentKind]types.ExtractedRecord, len(records))
	var findings []types.Finding
	for _, kind := range types.AllDocumentKinds() {
		rec, ok := records[kind]
		if !ok {
			continue
		}
		normalized, fs := Record(rec)
		out[kind] = normalized
		findings = append(findings, fs...)
	}
	for kind, rec := range records {
		if _, done := out[kind]; !done {
			out[kind] = rec.Clone()
		}
	}
	return out, findings
}

type normalizer struct {
	kind     types.DocumentKind
	findings []types.Finding
}

func (n *normalizer) fail(field, observed, format string, args ...any) {
	n.findings = append(n.findings, types.Finding{
		Check:     types.CheckNormalization,
		Field:     field,
		Documents: []types.DocumentKind{n.kind},
		Observed:  observed,
		Severity:  types.SeverityFail,
		Message:   fmt.Sprintf("%s in %s document: ", field, n.kind) + fmt.Sprintf(format, args...),
	})
}

func (n *normalizer) identifier(p *string) *string {
	if p == nil {
		return nil
	}
	v := Identifier(*p)
	return &v
}

// money rounds an amount to the nearest currency unit. Negative amounts are
// reported unless allowNegative is set.
func (n *normalizer) money(field string, p *float64, allowNegative bool) *float64 {
	if p == nil {
		return nil
	}
	v := Round(*p)
	if v < 0 && !allowNegative {
		n.fail(field, strconv.FormatFloat(v, 'f', -1, 64), "negative amount %s", strconv.FormatFloat(v, 'f', -1, 64))
	}
	return &v
}

// Round rounds an amount to the nearest currency unit, half away from zero.
func Round(v float64) float64 {
	r := math.Round(v)
	if r == 0 {
		return 0
	}
	return r
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
