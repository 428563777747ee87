package types

import "strings"

// Severity grades a finding. Only SeverityFail blocks a run.
type Severity string

// Severity levels
const (
	SeverityFail    Severity = "fail"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// Check names used on findings
const (
	CheckExtraction    = "extraction"
	CheckNormalization = "normalization"
	CheckIdentity      = "identity"
	CheckFamilySize    = "family_size"
	CheckIncome        = "income"
	CheckCompleteness  = "completeness"
	CheckOwnership     = "ownership"
)

// Finding is one structured consistency-check result.
type Finding struct {
	Check     string         `json:"check"`
	Field     string         `json:"field,omitempty"`
	Documents []DocumentKind `json:"documents,omitempty"`
	Expected  string         `json:"expected,omitempty"`
	Observed  string         `json:"observed,omitempty"`
	Severity  Severity       `json:"severity"`
	Message   string         `json:"message"`
}

// IsFail reports whether the finding blocks the run.
func (f Finding) IsFail() bool {
	return f.Severity == SeverityFail
}

// Findings is an ordered audit trail of findings.
type Findings []Finding

// HasFail reports whether any finding has Fail severity.
func (fs Findings) HasFail() bool {
	for _, f := range fs {
		if f.IsFail() {
			return true
		}
	}
	return false
}

// Fails returns only the Fail-severity findings, preserving order.
func (fs Findings) Fails() Findings {
	var out Findings
	for _, f := range fs {
		if f.IsFail() {
			out = append(out, f)
		}
	}
	return out
}

// BySeverity returns findings with the given severity.
func (fs Findings) BySeverity(s Severity) Findings {
	var out Findings
	for _, f := range fs {
		if f.Severity == s {
			out = append(out, f)
		}
	}
	return out
}

// Messages returns the message of every finding in order.
func (fs Findings) Messages() []string {
	out := make([]string, 0, len(fs))
	for _, f := range fs {
		out = append(out, f.Message)
	}
	return out
}

// Summary joins the Fail messages into a single line.
func (fs Findings) Summary() string {
	return strings.Join(fs.Fails().Messages(), "; ")
}
