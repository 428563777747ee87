package validation

import (
	"fmt"
	"math"

	"github.com/Roosh27/Sovereign-AI-Verifier/internal/normalize"
	"github.com/Roosh27/Sovereign-AI-Verifier/internal/parsing"
	"github.com/Roosh27/Sovereign-AI-Verifier/internal/types"
)

// DefaultIncomeTolerance is the largest accepted difference between the bank
// salary and the income reported to the credit bureau.
const DefaultIncomeTolerance = 500.0

// Status is the outcome of cross-validation.
type Status string

// Cross-validation outcomes
const (
	StatusValidated Status = "VALIDATED"
	StatusRejected  Status = "REJECTED"
)

// Policy holds the tolerances used by CrossValidate.
type Policy struct {
	IncomeTolerance float64 `json:"income_tolerance" yaml:"income_tolerance"`
}

// DefaultPolicy returns the policy used when none is configured.
func DefaultPolicy() Policy {
	return Policy{IncomeTolerance: DefaultIncomeTolerance}
}

// Result is the verdict of cross-validation with every finding collected.
type Result struct {
	Status   Status         `json:"status"`
	Findings types.Findings `json:"findings"`
}

// NewResult derives the status from findings: REJECTED iff any Fail exists.
func NewResult(findings types.Findings) Result {
	status := StatusValidated
	if findings.HasFail() {
		status = StatusRejected
	}
	return Result{Status: status, Findings: findings}
}

// Rejected reports whether the result blocks the run.
func (r Result) Rejected() bool {
	return r.Status == StatusRejected
}

// Err returns a *Failure for a rejected result and nil otherwise.
func (r Result) Err() error {
	if !r.Rejected() {
		return nil
	}
	return NewFailure(r.Findings)
}

var (
	requiredKinds = []types.DocumentKind{
		types.KindIdentity,
		types.KindBankStatement,
		types.KindCreditReport,
		types.KindAssetSheet,
	}
	optionalKinds = []types.DocumentKind{
		types.KindMedicalReport,
		types.KindResume,
	}
)

// CrossValidate checks normalized records against each other and against the
// declaration. Checks always run in the same order (identity, family size,
// income, completeness) and every finding is returned, not only the first.
func CrossValidate(decl types.ApplicantDeclaration, records map[types.DocumentKind]types.ExtractedRecord, policy Policy) Result {
	var findings types.Findings

	// 1. Identity consistency
	findings = append(findings, checkIdentity(decl, records)...)

	// 2. Family size consistency
	findings = append(findings, checkFamilySize(decl, records)...)

	// 3. Income harmonization
	findings = append(findings, checkIncome(records, policy)...)

	// 4. Completeness
	findings = append(findings, checkCompleteness(records)...)

	return NewResult(findings)
}

func checkIdentity(decl types.ApplicantDeclaration, records map[types.DocumentKind]types.ExtractedRecord) []types.Finding {
	docs := []types.DocumentKind{types.KindIdentity}
	rec, ok := records[types.KindIdentity]
	if !ok || rec.Identity == nil {
		return []types.Finding{{
			Check:     types.CheckIdentity,
			Field:     "idNumber",
			Documents: docs,
			Expected:  decl.IDNumber,
			Severity:  types.SeverityFail,
			Message:   "cannot verify idNumber: Identity document is missing",
		}}
	}

	var findings []types.Finding
	if rec.Identity.IDNumber == nil {
		findings = append(findings, types.Finding{
			Check:     types.CheckIdentity,
			Field:     "idNumber",
			Documents: docs,
			Expected:  decl.IDNumber,
			Severity:  types.SeverityFail,
			Message:   "idNumber is missing from the Identity document",
		})
	} else if !normalize.SameIdentifier(*rec.Identity.IDNumber, decl.IDNumber) {
		findings = append(findings, types.Finding{
			Check:     types.CheckIdentity,
			Field:     "idNumber",
			Documents: docs,
			Expected:  decl.IDNumber,
			Observed:  *rec.Identity.IDNumber,
			Severity:  types.SeverityFail,
			Message:   fmt.Sprintf("idNumber mismatch: declared %q, Identity document shows %q", decl.IDNumber, *rec.Identity.IDNumber),
		})
	}

	if rec.Identity.FullName == nil {
		findings = append(findings, types.Finding{
			Check:     types.CheckIdentity,
			Field:     "fullName",
			Documents: docs,
			Expected:  decl.Name,
			Severity:  types.SeverityFail,
			Message:   "fullName is missing from the Identity document",
		})
	} else if !normalize.SameIdentifier(*rec.Identity.FullName, decl.Name) {
		findings = append(findings, types.Finding{
			Check:     types.CheckIdentity,
			Field:     "fullName",
			Documents: docs,
			Expected:  decl.Name,
			Observed:  *rec.Identity.FullName,
			Severity:  types.SeverityFail,
			Message:   fmt.Sprintf("name mismatch: declared %q, Identity document shows %q", decl.Name, *rec.Identity.FullName),
		})
	}
	return findings
}

func checkFamilySize(decl types.ApplicantDeclaration, records map[types.DocumentKind]types.ExtractedRecord) []types.Finding {
	rec, ok := records[types.KindIdentity]
	if !ok || rec.Identity == nil {
		// Reported by the identity and completeness checks.
		return nil
	}
	expected := fmt.Sprint(decl.FamilySize)
	if rec.Identity.FamilySize == nil {
		return []types.Finding{{
			Check:     types.CheckFamilySize,
			Field:     "familySize",
			Documents: []types.DocumentKind{types.KindIdentity},
			Expected:  expected,
			Severity:  types.SeverityFail,
			Message:   "cannot verify familySize: not found in the Identity document",
		}}
	}
	if *rec.Identity.FamilySize != decl.FamilySize {
		return []types.Finding{{
			Check:     types.CheckFamilySize,
			Field:     "familySize",
			Documents: []types.DocumentKind{types.KindIdentity},
			Expected:  expected,
			Observed:  fmt.Sprint(*rec.Identity.FamilySize),
			Severity:  types.SeverityFail,
			Message:   fmt.Sprintf("familySize mismatch: declared %d, Identity document shows %d", decl.FamilySize, *rec.Identity.FamilySize),
		}}
	}
	return nil
}

func checkIncome(records map[types.DocumentKind]types.ExtractedRecord, policy Policy) []types.Finding {
	bank, ok := records[types.KindBankStatement]
	if !ok || bank.Bank == nil || bank.Bank.MonthlySalary == nil {
		return nil
	}
	credit, ok := records[types.KindCreditReport]
	if !ok || credit.Credit == nil || credit.Credit.ReportedIncome == nil {
		return nil
	}

	salary := *bank.Bank.MonthlySalary
	reported := *credit.Credit.ReportedIncome
	diff := math.Abs(salary - reported)
	if diff == 0 {
		return nil
	}

	f := types.Finding{
		Check:     types.CheckIncome,
		Field:     "monthlyIncome",
		Documents: []types.DocumentKind{types.KindBankStatement, types.KindCreditReport},
		Expected:  parsing.FormatAmount(salary),
		Observed:  parsing.FormatAmount(reported),
	}
	if diff > policy.IncomeTolerance {
		f.Severity = types.SeverityFail
		f.Message = fmt.Sprintf("income mismatch: BankStatement salary %s vs CreditReport reported income %s differ by %s, more than the allowed %s",
			parsing.FormatAmount(salary), parsing.FormatAmount(reported), parsing.FormatAmount(diff), parsing.FormatAmount(policy.IncomeTolerance))
	} else {
		f.Severity = types.SeverityInfo
		f.Message = fmt.Sprintf("income differs by %s (BankStatement %s, CreditReport %s), within the allowed %s",
			parsing.FormatAmount(diff), parsing.FormatAmount(salary), parsing.FormatAmount(reported), parsing.FormatAmount(policy.IncomeTolerance))
	}
	return []types.Finding{f}
}

func checkCompleteness(records map[types.DocumentKind]types.ExtractedRecord) []types.Finding {
	var findings []types.Finding
	for _, kind := range requiredKinds {
		rec, ok := records[kind]
		switch {
		case !ok:
			findings = append(findings, types.Finding{
				Check:     types.CheckCompleteness,
				Documents: []types.DocumentKind{kind},
				Severity:  types.SeverityFail,
				Message:   fmt.Sprintf("%s document is missing", kind),
			})
		case !hasMandatoryField(rec):
			findings = append(findings, types.Finding{
				Check:     types.CheckCompleteness,
				Documents: []types.DocumentKind{kind},
				Severity:  types.SeverityFail,
				Message:   fmt.Sprintf("no mandatory field could be extracted from the %s document", kind),
			})
		}
	}
	for _, kind := range optionalKinds {
		if _, ok := records[kind]; !ok {
			findings = append(findings, types.Finding{
				Check:     types.CheckCompleteness,
				Documents: []types.DocumentKind{kind},
				Severity:  types.SeverityInfo,
				Message:   fmt.Sprintf("optional %s document not provided", kind),
			})
		}
	}
	return findings
}

// hasMandatoryField reports whether at least one mandatory field of the
// record's kind was extracted.
func hasMandatoryField(rec types.ExtractedRecord) bool {
	switch rec.Kind {
	case types.KindIdentity:
		return rec.Identity != nil && (rec.Identity.IDNumber != nil || rec.Identity.FullName != nil)
	case types.KindBankStatement:
		return rec.Bank != nil && rec.Bank.MonthlySalary != nil
	case types.KindCreditReport:
		return rec.Credit != nil && (rec.Credit.ReportedIncome != nil || rec.Credit.TotalSavings != nil)
	case types.KindAssetSheet:
		return rec.Assets != nil && rec.Assets.TotalAssetValue != nil
	default:
		return true
	}
}
