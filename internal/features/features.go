// Package features encodes a verified applicant as the fixed-order numeric
// vector consumed by the eligibility classifier.
package features

import (
	"fmt"

	"github.com/Roosh27/Sovereign-AI-Verifier/internal/normalize"
	"github.com/Roosh27/Sovereign-AI-Verifier/internal/types"
)

// SchemaVersion identifies the feature order and categorical encodings below.
// Changing either requires retraining the classifier and bumping the version.
const SchemaVersion = "eligibility-v1"

// MaritalStatusCodes is the training-time encoding of marital status.
var MaritalStatusCodes = map[string]int{
	normalize.MaritalSingle:   0,
	normalize.MaritalMarried:  1,
	normalize.MaritalDivorced: 2,
	normalize.MaritalWidowed:  3,
}

// EmploymentStatusCodes is the training-time encoding of employment status.
var EmploymentStatusCodes = map[string]int{
	normalize.EmploymentEmployed:     0,
	normalize.EmploymentUnemployed:   1,
	normalize.EmploymentRetired:      2,
	normalize.EmploymentStudent:      3,
	normalize.EmploymentSelfEmployed: 4,
}

// EncodingError is returned when a categorical value has no code.
type EncodingError struct {
	Field string
	Value string
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("no %s encoding for %q in schema %s", e.Field, e.Value, SchemaVersion)
}

// Build assembles the feature vector from a validated declaration and record
// set. Monthly income is the bank salary (falling back to the credit report),
// savings come from the credit report and property value from the asset sheet.
// hasDisability is 1 iff a medical report is present with a severity above 0.
func Build(decl types.ApplicantDeclaration, records map[types.DocumentKind]types.ExtractedRecord) (types.FeatureVector, error) {
	marital, ok := encode(MaritalStatusCodes, decl.MaritalStatus, normalize.MaritalStatus)
	if !ok {
		return types.FeatureVector{}, &EncodingError{Field: "marital_status", Value: decl.MaritalStatus}
	}
	employment, ok := encode(EmploymentStatusCodes, decl.EmploymentStatus, normalize.EmploymentStatus)
	if !ok {
		return types.FeatureVector{}, &EncodingError{Field: "employment_status", Value: decl.EmploymentStatus}
	}

	v := types.FeatureVector{
		Age:                  float64(decl.Age),
		MaritalStatusCode:    float64(marital),
		FamilySize:           float64(decl.FamilySize),
		Dependents:           float64(decl.Dependents),
		EmploymentStatusCode: float64(employment),
	}

	if rec, ok := records[types.KindBankStatement]; ok && rec.Bank != nil && rec.Bank.MonthlySalary != nil {
		v.MonthlyIncome = *rec.Bank.MonthlySalary
	} else if rec, ok := records[types.KindCreditReport]; ok && rec.Credit != nil && rec.Credit.ReportedIncome != nil {
		v.MonthlyIncome = *rec.Credit.ReportedIncome
	}
	if rec, ok := records[types.KindCreditReport]; ok && rec.Credit != nil && rec.Credit.TotalSavings != nil {
		v.TotalSavings = *rec.Credit.TotalSavings
	}
	if rec, ok := records[types.KindAssetSheet]; ok && rec.Assets != nil && rec.Assets.TotalAssetValue != nil {
		v.PropertyValue = *rec.Assets.TotalAssetValue
	}
	if rec, ok := records[types.KindMedicalReport]; ok && rec.Medical != nil && rec.Medical.SeverityScore != nil {
		v.MedicalSeverity = float64(*rec.Medical.SeverityScore)
		if *rec.Medical.SeverityScore > 0 {
			v.HasDisability = 1
		}
	}

	return v, nil
}

// encode looks up a categorical value, canonicalizing it first.
func encode(table map[string]int, value string, canonical func(string) (string, bool)) (int, bool) {
	if c, ok := canonical(value); ok {
		value = c
	}
	code, ok := table[value]
	return code, ok
}
