package normalize

import (
	"fmt"
	"strconv"

	"github.com/Roosh27/Sovereign-AI-Verifier/internal/types"
)

// Limits bounds the declared demographic values.
type Limits struct {
	MinAge        int `json:"min_age" yaml:"min_age"`
	MaxAge        int `json:"max_age" yaml:"max_age"`
	MaxFamilySize int `json:"max_family_size" yaml:"max_family_size"`
	MaxDependents int `json:"max_dependents" yaml:"max_dependents"`
}

// DefaultLimits returns the limits used when none are configured.
func DefaultLimits() Limits {
	return Limits{
		MinAge:        18,
		MaxAge:        100,
		MaxFamilySize: 20,
		MaxDependents: 20,
	}
}

// Declaration returns a normalized copy of decl and a Fail finding for every
// value outside limits or outside the known categories. The name keeps its
// casing with whitespace collapsed; the id number is uppercased.
func Declaration(decl types.ApplicantDeclaration, limits Limits) (types.ApplicantDeclaration, []types.Finding) {
	out := decl
	var findings []types.Finding
	fail := func(field, observed, msg string) {
		findings = append(findings, types.Finding{
			Check:    types.CheckNormalization,
			Field:    field,
			Observed: observed,
			Severity: types.SeverityFail,
			Message:  "declaration " + msg,
		})
	}

	out.Name = collapse(decl.Name)
	out.IDNumber = Identifier(decl.IDNumber)
	out.Address = collapse(decl.Address)

	if out.Name == "" {
		fail("name", decl.Name, "name is empty")
	}
	if out.IDNumber == "" {
		fail("idNumber", decl.IDNumber, "id number is empty")
	}
	if decl.Age < limits.MinAge || decl.Age > limits.MaxAge {
		fail("age", strconv.Itoa(decl.Age), fmt.Sprintf("age %d outside [%d, %d]", decl.Age, limits.MinAge, limits.MaxAge))
	}
	if decl.FamilySize < 1 || decl.FamilySize > limits.MaxFamilySize {
		fail("familySize", strconv.Itoa(decl.FamilySize), fmt.Sprintf("family size %d outside [1, %d]", decl.FamilySize, limits.MaxFamilySize))
	}
	if decl.Dependents < 0 || decl.Dependents > limits.MaxDependents {
		fail("dependents", strconv.Itoa(decl.Dependents), fmt.Sprintf("dependents %d outside [0, %d]", decl.Dependents, limits.MaxDependents))
	}

	if canonical, ok := MaritalStatus(decl.MaritalStatus); ok {
		out.MaritalStatus = canonical
	} else {
		fail("maritalStatus", decl.MaritalStatus, fmt.Sprintf("unknown marital status %q", decl.MaritalStatus))
	}
	if canonical, ok := EmploymentStatus(decl.EmploymentStatus); ok {
		out.EmploymentStatus = canonical
	} else {
		fail("employmentStatus", decl.EmploymentStatus, fmt.Sprintf("unknown employment status %q", decl.EmploymentStatus))
	}

	return out, findings
}
