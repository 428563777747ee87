// Package normalize canonicalizes extracted records and applicant
// declarations so that values from different sources can be compared.
package normalize

import "strings"

// Canonical marital statuses
const (
	MaritalSingle   = "Single"
	MaritalMarried  = "Married"
	MaritalDivorced = "Divorced"
	MaritalWidowed  = "Widowed"
)

// Canonical employment statuses
const (
	EmploymentEmployed     = "Employed"
	EmploymentUnemployed   = "Unemployed"
	EmploymentRetired      = "Retired"
	EmploymentStudent      = "Student"
	EmploymentSelfEmployed = "Self-Employed"
)

// maritalNormalizations maps lowercase variants to canonical marital statuses.
var maritalNormalizations = map[string]string{
	"single":        MaritalSingle,
	"unmarried":     MaritalSingle,
	"never married": MaritalSingle,
	"married":       MaritalMarried,
	"divorced":      MaritalDivorced,
	"separated":     MaritalDivorced,
	"widowed":       MaritalWidowed,
	"widow":         MaritalWidowed,
	"widower":       MaritalWidowed,
}

// employmentNormalizations maps lowercase variants to canonical employment statuses.
var employmentNormalizations = map[string]string{
	"employed":      EmploymentEmployed,
	"full-time":     EmploymentEmployed,
	"full time":     EmploymentEmployed,
	"part-time":     EmploymentEmployed,
	"part time":     EmploymentEmployed,
	"unemployed":    EmploymentUnemployed,
	"jobless":       EmploymentUnemployed,
	"retired":       EmploymentRetired,
	"student":       EmploymentStudent,
	"self-employed": EmploymentSelfEmployed,
	"self employed": EmploymentSelfEmployed,
	"freelancer":    EmploymentSelfEmployed,
}

// MaritalStatus returns the canonical form of a marital status and whether it
// is known.
func MaritalStatus(s string) (string, bool) {
	canonical, ok := maritalNormalizations[lookupKey(s)]
	return canonical, ok
}

// EmploymentStatus returns the canonical form of an employment status and
// whether it is known.
func EmploymentStatus(s string) (string, bool) {
	canonical, ok := employmentNormalizations[lookupKey(s)]
	return canonical, ok
}

// Identifier uppercases s and collapses internal whitespace. Identity numbers
// and names are compared in this form.
func Identifier(s string) string {
	return strings.ToUpper(strings.Join(strings.Fields(s), " "))
}

// SameIdentifier reports whether a and b are equal ignoring case and whitespace runs.
func SameIdentifier(a, b string) bool {
	return Identifier(a) == Identifier(b)
}

func lookupKey(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}
