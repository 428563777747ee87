package types

import "github.com/go-playground/validator/v10"

// ApplicantDeclaration holds the demographic values submitted by the operator.
// Documents are checked against it.
type ApplicantDeclaration struct {
	Name             string `json:"name" validate:"required,min=1"`
	IDNumber         string `json:"id_number" validate:"required,min=1"`
	Age              int    `json:"age"`
	Address          string `json:"address,omitempty"`
	MaritalStatus    string `json:"marital_status" validate:"required"`
	FamilySize       int    `json:"family_size"`
	Dependents       int    `json:"dependents"`
	EmploymentStatus string `json:"employment_status" validate:"required"`
}

// Validate checks that the required declaration fields are present. Range
// checks are reported as findings by the normalizer instead.
func (d *ApplicantDeclaration) Validate() error {
	validate := validator.New()
	return validate.Struct(d)
}
