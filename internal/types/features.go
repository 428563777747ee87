package types

// FeatureNames lists the classifier inputs in the exact order the model was
// trained on. Values() returns numbers in this order.
var FeatureNames = []string{
	"age",
	"marital_status",
	"family_size",
	"dependents",
	"monthly_income",
	"total_savings",
	"property_value",
	"has_disability",
	"medical_severity",
	"employment_status",
}

// FeatureVector is the fixed-order numeric encoding of a verified applicant.
type FeatureVector struct {
	Age                  float64 `json:"age"`
	MaritalStatusCode    float64 `json:"marital_status"`
	FamilySize           float64 `json:"family_size"`
	Dependents           float64 `json:"dependents"`
	MonthlyIncome        float64 `json:"monthly_income"`
	TotalSavings         float64 `json:"total_savings"`
	PropertyValue        float64 `json:"property_value"`
	HasDisability        float64 `json:"has_disability"`
	MedicalSeverity      float64 `json:"medical_severity"`
	EmploymentStatusCode float64 `json:"employment_status"`
}

// Values returns the vector as a slice ordered like FeatureNames.
func (v FeatureVector) Values() []float64 {
	return []float64{
		v.Age,
		v.MaritalStatusCode,
		v.FamilySize,
		v.Dependents,
		v.MonthlyIncome,
		v.TotalSavings,
		v.PropertyValue,
		v.HasDisability,
		v.MedicalSeverity,
		v.EmploymentStatusCode,
	}
}

// Disabled reports whether the applicant has a recorded disability.
func (v FeatureVector) Disabled() bool {
	return v.HasDisability == 1
}

// Prediction is the classifier output for one feature vector.
type Prediction struct {
	Label      int     `json:"label"` // 1 = eligible, 0 = ineligible
	Confidence float64 `json:"confidence"`
}

// Eligible reports whether the classifier labelled the applicant eligible.
func (p Prediction) Eligible() bool {
	return p.Label == 1
}
