package schemas

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Roosh27/Sovereign-AI-Verifier/internal/types"
)

func TestEmbeddedSchemas_Compile(t *testing.T) {
	for _, name := range Names() {
		t.Run(name, func(t *testing.T) {
			data, err := schemaFS.ReadFile(name + ".schema.json")
			require.NoError(t, err)
			var doc map[string]any
			require.NoError(t, json.Unmarshal(data, &doc), "schema must be valid JSON")
			assert.Contains(t, doc, "$schema")

			_, err = load(name)
			require.NoError(t, err)
		})
	}
}

func TestValidate_UnknownSchema(t *testing.T) {
	err := Validate("bullets", []byte(`{}`))
	var loadErr *SchemaLoadError
	require.True(t, errors.As(err, &loadErr))
	assert.Contains(t, err.Error(), "unknown schema")
}

func TestValidate_Declaration(t *testing.T) {
	decl := types.ApplicantDeclaration{
		Name:             "Ahmed Ali",
		IDNumber:         "784-1990-1234567-1",
		Age:              35,
		MaritalStatus:    "Single",
		FamilySize:       1,
		EmploymentStatus: "Employed",
	}
	data, err := json.Marshal(decl)
	require.NoError(t, err)
	assert.NoError(t, Validate(Declaration, data))
}

func TestValidate_DeclarationErrors(t *testing.T) {
	tests := []struct {
		name  string
		doc   string
		field string
	}{
		{
			name:  "missing id number",
			doc:   `{"name": "Ahmed Ali", "marital_status": "Single", "employment_status": "Employed"}`,
			field: "(root)",
		},
		{
			name:  "age as string",
			doc:   `{"name": "Ahmed Ali", "id_number": "784", "age": "35", "marital_status": "Single", "employment_status": "Employed"}`,
			field: "age",
		},
		{
			name:  "empty name",
			doc:   `{"name": "", "id_number": "784", "marital_status": "Single", "employment_status": "Employed"}`,
			field: "name",
		},
		{
			name:  "unknown field",
			doc:   `{"name": "A", "id_number": "784", "marital_status": "Single", "employment_status": "Employed", "income": 5000}`,
			field: "(root)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(Declaration, []byte(tt.doc))
			require.Error(t, err)

			var validationErr *ValidationError
			require.True(t, errors.As(err, &validationErr))
			assert.Equal(t, Declaration, validationErr.Schema)
			fields := make([]string, 0, len(validationErr.Errors))
			for _, fe := range validationErr.Errors {
				fields = append(fields, fe.Field)
			}
			assert.Contains(t, fields, tt.field)
		})
	}
}

func TestValidate_MalformedDocument(t *testing.T) {
	err := Validate(Declaration, []byte(`{"name": `))
	var docErr *DocumentError
	assert.True(t, errors.As(err, &docErr))
}

func TestValidate_Verdicts(t *testing.T) {
	decided := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	confidence := 0.82
	explanation := "Your declared income matches your bank statement."

	tests := []struct {
		name    string
		verdict types.Verdict
		valid   bool
	}{
		{
			name: "accepted with recommendation",
			verdict: types.Verdict{
				Status:     types.StatusAccepted,
				Message:    "Congratulations Ahmed Ali, your application is accepted.",
				Confidence: &confidence,
				Recommendation: &types.Recommendation{
					Category:  types.EconomicEnablement,
					Rationale: "Stable income and no reported disability.",
				},
				Explanation: &explanation,
				DecidedAt:   decided,
			},
			valid: true,
		},
		{
			name: "rejected with findings",
			verdict: types.Verdict{
				Status:     types.StatusRejected,
				ReasonCode: "validation_failed",
				Messages:   []string{"declared income differs from bank statement"},
				Findings: types.Findings{{
					Check:     types.CheckIncome,
					Field:     "monthlyIncome",
					Documents: []types.DocumentKind{types.KindBankStatement},
					Severity:  types.SeverityFail,
					Message:   "declared income differs from bank statement",
				}},
				DecidedAt: decided,
			},
			valid: true,
		},
		{
			name: "soft declined without findings",
			verdict: types.Verdict{
				Status:    types.StatusSoftDeclined,
				DecidedAt: decided,
			},
			valid: true,
		},
		{
			name: "accepted without recommendation",
			verdict: types.Verdict{
				Status:    types.StatusAccepted,
				DecidedAt: decided,
			},
			valid: false,
		},
		{
			name: "soft declined with recommendation",
			verdict: types.Verdict{
				Status:         types.StatusSoftDeclined,
				Recommendation: &types.Recommendation{Category: types.FinancialSupport, Rationale: "x"},
				DecidedAt:      decided,
			},
			valid: false,
		},
		{
			name: "inference unavailable without reason",
			verdict: types.Verdict{
				Status:    types.StatusInferenceUnavailable,
				DecidedAt: decided,
			},
			valid: false,
		},
		{
			name: "unknown status",
			verdict: types.Verdict{
				Status:    "Pending",
				DecidedAt: decided,
			},
			valid: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := json.Marshal(tt.verdict)
			require.NoError(t, err)

			err = Validate(Verdict, data)
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestValidateFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "declaration.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"name": "A", "id_number": "1", "marital_status": "Single", "employment_status": "Employed"}`), 0o644))

	assert.NoError(t, ValidateFile(Declaration, path))

	err := ValidateFile(Declaration, filepath.Join(dir, "missing.json"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestValidateJSONString(t *testing.T) {
	schema := `{"type": "object", "required": ["name"], "properties": {"name": {"type": "string"}}}`

	assert.NoError(t, ValidateJSONString(schema, `{"name": "test"}`))

	err := ValidateJSONString(schema, `{}`)
	var validationErr *ValidationError
	require.True(t, errors.As(err, &validationErr))
	assert.Len(t, validationErr.Errors, 1)
}

func TestValidationError_Error(t *testing.T) {
	err := &ValidationError{
		Schema: Declaration,
		Errors: []FieldError{
			{Field: "name", Message: "is required"},
			{Field: "age", Message: "must be integer"},
		},
	}

	msg := err.Error()
	assert.Contains(t, msg, "declaration validation failed")
	assert.Contains(t, msg, "1. name: is required")
	assert.Contains(t, msg, "2. age: must be integer")
}
