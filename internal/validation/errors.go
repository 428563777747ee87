// Package validation cross-checks extracted document records against each
// other and against the applicant declaration.
package validation

import (
	"fmt"
	"strings"

	"github.com/Roosh27/Sovereign-AI-Verifier/internal/types"
)

// ReasonValidationFailed is the reason code of a rejected run.
const ReasonValidationFailed = "validation_failed"

// Failure is returned when a run is rejected because at least one Fail
// finding exists. It can only be resolved by resubmitting corrected documents.
type Failure struct {
	Reason   string
	Messages []string
	Findings types.Findings
	Cause    error
}

// NewFailure builds a Failure from the Fail findings of a result.
func NewFailure(findings types.Findings) *Failure {
	fails := findings.Fails()
	return &Failure{
		Reason:   ReasonValidationFailed,
		Messages: fails.Messages(),
		Findings: fails,
	}
}

func (e *Failure) Error() string {
	msg := strings.Join(e.Messages, "; ")
	if e.Cause != nil {
		return fmt.Sprintf("validation failed: %s: %v", msg, e.Cause)
	}
	return fmt.Sprintf("validation failed: %s", msg)
}

func (e *Failure) Unwrap() error {
	return e.Cause
}
