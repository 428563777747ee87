// Package server provides the HTTP API of the application verifier.
package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"

	"github.com/Roosh27/Sovereign-AI-Verifier/internal/classifier"
	"github.com/Roosh27/Sovereign-AI-Verifier/internal/db"
	"github.com/Roosh27/Sovereign-AI-Verifier/internal/ingestion"
	"github.com/Roosh27/Sovereign-AI-Verifier/internal/validation"
)

// ErrInvalidCredentials indicates invalid operator credentials
type ErrInvalidCredentials struct{}

func (e *ErrInvalidCredentials) Error() string {
	return "invalid username or password"
}

// ErrApplicationNotFound indicates the application does not exist
type ErrApplicationNotFound struct {
	ID uuid.UUID
}

func (e *ErrApplicationNotFound) Error() string {
	return fmt.Sprintf("application not found: %s", e.ID)
}

// ErrAlreadyProcessed indicates the application already holds a verdict
type ErrAlreadyProcessed struct {
	ID    uuid.UUID
	Stage string
}

func (e *ErrAlreadyProcessed) Error() string {
	return fmt.Sprintf("application %s was already processed (stage %s)", e.ID, e.Stage)
}

// ErrValidation indicates request validation failure
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("validation error: %s - %s", e.Field, e.Message)
}

// ErrAuthDisabled indicates token issuance was requested without operator
// credentials or a JWT secret configured
type ErrAuthDisabled struct{}

func (e *ErrAuthDisabled) Error() string {
	return "authentication is not configured"
}

// HTTPStatus returns the appropriate HTTP status code for an error. Wrapped
// errors are unwrapped.
func HTTPStatus(err error) int {
	var (
		validationErr *ErrValidation
		readErr       *ingestion.ReadError
		notFound      *ErrApplicationNotFound
		processed     *ErrAlreadyProcessed
		credentials   *ErrInvalidCredentials
		authDisabled  *ErrAuthDisabled
		failure       *validation.Failure
		inference     *classifier.InferenceError
	)
	switch {
	case errors.As(err, &validationErr), errors.As(err, &readErr):
		return http.StatusBadRequest
	case errors.As(err, &credentials):
		return http.StatusUnauthorized
	case errors.As(err, &notFound), errors.As(err, &authDisabled):
		return http.StatusNotFound
	case errors.As(err, &processed), errors.Is(err, db.ErrAlreadyCompleted):
		return http.StatusConflict
	case errors.As(err, &failure):
		return http.StatusUnprocessableEntity
	case errors.As(err, &inference):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
