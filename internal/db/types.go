package db

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Roosh27/Sovereign-AI-Verifier/internal/types"
)

// DefaultListLimit caps ListApplications when no limit is given
const DefaultListLimit = 50

// Application is a stored verification run
type Application struct {
	ID          uuid.UUID                  `json:"id"`
	Declaration types.ApplicantDeclaration `json:"declaration"`
	Stage       types.Stage                `json:"stage"`
	Verdict     *types.Verdict             `json:"verdict,omitempty"`
	Findings    types.Findings             `json:"findings,omitempty"`
	CreatedAt   time.Time                  `json:"created_at"`
	UpdatedAt   time.Time                  `json:"updated_at"`
	CompletedAt *time.Time                 `json:"completed_at,omitempty"`
}

// IsCompleted reports whether the application reached a verdict
func (a *Application) IsCompleted() bool {
	return a.CompletedAt != nil
}

// ApplicationFilters holds optional filters for listing applications
type ApplicationFilters struct {
	Stage string
	Limit int
}

// AuditLog is one stage transition of an application
type AuditLog struct {
	ID            int64       `json:"id"`
	ApplicationID uuid.UUID   `json:"application_id"`
	From          types.Stage `json:"from"`
	To            types.Stage `json:"to"`
	Detail        string      `json:"detail,omitempty"`
	CreatedAt     time.Time   `json:"created_at"`
}

// jsonColumn stores a value as a JSON document. It works for both JSONB
// columns in Postgres and TEXT columns in SQLite.
type jsonColumn[T any] struct {
	V     T
	Valid bool
}

func jsonOf[T any](v T) jsonColumn[T] {
	return jsonColumn[T]{V: v, Valid: true}
}

// Scan implements the Scanner interface
func (c *jsonColumn[T]) Scan(src any) error {
	var data []byte
	switch v := src.(type) {
	case nil:
		c.Valid = false
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into json column", src)
	}
	if err := json.Unmarshal(data, &c.V); err != nil {
		return fmt.Errorf("failed to decode json column: %w", err)
	}
	c.Valid = true
	return nil
}

// Value implements the Valuer interface
func (c jsonColumn[T]) Value() (driver.Value, error) {
	if !c.Valid {
		return nil, nil
	}
	data, err := json.Marshal(c.V)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

func (c jsonColumn[T]) ptr() *T {
	if !c.Valid {
		return nil
	}
	v := c.V
	return &v
}
