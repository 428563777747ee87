// Package db persists applications, their documents and the audit trail of
// every verification run. Postgres (pgx) is used in production and SQLite for
// local runs and tests.
package db

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/Roosh27/Sovereign-AI-Verifier/internal/types"
)

//go:embed schema/*.sql
var schemaFS embed.FS

// ErrAlreadyCompleted is returned when a verdict is stored for an application
// that already has one. The first verdict is kept.
var ErrAlreadyCompleted = errors.New("application already completed")

// Store is the persistence layer used by the server and the CLI. Lookups of
// missing rows return nil and no error. An application is completed at most
// once; only the explanation of a stored verdict may change afterwards.
type Store interface {
	CreateApplication(ctx context.Context, id uuid.UUID, decl types.ApplicantDeclaration) (*Application, error)
	SaveDocument(ctx context.Context, applicationID uuid.UUID, doc types.RawDocument) error
	ListDocuments(ctx context.Context, applicationID uuid.UUID) ([]types.RawDocument, error)
	SaveExtraction(ctx context.Context, applicationID uuid.UUID, rec types.ExtractedRecord) error
	RecordTransition(ctx context.Context, applicationID uuid.UUID, t types.Transition) error
	CompleteApplication(ctx context.Context, run types.VerificationRun) error
	AttachExplanation(ctx context.Context, run types.VerificationRun) error
	GetApplication(ctx context.Context, id uuid.UUID) (*Application, error)
	ListApplications(ctx context.Context, filters ApplicationFilters) ([]Application, error)
	ListAuditLogs(ctx context.Context, applicationID uuid.UUID) ([]AuditLog, error)
	Migrate(ctx context.Context) error
	Close()
}

// Open connects to the store named by databaseURL. postgres:// and
// postgresql:// URLs use Postgres; sqlite:// URLs and plain file paths use
// SQLite.
func Open(ctx context.Context, databaseURL string) (Store, error) {
	switch {
	case strings.HasPrefix(databaseURL, "postgres://"), strings.HasPrefix(databaseURL, "postgresql://"):
		return Connect(ctx, databaseURL)
	case strings.HasPrefix(databaseURL, "sqlite://"):
		return OpenSQLite(ctx, strings.TrimPrefix(databaseURL, "sqlite://"))
	case databaseURL == "":
		return nil, fmt.Errorf("database url is empty")
	default:
		return OpenSQLite(ctx, databaseURL)
	}
}

// schemaStatements returns the statements of an embedded schema file.
func schemaStatements(name string) ([]string, error) {
	data, err := schemaFS.ReadFile("schema/" + name)
	if err != nil {
		return nil, fmt.Errorf("failed to read schema %s: %w", name, err)
	}
	var stmts []string
	for _, stmt := range strings.Split(string(data), ";") {
		if s := strings.TrimSpace(stmt); s != "" {
			stmts = append(stmts, s)
		}
	}
	return stmts, nil
}

func normalizeLimit(limit int) int {
	if limit <= 0 {
		return DefaultListLimit
	}
	return limit
}
