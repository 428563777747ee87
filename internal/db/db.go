package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Roosh27/Sovereign-AI-Verifier/internal/types"
)

// DB wraps a PostgreSQL connection pool
type DB struct {
	pool *pgxpool.Pool
}

var _ Store = (*DB)(nil)

// Connect establishes a connection pool to the database
func Connect(ctx context.Context, databaseURL string) (*DB, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Verify connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{pool: pool}, nil
}

// Close closes the connection pool
func (db *DB) Close() {
	if db.pool != nil {
		db.pool.Close()
	}
}

// Migrate creates the tables if they do not exist
func (db *DB) Migrate(ctx context.Context) error {
	stmts, err := schemaStatements("postgres.sql")
	if err != nil {
		return err
	}
	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin migration: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	for _, stmt := range stmts {
		if _, err := tx.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to migrate: %w", err)
		}
	}
	return tx.Commit(ctx)
}

// CreateApplication inserts a new application in the Validating stage
func (db *DB) CreateApplication(ctx context.Context, id uuid.UUID, decl types.ApplicantDeclaration) (*Application, error) {
	app := Application{ID: id, Declaration: decl, Stage: types.StageValidating}
	err := db.pool.QueryRow(ctx,
		`INSERT INTO applications (id, applicant, id_number, declaration, stage)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING created_at, updated_at`,
		id, decl.Name, decl.IDNumber, jsonOf(decl), string(types.StageValidating),
	).Scan(&app.CreatedAt, &app.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create application: %w", err)
	}
	return &app, nil
}

// SaveDocument stores an uploaded document
func (db *DB) SaveDocument(ctx context.Context, applicationID uuid.UUID, doc types.RawDocument) error {
	rows := jsonColumn[[][]string]{V: doc.Rows, Valid: doc.Rows != nil}
	_, err := db.pool.Exec(ctx,
		`INSERT INTO application_documents (application_id, kind, file_name, text_content, rows_content)
		 VALUES ($1, $2, $3, $4, $5)`,
		applicationID, string(doc.Kind), doc.Name, doc.Text, rows,
	)
	if err != nil {
		return fmt.Errorf("failed to save %s document: %w", doc.Kind, err)
	}
	return nil
}

// ListDocuments returns the documents of an application in upload order
func (db *DB) ListDocuments(ctx context.Context, applicationID uuid.UUID) ([]types.RawDocument, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT kind, file_name, text_content, rows_content
		 FROM application_documents WHERE application_id = $1 ORDER BY id`,
		applicationID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	defer rows.Close()

	var docs []types.RawDocument
	for rows.Next() {
		var kind, name, text string
		var cells jsonColumn[[][]string]
		if err := rows.Scan(&kind, &name, &text, &cells); err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		docs = append(docs, types.NewRawDocument(types.DocumentKind(kind), name, text, cells.V))
	}
	return docs, rows.Err()
}

// SaveExtraction stores the extracted record of one document, replacing an
// earlier extraction of the same kind
func (db *DB) SaveExtraction(ctx context.Context, applicationID uuid.UUID, rec types.ExtractedRecord) error {
	_, err := db.pool.Exec(ctx,
		`INSERT INTO document_extractions (application_id, kind, record)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (application_id, kind) DO UPDATE SET record = $3, created_at = NOW()`,
		applicationID, string(rec.Kind), jsonOf(rec),
	)
	if err != nil {
		return fmt.Errorf("failed to save %s extraction: %w", rec.Kind, err)
	}
	return nil
}

// RecordTransition appends a stage change to the audit log
func (db *DB) RecordTransition(ctx context.Context, applicationID uuid.UUID, t types.Transition) error {
	_, err := db.pool.Exec(ctx,
		`INSERT INTO audit_logs (application_id, from_stage, to_stage, detail, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		applicationID, string(t.From), string(t.To), t.Detail, t.At,
	)
	if err != nil {
		return fmt.Errorf("failed to record transition: %w", err)
	}
	_, err = db.pool.Exec(ctx,
		`UPDATE applications SET stage = $1, updated_at = NOW() WHERE id = $2 AND completed_at IS NULL`,
		string(t.To), applicationID,
	)
	if err != nil {
		return fmt.Errorf("failed to update stage: %w", err)
	}
	return nil
}

// CompleteApplication stores the terminal stage, verdict and findings of a run
func (db *DB) CompleteApplication(ctx context.Context, run types.VerificationRun) error {
	verdict := jsonColumn[*types.Verdict]{V: run.Verdict, Valid: run.Verdict != nil}
	result, err := db.pool.Exec(ctx,
		`UPDATE applications
		 SET stage = $1, verdict = $2, findings = $3, updated_at = NOW(), completed_at = $4
		 WHERE id = $5 AND completed_at IS NULL`,
		string(run.Stage), verdict, jsonOf(run.Findings), completedAt(run), run.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to complete application: %w", err)
	}
	if result.RowsAffected() == 0 {
		return notCompletable(ctx, db, run.ID)
	}
	return nil
}

// AttachExplanation replaces the stored verdict of a completed application
// with run's verdict, which differs only by its explanation.
func (db *DB) AttachExplanation(ctx context.Context, run types.VerificationRun) error {
	if run.Verdict == nil {
		return fmt.Errorf("run %s has no verdict", run.ID)
	}
	result, err := db.pool.Exec(ctx,
		`UPDATE applications SET verdict = $1, updated_at = NOW()
		 WHERE id = $2 AND completed_at IS NOT NULL`,
		jsonOf(run.Verdict), run.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to store explanation: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("application %s has no stored verdict", run.ID)
	}
	return nil
}

const applicationColumns = `id, declaration, stage, verdict, findings, created_at, updated_at, completed_at`

// GetApplication retrieves an application by ID
func (db *DB) GetApplication(ctx context.Context, id uuid.UUID) (*Application, error) {
	row := db.pool.QueryRow(ctx,
		`SELECT `+applicationColumns+` FROM applications WHERE id = $1`, id)
	app, err := scanPgApplication(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get application: %w", err)
	}
	return app, nil
}

// ListApplications retrieves recent applications, newest first
func (db *DB) ListApplications(ctx context.Context, filters ApplicationFilters) ([]Application, error) {
	query := `SELECT ` + applicationColumns + ` FROM applications WHERE 1=1`
	args := []any{}
	argNum := 1

	if filters.Stage != "" {
		query += fmt.Sprintf(" AND stage = $%d", argNum)
		args = append(args, filters.Stage)
		argNum++
	}
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d", argNum)
	args = append(args, normalizeLimit(filters.Limit))

	rows, err := db.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list applications: %w", err)
	}
	defer rows.Close()

	var apps []Application
	for rows.Next() {
		app, err := scanPgApplication(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan application: %w", err)
		}
		apps = append(apps, *app)
	}
	return apps, rows.Err()
}

// ListAuditLogs returns the transitions of an application in order
func (db *DB) ListAuditLogs(ctx context.Context, applicationID uuid.UUID) ([]AuditLog, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT id, application_id, from_stage, to_stage, detail, created_at
		 FROM audit_logs WHERE application_id = $1 ORDER BY id`,
		applicationID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit logs: %w", err)
	}
	defer rows.Close()

	var logs []AuditLog
	for rows.Next() {
		var l AuditLog
		var from, to string
		if err := rows.Scan(&l.ID, &l.ApplicationID, &from, &to, &l.Detail, &l.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan audit log: %w", err)
		}
		l.From, l.To = types.Stage(from), types.Stage(to)
		logs = append(logs, l)
	}
	return logs, rows.Err()
}

func scanPgApplication(row pgx.Row) (*Application, error) {
	var app Application
	var stage string
	var decl jsonColumn[types.ApplicantDeclaration]
	var verdict jsonColumn[types.Verdict]
	var findings jsonColumn[types.Findings]
	if err := row.Scan(&app.ID, &decl, &stage, &verdict, &findings, &app.CreatedAt, &app.UpdatedAt, &app.CompletedAt); err != nil {
		return nil, err
	}
	app.Declaration = decl.V
	app.Stage = types.Stage(stage)
	app.Verdict = verdict.ptr()
	app.Findings = findings.V
	return &app, nil
}

// notCompletable explains why a completing update matched no row.
func notCompletable(ctx context.Context, store Store, id uuid.UUID) error {
	app, err := store.GetApplication(ctx, id)
	if err != nil {
		return err
	}
	if app == nil {
		return fmt.Errorf("application not found: %s", id)
	}
	return fmt.Errorf("%w: %s", ErrAlreadyCompleted, id)
}

// completedAt is the decision time of a terminal run, or nil.
func completedAt(run types.VerificationRun) *time.Time {
	if run.Verdict == nil {
		return nil
	}
	t := run.Verdict.DecidedAt
	return &t
}
