package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // pure Go sqlite driver

	"github.com/Roosh27/Sovereign-AI-Verifier/internal/types"
)

// SQLite is a Store backed by a local SQLite file. Timestamps are stored as
// fixed-width RFC 3339 text so that they sort chronologically.
type SQLite struct {
	sql *sql.DB
}

var _ Store = (*SQLite)(nil)

// OpenSQLite opens or creates the database at path and applies PRAGMAs. Use
// ":memory:" for a throwaway database.
func OpenSQLite(ctx context.Context, path string) (*SQLite, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)", path)
	sqldb, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	if path == ":memory:" {
		// Every connection to :memory: is a separate database.
		sqldb.SetMaxOpenConns(1)
	}
	if err := sqldb.PingContext(ctx); err != nil {
		_ = sqldb.Close()
		return nil, fmt.Errorf("failed to ping sqlite database: %w", err)
	}

	// Optional PRAGMAs; errors are ignored when unsupported
	for _, p := range []string{"PRAGMA journal_mode=WAL;", "PRAGMA synchronous=NORMAL;"} {
		_, _ = sqldb.ExecContext(ctx, p)
	}
	return &SQLite{sql: sqldb}, nil
}

// Close closes the database
func (s *SQLite) Close() {
	if s.sql != nil {
		_ = s.sql.Close()
	}
}

// Migrate creates the tables if they do not exist
func (s *SQLite) Migrate(ctx context.Context) error {
	stmts, err := schemaStatements("sqlite.sql")
	if err != nil {
		return err
	}
	tx, err := s.sql.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin migration: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, stmt := range stmts {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to migrate: %w", err)
		}
	}
	return tx.Commit()
}

// CreateApplication inserts a new application in the Validating stage
func (s *SQLite) CreateApplication(ctx context.Context, id uuid.UUID, decl types.ApplicantDeclaration) (*Application, error) {
	now := time.Now().UTC()
	_, err := s.sql.ExecContext(ctx,
		`INSERT INTO applications (id, applicant, id_number, declaration, stage, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id.String(), decl.Name, decl.IDNumber, jsonOf(decl), string(types.StageValidating),
		formatTime(now), formatTime(now),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create application: %w", err)
	}
	return &Application{
		ID:          id,
		Declaration: decl,
		Stage:       types.StageValidating,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// SaveDocument stores an uploaded document
func (s *SQLite) SaveDocument(ctx context.Context, applicationID uuid.UUID, doc types.RawDocument) error {
	rows := jsonColumn[[][]string]{V: doc.Rows, Valid: doc.Rows != nil}
	_, err := s.sql.ExecContext(ctx,
		`INSERT INTO application_documents (application_id, kind, file_name, text_content, rows_content, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		applicationID.String(), string(doc.Kind), doc.Name, doc.Text, rows, formatTime(time.Now()),
	)
	if err != nil {
		return fmt.Errorf("failed to save %s document: %w", doc.Kind, err)
	}
	return nil
}

// ListDocuments returns the documents of an application in upload order
func (s *SQLite) ListDocuments(ctx context.Context, applicationID uuid.UUID) ([]types.RawDocument, error) {
	rows, err := s.sql.QueryContext(ctx,
		`SELECT kind, file_name, text_content, rows_content
		 FROM application_documents WHERE application_id = ? ORDER BY id`,
		applicationID.String(),
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
func (s *SQLite) SaveExtraction(ctx context.Context, applicationID uuid.UUID, rec types.ExtractedRecord) error {
	_, err := s.sql.ExecContext(ctx,
		`INSERT INTO document_extractions (application_id, kind, record, created_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT (application_id, kind) DO UPDATE SET record = excluded.record, created_at = excluded.created_at`,
		applicationID.String(), string(rec.Kind), jsonOf(rec), formatTime(time.Now()),
	)
	if err != nil {
		return fmt.Errorf("failed to save %s extraction: %w", rec.Kind, err)
	}
	return nil
}

// RecordTransition appends a stage change to the audit log
func (s *SQLite) RecordTransition(ctx context.Context, applicationID uuid.UUID, t types.Transition) error {
	tx, err := s.sql.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to record transition: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO audit_logs (application_id, from_stage, to_stage, detail, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		applicationID.String(), string(t.From), string(t.To), t.Detail, formatTime(t.At),
	); err != nil {
		return fmt.Errorf("failed to record transition: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE applications SET stage = ?, updated_at = ? WHERE id = ? AND completed_at IS NULL`,
		string(t.To), formatTime(time.Now()), applicationID.String(),
	); err != nil {
		return fmt.Errorf("failed to update stage: %w", err)
	}
	return tx.Commit()
}

// CompleteApplication stores the terminal stage, verdict and findings of a run
func (s *SQLite) CompleteApplication(ctx context.Context, run types.VerificationRun) error {
	verdict := jsonColumn[*types.Verdict]{V: run.Verdict, Valid: run.Verdict != nil}
	var completed sql.NullString
	if t := completedAt(run); t != nil {
		completed = sql.NullString{String: formatTime(*t), Valid: true}
	}

	result, err := s.sql.ExecContext(ctx,
		`UPDATE applications
		 SET stage = ?, verdict = ?, findings = ?, updated_at = ?, completed_at = ?
		 WHERE id = ? AND completed_at IS NULL`,
		string(run.Stage), verdict, jsonOf(run.Findings), formatTime(time.Now()), completed, run.ID.String(),
	)
	if err != nil {
		return fmt.Errorf("failed to complete application: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return notCompletable(ctx, s, run.ID)
	}
	return nil
}

// AttachExplanation replaces the stored verdict of a completed application
// with run's verdict, which differs only by its explanation.
func (s *SQLite) AttachExplanation(ctx context.Context, run types.VerificationRun) error {
	if run.Verdict == nil {
		return fmt.Errorf("run %s has no verdict", run.ID)
	}
	result, err := s.sql.ExecContext(ctx,
		`UPDATE applications SET verdict = ?, updated_at = ?
		 WHERE id = ? AND completed_at IS NOT NULL`,
		jsonOf(run.Verdict), formatTime(time.Now()), run.ID.String(),
	)
	if err != nil {
		return fmt.Errorf("failed to store explanation: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("application %s has no stored verdict", run.ID)
	}
	return nil
}

// GetApplication retrieves an application by ID
func (s *SQLite) GetApplication(ctx context.Context, id uuid.UUID) (*Application, error) {
	row := s.sql.QueryRowContext(ctx,
		`SELECT `+applicationColumns+` FROM applications WHERE id = ?`, id.String())
	app, err := scanSQLiteApplication(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get application: %w", err)
	}
	return app, nil
}

// ListApplications retrieves recent applications, newest first
func (s *SQLite) ListApplications(ctx context.Context, filters ApplicationFilters) ([]Application, error) {
	query := `SELECT ` + applicationColumns + ` FROM applications WHERE 1=1`
	args := []any{}
	if filters.Stage != "" {
		query += " AND stage = ?"
		args = append(args, filters.Stage)
	}
	query += " ORDER BY created_at DESC, rowid DESC LIMIT ?"
	args = append(args, normalizeLimit(filters.Limit))

	rows, err := s.sql.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list applications: %w", err)
	}
	defer rows.Close()

	var apps []Application
	for rows.Next() {
		app, err := scanSQLiteApplication(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan application: %w", err)
		}
		apps = append(apps, *app)
	}
	return apps, rows.Err()
}

// ListAuditLogs returns the transitions of an application in order
func (s *SQLite) ListAuditLogs(ctx context.Context, applicationID uuid.UUID) ([]AuditLog, error) {
	rows, err := s.sql.QueryContext(ctx,
		`SELECT id, application_id, from_stage, to_stage, detail, created_at
		 FROM audit_logs WHERE application_id = ? ORDER BY id`,
		applicationID.String(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit logs: %w", err)
	}
	defer rows.Close()

	var logs []AuditLog
	for rows.Next() {
		var l AuditLog
		var from, to, created string
		if err := rows.Scan(&l.ID, &l.ApplicationID, &from, &to, &l.Detail, &created); err != nil {
			return nil, fmt.Errorf("failed to scan audit log: %w", err)
		}
		l.From, l.To = types.Stage(from), types.Stage(to)
		if l.CreatedAt, err = parseTime(created); err != nil {
			return nil, err
		}
		logs = append(logs, l)
	}
	return logs, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSQLiteApplication(row rowScanner) (*Application, error) {
	var app Application
	var stage, created, updated string
	var completed sql.NullString
	var decl jsonColumn[types.ApplicantDeclaration]
	var verdict jsonColumn[types.Verdict]
	var findings jsonColumn[types.Findings]
	if err := row.Scan(&app.ID, &decl, &stage, &verdict, &findings, &created, &updated, &completed); err != nil {
		return nil, err
	}
	app.Declaration = decl.V
	app.Stage = types.Stage(stage)
	app.Verdict = verdict.ptr()
	app.Findings = findings.V

	var err error
	if app.CreatedAt, err = parseTime(created); err != nil {
		return nil, err
	}
	if app.UpdatedAt, err = parseTime(updated); err != nil {
		return nil, err
	}
	if completed.Valid {
		t, err := parseTime(completed.String)
		if err != nil {
			return nil, err
		}
		app.CompletedAt = &t
	}
	return &app, nil
}

const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timestamp %q: %w", s, err)
	}
	return t, nil
}
