package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/Roosh27/Sovereign-AI-Verifier/internal/db"
	"github.com/Roosh27/Sovereign-AI-Verifier/internal/ingestion"
	"github.com/Roosh27/Sovereign-AI-Verifier/internal/pipeline"
	"github.com/Roosh27/Sovereign-AI-Verifier/internal/schemas"
	"github.com/Roosh27/Sovereign-AI-Verifier/internal/types"
)

const (
	maxDeclarationBytes = 1 << 20
	maxListLimit        = 500
)

// TokenRequest is the body of POST /auth/token
type TokenRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// TokenResponse is returned by POST /auth/token
type TokenResponse struct {
	Token     string    `json:"token"`
	TokenType string    `json:"token_type"`
	ExpiresAt time.Time `json:"expires_at"`
}

// DocumentResponse is returned by POST /applications/{id}/documents
type DocumentResponse struct {
	ApplicationID uuid.UUID           `json:"application_id"`
	Kind          types.DocumentKind  `json:"kind"`
	Metadata      *ingestion.Metadata `json:"metadata"`
}

// ApplicationResponse is returned by GET /applications/{id}
type ApplicationResponse struct {
	*db.Application
	AuditLog []db.AuditLog `json:"audit_log"`
}

// ListResponse is returned by GET /applications
type ListResponse struct {
	Applications []db.Application `json:"applications"`
	Count        int              `json:"count"`
}

// handleToken exchanges operator credentials for a bearer token.
func (s *Server) handleToken(w http.ResponseWriter, r *http.Request) {
	if s.jwtService == nil {
		s.fail(w, r, &ErrAuthDisabled{})
		return
	}

	var req TokenRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 64<<10)).Decode(&req); err != nil {
		s.fail(w, r, &ErrValidation{Field: "body", Message: "invalid JSON"})
		return
	}
	if req.Username == "" || req.Password == "" {
		s.fail(w, r, &ErrValidation{Field: "username", Message: "username and password are required"})
		return
	}
	if !s.passwords.Authenticate(s.operators, req.Username, req.Password) {
		s.log.WithField("username", req.Username).Warn("operator login failed")
		s.fail(w, r, &ErrInvalidCredentials{})
		return
	}

	token, expiresAt, err := s.jwtService.GenerateToken(req.Username)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, TokenResponse{
		Token:     token,
		TokenType: "Bearer",
		ExpiresAt: expiresAt,
	})
}

// handleCreateApplication stores a declaration and opens an application.
func (s *Server) handleCreateApplication(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxDeclarationBytes))
	if err != nil {
		s.fail(w, r, &ErrValidation{Field: "body", Message: "request body too large"})
		return
	}

	decl, err := decodeDeclaration(body)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	app, err := s.store.CreateApplication(r.Context(), uuid.New(), decl)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.log.WithField("application_id", app.ID.String()).Info("application created")
	s.jsonResponse(w, http.StatusCreated, app)
}

// decodeDeclaration checks the body against the declaration schema and the
// struct validation tags.
func decodeDeclaration(body []byte) (types.ApplicantDeclaration, error) {
	var decl types.ApplicantDeclaration
	if err := schemas.Validate(schemas.Declaration, body); err != nil {
		var schemaErr *schemas.ValidationError
		if errors.As(err, &schemaErr) && len(schemaErr.Errors) > 0 {
			first := schemaErr.Errors[0]
			return decl, &ErrValidation{Field: first.Field, Message: first.Message}
		}
		var docErr *schemas.DocumentError
		if errors.As(err, &docErr) {
			return decl, &ErrValidation{Field: "body", Message: "invalid JSON"}
		}
		return decl, err
	}

	if err := json.Unmarshal(body, &decl); err != nil {
		return decl, &ErrValidation{Field: "body", Message: "invalid JSON"}
	}
	if err := decl.Validate(); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			return decl, &ErrValidation{Field: fieldErrs[0].Field(), Message: fieldErrs[0].Tag()}
		}
		return decl, &ErrValidation{Field: "body", Message: err.Error()}
	}
	return decl, nil
}

// handleUploadDocument attaches one document to an open application.
func (s *Server) handleUploadDocument(w http.ResponseWriter, r *http.Request) {
	app, err := s.openApplication(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload+(1<<20))
	if err := r.ParseMultipartForm(s.maxUpload); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.fail(w, r, &ErrValidation{Field: "file", Message: "file too large"})
			return
		}
		s.fail(w, r, &ErrValidation{Field: "file", Message: "invalid multipart upload"})
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	kind, err := types.ParseDocumentKind(r.FormValue("kind"))
	if err != nil {
		s.fail(w, r, &ErrValidation{Field: "kind", Message: err.Error()})
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		s.fail(w, r, &ErrValidation{Field: "file", Message: "file is required"})
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		s.fail(w, r, fmt.Errorf("failed to read upload: %w", err))
		return
	}
	if int64(len(data)) > s.maxUpload {
		s.fail(w, r, &ErrValidation{Field: "file", Message: "file too large"})
		return
	}

	doc, meta, err := ingestion.ReadDocument(kind, header.Filename, data)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if err := s.store.SaveDocument(r.Context(), app.ID, doc); err != nil {
		s.fail(w, r, err)
		return
	}

	s.log.WithFields(logrus.Fields{
		"application_id": app.ID.String(),
		"kind":           kind,
		"format":         meta.Format,
		"size":           meta.Size,
	}).Info("document uploaded")
	s.jsonResponse(w, http.StatusCreated, DocumentResponse{
		ApplicationID: app.ID,
		Kind:          kind,
		Metadata:      meta,
	})
}

// handleProcess runs the decision pipeline over the stored documents. The
// response is the run; the status is 200 for decided verdicts, 422 for a
// rejection and 503 when the classifier was unavailable.
func (s *Server) handleProcess(w http.ResponseWriter, r *http.Request) {
	app, err := s.openApplication(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	run, verdictErr, err := s.process(r.Context(), s.orchestrator, app, wantsExplanation(r))
	if err != nil {
		s.fail(w, r, err)
		return
	}

	status := http.StatusOK
	if verdictErr != nil {
		status = HTTPStatus(verdictErr)
	}
	s.jsonResponse(w, status, run)
}

// handleProcessStream runs the pipeline and streams stage transitions as
// server-sent events, ending with the run.
func (s *Server) handleProcessStream(w http.ResponseWriter, r *http.Request) {
	app, err := s.openApplication(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	sse, err := NewSSEWriter(w)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}

	orch := s.orchestrator.With(pipeline.WithProgress(func(event pipeline.ProgressEvent) {
		if err := sse.WriteEvent("progress", event); err != nil {
			s.log.WithError(err).Debug("progress event dropped")
		}
	}))

	run, _, err := s.process(r.Context(), orch, app, wantsExplanation(r))
	if err != nil {
		sse.WriteError(err.Error())
		return
	}
	if err := sse.WriteEvent("verdict", run); err != nil {
		s.log.WithError(err).Debug("verdict event dropped")
		return
	}
	sse.WriteComplete(run.ID.String(), string(run.Stage))
}

// process executes one run for app. verdictErr is the typed error of a
// rejection or an unavailable classifier; err means no verdict was reached.
func (s *Server) process(ctx context.Context, orch *pipeline.Orchestrator, app *db.Application, explain bool) (types.VerificationRun, error, error) {
	if _, busy := s.inflight.LoadOrStore(app.ID, struct{}{}); busy {
		return types.VerificationRun{}, nil, &ErrAlreadyProcessed{ID: app.ID, Stage: "processing"}
	}
	defer s.inflight.Delete(app.ID)

	// A run that finished after app was read has already stored its verdict.
	current, err := s.store.GetApplication(ctx, app.ID)
	if err != nil {
		return types.VerificationRun{}, nil, err
	}
	if current == nil {
		return types.VerificationRun{}, nil, &ErrApplicationNotFound{ID: app.ID}
	}
	if current.IsCompleted() || current.Stage.IsTerminal() {
		return types.VerificationRun{}, nil, &ErrAlreadyProcessed{ID: app.ID, Stage: string(current.Stage)}
	}
	app = current

	docs, err := s.store.ListDocuments(ctx, app.ID)
	if err != nil {
		return types.VerificationRun{}, nil, err
	}

	run := orch.NewRun(app.Declaration, docs)
	run.ID = app.ID
	run, err = orch.Run(ctx, run)
	if !run.IsTerminal() {
		return run, nil, err
	}
	verdictErr := err

	if explain && run.Verdict.Explanation == nil {
		run, _ = orch.Explain(ctx, run)
		if err := s.store.AttachExplanation(ctx, run); err != nil {
			s.log.WithField("application_id", app.ID.String()).WithError(err).Warn("failed to store explanation")
		}
	}
	return run, verdictErr, nil
}

// handleGetApplication returns an application and its audit log.
func (s *Server) handleGetApplication(w http.ResponseWriter, r *http.Request) {
	app, err := s.lookupApplication(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	logs, err := s.store.ListAuditLogs(r.Context(), app.ID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if logs == nil {
		logs = []db.AuditLog{}
	}
	s.jsonResponse(w, http.StatusOK, ApplicationResponse{Application: app, AuditLog: logs})
}

// handleListApplications lists recent applications, optionally by stage.
func (s *Server) handleListApplications(w http.ResponseWriter, r *http.Request) {
	filters := db.ApplicationFilters{}

	if stage := r.URL.Query().Get("stage"); stage != "" {
		if _, ok := pipeline.StageRegistry[types.Stage(stage)]; !ok {
			s.fail(w, r, &ErrValidation{Field: "stage", Message: fmt.Sprintf("unknown stage %q", stage)})
			return
		}
		filters.Stage = stage
	}
	if limit := r.URL.Query().Get("limit"); limit != "" {
		n, err := strconv.Atoi(limit)
		if err != nil || n < 1 || n > maxListLimit {
			s.fail(w, r, &ErrValidation{Field: "limit", Message: fmt.Sprintf("must be between 1 and %d", maxListLimit)})
			return
		}
		filters.Limit = n
	}

	apps, err := s.store.ListApplications(r.Context(), filters)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if apps == nil {
		apps = []db.Application{}
	}
	s.jsonResponse(w, http.StatusOK, ListResponse{Applications: apps, Count: len(apps)})
}

// lookupApplication resolves the {id} path value.
func (s *Server) lookupApplication(r *http.Request) (*db.Application, error) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		return nil, &ErrValidation{Field: "id", Message: "invalid application ID"}
	}
	app, err := s.store.GetApplication(r.Context(), id)
	if err != nil {
		return nil, err
	}
	if app == nil {
		return nil, &ErrApplicationNotFound{ID: id}
	}
	return app, nil
}

// openApplication resolves an application that has not been decided yet.
func (s *Server) openApplication(r *http.Request) (*db.Application, error) {
	app, err := s.lookupApplication(r)
	if err != nil {
		return nil, err
	}
	if app.IsCompleted() || app.Stage.IsTerminal() {
		return nil, &ErrAlreadyProcessed{ID: app.ID, Stage: string(app.Stage)}
	}
	return app, nil
}

func wantsExplanation(r *http.Request) bool {
	explain, _ := strconv.ParseBool(r.URL.Query().Get("explain"))
	return explain
}
