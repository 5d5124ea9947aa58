// Package httpapi exposes the analysis pipeline over HTTP: session
// management, document upload, stage execution, and report export.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/joelkehle/office-action-analyzer/internal/docxport"
	"github.com/joelkehle/office-action-analyzer/internal/extract"
	"github.com/joelkehle/office-action-analyzer/internal/llm"
	"github.com/joelkehle/office-action-analyzer/internal/pdfexport"
	"github.com/joelkehle/office-action-analyzer/internal/rebuttal"
	"github.com/joelkehle/office-action-analyzer/internal/session"
)

// maxUploadBytes bounds one multipart upload.
const maxUploadBytes = 32 << 20

// Extractor pulls text out of an uploaded PDF file.
type Extractor func(ctx context.Context, path string) (extract.Document, error)

// PDFRenderer turns report markup into PDF bytes.
type PDFRenderer interface {
	Render(ctx context.Context, report string) ([]byte, error)
}

type Server struct {
	store     *session.Store
	pipeline  *rebuttal.Pipeline
	extractor Extractor
	renderer  PDFRenderer
	uploadDir string
}

// Config carries the server's collaborators. Extractor defaults to
// extract.ExtractPDF; Renderer may be nil, disabling the PDF route.
type Config struct {
	Store     *session.Store
	Pipeline  *rebuttal.Pipeline
	Extractor Extractor
	Renderer  PDFRenderer
	UploadDir string
}

func NewServer(cfg Config) http.Handler {
	s := &Server{
		store:     cfg.Store,
		pipeline:  cfg.Pipeline,
		extractor: cfg.Extractor,
		renderer:  cfg.Renderer,
		uploadDir: cfg.UploadDir,
	}
	if s.extractor == nil {
		s.extractor = extract.ExtractPDF
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/sessions", s.handleSessions)
	mux.HandleFunc("/v1/sessions/", s.handleSessionSubtree)
	mux.HandleFunc("/v1/health", s.handleHealth)
	return mux
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]any{
		"ok": false,
		"error": map[string]any{
			"code":    code,
			"message": message,
		},
	})
}

// writeFailure maps domain errors onto HTTP statuses: missing session 404,
// gate not satisfied 409, model/transport failures 502 with the failure
// kind, everything else 500.
func writeFailure(w http.ResponseWriter, err error) {
	if errors.Is(err, session.ErrNotFound) {
		writeError(w, http.StatusNotFound, "session_not_found", err.Error())
		return
	}
	var ge *rebuttal.GateError
	if errors.As(err, &ge) {
		writeJSON(w, http.StatusConflict, map[string]any{
			"ok": false,
			"error": map[string]any{
				"code":              "stage_not_enabled",
				"message":           ge.Error(),
				"missing_stages":    ge.Missing,
				"missing_documents": ge.MissingDocs,
			},
		})
		return
	}
	var se *rebuttal.StageError
	if errors.As(err, &se) {
		status := http.StatusBadGateway
		code := "stage_failed"
		var ce *llm.CallError
		switch {
		case errors.As(err, &ce):
			code = "llm_" + ce.Kind.String()
			if ce.Kind == llm.FailureConfig {
				status = http.StatusServiceUnavailable
			}
		case errors.Is(err, rebuttal.ErrUnparseable):
			code = "reply_unparseable"
		}
		writeJSON(w, status, map[string]any{
			"ok": false,
			"error": map[string]any{
				"code":    code,
				"stage":   se.Stage,
				"message": se.Error(),
			},
		})
		return
	}
	writeError(w, http.StatusInternalServerError, "internal", err.Error())
}

func methodOnly(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method != method {
		w.Header().Set("Allow", method)
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "use "+method)
		return false
	}
	return true
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) handleSessions(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		sess, err := s.store.Create()
		if err != nil {
			writeFailure(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, sessionView(sess))
	case http.MethodGet:
		sessions := s.store.List()
		views := make([]map[string]any, 0, len(sessions))
		for _, sess := range sessions {
			views = append(views, sessionView(sess))
		}
		writeJSON(w, http.StatusOK, map[string]any{"sessions": views})
	default:
		w.Header().Set("Allow", "GET, POST")
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "use GET or POST")
	}
}

// handleSessionSubtree routes /v1/sessions/{id}[/...].
func (s *Server) handleSessionSubtree(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/v1/sessions/")
	parts := strings.Split(rest, "/")
	id := parts[0]
	if id == "" {
		writeError(w, http.StatusNotFound, "not_found", "missing session id")
		return
	}

	switch {
	case len(parts) == 1:
		s.handleGetSession(w, r, id)
	case len(parts) == 3 && parts[1] == "documents":
		s.handleUpload(w, r, id, rebuttal.DocRole(parts[2]))
	case len(parts) == 3 && parts[1] == "stages":
		s.handleRunStage(w, r, id, rebuttal.Stage(parts[2]))
	case len(parts) == 2 && parts[1] == "report.docx":
		s.handleExportDocx(w, r, id)
	case len(parts) == 2 && parts[1] == "report.pdf":
		s.handleExportPDF(w, r, id)
	default:
		writeError(w, http.StatusNotFound, "not_found", "unknown route")
	}
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request, id string) {
	switch r.Method {
	case http.MethodGet:
		sess, err := s.store.Get(id)
		if err != nil {
			writeFailure(w, err)
			return
		}
		writeJSON(w, http.StatusOK, sessionView(sess))
	case http.MethodDelete:
		if err := s.store.Delete(id); err != nil {
			writeFailure(w, err)
			return
		}
		// Drop any upload scraps left behind for the session.
		_ = os.RemoveAll(filepath.Join(s.uploadDir, id))
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	default:
		w.Header().Set("Allow", "GET, DELETE")
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "use GET or DELETE")
	}
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request, id string, role rebuttal.DocRole) {
	if !methodOnly(w, r, http.MethodPost) {
		return
	}
	if !role.Valid() {
		writeError(w, http.StatusBadRequest, "invalid_role", fmt.Sprintf("unknown document role %q", role))
		return
	}
	if _, err := s.store.Get(id); err != nil {
		writeFailure(w, err)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_upload", "multipart field \"file\" is required")
		return
	}
	defer file.Close()

	// Uploads land in a per-session directory so concurrent sessions
	// never clobber each other's files.
	dir := filepath.Join(s.uploadDir, id)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		writeFailure(w, err)
		return
	}
	path := filepath.Join(dir, string(role)+".pdf")
	dst, err := os.Create(path)
	if err != nil {
		writeFailure(w, err)
		return
	}
	if _, err := io.Copy(dst, file); err != nil {
		dst.Close()
		os.Remove(path)
		writeFailure(w, err)
		return
	}
	dst.Close()
	defer os.Remove(path)

	doc, err := s.extractor(r.Context(), path)
	if err != nil {
		if errors.Is(err, extract.ErrNoText) {
			writeError(w, http.StatusUnprocessableEntity, "no_text", "no text could be extracted from the uploaded file")
			return
		}
		writeFailure(w, err)
		return
	}
	if err := s.store.PutDocument(id, role, header.Filename, doc.Text()); err != nil {
		writeFailure(w, err)
		return
	}
	log.Printf("session %s: stored %s document %q (%d pages, %s)", id, role, header.Filename, doc.PageCount(), doc.Method)
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":        true,
		"role":      role,
		"source":    header.Filename,
		"pages":     doc.PageCount(),
		"truncated": doc.Truncated,
	})
}

func (s *Server) handleRunStage(w http.ResponseWriter, r *http.Request, id string, stage rebuttal.Stage) {
	if !methodOnly(w, r, http.MethodPost) {
		return
	}
	if !stage.Valid() {
		writeError(w, http.StatusBadRequest, "invalid_stage", fmt.Sprintf("unknown stage %q", stage))
		return
	}
	sess, err := s.store.Get(id)
	if err != nil {
		writeFailure(w, err)
		return
	}

	next, err := s.pipeline.RunStage(r.Context(), stage, sess.State, sess.Documents)
	if err != nil {
		log.Printf("session %s: stage %s failed: %v", id, stage, err)
		writeFailure(w, err)
		return
	}
	if err := s.store.PutStageResult(id, stage, next); err != nil {
		writeFailure(w, err)
		return
	}
	result, _ := next.Result(stage)
	log.Printf("session %s: stage %s complete", id, stage)
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":     true,
		"stage":  stage,
		"result": result,
	})
}

func (s *Server) handleExportDocx(w http.ResponseWriter, r *http.Request, id string) {
	if !methodOnly(w, r, http.MethodGet) {
		return
	}
	sess, report, err := s.reportFor(id)
	if err != nil {
		if errors.Is(err, errNoResults) {
			writeError(w, http.StatusConflict, "no_report", err.Error())
			return
		}
		writeFailure(w, err)
		return
	}
	data, err := docxport.Export(report)
	if err != nil {
		writeFailure(w, err)
		return
	}
	filename := "filed_application_analysis.docx"
	if sess.State.PendingClaims != nil {
		filename = "pending_claims_analysis.docx"
	}
	w.Header().Set("Content-Type", docxport.MIMEWordDocument)
	w.Header().Set("Content-Disposition", "attachment; filename="+filename)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (s *Server) handleExportPDF(w http.ResponseWriter, r *http.Request, id string) {
	if !methodOnly(w, r, http.MethodGet) {
		return
	}
	if s.renderer == nil {
		writeError(w, http.StatusNotImplemented, "pdf_disabled", "PDF rendering is not configured")
		return
	}
	_, report, err := s.reportFor(id)
	if err != nil {
		if errors.Is(err, errNoResults) {
			writeError(w, http.StatusConflict, "no_report", err.Error())
			return
		}
		writeFailure(w, err)
		return
	}
	data, err := s.renderer.Render(r.Context(), report)
	if err != nil {
		writeFailure(w, err)
		return
	}
	w.Header().Set("Content-Type", pdfexport.MIMEPDF)
	w.Header().Set("Content-Disposition", "attachment; filename=analysis_report.pdf")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

var errNoResults = errors.New("no analysis results to export")

func (s *Server) reportFor(id string) (*session.Session, string, error) {
	sess, err := s.store.Get(id)
	if err != nil {
		return nil, "", err
	}
	any := false
	for _, stage := range rebuttal.Stages {
		if sess.State.Completed(stage) {
			any = true
			break
		}
	}
	if !any {
		return nil, "", errNoResults
	}
	return sess, rebuttal.BuildReportMarkdown(sess.State), nil
}

// sessionView is the JSON shape of one session: which documents are
// uploaded and which stages have results.
func sessionView(sess *session.Session) map[string]any {
	docs := map[string]any{}
	for _, role := range []rebuttal.DocRole{rebuttal.RoleAction, rebuttal.RoleReference, rebuttal.RoleFiled, rebuttal.RolePending} {
		if sess.Documents.Has(role) {
			docs[string(role)] = map[string]any{
				"source": sess.Sources[role],
				"chars":  len(sess.Documents.Text(role)),
			}
		}
	}
	stages := map[string]any{}
	for _, stage := range rebuttal.Stages {
		if result, ok := sess.State.Result(stage); ok {
			stages[string(stage)] = result
		}
	}
	return map[string]any{
		"session_id": sess.ID,
		"created_at": sess.CreatedAt,
		"updated_at": sess.UpdatedAt,
		"documents":  docs,
		"stages":     stages,
	}
}
