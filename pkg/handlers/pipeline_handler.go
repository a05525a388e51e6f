package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sourcesense-inc/sourcesense-engine/pkg/apperrors"
	"github.com/sourcesense-inc/sourcesense-engine/pkg/connector"
	"github.com/sourcesense-inc/sourcesense-engine/pkg/export"
	"github.com/sourcesense-inc/sourcesense-engine/pkg/services"
)

// maxUploadBytes caps one uploaded source file at 100 MiB.
const maxUploadBytes = 100 << 20

// UploadResponse is returned when a run is accepted.
type UploadResponse struct {
	Success bool   `json:"success"`
	RunID   string `json:"runId"`
	Status  string `json:"status"`
}

// PipelineHandler exposes the upload/status/result/export API. It holds
// no business logic; everything routes through the pipeline service.
type PipelineHandler struct {
	svc       services.PipelineService
	uploadDir string
	logger    *zap.Logger
}

func NewPipelineHandler(svc services.PipelineService, uploadDir string, logger *zap.Logger) *PipelineHandler {
	return &PipelineHandler{svc: svc, uploadDir: uploadDir, logger: logger.Named("pipeline-handler")}
}

// RegisterRoutes registers the pipeline routes on the given mux.
func (h *PipelineHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/upload", h.Upload)
	mux.HandleFunc("GET /api/runs/{id}", h.GetStatus)
	mux.HandleFunc("GET /api/runs/{id}/entities", h.GetEntities)
	mux.HandleFunc("GET /api/runs/{id}/result", h.GetResult)
	mux.HandleFunc("GET /api/runs/{id}/export", h.Export)
	mux.HandleFunc("POST /api/runs/{id}/cancel", h.Cancel)
}

// Upload handles POST /api/upload: saves the multipart file into the
// upload directory and starts a run over it.
func (h *PipelineHandler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_upload", "failed to parse multipart form")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_upload", "missing file field")
		return
	}
	defer file.Close()

	if !supportedExtension(header.Filename) {
		_ = ErrorResponse(w, http.StatusBadRequest, "unsupported_source",
			fmt.Sprintf("unsupported file type, expected one of %s", strings.Join(connector.SupportedExtensions, ", ")))
		return
	}

	path, err := h.saveUpload(file, header.Filename)
	if err != nil {
		h.logger.Error("Failed to save upload", zap.Error(err))
		_ = ErrorResponse(w, http.StatusInternalServerError, "upload_failed", "failed to save uploaded file")
		return
	}

	run, err := h.svc.Start(r.Context(), path)
	if err != nil {
		h.logger.Error("Failed to start run", zap.Error(err))
		_ = ErrorResponse(w, http.StatusInternalServerError, "run_failed", "failed to start pipeline run")
		return
	}

	_ = WriteJSON(w, http.StatusAccepted, UploadResponse{
		Success: true,
		RunID:   run.ID.String(),
		Status:  string(run.Status),
	})
}

// GetStatus handles GET /api/runs/{id}.
func (h *PipelineHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	runID, ok := h.runID(w, r)
	if !ok {
		return
	}

	run, err := h.svc.GetStatus(r.Context(), runID)
	if err != nil {
		h.writeRunError(w, err)
		return
	}
	_ = WriteJSON(w, http.StatusOK, run)
}

// GetEntities handles GET /api/runs/{id}/entities: the catalog entity
// list of a finished run.
func (h *PipelineHandler) GetEntities(w http.ResponseWriter, r *http.Request) {
	runID, ok := h.runID(w, r)
	if !ok {
		return
	}

	rc, err := h.svc.GetResult(r.Context(), runID)
	if err != nil {
		h.writeRunError(w, err)
		return
	}
	_ = WriteJSON(w, http.StatusOK, map[string]any{
		"entities": rc.Entities,
		"count":    len(rc.Entities),
	})
}

// GetResult handles GET /api/runs/{id}/result: the entity list together
// with the profiling context and per-stage summary.
func (h *PipelineHandler) GetResult(w http.ResponseWriter, r *http.Request) {
	runID, ok := h.runID(w, r)
	if !ok {
		return
	}

	rc, err := h.svc.GetResult(r.Context(), runID)
	if err != nil {
		h.writeRunError(w, err)
		return
	}
	_ = WriteJSON(w, http.StatusOK, export.BuildDocument(rc))
}

// Export handles GET /api/runs/{id}/export?format=json|yaml|csv.
func (h *PipelineHandler) Export(w http.ResponseWriter, r *http.Request) {
	runID, ok := h.runID(w, r)
	if !ok {
		return
	}

	rc, err := h.svc.GetResult(r.Context(), runID)
	if err != nil {
		h.writeRunError(w, err)
		return
	}

	format := r.URL.Query().Get("format")
	if format == "" {
		format = "json"
	}

	switch format {
	case "json":
		w.Header().Set("Content-Type", "application/json")
		err = export.WriteJSON(w, export.BuildDocument(rc))
	case "yaml":
		w.Header().Set("Content-Type", "application/yaml")
		err = export.WriteYAML(w, export.BuildDocument(rc))
	case "csv":
		w.Header().Set("Content-Type", "text/csv")
		err = export.WriteColumnsCSV(w, rc.Columns)
	default:
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_format", "format must be json, yaml or csv")
		return
	}
	if err != nil {
		h.logger.Error("Failed to write export", zap.String("format", format), zap.Error(err))
	}
}

// Cancel handles POST /api/runs/{id}/cancel.
func (h *PipelineHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	runID, ok := h.runID(w, r)
	if !ok {
		return
	}

	if err := h.svc.Cancel(r.Context(), runID); err != nil {
		h.writeRunError(w, err)
		return
	}
	_ = WriteJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (h *PipelineHandler) runID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	runID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_run_id", "run id must be a UUID")
		return uuid.Nil, false
	}
	return runID, true
}

func (h *PipelineHandler) writeRunError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, apperrors.ErrRunNotFound):
		_ = ErrorResponse(w, http.StatusNotFound, "run_not_found", "no run with that id")
	case errors.Is(err, apperrors.ErrRunNotFinished):
		_ = ErrorResponse(w, http.StatusConflict, "run_not_finished", "run has not finished yet")
	default:
		h.logger.Error("Unexpected run error", zap.Error(err))
		_ = ErrorResponse(w, http.StatusInternalServerError, "internal_error", "unexpected error")
	}
}

// saveUpload writes the uploaded file under a fresh UUID prefix so
// repeated uploads of the same filename never collide.
func (h *PipelineHandler) saveUpload(file io.Reader, filename string) (string, error) {
	if err := os.MkdirAll(h.uploadDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create upload dir: %w", err)
	}

	name := fmt.Sprintf("%s_%s", uuid.New().String(), filepath.Base(filename))
	path := filepath.Join(h.uploadDir, name)

	out, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create upload file: %w", err)
	}
	defer out.Close()

	if _, err := io.Copy(out, file); err != nil {
		return "", fmt.Errorf("failed to write upload file: %w", err)
	}
	return path, nil
}

func supportedExtension(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	for _, supported := range connector.SupportedExtensions {
		if ext == supported {
			return true
		}
	}
	return false
}
