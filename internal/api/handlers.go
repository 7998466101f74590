// Package api exposes the job pipeline over HTTP: submit, status, cancel,
// list, video download, and health. Adapted from the teacher's
// internal/api/{router,handlers,middleware}.go, reduced to the job/video
// model spec.md §6 names instead of project/clip.
package api

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/bobarin/scenecast/internal/models"
)

// Orchestrator is the subset of *orchestrator.Orchestrator the HTTP
// layer needs.
type Orchestrator interface {
	Submit(source models.SourceRef, priority models.Priority) (*models.Job, error)
	Status(id uuid.UUID) (models.Job, error)
	Cancel(id uuid.UUID) error
	List() []models.Job
}

// Handler wires HTTP requests to the orchestrator.
type Handler struct {
	orch      Orchestrator
	uploadDir string
	maxUpload int64
}

// NewHandler builds a Handler. Uploaded documents are written under
// uploadDir before being submitted to the orchestrator.
func NewHandler(orch Orchestrator, uploadDir string, maxUpload int64) *Handler {
	return &Handler{orch: orch, uploadDir: uploadDir, maxUpload: maxUpload}
}

// SubmitJob handles POST /v1/jobs: a multipart upload of the source
// document, with an optional "priority" form field.
func (h *Handler) SubmitJob(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)
	if err := r.ParseMultipartForm(h.maxUpload); err != nil {
		respondError(w, http.StatusBadRequest, fmt.Sprintf("invalid upload: %v", err))
		return
	}

	file, header, err := r.FormFile("document")
	if err != nil {
		respondError(w, http.StatusBadRequest, "missing \"document\" form field")
		return
	}
	defer file.Close()

	if err := os.MkdirAll(h.uploadDir, 0o755); err != nil {
		respondError(w, http.StatusInternalServerError, "failed to prepare upload storage")
		return
	}

	id := uuid.New()
	destPath := filepath.Join(h.uploadDir, id.String()+filepath.Ext(header.Filename))
	dest, err := os.Create(destPath)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to persist upload")
		return
	}
	defer dest.Close()

	written, err := io.Copy(dest, file)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to write upload")
		return
	}

	priority := models.PriorityNormal
	if p := r.FormValue("priority"); p != "" {
		if n, err := strconv.Atoi(p); err == nil {
			priority = models.Priority(n)
		}
	}

	job, err := h.orch.Submit(models.SourceRef{
		Filename: header.Filename,
		MIMEType: header.Header.Get("Content-Type"),
		Path:     destPath,
		Bytes:    written,
	}, priority)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	respondJSON(w, http.StatusAccepted, job.Snapshot())
}

// GetJob handles GET /v1/jobs/{id}.
func (h *Handler) GetJob(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid job id")
		return
	}
	job, err := h.orch.Status(id)
	if err != nil {
		respondError(w, http.StatusNotFound, "job not found")
		return
	}
	respondJSON(w, http.StatusOK, job)
}

// CancelJob handles DELETE /v1/jobs/{id}.
func (h *Handler) CancelJob(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid job id")
		return
	}
	if err := h.orch.Cancel(id); err != nil {
		respondError(w, http.StatusNotFound, "job not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListJobs handles GET /v1/jobs.
func (h *Handler) ListJobs(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.orch.List())
}

// GetVideo handles GET /v1/jobs/{id}/video, streaming the composed file.
func (h *Handler) GetVideo(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid job id")
		return
	}
	job, err := h.orch.Status(id)
	if err != nil {
		respondError(w, http.StatusNotFound, "job not found")
		return
	}
	if job.Video == nil {
		respondError(w, http.StatusNotFound, "video not yet available")
		return
	}
	http.ServeFile(w, r, job.Video.Path)
}

// Health handles GET /health.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
