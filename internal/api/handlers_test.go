package api

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/google/uuid"

	"github.com/bobarin/scenecast/internal/models"
)

type fakeOrchestrator struct {
	jobs     map[uuid.UUID]*models.Job
	submitErr error
}

func newFakeOrchestrator() *fakeOrchestrator {
	return &fakeOrchestrator{jobs: make(map[uuid.UUID]*models.Job)}
}

func (f *fakeOrchestrator) Submit(source models.SourceRef, priority models.Priority) (*models.Job, error) {
	if f.submitErr != nil {
		return nil, f.submitErr
	}
	job := models.NewJob(source, priority)
	f.jobs[job.ID] = job
	return job, nil
}

func (f *fakeOrchestrator) Status(id uuid.UUID) (models.Job, error) {
	job, ok := f.jobs[id]
	if !ok {
		return models.Job{}, models.ErrNotFound
	}
	return job.Snapshot(), nil
}

func (f *fakeOrchestrator) Cancel(id uuid.UUID) error {
	job, ok := f.jobs[id]
	if !ok {
		return models.ErrNotFound
	}
	job.Finish(models.JobStatusCancelled, "cancelled")
	return nil
}

func (f *fakeOrchestrator) List() []models.Job {
	out := make([]models.Job, 0, len(f.jobs))
	for _, j := range f.jobs {
		out = append(out, j.Snapshot())
	}
	return out
}

func newMultipartUpload(t *testing.T, filename, content string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("document", filename)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := part.Write([]byte(content)); err != nil {
		t.Fatalf("write content: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	return &buf, w.FormDataContentType()
}

func TestSubmitJobSuccess(t *testing.T) {
	orch := newFakeOrchestrator()
	h := NewHandler(orch, filepath.Join(t.TempDir(), "uploads"), 1<<20)

	body, contentType := newMultipartUpload(t, "doc.txt", "hello world")
	req := httptest.NewRequest(http.MethodPost, "/v1/jobs", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()

	h.SubmitJob(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", rec.Code, rec.Body.String())
	}

	var job models.Job
	if err := json.Unmarshal(rec.Body.Bytes(), &job); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if job.Status != models.JobStatusPending {
		t.Errorf("expected pending status, got %s", job.Status)
	}
}

func TestSubmitJobMissingFile(t *testing.T) {
	orch := newFakeOrchestrator()
	h := NewHandler(orch, t.TempDir(), 1<<20)

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	_ = w.Close()

	req := httptest.NewRequest(http.MethodPost, "/v1/jobs", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	rec := httptest.NewRecorder()

	h.SubmitJob(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestGetJobNotFound(t *testing.T) {
	orch := newFakeOrchestrator()
	h := NewHandler(orch, t.TempDir(), 1<<20)

	router := NewRouter(h, RouterConfig{})
	req := httptest.NewRequest(http.MethodGet, "/v1/jobs/"+uuid.New().String(), nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestAPIKeyAuthRejectsMissingKey(t *testing.T) {
	orch := newFakeOrchestrator()
	h := NewHandler(orch, t.TempDir(), 1<<20)
	router := NewRouter(h, RouterConfig{BackendAPIKey: "secret"})

	req := httptest.NewRequest(http.MethodGet, "/v1/jobs", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestAPIKeyAuthAcceptsValidKey(t *testing.T) {
	orch := newFakeOrchestrator()
	h := NewHandler(orch, t.TempDir(), 1<<20)
	router := NewRouter(h, RouterConfig{BackendAPIKey: "secret"})

	req := httptest.NewRequest(http.MethodGet, "/v1/jobs", nil)
	req.Header.Set("X-API-Key", "secret")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestHealthEndpointIsPublic(t *testing.T) {
	orch := newFakeOrchestrator()
	h := NewHandler(orch, t.TempDir(), 1<<20)
	router := NewRouter(h, RouterConfig{BackendAPIKey: "secret"})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}
