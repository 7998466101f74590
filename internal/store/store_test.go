package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/bobarin/scenecast/internal/models"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "jobs.json"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return s
}

func TestPutAndGet(t *testing.T) {
	s := newTestStore(t)
	job := models.NewJob(models.SourceRef{Filename: "a.txt"}, models.PriorityNormal)
	s.Put(job)

	got, err := s.Get(job.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.ID != job.ID {
		t.Errorf("expected id %s, got %s", job.ID, got.ID)
	}
}

func TestGetMissingReturnsNotFound(t *testing.T) {
	s := newTestStore(t)
	job := models.NewJob(models.SourceRef{}, models.PriorityNormal)
	if _, err := s.Get(job.ID); err != models.ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestListOrdersNewestFirst(t *testing.T) {
	s := newTestStore(t)
	older := models.NewJob(models.SourceRef{}, models.PriorityNormal)
	older.CreatedAt = time.Now().Add(-time.Hour)
	newer := models.NewJob(models.SourceRef{}, models.PriorityNormal)

	s.Put(older)
	s.Put(newer)

	list := s.List()
	if len(list) != 2 {
		t.Fatalf("expected 2 jobs, got %d", len(list))
	}
	if list[0].ID != newer.ID {
		t.Errorf("expected newest job first")
	}
}

func TestCleanupExpiredRemovesOldTerminalJobs(t *testing.T) {
	s := newTestStore(t)

	old := models.NewJob(models.SourceRef{}, models.PriorityNormal)
	old.Finish(models.JobStatusCompleted, "done")
	old.UpdatedAt = time.Now().Add(-48 * time.Hour)
	s.Put(old)

	recent := models.NewJob(models.SourceRef{}, models.PriorityNormal)
	recent.Finish(models.JobStatusCompleted, "done")
	s.Put(recent)

	pending := models.NewJob(models.SourceRef{}, models.PriorityNormal)
	s.Put(pending)

	removed := s.CleanupExpired(24 * time.Hour)
	if removed != 1 {
		t.Fatalf("expected 1 removed, got %d", removed)
	}
	if _, err := s.Get(old.ID); err != models.ErrNotFound {
		t.Error("expected old job to be removed")
	}
	if _, err := s.Get(recent.ID); err != nil {
		t.Error("expected recent job to remain")
	}
	if _, err := s.Get(pending.ID); err != nil {
		t.Error("expected non-terminal job to remain regardless of age")
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "jobs.json")
	s, err := New(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	job := models.NewJob(models.SourceRef{Filename: "doc.txt"}, models.PriorityHigh)
	s.Put(job)

	if err := s.Snapshot(); err != nil {
		t.Fatalf("unexpected snapshot error: %v", err)
	}

	reloaded, err := New(path)
	if err != nil {
		t.Fatalf("unexpected reload error: %v", err)
	}
	got, err := reloaded.Get(job.ID)
	if err != nil {
		t.Fatalf("expected job to survive snapshot round-trip: %v", err)
	}
	if got.Source.Filename != "doc.txt" {
		t.Errorf("expected filename preserved, got %s", got.Source.Filename)
	}
}
