// Package store implements the in-process job store: a concurrent map
// keyed by job id, periodic JSON snapshotting to disk, and a retention
// sweep for old terminal jobs. Adapted from the teacher's
// internal/db/jobs.go CRUD shape, moved from SQL rows to in-memory
// structs since spec.md scopes durable storage to this store plus one
// optional Redis instance (already used by the cache layer).
package store

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/bobarin/scenecast/internal/models"
)

// Store holds every known Job in memory, guarded by an RWMutex for the
// map itself; individual Job fields are protected by the Job's own lock.
type Store struct {
	mu   sync.RWMutex
	jobs map[uuid.UUID]*models.Job

	snapshotPath string
}

// New loads any existing snapshot at snapshotPath (ignoring a missing
// file) and returns a ready Store.
func New(snapshotPath string) (*Store, error) {
	s := &Store{
		jobs:         make(map[uuid.UUID]*models.Job),
		snapshotPath: snapshotPath,
	}
	if err := s.loadSnapshot(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("store: load snapshot: %w", err)
	}
	return s, nil
}

// Put inserts or replaces a job.
func (s *Store) Put(job *models.Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = job
}

// Get returns the job for id, or models.ErrNotFound.
func (s *Store) Get(id uuid.UUID) (*models.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	return job, nil
}

// List returns a snapshot of every known job, most recently created
// first.
func (s *Store) List() []models.Job {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Job, 0, len(s.jobs))
	for _, job := range s.jobs {
		out = append(out, job.Snapshot())
	}
	for i := 0; i < len(out); i++ {
		for j := i + 1; j < len(out); j++ {
			if out[j].CreatedAt.After(out[i].CreatedAt) {
				out[i], out[j] = out[j], out[i]
			}
		}
	}
	return out
}

// CleanupExpired removes terminal jobs whose UpdatedAt is older than
// maxAge, measured from now. Cancelled jobs are swept on the same cutoff
// as other terminal jobs, from UpdatedAt (the cancellation time) rather
// than CreatedAt, so a job cancelled just before a sweep still gets one
// full retention window.
func (s *Store) CleanupExpired(maxAge time.Duration) int {
	cutoff := time.Now().Add(-maxAge)

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, job := range s.jobs {
		snap := job.Snapshot()
		if snap.Status.Terminal() && snap.UpdatedAt.Before(cutoff) {
			delete(s.jobs, id)
			removed++
		}
	}
	return removed
}

// Snapshot persists every job to disk as JSON, matching the teacher's
// approach of checkpointing state for crash recovery (there the
// checkpoint was Postgres rows; here it's this file).
func (s *Store) Snapshot() error {
	s.mu.RLock()
	jobs := make([]models.Job, 0, len(s.jobs))
	for _, job := range s.jobs {
		jobs = append(jobs, job.Snapshot())
	}
	s.mu.RUnlock()

	data, err := json.MarshalIndent(jobs, "", "  ")
	if err != nil {
		return fmt.Errorf("store: marshal snapshot: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.snapshotPath), 0o755); err != nil {
		return fmt.Errorf("store: create snapshot dir: %w", err)
	}

	tmp := s.snapshotPath + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("store: write snapshot: %w", err)
	}
	return os.Rename(tmp, s.snapshotPath)
}

func (s *Store) loadSnapshot() error {
	data, err := os.ReadFile(s.snapshotPath)
	if err != nil {
		return err
	}
	var jobs []models.Job
	if err := json.Unmarshal(data, &jobs); err != nil {
		return fmt.Errorf("store: unmarshal snapshot: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range jobs {
		j := jobs[i]
		s.jobs[j.ID] = &j
	}
	return nil
}

// RunSnapshotLoop periodically snapshots until stop is closed, matching
// the periodicity spec.md's job store design calls for.
func (s *Store) RunSnapshotLoop(interval time.Duration, stop <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if err := s.Snapshot(); err != nil {
				log.Printf("store: periodic snapshot failed: %v", err)
			}
		case <-stop:
			if err := s.Snapshot(); err != nil {
				log.Printf("store: final snapshot failed: %v", err)
			}
			return
		}
	}
}
