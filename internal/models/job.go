// Package models defines the core domain types shared across the job
// pipeline: jobs, scripts, scenes, and the audio/visual/video assets that
// get attached to them as the pipeline progresses.
package models

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// JobStatus is the top-level lifecycle state of a Job.
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusPartial    JobStatus = "completed_with_errors"
	JobStatusFailed     JobStatus = "failed"
	JobStatusCancelled  JobStatus = "cancelled"
)

// Terminal reports whether the status can no longer transition.
func (s JobStatus) Terminal() bool {
	switch s {
	case JobStatusCompleted, JobStatusPartial, JobStatusFailed, JobStatusCancelled:
		return true
	default:
		return false
	}
}

// JobPhase tracks which pipeline stage a processing job is in. It is more
// granular than JobStatus and is what progress percentages key off of.
type JobPhase string

const (
	PhaseQueued   JobPhase = "queued"
	PhaseUpload   JobPhase = "upload"
	PhaseScript   JobPhase = "script"
	PhaseAssets   JobPhase = "assets"
	PhaseCompose  JobPhase = "compose"
	PhaseDone     JobPhase = "done"
)

// Priority controls queue ordering; higher values are served first.
type Priority int

const (
	PriorityLow    Priority = 0
	PriorityNormal Priority = 5
	PriorityHigh   Priority = 10
)

// SourceRef identifies the uploaded document a job was created from.
type SourceRef struct {
	Filename string `json:"filename"`
	MIMEType string `json:"mime_type"`
	Path     string `json:"path"`
	Bytes    int64  `json:"bytes"`
}

// JobError records one failure encountered while processing a job. A job
// can accumulate several of these (e.g. one per failed scene) without the
// job itself being terminal.
type JobError struct {
	Kind      string    `json:"kind"`
	Message   string    `json:"message"`
	SceneID   string    `json:"scene_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Job is the unit of work tracked end to end by the orchestrator and job
// store. Mutating fields go through the embedded lock rather than being
// addressed directly, mirroring the teacher's row-struct convention but
// adapted for in-memory, concurrent mutation instead of SQL row updates.
type Job struct {
	ID        uuid.UUID  `json:"id"`
	Status    JobStatus  `json:"status"`
	Phase     JobPhase   `json:"phase"`
	Progress  int        `json:"progress"`
	Message   string     `json:"message,omitempty"`
	Priority  Priority   `json:"priority"`
	Source    SourceRef  `json:"source"`
	Script    *Script    `json:"script,omitempty"`
	Video     *Video     `json:"video,omitempty"`
	Errors    []JobError `json:"errors,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`

	mu sync.RWMutex `json:"-"`
}

// NewJob constructs a fresh pending job for the given source document.
func NewJob(source SourceRef, priority Priority) *Job {
	now := time.Now()
	return &Job{
		ID:        uuid.New(),
		Status:    JobStatusPending,
		Phase:     PhaseQueued,
		Priority:  priority,
		Source:    source,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Snapshot returns a shallow copy of the job safe to hand to a caller
// outside the store — callers must not mutate the returned pointer's
// nested Script/Video, but the top-level fields are frozen at call time.
func (j *Job) Snapshot() Job {
	j.mu.RLock()
	defer j.mu.RUnlock()
	cp := *j
	cp.Errors = append([]JobError(nil), j.Errors...)
	return cp
}

// Start transitions a pending job to processing.
func (j *Job) Start() {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Status = JobStatusProcessing
	j.UpdatedAt = time.Now()
}

// Advance moves the job to a new phase/progress/message under lock.
func (j *Job) Advance(phase JobPhase, progress int, message string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Phase = phase
	if progress > j.Progress {
		j.Progress = progress
	}
	j.Message = message
	j.UpdatedAt = time.Now()
}

// Finish transitions the job to a terminal status. A job already in a
// terminal status never transitions again — the first terminal status
// (e.g. a cancellation racing a pipeline failure) wins.
func (j *Job) Finish(status JobStatus, message string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.Status.Terminal() {
		return
	}
	j.Status = status
	j.Phase = PhaseDone
	if status == JobStatusCompleted {
		j.Progress = 100
	}
	j.Message = message
	j.UpdatedAt = time.Now()
}

// AddError appends a JobError without forcing a status transition.
func (j *Job) AddError(kind, sceneID, message string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Errors = append(j.Errors, JobError{
		Kind:      kind,
		Message:   message,
		SceneID:   sceneID,
		Timestamp: time.Now(),
	})
	j.UpdatedAt = time.Now()
}

// SetScript attaches the generated script to the job.
func (j *Job) SetScript(s *Script) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Script = s
	j.UpdatedAt = time.Now()
}

// SetVideo attaches the composed video to the job.
func (j *Job) SetVideo(v *Video) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Video = v
	j.UpdatedAt = time.Now()
}
