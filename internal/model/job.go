package model

import (
	"fmt"
	"time"

	"github.com/makeasinger/musicengine/internal/apperr"
)

// JobStatus is the lifecycle state of a generation job
type JobStatus string

const (
	JobStatusQueued    JobStatus = "queued"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
)

// Progress checkpoints written by the pipeline
const (
	ProgressStarted     = 10
	ProgressGenerated   = 40
	ProgressResynthesis = 70
	ProgressMixed       = 90
	ProgressDone        = 100
)

// MixOutput is the output name of the final mix
const MixOutput = "mix"

// IsTerminal reports whether no further transition is allowed
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// JobMessage is the envelope consumed from the queue
type JobMessage struct {
	JobID string    `json:"job_id"`
	Spec  MusicSpec `json:"spec"`
}

// Job is one pipeline execution as recorded in the ledger
type Job struct {
	ID          string            `json:"id"`
	Spec        MusicSpec         `json:"spec"`
	Status      JobStatus         `json:"status"`
	Progress    float64           `json:"progress"`
	Error       string            `json:"error,omitempty"`
	Outputs     map[string]string `json:"outputs,omitempty"`
	Placeholder bool              `json:"placeholder"`
	WorkerID    string            `json:"workerId,omitempty"`
	UserID      string            `json:"userId,omitempty"`
	CreatedAt   time.Time         `json:"createdAt"`
	StartedAt   *time.Time        `json:"startedAt,omitempty"`
	CompletedAt *time.Time        `json:"completedAt,omitempty"`
}

// NewJob creates a queued job for the given spec snapshot
func NewJob(id string, spec MusicSpec, now time.Time) *Job {
	return &Job{
		ID:        id,
		Spec:      spec,
		Status:    JobStatusQueued,
		CreatedAt: now,
	}
}

// Start moves a queued job to running at the first checkpoint
func (j *Job) Start(workerID string, now time.Time) error {
	if j.Status != JobStatusQueued {
		return j.transitionError(JobStatusRunning)
	}
	j.Status = JobStatusRunning
	j.Progress = ProgressStarted
	j.WorkerID = workerID
	j.StartedAt = &now
	return nil
}

// Advance records a progress checkpoint on a running job
func (j *Job) Advance(progress float64) error {
	if j.Status != JobStatusRunning {
		return fmt.Errorf("%w: advance on %s job %s", apperr.ErrInvalidTransition, j.Status, j.ID)
	}
	if progress < j.Progress {
		return fmt.Errorf("%w: progress %.1f below %.1f", apperr.ErrInvalidTransition, progress, j.Progress)
	}
	if progress >= ProgressDone {
		return fmt.Errorf("%w: progress %.1f reserved for completion", apperr.ErrInvalidTransition, progress)
	}
	j.Progress = progress
	return nil
}

// Complete marks a running job completed with its output references
func (j *Job) Complete(outputs map[string]string, now time.Time) error {
	if j.Status != JobStatusRunning {
		return j.transitionError(JobStatusCompleted)
	}
	if len(outputs) == 0 {
		return fmt.Errorf("%w: completed job %s without outputs", apperr.ErrInvalidTransition, j.ID)
	}
	j.Status = JobStatusCompleted
	j.Progress = ProgressDone
	j.Outputs = outputs
	j.CompletedAt = &now
	return nil
}

// Fail marks a queued or running job failed. Progress keeps its last value.
func (j *Job) Fail(msg string, now time.Time) error {
	if j.Status.IsTerminal() {
		return j.transitionError(JobStatusFailed)
	}
	if msg == "" {
		msg = "unknown error"
	}
	j.Status = JobStatusFailed
	j.Error = msg
	j.Outputs = nil
	j.CompletedAt = &now
	return nil
}

func (j *Job) transitionError(to JobStatus) error {
	return fmt.Errorf("%w: job %s %s -> %s", apperr.ErrInvalidTransition, j.ID, j.Status, to)
}
