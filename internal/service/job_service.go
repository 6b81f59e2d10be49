package service

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/makeasinger/musicengine/internal/apperr"
	"github.com/makeasinger/musicengine/internal/ledger"
	"github.com/makeasinger/musicengine/internal/model"
	"github.com/makeasinger/musicengine/internal/queue"
	"github.com/makeasinger/musicengine/internal/storage"
)

// ErrOutputNotFound is returned when a completed job has no such output on local disk
var ErrOutputNotFound = errors.New("output not found")

// ErrJobNotCompleted is returned when outputs are requested before completion
var ErrJobNotCompleted = errors.New("job not completed")

// JobService accepts specs for generation and reports on their jobs
type JobService struct {
	tracker   *ledger.Tracker
	producer  queue.Producer
	validator *validator.Validate
	local     *storage.LocalStore
}

// NewJobService creates the service. local may be nil when outputs are not served from disk.
func NewJobService(tracker *ledger.Tracker, producer queue.Producer, v *validator.Validate, local *storage.LocalStore) *JobService {
	return &JobService{
		tracker:   tracker,
		producer:  producer,
		validator: v,
		local:     local,
	}
}

// Submit validates spec, records a queued job owned by userID and enqueues it.
// userID is empty for submissions that bypass the API.
func (s *JobService) Submit(ctx context.Context, userID string, spec model.MusicSpec) (*model.GenerateResponse, error) {
	normalized := spec.Normalize()
	if err := normalized.Validate(s.validator); err != nil {
		return nil, err
	}

	jobID := uuid.New().String()
	job, err := s.tracker.CreateFor(ctx, jobID, userID, normalized)
	if err != nil {
		return nil, fmt.Errorf("failed to save job: %w", err)
	}

	if err := s.producer.Enqueue(ctx, &model.JobMessage{JobID: jobID, Spec: spec}); err != nil {
		_ = s.tracker.Fail(ctx, job, "failed to enqueue job")
		return nil, fmt.Errorf("failed to enqueue job: %w", err)
	}

	return &model.GenerateResponse{
		JobID:          jobID,
		Status:         model.JobStatusQueued,
		CreditsCharged: Credits(normalized),
		EstimatedTime:  fmt.Sprintf("%ds", normalized.Duration),
	}, nil
}

// GetStatus returns the current ledger view of a job
func (s *JobService) GetStatus(ctx context.Context, jobID string) (*model.StatusResponse, error) {
	job, err := s.tracker.Get(ctx, jobID)
	if err != nil {
		return nil, err
	}
	return model.NewStatusResponse(job), nil
}

// OutputPath resolves a completed job's output to a file on local disk
func (s *JobService) OutputPath(ctx context.Context, jobID, name string) (string, error) {
	if s.local == nil {
		return "", ErrOutputNotFound
	}

	job, err := s.tracker.Get(ctx, jobID)
	if err != nil {
		return "", err
	}
	if job.Status != model.JobStatusCompleted {
		return "", ErrJobNotCompleted
	}
	if _, ok := job.Outputs[name]; !ok {
		return "", ErrOutputNotFound
	}

	path, err := s.local.Path(jobID, name)
	if err != nil {
		return "", ErrOutputNotFound
	}
	if _, err := os.Stat(path); err != nil {
		return "", ErrOutputNotFound
	}
	return path, nil
}

// Credits prices a generation: one credit per whole 10 seconds (minimum 1), plus 2 for stems
func Credits(spec model.MusicSpec) int {
	cost := spec.Duration / 10
	if cost < 1 {
		cost = 1
	}
	if spec.WantStems() {
		cost += 2
	}
	return cost
}

// IsNotFound reports whether err means the job does not exist
func IsNotFound(err error) bool {
	return errors.Is(err, apperr.ErrJobNotFound)
}
