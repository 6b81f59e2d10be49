package ledger

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/makeasinger/musicengine/internal/model"
)

// Notifier is told about every ledger write
type Notifier interface {
	JobUpdated(job *model.Job)
}

type nopNotifier struct{}

func (nopNotifier) JobUpdated(*model.Job) {}

// Tracker applies state machine transitions and persists each one
type Tracker struct {
	ledger   Ledger
	notifier Notifier
	logger   *zap.Logger
	now      func() time.Time
}

// NewTracker wraps l. A nil notifier discards updates.
func NewTracker(l Ledger, notifier Notifier, logger *zap.Logger) *Tracker {
	if notifier == nil {
		notifier = nopNotifier{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Tracker{ledger: l, notifier: notifier, logger: logger, now: time.Now}
}

// Ledger returns the underlying store
func (t *Tracker) Ledger() Ledger {
	return t.ledger
}

// Get loads a job record
func (t *Tracker) Get(ctx context.Context, jobID string) (*model.Job, error) {
	return t.ledger.Get(ctx, jobID)
}

// Create records a new queued job
func (t *Tracker) Create(ctx context.Context, jobID string, spec model.MusicSpec) (*model.Job, error) {
	return t.CreateFor(ctx, jobID, "", spec)
}

// CreateFor records a new queued job submitted by userID
func (t *Tracker) CreateFor(ctx context.Context, jobID, userID string, spec model.MusicSpec) (*model.Job, error) {
	job := model.NewJob(jobID, spec, t.now().UTC())
	job.UserID = userID
	if err := t.save(ctx, job); err != nil {
		return nil, err
	}
	return job, nil
}

// Start marks job running by workerID
func (t *Tracker) Start(ctx context.Context, job *model.Job, workerID string) error {
	if err := job.Start(workerID, t.now().UTC()); err != nil {
		return err
	}
	return t.save(ctx, job)
}

// Advance records a progress checkpoint
func (t *Tracker) Advance(ctx context.Context, job *model.Job, progress float64) error {
	if err := job.Advance(progress); err != nil {
		return err
	}
	return t.save(ctx, job)
}

// Complete records outputs and marks the job completed
func (t *Tracker) Complete(ctx context.Context, job *model.Job, outputs map[string]string) error {
	if err := job.Complete(outputs, t.now().UTC()); err != nil {
		return err
	}
	return t.save(ctx, job)
}

// Fail marks the job failed with msg
func (t *Tracker) Fail(ctx context.Context, job *model.Job, msg string) error {
	if err := job.Fail(msg, t.now().UTC()); err != nil {
		return err
	}
	return t.save(ctx, job)
}

func (t *Tracker) save(ctx context.Context, job *model.Job) error {
	if err := t.ledger.Put(ctx, job); err != nil {
		return err
	}
	t.logger.Debug("job updated",
		zap.String("job_id", job.ID),
		zap.String("status", string(job.Status)),
		zap.Float64("progress", job.Progress))
	t.notifier.JobUpdated(job)
	return nil
}
