package worker

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"go.uber.org/zap"

	"github.com/makeasinger/musicengine/internal/apperr"
	"github.com/makeasinger/musicengine/internal/model"
	"github.com/makeasinger/musicengine/internal/queue"
)

// Runner executes decoded job messages
type Runner interface {
	Run(ctx context.Context, msg *model.JobMessage) error
	Reject(ctx context.Context, jobID string, cause error) error
}

// Consumer pulls messages from a queue one at a time and hands them to a Runner
type Consumer struct {
	queue        queue.Consumer
	runner       Runner
	pollTimeout  time.Duration
	errorBackoff time.Duration
	logger       *zap.Logger
}

func NewConsumer(q queue.Consumer, runner Runner, pollTimeout, errorBackoff time.Duration, logger *zap.Logger) *Consumer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Consumer{
		queue:        q,
		runner:       runner,
		pollTimeout:  pollTimeout,
		errorBackoff: errorBackoff,
		logger:       logger,
	}
}

// Run loops until ctx is cancelled. A job in progress when ctx is cancelled runs to
// completion before Run returns.
func (c *Consumer) Run(ctx context.Context) error {
	c.logger.Info("worker listening", zap.Duration("poll_timeout", c.pollTimeout))

	for {
		if ctx.Err() != nil {
			c.logger.Info("worker stopped")
			return nil
		}

		msg, err := c.queue.Dequeue(ctx, c.pollTimeout)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			var decodeErr *queue.DecodeError
			if errors.As(err, &decodeErr) {
				c.reject(ctx, decodeErr)
				continue
			}
			c.logger.Error("dequeue failed", zap.Error(err), zap.Duration("backoff", c.errorBackoff))
			c.sleep(ctx, c.errorBackoff)
			continue
		}
		if msg == nil {
			continue
		}

		c.handle(context.WithoutCancel(ctx), msg)
	}
}

func (c *Consumer) handle(ctx context.Context, msg *model.JobMessage) {
	defer func() {
		if r := recover(); r != nil {
			rejectPanicked(ctx, c.runner, msg, r, c.logger)
		}
	}()

	err := c.runner.Run(ctx, msg)
	switch {
	case err == nil:
	case errors.Is(err, apperr.ErrClaimed):
		c.logger.Debug("message skipped", zap.String("job_id", msg.JobID))
	default:
		c.logger.Warn("job did not complete", zap.String("job_id", msg.JobID), zap.Error(err))
	}
}

func (c *Consumer) reject(ctx context.Context, decodeErr *queue.DecodeError) {
	if decodeErr.JobID == "" {
		c.logger.Warn("dropping undecodable message", zap.Error(decodeErr))
		return
	}
	c.logger.Warn("rejecting undecodable message", zap.String("job_id", decodeErr.JobID), zap.Error(decodeErr))
	if err := c.runner.Reject(context.WithoutCancel(ctx), decodeErr.JobID, fmt.Errorf("invalid job message: %w", decodeErr.Err)); err != nil {
		c.logger.Error("failed to record rejected message", zap.String("job_id", decodeErr.JobID), zap.Error(err))
	}
}

// rejectPanicked logs a panic that escaped the runner and records the job as failed
func rejectPanicked(ctx context.Context, runner Runner, msg *model.JobMessage, r any, logger *zap.Logger) (cause error) {
	jobID := msg.JobID
	if jobID == "" {
		jobID = model.DeriveJobID(msg.Spec)
	}
	logger.Error("job handler panic",
		zap.String("job_id", jobID),
		zap.Any("panic", r),
		zap.ByteString("stack", debug.Stack()))

	cause = fmt.Errorf("internal error: %v", r)
	defer func() {
		if r := recover(); r != nil {
			logger.Error("failed to record panicked job", zap.String("job_id", jobID), zap.Any("panic", r))
		}
	}()
	if err := runner.Reject(context.WithoutCancel(ctx), jobID, cause); err != nil {
		logger.Error("failed to record panicked job", zap.String("job_id", jobID), zap.Error(err))
	}
	return cause
}

func (c *Consumer) sleep(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
