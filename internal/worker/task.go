package worker

import (
	"context"
	"errors"
	"fmt"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"github.com/makeasinger/musicengine/internal/apperr"
	"github.com/makeasinger/musicengine/internal/queue"
)

// TaskHandler runs generation tasks delivered by asynq
type TaskHandler struct {
	runner Runner
	logger *zap.Logger
}

func NewTaskHandler(runner Runner, logger *zap.Logger) *TaskHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TaskHandler{runner: runner, logger: logger}
}

// ProcessTask handles a music:generate task. Failures are never retried.
func (h *TaskHandler) ProcessTask(ctx context.Context, t *asynq.Task) (err error) {
	msg, err := queue.ParseTask(t)
	if err != nil {
		var decodeErr *queue.DecodeError
		if errors.As(err, &decodeErr) && decodeErr.JobID != "" {
			if rejectErr := h.runner.Reject(ctx, decodeErr.JobID, err); rejectErr != nil {
				h.logger.Error("failed to record rejected task", zap.String("job_id", decodeErr.JobID), zap.Error(rejectErr))
			}
		}
		return fmt.Errorf("%w: %w", err, asynq.SkipRetry)
	}

	defer func() {
		if r := recover(); r != nil {
			cause := rejectPanicked(ctx, h.runner, msg, r, h.logger)
			err = fmt.Errorf("job %s: %w: %w", msg.JobID, cause, asynq.SkipRetry)
		}
	}()

	if err := h.runner.Run(ctx, msg); err != nil {
		if errors.Is(err, apperr.ErrClaimed) {
			return nil
		}
		return fmt.Errorf("job %s: %w: %w", msg.JobID, err, asynq.SkipRetry)
	}
	return nil
}

// Register mounts the handler on mux
func (h *TaskHandler) Register(mux *asynq.ServeMux) {
	mux.HandleFunc(queue.TaskTypeGenerate, h.ProcessTask)
}
