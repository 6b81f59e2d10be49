package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"github.com/makeasinger/musicengine/internal/model"
)

// TaskTypeGenerate is the asynq task type of a generation job
const TaskTypeGenerate = "music:generate"

type taskPayload struct {
	JobID   string          `json:"jobId"`
	Payload json.RawMessage `json:"payload"`
}

// NewGenerateTask wraps a message in an asynq task
func NewGenerateTask(msg *model.JobMessage) (*asynq.Task, error) {
	spec, err := json.Marshal(msg.Spec)
	if err != nil {
		return nil, err
	}
	data, err := json.Marshal(taskPayload{JobID: msg.JobID, Payload: spec})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeGenerate, data), nil
}

// ParseTask extracts the message carried by a generation task
func ParseTask(t *asynq.Task) (*model.JobMessage, error) {
	var p taskPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return nil, &DecodeError{Err: fmt.Errorf("failed to unmarshal task payload: %w", err)}
	}
	msg := &model.JobMessage{JobID: p.JobID}
	if err := json.Unmarshal(p.Payload, &msg.Spec); err != nil {
		return nil, &DecodeError{JobID: p.JobID, Err: fmt.Errorf("failed to unmarshal spec: %w", err)}
	}
	return msg, nil
}

// AsynqProducer enqueues generation tasks. The worker never retries, so tasks carry MaxRetry(0).
type AsynqProducer struct {
	client *asynq.Client
	queue  string
}

func NewAsynqProducer(client *asynq.Client, queue string) *AsynqProducer {
	return &AsynqProducer{client: client, queue: queue}
}

func (p *AsynqProducer) Enqueue(ctx context.Context, msg *model.JobMessage) error {
	task, err := NewGenerateTask(msg)
	if err != nil {
		return fmt.Errorf("failed to create task: %w", err)
	}

	opts := []asynq.Option{
		asynq.Queue(p.queue),
		asynq.MaxRetry(0),
		asynq.Retention(24 * time.Hour),
	}
	if msg.JobID != "" {
		opts = append(opts, asynq.TaskID(msg.JobID))
	}

	if _, err := p.client.EnqueueContext(ctx, task, opts...); err != nil {
		return fmt.Errorf("failed to enqueue task: %w", err)
	}
	return nil
}
