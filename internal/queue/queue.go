// Package queue moves job messages between producers and workers.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/makeasinger/musicengine/internal/model"
)

// Consumer pops one message, waiting at most wait. It returns (nil, nil) on timeout.
type Consumer interface {
	Dequeue(ctx context.Context, wait time.Duration) (*model.JobMessage, error)
}

// Producer publishes a job message
type Producer interface {
	Enqueue(ctx context.Context, msg *model.JobMessage) error
}

// DecodeError is returned for a message that could not be decoded. JobID is set
// when the id was readable.
type DecodeError struct {
	JobID string
	Err   error
}

func (e *DecodeError) Error() string {
	if e.JobID != "" {
		return fmt.Sprintf("invalid message for job %s: %v", e.JobID, e.Err)
	}
	return fmt.Sprintf("invalid message: %v", e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// Decode parses a {"job_id", "spec"} message
func Decode(data []byte) (*model.JobMessage, error) {
	var msg model.JobMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		var partial struct {
			JobID string `json:"job_id"`
		}
		_ = json.Unmarshal(data, &partial)
		return nil, &DecodeError{JobID: partial.JobID, Err: err}
	}
	return &msg, nil
}
