package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/makeasinger/musicengine/internal/model"
)

// DefaultListName is the Redis list producers push to
const DefaultListName = "music_jobs"

// ListQueue is a Redis list: producers LPUSH, workers BRPOP
type ListQueue struct {
	redis *redis.Client
	name  string
}

// NewListQueue creates a queue on the named list
func NewListQueue(client *redis.Client, name string) *ListQueue {
	if name == "" {
		name = DefaultListName
	}
	return &ListQueue{redis: client, name: name}
}

// Dequeue blocks on BRPOP for up to wait
func (q *ListQueue) Dequeue(ctx context.Context, wait time.Duration) (*model.JobMessage, error) {
	res, err := q.redis.BRPop(ctx, wait, q.name).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to pop from %s: %w", q.name, err)
	}
	// res is [list name, value]
	if len(res) != 2 {
		return nil, fmt.Errorf("unexpected BRPOP reply of %d elements", len(res))
	}
	return Decode([]byte(res[1]))
}

// Enqueue pushes msg to the head of the list
func (q *ListQueue) Enqueue(ctx context.Context, msg *model.JobMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}
	if err := q.redis.LPush(ctx, q.name, data).Err(); err != nil {
		return fmt.Errorf("failed to push to %s: %w", q.name, err)
	}
	return nil
}
