package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/makeasinger/musicengine/internal/apperr"
	"github.com/makeasinger/musicengine/internal/model"
)

// releaseScript deletes the claim only if it is still held by the caller
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLedger stores each job as a JSON value at job:<id>
type RedisLedger struct {
	redis *redis.Client
	ttl   time.Duration
}

// NewRedisLedger creates a ledger. ttl 0 keeps records forever.
func NewRedisLedger(client *redis.Client, ttl time.Duration) *RedisLedger {
	return &RedisLedger{redis: client, ttl: ttl}
}

func (l *RedisLedger) Get(ctx context.Context, jobID string) (*model.Job, error) {
	data, err := l.redis.Get(ctx, Key(jobID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("%w: %s", apperr.ErrJobNotFound, jobID)
		}
		return nil, fmt.Errorf("failed to read job %s: %w", jobID, err)
	}

	var job model.Job
	if err := json.Unmarshal(data, &job); err != nil {
		return nil, fmt.Errorf("failed to decode job %s: %w", jobID, err)
	}
	return &job, nil
}

// Put overwrites the whole record with a single SET
func (l *RedisLedger) Put(ctx context.Context, job *model.Job) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to encode job %s: %w", job.ID, err)
	}
	if err := l.redis.Set(ctx, Key(job.ID), data, l.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save job %s: %w", job.ID, err)
	}
	return nil
}

// Claim sets job:<id>:claim to owner if absent, expiring after ttl
func (l *RedisLedger) Claim(ctx context.Context, jobID, owner string, ttl time.Duration) (bool, error) {
	ok, err := l.redis.SetNX(ctx, claimKey(jobID), owner, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to claim job %s: %w", jobID, err)
	}
	if ok {
		return true, nil
	}
	// a redelivery to the same worker keeps its claim
	holder, err := l.redis.Get(ctx, claimKey(jobID)).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return false, fmt.Errorf("failed to read claim of job %s: %w", jobID, err)
	}
	return holder == owner, nil
}

func (l *RedisLedger) Release(ctx context.Context, jobID, owner string) error {
	if err := releaseScript.Run(ctx, l.redis, []string{claimKey(jobID)}, owner).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("failed to release job %s: %w", jobID, err)
	}
	return nil
}
