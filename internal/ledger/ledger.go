// Package ledger records job status where external readers can observe it.
package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/makeasinger/musicengine/internal/apperr"
	"github.com/makeasinger/musicengine/internal/model"
)

// Ledger is a keyed store of job records
type Ledger interface {
	Get(ctx context.Context, jobID string) (*model.Job, error)
	Put(ctx context.Context, job *model.Job) error
}

// Claimer grants one worker exclusive ownership of a job for a bounded time
type Claimer interface {
	Claim(ctx context.Context, jobID, owner string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, jobID, owner string) error
}

// Key returns the ledger key of a job
func Key(jobID string) string {
	return fmt.Sprintf("job:%s", jobID)
}

func claimKey(jobID string) string {
	return Key(jobID) + ":claim"
}

// MemoryLedger keeps records in process memory
type MemoryLedger struct {
	mu     sync.Mutex
	jobs   map[string][]byte
	claims map[string]memoryClaim
	now    func() time.Time
}

type memoryClaim struct {
	owner   string
	expires time.Time
}

// NewMemoryLedger creates an empty in-memory ledger
func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{
		jobs:   make(map[string][]byte),
		claims: make(map[string]memoryClaim),
		now:    time.Now,
	}
}

// Get returns a copy of the stored record
func (l *MemoryLedger) Get(ctx context.Context, jobID string) (*model.Job, error) {
	l.mu.Lock()
	data, ok := l.jobs[jobID]
	l.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", apperr.ErrJobNotFound, jobID)
	}

	var job model.Job
	if err := json.Unmarshal(data, &job); err != nil {
		return nil, fmt.Errorf("failed to decode job %s: %w", jobID, err)
	}
	return &job, nil
}

// Put replaces the record of job.ID
func (l *MemoryLedger) Put(ctx context.Context, job *model.Job) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to encode job %s: %w", job.ID, err)
	}
	l.mu.Lock()
	l.jobs[job.ID] = data
	l.mu.Unlock()
	return nil
}

// Claim succeeds when no unexpired claim by another owner exists
func (l *MemoryLedger) Claim(ctx context.Context, jobID, owner string, ttl time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if c, ok := l.claims[jobID]; ok && now.Before(c.expires) && c.owner != owner {
		return false, nil
	}
	l.claims[jobID] = memoryClaim{owner: owner, expires: now.Add(ttl)}
	return true, nil
}

// Release drops a claim held by owner
func (l *MemoryLedger) Release(ctx context.Context, jobID, owner string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if c, ok := l.claims[jobID]; ok && c.owner == owner {
		delete(l.claims, jobID)
	}
	return nil
}
