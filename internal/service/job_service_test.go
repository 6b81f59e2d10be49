package service

import (
	"context"
	"os"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/makeasinger/musicengine/internal/apperr"
	"github.com/makeasinger/musicengine/internal/ledger"
	"github.com/makeasinger/musicengine/internal/model"
	"github.com/makeasinger/musicengine/internal/storage"
)

type recordingProducer struct {
	msgs []*model.JobMessage
}

func (p *recordingProducer) Enqueue(_ context.Context, msg *model.JobMessage) error {
	p.msgs = append(p.msgs, msg)
	return nil
}

func TestCredits(t *testing.T) {
	noStems := false
	assert.Equal(t, 1, Credits(model.MusicSpec{Duration: 5, Stems: &noStems}))
	assert.Equal(t, 3, Credits(model.MusicSpec{Duration: 30, Stems: &noStems}))
	assert.Equal(t, 32, Credits(model.MusicSpec{Duration: 300}))
}

func TestSubmit_DefaultsApplied(t *testing.T) {
	producer := &recordingProducer{}
	tracker := ledger.NewTracker(ledger.NewMemoryLedger(), nil, nil)
	svc := NewJobService(tracker, producer, validator.New(), nil)

	resp, err := svc.Submit(context.Background(), "user-1", model.MusicSpec{})
	require.NoError(t, err)
	assert.Equal(t, "30s", resp.EstimatedTime)
	assert.Equal(t, 5, resp.CreditsCharged)

	// the message carries the spec as submitted; the worker applies defaults
	require.Len(t, producer.msgs, 1)
	assert.Equal(t, 0, producer.msgs[0].Spec.BPM)

	job, err := tracker.Get(context.Background(), resp.JobID)
	require.NoError(t, err)
	assert.Equal(t, "user-1", job.UserID)
	assert.Equal(t, model.DefaultBPM, job.Spec.BPM)
	assert.Len(t, job.Spec.Vibe, len(model.VibeAxes))
	require.NotNil(t, job.Spec.Stems)
	assert.True(t, *job.Spec.Stems)
}

func TestSubmit_Invalid(t *testing.T) {
	producer := &recordingProducer{}
	svc := NewJobService(ledger.NewTracker(ledger.NewMemoryLedger(), nil, nil), producer, validator.New(), nil)

	_, err := svc.Submit(context.Background(), "user-1", model.MusicSpec{Duration: 301})
	assert.ErrorIs(t, err, apperr.ErrValidation)
	assert.Empty(t, producer.msgs)
}

func TestOutputPath(t *testing.T) {
	ctx := context.Background()
	tracker := ledger.NewTracker(ledger.NewMemoryLedger(), nil, nil)
	store := storage.NewLocalStore(t.TempDir(), "")
	svc := NewJobService(tracker, &recordingProducer{}, validator.New(), store)

	job, err := tracker.Create(ctx, "j1", model.MusicSpec{})
	require.NoError(t, err)

	_, err = svc.OutputPath(ctx, "j1", "mix")
	assert.ErrorIs(t, err, ErrJobNotCompleted)

	ref, err := store.Save(ctx, "j1", "mix", []float64{0.1}, 32000)
	require.NoError(t, err)
	require.NoError(t, tracker.Start(ctx, job, "w"))
	require.NoError(t, tracker.Complete(ctx, job, map[string]string{"mix": ref}))

	path, err := svc.OutputPath(ctx, "j1", "mix")
	require.NoError(t, err)
	assert.Equal(t, ref, path)

	require.NoError(t, os.Remove(path))
	_, err = svc.OutputPath(ctx, "j1", "mix")
	assert.ErrorIs(t, err, ErrOutputNotFound)

	_, err = svc.OutputPath(ctx, "j1", "../../etc/passwd")
	assert.ErrorIs(t, err, ErrOutputNotFound)

	_, err = svc.OutputPath(ctx, "missing", "mix")
	assert.True(t, IsNotFound(err))
}
