package worker

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/makeasinger/musicengine/internal/apperr"
	"github.com/makeasinger/musicengine/internal/ledger"
	"github.com/makeasinger/musicengine/internal/logging"
	"github.com/makeasinger/musicengine/internal/mixer"
	"github.com/makeasinger/musicengine/internal/model"
	"github.com/makeasinger/musicengine/internal/observability"
	"github.com/makeasinger/musicengine/internal/prompt"
	"github.com/makeasinger/musicengine/internal/stems"
	"github.com/makeasinger/musicengine/internal/synth"
)

// Stage names used in logs and metrics
const (
	StageGenerate    = "generate"
	StageResynthesis = "resynthesize"
	StageMix         = "mix"
)

// Deps are the collaborators of a Pipeline
type Deps struct {
	WorkerID  string
	Tracker   *ledger.Tracker
	Claimer   ledger.Claimer // optional
	ClaimTTL  time.Duration
	Generator synth.Generator
	Stems     stems.Registry
	Mixer     *mixer.Mixer
	Validate  *validator.Validate
	Metrics   *observability.PipelineMetrics
	Logger    *zap.Logger
}

// Pipeline turns one job message into exported audio and a terminal ledger entry
type Pipeline struct {
	deps Deps
}

func NewPipeline(deps Deps) *Pipeline {
	if deps.Stems == nil {
		deps.Stems = stems.DefaultRegistry
	}
	if deps.Validate == nil {
		deps.Validate = validator.New()
	}
	if deps.Metrics == nil {
		deps.Metrics = observability.NopPipelineMetrics()
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	return &Pipeline{deps: deps}
}

// Run executes the job and records its outcome. The returned error describes why the
// job failed; it has already been written to the ledger.
func (p *Pipeline) Run(ctx context.Context, msg *model.JobMessage) error {
	jobID := msg.JobID
	if jobID == "" {
		jobID = model.DeriveJobID(msg.Spec)
	}
	logger := logging.ForJob(p.deps.Logger, jobID)

	if p.deps.Claimer != nil && p.deps.ClaimTTL > 0 {
		ok, err := p.deps.Claimer.Claim(ctx, jobID, p.deps.WorkerID, p.deps.ClaimTTL)
		if err != nil {
			return err
		}
		if !ok {
			logger.Info("job claimed by another worker, skipping")
			return apperr.ErrClaimed
		}
		defer func() {
			if err := p.deps.Claimer.Release(context.WithoutCancel(ctx), jobID, p.deps.WorkerID); err != nil {
				logger.Warn("failed to release claim", zap.Error(err))
			}
		}()
	}

	spec := msg.Spec.Normalize()
	job, err := p.load(ctx, jobID, spec)
	if err != nil {
		return err
	}
	if job.Status != model.JobStatusQueued {
		logger.Info("job already processed, skipping", zap.String("status", string(job.Status)))
		return nil
	}

	// the ledger keeps the spec this run actually uses
	job.Spec = spec
	if err := spec.Validate(p.deps.Validate); err != nil {
		logger.Warn("rejected invalid spec", zap.Error(err))
		p.fail(ctx, job, err, logger)
		return err
	}

	if err := p.deps.Tracker.Start(ctx, job, p.deps.WorkerID); err != nil {
		return err
	}
	logger.Info("job started", zap.String("worker_id", p.deps.WorkerID))

	outputs, err := p.execute(ctx, job, spec, logger)
	if err != nil {
		logger.Error("job failed", zap.Error(err), zap.Float64("progress", job.Progress))
		p.fail(ctx, job, err, logger)
		return err
	}

	if err := p.deps.Tracker.Complete(ctx, job, outputs); err != nil {
		logger.Error("failed to record completion", zap.Error(err))
		p.fail(ctx, job, err, logger)
		return err
	}
	p.deps.Metrics.JobFinished(ctx, string(model.JobStatusCompleted))
	logger.Info("job completed",
		zap.Int("outputs", len(outputs)),
		zap.Bool("placeholder", job.Placeholder))
	return nil
}

// Reject records a job that could not be run, such as one whose message did not decode, as failed
func (p *Pipeline) Reject(ctx context.Context, jobID string, cause error) error {
	logger := logging.ForJob(p.deps.Logger, jobID)
	job, err := p.load(ctx, jobID, model.MusicSpec{})
	if err != nil {
		return err
	}
	if job.Status.IsTerminal() {
		return nil
	}
	p.fail(ctx, job, cause, logger)
	return nil
}

func (p *Pipeline) load(ctx context.Context, jobID string, spec model.MusicSpec) (*model.Job, error) {
	job, err := p.deps.Tracker.Get(ctx, jobID)
	if err == nil {
		return job, nil
	}
	if !errors.Is(err, apperr.ErrJobNotFound) {
		return nil, err
	}
	return p.deps.Tracker.Create(ctx, jobID, spec)
}

// execute runs the stages. A panic in any stage is returned as an error.
func (p *Pipeline) execute(ctx context.Context, job *model.Job, spec model.MusicSpec, logger *zap.Logger) (outputs map[string]string, err error) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("pipeline panic", zap.Any("panic", r), zap.ByteString("stack", debug.Stack()))
			err = fmt.Errorf("internal error: %v", r)
		}
	}()

	start := time.Now()
	req := synth.Request{
		Prompt:   prompt.Build(spec),
		Duration: spec.Duration,
		Seed:     spec.Seed,
	}
	logger.Debug("generating base audio", zap.String("stage", StageGenerate), zap.String("prompt", req.Prompt))
	base, err := p.deps.Generator.Generate(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("generate: %w", err)
	}
	job.Placeholder = base.Placeholder
	if base.Placeholder {
		p.deps.Metrics.PlaceholderUsed(ctx)
	}
	p.deps.Metrics.StageDone(ctx, StageGenerate, time.Since(start))
	if err := p.deps.Tracker.Advance(ctx, job, model.ProgressGenerated); err != nil {
		return nil, err
	}

	start = time.Now()
	if unknown := p.deps.Stems.Unknown(spec.Instruments); len(unknown) > 0 {
		logger.Debug("skipping unknown instruments", zap.String("stage", StageResynthesis), zap.Strings("instruments", unknown))
	}
	stemSet := p.deps.Stems.Resynthesize(base.Samples, spec.Instruments, base.SampleRate)
	p.deps.Metrics.StageDone(ctx, StageResynthesis, time.Since(start))
	if err := p.deps.Tracker.Advance(ctx, job, model.ProgressResynthesis); err != nil {
		return nil, err
	}

	start = time.Now()
	result, err := p.deps.Mixer.MixAndExport(ctx, job.ID, stemSet, spec.Vibe, spec.WantStems())
	if err != nil {
		return nil, fmt.Errorf("mix: %w", err)
	}
	p.deps.Metrics.StageDone(ctx, StageMix, time.Since(start))
	if err := p.deps.Tracker.Advance(ctx, job, model.ProgressMixed); err != nil {
		return nil, err
	}

	return result.Outputs, nil
}

func (p *Pipeline) fail(ctx context.Context, job *model.Job, cause error, logger *zap.Logger) {
	if err := p.deps.Tracker.Fail(ctx, job, cause.Error()); err != nil {
		logger.Error("failed to mark job as failed", zap.Error(err))
		return
	}
	p.deps.Metrics.JobFinished(ctx, string(model.JobStatusFailed))
}
