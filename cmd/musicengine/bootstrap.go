package main

import (
	"context"
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/makeasinger/musicengine/internal/config"
	"github.com/makeasinger/musicengine/internal/ledger"
	"github.com/makeasinger/musicengine/internal/mixer"
	"github.com/makeasinger/musicengine/internal/observability"
	"github.com/makeasinger/musicengine/internal/queue"
	"github.com/makeasinger/musicengine/internal/storage"
	"github.com/makeasinger/musicengine/internal/synth"
	"github.com/makeasinger/musicengine/internal/worker"
)

func newRedisClient(cfg *config.Config) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
}

func asynqRedisOpt(cfg *config.Config) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}
}

func workerID(cfg *config.Config) string {
	if cfg.Worker.ID != "" {
		return cfg.Worker.ID
	}
	host, err := os.Hostname()
	if err != nil {
		host = "worker"
	}
	return fmt.Sprintf("%s-%s", host, uuid.New().String()[:8])
}

func newStores(cfg *config.Config) (*storage.LocalStore, storage.Store, error) {
	local := storage.NewLocalStore(cfg.Storage.OutputDir, cfg.Storage.PublicBaseURL)
	if cfg.Storage.Driver != "r2" {
		return local, local, nil
	}
	r2, err := storage.NewR2Store(&cfg.R2, storage.NewLocalStore(cfg.Storage.OutputDir, ""))
	if err != nil {
		return nil, nil, err
	}
	return local, r2, nil
}

// newProducer returns the submission side of the configured queue and a close func
func newProducer(cfg *config.Config, client *redis.Client) (queue.Producer, func() error) {
	if cfg.Queue.Driver == "asynq" {
		asynqClient := asynq.NewClient(asynqRedisOpt(cfg))
		return queue.NewAsynqProducer(asynqClient, cfg.Queue.AsynqName), asynqClient.Close
	}
	return queue.NewListQueue(client, cfg.Queue.Name), func() error { return nil }
}

func newPipeline(cfg *config.Config, logger *zap.Logger, l *ledger.RedisLedger, notifier ledger.Notifier, store storage.Store) (*worker.Pipeline, error) {
	policy, err := synth.ParsePolicy(cfg.Generation.OnUnavailable)
	if err != nil {
		return nil, err
	}

	var primary synth.Generator
	if httpGen := synth.NewHTTPGenerator(&cfg.Generation); httpGen.IsConfigured() {
		primary = httpGen
	} else {
		logger.Warn("generation.base_url not set, base audio comes from the placeholder policy",
			zap.String("policy", string(policy)))
	}

	metrics, err := observability.NewPipelineMetrics()
	if err != nil {
		return nil, err
	}

	id := workerID(cfg)
	return worker.NewPipeline(worker.Deps{
		WorkerID:  id,
		Tracker:   ledger.NewTracker(l, notifier, logger),
		Claimer:   l,
		ClaimTTL:  cfg.Worker.ClaimTTL,
		Generator: synth.NewFallback(primary, policy, cfg.Generation.Timeout, logger.Named("synth")),
		Mixer:     mixer.New(store),
		Validate:  validator.New(),
		Metrics:   metrics,
		Logger:    logger.With(zap.String("worker_id", id)),
	}), nil
}

// runWorker consumes jobs until ctx is cancelled, using the configured queue driver
func runWorker(ctx context.Context, cfg *config.Config, logger *zap.Logger, client *redis.Client, pipeline *worker.Pipeline) error {
	if cfg.Queue.Driver == "asynq" {
		srv := asynq.NewServer(asynqRedisOpt(cfg), asynq.Config{
			Concurrency: max(cfg.Worker.Concurrency, 1),
			Queues:      map[string]int{cfg.Queue.AsynqName: 1},
		})
		mux := asynq.NewServeMux()
		worker.NewTaskHandler(pipeline, logger).Register(mux)

		if err := srv.Start(mux); err != nil {
			return fmt.Errorf("asynq worker: %w", err)
		}
		logger.Info("asynq worker started", zap.String("queue", cfg.Queue.AsynqName))
		<-ctx.Done()
		srv.Shutdown()
		return nil
	}

	consumer := worker.NewConsumer(
		queue.NewListQueue(client, cfg.Queue.Name),
		pipeline,
		cfg.Worker.PollTimeout,
		cfg.Worker.ErrorBackoff,
		logger.With(zap.String("queue", cfg.Queue.Name)),
	)
	return consumer.Run(ctx)
}
