package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/makeasinger/musicengine/internal/config"
	"github.com/makeasinger/musicengine/internal/ledger"
	"github.com/makeasinger/musicengine/internal/observability"
)

func newWorkerCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "worker",
		Short: "Consume generation jobs from the queue",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := ctx.ensure()
			if err != nil {
				return err
			}

			runCtx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			redisClient := newRedisClient(cfg)
			defer redisClient.Close()
			if err := redisClient.Ping(runCtx).Err(); err != nil {
				logger.Warn("redis not available", zap.Error(err))
			}

			stopMetrics, err := startWorkerMetrics(cfg, logger)
			if err != nil {
				return err
			}
			defer stopMetrics()

			_, store, err := newStores(cfg)
			if err != nil {
				return err
			}

			pipeline, err := newPipeline(cfg, logger, ledger.NewRedisLedger(redisClient, cfg.Ledger.TTL), nil, store)
			if err != nil {
				return err
			}

			logger.Info("worker starting",
				zap.String("queue_driver", cfg.Queue.Driver),
				zap.String("output_dir", cfg.Storage.OutputDir))
			return runWorker(runCtx, cfg, logger, redisClient, pipeline)
		},
	}
}

// startWorkerMetrics installs the Prometheus meter provider before the pipeline
// instruments are created and serves it on worker.metrics_addr
func startWorkerMetrics(cfg *config.Config, logger *zap.Logger) (func(), error) {
	handler, shutdownMetrics, err := observability.InitMetrics()
	if err != nil {
		return nil, err
	}

	var srv *http.Server
	if cfg.Worker.MetricsAddr != "" {
		srv = observability.NewServer(cfg.Worker.MetricsAddr, handler)
		go func() {
			logger.Info("worker metrics listening", zap.String("addr", srv.Addr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server error", zap.Error(err))
			}
		}()
	}

	return func() {
		if srv != nil {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Shutdown(ctx); err != nil {
				logger.Warn("metrics server shutdown error", zap.Error(err))
			}
		}
		if err := shutdownMetrics(context.Background()); err != nil {
			logger.Warn("failed to shutdown metrics", zap.Error(err))
		}
	}, nil
}
