package main

import (
	"context"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/makeasinger/musicengine/internal/handler"
	"github.com/makeasinger/musicengine/internal/ledger"
	"github.com/makeasinger/musicengine/internal/middleware"
	"github.com/makeasinger/musicengine/internal/observability"
	"github.com/makeasinger/musicengine/internal/server"
	"github.com/makeasinger/musicengine/internal/service"
	ws "github.com/makeasinger/musicengine/internal/websocket"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	var withWorker bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, optionally with an in-process worker",
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

			metricsHandler, shutdownMetrics, err := observability.InitMetrics()
			if err != nil {
				return err
			}
			defer func() { _ = shutdownMetrics(context.Background()) }()

			hub := ws.NewHub(logger.Named("ws"))
			go hub.Run(runCtx)

			local, store, err := newStores(cfg)
			if err != nil {
				return err
			}

			redisLedger := ledger.NewRedisLedger(redisClient, cfg.Ledger.TTL)
			producer, closeProducer := newProducer(cfg, redisClient)
			defer closeProducer()

			svc := service.NewJobService(ledger.NewTracker(redisLedger, hub, logger), producer, validator.New(), local)
			app := server.New(server.Deps{
				Jobs:      handler.NewJobHandler(svc),
				Auth:      middleware.NewAuthMiddleware(cfg.JWT.Secret),
				Hub:       hub,
				Metrics:   metricsHandler,
				Ping:      func(c context.Context) error { return redisClient.Ping(c).Err() },
				AccessLog: cfg.Server.Env == "development",
			})

			var wg sync.WaitGroup
			if withWorker {
				pipeline, err := newPipeline(cfg, logger, redisLedger, hub, store)
				if err != nil {
					return err
				}
				wg.Add(1)
				go func() {
					defer wg.Done()
					if err := runWorker(runCtx, cfg, logger.Named("worker"), redisClient, pipeline); err != nil {
						logger.Error("worker stopped", zap.Error(err))
					}
				}()
			}

			go func() {
				<-runCtx.Done()
				logger.Info("shutting down server")
				if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
					logger.Error("server shutdown error", zap.Error(err))
				}
			}()

			addr := ":" + cfg.Server.Port
			logger.Info("server starting", zap.String("addr", addr), zap.Bool("worker", withWorker))
			if err := app.Listen(addr); err != nil {
				return err
			}

			wg.Wait()
			return nil
		},
	}

	cmd.Flags().BoolVar(&withWorker, "worker", true, "Run a job worker in the same process")
	return cmd
}
