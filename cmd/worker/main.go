package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/roz-pos/roz/internal/app"
	"github.com/roz-pos/roz/internal/notify"
	"github.com/roz-pos/roz/internal/observability"
	"github.com/roz-pos/roz/internal/platform/db"
	"github.com/roz-pos/roz/internal/shared"
	"github.com/roz-pos/roz/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg).With(slog.String("component", "worker"))

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	metrics := observability.NewMetrics()
	dispatcher := notify.NewDispatcher(logger, notify.Config{
		PushoverToken:     cfg.PushoverToken,
		PushoverUserKey:   cfg.PushoverUserKey,
		PushoverURL:       cfg.PushoverURL,
		DiscordWebhookURL: cfg.DiscordWebhookURL,
		Timeout:           cfg.NotifyTimeout,
	}, metrics)

	notifyHandler := jobs.NotifyHandler{Dispatcher: dispatcher, Observer: metrics, Logger: logger}
	cleanupHandler := jobs.IdempotencyCleanupHandler{
		Store:    shared.NewIdempotencyStore(pool),
		Observer: metrics,
		Logger:   logger,
	}

	cleanupTask, err := jobs.NewIdempotencyCleanupTask(jobs.DefaultIdempotencyRetention)
	if err != nil {
		logger.Error("build cleanup task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskNotifyDispatch, Handler: notifyHandler.Handle},
			{Type: jobs.TaskIdempotencyCleanup, Handler: cleanupHandler.Handle},
		},
		Cron: []jobs.CronRegistration{
			{Spec: "30 3 * * *", Task: cleanupTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
