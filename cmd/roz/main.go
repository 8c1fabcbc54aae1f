package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/roz-pos/roz/cmd/roz/cli"
	"github.com/roz-pos/roz/internal/app"
	"github.com/roz-pos/roz/internal/auth"
	"github.com/roz-pos/roz/internal/backup"
	"github.com/roz-pos/roz/internal/customers"
	"github.com/roz-pos/roz/internal/dailybook"
	"github.com/roz-pos/roz/internal/inventory"
	"github.com/roz-pos/roz/internal/notify"
	"github.com/roz-pos/roz/internal/observability"
	"github.com/roz-pos/roz/internal/platform/cache"
	"github.com/roz-pos/roz/internal/platform/db"
	"github.com/roz-pos/roz/internal/procurement"
	"github.com/roz-pos/roz/internal/rbac"
	"github.com/roz-pos/roz/internal/sales"
	"github.com/roz-pos/roz/internal/shared"
	"github.com/roz-pos/roz/internal/users"
	"github.com/roz-pos/roz/jobs"
)

const usage = `usage: roz [serve | migrate | jobs stats | jobs trigger <task> | jobs archived]`

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}
	logger := app.NewLogger(cfg)

	flag.Usage = func() { fmt.Fprintln(flag.CommandLine.Output(), usage) }
	flag.Parse()

	switch cmd := flag.Arg(0); cmd {
	case "", "serve":
		err = serve(ctx, cfg, logger)
	case "migrate":
		err = migrate(ctx, cfg, logger)
	case "jobs":
		err = runJobs(ctx, cfg, flag.Args()[1:])
	default:
		flag.Usage()
		os.Exit(2)
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("roz", slog.Any("error", err))
		os.Exit(1)
	}
}

func migrate(ctx context.Context, cfg *app.Config, logger *slog.Logger) error {
	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer pool.Close()
	return db.Migrate(ctx, pool, logger)
}

func runJobs(ctx context.Context, cfg *app.Config, args []string) error {
	c := cli.NewJobsCLI(cfg.RedisAddr)
	defer c.Close()

	if len(args) == 0 {
		return errors.New(usage)
	}
	switch args[0] {
	case "stats":
		stats, err := c.InspectQueue(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("queue=%s pending=%d active=%d scheduled=%d archived=%d\n",
			stats.Queue, stats.Pending, stats.Active, stats.Scheduled, stats.Archived)
	case "trigger":
		if len(args) < 2 {
			return errors.New(usage)
		}
		info, err := c.Trigger(ctx, args[1])
		if err != nil {
			return err
		}
		fmt.Printf("enqueued %s id=%s\n", info.Type, info.ID)
	case "archived":
		tasks, err := c.ListArchived(ctx, 20)
		if err != nil {
			return err
		}
		for _, t := range tasks {
			fmt.Printf("%s %s last_err=%q\n", t.ID, t.Type, t.LastErr)
		}
	default:
		return errors.New(usage)
	}
	return nil
}

func serve(ctx context.Context, cfg *app.Config, logger *slog.Logger) error {
	dbpool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer dbpool.Close()

	if cfg.AutoMigrate {
		if err := db.Migrate(ctx, dbpool, logger); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	metrics := observability.NewMetrics()
	sessionManager := shared.NewSessionManager(redisClient, cfg.SessionSecret, cfg.SessionTTL)
	auditLogger := shared.NewAuditLogger(dbpool)
	rbacMiddleware := rbac.Middleware{Logger: logger}
	formatter := notify.NewFormatter(cfg.CurrencyCode)
	redisOpts := asynq.RedisClientOpt{Addr: cfg.RedisAddr}

	var notifier notify.Notifier
	switch cfg.NotifyMode {
	case app.NotifyModeQueue:
		client := jobs.NewClient(redisOpts)
		defer func() {
			if err := client.Close(); err != nil {
				logger.Warn("asynq client close", slog.Any("error", err))
			}
		}()
		notifier = notify.NewQueueNotifier(logger, client)
	default:
		dispatcher := notify.NewDispatcher(logger, notify.Config{
			PushoverToken:     cfg.PushoverToken,
			PushoverUserKey:   cfg.PushoverUserKey,
			PushoverURL:       cfg.PushoverURL,
			DiscordWebhookURL: cfg.DiscordWebhookURL,
			Timeout:           cfg.NotifyTimeout,
		}, metrics)
		notifier = notify.NewInlineNotifier(logger, dispatcher, cfg.NotifyTimeout)
	}
	logger.Info("notifications", slog.String("mode", cfg.NotifyMode))

	usersRepo := users.NewRepository(dbpool)
	authHandler := auth.NewHandler(logger, auth.NewService(usersRepo, sessionManager))
	usersHandler := users.NewHandler(logger, users.NewService(usersRepo, sessionManager), rbacMiddleware)

	customersService := customers.NewService(customers.NewRepository(dbpool), auditLogger, logger)
	customersHandler := customers.NewHandler(logger, customersService, rbacMiddleware)

	dailyBookHandler := dailybook.NewHandler(logger, dailybook.NewService(dailybook.NewRepository(dbpool)), rbacMiddleware)

	salesService := sales.NewService(sales.NewRepository(dbpool), sales.Options{
		Notifier:  notifier,
		Formatter: formatter,
		Audit:     auditLogger,
		Metrics:   metrics,
		Logger:    logger,
	})
	salesHandler := sales.NewHandler(logger, salesService, rbacMiddleware)

	inventoryService := inventory.NewService(inventory.NewRepository(dbpool), auditLogger, logger)
	inventoryHandler := inventory.NewHandler(logger, inventoryService, rbacMiddleware)

	procurementService := procurement.NewService(procurement.NewRepository(dbpool), auditLogger, notifier, formatter, logger)
	procurementHandler := procurement.NewHandler(logger, procurementService, rbacMiddleware)

	backupHandler := backup.NewHandler(logger, backup.NewService(backup.NewRepository(dbpool), auditLogger, logger), rbacMiddleware)

	inspector := asynq.NewInspector(redisOpts)
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:             logger,
		Config:             cfg,
		SessionManager:     sessionManager,
		RBACMiddleware:     rbacMiddleware,
		AuthHandler:        authHandler,
		UsersHandler:       usersHandler,
		CustomersHandler:   customersHandler,
		DailyBookHandler:   dailyBookHandler,
		SalesHandler:       salesHandler,
		InventoryHandler:   inventoryHandler,
		ProcurementHandler: procurementHandler,
		BackupHandler:      backupHandler,
		JobHandler:         jobHandler,
		Metrics:            metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
	return nil
}
