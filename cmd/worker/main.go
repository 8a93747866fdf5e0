package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/sparkleops/sparkle-ops/internal/app"
	"github.com/sparkleops/sparkle-ops/internal/catalog"
	jobmetrics "github.com/sparkleops/sparkle-ops/internal/jobs"
	"github.com/sparkleops/sparkle-ops/internal/notify"
	"github.com/sparkleops/sparkle-ops/internal/platform/cache"
	"github.com/sparkleops/sparkle-ops/internal/platform/db"
	"github.com/sparkleops/sparkle-ops/internal/quotes"
	"github.com/sparkleops/sparkle-ops/jobs"
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

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN, db.Options{MaxConns: 4})
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr, "", 0)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	redisOpt := asynq.RedisClientOpt{Addr: cfg.RedisAddr}
	queue := asynq.NewClient(redisOpt)
	defer func() {
		if err := queue.Close(); err != nil {
			logger.Warn("asynq client close", slog.Any("error", err))
		}
	}()

	quoteService := quotes.NewService(quotes.Deps{
		Repo:     quotes.NewRepository(pool),
		Catalog:  catalog.NewService(catalog.NewRepository(pool)),
		Cache:    cache.NewVersioned(redisClient, "quotes", cfg.CacheTTL),
		Notifier: notify.NewAsyncDispatcher(queue, logger),
		Logger:   logger,
		Config: quotes.Config{
			ExpiryDays:        cfg.QuoteExpiryDays,
			RevisionThreshold: cfg.QuoteRevisionThreshold,
			DepositPercentage: cfg.DepositPercentage,
		},
	})

	metrics := jobmetrics.NewMetrics(prometheus.DefaultRegisterer)
	notifier := &jobs.NotifyHandler{
		Mailer: jobs.LogMailer{
			Config: jobs.SMTPConfig{Host: cfg.SMTPHost, Port: cfg.SMTPPort, From: cfg.SMTPFrom},
			Logger: logger,
		},
		Logger:  logger,
		Metrics: metrics,
	}
	syncer := &jobs.SyncHandler{Logger: logger, Metrics: metrics}
	expiry := jobs.NewQuoteExpiryJob(quoteService, logger, metrics)

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: redisOpt,
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: notify.TaskQuoteNotify, Handler: notifier.HandleQuote},
			{Type: notify.TaskInvoiceNotify, Handler: notifier.HandleInvoice},
			{Type: notify.TaskSyncCRM, Handler: syncer.Handle},
			{Type: notify.TaskSyncAccounting, Handler: syncer.Handle},
			{Type: notify.TaskSyncCalendar, Handler: syncer.Handle},
			{Type: jobs.TaskQuoteExpire, Handler: expiry.Handle},
		},
		Cron: []jobs.CronRegistration{
			{Spec: cfg.QuoteExpiryCron, Task: jobs.NewQuoteExpireTask(), Options: []asynq.Option{asynq.MaxRetry(3)}},
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
