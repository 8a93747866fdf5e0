package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"golang.org/x/sync/errgroup"

	"github.com/sparkleops/sparkle-ops/cmd/sparkle/cli"
	"github.com/sparkleops/sparkle-ops/internal/app"
	"github.com/sparkleops/sparkle-ops/internal/catalog"
	"github.com/sparkleops/sparkle-ops/internal/invoices"
	"github.com/sparkleops/sparkle-ops/internal/notify"
	"github.com/sparkleops/sparkle-ops/internal/observability"
	"github.com/sparkleops/sparkle-ops/internal/platform/cache"
	"github.com/sparkleops/sparkle-ops/internal/platform/db"
	"github.com/sparkleops/sparkle-ops/internal/quotes"
	"github.com/sparkleops/sparkle-ops/internal/rbac"
	"github.com/sparkleops/sparkle-ops/jobs"
	"github.com/sparkleops/sparkle-ops/report"
)

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

	if len(os.Args) > 1 && os.Args[1] == "jobs" {
		if err := runJobs(ctx, cfg, os.Args[2:]); err != nil {
			logger.Error("jobs command", slog.Any("error", err))
			os.Exit(1)
		}
		return
	}

	if err := serve(ctx, cfg, logger); err != nil {
		logger.Error("server exited", slog.Any("error", err))
		os.Exit(1)
	}
}

func serve(ctx context.Context, cfg *app.Config, logger *slog.Logger) error {
	pool, err := db.New(ctx, cfg.PGDSN, db.Options{})
	if err != nil {
		return err
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr, "", 0)
	if err != nil {
		return err
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()
	quoteCache := cache.NewVersioned(redisClient, "quotes", cfg.CacheTTL)

	redisOpt := asynq.RedisClientOpt{Addr: cfg.RedisAddr}
	queue := asynq.NewClient(redisOpt)
	defer func() {
		if err := queue.Close(); err != nil {
			logger.Warn("asynq client close", slog.Any("error", err))
		}
	}()
	dispatcher := notify.NewAsyncDispatcher(queue, logger)
	metrics := observability.NewMetrics()

	rbacService := rbac.NewService()
	rbacMiddleware := rbac.Middleware{Service: rbacService, Logger: logger}

	catalogService := catalog.NewService(catalog.NewRepository(pool))
	quoteService := quotes.NewService(quotes.Deps{
		Repo:     quotes.NewRepository(pool),
		Catalog:  catalogService,
		Cache:    quoteCache,
		Notifier: dispatcher,
		Metrics:  metrics,
		Logger:   logger,
		Config: quotes.Config{
			ExpiryDays:        cfg.QuoteExpiryDays,
			RevisionThreshold: cfg.QuoteRevisionThreshold,
			DepositPercentage: cfg.DepositPercentage,
		},
	})
	invoiceService := invoices.NewService(invoices.Deps{
		Repo:     invoices.NewRepository(pool),
		Quotes:   quoteService,
		Notifier: dispatcher,
		Logger:   logger,
		Config:   invoices.Config{PaymentTermsDays: cfg.InvoicePaymentTermDays},
	})

	pdfClient := report.NewClient(cfg.GotenbergURL, cfg.GotenbergTimeout)

	inspector := asynq.NewInspector(redisOpt)
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()

	router := app.NewRouter(app.RouterParams{
		Logger:             logger,
		Config:             cfg,
		RBACMiddleware:     rbacMiddleware,
		QuotesHandler:      quotes.NewHandler(logger, quoteService, pdfClient, rbacMiddleware),
		InvoicesHandler:    invoices.NewHandler(logger, invoiceService, rbacMiddleware),
		CatalogHandler:     catalog.NewHandler(logger, catalogService, rbacMiddleware),
		PermissionsHandler: rbac.NewPermissionsHandler(logger, rbacService),
		ReportHandler:      report.NewHandler(pdfClient, logger),
		JobHandler:         jobs.NewHandler(inspector, logger),
		Metrics:            metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		return quoteCache.Listen(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func runJobs(ctx context.Context, cfg *app.Config, args []string) error {
	c := cli.NewJobsCLI(cfg.RedisAddr)
	defer func() { _ = c.Close() }()

	if len(args) == 0 {
		return errors.New("usage: sparkle jobs <trigger NAME|stats>")
	}
	switch args[0] {
	case "trigger":
		if len(args) < 2 {
			return errors.New("usage: sparkle jobs trigger NAME")
		}
		info, err := c.Trigger(ctx, args[1])
		if err != nil {
			return err
		}
		fmt.Printf("enqueued %s as %s on %s\n", info.Type, info.ID, info.Queue)
	case "stats":
		stats, err := c.InspectQueues(ctx)
		if err != nil {
			return err
		}
		for _, s := range stats {
			fmt.Printf("%-8s pending=%d active=%d scheduled=%d retry=%d archived=%d\n",
				s.Queue, s.Pending, s.Active, s.Scheduled, s.Retry, s.Archived)
		}
	default:
		return fmt.Errorf("unknown jobs command %q", args[0])
	}
	return nil
}
