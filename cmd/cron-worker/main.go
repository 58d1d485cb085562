package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/vtuhub/walletledger/internal/cron"
	"github.com/vtuhub/walletledger/internal/fulfillment/providers"
	"github.com/vtuhub/walletledger/internal/ledger"
	"github.com/vtuhub/walletledger/internal/purchases"
	"github.com/vtuhub/walletledger/internal/verification"
	"github.com/vtuhub/walletledger/internal/wallet"
	"github.com/vtuhub/walletledger/pkg/config"
	"github.com/vtuhub/walletledger/pkg/db"
	"github.com/vtuhub/walletledger/pkg/logger"
	"github.com/vtuhub/walletledger/pkg/metrics"
	"github.com/vtuhub/walletledger/pkg/migrate"
	"github.com/vtuhub/walletledger/pkg/redis"
)

const lockName = "cron-worker"

func main() {
	logg := logger.New(logger.Options{ServiceName: "cron-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "cron-worker"

	logg = logger.New(logger.Options{
		ServiceName: "cron-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		Format:      cfg.App.LogFormat,
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	ledgerMetrics := metrics.NewLedgerMetrics(prometheus.DefaultRegisterer)
	wallets := wallet.NewRepository(dbClient.DB())
	entries := ledger.NewRepository(dbClient.DB())

	ledgerService, err := ledger.NewService(ledger.ServiceParams{
		DB:      dbClient,
		Wallets: wallets,
		Entries: entries,
		Logger:  logg,
		Metrics: ledgerMetrics,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create ledger service", err)
		os.Exit(1)
	}

	reconciler, err := ledger.NewReconciler(ledger.ReconcilerParams{
		DB:       dbClient,
		Wallets:  wallets,
		Entries:  entries,
		Logger:   logg,
		Metrics:  ledgerMetrics,
		PageSize: cfg.Cron.ReconcilePage,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create reconciler", err)
		os.Exit(1)
	}

	provider, err := providers.New(cfg.Fulfillment, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create fulfillment provider", err)
		os.Exit(1)
	}

	scheduler, err := verification.NewRedisScheduler(redisClient, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create verification scheduler", err)
		os.Exit(1)
	}

	purchaseService, err := purchases.NewService(purchases.ServiceParams{
		Orders:          purchases.NewRepository(dbClient.DB()),
		Ledger:          ledgerService,
		Provider:        provider,
		Scheduler:       scheduler,
		Backoff:         verification.Backoff{Base: cfg.Verification.BaseDelay, Max: cfg.Verification.MaxDelay},
		MaxAttempts:     cfg.Verification.MaxAttempts,
		ProviderTimeout: cfg.Fulfillment.RequestTimeout,
		Logger:          logg,
		Metrics:         metrics.NewPurchaseMetrics(prometheus.DefaultRegisterer),
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create purchase service", err)
		os.Exit(1)
	}

	sweepJob, err := cron.NewPendingPurchaseSweepJob(cron.PendingPurchaseSweepJobParams{
		Logger:    logg,
		Purchases: purchaseService,
		OlderThan: cfg.Cron.PendingSweepAge,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create pending purchase sweep job", err)
		os.Exit(1)
	}

	reconcileJob, err := cron.NewLedgerReconcileJob(cron.LedgerReconcileJobParams{
		Logger:     logg,
		Reconciler: reconciler,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create ledger reconcile job", err)
		os.Exit(1)
	}

	lock, err := cron.NewRedisLock(redisClient, redisClient.LockKey(lockKey(cfg.App.Env)), cfg.Cron.Interval)
	if err != nil {
		logg.Error(context.Background(), "failed to create cron lock", err)
		os.Exit(1)
	}

	registry, err := cron.NewRegistry(sweepJob, reconcileJob)
	if err != nil {
		logg.Error(context.Background(), "failed to register cron jobs", err)
		os.Exit(1)
	}

	service, err := cron.NewService(cron.ServiceParams{
		Logger:     logg,
		Registry:   registry,
		Lock:       lock,
		Metrics:    metrics.NewCronJobMetrics(prometheus.DefaultRegisterer),
		Interval:   cfg.Cron.Interval,
		JobTimeout: cfg.Cron.JobTimeout,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create cron service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
	})
	if cfg.Cron.RunOnce {
		logg.Info(ctx, "running single cron cycle")
		if err := service.RunOnce(ctx, os.Args[1:]...); err != nil {
			logg.Error(ctx, "cron cycle failed", err)
			os.Exit(1)
		}
		return
	}

	logg.Info(ctx, "starting cron worker")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "cron worker shutting down gracefully")
}

func lockKey(env string) string {
	if env == "" {
		env = "local"
	}
	return fmt.Sprintf("%s:%s", lockName, env)
}
