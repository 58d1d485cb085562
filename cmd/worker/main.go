package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/vtuhub/walletledger/internal/fulfillment/providers"
	"github.com/vtuhub/walletledger/internal/funding"
	"github.com/vtuhub/walletledger/internal/ledger"
	"github.com/vtuhub/walletledger/internal/purchases"
	"github.com/vtuhub/walletledger/internal/referrals"
	"github.com/vtuhub/walletledger/internal/verification"
	"github.com/vtuhub/walletledger/internal/wallet"
	"github.com/vtuhub/walletledger/pkg/config"
	"github.com/vtuhub/walletledger/pkg/db"
	"github.com/vtuhub/walletledger/pkg/logger"
	"github.com/vtuhub/walletledger/pkg/metrics"
	"github.com/vtuhub/walletledger/pkg/migrate"
	"github.com/vtuhub/walletledger/pkg/pubsub"
	"github.com/vtuhub/walletledger/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "worker"

	logg = logger.New(logger.Options{
		ServiceName: "worker",
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
	purchaseMetrics := metrics.NewPurchaseMetrics(prometheus.DefaultRegisterer)

	ledgerService, err := ledger.NewService(ledger.ServiceParams{
		DB:      dbClient,
		Wallets: wallet.NewRepository(dbClient.DB()),
		Entries: ledger.NewRepository(dbClient.DB()),
		Logger:  logg,
		Metrics: ledgerMetrics,
	})
	requireResource(logg, "ledger service", err)

	provider, err := providers.New(cfg.Fulfillment, logg)
	requireResource(logg, "fulfillment provider", err)

	scheduler, err := verification.NewRedisScheduler(redisClient, logg)
	requireResource(logg, "verification scheduler", err)

	backoff := verification.Backoff{Base: cfg.Verification.BaseDelay, Max: cfg.Verification.MaxDelay}
	purchaseService, err := purchases.NewService(purchases.ServiceParams{
		Orders:          purchases.NewRepository(dbClient.DB()),
		Ledger:          ledgerService,
		Provider:        provider,
		Scheduler:       scheduler,
		Backoff:         backoff,
		MaxAttempts:     cfg.Verification.MaxAttempts,
		ProviderTimeout: cfg.Fulfillment.RequestTimeout,
		Logger:          logg,
		Metrics:         purchaseMetrics,
	})
	requireResource(logg, "purchase service", err)

	verificationWorker, err := verification.NewWorker(verification.WorkerParams{
		Queue:        scheduler,
		Verifier:     purchaseService,
		Logger:       logg,
		Backoff:      backoff,
		PollInterval: cfg.Verification.PollInterval,
		BatchSize:    cfg.Verification.BatchSize,
	})
	requireResource(logg, "verification worker", err)

	params := ServiceParams{
		Config:             cfg,
		Logger:             logg,
		DB:                 dbClient,
		Redis:              redisClient,
		VerificationWorker: verificationWorker,
	}
	if cfg.FeatureFlags.FundingConsume {
		referrers, err := referrals.NewRedisReferrers(redisClient)
		requireResource(logg, "referrer lookup", err)

		referralService, err := referrals.NewService(referrals.ServiceParams{
			Ledger:     ledgerService,
			Referrers:  referrers,
			Percent:    cfg.Referral.Percent(),
			MinFunding: cfg.Referral.MinFundingAmount(),
			Logger:     logg,
		})
		requireResource(logg, "referral service", err)

		fundingService, err := funding.NewService(funding.ServiceParams{
			Events:    funding.NewRepository(dbClient.DB()),
			Ledger:    ledgerService,
			Referrals: referralService,
			Logger:    logg,
			Metrics:   purchaseMetrics,
		})
		requireResource(logg, "funding service", err)

		pubsubClient, err := pubsub.NewClient(context.Background(), cfg.GCP, cfg.PubSub, logg)
		requireResource(logg, "pubsub", err)
		defer func() {
			if err := pubsubClient.Close(); err != nil {
				logg.Error(context.Background(), "error closing pubsub", err)
			}
		}()

		fundingConsumer, err := funding.NewConsumer(fundingService, pubsubClient.FundingSubscription(), logg)
		requireResource(logg, "funding consumer", err)

		params.PubSub = pubsubClient
		params.FundingConsumer = fundingConsumer
	}

	service, err := NewService(params)
	requireResource(logg, "worker service", err)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
		"provider":    provider.Name(),
	})
	logg.Info(ctx, "starting worker")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "worker shutting down gracefully")
}

func requireResource(logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(context.Background(), "failed to create "+resource, err)
	os.Exit(1)
}
