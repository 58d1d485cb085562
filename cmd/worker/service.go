package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/vtuhub/walletledger/api/handlers"
	"github.com/vtuhub/walletledger/api/routes"
	"github.com/vtuhub/walletledger/pkg/config"
	"github.com/vtuhub/walletledger/pkg/logger"
)

const shutdownTimeout = 10 * time.Second

type pinger interface {
	Ping(context.Context) error
}

type runner interface {
	Run(context.Context) error
}

// ServiceParams wires the worker process. PubSub and FundingConsumer are nil
// when funding consumption is disabled.
type ServiceParams struct {
	Config             *config.Config
	Logger             *logger.Logger
	DB                 pinger
	Redis              pinger
	PubSub             pinger
	VerificationWorker runner
	FundingConsumer    runner
}

type Service struct {
	cfg     *config.Config
	logg    *logger.Logger
	checks  []handlers.Check
	runners map[string]runner
	server  *http.Server
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Config == nil {
		return nil, errors.New("config is required")
	}
	if params.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if params.DB == nil {
		return nil, errors.New("database client is required")
	}
	if params.Redis == nil {
		return nil, errors.New("redis client is required")
	}
	if params.VerificationWorker == nil {
		return nil, errors.New("verification worker is required")
	}

	checks := []handlers.Check{
		{Name: "database", Ping: params.DB.Ping},
		{Name: "redis", Ping: params.Redis.Ping},
	}
	runners := map[string]runner{"verification": params.VerificationWorker}
	if params.FundingConsumer != nil {
		if params.PubSub == nil {
			return nil, errors.New("pubsub client is required for the funding consumer")
		}
		checks = append(checks, handlers.Check{Name: "pubsub", Ping: params.PubSub.Ping})
		runners["funding"] = params.FundingConsumer
	}

	return &Service{
		cfg:     params.Config,
		logg:    params.Logger,
		checks:  checks,
		runners: runners,
		server: &http.Server{
			Addr:              ":" + params.Config.App.Port,
			Handler:           routes.NewRouter(params.Config, params.Logger, prometheus.DefaultGatherer, checks...),
			ReadHeaderTimeout: 5 * time.Second,
		},
	}, nil
}

func (s *Service) ensureReadiness(ctx context.Context) error {
	for _, check := range s.checks {
		if err := pingDependency(ctx, s.logg, check.Name, check.Ping); err != nil {
			return err
		}
	}
	s.logg.Info(ctx, "all worker dependencies are ready")
	return nil
}

func pingDependency(ctx context.Context, logg *logger.Logger, name string, fn func(context.Context) error) error {
	if err := fn(ctx); err != nil {
		logg.Error(ctx, fmt.Sprintf("%s ping failed", name), err)
		return fmt.Errorf("%s ping failed: %w", name, err)
	}
	return nil
}

func (s *Service) Run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	if err := s.ensureReadiness(ctx); err != nil {
		return err
	}

	errCh := make(chan error, len(s.runners)+1)
	for name, r := range s.runners {
		go func(name string, r runner) {
			if err := r.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				errCh <- fmt.Errorf("%s stopped: %w", name, err)
				return
			}
			errCh <- nil
		}(name, r)
	}
	go func() {
		s.logg.Info(s.logg.WithField(ctx, "addr", s.server.Addr), "ops server listening")
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("ops server stopped: %w", err)
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
		s.logg.Info(ctx, "worker context canceled")
		runErr = ctx.Err()
	case err := <-errCh:
		if err != nil {
			s.logg.Error(ctx, "worker component stopped unexpectedly", err)
		}
		runErr = err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.server.Shutdown(shutdownCtx); err != nil {
		s.logg.Error(ctx, "ops server shutdown failed", err)
	}
	return runErr
}
