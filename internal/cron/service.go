package cron

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/multierr"

	"github.com/vtuhub/walletledger/pkg/logger"
	"github.com/vtuhub/walletledger/pkg/metrics"
)

const (
	defaultInterval   = 15 * time.Minute
	defaultJobTimeout = 5 * time.Minute
)

// ErrCycleSkipped is returned by RunOnce when another instance holds the lock.
var ErrCycleSkipped = errors.New("cron cycle skipped: lock held elsewhere")

// ServiceParams configure the cron service.
type ServiceParams struct {
	Logger     *logger.Logger
	Registry   *Registry
	Lock       Lock
	Metrics    *metrics.CronJobMetrics
	Interval   time.Duration
	JobTimeout time.Duration
}

// Service runs the registered jobs once per interval while holding a shared lock.
type Service struct {
	logg       *logger.Logger
	registry   *Registry
	lock       Lock
	metrics    *metrics.CronJobMetrics
	interval   time.Duration
	jobTimeout time.Duration
	now        func() time.Time
}

// NewService builds a cron service.
func NewService(params ServiceParams) (*Service, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Lock == nil {
		return nil, fmt.Errorf("lock required")
	}
	if params.Registry == nil || len(params.Registry.Names()) == 0 {
		return nil, fmt.Errorf("at least one cron job required")
	}
	interval := params.Interval
	if interval <= 0 {
		interval = defaultInterval
	}
	jobTimeout := params.JobTimeout
	if jobTimeout <= 0 {
		jobTimeout = defaultJobTimeout
	}
	return &Service{
		logg:       params.Logger,
		registry:   params.Registry,
		lock:       params.Lock,
		metrics:    params.Metrics,
		interval:   interval,
		jobTimeout: jobTimeout,
		now:        time.Now,
	}, nil
}

// Run executes a cycle immediately and then on every tick until ctx is canceled.
// Cycle failures are logged; only cancellation ends the loop.
func (s *Service) Run(ctx context.Context) error {
	ctx = s.logg.WithField(ctx, "interval", s.interval.String())
	s.tick(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			s.logg.Info(ctx, "cron loop stopping")
			return ctx.Err()
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

// RunOnce executes a single cycle. With names it runs only those jobs, in the given order.
func (s *Service) RunOnce(ctx context.Context, names ...string) error {
	jobs, err := s.selectJobs(names)
	if err != nil {
		return err
	}
	ran, err := s.runCycle(ctx, jobs)
	if err != nil {
		return err
	}
	if !ran {
		return ErrCycleSkipped
	}
	return nil
}

func (s *Service) tick(ctx context.Context) {
	if _, err := s.runCycle(ctx, s.registry.Jobs()); err != nil {
		s.logg.Error(ctx, "cron cycle failed", err)
	}
}

func (s *Service) selectJobs(names []string) ([]Job, error) {
	if len(names) == 0 {
		return s.registry.Jobs(), nil
	}
	jobs := make([]Job, 0, len(names))
	for _, name := range names {
		job, ok := s.registry.Lookup(name)
		if !ok {
			return nil, fmt.Errorf("unknown cron job %q", name)
		}
		jobs = append(jobs, job)
	}
	return jobs, nil
}

// runCycle reports whether the lock was won. Every job runs even if an earlier one fails;
// the returned error combines each job failure.
func (s *Service) runCycle(ctx context.Context, jobs []Job) (bool, error) {
	locked, err := s.lock.Acquire(ctx)
	if err != nil {
		return false, fmt.Errorf("lock acquire: %w", err)
	}
	if !locked {
		s.logg.Info(ctx, "cron lock held by another instance; skipping cycle")
		return false, nil
	}

	var cycleErr error
	started := s.now()
	for _, job := range jobs {
		cycleErr = multierr.Append(cycleErr, s.runJob(ctx, job))
	}

	if relErr := s.lock.Release(context.WithoutCancel(ctx)); relErr != nil {
		s.logg.Error(ctx, "cron lock release failed", relErr)
	}

	failed := len(multierr.Errors(cycleErr))
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"jobs":        len(jobs),
		"failed":      failed,
		"duration_ms": s.now().Sub(started).Milliseconds(),
	}), "cron cycle finished")
	return true, cycleErr
}

func (s *Service) runJob(ctx context.Context, job Job) (err error) {
	name := job.Name()
	jobCtx := s.logg.WithFields(ctx, map[string]any{"job": name, "event": "cron.job"})
	jobCtx, cancel := context.WithTimeout(jobCtx, s.jobTimeout)
	defer cancel()

	started := s.now()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job %s panicked: %v", name, r)
		}
		elapsed := s.now().Sub(started)
		s.metrics.ObserveDuration(name, elapsed)
		logCtx := s.logg.WithField(jobCtx, "duration_ms", elapsed.Milliseconds())
		if err != nil {
			s.metrics.IncFailure(name)
			s.logg.Error(logCtx, "cron job failed", err)
			return
		}
		s.metrics.IncSuccess(name)
		s.metrics.MarkCompleted(name, s.now())
		s.logg.Info(logCtx, "cron job completed")
	}()

	if err := job.Run(jobCtx); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}
