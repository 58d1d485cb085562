package verification

import (
	"context"
	"errors"
	"time"

	pkgerrors "github.com/vtuhub/walletledger/pkg/errors"
	"github.com/vtuhub/walletledger/pkg/logger"
)

const (
	defaultPollInterval = 2 * time.Second
	defaultBatchSize    = 50
)

// Verifier runs one verification attempt.
type Verifier interface {
	VerifyTask(ctx context.Context, task Task) error
}

// VerifierFunc adapts a function to Verifier.
type VerifierFunc func(ctx context.Context, task Task) error

func (f VerifierFunc) VerifyTask(ctx context.Context, task Task) error {
	return f(ctx, task)
}

type claimer interface {
	Scheduler
	Claim(ctx context.Context, limit int64) ([]Task, error)
}

// WorkerParams wires the verification worker.
type WorkerParams struct {
	Queue        claimer
	Verifier     Verifier
	Logger       *logger.Logger
	Backoff      Backoff
	PollInterval time.Duration
	BatchSize    int
}

// Worker polls the queue and hands due tasks to the verifier.
type Worker struct {
	queue     claimer
	verifier  Verifier
	logg      *logger.Logger
	backoff   Backoff
	interval  time.Duration
	batchSize int64
}

// NewWorker validates params and builds a worker.
func NewWorker(params WorkerParams) (*Worker, error) {
	if params.Queue == nil {
		return nil, errors.New("verification queue required")
	}
	if params.Verifier == nil {
		return nil, errors.New("verifier required")
	}
	if params.Logger == nil {
		return nil, errors.New("logger required")
	}
	interval := params.PollInterval
	if interval <= 0 {
		interval = defaultPollInterval
	}
	batch := params.BatchSize
	if batch <= 0 {
		batch = defaultBatchSize
	}
	return &Worker{
		queue:     params.Queue,
		verifier:  params.Verifier,
		logg:      params.Logger,
		backoff:   params.Backoff,
		interval:  interval,
		batchSize: int64(batch),
	}, nil
}

// Run polls until ctx is canceled.
func (w *Worker) Run(ctx context.Context) error {
	w.logg.Info(ctx, "verification worker started")
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		if _, err := w.Poll(ctx); err != nil && ctx.Err() == nil {
			w.logg.Error(ctx, "verification poll failed", err)
		}
		select {
		case <-ctx.Done():
			w.logg.Info(ctx, "verification worker stopped")
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Poll claims one batch of due tasks and runs them. It returns how many ran.
func (w *Worker) Poll(ctx context.Context) (int, error) {
	tasks, err := w.queue.Claim(ctx, w.batchSize)
	for _, task := range tasks {
		w.run(ctx, task)
	}
	return len(tasks), err
}

func (w *Worker) run(ctx context.Context, task Task) {
	taskCtx := w.logg.WithFields(ctx, map[string]any{
		"order_id": task.OrderID.String(),
		"attempt":  task.Attempt,
	})
	err := w.verifier.VerifyTask(taskCtx, task)
	if err == nil {
		return
	}
	if !pkgerrors.IsRetryable(err) {
		w.logg.Error(taskCtx, "verification failed; dropping task", err)
		return
	}
	w.logg.Warn(taskCtx, "verification failed; requeueing")
	if err := w.queue.Schedule(taskCtx, w.backoff.Delay(task.Attempt), task); err != nil {
		w.logg.Error(taskCtx, "requeue verification", err)
	}
}
