package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/vtuhub/walletledger/pkg/logger"
)

const (
	defaultSweepAge   = 10 * time.Minute
	defaultSweepBatch = 200
)

type pendingScheduler interface {
	SchedulePending(ctx context.Context, olderThan time.Duration, limit int) (int, error)
}

type PendingPurchaseSweepJobParams struct {
	Logger    *logger.Logger
	Purchases pendingScheduler
	OlderThan time.Duration
	BatchSize int
}

// NewPendingPurchaseSweepJob re-queues verification for purchases stuck in pending.
func NewPendingPurchaseSweepJob(params PendingPurchaseSweepJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Purchases == nil {
		return nil, fmt.Errorf("purchase service required")
	}
	olderThan := params.OlderThan
	if olderThan <= 0 {
		olderThan = defaultSweepAge
	}
	batch := params.BatchSize
	if batch <= 0 {
		batch = defaultSweepBatch
	}
	return &pendingPurchaseSweepJob{
		logg:      params.Logger,
		purchases: params.Purchases,
		olderThan: olderThan,
		batch:     batch,
	}, nil
}

type pendingPurchaseSweepJob struct {
	logg      *logger.Logger
	purchases pendingScheduler
	olderThan time.Duration
	batch     int
}

func (j *pendingPurchaseSweepJob) Name() string { return "pending-purchase-sweep" }

func (j *pendingPurchaseSweepJob) Run(ctx context.Context) error {
	scheduled, err := j.purchases.SchedulePending(ctx, j.olderThan, j.batch)
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"older_than": j.olderThan.String(),
		"scheduled":  scheduled,
	})
	if err != nil {
		return fmt.Errorf("pending purchase sweep: %w", err)
	}
	j.logg.Info(logCtx, "pending purchase sweep complete")
	return nil
}
