package cron

import (
	"context"
	"fmt"

	"github.com/vtuhub/walletledger/internal/ledger"
	"github.com/vtuhub/walletledger/pkg/logger"
)

type reconciler interface {
	CheckAll(ctx context.Context) (ledger.Summary, error)
}

type LedgerReconcileJobParams struct {
	Logger     *logger.Logger
	Reconciler reconciler
}

// NewLedgerReconcileJob compares every stored balance with its ledger history.
// A run with any drift fails so the failure counter and logs surface it.
func NewLedgerReconcileJob(params LedgerReconcileJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Reconciler == nil {
		return nil, fmt.Errorf("reconciler required")
	}
	return &ledgerReconcileJob{logg: params.Logger, reconciler: params.Reconciler}, nil
}

type ledgerReconcileJob struct {
	logg       *logger.Logger
	reconciler reconciler
}

func (j *ledgerReconcileJob) Name() string { return "ledger-reconcile" }

func (j *ledgerReconcileJob) Run(ctx context.Context) error {
	summary, err := j.reconciler.CheckAll(ctx)
	if err != nil {
		return fmt.Errorf("ledger reconcile: %w", err)
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"wallets_checked": summary.Checked,
		"mismatches":      len(summary.Mismatches),
	})
	if len(summary.Mismatches) > 0 {
		return fmt.Errorf("ledger reconcile: %d of %d wallets drifted", len(summary.Mismatches), summary.Checked)
	}
	j.logg.Info(logCtx, "ledger reconcile complete")
	return nil
}
