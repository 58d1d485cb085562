package ledger

import (
	"context"
	"errors"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/vtuhub/walletledger/internal/wallet"
	pkgerrors "github.com/vtuhub/walletledger/pkg/errors"
	"github.com/vtuhub/walletledger/pkg/logger"
	"github.com/vtuhub/walletledger/pkg/metrics"
	"github.com/vtuhub/walletledger/pkg/money"
	"gorm.io/gorm"
)

const defaultReconcilePageSize = 500

// Report compares a stored wallet balance with the balance derived from its entries.
type Report struct {
	AccountID      string
	StoredBalance  decimal.Decimal
	DerivedBalance decimal.Decimal
	Drift          decimal.Decimal
	OK             bool
}

// Summary is the outcome of a full reconciliation pass.
type Summary struct {
	Checked    int
	Mismatches []Report
}

type snapshotRunner interface {
	ReadSnapshot(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// ReconcilerParams wires the read-only reconciliation utility.
type ReconcilerParams struct {
	DB       snapshotRunner
	Wallets  wallet.Repository
	Entries  Repository
	Logger   *logger.Logger
	Metrics  *metrics.LedgerMetrics
	PageSize int
}

// Reconciler audits balances against history. It never writes.
type Reconciler struct {
	db       snapshotRunner
	wallets  wallet.Repository
	entries  Repository
	logg     *logger.Logger
	metrics  *metrics.LedgerMetrics
	pageSize int
}

func NewReconciler(params ReconcilerParams) (*Reconciler, error) {
	if params.DB == nil {
		return nil, errors.New("snapshot runner required")
	}
	if params.Wallets == nil {
		return nil, errors.New("wallet repository required")
	}
	if params.Entries == nil {
		return nil, errors.New("ledger repository required")
	}
	pageSize := params.PageSize
	if pageSize <= 0 {
		pageSize = defaultReconcilePageSize
	}
	return &Reconciler{
		db:       params.DB,
		wallets:  params.Wallets,
		entries:  params.Entries,
		logg:     params.Logger,
		metrics:  params.Metrics,
		pageSize: pageSize,
	}, nil
}

// Check reconciles one account. Unknown accounts report a stored balance of zero.
// The wallet and its entries are read from one snapshot so a concurrent posting
// cannot show up as drift.
func (r *Reconciler) Check(ctx context.Context, accountID string) (Report, error) {
	accountID = strings.TrimSpace(accountID)
	if accountID == "" {
		return Report{}, validation("account id is required")
	}

	var report Report
	err := r.db.ReadSnapshot(ctx, func(tx *gorm.DB) error {
		stored := money.Zero
		w, err := r.wallets.WithTx(tx).Get(ctx, accountID)
		switch {
		case err == nil:
			stored = money.Normalize(w.Balance)
		case errors.Is(err, gorm.ErrRecordNotFound):
		default:
			return internal("load wallet", err)
		}

		totals, err := r.entries.WithTx(tx).SumByAccount(ctx, accountID)
		if err != nil {
			return internal("sum ledger entries", err)
		}
		derived := totals.Net()
		drift := stored.Sub(derived)
		report = Report{
			AccountID:      accountID,
			StoredBalance:  stored,
			DerivedBalance: derived,
			Drift:          drift,
			OK:             drift.IsZero(),
		}
		return nil
	})
	if err != nil {
		if pkgerrors.As(err) != nil {
			return Report{}, err
		}
		return Report{}, internal("reconcile snapshot", err)
	}
	return report, nil
}

// CheckAll pages through every wallet and collects mismatches.
func (r *Reconciler) CheckAll(ctx context.Context) (Summary, error) {
	var summary Summary
	after := ""
	for {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		ids, err := r.wallets.ListAccountIDs(ctx, after, r.pageSize)
		if err != nil {
			return summary, internal("list wallets", err)
		}
		for _, id := range ids {
			report, err := r.Check(ctx, id)
			if err != nil {
				return summary, err
			}
			summary.Checked++
			if !report.OK {
				summary.Mismatches = append(summary.Mismatches, report)
				logCtx := r.logg.WithFields(r.logg.WithAccountID(ctx, id), map[string]any{
					"stored":  money.Format(report.StoredBalance),
					"derived": money.Format(report.DerivedBalance),
					"drift":   money.Format(report.Drift),
				})
				r.logg.Warn(logCtx, "wallet balance drift detected")
			}
		}
		if len(ids) < r.pageSize {
			break
		}
		after = ids[len(ids)-1]
	}
	r.metrics.SetMismatchedWallets(len(summary.Mismatches))
	return summary, nil
}
