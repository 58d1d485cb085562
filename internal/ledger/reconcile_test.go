package ledger

import (
	"context"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"github.com/vtuhub/walletledger/pkg/db"
	"github.com/vtuhub/walletledger/pkg/db/models"
	"github.com/vtuhub/walletledger/pkg/enums"
	"github.com/vtuhub/walletledger/pkg/metrics"
	"gorm.io/gorm"
)

func TestReconcilerCheckMatchesHistory(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.credit(t, "A", "100.00", "F1")
	_, err := h.debit("A", "40.00", "B1")
	require.NoError(t, err)
	_, err = h.debit("A", "500.00", "B2")
	require.NoError(t, err)
	_, err = h.svc.Reverse(ctx, "B1", "refund")
	require.NoError(t, err)

	rec, err := NewReconciler(ReconcilerParams{DB: db.Wrap(h.conn), Wallets: h.wallets, Entries: h.entries})
	require.NoError(t, err)

	report, err := rec.Check(ctx, "A")
	require.NoError(t, err)
	require.True(t, report.OK, "report %+v", report)
	require.True(t, report.DerivedBalance.Equal(amount("100.00")))
	require.True(t, report.StoredBalance.Equal(amount("100.00")))
}

func TestReconcilerCheckAllReportsDrift(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.credit(t, "A", "10.00", "F-A")
	h.credit(t, "B", "20.00", "F-B")
	h.credit(t, "C", "30.00", "F-C")

	err := h.conn.WithContext(models.AllowBalanceWrite(ctx)).
		Model(&models.Wallet{AccountID: "B"}).
		Update("balance", amount("25.00")).Error
	require.NoError(t, err)

	m := metrics.NewLedgerMetrics(prometheus.NewRegistry())
	rec, err := NewReconciler(ReconcilerParams{DB: db.Wrap(h.conn), Wallets: h.wallets, Entries: h.entries, Metrics: m, PageSize: 2})
	require.NoError(t, err)

	summary, err := rec.CheckAll(ctx)
	require.NoError(t, err)
	require.Equal(t, 3, summary.Checked)
	require.Len(t, summary.Mismatches, 1)
	require.Equal(t, "B", summary.Mismatches[0].AccountID)
	require.True(t, summary.Mismatches[0].Drift.Equal(amount("5.00")))
}

func TestReconcilerUnknownAccount(t *testing.T) {
	h := newHarness(t)
	rec, err := NewReconciler(ReconcilerParams{DB: db.Wrap(h.conn), Wallets: h.wallets, Entries: h.entries})
	require.NoError(t, err)

	report, err := rec.Check(context.Background(), "nobody")
	require.NoError(t, err)
	require.True(t, report.OK)
	require.True(t, report.StoredBalance.IsZero())

	_, err = NewReconciler(ReconcilerParams{})
	require.Error(t, err)
}

// postingEntries starts a posting the first time the entry sum is read.
type postingEntries struct {
	Repository
	once *sync.Once
	post func()
}

func (p postingEntries) WithTx(tx *gorm.DB) Repository {
	return postingEntries{Repository: p.Repository.WithTx(tx), once: p.once, post: p.post}
}

func (p postingEntries) SumByAccount(ctx context.Context, accountID string) (Totals, error) {
	p.once.Do(p.post)
	return p.Repository.SumByAccount(ctx, accountID)
}

func TestReconcilerCheckIgnoresConcurrentPosting(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.credit(t, "A", "100.00", "F1")

	posted := make(chan error, 1)
	entries := postingEntries{
		Repository: h.entries,
		once:       &sync.Once{},
		post: func() {
			go func() {
				_, err := h.svc.Credit(ctx, PostingInput{
					AccountID: "A",
					Amount:    amount("25.00"),
					Reference: "F2",
					TxType:    enums.TxTypeFunding,
				})
				posted <- err
			}()
		},
	}
	rec, err := NewReconciler(ReconcilerParams{DB: db.Wrap(h.conn), Wallets: h.wallets, Entries: entries})
	require.NoError(t, err)

	report, err := rec.Check(ctx, "A")
	require.NoError(t, err)
	require.True(t, report.OK, "report %+v", report)
	require.NoError(t, <-posted)

	report, err = rec.Check(ctx, "A")
	require.NoError(t, err)
	require.True(t, report.OK, "report %+v", report)
	require.True(t, report.StoredBalance.Equal(amount("125.00")))
}
