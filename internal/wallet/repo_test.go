package wallet

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/vtuhub/walletledger/pkg/db/dbtest"
	"github.com/vtuhub/walletledger/pkg/db/models"
	"gorm.io/gorm"
)

func TestGetOrCreateStartsAtZero(t *testing.T) {
	repo := NewRepository(dbtest.Open(t))
	ctx := context.Background()

	wallet, err := repo.GetOrCreate(ctx, "acct-1")
	require.NoError(t, err)
	require.Equal(t, "acct-1", wallet.AccountID)
	require.True(t, wallet.Balance.IsZero())

	again, err := repo.GetOrCreate(ctx, " acct-1 ")
	require.NoError(t, err)
	require.Equal(t, wallet.AccountID, again.AccountID)
}

func TestGetOrCreateConcurrentFirstUse(t *testing.T) {
	conn := dbtest.Open(t)
	repo := NewRepository(conn)
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := repo.GetOrCreate(ctx, "acct-race")
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	var count int64
	require.NoError(t, conn.Model(&models.Wallet{}).Where("account_id = ?", "acct-race").Count(&count).Error)
	require.EqualValues(t, 1, count)
}

func TestGetMissingWallet(t *testing.T) {
	repo := NewRepository(dbtest.Open(t))
	_, err := repo.Get(context.Background(), "nobody")
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestEmptyAccountRejected(t *testing.T) {
	repo := NewRepository(dbtest.Open(t))
	_, err := repo.GetOrCreate(context.Background(), "  ")
	require.ErrorIs(t, err, ErrAccountRequired)
}

func TestLockAndPersistBalanceInTx(t *testing.T) {
	conn := dbtest.Open(t)
	repo := NewRepository(conn)
	ctx := context.Background()

	err := conn.Transaction(func(tx *gorm.DB) error {
		txRepo := repo.WithTx(tx)
		if _, err := txRepo.GetOrCreate(ctx, "acct-2"); err != nil {
			return err
		}
		locked, err := txRepo.LockForUpdate(ctx, "acct-2")
		if err != nil {
			return err
		}
		return txRepo.PersistBalance(ctx, locked, decimal.RequireFromString("125.50"))
	})
	require.NoError(t, err)

	wallet, err := repo.Get(ctx, "acct-2")
	require.NoError(t, err)
	require.True(t, wallet.Balance.Equal(decimal.RequireFromString("125.50")), "balance %s", wallet.Balance)
}

func TestPersistBalanceRejectsNegative(t *testing.T) {
	repo := NewRepository(dbtest.Open(t))
	ctx := context.Background()
	wallet, err := repo.GetOrCreate(ctx, "acct-3")
	require.NoError(t, err)

	err = repo.PersistBalance(ctx, wallet, decimal.RequireFromString("-0.01"))
	require.ErrorIs(t, err, ErrNegativeBalance)
}

func TestDirectBalanceWriteIsRejected(t *testing.T) {
	conn := dbtest.Open(t)
	repo := NewRepository(conn)
	ctx := context.Background()
	wallet, err := repo.GetOrCreate(ctx, "acct-4")
	require.NoError(t, err)

	err = conn.WithContext(ctx).Model(wallet).Update("balance", decimal.NewFromInt(1000)).Error
	require.True(t, errors.Is(err, models.ErrWalletBalanceWrite), "got %v", err)

	err = conn.WithContext(ctx).Delete(wallet).Error
	require.ErrorIs(t, err, models.ErrWalletDelete)

	stored, err := repo.Get(ctx, "acct-4")
	require.NoError(t, err)
	require.True(t, stored.Balance.IsZero())
}

func TestListAccountIDsPages(t *testing.T) {
	repo := NewRepository(dbtest.Open(t))
	ctx := context.Background()
	for _, id := range []string{"c", "a", "b"} {
		_, err := repo.GetOrCreate(ctx, id)
		require.NoError(t, err)
	}

	first, err := repo.ListAccountIDs(ctx, "", 2)
	require.NoError(t, err)
	require.Equal(t, []string{"a", "b"}, first)

	rest, err := repo.ListAccountIDs(ctx, "b", 2)
	require.NoError(t, err)
	require.Equal(t, []string{"c"}, rest)
}
