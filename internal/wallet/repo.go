package wallet

import (
	"context"
	"errors"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/vtuhub/walletledger/pkg/db/models"
	"github.com/vtuhub/walletledger/pkg/money"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	// ErrAccountRequired is returned when an empty account id is supplied.
	ErrAccountRequired = errors.New("account id is required")
	// ErrNegativeBalance is returned when a persisted balance would drop below zero.
	ErrNegativeBalance = errors.New("wallet balance cannot be negative")
)

// Repository owns one balance row per account.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Get(ctx context.Context, accountID string) (*models.Wallet, error)
	GetOrCreate(ctx context.Context, accountID string) (*models.Wallet, error)
	LockForUpdate(ctx context.Context, accountID string) (*models.Wallet, error)
	PersistBalance(ctx context.Context, wallet *models.Wallet, newBalance decimal.Decimal) error
	ListAccountIDs(ctx context.Context, after string, limit int) ([]string, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a wallet repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// Get returns gorm.ErrRecordNotFound when the account has no wallet yet.
func (r *repository) Get(ctx context.Context, accountID string) (*models.Wallet, error) {
	accountID, err := normalizeAccountID(accountID)
	if err != nil {
		return nil, err
	}
	var wallet models.Wallet
	if err := r.db.WithContext(ctx).
		Where("account_id = ?", accountID).
		First(&wallet).Error; err != nil {
		return nil, err
	}
	return &wallet, nil
}

// GetOrCreate inserts a zero-balance wallet when missing. Concurrent first use
// collapses on the primary key; the loser's insert is a no-op and both re-read.
func (r *repository) GetOrCreate(ctx context.Context, accountID string) (*models.Wallet, error) {
	accountID, err := normalizeAccountID(accountID)
	if err != nil {
		return nil, err
	}
	fresh := &models.Wallet{AccountID: accountID, Balance: money.Zero}
	if err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "account_id"}}, DoNothing: true}).
		Create(fresh).Error; err != nil {
		return nil, err
	}
	return r.Get(ctx, accountID)
}

// LockForUpdate must run inside a transaction; the row lock is held until it ends.
func (r *repository) LockForUpdate(ctx context.Context, accountID string) (*models.Wallet, error) {
	accountID, err := normalizeAccountID(accountID)
	if err != nil {
		return nil, err
	}
	var wallet models.Wallet
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("account_id = ?", accountID).
		First(&wallet).Error; err != nil {
		return nil, err
	}
	return &wallet, nil
}

// PersistBalance must only be called while holding the lock taken by LockForUpdate
// in the same transaction.
func (r *repository) PersistBalance(ctx context.Context, wallet *models.Wallet, newBalance decimal.Decimal) error {
	if wallet == nil {
		return ErrAccountRequired
	}
	newBalance = money.Normalize(newBalance)
	if newBalance.IsNegative() {
		return ErrNegativeBalance
	}
	result := r.db.WithContext(models.AllowBalanceWrite(ctx)).
		Model(wallet).
		Update("balance", newBalance)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	wallet.Balance = newBalance
	return nil
}

// ListAccountIDs pages through wallets ordered by account id.
func (r *repository) ListAccountIDs(ctx context.Context, after string, limit int) ([]string, error) {
	if limit <= 0 {
		limit = 100
	}
	query := r.db.WithContext(ctx).Model(&models.Wallet{}).Order("account_id ASC").Limit(limit)
	if after != "" {
		query = query.Where("account_id > ?", after)
	}
	var ids []string
	if err := query.Pluck("account_id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

func normalizeAccountID(accountID string) (string, error) {
	trimmed := strings.TrimSpace(accountID)
	if trimmed == "" {
		return "", ErrAccountRequired
	}
	return trimmed, nil
}
