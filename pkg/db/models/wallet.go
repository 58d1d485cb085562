package models

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var (
	// ErrWalletBalanceWrite is returned when a wallet row is updated outside a ledger posting.
	ErrWalletBalanceWrite = errors.New("wallet balance can only change through a ledger posting")
	// ErrWalletDelete is returned for any attempt to delete a wallet.
	ErrWalletDelete = errors.New("wallets cannot be deleted")
)

// Wallet holds the current balance for one account.
type Wallet struct {
	AccountID string          `gorm:"column:account_id;type:text;primaryKey"`
	Balance   decimal.Decimal `gorm:"column:balance;type:numeric(14,2);not null"`
	CreatedAt time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

func (Wallet) TableName() string { return "wallets" }

type balanceWriteKey struct{}

// AllowBalanceWrite marks ctx as belonging to a ledger posting that holds the wallet lock.
func AllowBalanceWrite(ctx context.Context) context.Context {
	return context.WithValue(ctx, balanceWriteKey{}, true)
}

func balanceWriteAllowed(ctx context.Context) bool {
	if ctx == nil {
		return false
	}
	allowed, _ := ctx.Value(balanceWriteKey{}).(bool)
	return allowed
}

// BeforeUpdate rejects wallet writes that do not originate from a ledger posting.
func (w *Wallet) BeforeUpdate(tx *gorm.DB) error {
	if !balanceWriteAllowed(tx.Statement.Context) {
		return ErrWalletBalanceWrite
	}
	return nil
}

// BeforeDelete rejects every delete.
func (w *Wallet) BeforeDelete(tx *gorm.DB) error {
	return ErrWalletDelete
}
