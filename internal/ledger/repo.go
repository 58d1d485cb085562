package ledger

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
	"github.com/vtuhub/walletledger/pkg/db"
	"github.com/vtuhub/walletledger/pkg/db/models"
	"github.com/vtuhub/walletledger/pkg/enums"
	"github.com/vtuhub/walletledger/pkg/money"
	"gorm.io/gorm"
)

const referenceConstraint = "ux_ledger_entries_reference"

// Repository is the append-only store for ledger entries.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindByReference(ctx context.Context, reference string) (*models.LedgerEntry, error)
	Create(ctx context.Context, entry *models.LedgerEntry) error
	ListByAccount(ctx context.Context, accountID string, limit int) ([]models.LedgerEntry, error)
	SumByAccount(ctx context.Context, accountID string) (Totals, error)
}

// Totals aggregates successful postings for one account.
type Totals struct {
	Credits decimal.Decimal
	Debits  decimal.Decimal
}

// Net returns credits minus debits.
func (t Totals) Net() decimal.Decimal {
	return money.Normalize(t.Credits.Sub(t.Debits))
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a ledger repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// FindByReference returns (nil, nil) when no entry carries the reference.
func (r *repository) FindByReference(ctx context.Context, reference string) (*models.LedgerEntry, error) {
	var entry models.LedgerEntry
	err := r.db.WithContext(ctx).
		Where("reference = ?", reference).
		Take(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// Create inserts entry and surfaces ErrDuplicateReference when the reference is taken.
func (r *repository) Create(ctx context.Context, entry *models.LedgerEntry) error {
	err := r.db.WithContext(ctx).Create(entry).Error
	if db.IsUniqueViolation(err, referenceConstraint) {
		return ErrDuplicateReference
	}
	return err
}

// ListByAccount returns the newest entries first.
func (r *repository) ListByAccount(ctx context.Context, accountID string, limit int) ([]models.LedgerEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	var entries []models.LedgerEntry
	if err := r.db.WithContext(ctx).
		Where("account_id = ?", accountID).
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit).
		Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *repository) SumByAccount(ctx context.Context, accountID string) (Totals, error) {
	var row struct {
		Credits decimal.Decimal
		Debits  decimal.Decimal
	}
	err := r.db.WithContext(ctx).
		Model(&models.LedgerEntry{}).
		Select(
			"COALESCE(SUM(CASE WHEN direction = ? THEN amount ELSE 0 END), 0) AS credits, "+
				"COALESCE(SUM(CASE WHEN direction = ? THEN amount ELSE 0 END), 0) AS debits",
			enums.DirectionCredit, enums.DirectionDebit,
		).
		Where("account_id = ? AND status = ?", accountID, enums.EntryStatusSuccess).
		Scan(&row).Error
	if err != nil {
		return Totals{}, err
	}
	return Totals{
		Credits: money.Normalize(row.Credits),
		Debits:  money.Normalize(row.Debits),
	}, nil
}
