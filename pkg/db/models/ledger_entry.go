package models

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/vtuhub/walletledger/pkg/enums"
	"github.com/vtuhub/walletledger/pkg/types"
)

// ErrImmutableEntry is returned for any attempt to update or delete a persisted ledger entry.
var ErrImmutableEntry = errors.New("ledger entries are immutable")

// LedgerEntry records one posting against a wallet. Rows are append-only.
type LedgerEntry struct {
	ID        uuid.UUID         `gorm:"column:id;type:uuid;primaryKey"`
	Reference string            `gorm:"column:reference;type:text;not null;uniqueIndex:ux_ledger_entries_reference"`
	AccountID string            `gorm:"column:account_id;type:text;not null;index:idx_ledger_entries_account_created,priority:1"`
	TxType    enums.TxType      `gorm:"column:tx_type;type:text;not null"`
	Direction enums.Direction   `gorm:"column:direction;type:text;not null"`
	Amount    decimal.Decimal   `gorm:"column:amount;type:numeric(14,2);not null"`
	Status    enums.EntryStatus `gorm:"column:status;type:text;not null"`
	Metadata  types.JSONMap     `gorm:"column:metadata;type:jsonb;serializer:json"`
	CreatedAt time.Time         `gorm:"column:created_at;autoCreateTime;index:idx_ledger_entries_account_created,priority:2"`
}

func (LedgerEntry) TableName() string { return "ledger_entries" }

// BeforeCreate assigns the primary key when the caller left it empty.
func (e *LedgerEntry) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}

// BeforeUpdate rejects every update.
func (e *LedgerEntry) BeforeUpdate(tx *gorm.DB) error {
	return ErrImmutableEntry
}

// BeforeDelete rejects every delete.
func (e *LedgerEntry) BeforeDelete(tx *gorm.DB) error {
	return ErrImmutableEntry
}

// MetadataString returns a string metadata value or "".
func (e *LedgerEntry) MetadataString(key string) string {
	if e == nil || e.Metadata == nil {
		return ""
	}
	value, _ := e.Metadata[key].(string)
	return value
}
