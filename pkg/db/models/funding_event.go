package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/vtuhub/walletledger/pkg/enums"
	"github.com/vtuhub/walletledger/pkg/types"
)

// FundingEvent records an incoming payment notification and its processing outcome.
type FundingEvent struct {
	ID                   uuid.UUID                `gorm:"column:id;type:uuid;primaryKey"`
	Provider             string                   `gorm:"column:provider;type:text;not null"`
	IdempotencyKey       string                   `gorm:"column:idempotency_key;type:text;not null;uniqueIndex:ux_funding_events_idempotency_key"`
	AccountID            string                   `gorm:"column:account_id;type:text;not null;index"`
	TransactionReference string                   `gorm:"column:transaction_reference;type:text;not null;default:''"`
	PaymentReference     string                   `gorm:"column:payment_reference;type:text;not null;default:''"`
	Amount               decimal.Decimal          `gorm:"column:amount;type:numeric(14,2);not null"`
	Currency             string                   `gorm:"column:currency;type:text;not null"`
	LedgerReference      string                   `gorm:"column:ledger_reference;type:text;not null"`
	Status               enums.FundingEventStatus `gorm:"column:status;type:text;not null"`
	ProcessingError      string                   `gorm:"column:processing_error;type:text;not null;default:''"`
	Payload              types.JSONMap            `gorm:"column:payload;type:jsonb;serializer:json"`
	CreatedAt            time.Time                `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt            time.Time                `gorm:"column:updated_at;autoUpdateTime"`
}

func (FundingEvent) TableName() string { return "funding_events" }

// BeforeCreate assigns the primary key when the caller left it empty.
func (f *FundingEvent) BeforeCreate(tx *gorm.DB) error {
	if f.ID == uuid.Nil {
		f.ID = uuid.New()
	}
	return nil
}
