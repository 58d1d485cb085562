package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/vtuhub/walletledger/pkg/enums"
	"github.com/vtuhub/walletledger/pkg/types"
)

// PurchaseOrder tracks one airtime, data or bill purchase paid from a wallet.
type PurchaseOrder struct {
	ID                uuid.UUID            `gorm:"column:id;type:uuid;primaryKey"`
	AccountID         string               `gorm:"column:account_id;type:text;not null;index"`
	Reference         string               `gorm:"column:reference;type:text;not null;uniqueIndex:ux_purchase_orders_reference"`
	LedgerReference   string               `gorm:"column:ledger_reference;type:text;not null"`
	ProductType       enums.ProductType    `gorm:"column:product_type;type:text;not null"`
	Amount            decimal.Decimal      `gorm:"column:amount;type:numeric(14,2);not null"`
	Destination       string               `gorm:"column:destination;type:text;not null"`
	ServiceCode       string               `gorm:"column:service_code;type:text;not null;default:''"`
	Status            enums.PurchaseStatus `gorm:"column:status;type:text;not null;index:idx_purchase_orders_status_created,priority:1"`
	ProviderReference string               `gorm:"column:provider_reference;type:text;not null;default:''"`
	Message           string               `gorm:"column:message;type:text;not null;default:''"`
	ProviderResponse  types.JSONMap        `gorm:"column:provider_response;type:jsonb;serializer:json"`
	VerifyAttempts    int                  `gorm:"column:verify_attempts;not null;default:0"`
	SubmittedAt       *time.Time           `gorm:"column:submitted_at"`
	CreatedAt         time.Time            `gorm:"column:created_at;autoCreateTime;index:idx_purchase_orders_status_created,priority:2"`
	UpdatedAt         time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}

func (PurchaseOrder) TableName() string { return "purchase_orders" }

// BeforeCreate assigns the primary key when the caller left it empty.
func (o *PurchaseOrder) BeforeCreate(tx *gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return nil
}
