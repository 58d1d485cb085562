package purchases

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/vtuhub/walletledger/pkg/db"
	"github.com/vtuhub/walletledger/pkg/db/models"
	"github.com/vtuhub/walletledger/pkg/enums"
	"github.com/vtuhub/walletledger/pkg/types"
	"gorm.io/gorm"
)

const referenceConstraint = "ux_purchase_orders_reference"

// Transition is the set of fields written when an order leaves (or stays in) pending.
type Transition struct {
	Status            enums.PurchaseStatus
	ProviderReference string
	Message           string
	ProviderResponse  types.JSONMap
}

// Repository persists purchase orders. State changes only apply to pending orders.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, order *models.PurchaseOrder) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.PurchaseOrder, error)
	FindByReference(ctx context.Context, reference string) (*models.PurchaseOrder, error)
	Transition(ctx context.Context, id uuid.UUID, change Transition) (bool, error)
	ClaimSubmission(ctx context.Context, id uuid.UUID) (bool, error)
	IncrementVerifyAttempts(ctx context.Context, id uuid.UUID) error
	ListPendingOlderThan(ctx context.Context, cutoff time.Time, limit int) ([]models.PurchaseOrder, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a purchase order repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, order *models.PurchaseOrder) error {
	err := r.db.WithContext(ctx).Create(order).Error
	if db.IsUniqueViolation(err, referenceConstraint) {
		return ErrDuplicateReference
	}
	return err
}

// FindByID returns (nil, nil) when the order does not exist.
func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.PurchaseOrder, error) {
	var order models.PurchaseOrder
	err := r.db.WithContext(ctx).Where("id = ?", id).Take(&order).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// FindByReference returns (nil, nil) when the order does not exist.
func (r *repository) FindByReference(ctx context.Context, reference string) (*models.PurchaseOrder, error) {
	var order models.PurchaseOrder
	err := r.db.WithContext(ctx).Where("reference = ?", reference).Take(&order).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// Transition applies change only while the order is still pending and reports
// whether this call won.
func (r *repository) Transition(ctx context.Context, id uuid.UUID, change Transition) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.PurchaseOrder{}).
		Where("id = ? AND status = ?", id, enums.PurchaseStatusPending).
		Select("status", "provider_reference", "message", "provider_response", "updated_at").
		Updates(models.PurchaseOrder{
			Status:            change.Status,
			ProviderReference: change.ProviderReference,
			Message:           change.Message,
			ProviderResponse:  change.ProviderResponse,
			UpdatedAt:         time.Now(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// ClaimSubmission marks a pending order as handed to the provider. Only the
// first caller wins, so the provider sees at most one purchase per order.
func (r *repository) ClaimSubmission(ctx context.Context, id uuid.UUID) (bool, error) {
	now := time.Now()
	res := r.db.WithContext(ctx).
		Model(&models.PurchaseOrder{}).
		Where("id = ? AND status = ? AND submitted_at IS NULL", id, enums.PurchaseStatusPending).
		Updates(map[string]any{"submitted_at": now, "updated_at": now})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repository) IncrementVerifyAttempts(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.PurchaseOrder{}).
		Where("id = ?", id).
		UpdateColumn("verify_attempts", gorm.Expr("verify_attempts + 1")).Error
}

// ListPendingOlderThan returns pending orders created before cutoff, oldest first.
func (r *repository) ListPendingOlderThan(ctx context.Context, cutoff time.Time, limit int) ([]models.PurchaseOrder, error) {
	if limit <= 0 {
		limit = 100
	}
	var orders []models.PurchaseOrder
	err := r.db.WithContext(ctx).
		Where("status = ? AND created_at < ?", enums.PurchaseStatusPending, cutoff).
		Order("created_at ASC").
		Limit(limit).
		Find(&orders).Error
	return orders, err
}
