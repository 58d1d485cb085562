package funding

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/vtuhub/walletledger/pkg/db"
	"github.com/vtuhub/walletledger/pkg/db/models"
	"github.com/vtuhub/walletledger/pkg/enums"
	"gorm.io/gorm"
)

const idempotencyConstraint = "ux_funding_events_idempotency_key"

var errDuplicateEvent = errors.New("funding event already recorded")

// Repository stores funding notifications keyed by their idempotency key.
type Repository interface {
	Create(ctx context.Context, event *models.FundingEvent) error
	FindByIdempotencyKey(ctx context.Context, key string) (*models.FundingEvent, error)
	MarkStatus(ctx context.Context, id uuid.UUID, status enums.FundingEventStatus, processingError string) error
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, event *models.FundingEvent) error {
	err := r.db.WithContext(ctx).Create(event).Error
	if db.IsUniqueViolation(err, idempotencyConstraint) {
		return errDuplicateEvent
	}
	return err
}

// FindByIdempotencyKey returns (nil, nil) when the key is unknown.
func (r *repository) FindByIdempotencyKey(ctx context.Context, key string) (*models.FundingEvent, error) {
	var event models.FundingEvent
	err := r.db.WithContext(ctx).Where("idempotency_key = ?", key).Take(&event).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &event, nil
}

func (r *repository) MarkStatus(ctx context.Context, id uuid.UUID, status enums.FundingEventStatus, processingError string) error {
	return r.db.WithContext(ctx).
		Model(&models.FundingEvent{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":           status,
			"processing_error": processingError,
		}).Error
}
