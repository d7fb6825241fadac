package repos

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/archdemone/jewelry-backend/internal/logger"
	"github.com/archdemone/jewelry-backend/internal/types"
)

type PaymentEventRepo interface {
	Create(ctx context.Context, tx *gorm.DB, event *types.PaymentEvent) (*types.PaymentEvent, error)
	GetByEventID(ctx context.Context, tx *gorm.DB, eventID string) (*types.PaymentEvent, error)
}

type paymentEventRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPaymentEventRepo(db *gorm.DB, baseLog *logger.Logger) PaymentEventRepo {
	repoLog := baseLog.With("repo", "PaymentEventRepo")
	return &paymentEventRepo{db: db, log: repoLog}
}

func (per *paymentEventRepo) Create(ctx context.Context, tx *gorm.DB, event *types.PaymentEvent) (*types.PaymentEvent, error) {
	transaction := tx
	if transaction == nil {
		transaction = per.db
	}

	if err := transaction.WithContext(ctx).Create(event).Error; err != nil {
		return nil, err
	}
	return event, nil
}

func (per *paymentEventRepo) GetByEventID(ctx context.Context, tx *gorm.DB, eventID string) (*types.PaymentEvent, error) {
	transaction := tx
	if transaction == nil {
		transaction = per.db
	}

	var result types.PaymentEvent
	if err := transaction.WithContext(ctx).
		Where("event_id = ?", eventID).
		First(&result).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &result, nil
}
