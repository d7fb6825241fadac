package repos

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/archdemone/jewelry-backend/internal/logger"
	"github.com/archdemone/jewelry-backend/internal/types"
)

type OrderRepo interface {
	Create(ctx context.Context, tx *gorm.DB, order *types.Order) (*types.Order, error)
	GetByID(ctx context.Context, tx *gorm.DB, orderID uuid.UUID) (*types.Order, error)
	GetByIDForUpdate(ctx context.Context, tx *gorm.DB, orderID uuid.UUID) (*types.Order, error)
	GetByOrderNumber(ctx context.Context, tx *gorm.DB, orderNumber string) (*types.Order, error)
	Save(ctx context.Context, tx *gorm.DB, order *types.Order) error
	List(ctx context.Context, tx *gorm.DB, limit, offset int) ([]*types.Order, error)
}

type orderRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewOrderRepo(db *gorm.DB, baseLog *logger.Logger) OrderRepo {
	repoLog := baseLog.With("repo", "OrderRepo")
	return &orderRepo{db: db, log: repoLog}
}

func (or *orderRepo) Create(ctx context.Context, tx *gorm.DB, order *types.Order) (*types.Order, error) {
	transaction := tx
	if transaction == nil {
		transaction = or.db
	}

	if err := transaction.WithContext(ctx).Create(order).Error; err != nil {
		return nil, err
	}
	return order, nil
}

func (or *orderRepo) GetByID(ctx context.Context, tx *gorm.DB, orderID uuid.UUID) (*types.Order, error) {
	return or.getByID(ctx, tx, orderID, false)
}

// GetByIDForUpdate locks the order row for the duration of tx so concurrent
// event deliveries apply as serialized read-modify-writes.
func (or *orderRepo) GetByIDForUpdate(ctx context.Context, tx *gorm.DB, orderID uuid.UUID) (*types.Order, error) {
	return or.getByID(ctx, tx, orderID, true)
}

func (or *orderRepo) getByID(ctx context.Context, tx *gorm.DB, orderID uuid.UUID, forUpdate bool) (*types.Order, error) {
	transaction := tx
	if transaction == nil {
		transaction = or.db
	}

	query := transaction.WithContext(ctx)
	if forUpdate {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var result types.Order
	if err := query.
		Where("id = ?", orderID).
		First(&result).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &result, nil
}

func (or *orderRepo) GetByOrderNumber(ctx context.Context, tx *gorm.DB, orderNumber string) (*types.Order, error) {
	transaction := tx
	if transaction == nil {
		transaction = or.db
	}

	var result types.Order
	if err := transaction.WithContext(ctx).
		Preload("Items").
		Where("order_number = ?", orderNumber).
		First(&result).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &result, nil
}

func (or *orderRepo) Save(ctx context.Context, tx *gorm.DB, order *types.Order) error {
	transaction := tx
	if transaction == nil {
		transaction = or.db
	}

	return transaction.WithContext(ctx).Save(order).Error
}

func (or *orderRepo) List(ctx context.Context, tx *gorm.DB, limit, offset int) ([]*types.Order, error) {
	transaction := tx
	if transaction == nil {
		transaction = or.db
	}
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	var results []*types.Order
	if err := transaction.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
