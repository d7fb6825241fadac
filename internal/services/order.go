package services

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/archdemone/jewelry-backend/internal/logger"
	"github.com/archdemone/jewelry-backend/internal/repos"
	"github.com/archdemone/jewelry-backend/internal/requestdata"
	"github.com/archdemone/jewelry-backend/internal/types"
)

// fulfillmentTransitions is the allowed forward movement of Order.Status by
// back-office staff. Payment-driven states (PROCESSING, REFUNDED) belong to
// reconciliation and are not reachable from here.
var fulfillmentTransitions = map[types.OrderStatus][]types.OrderStatus{
	types.OrderStatusPending:    {types.OrderStatusCancelled},
	types.OrderStatusProcessing: {types.OrderStatusShipped, types.OrderStatusCancelled},
	types.OrderStatusShipped:    {types.OrderStatusDelivered},
}

type OrderService interface {
	GetByOrderNumber(ctx context.Context, orderNumber string) (*types.Order, error)
	List(ctx context.Context, limit, offset int) ([]*types.Order, error)
	UpdateFulfillmentStatus(ctx context.Context, orderNumber string, next types.OrderStatus) (*types.Order, error)
}

type orderService struct {
	db        *gorm.DB
	log       *logger.Logger
	orderRepo repos.OrderRepo
}

func NewOrderService(db *gorm.DB, log *logger.Logger, orderRepo repos.OrderRepo) OrderService {
	serviceLog := log.With("service", "OrderService")
	return &orderService{db: db, log: serviceLog, orderRepo: orderRepo}
}

// GetByOrderNumber returns the order, but only to its owner: an order placed
// by an account is hidden from other identities. Guest orders are addressable
// by order number alone (the number is the capability).
func (os *orderService) GetByOrderNumber(ctx context.Context, orderNumber string) (*types.Order, error) {
	order, err := os.orderRepo.GetByOrderNumber(ctx, nil, orderNumber)
	if err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}
	if order == nil {
		return nil, fmt.Errorf("order %s does not exist", orderNumber)
	}
	if order.UserID != nil {
		rd := requestdata.GetRequestData(ctx)
		if rd == nil || rd.UserID != *order.UserID {
			return nil, fmt.Errorf("order %s does not exist", orderNumber)
		}
	}
	return order, nil
}

func (os *orderService) List(ctx context.Context, limit, offset int) ([]*types.Order, error) {
	orders, err := os.orderRepo.List(ctx, nil, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return orders, nil
}

func (os *orderService) UpdateFulfillmentStatus(ctx context.Context, orderNumber string, next types.OrderStatus) (*types.Order, error) {
	var updated *types.Order
	err := runInTransaction(ctx, os.db, func(tx *gorm.DB) error {
		order, err := os.orderRepo.GetByOrderNumber(ctx, tx, orderNumber)
		if err != nil {
			return fmt.Errorf("get order: %w", err)
		}
		if order == nil {
			return fmt.Errorf("order %s does not exist", orderNumber)
		}
		order, err = os.orderRepo.GetByIDForUpdate(ctx, tx, order.ID)
		if err != nil {
			return fmt.Errorf("lock order: %w", err)
		}

		allowed := false
		for _, to := range fulfillmentTransitions[order.Status] {
			if to == next {
				allowed = true
				break
			}
		}
		if !allowed {
			return fmt.Errorf("cannot move order from %s to %s", order.Status, next)
		}

		order.Status = next
		if err := os.orderRepo.Save(ctx, tx, order); err != nil {
			return fmt.Errorf("save order: %w", err)
		}
		updated = order
		return nil
	})
	if err != nil {
		return nil, err
	}
	os.log.Info("Order fulfillment status updated", "order_number", orderNumber, "status", next)
	return updated, nil
}
