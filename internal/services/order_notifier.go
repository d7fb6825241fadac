package services

import (
	"context"

	"github.com/archdemone/jewelry-backend/internal/logger"
	"github.com/archdemone/jewelry-backend/internal/types"
)

// OrderNotifier receives order lifecycle notifications. Reconciliation calls
// it only when an event is applied for the first time, so at-least-once
// webhook delivery never produces duplicate customer emails.
type OrderNotifier interface {
	OrderPaid(ctx context.Context, order *types.Order)
	OrderRefunded(ctx context.Context, order *types.Order)
	PaymentFailed(ctx context.Context, order *types.Order)
}

type noopOrderNotifier struct{}

func (noopOrderNotifier) OrderPaid(ctx context.Context, order *types.Order)     {}
func (noopOrderNotifier) OrderRefunded(ctx context.Context, order *types.Order) {}
func (noopOrderNotifier) PaymentFailed(ctx context.Context, order *types.Order) {}

type logOrderNotifier struct {
	log *logger.Logger
}

func NewLogOrderNotifier(log *logger.Logger) OrderNotifier {
	return &logOrderNotifier{log: log.With("service", "OrderNotifier")}
}

func (n *logOrderNotifier) OrderPaid(ctx context.Context, order *types.Order) {
	n.log.Info("Order paid", "order_number", order.OrderNumber, "total", order.Total)
}

func (n *logOrderNotifier) OrderRefunded(ctx context.Context, order *types.Order) {
	n.log.Info("Order refunded", "order_number", order.OrderNumber, "refunded_amount", order.RefundedAmount)
}

func (n *logOrderNotifier) PaymentFailed(ctx context.Context, order *types.Order) {
	n.log.Info("Order payment failed", "order_number", order.OrderNumber)
}
