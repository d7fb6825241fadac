package services

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/archdemone/jewelry-backend/internal/clients/payment"
	"github.com/archdemone/jewelry-backend/internal/logger"
	"github.com/archdemone/jewelry-backend/internal/pricing"
	"github.com/archdemone/jewelry-backend/internal/repos"
	"github.com/archdemone/jewelry-backend/internal/types"
)

// The closed set of processor event kinds reconciliation understands.
// Anything else is acknowledged and recorded without touching the order.
const (
	EventPaymentSucceeded = "payment_intent.succeeded"
	EventPaymentFailed    = "payment_intent.payment_failed"
	EventPaymentCanceled  = "payment_intent.canceled"
	EventChargeRefunded   = "charge.refunded"
)

// ReconciliationService aligns persisted order state with the processor's
// view of payment status. It must tolerate at-least-once, out-of-order
// delivery: duplicates are detected by event id, ordering by event timestamp.
type ReconciliationService interface {
	HandleEvent(ctx context.Context, event *payment.Event) error
}

type reconciliationService struct {
	db        *gorm.DB
	log       *logger.Logger
	orderRepo repos.OrderRepo
	eventRepo repos.PaymentEventRepo
	notifier  OrderNotifier
}

func NewReconciliationService(db *gorm.DB, log *logger.Logger, orderRepo repos.OrderRepo, eventRepo repos.PaymentEventRepo, notifier OrderNotifier) ReconciliationService {
	serviceLog := log.With("service", "ReconciliationService")
	return &reconciliationService{
		db:        db,
		log:       serviceLog,
		orderRepo: orderRepo,
		eventRepo: eventRepo,
		notifier:  notifier,
	}
}

// HandleEvent applies one verified processor event as a single atomic
// read-modify-write on the order row. Returning nil acknowledges the
// delivery; the processor stops retrying it.
func (rs *reconciliationService) HandleEvent(ctx context.Context, event *payment.Event) error {
	if event.OrderID == "" {
		// No fallback lookup: without the order reference the event cannot
		// be reconciled.
		rs.log.Warn("Dropping payment event without order reference",
			"event_id", event.ID, "type", event.Type, "object_id", event.ObjectID)
		return nil
	}

	var applied *types.Order
	var notify func(context.Context, *types.Order)

	err := runInTransaction(ctx, rs.db, func(tx *gorm.DB) error {
		existing, err := rs.eventRepo.GetByEventID(ctx, tx, event.ID)
		if err != nil {
			return fmt.Errorf("lookup event ledger: %w", err)
		}
		if existing != nil {
			rs.log.Debug("Duplicate payment event acknowledged", "event_id", event.ID)
			return nil
		}

		order, err := rs.orderRepo.GetByOrderNumber(ctx, tx, event.OrderID)
		if err != nil {
			return fmt.Errorf("lookup order %s: %w", event.OrderID, err)
		}
		if order == nil {
			rs.log.Warn("Payment event references unknown order",
				"event_id", event.ID, "order_number", event.OrderID)
			return nil
		}
		order, err = rs.orderRepo.GetByIDForUpdate(ctx, tx, order.ID)
		if err != nil {
			return fmt.Errorf("lock order %s: %w", event.OrderID, err)
		}
		if order == nil {
			return fmt.Errorf("order %s disappeared under lock", event.OrderID)
		}

		ledger := &types.PaymentEvent{
			EventID:    event.ID,
			OrderID:    order.ID,
			Type:       event.Type,
			Amount:     pricing.FromMinorUnits(event.Amount),
			OccurredAt: event.OccurredAt,
			Payload:    datatypes.JSON(event.Raw),
		}

		// A stale event must not revert state set by a later one: compare
		// event timestamps, not arrival order. Only strictly-older events are
		// skipped; processor timestamps are unix seconds, so a distinct event
		// in the same second still applies (true duplicates are caught by the
		// ledger's event id above).
		if order.LastPaymentEventAt != nil && event.OccurredAt.Before(*order.LastPaymentEventAt) {
			rs.log.Info("Skipping stale payment event",
				"event_id", event.ID, "type", event.Type,
				"occurred_at", event.OccurredAt, "last_applied_at", *order.LastPaymentEventAt)
			_, err := rs.eventRepo.Create(ctx, tx, ledger)
			return err
		}

		changed, notifyFn := rs.apply(order, event)
		ledger.Applied = changed
		if changed {
			occurredAt := event.OccurredAt
			order.LastPaymentEventAt = &occurredAt
			if err := rs.orderRepo.Save(ctx, tx, order); err != nil {
				return fmt.Errorf("save order %s: %w", order.OrderNumber, err)
			}
			applied = order
			notify = notifyFn
		}
		if _, err := rs.eventRepo.Create(ctx, tx, ledger); err != nil {
			return fmt.Errorf("record event %s: %w", event.ID, err)
		}
		return nil
	})
	if err != nil {
		// Two deliveries of the same event can race past the ledger lookup;
		// the unique index resolves the race and the loser is a duplicate.
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			rs.log.Debug("Concurrent duplicate payment event acknowledged", "event_id", event.ID)
			return nil
		}
		return err
	}

	if applied != nil && notify != nil && rs.notifier != nil {
		notify(ctx, applied)
	}
	return nil
}

// apply mutates the order for one event kind and reports whether anything
// changed plus the notification to emit on first application.
func (rs *reconciliationService) apply(order *types.Order, event *payment.Event) (bool, func(context.Context, *types.Order)) {
	notifier := rs.notifier
	if notifier == nil {
		notifier = noopOrderNotifier{}
	}
	switch event.Type {
	case EventPaymentSucceeded:
		order.PaymentStatus = types.PaymentStatusPaid
		order.Status = types.OrderStatusProcessing
		if event.ObjectID != "" {
			order.PaymentIntentID = event.ObjectID
		}
		return true, notifier.OrderPaid

	case EventPaymentFailed, EventPaymentCanceled:
		order.PaymentStatus = types.PaymentStatusUnpaid
		order.Status = types.OrderStatusPending
		return true, notifier.PaymentFailed

	case EventChargeRefunded:
		// The refunded amount is cumulative on the processor side; it is
		// recorded as reported, never inferred from order totals.
		refunded := pricing.FromMinorUnits(event.Amount)
		order.RefundedAmount = refunded
		if refunded.GreaterThanOrEqual(order.Total) {
			order.PaymentStatus = types.PaymentStatusRefunded
			order.Status = types.OrderStatusRefunded
		} else {
			order.PaymentStatus = types.PaymentStatusPartiallyRefunded
		}
		return true, notifier.OrderRefunded

	default:
		rs.log.Debug("Ignoring unhandled payment event type",
			"event_id", event.ID, "type", event.Type)
		return false, nil
	}
}

