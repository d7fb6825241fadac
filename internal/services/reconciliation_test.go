package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/archdemone/jewelry-backend/internal/clients/payment"
	"github.com/archdemone/jewelry-backend/internal/types"
)

type reconFixture struct {
	svc      ReconciliationService
	orders   *fakeOrderRepo
	events   *fakeEventRepo
	notifier *fakeNotifier
	order    *types.Order
}

func newReconFixture(t *testing.T) *reconFixture {
	t.Helper()
	orders := newFakeOrderRepo()
	events := newFakeEventRepo()
	notifier := &fakeNotifier{}

	order := &types.Order{
		ID:             uuid.New(),
		OrderNumber:    "JW-AB12CD34EF",
		Email:          "buyer@example.com",
		Status:         types.OrderStatusPending,
		PaymentStatus:  types.PaymentStatusUnpaid,
		Subtotal:       dec("240.00"),
		Tax:            dec("17.40"),
		Total:          dec("257.40"),
		RefundedAmount: decimal.Zero,
		Currency:       "usd",
	}
	if _, err := orders.Create(context.Background(), nil, order); err != nil {
		t.Fatalf("seed order: %v", err)
	}

	return &reconFixture{
		svc:      NewReconciliationService(nil, testLogger(t), orders, events, notifier),
		orders:   orders,
		events:   events,
		notifier: notifier,
		order:    order,
	}
}

func succeededEvent(id string, at time.Time) *payment.Event {
	return &payment.Event{
		ID:         id,
		Type:       EventPaymentSucceeded,
		OccurredAt: at,
		ObjectID:   "pi_123",
		OrderID:    "JW-AB12CD34EF",
		Amount:     25740,
		Currency:   "usd",
	}
}

func (f *reconFixture) current(t *testing.T) *types.Order {
	t.Helper()
	order, err := f.orders.GetByID(context.Background(), nil, f.order.ID)
	if err != nil || order == nil {
		t.Fatalf("order lookup: %v", err)
	}
	return order
}

func TestSucceededEventMarksOrderPaid(t *testing.T) {
	f := newReconFixture(t)
	now := time.Now().UTC()

	if err := f.svc.HandleEvent(context.Background(), succeededEvent("evt_1", now)); err != nil {
		t.Fatalf("HandleEvent: %v", err)
	}

	order := f.current(t)
	if order.PaymentStatus != types.PaymentStatusPaid {
		t.Fatalf("payment status: want=PAID got=%s", order.PaymentStatus)
	}
	if order.Status != types.OrderStatusProcessing {
		t.Fatalf("order status: want=PROCESSING got=%s", order.Status)
	}
	if order.PaymentIntentID != "pi_123" {
		t.Fatalf("intent id not recorded: got=%s", order.PaymentIntentID)
	}
	if order.LastPaymentEventAt == nil || !order.LastPaymentEventAt.Equal(now) {
		t.Fatalf("last event timestamp not recorded: %v", order.LastPaymentEventAt)
	}
	if f.notifier.paidCalls != 1 {
		t.Fatalf("paid notifications: want=1 got=%d", f.notifier.paidCalls)
	}
}

func TestDuplicateEventAppliedOnce(t *testing.T) {
	f := newReconFixture(t)
	event := succeededEvent("evt_1", time.Now().UTC())

	for i := 0; i < 3; i++ {
		if err := f.svc.HandleEvent(context.Background(), event); err != nil {
			t.Fatalf("delivery %d: %v", i+1, err)
		}
	}

	if f.orders.saveCalls != 1 {
		t.Fatalf("order writes: want=1 got=%d", f.orders.saveCalls)
	}
	if f.notifier.paidCalls != 1 {
		t.Fatalf("paid notifications: want=1 got=%d", f.notifier.paidCalls)
	}
}

func TestStaleEventDoesNotRevertLaterState(t *testing.T) {
	f := newReconFixture(t)
	base := time.Now().UTC()

	refund := &payment.Event{
		ID:         "evt_refund",
		Type:       EventChargeRefunded,
		OccurredAt: base.Add(2 * time.Minute),
		OrderID:    f.order.OrderNumber,
		Amount:     25740,
	}
	if err := f.svc.HandleEvent(context.Background(), refund); err != nil {
		t.Fatalf("refund event: %v", err)
	}
	if got := f.current(t); got.PaymentStatus != types.PaymentStatusRefunded {
		t.Fatalf("after refund: want=REFUNDED got=%s", got.PaymentStatus)
	}

	// The earlier success arrives late. It must be recorded but not applied.
	if err := f.svc.HandleEvent(context.Background(), succeededEvent("evt_late", base)); err != nil {
		t.Fatalf("late success event: %v", err)
	}

	order := f.current(t)
	if order.PaymentStatus != types.PaymentStatusRefunded || order.Status != types.OrderStatusRefunded {
		t.Fatalf("stale event reverted state: got %s/%s", order.Status, order.PaymentStatus)
	}
	ledger, err := f.events.GetByEventID(context.Background(), nil, "evt_late")
	if err != nil || ledger == nil {
		t.Fatalf("stale event missing from ledger: %v", err)
	}
	if ledger.Applied {
		t.Fatalf("stale event must be recorded as not applied")
	}
	if f.notifier.paidCalls != 0 {
		t.Fatalf("stale event must not notify: got %d paid calls", f.notifier.paidCalls)
	}
}

func TestSameSecondRefundStillApplies(t *testing.T) {
	f := newReconFixture(t)
	// Processor timestamps are unix seconds; a refund landing in the same
	// second as the success must not be mistaken for a stale event.
	at := time.Unix(time.Now().Unix(), 0).UTC()

	if err := f.svc.HandleEvent(context.Background(), succeededEvent("evt_paid", at)); err != nil {
		t.Fatalf("success event: %v", err)
	}
	refund := &payment.Event{
		ID:         "evt_refund",
		Type:       EventChargeRefunded,
		OccurredAt: at,
		OrderID:    f.order.OrderNumber,
		Amount:     25740,
	}
	if err := f.svc.HandleEvent(context.Background(), refund); err != nil {
		t.Fatalf("refund event: %v", err)
	}

	order := f.current(t)
	if order.PaymentStatus != types.PaymentStatusRefunded || order.Status != types.OrderStatusRefunded {
		t.Fatalf("same-second refund must apply: want REFUNDED/REFUNDED got %s/%s",
			order.Status, order.PaymentStatus)
	}
	ledger, err := f.events.GetByEventID(context.Background(), nil, "evt_refund")
	if err != nil || ledger == nil {
		t.Fatalf("ledger row missing: %v", err)
	}
	if !ledger.Applied {
		t.Fatalf("same-second refund must be recorded as applied")
	}
	if f.notifier.refundedCalls != 1 {
		t.Fatalf("refund notifications: want=1 got=%d", f.notifier.refundedCalls)
	}
}

func TestEventWithoutOrderReferenceIsDropped(t *testing.T) {
	f := newReconFixture(t)
	event := succeededEvent("evt_1", time.Now().UTC())
	event.OrderID = ""

	if err := f.svc.HandleEvent(context.Background(), event); err != nil {
		t.Fatalf("HandleEvent: %v", err)
	}
	if f.orders.saveCalls != 0 {
		t.Fatalf("no order may change: got %d saves", f.orders.saveCalls)
	}
	if ledger, _ := f.events.GetByEventID(context.Background(), nil, "evt_1"); ledger != nil {
		t.Fatalf("unreconcilable event must not enter the ledger")
	}
}

func TestEventForUnknownOrderIsAcknowledged(t *testing.T) {
	f := newReconFixture(t)
	event := succeededEvent("evt_1", time.Now().UTC())
	event.OrderID = "JW-DOESNOTEXIST"

	if err := f.svc.HandleEvent(context.Background(), event); err != nil {
		t.Fatalf("unknown order must be acknowledged, got %v", err)
	}
	if f.orders.saveCalls != 0 {
		t.Fatalf("no order may change: got %d saves", f.orders.saveCalls)
	}
}

func TestPartialRefundKeepsOrderFulfillable(t *testing.T) {
	f := newReconFixture(t)
	base := time.Now().UTC()

	if err := f.svc.HandleEvent(context.Background(), succeededEvent("evt_paid", base)); err != nil {
		t.Fatalf("success event: %v", err)
	}
	refund := &payment.Event{
		ID:         "evt_refund",
		Type:       EventChargeRefunded,
		OccurredAt: base.Add(time.Minute),
		OrderID:    f.order.OrderNumber,
		Amount:     5000,
	}
	if err := f.svc.HandleEvent(context.Background(), refund); err != nil {
		t.Fatalf("refund event: %v", err)
	}

	order := f.current(t)
	if order.PaymentStatus != types.PaymentStatusPartiallyRefunded {
		t.Fatalf("payment status: want=PARTIALLY_REFUNDED got=%s", order.PaymentStatus)
	}
	if order.Status != types.OrderStatusProcessing {
		t.Fatalf("partial refund must not cancel fulfillment: got=%s", order.Status)
	}
	if !order.RefundedAmount.Equal(dec("50.00")) {
		t.Fatalf("refunded amount: want=50.00 got=%s", order.RefundedAmount)
	}
	if f.notifier.refundedCalls != 1 {
		t.Fatalf("refund notifications: want=1 got=%d", f.notifier.refundedCalls)
	}
}

func TestFailedEventRevertsToPendingUnpaid(t *testing.T) {
	f := newReconFixture(t)
	event := &payment.Event{
		ID:         "evt_fail",
		Type:       EventPaymentFailed,
		OccurredAt: time.Now().UTC(),
		OrderID:    f.order.OrderNumber,
	}
	if err := f.svc.HandleEvent(context.Background(), event); err != nil {
		t.Fatalf("HandleEvent: %v", err)
	}

	order := f.current(t)
	if order.PaymentStatus != types.PaymentStatusUnpaid || order.Status != types.OrderStatusPending {
		t.Fatalf("failed payment: want PENDING/UNPAID got %s/%s", order.Status, order.PaymentStatus)
	}
	if f.notifier.failedCalls != 1 {
		t.Fatalf("failure notifications: want=1 got=%d", f.notifier.failedCalls)
	}
}

func TestUnknownEventTypeRecordedWithoutChange(t *testing.T) {
	f := newReconFixture(t)
	event := &payment.Event{
		ID:         "evt_other",
		Type:       "payment_intent.created",
		OccurredAt: time.Now().UTC(),
		OrderID:    f.order.OrderNumber,
	}
	if err := f.svc.HandleEvent(context.Background(), event); err != nil {
		t.Fatalf("HandleEvent: %v", err)
	}

	if f.orders.saveCalls != 0 {
		t.Fatalf("unhandled type must not change the order: got %d saves", f.orders.saveCalls)
	}
	ledger, err := f.events.GetByEventID(context.Background(), nil, "evt_other")
	if err != nil || ledger == nil {
		t.Fatalf("ledger row missing: %v", err)
	}
	if ledger.Applied {
		t.Fatalf("unhandled type must be recorded as not applied")
	}
}
