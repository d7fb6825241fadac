package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/archdemone/jewelry-backend/internal/cart"
	"github.com/archdemone/jewelry-backend/internal/clients/payment"
	"github.com/archdemone/jewelry-backend/internal/logger"
	"github.com/archdemone/jewelry-backend/internal/pricing"
	"github.com/archdemone/jewelry-backend/internal/repos"
	"github.com/archdemone/jewelry-backend/internal/types"
)

// ValidationError is a recoverable field-level checkout error. It never
// advances the session.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// AddressInput is the ADDRESS step payload. Billing defaults to shipping
// when unset.
type AddressInput struct {
	Email           string
	ShippingAddress types.Address
	BillingAddress  *types.Address
}

// ConfirmResult is returned once an order has been placed. Placement is not
// settlement: the paid status arrives asynchronously through reconciliation.
type ConfirmResult struct {
	OrderNumber   string
	Status        types.OrderStatus
	PaymentStatus types.PaymentStatus
	Total         decimal.Decimal
	Currency      string
}

type CheckoutService interface {
	// Begin starts at REVIEW. A guest address supplied up front is the
	// guest-checkout shortcut: ADDRESS collection merges into REVIEW and the
	// session lands on ADDRESS directly.
	Begin(ctx context.Context, store *cart.Store, userID uuid.UUID, guest *AddressInput) (*types.CheckoutSession, error)
	SubmitAddress(ctx context.Context, sessionID string, input AddressInput) (*types.CheckoutSession, error)
	BeginPayment(ctx context.Context, sessionID string, store *cart.Store) (*types.CheckoutSession, error)
	Confirm(ctx context.Context, sessionID string, store *cart.Store) (*ConfirmResult, error)
	Get(sessionID string) (*types.CheckoutSession, error)
}

type checkoutService struct {
	db        *gorm.DB
	log       *logger.Logger
	orderRepo repos.OrderRepo
	catalog   CatalogService
	gateway   payment.Gateway
	policy    pricing.Policy

	mu       sync.Mutex
	sessions map[string]*types.CheckoutSession
}

func NewCheckoutService(db *gorm.DB, log *logger.Logger, orderRepo repos.OrderRepo, catalog CatalogService, gateway payment.Gateway, policy pricing.Policy) CheckoutService {
	serviceLog := log.With("service", "CheckoutService")
	return &checkoutService{
		db:        db,
		log:       serviceLog,
		orderRepo: orderRepo,
		catalog:   catalog,
		gateway:   gateway,
		policy:    policy,
		sessions:  map[string]*types.CheckoutSession{},
	}
}

// Begin starts a checkout attempt at REVIEW. The cart is hydrated first so a
// not-yet-loaded cart is never mistaken for an empty one.
func (cs *checkoutService) Begin(ctx context.Context, store *cart.Store, userID uuid.UUID, guest *AddressInput) (*types.CheckoutSession, error) {
	store.Hydrate(ctx)
	if store.Count() == 0 {
		return nil, &ValidationError{Field: "cart", Message: "cart is empty"}
	}

	session := &types.CheckoutSession{
		SessionID:   store.SessionID(),
		OrderNumber: newOrderNumber(),
		Step:        types.CheckoutStepReview,
		Currency:    cs.policy.Currency,
	}
	if userID != uuid.Nil {
		session.UserID = &userID
	}

	cs.mu.Lock()
	cs.sessions[session.SessionID] = session
	cs.mu.Unlock()

	if guest != nil {
		return cs.SubmitAddress(ctx, session.SessionID, *guest)
	}
	return copySession(session), nil
}

// SubmitAddress moves REVIEW to ADDRESS. Resubmitting from ADDRESS is
// allowed so the user can edit; any later step is not.
func (cs *checkoutService) SubmitAddress(ctx context.Context, sessionID string, input AddressInput) (*types.CheckoutSession, error) {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	session, ok := cs.sessions[sessionID]
	if !ok {
		return nil, fmt.Errorf("checkout session not found")
	}
	if session.Step != types.CheckoutStepReview && session.Step != types.CheckoutStepAddress {
		return nil, &ValidationError{Field: "step", Message: fmt.Sprintf("cannot submit address from step %s", session.Step)}
	}

	email := strings.TrimSpace(input.Email)
	if email == "" || !strings.Contains(email, "@") {
		return nil, &ValidationError{Field: "email", Message: "a valid email is required"}
	}
	if missing := input.ShippingAddress.MissingFields(); len(missing) > 0 {
		return nil, &ValidationError{Field: missing[0], Message: "required"}
	}
	billing := input.ShippingAddress
	if input.BillingAddress != nil && !input.BillingAddress.IsZero() {
		if missing := input.BillingAddress.MissingFields(); len(missing) > 0 {
			return nil, &ValidationError{Field: "billing_" + missing[0], Message: "required"}
		}
		billing = *input.BillingAddress
	}

	session.Email = email
	session.ShippingAddress = input.ShippingAddress
	session.BillingAddress = billing
	session.Step = types.CheckoutStepAddress
	return copySession(session), nil
}

// BeginPayment enters PAYMENT: re-prices the cart from the catalog, computes
// the money breakdown and requests a payment intent. On a gateway failure the
// session stays on PAYMENT with address data intact so the user can retry.
func (cs *checkoutService) BeginPayment(ctx context.Context, sessionID string, store *cart.Store) (*types.CheckoutSession, error) {
	cs.mu.Lock()
	session, ok := cs.sessions[sessionID]
	if !ok {
		cs.mu.Unlock()
		return nil, fmt.Errorf("checkout session not found")
	}
	if session.Step != types.CheckoutStepAddress && session.Step != types.CheckoutStepPayment {
		cs.mu.Unlock()
		return nil, &ValidationError{Field: "step", Message: fmt.Sprintf("cannot begin payment from step %s", session.Step)}
	}
	existingIntentID := session.PaymentIntentID
	orderNumber := session.OrderNumber
	userID := session.UserID
	cs.mu.Unlock()

	store.Hydrate(ctx)
	items, err := cs.catalog.ResolveCartItems(ctx, store.Items())
	if err != nil {
		return nil, fmt.Errorf("price cart: %w", err)
	}
	if len(items) == 0 {
		return nil, &ValidationError{Field: "cart", Message: "cart is empty"}
	}

	subtotal := (types.Cart{Items: items}).Subtotal()
	shipping := cs.policy.ShippingCost(subtotal)
	tax := cs.policy.Tax(subtotal, shipping)
	discount := decimal.Zero.Round(2)
	total := pricing.Total(subtotal, shipping, tax, discount)

	metadata := map[string]string{"order_id": orderNumber}
	if userID != nil {
		metadata["user_id"] = userID.String()
	}
	req := payment.IntentRequest{Amount: total, Currency: cs.policy.Currency, Metadata: metadata}

	cs.mu.Lock()
	session.Items = items
	session.Subtotal = subtotal
	session.ShippingCost = shipping
	session.Tax = tax
	session.Discount = discount
	session.Total = total
	session.Step = types.CheckoutStepPayment
	cs.mu.Unlock()

	var intent *payment.Intent
	if existingIntentID != "" {
		intent, err = cs.gateway.UpdateIntent(ctx, existingIntentID, req)
	} else {
		intent, err = cs.gateway.CreateIntent(ctx, req)
	}
	if err != nil {
		cs.log.Warn("Payment intent request failed",
			"order_number", orderNumber, "retryable", payment.IsRetryable(err), "error", err)
		return nil, err
	}

	cs.mu.Lock()
	session.PaymentIntentID = intent.ID
	session.ClientSecret = intent.ClientSecret
	snapshot := copySession(session)
	cs.mu.Unlock()
	return snapshot, nil
}

// Confirm enters CONFIRM: only reachable once the gateway reports the intent
// as needing no further action. It creates the durable order as
// PENDING/UNPAID, clears the cart and discards the session.
func (cs *checkoutService) Confirm(ctx context.Context, sessionID string, store *cart.Store) (*ConfirmResult, error) {
	cs.mu.Lock()
	session, ok := cs.sessions[sessionID]
	if !ok {
		cs.mu.Unlock()
		return nil, fmt.Errorf("checkout session not found")
	}
	if session.Step != types.CheckoutStepPayment {
		cs.mu.Unlock()
		return nil, &ValidationError{Field: "step", Message: fmt.Sprintf("cannot confirm from step %s", session.Step)}
	}
	if session.PaymentIntentID == "" {
		cs.mu.Unlock()
		return nil, &ValidationError{Field: "payment", Message: "payment intent not created"}
	}
	snapshot := copySession(session)
	cs.mu.Unlock()

	intent, err := cs.gateway.RetrieveIntent(ctx, snapshot.PaymentIntentID)
	if err != nil {
		return nil, fmt.Errorf("verify payment intent: %w", err)
	}
	if !intent.RequiresNoFurtherAction() {
		return nil, &ValidationError{Field: "payment", Message: fmt.Sprintf("payment intent is %s", intent.Status)}
	}
	if intent.Amount != pricing.MinorUnits(snapshot.Total) {
		cs.log.Warn("Payment intent amount diverged from checkout total",
			"payment_intent_id", intent.ID, "intent_amount", intent.Amount, "total", snapshot.Total)
		return nil, &ValidationError{Field: "payment", Message: "payment amount does not match order total"}
	}

	order, err := cs.buildOrder(snapshot)
	if err != nil {
		return nil, err
	}

	if _, err := cs.orderRepo.Create(ctx, nil, order); err != nil {
		// The intent is live but the order write failed. This is the
		// reconciliation gap: log everything needed to recover by hand and
		// keep the cart.
		payloadJSON, _ := json.Marshal(order)
		cs.log.Error("Order creation failed after successful payment intent, manual reconciliation required",
			"payment_intent_id", snapshot.PaymentIntentID,
			"order_number", order.OrderNumber,
			"amount", snapshot.Total,
			"currency", snapshot.Currency,
			"intended_order", string(payloadJSON),
			"error", err)
		return nil, fmt.Errorf("create order: %w", err)
	}

	session.Step = types.CheckoutStepConfirm
	store.Clear(ctx)
	cs.mu.Lock()
	delete(cs.sessions, sessionID)
	cs.mu.Unlock()

	cs.log.Info("Order placed",
		"order_number", order.OrderNumber, "payment_intent_id", order.PaymentIntentID, "total", order.Total)
	return &ConfirmResult{
		OrderNumber:   order.OrderNumber,
		Status:        order.Status,
		PaymentStatus: order.PaymentStatus,
		Total:         order.Total,
		Currency:      order.Currency,
	}, nil
}

func (cs *checkoutService) Get(sessionID string) (*types.CheckoutSession, error) {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	session, ok := cs.sessions[sessionID]
	if !ok {
		return nil, fmt.Errorf("checkout session not found")
	}
	return copySession(session), nil
}

func (cs *checkoutService) buildOrder(session *types.CheckoutSession) (*types.Order, error) {
	shippingJSON, err := json.Marshal(session.ShippingAddress)
	if err != nil {
		return nil, fmt.Errorf("marshal shipping address: %w", err)
	}
	billingJSON, err := json.Marshal(session.BillingAddress)
	if err != nil {
		return nil, fmt.Errorf("marshal billing address: %w", err)
	}

	order := &types.Order{
		ID:              uuid.New(),
		OrderNumber:     session.OrderNumber,
		UserID:          session.UserID,
		Email:           session.Email,
		Status:          types.OrderStatusPending,
		PaymentStatus:   types.PaymentStatusUnpaid,
		PaymentIntentID: session.PaymentIntentID,
		Subtotal:        session.Subtotal,
		ShippingCost:    session.ShippingCost,
		Tax:             session.Tax,
		Discount:        session.Discount,
		Total:           session.Total,
		RefundedAmount:  decimal.Zero,
		Currency:        session.Currency,
		ShippingAddress: datatypes.JSON(shippingJSON),
		BillingAddress:  datatypes.JSON(billingJSON),
	}
	for _, it := range session.Items {
		order.Items = append(order.Items, types.OrderItem{
			ID:        uuid.New(),
			OrderID:   order.ID,
			ProductID: it.ProductID,
			Name:      it.Name,
			UnitPrice: it.UnitPrice,
			Quantity:  it.Quantity,
		})
	}
	return order, nil
}

func copySession(s *types.CheckoutSession) *types.CheckoutSession {
	dup := *s
	dup.Items = append([]types.CartItem(nil), s.Items...)
	return &dup
}

// newOrderNumber builds the human-readable order reference. It is assigned
// when checkout begins so payment-intent metadata and idempotency keys can
// refer to the order before the durable row exists.
func newOrderNumber() string {
	id := uuid.New()
	return fmt.Sprintf("JW-%s", strings.ToUpper(strings.ReplaceAll(id.String(), "-", "")[:10]))
}
