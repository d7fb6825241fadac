package services

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/archdemone/jewelry-backend/internal/cart"
	"github.com/archdemone/jewelry-backend/internal/clients/payment"
	"github.com/archdemone/jewelry-backend/internal/logger"
	"github.com/archdemone/jewelry-backend/internal/pricing"
	"github.com/archdemone/jewelry-backend/internal/types"
)

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	return log
}

// ---- order repo ----

type fakeOrderRepo struct {
	byID        map[uuid.UUID]*types.Order
	createErr   error
	createCalls int
	saveCalls   int
}

func newFakeOrderRepo() *fakeOrderRepo {
	return &fakeOrderRepo{byID: map[uuid.UUID]*types.Order{}}
}

func (f *fakeOrderRepo) Create(ctx context.Context, tx *gorm.DB, order *types.Order) (*types.Order, error) {
	f.createCalls++
	if f.createErr != nil {
		return nil, f.createErr
	}
	dup := *order
	f.byID[order.ID] = &dup
	return order, nil
}

func (f *fakeOrderRepo) GetByID(ctx context.Context, tx *gorm.DB, orderID uuid.UUID) (*types.Order, error) {
	return f.copyByID(orderID), nil
}

func (f *fakeOrderRepo) GetByIDForUpdate(ctx context.Context, tx *gorm.DB, orderID uuid.UUID) (*types.Order, error) {
	return f.copyByID(orderID), nil
}

func (f *fakeOrderRepo) GetByOrderNumber(ctx context.Context, tx *gorm.DB, orderNumber string) (*types.Order, error) {
	for _, o := range f.byID {
		if o.OrderNumber == orderNumber {
			dup := *o
			return &dup, nil
		}
	}
	return nil, nil
}

func (f *fakeOrderRepo) Save(ctx context.Context, tx *gorm.DB, order *types.Order) error {
	f.saveCalls++
	dup := *order
	f.byID[order.ID] = &dup
	return nil
}

func (f *fakeOrderRepo) List(ctx context.Context, tx *gorm.DB, limit, offset int) ([]*types.Order, error) {
	var out []*types.Order
	for _, o := range f.byID {
		dup := *o
		out = append(out, &dup)
	}
	return out, nil
}

func (f *fakeOrderRepo) copyByID(orderID uuid.UUID) *types.Order {
	o, ok := f.byID[orderID]
	if !ok {
		return nil
	}
	dup := *o
	return &dup
}

// ---- payment event ledger ----

type fakeEventRepo struct {
	byEventID map[string]*types.PaymentEvent
}

func newFakeEventRepo() *fakeEventRepo {
	return &fakeEventRepo{byEventID: map[string]*types.PaymentEvent{}}
}

func (f *fakeEventRepo) Create(ctx context.Context, tx *gorm.DB, event *types.PaymentEvent) (*types.PaymentEvent, error) {
	if _, ok := f.byEventID[event.EventID]; ok {
		return nil, gorm.ErrDuplicatedKey
	}
	dup := *event
	f.byEventID[event.EventID] = &dup
	return event, nil
}

func (f *fakeEventRepo) GetByEventID(ctx context.Context, tx *gorm.DB, eventID string) (*types.PaymentEvent, error) {
	e, ok := f.byEventID[eventID]
	if !ok {
		return nil, nil
	}
	dup := *e
	return &dup, nil
}

// ---- catalog ----

type fakeCatalog struct {
	products map[uuid.UUID]*types.Product
}

func newFakeCatalog(products ...*types.Product) *fakeCatalog {
	byID := map[uuid.UUID]*types.Product{}
	for _, p := range products {
		byID[p.ID] = p
	}
	return &fakeCatalog{products: byID}
}

func (f *fakeCatalog) ListProducts(ctx context.Context, limit, offset int) ([]*types.Product, error) {
	var out []*types.Product
	for _, p := range f.products {
		out = append(out, p)
	}
	return out, nil
}

func (f *fakeCatalog) GetProduct(ctx context.Context, slug string) (*types.Product, error) {
	for _, p := range f.products {
		if p.Slug == slug {
			return p, nil
		}
	}
	return nil, fmt.Errorf("product %q does not exist", slug)
}

func (f *fakeCatalog) ResolveCartItems(ctx context.Context, items []types.CartItem) ([]types.CartItem, error) {
	var resolved []types.CartItem
	for _, it := range items {
		p, ok := f.products[it.ProductID]
		if !ok || !p.Active {
			continue
		}
		resolved = append(resolved, types.CartItem{
			ProductID: p.ID,
			Name:      p.Name,
			UnitPrice: p.Price,
			Image:     p.Image,
			Quantity:  it.Quantity,
		})
	}
	return resolved, nil
}

// ---- payment gateway ----

type fakeGateway struct {
	createErr    error
	createCalls  int
	updateCalls  int
	lastRequest  payment.IntentRequest
	intentStatus string
	intents      map[string]*payment.Intent
	nextID       int
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{intentStatus: "requires_payment_method", intents: map[string]*payment.Intent{}}
}

func (f *fakeGateway) CreateIntent(ctx context.Context, req payment.IntentRequest) (*payment.Intent, error) {
	f.createCalls++
	f.lastRequest = req
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.nextID++
	intent := &payment.Intent{
		ID:           fmt.Sprintf("pi_%d", f.nextID),
		ClientSecret: fmt.Sprintf("pi_%d_secret", f.nextID),
		Status:       f.intentStatus,
		Amount:       pricing.MinorUnits(req.Amount),
		Currency:     req.Currency,
	}
	f.intents[intent.ID] = intent
	return intent, nil
}

func (f *fakeGateway) UpdateIntent(ctx context.Context, intentID string, req payment.IntentRequest) (*payment.Intent, error) {
	f.updateCalls++
	f.lastRequest = req
	intent, ok := f.intents[intentID]
	if !ok {
		return nil, &payment.GatewayError{Code: "resource_missing", Message: "no such intent"}
	}
	intent.Amount = pricing.MinorUnits(req.Amount)
	return intent, nil
}

func (f *fakeGateway) RetrieveIntent(ctx context.Context, intentID string) (*payment.Intent, error) {
	intent, ok := f.intents[intentID]
	if !ok {
		return nil, &payment.GatewayError{Code: "resource_missing", Message: "no such intent"}
	}
	return intent, nil
}

func (f *fakeGateway) settle(intentID string) {
	if intent, ok := f.intents[intentID]; ok {
		intent.Status = "succeeded"
	}
}

// ---- notifier ----

type fakeNotifier struct {
	paidCalls     int
	refundedCalls int
	failedCalls   int
}

func (f *fakeNotifier) OrderPaid(ctx context.Context, order *types.Order)     { f.paidCalls++ }
func (f *fakeNotifier) OrderRefunded(ctx context.Context, order *types.Order) { f.refundedCalls++ }
func (f *fakeNotifier) PaymentFailed(ctx context.Context, order *types.Order) { f.failedCalls++ }

// ---- cart persistence ----

type memPersister struct {
	carts map[string]types.Cart
}

func newMemPersister() *memPersister {
	return &memPersister{carts: map[string]types.Cart{}}
}

func (m *memPersister) Load(ctx context.Context, sessionID string) (*types.Cart, error) {
	c, ok := m.carts[sessionID]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

func (m *memPersister) Save(ctx context.Context, sessionID string, c types.Cart) error {
	m.carts[sessionID] = c
	return nil
}

func (m *memPersister) Delete(ctx context.Context, sessionID string) error {
	delete(m.carts, sessionID)
	return nil
}

var _ cart.Persister = (*memPersister)(nil)
