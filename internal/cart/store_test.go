package cart

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/archdemone/jewelry-backend/internal/logger"
	"github.com/archdemone/jewelry-backend/internal/types"
)

type fakePersister struct {
	loaded    *types.Cart
	loadErr   error
	saved     []types.Cart
	deleted   int
	loadCalls int
}

func (f *fakePersister) Load(ctx context.Context, sessionID string) (*types.Cart, error) {
	f.loadCalls++
	return f.loaded, f.loadErr
}

func (f *fakePersister) Save(ctx context.Context, sessionID string, cart types.Cart) error {
	f.saved = append(f.saved, cart)
	return nil
}

func (f *fakePersister) Delete(ctx context.Context, sessionID string) error {
	f.deleted++
	return nil
}

func testStore(t *testing.T, p Persister) *Store {
	t.Helper()
	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	return NewStore("sess-1", p, log)
}

func item(id uuid.UUID, name string, price string) types.CartItem {
	return types.CartItem{
		ProductID: id,
		Name:      name,
		UnitPrice: decimal.RequireFromString(price),
	}
}

func TestAddItemMergesByProductID(t *testing.T) {
	p := &fakePersister{}
	s := testStore(t, p)
	ctx := context.Background()
	ring := uuid.New()

	s.AddItem(ctx, item(ring, "Silver Ring", "120.00"), 1)
	s.AddItem(ctx, item(ring, "Silver Ring", "120.00"), 2)

	items := s.Items()
	if len(items) != 1 {
		t.Fatalf("item lines: want=1 got=%d", len(items))
	}
	if items[0].Quantity != 3 {
		t.Fatalf("merged quantity: want=3 got=%d", items[0].Quantity)
	}
	if s.Count() != 3 {
		t.Fatalf("count: want=3 got=%d", s.Count())
	}
	if len(p.saved) != 2 {
		t.Fatalf("persistence writes: want=2 got=%d", len(p.saved))
	}
}

func TestAddItemCoercesQuantityToAtLeastOne(t *testing.T) {
	s := testStore(t, &fakePersister{})
	ctx := context.Background()

	s.AddItem(ctx, item(uuid.New(), "Pendant", "45.00"), 0)
	s.AddItem(ctx, item(uuid.New(), "Bracelet", "75.00"), -3)

	if s.Count() != 2 {
		t.Fatalf("count after coerced adds: want=2 got=%d", s.Count())
	}
}

func TestCountEqualsSumOfQuantitiesAcrossMutations(t *testing.T) {
	s := testStore(t, &fakePersister{})
	ctx := context.Background()
	a, b, c := uuid.New(), uuid.New(), uuid.New()

	s.AddItem(ctx, item(a, "Ring", "120.00"), 2)
	s.AddItem(ctx, item(b, "Necklace", "250.00"), 1)
	s.AddItem(ctx, item(c, "Earrings", "60.00"), 4)
	s.UpdateQuantity(ctx, b, 5)
	s.RemoveItem(ctx, c)
	s.AddItem(ctx, item(a, "Ring", "120.00"), 1)

	wantCount := 0
	seen := map[uuid.UUID]bool{}
	for _, it := range s.Items() {
		if seen[it.ProductID] {
			t.Fatalf("duplicate product id in cart: %s", it.ProductID)
		}
		seen[it.ProductID] = true
		wantCount += it.Quantity
	}
	if s.Count() != wantCount {
		t.Fatalf("count: want=%d got=%d", wantCount, s.Count())
	}
	if s.Count() != 8 {
		t.Fatalf("count: want=8 got=%d", s.Count())
	}
}

func TestRemoveItemMissingIsNoOp(t *testing.T) {
	s := testStore(t, &fakePersister{})
	ctx := context.Background()
	s.AddItem(ctx, item(uuid.New(), "Ring", "120.00"), 1)

	s.RemoveItem(ctx, uuid.New())

	if s.Count() != 1 {
		t.Fatalf("count after removing absent item: want=1 got=%d", s.Count())
	}
}

func TestUpdateQuantityZeroRemoves(t *testing.T) {
	s := testStore(t, &fakePersister{})
	ctx := context.Background()
	ring := uuid.New()
	s.AddItem(ctx, item(ring, "Ring", "120.00"), 2)

	s.UpdateQuantity(ctx, ring, 0)

	if len(s.Items()) != 0 {
		t.Fatalf("items after zero-quantity update: want=0 got=%d", len(s.Items()))
	}
}

func TestHydrateLoadsPersistedCartOnce(t *testing.T) {
	ring := uuid.New()
	p := &fakePersister{loaded: &types.Cart{Items: []types.CartItem{
		{ProductID: ring, Name: "Ring", UnitPrice: decimal.RequireFromString("120.00"), Quantity: 2},
	}}}
	s := testStore(t, p)
	ctx := context.Background()

	if s.Hydrated() {
		t.Fatalf("store must start unhydrated")
	}
	s.Hydrate(ctx)
	s.Hydrate(ctx)

	if !s.Hydrated() {
		t.Fatalf("store must be hydrated after Hydrate")
	}
	if p.loadCalls != 1 {
		t.Fatalf("persister load calls: want=1 got=%d", p.loadCalls)
	}
	if s.Count() != 2 {
		t.Fatalf("count after hydrate: want=2 got=%d", s.Count())
	}
}

func TestHydrateMalformedDataYieldsEmptyCart(t *testing.T) {
	p := &fakePersister{loadErr: errors.New("unmarshal cart: unexpected end of JSON input")}
	s := testStore(t, p)

	s.Hydrate(context.Background())

	if !s.Hydrated() {
		t.Fatalf("hydrate must complete despite malformed data")
	}
	if s.Count() != 0 {
		t.Fatalf("count after failed hydrate: want=0 got=%d", s.Count())
	}
}

func TestHydrateDropsInvalidPersistedLines(t *testing.T) {
	ring := uuid.New()
	p := &fakePersister{loaded: &types.Cart{Items: []types.CartItem{
		{ProductID: ring, Quantity: 1},
		{ProductID: uuid.Nil, Quantity: 3},
		{ProductID: ring, Quantity: 2},
		{ProductID: uuid.New(), Quantity: -1},
	}}}
	s := testStore(t, p)

	s.Hydrate(context.Background())

	items := s.Items()
	if len(items) != 1 {
		t.Fatalf("sanitized lines: want=1 got=%d", len(items))
	}
	if items[0].Quantity != 3 {
		t.Fatalf("collapsed quantity: want=3 got=%d", items[0].Quantity)
	}
}

func TestClearEmptiesAndDeletesDurableCopy(t *testing.T) {
	p := &fakePersister{}
	s := testStore(t, p)
	ctx := context.Background()
	s.AddItem(ctx, item(uuid.New(), "Ring", "120.00"), 2)

	s.Clear(ctx)

	if s.Count() != 0 {
		t.Fatalf("count after clear: want=0 got=%d", s.Count())
	}
	if p.deleted != 1 {
		t.Fatalf("durable deletes: want=1 got=%d", p.deleted)
	}
}
