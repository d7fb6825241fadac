// Package cart implements the session-scoped shopping cart. A Store is the
// single writer for one browsing session; durability is delegated to an
// injected Persister rather than a process-wide global.
package cart

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/archdemone/jewelry-backend/internal/logger"
	"github.com/archdemone/jewelry-backend/internal/types"
)

// Persister is the durable backing store for carts, keyed by session id.
type Persister interface {
	Load(ctx context.Context, sessionID string) (*types.Cart, error)
	Save(ctx context.Context, sessionID string, cart types.Cart) error
	Delete(ctx context.Context, sessionID string) error
}

type Store struct {
	mu        sync.Mutex
	sessionID string
	items     []types.CartItem
	hydrated  bool
	persister Persister
	log       *logger.Logger
}

func NewStore(sessionID string, persister Persister, baseLog *logger.Logger) *Store {
	storeLog := baseLog.With("component", "CartStore", "session_id", sessionID)
	return &Store{
		sessionID: sessionID,
		persister: persister,
		log:       storeLog,
	}
}

func (s *Store) SessionID() string {
	return s.sessionID
}

// Hydrate loads the durable copy into memory. It runs at most once per Store;
// later calls are no-ops. Malformed or unreadable persisted data yields an
// empty cart, never an error to the caller.
func (s *Store) Hydrate(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.hydrated {
		return
	}
	if s.persister != nil {
		persisted, err := s.persister.Load(ctx, s.sessionID)
		if err != nil {
			s.log.Warn("Cart hydration failed, starting empty", "error", err)
		} else if persisted != nil {
			s.items = sanitize(persisted.Items)
		}
	}
	s.hydrated = true
}

func (s *Store) Hydrated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hydrated
}

// AddItem merges by product id: an existing line has its quantity
// incremented, otherwise the item is appended. Quantities below one are
// coerced to one. AddItem always succeeds.
func (s *Store) AddItem(ctx context.Context, item types.CartItem, quantity int) {
	if quantity < 1 {
		quantity = 1
	}
	s.mu.Lock()
	merged := false
	for i := range s.items {
		if s.items[i].ProductID == item.ProductID {
			s.items[i].Quantity += quantity
			merged = true
			break
		}
	}
	if !merged {
		item.Quantity = quantity
		s.items = append(s.items, item)
	}
	snapshot := s.snapshotLocked()
	s.mu.Unlock()
	s.persist(ctx, snapshot)
}

// RemoveItem deletes the line for productID. A missing line is a no-op, not
// an error.
func (s *Store) RemoveItem(ctx context.Context, productID uuid.UUID) {
	s.mu.Lock()
	for i := range s.items {
		if s.items[i].ProductID == productID {
			s.items = append(s.items[:i], s.items[i+1:]...)
			break
		}
	}
	snapshot := s.snapshotLocked()
	s.mu.Unlock()
	s.persist(ctx, snapshot)
}

// UpdateQuantity sets the quantity for productID; zero or negative removes
// the line.
func (s *Store) UpdateQuantity(ctx context.Context, productID uuid.UUID, quantity int) {
	if quantity <= 0 {
		s.RemoveItem(ctx, productID)
		return
	}
	s.mu.Lock()
	for i := range s.items {
		if s.items[i].ProductID == productID {
			s.items[i].Quantity = quantity
			break
		}
	}
	snapshot := s.snapshotLocked()
	s.mu.Unlock()
	s.persist(ctx, snapshot)
}

// Clear empties the cart and removes the durable copy. Used after a
// successful order placement.
func (s *Store) Clear(ctx context.Context) {
	s.mu.Lock()
	s.items = nil
	s.mu.Unlock()
	if s.persister != nil {
		if err := s.persister.Delete(ctx, s.sessionID); err != nil {
			s.log.Warn("Cart clear persistence failed", "error", err)
		}
	}
}

// Items returns a copy of the cart lines in insertion order.
func (s *Store) Items() []types.CartItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]types.CartItem(nil), s.items...)
}

// Count is the sum of line quantities, recomputed from the items on every
// read so it can never drift from them.
func (s *Store) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := 0
	for _, it := range s.items {
		total += it.Quantity
	}
	return total
}

func (s *Store) Cart() types.Cart {
	return types.Cart{Items: s.Items()}
}

func (s *Store) snapshotLocked() types.Cart {
	return types.Cart{Items: append([]types.CartItem(nil), s.items...)}
}

func (s *Store) persist(ctx context.Context, snapshot types.Cart) {
	if s.persister == nil {
		return
	}
	if err := s.persister.Save(ctx, s.sessionID, snapshot); err != nil {
		s.log.Warn("Cart persistence failed, in-memory state kept", "error", err)
	}
}

// sanitize drops persisted lines that could not represent a valid cart entry
// and collapses duplicate product ids, keeping first position and summing
// quantities.
func sanitize(items []types.CartItem) []types.CartItem {
	var clean []types.CartItem
	seen := map[uuid.UUID]int{}
	for _, it := range items {
		if it.ProductID == uuid.Nil || it.Quantity < 1 {
			continue
		}
		if idx, ok := seen[it.ProductID]; ok {
			clean[idx].Quantity += it.Quantity
			continue
		}
		seen[it.ProductID] = len(clean)
		clean = append(clean, it)
	}
	return clean
}
