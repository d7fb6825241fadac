package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/archdemone/jewelry-backend/internal/logger"
	"github.com/archdemone/jewelry-backend/internal/types"
)

// CartPersister keeps the durable copy of each session cart under a
// per-session key with a sliding TTL. Abandoned carts simply age out.
type CartPersister struct {
	log *logger.Logger
	rdb *goredis.Client
	ttl time.Duration
}

func NewCartPersister(rdb *goredis.Client, ttl time.Duration, log *logger.Logger) *CartPersister {
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	return &CartPersister{
		log: log.With("service", "CartPersister"),
		rdb: rdb,
		ttl: ttl,
	}
}

func cartKey(sessionID string) string {
	return "cart:" + sessionID
}

func (p *CartPersister) Load(ctx context.Context, sessionID string) (*types.Cart, error) {
	raw, err := p.rdb.Get(ctx, cartKey(sessionID)).Bytes()
	if err == goredis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load cart: %w", err)
	}
	var cart types.Cart
	if err := json.Unmarshal(raw, &cart); err != nil {
		return nil, fmt.Errorf("unmarshal cart: %w", err)
	}
	return &cart, nil
}

func (p *CartPersister) Save(ctx context.Context, sessionID string, cart types.Cart) error {
	raw, err := json.Marshal(cart)
	if err != nil {
		return fmt.Errorf("marshal cart: %w", err)
	}
	if err := p.rdb.Set(ctx, cartKey(sessionID), raw, p.ttl).Err(); err != nil {
		return fmt.Errorf("save cart: %w", err)
	}
	return nil
}

func (p *CartPersister) Delete(ctx context.Context, sessionID string) error {
	if err := p.rdb.Del(ctx, cartKey(sessionID)).Err(); err != nil {
		return fmt.Errorf("delete cart: %w", err)
	}
	return nil
}
