package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/archdemone/jewelry-backend/internal/logger"
)

// RateLimiter is a fixed-window counter shared across processes. Allow
// fails open on redis errors so a cache outage never takes the API down.
type RateLimiter struct {
	log    *logger.Logger
	rdb    *goredis.Client
	limit  int
	window time.Duration
}

func NewRateLimiter(rdb *goredis.Client, limit int, window time.Duration, log *logger.Logger) *RateLimiter {
	if limit <= 0 {
		limit = 120
	}
	if window <= 0 {
		window = time.Minute
	}
	return &RateLimiter{
		log:    log.With("service", "RateLimiter"),
		rdb:    rdb,
		limit:  limit,
		window: window,
	}
}

func (rl *RateLimiter) Allow(ctx context.Context, key string) bool {
	redisKey := fmt.Sprintf("ratelimit:%s", key)
	count, err := rl.rdb.Incr(ctx, redisKey).Result()
	if err != nil {
		rl.log.Warn("Rate limit counter unavailable, allowing request", "error", err)
		return true
	}
	if count == 1 {
		if err := rl.rdb.Expire(ctx, redisKey, rl.window).Err(); err != nil {
			rl.log.Warn("Rate limit expiry failed", "key", key, "error", err)
		}
	}
	return count <= int64(rl.limit)
}
