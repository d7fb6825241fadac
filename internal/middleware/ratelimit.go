package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/archdemone/jewelry-backend/internal/clients/redis"
	"github.com/archdemone/jewelry-backend/internal/logger"
	"github.com/archdemone/jewelry-backend/internal/requestdata"
)

// RateLimitMiddleware throttles write-heavy routes per session. Identity
// must already be resolved so the session id is available as the key.
type RateLimitMiddleware struct {
	log     *logger.Logger
	limiter *redis.RateLimiter
}

func NewRateLimitMiddleware(log *logger.Logger, limiter *redis.RateLimiter) *RateLimitMiddleware {
	middlewareLogger := log.With("Middleware", "RateLimitMiddleware")
	return &RateLimitMiddleware{log: middlewareLogger, limiter: limiter}
}

func (rm *RateLimitMiddleware) Limit() gin.HandlerFunc {
	return func(c *gin.Context) {
		rd := requestdata.GetRequestData(c.Request.Context())
		key := c.ClientIP()
		if rd != nil && rd.SessionID != "" {
			key = rd.SessionID
		}
		if !rm.limiter.Allow(c.Request.Context(), key) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "too many requests"})
			return
		}
		c.Next()
	}
}
