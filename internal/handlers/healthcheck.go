package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"github.com/archdemone/jewelry-backend/internal/logger"
)

func HealthCheck(c *gin.Context) {
	c.String(http.StatusOK, "ok")
}

type Pinger interface {
	Ping(ctx context.Context) error
}

type PingerFunc func(ctx context.Context) error

func (f PingerFunc) Ping(ctx context.Context) error { return f(ctx) }

// ReadinessHandler reports whether the process can serve traffic: both the
// database and the cache must answer within the deadline.
type ReadinessHandler struct {
	log   *logger.Logger
	db    Pinger
	cache Pinger
}

func NewReadinessHandler(log *logger.Logger, db Pinger, cache Pinger) *ReadinessHandler {
	return &ReadinessHandler{
		log:   log.With("handler", "ReadinessHandler"),
		db:    db,
		cache: cache,
	}
}

func (h *ReadinessHandler) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return h.db.Ping(gctx) })
	g.Go(func() error { return h.cache.Ping(gctx) })

	if err := g.Wait(); err != nil {
		h.log.Warn("Readiness check failed", "error", err)
		RespondError(c, http.StatusServiceUnavailable, "not_ready", err)
		return
	}
	RespondOK(c, gin.H{"status": "ready"})
}
