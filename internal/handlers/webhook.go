package handlers

import (
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/archdemone/jewelry-backend/internal/clients/payment"
	"github.com/archdemone/jewelry-backend/internal/logger"
	"github.com/archdemone/jewelry-backend/internal/services"
)

const signatureHeader = "Webhook-Signature"

// WebhookHandler receives payment processor events. The signature is checked
// against the raw body before anything is parsed; an unverifiable delivery
// is rejected outright and never reaches reconciliation.
type WebhookHandler struct {
	log            *logger.Logger
	signingSecret  string
	tolerance      time.Duration
	reconciliation services.ReconciliationService
}

func NewWebhookHandler(log *logger.Logger, signingSecret string, reconciliation services.ReconciliationService) *WebhookHandler {
	return &WebhookHandler{
		log:            log.With("handler", "WebhookHandler"),
		signingSecret:  signingSecret,
		tolerance:      payment.DefaultSignatureTolerance,
		reconciliation: reconciliation,
	}
}

// POST /webhooks/payment
func (h *WebhookHandler) HandlePaymentEvent(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, 1<<20))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "unreadable_body", err)
		return
	}

	header := c.GetHeader(signatureHeader)
	if err := payment.VerifySignature(body, header, h.signingSecret, h.tolerance, time.Now().UTC()); err != nil {
		h.log.Warn("Rejected webhook with bad signature", "error", err)
		RespondError(c, http.StatusUnauthorized, "invalid_signature", err)
		return
	}

	event, err := payment.ParseEvent(body)
	if err != nil {
		h.log.Warn("Rejected malformed webhook payload", "error", err)
		RespondError(c, http.StatusBadRequest, "malformed_event", err)
		return
	}

	// A non-2xx here makes the processor redeliver, so only transient
	// failures may error out. Permanent dead ends are acked inside
	// HandleEvent.
	if err := h.reconciliation.HandleEvent(c.Request.Context(), event); err != nil {
		h.log.Error("Payment event handling failed, delivery will be retried",
			"event_id", event.ID, "type", event.Type, "error", err)
		RespondError(c, http.StatusInternalServerError, "event_not_applied", err)
		return
	}
	RespondOK(c, gin.H{"received": true})
}
