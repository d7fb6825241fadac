package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/archdemone/jewelry-backend/internal/cart"
	"github.com/archdemone/jewelry-backend/internal/logger"
	"github.com/archdemone/jewelry-backend/internal/requestdata"
	"github.com/archdemone/jewelry-backend/internal/services"
	"github.com/archdemone/jewelry-backend/internal/types"
)

// CheckoutHandler exposes the checkout steps over HTTP. The checkout session
// is keyed by the cart session, so every route works off the caller's
// resolved identity rather than a path parameter.
type CheckoutHandler struct {
	log             *logger.Logger
	persister       cart.Persister
	checkoutService services.CheckoutService
}

func NewCheckoutHandler(log *logger.Logger, persister cart.Persister, checkoutService services.CheckoutService) *CheckoutHandler {
	return &CheckoutHandler{
		log:             log.With("handler", "CheckoutHandler"),
		persister:       persister,
		checkoutService: checkoutService,
	}
}

func (h *CheckoutHandler) identity(c *gin.Context) (*requestdata.RequestData, *cart.Store, error) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil || rd.SessionID == "" {
		return nil, nil, fmt.Errorf("no session")
	}
	return rd, cart.NewStore(rd.SessionID, h.persister, h.log), nil
}

type addressRequest struct {
	Email           string         `json:"email"`
	ShippingAddress types.Address  `json:"shipping_address"`
	BillingAddress  *types.Address `json:"billing_address,omitempty"`
}

func (r addressRequest) toInput() services.AddressInput {
	return services.AddressInput{
		Email:           r.Email,
		ShippingAddress: r.ShippingAddress,
		BillingAddress:  r.BillingAddress,
	}
}

type beginCheckoutRequest struct {
	Guest *addressRequest `json:"guest,omitempty"`
}

// POST /api/checkout
// Starts a checkout from the current cart. Guests may supply their address
// up front and land directly on the payment-ready step.
func (h *CheckoutHandler) Begin(c *gin.Context) {
	rd, store, err := h.identity(c)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "no_session", err)
		return
	}

	var req beginCheckoutRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			RespondError(c, http.StatusBadRequest, "invalid_request", err)
			return
		}
	}
	var guest *services.AddressInput
	if req.Guest != nil {
		input := req.Guest.toInput()
		guest = &input
	}

	userID := uuid.Nil
	if !rd.IsGuest() {
		userID = rd.UserID
	}
	session, err := h.checkoutService.Begin(c.Request.Context(), store, userID, guest)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"checkout": session})
}

// GET /api/checkout
func (h *CheckoutHandler) Get(c *gin.Context) {
	rd, _, err := h.identity(c)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "no_session", err)
		return
	}
	session, err := h.checkoutService.Get(rd.SessionID)
	if err != nil {
		RespondError(c, http.StatusNotFound, "checkout_not_found", err)
		return
	}
	RespondOK(c, gin.H{"checkout": session})
}

// POST /api/checkout/address
func (h *CheckoutHandler) SubmitAddress(c *gin.Context) {
	rd, _, err := h.identity(c)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "no_session", err)
		return
	}
	var req addressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	session, err := h.checkoutService.SubmitAddress(c.Request.Context(), rd.SessionID, req.toInput())
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"checkout": session})
}

// POST /api/checkout/payment
// Re-prices the cart, computes the final amounts and attaches a payment
// intent. The client secret in the response drives the client-side payment
// form.
func (h *CheckoutHandler) BeginPayment(c *gin.Context) {
	rd, store, err := h.identity(c)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "no_session", err)
		return
	}
	session, err := h.checkoutService.BeginPayment(c.Request.Context(), rd.SessionID, store)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"checkout": session})
}

// POST /api/checkout/confirm
func (h *CheckoutHandler) Confirm(c *gin.Context) {
	rd, store, err := h.identity(c)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "no_session", err)
		return
	}
	result, err := h.checkoutService.Confirm(c.Request.Context(), rd.SessionID, store)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"order": result})
}
