package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/archdemone/jewelry-backend/internal/cart"
	"github.com/archdemone/jewelry-backend/internal/logger"
	"github.com/archdemone/jewelry-backend/internal/requestdata"
	"github.com/archdemone/jewelry-backend/internal/services"
	"github.com/archdemone/jewelry-backend/internal/types"
)

type CartHandler struct {
	log       *logger.Logger
	persister cart.Persister
	catalog   services.CatalogService
}

func NewCartHandler(log *logger.Logger, persister cart.Persister, catalog services.CatalogService) *CartHandler {
	return &CartHandler{
		log:       log.With("handler", "CartHandler"),
		persister: persister,
		catalog:   catalog,
	}
}

// storeFor builds the in-memory cart bound to this request's session. The
// durable copy is hydrated lazily on first read.
func (h *CartHandler) storeFor(c *gin.Context) (*cart.Store, error) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil || rd.SessionID == "" {
		return nil, fmt.Errorf("no session")
	}
	return cart.NewStore(rd.SessionID, h.persister, h.log), nil
}

type cartItemView struct {
	ProductID string          `json:"product_id"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Image     string          `json:"image,omitempty"`
	Quantity  int             `json:"quantity"`
	LineTotal decimal.Decimal `json:"line_total"`
}

type cartView struct {
	Items    []cartItemView  `json:"items"`
	Count    int             `json:"count"`
	Subtotal decimal.Decimal `json:"subtotal"`
}

func viewOf(store *cart.Store) cartView {
	c := store.Cart()
	view := cartView{
		Items:    []cartItemView{},
		Count:    c.Count(),
		Subtotal: c.Subtotal(),
	}
	for _, it := range c.Items {
		view.Items = append(view.Items, cartItemView{
			ProductID: it.ProductID.String(),
			Name:      it.Name,
			UnitPrice: it.UnitPrice,
			Image:     it.Image,
			Quantity:  it.Quantity,
			LineTotal: it.UnitPrice.Mul(decimal.NewFromInt(int64(it.Quantity))).Round(2),
		})
	}
	return view
}

// GET /api/cart
func (h *CartHandler) GetCart(c *gin.Context) {
	store, err := h.storeFor(c)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "no_session", err)
		return
	}
	store.Hydrate(c.Request.Context())
	RespondOK(c, viewOf(store))
}

type addItemRequest struct {
	ProductID string `json:"product_id" binding:"required"`
	Quantity  int    `json:"quantity"`
}

// POST /api/cart/items
func (h *CartHandler) AddItem(c *gin.Context) {
	var req addItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	productID, err := uuid.Parse(req.ProductID)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_product_id", err)
		return
	}

	// The catalog is the price authority. A missing or retired product is a
	// client error, not a silent no-op.
	resolved, err := h.catalog.ResolveCartItems(c.Request.Context(), []types.CartItem{{ProductID: productID, Quantity: 1}})
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	if len(resolved) == 0 {
		RespondError(c, http.StatusNotFound, "product_unavailable", fmt.Errorf("product is not available"))
		return
	}

	store, err := h.storeFor(c)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "no_session", err)
		return
	}
	store.Hydrate(c.Request.Context())
	store.AddItem(c.Request.Context(), resolved[0], req.Quantity)
	RespondOK(c, viewOf(store))
}

type updateItemRequest struct {
	Quantity int `json:"quantity"`
}

// PATCH /api/cart/items/:productId
func (h *CartHandler) UpdateItem(c *gin.Context) {
	productID, err := uuid.Parse(c.Param("productId"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_product_id", err)
		return
	}
	var req updateItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}

	store, err := h.storeFor(c)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "no_session", err)
		return
	}
	store.Hydrate(c.Request.Context())
	store.UpdateQuantity(c.Request.Context(), productID, req.Quantity)
	RespondOK(c, viewOf(store))
}

// DELETE /api/cart/items/:productId
func (h *CartHandler) RemoveItem(c *gin.Context) {
	productID, err := uuid.Parse(c.Param("productId"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_product_id", err)
		return
	}

	store, err := h.storeFor(c)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "no_session", err)
		return
	}
	store.Hydrate(c.Request.Context())
	store.RemoveItem(c.Request.Context(), productID)
	RespondOK(c, viewOf(store))
}

// DELETE /api/cart
func (h *CartHandler) ClearCart(c *gin.Context) {
	store, err := h.storeFor(c)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "no_session", err)
		return
	}
	store.Clear(c.Request.Context())
	RespondOK(c, viewOf(store))
}
