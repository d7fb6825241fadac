package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/archdemone/jewelry-backend/internal/logger"
	"github.com/archdemone/jewelry-backend/internal/services"
	"github.com/archdemone/jewelry-backend/internal/types"
)

type OrderHandler struct {
	log          *logger.Logger
	orderService services.OrderService
}

func NewOrderHandler(log *logger.Logger, orderService services.OrderService) *OrderHandler {
	return &OrderHandler{
		log:          log.With("handler", "OrderHandler"),
		orderService: orderService,
	}
}

// GET /api/orders/:orderNumber
// Order lookup is ownership-scoped inside the service: guests reach their
// orders by number, accounts only see their own.
func (h *OrderHandler) GetOrder(c *gin.Context) {
	order, err := h.orderService.GetByOrderNumber(c.Request.Context(), c.Param("orderNumber"))
	if err != nil {
		RespondError(c, http.StatusNotFound, "order_not_found", err)
		return
	}
	RespondOK(c, gin.H{"order": order})
}

// GET /admin/orders
func (h *OrderHandler) ListOrders(c *gin.Context) {
	limit := parseIntQuery(c, "limit", 50)
	offset := parseIntQuery(c, "offset", 0)
	orders, err := h.orderService.List(c.Request.Context(), limit, offset)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"orders": orders})
}

type updateOrderStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// PATCH /admin/orders/:orderNumber/status
func (h *OrderHandler) UpdateOrderStatus(c *gin.Context) {
	var req updateOrderStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	order, err := h.orderService.UpdateFulfillmentStatus(c.Request.Context(), c.Param("orderNumber"), types.OrderStatus(req.Status))
	if err != nil {
		RespondError(c, http.StatusConflict, "invalid_transition", err)
		return
	}
	RespondOK(c, gin.H{"order": order})
}
