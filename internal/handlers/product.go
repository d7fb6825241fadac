package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/archdemone/jewelry-backend/internal/logger"
	"github.com/archdemone/jewelry-backend/internal/services"
)

type ProductHandler struct {
	log     *logger.Logger
	catalog services.CatalogService
}

func NewProductHandler(log *logger.Logger, catalog services.CatalogService) *ProductHandler {
	return &ProductHandler{
		log:     log.With("handler", "ProductHandler"),
		catalog: catalog,
	}
}

// GET /api/products
func (h *ProductHandler) ListProducts(c *gin.Context) {
	limit := parseIntQuery(c, "limit", 50)
	offset := parseIntQuery(c, "offset", 0)
	products, err := h.catalog.ListProducts(c.Request.Context(), limit, offset)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"products": products})
}

// GET /api/products/:slug
func (h *ProductHandler) GetProduct(c *gin.Context) {
	product, err := h.catalog.GetProduct(c.Request.Context(), c.Param("slug"))
	if err != nil {
		RespondError(c, http.StatusNotFound, "product_not_found", err)
		return
	}
	RespondOK(c, gin.H{"product": product})
}

func parseIntQuery(c *gin.Context, name string, fallback int) int {
	raw := c.Query(name)
	if raw == "" {
		return fallback
	}
	val, err := strconv.Atoi(raw)
	if err != nil || val < 0 {
		return fallback
	}
	return val
}
