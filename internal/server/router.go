package server

import (
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/archdemone/jewelry-backend/internal/handlers"
	"github.com/archdemone/jewelry-backend/internal/middleware"
	"github.com/archdemone/jewelry-backend/internal/utils"
)

type RouterConfig struct {
	IdentityMiddleware  *middleware.IdentityMiddleware
	RateLimitMiddleware *middleware.RateLimitMiddleware
	ReadinessHandler    *handlers.ReadinessHandler
	ProductHandler      *handlers.ProductHandler
	CartHandler         *handlers.CartHandler
	CheckoutHandler     *handlers.CheckoutHandler
	OrderHandler        *handlers.OrderHandler
	WebhookHandler      *handlers.WebhookHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.Default()
	router.Use(otelgin.Middleware("jewelry-backend"))

	// Cors
	router.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOrigins(),
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With", "X-Session-ID"},
		ExposeHeaders:    []string{"X-Session-ID"},
		AllowCredentials: true,
	}))

	// ===============
	// || Public    ||
	// ===============
	router.GET("/healthcheck", handlers.HealthCheck)
	router.GET("/readiness", cfg.ReadinessHandler.Ready)

	// Webhooks carry their own signature auth; no session identity wanted.
	router.POST("/webhooks/payment", cfg.WebhookHandler.HandlePaymentEvent)

	// ===============
	// || Storefront||
	// ===============
	api := router.Group("/api")
	api.Use(cfg.IdentityMiddleware.Resolve())
	{
		api.GET("/products", cfg.ProductHandler.ListProducts)
		api.GET("/products/:slug", cfg.ProductHandler.GetProduct)

		api.GET("/cart", cfg.CartHandler.GetCart)
		api.DELETE("/cart", cfg.CartHandler.ClearCart)
		api.POST("/cart/items", cfg.RateLimitMiddleware.Limit(), cfg.CartHandler.AddItem)
		api.PATCH("/cart/items/:productId", cfg.CartHandler.UpdateItem)
		api.DELETE("/cart/items/:productId", cfg.CartHandler.RemoveItem)

		api.POST("/checkout", cfg.RateLimitMiddleware.Limit(), cfg.CheckoutHandler.Begin)
		api.GET("/checkout", cfg.CheckoutHandler.Get)
		api.POST("/checkout/address", cfg.CheckoutHandler.SubmitAddress)
		api.POST("/checkout/payment", cfg.RateLimitMiddleware.Limit(), cfg.CheckoutHandler.BeginPayment)
		api.POST("/checkout/confirm", cfg.RateLimitMiddleware.Limit(), cfg.CheckoutHandler.Confirm)

		api.GET("/orders/:orderNumber", cfg.OrderHandler.GetOrder)
	}

	// ===============
	// || Admin     ||
	// ===============
	admin := router.Group("/admin")
	admin.Use(cfg.IdentityMiddleware.Resolve(), cfg.IdentityMiddleware.RequireAdmin())
	{
		admin.GET("/orders", cfg.OrderHandler.ListOrders)
		admin.PATCH("/orders/:orderNumber/status", cfg.OrderHandler.UpdateOrderStatus)
	}

	return router
}

func allowedOrigins() []string {
	raw := utils.GetEnv("CORS_ALLOW_ORIGINS", "http://localhost:3000,http://localhost:5174", nil)
	var origins []string
	for _, origin := range strings.Split(raw, ",") {
		origin = strings.TrimSpace(origin)
		if origin != "" {
			origins = append(origins, origin)
		}
	}
	return origins
}
