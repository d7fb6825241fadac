package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/archdemone/jewelry-backend/internal/clients/payment"
	redisclient "github.com/archdemone/jewelry-backend/internal/clients/redis"
	"github.com/archdemone/jewelry-backend/internal/db"
	"github.com/archdemone/jewelry-backend/internal/handlers"
	"github.com/archdemone/jewelry-backend/internal/logger"
	"github.com/archdemone/jewelry-backend/internal/middleware"
	"github.com/archdemone/jewelry-backend/internal/observability"
	"github.com/archdemone/jewelry-backend/internal/pricing"
	"github.com/archdemone/jewelry-backend/internal/repos"
	"github.com/archdemone/jewelry-backend/internal/server"
	"github.com/archdemone/jewelry-backend/internal/services"
	"github.com/archdemone/jewelry-backend/internal/utils"
)

func main() {
	// Logger
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// Tracing
	otelShutdown := observability.InitOTel(context.Background(), log, observability.OtelConfig{
		ServiceName: "jewelry-backend",
		Environment: utils.GetEnv("APP_ENV", "development", log),
		Version:     utils.GetEnv("APP_VERSION", "dev", log),
	})
	if otelShutdown != nil {
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = otelShutdown(ctx)
		}()
	}

	// Env
	log.Info("Loading environment variables from main...")
	jwtSecretKey := utils.GetEnv("JWT_SECRET_KEY", "defaultsecret", log)
	webhookSecret := utils.GetEnv("PAYMENT_WEBHOOK_SECRET", "", log)
	cartTTLHours := utils.GetEnvAsInt("CART_TTL_HOURS", 168, log)
	rateLimit := utils.GetEnvAsInt("RATE_LIMIT_PER_MINUTE", 120, log)
	if webhookSecret == "" {
		log.Error("PAYMENT_WEBHOOK_SECRET is required")
		os.Exit(1)
	}

	// Postgres
	postgresService, err := db.NewPostgresService(log)
	if err != nil {
		log.Error("Postgres init failed", "error", err)
		os.Exit(1)
	}
	if err = postgresService.AutoMigrateAll(); err != nil {
		log.Warn("Postgres auto migration failed", "error", err)
	}
	thePG := postgresService.DB()

	// Redis
	rdb, err := redisclient.NewClient(log)
	if err != nil {
		log.Error("Redis init failed", "error", err)
		os.Exit(1)
	}
	cartPersister := redisclient.NewCartPersister(rdb, time.Duration(cartTTLHours)*time.Hour, log)
	rateLimiter := redisclient.NewRateLimiter(rdb, rateLimit, time.Minute, log)

	// Payment gateway
	gateway, err := payment.NewClient(log)
	if err != nil {
		log.Error("Payment gateway init failed", "error", err)
		os.Exit(1)
	}

	// Repos
	log.Info("Setting up Repos from main...")
	productRepo := repos.NewProductRepo(thePG, log)
	orderRepo := repos.NewOrderRepo(thePG, log)
	paymentEventRepo := repos.NewPaymentEventRepo(thePG, log)

	// Services
	log.Info("Setting up Services from main...")
	catalogService := services.NewCatalogService(thePG, log, productRepo)
	checkoutService := services.NewCheckoutService(thePG, log, orderRepo, catalogService, gateway, pricing.DefaultPolicy())
	orderService := services.NewOrderService(thePG, log, orderRepo)
	orderNotifier := services.NewLogOrderNotifier(log)
	reconciliationService := services.NewReconciliationService(thePG, log, orderRepo, paymentEventRepo, orderNotifier)

	// Handlers
	log.Info("Setting up handlers from main...")
	readinessHandler := handlers.NewReadinessHandler(log,
		handlers.PingerFunc(postgresService.Ping),
		handlers.PingerFunc(func(ctx context.Context) error { return rdb.Ping(ctx).Err() }),
	)
	productHandler := handlers.NewProductHandler(log, catalogService)
	cartHandler := handlers.NewCartHandler(log, cartPersister, catalogService)
	checkoutHandler := handlers.NewCheckoutHandler(log, cartPersister, checkoutService)
	orderHandler := handlers.NewOrderHandler(log, orderService)
	webhookHandler := handlers.NewWebhookHandler(log, webhookSecret, reconciliationService)

	// Middleware
	log.Info("Setting up middleware from main...")
	identityMiddleware := middleware.NewIdentityMiddleware(log, jwtSecretKey)
	rateLimitMiddleware := middleware.NewRateLimitMiddleware(log, rateLimiter)

	// Router
	log.Info("Setting up router from main...")
	router := server.NewRouter(server.RouterConfig{
		IdentityMiddleware:  identityMiddleware,
		RateLimitMiddleware: rateLimitMiddleware,
		ReadinessHandler:    readinessHandler,
		ProductHandler:      productHandler,
		CartHandler:         cartHandler,
		CheckoutHandler:     checkoutHandler,
		OrderHandler:        orderHandler,
		WebhookHandler:      webhookHandler,
	})

	port := utils.GetEnv("PORT", "8080", log)
	fmt.Printf("Server listening on :%s\n", port)
	if err := router.Run(":" + port); err != nil {
		log.Warn("Server failed", "error", err)
	}
}
