package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"storefront-svc/cache"
	"storefront-svc/checkout"
	"storefront-svc/database"
	"storefront-svc/gateway"
	"storefront-svc/handlers"
	"storefront-svc/kafka"
	"storefront-svc/middleware"
	"storefront-svc/notify"
	"storefront-svc/orders"
	"storefront-svc/store"
	"storefront-svc/webhook"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"
)

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func main() {
	// Initialize logger
	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	// Initialize database
	db, err := database.InitDB(logger)
	if err != nil {
		logger.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer db.Close()

	// Initialize Redis; product reads fall back to the database when the
	// cache is unavailable, so this is not fatal.
	var productCache *cache.ProductCache
	rdb, err := cache.InitRedis(logger)
	if err != nil {
		logger.Warn("Redis unavailable, serving product reads without cache", zap.Error(err))
	} else {
		defer rdb.Close()
		productCache = cache.NewProductCache(rdb)
	}

	// Initialize Kafka producer
	producer, err := kafka.InitProducer(logger)
	if err != nil {
		logger.Fatal("Failed to initialize Kafka producer", zap.Error(err))
	}
	defer producer.Close()

	// Initialize OpenTelemetry
	shutdown, err := middleware.InitTracing("storefront-service")
	if err != nil {
		logger.Fatal("Failed to initialize tracing", zap.Error(err))
	}
	defer shutdown()

	// Wire the domain services
	var invalidate store.Invalidator
	if productCache != nil {
		invalidate = func(ctx context.Context, shopID, productID int) {
			if err := productCache.Invalidate(ctx, shopID, productID); err != nil {
				logger.Warn("Failed to invalidate product cache", zap.Error(err))
			}
		}
	}
	st := store.New(db, logger, invalidate)

	gw := gateway.NewClient(logger)
	platform := gateway.PlatformCredentials()
	events := kafka.NewPublisher(producer, logger)

	builder := checkout.NewBuilder(st, gw, platform, logger)
	reconciler := webhook.NewReconciler(st, gw, platform, events, logger)
	orderService := orders.NewService(st, events, logger)

	// Initialize Kafka consumer and the notification hub it feeds
	consumer, err := kafka.InitConsumer(logger)
	if err != nil {
		logger.Fatal("Failed to initialize Kafka consumer", zap.Error(err))
	}
	defer consumer.Close()

	hub := notify.NewHub(st, notify.NewTelegramSender(logger), notify.NewEmailSender(logger), logger)
	go func() {
		if err := kafka.StartConsumer(consumer, hub, logger); err != nil {
			logger.Error("Kafka consumer error", zap.Error(err))
		}
	}()

	// Setup REST API with Gin
	router := gin.New()
	router.Use(gin.Recovery())
	// OpenTelemetry middleware must be first to extract trace context
	router.Use(otelgin.Middleware("storefront-service"))
	router.Use(middleware.LoggerMiddleware(logger))
	router.Use(middleware.MetricsMiddleware())

	// Health check endpoint
	router.GET("/health", handlers.HealthCheck)

	// Metrics endpoint
	router.GET("/metrics", middleware.PrometheusHandler())

	// Storefront endpoints
	checkoutHandler := handlers.NewCheckoutHandler(builder, logger)
	router.POST("/checkout", checkoutHandler.CreateCheckout)

	couponHandler := handlers.NewCouponHandler(st, logger)
	router.POST("/coupons/validate", couponHandler.ValidateCoupon)

	var handlerCache handlers.ProductCache
	if productCache != nil {
		handlerCache = productCache
	}
	productHandler := handlers.NewProductHandler(st, handlerCache, logger)
	router.GET("/shops/:shop_id/products/:id", productHandler.GetProduct)

	// Gateway callback
	webhookHandler := handlers.NewWebhookHandler(reconciler, logger)
	router.POST("/webhooks/payments", webhookHandler.HandlePaymentWebhook)

	// Merchant endpoints
	orderHandler := handlers.NewOrderHandler(orderService, logger)
	router.GET("/orders/:id", orderHandler.GetOrder)
	router.PATCH("/orders/:id/status", orderHandler.UpdateOrderStatus)

	srv := &http.Server{
		Addr:    ":" + getEnv("PORT", "8080"),
		Handler: router,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	logger.Info("Storefront service started", zap.String("addr", srv.Addr))

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited")
}
