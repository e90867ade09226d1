package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/stayhub/service-rental/internal/adapter"
	"github.com/stayhub/service-rental/internal/application"
	"github.com/stayhub/service-rental/internal/common/auth"
	"github.com/stayhub/service-rental/internal/common/database"
	"github.com/stayhub/service-rental/internal/common/health"
	"github.com/stayhub/service-rental/internal/common/kafka"
	"github.com/stayhub/service-rental/internal/common/logger"
	"github.com/stayhub/service-rental/internal/common/middleware"
	"github.com/stayhub/service-rental/internal/config"
	"github.com/stayhub/service-rental/internal/events"
	"github.com/stayhub/service-rental/internal/handler"
	"github.com/stayhub/service-rental/internal/repository"
)

const serviceName = "service-rental"

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	// Initialize logger
	zapLogger, err := logger.NewNamed(cfg.AppEnv, serviceName)
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer zapLogger.Sync()

	zapLogger.Info("starting "+serviceName,
		zap.String("port", cfg.Port),
		zap.String("env", cfg.AppEnv),
	)

	// Connect to database
	db, err := database.Connect(cfg.DBConfig, zapLogger)
	if err != nil {
		zapLogger.Fatal("failed to connect to database", zap.Error(err))
	}

	if cfg.AutoMigrate {
		if err := db.AutoMigrate(repository.Models()...); err != nil {
			zapLogger.Fatal("failed to auto-migrate", zap.Error(err))
		}
		zapLogger.Info("database migration completed")
	}

	jwtManager := auth.NewJWTManager(cfg.JWTConfig.Secret, cfg.JWTConfig.TTL)

	// Booking events go to Kafka when brokers are configured
	var publisher events.Publisher
	if len(cfg.KafkaConfig.Brokers) > 0 {
		kafkaProducer := kafka.NewProducer(cfg.KafkaConfig.Brokers, zapLogger)
		defer kafkaProducer.Close()
		publisher = events.NewKafkaPublisher(kafkaProducer, cfg.KafkaConfig.Topic, zapLogger)
	} else {
		zapLogger.Warn("no kafka brokers configured, booking events are only logged")
		publisher = events.NewNopPublisher(zapLogger)
	}

	// Live Stripe when a key is present, the mock otherwise
	var gateway adapter.PaymentGateway
	if cfg.Stripe.SecretKey != "" {
		gateway = adapter.NewStripeGateway(cfg.Stripe.SecretKey, cfg.Stripe.WebhookSecret, zapLogger)
	} else {
		zapLogger.Warn("STRIPE_SECRET_KEY not set, using mock payment gateway")
		gateway = adapter.NewMockStripeAdapter(cfg.Stripe.WebhookSecret, zapLogger)
	}

	// Initialize repositories
	bookingRepo := repository.NewBookingRepository(db)
	propertyRepo := repository.NewGormPropertyRepository(db)
	userRepo := repository.NewGormUserRepository(db)
	favoriteRepo := repository.NewGormFavoriteRepository(db)

	// Initialize application services
	bookingService := application.NewBookingService(
		bookingRepo,
		propertyRepo,
		userRepo,
		gateway,
		publisher,
		application.BookingOptions{
			Currency:       cfg.Stripe.Currency,
			GatewayTimeout: cfg.Stripe.Timeout,
		},
		zapLogger,
	)
	webhookService := application.NewWebhookService(bookingRepo, gateway, publisher, zapLogger)
	propertyService := application.NewPropertyService(
		propertyRepo,
		favoriteRepo,
		application.CacheOptions{TTL: cfg.Cache.TTL, MaxSize: cfg.Cache.MaxSize},
		zapLogger,
	)
	defer propertyService.Stop()
	userService := application.NewUserService(userRepo, bookingRepo, favoriteRepo, jwtManager, zapLogger)
	favoriteService := application.NewFavoriteService(favoriteRepo, propertyRepo, zapLogger)

	// Setup Gin router
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	// Apply global middleware
	router.Use(middleware.RecoveryMiddleware(zapLogger))
	router.Use(middleware.LoggerMiddleware(zapLogger))
	router.Use(middleware.CORSMiddleware())
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.SecurityHeadersMiddleware())

	// Register health check routes
	healthHandler := health.NewHandler(db, serviceName)
	healthHandler.RegisterRoutes(router)

	// The webhook sits outside /api/v1 and carries no bearer token
	handler.NewWebhookHandler(webhookService).RegisterRoutes(router)

	apiV1 := router.Group("/api/v1")
	handler.NewUserHandler(userService).RegisterRoutes(apiV1, jwtManager)
	handler.NewPropertyHandler(propertyService).RegisterRoutes(apiV1, jwtManager)
	handler.NewBookingHandler(bookingService).RegisterRoutes(apiV1, jwtManager)
	handler.NewFavoriteHandler(favoriteService).RegisterRoutes(apiV1, jwtManager)

	// Create HTTP server
	srv := &http.Server{
		Addr:         cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		zapLogger.Info("HTTP server starting", zap.String("addr", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLogger.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zapLogger.Info("shutting down " + serviceName + "...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		zapLogger.Error("server forced to shutdown", zap.Error(err))
	}

	zapLogger.Info(serviceName + " stopped")
}
