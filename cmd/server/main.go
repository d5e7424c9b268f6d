package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alcyxob/planmarket/internal/api"
	"github.com/alcyxob/planmarket/internal/config"
	"github.com/alcyxob/planmarket/internal/logger"
	"github.com/alcyxob/planmarket/internal/payment"
	"github.com/alcyxob/planmarket/internal/repository/mongo"
	redisrepo "github.com/alcyxob/planmarket/internal/repository/redis"
	"github.com/alcyxob/planmarket/internal/service"
	"github.com/alcyxob/planmarket/internal/storage"

	"github.com/gin-gonic/gin"
)

// @title Plan Marketplace API
// @version 1.0
// @description Sells structured training plans, tracks workout progress and aggregates reviews.
// @contact.name API Support
// @contact.email support@example.com
// @host localhost:8080
// @BasePath /api/v1
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.
func main() {
	// --- Configuration ---
	cfg, err := config.LoadConfig(".")
	if err != nil {
		log.Fatalf("FATAL: Could not load config: %v", err)
	}

	appLog, err := logger.New(cfg.Log.Mode)
	if err != nil {
		log.Fatalf("FATAL: Could not build logger: %v", err)
	}
	defer appLog.Sync()
	appLog.Info("Starting plan marketplace server", "address", cfg.Server.Address)

	// --- Database Connection ---
	dbClient, err := mongo.ConnectDB(cfg.Database.URI)
	if err != nil {
		appLog.Fatal("Could not connect to MongoDB", "error", err)
	}
	defer func() {
		appLog.Info("Disconnecting MongoDB")
		if err := mongo.DisconnectDB(dbClient); err != nil {
			appLog.Error("Failed to disconnect MongoDB", "error", err)
		}
	}()
	appDB := dbClient.Database(cfg.Database.Name)

	// Idempotency depends on the unique indexes, so they must exist before
	// the first webhook is accepted.
	indexCtx, cancelIndex := context.WithTimeout(context.Background(), time.Minute)
	err = mongo.EnsureIndexes(indexCtx, appDB)
	cancelIndex()
	if err != nil {
		appLog.Fatal("Could not ensure indexes", "error", err)
	}

	// --- Initialize Repositories ---
	userRepo := mongo.NewMongoUserRepository(appDB)
	planRepo := mongo.NewMongoPlanRepository(appDB)
	purchaseRepo := mongo.NewMongoPurchaseRepository(appDB)
	completionRepo := mongo.NewMongoCompletionRepository(appDB)
	reviewRepo := mongo.NewMongoReviewRepository(appDB)
	txRunner := mongo.NewTxRunner(dbClient, cfg.Database.TxTimeout)
	readiness := map[string]api.Pinger{"mongo": txRunner}

	// --- Optional Redis event guard ---
	var guard service.EventGuard
	if cfg.Redis.URL != "" {
		redisCtx, cancelRedis := context.WithTimeout(context.Background(), 5*time.Second)
		redisClient, err := redisrepo.Connect(redisCtx, cfg.Redis.URL)
		cancelRedis()
		if err != nil {
			appLog.Fatal("Could not connect to Redis", "error", err)
		}
		defer redisClient.Close()
		eventGuard, err := redisrepo.NewEventGuard(redisClient, cfg.Redis.EventTTL, "paddle")
		if err != nil {
			appLog.Fatal("Could not build event guard", "error", err)
		}
		guard = eventGuard
		readiness["redis"] = eventGuard
	} else {
		appLog.Info("Redis not configured, webhook de-duplication relies on MongoDB only")
	}

	// --- Optional content archive ---
	var archive service.ContentArchiver
	if cfg.S3.BucketName != "" {
		fileStorage, err := storage.NewS3Storage(context.Background(), cfg.S3, appLog)
		if err != nil {
			appLog.Fatal("Failed to initialize S3 storage", "error", err)
		}
		archive = storage.NewContentArchive(fileStorage)
	} else {
		appLog.Info("S3 not configured, content versions are not archived")
	}

	// --- Payment processor ---
	processor, err := payment.NewPaddleProcessor(payment.PaddleConfig{
		APIKey:          cfg.Paddle.APIKey,
		WebhookSecret:   cfg.Paddle.WebhookSecret,
		Environment:     cfg.Paddle.Environment,
		CheckoutTimeout: cfg.Paddle.CheckoutTimeout,
	})
	if err != nil {
		appLog.Fatal("Failed to initialize Paddle", "error", err)
	}

	// --- Initialize Services ---
	entitlements := service.NewEntitlementService(purchaseRepo, appLog.With("component", "entitlements"))
	services := api.Services{
		Checkout: service.NewCheckoutService(planRepo, entitlements, processor, appLog.With("component", "checkout")),
		Events:   service.NewPaymentEventService(processor, planRepo, entitlements, guard, appLog.With("component", "payment_events")),
		Plans:    service.NewPlanService(planRepo, userRepo, entitlements, archive, appLog.With("component", "plans")),
		Progress: service.NewProgressService(planRepo, completionRepo, entitlements, appLog.With("component", "progress")),
		Reviews:  service.NewReviewService(txRunner, reviewRepo, planRepo, userRepo, purchaseRepo, appLog.With("component", "reviews")),

		Readiness: readiness,
	}

	// --- Initialize Gin Engine ---
	gin.SetMode(cfg.Server.Mode)
	router := gin.Default()

	err = api.SetupRoutes(router, api.AuthConfig{
		JWTSecret: cfg.JWT.Secret,
		MaxAge:    cfg.JWT.Expiration,
	}, services, appLog)
	if err != nil {
		appLog.Fatal("Failed to set up routes", "error", err)
	}

	// --- Start HTTP Server ---
	server := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLog.Fatal("ListenAndServe error", "error", err)
		}
	}()

	// --- Graceful Shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	appLog.Info("Shutting down server")

	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()

	if err := server.Shutdown(ctxShutdown); err != nil {
		appLog.Error("Server forced to shutdown", "error", err)
	}

	appLog.Info("Server exiting")
}
