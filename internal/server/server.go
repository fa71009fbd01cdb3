package server

import (
	"context"
	"net/http"
	"os"
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/wefund/wefund-api/internal/client/xaman"
	"github.com/wefund/wefund-api/internal/client/xrpl"
	"github.com/wefund/wefund-api/internal/config"
	"github.com/wefund/wefund-api/internal/db"
	"github.com/wefund/wefund-api/internal/handlers"
	"github.com/wefund/wefund-api/internal/logger"
	"github.com/wefund/wefund-api/internal/service"
)

// Handler Definitions
var (
	paymentHandler  *handlers.PaymentHandler
	donationHandler *handlers.DonationHandler
	walletHandler   *handlers.WalletHandler
	forwardHandler  *handlers.ForwardHandler
	reconciler      *service.ForwardReconciler

	// Database
	store *db.Store
)

// InitializeHandlers wires clients, services and handlers from configuration
func InitializeHandlers(ctx context.Context, cfg *config.Config) {
	var err error
	store, err = db.NewStore(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("Unable to connect to database", zap.Error(err))
	}

	gatewayClient := xaman.NewClient(cfg.XamanAPIBase, cfg.XamanAPIKey, cfg.XamanAPISecret)
	ledgerClient := xrpl.NewClient(cfg.XRPLAPIURL)

	wallets := service.WalletConfig{
		PlatformAddress: cfg.PlatformWalletAddress,
		PlatformSeed:    cfg.PlatformWalletSeed,
		CharityAddress:  cfg.CharityWalletAddress,
		ForwardFeeDrops: cfg.ForwardFeeDrops,
		ReserveDrops:    cfg.WalletReserveDrops,
	}

	paymentService := service.NewPaymentService(gatewayClient, service.PaymentConfig{
		BaseURL:               cfg.BaseURL,
		PlatformWalletAddress: cfg.PlatformWalletAddress,
		WaitInitial:           cfg.PayloadWaitInitial,
		WaitMax:               cfg.PayloadWaitMax,
		WaitTimeout:           cfg.PayloadWaitTimeout,
	})
	forwardService := service.NewForwardService(ledgerClient, wallets)
	settlementService := service.NewSettlementService(ledgerClient, store, forwardService, wallets, service.SettlementConfig{
		ForwardMaxAttempts: cfg.ForwardMaxAttempts,
	})
	reconciler = service.NewForwardReconciler(store, forwardService, service.ReconcilerConfig{
		Workers:  cfg.ReconcilerWorkers,
		Interval: cfg.ReconcilerInterval,
	})

	commonServices := handlers.NewCommonServices(
		paymentService,
		settlementService,
		reconciler,
		ledgerClient,
		wallets,
	)

	// API Handler initialization
	paymentHandler = handlers.NewPaymentHandler(commonServices)
	donationHandler = handlers.NewDonationHandler(commonServices)
	walletHandler = handlers.NewWalletHandler(commonServices)
	forwardHandler = handlers.NewForwardHandler(commonServices)
}

// InitializeRoutes registers all HTTP routes and starts the reconciler
func InitializeRoutes(ctx context.Context, router *gin.Engine) {
	// Configure and apply CORS middleware
	router.Use(configureCORS())

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
		})
	})

	// Prometheus metrics
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Start the background forward reconciler
	reconciler.Start(ctx)

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		// Payment requests
		payments := v1.Group("/payments")
		{
			payments.POST("", paymentHandler.CreatePayment)
			payments.POST("/fallback-qr", paymentHandler.CreateFallbackQR)
			payments.GET("/:payload_id", paymentHandler.GetPayment)
			payments.POST("/:payload_id/wait", paymentHandler.WaitForPayment)
		}

		// Donations
		donations := v1.Group("/donations")
		{
			donations.POST("/settle", donationHandler.SettleDonation)
			donations.POST("/submit", donationHandler.SubmitTransaction)
			donations.GET("/track/:reference", donationHandler.TrackDonation)
		}

		// Wallets
		wallets := v1.Group("/wallets")
		{
			wallets.GET("/balance", walletHandler.GetBalance)
			wallets.GET("/balances", walletHandler.GetBalances)
		}

		// Forward queue (operator endpoints)
		forwards := v1.Group("/forwards")
		{
			forwards.GET("/pending", forwardHandler.ListPendingForwards)
			forwards.POST("/:id/retry", forwardHandler.RetryForward)
		}

		// Gateway connectivity
		v1.GET("/gateway/ping", paymentHandler.PingGateway)
	}
}

// Shutdown stops background work and releases the database pool
func Shutdown() {
	if reconciler != nil {
		reconciler.Stop()
	}
	if store != nil {
		store.Close()
	}
}

// configureCORS returns a configured CORS middleware
func configureCORS() gin.HandlerFunc {
	corsConfig := cors.DefaultConfig()

	// Get allowed origins from environment variable
	originsEnv := os.Getenv("CORS_ALLOWED_ORIGINS")
	if originsEnv == "" {
		// Default to localhost if not set
		corsConfig.AllowOrigins = []string{"http://localhost:3000"}
	} else {
		// Split and trim the origins
		origins := strings.Split(originsEnv, ",")
		for i, origin := range origins {
			origins[i] = strings.TrimSpace(origin)
		}
		corsConfig.AllowOrigins = origins
	}

	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization", "X-API-Key"}
	corsConfig.AllowCredentials = os.Getenv("CORS_ALLOW_CREDENTIALS") == "true"

	return cors.New(corsConfig)
}
