package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"

	"github.com/gin-gonic/gin"

	"github.com/brokersim/brokerage-api/internal/auth"
	"github.com/brokersim/brokerage-api/internal/config"
	"github.com/brokersim/brokerage-api/internal/database"
	"github.com/brokersim/brokerage-api/internal/engine"
	"github.com/brokersim/brokerage-api/internal/instruments"
	"github.com/brokersim/brokerage-api/internal/notifications"
	"github.com/brokersim/brokerage-api/internal/pricing"
	"github.com/brokersim/brokerage-api/internal/users"
	"github.com/brokersim/brokerage-api/internal/wallet"
	"github.com/brokersim/brokerage-api/pkg/locks"
	"github.com/brokersim/brokerage-api/pkg/middleware"
)

// init configures the application logging based on environment settings
// In development mode, it enables pretty printing with timestamps
// Debug logging can be enabled via DEBUG environment variable
func init() {
	// Configure pretty logging for development
	if os.Getenv("ENV") != "production" {
		output := zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.RFC3339,
		}
		zlog.Logger = zerolog.New(output).With().Timestamp().Logger()
	}

	// Set global log level
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if os.Getenv("DEBUG") == "true" {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
}

// main initializes and runs the brokerage API server with graceful shutdown
// support. The engine is constructed once at process start with its
// collaborators injected, and shared across request-scoped calls.
func main() {
	cfg, err := config.Load()
	if err != nil {
		zlog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Initialize database
	db, err := database.NewDatabase(cfg.DatabasePath)
	if err != nil {
		zlog.Fatal().Err(err).Msg("Failed to initialize database")
	}

	// Initialize router
	router := gin.Default()

	// Market data: simulated source behind a TTL price cache
	source := pricing.NewSimulatedSource(time.Now().UnixNano())
	oracle, err := pricing.NewCachedOracle(source, cfg.PriceCacheTTL)
	if err != nil {
		zlog.Fatal().Err(err).Msg("Failed to initialize price cache")
	}

	// Initialize services and handlers
	lockManager := locks.NewManager()
	resolver := instruments.NewResolver(db, source)
	notifier := notifications.NewService(db)

	authService := auth.NewService(cfg.JWTSecret, db)
	authHandlers := auth.NewGinHandlers(authService)

	usersService := users.NewService(db, cfg)
	usersHandlers := users.NewGinHandlers(usersService)

	engineService := engine.NewService(db, oracle, resolver, notifier, lockManager, cfg)
	engineHandlers := engine.NewGinHandlers(engineService)

	walletService := wallet.NewService(db, notifier, lockManager, cfg)
	walletHandlers := wallet.NewGinHandlers(walletService)

	// Setup middleware
	router.Use(middleware.RateLimit())

	// Setup API routes
	setupRoutes(router, cfg, authHandlers, usersHandlers, engineHandlers, walletHandlers)

	// Create server
	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	// Graceful shutdown setup
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zlog.Fatal().Err(err).Msg("listen")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	zlog.Info().Msg("Shutting down server...")

	// Give outstanding operations 5 seconds to complete
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zlog.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	zlog.Info().Msg("Server exiting")
}

// setupRoutes configures all API endpoints and their handlers
// It groups routes by functionality and applies appropriate middleware:
// - Auth routes: Public endpoints for registration and authentication
// - Order/wallet/portfolio routes: Protected by JWT authentication
// - Internal routes: Protected by internal network authentication
func setupRoutes(
	router *gin.Engine,
	cfg config.Config,
	authHandlers *auth.GinHandlers,
	usersHandlers *users.GinHandlers,
	engineHandlers *engine.GinHandlers,
	walletHandlers *wallet.GinHandlers,
) {
	v1 := router.Group("/api/v1")
	{
		// Auth routes
		authGroup := v1.Group("/auth")
		{
			authGroup.POST("/register", usersHandlers.RegisterHandler())
			authGroup.POST("/token", authHandlers.GenerateTokenHandler())
		}

		// Order routes
		orders := v1.Group("/orders")
		orders.Use(middleware.JWTAuth(cfg.JWTSecret))
		{
			orders.POST("/buy", engineHandlers.BuyOrderHandler())
			orders.POST("/sell", engineHandlers.SellOrderHandler())
			orders.GET("", engineHandlers.ListOrdersHandler())
			orders.GET("/:order_id", engineHandlers.GetOrderHandler())
		}

		// Portfolio routes
		portfolio := v1.Group("/portfolio")
		portfolio.Use(middleware.JWTAuth(cfg.JWTSecret))
		{
			portfolio.GET("", engineHandlers.PortfolioHandler())
		}

		// Wallet routes
		walletGroup := v1.Group("/wallet")
		walletGroup.Use(middleware.JWTAuth(cfg.JWTSecret))
		{
			walletGroup.GET("", walletHandlers.GetWalletHandler())
			walletGroup.POST("/deposit", walletHandlers.DepositHandler())
			walletGroup.POST("/withdraw", walletHandlers.WithdrawHandler())
			walletGroup.GET("/transactions", walletHandlers.GetTransactionsHandler())
		}

		// Internal routes (should be protected by internal network)
		internal := v1.Group("/internal")
		internal.Use(middleware.InternalAuth(cfg.JWTSecret))
		{
			internal.POST("/dividends/:symbol", engineHandlers.DistributeDividendHandler())
		}
	}
}
