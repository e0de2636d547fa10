package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	tradeUseCase "github.com/amirhossein-jamali/trading-ledger/internal/domain/usecase/trade"
	userUseCase "github.com/amirhossein-jamali/trading-ledger/internal/domain/usecase/user"

	"github.com/amirhossein-jamali/trading-ledger/internal/infrastructure/adapter/api"
	"github.com/amirhossein-jamali/trading-ledger/internal/infrastructure/adapter/database"
	"github.com/amirhossein-jamali/trading-ledger/internal/infrastructure/adapter/logger"
	"github.com/amirhossein-jamali/trading-ledger/internal/infrastructure/adapter/repository"
	"github.com/amirhossein-jamali/trading-ledger/internal/infrastructure/adapter/tcp"
	timeProvider "github.com/amirhossein-jamali/trading-ledger/internal/infrastructure/adapter/time"
	"github.com/amirhossein-jamali/trading-ledger/internal/infrastructure/config"

	"github.com/gin-gonic/gin"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Configuration validation failed: %v", err)
	}

	// Set Gin mode based on environment
	if cfg.Environment == config.Production {
		gin.SetMode(gin.ReleaseMode)
	}

	// Create logger
	appLogger := logger.NewZapLogger(cfg.Environment == config.Production)
	appLogger.SetLevel(logger.ParseLevel(cfg.Logger.Level))
	defer func() { _ = appLogger.Flush() }()

	// Initialize time provider
	tp := timeProvider.NewRealTimeProvider()

	// Setup database configuration
	dbConfig := &database.Config{
		Driver:          cfg.Database.Driver,
		Host:            cfg.Database.Host,
		Port:            cfg.Database.Port,
		Username:        cfg.Database.Username,
		Password:        cfg.Database.Password,
		Database:        cfg.Database.Database,
		SSLMode:         cfg.Database.SSLMode,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.Database.ConnMaxIdleTime,
		QueryTimeout:    cfg.Database.QueryTimeout,
		LogLevel:        cfg.Logger.Level,
		RetryAttempts:   cfg.Database.RetryAttempts,
		RetryDelay:      cfg.Database.RetryDelay,
	}

	// Connect to the database; the handle is shared for the process lifetime
	dbManager := database.NewManager(dbConfig, appLogger, tp)
	if _, err := dbManager.Connect(); err != nil {
		appLogger.Error("Failed to connect to database", map[string]any{
			"error": err.Error(),
		})
		os.Exit(1)
	}
	defer func() { _ = dbManager.Close() }()

	// Run migrations
	if err := dbManager.Migrate(); err != nil {
		appLogger.Error("Failed to run migrations", map[string]any{
			"error": err.Error(),
		})
		os.Exit(1)
	}

	// Initialize repositories and the unit of work
	userRepo := repository.NewUserRepository(dbManager.DB(), tp, appLogger)
	holdingRepo := repository.NewHoldingRepository(dbManager.DB(), tp, appLogger)
	uow := dbManager.CreateUnitOfWork()

	// Initialize use cases
	users := userUseCase.NewUserUseCase(userRepo, holdingRepo, uow, tp, appLogger)
	engine := tradeUseCase.NewEngine(uow, tp, appLogger).
		WithMaxRetries(cfg.Trade.MaxRetries)

	// Root context canceled by SIGINT/SIGTERM or a SHUTDOWN command
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	shutdownCtx, requestShutdown := context.WithCancel(ctx)
	defer requestShutdown()

	dispatcher := tcp.NewDispatcher(users, engine, appLogger)
	tcpServer := tcp.NewServer(tcp.Config{
		Host:         cfg.Server.Host,
		Port:         cfg.Server.Port,
		MaxLineBytes: cfg.Server.MaxLineBytes,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}, dispatcher, appLogger, requestShutdown)

	// Optional read-only admin API
	var adminServer *http.Server
	if cfg.Admin.Enabled {
		router := api.NewRouter(api.NewAdminHandler(users, appLogger), appLogger)
		adminServer = &http.Server{
			Addr:         fmt.Sprintf(":%d", cfg.Admin.Port),
			Handler:      router,
			ReadTimeout:  cfg.Admin.ReadTimeout,
			WriteTimeout: cfg.Admin.WriteTimeout,
		}

		go func() {
			appLogger.Info("Starting admin API", map[string]any{
				"port": cfg.Admin.Port,
			})
			if err := adminServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				appLogger.Error("Admin API failed", map[string]any{
					"error": err.Error(),
				})
			}
		}()
	}

	appLogger.Info("Starting trading ledger", map[string]any{
		"port": cfg.Server.Port,
		"env":  cfg.Environment,
	})

	// Serve blocks until shutdownCtx ends and all connections drain
	if err := tcpServer.Serve(shutdownCtx); err != nil {
		appLogger.Error("Server failed", map[string]any{
			"error": err.Error(),
		})
		os.Exit(1)
	}

	appLogger.Info("Shutting down...", nil)

	// Let in-flight trades finish before closing the database
	engine.Shutdown()

	if adminServer != nil {
		timeoutCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := adminServer.Shutdown(timeoutCtx); err != nil {
			appLogger.Error("Admin API forced to shutdown", map[string]any{
				"error": err.Error(),
			})
		}
	}

	appLogger.Info("Server exited gracefully", nil)
}
