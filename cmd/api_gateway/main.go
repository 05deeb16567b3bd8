package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/stayhub-wallet-ledger/internal/api_gateway"
	"github.com/stayhub-wallet-ledger/internal/api_gateway/service"
	"github.com/stayhub-wallet-ledger/internal/config"
	"github.com/stayhub-wallet-ledger/internal/data/mongo"
	"github.com/stayhub-wallet-ledger/internal/data/postgres"
	"github.com/stayhub-wallet-ledger/internal/data/redis"
	"github.com/stayhub-wallet-ledger/internal/domain/user"
	"github.com/stayhub-wallet-ledger/internal/ledger_service/components"
	"github.com/stayhub-wallet-ledger/internal/logger"
	"github.com/stayhub-wallet-ledger/internal/metrics"
	"github.com/stayhub-wallet-ledger/internal/platform/auth"
	"github.com/stayhub-wallet-ledger/internal/platform/messaging/producers"
	"github.com/stayhub-wallet-ledger/internal/platform/payment"
	"github.com/stayhub-wallet-ledger/internal/platform/persistence"
)

func main() {
	// Create base context with cancellation
	appCtx, cancelAppCtx := context.WithCancel(context.Background())
	defer cancelAppCtx()

	// Initialize configuration
	cfg, err := config.LoadConfig("api_gateway")
	if err != nil {
		// logger is not initialized yet, so we use fmt
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.NewLogger(cfg)

	// Initialize databases with app context
	postgresDB, err := persistence.NewPostgresDB(appCtx, log, &cfg.Postgres)
	if err != nil {
		log.Error("Failed to initialize PostgreSQL", "error", err)
		os.Exit(1)
	}

	mongoDB, err := persistence.NewMongoDB(appCtx, log, &cfg.MongoDB)
	if err != nil {
		log.Error("Failed to initialize MongoDB", "error", err)
		os.Exit(1)
	}

	redisClient, err := persistence.NewRedisClient(appCtx, log, &cfg.Redis)
	if err != nil {
		log.Error("Failed to initialize Redis", "error", err)
		os.Exit(1)
	}

	// Verified provider webhooks are queued for the processor
	captureProducer, err := producers.NewTopicProducer(appCtx, log, &cfg.Kafka, cfg.Kafka.CaptureTopic)
	if err != nil {
		log.Error("Failed to initialize capture notification Kafka producer", "error", err)
		os.Exit(1)
	}

	m := metrics.New()

	// Initialize repositories
	roles := user.NewCachedRoleLookup(
		postgres.NewUserRoleRepository(log, postgresDB),
		redis.NewRoleCache(redisClient, cfg.Redis.RoleTTL),
		log.With("component", "role_lookup"),
	)

	ledgerServices := components.CreateLedgerServices(
		postgresDB,
		components.Repositories{
			Wallets:         postgres.NewWalletRepository(log, postgresDB),
			Transactions:    postgres.NewTransactionRepository(log, postgresDB),
			History:         mongo.NewHistoryRepository(log, mongoDB.Database()),
			Outbox:          postgres.NewOutboxRepository(log, postgresDB),
			Reconciliations: mongo.NewReconciliationRepository(log, mongoDB.Database()),
			Roles:           roles,
			Cache:           redis.NewBalanceCache(log, redisClient, cfg.Redis.BalanceTTL),
		},
		m,
		log,
		cfg,
	)

	// Initialize services
	gateways := payment.NewRegistryFromConfig(log, &cfg.Payment)
	topUpService := service.NewTopUpService(log, gateways, ledgerServices.Ledger, ledgerServices.Reconciler, cfg.Ledger.Currency, m)
	notificationService := service.NewNotificationService(log, gateways, captureProducer)

	// Initialize REST server
	server := api_gateway.NewServer(log, cfg, api_gateway.Dependencies{
		Ledger:        ledgerServices.Ledger,
		Approvals:     ledgerServices.Approval,
		Reconciler:    ledgerServices.Reconciler,
		TopUps:        topUpService,
		Notifications: notificationService,
		Tokens:        auth.NewTokenManager(&cfg.Auth),
		Roles:         roles,
		Metrics:       m,
	})
	log.Info("REST server initialized")

	// Create error channel for server errors
	errChan := make(chan error, 1)

	// Start server in goroutine
	go func() {
		log.Info("Starting HTTP server", "port", cfg.Server.Port)
		if err := server.Start(); err != nil {
			errChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	// Set up signal handling
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	// Wait for a shutdown signal or error
	var serverErr error
	select {
	case <-quit:
		log.Info("Shutdown signal received")
	case err := <-errChan:
		log.Error("Server error occurred", "error", err)
		serverErr = err
	}

	// Cancel the application context
	cancelAppCtx()

	// Create a shutdown context with timeout
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancelShutdown()

	// Graceful shutdown sequence
	log.Info("Starting graceful shutdown...")

	// Drain HTTP requests before closing the stores they use
	if err = server.Stop(shutdownCtx); err != nil {
		log.Error("Error during server shutdown", "error", err)
	}

	if err = captureProducer.Close(); err != nil {
		log.Error("Error closing Kafka producer", "error", err)
	}

	postgresDB.Close()

	if err = mongoDB.Close(shutdownCtx); err != nil {
		log.Error("Error closing MongoDB connection", "error", err)
	}

	if err = redisClient.Close(); err != nil {
		log.Error("Error closing Redis connection", "error", err)
	}

	// Final status
	if serverErr != nil {
		log.Error("HTTP server shutdown with errors", "error", serverErr)
	}
	if err != nil {
		log.Error("Server shutdown completed with errors")
	} else {
		log.Info("Server shutdown completed successfully")
	}
}
