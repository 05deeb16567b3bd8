package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/stayhub-wallet-ledger/internal/config"
	"github.com/stayhub-wallet-ledger/internal/data/mongo"
	"github.com/stayhub-wallet-ledger/internal/data/postgres"
	"github.com/stayhub-wallet-ledger/internal/data/redis"
	"github.com/stayhub-wallet-ledger/internal/domain/user"
	ledgercomponents "github.com/stayhub-wallet-ledger/internal/ledger_service/components"
	"github.com/stayhub-wallet-ledger/internal/logger"
	"github.com/stayhub-wallet-ledger/internal/metrics"
	"github.com/stayhub-wallet-ledger/internal/platform/messaging/consumers"
	"github.com/stayhub-wallet-ledger/internal/platform/messaging/producers"
	"github.com/stayhub-wallet-ledger/internal/platform/persistence"
	"github.com/stayhub-wallet-ledger/internal/transaction_processor/components"
	"github.com/stayhub-wallet-ledger/internal/transaction_processor/consumer"
	"github.com/stayhub-wallet-ledger/internal/transaction_processor/outbox_poller"
)

func main() {
	// Create base context with cancellation
	appCtx, cancelAppCtx := context.WithCancel(context.Background())
	defer cancelAppCtx()

	// Initialize configuration
	cfg, err := config.LoadConfig("transaction_processor")
	if err != nil {
		// logger is not initialized yet, so we use fmt
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.NewLogger(cfg)

	log.Info("Starting Transaction Processor",
		"app_name", cfg.Application.Name,
		"env", cfg.Application.Env,
	)

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

	// Initialize repositories
	outboxRepo := postgres.NewOutboxRepository(log, postgresDB)
	historyRepo := mongo.NewHistoryRepository(log, mongoDB.Database())
	if err := historyRepo.EnsureIndexes(appCtx); err != nil {
		log.Error("Failed to create history indexes", "error", err)
		os.Exit(1)
	}

	// Initialize Kafka consumer for gateway capture notifications
	kafkaConsumer := consumers.NewKafkaConsumer(appCtx, log, &cfg.Kafka, cfg.Kafka.CaptureTopic)

	// Initialize Kafka DLQ producer
	dlqProducer, err := producers.NewDLQProducer(appCtx, log, &cfg.Kafka)
	if err != nil {
		log.Error("Failed to initialize DLQ Kafka producer", "error", err)
		os.Exit(1)
	}
	// dlqProducer is nil when DLQTopic is not configured; PublishToDLQ reports ErrDLQDisabled.

	eventsProducer, err := producers.NewTopicProducer(appCtx, log, &cfg.Kafka, cfg.Kafka.EventsTopic)
	if err != nil {
		log.Error("Failed to initialize wallet events Kafka producer", "error", err)
		os.Exit(1)
	}

	m := metrics.New()

	ledgerServices := ledgercomponents.CreateLedgerServices(
		postgresDB,
		ledgercomponents.Repositories{
			Wallets:         postgres.NewWalletRepository(log, postgresDB),
			Transactions:    postgres.NewTransactionRepository(log, postgresDB),
			History:         historyRepo,
			Outbox:          outboxRepo,
			Reconciliations: mongo.NewReconciliationRepository(log, mongoDB.Database()),
			Roles: user.NewCachedRoleLookup(
				postgres.NewUserRoleRepository(log, postgresDB),
				redis.NewRoleCache(redisClient, cfg.Redis.RoleTTL),
				log.With("component", "role_lookup"),
			),
			Cache: redis.NewBalanceCache(log, redisClient, cfg.Redis.BalanceTTL),
		},
		m,
		log,
		cfg,
	)

	// Initialize capture processor behind the worker pool
	processor := components.CreateCaptureProcessor(
		ledgerServices.Ledger,
		ledgerServices.Reconciler,
		m,
		log,
		cfg,
	)

	// Initialize capture event handler
	captureEventHandler := consumer.NewCaptureEventHandler(
		log,
		processor,
		dlqProducer,
		m,
	)

	// Initialize outbox poller
	eventPublisher := outbox_poller.NewEventPublisher(
		outboxRepo,
		historyRepo,
		eventsProducer,
		m,
		log,
	)
	poller := outbox_poller.NewPoller(
		&cfg.Outbox,
		outboxRepo,
		eventPublisher,
		log,
	)

	// Create error channel for service errors
	errChan := make(chan error, 2)

	// Create wait group for graceful shutdown
	var wg sync.WaitGroup

	log.Info("Starting Kafka consumer",
		"topic", cfg.Kafka.CaptureTopic,
		"group", cfg.Kafka.ConsumerGroup,
	)
	if err := kafkaConsumer.Subscribe(appCtx, captureEventHandler.HandleMessage); err != nil {
		errChan <- fmt.Errorf("kafka consumer error: %w", err)
	}

	// Start outbox poller in a goroutine
	wg.Add(1)
	go func() {
		defer wg.Done()
		log.Info("Starting Outbox Poller",
			"interval", cfg.Outbox.PollingInterval.String(),
			"batch_size", cfg.Outbox.BatchSize,
		)
		poller.Start(appCtx)
	}()

	opsServer := components.NewOpsServer(cfg, m)
	if opsServer != nil {
		go func() {
			log.Info("Starting ops server", "addr", opsServer.Addr, "metrics_path", cfg.Metrics.Path)
			if err := opsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errChan <- fmt.Errorf("ops server error: %w", err)
			}
		}()
	}

	// Set up signal handling
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	// Wait for a shutdown signal or error
	var serviceErr error
	select {
	case <-quit:
		log.Info("Shutdown signal received")
	case err := <-errChan:
		log.Error("Service error occurred", "error", err)
		serviceErr = err
	}

	// Cancel the application context
	cancelAppCtx()

	// Create a shutdown context with timeout
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelShutdown()

	// Graceful shutdown sequence
	log.Info("Starting graceful shutdown...")

	// Wait for all goroutines to finish
	log.Info("Waiting for services to stop...")
	wgChan := make(chan struct{})
	go func() {
		wg.Wait()
		<-kafkaConsumer.Done()
		close(wgChan)
	}()

	select {
	case <-wgChan:
		log.Info("All services stopped successfully")
	case <-shutdownCtx.Done():
		log.Warn("Shutdown timeout reached, forcing exit")
	}

	if opsServer != nil {
		if err = opsServer.Shutdown(shutdownCtx); err != nil {
			log.Error("Error shutting down ops server", "error", err)
		}
	}

	// The consumer has stopped handing out work, so pending captures can drain
	processor.Shutdown()

	if dlqProducer != nil {
		if err = dlqProducer.Close(); err != nil {
			log.Error("Error closing DLQ Kafka producer", "error", err)
		}
	}

	if err = eventsProducer.Close(); err != nil {
		log.Error("Error closing wallet events Kafka producer", "error", err)
	}

	// Close Kafka consumer
	if err = kafkaConsumer.Close(); err != nil {
		log.Error("Error closing Kafka consumer", "error", err)
	}

	// Shutdown postgres connection pool
	postgresDB.Close()

	// Close MongoDB connection
	if err = mongoDB.Close(shutdownCtx); err != nil {
		log.Error("Error closing MongoDB connection", "error", err)
	}

	if err = redisClient.Close(); err != nil {
		log.Error("Error closing Redis connection", "error", err)
	}

	// Final status
	if serviceErr != nil {
		log.Error("Transaction Processor shutdown with errors", "error", serviceErr)
	}
	if err != nil {
		log.Error("Transaction Processor shutdown completed with errors")
	} else {
		log.Info("Transaction Processor shutdown completed successfully")
	}
}
