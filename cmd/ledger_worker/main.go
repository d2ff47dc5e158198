package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/fundgate/ledger-core/internal/accounting"
	"github.com/fundgate/ledger-core/internal/config"
	"github.com/fundgate/ledger-core/internal/data/mongo"
	"github.com/fundgate/ledger-core/internal/data/postgres"
	"github.com/fundgate/ledger-core/internal/ledger_worker/consumer"
	"github.com/fundgate/ledger-core/internal/ledger_worker/outbox_poller"
	"github.com/fundgate/ledger-core/internal/ledger_worker/service"
	"github.com/fundgate/ledger-core/internal/logger"
	"github.com/fundgate/ledger-core/internal/platform/messaging/consumers"
	"github.com/fundgate/ledger-core/internal/platform/messaging/producers"
	"github.com/fundgate/ledger-core/internal/platform/persistence"
	"github.com/fundgate/ledger-core/internal/platform/transfer"
)

func main() {
	// Create base context with cancellation
	appCtx, cancelAppCtx := context.WithCancel(context.Background())
	defer cancelAppCtx()

	cfg, err := config.LoadConfig("ledger_worker")
	if err != nil {
		// logger is not initialized yet, so we use fmt
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.NewLogger(cfg)

	log.Info("Starting Ledger Worker",
		"app_name", cfg.Application.Name,
		"env", cfg.Application.Env,
	)

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

	// Repositories
	ledgerRepo := postgres.NewLedgerRepository(log, postgresDB)
	fundingRepo := postgres.NewFundingRepository(log, postgresDB)
	outboxRepo := postgres.NewOutboxRepository(log, postgresDB)
	transactor := postgres.NewAccountTransactor(log, postgresDB)
	auditRepo := mongo.NewAuditRepository(log, mongoDB.Database(), cfg.MongoDB.AuditCollection)
	if err := auditRepo.EnsureIndexes(appCtx); err != nil {
		log.Error("Failed to ensure audit indexes", "error", err)
		os.Exit(1)
	}

	// Accounting core. The worker only submits, so it never reaches the transfer gateway.
	store := accounting.NewLedgerStore(log, ledgerRepo)
	escrow := accounting.NewEscrowManager(log, transactor, store)
	workflow := accounting.NewWorkflow(log, transactor, fundingRepo, store, escrow,
		transfer.Disabled{}, accounting.OptionsFromConfig(cfg.Transfer))

	// Kafka
	kafkaConsumer := consumers.NewKafkaConsumer(appCtx, log, &cfg.Kafka)

	dlqProducer, err := producers.NewDLQProducer(appCtx, log, &cfg.Kafka)
	if err != nil {
		log.Error("Failed to initialize DLQ Kafka producer", "error", err)
		os.Exit(1)
	}

	notifier, err := producers.NewFundingEventProducer(appCtx, log, &cfg.Kafka)
	if err != nil {
		log.Error("Failed to initialize funding event producer", "error", err)
		os.Exit(1)
	}

	submissionService, err := service.NewWorkerPoolSubmissionService(
		service.NewSubmissionService(workflow, log),
		cfg.WorkerPool,
		log,
	)
	if err != nil {
		log.Error("Failed to initialize submission worker pool", "error", err)
		os.Exit(1)
	}

	submissionHandler := consumer.NewSubmissionHandler(log, submissionService, dlqProducer)

	publisher := outbox_poller.NewEventPublisher(outboxRepo, auditRepo, notifier, log)
	poller := outbox_poller.NewPoller(&cfg.Outbox, outboxRepo, publisher, log)

	errChan := make(chan error, 2)
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		log.Info("Starting Kafka consumer",
			"topic", cfg.Kafka.SubmissionTopic,
			"group", cfg.Kafka.ConsumerGroup,
		)
		if err := kafkaConsumer.Subscribe(appCtx, submissionHandler.HandleMessage); err != nil {
			errChan <- fmt.Errorf("kafka consumer error: %w", err)
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		poller.Start(appCtx)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	var serviceErr error
	select {
	case <-quit:
		log.Info("Shutdown signal received")
	case err := <-errChan:
		log.Error("Service error occurred", "error", err)
		serviceErr = err
	}

	cancelAppCtx()
	submissionService.Shutdown()

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelShutdown()

	log.Info("Starting graceful shutdown...")

	wgChan := make(chan struct{})
	go func() {
		wg.Wait()
		close(wgChan)
	}()

	select {
	case <-wgChan:
		log.Info("All services stopped successfully")
	case <-shutdownCtx.Done():
		log.Warn("Shutdown timeout reached, forcing exit")
	}

	if err = dlqProducer.Close(); err != nil {
		log.Error("Error closing DLQ Kafka producer", "error", err)
	}
	if err = notifier.Close(); err != nil {
		log.Error("Error closing funding event producer", "error", err)
	}
	if err = kafkaConsumer.Close(); err != nil {
		log.Error("Error closing Kafka consumer", "error", err)
	}

	postgresDB.Close()

	if err = mongoDB.Close(shutdownCtx); err != nil {
		log.Error("Error closing MongoDB connection", "error", err)
	}

	if serviceErr != nil {
		log.Error("Ledger Worker shutdown with errors", "error", serviceErr)
	}
	if err != nil {
		log.Error("Ledger Worker shutdown completed with errors")
	} else {
		log.Info("Ledger Worker shutdown completed successfully")
	}
}
