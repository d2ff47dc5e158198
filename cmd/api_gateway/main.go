package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/fundgate/ledger-core/internal/accounting"
	"github.com/fundgate/ledger-core/internal/api_gateway"
	"github.com/fundgate/ledger-core/internal/api_gateway/service"
	"github.com/fundgate/ledger-core/internal/config"
	"github.com/fundgate/ledger-core/internal/data/mongo"
	"github.com/fundgate/ledger-core/internal/data/postgres"
	"github.com/fundgate/ledger-core/internal/idempotency"
	"github.com/fundgate/ledger-core/internal/logger"
	"github.com/fundgate/ledger-core/internal/platform/persistence"
	"github.com/fundgate/ledger-core/internal/platform/transfer"
)

func main() {
	// Create base context with cancellation
	appCtx, cancelAppCtx := context.WithCancel(context.Background())
	defer cancelAppCtx()

	cfg, err := config.LoadConfig("api_gateway")
	if err != nil {
		// logger is not initialized yet, so we use fmt
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.NewLogger(cfg)

	// Postgres runs pending migrations on connect
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
	transactor := postgres.NewAccountTransactor(log, postgresDB)

	// Accounting core
	store := accounting.NewLedgerStore(log, ledgerRepo)
	escrow := accounting.NewEscrowManager(log, transactor, store)
	workflow := accounting.NewWorkflow(log, transactor, fundingRepo, store, escrow,
		transfer.NewExecutor(log, cfg.Transfer), accounting.OptionsFromConfig(cfg.Transfer))

	bulk, err := accounting.NewBulkApprover(log, workflow, cfg.WorkerPool.Size)
	if err != nil {
		log.Error("Failed to initialize bulk approval pool", "error", err)
		os.Exit(1)
	}

	guard := idempotency.NewGuard(log, idempotencyBackend(appCtx, log, cfg, mongoDB), cfg.Idempotency)

	server := api_gateway.NewServer(log, cfg,
		service.NewAccountService(store),
		service.NewFundingService(workflow, bulk),
		guard,
	)
	log.Info("REST server initialized")

	errChan := make(chan error, 1)
	go func() {
		log.Info("Starting HTTP server", "port", cfg.Server.Port)
		if err := server.Start(); err != nil {
			errChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	var serverErr error
	select {
	case <-quit:
		log.Info("Shutdown signal received")
	case err := <-errChan:
		log.Error("Server error occurred", "error", err)
		serverErr = err
	}

	cancelAppCtx()

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancelShutdown()

	log.Info("Starting graceful shutdown...")

	// Stop accepting requests before tearing down what they use
	if err = server.Stop(shutdownCtx); err != nil {
		log.Error("Error during server shutdown", "error", err)
	}

	bulk.Shutdown()
	postgresDB.Close()

	if err = mongoDB.Close(shutdownCtx); err != nil {
		log.Error("Error closing MongoDB connection", "error", err)
	}

	if serverErr != nil {
		log.Error("HTTP server shutdown with errors", "error", serverErr)
	}
	if err != nil {
		log.Error("Server shutdown completed with errors")
	} else {
		log.Info("Server shutdown completed successfully")
	}
}

// idempotencyBackend prefers the shared Mongo store and falls back to the
// in-process backend when configured or when the store cannot be prepared.
func idempotencyBackend(ctx context.Context, log *slog.Logger, cfg *config.Config, mongoDB *persistence.MongoDB) idempotency.Backend {
	if cfg.Idempotency.Backend == config.IdempotencyBackendMemory {
		return idempotency.NewMemoryBackend()
	}

	store := mongo.NewIdempotencyStore(log, mongoDB.Database(), cfg.Idempotency.Collection)
	if err := store.EnsureIndexes(ctx); err != nil {
		log.Error("Failed to prepare idempotency store, using in-process backend", "error", err)
		return idempotency.NewMemoryBackend()
	}
	return store
}
