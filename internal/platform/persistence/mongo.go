package persistence

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/fundgate/ledger-core/internal/config"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.mongodb.org/mongo-driver/mongo/writeconcern"
)

// MongoDB holds the audit trail and the shared idempotency records
type MongoDB struct {
	logger   *slog.Logger
	client   *mongo.Client
	database *mongo.Database
}

// NewMongoDB connects and pings the primary. Writes wait for a majority so an
// acknowledged idempotency record survives a primary failover.
func NewMongoDB(ctx context.Context, logger *slog.Logger, cfg *config.MongoDBConfig) (*MongoDB, error) {
	clientOptions, err := clientOptions(cfg)
	if err != nil {
		return nil, err
	}

	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.WithoutCancel(ctx))
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	logger.Info("Connected to MongoDB", "database", cfg.Database)
	return &MongoDB{
		logger:   logger,
		client:   client,
		database: client.Database(cfg.Database),
	}, nil
}

func clientOptions(cfg *config.MongoDBConfig) (*options.ClientOptions, error) {
	if cfg.URI == "" {
		return nil, errors.New("mongodb URI cannot be empty")
	}
	if cfg.Database == "" {
		return nil, errors.New("mongodb database cannot be empty")
	}
	if cfg.MinPoolSize > cfg.MaxPoolSize && cfg.MaxPoolSize > 0 {
		return nil, fmt.Errorf("mongodb min pool size %d exceeds max %d", cfg.MinPoolSize, cfg.MaxPoolSize)
	}

	return options.Client().
		ApplyURI(cfg.URI).
		SetMaxPoolSize(cfg.MaxPoolSize).
		SetMinPoolSize(cfg.MinPoolSize).
		SetMaxConnIdleTime(cfg.MaxConnIdleTime).
		SetRetryWrites(true).
		SetWriteConcern(writeconcern.Majority()), nil
}

// Ping reports whether the primary is reachable
func (m *MongoDB) Ping(ctx context.Context) error {
	return m.client.Ping(ctx, readpref.Primary())
}

// Database returns the configured database
func (m *MongoDB) Database() *mongo.Database {
	return m.database
}

func (m *MongoDB) Close(ctx context.Context) error {
	if err := m.client.Disconnect(ctx); err != nil {
		return fmt.Errorf("failed to disconnect from MongoDB: %w", err)
	}
	m.logger.Info("Closed MongoDB connection")
	return nil
}
