package mongo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/fundgate/ledger-core/internal/config"
	"github.com/fundgate/ledger-core/internal/domain/shared"
	"github.com/fundgate/ledger-core/internal/idempotency"
)

const (
	// IdempotencyCollectionName is the default collection for idempotency records
	IdempotencyCollectionName = "idempotency_records"

	recordInProgress = "in_progress"
	recordCompleted  = "completed"
)

type idempotencyDocument struct {
	Path        string    `bson:"path"`
	Key         string    `bson:"key"`
	Fingerprint string    `bson:"fingerprint"`
	Status      string    `bson:"status"`
	StatusCode  int       `bson:"status_code,omitempty"`
	ContentType string    `bson:"content_type,omitempty"`
	Body        []byte    `bson:"body,omitempty"`
	CreatedAt   time.Time `bson:"created_at"`
	ExpiresAt   time.Time `bson:"expires_at"`
}

// IdempotencyStore implements idempotency.Backend on MongoDB.
// The unique (path, key) index makes Reserve an atomic check-and-set; a TTL
// index on expires_at removes records after their lifetime. expires_at holds
// the reservation lease until Complete moves it to the record TTL.
type IdempotencyStore struct {
	collection *mongo.Collection
	logger     *slog.Logger
	now        func() time.Time
}

// NewIdempotencyStore creates the store over the named collection
func NewIdempotencyStore(logger *slog.Logger, db *mongo.Database, collection string) *IdempotencyStore {
	if collection == "" {
		collection = IdempotencyCollectionName
	}
	return &IdempotencyStore{
		collection: db.Collection(collection),
		logger:     logger,
		now:        time.Now,
	}
}

// EnsureIndexes creates the uniqueness and expiry indexes
func (s *IdempotencyStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "path", Value: 1}, {Key: "key", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("path_key_unique"),
		},
		{
			Keys:    bson.D{{Key: "expires_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(0).SetName("expires_at_ttl"),
		},
	})
	if err != nil {
		s.logger.Error("Failed to create idempotency indexes", "error", err)
		return fmt.Errorf("failed to create idempotency indexes: %w", err)
	}
	return nil
}

func (s *IdempotencyStore) Reserve(ctx context.Context, path, key, fingerprint string, lease time.Duration) (*idempotency.Response, error) {
	now := s.now().UTC()
	doc := idempotencyDocument{
		Path:        path,
		Key:         key,
		Fingerprint: fingerprint,
		Status:      recordInProgress,
		CreatedAt:   now,
		ExpiresAt:   now.Add(lease),
	}

	_, err := s.collection.InsertOne(ctx, doc)
	if err == nil {
		return nil, nil
	}
	if !mongo.IsDuplicateKeyError(err) {
		s.logger.Error("Failed to reserve idempotency key", "path", path, "error", err)
		return nil, fmt.Errorf("failed to reserve idempotency key: %w", err)
	}

	var existing idempotencyDocument
	err = s.collection.FindOne(ctx, bson.M{"path": path, "key": key}).Decode(&existing)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			// Removed between insert and read; report in progress and let the client retry
			return nil, shared.ErrIdempotencyInProgress
		}
		s.logger.Error("Failed to read idempotency record", "path", path, "error", err)
		return nil, fmt.Errorf("failed to read idempotency record: %w", err)
	}

	// The TTL monitor runs about once a minute, so expired records can still be present.
	if !now.Before(existing.ExpiresAt) {
		res, err := s.collection.DeleteOne(ctx, bson.M{"path": path, "key": key, "expires_at": existing.ExpiresAt})
		if err != nil {
			return nil, fmt.Errorf("failed to delete expired idempotency record: %w", err)
		}
		if res.DeletedCount == 1 {
			if _, err := s.collection.InsertOne(ctx, doc); err == nil {
				return nil, nil
			}
		}
		return nil, shared.ErrIdempotencyInProgress
	}

	if existing.Fingerprint != fingerprint {
		return nil, shared.ErrIdempotencyKeyReused
	}
	if existing.Status != recordCompleted {
		return nil, shared.ErrIdempotencyInProgress
	}

	return &idempotency.Response{
		StatusCode:  existing.StatusCode,
		ContentType: existing.ContentType,
		Body:        existing.Body,
	}, nil
}

func (s *IdempotencyStore) Complete(ctx context.Context, path, key string, resp idempotency.Response, ttl time.Duration) error {
	filter := bson.M{"path": path, "key": key, "status": recordInProgress}
	update := bson.M{
		"$set": bson.M{
			"status":       recordCompleted,
			"status_code":  resp.StatusCode,
			"content_type": resp.ContentType,
			"body":         resp.Body,
			"expires_at":   s.now().UTC().Add(ttl),
		},
	}

	res, err := s.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		s.logger.Error("Failed to complete idempotency record", "path", path, "error", err)
		return fmt.Errorf("failed to complete idempotency record: %w", err)
	}
	if res.MatchedCount == 0 {
		return idempotency.ErrReservationNotFound
	}
	return nil
}

func (s *IdempotencyStore) Release(ctx context.Context, path, key string) error {
	_, err := s.collection.DeleteOne(ctx, bson.M{"path": path, "key": key, "status": recordInProgress})
	if err != nil {
		s.logger.Error("Failed to release idempotency record", "path", path, "error", err)
		return fmt.Errorf("failed to release idempotency record: %w", err)
	}
	return nil
}

func (s *IdempotencyStore) Name() string {
	return config.IdempotencyBackendMongo
}

var _ idempotency.Backend = (*IdempotencyStore)(nil)
