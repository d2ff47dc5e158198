package mongo

import (
	"context"
	"fmt"
	"log/slog"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/fundgate/ledger-core/internal/domain/audit"
)

const (
	// AuditCollectionName is the default audit log collection
	AuditCollectionName = "audit_log"
)

// AuditRepository implements audit.Repository for MongoDB
type AuditRepository struct {
	collection *mongo.Collection
	logger     *slog.Logger
}

// NewAuditRepository creates a new MongoDB audit repository
func NewAuditRepository(logger *slog.Logger, db *mongo.Database, collection string) *AuditRepository {
	if collection == "" {
		collection = AuditCollectionName
	}
	return &AuditRepository{
		collection: db.Collection(collection),
		logger:     logger,
	}
}

// EnsureIndexes makes event_id unique and indexes the lookup fields
func (r *AuditRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "event_id", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("event_id_unique"),
		},
		{
			Keys: bson.D{{Key: "aggregate_id", Value: 1}, {Key: "occurred_at", Value: -1}},
		},
		{
			Keys: bson.D{{Key: "user_id", Value: 1}},
		},
	})
	if err != nil {
		r.logger.Error("Failed to create audit indexes", "error", err)
		return fmt.Errorf("failed to create audit indexes: %w", err)
	}
	return nil
}

// Append stores record. Redelivered events hit the unique index and are ignored.
func (r *AuditRepository) Append(ctx context.Context, record *audit.Record) error {
	_, err := r.collection.InsertOne(ctx, record)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			r.logger.Debug("Audit record already stored", "event_id", record.EventID)
			return nil
		}
		r.logger.Error("Failed to append audit record",
			"event_id", record.EventID,
			"event_type", record.EventType,
			"error", err)
		return fmt.Errorf("failed to append audit record: %w", err)
	}
	return nil
}

// ListByAggregate returns records of one aggregate, newest first
func (r *AuditRepository) ListByAggregate(ctx context.Context, aggregateID string, limit, offset int) ([]*audit.Record, error) {
	filter := bson.M{"aggregate_id": aggregateID}
	opts := options.Find().
		SetSort(bson.D{{Key: "occurred_at", Value: -1}}).
		SetSkip(int64(offset)).
		SetLimit(int64(limit))

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		r.logger.Error("Failed to list audit records",
			"aggregate_id", aggregateID,
			"error", err)
		return nil, fmt.Errorf("failed to list audit records: %w", err)
	}
	defer cursor.Close(ctx)

	var records []*audit.Record
	if err := cursor.All(ctx, &records); err != nil {
		r.logger.Error("Failed to decode audit records",
			"aggregate_id", aggregateID,
			"error", err)
		return nil, fmt.Errorf("failed to decode audit records: %w", err)
	}

	return records, nil
}

// CountByUser counts the audit records of a user
func (r *AuditRepository) CountByUser(ctx context.Context, userID string) (int64, error) {
	count, err := r.collection.CountDocuments(ctx, bson.M{"user_id": userID})
	if err != nil {
		r.logger.Error("Failed to count audit records",
			"user_id", userID,
			"error", err)
		return 0, fmt.Errorf("failed to count audit records: %w", err)
	}
	return count, nil
}

var _ audit.Repository = (*AuditRepository)(nil)
