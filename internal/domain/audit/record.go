package audit

import (
	"context"
	"time"
)

// Record is one immutable audit trail document derived from an outbox event
type Record struct {
	EventID     string    `json:"event_id" bson:"event_id"`
	EventType   string    `json:"event_type" bson:"event_type"`
	AggregateID string    `json:"aggregate_id" bson:"aggregate_id"`
	UserID      string    `json:"user_id" bson:"user_id"`
	Currency    string    `json:"currency" bson:"currency"`
	ActorID     string    `json:"actor_id" bson:"actor_id"`
	Amount      string    `json:"amount" bson:"amount"`
	Payload     string    `json:"payload" bson:"payload"`
	OccurredAt  time.Time `json:"occurred_at" bson:"occurred_at"`
	RecordedAt  time.Time `json:"recorded_at" bson:"recorded_at"`
}

// Repository persists the audit trail
type Repository interface {
	// Append stores record once; a repeated EventID is not an error
	Append(ctx context.Context, record *Record) error
	ListByAggregate(ctx context.Context, aggregateID string, limit, offset int) ([]*Record, error)
	CountByUser(ctx context.Context, userID string) (int64, error)
}
