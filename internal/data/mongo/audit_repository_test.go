package mongo

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"

	"github.com/fundgate/ledger-core/internal/domain/audit"
)

func testRecord() *audit.Record {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return &audit.Record{
		EventID:     "5f0c9a4e-8f33-4b55-a8a5-2d0f6b8e4c11",
		EventType:   "FUNDING_REQUEST_APPROVED",
		AggregateID: "req-1",
		UserID:      "user-1",
		Currency:    "USDT",
		ActorID:     "admin-1",
		Amount:      "100.5",
		Payload:     `{"type":"FUNDING_REQUEST_APPROVED"}`,
		OccurredAt:  now,
		RecordedAt:  now,
	}
}

func TestAuditRepository_Append(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	ctx := context.Background()

	mt.Run("success", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse())
		repo := NewAuditRepository(newTestLogger(), mt.DB, mt.Coll.Name())
		assert.NoError(t, repo.Append(ctx, testRecord()))
	})

	mt.Run("redelivered event is ignored", func(mt *mtest.T) {
		mt.AddMockResponses(duplicateKeyResponse())
		repo := NewAuditRepository(newTestLogger(), mt.DB, mt.Coll.Name())
		assert.NoError(t, repo.Append(ctx, testRecord()))
	})

	mt.Run("database error", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCommandErrorResponse(mtest.CommandError{Code: 2, Message: "bad value"}))
		repo := NewAuditRepository(newTestLogger(), mt.DB, mt.Coll.Name())
		assert.Error(t, repo.Append(ctx, testRecord()))
	})
}

func TestAuditRepository_Queries(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	ctx := context.Background()

	mt.Run("list by aggregate", func(mt *mtest.T) {
		ns := mt.DB.Name() + "." + mt.Coll.Name()
		first := mtest.CreateCursorResponse(1, ns, mtest.FirstBatch, bson.D{
			{Key: "event_id", Value: "e-2"},
			{Key: "event_type", Value: "FUNDING_REQUEST_APPROVED"},
			{Key: "aggregate_id", Value: "req-1"},
			{Key: "amount", Value: "100.5"},
		})
		second := mtest.CreateCursorResponse(0, ns, mtest.NextBatch, bson.D{
			{Key: "event_id", Value: "e-1"},
			{Key: "event_type", Value: "FUNDING_REQUEST_SUBMITTED"},
			{Key: "aggregate_id", Value: "req-1"},
			{Key: "amount", Value: "100.5"},
		})
		mt.AddMockResponses(first, second)

		repo := NewAuditRepository(newTestLogger(), mt.DB, mt.Coll.Name())
		records, err := repo.ListByAggregate(ctx, "req-1", 10, 0)
		require.NoError(t, err)
		require.Len(t, records, 2)
		assert.Equal(t, "e-2", records[0].EventID)
		assert.Equal(t, "FUNDING_REQUEST_SUBMITTED", records[1].EventType)
	})

	mt.Run("count by user", func(mt *mtest.T) {
		ns := mt.DB.Name() + "." + mt.Coll.Name()
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch, bson.D{{Key: "n", Value: int32(3)}}))

		repo := NewAuditRepository(newTestLogger(), mt.DB, mt.Coll.Name())
		count, err := repo.CountByUser(ctx, "user-1")
		require.NoError(t, err)
		assert.Equal(t, int64(3), count)
	})

	mt.Run("indexes", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse())
		repo := NewAuditRepository(newTestLogger(), mt.DB, mt.Coll.Name())
		assert.NoError(t, repo.EnsureIndexes(ctx))
	})
}
