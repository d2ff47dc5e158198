package accounting

import (
	"context"
	"errors"
	"testing"

	"github.com/fundgate/ledger-core/internal/domain/funding"
	"github.com/fundgate/ledger-core/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBulkApprover_PartialFailure(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.fund(t, testKey, "1000")

	ids := []uuid.UUID{
		f.submitWithdrawal(t, testKey, "100"),
		f.submitWithdrawal(t, testKey, "200"),
		f.submitWithdrawal(t, testKey, "300"),
	}
	f.transfers.failFor(ids[1], errors.New("node unavailable"))

	bulk, err := NewBulkApprover(newTestLogger(), f.workflow, 2)
	require.NoError(t, err)
	defer bulk.Shutdown()

	results := bulk.BulkApprove(ctx, ids, "admin-1")
	require.Len(t, results, 3)

	assert.Equal(t, ids[0], results[0].ID)
	assert.True(t, results[0].Success)
	assert.NotEmpty(t, results[0].Request.TxHash)

	assert.Equal(t, ids[1], results[1].ID)
	assert.False(t, results[1].Success)
	assert.ErrorIs(t, results[1].Err, shared.ErrExternalTransferFailure)

	assert.Equal(t, ids[2], results[2].ID)
	assert.True(t, results[2].Success)

	failed, err := f.workflow.GetRequest(ctx, ids[1])
	require.NoError(t, err)
	assert.Equal(t, shared.RequestStatusPending, failed.Status)

	b := f.balance(t, testKey)
	assert.Equal(t, "600", b.Balance.String())
	assert.Equal(t, "200", b.HeldBalance.String())
	assert.Equal(t, "400", b.AvailableBalance.String())
}

func TestBulkApprover_UnknownAndDuplicateIDs(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.fund(t, testKey, "1000")
	id := f.submitWithdrawal(t, testKey, "10")
	missing := uuid.New()

	bulk, err := NewBulkApprover(newTestLogger(), f.workflow, 4)
	require.NoError(t, err)
	defer bulk.Shutdown()

	results := bulk.BulkApprove(ctx, []uuid.UUID{id, missing, id}, "admin-1")
	require.Len(t, results, 3)
	assert.True(t, results[0].Success)
	assert.False(t, results[1].Success)
	assert.Error(t, results[1].Err)
	assert.True(t, results[2].Success)
	assert.Equal(t, id, results[2].ID)
	assert.Equal(t, 1, f.transfers.callsFor(id))
}

func TestBulkApprover_DepositsAreNotApproved(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.fund(t, testKey, "1000")
	withdrawal := f.submitWithdrawal(t, testKey, "10")
	deposit, err := f.workflow.SubmitDeposit(ctx, SubmitParams{Key: testKey, Amount: dec("50")})
	require.NoError(t, err)

	bulk, err := NewBulkApprover(newTestLogger(), f.workflow, 2)
	require.NoError(t, err)
	defer bulk.Shutdown()

	results := bulk.BulkApprove(ctx, []uuid.UUID{deposit.ID, withdrawal}, "admin-1")
	require.Len(t, results, 2)
	assert.False(t, results[0].Success)
	assert.ErrorIs(t, results[0].Err, funding.ErrInvalidKind)
	assert.True(t, results[1].Success)

	pending, err := f.workflow.GetRequest(ctx, deposit.ID)
	require.NoError(t, err)
	assert.Equal(t, shared.RequestStatusPending, pending.Status)
	assert.Equal(t, "990", f.balance(t, testKey).Balance.String())
}
