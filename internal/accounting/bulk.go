package accounting

import (
	"context"
	"log/slog"
	"sync"

	"github.com/fundgate/ledger-core/internal/domain/funding"
	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"
)

// BulkResult is the outcome of approving one request
type BulkResult struct {
	ID      uuid.UUID
	Success bool
	Request *funding.Request
	Err     error
}

// WithdrawalApprover approves one withdrawal and refuses any other kind
type WithdrawalApprover interface {
	ApproveWithdrawal(ctx context.Context, id uuid.UUID, p ApproveParams) (*funding.Request, error)
}

// BulkApprover approves many withdrawals in parallel on a bounded pool.
// Each item succeeds or fails on its own; nothing is rolled back across items.
type BulkApprover struct {
	approver WithdrawalApprover
	pool     *ants.Pool
	logger   *slog.Logger
}

// NewBulkApprover creates a bulk approver with a pool of size workers
func NewBulkApprover(logger *slog.Logger, approver WithdrawalApprover, size int) (*BulkApprover, error) {
	pool, err := ants.NewPool(size)
	if err != nil {
		return nil, err
	}

	return &BulkApprover{
		approver: approver,
		pool:     pool,
		logger:   logger,
	}, nil
}

// BulkApprove approves every withdrawal id with the same reviewer and returns results in input order.
// Deposit ids fail with funding.ErrInvalidKind. Duplicate ids are approved once;
// later copies report the first copy's outcome.
func (b *BulkApprover) BulkApprove(ctx context.Context, ids []uuid.UUID, actorID string) []BulkResult {
	results := make([]BulkResult, len(ids))
	first := make(map[uuid.UUID]int, len(ids))

	var wg sync.WaitGroup
	for i, id := range ids {
		results[i].ID = id
		if _, seen := first[id]; seen {
			continue
		}
		first[id] = i

		i, id := i, id
		wg.Add(1)
		err := b.pool.Submit(func() {
			defer wg.Done()
			req, err := b.approver.ApproveWithdrawal(ctx, id, ApproveParams{ActorID: actorID})
			results[i] = BulkResult{ID: id, Success: err == nil, Request: req, Err: err}
		})
		if err != nil {
			wg.Done()
			b.logger.Error("Failed to submit bulk approval item", "request_id", id.String(), "error", err)
			results[i] = BulkResult{ID: id, Err: err}
		}
	}
	wg.Wait()

	for i, id := range ids {
		if j := first[id]; j != i {
			results[i] = results[j]
		}
	}

	succeeded := 0
	for _, r := range results {
		if r.Success {
			succeeded++
		}
	}
	b.logger.Info("Bulk approval finished",
		"requested", len(ids),
		"succeeded", succeeded,
		"failed", len(ids)-succeeded,
	)
	return results
}

// Shutdown releases the worker pool
func (b *BulkApprover) Shutdown() {
	b.logger.Info("Shutting down bulk approval pool", "running_workers", b.pool.Running())
	b.pool.Release()
}
