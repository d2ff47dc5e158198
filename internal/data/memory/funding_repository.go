package memory

import (
	"context"
	"sort"
	"time"

	"github.com/fundgate/ledger-core/internal/domain/funding"
	"github.com/fundgate/ledger-core/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// FundingRepository implements funding.Repository in memory.
// Create and Transition are staged inside a unit of work; claim operations
// always apply to committed state.
type FundingRepository struct {
	store *Store
	stage *stage
}

func (r *FundingRepository) Create(ctx context.Context, req *funding.Request) error {
	c := cloneRequest(req)
	if r.stage != nil {
		if _, exists := r.lookup(req.ID); exists {
			return funding.ErrDuplicateRequest{ID: req.ID}
		}
		r.stage.requests[c.ID] = c
		return nil
	}

	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if _, exists := r.store.requests[c.ID]; exists {
		return funding.ErrDuplicateRequest{ID: c.ID}
	}
	r.store.requests[c.ID] = c
	return nil
}

func (r *FundingRepository) GetByID(ctx context.Context, id uuid.UUID) (*funding.Request, error) {
	req, ok := r.lookup(id)
	if !ok {
		return nil, funding.ErrRequestNotFound{ID: id}
	}
	return req, nil
}

func (r *FundingRepository) List(ctx context.Context, filter funding.Filter) ([]*funding.Request, error) {
	r.store.mu.RLock()
	var out []*funding.Request
	for _, req := range r.store.requests {
		if filter.Status != "" && req.Status != filter.Status {
			continue
		}
		if filter.Kind != "" && req.Kind != filter.Kind {
			continue
		}
		if filter.UserID != "" && req.UserID != filter.UserID {
			continue
		}
		out = append(out, cloneRequest(req))
	}
	r.store.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })

	if filter.Offset >= len(out) {
		return nil, nil
	}
	out = out[filter.Offset:]
	if filter.Limit > 0 && filter.Limit < len(out) {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (r *FundingRepository) Transition(ctx context.Context, req *funding.Request) error {
	current, ok := r.lookup(req.ID)
	if !ok || current.Status != shared.RequestStatusPending {
		return shared.ErrInvalidStateTransition
	}

	c := cloneRequest(req)
	if c.TxHash == "" {
		c.TxHash = current.TxHash
	}
	c.ClaimedUntil = nil

	if r.stage != nil {
		r.stage.requests[c.ID] = c
		r.stage.transitions[c.ID] = struct{}{}
		return nil
	}

	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if stored, ok := r.store.requests[c.ID]; !ok || stored.Status != shared.RequestStatusPending {
		return shared.ErrInvalidStateTransition
	}
	r.store.requests[c.ID] = c
	return nil
}

func (r *FundingRepository) Claim(ctx context.Context, id uuid.UUID, until time.Time) (*funding.Request, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	req, ok := r.store.requests[id]
	if !ok {
		return nil, funding.ErrRequestNotFound{ID: id}
	}
	if req.Status != shared.RequestStatusPending {
		return nil, shared.ErrInvalidStateTransition
	}
	now := time.Now().UTC()
	if req.ClaimLive(now) {
		return nil, shared.ErrApprovalInProgress
	}
	u := until
	req.ClaimedUntil = &u
	req.UpdatedAt = now
	return cloneRequest(req), nil
}

func (r *FundingRepository) ReleaseClaim(ctx context.Context, id uuid.UUID) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if req, ok := r.store.requests[id]; ok && req.Status == shared.RequestStatusPending {
		req.ClaimedUntil = nil
		req.UpdatedAt = time.Now().UTC()
	}
	return nil
}

func (r *FundingRepository) RecordTransferReference(ctx context.Context, id uuid.UUID, txHash string, fee decimal.Decimal) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	req, ok := r.store.requests[id]
	if !ok || req.Status != shared.RequestStatusPending {
		return shared.ErrInvalidStateTransition
	}
	if req.TxHash != "" && (req.TxHash != txHash || !req.Fee.Equal(fee)) {
		return shared.ErrInvalidStateTransition
	}
	req.TxHash = txHash
	req.Fee = fee
	req.UpdatedAt = time.Now().UTC()
	return nil
}

// lookup prefers the staged version of a request
func (r *FundingRepository) lookup(id uuid.UUID) (*funding.Request, bool) {
	if r.stage != nil {
		if req, ok := r.stage.requests[id]; ok {
			return cloneRequest(req), true
		}
	}
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	req, ok := r.store.requests[id]
	if !ok {
		return nil, false
	}
	return cloneRequest(req), true
}

func cloneRequest(req *funding.Request) *funding.Request {
	c := *req
	if req.ReviewedAt != nil {
		t := *req.ReviewedAt
		c.ReviewedAt = &t
	}
	if req.ClaimedUntil != nil {
		t := *req.ClaimedUntil
		c.ClaimedUntil = &t
	}
	return &c
}

var _ funding.Repository = (*FundingRepository)(nil)
