package service

import (
	"context"

	"github.com/fundgate/ledger-core/internal/accounting"
	"github.com/fundgate/ledger-core/internal/domain/funding"
	"github.com/fundgate/ledger-core/internal/domain/ledger"
	"github.com/fundgate/ledger-core/internal/domain/shared"
	"github.com/google/uuid"
)

type FundingServiceImpl struct {
	workflow *accounting.Workflow
	bulk     *accounting.BulkApprover
}

func NewFundingService(workflow *accounting.Workflow, bulk *accounting.BulkApprover) *FundingServiceImpl {
	return &FundingServiceImpl{
		workflow: workflow,
		bulk:     bulk,
	}
}

// Submit creates the request with a fresh id. The caller is its own actor.
func (s *FundingServiceImpl) Submit(ctx context.Context, in SubmitInput) (*funding.Request, error) {
	key, err := ledger.NewAccountKey(in.UserID, in.Currency)
	if err != nil {
		return nil, err
	}
	params := accounting.SubmitParams{
		Key:         key,
		Amount:      in.Amount,
		Destination: in.Destination,
		ActorID:     key.UserID,
	}

	switch in.Kind {
	case shared.RequestKindWithdrawal:
		return s.workflow.SubmitWithdrawal(ctx, params)
	case shared.RequestKindDeposit:
		return s.workflow.SubmitDeposit(ctx, params)
	default:
		return nil, funding.ErrInvalidKind
	}
}

func (s *FundingServiceImpl) GetRequest(ctx context.Context, id uuid.UUID) (*funding.Request, error) {
	return s.workflow.GetRequest(ctx, id)
}

func (s *FundingServiceImpl) ListRequests(ctx context.Context, filter funding.Filter) ([]*funding.Request, error) {
	return s.workflow.ListRequests(ctx, filter)
}

func (s *FundingServiceImpl) Approve(ctx context.Context, id uuid.UUID, p accounting.ApproveParams) (*funding.Request, error) {
	return s.workflow.Approve(ctx, id, p)
}

func (s *FundingServiceImpl) Reject(ctx context.Context, id uuid.UUID, actorID, reason string) (*funding.Request, error) {
	return s.workflow.Reject(ctx, id, actorID, reason)
}

func (s *FundingServiceImpl) BulkApprove(ctx context.Context, ids []uuid.UUID, actorID string) []accounting.BulkResult {
	return s.bulk.BulkApprove(ctx, ids, actorID)
}

func (s *FundingServiceImpl) Adjust(ctx context.Context, in AdjustInput) (*ledger.Entry, ledger.Balance, error) {
	key, err := ledger.NewAccountKey(in.UserID, in.Currency)
	if err != nil {
		return nil, ledger.Balance{}, err
	}
	return s.workflow.Adjust(ctx, accounting.AdjustParams{
		Key:         key,
		Amount:      in.Amount,
		Type:        in.Type,
		ReferenceID: in.ReferenceID,
		ActorID:     in.ActorID,
		Reason:      in.Reason,
	})
}

var _ FundingService = (*FundingServiceImpl)(nil)
