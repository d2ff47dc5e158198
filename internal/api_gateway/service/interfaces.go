package service

import (
	"context"

	"github.com/fundgate/ledger-core/internal/accounting"
	"github.com/fundgate/ledger-core/internal/domain/funding"
	"github.com/fundgate/ledger-core/internal/domain/ledger"
	"github.com/fundgate/ledger-core/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AccountService defines the read side of an account
type AccountService interface {
	// GetBalance derives the balance of one user in one currency
	GetBalance(ctx context.Context, userID, currency string) (ledger.Balance, error)

	// GetHistory returns one page of entries, newest first, and the total entry count
	GetHistory(ctx context.Context, userID, currency string, page, perPage int) ([]*ledger.Entry, int64, error)
}

// SubmitInput describes a new deposit or withdrawal
type SubmitInput struct {
	Kind        shared.RequestKind
	UserID      string
	Currency    string
	Amount      decimal.Decimal
	Destination string
}

// AdjustInput describes an admin ledger correction
type AdjustInput struct {
	UserID      string
	Currency    string
	Amount      decimal.Decimal
	Type        shared.EntryType
	ReferenceID string
	ActorID     string
	Reason      string
}

// FundingService defines funding request operations
type FundingService interface {
	Submit(ctx context.Context, in SubmitInput) (*funding.Request, error)
	GetRequest(ctx context.Context, id uuid.UUID) (*funding.Request, error)
	ListRequests(ctx context.Context, filter funding.Filter) ([]*funding.Request, error)

	// Approve returns shared.ErrExternalTransferFailure when the request stays PENDING for retry
	Approve(ctx context.Context, id uuid.UUID, p accounting.ApproveParams) (*funding.Request, error)
	Reject(ctx context.Context, id uuid.UUID, actorID, reason string) (*funding.Request, error)

	// BulkApprove reports one result per id; items never roll back each other
	BulkApprove(ctx context.Context, ids []uuid.UUID, actorID string) []accounting.BulkResult

	Adjust(ctx context.Context, in AdjustInput) (*ledger.Entry, ledger.Balance, error)
}
