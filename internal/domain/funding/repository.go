package funding

import (
	"context"
	"errors"
	"time"

	"github.com/fundgate/ledger-core/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var ErrInvalidKind = errors.New("request kind must be DEPOSIT or WITHDRAWAL")

// Filter narrows request listings. Zero values match everything.
type Filter struct {
	Status shared.RequestStatus
	Kind   shared.RequestKind
	UserID string
	Limit  int
	Offset int
}

// Repository manages funding request persistence
type Repository interface {
	Create(ctx context.Context, req *Request) error
	GetByID(ctx context.Context, id uuid.UUID) (*Request, error)
	List(ctx context.Context, filter Filter) ([]*Request, error)

	// Transition persists the review fields of req, only if the stored row is still PENDING.
	// Returns shared.ErrInvalidStateTransition when it is not.
	Transition(ctx context.Context, req *Request) error

	// Claim takes the approval lease if the row is PENDING and unclaimed or its lease expired
	Claim(ctx context.Context, id uuid.UUID, until time.Time) (*Request, error)
	ReleaseClaim(ctx context.Context, id uuid.UUID) error

	// RecordTransferReference stores txHash and the fee the transfer was executed with,
	// once, on a PENDING row. Repeating the same pair succeeds.
	RecordTransferReference(ctx context.Context, id uuid.UUID, txHash string, fee decimal.Decimal) error
}

// ErrRequestNotFound indicates a missing funding request
type ErrRequestNotFound struct {
	ID uuid.UUID
}

func (e ErrRequestNotFound) Error() string {
	return "funding request not found: " + e.ID.String()
}

// Is implements the errors.Is interface for ErrRequestNotFound
func (e ErrRequestNotFound) Is(target error) bool {
	t, ok := target.(ErrRequestNotFound)
	if !ok {
		return false
	}
	// A nil target ID matches any missing request
	if t.ID == uuid.Nil {
		return true
	}
	return e.ID == t.ID
}

// ErrDuplicateRequest indicates a request id already exists
type ErrDuplicateRequest struct {
	ID uuid.UUID
}

func (e ErrDuplicateRequest) Error() string {
	return "duplicate funding request: " + e.ID.String()
}

// Is implements the errors.Is interface for ErrDuplicateRequest
func (e ErrDuplicateRequest) Is(target error) bool {
	t, ok := target.(ErrDuplicateRequest)
	if !ok {
		return false
	}
	if t.ID == uuid.Nil {
		return true
	}
	return e.ID == t.ID
}
