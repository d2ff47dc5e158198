package funding

import (
	"strings"
	"time"

	"github.com/fundgate/ledger-core/internal/domain/ledger"
	"github.com/fundgate/ledger-core/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Request is a deposit or withdrawal awaiting administrative review.
// Only the review fields change after creation, and only once.
type Request struct {
	ID              uuid.UUID            `json:"id"`
	Kind            shared.RequestKind   `json:"kind"`
	UserID          string               `json:"user_id"`
	Currency        string               `json:"currency"`
	Amount          decimal.Decimal      `json:"amount"`
	Fee             decimal.Decimal      `json:"fee"`
	Status          shared.RequestStatus `json:"status"`
	Destination     string               `json:"destination,omitempty"`
	ReviewedBy      string               `json:"reviewed_by,omitempty"`
	ReviewedAt      *time.Time           `json:"reviewed_at,omitempty"`
	TxHash          string               `json:"tx_hash,omitempty"`
	RejectionReason string               `json:"rejection_reason,omitempty"`
	ClaimedUntil    *time.Time           `json:"-"`
	CreatedAt       time.Time            `json:"created_at"`
	UpdatedAt       time.Time            `json:"updated_at"`
}

// NewRequest creates a PENDING request. A nil id generates a new one.
func NewRequest(id uuid.UUID, kind shared.RequestKind, key ledger.AccountKey, amount decimal.Decimal, destination string) (*Request, error) {
	if !kind.Valid() {
		return nil, ErrInvalidKind
	}
	if err := key.Validate(); err != nil {
		return nil, err
	}
	if !amount.IsPositive() || !shared.Representable(amount) {
		return nil, shared.ErrInvalidAmount
	}
	if id == uuid.Nil {
		id = uuid.New()
	}

	now := time.Now().UTC()
	return &Request{
		ID:          id,
		Kind:        kind,
		UserID:      key.UserID,
		Currency:    key.Currency,
		Amount:      amount,
		Fee:         decimal.Zero,
		Status:      shared.RequestStatusPending,
		Destination: strings.TrimSpace(destination),
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// Key returns the account the request moves money for
func (r *Request) Key() ledger.AccountKey {
	return ledger.AccountKey{UserID: r.UserID, Currency: r.Currency}
}

// ReferenceID is the ledger referenceId used for every entry of this request
func (r *Request) ReferenceID() string {
	return r.ID.String()
}

// ClaimLive reports whether an approval claim is held at now
func (r *Request) ClaimLive(now time.Time) bool {
	return r.ClaimedUntil != nil && r.ClaimedUntil.After(now)
}

// Approve moves a PENDING request to APPROVED
func (r *Request) Approve(reviewer, txHash string, fee decimal.Decimal) error {
	if r.Status != shared.RequestStatusPending {
		return shared.ErrInvalidStateTransition
	}
	if strings.TrimSpace(reviewer) == "" {
		return shared.ErrInvalidActor
	}
	if fee.IsNegative() || !shared.Representable(fee) || (!fee.IsZero() && fee.GreaterThanOrEqual(r.Amount)) {
		return shared.ErrInvalidFee
	}

	now := time.Now().UTC()
	r.Status = shared.RequestStatusApproved
	r.ReviewedBy = reviewer
	r.ReviewedAt = &now
	r.Fee = fee
	if txHash != "" {
		r.TxHash = txHash
	}
	r.ClaimedUntil = nil
	r.UpdatedAt = now
	return nil
}

// Reject moves a PENDING request to REJECTED
func (r *Request) Reject(reviewer, reason string) error {
	if r.Status != shared.RequestStatusPending {
		return shared.ErrInvalidStateTransition
	}
	if strings.TrimSpace(reviewer) == "" {
		return shared.ErrInvalidActor
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return shared.ErrReasonRequired
	}

	now := time.Now().UTC()
	r.Status = shared.RequestStatusRejected
	r.ReviewedBy = reviewer
	r.ReviewedAt = &now
	r.RejectionReason = reason
	r.ClaimedUntil = nil
	r.UpdatedAt = now
	return nil
}
