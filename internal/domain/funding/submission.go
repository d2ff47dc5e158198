package funding

import (
	"errors"
	"strings"

	"github.com/fundgate/ledger-core/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SubmissionMessage is a funding request submitted by an upstream service
// over the message bus. RequestID is generated by the sender so redelivery
// maps to the same request.
type SubmissionMessage struct {
	RequestID     uuid.UUID          `json:"request_id"`
	Kind          shared.RequestKind `json:"kind"`
	UserID        string             `json:"user_id"`
	Currency      string             `json:"currency"`
	Amount        decimal.Decimal    `json:"amount"`
	Destination   string             `json:"destination,omitempty"`
	CorrelationID string             `json:"correlation_id,omitempty"`
}

// Validate checks the message before it reaches the workflow
func (m *SubmissionMessage) Validate() error {
	if m.RequestID == uuid.Nil {
		return errors.New("request_id is required")
	}
	if !m.Kind.Valid() {
		return ErrInvalidKind
	}
	if strings.TrimSpace(m.UserID) == "" {
		return shared.ErrInvalidUserID
	}
	if !m.Amount.IsPositive() {
		return shared.ErrInvalidAmount
	}
	return nil
}
