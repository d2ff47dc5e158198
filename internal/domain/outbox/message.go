package outbox

import (
	"encoding/json"
	"time"

	"github.com/fundgate/ledger-core/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Event is the payload carried by an outbox message
type Event struct {
	Type       shared.EventType     `json:"type"`
	RequestID  uuid.UUID            `json:"request_id,omitempty"`
	Kind       shared.RequestKind   `json:"kind,omitempty"`
	UserID     string               `json:"user_id"`
	Currency   string               `json:"currency"`
	Amount     decimal.Decimal      `json:"amount"`
	Fee        decimal.Decimal      `json:"fee"`
	Status     shared.RequestStatus `json:"status,omitempty"`
	EntryType  shared.EntryType     `json:"entry_type,omitempty"`
	ActorID    string               `json:"actor_id"`
	TxHash     string               `json:"tx_hash,omitempty"`
	Reason     string               `json:"reason,omitempty"`
	EntryIDs   []uuid.UUID          `json:"entry_ids,omitempty"`
	OccurredAt time.Time            `json:"occurred_at"`
}

// Message stores an event for reliable publishing after commit
type Message struct {
	ID            int64               `json:"id"`
	EventID       uuid.UUID           `json:"event_id"`
	AggregateID   string              `json:"aggregate_id"`
	EventType     shared.EventType    `json:"event_type"`
	Payload       json.RawMessage     `json:"payload"`
	Status        shared.OutboxStatus `json:"status"`
	Attempts      int                 `json:"attempts"`
	CreatedAt     time.Time           `json:"created_at"`
	LastAttemptAt *time.Time          `json:"last_attempt_at,omitempty"`
}

// NewMessage wraps event in a PENDING message keyed by aggregateID
func NewMessage(aggregateID string, event *Event) (*Message, error) {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return nil, err
	}

	return &Message{
		EventID:     uuid.New(),
		AggregateID: aggregateID,
		EventType:   event.Type,
		Payload:     payload,
		Status:      shared.OutboxStatusPending,
		Attempts:    0,
		CreatedAt:   time.Now().UTC(),
	}, nil
}

func (m *Message) IncrementAttempts() {
	m.Attempts++
	now := time.Now()
	m.LastAttemptAt = &now
}

func (m *Message) MarkAsProcessed() {
	m.Status = shared.OutboxStatusProcessed
	now := time.Now()
	m.LastAttemptAt = &now
}

func (m *Message) MarkAsFailed() {
	m.Status = shared.OutboxStatusFailedToPublish
	now := time.Now()
	m.LastAttemptAt = &now
}

// GetEvent decodes the payload
func (m *Message) GetEvent() (*Event, error) {
	var event Event
	if err := json.Unmarshal(m.Payload, &event); err != nil {
		return nil, err
	}
	return &event, nil
}
