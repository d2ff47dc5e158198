package outbox_poller

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/fundgate/ledger-core/internal/domain/audit"
	"github.com/fundgate/ledger-core/internal/domain/outbox"
	"github.com/fundgate/ledger-core/internal/domain/shared"
	"github.com/fundgate/ledger-core/internal/platform/messaging/producers"
)

// EventPublisher delivers one outbox message to its downstream sinks
type EventPublisher interface {
	PublishEvent(ctx context.Context, message *outbox.Message) error
}

// Notification is the message published for the notifier
type Notification struct {
	EventID     string           `json:"event_id"`
	EventType   shared.EventType `json:"event_type"`
	AggregateID string           `json:"aggregate_id"`
	Event       *outbox.Event    `json:"event"`
}

// EventPublisherImpl writes the audit record, then notifies, then marks the message processed.
// A retry after a partial failure re-appends the audit record, which the audit store ignores.
type EventPublisherImpl struct {
	outboxRepo outbox.Repository
	auditRepo  audit.Repository
	notifier   producers.MessagePublisher
	logger     *slog.Logger
	now        func() time.Time
}

// NewEventPublisher creates a new publisher
func NewEventPublisher(
	outboxRepo outbox.Repository,
	auditRepo audit.Repository,
	notifier producers.MessagePublisher,
	logger *slog.Logger,
) *EventPublisherImpl {
	return &EventPublisherImpl{
		outboxRepo: outboxRepo,
		auditRepo:  auditRepo,
		notifier:   notifier,
		logger:     logger,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// PublishEvent processes and publishes one outbox message
func (p *EventPublisherImpl) PublishEvent(ctx context.Context, message *outbox.Message) error {
	logger := p.logger.With("outbox_id", message.ID, "event_id", message.EventID.String())

	event, err := message.GetEvent()
	if err != nil {
		logger.Error("Failed to decode funding event from outbox payload", "error", err)
		if updateErr := p.outboxRepo.UpdateStatus(ctx, message.ID, shared.OutboxStatusFailedToPublish); updateErr != nil {
			logger.Error("Also failed to update outbox status to FAILED_TO_PUBLISH after decode error", "update_error", updateErr)
		}
		return fmt.Errorf("decode payload for outbox %d failed: %w", message.ID, err)
	}

	record := &audit.Record{
		EventID:     message.EventID.String(),
		EventType:   string(message.EventType),
		AggregateID: message.AggregateID,
		UserID:      event.UserID,
		Currency:    event.Currency,
		ActorID:     event.ActorID,
		Amount:      event.Amount.String(),
		Payload:     string(message.Payload),
		OccurredAt:  event.OccurredAt,
		RecordedAt:  p.now(),
	}
	if err := p.auditRepo.Append(ctx, record); err != nil {
		logger.Error("Failed to append audit record", "error", err)
		return fmt.Errorf("failed to append audit record for event %s: %w", record.EventID, err)
	}

	notification := Notification{
		EventID:     record.EventID,
		EventType:   message.EventType,
		AggregateID: message.AggregateID,
		Event:       event,
	}
	if err := p.notifier.Publish(ctx, message.AggregateID, notification); err != nil {
		logger.Error("Failed to publish funding event notification", "error", err)
		return fmt.Errorf("failed to notify event %s: %w", record.EventID, err)
	}

	if err := p.outboxRepo.UpdateStatus(ctx, message.ID, shared.OutboxStatusProcessed); err != nil {
		logger.Error("Failed to update outbox message status to PROCESSED", "error", err)
		return fmt.Errorf("event %s delivered, but failed to mark outbox %d as PROCESSED: %w", record.EventID, message.ID, err)
	}

	logger.Info("Outbox message delivered",
		"event_type", string(message.EventType),
		"aggregate_id", message.AggregateID,
	)
	return nil
}
