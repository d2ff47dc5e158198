package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/fundgate/ledger-core/internal/domain/funding"
	"github.com/fundgate/ledger-core/internal/ledger_worker/service"
	"github.com/fundgate/ledger-core/internal/logger"
	"github.com/fundgate/ledger-core/internal/platform/messaging/producers"
)

// SubmissionHandler handles funding submissions from Kafka
type SubmissionHandler struct {
	submissions service.SubmissionService
	producer    producers.DeadLetterPublisher
	logger      *slog.Logger
}

// NewSubmissionHandler creates a new handler. producer may be nil when the DLQ is disabled.
func NewSubmissionHandler(
	logger *slog.Logger,
	submissions service.SubmissionService,
	producer producers.DeadLetterPublisher,
) *SubmissionHandler {
	return &SubmissionHandler{
		submissions: submissions,
		producer:    producer,
		logger:      logger,
	}
}

// HandleMessage processes one message. A nil return commits the offset.
func (h *SubmissionHandler) HandleMessage(ctx context.Context, key []byte, value []byte) error {
	var msg funding.SubmissionMessage
	if err := json.Unmarshal(value, &msg); err != nil {
		h.logger.Error("Failed to unmarshal funding submission from Kafka message",
			"error", err,
			"message_key", string(key),
		)
		return h.park(ctx, key, value, fmt.Sprintf("unparsable submission: %s", err.Error()), err)
	}

	log := h.logger.With("request_id", msg.RequestID.String())
	if msg.CorrelationID != "" {
		log = log.With("correlation_id", msg.CorrelationID)
	}
	ctx = logger.WithContext(ctx, log)

	log.Info("Received funding submission",
		"kind", string(msg.Kind),
		"user_id", msg.UserID,
		"currency", msg.Currency,
		"amount", msg.Amount.String(),
	)

	err := h.submissions.ProcessSubmission(ctx, &msg)
	switch {
	case err == nil:
		log.Info("Funding submission processed")
		return nil
	case errors.Is(err, service.ErrSubmissionRejected):
		log.Warn("Funding submission rejected", "error", err)
		return h.park(ctx, key, value, err.Error(), err)
	default:
		log.Error("Failed to process funding submission", "error", err)
		return fmt.Errorf("processing submission %s failed: %w", msg.RequestID.String(), err)
	}
}

// park sends the raw message to the DLQ. Without a DLQ the message is dropped after logging.
func (h *SubmissionHandler) park(ctx context.Context, key, value []byte, reason string, cause error) error {
	if h.producer == nil {
		h.logger.Warn("DLQ disabled, dropping submission", "message_key", string(key), "reason", reason)
		return nil
	}

	if err := h.producer.PublishToDLQ(ctx, string(key), value, reason); err != nil {
		if errors.Is(err, producers.ErrDLQDisabled) {
			h.logger.Warn("DLQ disabled, dropping submission", "message_key", string(key), "reason", reason)
			return nil
		}
		h.logger.Error("Failed to publish message to DLQ",
			"dlq_error", err,
			"original_error", cause,
			"message_key", string(key),
		)
		return fmt.Errorf("failed to park submission: %w", cause)
	}
	return nil
}
