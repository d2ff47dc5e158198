package outbox_poller

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/fundgate/ledger-core/internal/config"
	"github.com/fundgate/ledger-core/internal/domain/outbox"
	"github.com/fundgate/ledger-core/internal/domain/shared"
	"github.com/fundgate/ledger-core/internal/platform/metrics"
)

// Poller relays committed outbox messages to the audit log and the notifier.
//
// Events of one funding request are delivered in creation order: when a message
// fails and will be retried, later messages of the same aggregate in the batch
// wait for the next poll. A message that exhausts its attempts is parked as
// FAILED_TO_PUBLISH and stops blocking its aggregate.
type Poller struct {
	outboxRepo       outbox.Repository
	publisher        EventPublisher
	logger           *slog.Logger
	pollInterval     time.Duration
	batchSize        int
	maxRetryAttempts int
}

func NewPoller(
	cfg *config.OutboxConfig,
	outboxRepo outbox.Repository,
	publisher EventPublisher,
	logger *slog.Logger,
) *Poller {
	return &Poller{
		outboxRepo:       outboxRepo,
		publisher:        publisher,
		logger:           logger,
		pollInterval:     cfg.PollingInterval,
		batchSize:        cfg.BatchSize,
		maxRetryAttempts: cfg.MaxRetryAttempts,
	}
}

// Start polls until ctx is cancelled. A full batch is followed by another
// poll straight away so a backlog drains without waiting for the ticker.
func (p *Poller) Start(ctx context.Context) {
	p.logger.Info("Starting outbox poller",
		"poll_interval", p.pollInterval.String(),
		"batch_size", p.batchSize,
		"max_retry_attempts", p.maxRetryAttempts,
	)
	ticker := time.NewTicker(p.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("Outbox poller stopped")
			return
		case <-ticker.C:
		}

		for ctx.Err() == nil {
			fetched, err := p.processBatch(ctx)
			if err != nil {
				p.logger.Error("Outbox batch failed", "error", err)
				break
			}
			if fetched < p.batchSize {
				break
			}
		}
	}
}

// processBatch handles one batch and reports how many messages it fetched
func (p *Poller) processBatch(ctx context.Context) (int, error) {
	messages, err := p.outboxRepo.GetPending(ctx, p.batchSize)
	if err != nil {
		return 0, fmt.Errorf("failed to get pending outbox messages: %w", err)
	}
	if len(messages) == 0 {
		return 0, nil
	}
	p.logger.Debug("Fetched pending outbox messages", "count", len(messages))

	blocked := make(map[string]bool)
	for _, msg := range messages {
		if blocked[msg.AggregateID] {
			metrics.OutboxPublished.WithLabelValues("deferred").Inc()
			continue
		}
		if !p.deliver(ctx, msg) {
			blocked[msg.AggregateID] = true
		}
	}
	return len(messages), nil
}

// deliver publishes one message. It returns false when the message stays
// pending and must block later messages of its aggregate.
func (p *Poller) deliver(ctx context.Context, msg *outbox.Message) bool {
	log := p.logger.With("outbox_id", msg.ID, "aggregate_id", msg.AggregateID, "event_type", string(msg.EventType))

	err := p.publisher.PublishEvent(ctx, msg)
	if err == nil {
		metrics.OutboxPublished.WithLabelValues("published").Inc()
		return true
	}
	log.Error("Failed to publish outbox message", "attempts", msg.Attempts, "error", err)

	if err := p.outboxRepo.IncrementAttempts(ctx, msg.ID); err != nil {
		log.Error("Failed to record outbox attempt", "error", err)
		metrics.OutboxPublished.WithLabelValues("error").Inc()
		return false
	}

	if msg.Attempts+1 < p.maxRetryAttempts {
		metrics.OutboxPublished.WithLabelValues("retry").Inc()
		return false
	}

	log.Warn("Outbox message exhausted its attempts, parking it", "attempts", msg.Attempts+1)
	if err := p.outboxRepo.UpdateStatus(ctx, msg.ID, shared.OutboxStatusFailedToPublish); err != nil {
		log.Error("Failed to park outbox message", "error", err)
		metrics.OutboxPublished.WithLabelValues("error").Inc()
		return false
	}
	metrics.OutboxPublished.WithLabelValues("failed").Inc()
	return true
}
