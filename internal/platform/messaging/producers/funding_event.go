package producers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/fundgate/ledger-core/internal/config"
	"github.com/segmentio/kafka-go"
)

// FundingEventProducer publishes funding events for the notifier.
// Writes are synchronous so the outbox only marks a message processed once
// the broker has acknowledged it.
type FundingEventProducer struct {
	logger *slog.Logger
	writer KafkaWriter
	topic  string
}

// NewFundingEventProducer creates the producer and ensures its topic exists
func NewFundingEventProducer(ctx context.Context, logger *slog.Logger, cfg *config.KafkaConfig) (*FundingEventProducer, error) {
	if cfg.NotificationTopic == "" {
		return nil, fmt.Errorf("kafka notification topic is not configured")
	}

	conn, err := kafka.DialContext(ctx, "tcp", cfg.Brokers)
	if err != nil {
		return nil, fmt.Errorf("failed to dial kafka for funding event producer: %w", err)
	}
	defer conn.Close()

	err = createKafkaTopicIfNotExists(conn, cfg.NotificationTopic, cfg.NumPartitions, cfg.ReplicationFactor, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to ensure notification topic %s exists: %w", cfg.NotificationTopic, err)
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers),
		Topic:        cfg.NotificationTopic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		Async:        false,
		WriteTimeout: cfg.MaxWait,
	}

	return NewFundingEventProducerWithWriter(logger, writer, cfg.NotificationTopic), nil
}

// NewFundingEventProducerWithWriter wraps an existing writer
func NewFundingEventProducerWithWriter(logger *slog.Logger, writer KafkaWriter, topic string) *FundingEventProducer {
	return &FundingEventProducer{
		logger: logger,
		writer: writer,
		topic:  topic,
	}
}

// Publish writes value as JSON. Messages of one key land on one partition, in order.
func (p *FundingEventProducer) Publish(ctx context.Context, key string, value any) error {
	jsonValue, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal funding event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(key),
		Value: jsonValue,
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.Error("Failed to publish funding event",
			"topic", p.topic,
			"key", key,
			"error", err,
		)
		return fmt.Errorf("failed to publish funding event to %s: %w", p.topic, err)
	}

	p.logger.Debug("Published funding event",
		"topic", p.topic,
		"key", key,
	)
	return nil
}

func (p *FundingEventProducer) Close() error {
	p.logger.Info("Closing funding event producer", "topic", p.topic)
	if err := p.writer.Close(); err != nil {
		return fmt.Errorf("failed to close kafka writer for topic %s: %w", p.topic, err)
	}
	return nil
}

var _ MessagePublisher = (*FundingEventProducer)(nil)
