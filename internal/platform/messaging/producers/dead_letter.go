package producers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/fundgate/ledger-core/internal/config"
	"github.com/segmentio/kafka-go"
)

// ErrDLQDisabled is returned by a producer built without a dead letter topic
var ErrDLQDisabled = errors.New("dead letter topic not configured")

const (
	HeaderDLQReason      = "dlq-reason"
	HeaderDLQSourceTopic = "dlq-source-topic"
)

// ParkedSubmission is the dead letter record of a submission the worker gave up on.
// The original value is kept verbatim so an operator can replay it unchanged.
type ParkedSubmission struct {
	Key           string          `json:"key"`
	OriginalValue json.RawMessage `json:"original_value,omitempty"`
	RawValue      string          `json:"raw_value,omitempty"`
	Reason        string          `json:"reason"`
	SourceTopic   string          `json:"source_topic"`
	ParkedAt      time.Time       `json:"parked_at"`
}

// DLQProducer parks submissions on the dead letter topic. A nil *DLQProducer
// is valid and reports ErrDLQDisabled.
type DLQProducer struct {
	logger      *slog.Logger
	writer      KafkaWriter
	topic       string
	sourceTopic string
	now         func() time.Time
}

// NewDLQProducer returns (nil, nil) when no dead letter topic is configured
func NewDLQProducer(ctx context.Context, logger *slog.Logger, cfg *config.KafkaConfig) (*DLQProducer, error) {
	if cfg.DLQTopic == "" {
		logger.Info("Dead letter topic not configured, rejected submissions will be dropped")
		return nil, nil
	}

	conn, err := kafka.DialContext(ctx, "tcp", cfg.Brokers)
	if err != nil {
		return nil, fmt.Errorf("failed to dial kafka for dlq producer: %w", err)
	}
	defer conn.Close()

	if err := createKafkaTopicIfNotExists(conn, cfg.DLQTopic, cfg.NumPartitions, cfg.ReplicationFactor, logger); err != nil {
		return nil, fmt.Errorf("failed to ensure DLQ topic %s exists: %w", cfg.DLQTopic, err)
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers),
		Topic:        cfg.DLQTopic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		WriteTimeout: cfg.MaxWait,
	}
	return NewDLQProducerWithWriter(logger, writer, cfg.DLQTopic, cfg.SubmissionTopic), nil
}

// NewDLQProducerWithWriter wraps an existing writer
func NewDLQProducerWithWriter(logger *slog.Logger, writer KafkaWriter, topic, sourceTopic string) *DLQProducer {
	return &DLQProducer{
		logger:      logger,
		writer:      writer,
		topic:       topic,
		sourceTopic: sourceTopic,
		now:         time.Now,
	}
}

// PublishToDLQ parks one message, keyed like the original so replays keep per-account order
func (p *DLQProducer) PublishToDLQ(ctx context.Context, key string, originalValue []byte, reason string) error {
	if p == nil || p.writer == nil {
		return ErrDLQDisabled
	}

	record := ParkedSubmission{
		Key:         key,
		Reason:      reason,
		SourceTopic: p.sourceTopic,
		ParkedAt:    p.now().UTC(),
	}
	// Undecodable payloads are kept as text so the record itself stays valid JSON.
	if json.Valid(originalValue) {
		record.OriginalValue = originalValue
	} else {
		record.RawValue = string(originalValue)
	}

	value, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal parked submission: %w", err)
	}

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(key),
		Value: value,
		Headers: []kafka.Header{
			{Key: HeaderDLQReason, Value: []byte(reason)},
			{Key: HeaderDLQSourceTopic, Value: []byte(p.sourceTopic)},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to park submission %q on %s: %w", key, p.topic, err)
	}

	p.logger.Warn("Submission parked on dead letter topic", "topic", p.topic, "key", key, "reason", reason)
	return nil
}

func (p *DLQProducer) Close() error {
	if p == nil || p.writer == nil {
		return nil
	}
	if err := p.writer.Close(); err != nil {
		return fmt.Errorf("failed to close dlq writer for %s: %w", p.topic, err)
	}
	return nil
}

var _ DeadLetterPublisher = (*DLQProducer)(nil)
