package consumers

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/fundgate/ledger-core/internal/config"
	"github.com/segmentio/kafka-go"
)

type MessageHandler func(ctx context.Context, key []byte, value []byte) error

// Consumer defines the message queue consumer interface
type Consumer interface {
	Subscribe(ctx context.Context, handler MessageHandler) error
	Close() error
}

// MessageReader wraps kafka.Reader methods for testing
type MessageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

const (
	defaultHandlerAttempts = 3
	defaultRetryDelay      = time.Second
)

// KafkaConsumer implements Consumer using Kafka
type KafkaConsumer struct {
	reader     MessageReader
	logger     *slog.Logger
	topic      string
	groupID    string
	attempts   int
	retryDelay time.Duration
}

// NewKafkaConsumer creates a group consumer on the submission topic
func NewKafkaConsumer(_ context.Context, logger *slog.Logger, cfg *config.KafkaConfig) *KafkaConsumer {
	startOffset := cfg.StartOffset
	if startOffset != kafka.LastOffset {
		startOffset = kafka.FirstOffset
	}

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     []string{cfg.Brokers},
		Topic:       cfg.SubmissionTopic,
		GroupID:     cfg.ConsumerGroup,
		MinBytes:    cfg.MinBytes,
		MaxBytes:    cfg.MaxBytes,
		MaxWait:     cfg.MaxWait,
		StartOffset: startOffset,
	})
	return NewKafkaConsumerWithReader(logger, reader, cfg.SubmissionTopic, cfg.ConsumerGroup)
}

// NewKafkaConsumerWithReader wraps an existing reader
func NewKafkaConsumerWithReader(logger *slog.Logger, reader MessageReader, topic, groupID string) *KafkaConsumer {
	return &KafkaConsumer{
		reader:     reader,
		logger:     logger,
		topic:      topic,
		groupID:    groupID,
		attempts:   defaultHandlerAttempts,
		retryDelay: defaultRetryDelay,
	}
}

// Subscribe processes messages with the handler until ctx is canceled
func (c *KafkaConsumer) Subscribe(ctx context.Context, handler MessageHandler) error {
	if c.reader == nil {
		return errors.New("kafka reader is not initialized")
	}

	c.logger.Info("Subscribed to Kafka topic",
		"topic", c.topic,
		"group_id", c.groupID,
	)

	go c.consume(ctx, handler)
	return nil
}

func (c *KafkaConsumer) consume(ctx context.Context, handler MessageHandler) {
	for {
		if ctx.Err() != nil {
			c.logger.Info("Context canceled, stopping consumer",
				"topic", c.topic,
				"group_id", c.groupID,
			)
			return
		}

		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				return
			}
			c.logger.Error("Failed to fetch message from Kafka",
				"topic", c.topic,
				"group_id", c.groupID,
				"error", err,
			)
			if !sleep(ctx, c.retryDelay) {
				return
			}
			continue
		}

		c.logger.Debug("Received message from Kafka",
			"topic", msg.Topic,
			"partition", msg.Partition,
			"offset", msg.Offset,
			"key", string(msg.Key),
		)

		if !c.handle(ctx, handler, msg) {
			// Failed messages are not committed so the group redelivers them after a rebalance
			continue
		}

		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			c.logger.Error("Failed to commit message after successful processing",
				"topic", msg.Topic,
				"partition", msg.Partition,
				"offset", msg.Offset,
				"error", err,
			)
		}
	}
}

// handle runs the handler with bounded retries and reports whether it succeeded
func (c *KafkaConsumer) handle(ctx context.Context, handler MessageHandler, msg kafka.Message) bool {
	var err error
	for attempt := 1; attempt <= c.attempts; attempt++ {
		if err = handler(ctx, msg.Key, msg.Value); err == nil {
			return true
		}
		c.logger.Warn("Failed to process message",
			"topic", msg.Topic,
			"partition", msg.Partition,
			"offset", msg.Offset,
			"attempt", attempt,
			"error", err,
		)
		if attempt < c.attempts && !sleep(ctx, c.retryDelay*time.Duration(attempt)) {
			return false
		}
	}

	c.logger.Error("Giving up on message, will not commit offset",
		"topic", msg.Topic,
		"partition", msg.Partition,
		"offset", msg.Offset,
		"key", string(msg.Key),
		"error", err,
	)
	return false
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func (c *KafkaConsumer) Close() error {
	if c.reader != nil {
		return c.reader.Close()
	}
	return nil
}
