package kafka

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"
)

const (
	initialBackoff = 200 * time.Millisecond
	maxBackoff     = 5 * time.Second
)

// Handler processes a consumed Kafka message.
type Handler func(ctx context.Context, msg Message) error

// messageReader is the part of *kafkago.Reader the consumer loop uses.
type messageReader interface {
	FetchMessage(ctx context.Context) (kafkago.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Consumer reads one topic as a member of a consumer group and commits
// each message once its handler succeeds or gives up on it.
type Consumer struct {
	reader      messageReader
	handler     Handler
	maxAttempts int
	backoff     time.Duration
	logger      *slog.Logger
}

// NewConsumer creates a Consumer for topic that dispatches to handler.
func NewConsumer(cfg Config, topic string, handler Handler, logger *slog.Logger) (*Consumer, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("kafka: at least one broker is required")
	}
	if topic == "" {
		return nil, fmt.Errorf("kafka: consumer topic is required")
	}
	dialer, err := cfg.dialer()
	if err != nil {
		return nil, err
	}

	rc := kafkago.ReaderConfig{
		Brokers:     cfg.Brokers,
		Topic:       topic,
		GroupID:     cfg.ConsumerGroup,
		MinBytes:    1,
		MaxBytes:    4 << 20,
		StartOffset: kafkago.LastOffset,
	}
	if dialer != nil {
		rc.Dialer = dialer
	}

	return &Consumer{
		reader:      kafkago.NewReader(rc),
		handler:     handler,
		maxAttempts: max(cfg.MaxAttempts, 1),
		backoff:     initialBackoff,
		logger:      logger.With("topic", topic, "group", cfg.ConsumerGroup),
	}, nil
}

// Start consumes until ctx is canceled. A message whose handler still
// fails after the configured attempts is logged and dropped: its offset is
// committed like a handled one and it is not redelivered.
func (c *Consumer) Start(ctx context.Context) error {
	c.logger.Info("consumer starting", "max_attempts", c.maxAttempts)

	for {
		m, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				c.logger.Info("consumer stopping")
				return nil
			}
			return fmt.Errorf("kafka: fetch message: %w", err)
		}

		if err := c.dispatch(ctx, fromKafkaMessage(m)); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			c.logger.Error("dropping message after failed attempts",
				"partition", m.Partition,
				"offset", m.Offset,
				"error", err,
			)
		}

		if err := c.reader.CommitMessages(ctx, m); err != nil && ctx.Err() == nil {
			c.logger.Error("commit failed",
				"partition", m.Partition,
				"offset", m.Offset,
				"error", err,
			)
		}
	}
}

// dispatch runs the handler with exponential backoff between attempts.
func (c *Consumer) dispatch(ctx context.Context, msg Message) error {
	wait := c.backoff
	var err error
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		if err = c.handler(ctx, msg); err == nil {
			return nil
		}
		if attempt == c.maxAttempts {
			break
		}
		c.logger.Warn("handler failed, retrying", "attempt", attempt, "error", err)

		select {
		case <-ctx.Done():
			return errors.Join(err, ctx.Err())
		case <-time.After(wait):
		}
		wait = min(wait*2, maxBackoff)
	}
	return fmt.Errorf("after %d attempts: %w", c.maxAttempts, err)
}

// Close closes the reader.
func (c *Consumer) Close() error {
	if err := c.reader.Close(); err != nil {
		return fmt.Errorf("kafka: close reader: %w", err)
	}
	return nil
}

func fromKafkaMessage(m kafkago.Message) Message {
	msg := Message{
		Key:     m.Key,
		Value:   m.Value,
		Headers: make(map[string]string, len(m.Headers)),
	}
	for _, h := range m.Headers {
		msg.Headers[h.Key] = string(h.Value)
	}
	return msg
}
