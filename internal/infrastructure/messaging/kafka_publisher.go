package messaging

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bibbank/fraudscore/pkg/events"
	pkgkafka "github.com/bibbank/fraudscore/pkg/kafka"
)

// MessageProducer is the subset of pkg/kafka.Producer the publisher needs.
type MessageProducer interface {
	Publish(ctx context.Context, topic string, messages ...pkgkafka.Message) error
}

// KafkaPublisher implements port.EventPublisher using Kafka. Events are
// wrapped in an events.Envelope and keyed by aggregate ID.
type KafkaPublisher struct {
	producer MessageProducer
	topic    string
	logger   *slog.Logger
}

// NewKafkaPublisher creates a new Kafka event publisher.
func NewKafkaPublisher(producer MessageProducer, topic string, logger *slog.Logger) *KafkaPublisher {
	return &KafkaPublisher{
		producer: producer,
		topic:    topic,
		logger:   logger,
	}
}

// Header keys set on every published record.
const (
	HeaderEventType   = "event_type"
	HeaderEventID     = "event_id"
	HeaderContentType = "content-type"
)

// Publish encodes every event before sending any, so a bad event never
// leaves a partial batch on the topic.
func (p *KafkaPublisher) Publish(ctx context.Context, domainEvents ...events.DomainEvent) error {
	if len(domainEvents) == 0 {
		return nil
	}

	messages := make([]pkgkafka.Message, 0, len(domainEvents))
	for _, evt := range domainEvents {
		msg, err := toMessage(evt)
		if err != nil {
			return err
		}
		messages = append(messages, msg)
	}

	if err := p.producer.Publish(ctx, p.topic, messages...); err != nil {
		return fmt.Errorf("failed to publish %d events to topic %s: %w", len(messages), p.topic, err)
	}
	p.logger.DebugContext(ctx, "published events", "topic", p.topic, "count", len(messages))
	return nil
}

func toMessage(evt events.DomainEvent) (pkgkafka.Message, error) {
	payload, err := events.Encode(evt)
	if err != nil {
		return pkgkafka.Message{}, fmt.Errorf("failed to encode event %s: %w", evt.EventType(), err)
	}
	return pkgkafka.Message{
		Key:   []byte(evt.AggregateID().String()),
		Value: payload,
		Headers: map[string]string{
			HeaderEventType:   evt.EventType(),
			HeaderEventID:     evt.EventID().String(),
			HeaderContentType: "application/json",
		},
	}, nil
}
