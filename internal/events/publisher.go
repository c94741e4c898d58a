// Package events streams audit events to Kafka for external consumers.
package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/segmentio/kafka-go"

	"github.com/kioskbot/kiosk/internal/audit"
)

// Publisher abstracts the event sink so tests can swap in a channel-backed
// implementation.
type Publisher interface {
	Publish(ctx context.Context, ev audit.Event) error
	Close() error
}

// KafkaPublisher writes audit events to a Kafka topic as JSON, keyed by
// event type so consumers can partition on it.
type KafkaPublisher struct {
	writer *kafka.Writer
}

// NewKafkaPublisher creates a publisher for the given brokers and topic.
func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:     kafka.TCP(brokers...),
			Topic:    topic,
			Balancer: &kafka.LeastBytes{},
		},
	}
}

// Publish sends one event.
func (p *KafkaPublisher) Publish(ctx context.Context, ev audit.Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal audit event: %w", err)
	}
	if err := p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(ev.EventType),
		Value: payload,
	}); err != nil {
		return fmt.Errorf("write audit event: %w", err)
	}
	return nil
}

// Close flushes and closes the writer.
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// ChannelPublisher delivers events to an in-process channel. Tests use it to
// observe the event stream without a broker.
type ChannelPublisher struct {
	Events chan audit.Event
}

// NewChannelPublisher creates a channel publisher with the given buffer.
func NewChannelPublisher(buffer int) *ChannelPublisher {
	return &ChannelPublisher{Events: make(chan audit.Event, buffer)}
}

// Publish delivers the event or fails when the buffer is full.
func (p *ChannelPublisher) Publish(_ context.Context, ev audit.Event) error {
	select {
	case p.Events <- ev:
		return nil
	default:
		return fmt.Errorf("event buffer full")
	}
}

// Close closes the channel.
func (p *ChannelPublisher) Close() error {
	close(p.Events)
	return nil
}
