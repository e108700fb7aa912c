package broker

import (
	"context"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/jmelendez07/MathG/internal/event"
)

// deliveryConfirmTimeout bounds how long a publish waits for broker
// acknowledgement. Losing audit events silently is worse than delaying the
// async worker a few seconds.
const deliveryConfirmTimeout = 10 * time.Second

// Publisher serializes activity events and publishes them to a Kafka topic
// under a partition key, confirming delivery before the task completes.
type Publisher struct {
	writer *kafka.Writer
}

// NewPublisher builds a publisher from the supplied config.
func NewPublisher(cfg Config) (*Publisher, error) {
	transport, err := cfg.transport()
	if err != nil {
		return nil, err
	}
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
		RequiredAcks:           kafka.RequireAll,
		WriteTimeout:           cfg.MessageTimeout,
		ReadTimeout:            cfg.RequestTimeout,
		MaxAttempts:            cfg.MaxRetries,
		WriteBackoffMin:        cfg.RetryBackoff,
		WriteBackoffMax:        cfg.RetryBackoff,
		Transport:              transport,
	}
	return &Publisher{writer: writer}, nil
}

// Publish sends one event and blocks until it is acknowledged or the
// delivery bound expires. Retries beyond the writer's internal budget are
// the caller's decision, not ours.
func (p *Publisher) Publish(ctx context.Context, topic, key string, ev event.ActivityEvent) error {
	payload, err := ev.MarshalWire()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, deliveryConfirmTimeout)
	defer cancel()

	return p.writer.WriteMessages(ctx, kafka.Message{
		Topic: topic,
		Key:   []byte(key),
		Value: payload,
	})
}

// Close closes the underlying writer connection.
func (p *Publisher) Close() error {
	return p.writer.Close()
}
