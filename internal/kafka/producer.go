// Package kafka publishes ingestion events for downstream consumers.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/fincore/warehouse/internal/models"
)

// Producer handles publishing filing events to Kafka
type Producer struct {
	writer *kafka.Writer
	topic  string
}

// NewProducer creates a new Kafka producer
func NewProducer(brokers []string, topic string) *Producer {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		BatchTimeout: 10 * time.Millisecond,
	}

	return &Producer{
		writer: writer,
		topic:  topic,
	}
}

// PublishItem publishes one ingestion item result as a filing event.
func (p *Producer) PublishItem(ctx context.Context, backend string, item models.IngestItem) error {
	eventType := models.EventFilingFailed
	switch item.Status {
	case models.StatusIngested:
		eventType = models.EventFilingIngested
	case models.StatusSkipped:
		eventType = models.EventFilingSkipped
	}

	event := models.FilingEvent{
		EventType: eventType,
		Ticker:    item.Ticker,
		Backend:   backend,
		Record:    item.Record,
		Message:   item.Message,
		Timestamp: time.Now(),
	}
	return p.publish(ctx, item.Ticker, event)
}

func (p *Producer) publish(ctx context.Context, key string, event models.FilingEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(key),
		Value: data,
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to write message to kafka: %w", err)
	}

	return nil
}

// Close closes the Kafka producer
func (p *Producer) Close() error {
	return p.writer.Close()
}
