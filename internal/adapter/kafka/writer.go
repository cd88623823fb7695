// Package kafka adapts the events topic to the pipeline's extractor and
// publisher interfaces.
package kafka

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hazardwatch/disaster-etl/internal/config"
	"github.com/hazardwatch/disaster-etl/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
)

// Writer produces canonical events to the events topic.
// It implements ingest.Publisher.
type Writer struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured events topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaEventsTopic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Writer{writer: w, logger: logger}
}

// Publish serializes one event and writes it with event_id as the message
// key, so replays of the same provider record land on the same partition.
func (w *Writer) Publish(ctx context.Context, event domain.DisasterEvent) error {
	msg, err := serializeToMessage(event)
	if err != nil {
		return err
	}
	return w.writer.WriteMessages(ctx, msg)
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals a DisasterEvent into a Kafka message.
func serializeToMessage(event domain.DisasterEvent) (kafkago.Message, error) {
	data, err := domain.EncodeEvent(event)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize disaster event: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(event.EventID),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "event_type", Value: []byte(event.EventType)},
			{Key: "source", Value: []byte(event.Source)},
		},
	}, nil
}
