package ingest

import (
	"context"
	"errors"
	"log/slog"

	"github.com/segmentio/kafka-go"

	"wasmdb/internal/domain"
)

// MessageReader is the broker-facing half of the consumer. *kafka.Reader
// satisfies it; tests substitute an in-memory feed.
type MessageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
}

// Inserter is the store-facing half of the consumer.
type Inserter interface {
	Insert(ctx context.Context, fields []string, values []domain.Value) error
}

// NewKafkaReader builds a consumer-group reader for the given topic.
func NewKafkaReader(brokers []string, groupID, topic string) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		GroupID:  groupID,
		Topic:    topic,
		MinBytes: 1,
		MaxBytes: 10 << 20,
	})
}

// Consumer pumps messages from the reader into the inserter. A message that
// fails translation or insertion is logged and skipped; the stream keeps
// flowing.
type Consumer struct {
	reader  MessageReader
	mapping *Mapping
	sink    Inserter
	logger  *slog.Logger
}

// NewConsumer wires a consumer from its collaborators.
func NewConsumer(reader MessageReader, mapping *Mapping, sink Inserter, logger *slog.Logger) *Consumer {
	return &Consumer{
		reader:  reader,
		mapping: mapping,
		sink:    sink,
		logger:  logger.With("component", "ingest"),
	}
}

// Run consumes until ctx is canceled. Cancellation is a clean stop, not an
// error; a broken broker connection is.
func (c *Consumer) Run(ctx context.Context) error {
	for {
		msg, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || ctx.Err() != nil {
				return nil
			}
			return err
		}

		fields, values, err := c.mapping.Translate(msg.Value)
		if err != nil {
			c.logger.Warn("message dropped", "topic", msg.Topic, "offset", msg.Offset, "error", err)
			continue
		}
		if err := c.sink.Insert(ctx, fields, values); err != nil {
			c.logger.Warn("insert rejected", "topic", msg.Topic, "offset", msg.Offset, "error", err)
			continue
		}
		c.logger.Debug("message ingested", "topic", msg.Topic, "offset", msg.Offset)
	}
}
