package producers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/segmentio/kafka-go"

	"github.com/stayhub-wallet-ledger/internal/config"
)

// TopicProducer publishes JSON messages to a single topic. Writes are
// synchronous and acknowledged by all in-sync replicas, so a nil error means
// the message is durable.
type TopicProducer struct {
	logger *slog.Logger
	writer KafkaWriter
	topic  string
}

// NewTopicProducer creates a producer for topic and ensures the topic exists
func NewTopicProducer(_ context.Context, logger *slog.Logger, cfg *config.KafkaConfig, topic string) (*TopicProducer, error) {
	if topic == "" {
		return nil, fmt.Errorf("kafka topic is not configured")
	}

	if err := provisionTopic(logger, cfg, topic); err != nil {
		return nil, fmt.Errorf("failed to ensure topic %s exists: %w", topic, err)
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		Async:        false,
		WriteTimeout: cfg.MaxWait,
	}

	return &TopicProducer{
		logger: logger,
		writer: writer,
		topic:  topic,
	}, nil
}

// Publish writes value as JSON. Messages sharing a key land on the same
// partition and keep their relative order.
func (p *TopicProducer) Publish(ctx context.Context, key string, value interface{}) error {
	jsonValue, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal message value for topic %s: %w", p.topic, err)
	}

	msg := kafka.Message{
		Key:     []byte(key),
		Value:   jsonValue,
		Headers: headersFromContext(ctx),
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.Error("Failed to publish message",
			"topic", p.topic,
			"key", key,
			"error", err,
		)
		return fmt.Errorf("failed to publish message to %s: %w", p.topic, err)
	}

	p.logger.Debug("Published message",
		"topic", p.topic,
		"key", key,
	)
	return nil
}

func (p *TopicProducer) Close() error {
	p.logger.Info("Closing Kafka message producer", "topic", p.topic)
	if err := p.writer.Close(); err != nil {
		return fmt.Errorf("failed to close kafka writer for topic %s: %w", p.topic, err)
	}
	return nil
}
