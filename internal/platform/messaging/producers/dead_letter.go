package producers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/stayhub-wallet-ledger/internal/config"
)

var ErrDLQDisabled = errors.New("DLQ producer not initialized")

type DLQProducer struct {
	logger   *slog.Logger
	writer   KafkaWriter
	dlqTopic string
}

// Returns nil producer if cfg.DLQTopic is empty (DLQ disabled)
func NewDLQProducer(_ context.Context, logger *slog.Logger, cfg *config.KafkaConfig) (*DLQProducer, error) {
	if cfg.DLQTopic == "" {
		logger.Info("DLQ topic is not configured. DLQProducer will not be initialized.")
		return nil, nil
	}

	if err := provisionTopic(logger, cfg, cfg.DLQTopic); err != nil {
		return nil, fmt.Errorf("failed to ensure DLQ topic %s exists: %w", cfg.DLQTopic, err)
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers),
		Topic:        cfg.DLQTopic,
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireAll,
		Async:        false,
		WriteTimeout: cfg.MaxWait,
	}

	return &DLQProducer{
		logger:   logger,
		writer:   writer,
		dlqTopic: cfg.DLQTopic,
	}, nil
}

// DeadLetter is the record written to the DLQ topic. Payloads that are
// valid JSON are embedded as-is; anything else is kept verbatim in RawValue.
type DeadLetter struct {
	Key      string          `json:"original_key"`
	Value    json.RawMessage `json:"original_value,omitempty"`
	RawValue string          `json:"original_value_raw,omitempty"`
	Reason   string          `json:"dlq_reason"`
	ParkedAt time.Time       `json:"parked_at"`
}

func newDeadLetter(key string, original []byte, reason string, at time.Time) DeadLetter {
	dl := DeadLetter{Key: key, Reason: reason, ParkedAt: at.UTC()}
	if json.Valid(original) {
		dl.Value = json.RawMessage(original)
	} else {
		dl.RawValue = string(original)
	}
	return dl
}

// PublishToDLQ parks a message that can never be applied. A nil producer
// means the DLQ is disabled and returns ErrDLQDisabled.
func (p *DLQProducer) PublishToDLQ(ctx context.Context, key string, originalMessageValue []byte, reason string) error {
	if p == nil || p.writer == nil {
		return ErrDLQDisabled
	}

	value, err := json.Marshal(newDeadLetter(key, originalMessageValue, reason, time.Now()))
	if err != nil {
		return fmt.Errorf("failed to marshal DLQ message: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(key),
		Value: value,
		Headers: append([]kafka.Header{
			{Key: "dlq-reason", Value: []byte(reason)},
		}, headersFromContext(ctx)...),
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.Error("Failed to publish message to DLQ",
			"topic", p.dlqTopic,
			"key", key,
			"error", err,
		)
		return fmt.Errorf("failed to publish message to DLQ %s: %w", p.dlqTopic, err)
	}

	p.logger.Warn("Published message to DLQ",
		"topic", p.dlqTopic,
		"key", key,
		"reason", reason,
	)
	return nil
}

func (p *DLQProducer) Close() error {
	if p == nil || p.writer == nil {
		return nil
	}
	p.logger.Info("Closing DLQ Kafka message producer", "topic", p.dlqTopic)
	if err := p.writer.Close(); err != nil {
		return fmt.Errorf("failed to close dlq kafka writer for topic %s: %w", p.dlqTopic, err)
	}
	return nil
}
