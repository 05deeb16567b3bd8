package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/stayhub-wallet-ledger/internal/domain/shared"
	"github.com/stayhub-wallet-ledger/internal/metrics"
	"github.com/stayhub-wallet-ledger/internal/platform/messaging/producers"
	"github.com/stayhub-wallet-ledger/internal/transaction_processor/service"
)

// CaptureEventHandler handles capture notifications consumed from Kafka
type CaptureEventHandler struct {
	processor service.CaptureProcessor
	producer  producers.DeadLetterPublisher
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

func NewCaptureEventHandler(
	logger *slog.Logger,
	processor service.CaptureProcessor,
	producer producers.DeadLetterPublisher,
	m *metrics.Metrics,
) *CaptureEventHandler {
	return &CaptureEventHandler{
		processor: processor,
		producer:  producer,
		metrics:   m,
		logger:    logger,
	}
}

// HandleMessage returns nil once the message is applied, rejected or parked
// in the DLQ. Any other error leaves the offset uncommitted.
func (h *CaptureEventHandler) HandleMessage(ctx context.Context, key []byte, value []byte) error {
	var notification shared.CaptureNotification
	if err := json.Unmarshal(value, &notification); err != nil {
		h.logger.Error("Failed to unmarshal capture notification from Kafka message",
			"error", err,
			"message_key", string(key),
		)
		h.metrics.ObserveCaptureNotification("unknown", metrics.OutcomeRejected)
		return h.park(ctx, key, value, fmt.Sprintf("unparseable capture notification: %s", err.Error()))
	}

	logger := h.logger
	if notification.CorrelationID != "" {
		logger = h.logger.With("correlation_id", notification.CorrelationID)
	}

	logger.Info("Received capture notification",
		"provider", notification.Provider,
		"provider_transaction_id", notification.ProviderTransactionID,
		"user_id", notification.UserID,
		"amount", notification.Amount,
	)

	err := h.processor.ProcessCapture(ctx, &notification)
	if errors.Is(err, shared.ErrInvalidNotification) {
		return h.park(ctx, key, value, err.Error())
	}
	if err != nil {
		logger.Error("Failed to process capture notification",
			"provider_transaction_id", notification.ProviderTransactionID,
			"error", err,
		)
		return fmt.Errorf("processing capture %s failed: %w", notification.ProviderTransactionID, err)
	}

	return nil
}

// park moves a message that can never be applied to the DLQ. Without a DLQ
// the message is dropped after logging, since redelivery cannot fix it.
func (h *CaptureEventHandler) park(ctx context.Context, key, value []byte, reason string) error {
	var err error = producers.ErrDLQDisabled
	if h.producer != nil {
		err = h.producer.PublishToDLQ(ctx, string(key), value, reason)
	}
	switch {
	case err == nil:
		h.logger.Info("Published unprocessable capture notification to DLQ", "message_key", string(key), "reason", reason)
		return nil
	case errors.Is(err, producers.ErrDLQDisabled):
		h.logger.Error("Dropping unprocessable capture notification, DLQ disabled",
			"message_key", string(key),
			"reason", reason,
			"payload", string(value),
		)
		return nil
	default:
		h.logger.Error("Failed to publish capture notification to DLQ",
			"dlq_error", err,
			"message_key", string(key),
		)
		return fmt.Errorf("failed to park capture notification: %w", err)
	}
}
