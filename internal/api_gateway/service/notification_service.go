package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/stayhub-wallet-ledger/internal/correlation"
	"github.com/stayhub-wallet-ledger/internal/domain/payment"
	"github.com/stayhub-wallet-ledger/internal/platform/messaging/producers"
)

// NotificationServiceImpl implements the NotificationService interface
type NotificationServiceImpl struct {
	gateways GatewayRegistry
	producer producers.MessagePublisher
	logger   *slog.Logger
	now      func() time.Time
}

func NewNotificationService(logger *slog.Logger, gateways GatewayRegistry, producer producers.MessagePublisher) NotificationService {
	return &NotificationServiceImpl{
		gateways: gateways,
		producer: producer,
		logger:   logger,
		now:      time.Now,
	}
}

// HandleWebhook verifies the callback and publishes the capture it reports,
// keyed by provider transaction id. Events that report no completed capture
// are acknowledged without publishing.
func (s *NotificationServiceImpl) HandleWebhook(ctx context.Context, provider string, payload []byte, headers http.Header) error {
	verifier, err := s.gateways.Verifier(provider)
	if err != nil {
		return err
	}

	notification, err := verifier.ParseWebhook(payload, headers)
	if errors.Is(err, payment.ErrIgnoredWebhookEvent) {
		s.logger.Debug("Ignoring webhook event", "provider", provider, "reason", err)
		return nil
	}
	if err != nil {
		s.logger.Warn("Rejected webhook", "provider", provider, "error", err)
		return err
	}

	if notification.Provider == "" {
		notification.Provider = provider
	}
	if notification.CorrelationID == "" {
		notification.CorrelationID = correlation.FromContext(ctx)
	}
	notification.ReceivedAt = s.now().UTC()

	if err := s.producer.Publish(ctx, notification.ProviderTransactionID, notification); err != nil {
		s.logger.Error("Failed to publish capture notification",
			"provider", provider,
			"provider_transaction_id", notification.ProviderTransactionID,
			"correlation_id", notification.CorrelationID,
			"error", err,
		)
		return fmt.Errorf("failed to queue capture notification: %w", err)
	}

	s.logger.Info("Capture notification queued",
		"provider", provider,
		"provider_transaction_id", notification.ProviderTransactionID,
		"user_id", notification.UserID,
		"amount", notification.Amount,
		"correlation_id", notification.CorrelationID,
	)
	return nil
}
