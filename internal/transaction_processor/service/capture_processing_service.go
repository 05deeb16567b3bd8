package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/stayhub-wallet-ledger/internal/correlation"
	"github.com/stayhub-wallet-ledger/internal/domain/ledger"
	"github.com/stayhub-wallet-ledger/internal/domain/payment"
	"github.com/stayhub-wallet-ledger/internal/domain/shared"
	ledgerservice "github.com/stayhub-wallet-ledger/internal/ledger_service/service"
	"github.com/stayhub-wallet-ledger/internal/logger"
	"github.com/stayhub-wallet-ledger/internal/metrics"
)

// CaptureProcessingService credits wallets for captures reported by payment
// provider webhooks. Redelivered notifications are no-ops because the top-up
// is keyed by the provider transaction id.
type CaptureProcessingService struct {
	ledger     ledgerservice.LedgerService
	reconciler ledgerservice.CaptureReconciler
	metrics    *metrics.Metrics
	logger     *slog.Logger
}

func NewCaptureProcessingService(
	ledgerSvc ledgerservice.LedgerService,
	reconciler ledgerservice.CaptureReconciler,
	m *metrics.Metrics,
	logger *slog.Logger,
) *CaptureProcessingService {
	return &CaptureProcessingService{
		ledger:     ledgerSvc,
		reconciler: reconciler,
		metrics:    m,
		logger:     logger,
	}
}

// ProcessCapture returns shared.ErrInvalidNotification for malformed input so
// the caller can park it, nil for applied captures and for rejected ones once
// journaled, and an error when the ledger or the journal could not be reached.
func (s *CaptureProcessingService) ProcessCapture(ctx context.Context, n *shared.CaptureNotification) error {
	ctx = correlation.WithID(ctx, n.CorrelationID)
	log := logger.WithCorrelationID(s.logger, n.CorrelationID)

	if err := n.Validate(); err != nil {
		log.Warn("Capture notification failed validation",
			"provider", n.Provider,
			"provider_transaction_id", n.ProviderTransactionID,
			"error", err,
		)
		s.metrics.ObserveCaptureNotification(n.Provider, metrics.OutcomeRejected)
		return err
	}

	if payment.CaptureStatus(strings.ToUpper(n.Status)) != payment.CaptureStatusCompleted {
		log.Info("Ignoring capture notification that is not completed",
			"provider", n.Provider,
			"provider_transaction_id", n.ProviderTransactionID,
			"status", n.Status,
		)
		s.metrics.ObserveCaptureNotification(n.Provider, metrics.OutcomeRejected)
		return nil
	}

	result, err := s.ledger.TopUp(ctx, &ledgerservice.TopUpRequest{
		CallerID:              n.UserID,
		UserID:                n.UserID,
		Amount:                n.Amount,
		Currency:              n.Currency,
		PaymentMethod:         n.Provider,
		ExternalTransactionID: n.ProviderTransactionID,
		CorrelationID:         n.CorrelationID,
	})
	if err != nil {
		if ledger.IsBusinessError(err) {
			// The provider holds the money, so a refusal is journaled rather
			// than dropped. Redelivery cannot change the outcome.
			s.metrics.ObserveCaptureNotification(n.Provider, metrics.OutcomeRejected)
			if recErr := s.journal(ctx, n, err); recErr != nil {
				return fmt.Errorf("journal rejected capture %s: %w", n.ProviderTransactionID, recErr)
			}
			return nil
		}

		s.metrics.ObserveCaptureNotification(n.Provider, metrics.OutcomeError)
		if recErr := s.journal(ctx, n, err); recErr != nil {
			err = errors.Join(err, recErr)
		}
		return fmt.Errorf("top-up for capture %s failed: %w", n.ProviderTransactionID, err)
	}

	s.reconciler.Resolve(ctx, n.ProviderTransactionID)
	s.metrics.ObserveCaptureNotification(n.Provider, metrics.OutcomeSuccess)

	if result.AlreadyApplied {
		log.Info("Capture already credited, acknowledging redelivery",
			"provider_transaction_id", n.ProviderTransactionID,
			"transaction_id", result.Transaction.ID.String(),
		)
		return nil
	}

	log.Info("Capture credited to wallet",
		"provider_transaction_id", n.ProviderTransactionID,
		"transaction_id", result.Transaction.ID.String(),
		"user_id", n.UserID,
		"new_balance", result.NewBalance,
	)
	return nil
}

// journal records a completed capture the ledger did not credit
func (s *CaptureProcessingService) journal(ctx context.Context, n *shared.CaptureNotification, cause error) error {
	return s.reconciler.Record(ctx, &ledger.UnreconciledCapture{
		ExternalTransactionID: n.ProviderTransactionID,
		Provider:              n.Provider,
		OrderID:               n.OrderID,
		UserID:                n.UserID,
		Amount:                n.Amount,
		Currency:              n.Currency,
		PayerEmail:            n.PayerEmail,
		Failure:               cause.Error(),
		CorrelationID:         n.CorrelationID,
		RecordedAt:            time.Now().UTC(),
	})
}
