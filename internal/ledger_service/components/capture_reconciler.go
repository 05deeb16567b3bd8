package components

import (
	"context"
	"log/slog"
	"time"

	"github.com/stayhub-wallet-ledger/internal/domain/ledger"
	"github.com/stayhub-wallet-ledger/internal/ledger_service/service"
	"github.com/stayhub-wallet-ledger/internal/logger"
)

type CaptureReconcilerImpl struct {
	repo      ledger.ReconciliationRepository
	validator service.RequestValidator
	logger    *slog.Logger
	now       func() time.Time
}

func NewCaptureReconciler(repo ledger.ReconciliationRepository, validator service.RequestValidator, logger *slog.Logger) service.CaptureReconciler {
	return &CaptureReconcilerImpl{
		repo:      repo,
		validator: validator,
		logger:    logger,
		now:       time.Now,
	}
}

// Record logs the captured payment at ERROR with every detail needed to
// credit it by hand, then journals it. The log line is written even when the
// journal is unreachable.
func (r *CaptureReconcilerImpl) Record(ctx context.Context, capture *ledger.UnreconciledCapture) error {
	if capture.RecordedAt.IsZero() {
		capture.RecordedAt = r.now()
	}

	log := logger.WithCorrelationID(r.logger, capture.CorrelationID)
	log.Error("Payment captured but not credited to wallet",
		"external_transaction_id", capture.ExternalTransactionID,
		"provider", capture.Provider,
		"order_id", capture.OrderID,
		"user_id", capture.UserID,
		"amount", capture.Amount,
		"currency", capture.Currency,
		"payer_email", capture.PayerEmail,
		"failure", capture.Failure,
	)

	if err := r.repo.Record(ctx, capture); err != nil {
		log.Error("Failed to journal unreconciled capture",
			"external_transaction_id", capture.ExternalTransactionID,
			"error", err,
		)
		return err
	}
	return nil
}

// Resolve closes the journal entry for a capture that has now been credited.
// Failures are logged only; the entry stays open for manual review.
func (r *CaptureReconcilerImpl) Resolve(ctx context.Context, externalTransactionID string) {
	resolved, err := r.repo.Resolve(ctx, externalTransactionID)
	if err != nil {
		r.logger.Warn("Failed to resolve unreconciled capture", "external_transaction_id", externalTransactionID, "error", err)
		return
	}
	if resolved {
		r.logger.Info("Unreconciled capture resolved", "external_transaction_id", externalTransactionID)
	}
}

// ListOpen returns the oldest captures still waiting for a credit. Only
// administrators may read the journal.
func (r *CaptureReconcilerImpl) ListOpen(ctx context.Context, callerID string, limit int) ([]*ledger.UnreconciledCapture, error) {
	if err := r.validator.RequireAdmin(ctx, callerID); err != nil {
		return nil, err
	}
	if limit < 1 || limit > service.MaxPerPage {
		limit = service.MaxPerPage
	}
	captures, err := r.repo.ListOpen(ctx, limit)
	if err != nil {
		return nil, ledger.NewStoreError("list unreconciled captures", err)
	}
	return captures, nil
}
