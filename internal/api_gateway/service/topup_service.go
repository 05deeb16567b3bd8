package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/stayhub-wallet-ledger/internal/domain/ledger"
	"github.com/stayhub-wallet-ledger/internal/domain/payment"
	ledgerservice "github.com/stayhub-wallet-ledger/internal/ledger_service/service"
	"github.com/stayhub-wallet-ledger/internal/logger"
	"github.com/stayhub-wallet-ledger/internal/metrics"
)

// TopUpServiceImpl implements the TopUpService interface
type TopUpServiceImpl struct {
	gateways   GatewayRegistry
	ledger     ledgerservice.LedgerService
	reconciler ledgerservice.CaptureReconciler
	currency   string
	metrics    *metrics.Metrics
	logger     *slog.Logger
}

func NewTopUpService(
	logger *slog.Logger,
	gateways GatewayRegistry,
	ledgerSvc ledgerservice.LedgerService,
	reconciler ledgerservice.CaptureReconciler,
	currency string,
	m *metrics.Metrics,
) TopUpService {
	return &TopUpServiceImpl{
		gateways:   gateways,
		ledger:     ledgerSvc,
		reconciler: reconciler,
		currency:   currency,
		metrics:    m,
		logger:     logger,
	}
}

func (s *TopUpServiceImpl) CreateOrder(ctx context.Context, req *CreateOrderRequest) (*payment.Order, error) {
	if req.UserID == "" {
		return nil, ledger.ErrUnauthorized
	}
	if req.Amount <= 0 {
		return nil, ledger.ErrInvalidAmount
	}
	currency := strings.ToUpper(req.Currency)
	if currency == "" {
		currency = s.currency
	}
	if currency != s.currency {
		return nil, ledger.ErrCurrencyMismatch{WalletCurrency: s.currency, Currency: currency}
	}

	gw, err := s.gateways.Gateway(req.PaymentMethod)
	if err != nil {
		return nil, err
	}

	description := req.Description
	if description == "" {
		description = "Wallet top-up"
	}

	order, err := gw.CreateOrder(ctx, payment.OrderRequest{
		Amount:      req.Amount,
		Currency:    currency,
		UserID:      req.UserID,
		Description: description,
	})
	if err != nil {
		s.metrics.ObserveGatewayRequest(gw.Name(), "create_order", metrics.OutcomeError)
		s.logger.Error("Payment provider refused order",
			"provider", gw.Name(),
			"user_id", req.UserID,
			"amount", req.Amount,
			"error", err,
		)
		return nil, fmt.Errorf("%w: %v", ledger.ErrGatewayFailure, err)
	}
	s.metrics.ObserveGatewayRequest(gw.Name(), "create_order", metrics.OutcomeSuccess)

	s.logger.Info("Top-up order created",
		"provider", gw.Name(),
		"order_id", order.ID,
		"user_id", req.UserID,
		"amount", req.Amount,
	)
	return order, nil
}

func (s *TopUpServiceImpl) CaptureOrder(ctx context.Context, req *CaptureOrderRequest) (*ledgerservice.TopUpResult, error) {
	log := logger.WithCorrelationID(s.logger, req.CorrelationID)

	if req.UserID == "" {
		return nil, ledger.ErrUnauthorized
	}
	if req.OrderID == "" {
		return nil, ledger.ErrMissingExternalReference
	}

	gw, err := s.gateways.Gateway(req.PaymentMethod)
	if err != nil {
		return nil, err
	}

	capture, err := gw.CaptureOrder(ctx, req.OrderID)
	if errors.Is(err, payment.ErrCaptureUnconfirmed) {
		s.metrics.ObserveGatewayRequest(gw.Name(), "capture_order", metrics.OutcomeError)
		// The capture id is unknown, so the order id keys the journal entry
		return nil, s.journal(ctx, err, &ledger.UnreconciledCapture{
			ExternalTransactionID: req.OrderID,
			Provider:              gw.Name(),
			OrderID:               req.OrderID,
			UserID:                req.UserID,
			Failure:               err.Error(),
			CorrelationID:         req.CorrelationID,
		})
	}
	if err != nil {
		s.metrics.ObserveGatewayRequest(gw.Name(), "capture_order", metrics.OutcomeError)
		log.Error("Payment capture failed",
			"provider", gw.Name(),
			"order_id", req.OrderID,
			"error", err,
		)
		return nil, fmt.Errorf("%w: %v", ledger.ErrGatewayFailure, err)
	}
	if !capture.Completed() {
		s.metrics.ObserveGatewayRequest(gw.Name(), "capture_order", metrics.OutcomeRejected)
		log.Warn("Payment capture not completed",
			"provider", gw.Name(),
			"order_id", req.OrderID,
			"status", string(capture.Status),
		)
		return nil, fmt.Errorf("%w: capture status %s", ledger.ErrGatewayFailure, capture.Status)
	}
	s.metrics.ObserveGatewayRequest(gw.Name(), "capture_order", metrics.OutcomeSuccess)

	captured := &ledger.UnreconciledCapture{
		ExternalTransactionID: capture.ProviderTransactionID,
		Provider:              gw.Name(),
		OrderID:               req.OrderID,
		UserID:                req.UserID,
		Amount:                capture.CapturedAmount,
		Currency:              capture.Currency,
		PayerEmail:            capture.PayerEmail,
		CorrelationID:         req.CorrelationID,
	}

	// Only some providers echo the order owner. The money is the owner's, so
	// it is journaled for them while the caller is refused.
	if capture.UserID != "" && capture.UserID != req.UserID {
		log.Warn("Captured order belongs to another user",
			"provider", gw.Name(),
			"order_id", req.OrderID,
			"caller_id", req.UserID,
			"owner_id", capture.UserID,
		)
		captured.UserID = capture.UserID
		captured.Failure = fmt.Sprintf("order captured by user %s on behalf of owner", req.UserID)
		if recErr := s.reconciler.Record(ctx, captured); recErr != nil {
			return nil, errors.Join(ledger.ErrUnauthorized, recErr)
		}
		return nil, ledger.ErrUnauthorized
	}

	result, err := s.ledger.TopUp(ctx, &ledgerservice.TopUpRequest{
		CallerID:              req.UserID,
		UserID:                req.UserID,
		Amount:                capture.CapturedAmount,
		Currency:              capture.Currency,
		PaymentMethod:         gw.Name(),
		ExternalTransactionID: capture.ProviderTransactionID,
		CorrelationID:         req.CorrelationID,
	})
	if err == nil {
		s.reconciler.Resolve(ctx, capture.ProviderTransactionID)
		return result, nil
	}

	captured.Failure = err.Error()
	return nil, s.journal(ctx, err, captured)
}

// journal records a capture the ledger did not credit. Business rejections
// are journaled too, since the provider already holds the money.
func (s *TopUpServiceImpl) journal(ctx context.Context, cause error, captured *ledger.UnreconciledCapture) error {
	if recErr := s.reconciler.Record(ctx, captured); recErr != nil {
		cause = errors.Join(cause, recErr)
	}
	return errors.Join(ledger.ErrReconciliationRequired, cause)
}
