package service

import (
	"context"
	"net/http"

	"github.com/stayhub-wallet-ledger/internal/domain/payment"
	ledgerservice "github.com/stayhub-wallet-ledger/internal/ledger_service/service"
)

// TopUpService funds wallets through a payment capture gateway
type TopUpService interface {
	// CreateOrder opens a provider order the buyer approves out of band
	CreateOrder(ctx context.Context, req *CreateOrderRequest) (*payment.Order, error)

	// CaptureOrder captures an approved order and credits the caller's wallet.
	// Returns ledger.ErrGatewayFailure when the provider did not complete the
	// capture and ledger.ErrReconciliationRequired when the money was captured
	// but could not be credited.
	CaptureOrder(ctx context.Context, req *CaptureOrderRequest) (*ledgerservice.TopUpResult, error)
}

// NotificationService accepts provider webhooks and queues the captures they
// report for the transaction processor.
type NotificationService interface {
	HandleWebhook(ctx context.Context, provider string, payload []byte, headers http.Header) error
}

// GatewayRegistry resolves configured payment providers
type GatewayRegistry interface {
	Gateway(method string) (payment.Gateway, error)
	Verifier(provider string) (payment.WebhookVerifier, error)
}

type CreateOrderRequest struct {
	UserID        string
	Amount        int64
	Currency      string
	PaymentMethod string
	Description   string
}

type CaptureOrderRequest struct {
	UserID        string
	PaymentMethod string
	OrderID       string
	CorrelationID string
}
