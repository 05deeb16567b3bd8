// Package payment describes the external payment capture gateways used to
// fund wallet top-ups.
package payment

import (
	"context"
	"errors"
	"net/http"

	"github.com/stayhub-wallet-ledger/internal/domain/shared"
)

// CaptureStatus is the provider-neutral outcome of a capture
type CaptureStatus string

const (
	CaptureStatusCompleted CaptureStatus = "COMPLETED"
	CaptureStatusPending   CaptureStatus = "PENDING"
	CaptureStatusFailed    CaptureStatus = "FAILED"
)

var (
	ErrUnsupportedPaymentMethod = errors.New("unsupported payment method")
	ErrInvalidWebhookSignature  = errors.New("invalid webhook signature")
	ErrIgnoredWebhookEvent      = errors.New("webhook event ignored")

	// ErrCaptureUnconfirmed means the provider accepted the capture call but
	// its response could not be read, so money may have moved.
	ErrCaptureUnconfirmed = errors.New("capture accepted by provider but response unreadable")
)

// OrderRequest asks a provider to open a payment for the given amount
type OrderRequest struct {
	Amount      int64 // Minor units
	Currency    string
	UserID      string
	Description string
}

// Order is a provider-side payment awaiting buyer approval and capture
type Order struct {
	ID          string `json:"id"`
	Provider    string `json:"provider"`
	Status      string `json:"status"`
	ApprovalURL string `json:"approval_url,omitempty"` // PayPal
	ClientKey   string `json:"client_key,omitempty"`   // Stripe client secret, Razorpay key id
	Amount      int64  `json:"amount"`
	Currency    string `json:"currency"`
}

// Capture is the result of finalizing an order
type Capture struct {
	Status                CaptureStatus
	CapturedAmount        int64 // Minor units
	Currency              string
	ProviderTransactionID string
	PayerEmail            string
	UserID                string // Echoed from order metadata when the provider supports it
}

// Completed reports whether the ledger may credit this capture
func (c *Capture) Completed() bool {
	return c.Status == CaptureStatusCompleted
}

// Gateway is a third-party service that authorizes and captures a payment
type Gateway interface {
	Name() string
	CreateOrder(ctx context.Context, req OrderRequest) (*Order, error)
	CaptureOrder(ctx context.Context, orderID string) (*Capture, error)
}

// WebhookVerifier authenticates a provider callback and extracts the capture it reports.
// Events that do not report a completed capture return ErrIgnoredWebhookEvent.
type WebhookVerifier interface {
	ParseWebhook(payload []byte, headers http.Header) (*shared.CaptureNotification, error)
}
