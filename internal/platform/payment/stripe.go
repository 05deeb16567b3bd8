package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"github.com/stripe/stripe-go/v76/webhook"

	"github.com/stayhub-wallet-ledger/internal/domain/payment"
	"github.com/stayhub-wallet-ledger/internal/domain/shared"
)

const (
	ProviderStripe = "stripe"

	stripeSignatureHeader    = "Stripe-Signature"
	stripeEventIntentSucceed = "payment_intent.succeeded"
	stripeUserMetadataKey    = "user_id"
)

// StripeGateway funds top-ups through manually captured PaymentIntents
type StripeGateway struct {
	client        *client.API
	webhookSecret string
	now           func() time.Time
}

// NewStripeGateway builds the adapter. A nil backends value uses Stripe's
// production endpoints.
func NewStripeGateway(secretKey, webhookSecret string, backends *stripe.Backends) *StripeGateway {
	sc := &client.API{}
	sc.Init(secretKey, backends)

	return &StripeGateway{
		client:        sc,
		webhookSecret: webhookSecret,
		now:           time.Now,
	}
}

func (s *StripeGateway) Name() string {
	return ProviderStripe
}

// CreateOrder creates a PaymentIntent the client confirms with the returned secret
func (s *StripeGateway) CreateOrder(ctx context.Context, req payment.OrderRequest) (*payment.Order, error) {
	params := &stripe.PaymentIntentParams{
		Amount:        stripe.Int64(req.Amount),
		Currency:      stripe.String(strings.ToLower(req.Currency)),
		CaptureMethod: stripe.String(string(stripe.PaymentIntentCaptureMethodManual)),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	if req.Description != "" {
		params.Description = stripe.String(req.Description)
	}
	params.AddMetadata(stripeUserMetadataKey, req.UserID)
	params.Context = ctx

	pi, err := s.client.PaymentIntents.New(params)
	if err != nil {
		return nil, fmt.Errorf("failed to create payment intent: %w", err)
	}

	return &payment.Order{
		ID:        pi.ID,
		Provider:  ProviderStripe,
		Status:    string(pi.Status),
		ClientKey: pi.ClientSecret,
		Amount:    pi.Amount,
		Currency:  strings.ToUpper(string(pi.Currency)),
	}, nil
}

// CaptureOrder captures an authorized PaymentIntent. The intent id is the
// external reference so webhook and API captures deduplicate.
func (s *StripeGateway) CaptureOrder(ctx context.Context, orderID string) (*payment.Capture, error) {
	params := &stripe.PaymentIntentCaptureParams{}
	params.Context = ctx

	pi, err := s.client.PaymentIntents.Capture(orderID, params)
	if err != nil {
		return nil, fmt.Errorf("failed to capture payment intent: %w", err)
	}

	return captureFromIntent(pi), nil
}

func captureFromIntent(pi *stripe.PaymentIntent) *payment.Capture {
	return &payment.Capture{
		Status:                normalizeStripeStatus(pi.Status),
		CapturedAmount:        pi.AmountReceived,
		Currency:              strings.ToUpper(string(pi.Currency)),
		ProviderTransactionID: pi.ID,
		PayerEmail:            pi.ReceiptEmail,
		UserID:                pi.Metadata[stripeUserMetadataKey],
	}
}

func normalizeStripeStatus(status stripe.PaymentIntentStatus) payment.CaptureStatus {
	switch status {
	case stripe.PaymentIntentStatusSucceeded:
		return payment.CaptureStatusCompleted
	case stripe.PaymentIntentStatusProcessing, stripe.PaymentIntentStatusRequiresCapture:
		return payment.CaptureStatusPending
	default:
		return payment.CaptureStatusFailed
	}
}

// ParseWebhook verifies the Stripe-Signature header and extracts a succeeded
// PaymentIntent.
func (s *StripeGateway) ParseWebhook(payload []byte, headers http.Header) (*shared.CaptureNotification, error) {
	event, err := webhook.ConstructEventWithOptions(payload, headers.Get(stripeSignatureHeader), s.webhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", payment.ErrInvalidWebhookSignature, err)
	}

	if string(event.Type) != stripeEventIntentSucceed {
		return nil, payment.ErrIgnoredWebhookEvent
	}

	var pi stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
		return nil, fmt.Errorf("failed to decode payment intent: %w", err)
	}

	capture := captureFromIntent(&pi)
	return &shared.CaptureNotification{
		Provider:              ProviderStripe,
		OrderID:               pi.ID,
		ProviderTransactionID: capture.ProviderTransactionID,
		UserID:                capture.UserID,
		Amount:                capture.CapturedAmount,
		Currency:              capture.Currency,
		PayerEmail:            capture.PayerEmail,
		Status:                string(capture.Status),
		ReceivedAt:            s.now().UTC(),
	}, nil
}
