package payment

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/razorpay/razorpay-go"

	"github.com/stayhub-wallet-ledger/internal/domain/payment"
	"github.com/stayhub-wallet-ledger/internal/domain/shared"
)

const (
	ProviderRazorpay = "razorpay"

	razorpaySignatureHeader = "X-Razorpay-Signature"
	razorpayEventCaptured   = "payment.captured"
)

// razorpayAPI is the slice of the Razorpay SDK the gateway needs
type razorpayAPI interface {
	CreateOrder(data map[string]interface{}) (map[string]interface{}, error)
	OrderPayments(orderID string) (map[string]interface{}, error)
	CapturePayment(paymentID string, amount int, currency string) (map[string]interface{}, error)
}

type razorpaySDK struct {
	client *razorpay.Client
}

func (s razorpaySDK) CreateOrder(data map[string]interface{}) (map[string]interface{}, error) {
	return s.client.Order.Create(data, nil)
}

func (s razorpaySDK) OrderPayments(orderID string) (map[string]interface{}, error) {
	return s.client.Order.Payments(orderID, nil, nil)
}

func (s razorpaySDK) CapturePayment(paymentID string, amount int, currency string) (map[string]interface{}, error) {
	return s.client.Payment.Capture(paymentID, amount, map[string]interface{}{"currency": currency}, nil)
}

// razorpayPayment mirrors the payment entity in API responses and webhooks
type razorpayPayment struct {
	ID       string            `json:"id"`
	OrderID  string            `json:"order_id"`
	Amount   int64             `json:"amount"`
	Currency string            `json:"currency"`
	Status   string            `json:"status"`
	Email    string            `json:"email"`
	Notes    razorpayNotes     `json:"notes"`
}

// razorpayNotes accepts the empty JSON array Razorpay sends instead of an
// empty object.
type razorpayNotes map[string]string

func (n *razorpayNotes) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '[' {
		*n = razorpayNotes{}
		return nil
	}
	var m map[string]string
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	*n = m
	return nil
}

type razorpayWebhook struct {
	Event   string `json:"event"`
	Payload struct {
		Payment struct {
			Entity razorpayPayment `json:"entity"`
		} `json:"payment"`
	} `json:"payload"`
}

// RazorpayGateway funds top-ups through Razorpay orders. The buyer pays on the
// checkout widget and the authorized payment is captured here.
type RazorpayGateway struct {
	api           razorpayAPI
	keyID         string
	webhookSecret string
	now           func() time.Time
}

func NewRazorpayGateway(keyID, keySecret, webhookSecret string) *RazorpayGateway {
	return &RazorpayGateway{
		api:           razorpaySDK{client: razorpay.NewClient(keyID, keySecret)},
		keyID:         keyID,
		webhookSecret: webhookSecret,
		now:           time.Now,
	}
}

func (r *RazorpayGateway) Name() string {
	return ProviderRazorpay
}

func (r *RazorpayGateway) CreateOrder(_ context.Context, req payment.OrderRequest) (*payment.Order, error) {
	data := map[string]interface{}{
		"amount":   req.Amount,
		"currency": strings.ToUpper(req.Currency),
		"notes":    map[string]interface{}{"user_id": req.UserID, "description": req.Description},
	}

	resp, err := r.api.CreateOrder(data)
	if err != nil {
		return nil, fmt.Errorf("failed to create Razorpay order: %w", err)
	}

	id, _ := resp["id"].(string)
	if id == "" {
		return nil, errors.New("razorpay order response has no id")
	}
	status, _ := resp["status"].(string)

	return &payment.Order{
		ID:        id,
		Provider:  ProviderRazorpay,
		Status:    status,
		ClientKey: r.keyID,
		Amount:    req.Amount,
		Currency:  strings.ToUpper(req.Currency),
	}, nil
}

// CaptureOrder captures the authorized payment of an order. A payment that was
// already captured, for example by auto-capture, is reported as completed.
func (r *RazorpayGateway) CaptureOrder(_ context.Context, orderID string) (*payment.Capture, error) {
	resp, err := r.api.OrderPayments(orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch Razorpay order payments: %w", err)
	}

	var list struct {
		Items []razorpayPayment `json:"items"`
	}
	if err := remarshal(resp, &list); err != nil {
		return nil, fmt.Errorf("failed to decode Razorpay payments: %w", err)
	}

	var candidate *razorpayPayment
	for i := range list.Items {
		p := &list.Items[i]
		if p.Status == "captured" {
			return captureFromRazorpay(p), nil
		}
		if p.Status == "authorized" && candidate == nil {
			candidate = p
		}
	}
	if candidate == nil {
		return &payment.Capture{Status: payment.CaptureStatusPending}, nil
	}

	captured, err := r.api.CapturePayment(candidate.ID, int(candidate.Amount), candidate.Currency)
	if err != nil {
		return nil, fmt.Errorf("failed to capture Razorpay payment: %w", err)
	}

	var p razorpayPayment
	if err := remarshal(captured, &p); err != nil {
		return nil, fmt.Errorf("failed to decode Razorpay capture: %w", err)
	}
	return captureFromRazorpay(&p), nil
}

func captureFromRazorpay(p *razorpayPayment) *payment.Capture {
	return &payment.Capture{
		Status:                normalizeRazorpayStatus(p.Status),
		CapturedAmount:        p.Amount,
		Currency:              strings.ToUpper(p.Currency),
		ProviderTransactionID: p.ID,
		PayerEmail:            p.Email,
		UserID:                p.Notes["user_id"],
	}
}

func normalizeRazorpayStatus(status string) payment.CaptureStatus {
	switch status {
	case "captured":
		return payment.CaptureStatusCompleted
	case "created", "authorized":
		return payment.CaptureStatusPending
	default:
		return payment.CaptureStatusFailed
	}
}

// ParseWebhook checks the HMAC-SHA256 signature and extracts a captured payment
func (r *RazorpayGateway) ParseWebhook(payload []byte, headers http.Header) (*shared.CaptureNotification, error) {
	if !r.validSignature(payload, headers.Get(razorpaySignatureHeader)) {
		return nil, payment.ErrInvalidWebhookSignature
	}

	var evt razorpayWebhook
	if err := json.Unmarshal(payload, &evt); err != nil {
		return nil, fmt.Errorf("failed to decode Razorpay webhook: %w", err)
	}
	if evt.Event != razorpayEventCaptured {
		return nil, payment.ErrIgnoredWebhookEvent
	}

	p := evt.Payload.Payment.Entity
	capture := captureFromRazorpay(&p)
	return &shared.CaptureNotification{
		Provider:              ProviderRazorpay,
		OrderID:               p.OrderID,
		ProviderTransactionID: capture.ProviderTransactionID,
		UserID:                capture.UserID,
		Amount:                capture.CapturedAmount,
		Currency:              capture.Currency,
		PayerEmail:            capture.PayerEmail,
		Status:                string(capture.Status),
		ReceivedAt:            r.now().UTC(),
	}, nil
}

func (r *RazorpayGateway) validSignature(payload []byte, signature string) bool {
	if r.webhookSecret == "" || signature == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(r.webhookSecret))
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(signature), []byte(expected))
}

// remarshal converts the SDK's generic maps into typed structs
func remarshal(in map[string]interface{}, out interface{}) error {
	raw, err := json.Marshal(in)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, out)
}
