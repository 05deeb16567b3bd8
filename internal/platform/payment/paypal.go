package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/stayhub-wallet-ledger/internal/config"
	"github.com/stayhub-wallet-ledger/internal/domain/payment"
)

const (
	ProviderPayPal = "paypal"

	payPalSandboxURL = "https://api-m.sandbox.paypal.com"
	payPalLiveURL    = "https://api-m.paypal.com"
)

// errUnreadableResponse is a 2xx reply whose body could not be decoded
var errUnreadableResponse = errors.New("unreadable PayPal response")

type payPalToken struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

type payPalAmount struct {
	CurrencyCode string `json:"currency_code"`
	Value        string `json:"value"`
}

type payPalPurchaseUnit struct {
	Amount      payPalAmount `json:"amount"`
	Description string       `json:"description,omitempty"`
	CustomID    string       `json:"custom_id,omitempty"`
}

type payPalOrderRequest struct {
	Intent        string               `json:"intent"`
	PurchaseUnits []payPalPurchaseUnit `json:"purchase_units"`
}

type payPalLink struct {
	Href string `json:"href"`
	Rel  string `json:"rel"`
}

type payPalOrderResponse struct {
	ID     string       `json:"id"`
	Status string       `json:"status"`
	Links  []payPalLink `json:"links"`
}

type payPalCapture struct {
	ID       string       `json:"id"`
	Status   string       `json:"status"`
	Amount   payPalAmount `json:"amount"`
	CustomID string       `json:"custom_id"`
}

type payPalCaptureResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Payer  struct {
		EmailAddress string `json:"email_address"`
	} `json:"payer"`
	PurchaseUnits []struct {
		CustomID string `json:"custom_id"`
		Payments struct {
			Captures []payPalCapture `json:"captures"`
		} `json:"payments"`
	} `json:"purchase_units"`
}

// PayPalGateway talks to the PayPal Orders v2 REST API
type PayPalGateway struct {
	clientID     string
	clientSecret string
	baseURL      string
	httpClient   *http.Client

	mu          sync.Mutex
	token       string
	tokenExpiry time.Time
}

func NewPayPalGateway(cfg config.PayPalConfig, timeout time.Duration) *PayPalGateway {
	baseURL := payPalLiveURL
	if cfg.Sandbox {
		baseURL = payPalSandboxURL
	}
	return newPayPalGateway(cfg.ClientID, cfg.ClientSecret, baseURL, &http.Client{Timeout: timeout})
}

func newPayPalGateway(clientID, clientSecret, baseURL string, httpClient *http.Client) *PayPalGateway {
	return &PayPalGateway{
		clientID:     clientID,
		clientSecret: clientSecret,
		baseURL:      strings.TrimRight(baseURL, "/"),
		httpClient:   httpClient,
	}
}

func (p *PayPalGateway) Name() string {
	return ProviderPayPal
}

// CreateOrder opens a CAPTURE-intent order the buyer approves on PayPal
func (p *PayPalGateway) CreateOrder(ctx context.Context, req payment.OrderRequest) (*payment.Order, error) {
	body := payPalOrderRequest{
		Intent: "CAPTURE",
		PurchaseUnits: []payPalPurchaseUnit{{
			Amount: payPalAmount{
				CurrencyCode: strings.ToUpper(req.Currency),
				Value:        FromMinorUnits(req.Amount, req.Currency),
			},
			Description: req.Description,
			CustomID:    req.UserID,
		}},
	}

	var resp payPalOrderResponse
	if err := p.do(ctx, http.MethodPost, "/v2/checkout/orders", body, &resp); err != nil {
		return nil, fmt.Errorf("failed to create PayPal order: %w", err)
	}

	order := &payment.Order{
		ID:       resp.ID,
		Provider: ProviderPayPal,
		Status:   resp.Status,
		Amount:   req.Amount,
		Currency: strings.ToUpper(req.Currency),
	}
	for _, link := range resp.Links {
		if link.Rel == "approve" || link.Rel == "payer-action" {
			order.ApprovalURL = link.Href
			break
		}
	}
	return order, nil
}

// CaptureOrder captures an approved order and reports the first capture
func (p *PayPalGateway) CaptureOrder(ctx context.Context, orderID string) (*payment.Capture, error) {
	path := "/v2/checkout/orders/" + url.PathEscape(orderID) + "/capture"

	var resp payPalCaptureResponse
	err := p.do(ctx, http.MethodPost, path, struct{}{}, &resp)
	if errors.Is(err, errUnreadableResponse) {
		return nil, fmt.Errorf("%w: PayPal order %s: %v", payment.ErrCaptureUnconfirmed, orderID, err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to capture PayPal order: %w", err)
	}

	// From here on PayPal has accepted the capture
	if len(resp.PurchaseUnits) == 0 || len(resp.PurchaseUnits[0].Payments.Captures) == 0 {
		return nil, fmt.Errorf("%w: PayPal order %s returned no capture", payment.ErrCaptureUnconfirmed, orderID)
	}
	unit := resp.PurchaseUnits[0]
	c := unit.Payments.Captures[0]

	amount, err := ToMinorUnits(c.Amount.Value, c.Amount.CurrencyCode)
	if err != nil {
		return nil, fmt.Errorf("%w: PayPal capture %s: %v", payment.ErrCaptureUnconfirmed, c.ID, err)
	}

	userID := c.CustomID
	if userID == "" {
		userID = unit.CustomID
	}

	return &payment.Capture{
		Status:                normalizePayPalStatus(c.Status),
		CapturedAmount:        amount,
		Currency:              c.Amount.CurrencyCode,
		ProviderTransactionID: c.ID,
		PayerEmail:            resp.Payer.EmailAddress,
		UserID:                userID,
	}, nil
}

func normalizePayPalStatus(status string) payment.CaptureStatus {
	switch status {
	case "COMPLETED":
		return payment.CaptureStatusCompleted
	case "PENDING":
		return payment.CaptureStatusPending
	default:
		return payment.CaptureStatusFailed
	}
}

func (p *PayPalGateway) accessToken(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.token != "" && time.Now().Before(p.tokenExpiry) {
		return p.token, nil
	}

	form := url.Values{"grant_type": {"client_credentials"}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/v1/oauth2/token", strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("failed to create token request: %w", err)
	}
	req.SetBasicAuth(p.clientID, p.clientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to request access token: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("PayPal token error %d: %s", resp.StatusCode, string(body))
	}

	var token payPalToken
	if err := json.NewDecoder(resp.Body).Decode(&token); err != nil {
		return "", fmt.Errorf("failed to decode access token: %w", err)
	}

	p.token = token.AccessToken
	// Refresh a minute early
	p.tokenExpiry = time.Now().Add(time.Duration(token.ExpiresIn)*time.Second - time.Minute)
	return p.token, nil
}

func (p *PayPalGateway) do(ctx context.Context, method, path string, in, out interface{}) error {
	token, err := p.accessToken(ctx)
	if err != nil {
		return err
	}

	payload, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, p.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Prefer", "return=representation")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("PayPal API error %d: %s", resp.StatusCode, string(body))
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: %v", errUnreadableResponse, err)
	}
	return nil
}
