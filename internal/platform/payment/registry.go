package payment

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/stayhub-wallet-ledger/internal/config"
	"github.com/stayhub-wallet-ledger/internal/domain/payment"
)

// Registry resolves payment method names to configured gateways
type Registry struct {
	gateways  map[string]payment.Gateway
	verifiers map[string]payment.WebhookVerifier
}

func NewRegistry() *Registry {
	return &Registry{
		gateways:  make(map[string]payment.Gateway),
		verifiers: make(map[string]payment.WebhookVerifier),
	}
}

// NewRegistryFromConfig registers every provider whose credentials are present
func NewRegistryFromConfig(logger *slog.Logger, cfg *config.PaymentConfig) *Registry {
	r := NewRegistry()

	if cfg.PayPal.ClientID != "" {
		r.Register(NewPayPalGateway(cfg.PayPal, cfg.HTTPTimeout))
	}
	if cfg.Stripe.SecretKey != "" {
		gw := NewStripeGateway(cfg.Stripe.SecretKey, cfg.Stripe.WebhookSecret, nil)
		r.Register(gw)
		if cfg.Stripe.WebhookSecret != "" {
			r.RegisterVerifier(ProviderStripe, gw)
		}
	}
	if cfg.Razorpay.KeyID != "" {
		gw := NewRazorpayGateway(cfg.Razorpay.KeyID, cfg.Razorpay.KeySecret, cfg.Razorpay.WebhookSecret)
		r.Register(gw)
		if cfg.Razorpay.WebhookSecret != "" {
			r.RegisterVerifier(ProviderRazorpay, gw)
		}
	}

	logger.Info("Payment providers registered", "methods", r.Methods())
	return r
}

func (r *Registry) Register(gw payment.Gateway) {
	r.gateways[gw.Name()] = gw
}

func (r *Registry) RegisterVerifier(provider string, v payment.WebhookVerifier) {
	r.verifiers[provider] = v
}

// Gateway returns the gateway for a payment method, case-insensitively
func (r *Registry) Gateway(method string) (payment.Gateway, error) {
	gw, ok := r.gateways[strings.ToLower(method)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", payment.ErrUnsupportedPaymentMethod, method)
	}
	return gw, nil
}

func (r *Registry) Verifier(provider string) (payment.WebhookVerifier, error) {
	v, ok := r.verifiers[strings.ToLower(provider)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", payment.ErrUnsupportedPaymentMethod, provider)
	}
	return v, nil
}

// Methods lists the registered payment methods in name order
func (r *Registry) Methods() []string {
	methods := make([]string, 0, len(r.gateways))
	for name := range r.gateways {
		methods = append(methods, name)
	}
	sort.Strings(methods)
	return methods
}
