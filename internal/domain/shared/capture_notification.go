package shared

import (
	"errors"
	"time"
)

var (
	ErrInvalidNotification = errors.New("invalid capture notification")
)

// CaptureNotification is the Kafka message emitted when a payment provider
// reports a captured payment through its webhook.
type CaptureNotification struct {
	Provider              string    `json:"provider"`
	OrderID               string    `json:"order_id"`
	ProviderTransactionID string    `json:"provider_transaction_id"`
	UserID                string    `json:"user_id"`
	Amount                int64     `json:"amount"` // Minor units
	Currency              string    `json:"currency"`
	PayerEmail            string    `json:"payer_email,omitempty"`
	Status                string    `json:"status"`
	CorrelationID         string    `json:"correlation_id"`
	ReceivedAt            time.Time `json:"received_at"`
}

// Validate checks the fields required to apply the capture to a wallet.
func (n *CaptureNotification) Validate() error {
	switch {
	case n.ProviderTransactionID == "":
		return errors.Join(ErrInvalidNotification, errors.New("provider_transaction_id is required"))
	case n.UserID == "":
		return errors.Join(ErrInvalidNotification, errors.New("user_id is required"))
	case n.Amount <= 0:
		return errors.Join(ErrInvalidNotification, errors.New("amount must be positive"))
	case len(n.Currency) != 3:
		return errors.Join(ErrInvalidNotification, errors.New("currency must be a 3-letter code"))
	}
	return nil
}
