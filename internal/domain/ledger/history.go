package ledger

import (
	"context"
	"time"

	"github.com/stayhub-wallet-ledger/internal/domain/shared"
)

// HistoryEntry is the read-model projection of a transaction kept in the
// document store. It lags the authoritative table by the outbox polling delay.
type HistoryEntry struct {
	TransactionID         string                   `json:"transaction_id" bson:"_id"`
	UserID                string                   `json:"user_id" bson:"user_id"`
	Type                  shared.TransactionType   `json:"type" bson:"type"`
	Amount                int64                    `json:"amount" bson:"amount"`
	Currency              string                   `json:"currency" bson:"currency"`
	PaymentMethod         string                   `json:"payment_method" bson:"payment_method"`
	Status                shared.TransactionStatus `json:"status" bson:"status"`
	ExternalTransactionID string                   `json:"external_transaction_id,omitempty" bson:"external_transaction_id,omitempty"`
	RejectionReason       string                   `json:"rejection_reason,omitempty" bson:"rejection_reason,omitempty"`
	LastActorID           string                   `json:"last_actor_id,omitempty" bson:"last_actor_id,omitempty"`
	BalanceAfter          *int64                   `json:"balance_after,omitempty" bson:"balance_after,omitempty"`
	LastEvent             shared.EventType         `json:"last_event" bson:"last_event"`
	CorrelationID         string                   `json:"correlation_id,omitempty" bson:"correlation_id,omitempty"`
	UpdatedAt             time.Time                `json:"updated_at" bson:"updated_at"`
}

// NewHistoryEntry projects a wallet event onto its history document
func NewHistoryEntry(evt *shared.WalletEvent) *HistoryEntry {
	return &HistoryEntry{
		TransactionID:         evt.TransactionID.String(),
		UserID:                evt.UserID,
		Type:                  evt.Type,
		Amount:                evt.Amount,
		Currency:              evt.Currency,
		PaymentMethod:         evt.PaymentMethod,
		Status:                evt.Status,
		ExternalTransactionID: evt.ExternalTransactionID,
		RejectionReason:       evt.RejectionReason,
		LastActorID:           evt.ActorID,
		BalanceAfter:          evt.BalanceAfter,
		LastEvent:             evt.EventType,
		CorrelationID:         evt.CorrelationID,
		UpdatedAt:             evt.OccurredAt,
	}
}

// HistoryRepository manages the transaction history projection with pagination support
type HistoryRepository interface {
	Upsert(ctx context.Context, entry *HistoryEntry) error
	GetByTransactionID(ctx context.Context, transactionID string) (*HistoryEntry, error)
	GetByUserID(ctx context.Context, userID string, limit, offset int) ([]*HistoryEntry, error)
	CountByUserID(ctx context.Context, userID string) (int64, error)
}

// ErrHistoryEntryNotFound indicates a transaction missing from the projection
type ErrHistoryEntryNotFound struct {
	TransactionID string
}

func (e ErrHistoryEntryNotFound) Error() string {
	return "history entry not found: " + e.TransactionID
}

// Is implements the errors.Is interface for ErrHistoryEntryNotFound
func (e ErrHistoryEntryNotFound) Is(target error) bool {
	if target == ErrNotFound {
		return true
	}
	t, ok := target.(ErrHistoryEntryNotFound)
	if !ok {
		return false
	}
	return t.TransactionID == "" || e.TransactionID == t.TransactionID
}
