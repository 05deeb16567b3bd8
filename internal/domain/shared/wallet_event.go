package shared

import (
	"time"

	"github.com/google/uuid"
)

// EventType names the wallet events written to the outbox
type EventType string

const (
	EventTopUpCompleted      EventType = "wallet.topup.completed"
	EventWithdrawalRequested EventType = "wallet.withdrawal.requested"
	EventWithdrawalApproved  EventType = "wallet.withdrawal.approved"
	EventWithdrawalRejected  EventType = "wallet.withdrawal.rejected"
)

// WalletEvent is the outbox payload. It carries a snapshot of the transaction
// after the change so consumers can project it without reading Postgres.
type WalletEvent struct {
	EventType             EventType         `json:"event_type" bson:"event_type"`
	TransactionID         uuid.UUID         `json:"transaction_id" bson:"-"`
	UserID                string            `json:"user_id" bson:"user_id"`
	Type                  TransactionType   `json:"type" bson:"type"`
	Amount                int64             `json:"amount" bson:"amount"`
	Currency              string            `json:"currency" bson:"currency"`
	PaymentMethod         string            `json:"payment_method" bson:"payment_method"`
	Status                TransactionStatus `json:"status" bson:"status"`
	ExternalTransactionID string            `json:"external_transaction_id,omitempty" bson:"external_transaction_id,omitempty"`
	RejectionReason       string            `json:"rejection_reason,omitempty" bson:"rejection_reason,omitempty"`
	ActorID               string            `json:"actor_id,omitempty" bson:"actor_id,omitempty"`
	BalanceAfter          *int64            `json:"balance_after,omitempty" bson:"balance_after,omitempty"`
	CorrelationID         string            `json:"correlation_id,omitempty" bson:"correlation_id,omitempty"`
	OccurredAt            time.Time         `json:"occurred_at" bson:"occurred_at"`
}
