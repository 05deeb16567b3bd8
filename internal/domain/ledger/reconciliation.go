package ledger

import (
	"context"
	"time"
)

// UnreconciledCapture records money the gateway captured but the ledger
// failed to credit. Entries stay open until a later top-up with the same
// external reference succeeds.
type UnreconciledCapture struct {
	ExternalTransactionID string     `json:"external_transaction_id" bson:"_id"`
	Provider              string     `json:"provider" bson:"provider"`
	OrderID               string     `json:"order_id,omitempty" bson:"order_id,omitempty"`
	UserID                string     `json:"user_id" bson:"user_id"`
	Amount                int64      `json:"amount" bson:"amount"`
	Currency              string     `json:"currency" bson:"currency"`
	PayerEmail            string     `json:"payer_email,omitempty" bson:"payer_email,omitempty"`
	Failure               string     `json:"failure" bson:"failure"`
	CorrelationID         string     `json:"correlation_id,omitempty" bson:"correlation_id,omitempty"`
	Attempts              int        `json:"attempts" bson:"attempts"`
	Resolved              bool       `json:"resolved" bson:"resolved"`
	RecordedAt            time.Time  `json:"recorded_at" bson:"recorded_at"`
	ResolvedAt            *time.Time `json:"resolved_at,omitempty" bson:"resolved_at,omitempty"`
}

// ReconciliationRepository journals captures awaiting a ledger credit
type ReconciliationRepository interface {
	Record(ctx context.Context, capture *UnreconciledCapture) error
	Resolve(ctx context.Context, externalTransactionID string) (bool, error)
	ListOpen(ctx context.Context, limit int) ([]*UnreconciledCapture, error)
}
