package ledger

import (
	"time"

	"github.com/google/uuid"
	"github.com/stayhub-wallet-ledger/internal/domain/shared"
)

// Transaction is one wallet ledger event. Top-ups are created completed;
// withdrawals are created pending and change the balance only once approved.
type Transaction struct {
	ID                    uuid.UUID                `json:"id"`
	UserID                string                   `json:"user_id"`
	Type                  shared.TransactionType   `json:"type"`
	Amount                int64                    `json:"amount"` // Stored in cents/minor units
	Currency              string                   `json:"currency"`
	PaymentMethod         string                   `json:"payment_method"`
	Status                shared.TransactionStatus `json:"status"`
	ExternalTransactionID string                   `json:"external_transaction_id,omitempty"`
	AccountDetails        map[string]string        `json:"account_details,omitempty"`
	RejectionReason       string                   `json:"rejection_reason,omitempty"`
	ApprovedBy            string                   `json:"approved_by,omitempty"`
	RejectedBy            string                   `json:"rejected_by,omitempty"`
	BalanceAfter          *int64                   `json:"balance_after,omitempty"`
	CorrelationID         string                   `json:"correlation_id,omitempty"`
	CreatedAt             time.Time                `json:"created_at"`
	UpdatedAt             time.Time                `json:"updated_at"`
	ApprovedAt            *time.Time               `json:"approved_at,omitempty"`
	RejectedAt            *time.Time               `json:"rejected_at,omitempty"`
}

func validateAmountAndCurrency(amount int64, currency string) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	if len(currency) != 3 {
		return ErrInvalidCurrency
	}
	return nil
}

// NewTopUp creates a completed top-up carrying the external payment reference
// and the wallet balance it produced.
func NewTopUp(userID string, amount int64, currency, paymentMethod, externalTransactionID string, balanceAfter int64, now time.Time) (*Transaction, error) {
	if err := validateAmountAndCurrency(amount, currency); err != nil {
		return nil, err
	}
	if externalTransactionID == "" {
		return nil, ErrMissingExternalReference
	}

	return &Transaction{
		ID:                    uuid.New(),
		UserID:                userID,
		Type:                  shared.TransactionTypeTopUp,
		Amount:                amount,
		Currency:              currency,
		PaymentMethod:         paymentMethod,
		Status:                shared.TransactionStatusCompleted,
		ExternalTransactionID: externalTransactionID,
		BalanceAfter:          &balanceAfter,
		CreatedAt:             now,
		UpdatedAt:             now,
	}, nil
}

// NewWithdrawal creates a pending withdrawal request
func NewWithdrawal(userID string, amount int64, currency, paymentMethod string, accountDetails map[string]string, now time.Time) (*Transaction, error) {
	if err := validateAmountAndCurrency(amount, currency); err != nil {
		return nil, err
	}

	return &Transaction{
		ID:             uuid.New(),
		UserID:         userID,
		Type:           shared.TransactionTypeWithdrawal,
		Amount:         amount,
		Currency:       currency,
		PaymentMethod:  paymentMethod,
		Status:         shared.TransactionStatusPending,
		AccountDetails: accountDetails,
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}

// CheckDecidable verifies the transaction is a pending withdrawal
func (t *Transaction) CheckDecidable() error {
	if t.Type != shared.TransactionTypeWithdrawal {
		return ErrWrongType
	}
	if t.Status != shared.TransactionStatusPending {
		return ErrAlreadyProcessed
	}
	return nil
}

// Approve moves a pending withdrawal to completed
func (t *Transaction) Approve(approverID string, balanceAfter int64, now time.Time) error {
	if err := t.CheckDecidable(); err != nil {
		return err
	}
	t.Status = shared.TransactionStatusCompleted
	t.ApprovedBy = approverID
	t.ApprovedAt = &now
	t.BalanceAfter = &balanceAfter
	t.UpdatedAt = now
	return nil
}

// Reject moves a pending withdrawal to rejected. An empty reason is replaced
// by the generic administrator message.
func (t *Transaction) Reject(approverID, reason string, now time.Time) error {
	if err := t.CheckDecidable(); err != nil {
		return err
	}
	if reason == "" {
		reason = shared.RejectionReasonDefault
	}
	t.Status = shared.TransactionStatusRejected
	t.RejectedBy = approverID
	t.RejectedAt = &now
	t.RejectionReason = reason
	t.UpdatedAt = now
	return nil
}

// Event builds the outbox payload describing this transaction's current state
func (t *Transaction) Event(eventType shared.EventType, actorID string) *shared.WalletEvent {
	return &shared.WalletEvent{
		EventType:             eventType,
		TransactionID:         t.ID,
		UserID:                t.UserID,
		Type:                  t.Type,
		Amount:                t.Amount,
		Currency:              t.Currency,
		PaymentMethod:         t.PaymentMethod,
		Status:                t.Status,
		ExternalTransactionID: t.ExternalTransactionID,
		RejectionReason:       t.RejectionReason,
		ActorID:               actorID,
		BalanceAfter:          t.BalanceAfter,
		CorrelationID:         t.CorrelationID,
		OccurredAt:            t.UpdatedAt,
	}
}
