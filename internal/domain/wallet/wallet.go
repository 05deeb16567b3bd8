package wallet

import (
	"time"

	"github.com/stayhub-wallet-ledger/internal/domain/ledger"
)

// Wallet holds a user's platform-custodied balance. There is exactly one
// wallet per user and its balance never drops below zero.
type Wallet struct {
	UserID    string    `json:"user_id"`
	Balance   int64     `json:"balance"` // Stored in cents/minor units
	Currency  string    `json:"currency"`
	Version   int       `json:"version"` // For optimistic locking
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewWallet returns a zero-balance wallet for the user
func NewWallet(userID, currency string) (*Wallet, error) {
	if userID == "" {
		return nil, ErrEmptyUserID
	}
	if len(currency) != 3 {
		return nil, ledger.ErrInvalidCurrency
	}

	now := time.Now()
	return &Wallet{
		UserID:    userID,
		Balance:   0,
		Currency:  currency,
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// Credit adds the specified amount to the balance
func (w *Wallet) Credit(amount int64) error {
	if amount <= 0 {
		return ledger.ErrInvalidAmount
	}

	w.Balance += amount
	w.UpdatedAt = time.Now()
	w.Version++
	return nil
}

// Debit subtracts the specified amount, refusing to go below zero
func (w *Wallet) Debit(amount int64) error {
	if amount <= 0 {
		return ledger.ErrInvalidAmount
	}

	if w.Balance < amount {
		return ledger.ErrInsufficientBalance
	}

	w.Balance -= amount
	w.UpdatedAt = time.Now()
	w.Version++
	return nil
}

// CanDebit checks if the wallet holds at least amount
func (w *Wallet) CanDebit(amount int64) bool {
	return w.Balance >= amount
}
