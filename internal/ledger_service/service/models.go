package service

import (
	"github.com/stayhub-wallet-ledger/internal/domain/ledger"
)

const (
	DefaultPerPage = 20
	MaxPerPage     = 100
	MaxPage        = 100000
)

// TopUpRequest credits a wallet with a payment captured by a gateway
type TopUpRequest struct {
	CallerID              string
	UserID                string
	Amount                int64 // Minor units
	Currency              string
	PaymentMethod         string
	ExternalTransactionID string
	CorrelationID         string
}

// TopUpResult reports the wallet balance after the capture was applied.
// AlreadyApplied is set when the external reference had been credited before.
type TopUpResult struct {
	Transaction    *ledger.Transaction
	NewBalance     int64
	AlreadyApplied bool
}

type WithdrawalRequest struct {
	CallerID       string
	UserID         string
	Amount         int64 // Minor units
	Currency       string
	PaymentMethod  string
	AccountDetails map[string]string
	CorrelationID  string
}

type ApprovalResult struct {
	Transaction *ledger.Transaction
	NewBalance  int64
}

// PageBounds converts a 1-based page into a limit and offset. Pages past
// MaxPage are clamped so the offset cannot overflow.
func PageBounds(page, perPage int) (limit, offset int) {
	if page < 1 {
		page = 1
	}
	if page > MaxPage {
		page = MaxPage
	}
	if perPage < 1 {
		perPage = DefaultPerPage
	}
	if perPage > MaxPerPage {
		perPage = MaxPerPage
	}
	return perPage, (page - 1) * perPage
}
