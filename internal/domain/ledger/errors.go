package ledger

import (
	"errors"

	"github.com/google/uuid"
)

// Business and infrastructure failures surfaced by the wallet ledger.
// Business failures are never retried automatically. ErrStoreUnavailable
// may be retried by the caller.
var (
	ErrUnauthorized        = errors.New("unauthorized")
	ErrInvalidAmount       = errors.New("amount must be positive")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrNotFound            = errors.New("not found")
	ErrAlreadyProcessed    = errors.New("transaction already processed")
	ErrWrongType           = errors.New("operation not allowed for this transaction type")
	ErrGatewayFailure      = errors.New("payment gateway failure")
	ErrStoreUnavailable    = errors.New("store unavailable")

	ErrMissingExternalReference   = errors.New("external transaction reference is required")
	ErrDuplicateExternalReference = errors.New("duplicate external transaction reference")
	ErrReconciliationRequired     = errors.New("payment captured but ledger write failed")
	ErrInvalidCurrency            = errors.New("currency must be a 3-letter code")
)

// ErrTransactionNotFound indicates a transaction id that does not resolve
type ErrTransactionNotFound struct {
	TransactionID uuid.UUID
}

func (e ErrTransactionNotFound) Error() string {
	return "transaction not found: " + e.TransactionID.String()
}

// Is matches ErrNotFound, and any ErrTransactionNotFound when the target id is empty
func (e ErrTransactionNotFound) Is(target error) bool {
	if target == ErrNotFound {
		return true
	}
	t, ok := target.(ErrTransactionNotFound)
	if !ok {
		return false
	}
	if t.TransactionID == uuid.Nil {
		return true
	}
	return e.TransactionID == t.TransactionID
}

// ErrCurrencyMismatch is a well-formed currency the wallet is not
// denominated in. It matches ErrInvalidCurrency.
type ErrCurrencyMismatch struct {
	WalletCurrency string
	Currency       string
}

func (e ErrCurrencyMismatch) Error() string {
	return "wallet currency is " + e.WalletCurrency + ", got " + e.Currency
}

func (e ErrCurrencyMismatch) Is(target error) bool {
	return target == ErrInvalidCurrency
}

// ErrWithdrawalAutoRejected is returned when an approval found the wallet
// short of funds and the withdrawal was rejected instead.
type ErrWithdrawalAutoRejected struct {
	TransactionID uuid.UUID
	Balance       int64
	Amount        int64
}

func (e ErrWithdrawalAutoRejected) Error() string {
	return "withdrawal auto-rejected, insufficient balance at time of approval: " + e.TransactionID.String()
}

// Is matches ErrInsufficientBalance so callers that only know the taxonomy
// still see the failure class.
func (e ErrWithdrawalAutoRejected) Is(target error) bool {
	if target == ErrInsufficientBalance {
		return true
	}
	t, ok := target.(ErrWithdrawalAutoRejected)
	if !ok {
		return false
	}
	return t.TransactionID == uuid.Nil || e.TransactionID == t.TransactionID
}

// StoreError wraps an infrastructure failure of the authoritative store
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	if e.Err == nil {
		return "store unavailable: " + e.Op
	}
	return "store unavailable: " + e.Op + ": " + e.Err.Error()
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

func (e *StoreError) Is(target error) bool {
	return target == ErrStoreUnavailable
}

// NewStoreError wraps err unless it already carries a business failure or is nil.
func NewStoreError(op string, err error) error {
	if err == nil || IsBusinessError(err) || errors.Is(err, ErrStoreUnavailable) {
		return err
	}
	return &StoreError{Op: op, Err: err}
}

// IsBusinessError reports whether err is a business rule violation that
// retrying cannot change.
func IsBusinessError(err error) bool {
	for _, target := range []error{
		ErrUnauthorized,
		ErrInvalidAmount,
		ErrInsufficientBalance,
		ErrNotFound,
		ErrAlreadyProcessed,
		ErrWrongType,
		ErrMissingExternalReference,
		ErrInvalidCurrency,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
