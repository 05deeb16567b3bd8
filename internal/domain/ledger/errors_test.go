package ledger

import (
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestErrTransactionNotFound_Is(t *testing.T) {
	id := uuid.New()
	err := fmt.Errorf("lookup: %w", ErrTransactionNotFound{TransactionID: id})

	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, err, ErrTransactionNotFound{})
	assert.ErrorIs(t, err, ErrTransactionNotFound{TransactionID: id})
	assert.NotErrorIs(t, err, ErrTransactionNotFound{TransactionID: uuid.New()})
}

func TestErrWithdrawalAutoRejected_Is(t *testing.T) {
	err := ErrWithdrawalAutoRejected{TransactionID: uuid.New(), Balance: 300, Amount: 400}

	assert.ErrorIs(t, err, ErrInsufficientBalance)
	assert.ErrorIs(t, err, ErrWithdrawalAutoRejected{})
	assert.NotErrorIs(t, err, ErrAlreadyProcessed)
}

func TestErrCurrencyMismatch(t *testing.T) {
	err := fmt.Errorf("top up: %w", ErrCurrencyMismatch{WalletCurrency: "USD", Currency: "EUR"})

	assert.ErrorIs(t, err, ErrInvalidCurrency)
	assert.True(t, IsBusinessError(err))
	assert.EqualError(t, err, "top up: wallet currency is USD, got EUR")
	assert.Same(t, err, NewStoreError("top up", err))
}

func TestStoreError(t *testing.T) {
	cause := errors.New("connection refused")
	err := NewStoreError("lock wallet", cause)

	assert.ErrorIs(t, err, ErrStoreUnavailable)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "store unavailable: lock wallet: connection refused", err.Error())

	var storeErr *StoreError
	assert.True(t, errors.As(err, &storeErr))
	assert.Equal(t, "lock wallet", storeErr.Op)
}

func TestNewStoreError_KeepsBusinessErrors(t *testing.T) {
	assert.Nil(t, NewStoreError("op", nil))
	assert.Same(t, ErrInsufficientBalance, NewStoreError("op", ErrInsufficientBalance))

	notFound := ErrTransactionNotFound{TransactionID: uuid.New()}
	assert.Equal(t, notFound, NewStoreError("op", notFound))

	wrapped := NewStoreError("inner", errors.New("boom"))
	assert.Same(t, wrapped, NewStoreError("outer", wrapped))
}
