package wallet

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/stayhub-wallet-ledger/internal/domain/ledger"
)

var ErrEmptyUserID = errors.New("user id cannot be empty")

// Repository defines wallet persistence operations
type Repository interface {
	// Create inserts the wallet unless one already exists for the user.
	// It reports whether a row was inserted.
	Create(ctx context.Context, w *Wallet) (bool, error)
	GetByUserID(ctx context.Context, userID string) (*Wallet, error)

	// Update writes balance and version only when the stored version is
	// w.Version-1, returning ErrConcurrentModification otherwise.
	Update(ctx context.Context, w *Wallet) error

	// LockForUpdate acquires a pessimistic row lock for the surrounding transaction
	LockForUpdate(ctx context.Context, userID string) (*Wallet, error)
	WithTx(tx pgx.Tx) Repository
}

// BalanceCache is a best-effort read cache for wallets. Misses return (nil, nil).
type BalanceCache interface {
	Get(ctx context.Context, userID string) (*Wallet, error)
	Set(ctx context.Context, w *Wallet) error
	Invalidate(ctx context.Context, userID string) error
}

// ErrConcurrentModification indicates optimistic lock failure
type ErrConcurrentModification struct {
	UserID string
}

func (e ErrConcurrentModification) Error() string {
	return "concurrent modification detected for wallet: " + e.UserID
}

// Is reports the conflict as a retryable store failure
func (e ErrConcurrentModification) Is(target error) bool {
	if target == ledger.ErrStoreUnavailable {
		return true
	}
	t, ok := target.(ErrConcurrentModification)
	return ok && (t.UserID == "" || t.UserID == e.UserID)
}

// ErrWalletNotFound indicates missing wallet
type ErrWalletNotFound struct {
	UserID string
}

func (e ErrWalletNotFound) Error() string {
	return "wallet not found: " + e.UserID
}

func (e ErrWalletNotFound) Is(target error) bool {
	if target == ledger.ErrNotFound {
		return true
	}
	t, ok := target.(ErrWalletNotFound)
	return ok && (t.UserID == "" || t.UserID == e.UserID)
}
