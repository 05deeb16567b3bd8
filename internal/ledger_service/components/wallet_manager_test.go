package components

import (
	"context"
	"errors"
	"testing"

	"github.com/stayhub-wallet-ledger/internal/domain/ledger"
	"github.com/stayhub-wallet-ledger/internal/domain/wallet"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestWalletManager_GetOrCreate(t *testing.T) {
	ctx := context.Background()

	t.Run("existing wallet is returned without a write", func(t *testing.T) {
		repo := &MockWalletRepo{}
		existing := &wallet.Wallet{UserID: "user-1", Balance: 500, Currency: "USD", Version: 3}
		repo.On("GetByUserID", ctx, "user-1").Return(existing, nil).Once()

		w, err := NewWalletManager(repo, "USD", newTestLogger()).GetOrCreate(ctx, "user-1")
		require.NoError(t, err)
		assert.Same(t, existing, w)
		repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("missing wallet is created with zero balance then read back", func(t *testing.T) {
		repo := &MockWalletRepo{}
		stored := &wallet.Wallet{UserID: "user-2", Balance: 0, Currency: "EUR", Version: 1}
		repo.On("GetByUserID", ctx, "user-2").Return(nil, wallet.ErrWalletNotFound{UserID: "user-2"}).Once()
		repo.On("Create", ctx, mock.MatchedBy(func(w *wallet.Wallet) bool {
			return w.UserID == "user-2" && w.Balance == 0 && w.Currency == "EUR" && w.Version == 1
		})).Return(true, nil).Once()
		repo.On("GetByUserID", ctx, "user-2").Return(stored, nil).Once()

		w, err := NewWalletManager(repo, "EUR", newTestLogger()).GetOrCreate(ctx, "user-2")
		require.NoError(t, err)
		assert.Equal(t, int64(0), w.Balance)
		repo.AssertExpectations(t)
	})

	t.Run("concurrent creator wins the insert", func(t *testing.T) {
		repo := &MockWalletRepo{}
		stored := &wallet.Wallet{UserID: "user-3", Balance: 0, Currency: "USD", Version: 1}
		repo.On("GetByUserID", ctx, "user-3").Return(nil, wallet.ErrWalletNotFound{UserID: "user-3"}).Once()
		repo.On("Create", ctx, mock.Anything).Return(false, nil).Once()
		repo.On("GetByUserID", ctx, "user-3").Return(stored, nil).Once()

		w, err := NewWalletManager(repo, "USD", newTestLogger()).GetOrCreate(ctx, "user-3")
		require.NoError(t, err)
		assert.Same(t, stored, w)
	})

	t.Run("store error is propagated", func(t *testing.T) {
		repo := &MockWalletRepo{}
		dbErr := errors.New("connection refused")
		repo.On("GetByUserID", ctx, "user-4").Return(nil, dbErr).Once()

		_, err := NewWalletManager(repo, "USD", newTestLogger()).GetOrCreate(ctx, "user-4")
		assert.ErrorIs(t, err, dbErr)
	})
}

func TestWalletManager_LockOrCreate(t *testing.T) {
	ctx := context.Background()

	t.Run("locks existing wallet", func(t *testing.T) {
		repo := &MockWalletRepo{}
		existing := &wallet.Wallet{UserID: "user-1", Balance: 100, Currency: "USD", Version: 2}
		repo.On("WithTx", mock.Anything).Return(repo)
		repo.On("LockForUpdate", ctx, "user-1").Return(existing, nil).Once()

		w, err := NewWalletManager(repo, "USD", newTestLogger()).LockOrCreate(ctx, nil, "user-1")
		require.NoError(t, err)
		assert.Same(t, existing, w)
	})

	t.Run("creates inside the transaction when missing", func(t *testing.T) {
		repo := &MockWalletRepo{}
		created := &wallet.Wallet{UserID: "user-2", Currency: "USD", Version: 1}
		repo.On("WithTx", mock.Anything).Return(repo)
		repo.On("LockForUpdate", ctx, "user-2").Return(nil, wallet.ErrWalletNotFound{UserID: "user-2"}).Once()
		repo.On("Create", ctx, mock.Anything).Return(true, nil).Once()
		repo.On("LockForUpdate", ctx, "user-2").Return(created, nil).Once()

		w, err := NewWalletManager(repo, "USD", newTestLogger()).LockOrCreate(ctx, nil, "user-2")
		require.NoError(t, err)
		assert.Same(t, created, w)
		repo.AssertExpectations(t)
	})

	t.Run("lock failure is wrapped", func(t *testing.T) {
		repo := &MockWalletRepo{}
		dbErr := errors.New("deadlock detected")
		repo.On("WithTx", mock.Anything).Return(repo)
		repo.On("LockForUpdate", ctx, "user-3").Return(nil, dbErr).Once()

		_, err := NewWalletManager(repo, "USD", newTestLogger()).LockOrCreate(ctx, nil, "user-3")
		require.Error(t, err)
		assert.ErrorIs(t, err, dbErr)
		assert.Contains(t, err.Error(), "failed to lock wallet user-3")
	})
}

func TestWalletManager_Lock(t *testing.T) {
	ctx := context.Background()
	repo := &MockWalletRepo{}
	repo.On("WithTx", mock.Anything).Return(repo)
	repo.On("LockForUpdate", ctx, "ghost").Return(nil, wallet.ErrWalletNotFound{UserID: "ghost"})

	_, err := NewWalletManager(repo, "USD", newTestLogger()).Lock(ctx, nil, "ghost")
	assert.ErrorIs(t, err, ledger.ErrNotFound)
	repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestWalletManager_Save(t *testing.T) {
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		repo := &MockWalletRepo{}
		w := &wallet.Wallet{UserID: "user-1", Balance: 700, Version: 2}
		repo.On("WithTx", mock.Anything).Return(repo)
		repo.On("Update", ctx, w).Return(nil)

		assert.NoError(t, NewWalletManager(repo, "USD", newTestLogger()).Save(ctx, nil, w))
	})

	t.Run("version conflict is reported as retryable", func(t *testing.T) {
		repo := &MockWalletRepo{}
		w := &wallet.Wallet{UserID: "user-1", Balance: 700, Version: 2}
		repo.On("WithTx", mock.Anything).Return(repo)
		repo.On("Update", ctx, w).Return(wallet.ErrConcurrentModification{UserID: "user-1"})

		err := NewWalletManager(repo, "USD", newTestLogger()).Save(ctx, nil, w)
		assert.ErrorIs(t, err, ledger.ErrStoreUnavailable)
	})
}
