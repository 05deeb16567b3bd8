package components

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/stayhub-wallet-ledger/internal/domain/wallet"
	"github.com/stayhub-wallet-ledger/internal/ledger_service/service"
)

// WalletManagerImpl implements the WalletManager interface
type WalletManagerImpl struct {
	walletRepo wallet.Repository
	currency   string
	logger     *slog.Logger
}

// NewWalletManager creates a WalletManager opening new wallets in currency
func NewWalletManager(walletRepo wallet.Repository, currency string, logger *slog.Logger) service.WalletManager {
	return &WalletManagerImpl{
		walletRepo: walletRepo,
		currency:   currency,
		logger:     logger,
	}
}

// GetOrCreate reads the wallet and, when the user has none, inserts an empty
// one and reads it back. Concurrent first reads converge on the same row.
func (m *WalletManagerImpl) GetOrCreate(ctx context.Context, userID string) (*wallet.Wallet, error) {
	w, err := m.walletRepo.GetByUserID(ctx, userID)
	if err == nil {
		return w, nil
	}
	if !errors.Is(err, wallet.ErrWalletNotFound{UserID: userID}) {
		return nil, err
	}

	if err := m.create(ctx, m.walletRepo, userID); err != nil {
		return nil, err
	}
	return m.walletRepo.GetByUserID(ctx, userID)
}

// LockOrCreate returns the user's wallet locked for the rest of tx
func (m *WalletManagerImpl) LockOrCreate(ctx context.Context, tx pgx.Tx, userID string) (*wallet.Wallet, error) {
	repoTx := m.walletRepo.WithTx(tx)

	w, err := repoTx.LockForUpdate(ctx, userID)
	if err == nil {
		return w, nil
	}
	if !errors.Is(err, wallet.ErrWalletNotFound{UserID: userID}) {
		return nil, fmt.Errorf("failed to lock wallet %s: %w", userID, err)
	}

	if err := m.create(ctx, repoTx, userID); err != nil {
		return nil, err
	}
	return repoTx.LockForUpdate(ctx, userID)
}

// Lock returns an existing wallet locked for the rest of tx
func (m *WalletManagerImpl) Lock(ctx context.Context, tx pgx.Tx, userID string) (*wallet.Wallet, error) {
	w, err := m.walletRepo.WithTx(tx).LockForUpdate(ctx, userID)
	if err != nil {
		if errors.Is(err, wallet.ErrWalletNotFound{UserID: userID}) {
			m.logger.Warn("Wallet not found for lock", "user_id", userID)
			return nil, err
		}
		return nil, fmt.Errorf("failed to lock wallet %s: %w", userID, err)
	}
	m.logger.Debug("Wallet locked", "user_id", userID, "balance", w.Balance, "version", w.Version)
	return w, nil
}

// Save persists the balance change guarded by the wallet version
func (m *WalletManagerImpl) Save(ctx context.Context, tx pgx.Tx, w *wallet.Wallet) error {
	if err := m.walletRepo.WithTx(tx).Update(ctx, w); err != nil {
		if errors.Is(err, wallet.ErrConcurrentModification{UserID: w.UserID}) {
			m.logger.Warn("Concurrent modification on wallet update", "user_id", w.UserID, "version", w.Version)
		} else {
			m.logger.Error("Failed to update wallet", "user_id", w.UserID, "error", err)
		}
		return err
	}
	return nil
}

func (m *WalletManagerImpl) create(ctx context.Context, repo wallet.Repository, userID string) error {
	w, err := wallet.NewWallet(userID, m.currency)
	if err != nil {
		return err
	}

	created, err := repo.Create(ctx, w)
	if err != nil {
		return fmt.Errorf("failed to create wallet %s: %w", userID, err)
	}
	if created {
		m.logger.Info("Wallet created", "user_id", userID, "currency", m.currency)
	}
	return nil
}
