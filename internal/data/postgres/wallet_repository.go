// Package postgres provides PostgreSQL implementations of the domain repositories.
// PostgreSQL is the authoritative store for wallets, their transactions and the
// outbox of wallet events.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/stayhub-wallet-ledger/internal/domain/wallet"
	"github.com/stayhub-wallet-ledger/internal/platform/persistence"
)

const walletColumns = `user_id, balance, currency, version, created_at, updated_at`

// WalletRepository implements the wallet.Repository interface for PostgreSQL
type WalletRepository struct {
	querier persistence.Querier // Can be *pgxpool.Pool or pgx.Tx
	logger  *slog.Logger
}

// NewWalletRepository creates a new PostgreSQL wallet repository.
func NewWalletRepository(logger *slog.Logger, db *persistence.PostgresDB) wallet.Repository {
	return &WalletRepository{
		querier: db.Querier(),
		logger:  logger,
	}
}

// WithTx returns a repository running every statement on tx
func (r *WalletRepository) WithTx(tx pgx.Tx) wallet.Repository {
	return &WalletRepository{
		querier: tx,
		logger:  r.logger,
	}
}

// Create inserts the wallet if the user has none yet. Concurrent first
// requests for the same user resolve to a single row.
func (r *WalletRepository) Create(ctx context.Context, w *wallet.Wallet) (bool, error) {
	query := `
		INSERT INTO wallets (user_id, balance, currency, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (user_id) DO NOTHING
	`

	result, err := r.querier.Exec(ctx, query,
		w.UserID,
		w.Balance,
		w.Currency,
		w.Version,
		w.CreatedAt,
		w.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create wallet", "user_id", w.UserID, "error", err)
		return false, fmt.Errorf("failed to create wallet: %w", err)
	}

	return result.RowsAffected() == 1, nil
}

func (r *WalletRepository) scanOne(ctx context.Context, query, userID, op string) (*wallet.Wallet, error) {
	var w wallet.Wallet
	err := r.querier.QueryRow(ctx, query, userID).Scan(
		&w.UserID,
		&w.Balance,
		&w.Currency,
		&w.Version,
		&w.CreatedAt,
		&w.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, wallet.ErrWalletNotFound{UserID: userID}
		}
		r.logger.Error("Failed to "+op, "user_id", userID, "error", err)
		return nil, fmt.Errorf("failed to %s: %w", op, err)
	}
	return &w, nil
}

// GetByUserID retrieves the user's wallet
func (r *WalletRepository) GetByUserID(ctx context.Context, userID string) (*wallet.Wallet, error) {
	query := `SELECT ` + walletColumns + ` FROM wallets WHERE user_id = $1`
	return r.scanOne(ctx, query, userID, "get wallet")
}

// LockForUpdate obtains a pessimistic lock on the wallet row and returns its current state.
// It must run inside a transaction.
func (r *WalletRepository) LockForUpdate(ctx context.Context, userID string) (*wallet.Wallet, error) {
	query := `SELECT ` + walletColumns + ` FROM wallets WHERE user_id = $1 FOR UPDATE`
	return r.scanOne(ctx, query, userID, "lock wallet for update")
}

// Update persists balance and version, guarded by the previous version
func (r *WalletRepository) Update(ctx context.Context, w *wallet.Wallet) error {
	query := `
		UPDATE wallets
		SET balance = $1, version = $2, updated_at = $3
		WHERE user_id = $4 AND version = $5
	`

	result, err := r.querier.Exec(ctx, query,
		w.Balance,
		w.Version,
		w.UpdatedAt,
		w.UserID,
		w.Version-1, // Check previous version for optimistic locking
	)
	if err != nil {
		r.logger.Error("Failed to update wallet", "user_id", w.UserID, "error", err)
		return fmt.Errorf("failed to update wallet: %w", err)
	}

	if result.RowsAffected() == 0 {
		return wallet.ErrConcurrentModification{UserID: w.UserID}
	}

	return nil
}
