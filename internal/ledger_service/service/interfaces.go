package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stayhub-wallet-ledger/internal/domain/ledger"
	"github.com/stayhub-wallet-ledger/internal/domain/shared"
	"github.com/stayhub-wallet-ledger/internal/domain/wallet"
)

// LedgerService owns wallet balances and the transactions that change them.
type LedgerService interface {
	GetBalance(ctx context.Context, userID string) (*wallet.Wallet, error)
	TopUp(ctx context.Context, req *TopUpRequest) (*TopUpResult, error)
	RequestWithdrawal(ctx context.Context, req *WithdrawalRequest) (*ledger.Transaction, error)
	ListTransactions(ctx context.Context, callerID, userID string, page, perPage int) ([]*ledger.Transaction, int64, error)
	GetTransaction(ctx context.Context, callerID string, transactionID uuid.UUID) (*ledger.Transaction, error)
	ListHistory(ctx context.Context, callerID, userID string, page, perPage int) ([]*ledger.HistoryEntry, int64, error)
}

// ApprovalWorkflow is the admin-only decision step for pending withdrawals
type ApprovalWorkflow interface {
	ApproveWithdrawal(ctx context.Context, transactionID uuid.UUID, approverID, correlationID string) (*ApprovalResult, error)
	RejectWithdrawal(ctx context.Context, transactionID uuid.UUID, approverID, reason, correlationID string) (*ledger.Transaction, error)
	ListPendingWithdrawals(ctx context.Context, approverID string, page, perPage int) ([]*ledger.Transaction, int64, error)
}

// TxRunner runs fn inside one database transaction, committing only when fn returns nil
type TxRunner interface {
	ExecuteTx(ctx context.Context, fn func(tx pgx.Tx) error) error
}

// WalletManager handles wallet reads and writes on behalf of the services
type WalletManager interface {
	// GetOrCreate returns the user's wallet, inserting a zero-balance one if absent
	GetOrCreate(ctx context.Context, userID string) (*wallet.Wallet, error)
	// LockOrCreate is GetOrCreate inside tx, returning the wallet with its row locked
	LockOrCreate(ctx context.Context, tx pgx.Tx, userID string) (*wallet.Wallet, error)
	Lock(ctx context.Context, tx pgx.Tx, userID string) (*wallet.Wallet, error)
	Save(ctx context.Context, tx pgx.Tx, w *wallet.Wallet) error
}

// OutboxManager writes the wallet event describing a transaction change
type OutboxManager interface {
	Record(ctx context.Context, tx pgx.Tx, txn *ledger.Transaction, eventType shared.EventType, actorID string) error
}

// RequestValidator checks business preconditions that need no lock
type RequestValidator interface {
	ValidateTopUp(req *TopUpRequest) error
	ValidateWithdrawal(req *WithdrawalRequest) error
	// AuthorizeReader allows the owner of the wallet and administrators
	AuthorizeReader(ctx context.Context, callerID, ownerID string) error
	RequireAdmin(ctx context.Context, userID string) error
}

// CaptureReconciler journals payments captured by a gateway whose ledger
// write failed, so they can be applied later.
type CaptureReconciler interface {
	Record(ctx context.Context, capture *ledger.UnreconciledCapture) error
	Resolve(ctx context.Context, externalTransactionID string)
	ListOpen(ctx context.Context, callerID string, limit int) ([]*ledger.UnreconciledCapture, error)
}
