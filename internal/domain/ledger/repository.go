package ledger

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stayhub-wallet-ledger/internal/domain/shared"
)

// Repository is the authoritative store of wallet transactions
type Repository interface {
	// Create inserts a transaction. A second top-up with the same external
	// reference fails with ErrDuplicateExternalReference.
	Create(ctx context.Context, txn *Transaction) error
	GetByID(ctx context.Context, id uuid.UUID) (*Transaction, error)
	GetByExternalTransactionID(ctx context.Context, externalTransactionID string) (*Transaction, error)

	// LockForUpdate reads the row with a pessimistic lock held until the surrounding transaction ends
	LockForUpdate(ctx context.Context, id uuid.UUID) (*Transaction, error)

	// TransitionStatus persists the decision fields of txn only if the stored
	// status is still pending; otherwise it returns ErrAlreadyProcessed.
	TransitionStatus(ctx context.Context, txn *Transaction) error

	ListByUserID(ctx context.Context, userID string, limit, offset int) ([]*Transaction, error)
	CountByUserID(ctx context.Context, userID string) (int64, error)
	ListByStatus(ctx context.Context, txType shared.TransactionType, status shared.TransactionStatus, limit, offset int) ([]*Transaction, error)
	CountByStatus(ctx context.Context, txType shared.TransactionType, status shared.TransactionStatus) (int64, error)
	WithTx(tx pgx.Tx) Repository
}
