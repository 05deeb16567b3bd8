package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stayhub-wallet-ledger/internal/domain/ledger"
	"github.com/stayhub-wallet-ledger/internal/domain/shared"
	"github.com/stayhub-wallet-ledger/internal/platform/persistence"
)

const (
	uniqueViolationCode       = "23505"
	externalIDUniqueIndexName = "wallet_transactions_external_id_key"

	transactionColumns = `id, user_id, type, amount, currency, payment_method, status,
		external_transaction_id, account_details, rejection_reason, approved_by, rejected_by,
		balance_after, correlation_id, created_at, updated_at, approved_at, rejected_at`
)

// TransactionRepository implements the ledger.Repository interface for PostgreSQL
type TransactionRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// NewTransactionRepository creates a new PostgreSQL wallet transaction repository
func NewTransactionRepository(logger *slog.Logger, db *persistence.PostgresDB) ledger.Repository {
	return &TransactionRepository{
		querier: db.Querier(),
		logger:  logger,
	}
}

func (r *TransactionRepository) WithTx(tx pgx.Tx) ledger.Repository {
	return &TransactionRepository{
		querier: tx,
		logger:  r.logger,
	}
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func encodeAccountDetails(details map[string]string) ([]byte, error) {
	if len(details) == 0 {
		return nil, nil
	}
	return json.Marshal(details)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row rowScanner) (*ledger.Transaction, error) {
	var (
		txn             ledger.Transaction
		externalID      *string
		accountDetails  []byte
		rejectionReason *string
		approvedBy      *string
		rejectedBy      *string
		correlationID   *string
	)

	err := row.Scan(
		&txn.ID,
		&txn.UserID,
		&txn.Type,
		&txn.Amount,
		&txn.Currency,
		&txn.PaymentMethod,
		&txn.Status,
		&externalID,
		&accountDetails,
		&rejectionReason,
		&approvedBy,
		&rejectedBy,
		&txn.BalanceAfter,
		&correlationID,
		&txn.CreatedAt,
		&txn.UpdatedAt,
		&txn.ApprovedAt,
		&txn.RejectedAt,
	)
	if err != nil {
		return nil, err
	}

	txn.ExternalTransactionID = derefString(externalID)
	txn.RejectionReason = derefString(rejectionReason)
	txn.ApprovedBy = derefString(approvedBy)
	txn.RejectedBy = derefString(rejectedBy)
	txn.CorrelationID = derefString(correlationID)
	if len(accountDetails) > 0 {
		if err := json.Unmarshal(accountDetails, &txn.AccountDetails); err != nil {
			return nil, fmt.Errorf("failed to decode account details: %w", err)
		}
	}

	return &txn, nil
}

// Create inserts a transaction. The partial unique index on
// external_transaction_id rejects a second top-up for the same capture.
func (r *TransactionRepository) Create(ctx context.Context, txn *ledger.Transaction) error {
	query := `
		INSERT INTO wallet_transactions (` + transactionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
	`

	details, err := encodeAccountDetails(txn.AccountDetails)
	if err != nil {
		return fmt.Errorf("failed to encode account details: %w", err)
	}

	_, err = r.querier.Exec(ctx, query,
		txn.ID,
		txn.UserID,
		txn.Type,
		txn.Amount,
		txn.Currency,
		txn.PaymentMethod,
		txn.Status,
		nullString(txn.ExternalTransactionID),
		details,
		nullString(txn.RejectionReason),
		nullString(txn.ApprovedBy),
		nullString(txn.RejectedBy),
		txn.BalanceAfter,
		nullString(txn.CorrelationID),
		txn.CreatedAt,
		txn.UpdatedAt,
		txn.ApprovedAt,
		txn.RejectedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode && pgErr.ConstraintName == externalIDUniqueIndexName {
			return ledger.ErrDuplicateExternalReference
		}
		r.logger.Error("Failed to create wallet transaction",
			"transaction_id", txn.ID.String(),
			"user_id", txn.UserID,
			"error", err,
		)
		return fmt.Errorf("failed to create wallet transaction: %w", err)
	}

	return nil
}

func (r *TransactionRepository) getOne(ctx context.Context, query string, id uuid.UUID, op string) (*ledger.Transaction, error) {
	txn, err := scanTransaction(r.querier.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ledger.ErrTransactionNotFound{TransactionID: id}
		}
		r.logger.Error("Failed to "+op, "transaction_id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to %s: %w", op, err)
	}
	return txn, nil
}

// GetByID retrieves a transaction by its ID
func (r *TransactionRepository) GetByID(ctx context.Context, id uuid.UUID) (*ledger.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM wallet_transactions WHERE id = $1`
	return r.getOne(ctx, query, id, "get wallet transaction")
}

// LockForUpdate obtains a row lock on the transaction for the surrounding
// database transaction. Concurrent approvals of the same withdrawal queue here.
func (r *TransactionRepository) LockForUpdate(ctx context.Context, id uuid.UUID) (*ledger.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM wallet_transactions WHERE id = $1 FOR UPDATE`
	return r.getOne(ctx, query, id, "lock wallet transaction for update")
}

// GetByExternalTransactionID returns the top-up recorded for a payment
// capture, or nil when the capture has not been applied yet.
func (r *TransactionRepository) GetByExternalTransactionID(ctx context.Context, externalTransactionID string) (*ledger.Transaction, error) {
	if externalTransactionID == "" {
		return nil, ledger.ErrMissingExternalReference
	}

	query := `SELECT ` + transactionColumns + ` FROM wallet_transactions WHERE external_transaction_id = $1`

	txn, err := scanTransaction(r.querier.QueryRow(ctx, query, externalTransactionID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		r.logger.Error("Failed to get wallet transaction by external id",
			"external_transaction_id", externalTransactionID,
			"error", err,
		)
		return nil, fmt.Errorf("failed to get wallet transaction by external id: %w", err)
	}
	return txn, nil
}

// TransitionStatus writes the decision of a pending withdrawal. The status
// predicate makes the write a compare-and-swap: a transaction that is no
// longer pending is left untouched and ErrAlreadyProcessed is returned.
func (r *TransactionRepository) TransitionStatus(ctx context.Context, txn *ledger.Transaction) error {
	query := `
		UPDATE wallet_transactions
		SET status = $1, rejection_reason = $2, approved_by = $3, rejected_by = $4,
			balance_after = $5, approved_at = $6, rejected_at = $7, updated_at = $8
		WHERE id = $9 AND status = $10
	`

	result, err := r.querier.Exec(ctx, query,
		txn.Status,
		nullString(txn.RejectionReason),
		nullString(txn.ApprovedBy),
		nullString(txn.RejectedBy),
		txn.BalanceAfter,
		txn.ApprovedAt,
		txn.RejectedAt,
		txn.UpdatedAt,
		txn.ID,
		shared.TransactionStatusPending,
	)
	if err != nil {
		r.logger.Error("Failed to transition wallet transaction",
			"transaction_id", txn.ID.String(),
			"status", string(txn.Status),
			"error", err,
		)
		return fmt.Errorf("failed to transition wallet transaction: %w", err)
	}

	if result.RowsAffected() == 0 {
		return ledger.ErrAlreadyProcessed
	}

	return nil
}

func (r *TransactionRepository) list(ctx context.Context, op string, query string, args ...any) ([]*ledger.Transaction, error) {
	rows, err := r.querier.Query(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to "+op, "error", err)
		return nil, fmt.Errorf("failed to %s: %w", op, err)
	}
	defer rows.Close()

	transactions := make([]*ledger.Transaction, 0)
	for rows.Next() {
		txn, err := scanTransaction(rows)
		if err != nil {
			r.logger.Error("Failed to scan wallet transaction", "error", err)
			return nil, fmt.Errorf("failed to scan wallet transaction: %w", err)
		}
		transactions = append(transactions, txn)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error("Error iterating over wallet transactions", "error", err)
		return nil, fmt.Errorf("error iterating over wallet transactions: %w", err)
	}

	return transactions, nil
}

// ListByUserID returns a page of the user's transactions, newest first
func (r *TransactionRepository) ListByUserID(ctx context.Context, userID string, limit, offset int) ([]*ledger.Transaction, error) {
	query := `
		SELECT ` + transactionColumns + `
		FROM wallet_transactions
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`
	return r.list(ctx, "list wallet transactions", query, userID, limit, offset)
}

func (r *TransactionRepository) CountByUserID(ctx context.Context, userID string) (int64, error) {
	var count int64
	err := r.querier.QueryRow(ctx, `SELECT COUNT(*) FROM wallet_transactions WHERE user_id = $1`, userID).Scan(&count)
	if err != nil {
		r.logger.Error("Failed to count wallet transactions", "user_id", userID, "error", err)
		return 0, fmt.Errorf("failed to count wallet transactions: %w", err)
	}
	return count, nil
}

// ListByStatus returns a page of transactions in the given state, oldest
// first so the admin queue is worked in request order.
func (r *TransactionRepository) ListByStatus(ctx context.Context, txType shared.TransactionType, status shared.TransactionStatus, limit, offset int) ([]*ledger.Transaction, error) {
	query := `
		SELECT ` + transactionColumns + `
		FROM wallet_transactions
		WHERE type = $1 AND status = $2
		ORDER BY created_at ASC
		LIMIT $3 OFFSET $4
	`
	return r.list(ctx, "list wallet transactions by status", query, txType, status, limit, offset)
}

func (r *TransactionRepository) CountByStatus(ctx context.Context, txType shared.TransactionType, status shared.TransactionStatus) (int64, error) {
	var count int64
	err := r.querier.QueryRow(ctx, `SELECT COUNT(*) FROM wallet_transactions WHERE type = $1 AND status = $2`, txType, status).Scan(&count)
	if err != nil {
		r.logger.Error("Failed to count wallet transactions by status", "type", string(txType), "status", string(status), "error", err)
		return 0, fmt.Errorf("failed to count wallet transactions by status: %w", err)
	}
	return count, nil
}
