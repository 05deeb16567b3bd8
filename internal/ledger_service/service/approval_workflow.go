package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stayhub-wallet-ledger/internal/domain/ledger"
	"github.com/stayhub-wallet-ledger/internal/domain/shared"
	"github.com/stayhub-wallet-ledger/internal/logger"
)

type ApprovalWorkflowImpl struct {
	deps   Dependencies
	logger *slog.Logger
	now    func() time.Time
}

func NewApprovalWorkflow(deps Dependencies, logger *slog.Logger) ApprovalWorkflow {
	return &ApprovalWorkflowImpl{
		deps:   deps,
		logger: logger,
		now:    time.Now,
	}
}

func (w *ApprovalWorkflowImpl) observe(operation string, started time.Time, err error) {
	w.deps.Metrics.ObserveLedgerOperation(operation, outcome(err), started)
}

// ApproveWithdrawal releases the funds of a pending withdrawal. The wallet is
// re-read under lock; when it no longer covers the amount the withdrawal is
// rejected in the same transaction and ErrWithdrawalAutoRejected is returned.
func (w *ApprovalWorkflowImpl) ApproveWithdrawal(ctx context.Context, transactionID uuid.UUID, approverID, correlationID string) (result *ApprovalResult, err error) {
	started := time.Now()
	defer func() { w.observe("approve_withdrawal", started, err) }()

	log := logger.WithCorrelationID(w.logger, correlationID).With("transaction_id", transactionID.String(), "approver_id", approverID)

	if err = w.deps.Validator.RequireAdmin(ctx, approverID); err != nil {
		log.Warn("Approval refused", "error", err)
		return nil, err
	}

	var autoRejected *ledger.ErrWithdrawalAutoRejected

	err = w.deps.DB.ExecuteTx(ctx, func(tx pgx.Tx) error {
		txns := w.deps.Transactions.WithTx(tx)

		txn, err := txns.LockForUpdate(ctx, transactionID)
		if err != nil {
			return err
		}
		if err := txn.CheckDecidable(); err != nil {
			return err
		}

		wlt, err := w.deps.Wallets.Lock(ctx, tx, txn.UserID)
		if err != nil {
			return err
		}

		now := w.now()
		if !wlt.CanDebit(txn.Amount) {
			if err := txn.Reject(approverID, shared.RejectionReasonInsufficientBalance, now); err != nil {
				return err
			}
			if err := txns.TransitionStatus(ctx, txn); err != nil {
				return err
			}
			if err := w.deps.Outbox.Record(ctx, tx, txn, shared.EventWithdrawalRejected, approverID); err != nil {
				return err
			}
			autoRejected = &ledger.ErrWithdrawalAutoRejected{
				TransactionID: txn.ID,
				Balance:       wlt.Balance,
				Amount:        txn.Amount,
			}
			return nil
		}

		if err := wlt.Debit(txn.Amount); err != nil {
			return err
		}
		if err := w.deps.Wallets.Save(ctx, tx, wlt); err != nil {
			return err
		}
		if err := txn.Approve(approverID, wlt.Balance, now); err != nil {
			return err
		}
		if err := txns.TransitionStatus(ctx, txn); err != nil {
			return err
		}
		if err := w.deps.Outbox.Record(ctx, tx, txn, shared.EventWithdrawalApproved, approverID); err != nil {
			return err
		}

		result = &ApprovalResult{Transaction: txn, NewBalance: wlt.Balance}
		return nil
	})
	if err != nil {
		err = ledger.NewStoreError("approve withdrawal", err)
		if ledger.IsBusinessError(err) {
			log.Warn("Withdrawal approval refused", "error", err)
		} else {
			log.Error("Withdrawal approval failed", "error", err)
		}
		return nil, err
	}

	if autoRejected != nil {
		log.Warn("Withdrawal auto-rejected at approval",
			"balance", autoRejected.Balance,
			"amount", autoRejected.Amount,
		)
		return nil, *autoRejected
	}

	w.invalidate(ctx, result.Transaction.UserID)
	w.deps.Metrics.AddAmount(string(shared.TransactionTypeWithdrawal), result.Transaction.Amount)

	log.Info("Withdrawal approved", "user_id", result.Transaction.UserID, "amount", result.Transaction.Amount, "balance", result.NewBalance)
	return result, nil
}

// RejectWithdrawal closes a pending withdrawal without moving funds
func (w *ApprovalWorkflowImpl) RejectWithdrawal(ctx context.Context, transactionID uuid.UUID, approverID, reason, correlationID string) (txn *ledger.Transaction, err error) {
	started := time.Now()
	defer func() { w.observe("reject_withdrawal", started, err) }()

	log := logger.WithCorrelationID(w.logger, correlationID).With("transaction_id", transactionID.String(), "approver_id", approverID)

	if err = w.deps.Validator.RequireAdmin(ctx, approverID); err != nil {
		log.Warn("Rejection refused", "error", err)
		return nil, err
	}

	err = w.deps.DB.ExecuteTx(ctx, func(tx pgx.Tx) error {
		txns := w.deps.Transactions.WithTx(tx)

		locked, err := txns.LockForUpdate(ctx, transactionID)
		if err != nil {
			return err
		}
		if err := locked.Reject(approverID, reason, w.now()); err != nil {
			return err
		}
		if err := txns.TransitionStatus(ctx, locked); err != nil {
			return err
		}
		if err := w.deps.Outbox.Record(ctx, tx, locked, shared.EventWithdrawalRejected, approverID); err != nil {
			return err
		}

		txn = locked
		return nil
	})
	if err != nil {
		err = ledger.NewStoreError("reject withdrawal", err)
		if ledger.IsBusinessError(err) {
			log.Warn("Withdrawal rejection refused", "error", err)
		} else {
			log.Error("Withdrawal rejection failed", "error", err)
		}
		return nil, err
	}

	log.Info("Withdrawal rejected", "user_id", txn.UserID, "reason", txn.RejectionReason)
	return txn, nil
}

// ListPendingWithdrawals returns the approval queue in request order
func (w *ApprovalWorkflowImpl) ListPendingWithdrawals(ctx context.Context, approverID string, page, perPage int) ([]*ledger.Transaction, int64, error) {
	if err := w.deps.Validator.RequireAdmin(ctx, approverID); err != nil {
		return nil, 0, err
	}

	limit, offset := PageBounds(page, perPage)
	txns, err := w.deps.Transactions.ListByStatus(ctx, shared.TransactionTypeWithdrawal, shared.TransactionStatusPending, limit, offset)
	if err != nil {
		return nil, 0, ledger.NewStoreError("list pending withdrawals", err)
	}
	total, err := w.deps.Transactions.CountByStatus(ctx, shared.TransactionTypeWithdrawal, shared.TransactionStatusPending)
	if err != nil {
		return nil, 0, ledger.NewStoreError("count pending withdrawals", err)
	}
	return txns, total, nil
}

func (w *ApprovalWorkflowImpl) invalidate(ctx context.Context, userID string) {
	if w.deps.Cache == nil {
		return
	}
	if err := w.deps.Cache.Invalidate(ctx, userID); err != nil {
		w.logger.Warn("Balance cache invalidation failed", "user_id", userID, "error", err)
	}
}
