package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stayhub-wallet-ledger/internal/domain/ledger"
	"github.com/stayhub-wallet-ledger/internal/domain/shared"
	"github.com/stayhub-wallet-ledger/internal/domain/wallet"
	"github.com/stayhub-wallet-ledger/internal/logger"
	"github.com/stayhub-wallet-ledger/internal/metrics"
)

// Dependencies groups the collaborators shared by the ledger service and the
// approval workflow. Cache and Metrics are optional.
type Dependencies struct {
	DB           TxRunner
	Wallets      WalletManager
	Transactions ledger.Repository
	History      ledger.HistoryRepository
	Outbox       OutboxManager
	Validator    RequestValidator
	Cache        wallet.BalanceCache
	Metrics      *metrics.Metrics
}

type LedgerServiceImpl struct {
	deps   Dependencies
	logger *slog.Logger
	now    func() time.Time
}

func NewLedgerService(deps Dependencies, logger *slog.Logger) LedgerService {
	return &LedgerServiceImpl{
		deps:   deps,
		logger: logger,
		now:    time.Now,
	}
}

func outcome(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeSuccess
	case ledger.IsBusinessError(err):
		return metrics.OutcomeRejected
	default:
		return metrics.OutcomeError
	}
}

func (s *LedgerServiceImpl) observe(operation string, started time.Time, err error) {
	s.deps.Metrics.ObserveLedgerOperation(operation, outcome(err), started)
}

// GetBalance returns the caller's wallet, creating an empty one on first use.
func (s *LedgerServiceImpl) GetBalance(ctx context.Context, userID string) (w *wallet.Wallet, err error) {
	started := time.Now()
	defer func() { s.observe("get_balance", started, err) }()

	if userID == "" {
		return nil, ledger.ErrUnauthorized
	}

	if s.deps.Cache != nil {
		cached, cacheErr := s.deps.Cache.Get(ctx, userID)
		if cacheErr != nil {
			s.logger.Warn("Balance cache read failed", "user_id", userID, "error", cacheErr)
		} else if cached != nil {
			return cached, nil
		}
	}

	w, err = s.deps.Wallets.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, ledger.NewStoreError("get balance", err)
	}

	if s.deps.Cache != nil {
		if cacheErr := s.deps.Cache.Set(ctx, w); cacheErr != nil {
			s.logger.Warn("Balance cache write failed", "user_id", userID, "error", cacheErr)
		}
	}
	return w, nil
}

func (s *LedgerServiceImpl) invalidate(ctx context.Context, userID string) {
	if s.deps.Cache == nil {
		return
	}
	if err := s.deps.Cache.Invalidate(ctx, userID); err != nil {
		s.logger.Warn("Balance cache invalidation failed", "user_id", userID, "error", err)
	}
}

// TopUp credits a captured payment to the wallet. A capture reference that
// was already applied credits nothing and reports the balance it produced.
func (s *LedgerServiceImpl) TopUp(ctx context.Context, req *TopUpRequest) (result *TopUpResult, err error) {
	started := time.Now()
	defer func() { s.observe("topup", started, err) }()

	log := logger.WithCorrelationID(s.logger, req.CorrelationID)

	if err = s.deps.Validator.ValidateTopUp(req); err != nil {
		log.Warn("Top-up rejected", "user_id", req.UserID, "caller_id", req.CallerID, "amount", req.Amount, "error", err)
		return nil, err
	}

	existing, err := s.deps.Transactions.GetByExternalTransactionID(ctx, req.ExternalTransactionID)
	if err != nil {
		return nil, ledger.NewStoreError("look up top-up", err)
	}
	if existing != nil {
		return s.alreadyApplied(log, existing, req)
	}

	err = s.deps.DB.ExecuteTx(ctx, func(tx pgx.Tx) error {
		w, err := s.deps.Wallets.LockOrCreate(ctx, tx, req.UserID)
		if err != nil {
			return err
		}
		if w.Currency != req.Currency {
			return ledger.ErrCurrencyMismatch{WalletCurrency: w.Currency, Currency: req.Currency}
		}

		if err := w.Credit(req.Amount); err != nil {
			return err
		}
		if err := s.deps.Wallets.Save(ctx, tx, w); err != nil {
			return err
		}

		txn, err := ledger.NewTopUp(req.UserID, req.Amount, req.Currency, req.PaymentMethod, req.ExternalTransactionID, w.Balance, s.now())
		if err != nil {
			return err
		}
		txn.CorrelationID = req.CorrelationID

		if err := s.deps.Transactions.WithTx(tx).Create(ctx, txn); err != nil {
			return err
		}
		if err := s.deps.Outbox.Record(ctx, tx, txn, shared.EventTopUpCompleted, req.CallerID); err != nil {
			return err
		}

		result = &TopUpResult{Transaction: txn, NewBalance: w.Balance}
		return nil
	})

	if errors.Is(err, ledger.ErrDuplicateExternalReference) {
		// Lost the race against a concurrent delivery of the same capture
		existing, lookupErr := s.deps.Transactions.GetByExternalTransactionID(ctx, req.ExternalTransactionID)
		if lookupErr != nil || existing == nil {
			return nil, ledger.NewStoreError("look up duplicate top-up", errors.Join(err, lookupErr))
		}
		return s.alreadyApplied(log, existing, req)
	}
	if err != nil {
		err = ledger.NewStoreError("top up", err)
		log.Error("Top-up failed", "user_id", req.UserID, "external_transaction_id", req.ExternalTransactionID, "error", err)
		return nil, err
	}

	s.invalidate(ctx, req.UserID)
	s.deps.Metrics.AddAmount(string(shared.TransactionTypeTopUp), req.Amount)

	log.Info("Top-up applied",
		"transaction_id", result.Transaction.ID.String(),
		"user_id", req.UserID,
		"amount", req.Amount,
		"balance", result.NewBalance,
	)
	return result, nil
}

func (s *LedgerServiceImpl) alreadyApplied(log *slog.Logger, existing *ledger.Transaction, req *TopUpRequest) (*TopUpResult, error) {
	if existing.UserID != req.UserID || existing.Type != shared.TransactionTypeTopUp {
		log.Warn("External reference belongs to another transaction",
			"external_transaction_id", req.ExternalTransactionID,
			"user_id", req.UserID,
			"owner_id", existing.UserID,
		)
		return nil, ledger.ErrUnauthorized
	}

	var balance int64
	if existing.BalanceAfter != nil {
		balance = *existing.BalanceAfter
	}
	log.Info("Top-up already applied", "transaction_id", existing.ID.String(), "external_transaction_id", req.ExternalTransactionID)
	return &TopUpResult{Transaction: existing, NewBalance: balance, AlreadyApplied: true}, nil
}

// RequestWithdrawal records a pending withdrawal. The balance is only checked
// here and changes when an administrator approves the request.
func (s *LedgerServiceImpl) RequestWithdrawal(ctx context.Context, req *WithdrawalRequest) (txn *ledger.Transaction, err error) {
	started := time.Now()
	defer func() { s.observe("withdrawal_request", started, err) }()

	log := logger.WithCorrelationID(s.logger, req.CorrelationID)

	if err = s.deps.Validator.ValidateWithdrawal(req); err != nil {
		log.Warn("Withdrawal request rejected", "user_id", req.UserID, "caller_id", req.CallerID, "amount", req.Amount, "error", err)
		return nil, err
	}

	err = s.deps.DB.ExecuteTx(ctx, func(tx pgx.Tx) error {
		w, err := s.deps.Wallets.LockOrCreate(ctx, tx, req.UserID)
		if err != nil {
			return err
		}
		if w.Currency != req.Currency {
			return ledger.ErrCurrencyMismatch{WalletCurrency: w.Currency, Currency: req.Currency}
		}
		if !w.CanDebit(req.Amount) {
			return ledger.ErrInsufficientBalance
		}

		created, err := ledger.NewWithdrawal(req.UserID, req.Amount, req.Currency, req.PaymentMethod, req.AccountDetails, s.now())
		if err != nil {
			return err
		}
		created.CorrelationID = req.CorrelationID

		if err := s.deps.Transactions.WithTx(tx).Create(ctx, created); err != nil {
			return err
		}
		if err := s.deps.Outbox.Record(ctx, tx, created, shared.EventWithdrawalRequested, req.CallerID); err != nil {
			return err
		}

		txn = created
		return nil
	})
	if err != nil {
		err = ledger.NewStoreError("request withdrawal", err)
		if ledger.IsBusinessError(err) {
			log.Warn("Withdrawal request rejected", "user_id", req.UserID, "amount", req.Amount, "error", err)
		} else {
			log.Error("Withdrawal request failed", "user_id", req.UserID, "error", err)
		}
		return nil, err
	}

	log.Info("Withdrawal requested", "transaction_id", txn.ID.String(), "user_id", req.UserID, "amount", req.Amount)
	return txn, nil
}

// ListTransactions returns the user's transactions, newest first
func (s *LedgerServiceImpl) ListTransactions(ctx context.Context, callerID, userID string, page, perPage int) ([]*ledger.Transaction, int64, error) {
	if err := s.deps.Validator.AuthorizeReader(ctx, callerID, userID); err != nil {
		return nil, 0, err
	}

	limit, offset := PageBounds(page, perPage)
	txns, err := s.deps.Transactions.ListByUserID(ctx, userID, limit, offset)
	if err != nil {
		return nil, 0, ledger.NewStoreError("list transactions", err)
	}
	total, err := s.deps.Transactions.CountByUserID(ctx, userID)
	if err != nil {
		return nil, 0, ledger.NewStoreError("count transactions", err)
	}
	return txns, total, nil
}

func (s *LedgerServiceImpl) GetTransaction(ctx context.Context, callerID string, transactionID uuid.UUID) (*ledger.Transaction, error) {
	txn, err := s.deps.Transactions.GetByID(ctx, transactionID)
	if err != nil {
		return nil, ledger.NewStoreError("get transaction", err)
	}
	if err := s.deps.Validator.AuthorizeReader(ctx, callerID, txn.UserID); err != nil {
		return nil, err
	}
	return txn, nil
}

// ListHistory serves the document-store projection. It may lag the
// authoritative table by the outbox polling interval.
func (s *LedgerServiceImpl) ListHistory(ctx context.Context, callerID, userID string, page, perPage int) ([]*ledger.HistoryEntry, int64, error) {
	if err := s.deps.Validator.AuthorizeReader(ctx, callerID, userID); err != nil {
		return nil, 0, err
	}

	limit, offset := PageBounds(page, perPage)
	entries, err := s.deps.History.GetByUserID(ctx, userID, limit, offset)
	if err != nil {
		return nil, 0, ledger.NewStoreError("list history", err)
	}
	total, err := s.deps.History.CountByUserID(ctx, userID)
	if err != nil {
		return nil, 0, ledger.NewStoreError("count history", err)
	}
	return entries, total, nil
}
