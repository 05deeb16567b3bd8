package service_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sort"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stayhub-wallet-ledger/internal/config"
	"github.com/stayhub-wallet-ledger/internal/domain/ledger"
	"github.com/stayhub-wallet-ledger/internal/domain/outbox"
	"github.com/stayhub-wallet-ledger/internal/domain/shared"
	"github.com/stayhub-wallet-ledger/internal/domain/user"
	"github.com/stayhub-wallet-ledger/internal/domain/wallet"
	"github.com/stayhub-wallet-ledger/internal/ledger_service/components"
	"github.com/stayhub-wallet-ledger/internal/ledger_service/service"
	"github.com/stayhub-wallet-ledger/internal/metrics"
)

// memStore is an in-memory stand-in for the Postgres tables. ExecuteTx runs
// one transaction at a time, which gives the same isolation the row locks
// give in Postgres, and restores a snapshot when the callback fails.
type memStore struct {
	txMu sync.Mutex
	mu   sync.Mutex

	wallets    map[string]wallet.Wallet
	txns       map[uuid.UUID]ledger.Transaction
	byExternal map[string]uuid.UUID
	outbox     []outbox.Message

	failOutbox error
}

type memSnapshot struct {
	wallets    map[string]wallet.Wallet
	txns       map[uuid.UUID]ledger.Transaction
	byExternal map[string]uuid.UUID
	outbox     []outbox.Message
}

func newMemStore() *memStore {
	return &memStore{
		wallets:    map[string]wallet.Wallet{},
		txns:       map[uuid.UUID]ledger.Transaction{},
		byExternal: map[string]uuid.UUID{},
	}
}

func (s *memStore) snapshot() memSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := memSnapshot{
		wallets:    make(map[string]wallet.Wallet, len(s.wallets)),
		txns:       make(map[uuid.UUID]ledger.Transaction, len(s.txns)),
		byExternal: make(map[string]uuid.UUID, len(s.byExternal)),
		outbox:     append([]outbox.Message(nil), s.outbox...),
	}
	for k, v := range s.wallets {
		snap.wallets[k] = v
	}
	for k, v := range s.txns {
		snap.txns[k] = v
	}
	for k, v := range s.byExternal {
		snap.byExternal[k] = v
	}
	return snap
}

func (s *memStore) restore(snap memSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.wallets = snap.wallets
	s.txns = snap.txns
	s.byExternal = snap.byExternal
	s.outbox = snap.outbox
}

func (s *memStore) ExecuteTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	snap := s.snapshot()
	if err := fn(nil); err != nil {
		s.restore(snap)
		return err
	}
	return nil
}

func (s *memStore) balance(userID string) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.wallets[userID].Balance
}

func (s *memStore) transaction(id uuid.UUID) ledger.Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.txns[id]
}

func (s *memStore) transactionsOf(userID string) []ledger.Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []ledger.Transaction
	for _, t := range s.txns {
		if t.UserID == userID {
			out = append(out, t)
		}
	}
	return out
}

func (s *memStore) events() []shared.EventType {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]shared.EventType, 0, len(s.outbox))
	for _, m := range s.outbox {
		out = append(out, m.EventType)
	}
	return out
}

// completedSum recomputes the balance from the transaction history
func (s *memStore) completedSum(userID string) int64 {
	var sum int64
	for _, t := range s.transactionsOf(userID) {
		if t.Status != shared.TransactionStatusCompleted {
			continue
		}
		if t.Type == shared.TransactionTypeTopUp {
			sum += t.Amount
		} else {
			sum -= t.Amount
		}
	}
	return sum
}

type memWalletRepo struct{ s *memStore }

func (r memWalletRepo) Create(ctx context.Context, w *wallet.Wallet) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.wallets[w.UserID]; ok {
		return false, nil
	}
	r.s.wallets[w.UserID] = *w
	return true, nil
}

func (r memWalletRepo) GetByUserID(ctx context.Context, userID string) (*wallet.Wallet, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	w, ok := r.s.wallets[userID]
	if !ok {
		return nil, wallet.ErrWalletNotFound{UserID: userID}
	}
	return &w, nil
}

func (r memWalletRepo) Update(ctx context.Context, w *wallet.Wallet) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stored, ok := r.s.wallets[w.UserID]
	if !ok || stored.Version != w.Version-1 {
		return wallet.ErrConcurrentModification{UserID: w.UserID}
	}
	r.s.wallets[w.UserID] = *w
	return nil
}

func (r memWalletRepo) LockForUpdate(ctx context.Context, userID string) (*wallet.Wallet, error) {
	return r.GetByUserID(ctx, userID)
}

func (r memWalletRepo) WithTx(tx pgx.Tx) wallet.Repository { return r }

type memTxnRepo struct{ s *memStore }

func (r memTxnRepo) Create(ctx context.Context, txn *ledger.Transaction) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if txn.ExternalTransactionID != "" {
		if _, dup := r.s.byExternal[txn.ExternalTransactionID]; dup {
			return ledger.ErrDuplicateExternalReference
		}
		r.s.byExternal[txn.ExternalTransactionID] = txn.ID
	}
	r.s.txns[txn.ID] = *txn
	return nil
}

func (r memTxnRepo) GetByID(ctx context.Context, id uuid.UUID) (*ledger.Transaction, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t, ok := r.s.txns[id]
	if !ok {
		return nil, ledger.ErrTransactionNotFound{TransactionID: id}
	}
	return &t, nil
}

func (r memTxnRepo) GetByExternalTransactionID(ctx context.Context, externalTransactionID string) (*ledger.Transaction, error) {
	r.s.mu.Lock()
	id, ok := r.s.byExternal[externalTransactionID]
	r.s.mu.Unlock()
	if !ok {
		return nil, nil
	}
	return r.GetByID(ctx, id)
}

func (r memTxnRepo) LockForUpdate(ctx context.Context, id uuid.UUID) (*ledger.Transaction, error) {
	return r.GetByID(ctx, id)
}

func (r memTxnRepo) TransitionStatus(ctx context.Context, txn *ledger.Transaction) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stored, ok := r.s.txns[txn.ID]
	if !ok || stored.Status != shared.TransactionStatusPending {
		return ledger.ErrAlreadyProcessed
	}
	r.s.txns[txn.ID] = *txn
	return nil
}

func (r memTxnRepo) filter(keep func(ledger.Transaction) bool) []*ledger.Transaction {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*ledger.Transaction
	for _, t := range r.s.txns {
		if keep(t) {
			t := t
			out = append(out, &t)
		}
	}
	return out
}

func page(txns []*ledger.Transaction, limit, offset int) []*ledger.Transaction {
	if offset >= len(txns) {
		return []*ledger.Transaction{}
	}
	end := offset + limit
	if end > len(txns) {
		end = len(txns)
	}
	return txns[offset:end]
}

func (r memTxnRepo) ListByUserID(ctx context.Context, userID string, limit, offset int) ([]*ledger.Transaction, error) {
	txns := r.filter(func(t ledger.Transaction) bool { return t.UserID == userID })
	sort.Slice(txns, func(i, j int) bool { return txns[i].CreatedAt.After(txns[j].CreatedAt) })
	return page(txns, limit, offset), nil
}

func (r memTxnRepo) CountByUserID(ctx context.Context, userID string) (int64, error) {
	return int64(len(r.filter(func(t ledger.Transaction) bool { return t.UserID == userID }))), nil
}

func (r memTxnRepo) ListByStatus(ctx context.Context, txType shared.TransactionType, status shared.TransactionStatus, limit, offset int) ([]*ledger.Transaction, error) {
	txns := r.filter(func(t ledger.Transaction) bool { return t.Type == txType && t.Status == status })
	sort.Slice(txns, func(i, j int) bool { return txns[i].CreatedAt.Before(txns[j].CreatedAt) })
	return page(txns, limit, offset), nil
}

func (r memTxnRepo) CountByStatus(ctx context.Context, txType shared.TransactionType, status shared.TransactionStatus) (int64, error) {
	return int64(len(r.filter(func(t ledger.Transaction) bool { return t.Type == txType && t.Status == status }))), nil
}

func (r memTxnRepo) WithTx(tx pgx.Tx) ledger.Repository { return r }

type memOutboxRepo struct{ s *memStore }

func (r memOutboxRepo) Create(ctx context.Context, message *outbox.Message) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.failOutbox != nil {
		return r.s.failOutbox
	}
	message.ID = int64(len(r.s.outbox) + 1)
	r.s.outbox = append(r.s.outbox, *message)
	return nil
}

func (r memOutboxRepo) GetPending(ctx context.Context, limit int) ([]*outbox.Message, error) {
	return nil, errors.New("not used")
}

func (r memOutboxRepo) UpdateStatus(ctx context.Context, id int64, status shared.OutboxStatus) error {
	return errors.New("not used")
}

func (r memOutboxRepo) RecordFailure(ctx context.Context, id int64, maxAttempts int) (int, shared.OutboxStatus, error) {
	return 0, "", errors.New("not used")
}

func (r memOutboxRepo) WithTx(tx pgx.Tx) outbox.Repository { return r }

type memHistoryRepo struct {
	entries []*ledger.HistoryEntry
	err     error
}

func (r *memHistoryRepo) Upsert(ctx context.Context, entry *ledger.HistoryEntry) error {
	r.entries = append(r.entries, entry)
	return nil
}

func (r *memHistoryRepo) GetByTransactionID(ctx context.Context, transactionID string) (*ledger.HistoryEntry, error) {
	return nil, ledger.ErrHistoryEntryNotFound{TransactionID: transactionID}
}

func (r *memHistoryRepo) GetByUserID(ctx context.Context, userID string, limit, offset int) ([]*ledger.HistoryEntry, error) {
	if r.err != nil {
		return nil, r.err
	}
	var out []*ledger.HistoryEntry
	for _, e := range r.entries {
		if e.UserID == userID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *memHistoryRepo) CountByUserID(ctx context.Context, userID string) (int64, error) {
	entries, err := r.GetByUserID(ctx, userID, 0, 0)
	return int64(len(entries)), err
}

type staticRoles map[string]user.Role

func (r staticRoles) GetUserRole(ctx context.Context, userID string) (user.Role, error) {
	if role, ok := r[userID]; ok {
		return role, nil
	}
	return user.RoleUser, nil
}

type memCache struct {
	mu          sync.Mutex
	wallets     map[string]wallet.Wallet
	err         error
	invalidated []string
}

func (c *memCache) Get(ctx context.Context, userID string) (*wallet.Wallet, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return nil, c.err
	}
	w, ok := c.wallets[userID]
	if !ok {
		return nil, nil
	}
	return &w, nil
}

func (c *memCache) Set(ctx context.Context, w *wallet.Wallet) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	c.wallets[w.UserID] = *w
	return nil
}

func (c *memCache) Invalidate(ctx context.Context, userID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.invalidated = append(c.invalidated, userID)
	delete(c.wallets, userID)
	return c.err
}

const (
	hostID  = "host-1"
	adminID = "admin-1"
)

type harness struct {
	store    *memStore
	history  *memHistoryRepo
	cache    *memCache
	ledger   service.LedgerService
	approval service.ApprovalWorkflow
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	store := newMemStore()
	history := &memHistoryRepo{}
	cache := &memCache{wallets: map[string]wallet.Wallet{}}

	services := components.CreateLedgerServices(
		store,
		components.Repositories{
			Wallets:      memWalletRepo{store},
			Transactions: memTxnRepo{store},
			History:      history,
			Outbox:       memOutboxRepo{store},
			Roles:        staticRoles{adminID: user.RoleAdmin, hostID: user.RoleHost},
			Cache:        cache,
		},
		metrics.New(),
		slog.New(slog.NewTextHandler(io.Discard, nil)),
		&config.Config{Ledger: config.LedgerConfig{Currency: "USD"}},
	)

	return &harness{
		store:    store,
		history:  history,
		cache:    cache,
		ledger:   services.Ledger,
		approval: services.Approval,
	}
}

func (h *harness) topUp(t *testing.T, userID string, amount int64, externalID string) *service.TopUpResult {
	t.Helper()
	res, err := h.ledger.TopUp(context.Background(), &service.TopUpRequest{
		CallerID:              userID,
		UserID:                userID,
		Amount:                amount,
		PaymentMethod:         "paypal",
		ExternalTransactionID: externalID,
	})
	if err != nil {
		t.Fatalf("top-up %s failed: %v", externalID, err)
	}
	return res
}

func (h *harness) requestWithdrawal(userID string, amount int64) (*ledger.Transaction, error) {
	return h.ledger.RequestWithdrawal(context.Background(), &service.WithdrawalRequest{
		CallerID:       userID,
		UserID:         userID,
		Amount:         amount,
		PaymentMethod:  "paypal",
		AccountDetails: map[string]string{"email": userID + "@example.com"},
	})
}
