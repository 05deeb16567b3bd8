package components

import (
	"context"
	"io"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/stayhub-wallet-ledger/internal/domain/ledger"
	"github.com/stayhub-wallet-ledger/internal/domain/outbox"
	"github.com/stayhub-wallet-ledger/internal/domain/shared"
	"github.com/stayhub-wallet-ledger/internal/domain/user"
	"github.com/stayhub-wallet-ledger/internal/domain/wallet"
	"github.com/stretchr/testify/mock"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type MockWalletRepo struct {
	mock.Mock
}

func (m *MockWalletRepo) Create(ctx context.Context, w *wallet.Wallet) (bool, error) {
	args := m.Called(ctx, w)
	return args.Bool(0), args.Error(1)
}

func (m *MockWalletRepo) GetByUserID(ctx context.Context, userID string) (*wallet.Wallet, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*wallet.Wallet), args.Error(1)
}

func (m *MockWalletRepo) Update(ctx context.Context, w *wallet.Wallet) error {
	args := m.Called(ctx, w)
	return args.Error(0)
}

func (m *MockWalletRepo) LockForUpdate(ctx context.Context, userID string) (*wallet.Wallet, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*wallet.Wallet), args.Error(1)
}

func (m *MockWalletRepo) WithTx(tx pgx.Tx) wallet.Repository {
	args := m.Called(tx)
	return args.Get(0).(wallet.Repository)
}

type MockOutboxRepo struct {
	mock.Mock
}

func (m *MockOutboxRepo) Create(ctx context.Context, message *outbox.Message) error {
	args := m.Called(ctx, message)
	return args.Error(0)
}

func (m *MockOutboxRepo) GetPending(ctx context.Context, limit int) ([]*outbox.Message, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*outbox.Message), args.Error(1)
}

func (m *MockOutboxRepo) UpdateStatus(ctx context.Context, id int64, status shared.OutboxStatus) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

func (m *MockOutboxRepo) RecordFailure(ctx context.Context, id int64, maxAttempts int) (int, shared.OutboxStatus, error) {
	args := m.Called(ctx, id, maxAttempts)
	return args.Int(0), args.Get(1).(shared.OutboxStatus), args.Error(2)
}

func (m *MockOutboxRepo) WithTx(tx pgx.Tx) outbox.Repository {
	args := m.Called(tx)
	return args.Get(0).(outbox.Repository)
}

type MockRoleLookup struct {
	mock.Mock
}

func (m *MockRoleLookup) GetUserRole(ctx context.Context, userID string) (user.Role, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(user.Role), args.Error(1)
}

type MockReconciliationRepo struct {
	mock.Mock
}

func (m *MockReconciliationRepo) Record(ctx context.Context, capture *ledger.UnreconciledCapture) error {
	args := m.Called(ctx, capture)
	return args.Error(0)
}

func (m *MockReconciliationRepo) Resolve(ctx context.Context, externalTransactionID string) (bool, error) {
	args := m.Called(ctx, externalTransactionID)
	return args.Bool(0), args.Error(1)
}

func (m *MockReconciliationRepo) ListOpen(ctx context.Context, limit int) ([]*ledger.UnreconciledCapture, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*ledger.UnreconciledCapture), args.Error(1)
}
