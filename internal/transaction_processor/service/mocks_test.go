package service

import (
	"context"
	"io"
	"log/slog"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/stayhub-wallet-ledger/internal/domain/ledger"
	"github.com/stayhub-wallet-ledger/internal/domain/shared"
	"github.com/stayhub-wallet-ledger/internal/domain/wallet"
	ledgerservice "github.com/stayhub-wallet-ledger/internal/ledger_service/service"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// MockCaptureProcessor mocks the CaptureProcessor interface
type MockCaptureProcessor struct {
	mock.Mock
}

func (m *MockCaptureProcessor) ProcessCapture(ctx context.Context, n *shared.CaptureNotification) error {
	args := m.Called(ctx, n)
	return args.Error(0)
}

type MockLedgerService struct {
	mock.Mock
}

func (m *MockLedgerService) GetBalance(ctx context.Context, userID string) (*wallet.Wallet, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*wallet.Wallet), args.Error(1)
}

func (m *MockLedgerService) TopUp(ctx context.Context, req *ledgerservice.TopUpRequest) (*ledgerservice.TopUpResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledgerservice.TopUpResult), args.Error(1)
}

func (m *MockLedgerService) RequestWithdrawal(ctx context.Context, req *ledgerservice.WithdrawalRequest) (*ledger.Transaction, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.Transaction), args.Error(1)
}

func (m *MockLedgerService) ListTransactions(ctx context.Context, callerID, userID string, page, perPage int) ([]*ledger.Transaction, int64, error) {
	args := m.Called(ctx, callerID, userID, page, perPage)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]*ledger.Transaction), args.Get(1).(int64), args.Error(2)
}

func (m *MockLedgerService) GetTransaction(ctx context.Context, callerID string, id uuid.UUID) (*ledger.Transaction, error) {
	args := m.Called(ctx, callerID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.Transaction), args.Error(1)
}

func (m *MockLedgerService) ListHistory(ctx context.Context, callerID, userID string, page, perPage int) ([]*ledger.HistoryEntry, int64, error) {
	args := m.Called(ctx, callerID, userID, page, perPage)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]*ledger.HistoryEntry), args.Get(1).(int64), args.Error(2)
}

type MockCaptureReconciler struct {
	mock.Mock
}

func (m *MockCaptureReconciler) Record(ctx context.Context, capture *ledger.UnreconciledCapture) error {
	args := m.Called(ctx, capture)
	return args.Error(0)
}

func (m *MockCaptureReconciler) Resolve(ctx context.Context, externalTransactionID string) {
	m.Called(ctx, externalTransactionID)
}

func (m *MockCaptureReconciler) ListOpen(ctx context.Context, callerID string, limit int) ([]*ledger.UnreconciledCapture, error) {
	args := m.Called(ctx, callerID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*ledger.UnreconciledCapture), args.Error(1)
}
