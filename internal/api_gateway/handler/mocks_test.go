package handler

import (
	"context"
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/stayhub-wallet-ledger/internal/api_gateway/middleware"
	"github.com/stayhub-wallet-ledger/internal/api_gateway/service"
	"github.com/stayhub-wallet-ledger/internal/domain/ledger"
	"github.com/stayhub-wallet-ledger/internal/domain/payment"
	"github.com/stayhub-wallet-ledger/internal/domain/wallet"
	ledgerservice "github.com/stayhub-wallet-ledger/internal/ledger_service/service"
)

// PaginatedResponse is a generic version of Response for testing paginated data
type PaginatedResponse[T any] struct {
	Data          []T        `json:"data"`
	Error         *ErrorInfo `json:"error,omitempty"`
	CorrelationID string     `json:"correlation_id,omitempty"`
	Meta          *MetaInfo  `json:"meta,omitempty"`
}

// DataResponse is a generic version of Response for single objects
type DataResponse[T any] struct {
	Data          T          `json:"data"`
	Error         *ErrorInfo `json:"error,omitempty"`
	CorrelationID string     `json:"correlation_id,omitempty"`
}

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestRouter authenticates every request as userID
func newTestRouter(userID string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(middleware.CorrelationID())
	router.Use(func(c *gin.Context) {
		c.Set(middleware.UserIDKey, userID)
		c.Next()
	})
	return router
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

type MockApprovalWorkflow struct {
	mock.Mock
}

func (m *MockApprovalWorkflow) ApproveWithdrawal(ctx context.Context, id uuid.UUID, approverID, correlationID string) (*ledgerservice.ApprovalResult, error) {
	args := m.Called(ctx, id, approverID, correlationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledgerservice.ApprovalResult), args.Error(1)
}

func (m *MockApprovalWorkflow) RejectWithdrawal(ctx context.Context, id uuid.UUID, approverID, reason, correlationID string) (*ledger.Transaction, error) {
	args := m.Called(ctx, id, approverID, reason, correlationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.Transaction), args.Error(1)
}

func (m *MockApprovalWorkflow) ListPendingWithdrawals(ctx context.Context, approverID string, page, perPage int) ([]*ledger.Transaction, int64, error) {
	args := m.Called(ctx, approverID, page, perPage)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]*ledger.Transaction), args.Get(1).(int64), args.Error(2)
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

type MockTopUpService struct {
	mock.Mock
}

func (m *MockTopUpService) CreateOrder(ctx context.Context, req *service.CreateOrderRequest) (*payment.Order, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.Order), args.Error(1)
}

func (m *MockTopUpService) CaptureOrder(ctx context.Context, req *service.CaptureOrderRequest) (*ledgerservice.TopUpResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledgerservice.TopUpResult), args.Error(1)
}

type MockNotificationService struct {
	mock.Mock
}

func (m *MockNotificationService) HandleWebhook(ctx context.Context, provider string, payload []byte, headers http.Header) error {
	args := m.Called(ctx, provider, payload, headers)
	return args.Error(0)
}

var (
	_ ledgerservice.LedgerService     = (*MockLedgerService)(nil)
	_ ledgerservice.ApprovalWorkflow  = (*MockApprovalWorkflow)(nil)
	_ ledgerservice.CaptureReconciler = (*MockCaptureReconciler)(nil)
	_ service.TopUpService            = (*MockTopUpService)(nil)
	_ service.NotificationService     = (*MockNotificationService)(nil)
)
