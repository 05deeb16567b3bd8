package components

import (
	"log/slog"

	"github.com/stayhub-wallet-ledger/internal/config"
	"github.com/stayhub-wallet-ledger/internal/domain/ledger"
	"github.com/stayhub-wallet-ledger/internal/domain/outbox"
	"github.com/stayhub-wallet-ledger/internal/domain/user"
	"github.com/stayhub-wallet-ledger/internal/domain/wallet"
	"github.com/stayhub-wallet-ledger/internal/ledger_service/service"
	"github.com/stayhub-wallet-ledger/internal/metrics"
)

// Repositories are the stores the ledger services are built on. Cache may be nil.
type Repositories struct {
	Wallets         wallet.Repository
	Transactions    ledger.Repository
	History         ledger.HistoryRepository
	Outbox          outbox.Repository
	Reconciliations ledger.ReconciliationRepository
	Roles           user.RoleLookup
	Cache           wallet.BalanceCache
}

// Services bundles the ledger operations exposed to the API and the processor
type Services struct {
	Ledger     service.LedgerService
	Approval   service.ApprovalWorkflow
	Reconciler service.CaptureReconciler
}

// CreateLedgerServices wires the ledger service, the approval workflow and
// the capture reconciler with all their dependencies.
func CreateLedgerServices(
	db service.TxRunner,
	repos Repositories,
	m *metrics.Metrics,
	logger *slog.Logger,
	cfg *config.Config,
) *Services {
	deps := service.Dependencies{
		DB:           db,
		Wallets:      NewWalletManager(repos.Wallets, cfg.Ledger.Currency, logger.With("component", "wallet_manager")),
		Transactions: repos.Transactions,
		History:      repos.History,
		Outbox:       NewOutboxManager(repos.Outbox, logger.With("component", "outbox_manager")),
		Validator:    NewRequestValidator(repos.Roles, cfg.Ledger.Currency, logger.With("component", "request_validator")),
		Cache:        repos.Cache,
		Metrics:      m,
	}

	return &Services{
		Ledger:     service.NewLedgerService(deps, logger.With("component", "ledger_service")),
		Approval:   service.NewApprovalWorkflow(deps, logger.With("component", "approval_workflow")),
		Reconciler: NewCaptureReconciler(repos.Reconciliations, deps.Validator, logger.With("component", "capture_reconciler")),
	}
}
