package components

import (
	"log/slog"

	"github.com/stayhub-wallet-ledger/internal/config"
	ledgerservice "github.com/stayhub-wallet-ledger/internal/ledger_service/service"
	"github.com/stayhub-wallet-ledger/internal/metrics"
	"github.com/stayhub-wallet-ledger/internal/transaction_processor/service"
)

// CaptureProcessor is what the consumer runs. Shutdown is a no-op when the
// worker pool could not be created.
type CaptureProcessor interface {
	service.CaptureProcessor
	Shutdown()
}

type unpooledProcessor struct {
	service.CaptureProcessor
}

func (unpooledProcessor) Shutdown() {}

// CreateCaptureProcessor wires the capture processing service behind the
// worker pool.
func CreateCaptureProcessor(
	ledgerSvc ledgerservice.LedgerService,
	reconciler ledgerservice.CaptureReconciler,
	m *metrics.Metrics,
	logger *slog.Logger,
	cfg *config.Config,
) CaptureProcessor {
	baseService := service.NewCaptureProcessingService(
		ledgerSvc,
		reconciler,
		m,
		logger.With("component", "capture_processor"),
	)

	workerPool, err := service.NewWorkerPoolCaptureProcessor(
		baseService,
		service.WorkerPoolConfig{
			Size: cfg.WorkerPool.Size,
		},
		logger.With("component", "worker_pool"),
	)
	if err != nil {
		logger.Error("Failed to create worker pool, falling back to base service", "error", err)
		return unpooledProcessor{baseService}
	}

	logger.Info("Created worker pool capture processor", "pool_size", cfg.WorkerPool.Size)
	return workerPool
}
