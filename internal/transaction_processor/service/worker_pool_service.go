package service

import (
	"context"
	"log/slog"

	"github.com/panjf2000/ants/v2"

	"github.com/stayhub-wallet-ledger/internal/domain/shared"
)

// WorkerPoolCaptureProcessor bounds the number of captures applied at once
type WorkerPoolCaptureProcessor struct {
	base   CaptureProcessor
	pool   *ants.Pool
	logger *slog.Logger
}

type WorkerPoolConfig struct {
	Size int
}

func NewWorkerPoolCaptureProcessor(
	base CaptureProcessor,
	config WorkerPoolConfig,
	logger *slog.Logger,
) (*WorkerPoolCaptureProcessor, error) {
	pool, err := ants.NewPool(config.Size)
	if err != nil {
		return nil, err
	}

	return &WorkerPoolCaptureProcessor{
		base:   base,
		pool:   pool,
		logger: logger,
	}, nil
}

// ProcessCapture runs the capture on a pooled worker and waits for its result.
func (s *WorkerPoolCaptureProcessor) ProcessCapture(ctx context.Context, notification *shared.CaptureNotification) error {
	resultChan := make(chan error, 1)

	// Copy so the worker never shares the caller's struct
	n := *notification

	err := s.pool.Submit(func() {
		resultChan <- s.base.ProcessCapture(ctx, &n)
	})
	if err != nil {
		s.logger.Error("Failed to submit capture to worker pool",
			"provider_transaction_id", notification.ProviderTransactionID,
			"correlation_id", notification.CorrelationID,
			"error", err,
		)
		return err
	}

	select {
	case err := <-resultChan:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Shutdown gracefully shuts down the worker pool.
func (s *WorkerPoolCaptureProcessor) Shutdown() {
	s.logger.Info("Shutting down worker pool", "running_workers", s.pool.Running())
	s.pool.Release()
}

// Running returns the number of running workers in the pool.
func (s *WorkerPoolCaptureProcessor) Running() int {
	return s.pool.Running()
}

// Capacity returns the capacity of the worker pool.
func (s *WorkerPoolCaptureProcessor) Capacity() int {
	return s.pool.Cap()
}
