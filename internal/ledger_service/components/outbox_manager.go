package components

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/stayhub-wallet-ledger/internal/domain/ledger"
	"github.com/stayhub-wallet-ledger/internal/domain/outbox"
	"github.com/stayhub-wallet-ledger/internal/domain/shared"
	"github.com/stayhub-wallet-ledger/internal/ledger_service/service"
	"github.com/stayhub-wallet-ledger/internal/logger"
)

type OutboxManagerImpl struct {
	outboxRepo outbox.Repository
	logger     *slog.Logger
}

func NewOutboxManager(outboxRepo outbox.Repository, logger *slog.Logger) service.OutboxManager {
	return &OutboxManagerImpl{
		outboxRepo: outboxRepo,
		logger:     logger,
	}
}

// Record writes the event for txn inside tx, so it is published only if the
// change it describes commits.
func (m *OutboxManagerImpl) Record(ctx context.Context, tx pgx.Tx, txn *ledger.Transaction, eventType shared.EventType, actorID string) error {
	log := logger.WithCorrelationID(m.logger, txn.CorrelationID)

	message, err := outbox.NewMessage(txn.Event(eventType, actorID))
	if err != nil {
		log.Error("Failed to create outbox message (marshal payload)",
			"transaction_id", txn.ID.String(),
			"error", err,
		)
		return fmt.Errorf("failed to create outbox message payload for tx %s: %w", txn.ID.String(), err)
	}

	if err = m.outboxRepo.WithTx(tx).Create(ctx, message); err != nil {
		log.Error("Failed to create outbox message",
			"transaction_id", txn.ID.String(),
			"event_type", string(eventType),
			"error", err,
		)
		return fmt.Errorf("failed to create outbox message for tx %s: %w", txn.ID.String(), err)
	}

	log.Debug("Outbox message created",
		"transaction_id", txn.ID.String(),
		"event_type", string(eventType),
		"outbox_id", message.ID,
	)
	return nil
}
