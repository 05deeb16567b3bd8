package outbox_poller

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/stayhub-wallet-ledger/internal/correlation"
	"github.com/stayhub-wallet-ledger/internal/domain/ledger"
	"github.com/stayhub-wallet-ledger/internal/domain/outbox"
	"github.com/stayhub-wallet-ledger/internal/domain/shared"
	"github.com/stayhub-wallet-ledger/internal/metrics"
	"github.com/stayhub-wallet-ledger/internal/platform/messaging/producers"
)

// EventPublisher relays one outbox message to its downstream consumers
type EventPublisher interface {
	Publish(ctx context.Context, message *outbox.Message) error
}

// EventPublisherImpl projects wallet events into the history store and
// streams them on the wallet events topic.
type EventPublisherImpl struct {
	outboxRepo  outbox.Repository
	historyRepo ledger.HistoryRepository
	producer    producers.MessagePublisher
	metrics     *metrics.Metrics
	logger      *slog.Logger
}

func NewEventPublisher(
	outboxRepo outbox.Repository,
	historyRepo ledger.HistoryRepository,
	producer producers.MessagePublisher,
	m *metrics.Metrics,
	logger *slog.Logger,
) EventPublisher {
	return &EventPublisherImpl{
		outboxRepo:  outboxRepo,
		historyRepo: historyRepo,
		producer:    producer,
		metrics:     m,
		logger:      logger,
	}
}

// Publish is safe to repeat: the history upsert ignores stale or duplicate
// events and topic consumers dedupe on transaction id and event type.
func (p *EventPublisherImpl) Publish(ctx context.Context, message *outbox.Message) error {
	evt, err := message.GetEvent()
	if err != nil {
		p.logger.Error("Failed to unmarshal wallet event from outbox payload",
			"outbox_id", message.ID, "transaction_id", message.TransactionID, "error", err,
		)
		if updateErr := p.outboxRepo.UpdateStatus(ctx, message.ID, shared.OutboxStatusFailedToPublish); updateErr != nil {
			p.logger.Error("Also failed to update outbox status to FAILED_TO_PUBLISH after unmarshal error", "outbox_id", message.ID, "update_error", updateErr)
		}
		p.metrics.ObserveOutboxMessage(string(message.EventType), metrics.OutcomeRejected)
		return fmt.Errorf("unmarshal payload for outbox %d failed: %w", message.ID, err)
	}

	ctx = correlation.WithID(ctx, evt.CorrelationID)
	logger := p.logger
	if evt.CorrelationID != "" {
		logger = p.logger.With("correlation_id", evt.CorrelationID)
	}

	if err := p.historyRepo.Upsert(ctx, ledger.NewHistoryEntry(evt)); err != nil {
		logger.Error("Failed to project wallet event into history",
			"outbox_id", message.ID, "transaction_id", message.TransactionID, "error", err,
		)
		p.metrics.ObserveOutboxMessage(string(evt.EventType), metrics.OutcomeError)
		return fmt.Errorf("failed to project transaction %s: %w", message.TransactionID, err)
	}

	if err := p.producer.Publish(ctx, evt.UserID, evt); err != nil {
		logger.Error("Failed to publish wallet event",
			"outbox_id", message.ID, "transaction_id", message.TransactionID, "error", err,
		)
		p.metrics.ObserveOutboxMessage(string(evt.EventType), metrics.OutcomeError)
		return fmt.Errorf("failed to publish wallet event for %s: %w", message.TransactionID, err)
	}

	if err := p.outboxRepo.UpdateStatus(ctx, message.ID, shared.OutboxStatusProcessed); err != nil {
		logger.Error("Failed to update outbox message status to PROCESSED",
			"outbox_id", message.ID, "transaction_id", message.TransactionID, "error", err,
		)
		p.metrics.ObserveOutboxMessage(string(evt.EventType), metrics.OutcomeError)
		return fmt.Errorf("event for %s relayed, but failed to mark outbox %d as PROCESSED: %w", message.TransactionID, message.ID, err)
	}

	p.metrics.ObserveOutboxMessage(string(evt.EventType), metrics.OutcomeSuccess)
	logger.Info("Outbox message relayed and marked as PROCESSED",
		"outbox_id", message.ID,
		"transaction_id", message.TransactionID,
		"event_type", string(evt.EventType),
	)
	return nil
}
