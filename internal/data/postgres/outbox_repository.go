package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stayhub-wallet-ledger/internal/domain/outbox"
	"github.com/stayhub-wallet-ledger/internal/domain/shared"
	"github.com/stayhub-wallet-ledger/internal/platform/persistence"
)

// OutboxRepository implements the outbox.Repository interface for PostgreSQL
type OutboxRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
	now     func() time.Time
}

// NewOutboxRepository creates a new PostgreSQL outbox repository
func NewOutboxRepository(logger *slog.Logger, db *persistence.PostgresDB) outbox.Repository {
	return &OutboxRepository{
		querier: db.Querier(),
		logger:  logger,
		now:     time.Now,
	}
}

// WithTx wraps the repository with a transaction so the event is written
// atomically with the change it describes.
func (r *OutboxRepository) WithTx(tx pgx.Tx) outbox.Repository {
	return &OutboxRepository{
		querier: tx,
		logger:  r.logger,
		now:     r.now,
	}
}

// Create stores a new outbox message in pending status.
// The message will be picked up by the outbox poller for processing.
func (r *OutboxRepository) Create(ctx context.Context, message *outbox.Message) error {
	query := `
		INSERT INTO transaction_outbox (transaction_id, user_id, event_type, payload, status, attempts, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`

	err := r.querier.QueryRow(ctx, query,
		message.TransactionID,
		message.UserID,
		message.EventType,
		[]byte(message.Payload),
		message.Status,
		message.Attempts,
		message.CreatedAt,
	).Scan(&message.ID)

	if err != nil {
		r.logger.Error("Failed to create outbox message",
			"transaction_id", message.TransactionID.String(),
			"event_type", string(message.EventType),
			"error", err,
		)
		return fmt.Errorf("failed to create outbox message: %w", err)
	}

	return nil
}

// GetPending retrieves a batch of pending outbox messages in insertion order.
// Ordering by the serial id keeps the events of one transaction in the order
// they were committed.
func (r *OutboxRepository) GetPending(ctx context.Context, limit int) ([]*outbox.Message, error) {
	query := `
		SELECT id, transaction_id, user_id, event_type, payload, status, attempts, created_at, last_attempt_at
		FROM transaction_outbox
		WHERE status = $1
		ORDER BY id ASC
		LIMIT $2
	`

	rows, err := r.querier.Query(ctx, query, shared.OutboxStatusPending, limit)
	if err != nil {
		r.logger.Error("Failed to get pending outbox messages", "error", err)
		return nil, fmt.Errorf("failed to get pending outbox messages: %w", err)
	}
	defer rows.Close()

	var messages []*outbox.Message
	for rows.Next() {
		var message outbox.Message
		var payload []byte
		err := rows.Scan(
			&message.ID,
			&message.TransactionID,
			&message.UserID,
			&message.EventType,
			&payload,
			&message.Status,
			&message.Attempts,
			&message.CreatedAt,
			&message.LastAttemptAt,
		)
		if err != nil {
			r.logger.Error("Failed to scan outbox message", "error", err)
			return nil, fmt.Errorf("failed to scan outbox message: %w", err)
		}
		message.Payload = payload
		messages = append(messages, &message)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error("Error iterating over outbox messages", "error", err)
		return nil, fmt.Errorf("error iterating over outbox messages: %w", err)
	}

	return messages, nil
}

// UpdateStatus updates the message status and last attempt timestamp.
// Returns ErrMessageNotFound if the message doesn't exist.
func (r *OutboxRepository) UpdateStatus(ctx context.Context, id int64, status shared.OutboxStatus) error {
	query := `
		UPDATE transaction_outbox
		SET status = $1, last_attempt_at = $2
		WHERE id = $3
	`

	result, err := r.querier.Exec(ctx, query, status, r.now(), id)
	if err != nil {
		r.logger.Error("Failed to update outbox message status",
			"id", id,
			"status", string(status),
			"error", err,
		)
		return fmt.Errorf("failed to update outbox message status: %w", err)
	}

	if result.RowsAffected() == 0 {
		return outbox.ErrMessageNotFound{ID: id}
	}

	return nil
}

// RecordFailure bumps the attempt counter of a pending message and parks it
// as FAILED_TO_PUBLISH when the counter reaches maxAttempts. The CASE reads
// the pre-update attempts value, so attempts + 1 is the new count.
func (r *OutboxRepository) RecordFailure(ctx context.Context, id int64, maxAttempts int) (int, shared.OutboxStatus, error) {
	query := `
		UPDATE transaction_outbox
		SET attempts = attempts + 1,
			last_attempt_at = $1,
			status = CASE WHEN attempts + 1 >= $2 THEN $3 ELSE status END
		WHERE id = $4 AND status = $5
		RETURNING attempts, status
	`

	var attempts int
	var status shared.OutboxStatus
	err := r.querier.QueryRow(ctx, query,
		r.now(),
		maxAttempts,
		shared.OutboxStatusFailedToPublish,
		id,
		shared.OutboxStatusPending,
	).Scan(&attempts, &status)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, "", outbox.ErrMessageNotFound{ID: id}
	}
	if err != nil {
		r.logger.Error("Failed to record outbox relay failure",
			"id", id,
			"error", err,
		)
		return 0, "", fmt.Errorf("failed to record outbox relay failure: %w", err)
	}

	return attempts, status, nil
}
