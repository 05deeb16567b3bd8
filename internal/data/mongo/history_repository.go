// Package mongo holds the MongoDB read models: the transaction history
// projection fed by the outbox and the journal of unreconciled captures.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/stayhub-wallet-ledger/internal/domain/ledger"
)

const (
	// HistoryCollectionName is the name of the transaction history collection in MongoDB
	HistoryCollectionName = "transaction_history"
)

// HistoryRepository implements the ledger.HistoryRepository interface for MongoDB
type HistoryRepository struct {
	db     *mongo.Database
	logger *slog.Logger
}

// NewHistoryRepository creates a new MongoDB history repository
func NewHistoryRepository(logger *slog.Logger, db *mongo.Database) *HistoryRepository {
	return &HistoryRepository{
		db:     db,
		logger: logger,
	}
}

// EnsureIndexes creates the indexes backing the per-user listing
func (r *HistoryRepository) EnsureIndexes(ctx context.Context) error {
	collection := r.db.Collection(HistoryCollectionName)

	_, err := collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "updated_at", Value: -1}}},
		{Keys: bson.D{{Key: "status", Value: 1}}},
	})
	if err != nil {
		r.logger.Error("Failed to create history indexes", "error", err)
		return fmt.Errorf("failed to create history indexes: %w", err)
	}
	return nil
}

// Upsert replaces the projection of a transaction with its latest state.
// Events replayed out of order never move a document back in time.
func (r *HistoryRepository) Upsert(ctx context.Context, entry *ledger.HistoryEntry) error {
	collection := r.db.Collection(HistoryCollectionName)

	filter := bson.M{
		"_id":        entry.TransactionID,
		"updated_at": bson.M{"$lte": entry.UpdatedAt},
	}
	_, err := collection.ReplaceOne(ctx, filter, entry, options.Replace().SetUpsert(true))
	if err != nil {
		// The filter misses a newer document and the upsert then collides on _id
		if mongo.IsDuplicateKeyError(err) {
			r.logger.Debug("Skipping stale history event",
				"transaction_id", entry.TransactionID,
				"event_type", string(entry.LastEvent))
			return nil
		}
		r.logger.Error("Failed to upsert history entry",
			"transaction_id", entry.TransactionID,
			"error", err)
		return fmt.Errorf("failed to upsert history entry: %w", err)
	}

	return nil
}

// GetByTransactionID retrieves a history entry by its transaction ID.
// Returns ErrHistoryEntryNotFound if the projection has not caught up yet.
func (r *HistoryRepository) GetByTransactionID(ctx context.Context, transactionID string) (*ledger.HistoryEntry, error) {
	collection := r.db.Collection(HistoryCollectionName)

	var entry ledger.HistoryEntry
	err := collection.FindOne(ctx, bson.M{"_id": transactionID}).Decode(&entry)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ledger.ErrHistoryEntryNotFound{TransactionID: transactionID}
		}
		r.logger.Error("Failed to get history entry",
			"transaction_id", transactionID,
			"error", err)
		return nil, fmt.Errorf("failed to get history entry: %w", err)
	}

	return &entry, nil
}

// GetByUserID retrieves paginated history entries for a user.
// Results are sorted by last update in descending order (newest first).
func (r *HistoryRepository) GetByUserID(ctx context.Context, userID string, limit, offset int) ([]*ledger.HistoryEntry, error) {
	collection := r.db.Collection(HistoryCollectionName)

	opts := options.Find().
		SetSort(bson.D{{Key: "updated_at", Value: -1}}).
		SetSkip(int64(offset)).
		SetLimit(int64(limit))

	cursor, err := collection.Find(ctx, bson.M{"user_id": userID}, opts)
	if err != nil {
		r.logger.Error("Failed to get history entries",
			"user_id", userID,
			"error", err)
		return nil, fmt.Errorf("failed to get history entries: %w", err)
	}
	defer cursor.Close(ctx)

	entries := make([]*ledger.HistoryEntry, 0)
	if err := cursor.All(ctx, &entries); err != nil {
		r.logger.Error("Failed to decode history entries",
			"user_id", userID,
			"error", err)
		return nil, fmt.Errorf("failed to decode history entries: %w", err)
	}

	return entries, nil
}

// CountByUserID counts the history entries of a user
func (r *HistoryRepository) CountByUserID(ctx context.Context, userID string) (int64, error) {
	collection := r.db.Collection(HistoryCollectionName)

	count, err := collection.CountDocuments(ctx, bson.M{"user_id": userID})
	if err != nil {
		r.logger.Error("Failed to count history entries",
			"user_id", userID,
			"error", err)
		return 0, fmt.Errorf("failed to count history entries: %w", err)
	}

	return count, nil
}
