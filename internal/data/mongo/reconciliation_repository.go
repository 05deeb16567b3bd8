package mongo

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/stayhub-wallet-ledger/internal/domain/ledger"
)

const (
	// ReconciliationCollectionName holds captures that still need a ledger credit
	ReconciliationCollectionName = "unreconciled_captures"
)

// ReconciliationRepository implements ledger.ReconciliationRepository for MongoDB
type ReconciliationRepository struct {
	db     *mongo.Database
	logger *slog.Logger
	now    func() time.Time
}

func NewReconciliationRepository(logger *slog.Logger, db *mongo.Database) *ReconciliationRepository {
	return &ReconciliationRepository{
		db:     db,
		logger: logger,
		now:    time.Now,
	}
}

// Record stores an open capture, or bumps the attempt counter when the same
// capture failed before.
func (r *ReconciliationRepository) Record(ctx context.Context, capture *ledger.UnreconciledCapture) error {
	collection := r.db.Collection(ReconciliationCollectionName)

	update := bson.M{
		"$set": bson.M{
			"failure":  capture.Failure,
			"resolved": false,
		},
		"$inc": bson.M{"attempts": 1},
		"$setOnInsert": bson.M{
			"provider":       capture.Provider,
			"order_id":       capture.OrderID,
			"user_id":        capture.UserID,
			"amount":         capture.Amount,
			"currency":       capture.Currency,
			"payer_email":    capture.PayerEmail,
			"correlation_id": capture.CorrelationID,
			"recorded_at":    capture.RecordedAt,
		},
	}

	_, err := collection.UpdateByID(ctx, capture.ExternalTransactionID, update, options.Update().SetUpsert(true))
	if err != nil {
		r.logger.Error("Failed to record unreconciled capture",
			"external_transaction_id", capture.ExternalTransactionID,
			"error", err)
		return fmt.Errorf("failed to record unreconciled capture: %w", err)
	}

	return nil
}

// Resolve closes an open capture. It reports whether one was open.
func (r *ReconciliationRepository) Resolve(ctx context.Context, externalTransactionID string) (bool, error) {
	collection := r.db.Collection(ReconciliationCollectionName)

	filter := bson.M{"_id": externalTransactionID, "resolved": false}
	update := bson.M{"$set": bson.M{"resolved": true, "resolved_at": r.now()}}

	result, err := collection.UpdateOne(ctx, filter, update)
	if err != nil {
		r.logger.Error("Failed to resolve unreconciled capture",
			"external_transaction_id", externalTransactionID,
			"error", err)
		return false, fmt.Errorf("failed to resolve unreconciled capture: %w", err)
	}

	return result.ModifiedCount > 0, nil
}

// ListOpen returns the oldest open captures first
func (r *ReconciliationRepository) ListOpen(ctx context.Context, limit int) ([]*ledger.UnreconciledCapture, error) {
	collection := r.db.Collection(ReconciliationCollectionName)

	opts := options.Find().
		SetSort(bson.D{{Key: "recorded_at", Value: 1}}).
		SetLimit(int64(limit))

	cursor, err := collection.Find(ctx, bson.M{"resolved": false}, opts)
	if err != nil {
		r.logger.Error("Failed to list unreconciled captures", "error", err)
		return nil, fmt.Errorf("failed to list unreconciled captures: %w", err)
	}
	defer cursor.Close(ctx)

	captures := make([]*ledger.UnreconciledCapture, 0)
	if err := cursor.All(ctx, &captures); err != nil {
		r.logger.Error("Failed to decode unreconciled captures", "error", err)
		return nil, fmt.Errorf("failed to decode unreconciled captures: %w", err)
	}

	return captures, nil
}
