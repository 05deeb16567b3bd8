package mongo

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"

	"github.com/stayhub-wallet-ledger/internal/domain/ledger"
	"github.com/stayhub-wallet-ledger/internal/domain/shared"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func historyDoc(id, userID string, amount int64, updatedAt time.Time) bson.D {
	return bson.D{
		{Key: "_id", Value: id},
		{Key: "user_id", Value: userID},
		{Key: "type", Value: "withdrawal"},
		{Key: "amount", Value: amount},
		{Key: "currency", Value: "USD"},
		{Key: "payment_method", Value: "bank_transfer"},
		{Key: "status", Value: "completed"},
		{Key: "balance_after", Value: int64(600)},
		{Key: "last_event", Value: "wallet.withdrawal.approved"},
		{Key: "updated_at", Value: updatedAt},
	}
}

func TestHistoryRepository_Upsert(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	evt := &shared.WalletEvent{
		EventType:     shared.EventWithdrawalApproved,
		TransactionID: uuid.New(),
		UserID:        "user-1",
		Type:          shared.TransactionTypeWithdrawal,
		Amount:        400,
		Currency:      "USD",
		Status:        shared.TransactionStatusCompleted,
		OccurredAt:    time.Now().UTC(),
	}

	mt.Run("success", func(mt *mtest.T) {
		repo := NewHistoryRepository(newTestLogger(), mt.DB)
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}, bson.E{Key: "nModified", Value: 1}))

		assert.NoError(t, repo.Upsert(context.Background(), ledger.NewHistoryEntry(evt)))
	})

	mt.Run("stale event is skipped", func(mt *mtest.T) {
		repo := NewHistoryRepository(newTestLogger(), mt.DB)
		mt.AddMockResponses(mtest.CreateWriteErrorsResponse(mtest.WriteError{
			Index:   0,
			Code:    11000,
			Message: "E11000 duplicate key error",
		}))

		assert.NoError(t, repo.Upsert(context.Background(), ledger.NewHistoryEntry(evt)))
	})

	mt.Run("server error", func(mt *mtest.T) {
		repo := NewHistoryRepository(newTestLogger(), mt.DB)
		mt.AddMockResponses(mtest.CreateCommandErrorResponse(mtest.CommandError{
			Code:    11600,
			Message: "interrupted at shutdown",
			Name:    "InterruptedAtShutdown",
		}))

		err := repo.Upsert(context.Background(), ledger.NewHistoryEntry(evt))
		assert.ErrorContains(t, err, "failed to upsert history entry")
	})
}

func TestHistoryRepository_GetByTransactionID(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	ns := "wallet_ledger." + HistoryCollectionName
	updated := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	mt.Run("found", func(mt *mtest.T) {
		repo := NewHistoryRepository(newTestLogger(), mt.DB)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch, historyDoc("tx-1", "user-1", 400, updated)))

		entry, err := repo.GetByTransactionID(context.Background(), "tx-1")
		require.NoError(t, err)
		assert.Equal(t, "tx-1", entry.TransactionID)
		assert.Equal(t, shared.TransactionTypeWithdrawal, entry.Type)
		assert.Equal(t, int64(400), entry.Amount)
		require.NotNil(t, entry.BalanceAfter)
		assert.Equal(t, int64(600), *entry.BalanceAfter)
		assert.True(t, updated.Equal(entry.UpdatedAt))
	})

	mt.Run("not found", func(mt *mtest.T) {
		repo := NewHistoryRepository(newTestLogger(), mt.DB)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch))

		entry, err := repo.GetByTransactionID(context.Background(), "tx-missing")
		assert.Nil(t, entry)
		assert.ErrorIs(t, err, ledger.ErrNotFound)
		assert.Equal(t, ledger.ErrHistoryEntryNotFound{TransactionID: "tx-missing"}, err)
	})
}

func TestHistoryRepository_GetByUserIDAndCount(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	ns := "wallet_ledger." + HistoryCollectionName
	now := time.Now().UTC().Truncate(time.Millisecond)

	mt.Run("list", func(mt *mtest.T) {
		repo := NewHistoryRepository(newTestLogger(), mt.DB)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch,
			historyDoc("tx-2", "user-1", 200, now),
			historyDoc("tx-1", "user-1", 100, now.Add(-time.Minute)),
		))

		entries, err := repo.GetByUserID(context.Background(), "user-1", 10, 0)
		require.NoError(t, err)
		require.Len(t, entries, 2)
		assert.Equal(t, "tx-2", entries[0].TransactionID)
		assert.Equal(t, "tx-1", entries[1].TransactionID)
	})

	mt.Run("empty list is not nil", func(mt *mtest.T) {
		repo := NewHistoryRepository(newTestLogger(), mt.DB)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch))

		entries, err := repo.GetByUserID(context.Background(), "user-2", 10, 0)
		require.NoError(t, err)
		assert.NotNil(t, entries)
		assert.Empty(t, entries)
	})

	mt.Run("count", func(mt *mtest.T) {
		repo := NewHistoryRepository(newTestLogger(), mt.DB)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch, bson.D{{Key: "n", Value: int32(2)}}))

		count, err := repo.CountByUserID(context.Background(), "user-1")
		require.NoError(t, err)
		assert.Equal(t, int64(2), count)
	})

	mt.Run("find error", func(mt *mtest.T) {
		repo := NewHistoryRepository(newTestLogger(), mt.DB)
		mt.AddMockResponses(mtest.CreateCommandErrorResponse(mtest.CommandError{Code: 2, Message: "bad query", Name: "BadValue"}))

		_, err := repo.GetByUserID(context.Background(), "user-1", 10, 0)
		assert.ErrorContains(t, err, "failed to get history entries")
	})
}

func TestHistoryRepository_EnsureIndexes(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("created", func(mt *mtest.T) {
		repo := NewHistoryRepository(newTestLogger(), mt.DB)
		mt.AddMockResponses(mtest.CreateSuccessResponse())

		assert.NoError(t, repo.EnsureIndexes(context.Background()))
	})
}
