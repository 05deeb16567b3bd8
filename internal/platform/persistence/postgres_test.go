package persistence

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, nil))
}

func TestPostgresDB_Pool(t *testing.T) {
	var nilPool *pgxpool.Pool
	db := &PostgresDB{pool: nilPool, logger: newTestLogger()}
	assert.Equal(t, nilPool, db.Pool(), "Pool() should return the initialized pool")
}

func TestPostgresDB_ExecuteTx(t *testing.T) {
	ctx := context.Background()

	t.Run("CommitOnSuccess", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()
		db := NewPostgresDBFromConn(mock, newTestLogger())

		mock.ExpectBegin()
		mock.ExpectExec("UPDATE wallets").WillReturnResult(pgxmock.NewResult("UPDATE", 1))
		mock.ExpectCommit()

		err = db.ExecuteTx(ctx, func(tx pgx.Tx) error {
			_, err := tx.Exec(ctx, "UPDATE wallets SET balance = 1")
			return err
		})
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("RollbackOnError", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()
		db := NewPostgresDBFromConn(mock, newTestLogger())

		fnErr := errors.New("business failure")
		mock.ExpectBegin()
		mock.ExpectRollback()

		err = db.ExecuteTx(ctx, func(tx pgx.Tx) error { return fnErr })
		assert.ErrorIs(t, err, fnErr)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("BeginFailure", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()
		db := NewPostgresDBFromConn(mock, newTestLogger())

		mock.ExpectBegin().WillReturnError(errors.New("too many connections"))

		called := false
		err = db.ExecuteTx(ctx, func(tx pgx.Tx) error { called = true; return nil })
		assert.ErrorContains(t, err, "failed to begin transaction")
		assert.False(t, called)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("CommitFailure", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()
		db := NewPostgresDBFromConn(mock, newTestLogger())

		mock.ExpectBegin()
		mock.ExpectCommit().WillReturnError(errors.New("serialization failure"))

		err = db.ExecuteTx(ctx, func(tx pgx.Tx) error { return nil })
		assert.ErrorContains(t, err, "failed to commit transaction")
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("RollbackOnPanic", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()
		db := NewPostgresDBFromConn(mock, newTestLogger())

		mock.ExpectBegin()
		mock.ExpectRollback()

		assert.Panics(t, func() {
			_ = db.ExecuteTx(ctx, func(tx pgx.Tx) error { panic("boom") })
		})
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPostgresDB_Ping(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectPing().WillReturnError(errors.New("down"))
	db := NewPostgresDBFromConn(mock, newTestLogger())
	assert.EqualError(t, db.Ping(context.Background()), "down")
}
