package dbkit

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTxManager(t *testing.T) (*TxManager, *countingSource, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	source := &countingSource{db: db}
	return NewTxManager(source, quietLogger()), source, mock
}

func TestTxManagerRun_CommitsOnSuccess(t *testing.T) {
	txm, source, mock := newTestTxManager(t)

	mock.ExpectBegin()
	mock.ExpectCommit()

	err := txm.Run(context.Background(), func(ctx context.Context, tx *sql.Tx) error {
		return nil
	})
	assert.NoError(t, err)

	assert.Equal(t, 1, source.acquires)
	assert.Equal(t, 1, source.releases)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTxManagerRun_RollsBackOnFailure(t *testing.T) {
	txm, source, mock := newTestTxManager(t)

	mock.ExpectBegin()
	mock.ExpectRollback()

	cause := errors.New("unit of work failed")
	err := txm.Run(context.Background(), func(ctx context.Context, tx *sql.Tx) error {
		return cause
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTxRollback)
	assert.ErrorIs(t, err, cause)
	assert.NotErrorIs(t, err, ErrRollbackFailed)

	assert.Equal(t, 1, source.acquires)
	assert.Equal(t, 1, source.releases)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTxManagerRun_NestedDataAccessErrorRollsBack(t *testing.T) {
	txm, source, mock := newTestTxManager(t)

	driverErr := errors.New("execute failed")
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO t").WillReturnError(driverErr)
	mock.ExpectRollback()

	tpl := NewTemplate(source, quietLogger())
	err := txm.Run(context.Background(), func(ctx context.Context, tx *sql.Tx) error {
		return tpl.WithConn(tx).Exec(ctx, "INSERT INTO t(id) VALUES (?)", Int(1))
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTxRollback)
	assert.ErrorIs(t, err, ErrDataAccess)
	assert.ErrorIs(t, err, driverErr)

	// One acquire for the transaction, none for the bound statement.
	assert.Equal(t, 1, source.acquires)
	assert.Equal(t, 1, source.releases)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTxManagerRun_RollbackFailureSupersedesCause(t *testing.T) {
	txm, source, mock := newTestTxManager(t)

	rollbackErr := errors.New("rollback failed")
	mock.ExpectBegin()
	mock.ExpectRollback().WillReturnError(rollbackErr)

	original := errors.New("unit of work failed")
	err := txm.Run(context.Background(), func(ctx context.Context, tx *sql.Tx) error {
		return original
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRollbackFailed)
	assert.ErrorIs(t, err, rollbackErr)
	// The original failure is superseded as the reported cause.
	assert.NotErrorIs(t, err, original)

	// The connection is still released exactly once.
	assert.Equal(t, 1, source.acquires)
	assert.Equal(t, 1, source.releases)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTxManagerRun_BeginFailure(t *testing.T) {
	txm, source, mock := newTestTxManager(t)

	cause := errors.New("begin failed")
	mock.ExpectBegin().WillReturnError(cause)

	err := txm.Run(context.Background(), func(ctx context.Context, tx *sql.Tx) error {
		t.Fatal("unit of work must not run when begin fails")
		return nil
	})
	assert.ErrorIs(t, err, ErrDataAccess)
	assert.ErrorIs(t, err, cause)

	assert.Equal(t, 1, source.acquires)
	assert.Equal(t, 1, source.releases)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTxManagerRun_CommitFailure(t *testing.T) {
	txm, source, mock := newTestTxManager(t)

	cause := errors.New("commit failed")
	mock.ExpectBegin()
	mock.ExpectCommit().WillReturnError(cause)

	err := txm.Run(context.Background(), func(ctx context.Context, tx *sql.Tx) error {
		return nil
	})
	assert.ErrorIs(t, err, ErrDataAccess)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, 1, source.releases)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTxManagerRun_AcquireFailure(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	cause := errors.New("pool exhausted")
	source := &countingSource{db: db, acquireErr: cause}
	txm := NewTxManager(source, quietLogger())

	runErr := txm.Run(context.Background(), func(ctx context.Context, tx *sql.Tx) error {
		t.Fatal("unit of work must not run when acquire fails")
		return nil
	})
	assert.ErrorIs(t, runErr, ErrDataAccess)
	assert.ErrorIs(t, runErr, cause)
	assert.Equal(t, 0, source.releases)
}

func TestTxManagerRun_PanicRollsBackAndRepanics(t *testing.T) {
	txm, source, mock := newTestTxManager(t)

	mock.ExpectBegin()
	mock.ExpectRollback()

	assert.PanicsWithValue(t, "boom", func() {
		_ = txm.Run(context.Background(), func(ctx context.Context, tx *sql.Tx) error {
			panic("boom")
		})
	})

	assert.Equal(t, 1, source.acquires)
	assert.Equal(t, 1, source.releases)
	assert.NoError(t, mock.ExpectationsWereMet())
}
