package dbkit

import (
	"context"
	"database/sql"
	"log/slog"
)

// UnitOfWork is a procedure that executes within a database transaction.
// It receives the bound transaction handle and performs zero or more
// statements against it, typically through Template.WithConn. It must not
// itself call Commit, Rollback, or release the connection.
type UnitOfWork func(ctx context.Context, tx *sql.Tx) error

// TxManager wraps a unit of work in an explicit begin/commit/rollback
// envelope. Nested statements that reuse the bound *sql.Tx are merged into
// the same physical transaction; there is no support for savepoints or
// independent nested transactions.
type TxManager struct {
	source ConnectionSource
	logger *slog.Logger
}

// NewTxManager creates a transaction manager over the given connection
// source. If logger is nil, the default logger is used.
func NewTxManager(source ConnectionSource, logger *slog.Logger) *TxManager {
	if source == nil {
		panic("source cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &TxManager{
		source: source,
		logger: logger.With(slog.String("component", "tx_manager")),
	}
}

// Run executes the given unit of work within a transaction. On normal
// return the transaction is committed; on failure it is rolled back and the
// original cause is surfaced as a TxError of kind ErrTxRollback. If the
// rollback attempt itself fails, the TxError kind is ErrRollbackFailed and
// the rollback failure supersedes the original cause. The connection is
// released back to the source exactly once on every path.
func (m *TxManager) Run(ctx context.Context, fn UnitOfWork) error {
	conn, err := m.source.Acquire(ctx)
	if err != nil {
		m.logger.Error("failed to acquire connection",
			slog.String("error", err.Error()))
		return &DataAccessError{Err: err}
	}
	defer func() {
		if rerr := m.source.Release(conn); rerr != nil {
			m.logger.Error("failed to release connection",
				slog.String("error", rerr.Error()))
		}
	}()

	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		m.logger.Error("failed to begin transaction",
			slog.String("error", err.Error()))
		return &DataAccessError{Err: err}
	}

	// Roll back and re-raise if the unit of work panics. The deferred
	// release above still runs, so the connection is not leaked.
	defer func() {
		if p := recover(); p != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				m.logger.Error("failed to roll back transaction after panic",
					slog.String("error", rbErr.Error()),
					slog.Any("panic", p))
			} else {
				m.logger.Error("rolled back transaction after panic",
					slog.Any("panic", p))
			}
			panic(p)
		}
	}()

	if err := fn(ctx, tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			m.logger.Error("failed to roll back transaction",
				slog.String("rollback_error", rbErr.Error()),
				slog.String("original_error", err.Error()))
			return &TxError{Kind: ErrRollbackFailed, Err: rbErr}
		}
		m.logger.Debug("rolled back transaction due to error",
			slog.String("error", err.Error()))
		return &TxError{Kind: ErrTxRollback, Err: err}
	}

	if err := tx.Commit(); err != nil {
		m.logger.Error("failed to commit transaction",
			slog.String("error", err.Error()))
		return &DataAccessError{Err: err}
	}

	m.logger.Debug("transaction committed")
	return nil
}
