package dbkit

import (
	"context"
	"database/sql"
)

// DBTX is the statement-execution interface satisfied by *sql.DB, *sql.Tx,
// and *sql.Conn. The template depends on this interface instead of a
// concrete type so that statements compose transparently with transactions.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Compile-time verification that the sql types satisfy DBTX.
var (
	_ DBTX = (*sql.DB)(nil)
	_ DBTX = (*sql.Tx)(nil)
	_ DBTX = (*sql.Conn)(nil)
)

// ConnectionSource hands out a live database connection on request and
// accepts it back for release. Release must be safe to call exactly once
// per Acquire. The pool behind the source is supplied by the caller.
type ConnectionSource interface {
	Acquire(ctx context.Context) (*sql.Conn, error)
	Release(conn *sql.Conn) error
}

// PoolSource is the default ConnectionSource, backed by a *sql.DB pool.
type PoolSource struct {
	db *sql.DB
}

// NewPoolSource creates a ConnectionSource over the given database pool.
func NewPoolSource(db *sql.DB) *PoolSource {
	if db == nil {
		panic("db cannot be nil")
	}
	return &PoolSource{db: db}
}

// Acquire implements ConnectionSource.Acquire by checking a single
// connection out of the pool.
func (s *PoolSource) Acquire(ctx context.Context) (*sql.Conn, error) {
	return s.db.Conn(ctx)
}

// Release implements ConnectionSource.Release by returning the connection
// to the pool.
func (s *PoolSource) Release(conn *sql.Conn) error {
	if conn == nil {
		return nil
	}
	return conn.Close()
}

// Ensure PoolSource implements ConnectionSource.
var _ ConnectionSource = (*PoolSource)(nil)
