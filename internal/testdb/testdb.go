// Package testdb provides hermetic database fixtures for integration tests.
// Each test gets its own in-memory SQLite database with the schema applied,
// so tests run in parallel without a database server and without interfering
// with each other.
package testdb

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite" // registers the "sqlite" driver
)

//go:embed migrations/*.sql
var migrations embed.FS

// dbCounter makes each in-memory database name unique. Shared-cache mode
// keys the database on its name, so distinct names keep tests isolated.
var dbCounter atomic.Int64

// New opens a fresh in-memory SQLite database, applies the schema, and
// registers cleanup. The returned pool is ready for use.
func New(t *testing.T) *sql.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:testdb%d?mode=memory&cache=shared", dbCounter.Add(1))
	db, err := sql.Open("sqlite", dsn)
	require.NoError(t, err, "Failed to open in-memory database")

	// With cache=shared the database lives only as long as one connection
	// is open; pin one for the test's lifetime so the pool cannot drop the
	// last reference and wipe the database mid-test.
	pin, err := db.Conn(context.Background())
	require.NoError(t, err, "Failed to pin in-memory database connection")

	t.Cleanup(func() {
		_ = pin.Close()
		if err := db.Close(); err != nil {
			t.Logf("Warning: failed to close test database: %v", err)
		}
	})

	ApplySchema(t, db)
	return db
}

// ApplySchema runs the embedded goose migrations against db.
func ApplySchema(t *testing.T, db *sql.DB) {
	t.Helper()

	goose.SetLogger(&testGooseLogger{t: t})
	goose.SetBaseFS(migrations)
	require.NoError(t, goose.SetDialect("sqlite3"), "Failed to set goose dialect")
	require.NoError(t, goose.Up(db, "migrations"), "Failed to run migrations")
}

// WithTx executes a test function within a transaction, rolling back after
// the test completes so changes never leak between tests.
func WithTx(t *testing.T, db *sql.DB, fn func(t *testing.T, tx *sql.Tx)) {
	t.Helper()

	tx, err := db.Begin()
	require.NoError(t, err, "Failed to begin transaction")

	defer func() {
		err := tx.Rollback()
		// sql.ErrTxDone is expected if tx is already committed or rolled back
		if err != nil && err != sql.ErrTxDone {
			t.Logf("Warning: failed to rollback transaction: %v", err)
		}
	}()

	fn(t, tx)
}

// testGooseLogger routes goose output through the test log.
type testGooseLogger struct {
	t *testing.T
}

func (l *testGooseLogger) Fatalf(format string, v ...any) {
	l.t.Fatalf(format, v...)
}

func (l *testGooseLogger) Printf(format string, v ...any) {
	l.t.Logf(format, v...)
}
