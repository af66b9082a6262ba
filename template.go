package dbkit

import (
	"context"
	"fmt"
	"log/slog"
)

// Row is the single-row surface a RowMapper reads from. *sql.Rows satisfies
// it, positioned at the row being mapped.
type Row interface {
	Scan(dest ...any) error
}

// RowMapper converts one result row into a value of type T. It is invoked
// once per row, in result order, and must not retain the row beyond the
// call. Mapper failures propagate to the caller unmodified.
type RowMapper[T any] func(row Row) (T, error)

// Template executes parameterized statements against connections obtained
// from a ConnectionSource, or against an explicitly bound connection when
// the statement is part of a transaction. It has no mutable state across
// calls; concurrent callers are isolated by the pool handing out distinct
// connections.
type Template struct {
	source ConnectionSource
	bound  DBTX
	logger *slog.Logger
}

// NewTemplate creates a query template over the given connection source.
// If logger is nil, the default logger is used.
func NewTemplate(source ConnectionSource, logger *slog.Logger) *Template {
	if source == nil {
		panic("source cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Template{
		source: source,
		logger: logger.With(slog.String("component", "query_template")),
	}
}

// WithConn returns a template bound to an explicit connection or
// transaction. Statements issued through the returned template run on db
// and skip the acquire/release cycle; passing the *sql.Tx from
// TxManager.Run is how nested statements join the transaction.
func (t *Template) WithConn(db DBTX) *Template {
	if db == nil {
		panic("db cannot be nil")
	}
	return &Template{source: t.source, bound: db, logger: t.logger}
}

// acquire resolves the connection a statement runs on. For an unbound
// template it checks a connection out of the source and returns a release
// function that must run on every exit path; for a bound template both the
// connection and its release belong to the enclosing transaction.
func (t *Template) acquire(ctx context.Context) (DBTX, func(), error) {
	if t.bound != nil {
		return t.bound, func() {}, nil
	}
	conn, err := t.source.Acquire(ctx)
	if err != nil {
		t.logger.Error("failed to acquire connection",
			slog.String("error", err.Error()))
		return nil, nil, &DataAccessError{Err: err}
	}
	release := func() {
		if rerr := t.source.Release(conn); rerr != nil {
			t.logger.Error("failed to release connection",
				slog.String("error", rerr.Error()))
		}
	}
	return conn, release, nil
}

// Exec runs an update/DML statement. The connection is released afterward
// regardless of outcome, and any driver failure is logged and returned as a
// DataAccessError wrapping the original cause.
func (t *Template) Exec(ctx context.Context, query string, params ...Param) error {
	db, release, err := t.acquire(ctx)
	if err != nil {
		return err
	}
	defer release()

	t.logger.Debug("executing statement", slog.String("query", query))

	if _, err := db.ExecContext(ctx, query, bindArgs(params)...); err != nil {
		t.logger.Error("statement execution failed",
			slog.String("query", query),
			slog.String("error", err.Error()))
		return &DataAccessError{Query: query, Err: err}
	}
	return nil
}

// QueryOne runs a query expected to return at least one row and maps the
// first row with mapper. An empty result set returns ErrNotFound. Rows
// beyond the first are not consumed and not validated against.
func QueryOne[T any](ctx context.Context, t *Template, query string, mapper RowMapper[T], params ...Param) (T, error) {
	var zero T

	db, release, err := t.acquire(ctx)
	if err != nil {
		return zero, err
	}
	defer release()

	t.logger.Debug("executing query", slog.String("query", query))

	rows, err := db.QueryContext(ctx, query, bindArgs(params)...)
	if err != nil {
		t.logger.Error("query execution failed",
			slog.String("query", query),
			slog.String("error", err.Error()))
		return zero, &DataAccessError{Query: query, Err: err}
	}
	defer func() { _ = rows.Close() }()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			t.logger.Error("row iteration failed",
				slog.String("query", query),
				slog.String("error", err.Error()))
			return zero, &DataAccessError{Query: query, Err: err}
		}
		return zero, fmt.Errorf("%w: query returned no rows", ErrNotFound)
	}

	return mapper(rows)
}

// QueryMany runs a query and maps every row in result order. A query
// matching zero rows returns an empty slice, not an error.
func QueryMany[T any](ctx context.Context, t *Template, query string, mapper RowMapper[T], params ...Param) ([]T, error) {
	db, release, err := t.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	t.logger.Debug("executing query", slog.String("query", query))

	rows, err := db.QueryContext(ctx, query, bindArgs(params)...)
	if err != nil {
		t.logger.Error("query execution failed",
			slog.String("query", query),
			slog.String("error", err.Error()))
		return nil, &DataAccessError{Query: query, Err: err}
	}
	defer func() { _ = rows.Close() }()

	results := make([]T, 0)
	for rows.Next() {
		v, err := mapper(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, v)
	}
	if err := rows.Err(); err != nil {
		t.logger.Error("row iteration failed",
			slog.String("query", query),
			slog.String("error", err.Error()))
		return nil, &DataAccessError{Query: query, Err: err}
	}
	return results, nil
}
