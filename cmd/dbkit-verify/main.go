// Command dbkit-verify exercises the query template and transaction manager
// against a real database and reports pass/fail per scenario. With no
// configuration it runs against an in-memory SQLite database; point
// DBKIT_DATABASE_URL at a PostgreSQL instance to verify against that
// instead.
package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/dbkit"
	"github.com/phrazzld/dbkit/internal/config"
	"github.com/phrazzld/dbkit/internal/platform/logger"
	"github.com/phrazzld/dbkit/postgres"
	_ "modernc.org/sqlite" // registers the "sqlite" driver
)

// queries holds the statement set for one backend. The two backends differ
// only in placeholder style; dialect translation is out of scope for dbkit
// itself, so the harness carries both forms.
type queries struct {
	insert    string
	selectOne string
	selectAll string
	count     string
}

var sqliteQueries = queries{
	insert:    "INSERT INTO records (id, name, quantity, created_at) VALUES (?, ?, ?, ?)",
	selectOne: "SELECT id, name, quantity FROM records WHERE id = ?",
	selectAll: "SELECT id, name, quantity FROM records ORDER BY name",
	count:     "SELECT COUNT(*) FROM records",
}

var postgresQueries = queries{
	insert:    "INSERT INTO records (id, name, quantity, created_at) VALUES ($1, $2, $3, $4)",
	selectOne: "SELECT id, name, quantity FROM records WHERE id = $1",
	selectAll: "SELECT id, name, quantity FROM records ORDER BY name",
	count:     "SELECT COUNT(*) FROM records",
}

const schema = `
CREATE TABLE IF NOT EXISTS records (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    quantity INTEGER NOT NULL DEFAULT 0,
    created_at TIMESTAMP NOT NULL
)`

// record is the row shape the scenarios read back.
type record struct {
	ID       string
	Name     string
	Quantity int64
}

func mapRecord(row dbkit.Row) (record, error) {
	var r record
	if err := row.Scan(&r.ID, &r.Name, &r.Quantity); err != nil {
		return record{}, err
	}
	return r, nil
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.Setup(cfg.Server)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to set up logger: %v\n", err)
		os.Exit(1)
	}

	db, q, err := open(cfg.Database.URL)
	if err != nil {
		log.Error("failed to open database", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer func() { _ = db.Close() }()

	ctx := logger.WithLogger(context.Background(), log)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		log.Error("failed to create schema", slog.String("error", err.Error()))
		os.Exit(1)
	}

	source := dbkit.NewPoolSource(db)
	tpl := dbkit.NewTemplate(source, log)
	txm := dbkit.NewTxManager(source, log)

	failures := 0
	for _, s := range scenarios() {
		if err := s.run(ctx, tpl, txm, q); err != nil {
			log.Error("scenario failed",
				slog.String("scenario", s.name),
				slog.String("error", err.Error()))
			failures++
			continue
		}
		log.Info("scenario passed", slog.String("scenario", s.name))
	}

	if failures > 0 {
		log.Error("verification failed", slog.Int("failures", failures))
		os.Exit(1)
	}
	log.Info("all scenarios passed")
}

// open picks the driver from the URL scheme.
func open(url string) (*sql.DB, queries, error) {
	if strings.HasPrefix(url, "postgres://") || strings.HasPrefix(url, "postgresql://") {
		db, err := postgres.Open(url)
		return db, postgresQueries, err
	}
	db, err := sql.Open("sqlite", url)
	if err != nil {
		return nil, queries{}, err
	}
	return db, sqliteQueries, db.Ping()
}

type scenario struct {
	name string
	run  func(ctx context.Context, tpl *dbkit.Template, txm *dbkit.TxManager, q queries) error
}

func scenarios() []scenario {
	return []scenario{
		{name: "exec and query one", run: verifyExecQueryOne},
		{name: "query many ordering", run: verifyQueryMany},
		{name: "committed unit of work", run: verifyCommit},
		{name: "rolled back unit of work", run: verifyRollback},
	}
}

func verifyExecQueryOne(ctx context.Context, tpl *dbkit.Template, txm *dbkit.TxManager, q queries) error {
	id := uuid.New().String()
	err := tpl.Exec(ctx, q.insert,
		dbkit.Text(id), dbkit.Text("verify-one"), dbkit.Int(7), dbkit.Timestamp(time.Now()))
	if err != nil {
		return err
	}

	got, err := dbkit.QueryOne(ctx, tpl, q.selectOne, mapRecord, dbkit.Text(id))
	if err != nil {
		return err
	}
	if got.ID != id || got.Quantity != 7 {
		return fmt.Errorf("unexpected row: %+v", got)
	}

	// A miss must surface as the not-found kind.
	_, err = dbkit.QueryOne(ctx, tpl, q.selectOne, mapRecord, dbkit.Text(uuid.New().String()))
	if !errors.Is(err, dbkit.ErrNotFound) {
		return fmt.Errorf("expected ErrNotFound for missing row, got %v", err)
	}
	return nil
}

func verifyQueryMany(ctx context.Context, tpl *dbkit.Template, txm *dbkit.TxManager, q queries) error {
	before, err := dbkit.QueryMany(ctx, tpl, q.selectAll, mapRecord)
	if err != nil {
		return err
	}

	for i := 0; i < 3; i++ {
		err := tpl.Exec(ctx, q.insert,
			dbkit.Text(uuid.New().String()),
			dbkit.Text(fmt.Sprintf("verify-many-%d", i)),
			dbkit.Int(int64(i)),
			dbkit.Timestamp(time.Now()))
		if err != nil {
			return err
		}
	}

	after, err := dbkit.QueryMany(ctx, tpl, q.selectAll, mapRecord)
	if err != nil {
		return err
	}
	if len(after) != len(before)+3 {
		return fmt.Errorf("expected %d rows, got %d", len(before)+3, len(after))
	}
	return nil
}

func verifyCommit(ctx context.Context, tpl *dbkit.Template, txm *dbkit.TxManager, q queries) error {
	log := logger.FromContext(ctx)

	before, err := countRecords(ctx, tpl, q)
	if err != nil {
		return err
	}

	err = txm.Run(ctx, func(ctx context.Context, tx *sql.Tx) error {
		bound := tpl.WithConn(tx)
		for i := 0; i < 2; i++ {
			err := bound.Exec(ctx, q.insert,
				dbkit.Text(uuid.New().String()),
				dbkit.Text(fmt.Sprintf("verify-commit-%d", i)),
				dbkit.Int(int64(i)),
				dbkit.Timestamp(time.Now()))
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	after, err := countRecords(ctx, tpl, q)
	if err != nil {
		return err
	}
	if after != before+2 {
		return fmt.Errorf("expected %d rows after commit, got %d", before+2, after)
	}
	log.Debug("commit visible outside the transaction",
		slog.Int64("before", before),
		slog.Int64("after", after))
	return nil
}

func verifyRollback(ctx context.Context, tpl *dbkit.Template, txm *dbkit.TxManager, q queries) error {
	before, err := countRecords(ctx, tpl, q)
	if err != nil {
		return err
	}

	boom := errors.New("unit of work failed on purpose")
	err = txm.Run(ctx, func(ctx context.Context, tx *sql.Tx) error {
		bound := tpl.WithConn(tx)
		err := bound.Exec(ctx, q.insert,
			dbkit.Text(uuid.New().String()),
			dbkit.Text("verify-rollback"),
			dbkit.Int(1),
			dbkit.Timestamp(time.Now()))
		if err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, dbkit.ErrTxRollback) || !errors.Is(err, boom) {
		return fmt.Errorf("expected rollback error wrapping cause, got %v", err)
	}

	// The insert inside the failed unit of work must not be visible.
	after, err := countRecords(ctx, tpl, q)
	if err != nil {
		return err
	}
	if after != before {
		return fmt.Errorf("expected %d rows after rollback, got %d", before, after)
	}
	return nil
}

func countRecords(ctx context.Context, tpl *dbkit.Template, q queries) (int64, error) {
	return dbkit.QueryOne(ctx, tpl, q.count, func(row dbkit.Row) (int64, error) {
		var n int64
		err := row.Scan(&n)
		return n, err
	})
}
