package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // driver: pgx
	_ "modernc.org/sqlite"             // driver: sqlite
)

type Driver string

const (
	DriverSQLite   Driver = "sqlite"
	DriverPostgres Driver = "postgres"
)

// ParseDriver maps common aliases to a supported Driver.
func ParseDriver(s string) (Driver, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "sqlite", "sqlite3":
		return DriverSQLite, nil
	case "postgres", "pg", "pgsql", "pgx":
		return DriverPostgres, nil
	default:
		return "", fmt.Errorf("unsupported driver: %s", s)
	}
}

// Open opens a DB, tunes the pool and ensures schema exists.
func Open(ctx context.Context, driver Driver, dsn string) (*sql.DB, error) {
	var drvName string
	switch driver {
	case DriverSQLite:
		drvName = "sqlite" // modernc driver
		if dsn == "" {
			dsn = "file:judging.db?cache=shared&mode=rwc&_pragma=busy_timeout(5000)"
		}
	case DriverPostgres:
		drvName = "pgx" // pgx stdlib driver
		if dsn == "" {
			dsn = "postgres://localhost:5432/judging?sslmode=disable"
		}
	default:
		return nil, fmt.Errorf("unsupported driver: %s", driver)
	}

	db, err := sql.Open(drvName, dsn)
	if err != nil {
		return nil, fmt.Errorf("db: open: %w", err)
	}
	tunePool(driver, db)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db: ping: %w", err)
	}
	if driver == DriverSQLite {
		if err := applySQLitePragmas(ctx, db); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	if err := ensureSchema(ctx, db, driver); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// WithTx runs fn inside a transaction, committing when fn returns nil.
func WithTx(ctx context.Context, db *sql.DB, fn func(*sql.Tx) error) (err error) {
	if db == nil {
		return errors.New("db: nil handle")
	}
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("db: begin tx: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
			return
		}
		if e := tx.Commit(); e != nil {
			err = fmt.Errorf("db: commit: %w", e)
		}
	}()
	err = fn(tx)
	return
}

func tunePool(driver Driver, db *sql.DB) {
	maxOpen := 20
	maxIdle := 10
	connLife := 45 * time.Minute
	idleLife := 15 * time.Minute

	if driver == DriverSQLite {
		// single writer
		maxOpen = 1
		maxIdle = 1
		connLife = 0
		idleLife = 0
	}

	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(maxIdle)
	db.SetConnMaxLifetime(connLife)
	db.SetConnMaxIdleTime(idleLife)
}

func applySQLitePragmas(ctx context.Context, db *sql.DB) error {
	pragmas := []string{
		"PRAGMA foreign_keys = ON;",
		"PRAGMA journal_mode = WAL;",
		"PRAGMA synchronous = NORMAL;",
		"PRAGMA busy_timeout = 5000;",
		"PRAGMA temp_store = MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			return fmt.Errorf("db: sqlite pragma %q: %w", p, err)
		}
	}
	return nil
}

func ensureSchema(ctx context.Context, db *sql.DB, driver Driver) error {
	var schema string
	switch driver {
	case DriverSQLite:
		schema = schemaSQLite
	case DriverPostgres:
		schema = schemaPostgres
	}
	// Some drivers reject multi-statement scripts; fall back to one at a time.
	if _, err := db.ExecContext(ctx, schema); err != nil {
		for _, stmt := range splitSQL(schema) {
			if _, e := db.ExecContext(ctx, stmt); e != nil {
				return fmt.Errorf("db: schema failed at %q: %w", firstLine(stmt), e)
			}
		}
	}
	return upgradeSchema(ctx, db, driver)
}

// upgradeSchema brings tables created by older builds up to date.
func upgradeSchema(ctx context.Context, db *sql.DB, driver Driver) error {
	added, err := addColumn(ctx, db, driver, "results", "created_at", "BIGINT NOT NULL DEFAULT 0")
	if err != nil {
		return err
	}
	if added {
		// rows from before the column existed keep their last-edit order
		if _, err := db.ExecContext(ctx, `UPDATE results SET created_at = ts WHERE created_at = 0`); err != nil {
			return fmt.Errorf("db: backfill results.created_at: %w", err)
		}
	}
	return nil
}

// addColumn adds table.column unless it already exists and reports whether
// it did.
func addColumn(ctx context.Context, db *sql.DB, driver Driver, table, column, decl string) (bool, error) {
	var n int
	var q string
	switch driver {
	case DriverPostgres:
		q = `SELECT COUNT(*) FROM information_schema.columns WHERE table_name=$1 AND column_name=$2`
	default:
		q = `SELECT COUNT(*) FROM pragma_table_info($1) WHERE name=$2`
	}
	if err := db.QueryRowContext(ctx, q, table, column).Scan(&n); err != nil {
		return false, fmt.Errorf("db: inspect %s.%s: %w", table, column, err)
	}
	if n > 0 {
		return false, nil
	}
	if _, err := db.ExecContext(ctx, fmt.Sprintf(`ALTER TABLE %s ADD COLUMN %s %s`, table, column, decl)); err != nil {
		return false, fmt.Errorf("db: add %s.%s: %w", table, column, err)
	}
	return true, nil
}

func splitSQL(s string) []string {
	raw := strings.Split(s, ";")
	out := make([]string, 0, len(raw))
	for _, part := range raw {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		out = append(out, part+";")
	}
	return out
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

const schemaSQLite = `
CREATE TABLE IF NOT EXISTS settings (
  id INTEGER PRIMARY KEY CHECK (id = 1),
  doc TEXT NOT NULL,
  admin_password_hash TEXT NOT NULL DEFAULT '',
  updated_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS projects (
  id TEXT PRIMARY KEY,
  title TEXT NOT NULL,
  category TEXT NOT NULL DEFAULT '',
  team TEXT NOT NULL DEFAULT '',
  school TEXT NOT NULL DEFAULT '',
  contact TEXT NOT NULL DEFAULT '',
  created_at INTEGER NOT NULL,
  updated_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_projects_title ON projects(title);

CREATE TABLE IF NOT EXISTS evaluators (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL DEFAULT '',
  email TEXT NOT NULL,
  expertise TEXT NOT NULL DEFAULT '',
  notes TEXT NOT NULL DEFAULT '',
  code TEXT NOT NULL,
  created_at INTEGER NOT NULL,
  updated_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_evaluators_email ON evaluators(email);
CREATE INDEX IF NOT EXISTS idx_evaluators_name ON evaluators(name);

CREATE TABLE IF NOT EXISTS panels (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  evaluator_ids_json TEXT NOT NULL,
  project_ids_json TEXT NOT NULL,
  created_at INTEGER NOT NULL,
  updated_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_panels_name ON panels(name);

CREATE TABLE IF NOT EXISTS results (
  id TEXT PRIMARY KEY,
  project_id TEXT NOT NULL,
  evaluator_id TEXT NOT NULL,
  panel_id TEXT NOT NULL DEFAULT '',
  scores_json TEXT NOT NULL,
  remark TEXT NOT NULL DEFAULT '',
  total REAL NOT NULL DEFAULT 0,
  ts INTEGER NOT NULL,
  created_at INTEGER NOT NULL DEFAULT 0
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_results_pair ON results(project_id, evaluator_id);
CREATE INDEX IF NOT EXISTS idx_results_ts ON results(ts);

CREATE TABLE IF NOT EXISTS evaluator_states (
  evaluator_id TEXT PRIMARY KEY,
  finalized_all BOOLEAN NOT NULL DEFAULT 0,
  updated_at INTEGER NOT NULL
);
`

const schemaPostgres = `
CREATE TABLE IF NOT EXISTS settings (
  id INTEGER PRIMARY KEY CHECK (id = 1),
  doc TEXT NOT NULL,
  admin_password_hash TEXT NOT NULL DEFAULT '',
  updated_at BIGINT NOT NULL
);

CREATE TABLE IF NOT EXISTS projects (
  id TEXT PRIMARY KEY,
  title TEXT NOT NULL,
  category TEXT NOT NULL DEFAULT '',
  team TEXT NOT NULL DEFAULT '',
  school TEXT NOT NULL DEFAULT '',
  contact TEXT NOT NULL DEFAULT '',
  created_at BIGINT NOT NULL,
  updated_at BIGINT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_projects_title ON projects(title);

CREATE TABLE IF NOT EXISTS evaluators (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL DEFAULT '',
  email TEXT NOT NULL,
  expertise TEXT NOT NULL DEFAULT '',
  notes TEXT NOT NULL DEFAULT '',
  code TEXT NOT NULL,
  created_at BIGINT NOT NULL,
  updated_at BIGINT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_evaluators_email ON evaluators(email);
CREATE INDEX IF NOT EXISTS idx_evaluators_name ON evaluators(name);

CREATE TABLE IF NOT EXISTS panels (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  evaluator_ids_json TEXT NOT NULL,
  project_ids_json TEXT NOT NULL,
  created_at BIGINT NOT NULL,
  updated_at BIGINT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_panels_name ON panels(name);

CREATE TABLE IF NOT EXISTS results (
  id TEXT PRIMARY KEY,
  project_id TEXT NOT NULL,
  evaluator_id TEXT NOT NULL,
  panel_id TEXT NOT NULL DEFAULT '',
  scores_json TEXT NOT NULL,
  remark TEXT NOT NULL DEFAULT '',
  total DOUBLE PRECISION NOT NULL DEFAULT 0,
  ts BIGINT NOT NULL,
  created_at BIGINT NOT NULL DEFAULT 0
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_results_pair ON results(project_id, evaluator_id);
CREATE INDEX IF NOT EXISTS idx_results_ts ON results(ts);

CREATE TABLE IF NOT EXISTS evaluator_states (
  evaluator_id TEXT PRIMARY KEY,
  finalized_all BOOLEAN NOT NULL DEFAULT FALSE,
  updated_at BIGINT NOT NULL
);
`
