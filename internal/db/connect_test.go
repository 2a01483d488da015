package db

import (
	"context"
	"database/sql"
	"testing"
)

func TestParseDriver(t *testing.T) {
	tests := map[string]Driver{"": DriverSQLite, "SQLite3": DriverSQLite, "pgx": DriverPostgres, " postgres ": DriverPostgres}
	for in, want := range tests {
		got, err := ParseDriver(in)
		if err != nil || got != want {
			t.Fatalf("ParseDriver(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseDriver("mysql"); err == nil {
		t.Fatal("expected error for mysql")
	}
}

func TestOpenUpgradesOldResultsTable(t *testing.T) {
	ctx := context.Background()
	dsn := "file:upgrade_results?mode=memory&cache=shared"

	// The shared in-memory database lives while this handle is open.
	old, err := sql.Open("sqlite", dsn)
	if err != nil {
		t.Fatal(err)
	}
	defer old.Close()
	if _, err := old.ExecContext(ctx, `CREATE TABLE results (
  id TEXT PRIMARY KEY,
  project_id TEXT NOT NULL,
  evaluator_id TEXT NOT NULL,
  panel_id TEXT NOT NULL DEFAULT '',
  scores_json TEXT NOT NULL,
  remark TEXT NOT NULL DEFAULT '',
  total REAL NOT NULL DEFAULT 0,
  ts INTEGER NOT NULL
)`); err != nil {
		t.Fatal(err)
	}
	if _, err := old.ExecContext(ctx, `INSERT INTO results (id, project_id, evaluator_id, scores_json, ts) VALUES ('r1','p1','e1','{}',1234)`); err != nil {
		t.Fatal(err)
	}

	dbh, err := Open(ctx, DriverSQLite, dsn)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer dbh.Close()

	var created int64
	if err := dbh.QueryRowContext(ctx, `SELECT created_at FROM results WHERE id='r1'`).Scan(&created); err != nil {
		t.Fatal(err)
	}
	if created != 1234 {
		t.Fatalf("created_at = %d, want backfill from ts", created)
	}

	// a second open finds the column and leaves rows alone
	again, err := Open(ctx, DriverSQLite, dsn)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	_ = again.Close()
}
