package main

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	_ "modernc.org/sqlite"
)

func TestMigrateSQLite(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	dbPath := filepath.Join(dir, "chat_history.db")

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	defer db.Close()

	// The first desktop releases stored neither language nor session.
	schema := `CREATE TABLE messages (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  timestamp TEXT NOT NULL,
  category TEXT,
  username TEXT,
  message TEXT,
  translated TEXT
);`
	if _, err := db.Exec(schema); err != nil {
		t.Fatalf("create schema: %v", err)
	}

	seed := `INSERT INTO messages (timestamp, category, username, message, translated)
VALUES
  ('2025-03-14 09:26:53', 'Trading', 'alice', 'wts tai', 'wts tai'),
  ('2025-03-14 09:27:10', 'Battle', 'bob', 'gg', NULL);
`
	if _, err := db.Exec(seed); err != nil {
		t.Fatalf("seed rows: %v", err)
	}

	if err := migrateSQLite(context.Background(), db); err != nil {
		t.Fatalf("migrate sqlite: %v", err)
	}

	cols, err := sqliteTableInfo(context.Background(), db, "messages")
	if err != nil {
		t.Fatalf("inspect columns: %v", err)
	}
	for _, name := range []string{"lang", "session_id"} {
		col, ok := cols[name]
		if !ok {
			t.Fatalf("expected %s column to exist", name)
		}
		if !col.NotNull || col.DefaultText == "" {
			t.Fatalf("expected %s column to be NOT NULL with default, got %+v", name, col)
		}
	}

	var empty int
	if err := db.QueryRow(`SELECT COUNT(*) FROM messages WHERE lang='' AND session_id='';`).Scan(&empty); err != nil {
		t.Fatalf("count defaults: %v", err)
	}
	if empty != 2 {
		t.Fatalf("expected existing rows to take the defaults, got %d", empty)
	}

	var nulls int
	if err := db.QueryRow(`SELECT COUNT(*) FROM messages WHERE translated IS NULL;`).Scan(&nulls); err != nil {
		t.Fatalf("count nulls: %v", err)
	}
	if nulls != 0 {
		t.Fatalf("expected no NULL translations, got %d", nulls)
	}

	for _, idx := range []string{"messages_timestamp_idx", "messages_session_idx"} {
		ok, err := sqliteHasIndex(context.Background(), db, "messages", idx)
		if err != nil {
			t.Fatalf("inspect indices: %v", err)
		}
		if !ok {
			t.Fatalf("expected index %s", idx)
		}
	}

	// A second run is a no-op.
	if err := migrateSQLite(context.Background(), db); err != nil {
		t.Fatalf("second migrate: %v", err)
	}

	if _, err := os.Stat(dbPath); err != nil {
		t.Fatalf("expected db file: %v", err)
	}
}

func TestMigrateSQLiteMissingTable(t *testing.T) {
	t.Parallel()

	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "empty.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	defer db.Close()

	if err := migrateSQLite(context.Background(), db); err != nil {
		t.Fatalf("migrate empty db: %v", err)
	}
	if got := sqlitePath(context.Background(), db); got == "(unknown)" {
		t.Fatalf("expected database path, got %q", got)
	}
}
