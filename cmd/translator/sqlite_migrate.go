package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"strings"
)

type sqliteColumn struct {
	Name        string
	Type        string
	NotNull     bool
	DefaultText string
}

// Histories written before language and session tracking lack these columns.
var addedColumns = []string{"lang", "session_id"}

var historyIndexes = []struct {
	name string
	ddl  string
}{
	{"messages_timestamp_idx", `CREATE INDEX IF NOT EXISTS messages_timestamp_idx ON messages(timestamp);`},
	{"messages_session_idx", `CREATE INDEX IF NOT EXISTS messages_session_idx ON messages(session_id, id);`},
}

func migrateSQLite(ctx context.Context, db *sql.DB) error {
	path := sqlitePath(ctx, db)
	userVersion, err := sqliteUserVersion(ctx, db)
	if err != nil {
		return fmt.Errorf("sqlite: user_version: %w", err)
	}

	log.Printf("translator: sqlite: path=%s user_version=%d", path, userVersion)

	columns, err := sqliteTableInfo(ctx, db, "messages")
	if err != nil {
		return fmt.Errorf("sqlite: describe messages: %w", err)
	}
	if len(columns) == 0 {
		log.Printf("translator: sqlite: messages table missing; skipping migration")
		return nil
	}

	for _, name := range addedColumns {
		if _, ok := columns[name]; ok {
			continue
		}
		stmt := fmt.Sprintf(`ALTER TABLE messages ADD COLUMN %s TEXT NOT NULL DEFAULT '';`, name)
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("sqlite: ensure %s column: %w", name, err)
		}
		log.Printf("translator: sqlite: added %s column to messages", name)
	}

	res, err := db.ExecContext(ctx, `UPDATE messages SET translated='' WHERE translated IS NULL;`)
	if err != nil {
		return fmt.Errorf("sqlite: normalize translated: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n > 0 {
		log.Printf("translator: sqlite: normalized translated nulls=%d", n)
	}

	indexState := make([]string, 0, len(historyIndexes))
	for _, idx := range historyIndexes {
		if _, err := db.ExecContext(ctx, idx.ddl); err != nil {
			return fmt.Errorf("sqlite: ensure %s: %w", idx.name, err)
		}
		ok, err := sqliteHasIndex(ctx, db, "messages", idx.name)
		if err != nil {
			return fmt.Errorf("sqlite: inspect indices: %w", err)
		}
		indexState = append(indexState, fmt.Sprintf("%s=%v", idx.name, ok))
	}

	var rows int64
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM messages;`).Scan(&rows); err != nil {
		return fmt.Errorf("sqlite: count messages: %w", err)
	}

	log.Printf("translator: sqlite: rows=%d %s", rows, strings.Join(indexState, " "))
	return nil
}

func sqlitePath(ctx context.Context, db *sql.DB) string {
	rows, err := db.QueryContext(ctx, `PRAGMA database_list;`)
	if err != nil {
		return "(unknown)"
	}
	defer rows.Close()

	for rows.Next() {
		var (
			seq  int
			name string
			file sql.NullString
		)
		if err := rows.Scan(&seq, &name, &file); err != nil {
			return "(unknown)"
		}
		if strings.EqualFold(strings.TrimSpace(name), "main") {
			if file.Valid && strings.TrimSpace(file.String) != "" {
				return file.String
			}
			return "(memory)"
		}
	}
	return "(unknown)"
}

func sqliteUserVersion(ctx context.Context, db *sql.DB) (int, error) {
	var userVersion int
	if err := db.QueryRowContext(ctx, `PRAGMA user_version;`).Scan(&userVersion); err != nil {
		return 0, err
	}
	return userVersion, nil
}

func sqliteTableInfo(ctx context.Context, db *sql.DB, table string) (map[string]sqliteColumn, error) {
	rows, err := db.QueryContext(ctx, fmt.Sprintf(`PRAGMA table_info(%s);`, table))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]sqliteColumn)
	for rows.Next() {
		var (
			cid        int
			name       string
			colType    string
			notNull    int
			defaultVal sql.NullString
			pk         int
		)
		if err := rows.Scan(&cid, &name, &colType, &notNull, &defaultVal, &pk); err != nil {
			return nil, err
		}
		out[strings.ToLower(strings.TrimSpace(name))] = sqliteColumn{
			Name:        name,
			Type:        strings.TrimSpace(colType),
			NotNull:     notNull == 1,
			DefaultText: strings.TrimSpace(defaultVal.String),
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func sqliteHasIndex(ctx context.Context, db *sql.DB, table, index string) (bool, error) {
	rows, err := db.QueryContext(ctx, fmt.Sprintf(`PRAGMA index_list('%s');`, table))
	if err != nil {
		return false, err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			seq     int
			name    string
			unique  int
			origin  string
			partial int
		)
		if err := rows.Scan(&seq, &name, &unique, &origin, &partial); err != nil {
			return false, err
		}
		if strings.EqualFold(strings.TrimSpace(name), index) {
			return true, nil
		}
	}
	if err := rows.Err(); err != nil {
		return false, err
	}
	return false, nil
}
