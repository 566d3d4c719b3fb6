package sink

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"strings"
)

type pragmaSetting struct {
	name  string
	value string
}

// historyPragmas suit a single writer appending small rows with occasional
// history reads.
var historyPragmas = []pragmaSetting{
	{"synchronous", "NORMAL"},
	{"busy_timeout", "5000"},
	{"wal_autocheckpoint", "1000"},
	{"journal_size_limit", "8388608"},
	{"temp_store", "MEMORY"},
	{"cache_size", "-4096"},
}

// ApplySQLitePragmas sets the tuning pragmas, reads back the effective value
// of each and logs them on one line. Failures are logged and skipped.
// It returns the effective values by pragma name.
func ApplySQLitePragmas(ctx context.Context, db *sql.DB, enabled bool) map[string]string {
	if !enabled {
		return nil
	}
	effective := make(map[string]string, len(historyPragmas))
	parts := make([]string, 0, len(historyPragmas))
	for _, p := range historyPragmas {
		got, err := applyPragma(ctx, db, p)
		if err != nil {
			log.Printf("sqlite: pragma %s=%s failed: %v", p.name, p.value, err)
			continue
		}
		effective[p.name] = got
		parts = append(parts, p.name+"="+got)
	}
	log.Printf("sqlite: pragmas %s", strings.Join(parts, " "))
	return effective
}

func applyPragma(ctx context.Context, db *sql.DB, p pragmaSetting) (string, error) {
	if _, err := db.ExecContext(ctx, fmt.Sprintf("PRAGMA %s=%s;", p.name, p.value)); err != nil {
		return "", err
	}
	var value any
	if err := db.QueryRowContext(ctx, fmt.Sprintf("PRAGMA %s;", p.name)).Scan(&value); err != nil {
		return "", err
	}
	return fmt.Sprint(value), nil
}
