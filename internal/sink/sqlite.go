package sink

import (
	"context"
	"database/sql"
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/pkg/errors"

	"github.com/you/sc-chat-translator/internal/core"
	"github.com/you/sc-chat-translator/internal/httpapi"
	"github.com/you/sc-chat-translator/internal/ingesttrace"
)

// Indexes live in the migration so that older files without the session
// column can still be opened.
const schema = `CREATE TABLE IF NOT EXISTS messages (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  timestamp TEXT NOT NULL,
  category TEXT,
  username TEXT,
  message TEXT,
  translated TEXT,
  lang TEXT,
  session_id TEXT
);`

const selectColumns = `SELECT id, timestamp, COALESCE(category, ''), COALESCE(username, ''), COALESCE(message, ''),
  COALESCE(translated, ''), COALESCE(lang, ''), COALESCE(session_id, '') FROM messages`

// CSVHeader is the first row written by ExportCSV.
var CSVHeader = []string{"timestamp", "category", "username", "message", "translated", "lang", "session_id"}

const defaultListLimit = 100

// SQLiteSink is the append-only chat history.
type SQLiteSink struct {
	db *sql.DB
}

func OpenSQLite(path string, tuning bool) (*SQLiteSink, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrap(err, "open sqlite")
	}
	// One connection serialises writers; the history is single-user.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "apply schema")
	}
	if _, err := db.Exec(`PRAGMA journal_mode=wal;`); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "set WAL")
	}
	ApplySQLitePragmas(context.Background(), db, tuning)
	return &SQLiteSink{db: db}, nil
}

func (s *SQLiteSink) Close() error { return s.db.Close() }

// RawDB exposes the handle for migrations.
func (s *SQLiteSink) RawDB() *sql.DB { return s.db }

func (s *SQLiteSink) Ping() error { return s.db.Ping() }

func (s *SQLiteSink) String() string {
	return fmt.Sprintf("SQLiteSink{%p}", s.db)
}

// Insert appends msg and returns it with its row id.
func (s *SQLiteSink) Insert(ctx context.Context, msg core.ChatMessage) (core.ChatMessage, error) {
	const q = `INSERT INTO messages (timestamp, category, username, message, translated, lang, session_id)
VALUES (?, ?, ?, ?, ?, ?, ?);`
	res, err := s.db.ExecContext(ctx, q, msg.Stamp(), string(msg.Category), msg.Username,
		msg.Message, msg.Translated, msg.Lang, msg.SessionID)
	if err != nil {
		return msg, errors.Wrap(err, "insert message")
	}
	if id, err := res.LastInsertId(); err == nil {
		msg.ID = id
	}
	return msg, nil
}

// Write implements Writer.
func (s *SQLiteSink) Write(msg core.ChatMessage, trace *ingesttrace.LineTrace) error {
	_, err := s.insertTraced(msg, trace)
	return err
}

func (s *SQLiteSink) insertTraced(msg core.ChatMessage, trace *ingesttrace.LineTrace) (core.ChatMessage, error) {
	stored, err := s.Insert(context.Background(), msg)
	if err == nil && trace != nil {
		trace.IncCounter(ingesttrace.StageWrittenToDB)
	}
	return stored, err
}

// QueryByDate returns the rows captured on a calendar day (YYYY-MM-DD),
// oldest first.
func (s *SQLiteSink) QueryByDate(ctx context.Context, date string) ([]core.ChatMessage, error) {
	if _, err := time.Parse("2006-01-02", date); err != nil {
		return nil, errors.Errorf("invalid date %q, want YYYY-MM-DD", date)
	}
	return s.query(ctx, selectColumns+` WHERE date(timestamp) = ? ORDER BY timestamp ASC, id ASC;`, date)
}

// QueryLastSession returns every row of the session of the most recently
// inserted row, oldest first. An empty store yields no rows.
func (s *SQLiteSink) QueryLastSession(ctx context.Context) ([]core.ChatMessage, error) {
	var session sql.NullString
	err := s.db.QueryRowContext(ctx, `SELECT session_id FROM messages ORDER BY id DESC LIMIT 1;`).Scan(&session)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "find last session")
	}
	if !session.Valid {
		return s.query(ctx, selectColumns+` WHERE session_id IS NULL ORDER BY timestamp ASC, id ASC;`)
	}
	return s.query(ctx, selectColumns+` WHERE session_id = ? ORDER BY timestamp ASC, id ASC;`, session.String)
}

// ExportCSV writes the whole history, oldest first, and returns the row count.
func (s *SQLiteSink) ExportCSV(ctx context.Context, w io.Writer) (int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT timestamp, COALESCE(category, ''), COALESCE(username, ''),
  COALESCE(message, ''), COALESCE(translated, ''), COALESCE(lang, ''), COALESCE(session_id, '')
FROM messages ORDER BY timestamp ASC, id ASC;`)
	if err != nil {
		return 0, errors.Wrap(err, "export query")
	}
	defer rows.Close()

	cw := csv.NewWriter(w)
	if err := cw.Write(CSVHeader); err != nil {
		return 0, errors.Wrap(err, "write csv header")
	}
	n := 0
	record := make([]string, len(CSVHeader))
	for rows.Next() {
		ptrs := make([]any, len(record))
		for i := range record {
			ptrs[i] = &record[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return n, errors.Wrap(err, "scan export row")
		}
		if err := cw.Write(record); err != nil {
			return n, errors.Wrap(err, "write csv row")
		}
		n++
	}
	if err := rows.Err(); err != nil {
		return n, errors.Wrap(err, "iterate export rows")
	}
	cw.Flush()
	return n, errors.Wrap(cw.Error(), "flush csv")
}

// Count returns the number of stored rows.
func (s *SQLiteSink) Count(ctx context.Context) (int64, error) {
	return s.CountMessages(ctx, httpapi.Filters{})
}

// ListRecent returns up to limit rows, newest first.
func (s *SQLiteSink) ListRecent(ctx context.Context, limit int) ([]core.ChatMessage, error) {
	return s.ListMessages(ctx, httpapi.Filters{Limit: limit, Order: httpapi.OrderDesc})
}

func (s *SQLiteSink) CountMessages(ctx context.Context, filters httpapi.Filters) (int64, error) {
	query, args := buildMessageQuery(filters, true)
	var n int64
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, errors.Wrap(err, "count")
	}
	return n, nil
}

func (s *SQLiteSink) ListMessages(ctx context.Context, filters httpapi.Filters) ([]core.ChatMessage, error) {
	query, args := buildMessageQuery(filters, false)
	return s.query(ctx, query, args...)
}

func (s *SQLiteSink) query(ctx context.Context, query string, args ...any) ([]core.ChatMessage, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "list messages")
	}
	defer rows.Close()

	var out []core.ChatMessage
	for rows.Next() {
		var (
			msg      core.ChatMessage
			ts       string
			category string
		)
		if err := rows.Scan(&msg.ID, &ts, &category, &msg.Username, &msg.Message, &msg.Translated, &msg.Lang, &msg.SessionID); err != nil {
			return nil, errors.Wrap(err, "scan message")
		}
		msg.Category = core.Category(category)
		if t, err := time.ParseInLocation(core.TimestampLayout, ts, time.Local); err == nil {
			msg.Timestamp = t
		}
		out = append(out, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "iterate messages")
	}
	return out, nil
}

func buildMessageQuery(filters httpapi.Filters, count bool) (string, []any) {
	var builder strings.Builder
	if count {
		builder.WriteString("SELECT COUNT(*) FROM messages")
	} else {
		builder.WriteString(selectColumns)
	}

	var (
		conditions []string
		args       []any
	)

	if len(filters.Categories) > 0 {
		placeholders := make([]string, 0, len(filters.Categories))
		for _, c := range filters.Categories {
			placeholders = append(placeholders, "?")
			args = append(args, string(c))
		}
		conditions = append(conditions, fmt.Sprintf("category IN (%s)", strings.Join(placeholders, ",")))
	}

	if len(filters.Usernames) > 0 {
		ors := make([]string, 0, len(filters.Usernames))
		for _, u := range filters.Usernames {
			ors = append(ors, "LOWER(username) LIKE '%' || ? || '%'")
			args = append(args, u)
		}
		conditions = append(conditions, fmt.Sprintf("(%s)", strings.Join(ors, " OR ")))
	}

	if filters.Session != "" {
		conditions = append(conditions, "session_id = ?")
		args = append(args, filters.Session)
	}

	if filters.Since != nil {
		conditions = append(conditions, "timestamp >= ?")
		args = append(args, filters.Since.In(time.Local).Format(core.TimestampLayout))
	}

	if len(conditions) > 0 {
		builder.WriteString(" WHERE ")
		builder.WriteString(strings.Join(conditions, " AND "))
	}

	if !count {
		order := "DESC"
		if filters.Order == httpapi.OrderAsc {
			order = "ASC"
		}
		builder.WriteString(" ORDER BY timestamp ")
		builder.WriteString(order)
		builder.WriteString(", id ")
		builder.WriteString(order)
		limit := filters.Limit
		if limit <= 0 {
			limit = defaultListLimit
		}
		builder.WriteString(" LIMIT ?")
		args = append(args, limit)
	}

	builder.WriteString(";")
	return builder.String(), args
}
