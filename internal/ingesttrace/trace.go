// Package ingesttrace counts the pipeline stages a single chat line passes
// through so dropped or failed lines can be explained after the fact.
package ingesttrace

import (
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"sync"
	"unicode/utf8"
)

// Stage is one step of line processing.
type Stage string

const (
	StageSeenFromLog       Stage = "seen_from_log"
	StageClassified        Stage = "classified"
	StageSubstituted       Stage = "substituted"
	StageTranslated        Stage = "translated"
	StageTranslationFailed Stage = "translation_failed"
	StageWrittenToDB       Stage = "written_to_db"

	StageDroppedPrefix = "dropped_"
)

const snippetRunes = 64

// StageDropped names the stage for a line dropped for reason.
func StageDropped(reason string) Stage {
	return Stage(StageDroppedPrefix + reason)
}

// LineTrace follows one raw log line.
type LineTrace struct {
	Session  string
	Category string
	User     string
	Snippet  string
	TraceID  string

	mu       sync.Mutex
	counters map[Stage]int64
}

// NewLineTrace seeds seen_from_log for a raw line of session.
func NewLineTrace(session, raw string) *LineTrace {
	return &LineTrace{
		Session:  session,
		Snippet:  snippet(raw),
		TraceID:  computeTraceID(session, raw),
		counters: map[Stage]int64{StageSeenFromLog: 1},
	}
}

// IncCounter increments stage and returns the new value.
func (t *LineTrace) IncCounter(stage Stage) int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.counters[stage]++
	return t.counters[stage]
}

// Has reports whether stage was reached.
func (t *LineTrace) Has(stage Stage) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.counters[stage] > 0
}

// LogTrace writes the trace at debug level.
func (t *LineTrace) LogTrace(logger *slog.Logger, msg string) {
	if logger == nil {
		logger = slog.Default()
	}
	logger.Debug(msg,
		"trace_id", t.TraceID,
		"session", t.Session,
		"category", t.Category,
		"user", t.User,
		"snippet", t.Snippet,
		"counters", t.snapshot(),
	)
}

func (t *LineTrace) snapshot() map[Stage]int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make(map[Stage]int64, len(t.counters))
	for stage, n := range t.counters {
		out[stage] = n
	}
	return out
}

func snippet(s string) string {
	if utf8.RuneCountInString(s) <= snippetRunes {
		return s
	}
	r := []rune(s)
	return string(r[:snippetRunes]) + "…"
}

func computeTraceID(session, raw string) string {
	digest := sha256.Sum256([]byte(session + "\x1f" + raw))
	return hex.EncodeToString(digest[:8])
}
