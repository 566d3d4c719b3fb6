package pipeline

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	dropSummaryInterval = 5 * time.Second
	dropSampleMaxLen    = 96
)

type lineSummary struct {
	kind   string
	sample string
}

type dropReasonSummary struct {
	total        int
	byKind       map[string]int
	sampleByKind map[string]string
}

// dropLogger aggregates dropped lines per reason and logs one summary per
// reason every interval instead of one record per line.
type dropLogger struct {
	log      *slog.Logger
	verbose  bool
	interval time.Duration
	nextEmit time.Time
	reasons  map[string]*dropReasonSummary
}

func newDropLogger(log *slog.Logger, now time.Time, verbose bool, interval time.Duration) *dropLogger {
	if interval <= 0 {
		interval = dropSummaryInterval
	}
	return &dropLogger{
		log:      log,
		verbose:  verbose,
		interval: interval,
		nextEmit: now.Add(interval),
		reasons:  make(map[string]*dropReasonSummary),
	}
}

func (d *dropLogger) note(now time.Time, reason, rawLine string) {
	if d == nil {
		return
	}
	summary := summarizeLine(rawLine)
	if d.verbose {
		d.log.Debug("pipeline: dropped line", "reason", reason, "kind", summary.kind, "sample", summary.sample)
	}

	entry := d.reasons[reason]
	if entry == nil {
		entry = &dropReasonSummary{
			byKind:       make(map[string]int),
			sampleByKind: make(map[string]string),
		}
		d.reasons[reason] = entry
	}
	entry.total++
	entry.byKind[summary.kind]++
	if _, ok := entry.sampleByKind[summary.kind]; !ok {
		entry.sampleByKind[summary.kind] = summary.sample
	}

	if !now.Before(d.nextEmit) {
		d.flush(now)
	}
}

func (d *dropLogger) flush(now time.Time) {
	if d == nil {
		return
	}
	for _, reason := range sortedKeys(d.reasons) {
		rs := d.reasons[reason]
		if rs.total == 0 {
			continue
		}
		d.log.Info("pipeline: dropped_"+reason,
			"total", rs.total,
			"kinds", formatCounts(rs.byKind),
			"samples", formatSamples(rs.sampleByKind),
		)
	}
	clear(d.reasons)
	d.nextEmit = now.Add(d.interval)
}

// summarizeLine names the log source of a raw line ("Join", "System", ...)
// from the word after "CHAT|", or the tag in front of the first "|".
func summarizeLine(raw string) lineSummary {
	line := strings.TrimSpace(raw)
	if line == "" {
		return lineSummary{kind: "EMPTY"}
	}
	kind := "OTHER"
	if _, after, ok := strings.Cut(line, "CHAT|"); ok {
		if f := strings.Fields(after); len(f) > 0 {
			kind = f[0]
		} else {
			kind = "CHAT"
		}
	} else if before, _, ok := strings.Cut(line, "|"); ok {
		if f := strings.Fields(before); len(f) > 0 {
			kind = f[len(f)-1]
		}
	}
	return lineSummary{
		kind:   sanitizeAndTruncate(kind, 24),
		sample: sanitizeAndTruncate(line, dropSampleMaxLen),
	}
}

func sanitizeAndTruncate(s string, max int) string {
	s = strings.Join(strings.Fields(s), " ")
	if max <= 0 || utf8.RuneCountInString(s) <= max {
		return s
	}
	r := []rune(s)
	if max <= 3 {
		return string(r[:max])
	}
	return string(r[:max-3]) + "..."
}

func formatCounts(counts map[string]int) string {
	if len(counts) == 0 {
		return "{}"
	}
	parts := make([]string, 0, len(counts))
	for _, k := range sortedKeys(counts) {
		parts = append(parts, fmt.Sprintf("%s:%d", k, counts[k]))
	}
	return "{" + strings.Join(parts, " ") + "}"
}

func formatSamples(samples map[string]string) string {
	if len(samples) == 0 {
		return "{}"
	}
	parts := make([]string, 0, len(samples))
	for _, k := range sortedKeys(samples) {
		parts = append(parts, k+":'"+samples[k]+"'")
	}
	return "{" + strings.Join(parts, " ") + "}"
}

func sortedKeys[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
