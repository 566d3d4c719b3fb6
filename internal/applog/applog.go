// Package applog builds the process logger: slog to stderr plus a rotating
// file in the data directory.
package applog

import (
	"io"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

type Options struct {
	Level  string // debug|info|warn|error
	JSON   bool
	File   string // empty disables the file sink
	Stderr io.Writer

	MaxSizeMB  int
	MaxBackups int
}

// Logger is the configured slog logger and the file it rotates, if any.
type Logger struct {
	*slog.Logger
	file *lumberjack.Logger
}

// ParseLevel maps a level name to slog, defaulting to info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

// New builds the logger, makes it the slog default and points the standard
// log package at the same outputs.
func New(opts Options) (*Logger, error) {
	out := opts.Stderr
	if out == nil {
		out = os.Stderr
	}

	l := &Logger{}
	if opts.File != "" {
		if err := os.MkdirAll(filepath.Dir(opts.File), 0o755); err != nil {
			return nil, err
		}
		if opts.MaxSizeMB <= 0 {
			opts.MaxSizeMB = 1
		}
		if opts.MaxBackups <= 0 {
			opts.MaxBackups = 5
		}
		l.file = &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    opts.MaxSizeMB,
			MaxBackups: opts.MaxBackups,
		}
		out = io.MultiWriter(out, l.file)
	}

	hopts := &slog.HandlerOptions{Level: ParseLevel(opts.Level), ReplaceAttr: flattenError}
	var handler slog.Handler
	if opts.JSON {
		handler = slog.NewJSONHandler(out, hopts)
	} else {
		handler = slog.NewTextHandler(out, hopts)
	}
	l.Logger = slog.New(handler)

	slog.SetDefault(l.Logger)
	log.SetOutput(out)
	return l, nil
}

// flattenError logs errors by message only. The text handler formats error
// values with %+v, which prints a stack trace for pkg/errors values.
func flattenError(_ []string, a slog.Attr) slog.Attr {
	if a.Value.Kind() != slog.KindAny {
		return a
	}
	if err, ok := a.Value.Any().(error); ok {
		return slog.String(a.Key, err.Error())
	}
	return a
}

// Close flushes and closes the log file.
func (l *Logger) Close() error {
	if l == nil || l.file == nil {
		return nil
	}
	return l.file.Close()
}
