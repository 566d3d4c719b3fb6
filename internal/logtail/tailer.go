// Package logtail follows the chat log of the newest game session folder.
package logtail

import (
	"bufio"
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// DefaultFileName is the chat log inside each session folder.
const DefaultFileName = "chat.log"

// Line is one complete line read from the active log.
type Line struct {
	Text      string
	SessionID string
	Path      string
}

type Options struct {
	Root     string
	FileName string

	IdleDelay    time.Duration // nothing new to read
	MissingDelay time.Duration // no active file
	ErrorDelay   time.Duration // active file could not be opened

	// DisableWatch turns off filesystem notifications; the tailer then
	// relies on the delays alone.
	DisableWatch bool

	// OnRotate is called after a new active file has been opened.
	OnRotate func(path, sessionID string)

	Now    func() time.Time
	Logger *slog.Logger
}

// Tailer streams appended lines. It is not safe for concurrent Run calls.
type Tailer struct {
	opts Options
	log  *slog.Logger

	path    string
	session string
	file    *os.File
	reader  *bufio.Reader
	partial strings.Builder
	waker   *waker
}

func New(opts Options) *Tailer {
	if opts.FileName == "" {
		opts.FileName = DefaultFileName
	}
	if opts.IdleDelay <= 0 {
		opts.IdleDelay = 300 * time.Millisecond
	}
	if opts.MissingDelay <= 0 {
		opts.MissingDelay = 2 * time.Second
	}
	if opts.ErrorDelay <= 0 {
		opts.ErrorDelay = time.Second
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Tailer{opts: opts, log: opts.Logger.With("component", "logtail")}
}

// SessionID names a session after the capture time and its folder.
func SessionID(now time.Time, folder string) string {
	return now.Format("20060102-150405") + "-" + folder
}

// Run tails until ctx is done. handle is called synchronously for each line
// in file order. Only content appended after a file becomes active is
// emitted. Run returns nil on cancellation.
func (t *Tailer) Run(ctx context.Context, handle func(Line)) error {
	if !t.opts.DisableWatch {
		w, err := newWaker(t.opts.Root)
		if err != nil {
			t.log.Debug("filesystem watch unavailable, polling", "err", err)
		} else {
			t.waker = w
			defer w.close()
		}
	}
	defer t.closeFile()

	for ctx.Err() == nil {
		if path, ok := FindActive(t.opts.Root, t.opts.FileName); ok && path != t.path {
			if err := t.open(path); err != nil {
				t.log.Error("open log file failed", "path", path, "err", err)
				t.sleep(ctx, t.opts.ErrorDelay)
				continue
			}
		}
		if t.file == nil {
			t.sleep(ctx, t.opts.MissingDelay)
			continue
		}
		if t.drain(ctx, handle) == 0 {
			t.sleep(ctx, t.opts.IdleDelay)
		}
	}
	return nil
}

func (t *Tailer) open(path string) error {
	t.closeFile()
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	if _, err := f.Seek(0, io.SeekEnd); err != nil {
		f.Close()
		return err
	}
	folder := filepath.Base(filepath.Dir(path))
	t.file = f
	t.path = path
	t.reader = bufio.NewReader(f)
	t.partial.Reset()
	t.session = SessionID(t.opts.Now(), folder)
	if t.waker != nil {
		t.waker.follow(filepath.Dir(path))
	}
	t.log.Info("switched to log file", "path", path, "session", t.session)
	if t.opts.OnRotate != nil {
		t.opts.OnRotate(path, t.session)
	}
	return nil
}

func (t *Tailer) closeFile() {
	if t.file != nil {
		t.file.Close()
	}
	t.file = nil
	t.reader = nil
	t.path = ""
}

// drain emits every complete line available and returns how many it emitted.
// A trailing fragment without newline is kept until the rest arrives.
func (t *Tailer) drain(ctx context.Context, handle func(Line)) int {
	n := 0
	for ctx.Err() == nil {
		chunk, err := t.reader.ReadString('\n')
		if chunk != "" {
			t.partial.WriteString(chunk)
		}
		if err != nil {
			if !errors.Is(err, io.EOF) {
				t.log.Warn("read log file failed", "path", t.path, "err", err)
			}
			return n
		}
		text := strings.TrimRight(t.partial.String(), "\r\n")
		t.partial.Reset()
		handle(Line{
			Text:      strings.ToValidUTF8(text, "�"),
			SessionID: t.session,
			Path:      t.path,
		})
		n++
	}
	return n
}

func (t *Tailer) sleep(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	var wake <-chan struct{}
	if t.waker != nil {
		wake = t.waker.c
	}
	select {
	case <-ctx.Done():
	case <-timer.C:
	case <-wake:
	}
}

// FindActive returns the log file of the most recently created subfolder of
// root. Ties go to the greatest folder name. ok is false when root is
// missing, has no subfolders, or the newest one has no log file yet.
func FindActive(root, fileName string) (string, bool) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return "", false
	}
	var (
		best     string
		bestTime time.Time
	)
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		ct := creationTime(info)
		if best == "" || ct.After(bestTime) || (ct.Equal(bestTime) && e.Name() > best) {
			best, bestTime = e.Name(), ct
		}
	}
	if best == "" {
		return "", false
	}
	path := filepath.Join(root, best, fileName)
	if fi, err := os.Stat(path); err != nil || !fi.Mode().IsRegular() {
		return "", false
	}
	return path, true
}
