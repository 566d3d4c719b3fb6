package sink

import (
	"errors"
	"sync"
	"time"

	"github.com/you/sc-chat-translator/internal/core"
	"github.com/you/sc-chat-translator/internal/ingesttrace"
)

// Writer persists one processed message.
type Writer interface {
	Write(core.ChatMessage, *ingesttrace.LineTrace) error
}

// ErrClosed is returned by writes after Close.
var ErrClosed = errors.New("history writer closed")

// BufferedWriter groups writes into batches of up to BatchSize, flushing a
// partial batch after FlushInterval. With BatchSize 1 every write goes
// straight through. Messages reach the base writer in arrival order.
type BufferedWriter struct {
	base          Writer
	batchSize     int
	flushInterval time.Duration

	// flushMu keeps batches from overlapping so order is preserved.
	flushMu sync.Mutex

	mu      sync.Mutex
	pending []pendingWrite
	timer   *time.Timer
	closed  bool
	lastErr error
}

type pendingWrite struct {
	msg   core.ChatMessage
	trace *ingesttrace.LineTrace
}

type BufferedOptions struct {
	BatchSize     int
	FlushInterval time.Duration
}

func NewBufferedWriter(base Writer, opts BufferedOptions) *BufferedWriter {
	batch := opts.BatchSize
	if batch <= 0 {
		batch = 1
	}
	return &BufferedWriter{
		base:          base,
		batchSize:     batch,
		flushInterval: opts.FlushInterval,
	}
}

// Write queues msg. The returned error is either this batch's failure or
// one left over from an earlier timer flush.
func (b *BufferedWriter) Write(msg core.ChatMessage, trace *ingesttrace.LineTrace) error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return ErrClosed
	}
	carried := b.takeErrLocked()
	b.pending = append(b.pending, pendingWrite{msg: msg, trace: trace})
	full := len(b.pending) >= b.batchSize
	if !full && len(b.pending) == 1 {
		b.armLocked()
	}
	b.mu.Unlock()

	if full {
		if err := b.flushPending(); err != nil {
			return err
		}
	}
	return carried
}

// Flush writes whatever is pending now.
func (b *BufferedWriter) Flush() error {
	err := b.flushPending()
	b.mu.Lock()
	carried := b.takeErrLocked()
	b.mu.Unlock()
	if err != nil {
		return err
	}
	return carried
}

// Close flushes and rejects further writes.
func (b *BufferedWriter) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	b.mu.Unlock()
	return b.Flush()
}

func (b *BufferedWriter) onTimer() {
	b.mu.Lock()
	b.timer = nil
	b.mu.Unlock()
	if err := b.flushPending(); err != nil {
		b.mu.Lock()
		b.lastErr = err
		b.mu.Unlock()
	}
}

// flushPending takes the queue and writes it while holding flushMu, so
// batches never overtake each other. Every entry is attempted; the first
// error is returned.
func (b *BufferedWriter) flushPending() error {
	b.flushMu.Lock()
	defer b.flushMu.Unlock()

	b.mu.Lock()
	if b.timer != nil {
		b.timer.Stop()
		b.timer = nil
	}
	batch := b.pending
	b.pending = nil
	b.mu.Unlock()

	var first error
	for _, p := range batch {
		if err := b.base.Write(p.msg, p.trace); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (b *BufferedWriter) takeErrLocked() error {
	err := b.lastErr
	b.lastErr = nil
	return err
}

func (b *BufferedWriter) armLocked() {
	if b.flushInterval <= 0 || b.timer != nil {
		return
	}
	b.timer = time.AfterFunc(b.flushInterval, b.onTimer)
}
