// Package pipeline turns raw log lines into stored, translated chat messages.
package pipeline

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/you/sc-chat-translator/internal/chatline"
	"github.com/you/sc-chat-translator/internal/core"
	"github.com/you/sc-chat-translator/internal/ingesttrace"
	"github.com/you/sc-chat-translator/internal/logtail"
	"github.com/you/sc-chat-translator/internal/sink"
	"github.com/you/sc-chat-translator/internal/translate"
)

// Substituter rewrites message text before translation.
type Substituter interface {
	Substitute(text string) string
}

// Translator is the gateway contract the processor relies on.
type Translator interface {
	Translate(ctx context.Context, text, lang string, mode translate.Mode) (string, error)
}

// Presenter shows a processed message. It is called after the write attempt.
type Presenter interface {
	Present(msg core.ChatMessage)
}

type Options struct {
	Dictionary  Substituter
	Translator  Translator
	Writer      sink.Writer
	Presenters  []Presenter
	TargetLang  func() string
	FailureMode translate.Mode

	Metrics      *Metrics
	Logger       *slog.Logger
	VerboseDrops bool
	Trace        bool
	Now          func() time.Time
}

// Processor handles lines one at a time in arrival order.
type Processor struct {
	opts Options
	log  *slog.Logger

	mu    sync.Mutex
	drops *dropLogger
}

func New(opts Options) *Processor {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.TargetLang == nil {
		opts.TargetLang = func() string { return "en" }
	}
	log := opts.Logger.With("component", "pipeline")
	return &Processor{
		opts:  opts,
		log:   log,
		drops: newDropLogger(log, opts.Now(), opts.VerboseDrops, 0),
	}
}

// Handle classifies, parses, substitutes, translates, stores and presents
// one line. ok is false when the line is not a chat message. Store and
// translation failures are logged and never stop the message.
func (p *Processor) Handle(ctx context.Context, line logtail.Line) (core.ChatMessage, bool) {
	now := p.opts.Now()
	p.opts.Metrics.incSeen()
	trace := ingesttrace.NewLineTrace(line.SessionID, line.Text)

	category, verdict := chatline.Classify(line.Text)
	if verdict != chatline.Accepted {
		p.drop(now, verdict.String(), line.Text, trace)
		return core.ChatMessage{}, false
	}
	trace.Category = string(category)
	trace.IncCounter(ingesttrace.StageClassified)

	parsed, ok := chatline.Parse(line.Text, category, now)
	if !ok {
		p.drop(now, chatline.Noise.String(), line.Text, trace)
		return core.ChatMessage{}, false
	}
	trace.User = parsed.Username

	text := parsed.Message
	if p.opts.Dictionary != nil {
		text = p.opts.Dictionary.Substitute(text)
	}
	trace.IncCounter(ingesttrace.StageSubstituted)

	// A line that reached translation is finished even if shutdown starts.
	lang := p.opts.TargetLang()
	translated, err := p.opts.Translator.Translate(context.WithoutCancel(ctx), text, lang, p.opts.FailureMode)
	if err != nil {
		trace.IncCounter(ingesttrace.StageTranslationFailed)
		p.opts.Metrics.incTranslationFailure()
	} else {
		trace.IncCounter(ingesttrace.StageTranslated)
	}

	msg := core.ChatMessage{
		Timestamp:  parsed.Timestamp,
		Category:   category,
		Username:   parsed.Username,
		Message:    text,
		Translated: translated,
		Lang:       lang,
		SessionID:  line.SessionID,
	}

	if p.opts.Writer != nil {
		if err := p.opts.Writer.Write(msg, trace); err != nil {
			p.opts.Metrics.incStoreError()
			p.log.Error("history write failed", "session", line.SessionID, "err", err)
		}
	}
	p.opts.Metrics.incProcessed(string(category))
	if p.opts.Trace {
		trace.LogTrace(p.log, "pipeline: line trace")
	}
	for _, pr := range p.opts.Presenters {
		pr.Present(msg)
	}
	return msg, true
}

// Flush emits any pending drop summaries.
func (p *Processor) Flush() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.drops.flush(p.opts.Now())
}

func (p *Processor) drop(now time.Time, reason, raw string, trace *ingesttrace.LineTrace) {
	trace.IncCounter(ingesttrace.StageDropped(reason))
	p.opts.Metrics.incDropped(reason)
	p.mu.Lock()
	p.drops.note(now, reason, raw)
	p.mu.Unlock()
	if p.opts.Trace {
		trace.LogTrace(p.log, "pipeline: line trace")
	}
}
