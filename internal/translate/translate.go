// Package translate wraps a translation backend with caching, rate limiting
// and error containment.
package translate

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/time/rate"
)

// Backend performs one translation call.
type Backend interface {
	Name() string
	Translate(ctx context.Context, text, target string) (string, error)
}

// Mode selects what the caller sees when the backend fails.
type Mode int

const (
	// ModeBackground falls back to the original text.
	ModeBackground Mode = iota
	// ModeInteractive falls back to a visible error placeholder.
	ModeInteractive
)

func (m Mode) String() string {
	if m == ModeInteractive {
		return "interactive"
	}
	return "background"
}

// ParseFailureMode maps "placeholder" and "original" to a Mode.
func ParseFailureMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "placeholder":
		return ModeInteractive, nil
	case "original":
		return ModeBackground, nil
	}
	return ModeInteractive, errors.Errorf("unknown failure mode %q", s)
}

// Placeholder is the text shown in place of a failed translation.
func Placeholder(err error) string {
	return fmt.Sprintf("[Translation error: %v]", err)
}

type Options struct {
	Cache   Cache
	RPS     float64
	Burst   int
	Metrics *Metrics
	Logger  *slog.Logger
}

// Gateway makes at most one backend attempt per call and never fails: the
// returned text is always displayable. The error is returned alongside for
// accounting only.
type Gateway struct {
	backend Backend
	cache   Cache
	limiter *rate.Limiter
	metrics *Metrics
	log     *slog.Logger
}

func NewGateway(b Backend, opts Options) *Gateway {
	g := &Gateway{
		backend: b,
		cache:   opts.Cache,
		metrics: opts.Metrics,
		log:     opts.Logger,
	}
	if g.log == nil {
		g.log = slog.Default()
	}
	if opts.RPS > 0 {
		burst := opts.Burst
		if burst <= 0 {
			burst = 1
		}
		g.limiter = rate.NewLimiter(rate.Limit(opts.RPS), burst)
	}
	return g
}

// Backend returns the wrapped backend name.
func (g *Gateway) Backend() string { return g.backend.Name() }

// Translate returns the translation of text into lang. Blank input is
// returned unchanged without calling the backend.
func (g *Gateway) Translate(ctx context.Context, text, lang string, mode Mode) (string, error) {
	if strings.TrimSpace(text) == "" {
		return text, nil
	}
	key := cacheKey(lang, text)
	if g.cache != nil {
		if v, ok := g.cache.Get(ctx, key); ok {
			g.metrics.observe(g.backend.Name(), "cache_hit", 0)
			return v, nil
		}
	}

	start := time.Now()
	out, err := g.call(ctx, text, lang)
	if err != nil {
		g.metrics.observe(g.backend.Name(), "error", time.Since(start))
		g.log.Warn("translation failed", "backend", g.backend.Name(), "lang", lang, "mode", mode.String(), "err", err)
		if mode == ModeInteractive {
			return Placeholder(err), err
		}
		return text, err
	}
	g.metrics.observe(g.backend.Name(), "ok", time.Since(start))
	if g.cache != nil {
		g.cache.Set(ctx, key, out)
	}
	return out, nil
}

func (g *Gateway) call(ctx context.Context, text, lang string) (out string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Errorf("backend panic: %v", r)
		}
	}()
	if g.limiter != nil {
		if err := g.limiter.Wait(ctx); err != nil {
			return "", errors.Wrap(err, "rate limit")
		}
	}
	out, err = g.backend.Translate(ctx, text, lang)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(out) == "" {
		return "", errors.New("empty translation")
	}
	return out, nil
}
