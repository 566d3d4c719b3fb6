package translate

import (
	"context"
	"log/slog"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/google/uuid"
)

// Clipboard receives successful manual translations.
type Clipboard interface {
	WriteAll(text string) error
}

// SystemClipboard writes to the OS clipboard.
type SystemClipboard struct{}

func (SystemClipboard) WriteAll(text string) error { return clipboard.WriteAll(text) }

// NopClipboard discards everything; used when no clipboard is available.
type NopClipboard struct{}

func (NopClipboard) WriteAll(string) error { return nil }

// ManualResult is one manual translation. It is displayed but never stored.
type ManualResult struct {
	ID         string `json:"id"`
	Original   string `json:"original"`
	Translated string `json:"translated"`
	Lang       string `json:"lang"`
	OK         bool   `json:"ok"`
	Copied     bool   `json:"copied"`
}

// Lines renders the result the way the chat view shows it.
func (r ManualResult) Lines() []string {
	return []string{
		"[Manual Translation → " + strings.ToUpper(r.Lang) + "]",
		">   '" + r.Original + "'",
		"→ " + r.Translated,
	}
}

// Manual handles user-initiated translations.
type Manual struct {
	gw   *Gateway
	clip Clipboard
}

func NewManual(gw *Gateway, clip Clipboard) *Manual {
	if clip == nil {
		clip = NopClipboard{}
	}
	return &Manual{gw: gw, clip: clip}
}

// Translate trims text and translates it into lang. ok is false for blank
// input. Only a successful translation is copied to the clipboard.
func (m *Manual) Translate(ctx context.Context, text, lang string) (ManualResult, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return ManualResult{}, false
	}
	out, err := m.gw.Translate(ctx, text, lang, ModeInteractive)
	res := ManualResult{
		ID:         uuid.NewString(),
		Original:   text,
		Translated: out,
		Lang:       lang,
		OK:         err == nil,
	}
	if res.OK {
		if cerr := m.clip.WriteAll(out); cerr != nil {
			slog.Warn("clipboard copy failed", "err", cerr)
		} else {
			res.Copied = true
		}
	}
	return res, true
}
