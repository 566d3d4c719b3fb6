// Package welcome renders the startup banner from the remote sync state.
package welcome

import (
	"context"
	"strings"

	"github.com/you/sc-chat-translator/internal/remotesync"
)

// DefaultText is shown when no remote welcome message has been received.
const DefaultText = "This tool helps translate and manage in-game chat messages.\n" +
	"It was created to improve the game experience for players from different countries.\n" +
	"It is still in development and may contain minor bugs. Released under the MiT license. \n" +
	"The application uses the Google Translation engine and does not interfere with the game code.\n" +
	"Check your preferences in the Settings tab.\n\n" +
	"Feel free to share your feedback about this program with me.\n"

// TranslateFunc translates into the current target language and returns the
// input unchanged on failure.
type TranslateFunc func(ctx context.Context, text string) string

// Line is one rendered line and the colour name to show it in.
type Line struct {
	Text  string `json:"text"`
	Color string `json:"color"`
}

// Banner is the fixed first line.
func Banner(appVersion string) string {
	return "> Welcome to StarConflict Chat Translator ver. " + appVersion
}

// Render always starts with the banner. When w.Show is set the welcome
// message follows, or the extended form with changes, download link and
// notes when w.Extended is set.
func Render(ctx context.Context, w remotesync.Welcome, appVersion string, tr TranslateFunc) []Line {
	if tr == nil {
		tr = func(_ context.Context, s string) string { return s }
	}
	lines := []Line{{Text: tr(ctx, Banner(appVersion)), Color: remotesync.DefaultWelcomeColor}}
	if !w.Show {
		return lines
	}
	color := w.Color
	if color == "" {
		color = remotesync.DefaultWelcomeColor
	}
	add := func(text string) { lines = append(lines, Line{Text: text, Color: color}) }

	msg := strings.TrimSpace(w.Message)
	if !w.Extended {
		if msg == "" {
			msg = DefaultText
		}
		add("> " + tr(ctx, msg))
		return lines
	}

	if msg != "" {
		add("> " + tr(ctx, msg))
	}
	var changes []string
	for _, c := range w.Changes {
		if c = strings.TrimSpace(c); c != "" {
			changes = append(changes, c)
		}
	}
	if len(changes) > 0 {
		add("> What's new:")
		for _, c := range changes {
			add("> " + tr(ctx, c))
		}
	}
	if u := strings.TrimSpace(w.DownloadURL); u != "" {
		add("> " + tr(ctx, "Download:") + " " + u)
	}
	if n := strings.TrimSpace(w.Notes); n != "" {
		add("> " + tr(ctx, "Notes:") + " " + tr(ctx, n))
	}
	return lines
}
