package welcome

import (
	"context"
	"strings"
	"testing"

	"github.com/you/sc-chat-translator/internal/remotesync"
)

func upper(_ context.Context, s string) string { return strings.ToUpper(s) }

func texts(lines []Line) []string {
	out := make([]string, len(lines))
	for i, l := range lines {
		out[i] = l.Text
	}
	return out
}

func TestRenderHiddenKeepsBanner(t *testing.T) {
	w := remotesync.Welcome{Message: "capped message", Extended: true, Changes: []string{"x"}}
	got := Render(context.Background(), w, "1.1.3", upper)
	if len(got) != 1 {
		t.Fatalf("expected only the banner, got %+v", got)
	}
	if got[0].Text != "> WELCOME TO STARCONFLICT CHAT TRANSLATOR VER. 1.1.3" || got[0].Color != "DodgerBlue" {
		t.Fatalf("banner = %+v", got[0])
	}
}

func TestRenderDefaultText(t *testing.T) {
	lines := Render(context.Background(), remotesync.Welcome{Show: true}, "1.1.3", nil)
	if len(lines) != 2 {
		t.Fatalf("lines = %d", len(lines))
	}
	if lines[0].Text != "> Welcome to StarConflict Chat Translator ver. 1.1.3" {
		t.Fatalf("banner = %q", lines[0].Text)
	}
	if lines[1].Text != "> "+DefaultText || lines[1].Color != "DodgerBlue" {
		t.Fatalf("body = %+v", lines[1])
	}
}

func TestRenderRemoteMessageTranslated(t *testing.T) {
	w := remotesync.Welcome{Show: true, Message: "hello pilots", Color: "gold", Changes: []string{"ignored"}}
	got := Render(context.Background(), w, "2.0", upper)
	if len(got) != 2 || got[1].Text != "> HELLO PILOTS" || got[1].Color != "gold" {
		t.Fatalf("got %+v", got)
	}
	if got[0].Color != "DodgerBlue" {
		t.Fatalf("banner colour = %q", got[0].Color)
	}
}

func TestRenderExtended(t *testing.T) {
	w := remotesync.Welcome{
		Show:        true,
		Extended:    true,
		Message:     "new build",
		Changes:     []string{"faster", "  ", "fixes"},
		DownloadURL: "https://example.com/dl",
		Notes:       "restart",
	}
	got := texts(Render(context.Background(), w, "1.2.0", upper))
	want := []string{
		"> WELCOME TO STARCONFLICT CHAT TRANSLATOR VER. 1.2.0",
		"> NEW BUILD",
		"> What's new:",
		"> FASTER",
		"> FIXES",
		"> DOWNLOAD: https://example.com/dl",
		"> NOTES: RESTART",
	}
	if strings.Join(got, "\n") != strings.Join(want, "\n") {
		t.Fatalf("got\n%s\nwant\n%s", strings.Join(got, "\n"), strings.Join(want, "\n"))
	}
}
