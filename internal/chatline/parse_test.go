package chatline

import (
	"strings"
	"testing"
	"time"

	"github.com/you/sc-chat-translator/internal/core"
)

func TestParseTradingLine(t *testing.T) {
	now := time.Date(2025, 3, 14, 9, 26, 53, 589000000, time.Local)
	got, ok := Parse("[Player1] #trading>Hello world", core.CategoryTrading, now)
	if !ok {
		t.Fatalf("expected line to parse")
	}
	if got.Username != "Player1" {
		t.Fatalf("username mismatch: %q", got.Username)
	}
	if got.Message != "Hello world" {
		t.Fatalf("message mismatch: %q", got.Message)
	}
	if !strings.Contains(got.Header, string(core.CategoryTrading)) {
		t.Fatalf("header %q does not mention category", got.Header)
	}
	if got.Header != "[2025-03-14 09:26:53] [Trading] [Player1]:" {
		t.Fatalf("unexpected header %q", got.Header)
	}
	if got.Timestamp.Nanosecond() != 0 {
		t.Fatalf("expected second precision, got %s", got.Timestamp)
	}
}

func TestParseGameLine(t *testing.T) {
	line := "19:03:11.981  CHAT| <  #general_ENGLISH>[ Ace ]  anyone for   [Link 2 D: Ship_race3_m_t5_craftuniq]?  "
	got, ok := Parse(line, core.CategoryEnglish, time.Now())
	if !ok {
		t.Fatalf("expected line to parse")
	}
	if got.Username != "Ace" {
		t.Fatalf("username should be trimmed, got %q", got.Username)
	}
	if got.Message != "anyone for   [Link 2 D: Ship_race3_m_t5_craftuniq]?" {
		t.Fatalf("unexpected message %q", got.Message)
	}
}

func TestParseWithoutBrackets(t *testing.T) {
	got, ok := Parse("  PRIVATE To somebody hello  ", core.CategoryPrivTo, time.Now())
	if !ok {
		t.Fatalf("expected line to parse")
	}
	if got.Username != core.UnknownUser {
		t.Fatalf("expected sentinel username, got %q", got.Username)
	}
	if got.Message != "PRIVATE To somebody hello" {
		t.Fatalf("expected whole trimmed line, got %q", got.Message)
	}
}

func TestParseSkipsNoise(t *testing.T) {
	for _, line := range []string{
		"CHAT| Join channel",
		"CHAT| Leave channel",
		"CHAT| System",
		"chat| channel DESTROYED #squad_1",
	} {
		if _, ok := Parse(line, core.CategorySquad, time.Now()); ok {
			t.Fatalf("expected %q to be skipped", line)
		}
	}
}

func TestSecondBracket(t *testing.T) {
	tests := []struct {
		line string
		want string
	}{
		{"[Player] [Link 2 D: Ship_race3_m_t5_craftuniq] is cool", "Link 2 D: Ship_race3_m_t5_craftuniq"},
		{"[Player] Hello world", None},
		{"no brackets", None},
		{"[a] [unterminated", "unterminated"},
	}
	for _, tt := range tests {
		if got := SecondBracket(tt.line); got != tt.want {
			t.Fatalf("SecondBracket(%q) = %q, want %q", tt.line, got, tt.want)
		}
	}
}
