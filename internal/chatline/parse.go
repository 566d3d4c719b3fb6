package chatline

import (
	"regexp"
	"strings"
	"time"

	"github.com/you/sc-chat-translator/internal/core"
)

// None is returned by SecondBracket when a line has fewer than two bracket pairs.
const None = "none"

var (
	firstBracketRe = regexp.MustCompile(`\[(.*?)\]`)
	// a channel tag left in front of the body, e.g. "#trading>"
	channelTagRe = regexp.MustCompile(`^#+[\p{L}\p{N}_]+>\s*`)
)

// Parsed holds the fields extracted from one classified line.
type Parsed struct {
	Timestamp time.Time
	Username  string
	Message   string
	Header    string // "[ts] [category] [username]:"
}

// Parse extracts the username and body of a classified line. The timestamp is
// the capture time now. ok is false for noise lines.
func Parse(line string, category core.Category, now time.Time) (Parsed, bool) {
	if IsNoise(line) {
		return Parsed{}, false
	}

	username := core.UnknownUser
	if m := firstBracketRe.FindStringSubmatch(line); m != nil {
		username = strings.TrimSpace(m[1])
	}

	message := strings.TrimSpace(line)
	if _, after, found := strings.Cut(line, "]"); found {
		message = strings.TrimSpace(after)
	}
	message = channelTagRe.ReplaceAllString(message, "")

	ts := now.Truncate(time.Second)
	return Parsed{
		Timestamp: ts,
		Username:  username,
		Message:   message,
		Header:    core.FormatHeader(ts, category, username),
	}, true
}

// SecondBracket returns the contents of the second "[...]" in line, which is
// where item and ship link tokens live, or None.
func SecondBracket(line string) string {
	parts := strings.Split(line, "[")
	if len(parts) <= 2 {
		return None
	}
	inner, _, _ := strings.Cut(parts[2], "]")
	return inner
}
