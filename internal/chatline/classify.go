package chatline

import (
	"strings"

	"github.com/you/sc-chat-translator/internal/core"
)

// Marker ties a substring found in a log line to the channel it denotes.
type Marker struct {
	Pattern  string
	Category core.Category
}

// Categories is checked in order; the first matching marker wins.
var Categories = []Marker{
	{"#trading>[", core.CategoryTrading},
	{"#general_ENGLISH>[", core.CategoryEnglish},
	{"#general_RUSSIAN>[", core.CategoryRussian},
	{"#general_CHINESE>[", core.CategoryChinese},
	{"#general_GERMAN>[", core.CategoryGerman},
	{"#general_ITALIAN>[", core.CategoryItalian},
	{"#general_FRENCH>[", core.CategoryFrench},
	{"#general_SPANISH>[", core.CategorySpanish},
	{"#general_JAPANESE>[", core.CategoryJapanese},
	{"#general_PORTUGUESE>[", core.CategoryPortuguese},
	{"#general_TURKISH>[", core.CategoryTurkish},
	{"##general_POLISH>[", core.CategoryPolish},
	{"##general_HUNGARIAN>[", core.CategoryHungarian},
	{"#general_CZECH>[", core.CategoryCzech},
	{"#general_UKRAINIAN>[", core.CategoryUkrainian},
	{"#battle_", core.CategoryBattle},
	{"#squad_", core.CategorySquad},
	{"#clan_", core.CategoryClan},
	{"PRIVATE From", core.CategoryPrivFrom},
	{"PRIVATE To", core.CategoryPrivTo},
}

// NoisePatterns mark channel bookkeeping and system notices.
var NoisePatterns = []string{
	"CHAT| Join channel",
	"CHAT| Leave channel",
	"CHAT| Channel created",
	"CHAT| Channel destroyed",
	"CHAT| System",
}

var (
	lowerMarkers = lowerPatterns(Categories)
	lowerNoise   = lowerStrings(NoisePatterns)
)

// Verdict is the classification outcome for one line.
type Verdict int

const (
	Accepted Verdict = iota
	Unrecognized
	Noise
)

func (v Verdict) String() string {
	switch v {
	case Accepted:
		return "accepted"
	case Unrecognized:
		return "unrecognized"
	case Noise:
		return "noise"
	}
	return "unknown"
}

// Classify returns the category of line, or a verdict explaining why it is not
// part of the chat stream. Noise wins over any category marker.
func Classify(line string) (core.Category, Verdict) {
	lower := strings.ToLower(line)
	if containsAny(lower, lowerNoise) {
		return "", Noise
	}
	for i, marker := range lowerMarkers {
		if strings.Contains(lower, marker) {
			return Categories[i].Category, Accepted
		}
	}
	return "", Unrecognized
}

// IsNoise reports whether line matches one of NoisePatterns, ignoring case.
func IsNoise(line string) bool {
	return containsAny(strings.ToLower(line), lowerNoise)
}

func containsAny(lower string, patterns []string) bool {
	for _, p := range patterns {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}

func lowerPatterns(markers []Marker) []string {
	out := make([]string, len(markers))
	for i, m := range markers {
		out[i] = strings.ToLower(m.Pattern)
	}
	return out
}

func lowerStrings(in []string) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = strings.ToLower(s)
	}
	return out
}
