package core

import (
	"fmt"
	"strings"
	"time"
)

// TimestampLayout is how capture times are rendered and stored (second precision, local time).
const TimestampLayout = "2006-01-02 15:04:05"

// UnknownUser is used when a chat line carries no bracketed name.
const UnknownUser = "NotThePlayer"

// Category is the channel a chat line was posted to.
type Category string

const (
	CategoryTrading    Category = "Trading"
	CategoryEnglish    Category = "English"
	CategoryRussian    Category = "Russian"
	CategoryChinese    Category = "Chinese"
	CategoryGerman     Category = "German"
	CategoryItalian    Category = "Italian"
	CategoryFrench     Category = "French"
	CategorySpanish    Category = "Spanish"
	CategoryJapanese   Category = "Japanese"
	CategoryPortuguese Category = "Portuguese"
	CategoryTurkish    Category = "Turkish"
	CategoryPolish     Category = "Polish"
	CategoryHungarian  Category = "Hungarian"
	CategoryCzech      Category = "Czech"
	CategoryUkrainian  Category = "Ukrainian"
	CategoryBattle     Category = "Battle"
	CategorySquad      Category = "Squad"
	CategoryClan       Category = "Clan"
	CategoryPrivFrom   Category = "Priv_from"
	CategoryPrivTo     Category = "Priv_to"
)

// AllCategories lists every category in display order.
var AllCategories = []Category{
	CategoryTrading,
	CategoryEnglish, CategoryRussian, CategoryChinese, CategoryGerman, CategoryItalian,
	CategoryFrench, CategorySpanish, CategoryJapanese, CategoryPortuguese, CategoryTurkish,
	CategoryPolish, CategoryHungarian, CategoryCzech, CategoryUkrainian,
	CategoryBattle, CategorySquad, CategoryClan,
	CategoryPrivFrom, CategoryPrivTo,
}

// ParseCategory resolves a category name without regard to case.
func ParseCategory(s string) (Category, bool) {
	s = strings.TrimSpace(s)
	for _, c := range AllCategories {
		if strings.EqualFold(string(c), s) {
			return c, true
		}
	}
	return "", false
}

// IsGeneral reports whether c is one of the per-language general channels.
func (c Category) IsGeneral() bool {
	switch c {
	case CategoryEnglish, CategoryRussian, CategoryChinese, CategoryGerman, CategoryItalian,
		CategoryFrench, CategorySpanish, CategoryJapanese, CategoryPortuguese, CategoryTurkish,
		CategoryPolish, CategoryHungarian, CategoryCzech, CategoryUkrainian:
		return true
	}
	return false
}

// IsPrivate reports whether c is a private (whisper) channel.
func (c Category) IsPrivate() bool {
	return c == CategoryPrivFrom || c == CategoryPrivTo
}

// ChatMessage is the unit written to the history store and handed to presenters.
// Rows are append-only: once persisted a message is never updated.
type ChatMessage struct {
	ID         int64     `json:"id,omitempty"` // store row id, zero until persisted
	Timestamp  time.Time `json:"timestamp"`    // capture time, not the in-game time
	Category   Category  `json:"category"`
	Username   string    `json:"username"`
	Message    string    `json:"message"`    // after dictionary substitution
	Translated string    `json:"translated"` // translation or error placeholder
	Lang       string    `json:"lang"`
	SessionID  string    `json:"session_id"`
}

// Stamp returns the timestamp in TimestampLayout.
func (m ChatMessage) Stamp() string {
	return m.Timestamp.Format(TimestampLayout)
}

// Header is the "[ts] [category] [username]:" line shown above a message.
func (m ChatMessage) Header() string {
	return FormatHeader(m.Timestamp, m.Category, m.Username)
}

// FormatHeader renders a message header.
func FormatHeader(ts time.Time, c Category, username string) string {
	return fmt.Sprintf("[%s] [%s] [%s]:", ts.Format(TimestampLayout), c, username)
}
