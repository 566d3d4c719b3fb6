package remotesync

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// DefaultWelcomeColor is used when the descriptor does not name a colour.
const DefaultWelcomeColor = "DodgerBlue"

// WhatsNew is the changelog block of a descriptor.
type WhatsNew struct {
	Changes []string `json:"changes" toml:"changes"`
}

// State is the locally cached copy of the last synchronised descriptor plus
// the welcome banner bookkeeping.
type State struct {
	WelcomeID            string    `toml:"welcome_id"`
	WelcomeMessage       string    `toml:"welcome_message"`
	WelcomeColor         string    `toml:"welcome_color"`
	WhatsNew             *WhatsNew `toml:"whats_new"`
	DownloadURL          string    `toml:"download_url"`
	Notes                string    `toml:"notes"`
	LastNotifiedVersion  string    `toml:"last_notified_version"`
	LastFetchUnix        int64     `toml:"last_fetch"`
	FetchIntervalSeconds int       `toml:"fetch_interval_seconds"`
	WelcomeShownCount    int       `toml:"welcome_shown_count"`
	ShowExtendedWelcome  bool      `toml:"show_extended_welcome"`
}

// DefaultState is the state of a fresh install running appVersion.
func DefaultState(appVersion string) State {
	return State{
		WelcomeID:            "0000",
		WelcomeColor:         DefaultWelcomeColor,
		LastNotifiedVersion:  appVersion,
		FetchIntervalSeconds: 3600,
	}
}

// LastFetch returns the time of the last fetch attempt, zero if none.
func (s State) LastFetch() time.Time {
	if s.LastFetchUnix <= 0 {
		return time.Time{}
	}
	return time.Unix(s.LastFetchUnix, 0)
}

// Due reports whether the fetch interval has elapsed at now. A non-positive
// interval disables the gate.
func (s State) Due(now time.Time) bool {
	if s.FetchIntervalSeconds <= 0 || s.LastFetchUnix <= 0 {
		return true
	}
	return now.Sub(s.LastFetch()) >= time.Duration(s.FetchIntervalSeconds)*time.Second
}

// Changes returns the changelog entries, if any.
func (s State) Changes() []string {
	if s.WhatsNew == nil {
		return nil
	}
	return s.WhatsNew.Changes
}

// Descriptor is the remote welcome/version payload after normalisation.
type Descriptor struct {
	ID             string
	Color          string
	WelcomeMessage string
	Version        string
	WhatsNew       *WhatsNew
	DownloadURL    string
	Notes          string
}

type rawDescriptor struct {
	ID             any             `json:"id"`
	Color          any             `json:"color"`
	WelcomeMessage string          `json:"welcome_message"`
	Version        string          `json:"version"`
	WhatsNew       json.RawMessage `json:"whats_new"`
	DownloadURL    string          `json:"download_url"`
	Notes          string          `json:"notes"`
}

// ErrEmptyDescriptor is returned for an empty list or object-less payload.
var ErrEmptyDescriptor = errors.New("remote descriptor is empty")

// DecodeDescriptor accepts an object or a list whose first element is the object.
func DecodeDescriptor(body []byte) (Descriptor, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return Descriptor{}, ErrEmptyDescriptor
	}
	if body[0] == '[' {
		var list []json.RawMessage
		if err := json.Unmarshal(body, &list); err != nil {
			return Descriptor{}, errors.Wrap(err, "decode descriptor list")
		}
		if len(list) == 0 {
			return Descriptor{}, ErrEmptyDescriptor
		}
		body = bytes.TrimSpace(list[0])
	}
	if len(body) == 0 || body[0] != '{' {
		return Descriptor{}, errors.New("remote descriptor is not an object")
	}

	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var raw rawDescriptor
	if err := dec.Decode(&raw); err != nil {
		return Descriptor{}, errors.Wrap(err, "decode descriptor")
	}

	d := Descriptor{
		ID:             scalarString(raw.ID),
		Color:          scalarString(raw.Color),
		WelcomeMessage: strings.TrimSpace(raw.WelcomeMessage),
		Version:        strings.TrimSpace(raw.Version),
		DownloadURL:    strings.TrimSpace(raw.DownloadURL),
		Notes:          strings.TrimSpace(raw.Notes),
	}
	if d.Color == "" {
		d.Color = DefaultWelcomeColor
	}
	if len(raw.WhatsNew) > 0 && !bytes.Equal(bytes.TrimSpace(raw.WhatsNew), []byte("null")) {
		var wn WhatsNew
		if err := json.Unmarshal(raw.WhatsNew, &wn); err == nil {
			d.WhatsNew = &wn
		}
	}
	return d, nil
}

func scalarString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case json.Number:
		return t.String()
	default:
		return strings.TrimSpace(fmt.Sprint(t))
	}
}

// Change describes what a descriptor changed in the cached state.
type Change struct {
	Welcome bool
	Version bool
}

// Any reports whether anything changed.
func (c Change) Any() bool { return c.Welcome || c.Version }

// Reconcile folds d into st. The welcome fields are replaced when the id
// differs in either direction or any content field differs, provided the
// descriptor carries a welcome message. A version newer than appVersion that
// has not been announced raises the extended welcome flag. Either change
// resets the welcome counter.
func Reconcile(st State, d Descriptor, appVersion string) (State, Change) {
	var ch Change
	next := st

	if d.ID != "" && d.WelcomeMessage != "" {
		contentChanged := d.WelcomeMessage != st.WelcomeMessage ||
			!equalWhatsNew(d.WhatsNew, st.WhatsNew) ||
			d.DownloadURL != st.DownloadURL ||
			d.Notes != st.Notes
		if idsDiffer(d.ID, st.WelcomeID) || contentChanged {
			ch.Welcome = true
			next.WelcomeID = d.ID
			next.WelcomeColor = d.Color
			next.WelcomeMessage = d.WelcomeMessage
			next.WhatsNew = cloneWhatsNew(d.WhatsNew)
			next.DownloadURL = d.DownloadURL
			next.Notes = d.Notes
		}
	}

	if d.Version != "" && CompareVersions(d.Version, appVersion) == 1 && d.Version != st.LastNotifiedVersion {
		ch.Version = true
		next.ShowExtendedWelcome = true
		next.LastNotifiedVersion = d.Version
	}

	if ch.Any() {
		next.WelcomeShownCount = 0
	}
	return next, ch
}

// idsDiffer compares numerically when both ids are integers, as strings otherwise.
func idsDiffer(a, b string) bool {
	na, errA := strconv.Atoi(a)
	nb, errB := strconv.Atoi(b)
	if errA == nil && errB == nil {
		return na != nb
	}
	return a != b
}

func equalWhatsNew(a, b *WhatsNew) bool {
	if a == nil || b == nil {
		return a == b
	}
	return slices.Equal(a.Changes, b.Changes)
}

func cloneWhatsNew(w *WhatsNew) *WhatsNew {
	if w == nil {
		return nil
	}
	return &WhatsNew{Changes: slices.Clone(w.Changes)}
}
