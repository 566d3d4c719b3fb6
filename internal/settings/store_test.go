package settings

import (
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/you/sc-chat-translator/internal/remotesync"
)

func TestOpen_MissingFileWritesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app", FileName)

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("settings file not created: %v", err)
	}
	got := s.Get()
	if got.LastLanguage != "English" || got.TargetLang() != "en" {
		t.Fatalf("defaults = %q/%q", got.LastLanguage, got.TargetLang())
	}
	if got.Remote.WelcomeID != "0000" || got.Remote.FetchIntervalSeconds != 3600 {
		t.Fatalf("remote defaults = %+v", got.Remote)
	}
}

func TestOpen_PartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	body := "last_language = \"Russian\"\n\n[remote]\nwelcome_shown_count = 4\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	got := s.Get()
	if got.TargetLang() != "ru" {
		t.Fatalf("TargetLang = %q, want ru", got.TargetLang())
	}
	if got.ManualTranslateLang != "ru" || len(got.Languages) != 12 {
		t.Fatalf("missing keys not defaulted: %+v", got)
	}
	if got.Remote.WelcomeShownCount != 4 || got.Remote.FetchIntervalSeconds != 3600 {
		t.Fatalf("remote = %+v", got.Remote)
	}
}

func TestOpen_ZeroIntervalIsKept(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	if err := os.WriteFile(path, []byte("[remote]\nfetch_interval_seconds = 0\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if n := s.RemoteState().FetchIntervalSeconds; n != 0 {
		t.Fatalf("FetchIntervalSeconds = %d, want 0", n)
	}
}

func TestOpen_MalformedFileFallsBack(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	if err := os.WriteFile(path, []byte("this is = = not toml"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if s.Get().LastLanguage != "English" {
		t.Fatalf("expected defaults")
	}
	data, _ := os.ReadFile(path)
	if string(data) != "this is = = not toml" {
		t.Fatalf("malformed file was overwritten")
	}
}

func TestRemoteStateRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	st := s.RemoteState()
	st.WelcomeID = "17"
	st.WelcomeMessage = "hello"
	st.WhatsNew = &remotesync.WhatsNew{Changes: []string{"one", "two"}}
	st.LastFetchUnix = 1_700_000_000
	st.ShowExtendedWelcome = true
	if err := s.SaveRemoteState(st); err != nil {
		t.Fatalf("SaveRemoteState: %v", err)
	}

	again, err := Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	got := again.RemoteState()
	if got.WelcomeID != "17" || got.WelcomeMessage != "hello" || !got.ShowExtendedWelcome {
		t.Fatalf("remote = %+v", got)
	}
	if got.WhatsNew == nil || !slices.Equal(got.WhatsNew.Changes, []string{"one", "two"}) {
		t.Fatalf("whats_new = %+v", got.WhatsNew)
	}
	if got.LastFetchUnix != 1_700_000_000 {
		t.Fatalf("last_fetch = %d", got.LastFetchUnix)
	}
}

func TestGetReturnsCopy(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), FileName))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	got := s.Get()
	got.Languages["Klingon"] = "tlh"
	if _, ok := s.Get().Languages["Klingon"]; ok {
		t.Fatalf("Get leaked internal map")
	}
}

func TestLanguageFallbacks(t *testing.T) {
	st := Defaults()
	st.LastLanguage = "Elvish"
	if got := st.TargetLang(); got != "en" {
		t.Fatalf("TargetLang = %q, want en", got)
	}
	st.ManualTranslateLang = "not a tag!"
	if got := st.ManualLang(); got != "en" {
		t.Fatalf("ManualLang = %q, want en", got)
	}
	if got := st.ShortCode("zh-cn"); got != "ZH" {
		t.Fatalf("ShortCode(zh-cn) = %q", got)
	}
	if got := st.ShortCode("xx"); got != "EN" {
		t.Fatalf("ShortCode(xx) = %q", got)
	}
}

func TestOpen_ImportsLegacyJSON(t *testing.T) {
	dir := t.TempDir()
	legacy := `{
    "last_language": "German",
    "welcome_counter": 3,
    "remote_welcome_id": 12,
    "last_remote_fetch": 1700000000.5,
    "welcome_message_override": "  old text  "
}`
	if err := os.WriteFile(filepath.Join(dir, legacyFileName), []byte(legacy), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	s, err := Open(filepath.Join(dir, FileName))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	got := s.Get()
	if got.LastLanguage != "German" || got.TargetLang() != "de" {
		t.Fatalf("language = %q", got.LastLanguage)
	}
	r := got.Remote
	if r.WelcomeShownCount != 3 || r.WelcomeID != "12" || r.LastFetchUnix != 1700000000 {
		t.Fatalf("remote = %+v", r)
	}
	if r.WelcomeMessage != "old text" {
		t.Fatalf("override not migrated: %q", r.WelcomeMessage)
	}
}
