package app

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/you/sc-chat-translator/internal/dictionary"
	"github.com/you/sc-chat-translator/internal/remotesync"
	"github.com/you/sc-chat-translator/internal/settings"
)

type stubRemote struct {
	dict    *dictionary.Dictionary
	err     error
	syncs   int
	fetches int
}

func (s *stubRemote) Sync(context.Context) (remotesync.Outcome, error) {
	s.syncs++
	return remotesync.OutcomeUnchanged, nil
}

func (s *stubRemote) FetchDictionary(context.Context) (*dictionary.Dictionary, error) {
	s.fetches++
	if s.err != nil {
		return dictionary.New(nil), s.err
	}
	return s.dict, nil
}

func (s *stubRemote) CheckVersion(context.Context) (remotesync.VersionInfo, error) {
	return remotesync.VersionInfo{}, nil
}

func newTestApp(t *testing.T, remote Remote) (*App, string) {
	t.Helper()
	dir := t.TempDir()
	st, err := settings.Open(filepath.Join(dir, settings.FileName))
	if err != nil {
		t.Fatalf("open settings: %v", err)
	}
	dictPath := filepath.Join(dir, settings.DictionaryFileName)
	local, created, err := dictionary.LoadFile(dictPath)
	if err != nil || !created {
		t.Fatalf("LoadFile: created=%v err=%v", created, err)
	}
	return New(st, dictionary.NewHolder(local), dictPath, remote, nil), dictPath
}

func TestSetDictionaryEntryPersists(t *testing.T) {
	a, dictPath := newTestApp(t, &stubRemote{})

	if _, err := a.SetDictionaryEntry("gg", "good game"); err != nil {
		t.Fatalf("SetDictionaryEntry: %v", err)
	}
	if got := a.Dictionary().Substitute("gg all"); got != "good game all" {
		t.Fatalf("substitution not live: %q", got)
	}

	onDisk, _, err := dictionary.LoadFile(dictPath)
	if err != nil {
		t.Fatalf("reload from disk: %v", err)
	}
	if v, ok := onDisk.Lookup("gg"); !ok || v != "good game" {
		t.Fatalf("entry not persisted, got %q (%v)", v, ok)
	}

	if _, err := a.SetDictionaryEntry("  ", "x"); err == nil {
		t.Fatalf("expected error for blank key")
	}
}

func TestReloadDictionaryKeepsPreviousOnError(t *testing.T) {
	a, dictPath := newTestApp(t, &stubRemote{})

	if err := os.WriteFile(dictPath, []byte(`{"o7": "salute"}`), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if n, err := a.ReloadDictionary(); err != nil || n != 1 {
		t.Fatalf("ReloadDictionary = %d, %v", n, err)
	}

	if err := os.WriteFile(dictPath, []byte(`{not json`), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := a.ReloadDictionary(); err == nil {
		t.Fatalf("expected error for malformed file")
	}
	if got := a.Dictionary().Substitute("o7"); got != "salute" {
		t.Fatalf("previous dictionary should stay active, got %q", got)
	}
}

func TestRefreshRemoteDictionary(t *testing.T) {
	remote := &stubRemote{dict: dictionary.New([]dictionary.Entry{
		{Key: "XPAM", Value: "remote temple"},
		{Key: "wtb", Value: "want to buy"},
	})}
	a, _ := newTestApp(t, remote)

	if n, err := a.RefreshRemoteDictionary(context.Background()); err != nil || n != 0 {
		t.Fatalf("disabled refresh = %d, %v", n, err)
	}
	if got := a.Dictionary().Substitute("wtb"); got != "wtb" {
		t.Fatalf("remote entries applied while disabled: %q", got)
	}

	if err := a.Settings().Update(func(s *settings.Settings) { s.AllowRemoteDictionary = true }); err != nil {
		t.Fatalf("update settings: %v", err)
	}
	if _, err := a.RefreshRemoteDictionary(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if got := a.Dictionary().Substitute("wtb xpam"); got != "want to buy temple" {
		t.Fatalf("local entries must win over remote ones, got %q", got)
	}

	remote.err = errors.New("offline")
	if _, err := a.RefreshRemoteDictionary(context.Background()); err == nil {
		t.Fatalf("expected fetch error")
	}
	if got := a.Dictionary().Substitute("wtb"); got != "want to buy" {
		t.Fatalf("failed fetch should keep previous remote entries, got %q", got)
	}

	if err := a.Settings().Update(func(s *settings.Settings) { s.AllowRemoteDictionary = false }); err != nil {
		t.Fatalf("update settings: %v", err)
	}
	a.Tick(context.Background())
	if got := a.Dictionary().Substitute("wtb"); got != "wtb" {
		t.Fatalf("disabling should drop remote entries, got %q", got)
	}
	if remote.syncs != 1 {
		t.Fatalf("Tick should sync once, got %d", remote.syncs)
	}
}

func TestTickGatesRemoteDictionaryOnFetchInterval(t *testing.T) {
	remote := &stubRemote{dict: dictionary.New([]dictionary.Entry{{Key: "wtb", Value: "want to buy"}})}
	a, _ := newTestApp(t, remote)
	if err := a.Settings().Update(func(s *settings.Settings) { s.AllowRemoteDictionary = true }); err != nil {
		t.Fatalf("update settings: %v", err)
	}
	start := time.Unix(1_700_000_000, 0)
	now := start
	a.now = func() time.Time { return now }

	a.Tick(context.Background())
	if remote.fetches != 1 {
		t.Fatalf("first Tick should fetch, got %d", remote.fetches)
	}
	if got := a.Dictionary().Substitute("wtb"); got != "want to buy" {
		t.Fatalf("remote entries not applied: %q", got)
	}

	now = start.Add(15 * time.Minute)
	a.Tick(context.Background())
	if remote.fetches != 1 {
		t.Fatalf("Tick inside the interval fetched, got %d", remote.fetches)
	}
	if remote.syncs != 2 {
		t.Fatalf("descriptor sync runs every Tick, got %d", remote.syncs)
	}

	now = start.Add(time.Hour)
	a.Tick(context.Background())
	if remote.fetches != 2 {
		t.Fatalf("Tick after the interval should fetch, got %d", remote.fetches)
	}

	st := a.Settings().RemoteState()
	st.FetchIntervalSeconds = 0
	if err := a.Settings().SaveRemoteState(st); err != nil {
		t.Fatalf("save remote state: %v", err)
	}
	a.Tick(context.Background())
	a.Tick(context.Background())
	if remote.fetches != 4 {
		t.Fatalf("zero interval disables the gate, got %d fetches", remote.fetches)
	}
}

func TestWatchDictionaryFileReloads(t *testing.T) {
	a, dictPath := newTestApp(t, &stubRemote{})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := a.WatchDictionaryFile(ctx); err != nil {
		t.Fatalf("WatchDictionaryFile: %v", err)
	}
	if err := os.WriteFile(dictPath, []byte(`{"afk": "away"}`), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if a.Dictionary().Substitute("afk") == "away" {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("dictionary was not reloaded after the file changed")
}
