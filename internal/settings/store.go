package settings

import (
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	toml "github.com/pelletier/go-toml/v2"
	"github.com/pkg/errors"

	"github.com/you/sc-chat-translator/internal/remotesync"
)

// Store is the file-backed settings holder. All methods are safe for
// concurrent use; every mutation is written through to disk.
type Store struct {
	path string

	mu  sync.Mutex
	cur Settings
}

// Open loads path, creating it with defaults when missing. A legacy
// settings.json next to it is imported on first run. An unreadable or
// malformed file falls back to defaults without overwriting it.
func Open(path string) (*Store, error) {
	s := &Store{path: path}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		s.cur = decode(data)
		return s, nil
	case !errors.Is(err, os.ErrNotExist):
		slog.Warn("settings unreadable, using defaults", "path", path, "err", err)
		s.cur = Defaults()
		return s, nil
	}

	s.cur = Defaults()
	legacy := filepath.Join(filepath.Dir(path), legacyFileName)
	if imported, ok, err := importLegacy(legacy); err != nil {
		slog.Warn("legacy settings ignored", "path", legacy, "err", err)
	} else if ok {
		slog.Info("imported legacy settings", "path", legacy)
		s.cur = imported
	}
	if err := s.saveLocked(); err != nil {
		return nil, err
	}
	return s, nil
}

// decode fills missing keys from Defaults. Maps are only defaulted when the
// file has no table for them, so the user can remove entries.
func decode(data []byte) Settings {
	st := Defaults()
	st.Languages = nil
	st.ManualLanguages = nil
	if err := toml.Unmarshal(data, &st); err != nil {
		slog.Warn("settings malformed, using defaults", "err", err)
		return Defaults()
	}
	def := Defaults()
	if st.Languages == nil {
		st.Languages = def.Languages
	}
	if st.ManualLanguages == nil {
		st.ManualLanguages = def.ManualLanguages
	}
	if st.GameLogsPath == "" {
		st.GameLogsPath = def.GameLogsPath
	}
	if st.Remote.WelcomeColor == "" {
		st.Remote.WelcomeColor = remotesync.DefaultWelcomeColor
	}
	return st
}

// Path returns the settings file location.
func (s *Store) Path() string { return s.path }

// Get returns a copy of the current settings.
func (s *Store) Get() Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cur.Clone()
}

// Update applies fn to a copy of the settings and persists the result.
func (s *Store) Update(fn func(*Settings)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := s.cur.Clone()
	fn(&next)
	prev := s.cur
	s.cur = next
	if err := s.saveLocked(); err != nil {
		s.cur = prev
		return err
	}
	return nil
}

// RemoteState implements remotesync.StateStore.
func (s *Store) RemoteState() remotesync.State {
	return s.Get().Remote
}

// SaveRemoteState implements remotesync.StateStore.
func (s *Store) SaveRemoteState(st remotesync.State) error {
	return s.Update(func(cur *Settings) { cur.Remote = st })
}

// Reload re-reads the file, keeping the current settings if it is missing.
func (s *Store) Reload() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return errors.Wrap(err, "read settings")
	}
	st := decode(data)
	s.mu.Lock()
	s.cur = st
	s.mu.Unlock()
	return nil
}

func (s *Store) saveLocked() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return errors.Wrap(err, "create settings dir")
	}
	b, err := toml.Marshal(s.cur)
	if err != nil {
		return errors.Wrap(err, "marshal settings")
	}
	if err := os.WriteFile(s.path, b, 0o644); err != nil {
		return errors.Wrap(err, "write settings")
	}
	return nil
}
