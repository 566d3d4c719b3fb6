// Package app owns the long-lived application state shared by the chat
// pipeline, the scheduler and the HTTP surfaces: user settings, the merged
// dictionary and the remote sync engine.
package app

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/you/sc-chat-translator/internal/dictionary"
	"github.com/you/sc-chat-translator/internal/remotesync"
	"github.com/you/sc-chat-translator/internal/settings"
)

// Remote is the subset of the sync engine the app drives.
type Remote interface {
	Sync(ctx context.Context) (remotesync.Outcome, error)
	FetchDictionary(ctx context.Context) (*dictionary.Dictionary, error)
	CheckVersion(ctx context.Context) (remotesync.VersionInfo, error)
}

type App struct {
	settings *settings.Store
	dict     *dictionary.Holder
	dictPath string
	remote   Remote
	log      *slog.Logger
	now      func() time.Time

	mu sync.Mutex // serialises dictionary file access

	fetchMu       sync.Mutex
	lastDictFetch time.Time
}

func New(st *settings.Store, dict *dictionary.Holder, dictPath string, remote Remote, log *slog.Logger) *App {
	if log == nil {
		log = slog.Default()
	}
	return &App{settings: st, dict: dict, dictPath: dictPath, remote: remote, log: log, now: time.Now}
}

func (a *App) Settings() *settings.Store { return a.settings }

func (a *App) Dictionary() *dictionary.Holder { return a.dict }

// TargetLang is the language chat lines are translated into.
func (a *App) TargetLang() string { return a.settings.Get().TargetLang() }

// ManualLang is the language manual translations go to.
func (a *App) ManualLang() string { return a.settings.Get().ManualLang() }

// ReloadDictionary re-reads the local dictionary file and re-merges it with
// the last remote additions. On error the previous dictionary stays active.
func (a *App) ReloadDictionary() (int, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	local, created, err := dictionary.LoadFile(a.dictPath)
	if err != nil {
		return 0, errors.Wrap(err, "reload dictionary")
	}
	if created {
		a.log.Info("dictionary: wrote default dictionary", "path", a.dictPath)
	}
	a.dict.SetLocal(local)
	n := a.dict.Current().Len()
	a.log.Info("dictionary: reloaded", "local", local.Len(), "merged", n)
	return n, nil
}

// SetDictionaryEntry stores key=value in the local dictionary file and
// publishes the re-merged result.
func (a *App) SetDictionaryEntry(key, value string) (int, error) {
	if strings.TrimSpace(key) == "" {
		return 0, errors.New("dictionary key is empty")
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	local := a.dict.Local().With(key, value)
	if err := dictionary.SaveFile(a.dictPath, local); err != nil {
		return 0, err
	}
	a.dict.SetLocal(local)
	return a.dict.Current().Len(), nil
}

// RefreshRemoteDictionary fetches the remote dictionary when the user allows
// it. A failed fetch keeps the previous remote additions; disabling the
// option drops them.
func (a *App) RefreshRemoteDictionary(ctx context.Context) (int, error) {
	if !a.settings.Get().AllowRemoteDictionary {
		a.dict.SetRemote(nil)
		return 0, nil
	}
	remote, err := a.remote.FetchDictionary(ctx)
	if err != nil {
		return a.dict.Remote().Len(), err
	}
	a.dict.SetRemote(remote)
	a.log.Info("dictionary: remote entries applied", "remote", remote.Len(), "merged", a.dict.Current().Len())
	return remote.Len(), nil
}

// SyncRemote runs one descriptor sync.
func (a *App) SyncRemote(ctx context.Context) (remotesync.Outcome, error) {
	return a.remote.Sync(ctx)
}

// CheckVersion asks the remote descriptor for the latest version.
func (a *App) CheckVersion(ctx context.Context) (remotesync.VersionInfo, error) {
	return a.remote.CheckVersion(ctx)
}

// Tick is the scheduled job: a descriptor sync followed by a remote
// dictionary refresh, both gated by the stored fetch interval. Failures are
// logged and never stop the schedule.
func (a *App) Tick(ctx context.Context) {
	outcome, err := a.SyncRemote(ctx)
	if err != nil {
		a.log.Warn("remotesync: sync failed", "err", err)
	} else {
		a.log.Debug("remotesync: sync finished", "outcome", outcome)
	}
	if !a.dictionaryDue() {
		return
	}
	if _, err := a.RefreshRemoteDictionary(ctx); err != nil {
		a.log.Warn("dictionary: remote refresh failed, keeping previous entries", "err", err)
	}
}

// dictionaryDue reports whether Tick should fetch the remote dictionary and,
// if so, records the attempt. The first call is always due; a disabled
// option is always due so its entries are dropped and the next enable
// fetches at once.
func (a *App) dictionaryDue() bool {
	a.fetchMu.Lock()
	defer a.fetchMu.Unlock()

	if !a.settings.Get().AllowRemoteDictionary {
		a.lastDictFetch = time.Time{}
		return true
	}
	now := a.now()
	interval := time.Duration(a.settings.RemoteState().FetchIntervalSeconds) * time.Second
	if !a.lastDictFetch.IsZero() && interval > 0 && now.Sub(a.lastDictFetch) < interval {
		return false
	}
	a.lastDictFetch = now
	return true
}
