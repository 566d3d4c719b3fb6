// Package remotesync keeps the locally cached welcome/version descriptor in
// step with the remote one and fetches the shared remote dictionary.
package remotesync

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"

	"github.com/you/sc-chat-translator/internal/dictionary"
)

// DefaultWelcomeCap is how many process starts show the welcome banner
// after each descriptor change.
const DefaultWelcomeCap = 10

const (
	defaultTimeout = 3 * time.Second
	maxBody        = 1 << 20
)

// StateStore persists State. Implementations must be safe for concurrent use.
type StateStore interface {
	RemoteState() State
	SaveRemoteState(State) error
}

// Outcome is the result of one Sync call.
type Outcome string

const (
	OutcomeSkipped   Outcome = "skipped"
	OutcomeUnchanged Outcome = "unchanged"
	OutcomeUpdated   Outcome = "updated"
	OutcomeFailed    Outcome = "failed"
)

// Status is what the engine is doing right now.
type Status int32

const (
	StatusIdle Status = iota
	StatusFetching
)

func (s Status) String() string {
	if s == StatusFetching {
		return "fetching"
	}
	return "idle"
}

type Options struct {
	DescriptorURL string
	DictionaryURL string
	AppVersion    string
	UserAgent     string
	Client        *http.Client
	Now           func() time.Time
	Logger        *slog.Logger
	Metrics       *Metrics
	WelcomeCap    int
}

// Engine serialises descriptor syncs against a StateStore.
type Engine struct {
	opts   Options
	store  StateStore
	client *http.Client
	log    *slog.Logger

	mu     sync.Mutex
	status atomic.Int32
}

func New(store StateStore, opts Options) *Engine {
	if opts.Client == nil {
		opts.Client = &http.Client{Timeout: defaultTimeout}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.WelcomeCap <= 0 {
		opts.WelcomeCap = DefaultWelcomeCap
	}
	return &Engine{
		opts:   opts,
		store:  store,
		client: opts.Client,
		log:    opts.Logger.With("component", "remotesync"),
	}
}

// Status reports whether a fetch is in flight.
func (e *Engine) Status() Status { return Status(e.status.Load()) }

// Sync fetches the descriptor if the fetch interval has elapsed and folds it
// into the stored state. The fetch timestamp is recorded on every attempt,
// including failed ones. Only one Sync runs at a time.
func (e *Engine) Sync(ctx context.Context) (Outcome, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	st := e.store.RemoteState()
	now := e.opts.Now()
	if !st.Due(now) {
		e.opts.Metrics.observeSync(OutcomeSkipped)
		return OutcomeSkipped, nil
	}

	e.status.Store(int32(StatusFetching))
	body, err := e.fetch(ctx, e.opts.DescriptorURL)
	e.status.Store(int32(StatusIdle))

	st.LastFetchUnix = now.Unix()
	if err != nil {
		return e.fail(st, err)
	}
	desc, err := DecodeDescriptor(body)
	if err != nil {
		return e.fail(st, err)
	}

	next, change := Reconcile(st, desc, e.opts.AppVersion)
	if err := e.store.SaveRemoteState(next); err != nil {
		e.opts.Metrics.observeSync(OutcomeFailed)
		return OutcomeFailed, errors.Wrap(err, "save remote state")
	}
	if !change.Any() {
		e.opts.Metrics.observeSync(OutcomeUnchanged)
		return OutcomeUnchanged, nil
	}
	e.log.Info("remote descriptor applied",
		"welcome_id", next.WelcomeID,
		"welcome_changed", change.Welcome,
		"version_changed", change.Version,
		"version", next.LastNotifiedVersion)
	e.opts.Metrics.observeSync(OutcomeUpdated)
	return OutcomeUpdated, nil
}

func (e *Engine) fail(st State, cause error) (Outcome, error) {
	e.log.Warn("remote descriptor fetch failed", "err", cause)
	e.opts.Metrics.observeSync(OutcomeFailed)
	if err := e.store.SaveRemoteState(st); err != nil {
		e.log.Warn("saving fetch timestamp failed", "err", err)
	}
	return OutcomeFailed, cause
}

// VersionInfo is what CheckVersion reports.
type VersionInfo struct {
	Current         string   `json:"current"`
	Latest          string   `json:"latest"`
	UpdateAvailable bool     `json:"update_available"`
	Changes         []string `json:"changes,omitempty"`
	DownloadURL     string   `json:"download_url,omitempty"`
	Notes           string   `json:"notes,omitempty"`
}

// ErrNoVersion is returned when the descriptor carries no version.
var ErrNoVersion = errors.New("remote descriptor has no version")

// CheckVersion fetches the descriptor regardless of the fetch interval and
// compares its version with the running one. Stored state is not touched.
func (e *Engine) CheckVersion(ctx context.Context) (VersionInfo, error) {
	info := VersionInfo{Current: e.opts.AppVersion}
	body, err := e.fetch(ctx, e.opts.DescriptorURL)
	if err != nil {
		return info, err
	}
	desc, err := DecodeDescriptor(body)
	if err != nil {
		return info, err
	}
	if desc.Version == "" {
		return info, ErrNoVersion
	}
	info.Latest = desc.Version
	info.UpdateAvailable = CompareVersions(desc.Version, e.opts.AppVersion) == 1
	if desc.WhatsNew != nil {
		info.Changes = desc.WhatsNew.Changes
	}
	info.DownloadURL = desc.DownloadURL
	info.Notes = desc.Notes
	return info, nil
}

// FetchDictionary downloads the remote dictionary. The result is never nil:
// on failure it is empty and the error says why.
func (e *Engine) FetchDictionary(ctx context.Context) (*dictionary.Dictionary, error) {
	body, err := e.fetch(ctx, e.opts.DictionaryURL)
	if err != nil {
		e.log.Warn("remote dictionary fetch failed", "err", err)
		e.opts.Metrics.observeDictionary(false)
		return dictionary.New(nil), err
	}
	d, err := dictionary.DecodeBytes(body)
	if err != nil {
		e.log.Warn("remote dictionary rejected", "err", err)
		e.opts.Metrics.observeDictionary(false)
		return dictionary.New(nil), err
	}
	e.opts.Metrics.observeDictionary(true)
	return d, nil
}

func (e *Engine) fetch(ctx context.Context, url string) ([]byte, error) {
	if url == "" {
		return nil, errors.New("no url configured")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errors.Wrap(err, "build request")
	}
	if e.opts.UserAgent != "" {
		req.Header.Set("User-Agent", e.opts.UserAgent)
	}
	req.Header.Set("Accept", "application/json")
	resp, err := e.client.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "fetch")
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("fetch %s: unexpected status %d", url, resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, errors.Wrap(err, "read body")
	}
	if !json.Valid(body) {
		return nil, errors.New("response is not valid JSON")
	}
	return body, nil
}
