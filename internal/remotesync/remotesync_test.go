package remotesync

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type memStore struct {
	mu    sync.Mutex
	st    State
	saves int
}

func (m *memStore) RemoteState() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.st
}

func (m *memStore) SaveRemoteState(st State) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.st = st
	m.saves++
	return nil
}

func descriptorServer(t *testing.T, body string) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if ua := r.Header.Get("User-Agent"); ua != "SC-Translator/1.1.3" {
			t.Errorf("user agent = %q", ua)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

func newEngine(store StateStore, url string, now time.Time) *Engine {
	return New(store, Options{
		DescriptorURL: url,
		DictionaryURL: url,
		AppVersion:    "1.1.3",
		UserAgent:     "SC-Translator/1.1.3",
		Now:           func() time.Time { return now },
	})
}

func TestCompareVersions(t *testing.T) {
	cases := []struct {
		a, b string
		want int
	}{
		{"1.2.0", "1.1.9", 1},
		{"1.1.3", "1.1.3", 0},
		{"1.0", "1.0.0", -1},
		{"1.10", "1.9", 1},
		{"2.x.1", "2.0", 1},
		{"abc", "1.0", 0},
		{"1.0.0", "garbage", 0},
		{"", "1.1.3", 0},
		{"1.1.3", "", 0},
		{"99999999999999999999999", "1.0", 0},
	}
	for _, tc := range cases {
		require.Equalf(t, tc.want, CompareVersions(tc.a, tc.b), "%s vs %s", tc.a, tc.b)
	}
}

func TestSyncAppliesNewerWelcomeAndVersion(t *testing.T) {
	srv, _ := descriptorServer(t, `{"id":"42","color":"gold","welcome_message":"Hi","version":"1.2.0",
		"whats_new":{"changes":["a","b"]},"download_url":"https://x","notes":"n"}`)
	store := &memStore{st: DefaultState("1.1.3")}
	store.st.WelcomeShownCount = 7
	now := time.Unix(1_700_000_000, 0)

	out, err := newEngine(store, srv.URL, now).Sync(context.Background())
	require.NoError(t, err)
	require.Equal(t, OutcomeUpdated, out)

	st := store.RemoteState()
	require.Equal(t, "42", st.WelcomeID)
	require.Equal(t, "gold", st.WelcomeColor)
	require.Equal(t, "Hi", st.WelcomeMessage)
	require.Equal(t, []string{"a", "b"}, st.Changes())
	require.Equal(t, "https://x", st.DownloadURL)
	require.Equal(t, "n", st.Notes)
	require.True(t, st.ShowExtendedWelcome)
	require.Equal(t, "1.2.0", st.LastNotifiedVersion)
	require.Zero(t, st.WelcomeShownCount)
	require.Equal(t, now.Unix(), st.LastFetchUnix)
}

func TestSyncAcceptsLowerID(t *testing.T) {
	srv, _ := descriptorServer(t, `[{"id":3,"welcome_message":"older"}]`)
	store := &memStore{st: DefaultState("1.1.3")}
	store.st.WelcomeID = "10"
	store.st.WelcomeMessage = "newer"

	out, err := newEngine(store, srv.URL, time.Now()).Sync(context.Background())
	require.NoError(t, err)
	require.Equal(t, OutcomeUpdated, out)
	require.Equal(t, "3", store.RemoteState().WelcomeID)
	require.Equal(t, DefaultWelcomeColor, store.RemoteState().WelcomeColor)
}

func TestSyncIgnoresDescriptorWithoutMessage(t *testing.T) {
	srv, _ := descriptorServer(t, `{"id":"99","welcome_message":"  "}`)
	store := &memStore{st: DefaultState("1.1.3")}

	out, err := newEngine(store, srv.URL, time.Now()).Sync(context.Background())
	require.NoError(t, err)
	require.Equal(t, OutcomeUnchanged, out)
	require.Equal(t, "0000", store.RemoteState().WelcomeID)
}

func TestSyncTwiceOnlyTouchesTimestamp(t *testing.T) {
	srv, hits := descriptorServer(t, `{"id":"5","welcome_message":"m","version":"1.1.3"}`)
	store := &memStore{st: DefaultState("1.1.3")}
	store.st.FetchIntervalSeconds = 0
	now := time.Unix(1_700_000_000, 0)
	e := newEngine(store, srv.URL, now)

	_, err := e.Sync(context.Background())
	require.NoError(t, err)
	first := store.RemoteState()

	e.opts.Now = func() time.Time { return now.Add(time.Minute) }
	out, err := e.Sync(context.Background())
	require.NoError(t, err)
	require.Equal(t, OutcomeUnchanged, out)
	second := store.RemoteState()
	require.Equal(t, int32(2), hits.Load())

	require.Equal(t, now.Add(time.Minute).Unix(), second.LastFetchUnix)
	second.LastFetchUnix = first.LastFetchUnix
	require.Equal(t, first, second)
}

func TestSyncRespectsInterval(t *testing.T) {
	srv, hits := descriptorServer(t, `{"id":"5","welcome_message":"m"}`)
	now := time.Unix(1_700_000_000, 0)
	store := &memStore{st: DefaultState("1.1.3")}
	store.st.LastFetchUnix = now.Add(-10 * time.Minute).Unix()

	out, err := newEngine(store, srv.URL, now).Sync(context.Background())
	require.NoError(t, err)
	require.Equal(t, OutcomeSkipped, out)
	require.Zero(t, hits.Load())
	require.Zero(t, store.saves)
}

func TestSyncFailureRecordsTimestamp(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()
	now := time.Unix(1_700_000_000, 0)
	store := &memStore{st: DefaultState("1.1.3")}

	out, err := newEngine(store, srv.URL, now).Sync(context.Background())
	require.Error(t, err)
	require.Equal(t, OutcomeFailed, out)
	require.Equal(t, now.Unix(), store.RemoteState().LastFetchUnix)
	require.Equal(t, "0000", store.RemoteState().WelcomeID)
}

func TestVersionAnnouncedOnce(t *testing.T) {
	st := DefaultState("1.1.3")
	d := Descriptor{Version: "1.2.0"}

	next, ch := Reconcile(st, d, "1.1.3")
	require.True(t, ch.Version)
	next.ShowExtendedWelcome = false

	_, ch = Reconcile(next, d, "1.1.3")
	require.False(t, ch.Any())
}

func TestReconcileWhatsNewNilVersusEmpty(t *testing.T) {
	st := DefaultState("1.1.3")
	st.WelcomeID = "1"
	st.WelcomeMessage = "m"

	_, ch := Reconcile(st, Descriptor{ID: "1", WelcomeMessage: "m", WhatsNew: &WhatsNew{}}, "1.1.3")
	require.True(t, ch.Welcome)

	st.WhatsNew = &WhatsNew{Changes: []string{}}
	_, ch = Reconcile(st, Descriptor{ID: "1", WelcomeMessage: "m", WhatsNew: &WhatsNew{}}, "1.1.3")
	require.False(t, ch.Welcome)
}

func TestSyncSameIDContentChangeResetsCounter(t *testing.T) {
	cases := []struct {
		name string
		body string
		want func(t *testing.T, st State)
	}{
		{
			name: "download_url only",
			body: `{"id":"5","welcome_message":"m","download_url":"https://new","notes":"n"}`,
			want: func(t *testing.T, st State) { require.Equal(t, "https://new", st.DownloadURL) },
		},
		{
			name: "notes only",
			body: `{"id":"5","welcome_message":"m","download_url":"https://old","notes":"changed"}`,
			want: func(t *testing.T, st State) { require.Equal(t, "changed", st.Notes) },
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv, _ := descriptorServer(t, tc.body)
			store := &memStore{st: DefaultState("1.1.3")}
			store.st.WelcomeID = "5"
			store.st.WelcomeMessage = "m"
			store.st.DownloadURL = "https://old"
			store.st.Notes = "n"
			store.st.WelcomeShownCount = 3

			out, err := newEngine(store, srv.URL, time.Unix(1_700_000_000, 0)).Sync(context.Background())
			require.NoError(t, err)
			require.Equal(t, OutcomeUpdated, out)
			st := store.RemoteState()
			require.Zero(t, st.WelcomeShownCount)
			require.Equal(t, "5", st.WelcomeID)
			tc.want(t, st)
		})
	}
}

func TestCheckVersionDoesNotMutate(t *testing.T) {
	srv, _ := descriptorServer(t, `{"version":"2.0.0","whats_new":{"changes":["x"]}}`)
	store := &memStore{st: DefaultState("1.1.3")}
	store.st.LastFetchUnix = time.Now().Unix()

	info, err := newEngine(store, srv.URL, time.Now()).CheckVersion(context.Background())
	require.NoError(t, err)
	require.True(t, info.UpdateAvailable)
	require.Equal(t, "2.0.0", info.Latest)
	require.Equal(t, []string{"x"}, info.Changes)
	require.Zero(t, store.saves)
}

func TestStartupWelcomeCounterAndExtendedFlag(t *testing.T) {
	store := &memStore{st: DefaultState("1.1.3")}
	store.st.ShowExtendedWelcome = true
	e := newEngine(store, "", time.Now())

	w, err := e.StartupWelcome()
	require.NoError(t, err)
	require.True(t, w.Show)
	require.True(t, w.Extended)
	require.Equal(t, 1, w.Count)

	for i := 2; i <= DefaultWelcomeCap; i++ {
		w, err = e.StartupWelcome()
		require.NoError(t, err)
		require.True(t, w.Show)
		require.False(t, w.Extended)
	}

	w, err = e.StartupWelcome()
	require.NoError(t, err)
	require.False(t, w.Show)
	require.Equal(t, DefaultWelcomeCap, store.RemoteState().WelcomeShownCount)
}

func TestFetchDictionary(t *testing.T) {
	srv, _ := descriptorServer(t, `{"gg":"good game","n":1}`)
	d, err := newEngine(&memStore{}, srv.URL, time.Now()).FetchDictionary(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, d.Len())

	bad, _ := descriptorServer(t, `["not","an","object"]`)
	d, err = newEngine(&memStore{}, bad.URL, time.Now()).FetchDictionary(context.Background())
	require.Error(t, err)
	require.NotNil(t, d)
	require.Zero(t, d.Len())
}
