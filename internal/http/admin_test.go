package httpadmin

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/you/sc-chat-translator/internal/remotesync"
)

type fakeController struct {
	entries  int
	err      error
	setKey   string
	setValue string
	info     remotesync.VersionInfo
}

func (f *fakeController) ReloadDictionary() (int, error) {
	return f.entries, f.err
}

func (f *fakeController) SetDictionaryEntry(key, value string) (int, error) {
	f.setKey, f.setValue = key, value
	return f.entries + 1, f.err
}

func (f *fakeController) CheckVersion(context.Context) (remotesync.VersionInfo, error) {
	return f.info, f.err
}

func (f *fakeController) SyncRemote(context.Context) (remotesync.Outcome, error) {
	return remotesync.OutcomeUpdated, f.err
}

func serve(ctl Controller, method, path, body string) *httptest.ResponseRecorder {
	mux := http.NewServeMux()
	New(ctl).Register(mux)
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func TestServerReloadSuccess(t *testing.T) {
	rec := serve(&fakeController{entries: 15}, http.MethodPost, "/admin/dictionary/reload", "")

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}

	if ct := rec.Header().Get("Content-Type"); ct != "application/json; charset=utf-8" {
		t.Fatalf("expected content-type application/json; charset=utf-8, got %q", ct)
	}

	var payload struct {
		Status   string `json:"status"`
		Reloaded bool   `json:"reloaded"`
		Entries  int    `json:"entries"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&payload); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if payload.Status != "ok" || !payload.Reloaded || payload.Entries != 15 {
		t.Fatalf("unexpected payload: %+v", payload)
	}
}

func TestServerReloadError(t *testing.T) {
	rec := serve(&fakeController{err: errors.New("boom")}, http.MethodPost, "/admin/dictionary/reload", "")

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected status %d, got %d", http.StatusInternalServerError, rec.Code)
	}

	if body := rec.Body.String(); body != "reload failed: boom\n" {
		t.Fatalf("unexpected body: %q", body)
	}
}

func TestServerRejectsGet(t *testing.T) {
	rec := serve(&fakeController{}, http.MethodGet, "/admin/dictionary/reload", "")
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rec.Code)
	}
}

func TestServerSetEntry(t *testing.T) {
	ctl := &fakeController{entries: 3}
	rec := serve(ctl, http.MethodPost, "/admin/dictionary", `{"key":"o7","value":"salute"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if ctl.setKey != "o7" || ctl.setValue != "salute" {
		t.Fatalf("controller got %q=%q", ctl.setKey, ctl.setValue)
	}

	rec = serve(ctl, http.MethodPost, "/admin/dictionary", `{"key":"  ","value":"x"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("blank key should be rejected, got %d", rec.Code)
	}
	rec = serve(ctl, http.MethodPost, "/admin/dictionary", `nope`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("bad json should be rejected, got %d", rec.Code)
	}
}

func TestServerRemoteCheck(t *testing.T) {
	ctl := &fakeController{info: remotesync.VersionInfo{Current: "1.1.3", Latest: "1.2.0", UpdateAvailable: true}}
	rec := serve(ctl, http.MethodPost, "/admin/remote/check", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var info remotesync.VersionInfo
	if err := json.NewDecoder(rec.Body).Decode(&info); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !info.UpdateAvailable || info.Latest != "1.2.0" {
		t.Fatalf("unexpected info %+v", info)
	}

	rec = serve(&fakeController{err: errors.New("offline")}, http.MethodPost, "/admin/remote/check", "")
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", rec.Code)
	}
}
