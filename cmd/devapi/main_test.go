package main

import (
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/you/sc-chat-translator/internal/chatline"
	"github.com/you/sc-chat-translator/internal/core"
	"github.com/you/sc-chat-translator/internal/logtail"
	"github.com/you/sc-chat-translator/internal/remotesync"
)

func newTestGame(t *testing.T) *fakeGame {
	t.Helper()
	g := &fakeGame{
		root:       t.TempDir(),
		descriptor: defaultDescriptor("9.9.9"),
		dictionary: []byte(`{"o7": "salute"}`),
		now:        func() time.Time { return time.Date(2025, 3, 14, 9, 26, 53, 0, time.Local) },
	}
	if _, err := g.rotate(); err != nil {
		t.Fatalf("rotate: %v", err)
	}
	return g
}

func TestFormatProducesClassifiableLines(t *testing.T) {
	g := newTestGame(t)
	tests := []struct {
		req  emitReq
		want core.Category
	}{
		{emitReq{Channel: "trading", Username: "Trader", Text: "wts tai"}, core.CategoryTrading},
		{emitReq{Channel: "##general_POLISH", Username: "Kowalski", Text: "czesc"}, core.CategoryPolish},
		{emitReq{Channel: "battle_42", Username: "Pilot", Text: "gg"}, core.CategoryBattle},
		{emitReq{Private: "from", Username: "Friend", Text: "psst"}, core.CategoryPrivFrom},
		{emitReq{Private: "to", Username: "Friend", Text: "hi"}, core.CategoryPrivTo},
	}
	for _, tt := range tests {
		line, err := g.format(tt.req)
		if err != nil {
			t.Fatalf("format %+v: %v", tt.req, err)
		}
		cat, verdict := chatline.Classify(line)
		if verdict != chatline.Accepted || cat != tt.want {
			t.Fatalf("line %q classified as %s/%s, want %s", line, cat, verdict, tt.want)
		}
	}

	if _, err := g.format(emitReq{Username: "x", Text: "y"}); err == nil {
		t.Fatalf("expected error without channel")
	}
	if _, err := g.format(emitReq{Private: "sideways", Username: "x", Text: "y"}); err == nil {
		t.Fatalf("expected error for unknown private direction")
	}
}

func TestEmitAppendsToActiveSession(t *testing.T) {
	g := newTestGame(t)
	srv := httptest.NewServer(g.routes())
	t.Cleanup(srv.Close)

	resp, err := http.Post(srv.URL+"/emit", "application/json",
		strings.NewReader(`{"channel":"trading","username":"Trader","text":"wts tai"}`))
	if err != nil {
		t.Fatalf("post emit: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected status %d", resp.StatusCode)
	}

	path, ok := logtail.FindActive(g.root, logtail.DefaultFileName)
	if !ok {
		t.Fatalf("expected an active chat log under %s", g.root)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if want := "09:26:53.000  CHAT| <  #trading>[Trader] wts tai\n"; string(data) != want {
		t.Fatalf("unexpected log contents %q", data)
	}

	resp, err = http.Post(srv.URL+"/emit", "application/json", strings.NewReader(`{"text":"no user"}`))
	if err != nil {
		t.Fatalf("post emit: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestDescriptorDecodes(t *testing.T) {
	d, err := remotesync.DecodeDescriptor(defaultDescriptor("2.0.0"))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if d.Version != "2.0.0" || d.ID == "" || d.WhatsNew == nil {
		t.Fatalf("unexpected descriptor %+v", d)
	}
}
