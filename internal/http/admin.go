package httpadmin

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/you/sc-chat-translator/internal/remotesync"
)

// Controller is the application surface the admin endpoints drive.
type Controller interface {
	ReloadDictionary() (int, error)
	SetDictionaryEntry(key, value string) (int, error)
	CheckVersion(ctx context.Context) (remotesync.VersionInfo, error)
	SyncRemote(ctx context.Context) (remotesync.Outcome, error)
}

type Server struct {
	ctl     Controller
	timeout time.Duration
}

func New(ctl Controller) *Server { return &Server{ctl: ctl, timeout: 10 * time.Second} }

func (s *Server) Register(mux *http.ServeMux) {
	mux.HandleFunc("/admin/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/admin/dictionary/reload", s.post(s.handleReload))
	mux.HandleFunc("/admin/dictionary", s.post(s.handleSetEntry))
	mux.HandleFunc("/admin/remote/check", s.post(s.handleCheck))
	mux.HandleFunc("/admin/remote/sync", s.post(s.handleSync))
}

func (s *Server) post(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h(w, r)
	}
}

func (s *Server) handleReload(w http.ResponseWriter, _ *http.Request) {
	n, err := s.ctl.ReloadDictionary()
	if err != nil {
		http.Error(w, "reload failed: "+err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]any{"status": "ok", "reloaded": true, "entries": n})
}

type entryRequest struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

func (s *Server) handleSetEntry(w http.ResponseWriter, r *http.Request) {
	var req entryRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 64<<10)).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Key) == "" {
		http.Error(w, "key is required", http.StatusBadRequest)
		return
	}
	n, err := s.ctl.SetDictionaryEntry(req.Key, req.Value)
	if err != nil {
		http.Error(w, "save failed: "+err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]any{"status": "ok", "key": req.Key, "entries": n})
}

func (s *Server) handleCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), s.timeout)
	defer cancel()
	info, err := s.ctl.CheckVersion(ctx)
	if err != nil {
		http.Error(w, "version check failed: "+err.Error(), http.StatusBadGateway)
		return
	}
	writeJSON(w, info)
}

func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), s.timeout)
	defer cancel()
	outcome, err := s.ctl.SyncRemote(ctx)
	if err != nil {
		http.Error(w, "sync failed: "+err.Error(), http.StatusBadGateway)
		return
	}
	writeJSON(w, map[string]any{"status": "ok", "outcome": outcome})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	_ = json.NewEncoder(w).Encode(v)
}
