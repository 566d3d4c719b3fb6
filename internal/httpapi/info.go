package httpapi

import (
	"encoding/json"
	"net/http"
	"runtime"
	"time"
)

// BuildInfo describes the compiled binary.
type BuildInfo struct {
	Version  string
	Revision string
	BuiltAt  time.Time
}

type infoResponse struct {
	Version    string `json:"version"`
	Revision   string `json:"rev"`
	BuiltAt    string `json:"built_at,omitempty"`
	Go         string `json:"go"`
	Translator string `json:"translator,omitempty"`
	TargetLang string `json:"target_lang,omitempty"`
}

func (s *Server) handleInfo(w http.ResponseWriter, _ *http.Request) {
	resp := infoResponse{
		Version:    s.opts.Build.Version,
		Revision:   s.opts.Build.Revision,
		Go:         runtime.Version(),
		Translator: s.opts.TranslatorName,
	}
	if s.opts.TargetLang != nil {
		resp.TargetLang = s.opts.TargetLang()
	}
	if !s.opts.Build.BuiltAt.IsZero() {
		resp.BuiltAt = s.opts.Build.BuiltAt.UTC().Format(time.RFC3339)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleConfig(w http.ResponseWriter, _ *http.Request) {
	if len(s.opts.ConfigSnapshot) == 0 {
		http.Error(w, "config snapshot unavailable", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	_, _ = w.Write(s.opts.ConfigSnapshot)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
