// Command devapi stands in for the game and the remote descriptor host during
// development. It serves the welcome descriptor and remote dictionary, and
// writes synthetic chat lines into session folders the translator tails.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/you/sc-chat-translator/internal/logtail"
	"github.com/you/sc-chat-translator/internal/version"
)

const sessionLayout = "2006.01.02 15.04.05.000"

type emitReq struct {
	Line     string    `json:"line,omitempty"`
	Channel  string    `json:"channel,omitempty"`
	Private  string    `json:"private,omitempty"` // "from" or "to"
	Username string    `json:"username"`
	Text     string    `json:"text"`
	Ts       time.Time `json:"ts,omitempty"`
}

// fakeGame owns the log root and the session currently being written.
type fakeGame struct {
	root       string
	descriptor []byte
	dictionary []byte
	now        func() time.Time

	mu      sync.Mutex
	session string
}

func main() {
	var (
		addr           string
		root           string
		descriptorPath string
		dictionaryPath string
		remoteVersion  string
	)

	flag.StringVar(&addr, "addr", ":8766", "HTTP listen address")
	flag.StringVar(&root, "logs", "devlogs", "Folder to create chat sessions in")
	flag.StringVar(&descriptorPath, "descriptor", "", "JSON file served as the welcome descriptor")
	flag.StringVar(&dictionaryPath, "dictionary", "", "JSON file served as the remote dictionary")
	flag.StringVar(&remoteVersion, "remote-version", version.Version, "Version advertised by the built-in descriptor")
	flag.Parse()

	g := &fakeGame{root: root, now: time.Now}
	g.descriptor = mustPayload(descriptorPath, defaultDescriptor(remoteVersion))
	g.dictionary = mustPayload(dictionaryPath, []byte(`{"brb": "be right back", "o7": "salute"}`))

	if err := os.MkdirAll(root, 0o755); err != nil {
		log.Fatalf("devapi: logs dir: %v", err)
	}
	if _, err := g.rotate(); err != nil {
		log.Fatalf("devapi: first session: %v", err)
	}

	log.Printf("devapi listening on %s (logs=%s)", addr, root)
	if err := http.ListenAndServe(addr, g.routes()); err != nil {
		log.Fatal(err)
	}
}

func mustPayload(path string, fallback []byte) []byte {
	if path == "" {
		return fallback
	}
	data, err := os.ReadFile(path)
	if err != nil {
		log.Fatalf("devapi: read %s: %v", path, err)
	}
	if !json.Valid(data) {
		log.Fatalf("devapi: %s is not valid JSON", path)
	}
	return data
}

func defaultDescriptor(ver string) []byte {
	data, _ := json.Marshal([]map[string]any{{
		"id":              uuid.NewString(),
		"color":           "LimeGreen",
		"welcome_message": "Local development descriptor.",
		"version":         ver,
		"whats_new":       map[string]any{"changes": []string{"Synthetic chat via POST /emit"}},
		"download_url":    "http://localhost/download",
	}})
	return data
}

func (g *fakeGame) routes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /descriptor", func(w http.ResponseWriter, _ *http.Request) {
		writeRaw(w, g.descriptor)
	})
	mux.HandleFunc("GET /dictionary", func(w http.ResponseWriter, _ *http.Request) {
		writeRaw(w, g.dictionary)
	})

	mux.HandleFunc("POST /rotate", func(w http.ResponseWriter, _ *http.Request) {
		path, err := g.rotate()
		if err != nil {
			http.Error(w, "rotate failed: "+err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, map[string]any{"ok": true, "path": path})
	})

	mux.HandleFunc("POST /emit", func(w http.ResponseWriter, r *http.Request) {
		defer r.Body.Close()
		var req emitReq
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		line, err := g.format(req)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if err := g.append(line); err != nil {
			http.Error(w, "append failed: "+err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, map[string]any{"ok": true, "line": line})
	})

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	return mux
}

// format renders req as a game log line. A raw Line is written unchanged.
func (g *fakeGame) format(req emitReq) (string, error) {
	if req.Line != "" {
		return strings.TrimRight(req.Line, "\r\n"), nil
	}
	if req.Username == "" || req.Text == "" {
		return "", fmt.Errorf("username, text required")
	}
	if req.Ts.IsZero() {
		req.Ts = g.now()
	}
	stamp := req.Ts.Format("15:04:05.000")
	switch strings.ToLower(req.Private) {
	case "":
	case "from":
		return fmt.Sprintf("%s  CHAT| PRIVATE From [%s]: %s", stamp, req.Username, req.Text), nil
	case "to":
		return fmt.Sprintf("%s  CHAT| PRIVATE To [%s]: %s", stamp, req.Username, req.Text), nil
	default:
		return "", fmt.Errorf("private must be from or to")
	}
	channel := strings.TrimSpace(req.Channel)
	if strings.Trim(channel, "#") == "" {
		return "", fmt.Errorf("channel required")
	}
	if !strings.HasPrefix(channel, "#") {
		channel = "#" + channel
	}
	return fmt.Sprintf("%s  CHAT| <  %s>[%s] %s", stamp, channel, req.Username, req.Text), nil
}

// rotate starts a new session folder with an empty chat log.
func (g *fakeGame) rotate() (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	dir := filepath.Join(g.root, g.now().Format(sessionLayout))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(dir, logtail.DefaultFileName)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", err
	}
	g.session = path
	log.Printf("devapi: session %s", path)
	return path, nil
}

func (g *fakeGame) append(line string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	f, err := os.OpenFile(g.session, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	if _, err := f.WriteString(line + "\n"); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func writeRaw(w http.ResponseWriter, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(body)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
