package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/http/pprof"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/you/sc-chat-translator/internal/core"
	"github.com/you/sc-chat-translator/internal/remotesync"
	"github.com/you/sc-chat-translator/internal/translate"
)

const dateLayout = "2006-01-02"

// Store is the read side of the message history.
type Store interface {
	Count(ctx context.Context) (int64, error)
	CountMessages(ctx context.Context, filters Filters) (int64, error)
	ListMessages(ctx context.Context, filters Filters) ([]core.ChatMessage, error)
	QueryByDate(ctx context.Context, date string) ([]core.ChatMessage, error)
	QueryLastSession(ctx context.Context) ([]core.ChatMessage, error)
	ExportCSV(ctx context.Context, w io.Writer) (int, error)
}

// ManualTranslator runs user-initiated translations.
type ManualTranslator interface {
	Translate(ctx context.Context, text, lang string) (translate.ManualResult, bool)
}

// VersionChecker reports whether a newer release is published.
type VersionChecker interface {
	CheckVersion(ctx context.Context) (remotesync.VersionInfo, error)
}

type Options struct {
	Addr            string
	CORSOrigins     []string
	RateLimitRPS    int
	RateLimitBurst  int
	EnableMetrics   bool
	EnableAccessLog bool
	EnablePprof     bool
	Build           BuildInfo
	ConfigSnapshot  []byte
	Registry        *prometheus.Registry

	TranslatorName string
	TargetLang     func() string
	ManualLang     func() string
	Manual         ManualTranslator
	Versions       VersionChecker
}

type streamClient struct {
	ch        chan core.ChatMessage
	filters   Filters
	transport string
}

type Server struct {
	httpServer *http.Server
	mux        *http.ServeMux
	store      Store
	opts       Options
	metrics    *Metrics
	limiter    *clientLimiter
	cors       *corsPolicy

	mu      sync.Mutex
	clients map[*streamClient]struct{}
	closed  bool
}

func New(store Store, opts Options) *Server {
	srv := &Server{
		store:   store,
		opts:    opts,
		mux:     http.NewServeMux(),
		metrics: newMetrics(opts.Registry),
		limiter: newClientLimiter(opts.RateLimitRPS, opts.RateLimitBurst),
		cors:    newCORSPolicy(opts.CORSOrigins),
		clients: make(map[*streamClient]struct{}),
	}

	mux := srv.mux
	mux.HandleFunc("GET /healthz", srv.handleHealthz)
	mux.HandleFunc("GET /info", srv.handleInfo)
	mux.HandleFunc("GET /config", srv.handleConfig)
	mux.HandleFunc("GET /count", srv.handleCount)
	mux.HandleFunc("GET /messages", srv.handleMessages)
	mux.HandleFunc("GET /history", srv.handleHistory)
	mux.HandleFunc("GET /history/last-session", srv.handleLastSession)
	mux.HandleFunc("GET /export.csv", srv.handleExport)
	mux.HandleFunc("GET /stream", srv.handleStream)
	mux.HandleFunc("GET /ws", srv.handleWS)
	mux.HandleFunc("POST /translate", srv.handleTranslate)
	mux.HandleFunc("GET /version", srv.handleVersion)
	if opts.EnableMetrics {
		mux.Handle("GET /metrics", srv.metrics.Handler())
	}
	if opts.EnablePprof {
		mux.HandleFunc("/debug/pprof/", pprof.Index)
		mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
		mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
		mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
		mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	}

	srv.httpServer = &http.Server{
		Addr:              opts.Addr,
		Handler:           srv.wrap(mux),
		ReadHeaderTimeout: 5 * time.Second,
	}

	return srv
}

// Mux exposes the router so other packages can mount routes (admin).
func (s *Server) Mux() *http.ServeMux { return s.mux }

// Handler returns the fully wrapped handler; used by tests.
func (s *Server) Handler() http.Handler { return s.httpServer.Handler }

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleCount(w http.ResponseWriter, r *http.Request) {
	count, err := s.store.Count(r.Context())
	if err != nil {
		http.Error(w, "count error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"count": count})
}

func (s *Server) handleMessages(w http.ResponseWriter, r *http.Request) {
	filters, err := FiltersFromRequest(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	total, err := s.store.CountMessages(r.Context(), filters)
	if err != nil {
		http.Error(w, "count error", http.StatusInternalServerError)
		return
	}
	rows, err := s.store.ListMessages(r.Context(), filters)
	if err != nil {
		http.Error(w, "list error", http.StatusInternalServerError)
		return
	}
	if rows == nil {
		rows = []core.ChatMessage{}
	}
	w.Header().Set("X-Total-Count", fmt.Sprint(total))
	writeJSON(w, http.StatusOK, rows)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	date := strings.TrimSpace(r.URL.Query().Get("date"))
	if date == "" {
		date = time.Now().Format(dateLayout)
	}
	if _, err := time.Parse(dateLayout, date); err != nil {
		http.Error(w, "date must be YYYY-MM-DD", http.StatusBadRequest)
		return
	}
	rows, err := s.store.QueryByDate(r.Context(), date)
	if err != nil {
		http.Error(w, "history error", http.StatusInternalServerError)
		return
	}
	if rows == nil {
		rows = []core.ChatMessage{}
	}
	writeJSON(w, http.StatusOK, rows)
}

func (s *Server) handleLastSession(w http.ResponseWriter, r *http.Request) {
	rows, err := s.store.QueryLastSession(r.Context())
	if err != nil {
		http.Error(w, "history error", http.StatusInternalServerError)
		return
	}
	if rows == nil {
		rows = []core.ChatMessage{}
	}
	writeJSON(w, http.StatusOK, rows)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="chat_history.csv"`)
	if _, err := s.store.ExportCSV(r.Context(), w); err != nil {
		// Headers are already out; the client sees a truncated file.
		log.Printf("http: export csv: %v", err)
	}
}

type translateRequest struct {
	Text string `json:"text"`
	Lang string `json:"lang"`
}

func (s *Server) handleTranslate(w http.ResponseWriter, r *http.Request) {
	if s.opts.Manual == nil {
		http.Error(w, "translation unavailable", http.StatusServiceUnavailable)
		return
	}
	var req translateRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 64<<10)).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	lang := strings.TrimSpace(req.Lang)
	if lang == "" && s.opts.ManualLang != nil {
		lang = s.opts.ManualLang()
	}
	res, ok := s.opts.Manual.Translate(r.Context(), req.Text, lang)
	if !ok {
		http.Error(w, "text is empty", http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	if s.opts.Versions == nil {
		http.Error(w, "version check unavailable", http.StatusServiceUnavailable)
		return
	}
	info, err := s.opts.Versions.CheckVersion(r.Context())
	if err != nil {
		writeJSON(w, http.StatusBadGateway, map[string]string{
			"current": info.Current,
			"error":   err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, info)
}

func (s *Server) subscribe(transport string, filters Filters) (*streamClient, bool) {
	c := &streamClient{
		ch:        make(chan core.ChatMessage, 256),
		filters:   filters.CloneForStream(),
		transport: transport,
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, false
	}
	s.clients[c] = struct{}{}
	s.metrics.IncStreamClients(transport, 1)
	return c, true
}

func (s *Server) unsubscribe(c *streamClient) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.clients[c]; ok {
		delete(s.clients, c)
		s.metrics.IncStreamClients(c.transport, -1)
	}
}

func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	filters, err := FiltersFromRequest(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "stream unsupported", http.StatusInternalServerError)
		return
	}

	client, ok := s.subscribe("sse", filters)
	if !ok {
		http.Error(w, "server shutting down", http.StatusServiceUnavailable)
		return
	}
	defer s.unsubscribe(client)

	w.Header().Set("Content-Type", "text/event-stream; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	fmt.Fprintf(w, ":ok\n\n")
	flusher.Flush()

	ticker := time.NewTicker(20 * time.Second)
	defer ticker.Stop()

	ctx := r.Context()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			fmt.Fprintf(w, ":ping\n\n")
			flusher.Flush()
		case msg, ok := <-client.ch:
			if !ok {
				return
			}
			data, err := json.Marshal(msg)
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "event: message\ndata: %s\n\n", data)
			flusher.Flush()
			s.metrics.IncMessagesSent("sse")
		}
	}
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	filters, err := FiltersFromRequest(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	conn, err := websocket.Accept(baseWriter(w), r, s.cors.acceptOptions())
	if err != nil {
		log.Printf("http: websocket accept: %v", err)
		return
	}
	defer conn.CloseNow()

	client, ok := s.subscribe("ws", filters)
	if !ok {
		_ = conn.Close(websocket.StatusGoingAway, "server shutting down")
		return
	}
	defer s.unsubscribe(client)

	// Inbound frames are ignored; CloseRead handles control frames and
	// cancels ctx when the peer goes away.
	ctx := conn.CloseRead(r.Context())

	ticker := time.NewTicker(20 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			err := conn.Ping(pingCtx)
			cancel()
			if err != nil {
				return
			}
		case msg, ok := <-client.ch:
			if !ok {
				_ = conn.Close(websocket.StatusGoingAway, "server shutting down")
				return
			}
			writeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			err := wsjson.Write(writeCtx, conn, msg)
			cancel()
			if err != nil {
				return
			}
			s.metrics.IncMessagesSent("ws")
		}
	}
}

// Broadcast hands msg to every live client whose filters match. Slow
// clients lose the message rather than block the pipeline.
func (s *Server) Broadcast(msg core.ChatMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}

	for c := range s.clients {
		if !c.filters.Matches(msg) {
			continue
		}
		select {
		case c.ch <- msg:
		default:
			s.metrics.IncBroadcastDrops(c.transport)
		}
	}
}

func (s *Server) Start() error {
	log.Printf("http api listening on %s", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil {
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	for c := range s.clients {
		close(c.ch)
	}
	s.mu.Unlock()
	return s.httpServer.Shutdown(ctx)
}
