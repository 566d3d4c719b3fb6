package httpapi

import (
	"compress/gzip"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

const requestIDHeader = "X-Request-ID"

// wrap runs every request through: request id, CORS, per-client rate limit
// and gzip. Metrics and the access log are recorded once the handler returns.
func (s *Server) wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rid := strings.TrimSpace(r.Header.Get(requestIDHeader))
		if rid == "" {
			rid = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, rid)

		rec := &statusRecorder{ResponseWriter: w}
		client := clientIP(r)
		defer func() {
			took := time.Since(start)
			route := r.Pattern
			if route == "" {
				route = "unmatched"
			}
			s.metrics.ObserveRequest(route, r.Method, rec.Status(), took, rec.bytes)
			if s.opts.EnableAccessLog {
				log.Printf("http: %s %s %d %dB %s ip=%s rid=%s",
					r.Method, r.URL.Path, rec.Status(), rec.bytes, took.Round(time.Microsecond), client, rid)
			}
		}()

		if s.cors.preflight(rec, r) {
			return
		}
		if !s.cors.decorate(rec, r) {
			http.Error(rec, "origin not allowed", http.StatusForbidden)
			return
		}
		if !unlimited(r.URL.Path) {
			if wait, ok := s.limiter.allow(client); !ok {
				s.metrics.IncRateLimited()
				rec.Header().Set("Retry-After", retryAfter(wait))
				http.Error(rec, "rate limit exceeded", http.StatusTooManyRequests)
				return
			}
		}
		if compressible(r) {
			gz := rec.compress()
			defer gz.Close()
		}
		next.ServeHTTP(rec, r)
	})
}

// unlimited paths are polled by supervisors and never rate limited.
func unlimited(path string) bool {
	switch path {
	case "/healthz", "/metrics", "/admin/healthz":
		return true
	}
	return false
}

// statusRecorder remembers the status and counts body bytes for the access
// log. Its ResponseWriter is swapped for a gzip writer when compressing.
type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int64
	base   http.ResponseWriter
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	n, err := r.ResponseWriter.Write(b)
	r.bytes += int64(n)
	return n, err
}

func (r *statusRecorder) Status() int {
	if r.status == 0 {
		return http.StatusOK
	}
	return r.status
}

func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// compress routes further writes through gzip. Headers still go to the
// original writer.
func (r *statusRecorder) compress() *gzipWriter {
	r.base = r.ResponseWriter
	r.Header().Set("Content-Encoding", "gzip")
	r.Header().Add("Vary", "Accept-Encoding")
	gz := &gzipWriter{ResponseWriter: r.base, zw: gzip.NewWriter(r.base)}
	r.ResponseWriter = gz
	return gz
}

// baseWriter returns the connection's own writer. WebSocket upgrades need
// its http.Hijacker.
func baseWriter(w http.ResponseWriter) http.ResponseWriter {
	rec, ok := w.(*statusRecorder)
	if !ok || rec == nil {
		return w
	}
	if rec.base != nil {
		return rec.base
	}
	return rec.ResponseWriter
}

type gzipWriter struct {
	http.ResponseWriter
	zw *gzip.Writer
}

func (g *gzipWriter) Write(b []byte) (int, error) { return g.zw.Write(b) }

func (g *gzipWriter) Flush() {
	_ = g.zw.Flush()
	if f, ok := g.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (g *gzipWriter) Close() error { return g.zw.Close() }

// compressible reports whether the response to r may be gzipped. /metrics
// negotiates its own encoding, and streams must reach clients unbuffered.
func compressible(r *http.Request) bool {
	if !strings.Contains(r.Header.Get("Accept-Encoding"), "gzip") {
		return false
	}
	switch {
	case r.URL.Path == "/metrics":
		return false
	case r.Header.Get("Upgrade") != "":
		return false
	case strings.Contains(r.Header.Get("Accept"), "text/event-stream"):
		return false
	}
	return true
}
