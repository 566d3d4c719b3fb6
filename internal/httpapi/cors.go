package httpapi

import (
	"net/http"
	"net/url"
	"strings"

	"nhooyr.io/websocket"
)

// corsPolicy lists the browser origins allowed to call the API. An entry
// may end in ":*" to allow any port on that host, which suits local overlay
// pages. "*" allows every http(s) origin. A nil policy adds no headers.
type corsPolicy struct {
	allowAll bool
	exact    map[string]struct{}
	anyPort  map[string]struct{} // scheme://host
}

func newCORSPolicy(origins []string) *corsPolicy {
	p := &corsPolicy{exact: map[string]struct{}{}, anyPort: map[string]struct{}{}}
	for _, o := range origins {
		o = strings.TrimRight(strings.TrimSpace(o), "/")
		switch {
		case o == "":
		case o == "*":
			p.allowAll = true
		case strings.HasSuffix(o, ":*"):
			p.anyPort[strings.ToLower(strings.TrimSuffix(o, ":*"))] = struct{}{}
		default:
			p.exact[strings.ToLower(o)] = struct{}{}
		}
	}
	if !p.allowAll && len(p.exact) == 0 && len(p.anyPort) == 0 {
		return nil
	}
	return p
}

func (c *corsPolicy) allowed(origin string) bool {
	u, err := url.Parse(origin)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return false
	}
	if c.allowAll {
		return true
	}
	origin = strings.ToLower(origin)
	if _, ok := c.exact[origin]; ok {
		return true
	}
	_, ok := c.anyPort[strings.ToLower(u.Scheme+"://"+u.Hostname())]
	return ok
}

// preflight answers an OPTIONS request carrying an Origin. It reports
// whether the request was handled.
func (c *corsPolicy) preflight(w http.ResponseWriter, r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if c == nil || r.Method != http.MethodOptions || origin == "" {
		return false
	}
	if !c.allowed(origin) {
		w.WriteHeader(http.StatusForbidden)
		return true
	}
	h := w.Header()
	h.Set("Access-Control-Allow-Origin", origin)
	h.Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
	if req := r.Header.Get("Access-Control-Request-Headers"); req != "" {
		h.Set("Access-Control-Allow-Headers", req)
	}
	h.Set("Access-Control-Expose-Headers", "X-Total-Count, X-Request-ID")
	h.Set("Access-Control-Max-Age", "300")
	h.Add("Vary", "Origin")
	w.WriteHeader(http.StatusNoContent)
	return true
}

// decorate adds CORS headers to a normal request. It returns false when the
// request carries an Origin the policy rejects.
func (c *corsPolicy) decorate(w http.ResponseWriter, r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if c == nil || origin == "" {
		return true
	}
	if !c.allowed(origin) {
		return false
	}
	w.Header().Set("Access-Control-Allow-Origin", origin)
	w.Header().Set("Access-Control-Expose-Headers", "X-Total-Count, X-Request-ID")
	w.Header().Add("Vary", "Origin")
	return true
}

// acceptOptions mirrors the policy for WebSocket upgrades, which match
// origins by host[:port] pattern.
func (c *corsPolicy) acceptOptions() *websocket.AcceptOptions {
	opts := &websocket.AcceptOptions{}
	if c == nil {
		return opts
	}
	if c.allowAll {
		opts.InsecureSkipVerify = true
		return opts
	}
	for o := range c.exact {
		if u, err := url.Parse(o); err == nil && u.Host != "" {
			opts.OriginPatterns = append(opts.OriginPatterns, u.Host)
		}
	}
	for o := range c.anyPort {
		if u, err := url.Parse(o); err == nil && u.Host != "" {
			opts.OriginPatterns = append(opts.OriginPatterns, u.Host+":*")
		}
	}
	return opts
}
