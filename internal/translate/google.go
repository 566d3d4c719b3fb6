package translate

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// DefaultGoogleEndpoint is the public web translation endpoint.
const DefaultGoogleEndpoint = "https://translate.googleapis.com/translate_a/single"

// GoogleBackend calls the keyless Google web translation endpoint.
type GoogleBackend struct {
	client    *http.Client
	endpoint  string
	userAgent string
}

func NewGoogle(client *http.Client, endpoint, userAgent string) *GoogleBackend {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	if endpoint == "" {
		endpoint = DefaultGoogleEndpoint
	}
	return &GoogleBackend{client: client, endpoint: endpoint, userAgent: userAgent}
}

func (b *GoogleBackend) Name() string { return "google" }

func (b *GoogleBackend) Translate(ctx context.Context, text, target string) (string, error) {
	q := url.Values{}
	q.Set("client", "gtx")
	q.Set("sl", "auto")
	q.Set("tl", target)
	q.Set("dt", "t")
	q.Set("q", text)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return "", errors.Wrap(err, "build request")
	}
	if b.userAgent != "" {
		req.Header.Set("User-Agent", b.userAgent)
	}
	resp, err := b.client.Do(req)
	if err != nil {
		return "", errors.Wrap(err, "google translate")
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", errors.Errorf("google translate: status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", errors.Wrap(err, "read response")
	}
	return parseGoogle(body)
}

// parseGoogle joins the first element of every segment in the first array:
// [[["Hola","Hello",...],...],null,"en",...]
func parseGoogle(body []byte) (string, error) {
	var top []json.RawMessage
	if err := json.Unmarshal(body, &top); err != nil || len(top) == 0 {
		return "", errors.New("google translate: malformed response")
	}
	var segments []json.RawMessage
	if err := json.Unmarshal(top[0], &segments); err != nil {
		return "", errors.New("google translate: malformed segments")
	}
	var sb strings.Builder
	for _, raw := range segments {
		var seg []json.RawMessage
		if err := json.Unmarshal(raw, &seg); err != nil || len(seg) == 0 {
			continue
		}
		var part string
		if err := json.Unmarshal(seg[0], &part); err != nil {
			continue
		}
		sb.WriteString(part)
	}
	if sb.Len() == 0 {
		return "", errors.New("google translate: no translated text")
	}
	return sb.String(), nil
}
