package config

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/caarlos0/env/v6"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := load(env.Options{Environment: map[string]string{}})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Translate.Backend != "google" {
		t.Fatalf("unexpected backend: %q", cfg.Translate.Backend)
	}
	if cfg.Translate.FailureMode != "placeholder" {
		t.Fatalf("unexpected failure mode: %q", cfg.Translate.FailureMode)
	}
	if cfg.LogFileName != "chat.log" {
		t.Fatalf("unexpected log file name: %q", cfg.LogFileName)
	}
	if cfg.Batch() != 1 {
		t.Fatalf("expected default batch size 1, got %d", cfg.Batch())
	}
	if cfg.FlushInterval() != 0 {
		t.Fatalf("expected zero flush interval, got %s", cfg.FlushInterval())
	}
	if cfg.Sync.Every != 15*time.Minute || cfg.Sync.Timeout != 3*time.Second {
		t.Fatalf("unexpected sync timings: %+v", cfg.Sync)
	}
	if !cfg.HTTP.Metrics || cfg.HTTP.RateRPS != 20 || cfg.HTTP.RateBurst != 40 {
		t.Fatalf("unexpected http defaults: %+v", cfg.HTTP)
	}
	if !cfg.Clipboard || !cfg.Sink.SQLiteTuning || !cfg.Log.File {
		t.Fatalf("expected clipboard, tuning and file logging on by default")
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	cfg, err := load(env.Options{Environment: map[string]string{
		"SCCT_TRANSLATOR":        " OpenAI ",
		"OPENAI_API_KEY":         "sk-test",
		"SCCT_SQLITE_PATH":       "/data/chat.db",
		"SCCT_SINK_BATCH_SIZE":   "25",
		"SCCT_SINK_FLUSH_MAX_MS": "250",
		"SCCT_HTTP_ADDR":         ":8765",
		"SCCT_HTTP_CORS_ORIGINS": "http://localhost:3000, ,https://example.test",
		"SCCT_SYNC_EVERY":        "1h",
		"SCCT_PIPELINE_FAILURE":  "original",
		"SCCT_REDIS_ADDR":        "localhost:6379",
	}})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Translate.Backend != "openai" {
		t.Fatalf("backend should be normalised, got %q", cfg.Translate.Backend)
	}
	if cfg.Sink.SQLitePath != "/data/chat.db" {
		t.Fatalf("unexpected sqlite path: %q", cfg.Sink.SQLitePath)
	}
	if cfg.Batch() != 25 {
		t.Fatalf("batch size mismatch: %d", cfg.Batch())
	}
	if cfg.FlushInterval() != 250*time.Millisecond {
		t.Fatalf("flush interval mismatch: %s", cfg.FlushInterval())
	}
	if len(cfg.HTTP.CORSOrigins) != 2 {
		t.Fatalf("expected two cors origins, got %v", cfg.HTTP.CORSOrigins)
	}
	if cfg.Sync.Every != time.Hour {
		t.Fatalf("sync interval mismatch: %s", cfg.Sync.Every)
	}
	if s := cfg.Summary(); s.Cache != "redis" || s.FailureMode != "original" {
		t.Fatalf("unexpected summary %+v", s)
	}
}

func TestLoadRejectsBadDuration(t *testing.T) {
	if _, err := load(env.Options{Environment: map[string]string{"SCCT_SYNC_EVERY": "soon"}}); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestRedactedHidesSecrets(t *testing.T) {
	cfg, err := load(env.Options{Environment: map[string]string{
		"OPENAI_API_KEY":      "sk-secret-value",
		"YANDEX_OAUTH_TOKEN":  "y0_token",
		"SCCT_REDIS_PASSWORD": "hunter2",
	}})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	out := string(cfg.RedactedJSON())
	for _, secret := range []string{"sk-secret-value", "y0_token", "hunter2"} {
		if strings.Contains(out, secret) {
			t.Fatalf("redacted output leaks %q", secret)
		}
	}
	if !strings.Contains(out, "***REDACTED*** (len=15)") {
		t.Fatalf("expected redaction marker, got %s", out)
	}

	var summary map[string]map[string]any
	if err := json.Unmarshal(cfg.SummaryJSON(), &summary); err != nil {
		t.Fatalf("summary json: %v", err)
	}
	if summary["config_summary"]["translator"] != "google" {
		t.Fatalf("unexpected summary %v", summary)
	}
}
