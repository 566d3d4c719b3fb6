package config

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v6"
)

// Config is the runtime configuration read from the environment. User
// preferences (languages, log folder, remote URLs) live in the settings file.
type Config struct {
	DataDir     string `env:"SCCT_DATA_DIR"`
	LogsPath    string `env:"SCCT_LOGS_PATH"`
	LogFileName string `env:"SCCT_LOG_FILE_NAME" envDefault:"chat.log"`
	Clipboard   bool   `env:"SCCT_CLIPBOARD" envDefault:"true"`
	Plain       bool   `env:"SCCT_PLAIN"`

	Sink      SinkConfig
	Translate TranslateConfig
	HTTP      HTTPConfig
	Log       LogConfig
	Sync      SyncConfig
}

type SinkConfig struct {
	SQLitePath   string `env:"SCCT_SQLITE_PATH"`
	SQLiteTuning bool   `env:"SCCT_SQLITE_TUNING" envDefault:"true"`
	BatchSize    int    `env:"SCCT_SINK_BATCH_SIZE" envDefault:"1"`
	FlushMaxMS   int    `env:"SCCT_SINK_FLUSH_MAX_MS" envDefault:"0"`
}

type TranslateConfig struct {
	Backend        string        `env:"SCCT_TRANSLATOR" envDefault:"google"`
	GoogleEndpoint string        `env:"SCCT_GOOGLE_ENDPOINT"`
	Timeout        time.Duration `env:"SCCT_TRANSLATE_TIMEOUT" envDefault:"10s"`
	RPS            float64       `env:"SCCT_TRANSLATE_RPS" envDefault:"0"`
	Burst          int           `env:"SCCT_TRANSLATE_BURST" envDefault:"1"`
	FailureMode    string        `env:"SCCT_PIPELINE_FAILURE" envDefault:"placeholder"`

	OpenAIAPIKey  string `env:"OPENAI_API_KEY"`
	OpenAIBaseURL string `env:"OPENAI_BASE_URL"`
	OpenAIModel   string `env:"OPENAI_MODEL" envDefault:"gpt-4o-mini"`

	YandexOAuthToken string `env:"YANDEX_OAUTH_TOKEN"`
	YandexFolderID   string `env:"YANDEX_FOLDER_ID"`

	CacheTTL      time.Duration `env:"SCCT_TRANSLATE_CACHE_TTL" envDefault:"30m"`
	CacheSize     int           `env:"SCCT_TRANSLATE_CACHE_SIZE" envDefault:"2000"`
	RedisAddr     string        `env:"SCCT_REDIS_ADDR"`
	RedisPassword string        `env:"SCCT_REDIS_PASSWORD"`
	RedisDB       int           `env:"SCCT_REDIS_DB" envDefault:"0"`
}

type HTTPConfig struct {
	Addr        string   `env:"SCCT_HTTP_ADDR"`
	CORSOrigins []string `env:"SCCT_HTTP_CORS_ORIGINS" envSeparator:","`
	RateRPS     int      `env:"SCCT_HTTP_RATE_RPS" envDefault:"20"`
	RateBurst   int      `env:"SCCT_HTTP_RATE_BURST" envDefault:"40"`
	Metrics     bool     `env:"SCCT_HTTP_METRICS" envDefault:"true"`
	AccessLog   bool     `env:"SCCT_HTTP_ACCESS_LOG" envDefault:"true"`
	Pprof       bool     `env:"SCCT_HTTP_PPROF"`
}

type LogConfig struct {
	Level      string `env:"SCCT_LOG_LEVEL" envDefault:"info"`
	JSON       bool   `env:"SCCT_LOG_JSON"`
	File       bool   `env:"SCCT_LOG_FILE" envDefault:"true"`
	DebugDrops bool   `env:"SCCT_DEBUG_DROPS"`
	Trace      bool   `env:"SCCT_TRACE"`
}

type SyncConfig struct {
	Disabled bool          `env:"SCCT_REMOTE_DISABLED"`
	Every    time.Duration `env:"SCCT_SYNC_EVERY" envDefault:"15m"`
	Timeout  time.Duration `env:"SCCT_REMOTE_TIMEOUT" envDefault:"3s"`
}

const defaultBatchSize = 1

// Load reads the configuration from the process environment.
func Load() (Config, error) {
	return load(env.Options{})
}

func load(opts env.Options) (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg, opts); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	cfg.Translate.Backend = strings.ToLower(strings.TrimSpace(cfg.Translate.Backend))
	cfg.HTTP.CORSOrigins = trimList(cfg.HTTP.CORSOrigins)
	return cfg, nil
}

func trimList(values []string) []string {
	var out []string
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func (c Config) FlushInterval() time.Duration {
	if c.Sink.FlushMaxMS <= 0 {
		return 0
	}
	return time.Duration(c.Sink.FlushMaxMS) * time.Millisecond
}

func (c Config) Batch() int {
	if c.Sink.BatchSize <= 0 {
		return defaultBatchSize
	}
	return c.Sink.BatchSize
}

// Redacted returns the configuration with every secret masked.
func (c Config) Redacted() map[string]any {
	return map[string]any{
		"data_dir":      c.DataDir,
		"logs_path":     c.LogsPath,
		"log_file_name": c.LogFileName,
		"clipboard":     c.Clipboard,
		"sink": map[string]any{
			"sqlite_path":   c.Sink.SQLitePath,
			"sqlite_tuning": c.Sink.SQLiteTuning,
			"batch_size":    c.Sink.BatchSize,
			"flush_ms":      c.Sink.FlushMaxMS,
		},
		"translate": map[string]any{
			"backend":         c.Translate.Backend,
			"google_endpoint": c.Translate.GoogleEndpoint,
			"timeout":         c.Translate.Timeout.String(),
			"rps":             c.Translate.RPS,
			"failure_mode":    c.Translate.FailureMode,
			"openai_api_key":  redactString(c.Translate.OpenAIAPIKey),
			"openai_base_url": c.Translate.OpenAIBaseURL,
			"openai_model":    c.Translate.OpenAIModel,
			"yandex_oauth":    redactString(c.Translate.YandexOAuthToken),
			"yandex_folder":   c.Translate.YandexFolderID,
			"cache_ttl":       c.Translate.CacheTTL.String(),
			"redis_addr":      c.Translate.RedisAddr,
			"redis_password":  redactString(c.Translate.RedisPassword),
		},
		"http": map[string]any{
			"addr":         c.HTTP.Addr,
			"cors_origins": append([]string(nil), c.HTTP.CORSOrigins...),
			"rate_rps":     c.HTTP.RateRPS,
			"rate_burst":   c.HTTP.RateBurst,
			"metrics":      c.HTTP.Metrics,
			"pprof":        c.HTTP.Pprof,
		},
		"log": map[string]any{
			"level":       c.Log.Level,
			"json":        c.Log.JSON,
			"file":        c.Log.File,
			"debug_drops": c.Log.DebugDrops,
			"trace":       c.Log.Trace,
		},
		"sync": map[string]any{
			"disabled": c.Sync.Disabled,
			"every":    c.Sync.Every.String(),
			"timeout":  c.Sync.Timeout.String(),
		},
	}
}

func (c Config) RedactedJSON() []byte {
	data, _ := json.MarshalIndent(c.Redacted(), "", "  ")
	return data
}

// Summary is the one-line startup record.
type Summary struct {
	Translator  string `json:"translator"`
	FailureMode string `json:"failure_mode"`
	SQLitePath  string `json:"sqlite_path,omitempty"`
	BatchSize   int    `json:"batch"`
	FlushMaxMS  int    `json:"flush_ms"`
	Cache       string `json:"cache"`
	HTTPAddr    string `json:"http_addr,omitempty"`
	RemoteSync  bool   `json:"remote_sync"`
}

func (c Config) Summary() Summary {
	cache := "memory"
	if c.Translate.RedisAddr != "" {
		cache = "redis"
	}
	return Summary{
		Translator:  c.Translate.Backend,
		FailureMode: c.Translate.FailureMode,
		SQLitePath:  c.Sink.SQLitePath,
		BatchSize:   c.Batch(),
		FlushMaxMS:  c.Sink.FlushMaxMS,
		Cache:       cache,
		HTTPAddr:    c.HTTP.Addr,
		RemoteSync:  !c.Sync.Disabled,
	}
}

func (c Config) SummaryJSON() []byte {
	summary := struct {
		Config Summary `json:"config_summary"`
	}{Config: c.Summary()}
	data, _ := json.Marshal(summary)
	return data
}

func redactString(value string) string {
	if strings.TrimSpace(value) == "" {
		return ""
	}
	return "***REDACTED*** (len=" + strconv.Itoa(len(value)) + ")"
}
