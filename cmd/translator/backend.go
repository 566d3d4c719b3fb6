package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/you/sc-chat-translator/internal/config"
	"github.com/you/sc-chat-translator/internal/translate"
	"github.com/you/sc-chat-translator/internal/version"
)

// newBackend picks the translation backend named by SCCT_TRANSLATOR.
func newBackend(cfg config.TranslateConfig) (translate.Backend, error) {
	switch cfg.Backend {
	case "", "google":
		client := &http.Client{Timeout: cfg.Timeout}
		return translate.NewGoogle(client, cfg.GoogleEndpoint, version.UserAgent()), nil
	case "openai":
		if cfg.OpenAIAPIKey == "" {
			return nil, fmt.Errorf("translator: OPENAI_API_KEY is required for the openai backend")
		}
		return translate.NewOpenAI(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.OpenAIModel), nil
	case "yandex":
		if cfg.YandexOAuthToken == "" || cfg.YandexFolderID == "" {
			return nil, fmt.Errorf("translator: YANDEX_OAUTH_TOKEN and YANDEX_FOLDER_ID are required for the yandex backend")
		}
		b, err := translate.NewYandex(cfg.YandexOAuthToken, cfg.YandexFolderID)
		if err != nil {
			return nil, err
		}
		return b, nil
	default:
		return nil, fmt.Errorf("translator: unknown backend %q (supported: google, openai, yandex)", cfg.Backend)
	}
}

// newCache returns the Redis cache when configured and reachable, otherwise
// the in-process one. The returned func releases the cache.
func newCache(ctx context.Context, cfg config.TranslateConfig) (translate.Cache, func()) {
	if cfg.RedisAddr != "" {
		rc := translate.NewRedisCache(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.CacheTTL)
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		err := rc.Ping(pingCtx)
		cancel()
		if err == nil {
			log.Printf("translator: cache: redis addr=%s ttl=%s", cfg.RedisAddr, cfg.CacheTTL)
			return rc, func() { _ = rc.Close() }
		}
		log.Printf("translator: cache: redis %s unreachable (%v); using memory cache", cfg.RedisAddr, err)
		_ = rc.Close()
	}
	return translate.NewMemoryCache(cfg.CacheTTL, cfg.CacheSize), func() {}
}
