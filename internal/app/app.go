// Package app wires the storefront components from configuration. Both the
// API server and the catalog CLI are assembled here.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/maltedev/storefront-scraper/internal/browser"
	"github.com/maltedev/storefront-scraper/internal/catalog"
	"github.com/maltedev/storefront-scraper/internal/config"
	"github.com/maltedev/storefront-scraper/internal/overrides"
	"github.com/maltedev/storefront-scraper/internal/parser"
	"github.com/maltedev/storefront-scraper/internal/scraper"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

// NewLogger builds the process logger from LOG_LEVEL and LOG_FORMAT.
func NewLogger(cfg config.LoggingConfig) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(cfg.Level)}

	var handler slog.Handler
	if strings.EqualFold(cfg.Format, "text") {
		handler = slog.NewTextHandler(os.Stderr, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}
	return slog.New(handler)
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NewFetcher returns the transport selected by FETCH_MODE and a func that
// releases it.
func NewFetcher(cfg *config.Config, logger *slog.Logger) (scraper.Fetcher, func() error, error) {
	if cfg.Scraper.FetchMode == config.FetchModeBrowser {
		opts := browser.DefaultOptions()
		opts.Headless = cfg.Browser.Headless
		opts.Timeout = cfg.Browser.Timeout
		opts.MaxRetries = cfg.Scraper.MaxRetries
		opts.ViewportWidth = cfg.Browser.ViewportWidth
		opts.ViewportHeight = cfg.Browser.ViewportHeight
		opts.Locale = cfg.Browser.Locale
		opts.TimezoneID = cfg.Browser.TimezoneID
		opts.AcceptLanguage = cfg.Scraper.AcceptLanguage
		if len(cfg.Scraper.UserAgents) > 0 {
			opts.UserAgent = cfg.Scraper.UserAgents[0]
		}

		b, err := browser.New(opts, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to start browser: %w", err)
		}
		return b, b.Close, nil
	}

	f := scraper.NewHTTPFetcher(scraper.Options{
		Timeout:        cfg.Scraper.FetchTimeout,
		MaxRetries:     cfg.Scraper.MaxRetries,
		RateLimitMin:   cfg.Scraper.RateLimitMin,
		RateLimitMax:   cfg.Scraper.RateLimitMax,
		AcceptLanguage: cfg.Scraper.AcceptLanguage,
		UserAgents:     cfg.Scraper.UserAgents,
	}, logger)
	return f, func() error { return nil }, nil
}

// NewRedis connects to REDIS_ADDR. It returns nil when no address is set.
func NewRedis(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	if cfg.Addr == "" {
		return nil, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return client, nil
}

// Catalog bundles the catalog facade with the override store it reloads.
type Catalog struct {
	Service   *catalog.Service
	Overrides *overrides.Store
}

// NewCatalog assembles the extraction pipeline on top of fetcher. shared may
// be nil; it backs the caches only when CACHE_SHARED is set.
func NewCatalog(cfg *config.Config, fetcher scraper.Fetcher, shared *redis.Client, logger *slog.Logger) *Catalog {
	store := overrides.NewStore(cfg.Site.OverridesFile, cfg.Site.StaticImagePrefix, logger)
	prices := parser.NewPriceParser(decimal.NewFromFloat(cfg.Site.PriceMultiplier))
	extractor := parser.NewExtractor(parser.Options{
		BaseURL: cfg.Site.BaseURL,
		QtyMax:  cfg.Site.QtyMax,
	}, prices, store, logger)

	opts := catalog.Options{
		CacheSize: cfg.Cache.Size,
		CacheTTL:  cfg.Cache.Duration,
	}
	if cfg.Cache.Shared && shared != nil {
		opts.Redis = shared
	}

	return &Catalog{
		Service:   catalog.NewService(fetcher, extractor, store, opts, logger),
		Overrides: store,
	}
}
