package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 2.0, cfg.Site.PriceMultiplier)
	assert.Equal(t, "https://www.destockenligne.com", cfg.Site.BaseURL)
	assert.Equal(t, 10, cfg.Site.QtyMax)
	assert.Equal(t, "overrides.json", cfg.Site.OverridesFile)
	assert.Equal(t, 300*time.Second, cfg.Cache.Duration)
	assert.Equal(t, 256, cfg.Cache.Size)
	assert.Equal(t, FetchModeHTTP, cfg.Scraper.FetchMode)
	assert.Equal(t, 12*time.Second, cfg.Scraper.FetchTimeout)
	assert.Equal(t, "stream:orders", cfg.Redis.Stream)
	assert.Equal(t, 0.15, cfg.Site.CommissionRate)
	assert.False(t, cfg.Database.Enabled)
	assert.Equal(t, 5*time.Second, cfg.Redis.RelayInterval)
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("PRICE_MULTIPLIER", "1.35")
	t.Setenv("CACHE_DURATION", "60")
	t.Setenv("FETCH_TIMEOUT", "5s")
	t.Setenv("FETCH_MODE", "Browser")
	t.Setenv("QTY_MAX", "not-a-number")
	t.Setenv("SCRAPER_USER_AGENTS", "ua-1, ua-2,,")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 1.35, cfg.Site.PriceMultiplier)
	assert.Equal(t, 60*time.Second, cfg.Cache.Duration)
	assert.Equal(t, 5*time.Second, cfg.Scraper.FetchTimeout)
	assert.Equal(t, FetchModeBrowser, cfg.Scraper.FetchMode)
	assert.Equal(t, 10, cfg.Site.QtyMax)
	assert.Equal(t, []string{"ua-1", "ua-2"}, cfg.Scraper.UserAgents)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"Valid", func(c *Config) {}, ""},
		{"Zero multiplier", func(c *Config) { c.Site.PriceMultiplier = 0 }, "PRICE_MULTIPLIER"},
		{"Negative multiplier", func(c *Config) { c.Site.PriceMultiplier = -1 }, "PRICE_MULTIPLIER"},
		{"Commission too high", func(c *Config) { c.Site.CommissionRate = 1 }, "COMMISSION_RATE"},
		{"Negative commission", func(c *Config) { c.Site.CommissionRate = -0.1 }, "COMMISSION_RATE"},
		{"Empty cache", func(c *Config) { c.Cache.Size = 0 }, "CACHE_SIZE"},
		{"No TTL", func(c *Config) { c.Cache.Duration = 0 }, "CACHE_DURATION"},
		{"Unknown fetch mode", func(c *Config) { c.Scraper.FetchMode = "curl" }, "FETCH_MODE"},
		{"Rate limits inverted", func(c *Config) {
			c.Scraper.RateLimitMin = 2 * time.Second
			c.Scraper.RateLimitMax = time.Second
		}, "SCRAPER_RATE_LIMIT_MIN"},
		{"Shared cache without redis", func(c *Config) { c.Cache.Shared = true; c.Redis.Addr = "" }, "REDIS_ADDR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load()
			require.NoError(t, err)
			tt.mutate(cfg)

			err = cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestDatabaseURL(t *testing.T) {
	db := DatabaseConfig{Host: "db", Port: 5433, User: "shop", Password: "secret", DBName: "storefront", SSLMode: "disable"}
	assert.Equal(t, "postgres://shop:secret@db:5433/storefront?sslmode=disable", db.DatabaseURL())
}
