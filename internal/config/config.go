package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	FetchModeHTTP    = "http"
	FetchModeBrowser = "browser"
)

type Config struct {
	Server   ServerConfig
	Site     SiteConfig
	Cache    CacheConfig
	Scraper  ScraperConfig
	Browser  BrowserConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Logging  LoggingConfig
}

type ServerConfig struct {
	Port            string
	Host            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	AllowedOrigins  []string
}

// SiteConfig describes the upstream storefront and how its data is presented.
type SiteConfig struct {
	BaseURL           string
	PriceMultiplier   float64
	QtyMax            int
	OverridesFile     string
	StaticImagePrefix string
	CommissionRate    float64
}

type CacheConfig struct {
	Duration time.Duration
	Size     int
	Shared   bool
}

type ScraperConfig struct {
	FetchMode      string
	FetchTimeout   time.Duration
	RateLimitMin   time.Duration
	RateLimitMax   time.Duration
	MaxRetries     int
	AcceptLanguage string
	UserAgents     []string
}

type BrowserConfig struct {
	Headless       bool
	Timeout        time.Duration
	ViewportWidth  int
	ViewportHeight int
	Locale         string
	TimezoneID     string
}

type DatabaseConfig struct {
	Enabled  bool
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
	MaxConns int32
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Stream   string

	RelayInterval  time.Duration
	RelayBatchSize int
}

type LoggingConfig struct {
	Level  string
	Format string
}

// Load reads the configuration from the environment. Values from a .env file
// in the working directory are picked up when present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Port:            getEnvOrDefault("SERVER_PORT", "8080"),
			Host:            getEnvOrDefault("SERVER_HOST", "0.0.0.0"),
			ReadTimeout:     getDurationOrDefault("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout:    getDurationOrDefault("SERVER_WRITE_TIMEOUT", 60*time.Second),
			ShutdownTimeout: getDurationOrDefault("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second),
			AllowedOrigins:  getStringSliceOrDefault("CORS_ALLOWED_ORIGINS", []string{"http://localhost:*", "https://localhost:*"}),
		},
		Site: SiteConfig{
			BaseURL:           getEnvOrDefault("SITE_BASE_URL", "https://www.destockenligne.com"),
			PriceMultiplier:   getFloatOrDefault("PRICE_MULTIPLIER", 2.0),
			QtyMax:            getIntOrDefault("QTY_MAX", 10),
			OverridesFile:     getEnvOrDefault("OVERRIDES_FILE", "overrides.json"),
			StaticImagePrefix: getEnvOrDefault("STATIC_IMAGE_PREFIX", "/static/images/"),
			CommissionRate:    getFloatOrDefault("COMMISSION_RATE", 0.15),
		},
		Cache: CacheConfig{
			Duration: getDurationOrDefault("CACHE_DURATION", 300*time.Second),
			Size:     getIntOrDefault("CACHE_SIZE", 256),
			Shared:   getBoolOrDefault("CACHE_SHARED", false),
		},
		Scraper: ScraperConfig{
			FetchMode:      strings.ToLower(getEnvOrDefault("FETCH_MODE", FetchModeHTTP)),
			FetchTimeout:   getDurationOrDefault("FETCH_TIMEOUT", 12*time.Second),
			RateLimitMin:   getDurationOrDefault("SCRAPER_RATE_LIMIT_MIN", 0),
			RateLimitMax:   getDurationOrDefault("SCRAPER_RATE_LIMIT_MAX", 0),
			MaxRetries:     getIntOrDefault("SCRAPER_MAX_RETRIES", 1),
			AcceptLanguage: getEnvOrDefault("SCRAPER_ACCEPT_LANGUAGE", "fr-FR,fr;q=0.9,en;q=0.8"),
			UserAgents:     getStringSliceOrDefault("SCRAPER_USER_AGENTS", defaultUserAgents()),
		},
		Browser: BrowserConfig{
			Headless:       getBoolOrDefault("BROWSER_HEADLESS", true),
			Timeout:        getDurationOrDefault("BROWSER_TIMEOUT", 30*time.Second),
			ViewportWidth:  getIntOrDefault("BROWSER_VIEWPORT_WIDTH", 1920),
			ViewportHeight: getIntOrDefault("BROWSER_VIEWPORT_HEIGHT", 1080),
			Locale:         getEnvOrDefault("BROWSER_LOCALE", "fr-FR"),
			TimezoneID:     getEnvOrDefault("BROWSER_TIMEZONE", "Europe/Paris"),
		},
		Database: DatabaseConfig{
			Enabled:  getBoolOrDefault("DB_ENABLED", false),
			Host:     getEnvOrDefault("DB_HOST", "localhost"),
			Port:     getIntOrDefault("DB_PORT", 5432),
			User:     getEnvOrDefault("DB_USER", "postgres"),
			Password: getEnvOrDefault("DB_PASSWORD", ""),
			DBName:   getEnvOrDefault("DB_NAME", "storefront"),
			SSLMode:  getEnvOrDefault("DB_SSL_MODE", "disable"),
			MaxConns: int32(getIntOrDefault("DB_MAX_CONNS", 10)),
		},
		Redis: RedisConfig{
			Addr:     getEnvOrDefault("REDIS_ADDR", ""),
			Password: getEnvOrDefault("REDIS_PASSWORD", ""),
			DB:       getIntOrDefault("REDIS_DB", 0),
			Stream:   getEnvOrDefault("REDIS_STREAM", "stream:orders"),

			RelayInterval:  getDurationOrDefault("RELAY_INTERVAL", 5*time.Second),
			RelayBatchSize: getIntOrDefault("RELAY_BATCH_SIZE", 100),
		},
		Logging: LoggingConfig{
			Level:  getEnvOrDefault("LOG_LEVEL", "info"),
			Format: getEnvOrDefault("LOG_FORMAT", "json"),
		},
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Site.PriceMultiplier <= 0 {
		return fmt.Errorf("PRICE_MULTIPLIER must be greater than 0")
	}

	if c.Site.BaseURL == "" {
		return fmt.Errorf("SITE_BASE_URL is required")
	}

	if c.Site.QtyMax < 1 {
		return fmt.Errorf("QTY_MAX must be at least 1")
	}

	if c.Site.CommissionRate < 0 || c.Site.CommissionRate >= 1 {
		return fmt.Errorf("COMMISSION_RATE must be in [0, 1)")
	}

	if c.Cache.Size < 1 {
		return fmt.Errorf("CACHE_SIZE must be at least 1")
	}

	if c.Cache.Duration <= 0 {
		return fmt.Errorf("CACHE_DURATION must be positive")
	}

	if c.Scraper.FetchMode != FetchModeHTTP && c.Scraper.FetchMode != FetchModeBrowser {
		return fmt.Errorf("FETCH_MODE must be %q or %q", FetchModeHTTP, FetchModeBrowser)
	}

	if c.Scraper.RateLimitMin > c.Scraper.RateLimitMax {
		return fmt.Errorf("SCRAPER_RATE_LIMIT_MIN cannot be greater than SCRAPER_RATE_LIMIT_MAX")
	}

	if c.Cache.Shared && c.Redis.Addr == "" {
		return fmt.Errorf("CACHE_SHARED requires REDIS_ADDR")
	}

	return nil
}

// DatabaseURL builds the pgx connection string.
func (c DatabaseConfig) DatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode)
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

// getDurationOrDefault accepts Go durations ("12s") and bare integers, which
// are read as seconds.
func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
		if secs, err := strconv.Atoi(value); err == nil {
			return time.Duration(secs) * time.Second
		}
	}
	return defaultValue
}

func getStringSliceOrDefault(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		return out
	}
	return defaultValue
}

func defaultUserAgents() []string {
	return []string{
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
		"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
		"Mozilla/5.0 (X11; Linux x86_64; rv:125.0) Gecko/20100101 Firefox/125.0",
	}
}
