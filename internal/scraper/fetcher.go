package scraper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"net/http"
	"strings"
	"time"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/go-resty/resty/v2"
	"github.com/maltedev/storefront-scraper/internal/ratelimit"
)

var (
	ErrFetchFailed = errors.New("fetch failed")
	ErrInvalidURL  = errors.New("invalid storefront URL")
	ErrChallenge   = errors.New("anti-bot challenge page")
)

// Fetcher retrieves the markup of one storefront page.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

type Options struct {
	Timeout        time.Duration
	MaxRetries     int
	RateLimitMin   time.Duration
	RateLimitMax   time.Duration
	AcceptLanguage string
	UserAgents     []string
}

func DefaultOptions() Options {
	return Options{
		Timeout:        12 * time.Second,
		MaxRetries:     1,
		AcceptLanguage: "fr-FR,fr;q=0.9,en;q=0.8",
		UserAgents: []string{
			"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
		},
	}
}

// HTTPFetcher fetches pages over plain HTTP with browser-like headers.
type HTTPFetcher struct {
	client     *resty.Client
	limiter    *ratelimit.AdaptiveRateLimiter
	userAgents []string
	logger     *slog.Logger
}

func NewHTTPFetcher(opts Options, logger *slog.Logger) *HTTPFetcher {
	defaults := DefaultOptions()
	if opts.Timeout <= 0 {
		opts.Timeout = defaults.Timeout
	}
	if opts.AcceptLanguage == "" {
		opts.AcceptLanguage = defaults.AcceptLanguage
	}
	if len(opts.UserAgents) == 0 {
		opts.UserAgents = defaults.UserAgents
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}
	if logger == nil {
		logger = slog.Default()
	}

	client := resty.New()
	client.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(client.GetClient().Transport)
	client.SetTimeout(opts.Timeout)
	client.SetHeader("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8")
	client.SetHeader("Accept-Language", opts.AcceptLanguage)
	client.SetRetryCount(opts.MaxRetries)
	client.SetRetryWaitTime(500 * time.Millisecond)
	client.AddRetryCondition(func(r *resty.Response, err error) bool {
		return err == nil && r.StatusCode() >= http.StatusInternalServerError
	})

	limiter := ratelimit.NewAdaptiveRateLimiter(opts.RateLimitMin, opts.RateLimitMax)
	limiter.SetCeiling(min(ratelimit.DefaultBackoffCeiling, opts.Timeout/4))

	return &HTTPFetcher{
		client:     client,
		limiter:    limiter,
		userAgents: opts.UserAgents,
		logger:     logger.With("component", "fetcher"),
	}
}

// Fetch returns the page body. Transport errors and non-2xx statuses are
// reported as ErrFetchFailed.
func (f *HTTPFetcher) Fetch(ctx context.Context, url string) (string, error) {
	if url == "" {
		return "", ErrInvalidURL
	}
	if err := f.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrFetchFailed, url, err)
	}

	start := time.Now()
	resp, err := f.client.R().
		SetContext(ctx).
		SetHeader("User-Agent", f.userAgent()).
		Get(url)
	if err != nil {
		f.limiter.RecordError()
		f.logger.Warn("request failed", "url", url, "error", err)
		return "", fmt.Errorf("%w: %s: %v", ErrFetchFailed, url, err)
	}
	if !resp.IsSuccess() {
		if upstreamTrouble(resp.StatusCode()) {
			f.limiter.RecordError()
		}
		f.logger.Warn("unexpected status", "url", url, "status", resp.StatusCode())
		return "", fmt.Errorf("%w: %s: status %d", ErrFetchFailed, url, resp.StatusCode())
	}

	body := resp.String()
	if IsChallengePage(body) {
		f.limiter.RecordError()
		f.logger.Warn("anti-bot challenge served", "url", url)
		return "", fmt.Errorf("%w: %s: %w", ErrFetchFailed, url, ErrChallenge)
	}

	f.limiter.RecordSuccess()
	f.logger.Debug("page fetched", "url", url, "bytes", len(resp.Body()), "duration", time.Since(start))
	return body, nil
}

// upstreamTrouble reports whether status says the site is struggling or
// throttling us. Client errors such as 404 are about the path, not the site.
func upstreamTrouble(status int) bool {
	return status >= http.StatusInternalServerError || status == http.StatusTooManyRequests
}

func (f *HTTPFetcher) userAgent() string {
	return f.userAgents[rand.Intn(len(f.userAgents))]
}

// IsChallengePage reports whether markup is an anti-bot interstitial rather
// than a storefront page.
func IsChallengePage(markup string) bool {
	lower := strings.ToLower(markup)
	for _, marker := range challengeMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

var challengeMarkers = []string{
	"cf-browser-verification",
	"challenge-platform",
	"<title>just a moment...</title>",
	"attention required! | cloudflare",
}
