package browser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/maltedev/storefront-scraper/internal/scraper"
	"github.com/playwright-community/playwright-go"
)

// Browser renders storefront pages in headless Chromium. It implements
// scraper.Fetcher for sites that refuse plain HTTP clients.
type Browser struct {
	pw      *playwright.Playwright
	browser playwright.Browser
	context playwright.BrowserContext
	opts    Options
	mu      sync.Mutex
	logger  *slog.Logger
}

type Options struct {
	Headless       bool
	Timeout        time.Duration
	MaxRetries     int
	UserAgent      string
	ViewportWidth  int
	ViewportHeight int
	AcceptLanguage string
	TimezoneID     string
	Locale         string
	ProxyServer    string
	ExtraHeaders   map[string]string
}

func DefaultOptions() *Options {
	return &Options{
		Headless:       true,
		Timeout:        30 * time.Second,
		MaxRetries:     2,
		UserAgent:      "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
		ViewportWidth:  1920,
		ViewportHeight: 1080,
		AcceptLanguage: "fr-FR,fr;q=0.9,en;q=0.8",
		TimezoneID:     "Europe/Paris",
		Locale:         "fr-FR",
		ExtraHeaders: map[string]string{
			"Accept": "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8",
		},
	}
}

func New(opts *Options, logger *slog.Logger) (*Browser, error) {
	if opts == nil {
		opts = DefaultOptions()
	}
	if logger == nil {
		logger = slog.Default()
	}

	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("failed to start playwright: %w", err)
	}

	launchOpts := playwright.BrowserTypeLaunchOptions{
		Headless: &opts.Headless,
		Args: []string{
			"--disable-blink-features=AutomationControlled",
			"--disable-dev-shm-usage",
			"--no-sandbox",
		},
	}
	if opts.ProxyServer != "" {
		launchOpts.Proxy = &playwright.Proxy{Server: opts.ProxyServer}
	}

	browser, err := pw.Chromium.Launch(launchOpts)
	if err != nil {
		pw.Stop()
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	headers := make(map[string]string, len(opts.ExtraHeaders)+1)
	for k, v := range opts.ExtraHeaders {
		headers[k] = v
	}
	headers["Accept-Language"] = opts.AcceptLanguage

	bctx, err := browser.NewContext(playwright.BrowserNewContextOptions{
		UserAgent:         &opts.UserAgent,
		AcceptDownloads:   playwright.Bool(false),
		JavaScriptEnabled: playwright.Bool(true),
		Locale:            &opts.Locale,
		TimezoneId:        &opts.TimezoneID,
		Viewport: &playwright.Size{
			Width:  opts.ViewportWidth,
			Height: opts.ViewportHeight,
		},
		ExtraHttpHeaders: headers,
	})
	if err != nil {
		browser.Close()
		pw.Stop()
		return nil, fmt.Errorf("failed to create browser context: %w", err)
	}

	return &Browser{
		pw:      pw,
		browser: browser,
		context: bctx,
		opts:    *opts,
		logger:  logger.With("component", "browser"),
	}, nil
}

// Fetch navigates a fresh page to url and returns the rendered markup.
func (b *Browser) Fetch(ctx context.Context, url string) (string, error) {
	if url == "" {
		return "", scraper.ErrInvalidURL
	}
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("%w: %s: %v", scraper.ErrFetchFailed, url, err)
	}

	page, err := b.newPage()
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", scraper.ErrFetchFailed, url, err)
	}
	defer page.Close()

	// playwright calls are not context aware; closing the page aborts them.
	stop := context.AfterFunc(ctx, func() { page.Close() })
	defer stop()

	if err := b.navigateWithRetry(ctx, page, url); err != nil {
		return "", fmt.Errorf("%w: %s: %v", scraper.ErrFetchFailed, url, err)
	}

	content, err := page.Content()
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", scraper.ErrFetchFailed, url, err)
	}
	if scraper.IsChallengePage(content) {
		b.logger.Warn("anti-bot challenge served", "url", url)
		return "", fmt.Errorf("%w: %s: %w", scraper.ErrFetchFailed, url, scraper.ErrChallenge)
	}
	return content, nil
}

func (b *Browser) newPage() (playwright.Page, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	page, err := b.context.NewPage()
	if err != nil {
		return nil, fmt.Errorf("failed to create new page: %w", err)
	}
	page.SetDefaultTimeout(float64(b.opts.Timeout.Milliseconds()))
	return page, nil
}

func (b *Browser) navigateWithRetry(ctx context.Context, page playwright.Page, url string) error {
	attempts := max(b.opts.MaxRetries, 0) + 1
	var lastErr error

	for i := 0; i < attempts; i++ {
		if i > 0 {
			b.logger.Info("retrying navigation", "attempt", i+1, "url", url)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Duration(i) * time.Second):
			}
		}

		resp, err := page.Goto(url, playwright.PageGotoOptions{
			WaitUntil: playwright.WaitUntilStateDomcontentloaded,
			Timeout:   playwright.Float(float64(b.opts.Timeout.Milliseconds())),
		})
		if err == nil {
			err = checkResponse(resp)
			if err == nil {
				return nil
			}
			if errors.Is(err, errClientStatus) {
				return err
			}
		}

		lastErr = err
		b.logger.Warn("navigation failed", "error", err, "attempt", i+1, "url", url)
	}

	return fmt.Errorf("failed after %d attempts: %w", attempts, lastErr)
}

var errClientStatus = errors.New("client error status")

func checkResponse(resp playwright.Response) error {
	if resp == nil {
		return nil
	}
	status := resp.Status()
	switch {
	case status >= 500:
		return fmt.Errorf("server error status %d", status)
	case status >= 400:
		return fmt.Errorf("%w %d", errClientStatus, status)
	}
	return nil
}

func (b *Browser) Close() error {
	var errs []error

	if b.context != nil {
		if err := b.context.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close context: %w", err))
		}
	}
	if b.browser != nil {
		if err := b.browser.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close browser: %w", err))
		}
	}
	if b.pw != nil {
		if err := b.pw.Stop(); err != nil {
			errs = append(errs, fmt.Errorf("failed to stop playwright: %w", err))
		}
	}

	return errors.Join(errs...)
}
