// Package commands implements the catalog CLI, a terminal view of the
// storefront catalog that goes through the same extraction pipeline as the
// API server.
package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/maltedev/storefront-scraper/internal/app"
	"github.com/maltedev/storefront-scraper/internal/catalog"
	"github.com/maltedev/storefront-scraper/internal/config"
	"github.com/maltedev/storefront-scraper/internal/models"
	"github.com/maltedev/storefront-scraper/internal/overrides"
	"github.com/spf13/cobra"
)

// Catalog is the part of the catalog facade the commands read from.
type Catalog interface {
	ListCategories(ctx context.Context) *models.Categories
	ListCategoryProducts(ctx context.Context, path string, page int) catalog.CategoryPage
	GetProductPage(ctx context.Context, path string, page int) models.ProductDetail
	Search(ctx context.Context, query string) []models.ProductSummary
	GenderSections(ctx context.Context) map[string][]models.NavLink
	HomeProducts(ctx context.Context, gender string) []models.ProductSummary
}

var (
	flagJSON    bool
	flagVerbose bool

	// openCatalog builds the catalog from the environment. Tests swap it.
	openCatalog = func(logger *slog.Logger) (Catalog, func(), error) {
		cfg, err := config.Load()
		if err != nil {
			return nil, nil, err
		}
		if err := cfg.Validate(); err != nil {
			return nil, nil, err
		}

		fetcher, closeFetcher, err := app.NewFetcher(cfg, logger)
		if err != nil {
			return nil, nil, err
		}
		c := app.NewCatalog(cfg, fetcher, nil, logger)
		return c.Service, func() { _ = closeFetcher() }, nil
	}

	// readOverrides loads an override file the way the server does.
	readOverrides = overrides.ReadTable
)

var rootCmd = &cobra.Command{
	Use:   "catalog-cli",
	Short: "Browse the reseller storefront catalog from the terminal",
	Long: `catalog-cli fetches storefront pages, extracts them with the price
multiplier and overrides applied, and prints the result as tables.

Configuration comes from the same environment variables as the server
(SITE_BASE_URL, PRICE_MULTIPLIER, OVERRIDES_FILE, FETCH_MODE...).`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&flagJSON, "json", false, "Print raw JSON instead of tables")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "Log fetches to stderr")
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func logger() *slog.Logger {
	level := slog.LevelWarn
	if flagVerbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// withCatalog opens the catalog for the duration of fn.
func withCatalog(cmd *cobra.Command, fn func(c Catalog) error) error {
	c, closeFn, err := openCatalog(logger())
	if err != nil {
		return fmt.Errorf("failed to open catalog: %w", err)
	}
	defer closeFn()
	return fn(c)
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
