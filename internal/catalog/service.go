package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/maltedev/storefront-scraper/internal/cache"
	"github.com/maltedev/storefront-scraper/internal/models"
	"github.com/maltedev/storefront-scraper/internal/parser"
	"github.com/maltedev/storefront-scraper/internal/scraper"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

const (
	GenderAll   = "all"
	homePerAll  = 4
	homePerOne  = 12
	searchPages = 3
)

// GenderPaths are the top-level listing pages per audience.
var GenderPaths = map[string]string{
	"homme":  "/Chaussures-Homme-c100.html",
	"femme":  "/Chaussures-Femme-c101.html",
	"enfant": "/Chaussures-Enfant-c102.html",
}

// Genders fixes the display order of GenderPaths.
var Genders = []string{"homme", "femme", "enfant"}

// SearchPaths are the listings scanned by Search.
var SearchPaths = []string{
	"/Chaussures-Homme-c100.html",
	"/Chaussures-Femme-c101.html",
	"/Chaussures-Enfant-c102.html",
	"/Chaussures-de-Sport-Homme-c103.html",
	"/Chaussures-de-Sport-Femme-c104.html",
	"/Baskets-Homme-c105.html",
	"/Baskets-Femme-c106.html",
}

// CategoryPage is one fetched page of a listing.
type CategoryPage struct {
	Products []models.ProductSummary `json:"products"`
	Paging   models.Pagination       `json:"paging"`
}

// Reloader re-reads the override table and reports the active rule count.
type Reloader interface {
	Reload() int
}

type Options struct {
	CacheSize int
	CacheTTL  time.Duration
	Redis     cache.RedisClient
}

// Service is the catalog facade. Every read degrades to an empty result when
// the storefront cannot be fetched; failed reads are not cached.
type Service struct {
	fetcher   scraper.Fetcher
	extractor *parser.Extractor
	overrides Reloader

	mu         sync.RWMutex
	categories *models.Categories

	listings *cache.Cache[CategoryPage]
	products *cache.Cache[models.ProductDetail]
	sections *cache.Cache[[]models.NavLink]
	group    singleflight.Group

	logger *slog.Logger
}

func NewService(fetcher scraper.Fetcher, extractor *parser.Extractor, overrides Reloader, opts Options, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "catalog")

	newCache := func(name string) cache.Options {
		return cache.Options{Name: name, Size: opts.CacheSize, TTL: opts.CacheTTL, Redis: opts.Redis}
	}

	return &Service{
		fetcher:   fetcher,
		extractor: extractor,
		overrides: overrides,
		listings:  cache.New[CategoryPage](newCache("listings"), logger),
		products:  cache.New[models.ProductDetail](newCache("products"), logger),
		sections:  cache.New[[]models.NavLink](newCache("sections"), logger),
		logger:    logger,
	}
}

// ListCategories returns the sidebar brand tree. The first successful result
// is kept until ClearCache.
func (s *Service) ListCategories(ctx context.Context) *models.Categories {
	s.mu.RLock()
	memo := s.categories
	s.mu.RUnlock()
	if memo != nil {
		return memo
	}

	v, _, _ := s.group.Do("categories", func() (interface{}, error) {
		markup, ok := s.fetch(ctx, "/")
		if !ok {
			return models.NewCategories(), nil
		}
		categories := s.extractor.ExtractCategories(parser.NewDocument(markup))

		s.mu.Lock()
		s.categories = categories
		s.mu.Unlock()
		return categories, nil
	})
	return v.(*models.Categories)
}

// ListCategoryProducts returns one page of a listing.
func (s *Service) ListCategoryProducts(ctx context.Context, path string, page int) CategoryPage {
	if page < 1 {
		page = 1
	}
	empty := CategoryPage{Products: make([]models.ProductSummary, 0), Paging: models.NewPagination(page)}
	if path == "" {
		return empty
	}

	key := fmt.Sprintf("%s#%d", path, page)
	if cached, ok := s.listings.Get(ctx, key); ok {
		return cached
	}

	v, _, _ := s.group.Do("listing:"+key, func() (interface{}, error) {
		if cached, ok := s.listings.Get(ctx, key); ok {
			return cached, nil
		}
		markup, ok := s.fetch(ctx, parser.PagePath(path, page))
		if !ok {
			return empty, nil
		}
		doc := parser.NewDocument(markup)
		result := CategoryPage{
			Products: s.extractor.ExtractProducts(doc),
			Paging:   s.extractor.ExtractPaging(doc, path, page),
		}
		s.listings.Set(ctx, key, result)
		return result, nil
	})
	return v.(CategoryPage)
}

// GetProduct returns the product page at path. Paths that turn out to be
// listings come back with IsCategory set.
func (s *Service) GetProduct(ctx context.Context, path string) models.ProductDetail {
	return s.GetProductPage(ctx, path, 1)
}

// GetProductPage is GetProduct for a given page of a disguised listing.
func (s *Service) GetProductPage(ctx context.Context, path string, page int) models.ProductDetail {
	if page < 1 {
		page = 1
	}
	key := fmt.Sprintf("%s#%d", path, page)
	if cached, ok := s.products.Get(ctx, key); ok {
		return cached
	}

	v, _, _ := s.group.Do("product:"+key, func() (interface{}, error) {
		if cached, ok := s.products.Get(ctx, key); ok {
			return cached, nil
		}
		fetchPath := path
		if page > 1 {
			fetchPath = parser.PagePath(path, page)
		}
		markup, ok := s.fetch(ctx, fetchPath)
		if !ok {
			return models.ProductDetail{
				Path:       path,
				URL:        s.extractor.Normalize(fetchPath),
				Breadcrumb: make([]models.Crumb, 0),
				NavLinks:   make([]models.NavLink, 0),
			}, nil
		}
		detail := s.extractor.ExtractDetail(parser.NewDocument(markup), path, page)
		s.products.Set(ctx, key, detail)
		return detail, nil
	})
	return v.(models.ProductDetail)
}

// Search scans the first pages of the main listings for products whose name
// contains query, ignoring case. Results keep listing order without
// duplicates.
func (s *Service) Search(ctx context.Context, query string) []models.ProductSummary {
	results := make([]models.ProductSummary, 0)
	needle := strings.ToLower(strings.TrimSpace(query))
	if needle == "" {
		return results
	}

	found := make([][]models.ProductSummary, len(SearchPaths))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(3)
	for i, path := range SearchPaths {
		i, path := i, path
		g.Go(func() error {
			for page := 1; page <= searchPages; page++ {
				listing := s.ListCategoryProducts(gctx, path, page)
				for _, p := range listing.Products {
					if strings.Contains(strings.ToLower(p.Name), needle) {
						found[i] = append(found[i], p)
					}
				}
				if !listing.Paging.HasNext {
					break
				}
			}
			return nil
		})
	}
	_ = g.Wait()

	seen := make(map[string]bool)
	for _, batch := range found {
		for _, p := range batch {
			if seen[p.Path] {
				continue
			}
			seen[p.Path] = true
			results = append(results, p)
		}
	}

	s.logger.Debug("search finished", "query", query, "results", len(results))
	return results
}

// GenderSections returns the quick links of each audience's landing page.
func (s *Service) GenderSections(ctx context.Context) map[string][]models.NavLink {
	out := make(map[string][]models.NavLink, len(Genders))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	for _, gender := range Genders {
		gender := gender
		g.Go(func() error {
			links := s.genderSection(gctx, gender)
			mu.Lock()
			out[gender] = links
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return out
}

func (s *Service) genderSection(ctx context.Context, gender string) []models.NavLink {
	if cached, ok := s.sections.Get(ctx, gender); ok {
		return cached
	}

	v, _, _ := s.group.Do("section:"+gender, func() (interface{}, error) {
		if cached, ok := s.sections.Get(ctx, gender); ok {
			return cached, nil
		}
		markup, ok := s.fetch(ctx, GenderPaths[gender])
		if !ok {
			return make([]models.NavLink, 0), nil
		}
		links := s.extractor.ExtractNavLinks(parser.NewDocument(markup))
		s.sections.Set(ctx, gender, links)
		return links, nil
	})
	return v.([]models.NavLink)
}

// HomeProducts picks the landing page products: the first few of every
// audience for "all", or a longer run of one audience.
func (s *Service) HomeProducts(ctx context.Context, gender string) []models.ProductSummary {
	products := make([]models.ProductSummary, 0)
	gender = strings.ToLower(strings.TrimSpace(gender))

	if gender == "" || gender == GenderAll {
		for _, g := range Genders {
			listing := s.ListCategoryProducts(ctx, GenderPaths[g], 1)
			products = append(products, head(listing.Products, homePerAll)...)
		}
		return products
	}

	path, ok := GenderPaths[gender]
	if !ok {
		return products
	}
	listing := s.ListCategoryProducts(ctx, path, 1)
	return append(products, head(listing.Products, homePerOne)...)
}

// ReloadOverrides re-reads the override table and drops every cached
// extraction, since overrides are applied at extraction time.
func (s *Service) ReloadOverrides(ctx context.Context) int {
	rules := 0
	if s.overrides != nil {
		rules = s.overrides.Reload()
	}
	s.purgeExtractions(ctx)
	s.logger.Info("overrides reloaded", "rules", rules)
	return rules
}

// ClearCache drops every cached result, including the category tree.
func (s *Service) ClearCache(ctx context.Context) {
	s.mu.Lock()
	s.categories = nil
	s.mu.Unlock()

	s.purgeExtractions(ctx)
	if err := s.sections.Purge(ctx); err != nil {
		s.logger.Warn("failed to purge sections cache", "error", err)
	}
	s.logger.Info("catalog cache cleared")
}

func (s *Service) purgeExtractions(ctx context.Context) {
	if err := s.listings.Purge(ctx); err != nil {
		s.logger.Warn("failed to purge listings cache", "error", err)
	}
	if err := s.products.Purge(ctx); err != nil {
		s.logger.Warn("failed to purge products cache", "error", err)
	}
}

// fetch downloads a site path. Failures are logged and reported as !ok.
func (s *Service) fetch(ctx context.Context, path string) (string, bool) {
	url := s.extractor.Normalize(path)
	markup, err := s.fetcher.Fetch(ctx, url)
	if err != nil {
		s.logger.Warn("fetch failed, returning empty result", "url", url, "error", err)
		return "", false
	}
	if strings.TrimSpace(markup) == "" {
		s.logger.Warn("empty page", "url", url)
		return "", false
	}
	return markup, true
}

func head(products []models.ProductSummary, n int) []models.ProductSummary {
	if len(products) > n {
		return products[:n]
	}
	return products
}
