package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/maltedev/storefront-scraper/internal/catalog"
	"github.com/maltedev/storefront-scraper/internal/database"
	"github.com/maltedev/storefront-scraper/internal/models"
	"github.com/maltedev/storefront-scraper/internal/overrides"
	"github.com/maltedev/storefront-scraper/internal/parser"
)

// Catalog is the read side of the storefront.
type Catalog interface {
	ListCategories(ctx context.Context) *models.Categories
	ListCategoryProducts(ctx context.Context, path string, page int) catalog.CategoryPage
	GetProductPage(ctx context.Context, path string, page int) models.ProductDetail
	Search(ctx context.Context, query string) []models.ProductSummary
	GenderSections(ctx context.Context) map[string][]models.NavLink
	HomeProducts(ctx context.Context, gender string) []models.ProductSummary
	ReloadOverrides(ctx context.Context) int
	ClearCache(ctx context.Context)
}

type OverrideTable interface {
	Snapshot() overrides.Table
}

type OutboxStats interface {
	Stats(ctx context.Context) (database.RelayStats, error)
}

// Deps wires the handlers. Carts, Orders and Outbox are optional; the
// endpoints that need them answer 503 when they are missing.
type Deps struct {
	Catalog   Catalog
	Overrides OverrideTable
	Carts     CartStore
	Orders    OrderPlacer
	Outbox    OutboxStats
	QtyMax    int
}

type Handlers struct {
	catalog   Catalog
	overrides OverrideTable
	carts     CartStore
	orders    OrderPlacer
	outbox    OutboxStats
	qtyMax    int
	logger    *slog.Logger
}

func NewHandlers(deps Deps, logger *slog.Logger) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handlers{
		catalog:   deps.Catalog,
		overrides: deps.Overrides,
		carts:     deps.Carts,
		orders:    deps.Orders,
		outbox:    deps.Outbox,
		qtyMax:    deps.QtyMax,
		logger:    logger.With("component", "api"),
	}
}

func (h *Handlers) ListCategories(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, h.catalog.ListCategories(r.Context()))
}

func (h *Handlers) GetCategory(w http.ResponseWriter, r *http.Request) {
	path := pathParam(r)
	if path == "" {
		h.respondError(w, http.StatusBadRequest, "path is required")
		return
	}

	h.respondJSON(w, http.StatusOK, h.catalog.ListCategoryProducts(r.Context(), path, pageParam(r)))
}

// GetProduct answers with the product page, or with the listing when the
// path turns out to be a category.
func (h *Handlers) GetProduct(w http.ResponseWriter, r *http.Request) {
	path := pathParam(r)
	if path == "" {
		h.respondError(w, http.StatusBadRequest, "path is required")
		return
	}

	detail := h.catalog.GetProductPage(r.Context(), path, pageParam(r))
	if detail.Empty() {
		h.respondJSON(w, http.StatusNotFound, map[string]interface{}{
			"error":  "product not found",
			"detail": detail,
		})
		return
	}

	h.respondJSON(w, http.StatusOK, detail)
}

type SearchResponse struct {
	Query    string                  `json:"query"`
	Count    int                     `json:"count"`
	Products []models.ProductSummary `json:"products"`
}

func (h *Handlers) Search(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	products := h.catalog.Search(r.Context(), query)

	h.respondJSON(w, http.StatusOK, SearchResponse{
		Query:    query,
		Count:    len(products),
		Products: products,
	})
}

func (h *Handlers) GenderSections(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, h.catalog.GenderSections(r.Context()))
}

func (h *Handlers) Home(w http.ResponseWriter, r *http.Request) {
	gender := r.URL.Query().Get("gender")
	if gender == "" {
		gender = catalog.GenderAll
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"gender":   gender,
		"products": h.catalog.HomeProducts(r.Context(), gender),
	})
}

func (h *Handlers) ReloadOverrides(w http.ResponseWriter, r *http.Request) {
	rules := h.catalog.ReloadOverrides(r.Context())
	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"status": "reloaded",
		"rules":  rules,
	})
}

func (h *Handlers) ListOverrides(w http.ResponseWriter, r *http.Request) {
	table := overrides.Table{}
	if h.overrides != nil {
		table = h.overrides.Snapshot()
	}
	h.respondJSON(w, http.StatusOK, table)
}

func (h *Handlers) ClearCache(w http.ResponseWriter, r *http.Request) {
	h.catalog.ClearCache(r.Context())
	h.respondJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}

// Health reports ok, degrading on a large outbox backlog the way the relay
// dashboards expect.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	health := map[string]interface{}{"status": "ok"}
	status := http.StatusOK

	if h.outbox != nil {
		stats, err := h.outbox.Stats(r.Context())
		if err != nil {
			h.logger.Warn("failed to read outbox stats", "error", err)
			health["status"] = "warning"
			health["message"] = "outbox stats unavailable"
		} else {
			health["outbox"] = stats
			if stats.Pending > 1000 {
				health["status"] = "warning"
				health["message"] = "High number of pending outbox events"
			}
			if stats.DeadLetter > 100 {
				health["status"] = "error"
				health["message"] = "High number of dead letter events"
				status = http.StatusServiceUnavailable
			}
		}
	}

	h.respondJSON(w, status, health)
}

func pathParam(r *http.Request) string {
	return parser.PathOnly(strings.TrimSpace(r.URL.Query().Get("path")))
}

func pageParam(r *http.Request) int {
	page, err := strconv.Atoi(r.URL.Query().Get("page"))
	if err != nil || page < 1 {
		return 1
	}
	return page
}

func (h *Handlers) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

func (h *Handlers) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, map[string]string{"error": message})
}
