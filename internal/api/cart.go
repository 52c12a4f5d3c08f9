package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/maltedev/storefront-scraper/internal/database"
	"github.com/maltedev/storefront-scraper/internal/models"
	"github.com/maltedev/storefront-scraper/internal/parser"
	"github.com/shopspring/decimal"
)

const UserIDHeader = "X-User-ID"

type CartStore interface {
	Add(ctx context.Context, item *database.CartItem) error
	List(ctx context.Context, userID string) ([]database.CartItem, error)
	Remove(ctx context.Context, userID string, id uuid.UUID) error
	Clear(ctx context.Context, userID string) error
}

type OrderPlacer interface {
	PlaceOrder(ctx context.Context, userID string, details database.OrderDetails) (*database.Order, error)
	Orders(ctx context.Context, userID string) ([]database.Order, error)
}

type userKey struct{}

// RequireUser rejects requests without an X-User-ID header. The id is an
// opaque token; no authentication happens here.
func RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID := strings.TrimSpace(r.Header.Get(UserIDHeader))
		if userID == "" {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": UserIDHeader + " header is required"})
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userKey{}, userID)))
	})
}

func userID(r *http.Request) string {
	id, _ := r.Context().Value(userKey{}).(string)
	return id
}

// AddToCartRequest names the line to add. Price is accepted for older clients
// but ignored: the server prices the line from the catalog.
type AddToCartRequest struct {
	Path  string `json:"path"`
	Name  string `json:"name"`
	Image string `json:"image"`
	Size  string `json:"size"`
	Qty   int    `json:"qty"`
	Price string `json:"price,omitempty"`
}

type CartResponse struct {
	Items      []database.CartItem `json:"items"`
	Count      int                 `json:"count"`
	Total      string              `json:"total"`
	TotalValue decimal.Decimal     `json:"total_value"`
}

func newCartResponse(items []database.CartItem) CartResponse {
	total := database.CartTotal(items)
	return CartResponse{
		Items:      items,
		Count:      len(items),
		Total:      parser.FormatPrice(total),
		TotalValue: total,
	}
}

// parseDisplayPrice reads a price as the storefront displays it, such as
// "€ 99.80" or "99,80 €".
func parseDisplayPrice(raw string) (decimal.Decimal, error) {
	cleaned := strings.NewReplacer("€", "", " ", "", "\u00a0", "", ",", ".").Replace(raw)
	if cleaned == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(cleaned)
}

// linePrice is the unit price shown on the product page. The displayed price
// carries any override; PriceValue is the scraped value behind it.
func linePrice(detail models.ProductDetail) (decimal.Decimal, bool) {
	if price, err := parseDisplayPrice(detail.NewPrice); err == nil && price.IsPositive() {
		return price, true
	}
	if detail.PriceValue.IsPositive() {
		return detail.PriceValue, true
	}
	return decimal.Zero, false
}

// pickSize checks size against the sizes the page offers. An empty size is
// accepted only when there is a single choice.
func pickSize(offered []string, size string) (string, bool) {
	if size == "" {
		if len(offered) == 1 {
			return offered[0], true
		}
		return "", len(offered) == 0
	}
	if len(offered) == 0 {
		return size, true
	}
	for _, s := range offered {
		if strings.EqualFold(s, size) {
			return s, true
		}
	}
	return "", false
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func (h *Handlers) GetCart(w http.ResponseWriter, r *http.Request) {
	if !h.cartsAvailable(w) {
		return
	}

	items, err := h.carts.List(r.Context(), userID(r))
	if err != nil {
		h.logger.Error("failed to list cart", "error", err, "user_id", userID(r))
		h.respondError(w, http.StatusInternalServerError, "failed to load cart")
		return
	}

	h.respondJSON(w, http.StatusOK, newCartResponse(items))
}

func (h *Handlers) AddToCart(w http.ResponseWriter, r *http.Request) {
	if !h.cartsAvailable(w) {
		return
	}

	var req AddToCartRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Qty == 0 {
		req.Qty = 1
	}
	if h.qtyMax > 0 && req.Qty > h.qtyMax {
		h.respondError(w, http.StatusBadRequest, "quantity exceeds the maximum per line")
		return
	}

	path := parser.PathOnly(strings.TrimSpace(req.Path))
	if path == "" {
		h.respondError(w, http.StatusBadRequest, "product path is required")
		return
	}

	detail := h.catalog.GetProductPage(r.Context(), path, 1)
	if detail.IsCategory || detail.Empty() {
		h.respondError(w, http.StatusNotFound, "product not available")
		return
	}

	price, ok := linePrice(detail)
	if !ok {
		h.respondError(w, http.StatusUnprocessableEntity, "product has no price")
		return
	}

	size, ok := pickSize(detail.Sizes, strings.TrimSpace(req.Size))
	if !ok {
		h.respondError(w, http.StatusBadRequest, "size is not offered for this product")
		return
	}

	item := &database.CartItem{
		UserID: userID(r),
		Path:   path,
		Name:   firstNonEmpty(detail.Title, strings.TrimSpace(req.Name)),
		Image:  firstNonEmpty(detail.MainImg, req.Image),
		Size:   size,
		Qty:    req.Qty,
		Price:  price,
	}

	if err := h.carts.Add(r.Context(), item); err != nil {
		if errors.Is(err, database.ErrInvalidCartItem) {
			h.respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.Error("failed to add to cart", "error", err, "user_id", item.UserID, "path", item.Path)
		h.respondError(w, http.StatusInternalServerError, "failed to add to cart")
		return
	}

	h.respondJSON(w, http.StatusCreated, item)
}

func (h *Handlers) RemoveFromCart(w http.ResponseWriter, r *http.Request) {
	if !h.cartsAvailable(w) {
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "itemID"))
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid item id")
		return
	}

	if err := h.carts.Remove(r.Context(), userID(r), id); err != nil {
		if errors.Is(err, database.ErrCartItemNotFound) {
			h.respondError(w, http.StatusNotFound, "cart item not found")
			return
		}
		h.logger.Error("failed to remove cart item", "error", err, "item_id", id)
		h.respondError(w, http.StatusInternalServerError, "failed to remove cart item")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) ClearCart(w http.ResponseWriter, r *http.Request) {
	if !h.cartsAvailable(w) {
		return
	}

	if err := h.carts.Clear(r.Context(), userID(r)); err != nil {
		h.logger.Error("failed to clear cart", "error", err, "user_id", userID(r))
		h.respondError(w, http.StatusInternalServerError, "failed to clear cart")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) Checkout(w http.ResponseWriter, r *http.Request) {
	if h.orders == nil {
		h.respondError(w, http.StatusServiceUnavailable, "checkout is not configured")
		return
	}

	var details database.OrderDetails
	if err := json.NewDecoder(r.Body).Decode(&details); err != nil && !errors.Is(err, io.EOF) {
		h.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	order, err := h.orders.PlaceOrder(r.Context(), userID(r), details)
	if err != nil {
		if errors.Is(err, database.ErrEmptyCart) {
			h.respondError(w, http.StatusBadRequest, "cart is empty")
			return
		}
		h.logger.Error("checkout failed", "error", err, "user_id", userID(r))
		h.respondError(w, http.StatusInternalServerError, "checkout failed")
		return
	}

	h.respondJSON(w, http.StatusCreated, order)
}

func (h *Handlers) ListOrders(w http.ResponseWriter, r *http.Request) {
	if h.orders == nil {
		h.respondError(w, http.StatusServiceUnavailable, "checkout is not configured")
		return
	}

	orders, err := h.orders.Orders(r.Context(), userID(r))
	if err != nil {
		h.logger.Error("failed to list orders", "error", err, "user_id", userID(r))
		h.respondError(w, http.StatusInternalServerError, "failed to list orders")
		return
	}

	h.respondJSON(w, http.StatusOK, orders)
}

func (h *Handlers) cartsAvailable(w http.ResponseWriter) bool {
	if h.carts == nil {
		h.respondError(w, http.StatusServiceUnavailable, "cart storage is not configured")
		return false
	}
	return true
}
