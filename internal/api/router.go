package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

type RouterOptions struct {
	AllowedOrigins []string
	RequestTimeout time.Duration
}

func NewRouter(h *Handlers, opts RouterOptions) http.Handler {
	if len(opts.AllowedOrigins) == 0 {
		opts.AllowedOrigins = []string{"http://localhost:*", "https://localhost:*"}
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 60 * time.Second
	}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(opts.RequestTimeout))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", UserIDHeader},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", h.Health)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/categories", h.ListCategories)
		r.Get("/category", h.GetCategory)
		r.Get("/product", h.GetProduct)
		r.Get("/search", h.Search)
		r.Get("/sections", h.GenderSections)
		r.Get("/home", h.Home)

		r.Route("/admin", func(r chi.Router) {
			r.Get("/overrides", h.ListOverrides)
			r.Post("/overrides/reload", h.ReloadOverrides)
			r.Post("/cache/clear", h.ClearCache)
		})

		r.Group(func(r chi.Router) {
			r.Use(RequireUser)

			r.Get("/cart", h.GetCart)
			r.Post("/cart", h.AddToCart)
			r.Delete("/cart", h.ClearCart)
			r.Delete("/cart/{itemID}", h.RemoveFromCart)

			r.Post("/checkout", h.Checkout)
			r.Get("/orders", h.ListOrders)
		})
	})

	return r
}
