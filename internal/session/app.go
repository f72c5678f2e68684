package session

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"StoreFront/internal/storage"
	"StoreFront/pkg/kit"
)

type HTTPDeps struct {
	Log      *zap.Logger
	Service  string
	Registry *prometheus.Registry

	MetricsEnabled bool
	MetricsToken   string

	JWT       *TokenMaker
	RateLimit *kit.IPRateLimiter
	Storage   storage.Storage
}

func NewHandler(s *Server, deps HTTPDeps) http.Handler {
	r := chi.NewRouter()

	setupMiddleware(r, deps)
	setupMetrics(r, deps)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })

	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 1*time.Second)
		defer cancel()

		if err := deps.Storage.Ping(ctx); err != nil {
			if s.Log != nil {
				s.Log.Warn("readyz failed", zap.Error(err))
			}
			kit.WriteError(w, r, http.StatusServiceUnavailable, "not ready", nil)
			return
		}
		w.WriteHeader(http.StatusOK)
	})

	r.Group(func(pr chi.Router) {
		if deps.RateLimit != nil {
			pr.Use(deps.RateLimit.Middleware)
		}
		pr.Use(WithSession)
		pr.Use(OptionalIdentity(deps.JWT))

		pr.Get("/cart", s.getCart)
		pr.Post("/cart/items", s.addCartItem)
		pr.Patch("/cart/items/{id}", s.updateCartItem)
		pr.Delete("/cart/items/{id}", s.removeCartItem)
		pr.Delete("/cart", s.clearCart)

		pr.Get("/wishlist", s.getWishlist)
		pr.Post("/wishlist/toggle", s.toggleWishlist)
		pr.Delete("/wishlist/{productID}", s.removeWishlistItem)

		pr.Get("/comparison", s.getComparison)
		pr.Post("/comparison/items", s.addComparisonItem)
		pr.Delete("/comparison/items/{id}", s.removeComparisonItem)
		pr.Delete("/comparison", s.clearComparison)

		pr.Post("/session/route", s.setRoute)

		pr.Get("/abandoned", s.listAbandoned)
		pr.Post("/abandoned/{id}/recovered", s.markRecovered)

		pr.Get("/tracking/{orderID}", s.getTracking)
		pr.Post("/tracking/batch", s.batchTracking)
	})

	return r
}

func setupMiddleware(r *chi.Mux, deps HTTPDeps) {
	r.Use(chimw.RequestID)
	r.Use(kit.Recoverer)
	r.Use(kit.Logging(deps.Log))
}

func setupMetrics(r *chi.Mux, deps HTTPDeps) {
	if deps.Registry == nil {
		return
	}

	metrics := kit.NewMetrics(deps.Registry)
	r.Use(metrics.Middleware(deps.Service, kit.ChiRoutePatternOrPath))

	if !deps.MetricsEnabled {
		return
	}

	r.With(kit.MetricsAuth(deps.MetricsToken)).
		Handle("/metrics", promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{}))
}
