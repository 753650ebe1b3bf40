package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/trexinity/another/pkg/auth"
	"github.com/trexinity/another/pkg/logger"
)

// Routes builds the chi router.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logger.HTTPMiddleware(h.Logger))
	r.Use(h.observe)
	r.Use(middleware.Recoverer)

	r.Get("/health", h.health)
	r.Get("/ready", h.ready)
	r.Handle(h.MetricsPath, h.Metrics.Handler())
	if h.Assets != nil {
		r.Handle("/uploads/*", http.StripPrefix("/uploads", h.Assets))
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(h.Auth.Authenticate)

		r.Get("/catalog", h.getCatalog)
		r.Get("/home", h.getHome)
		r.Get("/search", h.search)
		r.Get("/genres", h.getGenres)
		r.Get("/languages", h.getLanguages)
		r.Get("/titles/{id}", h.getTitle)
		r.Post("/titles/{id}/views", h.incrementView)

		r.Group(func(r chi.Router) {
			r.Use(h.Auth.RequireAuth)
			r.With(h.Auth.RequirePermission(auth.ResourceEngagement, auth.ActionWrite)).
				Post("/titles/{id}/like", h.toggleLike)

			r.Route("/me", func(r chi.Router) {
				r.Use(h.Auth.RequirePermission(auth.ResourceLibrary, auth.ActionWrite))

				r.Get("/", h.getMe)

				r.Get("/watchlist", h.getWatchlist)
				r.Delete("/watchlist", h.clearWatchlist)
				r.Put("/watchlist/{id}", h.addToWatchlist)
				r.Delete("/watchlist/{id}", h.removeFromWatchlist)

				r.Get("/favorites", h.getFavorites)
				r.Put("/favorites/{id}", h.addFavorite)
				r.Delete("/favorites/{id}", h.removeFavorite)

				r.Put("/progress/{id}", h.recordProgress)
				r.Delete("/progress/{id}", h.clearProgress)
				r.Get("/continue-watching", h.continueWatching)
				r.Get("/history", h.getHistory)
			})
		})

		r.Route("/admin/titles", func(r chi.Router) {
			r.Use(h.Auth.RequireAuth)
			r.With(h.Auth.RequirePermission(auth.ResourceCatalog, auth.ActionWrite)).Post("/", h.publishTitle)
			r.With(h.Auth.RequirePermission(auth.ResourceCatalog, auth.ActionWrite)).Patch("/{id}", h.updateTitle)
			r.With(h.Auth.RequirePermission(auth.ResourceCatalog, auth.ActionDelete)).Delete("/{id}", h.deleteTitle)
		})
	})

	return r
}

// observe records request latency by route pattern.
func (h *Handler) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		h.Metrics.ObserveHTTP(r.Method, route, strconv.Itoa(status), time.Since(start))
	})
}

func (h *Handler) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ready runs every readiness probe and reports 503 if any fails.
func (h *Handler) ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.readyTimeout)
	defer cancel()

	status := http.StatusOK
	checks := make(map[string]string, len(h.Ready))
	for name, check := range h.Ready {
		if err := check(ctx); err != nil {
			checks[name] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		checks[name] = "ok"
	}
	writeJSON(w, status, map[string]any{"ready": status == http.StatusOK, "checks": checks})
}
