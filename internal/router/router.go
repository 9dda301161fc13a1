// Package router assembles the HTTP surface.
package router

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jeremyjsx/inkwell/internal/handlers"
	"github.com/jeremyjsx/inkwell/internal/middleware"
	"github.com/jeremyjsx/inkwell/internal/session"
	"github.com/jeremyjsx/inkwell/internal/storage"
)

type Deps struct {
	Logger     *slog.Logger
	Sessions   session.Store
	Posts      *handlers.PostsHandler
	Categories *handlers.CategoriesHandler
	Health     *handlers.HealthDeps
	// Uploads, when set, is served read-only under /uploads/.
	Uploads storage.Storage
}

func New(d Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logging(d.Logger))
	r.Use(middleware.Metrics)
	r.Use(chimw.Recoverer)

	r.Get("/health", handlers.Health(d.Health))
	r.Handle("/metrics", promhttp.Handler())
	if d.Uploads != nil {
		r.Get("/uploads/*", handlers.Uploads(d.Uploads, d.Logger))
		r.Head("/uploads/*", handlers.Uploads(d.Uploads, d.Logger))
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Identity(d.Sessions, d.Logger))
		r.Route("/posts", d.Posts.Routes)
		r.Route("/categories", d.Categories.Routes)
	})
	return r
}
