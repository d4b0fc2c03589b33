// Package api wires the HTTP routes of promptlab.
package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/matiasleandrokruk/promptlab/internal/api/handlers"
	apmiddleware "github.com/matiasleandrokruk/promptlab/internal/api/middleware"
)

// Deps are the services behind the routes. Search may be nil when no
// document is indexed and Health nil when nothing needs checking. An empty
// JWTSecret disables authentication.
type Deps struct {
	Sessions  handlers.SessionManager
	Extractor handlers.Extractor
	Search    handlers.Searcher
	Health    handlers.HealthChecker
	JWTSecret string
	Logger    *slog.Logger
}

// NewRouter creates the chi router: public /health and /ready, and the
// /api/v1 routes.
func NewRouter(deps Deps) *chi.Mux {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(apmiddleware.RequestLogger(logger))
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`)) //nolint:errcheck
	})

	r.Get("/ready", handlers.NewHealthHandler(deps.Health).Ready)

	sessionHandler := handlers.NewSessionHandler(deps.Sessions)
	extractHandler := handlers.NewExtractHandler(deps.Extractor)
	searchHandler := handlers.NewSearchHandler(deps.Search)

	r.Route("/api/v1", func(r chi.Router) {
		if deps.JWTSecret != "" {
			r.Use(apmiddleware.AuthMiddleware([]byte(deps.JWTSecret)))
		} else {
			logger.Warn("JWT_SECRET not set, /api/v1 is unauthenticated")
		}

		r.Route("/sessions", func(r chi.Router) {
			r.Post("/", sessionHandler.Create)                   // POST /api/v1/sessions
			r.Get("/", sessionHandler.List)                      // GET /api/v1/sessions
			r.Get("/{id}", sessionHandler.Get)                   // GET /api/v1/sessions/{id}
			r.Delete("/{id}", sessionHandler.Delete)             // DELETE /api/v1/sessions/{id}
			r.Post("/{id}/messages", sessionHandler.SendMessage) // POST /api/v1/sessions/{id}/messages
		})
		r.Post("/extract", extractHandler.Extract) // POST /api/v1/extract
		r.Post("/search", searchHandler.Search)    // POST /api/v1/search
	})

	return r
}
