package api

import (
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// RouterConfig configures cross-cutting router behavior, matching the
// teacher's internal/api/router.go RouterConfig.
type RouterConfig struct {
	BackendAPIKey      string
	CORSAllowedOrigins string
}

// NewRouter wires the chi middleware stack and route table.
func NewRouter(h *Handler, cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	origins := []string{"*"}
	if cfg.CORSAllowedOrigins != "" {
		origins = strings.Split(cfg.CORSAllowedOrigins, ",")
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "DELETE"},
		AllowedHeaders:   []string{"Authorization", "X-API-Key", "Content-Type"},
		AllowCredentials: false,
	}))

	r.Get("/health", h.Health)

	r.Route("/v1", func(r chi.Router) {
		if cfg.BackendAPIKey != "" {
			r.Use(APIKeyAuth(cfg.BackendAPIKey))
		}
		r.Post("/jobs", h.SubmitJob)
		r.Get("/jobs", h.ListJobs)
		r.Get("/jobs/{id}", h.GetJob)
		r.Delete("/jobs/{id}", h.CancelJob)
		r.Get("/jobs/{id}/video", h.GetVideo)
	})

	return r
}
