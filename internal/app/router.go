// Package app wires configuration, adapters, and usecase services into a
// running HTTP application.
package app

import (
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/fairyhunter13/job-search-rag/internal/adapter/httpserver"
	"github.com/fairyhunter13/job-search-rag/internal/adapter/observability"
	"github.com/fairyhunter13/job-search-rag/internal/config"
)

// BuildRouter assembles the chi router with middleware, CORS, rate limiting,
// and all API routes.
func BuildRouter(cfg config.Config, srv *httpserver.Server) chi.Router {
	r := chi.NewRouter()

	r.Use(httpserver.Recoverer())
	r.Use(httpserver.RequestID())
	r.Use(observability.HTTPMetricsMiddleware)
	r.Use(httpserver.AccessLog())
	r.Use(httpserver.SecurityHeaders)
	r.Use(httpserver.TimeoutMiddleware(cfg.HTTPWriteTimeout))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   splitOrigins(cfg.CORSAllowOrigins),
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-Id"},
		ExposedHeaders:   []string{"X-Request-Id", "Content-Disposition"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/", srv.RootHandler)
	r.Get("/healthz", srv.HealthzHandler)
	r.Get("/readyz", srv.ReadyzHandler)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/v1", func(v1 chi.Router) {
		v1.Get("/jobs/{id}", srv.JobHandler)
		v1.Get("/meta/{field}", srv.MetaHandler)

		// POST routes hit paid upstream APIs, so they carry the rate limit.
		v1.Group(func(g chi.Router) {
			g.Use(httprate.LimitByIP(cfg.RateLimitPerMin, time.Minute))
			g.Post("/search", srv.SearchHandler)
			g.Post("/chat", srv.ChatHandler)
			g.Post("/browse", srv.BrowseHandler)
			g.Post("/cv/match", srv.CVMatchHandler)
			g.Post("/export/csv", srv.ExportCSVHandler)
		})
	})

	return r
}

func splitOrigins(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if v := strings.TrimSpace(p); v != "" {
			out = append(out, v)
		}
	}
	if len(out) == 0 {
		out = []string{"*"}
	}
	return out
}
