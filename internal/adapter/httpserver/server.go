package httpserver

import (
	"context"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/fairyhunter13/job-search-rag/internal/config"
	"github.com/fairyhunter13/job-search-rag/internal/usecase"
)

// HealthCheck probes a dependency for readiness.
type HealthCheck func(ctx context.Context) error

// Server bundles the usecase services behind the HTTP handlers.
type Server struct {
	cfg      config.Config
	search   usecase.SearchService
	chat     usecase.ChatService
	match    usecase.MatchService
	validate *validator.Validate
	checks   map[string]HealthCheck
}

// NewServer constructs a Server. checks maps dependency names to readiness
// probes run by the readyz handler.
func NewServer(cfg config.Config, search usecase.SearchService, chat usecase.ChatService, match usecase.MatchService, checks map[string]HealthCheck) *Server {
	return &Server{
		cfg:      cfg,
		search:   search,
		chat:     chat,
		match:    match,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		checks:   checks,
	}
}

// HealthzHandler responds 200 whenever the process is up.
func (s *Server) HealthzHandler(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ReadyzHandler runs each registered dependency probe and reports 503 when
// any of them fails.
func (s *Server) ReadyzHandler(w http.ResponseWriter, r *http.Request) {
	status := http.StatusOK
	deps := make(map[string]string, len(s.checks))
	for name, check := range s.checks {
		if err := check(r.Context()); err != nil {
			deps[name] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		deps[name] = "ok"
	}
	body := map[string]any{"status": "ready", "dependencies": deps}
	if status != http.StatusOK {
		body["status"] = "degraded"
	}
	writeJSON(w, status, body)
}
