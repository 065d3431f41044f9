// Package api provides the HTTP API for the advisor.
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"fuzzy-advisor/internal/advisor"
	"fuzzy-advisor/internal/fuzzy"
)

// Config holds router configuration.
type Config struct {
	Service       *advisor.Service
	Definition    fuzzy.Definition // served by GET /api/v1/fuzzy
	DefaultSymbol string
	Health        http.Handler // GET /healthz
	Chart         http.Handler // GET /ws/chart
	TOTPSecret    string       // empty disables authentication
	Timeout       time.Duration
	Now           func() time.Time
}

// NewRouter creates the HTTP router.
func NewRouter(cfg Config) http.Handler {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	h := &Handlers{
		svc:           cfg.Service,
		definition:    cfg.Definition,
		defaultSymbol: cfg.DefaultSymbol,
		now:           cfg.Now,
	}
	auth := RequireTOTP(cfg.TOTPSecret, cfg.Now)

	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RealIP)
	r.Use(RunID)
	r.Use(middleware.Recoverer)
	r.Use(CORS)

	// Unauthenticated probes
	if cfg.Health != nil {
		r.Method(http.MethodGet, "/healthz", cfg.Health)
	}
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(auth)
		r.Use(middleware.Timeout(cfg.Timeout))
		r.Get("/analyze", h.Analyze)
		r.Get("/fuzzy", h.Fuzzy)
		r.Get("/fuzzy/infer", h.Infer)
	})

	if cfg.Chart != nil {
		r.With(auth).Method(http.MethodGet, "/ws/chart", cfg.Chart)
	}

	return r
}
