// Package httpapi assembles the process router: the shared middleware chain,
// the billing group APIs and the ops endpoints.
package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"policydesk/internal/platform/metrics"
	"policydesk/internal/platform/middleware"
	"policydesk/pkg/platform/httputil"
	"policydesk/pkg/platform/middleware/admin"
	"policydesk/pkg/platform/middleware/metadata"
	"policydesk/pkg/platform/middleware/requesttime"
)

// Registrar mounts a group of routes.
type Registrar interface {
	Register(r chi.Router)
}

// HealthCheck reports whether a dependency is usable.
type HealthCheck func(ctx context.Context) error

type Config struct {
	Logger  *slog.Logger
	Metrics *metrics.Metrics
	// MetricsHandler serves /metrics; nil means the default registry.
	MetricsHandler http.Handler
	RequestTimeout time.Duration
	AdminToken     string

	// Public routes: the storage collaborator and directory APIs.
	Public []Registrar
	// Editor routes, guarded by AdminToken when it is set.
	Editor []Registrar
	Health map[string]HealthCheck
}

func NewRouter(cfg Config) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	metricsHandler := cfg.MetricsHandler
	if metricsHandler == nil {
		metricsHandler = promhttp.Handler()
	}

	r := chi.NewRouter()
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestID)
	r.Use(metadata.ClientMetadata)
	r.Use(requesttime.Middleware)
	r.Use(middleware.Actor)
	r.Use(middleware.Logger(logger))

	r.Get("/health", healthHandler(cfg.Health))
	r.Handle("/metrics", metricsHandler)

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(timeout))
		r.Use(middleware.ContentTypeJSON)
		r.Use(middleware.Latency(cfg.Metrics))
		for _, reg := range cfg.Public {
			reg.Register(r)
		}
		r.Group(func(r chi.Router) {
			if cfg.AdminToken != "" {
				r.Use(admin.RequireAdminToken(cfg.AdminToken, logger))
			}
			for _, reg := range cfg.Editor {
				reg.Register(r)
			}
		})
	})
	return r
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

func healthHandler(checks map[string]HealthCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := healthResponse{Status: "ok"}
		status := http.StatusOK
		if len(checks) > 0 {
			resp.Checks = make(map[string]string, len(checks))
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			for name, check := range checks {
				if err := check(ctx); err != nil {
					resp.Checks[name] = err.Error()
					resp.Status = "degraded"
					status = http.StatusServiceUnavailable
					continue
				}
				resp.Checks[name] = "ok"
			}
		}
		httputil.WriteJSON(w, status, resp)
	}
}
