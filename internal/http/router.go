// Package httpapi composes the middleware chain and mounts every handler on
// the chi router. Transport concerns only; business rules live in the domain
// services.
package httpapi

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	devicehandler "rangerwatch/internal/device/handler"
	"rangerwatch/internal/platform/middleware"
	sightinghandler "rangerwatch/internal/sighting/handler"
)

// Options carries the router's dependencies.
type Options struct {
	Logger   *slog.Logger
	Sighting *sightinghandler.Handler
	Device   *devicehandler.Handler

	// AdminUser / AdminPassHash guard the admin subtree. Empty values keep
	// the subtree mounted but refusing every request.
	AdminUser     string
	AdminPassHash string

	// Health reports backend readiness for /healthz. Nil means always ready.
	Health func(r *http.Request) error
}

// NewRouter wires middleware and endpoints into a single handler.
func NewRouter(opts Options) http.Handler {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RequestTime)
	r.Use(middleware.ClientMetadata)
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.AccessLog(logger))
	r.Use(middleware.Latency)
	r.Use(chimw.Compress(5, "application/json"))

	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		if opts.Health != nil {
			if err := opts.Health(req); err != nil {
				logger.WarnContext(req.Context(), "health check failed", "error", err)
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	opts.Sighting.Register(r)
	opts.Device.Register(r)

	r.Group(func(admin chi.Router) {
		admin.Use(middleware.AdminAuth(opts.AdminUser, opts.AdminPassHash, logger))
		opts.Sighting.RegisterAdmin(admin)
	})

	return r
}
