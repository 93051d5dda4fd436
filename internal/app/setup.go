// Package app contains the application setup for the admin panel.
package app

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/abgdnv/catalogadmin/internal/config"
	"github.com/abgdnv/catalogadmin/internal/productapi"
	"github.com/abgdnv/catalogadmin/internal/session"
	"github.com/abgdnv/catalogadmin/internal/transport/panel"
	"github.com/abgdnv/catalogadmin/pkg/server"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const readinessTimeout = 2 * time.Second

type Dependencies struct {
	ProductAPI   *productapi.Client
	Sessions     *session.Store
	Logger       *slog.Logger
	SecureCookie bool
}

func SetupDependencies(cfg *config.Config, logger *slog.Logger) *Dependencies {
	api := productapi.NewClient(cfg.ProductAPI, logger)
	return &Dependencies{
		ProductAPI:   api,
		Sessions:     session.NewStore(api, cfg.View.PageSize, cfg.View.SessionTTL, cfg.View.MaxSessions, logger),
		Logger:       logger,
		SecureCookie: cfg.HTTPServer.SecureCookie,
	}
}

// SetupHttpHandler initializes the routes and middleware of the admin panel.
// Used by tests to serve the panel without starting a server.
func SetupHttpHandler(deps *Dependencies) http.Handler {
	mux := server.NewChiRouter(deps.Logger)
	wireRoutes(mux, deps)
	return otelhttp.NewHandler(mux, "admin-panel")
}

// wireRoutes sets up the HTTP routes for the admin panel.
func wireRoutes(mux *chi.Mux, deps *Dependencies) {
	panel.NewHandler(deps.Sessions, deps.Logger, deps.SecureCookie).MountRoutes(mux)
	probes := panel.NewProbes(map[string]panel.Pinger{"productapi": deps.ProductAPI}, readinessTimeout, deps.Logger)
	probes.MountRoutes(mux)
	mux.Handle("/metrics", promhttp.Handler())
	mux.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, panel.BasePath, http.StatusFound)
	})
}

// SetupHttpServer creates and configures an HTTP server for the admin panel.
func SetupHttpServer(deps *Dependencies, cfg *config.Config) *http.Server {
	return server.NewHTTPServer(cfg.HTTPServer, SetupHttpHandler(deps))
}
