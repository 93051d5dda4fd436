package panel

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"
)

// Pinger is a dependency checked by the readiness probe.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Probes serves the liveness and readiness endpoints.
type Probes struct {
	deps    map[string]Pinger
	timeout time.Duration
	logger  *slog.Logger
}

// NewProbes creates probes that report ready only when every dependency answers within timeout.
func NewProbes(deps map[string]Pinger, timeout time.Duration, logger *slog.Logger) *Probes {
	return &Probes{deps: deps, timeout: timeout, logger: logger.With("component", "probes")}
}

// MountRoutes registers /healthz and /readyz.
func (p *Probes) MountRoutes(r chi.Router) {
	r.Get("/healthz", p.Live)
	r.Get("/readyz", p.Ready)
}

// Live always reports the process as alive.
func (p *Probes) Live(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
}

// Ready checks if the service is ready (i.e., all dependencies are healthy)
func (p *Probes) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), p.timeout)
	defer cancel()
	eg, ctx := errgroup.WithContext(ctx)
	for name, dep := range p.deps {
		eg.Go(func() error {
			if err := dep.Ping(ctx); err != nil {
				p.logger.WarnContext(ctx, "Dependency is not ready", "dependency", name, "error", err)
				return err
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		http.Error(w, "Service Unavailable: Upstream service is not ready", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
}
