// Package main runs the catalog admin panel web server.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "net/http/pprof"

	"github.com/abgdnv/catalogadmin/internal/app"
	"github.com/abgdnv/catalogadmin/internal/config"
	"github.com/abgdnv/catalogadmin/pkg/bootstrap"
	"github.com/abgdnv/catalogadmin/pkg/config/configloader"
	"github.com/abgdnv/catalogadmin/pkg/telemetry"
	"golang.org/x/sync/errgroup"
)

const (
	serviceName   = "admin"
	telemetryName = "catalog-admin"
	sweepInterval = time.Minute
)

func main() {

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		log.Printf("application run failed: %v", err)
		os.Exit(1)
	}
	log.Println("application stopped gracefully")
}

// run loads the configuration, sets up telemetry and starts the HTTP and pprof servers.
func run(ctx context.Context) error {
	cfg, cfgErr := configloader.Load[config.Config](serviceName)
	if cfgErr != nil {
		return fmt.Errorf("failed to load configuration: %w", cfgErr)
	}
	log.Printf("Configuration loaded: %v", cfg)

	logger := bootstrap.NewLogger(cfg.Log.Level)
	slog.SetDefault(logger)

	if cfg.Telemetry.Enabled {
		tp, err := telemetry.NewTracerProvider(ctx, telemetryName, cfg.Telemetry)
		if err != nil {
			return fmt.Errorf("failed to create tracer provider: %w", err)
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Shutdown.Timeout)
			defer cancel()
			if err := tp.Shutdown(shutdownCtx); err != nil {
				logger.Error("Failed to shutdown tracer provider", "error", err)
			}
		}()
	}
	mp, err := telemetry.NewMeterProvider(telemetryName)
	if err != nil {
		return fmt.Errorf("failed to create meter provider: %w", err)
	}
	defer func() {
		if err := mp.Shutdown(context.Background()); err != nil {
			logger.Error("Failed to shutdown meter provider", "error", err)
		}
	}()

	deps := app.SetupDependencies(cfg, logger)
	httpServer := app.SetupHttpServer(deps, cfg)
	pprofServer := &http.Server{
		Addr: cfg.PProf.Addr,
	}

	g, gCtx := errgroup.WithContext(ctx)

	// Start the HTTP server
	g.Go(func() error {
		logger.Info("HTTP server listening", slog.String("addr", httpServer.Addr), slog.String("productapi", cfg.ProductAPI.URL))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil
	})
	// gracefully shutdown HTTP server on context cancellation
	g.Go(func() error {
		<-gCtx.Done()
		logger.Info("Shutting down HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Shutdown.Timeout)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	// Drop idle sessions
	g.Go(func() error {
		return deps.Sessions.Run(gCtx, sweepInterval)
	})

	// Start the pprof server if enabled
	if cfg.PProf.Enabled {
		g.Go(func() error {
			logger.Info("Pprof server listening", slog.String("addr", pprofServer.Addr))
			if err := pprofServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("pprof server failed: %w", err)
			}
			return nil
		})
		// gracefully shutdown pprof server on context cancellation
		g.Go(func() error {
			<-gCtx.Done()
			logger.Info("Shutting down pprof server...")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Shutdown.Timeout)
			defer cancel()
			return pprofServer.Shutdown(shutdownCtx)
		})
	}
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("errgroup encountered an error: %w", err)
	}
	return nil
}
