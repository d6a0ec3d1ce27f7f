// Package server wires the HTTP router and runs it until the context is
// canceled.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tobixen/skoscache/internal/core/config"
	"github.com/tobixen/skoscache/internal/core/health"
	middleware "github.com/tobixen/skoscache/internal/core/middleware"
)

// Mount registers application routes onto r. Callers provide their own
// mount function so this package stays ignorant of any particular API
// surface.
type Mount func(r chi.Router)

// Run sets up the chi router, mounts health/metrics plus whatever mount
// registers, and serves until ctx is canceled or the listener fails.
func Run(ctx context.Context, cfg config.Config, logger *slog.Logger, mount Mount) error {
	r := chi.NewRouter()
	r.Use(middleware.Recover())
	r.Use(middleware.Logging(logger))
	r.Use(middleware.Metrics())
	r.Use(middleware.CORS())

	r.Get("/healthz", health.Liveness())
	r.Get("/metrics", promhttp.Handler().ServeHTTP)
	mount(r)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http listen", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		return nil
	case err := <-errCh:
		return err
	}
}
