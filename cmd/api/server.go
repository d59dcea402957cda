// Package api wires the configuration, stores and handlers into a running
// HTTP server.
package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/FACorreiaa/sales-insights/internal/domain/analysis/handler"
)

// Routes builds the full middleware chain around the API mux.
func (d *Dependencies) Routes() http.Handler {
	mux := http.NewServeMux()
	d.AnalysisHandler.Register(mux)
	mux.Handle("GET /metrics", d.Metrics.Handler())

	chain := handler.Chain(
		handler.Recovery(d.Logger),
		handler.RequestID(),
		handler.Logger(d.Logger),
		handler.CORS(d.Config.Server.AllowedOrigins),
		handler.RateLimit(d.RateLimiter, d.Logger),
	)
	return chain(mux)
}

// Serve runs the HTTP server and the purge scheduler until ctx is cancelled
// or the process receives SIGINT/SIGTERM, then shuts both down.
func (d *Dependencies) Serve(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := &http.Server{
		Addr:         d.Config.Address(),
		Handler:      d.Routes(),
		ReadTimeout:  d.Config.Server.ReadTimeout,
		WriteTimeout: d.Config.Server.WriteTimeout,
		IdleTimeout:  d.Config.Server.IdleTimeout,
	}

	if err := d.Scheduler.Start(); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}

	serverErrors := make(chan error, 1)
	go func() {
		d.Logger.Info("starting server",
			slog.String("addr", srv.Addr),
			slog.Duration("read_timeout", srv.ReadTimeout),
			slog.Duration("write_timeout", srv.WriteTimeout),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	var serveErr error
	select {
	case err := <-serverErrors:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr = fmt.Errorf("server failed: %w", err)
		}
	case <-ctx.Done():
		d.Logger.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), d.Config.Server.ShutdownTimeout)
	defer cancel()

	<-d.Scheduler.Stop().Done()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		d.Logger.Error("HTTP server shutdown failed", slog.Any("error", err))
		return errors.Join(serveErr, err)
	}

	d.Logger.Info("graceful shutdown completed")
	return serveErr
}
