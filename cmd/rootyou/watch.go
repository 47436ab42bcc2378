package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/rootyou/rootyou/internal/poll"
)

// watch runs a poller until SIGINT/SIGTERM or context cancellation, serving
// live metrics on the side while it runs.
func (a *app) watch(ctx context.Context, name string, interval time.Duration, fetch func(ctx context.Context) error) error {
	refresher := poll.New(name, interval, fetch, a.sessionGuard())
	refresher.SetMetrics(a.metrics)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// A cleared credential ends the watch instead of waiting for the next
	// guard check to notice.
	a.store.Subscribe(func(token string) {
		if token == "" {
			cancel()
		}
	})

	srv := a.metricsServer()
	if srv != nil {
		go func() {
			slog.Info("metrics endpoint up", "addr", srv.Addr)
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				slog.Warn("metrics server error", "error", err)
			}
		}()
	}

	refresher.Start(ctx)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigCh:
	case <-ctx.Done():
	}
	slog.Info("stopping watch", "poller", name)

	// Stop waits for an in-flight fetch; cancel first so it aborts
	// instead of running out its HTTP timeout.
	cancel()
	refresher.Stop()

	if srv == nil {
		return nil
	}
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	return srv.Shutdown(shutdownCtx)
}

// metricsServer builds the debug listener for watch commands, or returns
// nil when no metrics address is configured.
func (a *app) metricsServer() *http.Server {
	if a.cfg.Metrics.Addr == "" {
		return nil
	}

	r := chi.NewRouter()
	r.Get("/metrics", a.metrics.Handler())

	return &http.Server{
		Addr:         a.cfg.Metrics.Addr,
		Handler:      r,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	}
}
