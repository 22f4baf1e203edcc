package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aatumaykin/microbot/internal/logger"
)

// startMetricsServer serves the registry on [metrics] listen and path.
func (a *App) startMetricsServer() error {
	mux := http.NewServeMux()
	mux.Handle(a.config.Metrics.Path, promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{
		Registry: a.registry,
	}))

	listener, err := net.Listen("tcp", a.config.Metrics.Listen)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", a.config.Metrics.Listen, err)
	}

	a.metricsListener = listener
	a.metricsServer = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	a.logger.Info("metrics endpoint started",
		logger.Field{Key: "addr", Value: listener.Addr().String()},
		logger.Field{Key: "path", Value: a.config.Metrics.Path})

	go func(srv *http.Server) {
		if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("metrics server failed", err)
		}
	}(a.metricsServer)
	return nil
}

// MetricsAddr returns the address the metrics endpoint listens on, or "".
func (a *App) MetricsAddr() string {
	if a.metricsListener == nil {
		return ""
	}
	return a.metricsListener.Addr().String()
}

func (a *App) stopMetricsServer(ctx context.Context) error {
	if a.metricsServer == nil {
		return nil
	}
	err := a.metricsServer.Shutdown(ctx)
	a.metricsServer = nil
	a.metricsListener = nil
	return err
}
