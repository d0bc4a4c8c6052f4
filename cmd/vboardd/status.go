package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"
)

// statusHandler serves metrics and health checks.
func (d *daemon) statusHandler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("GET /metrics", d.metrics.Handler())
	mux.Handle("GET /healthz", d.health.Handler())
	mux.Handle("GET /readyz", d.health.ReadinessHandler())
	return mux
}

// serveStatus starts the status endpoint on addr. It stops when ctx is done.
func (d *daemon) serveStatus(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("status listen %s: %w", addr, err)
	}

	srv := &http.Server{
		Handler:           d.statusHandler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			d.logger.Error("status endpoint stopped", "error", err)
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	d.logger.Info("status endpoint listening", "addr", ln.Addr().String())
	return nil
}
