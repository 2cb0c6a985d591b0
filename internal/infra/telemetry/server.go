package telemetry

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// HTTPServerOptions configures the side listener started by StartHTTPServer.
type HTTPServerOptions struct {
	Addr     string
	Registry prometheus.Gatherer
}

// Handler returns the mux served by the side listener.
func Handler(registry prometheus.Gatherer) http.Handler {
	if registry == nil {
		registry = prometheus.DefaultGatherer
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	mux.Handle("/healthz", healthHandler())
	return mux
}

// StartHTTPServer serves /metrics and /healthz on opts.Addr until ctx is done.
// An empty Addr disables the listener.
func StartHTTPServer(ctx context.Context, opts HTTPServerOptions, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Addr == "" {
		return nil
	}

	server := &http.Server{
		Addr:              opts.Addr,
		Handler:           Handler(opts.Registry),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		logger.Info("telemetry server listening", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	select {
	case err := <-errChan:
		return fmt.Errorf("telemetry server failed to start: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("telemetry server shutdown error", zap.Error(err))
			return err
		}
		logger.Info("telemetry server stopped")
		return nil
	}
}

type healthReport struct {
	Status string `json:"status"`
}

// The mirror holds no state that can go unhealthy; answering at all is the
// health signal.
func healthHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(healthReport{Status: "ok"})
	})
}
