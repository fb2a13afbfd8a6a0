package observe

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsServer serves the Prometheus scrape endpoint on a dedicated
// listener. The OTel Prometheus exporter registers with the default
// registry, so [promhttp.Handler] picks up everything [InitProvider] set up.
type MetricsServer struct {
	srv *http.Server
}

// NewMetricsServer builds a server listening on addr, serving /metrics.
// Callers may register extra routes (health probes) via register funcs.
func NewMetricsServer(addr string, register ...func(*http.ServeMux)) *MetricsServer {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	for _, r := range register {
		r(mux)
	}
	return &MetricsServer{
		srv: &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
	}
}

// Start runs the listener in a background goroutine. Errors other than
// [http.ErrServerClosed] are logged, not returned, since a broken metrics
// endpoint should not take the application down.
func (s *MetricsServer) Start() {
	go func() {
		slog.Info("metrics endpoint listening", "addr", s.srv.Addr)
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("metrics server failed", "error", err)
		}
	}()
}

// Shutdown stops the listener, respecting the context deadline.
func (s *MetricsServer) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
