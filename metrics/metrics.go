// Package metrics exposes service counters on a dedicated Prometheus-format
// listener, separate from the API listener.
package metrics

import (
	"context"
	"fmt"
	"net/http"

	"github.com/VictoriaMetrics/metrics"
)

// Transition outcome counters, labeled by transition kind.
func IncTransitionApplied(kind string) {
	metrics.GetOrCreateCounter(fmt.Sprintf(`registry_transitions_applied_total{kind="%s"}`, kind)).Inc()
}

func IncTransitionRejected(kind string) {
	metrics.GetOrCreateCounter(fmt.Sprintf(`registry_transitions_rejected_total{kind="%s"}`, kind)).Inc()
}

// Access-grant counters for the decryption path.
func IncGrantIssued() {
	metrics.GetOrCreateCounter(`registry_access_grants_issued_total`).Inc()
}

func IncGrantDenied() {
	metrics.GetOrCreateCounter(`registry_access_grants_denied_total`).Inc()
}

func IncDecryptFailed() {
	metrics.GetOrCreateCounter(`registry_decrypt_failed_total`).Inc()
}

// MetricsServer serves the /metrics endpoint.
type MetricsServer struct {
	srv *http.Server
}

// New creates a metrics server listening on addr. The service name is
// exported as a constant gauge so dashboards can tell instances apart.
func New(name, addr string) (*MetricsServer, error) {
	metrics.GetOrCreateCounter(fmt.Sprintf(`service_info{name="%s"}`, name)).Set(1)

	mux := http.NewServeMux()
	mux.HandleFunc("/metrics", func(w http.ResponseWriter, r *http.Request) {
		metrics.WritePrometheus(w, true)
	})

	return &MetricsServer{
		srv: &http.Server{
			Addr:    addr,
			Handler: mux,
		},
	}, nil
}

// ListenAndServe blocks serving metrics until Shutdown.
func (m *MetricsServer) ListenAndServe() error {
	return m.srv.ListenAndServe()
}

// Shutdown gracefully stops the metrics listener.
func (m *MetricsServer) Shutdown(ctx context.Context) error {
	return m.srv.Shutdown(ctx)
}
