package httpserver

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/flashbots/go-utils/httplogger"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/atomic"

	"github.com/certvault/certificate-registry-backend/api"
	"github.com/certvault/certificate-registry-backend/common"
	"github.com/certvault/certificate-registry-backend/metrics"
)

// Server wraps the registry handler in an HTTP server with health and
// diagnostic endpoints, a separate metrics listener and graceful shutdown.
type Server struct {
	cfg     *api.HTTPServerConfig
	isReady atomic.Bool
	log     *slog.Logger

	srv        *http.Server
	metricsSrv *metrics.MetricsServer
	handler    *Handler
}

// New creates a Server for the given config and handler.
func New(cfg *api.HTTPServerConfig, handler *Handler) (*Server, error) {
	metricsSrv, err := metrics.New(common.PackageName, cfg.MetricsAddr)
	if err != nil {
		return nil, err
	}

	srv := &Server{
		cfg:        cfg,
		log:        cfg.Log,
		metricsSrv: metricsSrv,
		handler:    handler,
	}
	srv.isReady.Store(true)

	srv.srv = &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      srv.getRouter(),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	return srv, nil
}

func (srv *Server) getRouter() http.Handler {
	mux := chi.NewRouter()

	// Authenticated registry operations
	mux.With(srv.httpLogger).Post("/api/registry/issuers", srv.handler.HandleRegisterIssuer)
	mux.With(srv.httpLogger).Post("/api/registry/issuers/authorize", srv.handler.HandleAuthorizeIssuer)
	mux.With(srv.httpLogger).Post("/api/registry/certificates", srv.handler.HandleIssueCertificate)
	mux.With(srv.httpLogger).Post("/api/registry/certificates/{cert_id}/verification-requests", srv.handler.HandleRequestVerification)
	mux.With(srv.httpLogger).Post("/api/registry/verification-requests/{request_id}/process", srv.handler.HandleProcessVerification)
	mux.With(srv.httpLogger).Post("/api/registry/certificates/{cert_id}/revoke", srv.handler.HandleRevokeCertificate)
	mux.With(srv.httpLogger).Post("/api/registry/certificates/{cert_id}/encrypted-data", srv.handler.HandleEncryptData)
	mux.With(srv.httpLogger).Post("/api/registry/certificates/{cert_id}/status", srv.handler.HandleUpdateEncrypted)
	mux.With(srv.httpLogger).Post("/api/registry/documents", srv.handler.HandlePutDocument)

	// Decryption grant flow
	mux.With(srv.httpLogger).Post("/api/access/decryption-grants", srv.handler.HandleDecryptionGrant)
	mux.With(srv.httpLogger).Post("/api/access/decrypt", srv.handler.HandleDecrypt)

	// Public reads
	mux.With(srv.httpLogger).Get("/api/public/issuers/{address}", srv.handler.HandleIssuerInfo)
	mux.With(srv.httpLogger).Get("/api/public/certificates/{cert_id}", srv.handler.HandleCertificateInfo)
	mux.With(srv.httpLogger).Get("/api/public/certificates/{cert_id}/encrypted-data", srv.handler.HandleEncryptedData)
	mux.With(srv.httpLogger).Get("/api/public/certificates/{cert_id}/verify", srv.handler.HandleVerifyCertificate)
	mux.With(srv.httpLogger).Get("/api/public/verification-requests/{request_id}", srv.handler.HandleRequestInfo)
	mux.With(srv.httpLogger).Get("/api/public/cert-counter", srv.handler.HandleCertCounter)
	mux.With(srv.httpLogger).Get("/api/public/holders/{address}/certificates", srv.handler.HandleHolderCertificates)
	mux.With(srv.httpLogger).Get("/api/public/documents/{content_id}", srv.handler.HandleGetDocument)

	// Health and diagnostic endpoints
	mux.With(srv.httpLogger).Get("/livez", srv.handleLivenessCheck)
	mux.With(srv.httpLogger).Get("/readyz", srv.handleReadinessCheck)
	mux.With(srv.httpLogger).Get("/drain", srv.handleDrain)
	mux.With(srv.httpLogger).Get("/undrain", srv.handleUndrain)

	if srv.cfg.EnablePprof {
		srv.log.Info("pprof API enabled")
		mux.Mount("/debug", middleware.Profiler())
	}
	return mux
}

func (srv *Server) httpLogger(next http.Handler) http.Handler {
	return httplogger.LoggingMiddlewareSlog(srv.log, next)
}

func (srv *Server) handleLivenessCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"alive"}`))
}

func (srv *Server) handleReadinessCheck(w http.ResponseWriter, r *http.Request) {
	if !srv.isReady.Load() {
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte(`{"status":"not ready"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ready"}`))
}

func (srv *Server) handleDrain(w http.ResponseWriter, r *http.Request) {
	if !srv.isReady.Swap(false) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"already draining"}`))
		return
	}

	srv.log.Info("Server marked as not ready")

	// Give load balancers time to notice before shutdown proceeds
	go func() {
		time.Sleep(srv.cfg.DrainDuration)
		srv.log.Info("Drain period completed")
	}()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"draining"}`))
}

func (srv *Server) handleUndrain(w http.ResponseWriter, r *http.Request) {
	if srv.isReady.Swap(true) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"already ready"}`))
		return
	}

	srv.log.Info("Server marked as ready")

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ready"}`))
}

// RunInBackground starts the API and metrics listeners on their own
// goroutines.
func (srv *Server) RunInBackground() {
	// metrics
	if srv.cfg.MetricsAddr != "" {
		go func() {
			srv.log.With("metricsAddress", srv.cfg.MetricsAddr).Info("Starting metrics server")
			err := srv.metricsSrv.ListenAndServe()
			if err != nil && !errors.Is(err, http.ErrServerClosed) {
				srv.log.Error("HTTP server failed", "err", err)
			}
		}()
	}

	// api
	go func() {
		srv.log.Info("Starting HTTP server", "listenAddress", srv.cfg.ListenAddr)
		if err := srv.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			srv.log.Error("HTTP server failed", "err", err)
		}
	}()
}

// Shutdown gracefully stops both listeners.
func (srv *Server) Shutdown() {
	// api
	ctx, cancel := context.WithTimeout(context.Background(), srv.cfg.GracefulShutdownDuration)
	defer cancel()
	if err := srv.srv.Shutdown(ctx); err != nil {
		srv.log.Error("Graceful HTTP server shutdown failed", "err", err)
	} else {
		srv.log.Info("HTTP server gracefully stopped")
	}

	// metrics
	if len(srv.cfg.MetricsAddr) != 0 {
		ctx, cancel := context.WithTimeout(context.Background(), srv.cfg.GracefulShutdownDuration)
		defer cancel()

		if err := srv.metricsSrv.Shutdown(ctx); err != nil {
			srv.log.Error("Graceful metrics server shutdown failed", "err", err)
		} else {
			srv.log.Info("Metrics server gracefully stopped")
		}
	}
}
