// Package metricsserver runs the optional HTTP side-channel that
// exposes live run state while flame is hammering its target, gated
// behind the -metrics-addr flag.
package metricsserver

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/shmup/flamethrower/internal/logging"
)

// Server wraps an http.Server exposing /metrics (Prometheus exposition
// format) and /healthz (plain liveness check).
type Server struct {
	httpSrv *http.Server
}

// New builds a Server bound to addr, backed by reg for /metrics.
func New(addr string, reg *prometheus.Registry) *Server {
	router := mux.NewRouter()
	router.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	router.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok\n"))
	})
	return &Server{
		httpSrv: &http.Server{
			Addr:    addr,
			Handler: router,
		},
	}
}

// Start runs the server in the background. Bind failures are logged,
// not fatal: a dead metrics endpoint must never take the flamer down.
func (s *Server) Start() {
	go func() {
		if err := s.httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logging.Println(1, "metricsserver", "listen failed:", err)
		}
	}()
}

// Stop gracefully shuts the server down, waiting at most two seconds.
func (s *Server) Stop() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := s.httpSrv.Shutdown(ctx); err != nil {
		logging.Println(2, "metricsserver", "shutdown:", err)
	}
}
