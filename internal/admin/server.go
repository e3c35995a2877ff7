// Package admin exposes the optional diagnostics listener: liveness,
// a status snapshot, Prometheus metrics and the fault-injection toggle.
package admin

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"pulseops-collector/internal/collector"
	"pulseops-collector/internal/faults"
	"pulseops-collector/internal/logging"
)

const shutdownTimeout = 2 * time.Second

// Server serves the diagnostics endpoints on a dedicated listener. It
// only reads collector snapshots and flips the injector's atomic
// toggle, so a hung scrape can never stall the record loop.
type Server struct {
	collector *collector.Collector
	injector  *faults.Injector
	srv       *http.Server
}

func NewServer(addr string, c *collector.Collector, inj *faults.Injector) *Server {
	s := &Server{collector: c, injector: inj}
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealthz)
	mux.HandleFunc("/status", s.handleStatus)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/faults/toggle", s.handleToggleFaults)
	s.srv = &http.Server{Addr: addr, Handler: mux}
	return s
}

// Start blocks serving requests until ctx is cancelled, then shuts the
// listener down gracefully.
func (s *Server) Start(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := s.srv.Shutdown(shutdownCtx); err != nil {
			logging.FromContext(ctx).Error("admin shutdown failed", "error", err)
		}
	}()
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok\n"))
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(s.collector.Status())
}

func (s *Server) handleToggleFaults(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.injector == nil {
		http.Error(w, "fault injection is only available in replay mode", http.StatusConflict)
		return
	}
	state := s.injector.Toggle()
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"enabled": state})
}
