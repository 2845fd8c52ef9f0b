package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/ontapwatch/ontapwatch/pkg/metrics"
)

// HealthServer exposes the engine's operational HTTP endpoints: liveness,
// readiness, a fleet status summary and Prometheus metrics.
type HealthServer struct {
	stats   metrics.StatsSource
	version string
	mux     *http.ServeMux
	server  *http.Server
}

// NewHealthServer creates the operational HTTP server. stats may be nil when
// the engine runs a single pass without a dispatcher; /status then reports
// the process as idle.
func NewHealthServer(stats metrics.StatsSource, version string) *HealthServer {
	mux := http.NewServeMux()
	hs := &HealthServer{
		stats:   stats,
		version: version,
		mux:     mux,
	}

	// Register endpoints
	mux.HandleFunc("/health", metrics.HealthHandler())
	mux.HandleFunc("/ready", metrics.ReadyHandler())
	mux.HandleFunc("/live", metrics.LivenessHandler())
	mux.HandleFunc("/status", hs.statusHandler)
	mux.Handle("/metrics", metrics.Handler())

	hs.server = &http.Server{
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return hs
}

// Start serves on addr until Stop is called.
func (hs *HealthServer) Start(addr string) error {
	hs.server.Addr = addr
	return hs.server.ListenAndServe()
}

// Stop drains in-flight requests and shuts the server down.
func (hs *HealthServer) Stop(ctx context.Context) error {
	return hs.server.Shutdown(ctx)
}

// StatusResponse summarizes the running engine for operators.
type StatusResponse struct {
	Status          string    `json:"status"`
	Timestamp       time.Time `json:"timestamp"`
	Version         string    `json:"version,omitempty"`
	FleetSize       int       `json:"fleetSize"`
	FailingClusters int       `json:"failingClusters"`
}

// statusHandler implements the /status endpoint: a one-look summary of the
// fleet the dispatcher is driving.
func (hs *HealthServer) statusHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	response := StatusResponse{
		Status:    "ok",
		Timestamp: time.Now(),
		Version:   hs.version,
	}
	if hs.stats != nil {
		response.FleetSize = hs.stats.FleetSize()
		response.FailingClusters = hs.stats.FailingClusters()
		if response.FailingClusters > 0 {
			response.Status = "degraded"
		}
	} else {
		response.Status = "idle"
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(response)
}

// GetHandler returns the HTTP handler for embedding in other servers
func (hs *HealthServer) GetHandler() http.Handler {
	return hs.mux
}
