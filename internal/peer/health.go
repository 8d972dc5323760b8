package peer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// Pinger verifies broker connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// StatusSource exposes the lifecycle of a running peer.
// *Engine implements it.
type StatusSource interface {
	State() State
	Self() string
}

// HealthServer provides an HTTP health check endpoint for a peer.
// The peer is healthy while the engine is running and Redis answers PING.
type HealthServer struct {
	server *http.Server
	pinger Pinger
	status StatusSource
	log    zerolog.Logger
}

// HealthResponse represents the JSON response from the /healthz endpoint.
type HealthResponse struct {
	Status string `json:"status"`
	State  string `json:"state"`
	ID     string `json:"id,omitempty"`
	Error  string `json:"error,omitempty"`
}

// NewHealthServer creates a health check server listening on all interfaces at port.
func NewHealthServer(pinger Pinger, status StatusSource, port int, log zerolog.Logger) *HealthServer {
	mux := http.NewServeMux()
	hs := &HealthServer{
		server: &http.Server{
			Addr:         fmt.Sprintf(":%d", port),
			Handler:      mux,
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 5 * time.Second,
		},
		pinger: pinger,
		status: status,
		log:    log.With().Str("component", "health").Logger(),
	}

	mux.HandleFunc("/healthz", hs.handleHealthz)

	return hs
}

// Handler returns the HTTP handler serving /healthz.
func (hs *HealthServer) Handler() http.Handler {
	return hs.server.Handler
}

// Start binds the listening socket and serves in a background goroutine.
// Returns an error if the port cannot be bound.
func (hs *HealthServer) Start() error {
	ln, err := net.Listen("tcp", hs.server.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", hs.server.Addr, err)
	}

	go func() {
		hs.log.Debug().Str("addr", ln.Addr().String()).Msg("Health server starting")
		if err := hs.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			hs.log.Error().Err(err).Msg("Health server error")
		}
		hs.log.Debug().Msg("Health server stopped")
	}()

	return nil
}

// Shutdown gracefully shuts down the HTTP server. ctx bounds the wait for in-flight requests.
func (hs *HealthServer) Shutdown(ctx context.Context) error {
	hs.log.Debug().Msg("Shutting down health server...")
	return hs.server.Shutdown(ctx)
}

// handleHealthz returns 200 while the peer is running and Redis answers, 503 otherwise.
//
// Response format:
//   - Success: {"status": "healthy", "state": "running", "id": "<token>"}
//   - Failure: {"status": "unhealthy", "state": "...", "error": "..."}
func (hs *HealthServer) handleHealthz(w http.ResponseWriter, r *http.Request) {
	state := hs.status.State()
	response := HealthResponse{
		Status: "healthy",
		State:  state.String(),
		ID:     hs.status.Self(),
	}
	statusCode := http.StatusOK

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if err := hs.pinger.Ping(ctx); err != nil {
		response.Status = "unhealthy"
		response.Error = err.Error()
		statusCode = http.StatusServiceUnavailable
	} else if state != StateRunning {
		response.Status = "unhealthy"
		response.Error = fmt.Sprintf("peer is %s", state)
		statusCode = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(response); err != nil {
		hs.log.Error().Err(err).Msg("Failed to encode health response")
	}
}
