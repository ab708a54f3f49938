package admin

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/pprof"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

// NewRouter builds the status API routes using chi router
func NewRouter(handlers *StatusHandlers) http.Handler {
	r := chi.NewRouter()

	r.Get("/metrics", handlers.handleMetrics)
	r.Get("/status", handlers.handleStatus)
	r.Get("/report", handlers.handleReport)

	// Profiling while a run is in progress
	r.Route("/debug/pprof", func(r chi.Router) {
		r.HandleFunc("/", pprof.Index)
		r.HandleFunc("/cmdline", pprof.Cmdline)
		r.HandleFunc("/profile", pprof.Profile)
		r.HandleFunc("/symbol", pprof.Symbol)
		r.HandleFunc("/trace", pprof.Trace)
	})

	return r
}

// Server exposes the status API while a run is in progress
type Server struct {
	httpServer *http.Server
	listener   net.Listener
}

// Start listens on address:port and serves handler in the background
func Start(address string, port int, handler http.Handler) (*Server, error) {
	addr := fmt.Sprintf("%s:%d", address, port)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	s := &Server{
		httpServer: &http.Server{Handler: handler, ReadHeaderTimeout: 5 * time.Second},
		listener:   listener,
	}

	go func() {
		if err := s.httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("Status server failed")
		}
	}()

	log.Info().Str("address", listener.Addr().String()).Msg("Status endpoints enabled at /status, /report and /metrics")
	return s, nil
}

// Addr returns the bound listener address
func (s *Server) Addr() string {
	return s.listener.Addr().String()
}

// Stop gracefully stops the server
func (s *Server) Stop(ctx context.Context) error {
	log.Info().Msg("Stopping status server")
	return s.httpServer.Shutdown(ctx)
}
