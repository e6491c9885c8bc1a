// Package health serves the liveness and readiness endpoints that hosting
// platforms poll on PORT.
package health

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"
)

const shutdownTimeout = 5 * time.Second

// Pinger reports whether a backend is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server answers liveness checks. It never touches the update pipeline.
type Server struct {
	router      *mux.Router
	logger      *slog.Logger
	store       Pinger
	pingTimeout time.Duration
	server      *http.Server
}

// NewServer creates a health server listening on port. store may be nil, in
// which case /readyz always reports ready.
func NewServer(port int, store Pinger, pingTimeout time.Duration, logger *slog.Logger) *Server {
	s := &Server{
		router:      mux.NewRouter(),
		logger:      logger.With("component", "health"),
		store:       store,
		pingTimeout: pingTimeout,
	}
	s.setupRoutes()

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

func (s *Server) setupRoutes() {
	s.router.HandleFunc("/", s.handleLive()).Methods(http.MethodGet, http.MethodHead)
	s.router.HandleFunc("/healthz", s.handleLive()).Methods(http.MethodGet, http.MethodHead)
	s.router.HandleFunc("/readyz", s.handleReady()).Methods(http.MethodGet)
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.server.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.server.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Health server listening", "addr", ln.Addr().String())
		errCh <- s.server.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("health server failed: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.server.Shutdown(shutdownCtx); err != nil {
		s.logger.Error("Error shutting down health server", "error", err)
		return err
	}
	s.logger.Info("Health server stopped.")
	return nil
}

func (s *Server) handleLive() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	}
}

func (s *Server) handleReady() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.store != nil {
			ctx, cancel := context.WithTimeout(r.Context(), s.pingTimeout)
			defer cancel()
			if err := s.store.Ping(ctx); err != nil {
				s.logger.WarnContext(r.Context(), "Readiness check failed", "error", err)
				http.Error(w, "store unavailable", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	}
}
