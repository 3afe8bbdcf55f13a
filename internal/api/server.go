package api

import (
	"context"
	"log"
	"net/http"
	"time"

	"fight-club/internal/session"
	"fight-club/internal/walls"
)

// Server wraps the HTTP listener around a Router: it constructs the router,
// owns the http.Server, and exposes Start/Shutdown.
type Server struct {
	httpServer *http.Server
	router     *Router
}

// NewServer constructs the HTTP server bound to listenAddr.
func NewServer(listenAddr string, sessions *session.Server, wallsGrid *walls.Grid) *Server {
	router := NewRouter(sessions, wallsGrid)
	return &Server{
		router: router,
		httpServer: &http.Server{
			Addr:         listenAddr,
			Handler:      router.Handler(),
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
	}
}

// Start begins serving and blocks until the listener fails or is shut down.
func (s *Server) Start() error {
	log.Printf("api: listening on %s", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
