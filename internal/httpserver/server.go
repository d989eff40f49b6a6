package httpserver

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/videocatalog/videocatalog/internal/logging"
)

// Server wraps http.Server so it can be added to the supervisor tree's api
// layer as a suture.Service: Serve blocks until ctx is canceled, then
// shuts down gracefully.
type Server struct {
	httpServer *http.Server
}

// NewServer builds a Server bound to addr, serving router.
func NewServer(addr string, router http.Handler) *Server {
	return &Server{
		httpServer: &http.Server{
			Addr:              addr,
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
}

// Serve runs the HTTP server until ctx is canceled, satisfying
// suture.Service.
func (s *Server) Serve(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			logging.Err(err).Msg("http server shutdown did not complete cleanly")
		}
		return ctx.Err()
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return err
	}
}
