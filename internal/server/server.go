package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/book-expert/logger"
)

const (
	readHeaderTimeout = 10 * time.Second
	shutdownTimeout   = 5 * time.Second
)

// Server owns the HTTP listener for the bridge. One instance per process,
// bound to the configured address for the process lifetime.
type Server struct {
	httpServer *http.Server
	log        *logger.Logger
}

// New wires the handler to an HTTP server on addr (host:port).
func New(addr string, handler http.Handler, log *logger.Logger) *Server {
	return &Server{
		httpServer: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: readHeaderTimeout,
		},
		log: log,
	}
}

// Run binds the listener and serves until ctx is cancelled, then drains
// in-flight requests. Binding failure is returned before any request is
// accepted, so startup errors never leave a partially started server
// observable to clients.
func (s *Server) Run(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("failed to bind %s: %w", s.httpServer.Addr, err)
	}

	s.log.System("%s listening on http://%s", ServiceName, listener.Addr())

	serveErr := make(chan error, 1)

	go func() {
		serveErr <- s.httpServer.Serve(listener)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		err = s.httpServer.Shutdown(shutdownCtx)
		if err != nil {
			return fmt.Errorf("failed to shut down cleanly: %w", err)
		}

		return nil
	case err = <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}

		return fmt.Errorf("server stopped: %w", err)
	}
}
