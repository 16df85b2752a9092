package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"github.com/rs/zerolog"

	"github.com/egobogo/semroute/internal/match"
	"github.com/egobogo/semroute/internal/model"
	"github.com/egobogo/semroute/internal/router"
)

// ShutdownTimeout bounds graceful shutdown once the context is cancelled.
const ShutdownTimeout = 5 * time.Second

// Router is the part of router.Router served over HTTP.
type Router interface {
	Route(ctx context.Context, text string) (match.Result, error)
	Dispatch(ctx context.Context, text string, onChunk model.ChunkFunc) (router.Response, error)
	Routes() []router.Summary
}

// Server exposes a Router as a JSON API.
type Server struct {
	Addr     string
	Router   Router
	Logger   zerolog.Logger
	Gatherer prometheus.Gatherer // Defaults to prometheus.DefaultGatherer.
}

// Handler returns the routes of the API wrapped with permissive CORS.
func (s *Server) Handler() http.Handler {
	gatherer := s.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /route", s.handleRoute)
	mux.HandleFunc("POST /dispatch", s.handleDispatch)
	mux.HandleFunc("GET /routes", s.handleRoutes)
	mux.Handle("GET /metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	return cors.AllowAll().Handler(mux)
}

// Run listens on Addr and serves until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is cancelled, then shuts down
// gracefully. Requests already in flight keep running until they finish or
// ShutdownTimeout expires.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	svr := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext: func(net.Listener) context.Context {
			return context.WithoutCancel(ctx)
		},
	}

	errCh := make(chan error, 1)
	go func() {
		s.Logger.Info().Str("addr", ln.Addr().String()).Msg("server listening")
		errCh <- svr.Serve(ln)
	}()

	select {
	case <-ctx.Done():
		s.Logger.Info().Msg("server shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
		defer cancel()
		return svr.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
