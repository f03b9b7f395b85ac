// Package gateway lets chart clients pull annotated SSL series over HTTP
// and WebSocket. Each request runs its own engine over bars from the source.
package gateway

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"ssl-backtest/internal/model"
	"ssl-backtest/internal/strategy"
)

// Server serves /api/symbols, /api/series and /ws.
type Server struct {
	source   model.BarSource
	defaults strategy.Params
	rec      strategy.Recorder
	log      *slog.Logger
	mux      *http.ServeMux
}

// Option customizes a Server.
type Option func(*Server)

// WithRecorder forwards run outcomes to r.
func WithRecorder(r strategy.Recorder) Option {
	return func(s *Server) { s.rec = r }
}

// WithLogger sets the request logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) { s.log = l }
}

// NewServer creates a gateway reading bars from source. defaults fill any
// parameter a request leaves out.
func NewServer(source model.BarSource, defaults strategy.Params, opts ...Option) *Server {
	s := &Server{
		source:   source,
		defaults: defaults,
		rec:      nopRecorder{},
		log:      slog.Default(),
		mux:      http.NewServeMux(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.routes()
	return s
}

type nopRecorder struct{}

func (nopRecorder) ObserveRun(strategy.Summary, time.Duration) {}
func (nopRecorder) ObserveFailure(error)                       {}

// Handler returns the HTTP handler with all routes registered.
func (s *Server) Handler() http.Handler { return s.mux }

// Serve listens on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("gateway listening", slog.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
