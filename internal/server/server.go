// Package server serves a generated site over HTTP, injecting HTML pages on
// the fly, for previewing a site without rewriting it on disk.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	prom "github.com/prometheus/client_golang/prometheus"

	ferrors "git.home.luguber.info/inful/sitehead/internal/foundation/errors"
	"git.home.luguber.info/inful/sitehead/internal/logfields"
	"git.home.luguber.info/inful/sitehead/internal/metrics"
	"git.home.luguber.info/inful/sitehead/internal/pipeline"
	smw "git.home.luguber.info/inful/sitehead/internal/server/middleware"
	"git.home.luguber.info/inful/sitehead/internal/version"
)

// Options configures a Server.
type Options struct {
	Dir             string
	Listen          string
	ShutdownTimeout time.Duration

	// Registry, when set, is exposed at /metrics.
	Registry *prom.Registry
	Recorder metrics.Recorder
}

// Server serves one site directory.
type Server struct {
	opts     Options
	proc     *pipeline.Processor
	adapter  *ferrors.HTTPErrorAdapter
	recorder metrics.Recorder
	started  time.Time
	router   chi.Router
}

// New builds the server and its router.
func New(proc *pipeline.Processor, opts Options) *Server {
	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = 10 * time.Second
	}
	s := &Server{
		opts:     opts,
		proc:     proc,
		adapter:  ferrors.NewHTTPErrorAdapter(slog.Default()),
		recorder: opts.Recorder,
		started:  time.Now(),
	}
	if s.recorder == nil {
		s.recorder = metrics.NoopRecorder{}
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(smw.Chain(slog.Default(), s.adapter))

	r.Get("/healthz", s.handleHealth)
	if s.opts.Registry != nil {
		r.Handle("/metrics", metrics.HTTPHandler(s.opts.Registry))
	}
	r.Get("/*", s.handleSite)
	r.Head("/*", s.handleSite)
	return r
}

// Handler returns the server's HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run listens on opts.Listen until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	lc := net.ListenConfig{}
	ln, err := lc.Listen(ctx, "tcp", s.opts.Listen)
	if err != nil {
		return ferrors.WrapError(err, ferrors.CategoryRuntime, "listen").
			WithContext("addr", s.opts.Listen).Build()
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is done.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return context.WithoutCancel(ctx) },
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()
	slog.Info("Serving site", logfields.Addr(ln.Addr().String()), logfields.Path(s.opts.Dir))

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return ferrors.WrapError(err, ferrors.CategoryRuntime, "http server").Build()
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.opts.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return ferrors.WrapError(err, ferrors.CategoryRuntime, "http server shutdown").Build()
	}
	slog.Info("HTTP server stopped")
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	err := writeJSON(w, http.StatusOK, map[string]any{
		"status":     "ok",
		"uptime_sec": int(time.Since(s.started).Seconds()),
		"plugins":    s.proc.Registry().Count(),
		"signature":  s.proc.Registry().Signature(),
		"version":    version.Version,
	})
	if err != nil {
		s.adapter.WriteErrorResponse(w, r, err)
	}
}
