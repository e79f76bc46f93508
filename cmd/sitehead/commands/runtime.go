package commands

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	prom "github.com/prometheus/client_golang/prometheus"

	"git.home.luguber.info/inful/sitehead/internal/config"
	ferrors "git.home.luguber.info/inful/sitehead/internal/foundation/errors"
	"git.home.luguber.info/inful/sitehead/internal/headinject"
	"git.home.luguber.info/inful/sitehead/internal/ledger"
	"git.home.luguber.info/inful/sitehead/internal/logfields"
	"git.home.luguber.info/inful/sitehead/internal/metrics"
	"git.home.luguber.info/inful/sitehead/internal/notify"
	"git.home.luguber.info/inful/sitehead/internal/pipeline"
	"git.home.luguber.info/inful/sitehead/internal/plugin"
	"git.home.luguber.info/inful/sitehead/internal/ssr"
)

// Runtime holds the components shared by the site commands.
type Runtime struct {
	Config    *config.Config
	Registry  *plugin.Registry
	Processor *pipeline.Processor

	// Metrics is nil unless metrics are enabled.
	Metrics  *prom.Registry
	Recorder metrics.Recorder

	closers []func() error
}

// NewRegistry registers the head injector configured by cfg.
func NewRegistry(cfg *config.Config) (*plugin.Registry, error) {
	registry := plugin.NewRegistry()
	err := registry.Register(headinject.New(headinject.Options{
		Prefix:         ssr.NewPathPrefix(cfg.Site.PathPrefix),
		StylesheetURL:  cfg.Fonts.StylesheetURL,
		MonoFamily:     cfg.Fonts.MonoFamily,
		MonoNormalPath: cfg.Fonts.MonoNormal,
		MonoItalicPath: cfg.Fonts.MonoItalic,
	}))
	if err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryConfig, "register head injector").Build()
	}
	return registry, nil
}

// NewRuntime wires the registry, ledger, metrics and notifier for cfg.
// Notifications are only connected when notifyRuns is set.
func NewRuntime(ctx context.Context, cfg *config.Config, notifyRuns bool) (*Runtime, error) {
	registry, err := NewRegistry(cfg)
	if err != nil {
		return nil, err
	}

	rt := &Runtime{Config: cfg, Registry: registry, Recorder: metrics.NoopRecorder{}}
	opts := []pipeline.Option{
		pipeline.WithWorkers(cfg.Site.Workers),
		pipeline.WithPatterns(cfg.Site.Include, cfg.Site.Exclude),
	}

	if cfg.Metrics.Enabled {
		rt.Metrics = metrics.NewRegistry()
		rt.Recorder = metrics.NewPrometheusRecorder(rt.Metrics)
		opts = append(opts, pipeline.WithRecorder(rt.Recorder))
	}

	if cfg.State.Enabled {
		store, err := ledger.NewSQLiteStore(cfg.State.Path)
		if err != nil {
			return nil, err
		}
		rt.closers = append(rt.closers, store.Close)
		opts = append(opts, pipeline.WithLedger(store))
		slog.Debug("Ledger enabled", logfields.Path(cfg.State.Path))
	}

	if notifyRuns && cfg.Notify.Enabled {
		pub, err := notify.Connect(ctx, cfg.Notify, registry.Signature())
		if err != nil {
			_ = rt.Close()
			return nil, err
		}
		rt.closers = append(rt.closers, pub.Close)
		opts = append(opts, pipeline.WithNotifier(pub))
	}

	rt.Processor = pipeline.New(registry, opts...)
	return rt, nil
}

// Close releases the ledger and notification connection.
func (r *Runtime) Close() error {
	var errs []error
	for i := len(r.closers) - 1; i >= 0; i-- {
		errs = append(errs, r.closers[i]())
	}
	r.closers = nil
	return errors.Join(errs...)
}

// ServeMetrics exposes /metrics on the configured standalone listener until
// ctx is done. It is a no-op when metrics are disabled or no listener is set.
func (r *Runtime) ServeMetrics(ctx context.Context) error {
	if r.Metrics == nil || r.Config.Metrics.Listen == "" {
		return nil
	}

	lc := net.ListenConfig{}
	ln, err := lc.Listen(ctx, "tcp", r.Config.Metrics.Listen)
	if err != nil {
		return ferrors.WrapError(err, ferrors.CategoryRuntime, "listen for metrics").
			WithContext("addr", r.Config.Metrics.Listen).Build()
	}

	srv := &http.Server{Handler: metricsRouter(r.Metrics), ReadHeaderTimeout: 10 * time.Second}

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Metrics server failed", logfields.Error(err))
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	slog.Info("Metrics listener started", logfields.Addr(ln.Addr().String()))
	return nil
}

func metricsRouter(reg *prom.Registry) http.Handler {
	r := chi.NewRouter()
	r.Method(http.MethodGet, "/metrics", metrics.HTTPHandler(reg))
	return r
}
