package commands

import (
	"context"
	"os/signal"
	"syscall"

	"git.home.luguber.info/inful/sitehead/internal/config"
	"git.home.luguber.info/inful/sitehead/internal/observability"
	"git.home.luguber.info/inful/sitehead/internal/server"
)

// ServeCmd implements the 'serve' command.
type ServeCmd struct {
	Dir    string `arg:"" optional:"" help:"Site directory (defaults to site.directory)"`
	Listen string `short:"l" help:"Listen address (defaults to serve.listen)"`
}

func (s *ServeCmd) Run(_ *Global, root *CLI) error {
	cfg, err := root.LoadConfig()
	if err != nil {
		return err
	}
	if s.Listen != "" {
		cfg.Serve.Listen = s.Listen
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	srv, cleanup, err := NewServer(ctx, cfg, ResolveSiteDir(s.Dir, cfg))
	if err != nil {
		return err
	}
	defer cleanup()
	return srv.Run(ctx)
}

// NewServer builds the HTTP server for dir. Pages are injected per request,
// so neither the ledger nor notifications are used.
func NewServer(ctx context.Context, cfg *config.Config, dir string) (*server.Server, func(), error) {
	if err := requireDir(dir); err != nil {
		return nil, nil, err
	}

	serveCfg := *cfg
	serveCfg.State.Enabled = false
	rt, err := NewRuntime(observability.WithCommand(ctx, "serve"), &serveCfg, false)
	if err != nil {
		return nil, nil, err
	}

	srv := server.New(rt.Processor, server.Options{
		Dir:             dir,
		Listen:          cfg.Serve.Listen,
		ShutdownTimeout: cfg.Serve.ShutdownTimeout,
		Registry:        rt.Metrics,
		Recorder:        rt.Recorder,
	})
	return srv, func() { _ = rt.Close() }, nil
}
