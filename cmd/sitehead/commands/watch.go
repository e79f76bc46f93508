package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os/signal"
	"syscall"

	"git.home.luguber.info/inful/sitehead/internal/config"
	"git.home.luguber.info/inful/sitehead/internal/logfields"
	"git.home.luguber.info/inful/sitehead/internal/observability"
	"git.home.luguber.info/inful/sitehead/internal/watch"
)

// WatchCmd implements the 'watch' command.
type WatchCmd struct {
	Dir   string `arg:"" optional:"" help:"Site directory (defaults to site.directory)"`
	Force bool   `short:"f" help:"Ignore the ledger on the initial run"`
}

func (c *WatchCmd) Run(g *Global, root *CLI) error {
	cfg, err := root.LoadConfig()
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	return RunWatch(ctx, g.out(), cfg, ResolveSiteDir(c.Dir, cfg), c.Force)
}

// RunWatch injects dir and keeps it injected until ctx is done.
func RunWatch(ctx context.Context, w io.Writer, cfg *config.Config, dir string, force bool) error {
	if err := requireDir(dir); err != nil {
		return err
	}

	ctx = observability.WithCommand(ctx, "watch")
	rt, err := NewRuntime(ctx, cfg, true)
	if err != nil {
		return err
	}
	defer func() { _ = rt.Close() }()

	if err := rt.ServeMetrics(ctx); err != nil {
		return err
	}

	watcher, err := watch.New(rt.Processor, dir, watch.Options{
		Debounce:       cfg.Watch.Debounce,
		RescanInterval: cfg.Watch.RescanInterval,
		Force:          force,
		OnBatch: func(pages []string) {
			_, _ = fmt.Fprintf(w, "Re-injected %d page(s)\n", len(pages))
		},
	})
	if err != nil {
		return err
	}

	_, _ = fmt.Fprintf(w, "Watching %s (Ctrl+C to stop)\n", dir)
	err = watcher.Run(ctx)
	slog.Info("Watch stopped", logfields.Path(dir))
	return err
}
