package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"git.home.luguber.info/inful/sitehead/internal/config"
	ferrors "git.home.luguber.info/inful/sitehead/internal/foundation/errors"
	"git.home.luguber.info/inful/sitehead/internal/observability"
	"git.home.luguber.info/inful/sitehead/internal/pipeline"
)

// InjectCmd implements the 'inject' command.
type InjectCmd struct {
	Dir   string `arg:"" optional:"" help:"Site directory (defaults to site.directory)"`
	Force bool   `short:"f" help:"Reprocess every page, ignoring the ledger"`
}

func (i *InjectCmd) Run(g *Global, root *CLI) error {
	cfg, err := root.LoadConfig()
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	return RunInject(ctx, g.out(), cfg, ResolveSiteDir(i.Dir, cfg), i.Force)
}

// RunInject processes dir once and prints a summary to w.
func RunInject(ctx context.Context, w io.Writer, cfg *config.Config, dir string, force bool) error {
	if err := requireDir(dir); err != nil {
		return err
	}

	ctx = observability.WithCommand(ctx, "inject")
	rt, err := NewRuntime(ctx, cfg, true)
	if err != nil {
		return err
	}
	defer func() { _ = rt.Close() }()

	summary, err := rt.Processor.ProcessSite(ctx, dir, force)
	if summary != nil {
		printSummary(w, summary)
	}
	return err
}

func printSummary(w io.Writer, s *pipeline.RunSummary) {
	_, _ = fmt.Fprintf(w, "Processed %d pages in %s: %d updated, %d unchanged, %d skipped, %d failed\n",
		s.Total(), s.Duration.Round(1e6), s.Processed, s.Unchanged, s.Skipped, s.Failed)
	for _, p := range s.Pages {
		if p.Err != nil {
			_, _ = fmt.Fprintf(w, "  %s: %v\n", p.Page, p.Err)
		}
	}
}

func requireDir(dir string) error {
	info, err := os.Stat(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return ferrors.NotFoundError("site directory not found").WithContext("path", dir).Build()
		}
		return ferrors.WrapError(err, ferrors.CategoryFileSystem, "stat site directory").
			WithContext("path", dir).Build()
	}
	if !info.IsDir() {
		return ferrors.ValidationError("site path is not a directory").WithContext("path", dir).Build()
	}
	return nil
}
