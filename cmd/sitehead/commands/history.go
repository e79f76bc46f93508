package commands

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"git.home.luguber.info/inful/sitehead/internal/config"
	ferrors "git.home.luguber.info/inful/sitehead/internal/foundation/errors"
	"git.home.luguber.info/inful/sitehead/internal/ledger"
)

// HistoryCmd implements the 'history' command.
type HistoryCmd struct {
	Limit int `short:"n" help:"Number of runs to show" default:"10"`
}

func (h *HistoryCmd) Run(g *Global, root *CLI) error {
	cfg, err := root.LoadConfig()
	if err != nil {
		return err
	}
	return RunHistory(context.Background(), g.out(), cfg, h.Limit)
}

// RunHistory prints the most recent runs recorded in the ledger.
func RunHistory(ctx context.Context, w io.Writer, cfg *config.Config, limit int) error {
	if !cfg.State.Enabled {
		return ferrors.ConfigError("run history requires state.enabled").Build()
	}

	store, err := ledger.NewSQLiteStore(cfg.State.Path)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	runs, err := store.Runs(ctx, limit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		_, _ = fmt.Fprintln(w, "No runs recorded")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "STARTED\tOUTCOME\tUPDATED\tUNCHANGED\tSKIPPED\tFAILED\tDURATION\tRUN")
	for _, r := range runs {
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%d\t%d\t%s\t%s\n",
			r.StartedAt.Local().Format("2006-01-02 15:04:05"), r.Outcome,
			r.Processed, r.Unchanged, r.Skipped, r.Failed, r.Duration.Round(1e6), r.ID)
	}
	return tw.Flush()
}
