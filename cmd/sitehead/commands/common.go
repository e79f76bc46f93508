package commands

import (
	"io"
	"log/slog"
	"os"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/sitehead/internal/config"
)

// Global context passed to subcommands.
type Global struct {
	Logger *slog.Logger
	Out    io.Writer
}

func (g *Global) out() io.Writer {
	if g == nil || g.Out == nil {
		return os.Stdout
	}
	return g.Out
}

// CLI definition & global flags - used by commands that need access to root config.
type CLI struct {
	Config  string           `short:"c" help:"Configuration file path" default:"sitehead.yaml"`
	Verbose bool             `short:"v" help:"Enable verbose logging"`
	Version kong.VersionFlag `name:"version" help:"Show version and exit"`

	Inject  InjectCmd  `cmd:"" help:"Inject head and pre-body tags into every page of a generated site"`
	Print   PrintCmd   `cmd:"" help:"Print the rendered pre-body or head fragment"`
	Check   CheckCmd   `cmd:"" help:"Verify the dark-mode flash prevention script"`
	Watch   WatchCmd   `cmd:"" help:"Inject, then keep re-injecting pages as they change"`
	Serve   ServeCmd   `cmd:"" help:"Serve a site over HTTP, injecting pages on the fly"`
	Init    InitCmd    `cmd:"" help:"Initialize a new configuration file"`
	History HistoryCmd `cmd:"" help:"Show recent runs recorded in the ledger"`

	cfg    *config.Config `kong:"-"`
	cfgErr error          `kong:"-"`
}

// AfterApply runs after flag parsing; loads configuration and sets up logging once.
// A configuration error is kept for the command to report.
// nolint:unparam // AfterApply currently never returns an error.
func (c *CLI) AfterApply() error {
	c.cfg, c.cfgErr = config.LoadOrDefault(c.Config)
	slog.SetDefault(NewLogger(os.Stderr, c.Verbose, c.cfg))
	return nil
}

// LoadConfig returns the configuration loaded during AfterApply.
func (c *CLI) LoadConfig() (*config.Config, error) {
	if c.cfg == nil && c.cfgErr == nil {
		c.cfg, c.cfgErr = config.LoadOrDefault(c.Config)
	}
	return c.cfg, c.cfgErr
}

// NewLogger builds the process logger. Verbose forces debug level; otherwise
// the configured level and format apply.
func NewLogger(w io.Writer, verbose bool, cfg *config.Config) *slog.Logger {
	level := slog.LevelInfo
	format := config.LogFormatText
	if cfg != nil {
		level = cfg.Logging.Level.SlogLevel()
		format = cfg.Logging.Format
	}
	if verbose {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{Level: level}
	if format == config.LogFormatJSON {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// ResolveSiteDir determines the site directory. Priority: argument > config.
func ResolveSiteDir(arg string, cfg *config.Config) string {
	if arg != "" {
		return arg
	}
	return cfg.Site.Directory
}
