package config

import (
	"path/filepath"
	"time"

	"git.home.luguber.info/inful/sitehead/internal/headinject"
)

// DefaultApplier applies defaults for a specific configuration domain.
type DefaultApplier interface {
	ApplyDefaults(cfg *Config) error
	Domain() string
}

// SiteDefaultApplier handles site defaults.
type SiteDefaultApplier struct{}

func (SiteDefaultApplier) Domain() string { return "site" }

func (SiteDefaultApplier) ApplyDefaults(cfg *Config) error {
	if cfg.Site.Directory == "" {
		cfg.Site.Directory = "./public"
	}
	if cfg.Site.Workers <= 0 {
		cfg.Site.Workers = 4
	}
	if len(cfg.Site.Include) == 0 {
		cfg.Site.Include = []string{"**/*.html"}
	}
	return nil
}

// FontsDefaultApplier fills in the built-in font locations.
type FontsDefaultApplier struct{}

func (FontsDefaultApplier) Domain() string { return "fonts" }

func (FontsDefaultApplier) ApplyDefaults(cfg *Config) error {
	f := &cfg.Fonts
	if f.StylesheetURL == "" {
		f.StylesheetURL = headinject.DefaultStylesheetURL
	}
	if f.MonoFamily == "" {
		f.MonoFamily = headinject.DefaultMonoFamily
	}
	if f.MonoNormal == "" {
		f.MonoNormal = headinject.DefaultMonoNormalPath
	}
	if f.MonoItalic == "" {
		f.MonoItalic = headinject.DefaultMonoItalicPath
	}
	return nil
}

// LoggingDefaultApplier normalizes logging settings.
type LoggingDefaultApplier struct{}

func (LoggingDefaultApplier) Domain() string { return "logging" }

func (LoggingDefaultApplier) ApplyDefaults(cfg *Config) error {
	cfg.Logging.Level = NormalizeLogLevel(string(cfg.Logging.Level))
	cfg.Logging.Format = NormalizeLogFormat(string(cfg.Logging.Format))
	return nil
}

// RuntimeDefaultApplier handles state, notify, watch and serve defaults.
type RuntimeDefaultApplier struct{}

func (RuntimeDefaultApplier) Domain() string { return "runtime" }

func (RuntimeDefaultApplier) ApplyDefaults(cfg *Config) error {
	if cfg.State.Path == "" {
		cfg.State.Path = filepath.Join(".sitehead", "state.db")
	}
	if cfg.Notify.Subject == "" {
		cfg.Notify.Subject = "sitehead.run.completed"
	}
	if cfg.Notify.Stream == "" {
		cfg.Notify.Stream = "SITEHEAD"
	}
	if cfg.Notify.Timeout <= 0 {
		cfg.Notify.Timeout = 5 * time.Second
	}
	if cfg.Notify.RetryBackoff == "" {
		cfg.Notify.RetryBackoff = "exponential"
	}
	if cfg.Notify.RetryInitial <= 0 {
		cfg.Notify.RetryInitial = 500 * time.Millisecond
	}
	if cfg.Notify.RetryMax <= 0 {
		cfg.Notify.RetryMax = 5 * time.Second
	}
	if cfg.Watch.Debounce <= 0 {
		cfg.Watch.Debounce = 500 * time.Millisecond
	}
	if cfg.Serve.Listen == "" {
		cfg.Serve.Listen = "127.0.0.1:8080"
	}
	if cfg.Serve.ShutdownTimeout <= 0 {
		cfg.Serve.ShutdownTimeout = 10 * time.Second
	}
	return nil
}

func defaultAppliers() []DefaultApplier {
	return []DefaultApplier{
		SiteDefaultApplier{},
		FontsDefaultApplier{},
		LoggingDefaultApplier{},
		RuntimeDefaultApplier{},
	}
}

// ApplyDefaults runs every domain applier in order.
func ApplyDefaults(cfg *Config) error {
	for _, a := range defaultAppliers() {
		if err := a.ApplyDefaults(cfg); err != nil {
			return err
		}
	}
	return nil
}
