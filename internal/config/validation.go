package config

import (
	"github.com/bmatcuk/doublestar/v4"

	"git.home.luguber.info/inful/sitehead/internal/foundation"
	ferrors "git.home.luguber.info/inful/sitehead/internal/foundation/errors"
	"git.home.luguber.info/inful/sitehead/internal/ssr"
)

const maxWorkers = 64

// ValidateConfig validates the complete configuration structure.
func ValidateConfig(cfg *Config) error {
	checks := []func(*Config) error{
		validateSite,
		validateFonts,
		validateState,
		validateNotify,
	}
	for _, check := range checks {
		if err := check(cfg); err != nil {
			return err
		}
	}
	return nil
}

func invalid(field, message string, value any) error {
	return ferrors.ConfigError(message).
		WithContext("field", field).
		WithContext("value", value).
		Build()
}

func validateSite(cfg *Config) error {
	if cfg.Site.Directory == "" {
		return invalid("site.directory", "site directory is required", cfg.Site.Directory)
	}
	if cfg.Site.Workers < 1 || cfg.Site.Workers > maxWorkers {
		return invalid("site.workers", "workers must be between 1 and 64", cfg.Site.Workers)
	}
	for _, pattern := range append(append([]string{}, cfg.Site.Include...), cfg.Site.Exclude...) {
		if !doublestar.ValidatePattern(pattern) {
			return invalid("site.include", "malformed glob pattern", pattern)
		}
	}
	return nil
}

func validateFonts(cfg *Config) error {
	if !ssr.IsAbsoluteURL(cfg.Fonts.StylesheetURL) {
		return invalid("fonts.stylesheet_url", "stylesheet url must be absolute", cfg.Fonts.StylesheetURL)
	}
	if ssr.IsAbsoluteURL(cfg.Fonts.MonoNormal) || ssr.IsAbsoluteURL(cfg.Fonts.MonoItalic) {
		return invalid("fonts.mono_normal", "mono font paths must be site relative", cfg.Fonts.MonoNormal)
	}
	return nil
}

func validateState(cfg *Config) error {
	if cfg.State.Enabled && cfg.State.Path == "" {
		return invalid("state.path", "state path is required when state is enabled", cfg.State.Path)
	}
	return nil
}

func validateNotify(cfg *Config) error {
	if !cfg.Notify.Enabled {
		return nil
	}
	if cfg.Notify.NATSURL == "" {
		return invalid("notify.nats_url", "nats url is required when notifications are enabled", cfg.Notify.NATSURL)
	}
	if cfg.Notify.Subject == "" {
		return invalid("notify.subject", "subject is required when notifications are enabled", cfg.Notify.Subject)
	}
	backoff, err := backoffModes.NormalizeWithError(cfg.Notify.RetryBackoff)
	if err != nil {
		return invalid("notify.retry_backoff", "retry backoff must be fixed, linear or exponential", cfg.Notify.RetryBackoff)
	}
	cfg.Notify.RetryBackoff = backoff
	if cfg.Notify.MaxRetries < 0 {
		return invalid("notify.max_retries", "max retries cannot be negative", cfg.Notify.MaxRetries)
	}
	return nil
}

var backoffModes = foundation.NewNormalizer(map[string]string{
	"fixed":       "fixed",
	"linear":      "linear",
	"exponential": "exponential",
}, "")
