package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	ferrors "git.home.luguber.info/inful/sitehead/internal/foundation/errors"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "sitehead"

var envFiles = []string{".env", ".env.local"}

// loadEnvFiles loads .env/.env.local when present. godotenv never overrides
// variables already set in the process environment.
func loadEnvFiles() {
	for _, f := range envFiles {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			fmt.Fprintf(os.Stderr, "Note: could not load %s: %v\n", f, err)
		}
	}
}

// envOverrides maps SITEHEAD_* variables onto configuration fields. Unset
// variables leave the field untouched.
type envOverrides struct {
	SiteDir        *string        `envconfig:"SITE_DIR"`
	PathPrefix     *string        `envconfig:"PATH_PREFIX"`
	Workers        *int           `envconfig:"WORKERS"`
	LogLevel       *string        `envconfig:"LOG_LEVEL"`
	LogFormat      *string        `envconfig:"LOG_FORMAT"`
	StateEnabled   *bool          `envconfig:"STATE_ENABLED"`
	StatePath      *string        `envconfig:"STATE_PATH"`
	MetricsEnabled *bool          `envconfig:"METRICS_ENABLED"`
	NotifyEnabled  *bool          `envconfig:"NOTIFY_ENABLED"`
	NATSURL        *string        `envconfig:"NATS_URL"`
	Listen         *string        `envconfig:"LISTEN"`
	RescanInterval *time.Duration `envconfig:"RESCAN_INTERVAL"`
}

func applyEnvOverrides(cfg *Config) error {
	var o envOverrides
	if err := envconfig.Process(EnvPrefix, &o); err != nil {
		return ferrors.WrapError(err, ferrors.CategoryConfig, "invalid environment override").Fatal().Build()
	}

	setString(&cfg.Site.Directory, o.SiteDir)
	setString(&cfg.Site.PathPrefix, o.PathPrefix)
	if o.Workers != nil {
		cfg.Site.Workers = *o.Workers
	}
	if o.LogLevel != nil {
		cfg.Logging.Level = LogLevel(*o.LogLevel)
	}
	if o.LogFormat != nil {
		cfg.Logging.Format = LogFormat(*o.LogFormat)
	}
	setBool(&cfg.State.Enabled, o.StateEnabled)
	setString(&cfg.State.Path, o.StatePath)
	setBool(&cfg.Metrics.Enabled, o.MetricsEnabled)
	setBool(&cfg.Notify.Enabled, o.NotifyEnabled)
	setString(&cfg.Notify.NATSURL, o.NATSURL)
	setString(&cfg.Serve.Listen, o.Listen)
	if o.RescanInterval != nil {
		cfg.Watch.RescanInterval = *o.RescanInterval
	}
	return nil
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func setBool(dst *bool, v *bool) {
	if v != nil {
		*dst = *v
	}
}
