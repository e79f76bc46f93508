// Package config loads sitehead configuration from YAML, .env files and
// SITEHEAD_* environment variables.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	ferrors "git.home.luguber.info/inful/sitehead/internal/foundation/errors"
)

// DefaultPath is the configuration file looked up when none is given.
const DefaultPath = "sitehead.yaml"

// Config represents the application configuration.
type Config struct {
	Site    SiteConfig    `yaml:"site"`
	Fonts   FontsConfig   `yaml:"fonts"`
	Logging LoggingConfig `yaml:"logging"`
	State   StateConfig   `yaml:"state"`
	Metrics MetricsConfig `yaml:"metrics"`
	Notify  NotifyConfig  `yaml:"notify"`
	Watch   WatchConfig   `yaml:"watch"`
	Serve   ServeConfig   `yaml:"serve"`
}

// SiteConfig describes the generated site to process.
type SiteConfig struct {
	Directory  string   `yaml:"directory"`
	PathPrefix string   `yaml:"path_prefix"`
	Workers    int      `yaml:"workers"`
	Include    []string `yaml:"include,omitempty"` // Glob patterns relative to the site directory
	Exclude    []string `yaml:"exclude,omitempty"`
}

// FontsConfig configures the emitted font tags.
type FontsConfig struct {
	StylesheetURL string `yaml:"stylesheet_url"`
	MonoFamily    string `yaml:"mono_family"`
	MonoNormal    string `yaml:"mono_normal"`
	MonoItalic    string `yaml:"mono_italic"`
}

// LoggingConfig configures slog output.
type LoggingConfig struct {
	Level  LogLevel  `yaml:"level"`
	Format LogFormat `yaml:"format"`
}

// StateConfig configures the processed-page ledger.
type StateConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// MetricsConfig configures Prometheus metrics.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Listen  string `yaml:"listen,omitempty"` // Standalone listener for inject/watch; serve mounts /metrics itself
}

// NotifyConfig configures NATS run notifications.
type NotifyConfig struct {
	Enabled bool          `yaml:"enabled"`
	NATSURL string        `yaml:"nats_url"`
	Subject string        `yaml:"subject"`
	Stream  string        `yaml:"stream"`
	Timeout time.Duration `yaml:"timeout"`

	// Publish retries: backoff is fixed, linear or exponential.
	MaxRetries   int           `yaml:"max_retries"`
	RetryBackoff string        `yaml:"retry_backoff"`
	RetryInitial time.Duration `yaml:"retry_initial"`
	RetryMax     time.Duration `yaml:"retry_max"`
}

// WatchConfig configures watch mode.
type WatchConfig struct {
	Debounce       time.Duration `yaml:"debounce"`
	RescanInterval time.Duration `yaml:"rescan_interval"` // Zero disables periodic rescans
}

// ServeConfig configures serve mode.
type ServeConfig struct {
	Listen          string        `yaml:"listen"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// Load loads configuration from the specified file, then applies .env files,
// environment overrides and defaults, and validates the result.
func Load(configPath string) (*Config, error) {
	loadEnvFiles()

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ferrors.NotFoundError("configuration file not found").
				WithContext("path", configPath).Build()
		}
		return nil, ferrors.WrapError(err, ferrors.CategoryConfig, "failed to read config file").
			WithContext("path", configPath).Build()
	}

	cfg, err := parse(data)
	if err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryConfig, "failed to parse config file").
			WithContext("path", configPath).Fatal().Build()
	}
	return finish(cfg)
}

// LoadOrDefault behaves like Load but falls back to the built-in defaults when
// the file does not exist.
func LoadOrDefault(configPath string) (*Config, error) {
	cfg, err := Load(configPath)
	if ferrors.HasCategory(err, ferrors.CategoryNotFound) {
		return FromEnvironment()
	}
	return cfg, err
}

// FromEnvironment builds a configuration from defaults and the environment only.
func FromEnvironment() (*Config, error) {
	loadEnvFiles()
	return finish(&Config{})
}

func parse(data []byte) (*Config, error) {
	// Expand environment variables in the YAML content
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader([]byte(expanded)))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	return &cfg, nil
}

func finish(cfg *Config) (*Config, error) {
	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}
	if err := ApplyDefaults(cfg); err != nil {
		return nil, err
	}
	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Init creates a new configuration file populated with the defaults.
func Init(configPath string, force bool) error {
	if _, err := os.Stat(configPath); err == nil && !force {
		return ferrors.ValidationError("configuration file already exists (use --force to overwrite)").
			WithContext("path", configPath).Build()
	}

	cfg := &Config{}
	if err := ApplyDefaults(cfg); err != nil {
		return err
	}

	var buf bytes.Buffer
	buf.WriteString("# sitehead configuration\n")
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(cfg); err != nil {
		return ferrors.WrapError(err, ferrors.CategoryInternal, "failed to marshal config").Build()
	}
	if err := enc.Close(); err != nil {
		return ferrors.WrapError(err, ferrors.CategoryInternal, "failed to marshal config").Build()
	}

	if err := os.WriteFile(configPath, buf.Bytes(), 0o600); err != nil {
		return ferrors.WrapError(err, ferrors.CategoryFileSystem, "failed to write config file").
			WithContext("path", configPath).Build()
	}
	fmt.Fprintf(os.Stderr, "Configuration written to %s\n", configPath)
	return nil
}
