// Package config provides configuration management for syncwatch.
//
// Configuration is loaded from three sources with the following precedence
// (highest to lowest):
//  1. CLI flags
//  2. Environment variables (SYNCWATCH_ prefix)
//  3. Config file (.syncwatch.yaml)
package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/hupe1980/syncwatch/internal/version"
	"github.com/hupe1980/syncwatch/internal/watch"
)

// Supported log levels.
const (
	LogLevelDebug = "debug"
	LogLevelInfo  = "info"
	LogLevelWarn  = "warn"
	LogLevelError = "error"
)

// Supported log formats.
const (
	LogFormatText = "text"
	LogFormatJSON = "json"
)

// Defaults for the watch and serve commands.
const (
	DefaultDebounce      = 2 * time.Second
	DefaultDeployCommand = "deploy-to-rpi"
	DefaultPort          = 8000
)

// Config represents the global configuration for syncwatch.
type Config struct {
	// LogLevel controls the verbosity of log output.
	// Valid values: debug, info, warn, error.
	LogLevel string `mapstructure:"log-level" json:"logLevel"`

	// LogFormat controls the format of log output.
	// Valid values: text, json.
	LogFormat string `mapstructure:"log-format" json:"logFormat"`

	// NoColor disables colored output.
	NoColor bool `mapstructure:"no-color" json:"noColor"`

	// Quiet suppresses all log output below error level.
	Quiet bool `mapstructure:"quiet" json:"quiet"`

	// Debounce is the quiet period after the last change before a sync.
	Debounce time.Duration `mapstructure:"debounce" json:"debounce"`

	// Extensions are the file suffixes that trigger a sync.
	Extensions []string `mapstructure:"ext" json:"ext"`

	// IgnoreDirs are directory names that are never watched.
	IgnoreDirs []string `mapstructure:"ignore-dir" json:"ignoreDir"`

	// DeployCommand overrides the deploy block's command when set.
	DeployCommand string `mapstructure:"deploy-command" json:"deployCommand"`

	// DeployTimeout overrides the deploy block's timeout when positive.
	DeployTimeout time.Duration `mapstructure:"deploy-timeout" json:"deployTimeout"`

	// Initial runs one sync as soon as the watcher is attached.
	Initial bool `mapstructure:"initial" json:"initial"`

	// Port is the TCP port of the static server.
	Port int `mapstructure:"port" json:"port"`

	// Host is the interface the static server binds; empty means all.
	Host string `mapstructure:"host" json:"host"`

	// CORS enables permissive CORS headers on the static server.
	CORS bool `mapstructure:"cors" json:"cors"`

	// Open launches a browser once the static server is listening.
	Open bool `mapstructure:"open" json:"open"`

	// LogRequests logs every request served by the static server.
	LogRequests bool `mapstructure:"log-requests" json:"logRequests"`

	// Requires is a semantic version constraint the binary must satisfy.
	Requires string `mapstructure:"requires" json:"requires"`

	// Deploy is the deploy block parsed from the config file, if any.
	Deploy *DeployConfig `mapstructure:"-" json:"-"`

	// ConfigFile is the resolved path to the config file used.
	// Set after Load() — not read from config itself.
	ConfigFile string `mapstructure:"-" json:"-"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		LogLevel:   LogLevelInfo,
		LogFormat:  LogFormatText,
		Debounce:   DefaultDebounce,
		Extensions: watch.DefaultExtensions(),
		IgnoreDirs: watch.DefaultIgnoreDirs(),
		Port:       DefaultPort,
	}
}

// Validate checks that all config values are valid.
func (c *Config) Validate() error {
	switch c.LogLevel {
	case LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError:
		// valid
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", c.LogLevel)
	}

	switch c.LogFormat {
	case LogFormatText, LogFormatJSON:
		// valid
	default:
		return fmt.Errorf("invalid log format %q: must be one of text, json", c.LogFormat)
	}

	if c.Debounce <= 0 {
		return fmt.Errorf("invalid debounce %s: must be positive", c.Debounce)
	}

	if c.DeployTimeout < 0 {
		return fmt.Errorf("invalid deploy timeout %s: must not be negative", c.DeployTimeout)
	}

	if _, err := watch.NewExtensionSet(c.Extensions...); err != nil {
		return err
	}

	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d: must be between 1 and 65535", c.Port)
	}

	if c.Deploy != nil {
		if err := c.Deploy.Validate(); err != nil {
			return err
		}
	}

	return nil
}

// EffectiveLogLevel returns the log level to use. When Quiet is true the log
// level is overridden to "error" regardless of the configured LogLevel.
func (c *Config) EffectiveLogLevel() string {
	if c.Quiet {
		return LogLevelError
	}

	return c.LogLevel
}

// CheckRequires verifies the binary version against the Requires constraint.
func (c *Config) CheckRequires(info version.Info) error {
	if c.Requires == "" {
		return nil
	}

	ok, err := info.Satisfies(c.Requires)
	if err != nil {
		return err
	}

	if !ok {
		return fmt.Errorf("syncwatch %s does not satisfy required version %q", info.Version, c.Requires)
	}

	return nil
}

// Load initialises configuration from flags, environment variables, and an
// optional config file. A fresh viper instance is used on every call so that
// Load is safe for concurrent tests.
func Load(cmd *cobra.Command, configFile string) (*Config, error) {
	v := viper.New()

	setDefaults(v)
	configureEnv(v)

	if err := configureFile(v, configFile); err != nil {
		return nil, err
	}

	if err := bindFlags(v, cmd); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	// Store the resolved config file path so downstream code can locate it.
	cfg.ConfigFile = v.ConfigFileUsed()

	if cfg.ConfigFile != "" {
		deployCfg, err := LoadDeployConfig(cfg.ConfigFile)
		if err != nil {
			return nil, err
		}

		cfg.Deploy = deployCfg
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if err := cfg.CheckRequires(version.GetInfo()); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// setDefaults registers default values in viper.
func setDefaults(v *viper.Viper) {
	d := Default()

	v.SetDefault("log-level", d.LogLevel)
	v.SetDefault("log-format", d.LogFormat)
	v.SetDefault("no-color", false)
	v.SetDefault("quiet", false)
	v.SetDefault("debounce", d.Debounce)
	v.SetDefault("ext", d.Extensions)
	v.SetDefault("ignore-dir", d.IgnoreDirs)
	v.SetDefault("deploy-command", "")
	v.SetDefault("deploy-timeout", time.Duration(0))
	v.SetDefault("initial", false)
	v.SetDefault("port", d.Port)
	v.SetDefault("host", "")
	v.SetDefault("cors", false)
	v.SetDefault("open", false)
	v.SetDefault("log-requests", false)
	v.SetDefault("requires", "")
}

// configureEnv sets up environment variable support.
func configureEnv(v *viper.Viper) {
	v.SetEnvPrefix("SYNCWATCH")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
}

// configureFile sets up the config file source.
func configureFile(v *viper.Viper, configFile string) error {
	if configFile != "" {
		v.SetConfigFile(configFile)

		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("reading config file %q: %w", configFile, err)
		}

		return nil
	}

	// Auto-discovery mode.
	v.SetConfigName(".syncwatch")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(filepath.Join(home, ".config", "syncwatch"))
	}

	if err := v.ReadInConfig(); err != nil {
		// No config file found → perfectly fine in auto-discovery.
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}

		// Found a file but it was malformed.
		return fmt.Errorf("parsing config file: %w", err)
	}

	return nil
}

// bindFlags walks from cmd up to the root and binds all PersistentFlags.
func bindFlags(v *viper.Viper, cmd *cobra.Command) error {
	if cmd == nil {
		return nil
	}

	// Bind the current command's own flags.
	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return fmt.Errorf("binding flags: %w", err)
	}

	// Walk up to root and bind all persistent flags at each level.
	for c := cmd; c != nil; c = c.Parent() {
		if err := v.BindPFlags(c.PersistentFlags()); err != nil {
			return fmt.Errorf("binding persistent flags: %w", err)
		}
	}

	return nil
}

// ---------------------------------------------------------------------------
// Context helpers
// ---------------------------------------------------------------------------

type ctxKey struct{}

// NewContext returns a child context carrying cfg.
func NewContext(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, ctxKey{}, cfg)
}

// FromContext extracts a Config from ctx, falling back to Default().
func FromContext(ctx context.Context) *Config {
	if cfg, ok := ctx.Value(ctxKey{}).(*Config); ok {
		return cfg
	}

	return Default()
}
