// Package config loads doublegit settings from an optional config file
// and the environment.
//
// Resolution order, later wins:
//
//  1. built-in defaults
//  2. doublegit.yaml in the repository directory, then the working
//     directory
//  3. DOUBLEGIT_* environment variables (DOUBLEGIT_ANCHOR_PREFIX, ...)
//  4. command-line flags (bound by the CLI layer)
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all operator-tunable settings.
type Config struct {
	// AnchorPrefix is prepended to commit hashes to form anchor branch
	// names.
	AnchorPrefix string `mapstructure:"anchor-prefix"`

	// Database is the ledger filename, relative to the repository.
	Database string `mapstructure:"database"`

	// FetchTimeout bounds the remote synchronization call.
	FetchTimeout time.Duration `mapstructure:"fetch-timeout"`

	// Interval is the cycle period in watch mode.
	Interval time.Duration `mapstructure:"interval"`

	// LogFile enables rotating file logging when non-empty.
	LogFile string `mapstructure:"log-file"`

	// LogMaxSizeMB caps a log file's size before rotation.
	LogMaxSizeMB int `mapstructure:"log-max-size-mb"`

	// LogMaxBackups caps the number of rotated files kept.
	LogMaxBackups int `mapstructure:"log-max-backups"`
}

// New returns a viper instance carrying doublegit's defaults and
// environment bindings. The CLI binds its flags onto the same instance.
func New() *viper.Viper {
	v := viper.New()

	v.SetDefault("anchor-prefix", "keep-")
	v.SetDefault("database", "gitarchive.sqlite3")
	v.SetDefault("fetch-timeout", 15*time.Minute)
	v.SetDefault("interval", time.Hour)
	v.SetDefault("log-file", "")
	v.SetDefault("log-max-size-mb", 10)
	v.SetDefault("log-max-backups", 5)

	v.SetEnvPrefix("doublegit")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	return v
}

// Load reads doublegit.yaml (if present) from the given directories and
// unmarshals the merged settings.
func Load(v *viper.Viper, searchDirs ...string) (*Config, error) {
	v.SetConfigName("doublegit")
	v.SetConfigType("yaml")
	for _, dir := range searchDirs {
		v.AddConfigPath(dir)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
		// No config file is the common case.
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return &cfg, nil
}
