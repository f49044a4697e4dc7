// Package config loads arbor's configuration from an optional YAML file
// with ARBOR_ environment overrides.
package config

import (
	"errors"
	"log/slog"
	"strings"

	"github.com/spf13/viper"

	arborerr "github.com/roach88/arbor/pkg/errors"
)

// Config is the top-level arbor configuration.
type Config struct {
	Database  DatabaseConfig  `mapstructure:"database"`
	Schema    SchemaConfig    `mapstructure:"schema"`
	Traversal TraversalConfig `mapstructure:"traversal"`
	Log       LogConfig       `mapstructure:"log"`
}

// DatabaseConfig selects the database connection.
type DatabaseConfig struct {
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
}

// SchemaConfig points at a CUE entity package. An empty Dir selects the
// built-in sample schema.
type SchemaConfig struct {
	Dir string `mapstructure:"dir"`
}

// TraversalConfig holds repository defaults.
type TraversalConfig struct {
	MaxConcurrency int `mapstructure:"max_concurrency"`
	DefaultDepth   int `mapstructure:"default_depth"`
}

// LogConfig controls the slog handler.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration from the given path (or defaults) with
// environment variable overrides (prefix ARBOR_).
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("database.driver", "sqlite3")
	v.SetDefault("database.dsn", "arbor.db")
	v.SetDefault("schema.dir", "")
	v.SetDefault("traversal.max_concurrency", 8)
	v.SetDefault("traversal.default_depth", -1)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetEnvPrefix("ARBOR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, arborerr.Errorf(arborerr.CodeConfigLoadReadFailure, "reading config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, arborerr.Errorf(arborerr.CodeConfigParseInvalidFormat, "unmarshalling config: %w", err)
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, arborerr.Errorf(arborerr.CodeConfigValidateInvalidValue, "validating config: %w", errors.Join(errs...))
	}

	return &cfg, nil
}

// Validate checks the configuration for logical errors and returns every
// problem found.
func (c *Config) Validate() []error {
	var errs []error

	drivers := map[string]bool{"sqlite3": true, "postgres": true}
	if !drivers[c.Database.Driver] {
		errs = append(errs, invalid("config: database.driver must be one of [sqlite3, postgres], got %q", c.Database.Driver))
	}
	if c.Database.DSN == "" {
		errs = append(errs, invalid("config: database.dsn must not be empty"))
	}

	if c.Traversal.DefaultDepth < -1 {
		errs = append(errs, invalid("config: traversal.default_depth must be -1 (unlimited) or more, got %d", c.Traversal.DefaultDepth))
	}

	if _, ok := levels[strings.ToLower(c.Log.Level)]; !ok {
		errs = append(errs, invalid("config: log.level must be one of [debug, info, warn, error], got %q", c.Log.Level))
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		errs = append(errs, invalid("config: log.format must be one of [text, json], got %q", c.Log.Format))
	}

	return errs
}

func invalid(format string, args ...any) error {
	return arborerr.Errorf(arborerr.CodeConfigValidateInvalidValue, format, args...)
}

var levels = map[string]slog.Level{
	"debug": slog.LevelDebug,
	"info":  slog.LevelInfo,
	"warn":  slog.LevelWarn,
	"error": slog.LevelError,
}

// SlogLevel returns the configured level, Info when unknown.
func (l LogConfig) SlogLevel() slog.Level {
	if lvl, ok := levels[strings.ToLower(l.Level)]; ok {
		return lvl
	}
	return slog.LevelInfo
}
