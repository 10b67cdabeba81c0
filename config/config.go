// Package config loads the settings of the relmap command from a YAML file
// and RELMAP_* environment variables.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/syssam/relmap/dialect"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "RELMAP_"

// Config holds the store connection and runtime settings.
type Config struct {
	// Dialect is the SQL dialect, also used as the database/sql driver name.
	Dialect string `yaml:"dialect" env:"DIALECT"`
	// DSN is the data source name passed to the driver.
	DSN string `yaml:"dsn" env:"DSN"`
	// Schema is the path of the relationship YAML file. Optional.
	Schema string `yaml:"schema" env:"SCHEMA"`
	// LogLevel is one of debug, info, warn or error.
	LogLevel string `yaml:"log_level" env:"LOG_LEVEL"`
	// SlowQuery is the duration above which statements are logged.
	// Zero or a negative value disables slow query logging.
	SlowQuery time.Duration `yaml:"slow_query" env:"SLOW_QUERY"`
}

// Default returns the configuration used when nothing else is set.
func Default() Config {
	return Config{
		Dialect:   dialect.SQLite,
		DSN:       "file:relmap.db?_pragma=foreign_keys(1)",
		LogLevel:  "info",
		SlowQuery: 200 * time.Millisecond,
	}
}

// Load returns the defaults, overlaid with the YAML file at path when path
// is not empty, overlaid with the environment.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: decode %s: %w", path, err)
		}
	}
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return Config{}, fmt.Errorf("config: parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	if err := dialect.Check(c.Dialect); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if c.DSN == "" {
		return errors.New("config: dsn is required")
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	return nil
}

// Level parses LogLevel.
func (c Config) Level() (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("config: log level: %w", err)
	}
	return l, nil
}
