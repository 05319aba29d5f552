// Package config loads the beanpath CLI configuration from YAML or JSON
// files with environment fallback for the database connection.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/effectus/beanpath"
)

// Environment variables consulted when the file leaves a value empty
const (
	EnvDSN    = "BEANPATH_DSN"
	EnvDriver = "BEANPATH_DRIVER"
)

// Config is the CLI configuration
type Config struct {
	Log      LogConfig      `yaml:"log" json:"log"`
	Database DatabaseConfig `yaml:"database" json:"database"`
	Cursor   CursorConfig   `yaml:"cursor" json:"cursor"`
	Paths    PathsConfig    `yaml:"paths" json:"paths"`
}

// LogConfig selects the logger
type LogConfig struct {
	Level       string `yaml:"level" json:"level"`
	Development bool   `yaml:"development" json:"development"`
}

// DatabaseConfig is the connection used by the query command. Driver is
// "pgx" for the native postgres driver or any registered database/sql
// driver name ("postgres", "mysql").
type DatabaseConfig struct {
	Driver  string `yaml:"driver" json:"driver"`
	DSN     string `yaml:"dsn" json:"dsn"`
	Timeout string `yaml:"timeout" json:"timeout"`
}

// CursorConfig maps result columns to property names
type CursorConfig struct {
	LowerCase bool  `yaml:"lower_case" json:"lower_case"`
	UseLabels *bool `yaml:"use_labels" json:"use_labels"`
	Limit     int   `yaml:"limit" json:"limit"`
}

// PathsConfig holds navigation defaults
type PathsConfig struct {
	IgnoreNull bool     `yaml:"ignore_null" json:"ignore_null"`
	Suppress   []string `yaml:"suppress" json:"suppress"`
}

// Default returns the configuration used when no file is given
func Default() *Config {
	return &Config{
		Log:      LogConfig{Level: "info"},
		Database: DatabaseConfig{Driver: "pgx", Timeout: "30s"},
	}
}

// Load starts from Default, takes the database connection from the
// environment when set there and then applies the file at path, if any.
// Values in the file win over the environment.
func Load(path string) (*Config, error) {
	cfg := Default()
	cfg.applyEnv()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		switch strings.ToLower(filepath.Ext(path)) {
		case ".json":
			if err := json.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parsing config json: %w", err)
			}
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parsing config yaml: %w", err)
			}
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv(EnvDSN); v != "" {
		c.Database.DSN = v
	}
	if v := os.Getenv(EnvDriver); v != "" {
		c.Database.Driver = v
	}
}

// Validate checks values that would otherwise fail late
func (c *Config) Validate() error {
	if _, err := zapcore.ParseLevel(c.level()); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	if _, err := c.QueryTimeout(); err != nil {
		return err
	}
	if strings.TrimSpace(c.Database.Driver) == "" {
		return fmt.Errorf("database.driver is required")
	}
	if c.Cursor.Limit < 0 {
		return fmt.Errorf("cursor.limit must not be negative")
	}
	return nil
}

func (c *Config) level() string {
	if c.Log.Level == "" {
		return "info"
	}
	return c.Log.Level
}

// QueryTimeout parses the database timeout. Empty means no timeout.
func (c *Config) QueryTimeout() (time.Duration, error) {
	if c.Database.Timeout == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.Database.Timeout)
	if err != nil {
		return 0, fmt.Errorf("database.timeout: %w", err)
	}
	return d, nil
}

// UseLabels reports whether columns are named by label. Defaults to true.
func (c *Config) UseLabels() bool {
	return c.Cursor.UseLabels == nil || *c.Cursor.UseLabels
}

// NullPolicy maps paths.ignore_null onto a policy
func (c *Config) NullPolicy() beanpath.NullPolicy {
	return beanpath.PolicyFor(c.Paths.IgnoreNull)
}

// Logger builds the configured zap logger
func (c *Config) Logger() (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(c.level())
	if err != nil {
		return nil, fmt.Errorf("log.level: %w", err)
	}
	zc := zap.NewProductionConfig()
	if c.Log.Development {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	return zc.Build()
}
