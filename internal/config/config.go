package config

import (
	"fmt"
	"os"
	"time"

	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// Config is the root configuration for a taskboard workspace.
type Config struct {
	Version     int    `yaml:"version"`
	Database    string `yaml:"database"`              // SQLite file, relative to the workspace
	Actor       string `yaml:"actor,omitempty"`       // User ID the CLI and TUI act as
	LogLevel    string `yaml:"log_level"`             // debug, info, warn, error
	NotifyTTLMs int    `yaml:"notify_ttl_ms"`         // Lifetime of a notification
	Workers     int    `yaml:"workers"`               // Lanes persisted in parallel
	Server      Server `yaml:"server"`
	Redis       Redis  `yaml:"redis,omitempty"`
}

// Server configures the HTTP API.
type Server struct {
	Listen            string `yaml:"listen"`
	RequestTimeoutSec int    `yaml:"request_timeout_sec"`
}

// Redis configures the optional board cache. An empty Addr disables it.
type Redis struct {
	Addr     string `yaml:"addr,omitempty"`
	Password string `yaml:"password,omitempty"`
	DB       int    `yaml:"db,omitempty"`
	TTLSec   int    `yaml:"ttl_sec,omitempty"`
}

// Load reads and parses the config file at the given path. Missing
// fields keep their default values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Save writes the config to the given path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}

// DefaultConfig returns a starter config.
func DefaultConfig() *Config {
	return &Config{
		Version:     1,
		Database:    "taskboard.db",
		LogLevel:    "info",
		NotifyTTLMs: 2500,
		Workers:     2,
		Server: Server{
			Listen:            ":8080",
			RequestTimeoutSec: 10,
		},
	}
}

func (c *Config) validate() error {
	if c.Version != 1 {
		return fmt.Errorf("unsupported config version %d", c.Version)
	}
	if c.Database == "" {
		return fmt.Errorf("database is required")
	}
	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("log_level: %w", err)
	}
	if c.NotifyTTLMs < 0 {
		return fmt.Errorf("notify_ttl_ms must not be negative, got %d", c.NotifyTTLMs)
	}
	if c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", c.Workers)
	}
	if c.Server.RequestTimeoutSec < 0 {
		return fmt.Errorf("server.request_timeout_sec must not be negative, got %d", c.Server.RequestTimeoutSec)
	}
	if c.Redis.DB < 0 {
		return fmt.Errorf("redis.db must not be negative, got %d", c.Redis.DB)
	}
	return nil
}

// Level returns the parsed log level, falling back to info.
func (c *Config) Level() log.Level {
	lvl, err := log.ParseLevel(c.LogLevel)
	if err != nil {
		return log.InfoLevel
	}
	return lvl
}

// NotifyTTL returns how long notifications stay visible.
func (c *Config) NotifyTTL() time.Duration {
	return time.Duration(c.NotifyTTLMs) * time.Millisecond
}

// RequestTimeout returns the per-request timeout of the HTTP API.
// Zero means no timeout.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.Server.RequestTimeoutSec) * time.Second
}

// CacheEnabled reports whether a Redis board cache is configured.
func (c *Config) CacheEnabled() bool {
	return c.Redis.Addr != ""
}

// CacheTTL returns the lifetime of cached boards.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.Redis.TTLSec) * time.Second
}
