package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all worklog configuration.
type Config struct {
	Database DatabaseConfig `yaml:"database"`
	Remote   RemoteConfig   `yaml:"remote"`
	Server   ServerConfig   `yaml:"server"`
	Sync     SyncConfig     `yaml:"sync"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// DatabaseConfig configures the embedded store.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// RemoteConfig points the client at a worklog server. An empty URL means
// the embedded store is used directly.
type RemoteConfig struct {
	URL     string `yaml:"url"`
	Timeout string `yaml:"timeout"`
}

// ServerConfig configures `worklog serve`.
type ServerConfig struct {
	Addr            string  `yaml:"addr"`
	RateLimit       float64 `yaml:"rate_limit"` // requests per second per client
	RateBurst       int     `yaml:"rate_burst"`
	ShutdownTimeout string  `yaml:"shutdown_timeout"`
}

// SyncConfig configures the client cache.
type SyncConfig struct {
	Freshness string `yaml:"freshness"`
	Interval  string `yaml:"interval"`
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
	File  string `yaml:"file"`  // used while the TUI owns the terminal
}

// Dir returns ~/.config/worklog
func Dir() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, "worklog"), nil
}

// DefaultPath returns ~/.config/worklog/config.yaml
func DefaultPath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// Default returns the built-in configuration.
func Default() *Config {
	dir, err := Dir()
	if err != nil {
		dir = "."
	}
	return &Config{
		Database: DatabaseConfig{Path: filepath.Join(dir, "worklog.db")},
		Remote:   RemoteConfig{Timeout: "10s"},
		Server: ServerConfig{
			Addr:            "127.0.0.1:8080",
			RateLimit:       10,
			RateBurst:       20,
			ShutdownTimeout: "5s",
		},
		Sync: SyncConfig{Freshness: "30s", Interval: "30s"},
		Logging: LoggingConfig{
			Level: "info",
			File:  filepath.Join(dir, "worklog.log"),
		},
	}
}

// Load reads .env (if present), the YAML file at path (if present), then
// environment overrides.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := Default()
	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
	case err != nil:
		return nil, fmt.Errorf("read config: %w", err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// Save writes the configuration as YAML.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("WORKLOG_DB"); v != "" {
		c.Database.Path = v
	}
	if v := os.Getenv("WORKLOG_REMOTE"); v != "" {
		c.Remote.URL = v
	}
	if v := os.Getenv("WORKLOG_ADDR"); v != "" {
		c.Server.Addr = v
	}
	if v := os.Getenv("WORKLOG_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("WORKLOG_LOG_FILE"); v != "" {
		c.Logging.File = v
	}
}

func duration(v string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

func (c *Config) RemoteTimeout() time.Duration { return duration(c.Remote.Timeout, 10*time.Second) }

func (c *Config) ShutdownTimeout() time.Duration {
	return duration(c.Server.ShutdownTimeout, 5*time.Second)
}

func (c *Config) Freshness() time.Duration { return duration(c.Sync.Freshness, 30*time.Second) }

func (c *Config) RefreshInterval() time.Duration { return duration(c.Sync.Interval, 30*time.Second) }

// IsRemote reports whether the client should talk to a server.
func (c *Config) IsRemote() bool { return c.Remote.URL != "" }

var validLevels = []string{"debug", "info", "warn", "error"}

// Validate rejects values the rest of the program cannot run with.
func (c *Config) Validate() error {
	if !c.IsRemote() && c.Database.Path == "" {
		return fmt.Errorf("database path not configured (set database.path or WORKLOG_DB)")
	}
	if c.IsRemote() && !strings.HasPrefix(c.Remote.URL, "http://") && !strings.HasPrefix(c.Remote.URL, "https://") {
		return fmt.Errorf("invalid remote url: %q", c.Remote.URL)
	}
	for name, v := range map[string]string{
		"remote.timeout":          c.Remote.Timeout,
		"server.shutdown_timeout": c.Server.ShutdownTimeout,
		"sync.freshness":          c.Sync.Freshness,
		"sync.interval":           c.Sync.Interval,
	} {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", name, err)
		}
		if d <= 0 {
			return fmt.Errorf("invalid %s: must be positive", name)
		}
	}
	if c.Server.RateLimit <= 0 || c.Server.RateBurst <= 0 {
		return fmt.Errorf("invalid rate limit: %v/s burst %d", c.Server.RateLimit, c.Server.RateBurst)
	}
	valid := false
	for _, l := range validLevels {
		if c.Logging.Level == l {
			valid = true
			break
		}
	}
	if !valid {
		return fmt.Errorf("invalid log level: %s (valid: %v)", c.Logging.Level, validLevels)
	}
	return nil
}
