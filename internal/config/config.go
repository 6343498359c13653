// Package config handles nostrfeed configuration loading and validation.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/tOgg1/nostrfeed/internal/models"
)

const appName = "nostrfeed"

// Cache backends.
const (
	BackendJSON   = "json"
	BackendSQLite = "sqlite"
)

// Config is the root configuration structure for nostrfeed.
type Config struct {
	// Identity holds the signing key.
	Identity IdentityConfig `yaml:"identity" mapstructure:"identity"`

	// Relays are the relay URLs to read from and publish to.
	Relays []string `yaml:"relays" mapstructure:"relays"`

	// Contacts is an explicit contact list. When empty, contacts are
	// discovered from the user's published follow list.
	Contacts []ContactEntry `yaml:"contacts" mapstructure:"contacts"`

	// Fetch settings
	Fetch FetchConfig `yaml:"fetch" mapstructure:"fetch"`

	// Cache settings
	Cache CacheConfig `yaml:"cache" mapstructure:"cache"`

	// Logging settings
	Logging LoggingConfig `yaml:"logging" mapstructure:"logging"`

	// TUI settings
	TUI TUIConfig `yaml:"tui" mapstructure:"tui"`

	// Stream settings
	Stream StreamConfig `yaml:"stream" mapstructure:"stream"`
}

// IdentityConfig contains the user's key material.
type IdentityConfig struct {
	// SecretKey is an nsec bech32 string or 64-char hex.
	SecretKey string `yaml:"secret_key" mapstructure:"secret_key"`
}

// ContactEntry is one configured contact.
type ContactEntry struct {
	Identity string `yaml:"identity" mapstructure:"identity"`
	Name     string `yaml:"name" mapstructure:"name"`
}

// FetchConfig contains aggregation settings.
type FetchConfig struct {
	// Timeout bounds each per-contact query.
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`

	// SourceTimeout is the relay adapter's own budget per query.
	SourceTimeout time.Duration `yaml:"source_timeout" mapstructure:"source_timeout"`

	// MaxConcurrency caps simultaneous per-contact queries.
	MaxConcurrency int `yaml:"max_concurrency" mapstructure:"max_concurrency"`

	// QueriesPerSecond paces query starts; 0 disables pacing.
	QueriesPerSecond float64 `yaml:"queries_per_second" mapstructure:"queries_per_second"`

	// Lookback is how far back the first fetch reaches.
	Lookback time.Duration `yaml:"lookback" mapstructure:"lookback"`
}

// CacheConfig contains post cache settings.
type CacheConfig struct {
	// Backend is json or sqlite.
	Backend string `yaml:"backend" mapstructure:"backend"`

	// Path is the cache file; defaults under the user cache directory.
	Path string `yaml:"path" mapstructure:"path"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	// Level is the minimum log level (debug, info, warn, error).
	Level string `yaml:"level" mapstructure:"level"`

	// Format is the output format (json, console).
	Format string `yaml:"format" mapstructure:"format"`

	// File is an optional log file path. Browse mode logs only here.
	File string `yaml:"file" mapstructure:"file"`

	// EnableCaller adds caller information to logs.
	EnableCaller bool `yaml:"enable_caller" mapstructure:"enable_caller"`
}

// TUIConfig contains TUI settings.
type TUIConfig struct {
	// PollInterval is how often the view checks for a finished refresh.
	PollInterval time.Duration `yaml:"poll_interval" mapstructure:"poll_interval"`

	// PageSize is how far ctrl+d / ctrl+u jump.
	PageSize int `yaml:"page_size" mapstructure:"page_size"`

	// ShowThreads renders the thread pane for the selected post.
	ShowThreads bool `yaml:"show_threads" mapstructure:"show_threads"`
}

// StreamConfig contains settings for the scheduled fetch loop.
type StreamConfig struct {
	// Schedule is a cron spec, e.g. "@every 5m".
	Schedule string `yaml:"schedule" mapstructure:"schedule"`

	// Addr is the HTTP listen address for metrics and health.
	Addr string `yaml:"addr" mapstructure:"addr"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Relays:   []string{},
		Contacts: []ContactEntry{},
		Fetch: FetchConfig{
			Timeout:          10 * time.Second,
			SourceTimeout:    30 * time.Second,
			MaxConcurrency:   16,
			QueriesPerSecond: 0,
			Lookback:         7 * 24 * time.Hour,
		},
		Cache: CacheConfig{
			Backend: BackendJSON,
		},
		Logging: LoggingConfig{
			Level:        "info",
			Format:       "console",
			EnableCaller: false,
		},
		TUI: TUIConfig{
			PollInterval: 100 * time.Millisecond,
			PageSize:     10,
			ShowThreads:  true,
		},
		Stream: StreamConfig{
			Schedule: "@every 5m",
			Addr:     "127.0.0.1:9464",
		},
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Fetch.Timeout <= 0 {
		return fmt.Errorf("fetch.timeout must be positive")
	}
	if c.Fetch.SourceTimeout < c.Fetch.Timeout {
		return fmt.Errorf("fetch.source_timeout must be at least fetch.timeout")
	}
	if c.Fetch.MaxConcurrency < 1 {
		return fmt.Errorf("fetch.max_concurrency must be at least 1")
	}
	if c.Fetch.QueriesPerSecond < 0 {
		return fmt.Errorf("fetch.queries_per_second must not be negative")
	}
	if c.Fetch.Lookback <= 0 {
		return fmt.Errorf("fetch.lookback must be positive")
	}

	switch c.Cache.Backend {
	case BackendJSON, BackendSQLite:
	default:
		return fmt.Errorf("cache.backend must be one of json, sqlite")
	}

	if c.TUI.PollInterval < 10*time.Millisecond {
		return fmt.Errorf("tui.poll_interval must be at least 10ms")
	}
	if c.TUI.PageSize < 1 {
		return fmt.Errorf("tui.page_size must be at least 1")
	}

	for i, entry := range c.Contacts {
		if entry.Identity == "" {
			return fmt.Errorf("contacts[%d].identity is required", i)
		}
	}

	return nil
}

// DefaultConfigDir returns $XDG_CONFIG_HOME/nostrfeed or ~/.config/nostrfeed.
func DefaultConfigDir() (string, error) {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return "", fmt.Errorf("%w: cannot determine home directory", models.ErrConfigMissing)
	}
	return filepath.Join(home, ".config", appName), nil
}

// DefaultCacheDir returns $XDG_CACHE_HOME/nostrfeed or ~/.cache/nostrfeed.
func DefaultCacheDir() (string, error) {
	if xdg := os.Getenv("XDG_CACHE_HOME"); xdg != "" {
		return filepath.Join(xdg, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return "", fmt.Errorf("%w: cannot determine home directory", models.ErrConfigMissing)
	}
	return filepath.Join(home, ".cache", appName), nil
}

// CachePath returns the configured cache path or the backend's default.
func (c *Config) CachePath() (string, error) {
	if c.Cache.Path != "" {
		return c.Cache.Path, nil
	}
	dir, err := DefaultCacheDir()
	if err != nil {
		return "", err
	}
	if c.Cache.Backend == BackendSQLite {
		return filepath.Join(dir, "posts.db"), nil
	}
	return filepath.Join(dir, "posts.json"), nil
}

// HasExplicitContacts reports whether contacts were configured by hand.
func (c *Config) HasExplicitContacts() bool {
	return len(c.Contacts) > 0
}
