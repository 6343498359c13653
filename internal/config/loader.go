package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/tOgg1/nostrfeed/internal/logging"
)

const envPrefix = "NOSTRFEED"

// Loader handles configuration loading with Viper.
type Loader struct {
	v          *viper.Viper
	configFile string
}

// NewLoader creates a new configuration loader.
func NewLoader() *Loader {
	return &Loader{
		v: viper.New(),
	}
}

// SetConfigFile sets an explicit config file path.
func (l *Loader) SetConfigFile(path string) {
	l.configFile = path
}

// Load loads configuration with proper precedence:
// defaults < config file < .env < env vars < CLI flags
func (l *Loader) Load() (*Config, error) {
	cfg := DefaultConfig()

	if err := loadDotEnv(l.dotEnvPaths()); err != nil {
		return nil, err
	}

	l.setupViper(cfg)

	if err := l.loadConfigFile(); err != nil {
		// Config file is optional, only error if explicitly specified
		if l.configFile != "" {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	}

	if err := l.v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	l.applyEnvOverrides(cfg)
	expandPaths(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	log := logging.Component("config")
	log.Debug().
		Str("file", l.v.ConfigFileUsed()).
		Interface("settings", logging.RedactMap(l.v.AllSettings())).
		Msg("configuration loaded")

	return cfg, nil
}

// expandTilde expands ~ to the user's home directory.
func expandTilde(path string) string {
	if path == "" {
		return path
	}
	if path == "~" {
		home, _ := os.UserHomeDir()
		return home
	}
	if strings.HasPrefix(path, "~/") {
		home, _ := os.UserHomeDir()
		return filepath.Join(home, path[2:])
	}
	return path
}

// expandPaths expands ~ in all path-related config fields.
func expandPaths(cfg *Config) {
	cfg.Cache.Path = expandTilde(cfg.Cache.Path)
	cfg.Logging.File = expandTilde(cfg.Logging.File)
}

// setupViper configures Viper with defaults and environment bindings.
func (l *Loader) setupViper(cfg *Config) {
	v := l.v

	v.SetConfigName("config")
	v.SetConfigType("yaml")

	if dir, err := DefaultConfigDir(); err == nil {
		v.AddConfigPath(dir)
	}
	v.AddConfigPath(".")

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	l.setDefaults(cfg)
	bindEnvVars(v)
	v.AutomaticEnv()
}

// setDefaults sets all default values in Viper.
func (l *Loader) setDefaults(cfg *Config) {
	v := l.v

	// Identity
	v.SetDefault("identity.secret_key", cfg.Identity.SecretKey)
	v.SetDefault("relays", cfg.Relays)

	// Fetch
	v.SetDefault("fetch.timeout", cfg.Fetch.Timeout)
	v.SetDefault("fetch.source_timeout", cfg.Fetch.SourceTimeout)
	v.SetDefault("fetch.max_concurrency", cfg.Fetch.MaxConcurrency)
	v.SetDefault("fetch.queries_per_second", cfg.Fetch.QueriesPerSecond)
	v.SetDefault("fetch.lookback", cfg.Fetch.Lookback)

	// Cache
	v.SetDefault("cache.backend", cfg.Cache.Backend)
	v.SetDefault("cache.path", cfg.Cache.Path)

	// Logging
	v.SetDefault("logging.level", cfg.Logging.Level)
	v.SetDefault("logging.format", cfg.Logging.Format)
	v.SetDefault("logging.file", cfg.Logging.File)
	v.SetDefault("logging.enable_caller", cfg.Logging.EnableCaller)

	// TUI
	v.SetDefault("tui.poll_interval", cfg.TUI.PollInterval)
	v.SetDefault("tui.page_size", cfg.TUI.PageSize)
	v.SetDefault("tui.show_threads", cfg.TUI.ShowThreads)

	// Stream
	v.SetDefault("stream.schedule", cfg.Stream.Schedule)
	v.SetDefault("stream.addr", cfg.Stream.Addr)
}

// loadConfigFile attempts to load the configuration file.
func (l *Loader) loadConfigFile() error {
	if l.configFile != "" {
		l.v.SetConfigFile(l.configFile)
	}

	if err := l.v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		return err
	}

	return nil
}

// dotEnvPaths lists the .env files consulted before the environment is read:
// the working directory first, then the config directory.
func (l *Loader) dotEnvPaths() []string {
	paths := []string{".env"}
	if l.configFile != "" {
		paths = append(paths, filepath.Join(filepath.Dir(l.configFile), ".env"))
	} else if dir, err := DefaultConfigDir(); err == nil {
		paths = append(paths, filepath.Join(dir, ".env"))
	}
	return paths
}

// loadDotEnv loads each existing file. Variables already set in the
// environment are never overwritten.
func loadDotEnv(paths []string) error {
	for _, path := range paths {
		if err := godotenv.Load(path); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("failed to load %s: %w", path, err)
		}
	}
	return nil
}

// ConfigFileUsed returns the config file that was loaded.
func (l *Loader) ConfigFileUsed() string {
	return l.v.ConfigFileUsed()
}

// ConfigDir returns the directory of the loaded config file, or the default
// config directory when none was found.
func (l *Loader) ConfigDir() (string, error) {
	if used := l.v.ConfigFileUsed(); used != "" {
		return filepath.Dir(used), nil
	}
	if l.configFile != "" {
		return filepath.Dir(l.configFile), nil
	}
	return DefaultConfigDir()
}

// Set sets a Viper value by key. Used to apply CLI flag overrides.
func (l *Loader) Set(key string, value interface{}) {
	l.v.Set(key, value)
}

// LoadFromFile loads configuration from a specific file.
func LoadFromFile(path string) (*Config, error) {
	loader := NewLoader()
	loader.SetConfigFile(path)
	return loader.Load()
}

// bindEnvVars binds environment variables for config keys.
// Viper's Unmarshal has issues with env vars on nested structs unless explicitly bound.
func bindEnvVars(v *viper.Viper) {
	envBindings := []string{
		"identity.secret_key",
		"relays",
		// Fetch
		"fetch.timeout",
		"fetch.source_timeout",
		"fetch.max_concurrency",
		"fetch.queries_per_second",
		"fetch.lookback",
		// Cache
		"cache.backend",
		"cache.path",
		// Logging
		"logging.level",
		"logging.format",
		"logging.file",
		"logging.enable_caller",
		// TUI
		"tui.poll_interval",
		"tui.page_size",
		"tui.show_threads",
		// Stream
		"stream.schedule",
		"stream.addr",
	}

	for _, key := range envBindings {
		// identity.secret_key -> NOSTRFEED_IDENTITY_SECRET_KEY
		envVar := envPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		_ = v.BindEnv(key, envVar)
	}
}

// applyEnvOverrides applies values Viper's Unmarshal may miss for nested
// struct fields when a config file is present.
func (l *Loader) applyEnvOverrides(cfg *Config) {
	v := l.v

	if key := v.GetString("identity.secret_key"); key != "" {
		cfg.Identity.SecretKey = key
	}
	if path := v.GetString("cache.path"); path != "" {
		cfg.Cache.Path = path
	}
	if file := v.GetString("logging.file"); file != "" {
		cfg.Logging.File = file
	}
	if raw := os.Getenv(envPrefix + "_RELAYS"); raw != "" {
		cfg.Relays = splitList(raw)
	}
}

func splitList(raw string) []string {
	fields := strings.FieldsFunc(raw, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\n' || r == '\t'
	})
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}
