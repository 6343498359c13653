package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "config"))
	t.Setenv("XDG_CACHE_HOME", filepath.Join(dir, "cache"))
	return dir
}

func TestLoadDefaults(t *testing.T) {
	dir := isolate(t)

	cfg, err := NewLoader().Load()
	require.NoError(t, err)
	require.Equal(t, 10*time.Second, cfg.Fetch.Timeout)
	require.Equal(t, 30*time.Second, cfg.Fetch.SourceTimeout)
	require.Equal(t, 16, cfg.Fetch.MaxConcurrency)
	require.Equal(t, 7*24*time.Hour, cfg.Fetch.Lookback)
	require.Equal(t, BackendJSON, cfg.Cache.Backend)
	require.Equal(t, "@every 5m", cfg.Stream.Schedule)

	path, err := cfg.CachePath()
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "cache", "nostrfeed", "posts.json"), path)
}

func TestLoadFromFile(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "config.yaml")
	content := `
identity:
  secret_key: deadbeef
relays:
  - wss://relay.damus.io
  - wss://nos.lol
contacts:
  - identity: npub180cvv07tjdrrgpa0j7j7tmnyl2yr6yr7l8j4s3evf6u64th6gkwsyjh6w6
    name: fiatjaf
fetch:
  timeout: 5s
cache:
  backend: sqlite
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	require.Equal(t, "deadbeef", cfg.Identity.SecretKey)
	require.Equal(t, []string{"wss://relay.damus.io", "wss://nos.lol"}, cfg.Relays)
	require.True(t, cfg.HasExplicitContacts())
	require.Equal(t, "fiatjaf", cfg.Contacts[0].Name)
	require.Equal(t, 5*time.Second, cfg.Fetch.Timeout)

	cachePath, err := cfg.CachePath()
	require.NoError(t, err)
	require.Equal(t, "posts.db", filepath.Base(cachePath))
}

func TestLoadEnvOverrides(t *testing.T) {
	isolate(t)
	t.Setenv("NOSTRFEED_IDENTITY_SECRET_KEY", "cafebabe")
	t.Setenv("NOSTRFEED_RELAYS", "wss://a.example, wss://b.example")
	t.Setenv("NOSTRFEED_FETCH_MAX_CONCURRENCY", "4")
	t.Setenv("NOSTRFEED_LOGGING_LEVEL", "debug")

	cfg, err := NewLoader().Load()
	require.NoError(t, err)
	require.Equal(t, "cafebabe", cfg.Identity.SecretKey)
	require.Equal(t, []string{"wss://a.example", "wss://b.example"}, cfg.Relays)
	require.Equal(t, 4, cfg.Fetch.MaxConcurrency)
	require.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoadDotEnv(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("relays: []\n"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("NOSTRFEED_STREAM_ADDR=127.0.0.1:9999\n"), 0o600))
	t.Cleanup(func() { _ = os.Unsetenv("NOSTRFEED_STREAM_ADDR") })

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	require.Equal(t, "127.0.0.1:9999", cfg.Stream.Addr)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero timeout", func(c *Config) { c.Fetch.Timeout = 0 }},
		{"source budget tighter than task", func(c *Config) { c.Fetch.SourceTimeout = time.Second }},
		{"no concurrency", func(c *Config) { c.Fetch.MaxConcurrency = 0 }},
		{"unknown backend", func(c *Config) { c.Cache.Backend = "redis" }},
		{"contact without identity", func(c *Config) { c.Contacts = []ContactEntry{{Name: "x"}} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			require.Error(t, cfg.Validate())
		})
	}
	require.NoError(t, DefaultConfig().Validate())
}
