package cli

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tOgg1/nostrfeed/internal/config"
)

func TestWriteTableAligns(t *testing.T) {
	var buf bytes.Buffer
	err := writeTable(&buf, []string{"NAME", "IDENTITY"}, [][]string{
		{"alice", "npub1aaa"},
		{"bob the builder", "npub1bbb"},
	})
	require.NoError(t, err)

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 3)
	col := strings.Index(lines[0], "IDENTITY")
	require.Equal(t, col, strings.Index(lines[1], "npub1aaa"))
	require.Equal(t, col, strings.Index(lines[2], "npub1bbb"))
	require.Equal(t, len("bob the builder")+tablePadding, col)
}

func TestWriteTableTruncatesWideCells(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeTable(&buf, []string{"ERROR"}, [][]string{{strings.Repeat("x", 200)}}))
	require.Contains(t, buf.String(), "…")
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		require.LessOrEqual(t, len([]rune(line)), maxCellWidth)
	}
}

func TestWriteTableEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeTable(&buf, nil, nil))
	require.Empty(t, buf.String())
}

func TestNextSteps(t *testing.T) {
	var buf bytes.Buffer
	PrintNextSteps(&buf, HintContext{Action: "fetch", Added: 0})
	require.Contains(t, buf.String(), "contacts --refresh")

	buf.Reset()
	PrintNextSteps(&buf, HintContext{Action: "unknown"})
	require.Empty(t, buf.String())
}

func TestPreflightErrorMessage(t *testing.T) {
	err := &PreflightError{Message: "no tty", Hint: "use a subcommand", NextStep: "nostrfeed fetch"}
	require.Equal(t, "no tty\n  hint: use a subcommand\n  try:  nostrfeed fetch", err.Error())
}

func TestRootCommandTree(t *testing.T) {
	root := newRootCmd("test")
	names := make([]string, 0)
	for _, sub := range root.Commands() {
		names = append(names, sub.Name())
	}
	require.Subset(t, names, []string{"fetch", "post", "stream", "contacts", "reset"})

	for _, flag := range []string{"config", "log-level", "log-format"} {
		require.NotNil(t, root.PersistentFlags().Lookup(flag), flag)
	}
}

func TestLoadConfigAppliesFlagOverrides(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	t.Setenv("XDG_CACHE_HOME", dir)
	t.Chdir(dir)

	cfgFile, logLevel, logFormat = "", "debug", "json"
	t.Cleanup(func() { cfgFile, logLevel, logFormat = "", "", "" })

	cfg, loader, err := loadConfig()
	require.NoError(t, err)
	require.NotNil(t, loader)
	require.Equal(t, "debug", cfg.Logging.Level)
	require.Equal(t, "json", cfg.Logging.Format)
}

func TestResetSessionForgetsCheckpoint(t *testing.T) {
	dir := t.TempDir()
	store, err := config.DefaultSessionStore(dir)
	require.NoError(t, err)

	session := &config.Session{}
	session.Advance(time.Unix(1_700_000_000, 0))
	require.NoError(t, store.Save(session))

	path, err := resetSession(dir)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "session.yaml"), path)

	reloaded, err := store.Load()
	require.NoError(t, err)
	require.False(t, reloaded.HasCheckpoint())

	_, err = resetSession(dir)
	require.NoError(t, err)
}
