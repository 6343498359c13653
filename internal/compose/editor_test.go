package compose

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEditorPrecedence(t *testing.T) {
	t.Setenv("VISUAL", "")
	t.Setenv("EDITOR", "")
	require.Equal(t, []string{"vi"}, Editor())

	t.Setenv("EDITOR", "nano -w")
	require.Equal(t, []string{"nano", "-w"}, Editor())

	t.Setenv("VISUAL", "code --wait")
	require.Equal(t, []string{"code", "--wait"}, Editor())
}

func TestCleanDropsComments(t *testing.T) {
	text := "\n  hello #nostr\nsecond line\n#| Replying to alice:\n#| quoted\n#|\n"
	require.Equal(t, "hello #nostr\nsecond line", Clean(text))
	require.Equal(t, "", Clean("#| only comments\n"))
}

func TestDraftRoundTrip(t *testing.T) {
	draft, err := NewDraft(ReplyComments("alice", "original\ntwo lines")...)
	require.NoError(t, err)
	defer draft.Remove()

	text, err := draft.Read()
	require.NoError(t, err)
	require.Empty(t, text)

	require.NoError(t, os.WriteFile(draft.Path(), []byte("my reply\n#| ignored\n"), 0o600))
	text, err = draft.Read()
	require.NoError(t, err)
	require.Equal(t, "my reply", text)

	draft.Remove()
	_, err = os.Stat(draft.Path())
	require.True(t, os.IsNotExist(err))
}

func TestRunWithScriptedEditor(t *testing.T) {
	script := filepath.Join(t.TempDir(), "editor.sh")
	require.NoError(t, os.WriteFile(script, []byte("#!/bin/sh\necho 'written by editor' >> \"$1\"\n"), 0o755))
	t.Setenv("VISUAL", "")
	t.Setenv("EDITOR", script)

	text, err := Run(context.Background(), "template")
	require.NoError(t, err)
	require.Equal(t, "written by editor", text)
}

func TestRunAbortedEditor(t *testing.T) {
	t.Setenv("VISUAL", "")
	t.Setenv("EDITOR", "false")

	_, err := Run(context.Background())
	require.ErrorIs(t, err, ErrAborted)
}
