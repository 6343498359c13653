// Package compose lets the user write a note in their own editor.
package compose

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// CommentPrefix marks template lines that are dropped from the note.
const CommentPrefix = "#| "

// ErrAborted is returned when the editor exits with a failure status.
var ErrAborted = errors.New("editor exited with non-zero status")

// Editor returns the user's editor command: $VISUAL, then $EDITOR, then vi.
func Editor() []string {
	for _, env := range []string{"VISUAL", "EDITOR"} {
		if fields := strings.Fields(os.Getenv(env)); len(fields) > 0 {
			return fields
		}
	}
	return []string{"vi"}
}

// Draft is a temporary file the editor works on.
type Draft struct {
	path string
}

// NewDraft creates a temp file seeded with comment lines.
func NewDraft(comments ...string) (*Draft, error) {
	f, err := os.CreateTemp("", "nostrfeed-note-*.txt")
	if err != nil {
		return nil, fmt.Errorf("create draft: %w", err)
	}
	defer f.Close()

	var b strings.Builder
	if len(comments) > 0 {
		b.WriteString("\n")
	}
	for _, c := range comments {
		for _, line := range strings.Split(c, "\n") {
			b.WriteString(CommentPrefix)
			b.WriteString(line)
			b.WriteString("\n")
		}
	}
	if _, err := f.WriteString(b.String()); err != nil {
		_ = os.Remove(f.Name())
		return nil, fmt.Errorf("write draft: %w", err)
	}
	return &Draft{path: f.Name()}, nil
}

// Path returns the draft file path.
func (d *Draft) Path() string {
	return d.path
}

// Command builds the editor invocation for the draft. The caller attaches
// the terminal.
func (d *Draft) Command(ctx context.Context) *exec.Cmd {
	argv := Editor()
	args := append(argv[1:len(argv):len(argv)], d.path)
	return exec.CommandContext(ctx, argv[0], args...)
}

// Read returns the draft text with comment lines removed and surrounding
// whitespace trimmed.
func (d *Draft) Read() (string, error) {
	data, err := os.ReadFile(d.path)
	if err != nil {
		return "", fmt.Errorf("read draft: %w", err)
	}
	return Clean(string(data)), nil
}

// Remove deletes the draft file.
func (d *Draft) Remove() {
	_ = os.Remove(d.path)
}

// Clean strips comment lines and trims the result.
func Clean(text string) string {
	lines := strings.Split(text, "\n")
	kept := lines[:0]
	for _, line := range lines {
		if strings.HasPrefix(line, CommentPrefix) || strings.TrimRight(line, " ") == strings.TrimSpace(CommentPrefix) {
			continue
		}
		kept = append(kept, line)
	}
	return strings.TrimSpace(strings.Join(kept, "\n"))
}

// Run opens the editor on a fresh draft attached to the current terminal and
// returns what the user wrote.
func Run(ctx context.Context, comments ...string) (string, error) {
	draft, err := NewDraft(comments...)
	if err != nil {
		return "", err
	}
	defer draft.Remove()

	cmd := draft.Command(ctx)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return "", ErrAborted
		}
		return "", fmt.Errorf("run editor: %w", err)
	}
	return draft.Read()
}

// ReplyComments builds the template shown when replying to a post.
func ReplyComments(author, content string) []string {
	return []string{
		"Replying to " + author + ":",
		content,
		"",
		"Lines starting with '" + CommentPrefix + "' are ignored. Leave empty to cancel.",
	}
}
