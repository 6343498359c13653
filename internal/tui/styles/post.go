package styles

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"
)

const replyPrefix = "│ "

// PostStyles contains pre-built styles for the browse view.
type PostStyles struct {
	Theme   Theme
	Authors *AuthorColorMapper

	Header    lipgloss.Style
	Timestamp lipgloss.Style
	Body      lipgloss.Style
	Muted     lipgloss.Style
	Selected  lipgloss.Style
	Reply     lipgloss.Style
	Status    lipgloss.Style
	Error     lipgloss.Style
	Title     lipgloss.Style
	Pane      lipgloss.Style
}

// NewPostStyles builds a reusable style set.
func NewPostStyles(theme Theme) PostStyles {
	return PostStyles{
		Theme:     theme,
		Authors:   NewAuthorColorMapper(theme.AuthorPalette),
		Header:    lipgloss.NewStyle().Foreground(theme.color(theme.Base.Foreground)),
		Timestamp: lipgloss.NewStyle().Foreground(theme.color(theme.Base.Muted)),
		Body:      lipgloss.NewStyle().Foreground(theme.color(theme.Base.Foreground)),
		Muted:     lipgloss.NewStyle().Foreground(theme.color(theme.Base.Muted)),
		Selected: lipgloss.NewStyle().
			Foreground(theme.color(theme.Chrome.SelectedItem)).
			Bold(true),
		Reply:  lipgloss.NewStyle().Foreground(theme.color(theme.Base.Muted)).Bold(true),
		Status: lipgloss.NewStyle().Foreground(theme.color(theme.Chrome.Footer)),
		Error:  lipgloss.NewStyle().Foreground(theme.color(theme.Chrome.Error)).Bold(true),
		Title: lipgloss.NewStyle().
			Foreground(theme.color(theme.Chrome.Header)).
			Bold(true),
		Pane: lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(theme.color(theme.Base.Border)).
			Padding(0, 1),
	}
}

// RenderHeader renders "author  time" for a post.
func (s PostStyles) RenderHeader(author, when string) string {
	name := strings.TrimSpace(author)
	if name == "" {
		name = "unknown"
	}
	return s.Header.Render(s.Authors.Foreground(name).Render(name) + "  " + s.Timestamp.Render(when))
}

// RenderBody renders wrapped body text.
func (s PostStyles) RenderBody(body string, width int) string {
	return s.Body.Render(Wrap(body, width))
}

// RenderQuoted renders wrapped text behind a vertical bar.
func (s PostStyles) RenderQuoted(body string, width int) string {
	renderWidth := width - lipgloss.Width(replyPrefix)
	if renderWidth < 1 {
		renderWidth = 1
	}

	lines := strings.Split(Wrap(body, renderWidth), "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		out = append(out, s.Reply.Render(replyPrefix)+s.Body.Render(line))
	}
	return strings.Join(out, "\n")
}

// Wrap word-wraps each paragraph of body to width.
func Wrap(body string, width int) string {
	if width <= 0 {
		return body
	}

	parts := strings.Split(body, "\n")
	for i := range parts {
		parts[i] = wordwrap.String(parts[i], width)
	}
	return strings.Join(parts, "\n")
}
