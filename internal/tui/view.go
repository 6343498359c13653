package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/tOgg1/nostrfeed/internal/models"
	"github.com/tOgg1/nostrfeed/internal/threading"
)

const (
	minThreadPaneWidth = 100
	keyHelp            = "j/k move  ^d/^u page  g/G ends  r refresh  n new  R reply  t threads  q quit"
)

func (m *Model) View() string {
	if m.width == 0 || m.height == 0 {
		return "loading…"
	}

	header := m.renderHeader()
	footer := m.renderFooter()
	bodyHeight := m.height - lipgloss.Height(header) - lipgloss.Height(footer)
	if bodyHeight < 1 {
		bodyHeight = 1
	}

	listWidth := m.width
	var pane string
	if m.showThreads && m.width >= minThreadPaneWidth {
		listWidth = m.width * 3 / 5
		pane = m.renderThreadPane(m.width-listWidth-1, bodyHeight)
	}

	list := m.renderList(listWidth, bodyHeight)
	body := list
	if pane != "" {
		body = lipgloss.JoinHorizontal(lipgloss.Top,
			lipgloss.NewStyle().Width(listWidth).Render(list), " ", pane)
	}
	return lipgloss.JoinVertical(lipgloss.Left, header, body, footer)
}

func (m *Model) renderHeader() string {
	title := m.styles.Title.Render("nostrfeed")
	pos := "0/0"
	if i, ok := m.list.Selected(); ok {
		pos = fmt.Sprintf("%d/%d", i+1, m.list.Len())
	}
	extra := ""
	if m.refresher.InFlight() {
		extra = "  " + m.styles.Muted.Render("⟳")
	}
	return title + "  " + m.styles.Muted.Render(pos) + extra
}

func (m *Model) renderFooter() string {
	status := m.styles.Status.Render(m.status)
	if m.statusErr {
		status = m.styles.Error.Render(m.status)
	}
	return status + "\n" + m.styles.Muted.Render(truncate(keyHelp, m.width))
}

// renderList draws as many post blocks as fit, scrolled so the selected one
// is visible.
func (m *Model) renderList(width, height int) string {
	if m.list.Len() == 0 {
		return m.styles.Muted.Render("No posts yet. Press r to refresh.")
	}

	selected, _ := m.list.Selected()
	blocks := make(map[int]string)
	block := func(i int) string {
		if b, ok := blocks[i]; ok {
			return b
		}
		post, _ := m.list.At(i)
		b := m.renderPost(post, width, i == selected)
		blocks[i] = b
		return b
	}

	if m.offset > selected {
		m.offset = selected
	}
	if m.offset >= m.list.Len() {
		m.offset = 0
	}
	for m.offset < selected && heightOf(m.offset, selected, block) > height {
		m.offset++
	}

	var (
		out  []string
		used int
	)
	for i := m.offset; i < m.list.Len(); i++ {
		b := block(i)
		h := lipgloss.Height(b) + 1
		if used+h > height && len(out) > 0 {
			break
		}
		out = append(out, b)
		used += h
	}
	return strings.Join(out, "\n\n")
}

func heightOf(from, to int, block func(int) string) int {
	total := 0
	for i := from; i <= to; i++ {
		total += lipgloss.Height(block(i)) + 1
	}
	return total
}

func (m *Model) renderPost(post models.Post, width int, selected bool) string {
	marker := "  "
	if selected {
		marker = m.styles.Selected.Render("▌ ")
	}
	inner := width - lipgloss.Width(marker)
	if inner < 10 {
		inner = 10
	}

	header := m.styles.RenderHeader(post.AuthorDisplay, post.DisplayTime)
	if !post.IsRoot() {
		header += "  " + m.styles.Muted.Render("↳ reply")
	}
	body := m.styles.RenderBody(sanitize(post.Content), inner)

	lines := strings.Split(header+"\n"+body, "\n")
	for i, line := range lines {
		if i == 0 {
			lines[i] = marker + line
			continue
		}
		lines[i] = strings.Repeat(" ", lipgloss.Width(marker)) + line
	}
	return strings.Join(lines, "\n")
}

// renderThreadPane shows the conversation around the selected post.
func (m *Model) renderThreadPane(width, height int) string {
	post, ok := m.list.SelectedItem()
	if !ok || width < 20 {
		return ""
	}

	inner := width - 4
	conv := threading.ConversationFor(m.list.Items(), post.ID)
	var lines []string
	if conv == nil || len(conv.Posts) <= 1 {
		lines = append(lines, m.styles.Muted.Render("no other posts in this thread"))
		if id := post.ThreadRootID(); id != post.ID {
			lines = append(lines, m.styles.Muted.Render("root "+shortID(id)+" not cached"))
		}
	} else {
		lines = append(lines, m.styles.Title.Render(fmt.Sprintf("thread · %d posts", len(conv.Posts))))
		for _, node := range threading.Flatten(conv) {
			indent := strings.Repeat("  ", node.Depth)
			w := inner - len(indent)
			if w < 8 {
				w = 8
			}
			header := m.styles.RenderHeader(node.Post.AuthorDisplay, node.Post.DisplayTime)
			if node.Post.ID == post.ID {
				header = m.styles.Selected.Render("» ") + header
			}
			quoted := m.styles.RenderQuoted(firstLines(sanitize(node.Post.Content), 3), w)
			for _, l := range strings.Split(header+"\n"+quoted, "\n") {
				lines = append(lines, indent+l)
			}
		}
	}

	if len(lines) > height-2 && height > 2 {
		lines = lines[:height-2]
	}
	return m.styles.Pane.Width(inner).Render(strings.Join(lines, "\n"))
}

func firstLines(s string, n int) string {
	lines := strings.SplitN(s, "\n", n+1)
	if len(lines) > n {
		lines = append(lines[:n], "…")
	}
	return strings.Join(lines, "\n")
}

func truncate(s string, width int) string {
	if width <= 0 || lipgloss.Width(s) <= width {
		return s
	}
	r := []rune(s)
	if width > len(r) {
		width = len(r)
	}
	if width <= 1 {
		return string(r[:width])
	}
	return string(r[:width-1]) + "…"
}
