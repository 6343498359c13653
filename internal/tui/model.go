// Package tui is the interactive browse view: a navigable list of posts with
// background refresh, thread context and note composition.
package tui

import (
	"context"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"

	"github.com/tOgg1/nostrfeed/internal/compose"
	"github.com/tOgg1/nostrfeed/internal/feed"
	"github.com/tOgg1/nostrfeed/internal/logging"
	"github.com/tOgg1/nostrfeed/internal/models"
	"github.com/tOgg1/nostrfeed/internal/navlist"
	"github.com/tOgg1/nostrfeed/internal/refresh"
	"github.com/tOgg1/nostrfeed/internal/tui/styles"
)

const (
	defaultPollInterval = 100 * time.Millisecond
	defaultPageSize     = 10
	publishTimeout      = 30 * time.Second
)

// Feed is what the view needs from the session.
type Feed interface {
	Refresh(ctx context.Context) (feed.Batch, error)
	Publish(ctx context.Context, content string) (string, error)
	Reply(ctx context.Context, parent models.Post, content string) (string, error)
}

// Config configures the view.
type Config struct {
	PollInterval time.Duration
	PageSize     int
	ShowThreads  bool
	Theme        string
}

type tickMsg struct{}

type composeDoneMsg struct {
	draft  *compose.Draft
	parent *models.Post
	err    error
}

type publishedMsg struct {
	id    string
	reply bool
	err   error
}

// Model is the bubbletea model of the browse view.
type Model struct {
	ctx       context.Context
	feed      Feed
	list      *navlist.List[models.Post]
	refresher *refresh.Coordinator[feed.Batch]
	styles    styles.PostStyles
	logger    zerolog.Logger

	pollInterval time.Duration
	pageSize     int
	showThreads  bool

	width     int
	height    int
	offset    int
	status    string
	statusErr bool
}

// NewModel builds the view over the initial posts, shown newest first.
func NewModel(ctx context.Context, f Feed, initial []models.Post, cfg Config) *Model {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = defaultPollInterval
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = defaultPageSize
	}

	posts := append([]models.Post(nil), initial...)
	feed.SortNewestFirst(posts)

	return &Model{
		ctx:          ctx,
		feed:         f,
		list:         navlist.New(posts),
		refresher:    refresh.New[feed.Batch](),
		styles:       styles.NewPostStyles(styles.Lookup(cfg.Theme)),
		logger:       logging.Component("tui"),
		pollInterval: cfg.PollInterval,
		pageSize:     cfg.PageSize,
		showThreads:  cfg.ShowThreads,
		status:       fmt.Sprintf("%d posts", len(posts)),
	}
}

// Run starts the full-screen view and blocks until the user quits.
func Run(ctx context.Context, f Feed, initial []models.Post, cfg Config) error {
	program := tea.NewProgram(NewModel(ctx, f, initial, cfg), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := program.Run()
	return err
}

func (m *Model) Init() tea.Cmd {
	return m.tick()
}

func (m *Model) tick() tea.Cmd {
	return tea.Tick(m.pollInterval, func(time.Time) tea.Msg { return tickMsg{} })
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch typed := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = typed.Width
		m.height = typed.Height
		return m, nil
	case tickMsg:
		m.pollRefresh()
		return m, m.tick()
	case composeDoneMsg:
		return m, m.handleComposeDone(typed)
	case publishedMsg:
		m.handlePublished(typed)
		return m, nil
	case tea.KeyMsg:
		return m, m.handleKey(typed)
	}
	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "q", "esc", "ctrl+c":
		return tea.Quit
	case "j", "down":
		m.list.Next()
	case "k", "up":
		m.list.Previous()
	case "ctrl+d", "pgdown":
		m.list.JumpDown(m.pageSize)
	case "ctrl+u", "pgup":
		m.list.JumpUp(m.pageSize)
	case "g", "home":
		m.list.First()
	case "G", "end":
		m.list.Last()
	case "r", "ctrl+r":
		m.startRefresh()
	case "t":
		m.showThreads = !m.showThreads
	case "n":
		return m.composeCmd(nil)
	case "R":
		if post, ok := m.list.SelectedItem(); ok {
			return m.composeCmd(&post)
		}
		m.setStatus("nothing selected to reply to", true)
	}
	return nil
}

// startRefresh begins a background refresh unless one is already running.
func (m *Model) startRefresh() {
	started := m.refresher.Start(func() (feed.Batch, error) {
		return m.feed.Refresh(m.ctx)
	})
	if !started {
		return
	}
	m.setStatus("refreshing…", false)
}

// pollRefresh folds a finished refresh into the list without blocking.
func (m *Model) pollRefresh() {
	outcome, ok := m.refresher.Poll()
	if !ok {
		return
	}

	added := m.mergePosts(outcome.Value.Posts)
	failed := len(outcome.Value.Failures)
	switch {
	case outcome.Err != nil:
		m.logger.Warn().Err(outcome.Err).Msg("refresh finished with error")
		m.setStatus(fmt.Sprintf("refresh: %d new, %v", added, outcome.Err), true)
	case failed > 0:
		m.setStatus(fmt.Sprintf("%d new posts, %d contacts failed", added, failed), true)
	default:
		m.setStatus(fmt.Sprintf("%d new posts", added), false)
	}
}

// mergePosts appends posts not already listed, re-sorts newest first and
// keeps the selection on the same post.
func (m *Model) mergePosts(posts []models.Post) int {
	if len(posts) == 0 {
		return 0
	}
	known := make(map[string]struct{}, m.list.Len())
	for _, p := range m.list.Items() {
		known[p.ID] = struct{}{}
	}
	fresh := make([]models.Post, 0, len(posts))
	for _, p := range posts {
		if _, ok := known[p.ID]; ok {
			continue
		}
		known[p.ID] = struct{}{}
		fresh = append(fresh, p)
	}
	if len(fresh) == 0 {
		return 0
	}

	selected, hadSelection := m.list.SelectedItem()
	m.list.Append(fresh...)
	m.list.SortStable(models.NewestFirst)
	if hadSelection {
		m.list.Reselect(func(p models.Post) bool { return p.ID == selected.ID })
	}
	return len(fresh)
}

func (m *Model) composeCmd(parent *models.Post) tea.Cmd {
	var comments []string
	if parent != nil {
		comments = compose.ReplyComments(parent.AuthorDisplay, parent.Content)
	}
	draft, err := compose.NewDraft(comments...)
	if err != nil {
		m.setStatus(err.Error(), true)
		return nil
	}
	return tea.ExecProcess(draft.Command(m.ctx), func(err error) tea.Msg {
		return composeDoneMsg{draft: draft, parent: parent, err: err}
	})
}

func (m *Model) handleComposeDone(msg composeDoneMsg) tea.Cmd {
	defer msg.draft.Remove()
	if msg.err != nil {
		m.setStatus("editor: "+msg.err.Error(), true)
		return nil
	}
	content, err := msg.draft.Read()
	if err != nil {
		m.setStatus(err.Error(), true)
		return nil
	}
	if content == "" {
		m.setStatus("empty note, nothing published", false)
		return nil
	}

	m.setStatus("publishing…", false)
	return m.publishCmd(msg.parent, content)
}

func (m *Model) publishCmd(parent *models.Post, content string) tea.Cmd {
	f := m.feed
	ctx := m.ctx
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(ctx, publishTimeout)
		defer cancel()
		if parent != nil {
			id, err := f.Reply(ctx, *parent, content)
			return publishedMsg{id: id, reply: true, err: err}
		}
		id, err := f.Publish(ctx, content)
		return publishedMsg{id: id, err: err}
	}
}

func (m *Model) handlePublished(msg publishedMsg) {
	if msg.err != nil {
		m.setStatus("publish failed: "+msg.err.Error(), true)
		return
	}
	what := "note"
	if msg.reply {
		what = "reply"
	}
	m.setStatus(fmt.Sprintf("%s published (%s)", what, shortID(msg.id)), false)
}

func (m *Model) setStatus(text string, isErr bool) {
	m.status = text
	m.statusErr = isErr
}

func shortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}
