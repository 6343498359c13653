// Package feed ties contacts, aggregation, the post cache and the session
// checkpoint together into the operations the front ends use.
package feed

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/tOgg1/nostrfeed/internal/aggregator"
	"github.com/tOgg1/nostrfeed/internal/cache"
	"github.com/tOgg1/nostrfeed/internal/config"
	"github.com/tOgg1/nostrfeed/internal/contacts"
	"github.com/tOgg1/nostrfeed/internal/logging"
	"github.com/tOgg1/nostrfeed/internal/metrics"
	"github.com/tOgg1/nostrfeed/internal/models"
	"github.com/tOgg1/nostrfeed/internal/source"
	"github.com/tOgg1/nostrfeed/internal/threading"
)

// ErrEmptyNote is returned when publishing blank content.
var ErrEmptyNote = errors.New("note is empty")

// Batch is the outcome of one fetch cycle.
type Batch struct {
	aggregator.Result
	// Added is how many posts were new to the cache.
	Added int
	// Since is the lower bound the cycle fetched from.
	Since int64
}

// Deps are the collaborators of a Service.
type Deps struct {
	Config   *config.Config
	Source   source.EventSource
	Store    cache.Store
	Sessions *config.SessionStore
	Metrics  metrics.Recorder
	Now      func() time.Time
}

// Service is one feed session.
type Service struct {
	cfg      *config.Config
	src      source.EventSource
	dir      *contacts.Directory
	agg      *aggregator.Aggregator
	store    cache.Store
	sessions *config.SessionStore
	metrics  metrics.Recorder
	now      func() time.Time
	logger   zerolog.Logger

	mu       sync.Mutex
	session  *config.Session
	contacts []models.Contact
	loaded   bool
}

// NewService loads the session and builds the service.
func NewService(deps Deps) (*Service, error) {
	if deps.Config == nil || deps.Source == nil || deps.Store == nil || deps.Sessions == nil {
		return nil, fmt.Errorf("%w: feed service is missing a dependency", models.ErrConfigMissing)
	}
	if deps.Metrics == nil {
		deps.Metrics = metrics.Nop{}
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}

	session, err := deps.Sessions.Load()
	if err != nil {
		return nil, err
	}

	cfg := deps.Config
	return &Service{
		cfg: cfg,
		src: deps.Source,
		dir: contacts.NewDirectory(deps.Source),
		agg: aggregator.New(deps.Source,
			aggregator.WithTimeout(cfg.Fetch.Timeout),
			aggregator.WithMaxConcurrency(cfg.Fetch.MaxConcurrency),
			aggregator.WithQueriesPerSecond(cfg.Fetch.QueriesPerSecond),
			aggregator.WithMetrics(deps.Metrics),
		),
		store:    deps.Store,
		sessions: deps.Sessions,
		metrics:  deps.Metrics,
		now:      deps.Now,
		logger:   logging.Component("feed"),
		session:  session,
	}, nil
}

// Self is the identity notes are published as.
func (s *Service) Self() models.Identity {
	return s.src.Self()
}

// LoadContacts resolves the session's contacts once. Configured contacts win;
// otherwise contacts remembered in the session are used; otherwise they are
// discovered and remembered.
func (s *Service) LoadContacts(ctx context.Context) ([]models.Contact, error) {
	s.mu.Lock()
	if s.loaded {
		out := append([]models.Contact(nil), s.contacts...)
		s.mu.Unlock()
		return out, nil
	}
	remembered := append([]models.Contact(nil), s.session.Contacts...)
	s.mu.Unlock()

	switch {
	case s.cfg.HasExplicitContacts():
		found, err := s.dir.Resolve(ctx, s.cfg.Contacts)
		if err != nil {
			var entries *models.EntryErrors
			if !errors.As(err, &entries) {
				return nil, err
			}
			s.logger.Warn().Int("skipped", entries.Len()).Msg("some configured contacts were skipped")
		}
		s.setContacts(found, false)
		return found, nil
	case len(remembered) > 0:
		s.setContacts(remembered, false)
		return remembered, nil
	default:
		return s.DiscoverContacts(ctx)
	}
}

// DiscoverContacts rebuilds the contact list from the user's follow list and
// remembers it in the session.
func (s *Service) DiscoverContacts(ctx context.Context) ([]models.Contact, error) {
	found, err := s.dir.Discover(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.setContacts(found, true); err != nil {
		s.logger.Warn().Err(err).Msg("could not remember discovered contacts")
	}
	s.logger.Info().Int("contacts", len(found)).Msg("contacts discovered")
	return found, nil
}

func (s *Service) setContacts(found []models.Contact, remember bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.contacts = append([]models.Contact(nil), found...)
	s.loaded = true
	if !remember {
		return nil
	}
	s.session.SetContacts(found)
	return s.sessions.Save(s.session)
}

// Contacts returns the contacts resolved so far.
func (s *Service) Contacts() []models.Contact {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Contact(nil), s.contacts...)
}

// Checkpoint is the lower bound the next Refresh fetches from.
func (s *Service) Checkpoint() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session.Checkpoint(s.now(), s.cfg.Fetch.Lookback)
}

// NeedsBootstrap reports whether no fetch has completed before or the cache
// holds nothing, in which case the caller should Init with the full lookback.
func (s *Service) NeedsBootstrap(ctx context.Context) (bool, error) {
	s.mu.Lock()
	has := s.session.HasCheckpoint()
	s.mu.Unlock()
	if !has {
		return true, nil
	}
	return s.store.IsEmpty(ctx)
}

// Bootstrap fetches the full lookback window.
func (s *Service) Bootstrap(ctx context.Context) (Batch, error) {
	return s.Init(ctx, s.now().Add(-s.cfg.Fetch.Lookback).Unix())
}

// Init resolves contacts, fetches everything since the given time, merges it
// into the cache and advances the checkpoint.
func (s *Service) Init(ctx context.Context, since int64) (Batch, error) {
	list, err := s.LoadContacts(ctx)
	if err != nil {
		return Batch{}, fmt.Errorf("resolve contacts: %w", err)
	}
	return s.fetch(ctx, list, since)
}

// Refresh fetches everything since the checkpoint. Persistence failures are
// returned with the batch, which stays usable for display.
func (s *Service) Refresh(ctx context.Context) (Batch, error) {
	return s.Init(ctx, s.Checkpoint())
}

func (s *Service) fetch(ctx context.Context, list []models.Contact, since int64) (Batch, error) {
	started := s.now()
	res, err := s.agg.Fetch(ctx, list, since)
	if err != nil {
		return Batch{}, err
	}
	batch := Batch{Result: res, Since: since}

	added, err := s.store.MergeAndSave(ctx, res.Posts)
	if err != nil {
		s.logger.Error().Err(err).Msg("cache merge failed")
		return batch, fmt.Errorf("save posts: %w", err)
	}
	batch.Added = added
	s.metrics.RecordPostsCached(added)

	if len(list) > 0 && len(res.Failures) == len(list) {
		s.logger.Warn().Int("failed", len(res.Failures)).Msg("every contact failed, checkpoint kept")
		return batch, nil
	}

	s.mu.Lock()
	s.session.Advance(started)
	err = s.sessions.Save(s.session)
	s.mu.Unlock()
	if err != nil {
		return batch, fmt.Errorf("save checkpoint: %w", err)
	}
	return batch, nil
}

// CachedPosts returns every cached post, newest first.
func (s *Service) CachedPosts(ctx context.Context) ([]models.Post, error) {
	posts, err := s.store.Load(ctx)
	if err != nil {
		return nil, err
	}
	SortNewestFirst(posts)
	return posts, nil
}

// Publish posts a new root note.
func (s *Service) Publish(ctx context.Context, content string) (string, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return "", ErrEmptyNote
	}
	id, err := s.src.Publish(ctx, content, nil)
	if err != nil {
		return "", fmt.Errorf("publish: %w", models.WithKind(err))
	}
	return id, nil
}

// Reply posts a note answering parent, tagged so clients can thread it.
func (s *Service) Reply(ctx context.Context, parent models.Post, content string) (string, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return "", ErrEmptyNote
	}
	id, err := s.src.Publish(ctx, content, threading.ReplyTags(parent))
	if err != nil {
		return "", fmt.Errorf("reply: %w", models.WithKind(err))
	}
	return id, nil
}
