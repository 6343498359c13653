// Package contacts resolves the set of identities whose posts make up the feed.
package contacts

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/tOgg1/nostrfeed/internal/config"
	"github.com/tOgg1/nostrfeed/internal/logging"
	"github.com/tOgg1/nostrfeed/internal/models"
	"github.com/tOgg1/nostrfeed/internal/source"
	"github.com/tOgg1/nostrfeed/internal/threading"
)

const (
	// DefaultDiscoveryTimeout bounds the follow-list query.
	DefaultDiscoveryTimeout = 15 * time.Second
	// DefaultMetadataConcurrency caps simultaneous profile lookups.
	DefaultMetadataConcurrency = 8
)

// Directory resolves contacts from configuration or from the user's
// published follow list.
type Directory struct {
	src                 source.EventSource
	discoveryTimeout    time.Duration
	metadataConcurrency int
	logger              zerolog.Logger
}

// Option configures a Directory.
type Option func(*Directory)

// WithDiscoveryTimeout overrides the follow-list query budget.
func WithDiscoveryTimeout(d time.Duration) Option {
	return func(dir *Directory) {
		if d > 0 {
			dir.discoveryTimeout = d
		}
	}
}

// WithMetadataConcurrency overrides how many profile lookups run at once.
func WithMetadataConcurrency(n int) Option {
	return func(dir *Directory) {
		if n > 0 {
			dir.metadataConcurrency = n
		}
	}
}

// NewDirectory creates a directory reading from src.
func NewDirectory(src source.EventSource, opts ...Option) *Directory {
	d := &Directory{
		src:                 src,
		discoveryTimeout:    DefaultDiscoveryTimeout,
		metadataConcurrency: DefaultMetadataConcurrency,
		logger:              logging.Component("contacts"),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Resolve returns the session's contacts.
//
// A non-empty explicit list is used as given. Entries whose identity does not
// parse are skipped and reported through a *models.EntryErrors returned
// alongside the valid contacts; callers log it and continue. An empty list
// triggers discovery from the source.
func (d *Directory) Resolve(ctx context.Context, explicit []config.ContactEntry) ([]models.Contact, error) {
	if len(explicit) > 0 {
		return d.fromEntries(explicit)
	}
	return d.Discover(ctx)
}

func (d *Directory) fromEntries(entries []config.ContactEntry) ([]models.Contact, error) {
	var (
		out      = make([]models.Contact, 0, len(entries))
		failures models.EntryErrors
	)
	for i, entry := range entries {
		id, err := models.ParseIdentity(entry.Identity)
		if err != nil {
			d.logger.Warn().Err(err).Int("index", i).Str("name", entry.Name).Msg("skipping contact with invalid identity")
			failures.Add(i, entry.Identity, err)
			continue
		}
		out = append(out, models.NewContact(id, strings.TrimSpace(entry.Name)))
	}
	return out, failures.Err()
}

// Discover fetches the user's newest follow list and looks up a display
// name for every followed identity.
func (d *Directory) Discover(ctx context.Context) ([]models.Contact, error) {
	ids, err := d.follows(ctx)
	if err != nil {
		return nil, err
	}
	d.logger.Debug().Int("follows", len(ids)).Msg("follow list resolved")

	names := make([]string, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.metadataConcurrency)
	for i, id := range ids {
		g.Go(func() error {
			names[i] = d.displayName(gctx, id)
			return nil
		})
	}
	_ = g.Wait()

	out := make([]models.Contact, len(ids))
	for i, id := range ids {
		out[i] = models.NewContact(id, names[i])
	}
	return out, nil
}

func (d *Directory) follows(ctx context.Context) ([]models.Identity, error) {
	ctx, cancel := context.WithTimeout(ctx, d.discoveryTimeout)
	defer cancel()

	events, err := d.src.FetchEvents(ctx, source.Filter{
		Author: d.src.Self(),
		Kind:   source.KindContactList,
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%w: contact list: %v", models.ErrTimeout, err)
		}
		return nil, fmt.Errorf("contact list: %w", models.WithKind(err))
	}

	newest, ok := newestEvent(events)
	if !ok {
		return nil, nil
	}

	seen := make(map[models.Identity]struct{})
	var ids []models.Identity
	for _, tag := range threading.ParseTags(newest.Tags) {
		ref, ok := tag.(models.IdentityRef)
		if !ok {
			continue
		}
		id, err := models.ParseIdentity(ref.ID)
		if err != nil {
			d.logger.Debug().Str("value", ref.ID).Msg("skipping invalid follow entry")
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	return ids, nil
}

// profile is the subset of kind-0 metadata the feed displays.
type profile struct {
	Name        string `json:"name"`
	DisplayName string `json:"display_name"`
}

// displayName returns the best known name for id, or "" when none is known.
func (d *Directory) displayName(ctx context.Context, id models.Identity) string {
	events, err := d.src.FetchEvents(ctx, source.Filter{
		Author: id,
		Kind:   source.KindMetadata,
		Limit:  1,
	})
	if err != nil {
		log := logging.WithContact(d.logger, id.Short(), id.Hex())
		log.Debug().Err(err).Msg("metadata lookup failed")
		return ""
	}
	newest, ok := newestEvent(events)
	if !ok {
		return ""
	}
	var p profile
	if err := json.Unmarshal([]byte(newest.Content), &p); err != nil {
		return ""
	}
	if name := strings.TrimSpace(p.Name); name != "" {
		return name
	}
	return strings.TrimSpace(p.DisplayName)
}

func newestEvent(events []source.RawEvent) (source.RawEvent, bool) {
	if len(events) == 0 {
		return source.RawEvent{}, false
	}
	sorted := append([]source.RawEvent(nil), events...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].CreatedAt > sorted[j].CreatedAt
	})
	return sorted[0], true
}
