package source

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/nbd-wtf/go-nostr"
	"github.com/rs/zerolog"

	"github.com/tOgg1/nostrfeed/internal/logging"
	"github.com/tOgg1/nostrfeed/internal/models"
)

// RelaysConfig configures the relay-backed EventSource.
type RelaysConfig struct {
	URLs []string

	// SecretKey is an nsec or hex key used for signing.
	SecretKey string

	// QueryTimeout bounds each FetchEvents call across all relays.
	QueryTimeout time.Duration

	// ConnectTimeout bounds each relay dial.
	ConnectTimeout time.Duration
}

// DefaultRelaysConfig returns the default relay timeouts.
func DefaultRelaysConfig() RelaysConfig {
	return RelaysConfig{
		QueryTimeout:   30 * time.Second,
		ConnectTimeout: 10 * time.Second,
	}
}

// Relays is an EventSource backed by a set of connected Nostr relays.
type Relays struct {
	relays       []*nostr.Relay
	secretKey    string
	self         models.Identity
	queryTimeout time.Duration
	logger       zerolog.Logger
}

// Connect dials every configured relay. Relays that fail to connect are
// logged and skipped; an error is returned only if none connect.
func Connect(ctx context.Context, cfg RelaysConfig) (*Relays, error) {
	sk, self, err := ParseSecretKey(cfg.SecretKey)
	if err != nil {
		return nil, err
	}
	if len(cfg.URLs) == 0 {
		return nil, fmt.Errorf("%w: no relays configured", models.ErrConfigMissing)
	}

	defaults := DefaultRelaysConfig()
	if cfg.QueryTimeout <= 0 {
		cfg.QueryTimeout = defaults.QueryTimeout
	}
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = defaults.ConnectTimeout
	}

	logger := logging.Component("source")
	r := &Relays{
		secretKey:    sk,
		self:         self,
		queryTimeout: cfg.QueryTimeout,
		logger:       logger,
	}

	var (
		mu      sync.Mutex
		wg      sync.WaitGroup
		lastErr error
	)
	for _, url := range cfg.URLs {
		wg.Add(1)
		go func(url string) {
			defer wg.Done()
			dialCtx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
			defer cancel()

			relay, err := nostr.RelayConnect(dialCtx, url)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				log := logging.WithRelay(logger, url)
				log.Warn().Err(err).Msg("relay connect failed")
				lastErr = err
				return
			}
			r.relays = append(r.relays, relay)
		}(url)
	}
	wg.Wait()

	if len(r.relays) == 0 {
		return nil, fmt.Errorf("%w: no relay reachable: %v", models.Classify(lastErr), lastErr)
	}
	logger.Debug().Int("connected", len(r.relays)).Int("configured", len(cfg.URLs)).Msg("relays connected")
	return r, nil
}

// Self returns the signing identity.
func (r *Relays) Self() models.Identity {
	return r.self
}

// FetchEvents queries every connected relay concurrently and merges the
// results by event id. Relays that fail outright are skipped while another
// relay answers. A relay that has not finished sending stored events when the
// deadline passes makes the whole query a timeout, so a truncated result is
// never reported as complete.
func (r *Relays) FetchEvents(ctx context.Context, filter Filter) ([]RawEvent, error) {
	ctx, cancel := context.WithTimeout(ctx, r.queryTimeout)
	defer cancel()

	nf := toNostrFilter(filter)

	var (
		mu        sync.Mutex
		wg        sync.WaitGroup
		seen      = make(map[string]struct{})
		events    []RawEvent
		errs      []error
		truncated int
	)
	for _, relay := range r.relays {
		wg.Add(1)
		go func(relay *nostr.Relay) {
			defer wg.Done()
			got, err := queryRelay(ctx, relay, nf)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if errors.Is(err, errIncomplete) {
					truncated++
				}
				errs = append(errs, fmt.Errorf("%s: %w", relay.URL, err))
				return
			}
			for _, ev := range got {
				if _, dup := seen[ev.ID]; dup {
					continue
				}
				raw, ok := fromNostrEvent(ev)
				if !ok {
					continue
				}
				seen[ev.ID] = struct{}{}
				events = append(events, raw)
			}
		}(relay)
	}
	wg.Wait()

	if truncated > 0 {
		return nil, fmt.Errorf("%w: query: %d of %d relays unfinished: %v",
			models.ErrTimeout, truncated, len(r.relays), errors.Join(errs...))
	}
	if len(errs) == len(r.relays) && len(errs) > 0 {
		return nil, fmt.Errorf("%w: query: %v", models.ErrTransport, errors.Join(errs...))
	}
	for _, err := range errs {
		r.logger.Debug().Err(err).Msg("relay query failed")
	}
	return events, nil
}

var errIncomplete = errors.New("stored events not finished before deadline")

// queryRelay collects stored events matching nf until the relay signals the
// end of stored events. Ending any other way is an error.
func queryRelay(ctx context.Context, relay *nostr.Relay, nf nostr.Filter) ([]*nostr.Event, error) {
	sub, err := relay.Subscribe(ctx, nostr.Filters{nf})
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%w: %v", errIncomplete, err)
		}
		return nil, err
	}
	defer sub.Unsub()

	var got []*nostr.Event
	for {
		select {
		case ev, ok := <-sub.Events:
			if !ok {
				if ctx.Err() != nil {
					return nil, errIncomplete
				}
				return nil, errors.New("subscription ended before end of stored events")
			}
			if ev != nil {
				got = append(got, ev)
			}
		case <-sub.EndOfStoredEvents:
			for {
				select {
				case ev, ok := <-sub.Events:
					if ok && ev != nil {
						got = append(got, ev)
						continue
					}
				default:
				}
				return got, nil
			}
		case reason := <-sub.ClosedReason:
			return nil, fmt.Errorf("relay closed subscription: %s", reason)
		case <-ctx.Done():
			return nil, errIncomplete
		}
	}
}

// Publish signs a text note and sends it to every connected relay.
func (r *Relays) Publish(ctx context.Context, content string, tags []models.RawTag) (string, error) {
	ev := nostr.Event{
		PubKey:    r.self.Hex(),
		CreatedAt: nostr.Now(),
		Kind:      KindTextNote,
		Content:   content,
		Tags:      toNostrTags(tags),
	}
	if err := ev.Sign(r.secretKey); err != nil {
		return "", fmt.Errorf("%w: sign note: %v", models.ErrParse, err)
	}

	ctx, cancel := context.WithTimeout(ctx, r.queryTimeout)
	defer cancel()

	var (
		mu       sync.Mutex
		wg       sync.WaitGroup
		accepted int
		errs     []error
	)
	for _, relay := range r.relays {
		wg.Add(1)
		go func(relay *nostr.Relay) {
			defer wg.Done()
			err := relay.Publish(ctx, ev)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", relay.URL, err))
				return
			}
			accepted++
		}(relay)
	}
	wg.Wait()

	if accepted == 0 {
		kind := models.ErrTransport
		if ctx.Err() != nil {
			kind = models.ErrTimeout
		}
		return "", fmt.Errorf("%w: publish: %v", kind, errors.Join(errs...))
	}
	r.logger.Info().Str("event_id", ev.ID).Int("accepted", accepted).Msg("note published")
	return ev.ID, nil
}

// Close disconnects from all relays.
func (r *Relays) Close() error {
	var errs []error
	for _, relay := range r.relays {
		if err := relay.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func toNostrFilter(f Filter) nostr.Filter {
	nf := nostr.Filter{
		Kinds: []int{f.Kind},
		Limit: f.Limit,
	}
	if f.Author != "" {
		nf.Authors = []string{f.Author.Hex()}
	}
	if f.Since > 0 {
		since := nostr.Timestamp(f.Since)
		nf.Since = &since
	}
	return nf
}

func fromNostrEvent(ev *nostr.Event) (RawEvent, bool) {
	author, err := models.ParseIdentity(ev.PubKey)
	if err != nil {
		return RawEvent{}, false
	}
	tags := make([]models.RawTag, 0, len(ev.Tags))
	for _, t := range ev.Tags {
		if len(t) == 0 {
			continue
		}
		tags = append(tags, models.RawTag{Kind: t[0], Values: append([]string(nil), t[1:]...)})
	}
	return RawEvent{
		ID:        ev.ID,
		Author:    author,
		Kind:      ev.Kind,
		CreatedAt: int64(ev.CreatedAt),
		Content:   ev.Content,
		Tags:      tags,
	}, true
}

func toNostrTags(tags []models.RawTag) nostr.Tags {
	out := make(nostr.Tags, 0, len(tags))
	for _, t := range tags {
		tag := make(nostr.Tag, 0, len(t.Values)+1)
		tag = append(tag, t.Kind)
		tag = append(tag, t.Values...)
		out = append(out, tag)
	}
	return out
}
