// Package aggregator fetches recent posts for a set of contacts concurrently,
// isolating each contact's failures from the rest of the batch.
package aggregator

import (
	"context"
	"errors"
	"fmt"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/sourcegraph/conc/pool"
	"golang.org/x/time/rate"

	"github.com/tOgg1/nostrfeed/internal/logging"
	"github.com/tOgg1/nostrfeed/internal/metrics"
	"github.com/tOgg1/nostrfeed/internal/models"
	"github.com/tOgg1/nostrfeed/internal/source"
	"github.com/tOgg1/nostrfeed/internal/threading"
)

const (
	// DefaultTimeout bounds each contact's query.
	DefaultTimeout = 10 * time.Second
	// DefaultMaxConcurrency caps simultaneous contact queries.
	DefaultMaxConcurrency = 16
)

// Failure is one contact whose query did not complete.
type Failure struct {
	Contact models.Contact
	Err     error
}

// Kind is the failure kind label, e.g. "timeout".
func (f Failure) Kind() string {
	return models.Kind(f.Err)
}

// Result is one aggregation batch.
type Result struct {
	RunID    string
	Posts    []models.Post
	Failures []Failure
	Duration time.Duration
}

// Aggregator fans a fetch out over contacts.
type Aggregator struct {
	src            source.EventSource
	timeout        time.Duration
	maxConcurrency int
	limiter        *rate.Limiter
	metrics        metrics.Recorder
	logger         zerolog.Logger
}

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithTimeout sets the per-contact query deadline.
func WithTimeout(d time.Duration) Option {
	return func(a *Aggregator) {
		if d > 0 {
			a.timeout = d
		}
	}
}

// WithMaxConcurrency caps simultaneous contact queries.
func WithMaxConcurrency(n int) Option {
	return func(a *Aggregator) {
		if n > 0 {
			a.maxConcurrency = n
		}
	}
}

// WithQueriesPerSecond paces query starts. Zero or less disables pacing.
func WithQueriesPerSecond(qps float64) Option {
	return func(a *Aggregator) {
		if qps > 0 {
			burst := int(qps)
			if burst < 1 {
				burst = 1
			}
			a.limiter = rate.NewLimiter(rate.Limit(qps), burst)
		} else {
			a.limiter = nil
		}
	}
}

// WithMetrics reports into r.
func WithMetrics(r metrics.Recorder) Option {
	return func(a *Aggregator) {
		if r != nil {
			a.metrics = r
		}
	}
}

// New creates an Aggregator reading from src.
func New(src source.EventSource, opts ...Option) *Aggregator {
	a := &Aggregator{
		src:            src,
		timeout:        DefaultTimeout,
		maxConcurrency: DefaultMaxConcurrency,
		metrics:        metrics.Nop{},
		logger:         logging.Component("aggregator"),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

type contactResult struct {
	contact models.Contact
	posts   []models.Post
	err     error
}

// Fetch queries every contact for text notes authored at or after since.
//
// Each contact runs under its own deadline. A contact that fails or times out
// is logged, counted and reported in Result.Failures; the others are
// unaffected. The returned posts are deduplicated by id and unordered. Fetch
// returns an error only when ctx is already done before any work starts.
func (a *Aggregator) Fetch(ctx context.Context, contacts []models.Contact, since int64) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, fmt.Errorf("%w: fetch not started: %v", models.Classify(err), err)
	}

	start := time.Now()
	runID := uuid.NewString()
	logger := logging.WithRun(a.logger, runID)
	logger.Debug().Int("contacts", len(contacts)).Int64("since", since).Msg("fetch started")

	p := pool.NewWithResults[contactResult]().WithMaxGoroutines(a.maxConcurrency)
	for _, contact := range contacts {
		p.Go(func() contactResult {
			posts, err := a.fetchContact(ctx, contact, since)
			return contactResult{contact: contact, posts: posts, err: err}
		})
	}
	results := p.Wait()

	res := Result{RunID: runID}
	seen := mapset.NewThreadUnsafeSet[string]()
	for _, r := range results {
		if r.err != nil {
			kind := models.Kind(r.err)
			log := logging.WithContact(logger, r.contact.DisplayName, r.contact.Identity.Hex())
			log.Warn().Err(r.err).Str("kind", kind).Msg("contact fetch failed")
			a.metrics.RecordContactFailure(r.contact.DisplayName, kind)
			res.Failures = append(res.Failures, Failure{Contact: r.contact, Err: r.err})
			continue
		}
		a.metrics.RecordContactSuccess(r.contact.DisplayName)
		for _, post := range r.posts {
			if !seen.Add(post.ID) {
				continue
			}
			res.Posts = append(res.Posts, post)
		}
	}

	res.Duration = time.Since(start)
	a.metrics.RecordPostsFetched(len(res.Posts))
	a.metrics.RecordCycle(res.Duration)
	logger.Info().
		Int("posts", len(res.Posts)).
		Int("failed", len(res.Failures)).
		Dur("duration", res.Duration).
		Msg("fetch finished")

	return res, nil
}

func (a *Aggregator) fetchContact(ctx context.Context, contact models.Contact, since int64) ([]models.Post, error) {
	if a.limiter != nil {
		if err := a.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("%w: waiting for query slot: %v", models.Classify(err), err)
		}
	}

	qctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	started := time.Now()
	events, err := a.src.FetchEvents(qctx, source.Filter{
		Author: contact.Identity,
		Kind:   source.KindTextNote,
		Since:  since,
	})
	a.metrics.RecordQueryLatency(time.Since(started))

	// A source may return a partial result with a nil error once the
	// deadline passes; that is still a failed query.
	if cerr := qctx.Err(); cerr != nil {
		if err == nil {
			err = cerr
		}
		if errors.Is(cerr, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: after %s: %v", models.ErrTimeout, a.timeout, err)
		}
	}
	if err != nil {
		return nil, models.WithKind(err)
	}

	posts := make([]models.Post, 0, len(events))
	for _, ev := range events {
		if ev.Kind != source.KindTextNote || ev.ID == "" {
			continue
		}
		posts = append(posts, ToPost(ev, contact))
	}
	return posts, nil
}

// ToPost maps a raw text note to a Post, resolving its thread tags.
func ToPost(ev source.RawEvent, contact models.Contact) models.Post {
	post := models.Post{
		ID:            ev.ID,
		AuthorDisplay: contact.DisplayName,
		Author:        ev.Author,
		AuthoredAt:    ev.CreatedAt,
		Content:       ev.Content,
	}
	threading.ResolveRaw(ev.Tags).Apply(&post)
	post.Normalize()
	return post
}
