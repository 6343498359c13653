// Package testutil holds shared test doubles.
package testutil

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/tOgg1/nostrfeed/internal/models"
	"github.com/tOgg1/nostrfeed/internal/source"
)

// Published is one note captured by FakeSource.Publish.
type Published struct {
	ID      string
	Content string
	Tags    []models.RawTag
}

// FakeSource is an in-memory source.EventSource. Behaviour is keyed by
// author and kind.
type FakeSource struct {
	SelfID models.Identity

	mu        sync.Mutex
	events    map[string][]source.RawEvent
	errs      map[string]error
	delays    map[string]time.Duration
	partial   map[string]bool
	calls     []source.Filter
	published []Published
	nextID    int
}

// NewFakeSource creates an empty fake signing as self.
func NewFakeSource(self models.Identity) *FakeSource {
	return &FakeSource{
		SelfID:  self,
		events:  make(map[string][]source.RawEvent),
		errs:    make(map[string]error),
		delays:  make(map[string]time.Duration),
		partial: make(map[string]bool),
	}
}

func key(author models.Identity, kind int) string {
	return fmt.Sprintf("%s/%d", author, kind)
}

// AddEvents registers events returned for (ev.Author, ev.Kind).
func (f *FakeSource) AddEvents(events ...source.RawEvent) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, ev := range events {
		k := key(ev.Author, ev.Kind)
		f.events[k] = append(f.events[k], ev)
	}
}

// FailFor makes queries for (author, kind) return err.
func (f *FakeSource) FailFor(author models.Identity, kind int, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errs[key(author, kind)] = err
}

// DelayFor makes queries for (author, kind) block for d or until the
// context ends, whichever is first.
func (f *FakeSource) DelayFor(author models.Identity, kind int, d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.delays[key(author, kind)] = d
}

// PartialOnDeadline makes a delayed query for (author, kind) that is cut off
// by its context return the events gathered so far with a nil error, the way
// a relay subscription ends at its deadline.
func (f *FakeSource) PartialOnDeadline(author models.Identity, kind int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.partial[key(author, kind)] = true
}

// FetchEvents implements source.EventSource.
func (f *FakeSource) FetchEvents(ctx context.Context, filter source.Filter) ([]source.RawEvent, error) {
	k := key(filter.Author, filter.Kind)

	f.mu.Lock()
	f.calls = append(f.calls, filter)
	delay := f.delays[k]
	partial := f.partial[k]
	err := f.errs[k]
	var out []source.RawEvent
	for _, ev := range f.events[k] {
		if filter.Since > 0 && ev.CreatedAt < filter.Since {
			continue
		}
		out = append(out, ev)
	}
	f.mu.Unlock()

	if delay > 0 {
		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			if partial {
				return out, nil
			}
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
	if err != nil {
		return nil, err
	}
	if filter.Limit > 0 && len(out) > filter.Limit {
		sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt > out[j].CreatedAt })
		out = out[:filter.Limit]
	}
	return out, nil
}

// Publish implements source.EventSource.
func (f *FakeSource) Publish(ctx context.Context, content string, tags []models.RawTag) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.errs[key(f.SelfID, source.KindTextNote)]; err != nil {
		return "", err
	}
	f.nextID++
	id := fmt.Sprintf("%064x", f.nextID)
	f.published = append(f.published, Published{ID: id, Content: content, Tags: tags})
	return id, nil
}

// Self implements source.EventSource.
func (f *FakeSource) Self() models.Identity {
	return f.SelfID
}

// Calls returns every filter queried so far.
func (f *FakeSource) Calls() []source.Filter {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]source.Filter(nil), f.calls...)
}

// Published returns every note published so far.
func (f *FakeSource) Published() []Published {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Published(nil), f.published...)
}

// Identity builds a deterministic identity from a small number.
func Identity(n int) models.Identity {
	return models.Identity(fmt.Sprintf("%064x", n))
}
