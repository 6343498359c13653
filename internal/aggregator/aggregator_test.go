package aggregator

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tOgg1/nostrfeed/internal/models"
	"github.com/tOgg1/nostrfeed/internal/source"
	"github.com/tOgg1/nostrfeed/internal/testutil"
)

type recorder struct {
	mu        sync.Mutex
	successes int
	failures  map[string]int
	fetched   int
	cycles    int
}

func newRecorder() *recorder { return &recorder{failures: map[string]int{}} }

func (r *recorder) RecordContactSuccess(string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.successes++
}

func (r *recorder) RecordContactFailure(_ string, kind string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failures[kind]++
}

func (r *recorder) RecordQueryLatency(time.Duration) {}
func (r *recorder) RecordPostsCached(int)            {}

func (r *recorder) RecordPostsFetched(n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fetched += n
}

func (r *recorder) RecordCycle(time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cycles++
}

func note(id string, author models.Identity, at int64, tags ...models.RawTag) source.RawEvent {
	return source.RawEvent{ID: id, Author: author, Kind: source.KindTextNote, CreatedAt: at, Content: "post " + id, Tags: tags}
}

func ids(posts []models.Post) []string {
	out := make([]string, 0, len(posts))
	for _, p := range posts {
		out = append(out, p.ID)
	}
	sort.Strings(out)
	return out
}

func TestFetchIsolatesSlowContact(t *testing.T) {
	a, b, c := testutil.Identity(1), testutil.Identity(2), testutil.Identity(3)
	src := testutil.NewFakeSource(testutil.Identity(99))
	src.AddEvents(
		note("a1", a, 100),
		note("a2", a, 110),
		note("b1", b, 120),
		note("c1", c, 130),
	)
	src.DelayFor(b, source.KindTextNote, 5*time.Second)

	rec := newRecorder()
	agg := New(src, WithTimeout(50*time.Millisecond), WithMetrics(rec))

	contacts := []models.Contact{
		models.NewContact(a, "alice"),
		models.NewContact(b, "bob"),
		models.NewContact(c, "carol"),
	}

	started := time.Now()
	res, err := agg.Fetch(context.Background(), contacts, 0)
	require.NoError(t, err)
	require.Less(t, time.Since(started), 2*time.Second)

	require.Equal(t, []string{"a1", "a2", "c1"}, ids(res.Posts))
	require.Len(t, res.Failures, 1)
	require.Equal(t, "bob", res.Failures[0].Contact.DisplayName)
	require.ErrorIs(t, res.Failures[0].Err, models.ErrTimeout)
	require.Equal(t, "timeout", res.Failures[0].Kind())
	require.NotEmpty(t, res.RunID)

	require.Equal(t, 2, rec.successes)
	require.Equal(t, 1, rec.failures["timeout"])
	require.Equal(t, 3, rec.fetched)
	require.Equal(t, 1, rec.cycles)
}

func TestFetchTreatsPartialResultAtDeadlineAsTimeout(t *testing.T) {
	a, b := testutil.Identity(1), testutil.Identity(2)
	src := testutil.NewFakeSource(testutil.Identity(99))
	src.AddEvents(note("a1", a, 100), note("b1", b, 120))
	src.DelayFor(b, source.KindTextNote, 5*time.Second)
	src.PartialOnDeadline(b, source.KindTextNote)

	rec := newRecorder()
	res, err := New(src, WithTimeout(50*time.Millisecond), WithMetrics(rec)).Fetch(context.Background(), []models.Contact{
		models.NewContact(a, "alice"),
		models.NewContact(b, "bob"),
	}, 0)
	require.NoError(t, err)

	require.Equal(t, []string{"a1"}, ids(res.Posts), "cut-off contact contributes nothing")
	require.Len(t, res.Failures, 1)
	require.Equal(t, "bob", res.Failures[0].Contact.DisplayName)
	require.ErrorIs(t, res.Failures[0].Err, models.ErrTimeout)
	require.Equal(t, 1, rec.failures["timeout"])
	require.Equal(t, 1, rec.successes)
}

func TestFetchTransportFailureIsReported(t *testing.T) {
	a, b := testutil.Identity(1), testutil.Identity(2)
	src := testutil.NewFakeSource(testutil.Identity(99))
	src.AddEvents(note("a1", a, 100))
	src.FailFor(b, source.KindTextNote, errors.New("connection refused"))

	res, err := New(src).Fetch(context.Background(), []models.Contact{
		models.NewContact(a, "alice"),
		models.NewContact(b, "bob"),
	}, 0)
	require.NoError(t, err)
	require.Equal(t, []string{"a1"}, ids(res.Posts))
	require.Len(t, res.Failures, 1)
	require.ErrorIs(t, res.Failures[0].Err, models.ErrTransport)
}

func TestFetchDeduplicatesAcrossContacts(t *testing.T) {
	a, b := testutil.Identity(1), testutil.Identity(2)
	src := testutil.NewFakeSource(testutil.Identity(99))
	shared := note("same", a, 100)
	src.AddEvents(shared, note("a1", a, 101))
	dup := shared
	dup.Author = b
	src.AddEvents(dup)

	res, err := New(src, WithMaxConcurrency(1)).Fetch(context.Background(), []models.Contact{
		models.NewContact(a, "alice"),
		models.NewContact(b, "bob"),
	}, 0)
	require.NoError(t, err)
	require.Equal(t, []string{"a1", "same"}, ids(res.Posts))
}

func TestFetchPassesSinceAndResolvesThreads(t *testing.T) {
	a := testutil.Identity(1)
	src := testutil.NewFakeSource(testutil.Identity(99))
	src.AddEvents(
		note("old", a, 50),
		note("reply", a, 200,
			models.RawTag{Kind: "e", Values: []string{"root-id", "", "root"}},
			models.RawTag{Kind: "e", Values: []string{"parent-id", "", "reply"}},
			models.RawTag{Kind: "p", Values: []string{"someone"}},
		),
	)

	res, err := New(src).Fetch(context.Background(), []models.Contact{models.NewContact(a, "alice")}, 100)
	require.NoError(t, err)
	require.Len(t, res.Posts, 1)

	post := res.Posts[0]
	require.Equal(t, "reply", post.ID)
	require.Equal(t, "alice", post.AuthorDisplay)
	require.Equal(t, a, post.Author)
	require.Equal(t, "root-id", *post.RootID)
	require.Equal(t, "parent-id", *post.ReplyID)
	require.Equal(t, []string{"someone"}, post.Participants)
	require.Equal(t, []string{}, post.Mentions)
	require.NotEmpty(t, post.DisplayTime)

	calls := src.Calls()
	require.Len(t, calls, 1)
	require.Equal(t, int64(100), calls[0].Since)
	require.Equal(t, source.KindTextNote, calls[0].Kind)
}

func TestFetchCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	src := testutil.NewFakeSource(testutil.Identity(99))
	_, err := New(src).Fetch(ctx, []models.Contact{models.NewContact(testutil.Identity(1), "a")}, 0)
	require.Error(t, err)
	require.Empty(t, src.Calls())
}

func TestFetchNoContacts(t *testing.T) {
	res, err := New(testutil.NewFakeSource(testutil.Identity(99))).Fetch(context.Background(), nil, 0)
	require.NoError(t, err)
	require.Empty(t, res.Posts)
	require.Empty(t, res.Failures)
}

func TestFetchWithRateLimit(t *testing.T) {
	src := testutil.NewFakeSource(testutil.Identity(99))
	var contacts []models.Contact
	for i := 1; i <= 3; i++ {
		id := testutil.Identity(i)
		src.AddEvents(note(id.Hex()[60:], id, 100))
		contacts = append(contacts, models.NewContact(id, ""))
	}

	res, err := New(src, WithQueriesPerSecond(1000)).Fetch(context.Background(), contacts, 0)
	require.NoError(t, err)
	require.Len(t, res.Posts, 3)
}
