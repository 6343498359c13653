package stream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/tOgg1/nostrfeed/internal/aggregator"
	"github.com/tOgg1/nostrfeed/internal/feed"
	"github.com/tOgg1/nostrfeed/internal/metrics"
	"github.com/tOgg1/nostrfeed/internal/models"
)

type fakeFeed struct {
	mu       sync.Mutex
	calls    int
	batch    feed.Batch
	err      error
	posts    []models.Post
	cacheErr error
}

func (f *fakeFeed) Refresh(context.Context) (feed.Batch, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.batch, f.err
}

// blockingFeed returns at once on its first refresh and blocks every later
// one until its context ends.
type blockingFeed struct {
	fakeFeed
	started chan struct{}
	ended   chan error
}

func (f *blockingFeed) Refresh(ctx context.Context) (feed.Batch, error) {
	if f.refreshes() == 0 {
		return f.fakeFeed.Refresh(ctx)
	}
	_, _ = f.fakeFeed.Refresh(ctx)
	select {
	case f.started <- struct{}{}:
	default:
	}
	<-ctx.Done()
	select {
	case f.ended <- ctx.Err():
	default:
	}
	return feed.Batch{}, ctx.Err()
}

func (f *fakeFeed) CachedPosts(context.Context) ([]models.Post, error) {
	return f.posts, f.cacheErr
}

func (f *fakeFeed) refreshes() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func TestNewRejectsBadSchedule(t *testing.T) {
	_, err := New(&fakeFeed{}, Config{Schedule: "every now and then"})
	require.ErrorIs(t, err, models.ErrParse)
}

func TestRunOnceRecordsStatus(t *testing.T) {
	f := &fakeFeed{batch: feed.Batch{
		Result: aggregator.Result{RunID: "run-1", Failures: []aggregator.Failure{{Err: models.ErrTimeout}}},
		Added:  3,
	}}
	r, err := New(f, Config{Schedule: "@every 1h"})
	require.NoError(t, err)

	require.NoError(t, r.RunOnce(context.Background()))
	st := r.Status()
	require.Equal(t, 1, st.Runs)
	require.Equal(t, 3, st.LastAdded)
	require.Equal(t, 1, st.Failures)
	require.NotNil(t, st.LastRun)
	require.Empty(t, st.LastError)

	f.err = errors.New("disk full")
	require.Error(t, r.RunOnce(context.Background()))
	st = r.Status()
	require.Equal(t, 2, st.Runs)
	require.Equal(t, "disk full", st.LastError)
}

func TestHealthz(t *testing.T) {
	r, err := New(&fakeFeed{}, Config{Schedule: "@every 1h"})
	require.NoError(t, err)
	require.NoError(t, r.RunOnce(context.Background()))

	rec := httptest.NewRecorder()
	r.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var st Status
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &st))
	require.Equal(t, 1, st.Runs)
}

func TestFeedEndpoint(t *testing.T) {
	var posts []models.Post
	for i := 0; i < 5; i++ {
		posts = append(posts, models.Post{ID: fmt.Sprintf("p%d", i), AuthoredAt: int64(100 - i)})
	}
	r, err := New(&fakeFeed{posts: posts}, Config{Schedule: "@every 1h"})
	require.NoError(t, err)
	router := r.Router()

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/feed?limit=2", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var got []models.Post
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got, 2)
	require.Equal(t, "p0", got[0].ID)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/feed?limit=zero", nil))
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestFeedEndpointCacheError(t *testing.T) {
	r, err := New(&fakeFeed{cacheErr: models.ErrPersistence}, Config{Schedule: "@every 1h"})
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	r.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/feed", nil))
	require.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics.NewCollector(reg).RecordPostsCached(4)

	r, err := New(&fakeFeed{}, Config{Schedule: "@every 1h", Gatherer: reg})
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	r.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "nostrfeed_posts_cached_total 4")
}

func TestRunServesUntilCancelled(t *testing.T) {
	f := &fakeFeed{}
	r, err := New(f, Config{Schedule: "@every 1h", Addr: "127.0.0.1:0"})
	require.NoError(t, err)
	addr, err := r.Listen()
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + addr.String() + "/healthz")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 20*time.Millisecond)
	require.Equal(t, 1, f.refreshes(), "refreshes once on start")

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestRunCancelsScheduledRefreshOnShutdown(t *testing.T) {
	f := &blockingFeed{started: make(chan struct{}, 1), ended: make(chan error, 1)}
	r, err := New(f, Config{Schedule: "@every 1s"})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	select {
	case <-f.started:
	case <-time.After(5 * time.Second):
		t.Fatal("scheduled refresh never started")
	}

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(shutdownTimeout / 2):
		t.Fatal("Run waited on the in-flight refresh")
	}
	require.ErrorIs(t, <-f.ended, context.Canceled)
}
