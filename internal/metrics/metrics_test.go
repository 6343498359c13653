package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestCollectorCounts(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordContactSuccess("alice")
	c.RecordContactSuccess("bob")
	c.RecordContactFailure("carol", "timeout")
	c.RecordPostsFetched(7)
	c.RecordPostsCached(3)
	c.RecordQueryLatency(150 * time.Millisecond)
	c.RecordCycle(2 * time.Second)

	require.Equal(t, float64(2), testutil.ToFloat64(c.contactSuccess))
	require.Equal(t, float64(1), testutil.ToFloat64(c.contactFail.WithLabelValues("timeout")))
	require.Equal(t, float64(0), testutil.ToFloat64(c.contactFail.WithLabelValues("transport")))
	require.Equal(t, float64(7), testutil.ToFloat64(c.postsFetched))
	require.Equal(t, float64(3), testutil.ToFloat64(c.postsCached))
	require.Equal(t, float64(1), testutil.ToFloat64(c.cycles))
	require.Greater(t, testutil.ToFloat64(c.lastCycle), float64(0))
}

func TestHandlerServesMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)
	c.RecordCycle(time.Second)

	srv := httptest.NewServer(Handler(reg))
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.True(t, strings.Contains(string(body), "nostrfeed_cycles_total 1"))
}

func TestNopSatisfiesRecorder(t *testing.T) {
	var r Recorder = Nop{}
	r.RecordCycle(time.Second)
	r.RecordContactFailure("x", "timeout")
}
