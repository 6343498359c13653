// Package metrics collects Prometheus metrics for feed aggregation cycles.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder is what the aggregator and feed service report into.
type Recorder interface {
	RecordContactSuccess(contact string)
	RecordContactFailure(contact string, kind string)
	RecordQueryLatency(duration time.Duration)
	RecordPostsFetched(count int)
	RecordPostsCached(count int)
	RecordCycle(duration time.Duration)
}

// Collector is the Prometheus-backed Recorder.
type Collector struct {
	contactSuccess prometheus.Counter
	contactFail    *prometheus.CounterVec
	queryLatency   prometheus.Histogram
	postsFetched   prometheus.Counter
	postsCached    prometheus.Counter
	cycles         prometheus.Counter
	cycleDuration  prometheus.Histogram
	lastCycle      prometheus.Gauge
}

// NewCollector creates a Collector and registers it with reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		contactSuccess: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "nostrfeed_contact_fetch_success_total",
			Help: "Per-contact queries that completed.",
		}),
		contactFail: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "nostrfeed_contact_fetch_fail_total",
			Help: "Per-contact queries that failed, by failure kind.",
		}, []string{"kind"}),
		queryLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "nostrfeed_query_latency_seconds",
			Help:    "Latency of per-contact queries.",
			Buckets: prometheus.DefBuckets,
		}),
		postsFetched: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "nostrfeed_posts_fetched_total",
			Help: "Distinct posts returned by aggregation cycles.",
		}),
		postsCached: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "nostrfeed_posts_cached_total",
			Help: "Posts newly added to the cache.",
		}),
		cycles: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "nostrfeed_cycles_total",
			Help: "Completed aggregation cycles.",
		}),
		cycleDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "nostrfeed_cycle_duration_seconds",
			Help:    "Wall time of aggregation cycles.",
			Buckets: []float64{0.5, 1, 2, 5, 10, 20, 30, 60},
		}),
		lastCycle: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "nostrfeed_last_cycle_timestamp_seconds",
			Help: "Unix time the last aggregation cycle finished.",
		}),
	}

	reg.MustRegister(
		c.contactSuccess,
		c.contactFail,
		c.queryLatency,
		c.postsFetched,
		c.postsCached,
		c.cycles,
		c.cycleDuration,
		c.lastCycle,
	)

	return c
}

func (c *Collector) RecordContactSuccess(contact string) {
	c.contactSuccess.Inc()
}

// RecordContactFailure counts a failure. Contacts are not used as a label to
// keep cardinality bounded.
func (c *Collector) RecordContactFailure(contact string, kind string) {
	c.contactFail.WithLabelValues(kind).Inc()
}

func (c *Collector) RecordQueryLatency(duration time.Duration) {
	c.queryLatency.Observe(duration.Seconds())
}

func (c *Collector) RecordPostsFetched(count int) {
	c.postsFetched.Add(float64(count))
}

func (c *Collector) RecordPostsCached(count int) {
	c.postsCached.Add(float64(count))
}

func (c *Collector) RecordCycle(duration time.Duration) {
	c.cycles.Inc()
	c.cycleDuration.Observe(duration.Seconds())
	c.lastCycle.SetToCurrentTime()
}

// Handler returns the scrape handler for gatherer.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// Nop discards everything. Used when metrics are not exported.
type Nop struct{}

func (Nop) RecordContactSuccess(string)         {}
func (Nop) RecordContactFailure(string, string) {}
func (Nop) RecordQueryLatency(time.Duration)    {}
func (Nop) RecordPostsFetched(int)              {}
func (Nop) RecordPostsCached(int)               {}
func (Nop) RecordCycle(time.Duration)           {}
