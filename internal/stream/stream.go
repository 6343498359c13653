// Package stream runs the feed headless: a cron-scheduled refresh loop with an
// HTTP endpoint for health, metrics and the cached feed.
package stream

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/tOgg1/nostrfeed/internal/feed"
	"github.com/tOgg1/nostrfeed/internal/logging"
	"github.com/tOgg1/nostrfeed/internal/models"
)

const shutdownTimeout = 10 * time.Second

// Feed is what the loop needs from the session.
type Feed interface {
	Refresh(ctx context.Context) (feed.Batch, error)
	CachedPosts(ctx context.Context) ([]models.Post, error)
}

// Config configures a Runner.
type Config struct {
	// Schedule is a cron spec or descriptor such as "@every 5m".
	Schedule string

	// Addr is the HTTP listen address. Empty disables the server.
	Addr string

	// Gatherer backs /metrics. Nil falls back to the default registry.
	Gatherer prometheus.Gatherer
}

// Status is the health snapshot served on /healthz.
type Status struct {
	Runs      int        `json:"runs"`
	LastRun   *time.Time `json:"last_run,omitempty"`
	LastAdded int        `json:"last_added"`
	Failures  int        `json:"last_failures"`
	LastError string     `json:"last_error,omitempty"`
	Next      *time.Time `json:"next_run,omitempty"`
}

// Runner owns the schedule and the HTTP server.
type Runner struct {
	feed     Feed
	cfg      Config
	cron     *cron.Cron
	entry    cron.EntryID
	logger   zerolog.Logger
	listener net.Listener

	// jobCtx scopes scheduled refreshes; Run cancels it on shutdown.
	jobCtx     context.Context
	cancelJobs context.CancelFunc

	mu     sync.Mutex
	status Status
}

// New validates the schedule and builds a Runner. Overlapping runs are
// skipped, never queued.
func New(f Feed, cfg Config) (*Runner, error) {
	if cfg.Gatherer == nil {
		cfg.Gatherer = prometheus.DefaultGatherer
	}
	logger := logging.Component("stream")
	jobCtx, cancelJobs := context.WithCancel(context.Background())
	r := &Runner{
		feed:       f,
		cfg:        cfg,
		logger:     logger,
		jobCtx:     jobCtx,
		cancelJobs: cancelJobs,
	}

	clog := cronLogger{logger: logger}
	r.cron = cron.New(
		cron.WithLogger(clog),
		cron.WithChain(cron.Recover(clog), cron.SkipIfStillRunning(clog)),
	)
	id, err := r.cron.AddFunc(cfg.Schedule, func() {
		_ = r.RunOnce(r.jobCtx)
	})
	if err != nil {
		cancelJobs()
		return nil, fmt.Errorf("%w: invalid stream.schedule %q: %v", models.ErrParse, cfg.Schedule, err)
	}
	r.entry = id
	return r, nil
}

// RunOnce performs one refresh and records its outcome.
func (r *Runner) RunOnce(ctx context.Context) error {
	batch, err := r.feed.Refresh(ctx)
	now := time.Now()

	r.mu.Lock()
	r.status.Runs++
	r.status.LastRun = &now
	r.status.LastAdded = batch.Added
	r.status.Failures = len(batch.Failures)
	r.status.LastError = ""
	if err != nil {
		r.status.LastError = err.Error()
	}
	r.mu.Unlock()

	log := logging.WithRun(r.logger, batch.RunID)
	if err != nil {
		log.Error().Err(err).Msg("scheduled refresh failed")
		return err
	}
	log.Info().
		Int("fetched", len(batch.Posts)).
		Int("added", batch.Added).
		Int("failed", len(batch.Failures)).
		Dur("duration", batch.Duration).
		Msg("scheduled refresh finished")
	return nil
}

// Status returns the current health snapshot.
func (r *Runner) Status() Status {
	r.mu.Lock()
	st := r.status
	r.mu.Unlock()
	if next := r.cron.Entry(r.entry).Next; !next.IsZero() {
		st.Next = &next
	}
	return st
}

// Listen binds the HTTP address ahead of Run so callers can learn the port.
func (r *Runner) Listen() (net.Addr, error) {
	if r.cfg.Addr == "" {
		return nil, nil
	}
	if r.listener != nil {
		return r.listener.Addr(), nil
	}
	ln, err := net.Listen("tcp", r.cfg.Addr)
	if err != nil {
		return nil, fmt.Errorf("%w: listen %s: %v", models.ErrTransport, r.cfg.Addr, err)
	}
	r.listener = ln
	return ln.Addr(), nil
}

// Run refreshes once, then follows the schedule until ctx is cancelled. A
// scheduled refresh still in flight at that point is cancelled too.
func (r *Runner) Run(ctx context.Context) error {
	if _, err := r.Listen(); err != nil {
		return err
	}

	_ = r.RunOnce(ctx)
	r.cron.Start()
	r.logger.Info().Str("schedule", r.cfg.Schedule).Msg("stream started")

	var (
		server  *http.Server
		srvErrs = make(chan error, 1)
	)
	if r.listener != nil {
		server = &http.Server{
			Handler:           r.Router(),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			srvErrs <- server.Serve(r.listener)
		}()
		r.logger.Info().Str("addr", r.listener.Addr().String()).Msg("http listening")
	}

	var runErr error
	select {
	case <-ctx.Done():
	case err := <-srvErrs:
		if !errors.Is(err, http.ErrServerClosed) {
			runErr = fmt.Errorf("%w: http server: %v", models.ErrTransport, err)
		}
	}

	r.cancelJobs()
	stopped := r.cron.Stop()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if server != nil {
		if err := server.Shutdown(shutdownCtx); err != nil {
			r.logger.Warn().Err(err).Msg("http shutdown")
		}
	}
	select {
	case <-stopped.Done():
	case <-shutdownCtx.Done():
		r.logger.Warn().Msg("refresh still running at shutdown")
	}
	r.logger.Info().Msg("stream stopped")
	return runErr
}

// cronLogger adapts zerolog to cron.Logger.
type cronLogger struct {
	logger zerolog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug().Fields(keysAndValues).Msg(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error().Err(err).Fields(keysAndValues).Msg(msg)
}
