package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/tOgg1/nostrfeed/internal/cache"
	"github.com/tOgg1/nostrfeed/internal/config"
	"github.com/tOgg1/nostrfeed/internal/feed"
	"github.com/tOgg1/nostrfeed/internal/metrics"
	"github.com/tOgg1/nostrfeed/internal/source"
)

// session holds everything a command opens. Close releases it in reverse.
type session struct {
	cfg     *config.Config
	relays  *source.Relays
	store   cache.Store
	service *feed.Service
}

// openSession connects to relays, opens the cache and loads the session
// state beside the config file. reg, when set, receives fetch metrics.
func openSession(ctx context.Context, cfg *config.Config, loader *config.Loader, reg prometheus.Registerer) (*session, error) {
	dir, err := loader.ConfigDir()
	if err != nil {
		return nil, err
	}
	sessions, err := config.DefaultSessionStore(dir)
	if err != nil {
		return nil, err
	}

	cachePath, err := cfg.CachePath()
	if err != nil {
		return nil, err
	}

	relays, err := source.Connect(ctx, source.RelaysConfig{
		URLs:         cfg.Relays,
		SecretKey:    cfg.Identity.SecretKey,
		QueryTimeout: cfg.Fetch.SourceTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("connect relays: %w", err)
	}

	store, err := cache.Open(ctx, cfg.Cache.Backend, cachePath)
	if err != nil {
		_ = relays.Close()
		return nil, fmt.Errorf("open cache: %w", err)
	}

	var recorder metrics.Recorder = metrics.Nop{}
	if reg != nil {
		recorder = metrics.NewCollector(reg)
	}

	svc, err := feed.NewService(feed.Deps{
		Config:   cfg,
		Source:   relays,
		Store:    store,
		Sessions: sessions,
		Metrics:  recorder,
	})
	if err != nil {
		_ = store.Close()
		_ = relays.Close()
		return nil, err
	}

	return &session{cfg: cfg, relays: relays, store: store, service: svc}, nil
}

func (s *session) Close() error {
	return errors.Join(s.store.Close(), s.relays.Close())
}
