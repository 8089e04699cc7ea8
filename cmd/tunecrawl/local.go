package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/gofrs/flock"

	"tunecrawl/internal/aggregate"
	"tunecrawl/internal/api"
	"tunecrawl/internal/catalog"
	"tunecrawl/internal/config"
	"tunecrawl/internal/discovery"
	"tunecrawl/internal/logging"
	"tunecrawl/internal/storage"
)

var errInstanceRunning = errors.New("another tunecrawl instance holds the catalog lock; run without --local to use the daemon")

// localCatalog opens the configured store in-process for commands that work
// without a daemon.
type localCatalog struct {
	cfg   *config.Config
	store *catalog.Store
	lock  *flock.Flock
}

func openLocalCatalog(ctx context.Context, cfg *config.Config, exclusive bool) (*localCatalog, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, err
	}
	lc := &localCatalog{cfg: cfg}
	if exclusive {
		lc.lock = flock.New(cfg.LockPath())
		ok, err := lc.lock.TryLock()
		if err != nil {
			return nil, fmt.Errorf("acquire lock: %w", err)
		}
		if !ok {
			return nil, errInstanceRunning
		}
	}
	persister, err := storage.Open(ctx, cfg, logging.NewNop())
	if err != nil {
		lc.release()
		return nil, err
	}
	store, err := catalog.Open(ctx, persister, nil)
	if err != nil {
		_ = persister.Close()
		lc.release()
		return nil, err
	}
	lc.store = store
	return lc, nil
}

func (lc *localCatalog) release() {
	if lc.lock != nil {
		_ = lc.lock.Unlock()
	}
}

func (lc *localCatalog) Close() error {
	defer lc.release()
	if lc.store == nil {
		return nil
	}
	return lc.store.Close()
}

// service returns a catalog service whose crawls run in this process.
func (lc *localCatalog) service() (*api.CatalogService, error) {
	registry, err := discovery.Build(lc.cfg, logging.NewNop())
	if err != nil {
		return nil, err
	}
	orch, err := aggregate.New(registry, lc.store, logging.NewNop(), aggregate.Options{Concurrency: lc.cfg.Discovery.Concurrency})
	if err != nil {
		return nil, err
	}
	return api.NewCatalogService(lc.store, localCrawler{orch: orch}), nil
}

type localCrawler struct {
	orch *aggregate.Orchestrator
}

func (c localCrawler) Trigger(ctx context.Context) (aggregate.Result, bool, error) {
	res, err := c.orch.Run(ctx)
	return res, false, err
}
