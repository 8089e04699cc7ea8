package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"tunecrawl/internal/catalog"
	"tunecrawl/internal/config"
	"tunecrawl/internal/logging"
)

// ErrUnknownBackend is returned by Open for an unrecognized backend name.
var ErrUnknownBackend = errors.New("unknown storage backend")

// Pinger is implemented by backends that can report their own health.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Open constructs the backend selected by cfg.Storage.Backend.
func Open(ctx context.Context, cfg *config.Config, logger *slog.Logger) (catalog.Persister, error) {
	if cfg == nil {
		return nil, errors.New("storage: config is required")
	}
	logger = logging.NewComponentLogger(logger, "storage")

	var (
		p   catalog.Persister
		err error
	)
	switch cfg.Storage.Backend {
	case config.BackendFile, "":
		p = NewFile(cfg.Storage.CatalogFile, logger)
	case config.BackendMemory:
		p = NewMemory()
	case config.BackendSQLite:
		p, err = OpenSQLite(ctx, cfg.Storage.SQLitePath)
	case config.BackendBadger:
		p, err = OpenBadger(cfg.Storage.BadgerDir, logger)
	case config.BackendRedis:
		p, err = OpenRedis(ctx, cfg.Storage.RedisURL, cfg.Storage.RedisKey)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, cfg.Storage.Backend)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s storage: %w", cfg.Storage.Backend, err)
	}

	logger.Info("catalog storage ready",
		logging.String("backend", p.Describe()),
		logging.String(logging.FieldEventType, "storage_opened"),
	)
	return p, nil
}

// Ping reports the health of p when it implements Pinger.
func Ping(ctx context.Context, p catalog.Persister) error {
	pinger, ok := p.(Pinger)
	if !ok {
		return nil
	}
	return pinger.Ping(ctx)
}
