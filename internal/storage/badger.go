package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"tunecrawl/internal/catalog"
	"tunecrawl/internal/logging"
)

const badgerCatalogKey = "catalog:current"

// Badger stores the catalog as one JSON value in an embedded key-value store.
type Badger struct {
	db   *badger.DB
	desc string
}

// OpenBadger opens (or creates) a store in dir. An empty dir opens an
// in-memory store.
func OpenBadger(dir string, logger *slog.Logger) (*Badger, error) {
	opts := badger.DefaultOptions(dir)
	desc := "badger:" + dir
	if strings.TrimSpace(dir) == "" {
		opts = opts.WithInMemory(true)
		desc = "badger:memory"
	}
	opts = opts.WithLogger(badgerLogger{logger: logging.NewComponentLogger(logger, "badger")})
	opts.ValueLogFileSize = 16 << 20
	opts.SyncWrites = true

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger db: %w", err)
	}
	return &Badger{db: db, desc: desc}, nil
}

func (b *Badger) Load(context.Context) (catalog.Catalog, bool, error) {
	var (
		cat   catalog.Catalog
		found bool
	)
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(badgerCatalogKey))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("get catalog: %w", err)
		}
		found = true
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &cat)
		})
	})
	if err != nil {
		return catalog.Catalog{}, false, err
	}
	return cat, found, nil
}

func (b *Badger) Save(_ context.Context, cat catalog.Catalog) error {
	data, err := json.Marshal(cat)
	if err != nil {
		return fmt.Errorf("encode catalog: %w", err)
	}
	return b.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(badgerCatalogKey), data)
	})
}

// Ping fails once the database has been closed.
func (b *Badger) Ping(context.Context) error {
	if b.db.IsClosed() {
		return errors.New("badger db is closed")
	}
	return nil
}

func (b *Badger) Close() error {
	if b.db.IsClosed() {
		return nil
	}
	return b.db.Close()
}

func (b *Badger) Describe() string { return b.desc }

// badgerLogger routes badger's internal logging through slog. Info and
// debug chatter is demoted to debug.
type badgerLogger struct {
	logger *slog.Logger
}

func (l badgerLogger) Errorf(format string, args ...any) {
	l.logger.Error(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

func (l badgerLogger) Warningf(format string, args ...any) {
	l.logger.Warn(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

func (l badgerLogger) Infof(format string, args ...any) {
	l.logger.Debug(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

func (l badgerLogger) Debugf(format string, args ...any) {
	l.logger.Debug(strings.TrimSpace(fmt.Sprintf(format, args...)))
}
