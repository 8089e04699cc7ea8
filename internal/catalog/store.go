package catalog

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"tunecrawl/internal/dedup"
	"tunecrawl/internal/track"
)

// ErrPersist is returned when the durable copy could not be written. The
// in-memory catalog is unchanged when it is returned.
var ErrPersist = errors.New("catalog persist failed")

// Persister stores and restores the durable copy of the catalog.
type Persister interface {
	// Load returns the stored catalog. found is false when nothing has been
	// stored yet.
	Load(ctx context.Context) (cat Catalog, found bool, err error)
	Save(ctx context.Context, cat Catalog) error
	Close() error
	// Describe names the backend for logs and health output.
	Describe() string
}

// Store holds the current catalog.
type Store struct {
	persister Persister
	now       func() time.Time

	// writeMu serializes mutations; mu guards current and is held only for
	// the copy in or out.
	writeMu sync.Mutex
	mu      sync.RWMutex
	current Catalog
}

// Open loads the durable catalog through p. When nothing has been stored an
// empty catalog created at now() is used. A nil now defaults to time.Now.
func Open(ctx context.Context, p Persister, now func() time.Time) (*Store, error) {
	if p == nil {
		return nil, errors.New("catalog: persister is required")
	}
	if now == nil {
		now = time.Now
	}
	cat, found, err := p.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load catalog from %s: %w", p.Describe(), err)
	}
	if !found {
		cat = Empty(now())
	}
	if cat.CreatedAt.IsZero() {
		cat.CreatedAt = now().UTC()
	}
	if cat.Records == nil {
		cat.Records = []track.Record{}
	}
	return &Store{persister: p, now: now, current: cat}, nil
}

// Snapshot returns a deep copy of the current catalog.
func (s *Store) Snapshot() Catalog {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.Clone()
}

// Merge adds batch to the catalog, dropping records whose durable identity is
// already present, and records the aggregation. It returns the new catalog.
// On a persistence failure the previous catalog is returned together with an
// error wrapping ErrPersist.
func (s *Store) Merge(ctx context.Context, batch []track.Record) (Catalog, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	prev := s.Snapshot()
	combined := make([]track.Record, 0, len(prev.Records)+len(batch))
	combined = append(combined, prev.Records...)
	combined = append(combined, batch...)

	ts := s.now().UTC()
	next := Catalog{
		Records:          dedup.Records(combined, dedup.DurableKey),
		LastAggregation:  &ts,
		AggregationCount: prev.AggregationCount + 1,
		CreatedAt:        prev.CreatedAt,
	}
	if next.Records == nil {
		next.Records = []track.Record{}
	}
	if err := s.commit(ctx, next); err != nil {
		return prev, err
	}
	return next.Clone(), nil
}

// Reset empties the catalog and clears aggregation metadata. CreatedAt is
// kept.
func (s *Store) Reset(ctx context.Context) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	prev := s.Snapshot()
	return s.commit(ctx, Catalog{
		Records:   []track.Record{},
		CreatedAt: prev.CreatedAt,
	})
}

// Seed installs records when the catalog is empty. Aggregation metadata is
// left as is. It reports whether anything was installed.
func (s *Store) Seed(ctx context.Context, records []track.Record) (bool, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	prev := s.Snapshot()
	if len(prev.Records) > 0 || len(records) == 0 {
		return false, nil
	}
	next := prev.Clone()
	next.Records = dedup.Records(records, dedup.DurableKey)
	if err := s.commit(ctx, next); err != nil {
		return false, err
	}
	return true, nil
}

// Describe names the durable backend.
func (s *Store) Describe() string {
	return s.persister.Describe()
}

// Ping checks the durable backend when it supports health checks.
func (s *Store) Ping(ctx context.Context) error {
	if p, ok := s.persister.(interface{ Ping(context.Context) error }); ok {
		return p.Ping(ctx)
	}
	return nil
}

// Close releases the durable backend.
func (s *Store) Close() error {
	return s.persister.Close()
}

func (s *Store) commit(ctx context.Context, next Catalog) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrPersist, err)
	}
	if err := s.persister.Save(ctx, next.Clone()); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrPersist, s.persister.Describe(), err)
	}
	s.mu.Lock()
	s.current = next
	s.mu.Unlock()
	return nil
}
