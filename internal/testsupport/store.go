package testsupport

import (
	"context"
	"testing"

	"tunecrawl/internal/catalog"
	"tunecrawl/internal/storage"
	"tunecrawl/internal/track"
)

// MustOpenStore opens a catalog.Store over p and registers cleanup.
func MustOpenStore(t testing.TB, p catalog.Persister) *catalog.Store {
	t.Helper()

	store, err := catalog.Open(context.Background(), p, nil)
	if err != nil {
		t.Fatalf("catalog.Open: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}

// NewMemoryStore opens a store over a fresh in-memory backend and returns
// both so tests can inject save failures.
func NewMemoryStore(t testing.TB, seed ...track.Record) (*catalog.Store, *storage.Memory) {
	t.Helper()

	mem := storage.NewMemory()
	store := MustOpenStore(t, mem)
	if len(seed) > 0 {
		if _, err := store.Seed(context.Background(), seed); err != nil {
			t.Fatalf("seed store: %v", err)
		}
	}
	return store, mem
}
