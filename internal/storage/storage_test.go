package storage_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"tunecrawl/internal/catalog"
	"tunecrawl/internal/config"
	"tunecrawl/internal/logging"
	"tunecrawl/internal/storage"
	"tunecrawl/internal/track"
)

func sampleCatalog() catalog.Catalog {
	created := time.Date(2024, 2, 3, 4, 5, 6, 0, time.UTC)
	last := created.Add(90 * time.Minute)
	return catalog.Catalog{
		Records: []track.Record{
			{ID: "core-1-aaaaaaaaa", Title: "Night Drive", Artist: "Synthwave Express", URL: "https://x/1.mp3",
				Source: "FreeMusicArchive", Genre: "electronic", Duration: "3:45", Popularity: 90,
				CrawledAt: created.Add(time.Minute), Verified: true},
			{ID: "web-2-bbbbbbbbb", Title: "Dream Waves", Artist: "Ocean Bay", URL: "https://x/2.mp3",
				Source: "WebDiscovery", Genre: "ambient", Duration: "5:01", Popularity: 79,
				CrawledAt: created.Add(2 * time.Minute), Verified: false},
		},
		LastAggregation:  &last,
		AggregationCount: 7,
		CreatedAt:        created,
	}
}

// exercisePersister checks the behaviour every backend shares.
func exercisePersister(t *testing.T, p catalog.Persister) {
	t.Helper()
	ctx := context.Background()

	if _, found, err := p.Load(ctx); err != nil || found {
		t.Fatalf("Load on empty backend = found %v, err %v", found, err)
	}

	want := sampleCatalog()
	if err := p.Save(ctx, want); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, found, err := p.Load(ctx)
	if err != nil || !found {
		t.Fatalf("Load after save = found %v, err %v", found, err)
	}
	assertCatalogEqual(t, got, want)

	empty := catalog.Catalog{Records: []track.Record{}, CreatedAt: want.CreatedAt}
	if err := p.Save(ctx, empty); err != nil {
		t.Fatalf("Save empty: %v", err)
	}
	got, found, err = p.Load(ctx)
	if err != nil || !found {
		t.Fatalf("Load after reset = found %v, err %v", found, err)
	}
	if got.Len() != 0 || got.LastAggregation != nil || got.AggregationCount != 0 {
		t.Fatalf("expected reset catalog, got %+v", got)
	}
	if !got.CreatedAt.Equal(want.CreatedAt) {
		t.Fatalf("createdAt = %v, want %v", got.CreatedAt, want.CreatedAt)
	}
	if err := storage.Ping(ctx, p); err != nil {
		t.Fatalf("Ping: %v", err)
	}
	if p.Describe() == "" {
		t.Fatal("expected description")
	}
}

func assertCatalogEqual(t *testing.T, got, want catalog.Catalog) {
	t.Helper()
	if got.Len() != want.Len() {
		t.Fatalf("len = %d, want %d", got.Len(), want.Len())
	}
	for i := range want.Records {
		g, w := got.Records[i], want.Records[i]
		if g.ID != w.ID || g.Title != w.Title || g.Artist != w.Artist || g.URL != w.URL ||
			g.Source != w.Source || g.Genre != w.Genre || g.Duration != w.Duration ||
			g.Popularity != w.Popularity || g.Verified != w.Verified || !g.CrawledAt.Equal(w.CrawledAt) {
			t.Fatalf("record %d = %+v, want %+v", i, g, w)
		}
	}
	if got.AggregationCount != want.AggregationCount {
		t.Fatalf("aggregation count = %d, want %d", got.AggregationCount, want.AggregationCount)
	}
	if (got.LastAggregation == nil) != (want.LastAggregation == nil) ||
		(got.LastAggregation != nil && !got.LastAggregation.Equal(*want.LastAggregation)) {
		t.Fatalf("last aggregation = %v, want %v", got.LastAggregation, want.LastAggregation)
	}
	if !got.CreatedAt.Equal(want.CreatedAt) {
		t.Fatalf("createdAt = %v, want %v", got.CreatedAt, want.CreatedAt)
	}
}

func TestMemoryPersister(t *testing.T) {
	exercisePersister(t, storage.NewMemory())
}

func TestMemoryFailSaves(t *testing.T) {
	m := storage.NewMemory()
	boom := errors.New("boom")
	m.FailSaves(boom)
	if err := m.Save(context.Background(), sampleCatalog()); !errors.Is(err, boom) {
		t.Fatalf("expected injected error, got %v", err)
	}
	m.FailSaves(nil)
	if err := m.Save(context.Background(), sampleCatalog()); err != nil {
		t.Fatal(err)
	}
	if m.Saves() != 1 {
		t.Fatalf("saves = %d", m.Saves())
	}
}

func TestFilePersister(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "music-catalog.json")
	exercisePersister(t, storage.NewFile(path, logging.NewNop()))
}

func TestFilePersisterWritesDurableShape(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "music-catalog.json")
	p := storage.NewFile(path, nil)
	if err := p.Save(context.Background(), sampleCatalog()); err != nil {
		t.Fatalf("Save: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	content := string(data)
	for _, want := range []string{`"tracks"`, `"lastCrawl"`, `"totalTracks": 2`, `"crawlCount": 7`, `"createdAt"`, "\n  "} {
		if !strings.Contains(content, want) {
			t.Fatalf("expected %q in %s", want, content)
		}
	}
}

func TestFilePersisterLoadsHandWrittenCatalog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "music-catalog.json")
	doc := `{
  "tracks": [
    {"id": "freemusicarchive-1-abc", "title": "Retro Funk", "artist": "Groovy Juice",
     "url": "https://x/retro.mp3", "source": "FreeMusicArchive", "genre": "funk",
     "duration": "4:12", "popularity": 86, "crawledAt": "2024-01-01T00:00:00.000Z", "verified": true}
  ],
  "lastCrawl": null,
  "totalTracks": 1,
  "crawlCount": 0,
  "createdAt": "2024-01-01T00:00:00.000Z"
}`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}
	cat, found, err := storage.NewFile(path, nil).Load(context.Background())
	if err != nil || !found {
		t.Fatalf("Load = found %v, err %v", found, err)
	}
	if cat.Len() != 1 || cat.Records[0].Genre != "funk" || cat.LastAggregation != nil {
		t.Fatalf("unexpected catalog: %+v", cat)
	}
}

func TestFilePersisterCorruptFileStartsEmpty(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "music-catalog.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, found, err := storage.NewFile(path, nil).Load(context.Background())
	if err != nil || found {
		t.Fatalf("Load = found %v, err %v", found, err)
	}
	matches, err := filepath.Glob(path + ".corrupt-*")
	if err != nil || len(matches) != 1 {
		t.Fatalf("expected one backup copy, got %v (%v)", matches, err)
	}
}

func TestSQLitePersister(t *testing.T) {
	p, err := storage.OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "db", "catalog.db"))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() { _ = p.Close() })
	exercisePersister(t, p)
}

func TestSQLiteReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.db")
	ctx := context.Background()
	p, err := storage.OpenSQLite(ctx, path)
	if err != nil {
		t.Fatal(err)
	}
	if err := p.Save(ctx, sampleCatalog()); err != nil {
		t.Fatal(err)
	}
	if err := p.Close(); err != nil {
		t.Fatal(err)
	}

	reopened, err := storage.OpenSQLite(ctx, path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	t.Cleanup(func() { _ = reopened.Close() })
	got, found, err := reopened.Load(ctx)
	if err != nil || !found {
		t.Fatalf("Load = found %v, err %v", found, err)
	}
	assertCatalogEqual(t, got, sampleCatalog())
}

func TestBadgerPersisterInMemory(t *testing.T) {
	p, err := storage.OpenBadger("", logging.NewNop())
	if err != nil {
		t.Fatalf("OpenBadger: %v", err)
	}
	exercisePersister(t, p)
	if err := p.Close(); err != nil {
		t.Fatal(err)
	}
	if err := p.Ping(context.Background()); err == nil {
		t.Fatal("expected ping to fail after close")
	}
	if err := p.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
}

func TestRedisPersister(t *testing.T) {
	url := os.Getenv("TUNECRAWL_TEST_REDIS_URL")
	if url == "" {
		t.Skip("TUNECRAWL_TEST_REDIS_URL not set")
	}
	ctx := context.Background()
	key := "tunecrawl:test:" + strings.ReplaceAll(t.Name(), "/", "_") + ":" + time.Now().Format("150405.000000")
	p, err := storage.OpenRedis(ctx, url, key)
	if err != nil {
		t.Fatalf("OpenRedis: %v", err)
	}
	t.Cleanup(func() { _ = p.Close() })
	exercisePersister(t, p)
}

func TestOpenRedisRejectsBadURL(t *testing.T) {
	if _, err := storage.OpenRedis(context.Background(), "not a url", "k"); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestOpenSelectsBackend(t *testing.T) {
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DataDir = dir
	cfg.Storage.CatalogFile = filepath.Join(dir, "music-catalog.json")
	cfg.Storage.SQLitePath = filepath.Join(dir, "catalog.db")
	cfg.Storage.BadgerDir = filepath.Join(dir, "badger")

	tests := []struct {
		backend string
		prefix  string
	}{
		{config.BackendFile, "file:"},
		{config.BackendMemory, "memory"},
		{config.BackendSQLite, "sqlite:"},
		{config.BackendBadger, "badger:"},
	}
	for _, tt := range tests {
		t.Run(tt.backend, func(t *testing.T) {
			c := cfg
			c.Storage.Backend = tt.backend
			p, err := storage.Open(context.Background(), &c, logging.NewNop())
			if err != nil {
				t.Fatalf("Open: %v", err)
			}
			defer p.Close()
			if !strings.HasPrefix(p.Describe(), tt.prefix) {
				t.Fatalf("Describe() = %q, want prefix %q", p.Describe(), tt.prefix)
			}
		})
	}

	c := cfg
	c.Storage.Backend = "etcd"
	if _, err := storage.Open(context.Background(), &c, nil); !errors.Is(err, storage.ErrUnknownBackend) {
		t.Fatalf("expected ErrUnknownBackend, got %v", err)
	}
}

func TestCheckWritableDir(t *testing.T) {
	dir := t.TempDir()
	if err := storage.CheckWritableDir(filepath.Join(dir, "not", "yet", "created")); err != nil {
		t.Fatalf("expected missing dir to resolve through ancestor: %v", err)
	}
	file := filepath.Join(dir, "plain")
	if err := os.WriteFile(file, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := storage.CheckWritableDir(file); err == nil {
		t.Fatal("expected error for a regular file")
	}
}
