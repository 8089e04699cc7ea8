package api

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"tunecrawl/internal/aggregate"
	"tunecrawl/internal/catalog"
	"tunecrawl/internal/track"
)

type mockStore struct {
	cat      catalog.Catalog
	resetErr error
	resets   int
}

func (m *mockStore) Snapshot() catalog.Catalog { return m.cat.Clone() }

func (m *mockStore) Reset(context.Context) error {
	if m.resetErr != nil {
		return m.resetErr
	}
	m.resets++
	m.cat = catalog.Empty(m.cat.CreatedAt)
	return nil
}

type mockCrawler struct {
	res    aggregate.Result
	joined bool
	err    error
}

func (m *mockCrawler) Trigger(context.Context) (aggregate.Result, bool, error) {
	return m.res, m.joined, m.err
}

var created = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func sampleStore() *mockStore {
	last := created.Add(time.Hour)
	return &mockStore{cat: catalog.Catalog{
		Records: []track.Record{
			{ID: "1", Title: "A", URL: "u1", Source: "FreeMusicArchive", Genre: "lofi", Verified: true},
			{ID: "2", Title: "B", URL: "u2", Source: "WebDiscovery", Genre: "lofi", Verified: true},
			{ID: "3", Title: "C", URL: "u3", Source: "FreeMusicArchive", Genre: "jazz", Verified: true},
		},
		LastAggregation:  &last,
		AggregationCount: 4,
		CreatedAt:        created,
	}}
}

func TestCatalogService_List(t *testing.T) {
	svc := NewCatalogService(sampleStore(), nil)
	if got := svc.List(context.Background()); len(got) != 3 {
		t.Fatalf("unexpected record count: %d", len(got))
	}
	empty := NewCatalogService(&mockStore{}, nil)
	if got := empty.List(context.Background()); got == nil {
		t.Fatal("expected empty slice, not nil")
	}
}

func TestCatalogService_Status(t *testing.T) {
	svc := NewCatalogService(sampleStore(), nil)
	st := svc.Status(context.Background())
	if st.TotalTracks != 3 || st.AggregationCount != 4 {
		t.Fatalf("unexpected status: %+v", st)
	}
	if st.LastAggregation == nil || *st.LastAggregation != "2024-03-01T13:00:00.000Z" {
		t.Fatalf("unexpected lastAggregation: %v", st.LastAggregation)
	}
	if st.CreatedAt != "2024-03-01T12:00:00.000Z" {
		t.Fatalf("unexpected createdAt: %q", st.CreatedAt)
	}
	if len(st.Sources) != 2 || len(st.Genres) != 2 {
		t.Fatalf("expected distinct tags, got sources=%v genres=%v", st.Sources, st.Genres)
	}
}

func TestCatalogService_CrawlSuccess(t *testing.T) {
	ts := created.Add(2 * time.Hour)
	crawler := &mockCrawler{res: aggregate.Result{
		RunID:            "run-1",
		NewCount:         24,
		Introduced:       3,
		TotalCount:       13,
		Timestamp:        ts,
		AggregationCount: 5,
		SourceErrors:     []aggregate.SourceError{{Source: "Failing", Error: "down"}},
		Records:          []track.Record{{ID: "x"}},
	}}
	svc := NewCatalogService(sampleStore(), crawler)
	resp, code := svc.Crawl(context.Background())
	if code != http.StatusOK || !resp.Success {
		t.Fatalf("unexpected outcome: %d %+v", code, resp)
	}
	if resp.Message != "Universal crawl completed successfully" {
		t.Fatalf("unexpected message: %q", resp.Message)
	}
	if resp.NewTracks != 24 || resp.IntroducedTracks != 3 || resp.TotalTracks != 13 || resp.AggregationCount != 5 {
		t.Fatalf("unexpected counts: %+v", resp)
	}
	if resp.LastAggregation != "2024-03-01T14:00:00.000Z" {
		t.Fatalf("unexpected lastAggregation: %q", resp.LastAggregation)
	}
	if len(resp.FailedSources) != 1 || resp.FailedSources[0].Source != "Failing" {
		t.Fatalf("unexpected failed sources: %+v", resp.FailedSources)
	}
}

func TestCatalogService_CrawlFailureReturnsLastKnownGood(t *testing.T) {
	crawler := &mockCrawler{err: errors.New("catalog persist failed: disk full")}
	svc := NewCatalogService(sampleStore(), crawler)
	resp, code := svc.Crawl(context.Background())
	if code != http.StatusInternalServerError || resp.Success {
		t.Fatalf("unexpected outcome: %d %+v", code, resp)
	}
	if resp.Error != "Crawl failed" || resp.Message != "catalog persist failed: disk full" {
		t.Fatalf("unexpected error fields: %+v", resp)
	}
	if len(resp.Records) != 3 {
		t.Fatalf("expected last known-good records, got %d", len(resp.Records))
	}
}

func TestCatalogService_Reset(t *testing.T) {
	store := sampleStore()
	svc := NewCatalogService(store, nil)
	resp, code := svc.Reset(context.Background())
	if code != http.StatusOK || resp.Message != "Catalog reset successfully" {
		t.Fatalf("unexpected reset outcome: %d %+v", code, resp)
	}
	if store.resets != 1 {
		t.Fatalf("reset not delegated")
	}

	store.resetErr = errors.New("read-only")
	resp, code = svc.Reset(context.Background())
	if code != http.StatusInternalServerError || resp.Error == "" {
		t.Fatalf("expected reset failure, got %d %+v", code, resp)
	}
}

func TestCatalogService_Dispatch(t *testing.T) {
	svc := NewCatalogService(sampleStore(), &mockCrawler{})
	cases := map[string]string{
		"":       "list",
		"bogus":  "list",
		"status": "status",
		"crawl":  "crawl",
		"reset":  "reset",
	}
	for action, want := range cases {
		body, _ := svc.Dispatch(context.Background(), action)
		var got string
		switch body.(type) {
		case []track.Record:
			got = "list"
		case StatusResponse:
			got = "status"
		case CrawlResponse:
			got = "crawl"
		case MessageResponse:
			got = "reset"
		}
		if got != want {
			t.Fatalf("action %q dispatched to %s, want %s", action, got, want)
		}
	}
}

func TestNewCatalogServiceNilStore(t *testing.T) {
	if NewCatalogService(nil, nil) != nil {
		t.Fatal("expected nil service for nil store")
	}
}
