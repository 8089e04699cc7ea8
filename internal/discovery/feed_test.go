package discovery

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"tunecrawl/internal/logging"
	"tunecrawl/internal/track"
)

func newTestFeed(t *testing.T, handler http.HandlerFunc) (*FeedSource, *atomic.Int32) {
	t.Helper()
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		handler(w, r)
	}))
	t.Cleanup(srv.Close)
	feed := NewFeedSource(FeedConfig{
		Name:              "community",
		URL:               srv.URL,
		Timeout:           2 * time.Second,
		RequestsPerSecond: 1000,
	}, logging.NewNop())
	return feed, &hits
}

func TestFeedSourceDecodesArray(t *testing.T) {
	feed, _ := newTestFeed(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Accept") != "application/json" {
			t.Errorf("missing Accept header")
		}
		_, _ = w.Write([]byte(`[
			{"title": "Signal", "artist": "Relay", "url": "https://x/signal.mp3", "genre": "electronic", "popularity": 70},
			{"title": "", "artist": "Nameless", "url": "https://x/none.mp3"}
		]`))
	})
	got, err := feed.Produce(context.Background())
	if err != nil {
		t.Fatalf("Produce: %v", err)
	}
	if len(got) != 1 || got[0].Title != "Signal" || got[0].Popularity != 70 {
		t.Fatalf("unexpected candidates: %+v", got)
	}
	if feed.Name() != "community" {
		t.Fatalf("name = %q", feed.Name())
	}
}

func TestFeedSourceDecodesEnvelope(t *testing.T) {
	feed, _ := newTestFeed(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"tracks": [{"title": "Tide", "artist": "Coast", "url": "https://x/tide.mp3", "duration": "3:33"}]}`))
	})
	got, err := feed.Produce(context.Background())
	if err != nil {
		t.Fatalf("Produce: %v", err)
	}
	if len(got) != 1 || got[0].Duration != "3:33" {
		t.Fatalf("unexpected candidates: %+v", got)
	}
}

func TestFeedSourceSkipsMissingArtist(t *testing.T) {
	feed, _ := newTestFeed(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`[
			{"title": "T", "artist": "", "url": "u"},
			{"title": "Echo", "artist": "  ", "url": "https://x/echo.mp3"},
			{"title": "Kept", "artist": "Someone", "url": "https://x/kept.mp3"}
		]`))
	})
	got, err := feed.Produce(context.Background())
	if err != nil {
		t.Fatalf("Produce: %v", err)
	}
	if len(got) != 1 || got[0].Title != "Kept" {
		t.Fatalf("unexpected candidates: %+v", got)
	}
}

func TestFeedSourceDropsMalformedDuration(t *testing.T) {
	feed, _ := newTestFeed(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`[
			{"title": "Bad", "artist": "A", "url": "https://x/bad.mp3", "duration": "abc"},
			{"title": "Late", "artist": "A", "url": "https://x/late.mp3", "duration": "3:75"},
			{"title": "Good", "artist": "A", "url": "https://x/good.mp3", "duration": "4:05"}
		]`))
	})
	got, err := feed.Produce(context.Background())
	if err != nil {
		t.Fatalf("Produce: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 candidates, got %d", len(got))
	}
	if got[0].Duration != "" || got[1].Duration != "" || got[2].Duration != "4:05" {
		t.Fatalf("unexpected durations: %q %q %q", got[0].Duration, got[1].Duration, got[2].Duration)
	}
	rec := track.New(feed.Name(), got[0])
	if _, err := track.ParseDuration(rec.Duration); err != nil {
		t.Fatalf("record duration %q not m:ss: %v", rec.Duration, err)
	}
}

func TestFeedSourceBadStatus(t *testing.T) {
	feed, _ := newTestFeed(t, func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "nope", http.StatusBadGateway)
	})
	if _, err := feed.Produce(context.Background()); !errors.Is(err, ErrSourceFailed) {
		t.Fatalf("expected ErrSourceFailed, got %v", err)
	}
}

func TestFeedSourceBreakerOpens(t *testing.T) {
	feed, hits := newTestFeed(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("not json"))
	})
	for i := 0; i < feedBreakerFailures; i++ {
		if _, err := feed.Produce(context.Background()); err == nil {
			t.Fatalf("attempt %d: expected decode failure", i)
		}
	}
	if feed.BreakerState() != "open" {
		t.Fatalf("breaker state = %q, want open", feed.BreakerState())
	}
	_, err := feed.Produce(context.Background())
	if !errors.Is(err, gobreaker.ErrOpenState) {
		t.Fatalf("expected open-state error, got %v", err)
	}
	if got := hits.Load(); got != feedBreakerFailures {
		t.Fatalf("server hits = %d, want %d", got, feedBreakerFailures)
	}
}

func TestFeedSourceHonoursCancellation(t *testing.T) {
	feed, _ := newTestFeed(t, func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	})
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if _, err := feed.Produce(ctx); err == nil {
		t.Fatal("expected error on cancellation")
	}
}

func TestDecodeFeedEmpty(t *testing.T) {
	if _, err := decodeFeed([]byte("  ")); err == nil {
		t.Fatal("expected error for empty body")
	}
}
