package notifications_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"tunecrawl/internal/config"
	"tunecrawl/internal/notifications"
)

type captured struct {
	calls    int
	title    string
	tags     string
	priority string
	body     string
}

func newCapture(t *testing.T, status int) (*httptest.Server, *captured) {
	t.Helper()
	c := &captured{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("unexpected method: %s", r.Method)
		}
		c.calls++
		c.title = r.Header.Get("Title")
		c.tags = r.Header.Get("Tags")
		c.priority = r.Header.Get("Priority")
		body, _ := io.ReadAll(r.Body)
		c.body = string(body)
		w.WriteHeader(status)
	}))
	t.Cleanup(server.Close)
	return server, c
}

func configFor(url string) *config.Config {
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = url
	cfg.Notifications.RequestTimeout = 5
	cfg.Notifications.Aggregation = true
	cfg.Notifications.Errors = true
	return &cfg
}

func TestNewServiceReturnsNoopWhenTopicMissing(t *testing.T) {
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = ""
	svc := notifications.NewService(&cfg)
	if err := svc.NotifyError(context.Background(), errors.New("x"), "aggregation"); err != nil {
		t.Fatalf("expected noop notifier to return nil, got %v", err)
	}
}

func TestNotifyAggregationCompleted(t *testing.T) {
	tests := []struct {
		name          string
		summary       notifications.RunSummary
		expectTitle   string
		expectMessage string
		expectTags    string
	}{
		{
			name:          "clean run",
			summary:       notifications.RunSummary{TotalTracks: 30, NewTracks: 24, Introduced: 3, AggregationCount: 7, Duration: 1500 * time.Millisecond},
			expectTitle:   "tunecrawl - Catalog Updated",
			expectMessage: "🎵 30 tracks in catalog (24 offered, 3 new) after run #7 in 1.5s",
			expectTags:    "tunecrawl,aggregation,completed",
		},
		{
			name:          "partial failure",
			summary:       notifications.RunSummary{TotalTracks: 10, NewTracks: 10, AggregationCount: 2, FailedSources: 1},
			expectTitle:   "tunecrawl - Catalog Updated",
			expectMessage: "🎵 10 tracks in catalog (10 offered, 0 new) after run #2 in 0s\n1 source(s) failed and were skipped",
			expectTags:    "tunecrawl,aggregation,completed",
		},
		{
			name:          "fallback",
			summary:       notifications.RunSummary{TotalTracks: 10, NewTracks: 10, Introduced: 10, AggregationCount: 1, FailedSources: 4, Fallback: true},
			expectTitle:   "tunecrawl - Catalog Updated (fallback)",
			expectMessage: "🎵 10 tracks in catalog (10 offered, 10 new) after run #1 in 0s\nAll discovery sources failed; the fallback library was used",
			expectTags:    "tunecrawl,aggregation,completed,fallback",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			server, got := newCapture(t, http.StatusOK)
			svc := notifications.NewService(configFor(server.URL))
			if err := svc.NotifyAggregationCompleted(context.Background(), tc.summary); err != nil {
				t.Fatalf("notification returned error: %v", err)
			}
			if got.title != tc.expectTitle {
				t.Fatalf("expected title %q, got %q", tc.expectTitle, got.title)
			}
			if got.body != tc.expectMessage {
				t.Fatalf("expected message %q, got %q", tc.expectMessage, got.body)
			}
			if got.tags != tc.expectTags {
				t.Fatalf("expected tags %q, got %q", tc.expectTags, got.tags)
			}
		})
	}
}

func TestNotifyErrorUsesHighPriority(t *testing.T) {
	server, got := newCapture(t, http.StatusOK)
	svc := notifications.NewService(configFor(server.URL))
	if err := svc.NotifyError(context.Background(), errors.New("disk full"), "aggregation"); err != nil {
		t.Fatalf("NotifyError: %v", err)
	}
	if got.body != "❌ Error during aggregation: disk full" {
		t.Fatalf("unexpected body %q", got.body)
	}
	if got.priority != "high" || got.tags != "tunecrawl,error,alert" {
		t.Fatalf("unexpected headers: priority=%q tags=%q", got.priority, got.tags)
	}
}

func TestDisabledEventsAreSuppressed(t *testing.T) {
	server, got := newCapture(t, http.StatusOK)
	cfg := configFor(server.URL)
	cfg.Notifications.Aggregation = false
	cfg.Notifications.Errors = false
	svc := notifications.NewService(cfg)

	_ = svc.NotifyAggregationCompleted(context.Background(), notifications.RunSummary{TotalTracks: 1})
	_ = svc.NotifyError(context.Background(), errors.New("x"), "")
	if got.calls != 0 {
		t.Fatalf("expected no requests, got %d", got.calls)
	}
	if err := svc.TestNotification(context.Background()); err != nil {
		t.Fatalf("TestNotification: %v", err)
	}
	if got.calls != 1 || got.priority != "low" {
		t.Fatalf("test notification not sent: calls=%d priority=%q", got.calls, got.priority)
	}
}

func TestNtfyErrorStatusSurfaces(t *testing.T) {
	server, _ := newCapture(t, http.StatusForbidden)
	svc := notifications.NewService(configFor(server.URL))
	err := svc.TestNotification(context.Background())
	if err == nil || !strings.Contains(err.Error(), "403") {
		t.Fatalf("expected 403 error, got %v", err)
	}
}
