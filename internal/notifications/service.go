package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"tunecrawl/internal/config"
)

const userAgent = "tunecrawl/0.1.0"

// RunSummary is the notification view of a completed aggregation.
type RunSummary struct {
	TotalTracks      int
	NewTracks        int
	Introduced       int
	AggregationCount int
	FailedSources    int
	Fallback         bool
	Duration         time.Duration
}

// Service defines the notification surface exposed to the scheduler.
type Service interface {
	NotifyAggregationCompleted(ctx context.Context, summary RunSummary) error
	NotifyError(ctx context.Context, err error, context string) error
	TestNotification(ctx context.Context) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &ntfyService{
		endpoint:    topic,
		client:      &http.Client{Timeout: timeout},
		aggregation: cfg.Notifications.Aggregation,
		errors:      cfg.Notifications.Errors,
	}
}

// Noop returns a service that discards every notification.
func Noop() Service {
	return noopService{}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint    string
	client      *http.Client
	aggregation bool
	errors      bool
}

func (n *ntfyService) NotifyAggregationCompleted(ctx context.Context, summary RunSummary) error {
	if !n.aggregation {
		return nil
	}
	duration := summary.Duration.Round(time.Millisecond)
	if duration < 0 {
		duration = 0
	}

	title := "tunecrawl - Catalog Updated"
	tags := []string{"tunecrawl", "aggregation", "completed"}
	message := fmt.Sprintf("🎵 %d tracks in catalog (%d offered, %d new) after run #%d in %s",
		summary.TotalTracks, summary.NewTracks, summary.Introduced, summary.AggregationCount, duration)
	if summary.Fallback {
		title = "tunecrawl - Catalog Updated (fallback)"
		tags = append(tags, "fallback")
		message += "\nAll discovery sources failed; the fallback library was used"
	} else if summary.FailedSources > 0 {
		message += fmt.Sprintf("\n%d source(s) failed and were skipped", summary.FailedSources)
	}

	return n.send(ctx, payload{
		title:   title,
		message: message,
		tags:    tags,
	})
}

func (n *ntfyService) NotifyError(ctx context.Context, err error, contextLabel string) error {
	if !n.errors {
		return nil
	}
	var builder strings.Builder
	builder.WriteString("❌ Error")
	if contextLabel = strings.TrimSpace(contextLabel); contextLabel != "" {
		builder.WriteString(" during ")
		builder.WriteString(contextLabel)
	}
	builder.WriteString(": ")
	if err != nil {
		builder.WriteString(strings.TrimSpace(err.Error()))
	} else {
		builder.WriteString("unknown")
	}

	return n.send(ctx, payload{
		title:    "tunecrawl - Error",
		message:  builder.String(),
		tags:     []string{"tunecrawl", "error", "alert"},
		priority: "high",
	})
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	return n.send(ctx, payload{
		title:    "tunecrawl - Test",
		message:  "🧪 Notification system test",
		tags:     []string{"tunecrawl", "test"},
		priority: "low",
	})
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopService struct{}

func (noopService) NotifyAggregationCompleted(context.Context, RunSummary) error { return nil }
func (noopService) NotifyError(context.Context, error, string) error             { return nil }
func (noopService) TestNotification(context.Context) error                       { return nil }
