package discovery

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"tunecrawl/internal/logging"
	"tunecrawl/internal/metrics"
	"tunecrawl/internal/track"
)

const (
	maxFeedBodyBytes        = 4 << 20
	feedBreakerFailures     = 3
	feedBreakerOpenDuration = time.Minute
)

// FeedConfig describes an HTTP JSON feed.
type FeedConfig struct {
	Name              string
	URL               string
	Timeout           time.Duration
	RequestsPerSecond float64
	// Client overrides the HTTP client. Timeout is ignored when set.
	Client *http.Client
}

// FeedSource fetches candidates from a JSON endpoint. The body is either an
// array of candidates or an object with a "tracks" array.
type FeedSource struct {
	name    string
	url     string
	client  *http.Client
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker[[]track.Fields]
	logger  *slog.Logger
}

type feedEnvelope struct {
	Tracks []track.Fields `json:"tracks"`
}

// NewFeedSource builds a feed source.
func NewFeedSource(cfg FeedConfig, logger *slog.Logger) *FeedSource {
	logger = logging.NewComponentLogger(logger, "feed").With(logging.Source(cfg.Name))
	client := cfg.Client
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = 1
	}

	f := &FeedSource{
		name:    cfg.Name,
		url:     cfg.URL,
		client:  client,
		limiter: rate.NewLimiter(rate.Limit(rps), 1),
		logger:  logger,
	}
	metrics.FeedBreakerState.WithLabelValues(cfg.Name).Set(0)
	f.breaker = gobreaker.NewCircuitBreaker[[]track.Fields](gobreaker.Settings{
		Name:        "feed-" + cfg.Name,
		MaxRequests: 1,
		Timeout:     feedBreakerOpenDuration,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= feedBreakerFailures
		},
		OnStateChange: func(_ string, from, to gobreaker.State) {
			metrics.FeedBreakerState.WithLabelValues(cfg.Name).Set(breakerGauge(to))
			if to == gobreaker.StateOpen {
				logging.WarnWithContext(f.logger, "feed circuit opened", "feed_breaker_open",
					logging.String("from", from.String()),
					logging.String(logging.FieldErrorHint, "check the feed URL and that the endpoint returns JSON"),
					logging.String(logging.FieldImpact, "feed is skipped until the breaker half-opens"),
				)
				return
			}
			f.logger.Info("feed circuit state changed",
				logging.String("from", from.String()),
				logging.String("to", to.String()),
				logging.String(logging.FieldEventType, "feed_breaker_state"),
			)
		},
	})
	return f
}

func (f *FeedSource) Name() string { return f.name }

// BreakerState reports the circuit breaker state ("closed", "half-open", "open").
func (f *FeedSource) BreakerState() string {
	return f.breaker.State().String()
}

func (f *FeedSource) Produce(ctx context.Context) ([]track.Fields, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: %s: rate limit: %w", ErrSourceFailed, f.name, err)
	}
	out, err := f.breaker.Execute(func() ([]track.Fields, error) {
		return f.fetch(ctx)
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrSourceFailed, f.name, err)
	}
	return out, nil
}

func (f *FeedSource) fetch(ctx context.Context) ([]track.Fields, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("fetch: unexpected status %s", resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFeedBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return decodeFeed(body)
}

func decodeFeed(body []byte) ([]track.Fields, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("decode: empty body")
	}
	var items []track.Fields
	if trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return nil, fmt.Errorf("decode: %w", err)
		}
	} else {
		var env feedEnvelope
		if err := json.Unmarshal(trimmed, &env); err != nil {
			return nil, fmt.Errorf("decode: %w", err)
		}
		items = env.Tracks
	}

	out := make([]track.Fields, 0, len(items))
	for _, item := range items {
		if strings.TrimSpace(item.Title) == "" || strings.TrimSpace(item.Artist) == "" || strings.TrimSpace(item.URL) == "" {
			continue
		}
		if item.Duration != "" {
			if _, err := track.ParseDuration(item.Duration); err != nil {
				item.Duration = ""
			}
		}
		out = append(out, item)
	}
	return out, nil
}

func breakerGauge(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}
