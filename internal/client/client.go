package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"tunecrawl/internal/api"
	"tunecrawl/internal/track"
)

const defaultTimeout = 2 * time.Minute

// ErrUnavailable indicates the daemon could not be reached.
var ErrUnavailable = errors.New("tunecrawl daemon not reachable")

// StatusError reports a non-2xx response.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("daemon returned %d", e.Code)
	}
	return fmt.Sprintf("daemon returned %d: %s", e.Code, e.Message)
}

// Client provides HTTP access to the daemon.
type Client struct {
	baseURL string
	http    *http.Client
}

// New returns a client for the daemon at baseURL. A nil httpClient uses a
// client with a timeout long enough for a synchronous crawl.
func New(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), http: httpClient}
}

// BaseURL returns the daemon address the client targets.
func (c *Client) BaseURL() string { return c.baseURL }

// List returns the current catalog records.
func (c *Client) List(ctx context.Context) ([]track.Record, error) {
	var records []track.Record
	if err := c.do(ctx, http.MethodGet, "/api/catalog", &records); err != nil {
		return nil, err
	}
	return records, nil
}

// Crawl runs an aggregation. When the daemon reports a failed crawl the
// decoded response is returned together with a *StatusError.
func (c *Client) Crawl(ctx context.Context) (*api.CrawlResponse, error) {
	var resp api.CrawlResponse
	err := c.do(ctx, http.MethodPost, "/api/catalog/crawl", &resp)
	var statusErr *StatusError
	if err != nil && !errors.As(err, &statusErr) {
		return nil, err
	}
	if err != nil && resp.Message != "" {
		statusErr.Message = resp.Message
	}
	return &resp, err
}

// Status retrieves the catalog status.
func (c *Client) Status(ctx context.Context) (*api.StatusResponse, error) {
	var resp api.StatusResponse
	if err := c.do(ctx, http.MethodGet, "/api/catalog/status", &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Reset clears the catalog.
func (c *Client) Reset(ctx context.Context) (*api.MessageResponse, error) {
	var resp api.MessageResponse
	if err := c.do(ctx, http.MethodPost, "/api/catalog/reset", &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Health retrieves the daemon health report. A degraded report is returned
// together with a *StatusError.
func (c *Client) Health(ctx context.Context) (*api.HealthResponse, error) {
	var resp api.HealthResponse
	err := c.do(ctx, http.MethodGet, "/api/health", &resp)
	var statusErr *StatusError
	if err != nil && !errors.As(err, &statusErr) {
		return nil, err
	}
	return &resp, err
}

// TestNotification asks the daemon to send a test notification.
func (c *Client) TestNotification(ctx context.Context) (*api.MessageResponse, error) {
	var resp api.MessageResponse
	err := c.do(ctx, http.MethodPost, "/api/notifications/test", &resp)
	var statusErr *StatusError
	if err != nil && !errors.As(err, &statusErr) {
		return nil, err
	}
	return &resp, err
}

func (c *Client) do(ctx context.Context, method, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w at %s: %w", ErrUnavailable, c.baseURL, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if out != nil && len(body) > 0 {
		if decodeErr := json.Unmarshal(body, out); decodeErr != nil && resp.StatusCode < 300 {
			return fmt.Errorf("decode response: %w", decodeErr)
		}
	}
	if resp.StatusCode >= 300 {
		statusErr := &StatusError{Code: resp.StatusCode}
		var msg api.MessageResponse
		if json.Unmarshal(body, &msg) == nil {
			statusErr.Message = msg.Message
		}
		return statusErr
	}
	return nil
}
