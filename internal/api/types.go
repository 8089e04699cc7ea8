package api

import (
	"tunecrawl/internal/scheduler"
	"tunecrawl/internal/track"
)

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// Catalog actions accepted by the ?action= query parameter.
const (
	ActionList   = ""
	ActionCrawl  = "crawl"
	ActionStatus = "status"
	ActionReset  = "reset"
)

// CrawlResponse is the result of an on-demand aggregation.
type CrawlResponse struct {
	Success          bool            `json:"success"`
	Message          string          `json:"message,omitempty"`
	Error            string          `json:"error,omitempty"`
	RunID            string          `json:"runId,omitempty"`
	NewTracks        int             `json:"newTracks"`
	IntroducedTracks int             `json:"introducedTracks"`
	TotalTracks      int             `json:"totalTracks"`
	LastAggregation  string          `json:"lastAggregation,omitempty"`
	AggregationCount int             `json:"aggregationCount"`
	Fallback         bool            `json:"fallback"`
	Joined           bool            `json:"joined,omitempty"`
	FailedSources    []SourceFailure `json:"failedSources,omitempty"`
	Records          []track.Record  `json:"records"`
}

// SourceFailure names a discovery source excluded from a run.
type SourceFailure struct {
	Source string `json:"source"`
	Error  string `json:"error"`
}

// StatusResponse summarizes the catalog.
type StatusResponse struct {
	TotalTracks      int      `json:"totalTracks"`
	LastAggregation  *string  `json:"lastAggregation"`
	AggregationCount int      `json:"aggregationCount"`
	CreatedAt        string   `json:"createdAt"`
	Sources          []string `json:"sources"`
	Genres           []string `json:"genres"`
}

// MessageResponse carries a confirmation or error message.
type MessageResponse struct {
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
}

// HealthResponse describes daemon health.
type HealthResponse struct {
	Status     string            `json:"status"`
	Store      string            `json:"store"`
	StoreError string            `json:"storeError,omitempty"`
	Sources    []string          `json:"sources"`
	Fallback   string            `json:"fallback"`
	Feeds      map[string]string `json:"feeds,omitempty"`
	Scheduler  scheduler.Status  `json:"scheduler"`
}
