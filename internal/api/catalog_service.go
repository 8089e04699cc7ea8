package api

import (
	"context"
	"net/http"

	"tunecrawl/internal/aggregate"
	"tunecrawl/internal/catalog"
	"tunecrawl/internal/track"
)

const (
	crawlSucceededMessage = "Universal crawl completed successfully"
	crawlFailedError      = "Crawl failed"
	resetMessage          = "Catalog reset successfully"
	resetFailedError      = "Reset failed"
)

// CatalogStore abstracts the catalog operations the service needs.
type CatalogStore interface {
	Snapshot() catalog.Catalog
	Reset(ctx context.Context) error
}

// Crawler runs or joins an aggregation.
type Crawler interface {
	Trigger(ctx context.Context) (aggregate.Result, bool, error)
}

// CatalogService exposes catalog operations returning API DTOs.
type CatalogService struct {
	store   CatalogStore
	crawler Crawler
}

// NewCatalogService constructs a CatalogService.
func NewCatalogService(store CatalogStore, crawler Crawler) *CatalogService {
	if store == nil {
		return nil
	}
	return &CatalogService{store: store, crawler: crawler}
}

// List returns the current records.
func (s *CatalogService) List(context.Context) []track.Record {
	if s == nil {
		return []track.Record{}
	}
	return nonNilRecords(s.store.Snapshot().Records)
}

// Crawl runs an aggregation, or joins the one in flight, and reports its
// outcome. On failure the last known-good records are returned with status
// 500.
func (s *CatalogService) Crawl(ctx context.Context) (CrawlResponse, int) {
	if s == nil || s.crawler == nil {
		return CrawlResponse{
			Error:   crawlFailedError,
			Message: "aggregation is not available",
			Records: s.List(ctx),
		}, http.StatusServiceUnavailable
	}
	res, joined, err := s.crawler.Trigger(ctx)
	if err != nil {
		return CrawlResponse{
			Error:   crawlFailedError,
			Message: err.Error(),
			Joined:  joined,
			Records: s.List(ctx),
		}, http.StatusInternalServerError
	}
	return FromResult(res, joined), http.StatusOK
}

// Status computes the catalog status from a fresh snapshot.
func (s *CatalogService) Status(context.Context) StatusResponse {
	if s == nil {
		return FromStatus(catalog.Status{})
	}
	return FromStatus(catalog.StatusOf(s.store.Snapshot()))
}

// Reset clears the catalog.
func (s *CatalogService) Reset(ctx context.Context) (MessageResponse, int) {
	if s == nil {
		return MessageResponse{Error: resetFailedError, Message: "catalog is not available"}, http.StatusServiceUnavailable
	}
	if err := s.store.Reset(ctx); err != nil {
		return MessageResponse{Error: resetFailedError, Message: err.Error()}, http.StatusInternalServerError
	}
	return MessageResponse{Message: resetMessage}, http.StatusOK
}

// Dispatch serves the ?action= form of the catalog endpoint. Unknown actions
// return the record list.
func (s *CatalogService) Dispatch(ctx context.Context, action string) (any, int) {
	switch action {
	case ActionCrawl:
		return s.Crawl(ctx)
	case ActionStatus:
		return s.Status(ctx), http.StatusOK
	case ActionReset:
		return s.Reset(ctx)
	default:
		return s.List(ctx), http.StatusOK
	}
}
