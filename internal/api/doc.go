// Package api defines the transport-independent catalog service and the
// wire-format types shared by the HTTP daemon and the CLI client.
//
// # Key Types
//
// CatalogService: list, crawl, status and reset operations over the catalog
// store and the scheduler. Each operation returns a DTO plus the HTTP-style
// status code the transport should use.
//
// CrawlResponse: outcome of an on-demand aggregation. Failures carry the last
// known-good record list.
//
// StatusResponse: counts, aggregation metadata and distinct source and genre
// tags, computed fresh from a snapshot on every call.
//
// HealthResponse: store reachability, scheduler state and feed breakers.
//
// # Design Notes
//
// DTOs use camelCase JSON tags for the browser UI. Timestamps use RFC3339
// with milliseconds.
package api
