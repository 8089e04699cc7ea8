// Package daemon coordinates the long-running tunecrawl process.
//
// It takes a flock-based lock so only one instance serves a data directory,
// then supervises the interval scheduler and the HTTP API with suture. The
// HTTP surface keeps the ?action= form of the catalog endpoint for the
// browser UI and adds REST aliases, a health report and Prometheus metrics.
//
// Keep orchestration logic here: aggregation lives in internal/aggregate and
// the transport-independent responses in internal/api.
package daemon
