// Package client talks to a running tunecrawl daemon over its HTTP API.
//
// The CLI uses it for crawl, status, reset, list and health commands.
// Connection failures are reported as ErrUnavailable so callers can tell
// "daemon not running" apart from request errors.
package client
