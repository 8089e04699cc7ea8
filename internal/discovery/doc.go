// Package discovery defines the sources an aggregation run consults.
//
// A Source produces raw candidate tracks (track.Fields). Sources may block
// and may fail; the aggregation orchestrator isolates each one so a failure
// only removes that source's contribution from the batch. The built-in
// sources serve a curated library of freely licensed tracks. FeedSource
// fetches already-structured candidate lists over HTTP behind a circuit
// breaker and a rate limiter. Registry assembles the configured list.
package discovery
