// Command tunecrawl runs and controls the tunecrawl music catalog aggregator.
//
// serve and job run the aggregator in the foreground; start and stop manage
// a detached serve process; crawl, status, reset, list and health talk to a
// running daemon over its HTTP API.
package main
