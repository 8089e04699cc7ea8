// Package daemonctl starts, stops and restarts a detached tunecrawl daemon.
//
// Liveness is judged through the HTTP API and the pid file written by serve
// mode; stopping sends SIGTERM and falls back to SIGKILL after a grace
// period.
package daemonctl
