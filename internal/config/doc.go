// Package config loads, normalizes, and validates tunecrawl configuration.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// TUNECRAWL_REDIS_URL and TUNECRAWL_NTFY_TOPIC. The Config type centralizes
// every knob the daemon, the job runner, and the CLI need.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical storage backend names, and clear validation
// errors keyed by section.key.
package config
