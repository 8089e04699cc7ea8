// Package logging assembles structured slog loggers and formatting helpers used
// across tunecrawl services.
//
// It owns the configurable console/JSON handlers, centralizes level and output
// plumbing (including size-based rotation of the log file), and exposes
// context-aware helpers so aggregation code can tag log lines with the run ID
// automatically. The package also provides a no-op logger for tests and wiring
// code that cannot fail.
//
// Prefer these constructors over hand-rolled slog setup so new components
// emit records with the same keys (component, event_type, error_hint, impact)
// as the rest of the system.
package logging
