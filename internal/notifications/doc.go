// Package notifications delivers aggregation outcomes via ntfy.
//
// The ntfy implementation publishes to the topic configured in config.toml
// and degrades to a no-op when no topic is set. Completed runs and failures
// can be toggled independently.
package notifications
