// Package catalog owns the in-memory track catalog and its durable mirror.
//
// Store serializes mutations (Merge, Reset, Seed) and publishes each new state
// only after the configured Persister has accepted it, so readers calling
// Snapshot see either the complete pre-mutation catalog or the complete
// post-mutation catalog and never a partial one. A failed save leaves both
// memory and the durable copy untouched and is reported as ErrPersist.
//
// StatusOf derives the summary served by the status endpoint; it is computed
// from a snapshot on every call.
package catalog
