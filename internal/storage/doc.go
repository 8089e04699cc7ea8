// Package storage provides the durable backends behind catalog.Store.
//
// Every backend implements catalog.Persister and stores the whole catalog as
// one unit, so a Save either replaces the previous copy completely or leaves
// it untouched. Open selects the backend named by storage.backend:
//
//   - file: pretty-printed JSON written atomically (the default)
//   - sqlite: rows in a local database with busy retries
//   - badger: a single key in an embedded key-value store
//   - redis: a single key on a shared server
//   - memory: process lifetime only
//
// Backends that can check their own reachability implement Pinger; the
// daemon health endpoint uses it.
package storage
