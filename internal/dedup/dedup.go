// Package dedup removes duplicate records while preserving first-seen order.
package dedup

import "tunecrawl/internal/track"

// Key derives the identity used to compare two records.
type Key func(track.Record) string

// BatchKey identifies a record within a single aggregation batch.
func BatchKey(r track.Record) string {
	return r.URL + r.Title
}

// DurableKey identifies a record across the persisted catalog. Verified
// records are identified by URL alone; unverified ones by title, artist, and
// source.
func DurableKey(r track.Record) string {
	if r.Verified {
		return r.URL
	}
	return r.Title + "-" + r.Artist + "-" + r.Source
}

// By returns items with later duplicates (by key) dropped. The first
// occurrence of each key is kept in its original position.
func By[T any](items []T, key func(T) string) []T {
	if len(items) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(items))
	out := make([]T, 0, len(items))
	for _, item := range items {
		k := key(item)
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, item)
	}
	return out
}

// Records deduplicates records using key.
func Records(records []track.Record, key Key) []track.Record {
	return By(records, key)
}

// Keys returns the set of keys present in records.
func Keys(records []track.Record, key Key) map[string]struct{} {
	set := make(map[string]struct{}, len(records))
	for _, r := range records {
		set[key(r)] = struct{}{}
	}
	return set
}
