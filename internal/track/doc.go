// Package track defines the catalog's record model.
//
// A Record is created once by New (or a Factory) from the raw Fields a
// discovery source produced and is never mutated afterwards: re-aggregation
// either keeps an existing copy or adds a new one. Identifiers, durations,
// and crawl timestamps are assigned at creation time only.
package track
