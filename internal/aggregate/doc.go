// Package aggregate runs one catalog aggregation: it fans out to the
// configured discovery sources, substitutes the fallback batch when every
// source fails, collapses the batch and merges it into the catalog store.
//
// Source failures never leave this package. A store failure is returned as
// ErrStore and leaves the catalog metadata untouched.
package aggregate
