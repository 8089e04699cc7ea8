// Package scheduler triggers aggregations on demand and on a fixed interval
// while guaranteeing that at most one aggregation is in flight.
//
// Demand triggers that arrive during a run join it and receive its result.
// Interval ticks that arrive during a run are skipped. The only retry is the
// next tick.
package scheduler
