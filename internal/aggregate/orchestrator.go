package aggregate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"tunecrawl/internal/catalog"
	"tunecrawl/internal/dedup"
	"tunecrawl/internal/discovery"
	"tunecrawl/internal/logging"
	"tunecrawl/internal/metrics"
	"tunecrawl/internal/track"
)

var (
	// ErrStore wraps a failed catalog mutation.
	ErrStore = errors.New("aggregation store update failed")
	// ErrNoSources is returned when neither the sources nor the fallback
	// produced candidates.
	ErrNoSources = errors.New("no discovery source produced candidates")
)

const defaultConcurrency = 4

// Options tunes an Orchestrator.
type Options struct {
	// Concurrency bounds simultaneous source invocations. Zero selects 4.
	Concurrency int
	// Factory builds records from candidates. Zero fields use real clocks
	// and randomness.
	Factory track.Factory
	// Now stamps the run. Defaults to time.Now.
	Now func() time.Time
}

// SourceError records one excluded source.
type SourceError struct {
	Source string `json:"source"`
	Error  string `json:"error"`
}

// Result describes a completed aggregation.
type Result struct {
	RunID string
	// NewCount is the size of the batch offered to the store, not the number
	// of records that were new to the catalog.
	NewCount int
	// Introduced counts durable identities present after the merge that
	// were absent before it.
	Introduced       int
	TotalCount       int
	Timestamp        time.Time
	AggregationCount int
	Fallback         bool
	SourceErrors     []SourceError
	Duration         time.Duration
	Records          []track.Record
}

// Orchestrator runs aggregations against a registry and a store.
type Orchestrator struct {
	registry    *discovery.Registry
	store       *catalog.Store
	logger      *slog.Logger
	concurrency int
	factory     track.Factory
	now         func() time.Time
}

// New builds an orchestrator.
func New(registry *discovery.Registry, store *catalog.Store, logger *slog.Logger, opts Options) (*Orchestrator, error) {
	if registry == nil {
		return nil, errors.New("aggregate: registry is required")
	}
	if store == nil {
		return nil, errors.New("aggregate: store is required")
	}
	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Orchestrator{
		registry:    registry,
		store:       store,
		logger:      logging.NewComponentLogger(logger, "aggregate"),
		concurrency: concurrency,
		factory:     opts.Factory,
		now:         now,
	}, nil
}

// Store returns the catalog store the orchestrator merges into.
func (o *Orchestrator) Store() *catalog.Store { return o.store }

// Registry returns the discovery sources consulted on each run.
func (o *Orchestrator) Registry() *discovery.Registry { return o.registry }

type sourceOutcome struct {
	name    string
	records []track.Record
	err     error
}

// Run performs one aggregation.
func (o *Orchestrator) Run(ctx context.Context) (Result, error) {
	runID := uuid.NewString()
	ctx = logging.WithRunID(ctx, runID)
	logger := logging.WithContext(ctx, o.logger)
	started := o.now()

	sources := o.registry.Sources()
	logger.Info("aggregation started",
		logging.Int("sources", len(sources)),
		logging.String(logging.FieldEventType, "run_started"),
	)

	outcomes := o.invoke(ctx, sources)

	var (
		batch     []track.Record
		srcErrors []SourceError
		succeeded int
	)
	for _, out := range outcomes {
		if out.err != nil {
			srcErrors = append(srcErrors, SourceError{Source: out.name, Error: out.err.Error()})
			metrics.SourceFailures.WithLabelValues(out.name).Inc()
			logging.WarnWithContext(logger, "discovery source failed", "source_failed",
				logging.Source(out.name),
				logging.Error(out.err),
				logging.String(logging.FieldErrorHint, "check the source configuration or endpoint"),
				logging.String(logging.FieldImpact, "source excluded from this run"),
			)
			continue
		}
		succeeded++
		metrics.SourceCandidates.WithLabelValues(out.name).Add(float64(len(out.records)))
		batch = append(batch, out.records...)
	}

	fallback := succeeded == 0
	if fallback {
		records, err := o.produceFallback(ctx)
		if err != nil {
			metrics.AggregationRuns.WithLabelValues(metrics.OutcomeFailed).Inc()
			logging.ErrorWithContext(logger, "fallback source failed", "run_failed",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check discovery.fallback"),
			)
			return Result{RunID: runID, SourceErrors: srcErrors, Records: o.store.Snapshot().Records},
				fmt.Errorf("%w: %w", ErrNoSources, err)
		}
		logging.WarnWithContext(logger, "all discovery sources failed; using fallback batch", "fallback_used",
			logging.Source(o.registry.Fallback().Name()),
			logging.Int("fallback_tracks", len(records)),
			logging.String(logging.FieldImpact, "catalog refreshed from the fallback library only"),
		)
		batch = records
	}

	batch = dedup.Records(batch, dedup.BatchKey)

	before := o.store.Snapshot()
	merged, err := o.store.Merge(ctx, batch)
	if err != nil {
		metrics.AggregationRuns.WithLabelValues(metrics.OutcomeFailed).Inc()
		logging.ErrorWithContext(logger, "catalog merge failed", "run_failed",
			logging.Error(err),
			logging.String("store", o.store.Describe()),
			logging.String(logging.FieldErrorHint, "check the storage backend is reachable and writable"),
		)
		return Result{
			RunID:            runID,
			NewCount:         len(batch),
			TotalCount:       merged.Len(),
			Timestamp:        started.UTC(),
			AggregationCount: merged.AggregationCount,
			Fallback:         fallback,
			SourceErrors:     srcErrors,
			Records:          merged.Records,
		}, fmt.Errorf("%w: %w", ErrStore, err)
	}

	elapsed := o.now().Sub(started)
	result := Result{
		RunID:            runID,
		NewCount:         len(batch),
		Introduced:       introduced(before.Records, merged.Records),
		TotalCount:       merged.Len(),
		AggregationCount: merged.AggregationCount,
		Fallback:         fallback,
		SourceErrors:     srcErrors,
		Duration:         elapsed,
		Records:          merged.Records,
	}
	if merged.LastAggregation != nil {
		result.Timestamp = *merged.LastAggregation
	}

	outcome := metrics.OutcomeSuccess
	if fallback {
		outcome = metrics.OutcomeFallback
	}
	metrics.AggregationRuns.WithLabelValues(outcome).Inc()
	metrics.AggregationDuration.Observe(elapsed.Seconds())
	metrics.ObserveCatalog(result.TotalCount, result.AggregationCount)

	logger.Info("aggregation completed",
		logging.Int("total_tracks", result.TotalCount),
		logging.Int("new_tracks_found", result.NewCount),
		logging.Int("introduced_tracks", result.Introduced),
		logging.Int("aggregation_count", result.AggregationCount),
		logging.Int("failed_sources", len(srcErrors)),
		logging.Bool("fallback", fallback),
		logging.Duration("duration", elapsed),
		logging.String(logging.FieldEventType, "run_completed"),
	)
	return result, nil
}

// invoke runs every source with bounded concurrency. Each outcome lands in
// the slot matching the source's position so batch order stays fixed.
func (o *Orchestrator) invoke(ctx context.Context, sources []discovery.Source) []sourceOutcome {
	outcomes := make([]sourceOutcome, len(sources))
	var g errgroup.Group
	g.SetLimit(o.concurrency)
	for i, src := range sources {
		g.Go(func() error {
			outcomes[i] = o.produce(ctx, src)
			return nil
		})
	}
	_ = g.Wait()
	return outcomes
}

func (o *Orchestrator) produce(ctx context.Context, src discovery.Source) (out sourceOutcome) {
	name := src.Name()
	out.name = name
	defer func() {
		if r := recover(); r != nil {
			out.records = nil
			out.err = fmt.Errorf("%w: %s: panic: %v", discovery.ErrSourceFailed, name, r)
		}
	}()
	fields, err := src.Produce(ctx)
	if err != nil {
		out.err = err
		return out
	}
	out.records = o.factory.Materialize(name, fields)
	return out
}

func (o *Orchestrator) produceFallback(ctx context.Context) ([]track.Record, error) {
	out := o.produce(ctx, o.registry.Fallback())
	if out.err != nil {
		return nil, out.err
	}
	if len(out.records) == 0 {
		return nil, fmt.Errorf("fallback %s produced no candidates", out.name)
	}
	return out.records, nil
}

func introduced(before, after []track.Record) int {
	seen := dedup.Keys(before, dedup.DurableKey)
	count := 0
	for key := range dedup.Keys(after, dedup.DurableKey) {
		if _, ok := seen[key]; !ok {
			count++
		}
	}
	return count
}
