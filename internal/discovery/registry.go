package discovery

import (
	"fmt"
	"log/slog"
	"time"

	"tunecrawl/internal/config"
)

// Registry holds the ordered sources of an aggregation run and the batch
// used when all of them fail.
type Registry struct {
	sources  []Source
	fallback Source
	feeds    []*FeedSource
}

// NewRegistry wraps an explicit source list. A nil fallback selects the core
// library.
func NewRegistry(sources []Source, fallback Source) *Registry {
	if fallback == nil {
		fallback = NewStaticLibrary(TagCore, CoreLibrary())
	}
	r := &Registry{sources: append([]Source(nil), sources...), fallback: fallback}
	for _, src := range sources {
		if feed, ok := src.(*FeedSource); ok {
			r.feeds = append(r.feeds, feed)
		}
	}
	return r
}

// Build assembles the registry from cfg.Discovery.
func Build(cfg *config.Config, logger *slog.Logger) (*Registry, error) {
	feeds := make(map[string]config.Feed, len(cfg.Discovery.Feeds))
	for _, feed := range cfg.Discovery.Feeds {
		feeds[feed.Name] = feed
	}

	sources := make([]Source, 0, len(cfg.Discovery.Sources))
	for _, name := range cfg.Discovery.Sources {
		if src, ok := builtin(name, cfg.WebDelay(), cfg.FreshDelay()); ok {
			sources = append(sources, src)
			continue
		}
		feed, ok := feeds[name]
		if !ok {
			return nil, fmt.Errorf("discovery: unknown source %q", name)
		}
		sources = append(sources, NewFeedSource(FeedConfig{
			Name:              feed.Name,
			URL:               feed.URL,
			Timeout:           time.Duration(feed.TimeoutSeconds) * time.Second,
			RequestsPerSecond: feed.RequestsPerSecond,
		}, logger))
	}

	fallback, ok := builtin(cfg.Discovery.Fallback, 0, 0)
	if !ok {
		return nil, fmt.Errorf("discovery: unknown fallback %q", cfg.Discovery.Fallback)
	}
	return NewRegistry(sources, fallback), nil
}

func builtin(name string, webDelay, freshDelay time.Duration) (Source, bool) {
	switch name {
	case config.SourceCore:
		return NewStaticLibrary(TagCore, CoreLibrary()), true
	case config.SourceWeb:
		return WithDelay(NewStaticLibrary(TagWeb, WebLibrary()), webDelay), true
	case config.SourceGenre:
		return NewGenreExpansion(nil, nil), true
	case config.SourceFresh:
		return WithDelay(NewStaticLibrary(TagFresh, FreshLibrary()), freshDelay), true
	case config.SourceFailing:
		return NewFailing("Failing", "configured to fail"), true
	}
	return nil, false
}

// Sources returns the sources in invocation order.
func (r *Registry) Sources() []Source {
	return append([]Source(nil), r.sources...)
}

// Fallback returns the source whose output replaces an all-failed run.
func (r *Registry) Fallback() Source { return r.fallback }

// Names lists source tags in invocation order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.sources))
	for _, src := range r.sources {
		names = append(names, src.Name())
	}
	return names
}

// BreakerStates reports the circuit breaker state of every feed source.
func (r *Registry) BreakerStates() map[string]string {
	states := make(map[string]string, len(r.feeds))
	for _, feed := range r.feeds {
		states[feed.Name()] = feed.BreakerState()
	}
	return states
}
