package discovery

import (
	"context"
	"errors"
	"fmt"
	"time"

	"tunecrawl/internal/track"
)

// ErrSourceFailed marks an error produced by a discovery source.
var ErrSourceFailed = errors.New("discovery source failed")

// Source produces candidate tracks.
type Source interface {
	// Name is the tag recorded on every track the source contributes.
	Name() string
	Produce(ctx context.Context) ([]track.Fields, error)
}

// StaticLibrary returns a fixed list of candidates.
type StaticLibrary struct {
	tag     string
	entries []track.Fields
}

// NewStaticLibrary returns a source emitting a copy of entries under tag.
func NewStaticLibrary(tag string, entries []track.Fields) *StaticLibrary {
	cp := make([]track.Fields, len(entries))
	copy(cp, entries)
	return &StaticLibrary{tag: tag, entries: cp}
}

func (s *StaticLibrary) Name() string { return s.tag }

func (s *StaticLibrary) Produce(ctx context.Context) ([]track.Fields, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make([]track.Fields, len(s.entries))
	copy(out, s.entries)
	return out, nil
}

// GenreExpansion emits every seed of every genre table, assigning URLs from
// a pool round-robin by overall position.
type GenreExpansion struct {
	tables []GenreTable
	urls   []string
}

// NewGenreExpansion builds the source. Empty arguments select the defaults.
func NewGenreExpansion(tables []GenreTable, urls []string) *GenreExpansion {
	if len(tables) == 0 {
		tables = DefaultGenreTables()
	}
	if len(urls) == 0 {
		urls = KnownURLs
	}
	return &GenreExpansion{tables: tables, urls: urls}
}

func (g *GenreExpansion) Name() string { return TagGenre }

func (g *GenreExpansion) Produce(ctx context.Context) ([]track.Fields, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var out []track.Fields
	index := 0
	for _, table := range g.tables {
		for _, seed := range table.Seeds {
			out = append(out, track.Fields{
				Title:      seed.Title,
				Artist:     seed.Artist,
				URL:        g.urls[index%len(g.urls)],
				Genre:      table.Genre,
				Popularity: seed.Popularity,
			})
			index++
		}
	}
	return out, nil
}

// Delayed wraps a source with a fixed latency before it produces.
type Delayed struct {
	inner Source
	delay time.Duration
}

// WithDelay returns src delayed by d. A non-positive d returns src.
func WithDelay(src Source, d time.Duration) Source {
	if d <= 0 {
		return src
	}
	return &Delayed{inner: src, delay: d}
}

func (d *Delayed) Name() string { return d.inner.Name() }

func (d *Delayed) Produce(ctx context.Context) ([]track.Fields, error) {
	timer := time.NewTimer(d.delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-timer.C:
	}
	return d.inner.Produce(ctx)
}

// Failing always fails. It exercises partial-failure handling.
type Failing struct {
	tag    string
	reason string
}

// NewFailing returns a source named tag that fails with reason.
func NewFailing(tag, reason string) *Failing {
	return &Failing{tag: tag, reason: reason}
}

func (f *Failing) Name() string { return f.tag }

func (f *Failing) Produce(context.Context) ([]track.Fields, error) {
	return nil, fmt.Errorf("%w: %s: %s", ErrSourceFailed, f.tag, f.reason)
}

// Func adapts a function to Source.
type Func struct {
	Tag string
	Fn  func(ctx context.Context) ([]track.Fields, error)
}

func (f Func) Name() string { return f.Tag }

func (f Func) Produce(ctx context.Context) ([]track.Fields, error) { return f.Fn(ctx) }
