package testsupport

import (
	"context"
	"errors"
	"sync/atomic"

	"tunecrawl/internal/discovery"
	"tunecrawl/internal/track"
)

// Candidate builds a minimal discovery candidate.
func Candidate(url, title string) track.Fields {
	return track.Fields{Title: title, Artist: "Test Artist", URL: url, Genre: "test", Popularity: 50}
}

// Record builds a verified catalog record.
func Record(url, title, source string) track.Record {
	return track.Record{
		ID:       source + "-" + url,
		Title:    title,
		Artist:   "Test Artist",
		URL:      url,
		Source:   source,
		Genre:    "test",
		Duration: "3:00",
		Verified: true,
	}
}

// StubSource returns a source that always yields fields under tag.
func StubSource(tag string, fields ...track.Fields) discovery.Source {
	return discovery.NewStaticLibrary(tag, fields)
}

// ErrStub is returned by FailingSource.
var ErrStub = errors.New("stub source unavailable")

// FailingSource returns a source that always fails.
func FailingSource(tag string) discovery.Source {
	return discovery.Func{Tag: tag, Fn: func(context.Context) ([]track.Fields, error) {
		return nil, ErrStub
	}}
}

// BlockingSource yields its fields once Release is closed. Started is
// closed by the first invocation.
type BlockingSource struct {
	Tag     string
	Fields  []track.Fields
	Started chan struct{}
	Release chan struct{}
	calls   atomic.Int32
}

// NewBlockingSource returns a blocking source ready for use.
func NewBlockingSource(tag string, fields ...track.Fields) *BlockingSource {
	return &BlockingSource{
		Tag:     tag,
		Fields:  fields,
		Started: make(chan struct{}),
		Release: make(chan struct{}),
	}
}

func (b *BlockingSource) Name() string { return b.Tag }

func (b *BlockingSource) Produce(ctx context.Context) ([]track.Fields, error) {
	if b.calls.Add(1) == 1 {
		close(b.Started)
	}
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-b.Release:
	}
	return append([]track.Fields(nil), b.Fields...), nil
}

// Calls reports how many times Produce was invoked.
func (b *BlockingSource) Calls() int {
	return int(b.calls.Load())
}
