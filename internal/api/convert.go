package api

import (
	"time"

	"tunecrawl/internal/aggregate"
	"tunecrawl/internal/catalog"
	"tunecrawl/internal/track"
)

// FromStatus converts a catalog status projection to its API representation.
func FromStatus(st catalog.Status) StatusResponse {
	resp := StatusResponse{
		TotalTracks:      st.TotalTracks,
		AggregationCount: st.AggregationCount,
		CreatedAt:        formatTime(st.CreatedAt),
		Sources:          st.Sources,
		Genres:           st.Genres,
	}
	if st.LastAggregation != nil {
		ts := formatTime(*st.LastAggregation)
		resp.LastAggregation = &ts
	}
	if resp.Sources == nil {
		resp.Sources = []string{}
	}
	if resp.Genres == nil {
		resp.Genres = []string{}
	}
	return resp
}

// FromResult converts a completed aggregation to a successful crawl response.
func FromResult(res aggregate.Result, joined bool) CrawlResponse {
	return CrawlResponse{
		Success:          true,
		Message:          crawlSucceededMessage,
		RunID:            res.RunID,
		NewTracks:        res.NewCount,
		IntroducedTracks: res.Introduced,
		TotalTracks:      res.TotalCount,
		LastAggregation:  formatTime(res.Timestamp),
		AggregationCount: res.AggregationCount,
		Fallback:         res.Fallback,
		Joined:           joined,
		FailedSources:    fromSourceErrors(res.SourceErrors),
		Records:          nonNilRecords(res.Records),
	}
}

func fromSourceErrors(errs []aggregate.SourceError) []SourceFailure {
	if len(errs) == 0 {
		return nil
	}
	out := make([]SourceFailure, 0, len(errs))
	for _, e := range errs {
		out = append(out, SourceFailure{Source: e.Source, Error: e.Error})
	}
	return out
}

func nonNilRecords(records []track.Record) []track.Record {
	if records == nil {
		return []track.Record{}
	}
	return records
}

func formatTime(ts time.Time) string {
	if ts.IsZero() {
		return ""
	}
	return ts.UTC().Format(dateTimeFormat)
}
