package catalog

import "time"

// Status summarizes a catalog for the status endpoint.
type Status struct {
	TotalTracks      int        `json:"totalTracks"`
	LastAggregation  *time.Time `json:"lastAggregation"`
	AggregationCount int        `json:"aggregationCount"`
	CreatedAt        time.Time  `json:"createdAt"`
	Sources          []string   `json:"sources"`
	Genres           []string   `json:"genres"`
}

// StatusOf computes the summary of c. Sources and genres are listed once each
// in first-seen order.
func StatusOf(c Catalog) Status {
	st := Status{
		TotalTracks:      len(c.Records),
		AggregationCount: c.AggregationCount,
		CreatedAt:        c.CreatedAt,
		Sources:          []string{},
		Genres:           []string{},
	}
	if c.LastAggregation != nil {
		ts := *c.LastAggregation
		st.LastAggregation = &ts
	}
	seenSources := make(map[string]struct{})
	seenGenres := make(map[string]struct{})
	for _, r := range c.Records {
		if _, ok := seenSources[r.Source]; !ok {
			seenSources[r.Source] = struct{}{}
			st.Sources = append(st.Sources, r.Source)
		}
		if _, ok := seenGenres[r.Genre]; !ok {
			seenGenres[r.Genre] = struct{}{}
			st.Genres = append(st.Genres, r.Genre)
		}
	}
	return st
}
