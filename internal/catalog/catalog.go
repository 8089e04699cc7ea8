package catalog

import (
	"time"

	"github.com/goccy/go-json"

	"tunecrawl/internal/track"
)

// Catalog is a point-in-time copy of the catalog contents and metadata.
type Catalog struct {
	Records          []track.Record
	LastAggregation  *time.Time
	AggregationCount int
	CreatedAt        time.Time
}

// wireCatalog is the durable JSON shape. totalTracks is derived on write and
// ignored on read.
type wireCatalog struct {
	Tracks      []track.Record `json:"tracks"`
	LastCrawl   *time.Time     `json:"lastCrawl"`
	TotalTracks int            `json:"totalTracks"`
	CrawlCount  int            `json:"crawlCount"`
	CreatedAt   time.Time      `json:"createdAt"`
}

// Len reports the number of records.
func (c Catalog) Len() int { return len(c.Records) }

// Clone returns a deep copy that shares no memory with c.
func (c Catalog) Clone() Catalog {
	out := Catalog{
		AggregationCount: c.AggregationCount,
		CreatedAt:        c.CreatedAt,
	}
	if c.Records != nil {
		out.Records = make([]track.Record, len(c.Records))
		copy(out.Records, c.Records)
	}
	if c.LastAggregation != nil {
		ts := *c.LastAggregation
		out.LastAggregation = &ts
	}
	return out
}

// MarshalJSON encodes the catalog in its durable shape.
func (c Catalog) MarshalJSON() ([]byte, error) {
	records := c.Records
	if records == nil {
		records = []track.Record{}
	}
	return json.Marshal(wireCatalog{
		Tracks:      records,
		LastCrawl:   c.LastAggregation,
		TotalTracks: len(records),
		CrawlCount:  c.AggregationCount,
		CreatedAt:   c.CreatedAt,
	})
}

// UnmarshalJSON decodes the durable shape.
func (c *Catalog) UnmarshalJSON(data []byte) error {
	var wire wireCatalog
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	*c = Catalog{
		Records:          wire.Tracks,
		LastAggregation:  wire.LastCrawl,
		AggregationCount: wire.CrawlCount,
		CreatedAt:        wire.CreatedAt,
	}
	return nil
}

// Empty returns a catalog with no records created at the given time.
func Empty(createdAt time.Time) Catalog {
	return Catalog{Records: []track.Record{}, CreatedAt: createdAt.UTC()}
}
