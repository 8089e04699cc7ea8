package track

import (
	"encoding/binary"
	"fmt"
	"math/rand/v2"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const (
	minDurationMinutes = 2
	maxDurationMinutes = 7
	idSuffixLength     = 9
)

// idSuffixSpace is 36^9, the number of distinct base36 suffixes.
const idSuffixSpace uint64 = 101559956668416

// Record is one catalog item.
type Record struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	Artist     string    `json:"artist"`
	URL        string    `json:"url"`
	Source     string    `json:"source"`
	Genre      string    `json:"genre"`
	Duration   string    `json:"duration"`
	Popularity int       `json:"popularity"`
	CrawledAt  time.Time `json:"crawledAt"`
	Verified   bool      `json:"verified"`
}

// Fields holds the raw candidate data a discovery source produces.
type Fields struct {
	Title      string `json:"title"`
	Artist     string `json:"artist"`
	URL        string `json:"url"`
	Source     string `json:"source,omitempty"`
	Genre      string `json:"genre"`
	Popularity int    `json:"popularity"`
	Duration   string `json:"duration,omitempty"`
}

// Factory builds records. Zero-value fields fall back to wall clock time,
// math/rand/v2, and random UUIDs.
type Factory struct {
	Now     func() time.Time
	IntN    func(n int) int
	NewUUID func() uuid.UUID
}

var defaultFactory Factory

// New creates a record for source from f using the default factory.
func New(source string, f Fields) Record {
	return defaultFactory.New(source, f)
}

// New creates a record attributed to source. The source argument wins over
// f.Source so a producer cannot claim another source's tag.
func (fc Factory) New(source string, f Fields) Record {
	now := fc.now()
	source = strings.TrimSpace(source)
	if source == "" {
		source = strings.TrimSpace(f.Source)
	}
	duration := strings.TrimSpace(f.Duration)
	if duration == "" {
		duration = fc.randomDuration()
	}
	return Record{
		ID:         fc.newID(source, now),
		Title:      f.Title,
		Artist:     f.Artist,
		URL:        f.URL,
		Source:     source,
		Genre:      f.Genre,
		Duration:   duration,
		Popularity: f.Popularity,
		CrawledAt:  now,
		// Sources carry no independent verification step.
		Verified: true,
	}
}

func (fc Factory) now() time.Time {
	if fc.Now != nil {
		return fc.Now().UTC()
	}
	return time.Now().UTC()
}

func (fc Factory) intN(n int) int {
	if fc.IntN != nil {
		return fc.IntN(n)
	}
	return rand.IntN(n)
}

func (fc Factory) uuid() uuid.UUID {
	if fc.NewUUID != nil {
		return fc.NewUUID()
	}
	return uuid.New()
}

func (fc Factory) newID(source string, now time.Time) string {
	lowered := cases.Lower(language.Und).String(source)
	return fmt.Sprintf("%s-%d-%s", lowered, now.UnixMilli(), fc.idSuffix())
}

func (fc Factory) idSuffix() string {
	u := fc.uuid()
	n := binary.BigEndian.Uint64(u[:8]) % idSuffixSpace
	suffix := strconv.FormatUint(n, 36)
	if len(suffix) < idSuffixLength {
		suffix = strings.Repeat("0", idSuffixLength-len(suffix)) + suffix
	}
	return suffix
}

func (fc Factory) randomDuration() string {
	minutes := minDurationMinutes + fc.intN(maxDurationMinutes-minDurationMinutes+1)
	seconds := fc.intN(60)
	return FormatDuration(minutes, seconds)
}

// FormatDuration renders minutes and seconds as m:ss.
func FormatDuration(minutes, seconds int) string {
	return fmt.Sprintf("%d:%02d", minutes, seconds)
}

// ParseDuration converts an m:ss string back into a time.Duration.
func ParseDuration(value string) (time.Duration, error) {
	minutesPart, secondsPart, ok := strings.Cut(strings.TrimSpace(value), ":")
	if !ok {
		return 0, fmt.Errorf("duration %q: expected m:ss", value)
	}
	minutes, err := strconv.Atoi(minutesPart)
	if err != nil || minutes < 0 {
		return 0, fmt.Errorf("duration %q: invalid minutes", value)
	}
	seconds, err := strconv.Atoi(secondsPart)
	if err != nil || seconds < 0 || seconds > 59 || len(secondsPart) != 2 {
		return 0, fmt.Errorf("duration %q: invalid seconds", value)
	}
	return time.Duration(minutes)*time.Minute + time.Duration(seconds)*time.Second, nil
}

// Materialize creates one record per candidate, attributing each to source.
func (fc Factory) Materialize(source string, candidates []Fields) []Record {
	if len(candidates) == 0 {
		return nil
	}
	out := make([]Record, 0, len(candidates))
	for _, f := range candidates {
		out = append(out, fc.New(source, f))
	}
	return out
}
