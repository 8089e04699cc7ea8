package track

import (
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
)

var idPattern = regexp.MustCompile(`^([a-z]+)-(\d+)-([0-9a-z]{9})$`)

func fixedFactory(now time.Time) Factory {
	return Factory{
		Now:     func() time.Time { return now },
		IntN:    func(n int) int { return n - 1 },
		NewUUID: func() uuid.UUID { return uuid.MustParse("00000000-0000-0000-0000-000000000000") },
	}
}

func TestNewAssignsIdentityAndDefaults(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	fc := fixedFactory(now)

	rec := fc.New("FreeMusicArchive", Fields{
		Title:      "Night Drive",
		Artist:     "Synthwave Express",
		URL:        "https://example.com/night.mp3",
		Genre:      "electronic",
		Popularity: 90,
	})

	want := "freemusicarchive-1709294400000-000000000"
	if rec.ID != want {
		t.Fatalf("ID = %q, want %q", rec.ID, want)
	}
	if rec.Source != "FreeMusicArchive" {
		t.Fatalf("Source = %q", rec.Source)
	}
	if !rec.Verified {
		t.Fatal("expected record to be verified")
	}
	if !rec.CrawledAt.Equal(now) {
		t.Fatalf("CrawledAt = %v, want %v", rec.CrawledAt, now)
	}
	if rec.Duration != "7:59" {
		t.Fatalf("Duration = %q, want 7:59", rec.Duration)
	}
	if rec.Title != "Night Drive" || rec.Artist != "Synthwave Express" || rec.Popularity != 90 {
		t.Fatalf("fields not copied: %+v", rec)
	}
}

func TestNewKeepsProvidedDuration(t *testing.T) {
	rec := New("WebDiscovery", Fields{Title: "x", Duration: "3:05"})
	if rec.Duration != "3:05" {
		t.Fatalf("Duration = %q, want 3:05", rec.Duration)
	}
}

func TestNewSourceArgumentWins(t *testing.T) {
	rec := New("FreshCrawl", Fields{Title: "x", Source: "Spoofed"})
	if rec.Source != "FreshCrawl" {
		t.Fatalf("Source = %q, want FreshCrawl", rec.Source)
	}
	rec = New("", Fields{Title: "x", Source: "Feed"})
	if rec.Source != "Feed" {
		t.Fatalf("Source = %q, want Feed fallback", rec.Source)
	}
}

func TestIDFormatAndUniqueness(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 500; i++ {
		rec := New("GenreExpansion", Fields{Title: "t"})
		m := idPattern.FindStringSubmatch(rec.ID)
		if m == nil {
			t.Fatalf("id %q does not match pattern", rec.ID)
		}
		if m[1] != "genreexpansion" {
			t.Fatalf("id prefix = %q", m[1])
		}
		if _, dup := seen[rec.ID]; dup {
			t.Fatalf("duplicate id %q", rec.ID)
		}
		seen[rec.ID] = struct{}{}
	}
}

func TestRandomDurationRange(t *testing.T) {
	for i := 0; i < 300; i++ {
		rec := New("core", Fields{})
		d, err := ParseDuration(rec.Duration)
		if err != nil {
			t.Fatalf("ParseDuration(%q): %v", rec.Duration, err)
		}
		if d < 2*time.Minute || d >= 8*time.Minute {
			t.Fatalf("duration %q out of range", rec.Duration)
		}
	}
}

func TestParseDuration(t *testing.T) {
	tests := []struct {
		in      string
		want    time.Duration
		wantErr bool
	}{
		{in: "3:05", want: 3*time.Minute + 5*time.Second},
		{in: "0:59", want: 59 * time.Second},
		{in: "12:00", want: 12 * time.Minute},
		{in: "3:5", wantErr: true},
		{in: "3:60", wantErr: true},
		{in: "abc", wantErr: true},
		{in: "-1:00", wantErr: true},
	}
	for _, tt := range tests {
		got, err := ParseDuration(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseDuration(%q) expected error", tt.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseDuration(%q): %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseDuration(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestMaterialize(t *testing.T) {
	fc := Factory{}
	if got := fc.Materialize("core", nil); got != nil {
		t.Fatalf("expected nil for empty input, got %v", got)
	}
	recs := fc.Materialize("Core", []Fields{{Title: "a"}, {Title: "b"}})
	if len(recs) != 2 {
		t.Fatalf("len = %d", len(recs))
	}
	for i, title := range []string{"a", "b"} {
		if recs[i].Title != title {
			t.Fatalf("order not preserved: %v", recs)
		}
		if !strings.HasPrefix(recs[i].ID, "core-") {
			t.Fatalf("id %q missing lowered prefix", recs[i].ID)
		}
	}
}
