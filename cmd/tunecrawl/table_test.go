package main

import (
	"strings"
	"testing"
)

func TestRenderTableWrapsLongCells(t *testing.T) {
	long := strings.Repeat("x", 80)
	out := renderTable(trackColumns, [][]string{{long, "Artist", "lofi", "Core", "3:05", "88"}})
	for _, line := range strings.Split(out, "\n") {
		if strings.Contains(line, long) {
			t.Fatalf("title was not wrapped:\n%s", out)
		}
	}
	if !strings.Contains(out, "Popularity") || !strings.Contains(out, "3:05") {
		t.Fatalf("unexpected table:\n%s", out)
	}
}

func TestRenderTablePadsShortRows(t *testing.T) {
	out := renderTable(fieldValueColumns, [][]string{{"Tracks"}})
	if !strings.Contains(out, "Tracks") || strings.Count(out, "\n") < 3 {
		t.Fatalf("unexpected table:\n%s", out)
	}
	if renderTable(nil, nil) != "" {
		t.Fatal("expected empty output without columns")
	}
}
