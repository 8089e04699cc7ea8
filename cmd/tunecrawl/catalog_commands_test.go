package main

import (
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/goccy/go-json"

	"tunecrawl/internal/track"
)

func TestCrawlStatusResetThroughDaemon(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"crawl"}, env.apiURL, env.configPath)
	if err != nil {
		t.Fatalf("crawl: %v", err)
	}
	requireContains(t, out, "Universal crawl completed successfully")
	requireContains(t, out, "Total:        2")

	out, _, err = runCLI(t, []string{"status"}, env.apiURL, env.configPath)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	requireContains(t, out, "Running at "+env.apiURL)
	requireContains(t, out, "Stub")

	out, _, err = runCLI(t, []string{"reset"}, env.apiURL, env.configPath)
	if err != nil {
		t.Fatalf("reset: %v", err)
	}
	requireContains(t, out, "Catalog reset successfully")
	if got := env.store.Snapshot().Len(); got != 0 {
		t.Fatalf("expected empty catalog after reset, got %d", got)
	}
}

func TestListFiltersAndJSON(t *testing.T) {
	env := setupCLITestEnv(t)
	if _, _, err := runCLI(t, []string{"crawl"}, env.apiURL, env.configPath); err != nil {
		t.Fatalf("crawl: %v", err)
	}

	out, _, err := runCLI(t, []string{"list", "--source", "stub"}, env.apiURL, env.configPath)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	requireContains(t, out, "Stub Song")
	if strings.Contains(out, "Seed Song") {
		t.Fatalf("source filter leaked other tracks:\n%s", out)
	}
	requireContains(t, out, "1 tracks")

	out, _, err = runCLI(t, []string{"--json", "list"}, env.apiURL, env.configPath)
	if err != nil {
		t.Fatalf("list --json: %v", err)
	}
	var records []track.Record
	if err := json.Unmarshal([]byte(out), &records); err != nil {
		t.Fatalf("decode list output: %v\n%s", err, out)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
}

func TestStatusFallsBackToStorageWhenDaemonDown(t *testing.T) {
	_, configPath := offlineConfig(t)

	out, _, err := runCLI(t, []string{"status"}, "", configPath)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	requireContains(t, out, "Not running")
	requireContains(t, out, "never")
}

func TestLocalCrawlWritesCatalogFile(t *testing.T) {
	cfg, configPath := offlineConfig(t)

	out, _, err := runCLI(t, []string{"crawl", "--local"}, "", configPath)
	if err != nil {
		t.Fatalf("crawl --local: %v", err)
	}
	requireContains(t, out, "Total:        10")
	if _, err := os.Stat(cfg.Storage.CatalogFile); err != nil {
		t.Fatalf("expected catalog file: %v", err)
	}

	out, _, err = runCLI(t, []string{"list", "--genre", "funk"}, "", configPath)
	if err != nil {
		t.Fatalf("offline list: %v", err)
	}
	requireContains(t, out, "Retro Funk")
}

func TestLocalCrawlRefusedWhileDaemonHoldsLock(t *testing.T) {
	env := setupCLITestEnv(t)
	_, _, err := runCLI(t, []string{"crawl", "--local"}, env.apiURL, env.configPath)
	if !errors.Is(err, errInstanceRunning) {
		t.Fatalf("expected errInstanceRunning, got %v", err)
	}
}

func TestDaemonCommandsWithoutDaemon(t *testing.T) {
	_, configPath := offlineConfig(t)

	out, _, err := runCLI(t, []string{"stop"}, "", configPath)
	if err != nil {
		t.Fatalf("stop: %v", err)
	}
	requireContains(t, out, "Daemon is not running")

	_, _, err = runCLI(t, []string{"reset"}, "", configPath)
	if err == nil || !strings.Contains(err.Error(), "tunecrawl start") {
		t.Fatalf("expected start hint, got %v", err)
	}
}

func TestHealthAndTestNotify(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"health"}, env.apiURL, env.configPath)
	if err != nil {
		t.Fatalf("health: %v", err)
	}
	requireContains(t, out, "[OK] ok")
	requireContains(t, out, "memory")

	out, _, err = runCLI(t, []string{"test-notify"}, env.apiURL, env.configPath)
	if err == nil {
		t.Fatal("expected error without a configured topic")
	}
	requireContains(t, out, "not configured")
}

func TestFilterRecords(t *testing.T) {
	records := []track.Record{
		{Title: "A", Genre: "lofi", Source: "Core"},
		{Title: "B", Genre: "jazz", Source: "Core"},
		{Title: "C", Genre: "LoFi", Source: "Web"},
	}
	if got := filterRecords(records, "lofi", "", 0); len(got) != 2 {
		t.Fatalf("genre filter = %d records", len(got))
	}
	if got := filterRecords(records, "", "core", 1); len(got) != 1 || got[0].Title != "A" {
		t.Fatalf("source filter with limit = %+v", got)
	}
}
