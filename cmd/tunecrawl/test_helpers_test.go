package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"tunecrawl/internal/aggregate"
	"tunecrawl/internal/catalog"
	"tunecrawl/internal/config"
	"tunecrawl/internal/daemon"
	"tunecrawl/internal/discovery"
	"tunecrawl/internal/logging"
	"tunecrawl/internal/scheduler"
	"tunecrawl/internal/testsupport"
)

type cliTestEnv struct {
	cfg        *config.Config
	store      *catalog.Store
	daemon     *daemon.Daemon
	apiURL     string
	configPath string
}

// setupCLITestEnv starts a daemon over a memory store seeded with one track
// and a stub source that offers a second one.
func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	cfg := testsupport.NewConfig(t, testsupport.WithMutation(func(c *config.Config) {
		c.API.CrawlRequestsPerMinute = 0
	}))
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	configPath := filepath.Join(testsupport.BaseDir(cfg), "tunecrawl.toml")
	writeTestConfig(t, configPath, cfg, config.BackendFile)

	store, _ := testsupport.NewMemoryStore(t, testsupport.Record("a", "Seed Song", "Seed"))
	registry := discovery.NewRegistry([]discovery.Source{
		testsupport.StubSource("Stub", testsupport.Candidate("b", "Stub Song")),
	}, nil)
	orch, err := aggregate.New(registry, store, logging.NewNop(), aggregate.Options{})
	if err != nil {
		t.Fatalf("aggregate.New: %v", err)
	}
	sched, err := scheduler.New(orch, logging.NewNop(), scheduler.Options{Name: "cli-test", Interval: time.Hour})
	if err != nil {
		t.Fatalf("scheduler.New: %v", err)
	}
	d, err := daemon.New(cfg, store, registry, sched, logging.NewNop())
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("daemon.Start: %v", err)
	}
	t.Cleanup(func() { _ = d.Close() })

	return &cliTestEnv{
		cfg:        cfg,
		store:      store,
		daemon:     d,
		apiURL:     "http://" + d.APIAddress(),
		configPath: configPath,
	}
}

// offlineConfig writes a config whose API address has nothing listening.
func offlineConfig(t *testing.T) (*config.Config, string) {
	t.Helper()
	cfg := testsupport.NewConfig(t, testsupport.WithSources(config.SourceCore))
	configPath := filepath.Join(testsupport.BaseDir(cfg), "tunecrawl.toml")
	writeTestConfig(t, configPath, cfg, config.BackendFile)
	return cfg, configPath
}

func runCLI(t *testing.T, args []string, apiURL, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if apiURL != "" {
		flags = append(flags, "--api", apiURL)
	}
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config, backend string) {
	t.Helper()
	content := fmt.Sprintf(`[paths]
data_dir = %q
log_dir = %q
api_bind = "127.0.0.1:1"

[storage]
backend = %q
catalog_file = %q

[discovery]
sources = ["core"]
web_delay_ms = 0
fresh_delay_ms = 0
`, cfg.Paths.DataDir, cfg.Paths.LogDir, backend, cfg.Storage.CatalogFile)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}
