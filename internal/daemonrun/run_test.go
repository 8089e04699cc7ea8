package daemonrun_test

import (
	"context"
	"errors"
	"net"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/gofrs/flock"

	"tunecrawl/internal/client"
	"tunecrawl/internal/config"
	"tunecrawl/internal/daemon"
	"tunecrawl/internal/daemonctl"
	"tunecrawl/internal/daemonrun"
	"tunecrawl/internal/testsupport"
)

func freeBind(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := ln.Addr().String()
	_ = ln.Close()
	return addr
}

func runAsync(ctx context.Context, cfg *config.Config, opts daemonrun.Options) <-chan error {
	done := make(chan error, 1)
	go func() { done <- daemonrun.Run(ctx, cfg, opts) }()
	return done
}

func waitResult(t *testing.T, done <-chan error) error {
	t.Helper()
	select {
	case err := <-done:
		return err
	case <-time.After(10 * time.Second):
		t.Fatal("run did not return after cancellation")
		return nil
	}
}

func TestJobModeAggregatesIntoFile(t *testing.T) {
	cfg := testsupport.NewConfig(t,
		testsupport.WithBackend(config.BackendFile),
		testsupport.WithSources(config.SourceCore),
	)
	ctx, cancel := context.WithCancel(context.Background())
	done := runAsync(ctx, cfg, daemonrun.Options{Mode: daemonrun.ModeJob})

	deadline := time.Now().Add(5 * time.Second)
	var payload struct {
		Tracks     []json.RawMessage `json:"tracks"`
		CrawlCount int               `json:"crawlCount"`
	}
	for time.Now().Before(deadline) {
		if data, err := os.ReadFile(cfg.Storage.CatalogFile); err == nil && json.Unmarshal(data, &payload) == nil && payload.CrawlCount > 0 {
			break
		}
		time.Sleep(50 * time.Millisecond)
	}
	cancel()
	if err := waitResult(t, done); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if payload.CrawlCount != 1 || len(payload.Tracks) != 10 {
		t.Fatalf("expected one aggregation of 10 tracks, got count=%d tracks=%d", payload.CrawlCount, len(payload.Tracks))
	}
}

func TestJobModeRefusesSecondInstance(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	lock := flock.New(cfg.LockPath())
	if ok, err := lock.TryLock(); err != nil || !ok {
		t.Fatalf("TryLock: %v %v", ok, err)
	}
	defer lock.Unlock()

	err := daemonrun.Run(context.Background(), cfg, daemonrun.Options{Mode: daemonrun.ModeJob})
	if !errors.Is(err, daemon.ErrAlreadyRunning) {
		t.Fatalf("expected ErrAlreadyRunning, got %v", err)
	}
}

func TestServeModeSeedsAndServesAPI(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithMutation(func(c *config.Config) {
		c.Paths.APIBind = freeBind(t)
		c.Storage.SeedOnStart = true
		c.Scheduler.RunOnStart = false
	}))
	ctx, cancel := context.WithCancel(context.Background())
	done := runAsync(ctx, cfg, daemonrun.Options{Mode: daemonrun.ModeServe, LogLevel: "warn"})

	c := client.New(cfg.APIBaseURL(), nil)
	if err := daemonctl.WaitForAPI(ctx, c, 5*time.Second); err != nil {
		cancel()
		t.Fatalf("WaitForAPI: %v", err)
	}

	records, err := c.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(records) != 10 {
		t.Fatalf("expected seeded core library, got %d records", len(records))
	}

	pid, err := daemonctl.ReadPID(cfg.PIDPath())
	if err != nil || pid != os.Getpid() {
		t.Fatalf("pid file = %d, %v", pid, err)
	}

	cancel()
	if err := waitResult(t, done); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if _, err := os.Stat(cfg.PIDPath()); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected pid file removed, got %v", err)
	}
}

func TestRunRejectsUnknownMode(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	err := daemonrun.Run(context.Background(), cfg, daemonrun.Options{Mode: "bogus"})
	if err == nil || !strings.Contains(err.Error(), "bogus") {
		t.Fatalf("expected unsupported mode error, got %v", err)
	}
}
