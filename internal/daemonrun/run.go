package daemonrun

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/gofrs/flock"

	"tunecrawl/internal/aggregate"
	"tunecrawl/internal/catalog"
	"tunecrawl/internal/config"
	"tunecrawl/internal/daemon"
	"tunecrawl/internal/discovery"
	"tunecrawl/internal/logging"
	"tunecrawl/internal/notifications"
	"tunecrawl/internal/scheduler"
	"tunecrawl/internal/storage"
	"tunecrawl/internal/track"
)

// Mode selects how the process runs aggregations.
type Mode string

const (
	// ModeServe runs the HTTP API alongside the periodic scheduler.
	ModeServe Mode = "serve"
	// ModeJob runs aggregations immediately and on an interval, without the API.
	ModeJob Mode = "job"
)

// Options configures process runtime behavior.
type Options struct {
	Mode     Mode
	LogLevel string
}

type runtime struct {
	cfg       *config.Config
	logger    *slog.Logger
	store     *catalog.Store
	registry  *discovery.Registry
	scheduler *scheduler.Scheduler
}

// Run starts tunecrawl in the requested mode and blocks until the context
// is cancelled or SIGINT/SIGTERM arrives.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}
	mode := opts.Mode
	if mode == "" {
		mode = ModeServe
	}
	if mode != ModeServe && mode != ModeJob {
		return fmt.Errorf("unsupported mode %q", mode)
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	runCfg := *cfg
	if level := strings.TrimSpace(opts.LogLevel); level != "" {
		runCfg.Logging.Level = level
	}
	if err := runCfg.EnsureDirectories(); err != nil {
		return err
	}
	logger, err := logging.NewFromConfig(&runCfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	logging.CleanupOldLogs(logger, runCfg.Logging.RetentionDays, retentionTargets(&runCfg)...)
	logConfigSnapshot(logger, &runCfg, mode)

	rt, err := openRuntime(signalCtx, &runCfg, logger, mode)
	if err != nil {
		return err
	}

	if mode == ModeJob {
		return runJob(signalCtx, rt)
	}
	return runServe(signalCtx, rt)
}

func openRuntime(ctx context.Context, cfg *config.Config, logger *slog.Logger, mode Mode) (*runtime, error) {
	persister, err := storage.Open(ctx, cfg, logger)
	if err != nil {
		logger.Error("open catalog storage", logging.Error(err),
			logging.String(logging.FieldErrorHint, "check storage.backend and its location"))
		return nil, err
	}
	if pingErr := storage.Ping(ctx, persister); pingErr != nil {
		logging.WarnWithContext(logger, "catalog storage health check failed", "storage_unhealthy",
			logging.String("backend", persister.Describe()),
			logging.Error(pingErr),
			logging.String(logging.FieldErrorHint, "check permissions or connectivity for the storage backend"),
			logging.String(logging.FieldImpact, "aggregation results may fail to persist"),
		)
	}
	store, err := catalog.Open(ctx, persister, nil)
	if err != nil {
		_ = persister.Close()
		return nil, fmt.Errorf("load catalog: %w", err)
	}

	if mode == ModeServe && cfg.Storage.SeedOnStart {
		seeded, seedErr := store.Seed(ctx, track.Factory{}.Materialize(discovery.TagCore, discovery.CoreLibrary()))
		if seedErr != nil {
			logging.WarnWithContext(logger, "catalog seed failed", "catalog_seed_failed",
				logging.Error(seedErr),
				logging.String(logging.FieldImpact, "catalog starts empty until the first aggregation"),
			)
		} else if seeded {
			logger.Info("catalog seeded with core library",
				logging.Int("total_tracks", store.Snapshot().Len()),
				logging.String(logging.FieldEventType, "catalog_seeded"),
			)
		}
	}

	registry, err := discovery.Build(cfg, logger)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("build discovery sources: %w", err)
	}
	orch, err := aggregate.New(registry, store, logger, aggregate.Options{Concurrency: cfg.Discovery.Concurrency})
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	interval := cfg.ServeInterval()
	runOnStart := cfg.Scheduler.RunOnStart
	if mode == ModeJob {
		interval = cfg.JobInterval()
		runOnStart = true
	}
	sched, err := scheduler.New(orch, logger, scheduler.Options{
		Name:       "aggregation-" + string(mode),
		Interval:   interval,
		RunOnStart: runOnStart,
		Notifier:   notifications.NewService(cfg),
	})
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	return &runtime{cfg: cfg, logger: logger, store: store, registry: registry, scheduler: sched}, nil
}

func runServe(ctx context.Context, rt *runtime) error {
	d, err := daemon.New(rt.cfg, rt.store, rt.registry, rt.scheduler, rt.logger)
	if err != nil {
		_ = rt.store.Close()
		return fmt.Errorf("create daemon: %w", err)
	}
	defer d.Close()

	if err := d.Start(ctx); err != nil {
		return err
	}

	pidPath := rt.cfg.PIDPath()
	if err := writePIDFile(pidPath); err != nil {
		logging.WarnWithContext(rt.logger, "unable to write pid file", "pid_file_failed",
			logging.String("path", pidPath),
			logging.Error(err),
			logging.String(logging.FieldImpact, "tunecrawl stop cannot signal this process"),
		)
	}
	defer os.Remove(pidPath)

	select {
	case <-ctx.Done():
	case err := <-d.Done():
		if err != nil && !errors.Is(err, context.Canceled) {
			rt.logger.Error("supervisor exited unexpectedly", logging.Error(err))
			return err
		}
	}
	rt.logger.Info("tunecrawl daemon shutting down", logging.String(logging.FieldEventType, "daemon_shutdown"))
	return nil
}

func runJob(ctx context.Context, rt *runtime) error {
	lock := flock.New(rt.cfg.LockPath())
	ok, err := lock.TryLock()
	if err != nil || !ok {
		rt.scheduler.Close()
		_ = rt.store.Close()
		if err != nil {
			return fmt.Errorf("acquire lock: %w", err)
		}
		return daemon.ErrAlreadyRunning
	}
	// Release order: in-flight run, then store, then lock.
	defer func() { _ = lock.Unlock() }()
	defer rt.store.Close()
	defer rt.scheduler.Close()

	rt.logger.Info("tunecrawl job started",
		logging.Duration("interval", rt.scheduler.Interval()),
		logging.String("store", rt.store.Describe()),
		logging.String(logging.FieldEventType, "job_started"),
	)
	err = rt.scheduler.Serve(ctx)
	rt.logger.Info("tunecrawl job shutting down", logging.String(logging.FieldEventType, "job_shutdown"))
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// retentionTargets covers rotated logs and the backups the file backend
// leaves next to an unreadable catalog.
func retentionTargets(cfg *config.Config) []logging.RetentionTarget {
	targets := []logging.RetentionTarget{{
		Kind:    "log",
		Dir:     cfg.Paths.LogDir,
		Pattern: "tunecrawl*.log*",
		Exclude: []string{cfg.LogFilePath()},
	}}
	if file := strings.TrimSpace(cfg.Storage.CatalogFile); file != "" {
		targets = append(targets, logging.RetentionTarget{
			Kind:    "catalog_backup",
			Dir:     filepath.Dir(file),
			Pattern: filepath.Base(file) + ".corrupt-*",
		})
	}
	return targets
}

func writePIDFile(path string) error {
	if path == "" {
		return nil
	}
	value := strconv.Itoa(os.Getpid()) + "\n"
	return os.WriteFile(path, []byte(value), 0o644)
}

func logConfigSnapshot(logger *slog.Logger, cfg *config.Config, mode Mode) {
	sources := cfg.Discovery.Sources
	logger.Info("configuration snapshot",
		logging.String(logging.FieldEventType, "config_snapshot"),
		logging.String("mode", string(mode)),
		logging.String("storage_backend", cfg.Storage.Backend),
		logging.String("sources", strings.Join(sources, ",")),
		logging.String("fallback", cfg.Discovery.Fallback),
		logging.Int("concurrency", cfg.Discovery.Concurrency),
		logging.Int("feeds", len(cfg.Discovery.Feeds)),
		logging.Duration("serve_interval", cfg.ServeInterval()),
		logging.Duration("job_interval", cfg.JobInterval()),
		logging.Bool("ntfy_configured", strings.TrimSpace(cfg.Notifications.NtfyTopic) != ""),
		logging.String("api_bind", cfg.Paths.APIBind),
	)
}
