package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"
	"github.com/thejerf/suture/v4"
	"github.com/thejerf/sutureslog"

	"tunecrawl/internal/api"
	"tunecrawl/internal/catalog"
	"tunecrawl/internal/config"
	"tunecrawl/internal/discovery"
	"tunecrawl/internal/logging"
	"tunecrawl/internal/notifications"
	"tunecrawl/internal/scheduler"
)

const shutdownTimeout = 10 * time.Second

// ErrAlreadyRunning is returned when another instance holds the lock.
var ErrAlreadyRunning = errors.New("another tunecrawl instance is already running")

// Daemon supervises the scheduler and HTTP API and enforces single-instance
// execution.
type Daemon struct {
	cfg       *config.Config
	logger    *slog.Logger
	store     *catalog.Store
	registry  *discovery.Registry
	scheduler *scheduler.Scheduler
	notifier  notifications.Service
	api       *apiServer

	lockPath string
	lock     *flock.Flock

	mu      sync.Mutex
	running atomic.Bool
	cancel  context.CancelFunc
	done    <-chan error
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool
	LockFilePath string
	Store        string
	APIAddress   string
	Scheduler    scheduler.Status
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, store *catalog.Store, registry *discovery.Registry, sched *scheduler.Scheduler, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || store == nil || registry == nil || sched == nil {
		return nil, errors.New("daemon requires config, store, registry, and scheduler")
	}
	logger = logging.NewComponentLogger(logger, "daemon")
	lockPath := cfg.LockPath()
	d := &Daemon{
		cfg:       cfg,
		logger:    logger,
		store:     store,
		registry:  registry,
		scheduler: sched,
		notifier:  notifications.NewService(cfg),
		lockPath:  lockPath,
		lock:      flock.New(lockPath),
	}
	d.api = newAPIServer(cfg, d, logger)
	return d, nil
}

// Start acquires the lock and launches the supervised services.
func (d *Daemon) Start(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return ErrAlreadyRunning
	}

	handler := &sutureslog.Handler{Logger: d.logger}
	sup := suture.New("tunecrawld", suture.Spec{
		EventHook: handler.MustHook(),
		Timeout:   shutdownTimeout,
	})
	sup.Add(d.scheduler)
	sup.Add(d.api)

	runCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel
	d.done = sup.ServeBackground(runCtx)

	if err := d.api.waitReady(ctx); err != nil {
		cancel()
		<-d.done
		_ = d.lock.Unlock()
		d.cancel = nil
		d.done = nil
		return fmt.Errorf("start api server: %w", err)
	}

	d.running.Store(true)
	d.logger.Info("tunecrawl daemon started",
		logging.String("lock", d.lockPath),
		logging.String("api", d.api.Addr()),
		logging.String("store", d.store.Describe()),
		logging.String(logging.FieldEventType, "daemon_started"),
	)
	return nil
}

// Stop stops the supervised services and releases the lock.
func (d *Daemon) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.running.Load() {
		return
	}

	d.cancel()
	if err := <-d.done; err != nil && !errors.Is(err, context.Canceled) {
		d.logger.Warn("supervisor stopped with error", logging.Error(err))
	}
	d.cancel = nil
	d.done = nil
	if err := d.lock.Unlock(); err != nil {
		logging.WarnWithContext(d.logger, "failed to release daemon lock", "lock_release_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "remove "+d.lockPath+" if no instance is running"),
		)
	}
	d.running.Store(false)
	d.logger.Info("tunecrawl daemon stopped", logging.String(logging.FieldEventType, "daemon_stopped"))
}

// Close stops the daemon, cancels any in-flight aggregation and releases
// the store.
func (d *Daemon) Close() error {
	d.Stop()
	d.scheduler.Close()
	return d.store.Close()
}

// Done is closed when the supervisor exits.
func (d *Daemon) Done() <-chan error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.done
}

// APIAddress returns the address the HTTP API is listening on.
func (d *Daemon) APIAddress() string {
	return d.api.Addr()
}

// Status returns the current daemon status.
func (d *Daemon) Status(context.Context) Status {
	return Status{
		Running:      d.running.Load(),
		LockFilePath: d.lockPath,
		Store:        d.store.Describe(),
		APIAddress:   d.api.Addr(),
		Scheduler:    d.scheduler.Status(),
	}
}

// Health reports store reachability, scheduler state and feed breakers.
func (d *Daemon) Health(ctx context.Context) api.HealthResponse {
	resp := api.HealthResponse{
		Status:    "ok",
		Store:     d.store.Describe(),
		Sources:   d.registry.Names(),
		Fallback:  d.registry.Fallback().Name(),
		Feeds:     d.registry.BreakerStates(),
		Scheduler: d.scheduler.Status(),
	}
	if err := d.store.Ping(ctx); err != nil {
		resp.Status = "degraded"
		resp.StoreError = err.Error()
	}
	for _, state := range resp.Feeds {
		if state == "open" {
			resp.Status = "degraded"
		}
	}
	return resp
}

// TestNotification triggers a test notification using the current configuration.
func (d *Daemon) TestNotification(ctx context.Context) (bool, string, error) {
	if strings.TrimSpace(d.cfg.Notifications.NtfyTopic) == "" {
		return false, "ntfy topic not configured", nil
	}
	if err := d.notifier.TestNotification(ctx); err != nil {
		return false, "failed to send notification", err
	}
	return true, "test notification sent", nil
}
