package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"tunecrawl/internal/aggregate"
	"tunecrawl/internal/logging"
	"tunecrawl/internal/metrics"
	"tunecrawl/internal/notifications"
)

const flightKey = "aggregate"

// ErrClosed is returned by Trigger after Close.
var ErrClosed = errors.New("scheduler closed")

// Runner performs one aggregation.
type Runner interface {
	Run(ctx context.Context) (aggregate.Result, error)
}

// Options configures a Scheduler.
type Options struct {
	// Name identifies the scheduler in logs and supervisor output.
	Name     string
	Interval time.Duration
	// RunOnStart runs an aggregation as soon as Serve starts.
	RunOnStart bool
	Notifier   notifications.Service
}

// RunSummary is the metadata of the most recent completed run.
type RunSummary struct {
	RunID            string    `json:"runId"`
	NewTracks        int       `json:"newTracks"`
	IntroducedTracks int       `json:"introducedTracks"`
	TotalTracks      int       `json:"totalTracks"`
	AggregationCount int       `json:"aggregationCount"`
	Fallback         bool      `json:"fallback"`
	FailedSources    []string  `json:"failedSources,omitempty"`
	Timestamp        time.Time `json:"timestamp"`
}

// Status is a point-in-time view of the scheduler.
type Status struct {
	Running         bool        `json:"running"`
	IntervalSeconds int         `json:"intervalSeconds"`
	Runs            int         `json:"runs"`
	Failures        int         `json:"failures"`
	SkippedTicks    int         `json:"skippedTicks"`
	JoinedTriggers  int         `json:"joinedTriggers"`
	LastStarted     *time.Time  `json:"lastStarted,omitempty"`
	LastFinished    *time.Time  `json:"lastFinished,omitempty"`
	LastError       string      `json:"lastError,omitempty"`
	LastRun         *RunSummary `json:"lastRun,omitempty"`
}

// Scheduler owns the Idle/Running state machine.
type Scheduler struct {
	runner   Runner
	logger   *slog.Logger
	notifier notifications.Service
	name     string
	interval time.Duration
	onStart  bool

	// base outlives individual callers so a caller that goes away does not
	// cancel a run others joined.
	base   context.Context
	cancel context.CancelFunc

	group   singleflight.Group
	running atomic.Bool

	lifeMu   sync.Mutex
	closed   bool
	inflight sync.WaitGroup

	mu     sync.Mutex
	status Status
}

// New builds a scheduler around runner.
func New(runner Runner, logger *slog.Logger, opts Options) (*Scheduler, error) {
	if runner == nil {
		return nil, errors.New("scheduler: runner is required")
	}
	if opts.Interval <= 0 {
		return nil, errors.New("scheduler: interval must be positive")
	}
	name := opts.Name
	if name == "" {
		name = "scheduler"
	}
	notifier := opts.Notifier
	if notifier == nil {
		notifier = notifications.Noop()
	}
	base, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		runner:   runner,
		logger:   logging.NewComponentLogger(logger, "scheduler").With(logging.String("scheduler", name)),
		notifier: notifier,
		name:     name,
		interval: opts.Interval,
		onStart:  opts.RunOnStart,
		base:     base,
		cancel:   cancel,
		status:   Status{IntervalSeconds: int(opts.Interval / time.Second)},
	}, nil
}

// String names the scheduler for the supervisor.
func (s *Scheduler) String() string { return s.name }

// Interval returns the time between automatic runs.
func (s *Scheduler) Interval() time.Duration { return s.interval }

// Running reports whether an aggregation is in flight.
func (s *Scheduler) Running() bool { return s.running.Load() }

// Trigger runs an aggregation now. When one is already in flight the caller
// joins it: no second run starts and the in-flight result is returned with
// shared set. Cancelling ctx abandons the wait but not the run.
func (s *Scheduler) Trigger(ctx context.Context) (aggregate.Result, bool, error) {
	joined := s.running.Load()
	ch := s.group.DoChan(flightKey, func() (any, error) {
		return s.run(s.base)
	})
	if joined {
		metrics.SchedulerJoinedTriggers.Inc()
		s.mu.Lock()
		s.status.JoinedTriggers++
		s.mu.Unlock()
		s.logger.Info("trigger joined in-flight aggregation",
			logging.String(logging.FieldEventType, "trigger_joined"),
		)
	}
	select {
	case <-ctx.Done():
		return aggregate.Result{}, joined, ctx.Err()
	case res := <-ch:
		result, _ := res.Val.(aggregate.Result)
		return result, joined || res.Shared, res.Err
	}
}

// Serve runs the interval loop until ctx is cancelled. Ticks that arrive
// while a run is in flight are skipped.
func (s *Scheduler) Serve(ctx context.Context) error {
	s.logger.Info("scheduler started",
		logging.Duration("interval", s.interval),
		logging.Bool("run_on_start", s.onStart),
		logging.String(logging.FieldEventType, "scheduler_started"),
	)

	var wg sync.WaitGroup
	defer wg.Wait()

	fire := func() {
		if s.running.Load() {
			metrics.SchedulerSkippedTicks.Inc()
			s.mu.Lock()
			s.status.SkippedTicks++
			s.mu.Unlock()
			s.logger.Info("tick skipped; aggregation already running",
				logging.String(logging.FieldEventType, "tick_skipped"),
			)
			return
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, _ = s.Trigger(ctx)
		}()
	}

	if s.onStart {
		fire()
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopped",
				logging.String(logging.FieldEventType, "scheduler_stopped"),
			)
			return ctx.Err()
		case <-ticker.C:
			fire()
		}
	}
}

// Close cancels any in-flight run and waits for it to return, so the store
// is no longer in use afterwards. The scheduler cannot be reused.
func (s *Scheduler) Close() {
	s.lifeMu.Lock()
	s.closed = true
	s.lifeMu.Unlock()
	s.cancel()
	s.inflight.Wait()
}

func (s *Scheduler) enter() bool {
	s.lifeMu.Lock()
	defer s.lifeMu.Unlock()
	if s.closed {
		return false
	}
	s.inflight.Add(1)
	return true
}

// Status returns a copy of the scheduler state.
func (s *Scheduler) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.status
	st.Running = s.running.Load()
	if st.LastRun != nil {
		run := *st.LastRun
		run.FailedSources = append([]string(nil), run.FailedSources...)
		st.LastRun = &run
	}
	return st
}

func (s *Scheduler) run(ctx context.Context) (aggregate.Result, error) {
	if !s.enter() {
		return aggregate.Result{}, ErrClosed
	}
	defer s.inflight.Done()

	s.running.Store(true)
	metrics.SchedulerRunning.Set(1)
	started := time.Now().UTC()
	s.mu.Lock()
	s.status.LastStarted = &started
	s.mu.Unlock()

	defer func() {
		s.running.Store(false)
		metrics.SchedulerRunning.Set(0)
	}()

	result, err := s.runner.Run(ctx)

	finished := time.Now().UTC()
	s.mu.Lock()
	s.status.Runs++
	s.status.LastFinished = &finished
	if err != nil {
		s.status.Failures++
		s.status.LastError = err.Error()
	} else {
		s.status.LastError = ""
		s.status.LastRun = summarize(result)
	}
	s.mu.Unlock()

	s.notify(ctx, result, err)
	return result, err
}

func (s *Scheduler) notify(ctx context.Context, result aggregate.Result, runErr error) {
	var err error
	if runErr != nil {
		err = s.notifier.NotifyError(ctx, runErr, "aggregation")
	} else {
		err = s.notifier.NotifyAggregationCompleted(ctx, notifications.RunSummary{
			TotalTracks:      result.TotalCount,
			NewTracks:        result.NewCount,
			Introduced:       result.Introduced,
			AggregationCount: result.AggregationCount,
			FailedSources:    len(result.SourceErrors),
			Fallback:         result.Fallback,
			Duration:         result.Duration,
		})
	}
	if err != nil {
		logging.WarnWithContext(s.logger, "notification failed", "notification_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check notifications.ntfy_topic"),
			logging.String(logging.FieldImpact, "run outcome was not pushed"),
		)
	}
}

func summarize(result aggregate.Result) *RunSummary {
	summary := &RunSummary{
		RunID:            result.RunID,
		NewTracks:        result.NewCount,
		IntroducedTracks: result.Introduced,
		TotalTracks:      result.TotalCount,
		AggregationCount: result.AggregationCount,
		Fallback:         result.Fallback,
		Timestamp:        result.Timestamp,
	}
	for _, se := range result.SourceErrors {
		summary.FailedSources = append(summary.FailedSources, se.Source)
	}
	return summary
}
