// Package scheduler triggers periodic sync passes and forwards foreground
// wake-ups. It never runs a pass itself; all execution and concurrency
// control live in the engine.
package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/meltforce/vitalsync/internal/engine"
)

// DefaultInterval is the gap between automatic sync passes.
const DefaultInterval = 5 * time.Minute

// Syncer is the slice of the engine the scheduler needs.
type Syncer interface {
	Sync(ctx context.Context, opts engine.Options) engine.Result
}

// Scheduler fires Sync on a fixed interval and on foreground events.
type Scheduler struct {
	syncer   Syncer
	log      *slog.Logger
	interval time.Duration

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	wake    chan struct{}
	started bool
}

// New creates a stopped scheduler. A non-positive interval falls back to
// DefaultInterval.
func New(syncer Syncer, interval time.Duration, log *slog.Logger) *Scheduler {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Scheduler{
		syncer:   syncer,
		log:      log,
		interval: interval,
		wake:     make(chan struct{}, 1),
	}
}

// Start launches the tick loop. Calling Start on a running scheduler is a
// no-op.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return
	}
	s.started = true

	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})
	go s.loop(ctx)
	s.log.Info("scheduler started", "interval", s.interval.String())
}

// Stop halts the tick loop and waits for it to exit. Safe to call when the
// scheduler never started, and safe to call twice.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	s.started = false
	cancel, done := s.cancel, s.done
	s.mu.Unlock()

	cancel()
	<-done
	s.log.Info("scheduler stopped")
}

// Foreground requests an immediate pass, coalescing with any pending
// request. Non-blocking.
func (s *Scheduler) Foreground() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *Scheduler) loop(ctx context.Context) {
	defer close(s.done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.fire(ctx, "interval")
		case <-s.wake:
			s.fire(ctx, "foreground")
		}
	}
}

func (s *Scheduler) fire(ctx context.Context, trigger string) {
	res := s.syncer.Sync(ctx, engine.Options{})
	switch {
	case res.Rejected():
		// A pass was already in flight. Expected under overlapping triggers.
		s.log.Info("scheduled sync skipped", "trigger", trigger)
	case res.Succeeded:
		s.log.Info("scheduled sync complete", "trigger", trigger, "metrics", len(res.MetricsSynced))
	default:
		s.log.Warn("scheduled sync failed", "trigger", trigger, "error_kind", res.ErrorKind, "error", res.Error)
	}
}
