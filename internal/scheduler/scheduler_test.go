package scheduler

import (
	"context"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/meltforce/vitalsync/internal/engine"
)

type countingSyncer struct {
	calls atomic.Int64
}

func (c *countingSyncer) Sync(context.Context, engine.Options) engine.Result {
	c.calls.Add(1)
	return engine.Result{Succeeded: true}
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestIntervalFires(t *testing.T) {
	syncer := &countingSyncer{}
	s := New(syncer, 10*time.Millisecond, testLogger())

	s.Start(context.Background())
	defer s.Stop()

	deadline := time.After(2 * time.Second)
	for syncer.calls.Load() < 2 {
		select {
		case <-deadline:
			t.Fatalf("only %d passes fired, want at least 2", syncer.calls.Load())
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestForegroundTriggersImmediately(t *testing.T) {
	syncer := &countingSyncer{}
	s := New(syncer, time.Hour, testLogger())

	s.Start(context.Background())
	defer s.Stop()

	s.Foreground()

	deadline := time.After(2 * time.Second)
	for syncer.calls.Load() == 0 {
		select {
		case <-deadline:
			t.Fatal("foreground trigger never fired a pass")
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestStartIsIdempotent(t *testing.T) {
	syncer := &countingSyncer{}
	s := New(syncer, time.Hour, testLogger())

	s.Start(context.Background())
	s.Start(context.Background())
	s.Stop()

	// A second Stop must not panic or hang.
	s.Stop()
}

func TestStopWithoutStart(t *testing.T) {
	s := New(&countingSyncer{}, time.Hour, testLogger())
	s.Stop()
}

func TestDefaultInterval(t *testing.T) {
	s := New(&countingSyncer{}, 0, testLogger())
	if s.interval != DefaultInterval {
		t.Errorf("interval = %v, want %v", s.interval, DefaultInterval)
	}
}
