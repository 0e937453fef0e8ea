// Package engine owns the sync lifecycle: single-flight guard, per-metric
// error isolation, timestamp bookkeeping, persistence dispatch, and result
// reporting.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/meltforce/vitalsync/internal/aggregate"
	"github.com/meltforce/vitalsync/internal/metrics"
	"github.com/meltforce/vitalsync/internal/observability"
	"github.com/meltforce/vitalsync/internal/session"
	"github.com/meltforce/vitalsync/internal/source"
	"github.com/meltforce/vitalsync/internal/storage"
	"github.com/meltforce/vitalsync/internal/syncstate"
)

const (
	// DefaultDaysBack is the query window when the caller does not override it.
	DefaultDaysBack = 7
	// DefaultMaxPassDuration bounds a single pass so a hung provider call
	// cannot wedge the single-flight guard indefinitely.
	DefaultMaxPassDuration = 4 * time.Minute
	// sampleLimit caps raw sample fetches per metric per pass.
	sampleLimit = 10000
)

// ErrorKind labels the terminal failure mode of a pass.
type ErrorKind string

const (
	ErrKindNotAuthenticated ErrorKind = "not_authenticated"
	ErrKindNoPermissions    ErrorKind = "no_permissions"
	ErrKindAlreadyRunning   ErrorKind = "already_running"
	ErrKindHistoryWrite     ErrorKind = "history_write_failed"
	ErrKindSnapshotWrite    ErrorKind = "snapshot_write_failed"
	ErrKindUnknown          ErrorKind = "unknown"
)

// Options tunes a single sync pass.
type Options struct {
	DaysBack int `json:"days_back"`
}

// Result is the contract returned to every caller. Failures are encoded
// here structurally; Sync never panics past its boundary.
type Result struct {
	Succeeded            bool                    `json:"succeeded"`
	LastSyncAt           *time.Time              `json:"last_sync_at"`
	Error                string                  `json:"error,omitempty"`
	ErrorKind            ErrorKind               `json:"error_kind,omitempty"`
	MetricsSynced        []metrics.Kind          `json:"metrics_synced"`
	MetricErrors         map[metrics.Kind]string `json:"metric_errors,omitempty"`
	SessionMode          session.Mode            `json:"session_mode"`
	RemoteWriteAttempted bool                    `json:"remote_write_attempted"`
	HistoryRowWritten    bool                    `json:"history_row_written"`
	Summary              *metrics.DailySummary   `json:"summary,omitempty"`
}

// Rejected reports whether the pass was turned away by the single-flight
// guard. Callers treat this as informational, not an error.
func (r Result) Rejected() bool {
	return r.ErrorKind == ErrKindAlreadyRunning
}

// Status is the externally visible sync state.
type Status struct {
	IsSyncing  bool       `json:"is_syncing"`
	LastSyncAt *time.Time `json:"last_sync_at"`
}

// Coordinator drives sync passes. isSyncing and lastSyncAt are owned
// exclusively here; no other component mutates them.
type Coordinator struct {
	source   source.Adapter
	sessions session.Resolver
	gateway  storage.Gateway
	state    *syncstate.Store
	log      *slog.Logger

	syncing  atomic.Bool
	daysBack int
	maxPass  time.Duration
	now      func() time.Time
}

// New creates a coordinator. daysBack is the query window for passes that do
// not override it; non-positive falls back to DefaultDaysBack.
func New(src source.Adapter, sessions session.Resolver, gateway storage.Gateway, state *syncstate.Store, daysBack int, log *slog.Logger) *Coordinator {
	if daysBack <= 0 {
		daysBack = DefaultDaysBack
	}
	return &Coordinator{
		source:   src,
		sessions: sessions,
		gateway:  gateway,
		state:    state,
		log:      log,
		daysBack: daysBack,
		maxPass:  DefaultMaxPassDuration,
		now:      time.Now,
	}
}

// Sync runs one pass: resolve session, verify permissions, fetch and
// aggregate every metric kind, persist when the session is remote-capable,
// and record the sync time.
//
// At most one pass runs at a time process-wide. Concurrent callers are
// rejected with ErrKindAlreadyRunning and no side effects. The guard is
// released on every exit path, panics included.
func (c *Coordinator) Sync(ctx context.Context, opts Options) (result Result) {
	if !c.syncing.CompareAndSwap(false, true) {
		observability.RecordPass("rejected")
		last, err := c.state.LastSyncAt()
		if err != nil {
			c.log.Warn("failed to read last sync time", "error", err)
		}
		return Result{
			ErrorKind:  ErrKindAlreadyRunning,
			Error:      "a sync pass is already in flight",
			LastSyncAt: last,
		}
	}
	defer c.syncing.Store(false)

	defer func() {
		if r := recover(); r != nil {
			c.log.Error("sync pass panicked", "panic", r)
			observability.RecordPass("failed")
			result = Result{
				ErrorKind: ErrKindUnknown,
				Error:     fmt.Sprintf("sync pass panicked: %v", r),
			}
		}
	}()

	ctx, cancel := context.WithTimeout(ctx, c.maxPass)
	defer cancel()

	result = c.run(ctx, opts)

	outcome := "failed"
	if result.Succeeded {
		outcome = "succeeded"
	}
	observability.RecordPass(outcome)
	return result
}

func (c *Coordinator) run(ctx context.Context, opts Options) Result {
	result := Result{MetricsSynced: []metrics.Kind{}}

	sess, err := c.sessions.Resolve(ctx)
	if err != nil {
		result.SessionMode = sess.Mode
		result.ErrorKind = ErrKindUnknown
		result.Error = fmt.Sprintf("resolving session: %v", err)
		return result
	}
	result.SessionMode = sess.Mode
	if sess.Mode == session.Unauthenticated {
		result.ErrorKind = ErrKindNotAuthenticated
		result.Error = "no authenticated session"
		return result
	}

	perms, err := c.source.CheckPermissions(ctx)
	if err != nil {
		result.ErrorKind = ErrKindUnknown
		result.Error = fmt.Sprintf("checking provider permissions: %v", err)
		return result
	}
	readable := false
	for _, p := range perms {
		if p.CanRead {
			readable = true
			break
		}
	}
	if !readable {
		result.ErrorKind = ErrKindNoPermissions
		result.Error = "provider granted no read permissions"
		return result
	}

	daysBack := opts.DaysBack
	if daysBack <= 0 {
		daysBack = c.daysBack
	}
	now := c.now()
	window := source.Window{
		Start: now.Add(-time.Duration(daysBack) * 24 * time.Hour),
		End:   now,
	}

	summary, fetchErrs := c.fetchSummary(ctx, window, now)
	result.Summary = &summary
	result.MetricsSynced = syncedKinds(fetchErrs)
	if len(fetchErrs) > 0 {
		result.MetricErrors = make(map[metrics.Kind]string, len(fetchErrs))
		for kind, ferr := range fetchErrs {
			result.MetricErrors[kind] = ferr.Error()
		}
	}

	if sess.Mode == session.RemoteCapable {
		result.RemoteWriteAttempted = true
		wr := c.gateway.WriteSnapshotAndHistory(ctx, sess.IdentityKey, summary, sourceName, now)
		result.HistoryRowWritten = wr.HistoryWritten

		recordWrite("history", wr.HistoryFailure)
		recordWrite("snapshot", wr.SnapshotFailure)

		switch {
		case wr.SnapshotFailure != nil:
			// The most severe write outcome: the pass produced no durable
			// user-visible update.
			c.log.Error("snapshot upsert failed", "user", sess.IdentityKey, "error", wr.SnapshotFailure)
			result.ErrorKind = ErrKindSnapshotWrite
			result.Error = wr.SnapshotFailure.Error()
		case wr.HistoryFailure != nil:
			// Recoverable: the snapshot is fresh, only the trend log row is
			// missing. The pass still counts as succeeded.
			c.log.Warn("history insert failed", "user", sess.IdentityKey, "error", wr.HistoryFailure)
			result.ErrorKind = ErrKindHistoryWrite
			result.Error = wr.HistoryFailure.Error()
			result.Succeeded = true
		default:
			result.Succeeded = true
		}
	} else {
		// Local-only sessions still report aggregated values to the caller;
		// the persistence gateway is never touched.
		result.Succeeded = true
	}

	// Bookkeeping runs on every completion, with or without persistence.
	if err := c.state.SetLastSyncAt(now); err != nil {
		c.log.Warn("failed to persist last sync time", "error", err)
	}
	result.LastSyncAt = &now
	observability.RecordLastSync(now)

	c.log.Info("sync pass complete",
		"mode", sess.Mode,
		"metrics_synced", len(result.MetricsSynced),
		"metric_errors", len(fetchErrs),
		"remote_write", result.RemoteWriteAttempted,
		"history_written", result.HistoryRowWritten,
	)
	return result
}

// sourceName identifies this engine as the writer in persisted rows.
const sourceName = "vitalsync"

// rawKinds are fetched as sample lists and reduced per policy. Workout
// sessions are fetched once and fan out to both workout kinds.
var rawKinds = []metrics.Kind{
	metrics.HeartRate, metrics.SleepDuration, metrics.BodyMass,
	metrics.Height, metrics.BodyMassIndex, metrics.MindfulnessMinutes,
}

// fetchSummary fetches every metric kind for the pass, concurrently and
// independently: one kind's failure is recorded and the rest proceed.
// Cumulative kinds go through the provider's deduplicating statistic query;
// summing their raw samples here would double-count overlapping sources.
func (c *Coordinator) fetchSummary(ctx context.Context, window source.Window, now time.Time) (metrics.DailySummary, map[metrics.Kind]error) {
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	summary := metrics.NewDailySummary(day)
	fetchErrs := make(map[metrics.Kind]error)

	var mu sync.Mutex
	var wg sync.WaitGroup

	record := func(kind metrics.Kind, value *float64, err error) {
		mu.Lock()
		defer mu.Unlock()
		if err != nil {
			fetchErrs[kind] = err
			summary.Set(kind, nil)
			observability.RecordFetchFailure(string(kind))
			c.log.Warn("metric fetch failed", "kind", kind, "error", err)
			return
		}
		summary.Set(kind, value)
	}

	for _, kind := range metrics.CumulativeKinds {
		wg.Add(1)
		go func() {
			defer wg.Done()
			total, err := c.source.QueryStatistic(ctx, kind, window)
			record(kind, aggregate.Statistic(total), err)
		}()
	}

	for _, kind := range rawKinds {
		wg.Add(1)
		go func() {
			defer wg.Done()
			samples, err := c.source.QuerySamples(ctx, kind, window, sampleLimit)
			if err != nil {
				record(kind, nil, err)
				return
			}
			record(kind, aggregate.Reduce(kind, samples), nil)
		}()
	}

	// One workout-session fetch fills both workout kinds.
	wg.Add(1)
	go func() {
		defer wg.Done()
		samples, err := c.source.QuerySamples(ctx, metrics.WorkoutMinutes, window, sampleLimit)
		if err != nil {
			record(metrics.WorkoutMinutes, nil, err)
			record(metrics.WorkoutCount, nil, err)
			return
		}
		record(metrics.WorkoutMinutes, aggregate.Reduce(metrics.WorkoutMinutes, samples), nil)
		record(metrics.WorkoutCount, aggregate.Reduce(metrics.WorkoutCount, samples), nil)
	}()

	wg.Wait()
	return summary, fetchErrs
}

// syncedKinds returns the kinds whose fetch succeeded this pass, in the
// canonical kind order. Callers use this to tell fresh values from stale.
func syncedKinds(fetchErrs map[metrics.Kind]error) []metrics.Kind {
	synced := make([]metrics.Kind, 0, len(metrics.AllKinds))
	for _, kind := range metrics.AllKinds {
		if _, failed := fetchErrs[kind]; !failed {
			synced = append(synced, kind)
		}
	}
	return synced
}

func recordWrite(table string, failure *storage.WriteFailure) {
	if failure != nil {
		observability.RecordWrite(table, "failed")
		return
	}
	observability.RecordWrite(table, "ok")
}

// SyncStatus reports whether a pass is in flight and the last recorded sync
// time.
func (c *Coordinator) SyncStatus() Status {
	last, err := c.state.LastSyncAt()
	if err != nil {
		c.log.Warn("failed to read last sync time", "error", err)
	}
	return Status{IsSyncing: c.syncing.Load(), LastSyncAt: last}
}

// StoredSnapshot reads the current snapshot row for a user.
func (c *Coordinator) StoredSnapshot(ctx context.Context, userID string) (*storage.CurrentSnapshotRow, error) {
	return c.gateway.ReadSnapshot(ctx, userID)
}

// History reads history rows for a user, newest first.
func (c *Coordinator) History(ctx context.Context, userID string, daysBack, limit int) ([]storage.HistoryLogRow, error) {
	return c.gateway.ReadHistory(ctx, userID, daysBack, limit)
}
