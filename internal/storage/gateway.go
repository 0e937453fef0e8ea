package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/meltforce/vitalsync/internal/metrics"
)

// ErrNotFound is returned when no snapshot row exists for a user.
var ErrNotFound = errors.New("snapshot not found")

// Gateway is the persistence surface the sync coordinator writes through.
type Gateway interface {
	WriteSnapshotAndHistory(ctx context.Context, userID string, summary metrics.DailySummary, sourceName string, syncedAt time.Time) WriteResult
	ReadSnapshot(ctx context.Context, userID string) (*CurrentSnapshotRow, error)
	ReadHistory(ctx context.Context, userID string, daysBack, limit int) ([]HistoryLogRow, error)
}

var _ Gateway = (*DB)(nil)

// WriteResult reports the outcome of the dual write. The two writes are
// independent: a history failure never prevents the snapshot attempt.
type WriteResult struct {
	HistoryWritten  bool
	SnapshotWritten bool
	HistoryFailure  *WriteFailure
	SnapshotFailure *WriteFailure
}

// WriteSnapshotAndHistory appends a history row, then upserts the current
// snapshot keyed on user ID. Both writes are attempted regardless of either
// failing: a missing history row is replayable, but a stale snapshot actively
// misleads readers, so the upsert must run even after a history failure.
// Failures are classified and returned structurally, never panicked.
func (db *DB) WriteSnapshotAndHistory(ctx context.Context, userID string, summary metrics.DailySummary, sourceName string, syncedAt time.Time) WriteResult {
	row := snapshotFromSummary(userID, summary, sourceName, syncedAt)
	var result WriteResult

	if err := db.insertHistory(ctx, row); err != nil {
		result.HistoryFailure = classifyWriteError(err)
	} else {
		result.HistoryWritten = true
	}

	if err := db.upsertSnapshot(ctx, row); err != nil {
		result.SnapshotFailure = classifyWriteError(err)
	} else {
		result.SnapshotWritten = true
	}

	return result
}

func (db *DB) insertHistory(ctx context.Context, row CurrentSnapshotRow) error {
	_, err := db.Pool.Exec(ctx,
		`INSERT INTO health_history
		   (id, user_id, steps, distance, calories, heart_rate, weight, height, bmi,
		    sleep_hours, workout_minutes, workout_count, mindfulness_minutes,
		    source, recorded_at, data_date)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,now(),$15)`,
		uuid.New(), row.UserID, row.Steps, row.Distance, row.Calories, row.HeartRate,
		row.Weight, row.Height, row.BMI, row.SleepHours, row.WorkoutMinutes,
		row.WorkoutCount, row.MindfulnessMinutes, row.Source, row.DataDate)
	if err != nil {
		return fmt.Errorf("inserting history row: %w", err)
	}
	return nil
}

func (db *DB) upsertSnapshot(ctx context.Context, row CurrentSnapshotRow) error {
	// Every metric column is overwritten, nils included: a pass must not
	// resurrect stale values for metrics it fetched (or tried to fetch).
	_, err := db.Pool.Exec(ctx,
		`INSERT INTO health_snapshots
		   (user_id, steps, distance, calories, heart_rate, weight, height, bmi,
		    sleep_hours, workout_minutes, workout_count, mindfulness_minutes,
		    source, last_synced_at, data_date)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
		 ON CONFLICT (user_id) DO UPDATE SET
		   steps = EXCLUDED.steps,
		   distance = EXCLUDED.distance,
		   calories = EXCLUDED.calories,
		   heart_rate = EXCLUDED.heart_rate,
		   weight = EXCLUDED.weight,
		   height = EXCLUDED.height,
		   bmi = EXCLUDED.bmi,
		   sleep_hours = EXCLUDED.sleep_hours,
		   workout_minutes = EXCLUDED.workout_minutes,
		   workout_count = EXCLUDED.workout_count,
		   mindfulness_minutes = EXCLUDED.mindfulness_minutes,
		   source = EXCLUDED.source,
		   last_synced_at = EXCLUDED.last_synced_at,
		   data_date = EXCLUDED.data_date`,
		row.UserID, row.Steps, row.Distance, row.Calories, row.HeartRate,
		row.Weight, row.Height, row.BMI, row.SleepHours, row.WorkoutMinutes,
		row.WorkoutCount, row.MindfulnessMinutes, row.Source, row.LastSyncedAt, row.DataDate)
	if err != nil {
		return fmt.Errorf("upserting snapshot row: %w", err)
	}
	return nil
}

// ReadSnapshot returns the current snapshot row for a user, or ErrNotFound.
func (db *DB) ReadSnapshot(ctx context.Context, userID string) (*CurrentSnapshotRow, error) {
	var row CurrentSnapshotRow
	err := db.Pool.QueryRow(ctx,
		`SELECT user_id, steps, distance, calories, heart_rate, weight, height, bmi,
		        sleep_hours, workout_minutes, workout_count, mindfulness_minutes,
		        source, last_synced_at, data_date
		 FROM health_snapshots WHERE user_id = $1`,
		userID).Scan(
		&row.UserID, &row.Steps, &row.Distance, &row.Calories, &row.HeartRate,
		&row.Weight, &row.Height, &row.BMI, &row.SleepHours, &row.WorkoutMinutes,
		&row.WorkoutCount, &row.MindfulnessMinutes, &row.Source, &row.LastSyncedAt, &row.DataDate)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("reading snapshot: %w", err)
	}
	return &row, nil
}

// ReadHistory returns history rows for a user within the last daysBack days,
// newest first, capped at limit.
func (db *DB) ReadHistory(ctx context.Context, userID string, daysBack, limit int) ([]HistoryLogRow, error) {
	if daysBack <= 0 {
		daysBack = 30
	}
	if limit <= 0 {
		limit = 100
	}

	rows, err := db.Pool.Query(ctx,
		`SELECT id, user_id, steps, distance, calories, heart_rate, weight, height, bmi,
		        sleep_hours, workout_minutes, workout_count, mindfulness_minutes,
		        source, recorded_at, data_date
		 FROM health_history
		 WHERE user_id = $1 AND recorded_at >= now() - ($2 || ' days')::interval
		 ORDER BY recorded_at DESC
		 LIMIT $3`,
		userID, daysBack, limit)
	if err != nil {
		return nil, fmt.Errorf("querying history: %w", err)
	}
	defer rows.Close()

	var result []HistoryLogRow
	for rows.Next() {
		var r HistoryLogRow
		if err := rows.Scan(&r.ID, &r.UserID, &r.Steps, &r.Distance, &r.Calories,
			&r.HeartRate, &r.Weight, &r.Height, &r.BMI, &r.SleepHours,
			&r.WorkoutMinutes, &r.WorkoutCount, &r.MindfulnessMinutes,
			&r.Source, &r.RecordedAt, &r.DataDate); err != nil {
			return nil, fmt.Errorf("scanning history row: %w", err)
		}
		result = append(result, r)
	}
	return result, rows.Err()
}
