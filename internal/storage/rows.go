package storage

import (
	"time"

	"github.com/google/uuid"
	"github.com/meltforce/vitalsync/internal/metrics"
)

// CurrentSnapshotRow is the single mutable latest-known-state row per user,
// overwritten on each successful sync. Nil metric fields mean "unknown", not
// zero.
type CurrentSnapshotRow struct {
	UserID             string    `json:"user_id"`
	Steps              *float64  `json:"steps"`
	Distance           *float64  `json:"distance"`
	Calories           *float64  `json:"calories"`
	HeartRate          *float64  `json:"heart_rate"`
	Weight             *float64  `json:"weight"`
	Height             *float64  `json:"height"`
	BMI                *float64  `json:"bmi"`
	SleepHours         *float64  `json:"sleep_hours"`
	WorkoutMinutes     *float64  `json:"workout_minutes"`
	WorkoutCount       *float64  `json:"workout_count"`
	MindfulnessMinutes *float64  `json:"mindfulness_minutes"`
	Source             string    `json:"source"`
	LastSyncedAt       time.Time `json:"last_synced_at"`
	DataDate           time.Time `json:"data_date"`
}

// HistoryLogRow is one immutable row per successfully-persisted sync pass.
// RecordedAt is assigned by the store at insertion.
type HistoryLogRow struct {
	ID                 uuid.UUID `json:"id"`
	UserID             string    `json:"user_id"`
	Steps              *float64  `json:"steps"`
	Distance           *float64  `json:"distance"`
	Calories           *float64  `json:"calories"`
	HeartRate          *float64  `json:"heart_rate"`
	Weight             *float64  `json:"weight"`
	Height             *float64  `json:"height"`
	BMI                *float64  `json:"bmi"`
	SleepHours         *float64  `json:"sleep_hours"`
	WorkoutMinutes     *float64  `json:"workout_minutes"`
	WorkoutCount       *float64  `json:"workout_count"`
	MindfulnessMinutes *float64  `json:"mindfulness_minutes"`
	Source             string    `json:"source"`
	RecordedAt         time.Time `json:"recorded_at"`
	DataDate           time.Time `json:"data_date"`
}

// snapshotFromSummary maps a day-level summary onto the snapshot row shape.
// Every metric field is written from the summary; kinds the pass did not
// fetch stay nil and overwrite any stale stored value.
func snapshotFromSummary(userID string, s metrics.DailySummary, sourceName string, syncedAt time.Time) CurrentSnapshotRow {
	return CurrentSnapshotRow{
		UserID:             userID,
		Steps:              s.Get(metrics.Steps),
		Distance:           s.Get(metrics.Distance),
		Calories:           s.Get(metrics.ActiveEnergy),
		HeartRate:          s.Get(metrics.HeartRate),
		Weight:             s.Get(metrics.BodyMass),
		Height:             s.Get(metrics.Height),
		BMI:                s.Get(metrics.BodyMassIndex),
		SleepHours:         s.Get(metrics.SleepDuration),
		WorkoutMinutes:     s.Get(metrics.WorkoutMinutes),
		WorkoutCount:       s.Get(metrics.WorkoutCount),
		MindfulnessMinutes: s.Get(metrics.MindfulnessMinutes),
		Source:             sourceName,
		LastSyncedAt:       syncedAt,
		DataDate:           s.Day,
	}
}
