package metrics

import "time"

// RawSample is a single time-stamped reading from the device provider.
// Samples are ephemeral: they live for one sync pass and are never persisted.
type RawSample struct {
	Kind       Kind      `json:"kind"`
	Value      float64   `json:"value"`
	Unit       string    `json:"unit"`
	StartTime  time.Time `json:"start_time"`
	EndTime    time.Time `json:"end_time"`
	SourceName string    `json:"source_name"`
}

// Duration returns the sample's time span. Samples that carry only a point
// timestamp (or inverted bounds) report zero.
func (s RawSample) Duration() time.Duration {
	if s.EndTime.IsZero() || s.StartTime.IsZero() || !s.EndTime.After(s.StartTime) {
		return 0
	}
	return s.EndTime.Sub(s.StartTime)
}

// DailySummary holds one aggregated value per metric kind for a single
// calendar day. A nil value means "unknown / not fetched", which is distinct
// from a measured zero.
type DailySummary struct {
	Day    time.Time         `json:"day"`
	Values map[Kind]*float64 `json:"values"`
}

// NewDailySummary creates an empty summary for the given day.
func NewDailySummary(day time.Time) DailySummary {
	return DailySummary{Day: day, Values: make(map[Kind]*float64)}
}

// Set records a value for the kind. A nil value marks the kind as unknown.
func (d DailySummary) Set(k Kind, v *float64) {
	d.Values[k] = v
}

// Get returns the value for the kind, or nil if unknown.
func (d DailySummary) Get(k Kind) *float64 {
	return d.Values[k]
}

// Float is a convenience for building nullable values.
func Float(v float64) *float64 { return &v }
