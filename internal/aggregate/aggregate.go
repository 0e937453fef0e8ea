// Package aggregate reduces raw device samples to day-level values per the
// metric kind's aggregation policy. It performs no I/O.
package aggregate

import (
	"github.com/meltforce/vitalsync/internal/metrics"
)

// minutesPerHour converts sample durations for minute-denominated kinds.
const minutesPerHour = 60.0

// Reduce collapses a list of raw samples for one kind into a single day-level
// value per the kind's policy.
//
// Point-reading policies (latest, max-duration) return nil for an empty list:
// no reading means the value is unknown. Session-counting policies (duration
// sum, count) return 0 for an empty list: a successful fetch that found no
// sessions is a measured zero, not an unknown.
func Reduce(kind metrics.Kind, samples []metrics.RawSample) *float64 {
	switch kind.Policy() {
	case metrics.PolicyLatest:
		return latest(samples)
	case metrics.PolicyMaxDuration:
		return maxDurationHours(samples)
	case metrics.PolicyDurationSum:
		return durationSumMinutes(samples)
	case metrics.PolicyCount:
		return metrics.Float(float64(len(samples)))
	case metrics.PolicySum:
		// Cumulative kinds are aggregated provider-side; summing raw samples
		// here would double-count overlapping sources. Statistic results
		// bypass Reduce entirely (see Statistic).
		return nil
	}
	return nil
}

// Statistic wraps a provider-side statistical total as a summary value.
// A nil input (provider had no data in the window) stays nil.
func Statistic(total *float64) *float64 {
	return total
}

// latest returns the value of the sample with the most recent end time.
func latest(samples []metrics.RawSample) *float64 {
	if len(samples) == 0 {
		return nil
	}
	best := samples[0]
	for _, s := range samples[1:] {
		if s.EndTime.After(best.EndTime) {
			best = s
		}
	}
	return metrics.Float(best.Value)
}

// maxDurationHours returns the longest single session, in hours. This is the
// maximum over sessions, not a sum: a night of two 3-hour segments reports
// 3 hours. Samples without both time bounds fall back to their reported value,
// interpreted as hours.
func maxDurationHours(samples []metrics.RawSample) *float64 {
	if len(samples) == 0 {
		return nil
	}
	var maxHr float64
	for _, s := range samples {
		hr := s.Duration().Hours()
		if hr == 0 {
			hr = s.Value
		}
		if hr > maxHr {
			maxHr = hr
		}
	}
	return metrics.Float(maxHr)
}

// durationSumMinutes totals per-session durations, in minutes. Samples without
// both time bounds fall back to their reported value, interpreted as minutes.
func durationSumMinutes(samples []metrics.RawSample) *float64 {
	var total float64
	for _, s := range samples {
		min := s.Duration().Hours() * minutesPerHour
		if min == 0 {
			min = s.Value
		}
		total += min
	}
	return metrics.Float(total)
}
