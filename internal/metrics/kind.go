package metrics

// Kind identifies a health metric tracked by the sync engine.
type Kind string

const (
	Steps              Kind = "steps"
	Distance           Kind = "distance"
	ActiveEnergy       Kind = "active_energy"
	HeartRate          Kind = "heart_rate"
	SleepDuration      Kind = "sleep_duration"
	BodyMass           Kind = "body_mass"
	Height             Kind = "height"
	BodyMassIndex      Kind = "body_mass_index"
	WorkoutMinutes     Kind = "workout_minutes"
	WorkoutCount       Kind = "workout_count"
	MindfulnessMinutes Kind = "mindfulness_minutes"
)

// Policy describes how raw device data for a kind is reduced to a single
// day-level value.
type Policy int

const (
	// PolicySum totals values over the window. Cumulative kinds must get
	// this total from the provider's deduplicating statistic query, never
	// from summing raw samples client-side.
	PolicySum Policy = iota
	// PolicyLatest takes the sample with the most recent end time.
	PolicyLatest
	// PolicyMaxDuration takes the longest single session in the window.
	PolicyMaxDuration
	// PolicyDurationSum totals per-session durations, in minutes.
	PolicyDurationSum
	// PolicyCount counts sessions in the window.
	PolicyCount
)

// AllKinds lists every metric kind the engine fetches each pass.
var AllKinds = []Kind{
	Steps, Distance, ActiveEnergy,
	HeartRate, SleepDuration, BodyMass, Height, BodyMassIndex,
	WorkoutMinutes, WorkoutCount, MindfulnessMinutes,
}

// CumulativeKinds are fetched via the provider's statistic endpoint. Multiple
// recording sources (phone and wearable) can report overlapping coverage for
// the same physical activity, so these totals must come from the provider's
// own deduplicating aggregation.
var CumulativeKinds = []Kind{Steps, Distance, ActiveEnergy}

// Policy returns the aggregation policy for the kind.
func (k Kind) Policy() Policy {
	switch k {
	case Steps, Distance, ActiveEnergy:
		return PolicySum
	case HeartRate, BodyMass, Height, BodyMassIndex:
		return PolicyLatest
	case SleepDuration:
		return PolicyMaxDuration
	case WorkoutMinutes, MindfulnessMinutes:
		return PolicyDurationSum
	case WorkoutCount:
		return PolicyCount
	}
	return PolicyLatest
}

// Cumulative reports whether the kind must be fetched as a provider-side
// statistical total rather than as raw samples.
func (k Kind) Cumulative() bool {
	return k.Policy() == PolicySum
}

// Valid reports whether k is one of the closed set of kinds.
func (k Kind) Valid() bool {
	for _, known := range AllKinds {
		if k == known {
			return true
		}
	}
	return false
}
