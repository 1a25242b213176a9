package service

import "time"

// defaultHeatingRate is the fallback °C/h for rooms with no usable rate
// (no sensor data yet, or currently cooling).
const defaultHeatingRate = 1.0

// PreheatPlanner estimates how long a room needs to reach a target and
// whether an upcoming comfort event is close enough to start heating now.
type PreheatPlanner struct {
	SafetyFactor  float64
	MinPreheatMin int
}

// EstimateMinutes computes the preheat time in minutes. An unknown current
// temperature yields the configured minimum; a room at or above target needs
// none. The minimum is a floor, never a ceiling.
func (p PreheatPlanner) EstimateMinutes(current *float64, target float64, rate *float64) int {
	if current == nil {
		return p.MinPreheatMin
	}

	delta := target - *current
	if delta <= 0 {
		return 0 // already at temperature
	}

	effective := defaultHeatingRate
	if rate != nil && *rate > 0 {
		effective = *rate
	}

	rawMinutes := (delta / effective) * 60
	withMargin := int(rawMinutes * p.SafetyFactor)
	if withMargin < p.MinPreheatMin {
		return p.MinPreheatMin
	}
	return withMargin
}

// ShouldAnticipate reports whether the next comfort event starts within the
// preheat window. Past or already-started events never trigger.
func (p PreheatPlanner) ShouldAnticipate(next *ComfortEvent, preheatMinutes int, now time.Time) bool {
	if next == nil || !next.Start.After(now) {
		return false
	}
	minutesUntil := next.Start.Sub(now).Minutes()
	return minutesUntil <= float64(preheatMinutes)
}
