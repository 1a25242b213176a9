package service

import (
	"sync"
	"time"
)

type tempSample struct {
	at   time.Time
	temp float64
}

// TempTracker keeps a sliding window of (timestamp, temperature) samples per
// room and estimates the current heating/cooling rate from the oldest and
// newest retained sample. A two-point secant slope, not a fitted regression.
type TempTracker struct {
	window time.Duration

	mu      sync.Mutex
	history map[string][]tempSample
}

func NewTempTracker(windowMinutes int) *TempTracker {
	return &TempTracker{
		window:  time.Duration(windowMinutes) * time.Minute,
		history: make(map[string][]tempSample),
	}
}

// Observe records the current temperature and returns the rate of change in
// °C/h, or nil when there is not enough data. A nil temperature leaves the
// window untouched.
func (t *TempTracker) Observe(roomID string, temp *float64, now time.Time) *float64 {
	if temp == nil {
		return nil
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	samples := append(t.history[roomID], tempSample{at: now, temp: *temp})

	// Drop entries older than the derivative window.
	cutoff := now.Add(-t.window)
	kept := samples[:0]
	for _, s := range samples {
		if !s.at.Before(cutoff) {
			kept = append(kept, s)
		}
	}
	t.history[roomID] = kept

	if len(kept) < 2 {
		return nil
	}

	oldest := kept[0]
	newest := kept[len(kept)-1]
	hours := newest.at.Sub(oldest.at).Hours()
	if hours <= 0 {
		// Duplicate or out-of-order timestamps yield no usable slope.
		return nil
	}

	rate := (newest.temp - oldest.temp) / hours
	return &rate
}
