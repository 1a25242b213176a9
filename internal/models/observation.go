package models

import "time"

// HeatingObservation is one accepted heating-rate sample for a room.
type HeatingObservation struct {
	Rate        float64   `json:"rate"` // °C/h, rounded to 3 decimals
	OutdoorTemp *float64  `json:"outdoor_temp,omitempty"`
	Hour        int       `json:"hour"` // 0-23
	RecordedAt  time.Time `json:"recorded_at"`
}

// LearningStats are descriptive statistics over a room's stored samples.
type LearningStats struct {
	Samples int     `json:"samples"`
	AvgRate float64 `json:"avg_rate,omitempty"`
	MinRate float64 `json:"min_rate,omitempty"`
	MaxRate float64 `json:"max_rate,omitempty"`
}
