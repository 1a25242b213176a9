package models

import "time"

// RoomDecision is the per-room outcome of one engine tick. Recomputed every
// tick, never persisted.
type RoomDecision struct {
	RoomID          string   `json:"room_id"`
	Mode            string   `json:"mode"`
	Source          string   `json:"source"`
	TargetTemp      float64  `json:"target_temp_c"`
	CurrentTemp     *float64 `json:"current_temp_c,omitempty"`
	HeatingRate     *float64 `json:"heating_rate,omitempty"`      // °C/h, measured preferred
	LearnedRate     *float64 `json:"learned_rate,omitempty"`      // °C/h, from the learner
	PreheatMinutes  int      `json:"preheat_minutes"`
	PreheatActive   bool     `json:"preheat_active"`
	NextComfort     string   `json:"next_comfort_event,omitempty"` // ISO start of next comfort event
	LearningSamples int      `json:"learning_samples"`
	LearningAvgRate float64  `json:"learning_avg_rate,omitempty"`
}

// HouseSnapshot is the full output of one tick.
type HouseSnapshot struct {
	Occupied    bool                    `json:"occupied"`
	OutdoorTemp *float64                `json:"outdoor_temp_c,omitempty"`
	Rooms       map[string]RoomDecision `json:"rooms"`
	UpdatedAt   time.Time               `json:"updated_at"`
}

// CalendarEvent is a raw event from the host runtime's calendar.
// Start and End are RFC 3339 strings; empty means missing.
type CalendarEvent struct {
	Summary string `json:"summary"`
	Start   string `json:"start"`
	End     string `json:"end"`
}
