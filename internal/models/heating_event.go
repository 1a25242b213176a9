package models

import "time"

// HeatingEvent is a single entry in the heating event log.
type HeatingEvent struct {
	EventID     string    `json:"event_id"`
	OccurredAt  time.Time `json:"occurred_at"`
	Type        string    `json:"type"`        // MODE_CHANGE | OVERRIDE_SET | OVERRIDE_RESET | UPDATE_FAILED
	RoomID      string    `json:"room_id,omitempty"`
	Description string    `json:"description"` // human-readable
	Metadata    any       `json:"metadata,omitempty"`
}

// Event types recorded by the engine and the control surface.
const (
	EventModeChange    = "MODE_CHANGE"
	EventOverrideSet   = "OVERRIDE_SET"
	EventOverrideReset = "OVERRIDE_RESET"
	EventUpdateFailed  = "UPDATE_FAILED"
)
