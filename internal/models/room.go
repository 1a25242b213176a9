package models

import "time"

// Heating modes for a room.
const (
	ModeComfort    = "comfort"
	ModeEco        = "eco"
	ModeFrostGuard = "frost_guard"
	ModeOff        = "off"
)

// Modes lists every accepted heating mode.
var Modes = []string{ModeComfort, ModeEco, ModeFrostGuard, ModeOff}

// ValidMode reports whether m is one of the accepted heating modes.
func ValidMode(m string) bool {
	for _, known := range Modes {
		if m == known {
			return true
		}
	}
	return false
}

// Sources explain why a mode was chosen. Observability metadata only.
const (
	SourceOverride     = "override"
	SourceCalendar     = "calendar"
	SourcePresence     = "presence"
	SourceDefault      = "default"
	SourceAnticipation = "anticipation"
)

// Room is the static per-room configuration, immutable during a run.
type Room struct {
	ID           string             `json:"id"`
	Name         string             `json:"name"`
	Type         string             `json:"type"` // seeds default temperatures
	Devices      []string           `json:"devices"`
	Sensor       string             `json:"sensor,omitempty"`
	Temperatures map[string]float64 `json:"temperatures"` // mode -> °C
}

// TargetFor returns the configured target for a mode, falling back to 19°C
// when the mode has no entry.
func (r Room) TargetFor(mode string) float64 {
	if t, ok := r.Temperatures[mode]; ok {
		return t
	}
	return 19
}

// ModeOverride is a manual per-room mode pin. A nil Expiry means indefinite.
type ModeOverride struct {
	Mode   string     `json:"mode"`
	Expiry *time.Time `json:"expiry,omitempty"`
}

// Expired reports whether the override lapsed before now.
func (o ModeOverride) Expired(now time.Time) bool {
	return o.Expiry != nil && !now.Before(*o.Expiry)
}
