package service

import (
	"strings"
	"time"

	"smart_heating/internal/models"
)

// Calendar keywords. Events are matched on their normalized summary.
const (
	eventAbsence = "absence"
	eventComfort = "confort"
)

// CalendarSignals is the structured signal set derived from the events
// active right now. Absence and comfort flags can be set simultaneously by
// concurrent events; priority between them is the resolver's business.
type CalendarSignals struct {
	Absence       bool
	ComfortGlobal bool
	ComfortRooms  map[string]struct{} // lowercased room-name tokens
}

// ComfortEvent is the next scheduled comfort event relevant to a room.
type ComfortEvent struct {
	Summary string
	Start   time.Time
}

// ParseSignals interprets the raw event list against `now`. Only events
// whose [start, end] interval contains now contribute.
func ParseSignals(events []models.CalendarEvent, now time.Time) CalendarSignals {
	signals := CalendarSignals{ComfortRooms: make(map[string]struct{})}

	for _, ev := range events {
		start, okStart := parseEventTime(ev.Start)
		end, okEnd := parseEventTime(ev.End)
		if !okStart || !okEnd {
			continue
		}
		if now.Before(start) || now.After(end) {
			continue
		}

		summary := normalizeSummary(ev.Summary)
		switch {
		case summary == eventAbsence:
			signals.Absence = true
		case summary == eventComfort:
			signals.ComfortGlobal = true
		case strings.HasPrefix(summary, eventComfort+" "):
			roomToken := strings.TrimSpace(summary[len(eventComfort)+1:])
			if roomToken != "" {
				signals.ComfortRooms[roomToken] = struct{}{}
			}
		}
	}

	return signals
}

// NextComfortEvent returns the earliest not-yet-started comfort event that
// targets the room (by display name or id) or the whole house, or nil.
func NextComfortEvent(room models.Room, events []models.CalendarEvent, now time.Time) *ComfortEvent {
	name := strings.ToLower(room.Name)
	id := strings.ToLower(room.ID)

	var next *ComfortEvent
	for _, ev := range events {
		summary := normalizeSummary(ev.Summary)
		relevant := summary == eventComfort ||
			summary == eventComfort+" "+name ||
			summary == eventComfort+" "+id
		if !relevant {
			continue
		}

		start, ok := parseEventTime(ev.Start)
		if !ok || !start.After(now) {
			continue
		}

		if next == nil || start.Before(next.Start) {
			next = &ComfortEvent{Summary: ev.Summary, Start: start}
		}
	}
	return next
}

// normalizeSummary lowercases, trims, and folds the " - " separator so
// "Confort - Salon" and "confort salon" compare equal.
func normalizeSummary(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.ReplaceAll(s, " - ", " ")
}

var eventTimeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// parseEventTime accepts the timestamp shapes the host calendar emits.
// Malformed or empty values are treated as absent, never as errors.
func parseEventTime(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range eventTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
