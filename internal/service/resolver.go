package service

import (
	"strings"
	"sync"
	"time"

	"smart_heating/internal/models"
)

// OverrideStore holds manual per-room mode pins. It is mutated from outside
// the tick loop (user commands) and read inside it, so access is guarded.
type OverrideStore struct {
	mu sync.RWMutex
	m  map[string]models.ModeOverride
}

func NewOverrideStore() *OverrideStore {
	return &OverrideStore{m: make(map[string]models.ModeOverride)}
}

// Set pins a mode for a room. A nil expiry means indefinite.
func (s *OverrideStore) Set(roomID, mode string, expiry *time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[roomID] = models.ModeOverride{Mode: mode, Expiry: expiry}
}

// Reset clears one room's override.
func (s *OverrideStore) Reset(roomID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.m, roomID)
}

// ResetAll clears every override.
func (s *OverrideStore) ResetAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m = make(map[string]models.ModeOverride)
}

// Active returns the room's override if one exists and has not lapsed.
// Expired overrides are purged on read.
func (s *OverrideStore) Active(roomID string, now time.Time) (models.ModeOverride, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ov, ok := s.m[roomID]
	if !ok {
		return models.ModeOverride{}, false
	}
	if ov.Expired(now) {
		delete(s.m, roomID)
		return models.ModeOverride{}, false
	}
	return ov, true
}

// ResolveMode determines the authoritative mode and its source for a room.
// Strict priority, first match wins: override, absence, unoccupied,
// room comfort, global comfort, default eco.
func ResolveMode(room models.Room, overrides *OverrideStore, signals CalendarSignals, occupied bool, now time.Time) (mode, source string) {
	if ov, ok := overrides.Active(room.ID, now); ok {
		return ov.Mode, models.SourceOverride
	}

	// Absence overrides presence and all comfort signals.
	if signals.Absence {
		return models.ModeFrostGuard, models.SourceCalendar
	}

	if !occupied {
		return models.ModeEco, models.SourcePresence
	}

	if _, ok := signals.ComfortRooms[strings.ToLower(room.Name)]; ok {
		return models.ModeComfort, models.SourceCalendar
	}
	if _, ok := signals.ComfortRooms[strings.ToLower(room.ID)]; ok {
		return models.ModeComfort, models.SourceCalendar
	}

	if signals.ComfortGlobal {
		return models.ModeComfort, models.SourceCalendar
	}

	return models.ModeEco, models.SourceDefault
}
