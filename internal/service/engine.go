package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"smart_heating/internal/config"
	"smart_heating/internal/hass"
	"smart_heating/internal/logger"
	"smart_heating/internal/models"
	"smart_heating/internal/repository"
)

const stateHome = "home"

// Entity ids probed for an outdoor reference temperature when no explicit
// sensor is configured. First parseable value wins.
var outdoorFallbackEntities = []string{
	"weather.home",
	"weather.maison",
	"sensor.outdoor_temperature",
	"sensor.temperature_exterieure",
}

var (
	errUnknownRoom = errors.New("unknown room")
	errInvalidMode = errors.New("invalid mode: must be comfort, eco, frost_guard, or off")
)

// Engine runs the per-tick decision cycle: fetch signals, resolve a mode per
// room, plan preheating, feed the learner, command the devices and publish
// the snapshot. Ticks never overlap; all per-room mutable state is keyed by
// room id and owned here.
type Engine struct {
	calendarID       string
	presenceTrackers []string
	outdoorSensor    string
	rooms            []models.Room
	roomsByID        map[string]models.Room

	host    HostClient
	tracker *TempTracker
	learner *RateLearner
	planner PreheatPlanner

	overrides *OverrideStore
	events    repository.EventRepo
	publisher SnapshotPublisher
	log       *logger.Logger

	refreshCh chan struct{}
	now       func() time.Time

	mu        sync.RWMutex
	last      *models.HouseSnapshot
	prevModes map[string]string
}

// NewEngine wires the decision cycle. pub may be nil when telemetry is off.
func NewEngine(cfg *config.Config, host HostClient, learner *RateLearner, events repository.EventRepo, pub SnapshotPublisher, log *logger.Logger) *Engine {
	rooms := cfg.Rooms()
	byID := make(map[string]models.Room, len(rooms))
	for _, r := range rooms {
		byID[r.ID] = r
	}
	return &Engine{
		calendarID:       cfg.Heating.Calendar,
		presenceTrackers: cfg.Heating.PresenceTrackers,
		outdoorSensor:    cfg.Heating.OutdoorSensor,
		rooms:            rooms,
		roomsByID:        byID,
		host:             host,
		tracker:          NewTempTracker(cfg.Heating.DerivativeWindow),
		learner:          learner,
		planner: PreheatPlanner{
			SafetyFactor:  cfg.Heating.SafetyFactor,
			MinPreheatMin: cfg.Heating.MinPreheatMin,
		},
		overrides: NewOverrideStore(),
		events:    events,
		publisher: pub,
		log:       log,
		refreshCh: make(chan struct{}, 1),
		now:       time.Now,
		prevModes: make(map[string]string),
	}
}

// Run ticks at the given interval until ctx is canceled. A forced refresh
// (user command) triggers an extra cycle between ticks.
func (e *Engine) Run(ctx context.Context, tick time.Duration) {
	// Initial cycle so state is available before the first tick elapses.
	e.refresh(ctx)

	t := time.NewTicker(tick)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			e.refresh(ctx)
		case <-e.refreshCh:
			e.refresh(ctx)
		}
	}
}

// refresh runs one full cycle. Any escaped failure aborts the whole tick:
// nothing is published and the previous snapshot stays current until the
// next scheduled interval.
func (e *Engine) refresh(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			e.tickFailed(ctx, fmt.Errorf("panic: %v", r))
		}
	}()

	snap, err := e.computeSnapshot(ctx)
	if err != nil {
		e.tickFailed(ctx, err)
		return
	}

	e.mu.Lock()
	prev := e.prevModes
	changed := make(map[string][2]string)
	for roomID, d := range snap.Rooms {
		if old, ok := prev[roomID]; ok && old != d.Mode {
			changed[roomID] = [2]string{old, d.Mode}
		}
		prev[roomID] = d.Mode
	}
	e.last = &snap
	e.mu.Unlock()

	for roomID, fromTo := range changed {
		e.appendEvent(ctx, models.HeatingEvent{
			Type:        models.EventModeChange,
			RoomID:      roomID,
			Description: fmt.Sprintf("%s switched from %s to %s", roomID, fromTo[0], fromTo[1]),
			Metadata: map[string]any{
				"from":   fromTo[0],
				"to":     fromTo[1],
				"source": snap.Rooms[roomID].Source,
			},
		})
	}

	if e.publisher != nil {
		if err := e.publisher.PublishSnapshot(snap); err != nil && e.log != nil {
			e.log.Warnw("snapshot_publish_failed", "err", err)
		}
	}
}

func (e *Engine) tickFailed(ctx context.Context, err error) {
	if e.log != nil {
		e.log.Errorw("update_failed", "err", err)
	}
	e.appendEvent(ctx, models.HeatingEvent{
		Type:        models.EventUpdateFailed,
		Description: err.Error(),
	})
}

// computeSnapshot performs the full fetch-and-decide cycle for one tick.
func (e *Engine) computeSnapshot(ctx context.Context) (models.HouseSnapshot, error) {
	now := e.now()

	events := e.fetchCalendarEvents(ctx, now)
	signals := ParseSignals(events, now)
	occupied := e.computePresence(ctx)
	outdoor := e.outdoorTemperature(ctx)

	decisions := make(map[string]models.RoomDecision, len(e.rooms))
	for _, room := range e.rooms {
		// Rooms are independent; one room's failure must not corrupt the
		// others, so each is guarded separately.
		d, err := e.processRoomSafe(ctx, room, events, signals, occupied, outdoor, now)
		if err != nil {
			if e.log != nil {
				e.log.Errorw("room_update_failed", "room", room.ID, "err", err)
			}
			continue
		}
		decisions[room.ID] = d
	}

	return models.HouseSnapshot{
		Occupied:    occupied,
		OutdoorTemp: outdoor,
		Rooms:       decisions,
		UpdatedAt:   now.UTC(),
	}, nil
}

func (e *Engine) processRoomSafe(ctx context.Context, room models.Room, events []models.CalendarEvent, signals CalendarSignals, occupied bool, outdoor *float64, now time.Time) (d models.RoomDecision, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return e.processRoom(ctx, room, events, signals, occupied, outdoor, now), nil
}

func (e *Engine) processRoom(ctx context.Context, room models.Room, events []models.CalendarEvent, signals CalendarSignals, occupied bool, outdoor *float64, now time.Time) models.RoomDecision {
	current := e.currentTemperature(ctx, room)
	measured := e.tracker.Observe(room.ID, current, now)
	learned := e.learner.Predict(room.ID, outdoor, now.Hour())

	mode, source := ResolveMode(room, e.overrides, signals, occupied, now)
	target := room.TargetFor(mode)

	// Measured rate takes priority over the learned one when both exist.
	rateForPlan := measured
	if rateForPlan == nil {
		rateForPlan = learned
	}
	// Preheat is always planned toward the comfort setpoint, whatever mode
	// the room is in right now.
	preheatMinutes := e.planner.EstimateMinutes(current, room.TargetFor(models.ModeComfort), rateForPlan)

	next := NextComfortEvent(room, events, now)
	preheatActive := e.planner.ShouldAnticipate(next, preheatMinutes, now)

	// Anticipation upgrades eco to comfort for this tick only; the override
	// store and the resolver chain are untouched.
	if preheatActive && mode == models.ModeEco {
		mode = models.ModeComfort
		target = room.TargetFor(models.ModeComfort)
		source = models.SourceAnticipation
	}

	// Learn only from active heating periods.
	if mode == models.ModeComfort && measured != nil && *measured > 0 {
		e.learner.Record(ctx, room.ID, *measured, outdoor, now.Hour(), now)
	}

	for _, device := range room.Devices {
		if err := e.host.SetTemperature(ctx, device, target); err != nil && e.log != nil {
			e.log.Errorw("set_temperature_failed", "room", room.ID, "device", device, "err", err)
		}
	}

	stats := e.learner.Stats(room.ID)

	var nextISO string
	if next != nil {
		nextISO = next.Start.Format(time.RFC3339)
	}

	return models.RoomDecision{
		RoomID:          room.ID,
		Mode:            mode,
		Source:          source,
		TargetTemp:      target,
		CurrentTemp:     current,
		HeatingRate:     rateForPlan,
		LearnedRate:     learned,
		PreheatMinutes:  preheatMinutes,
		PreheatActive:   preheatActive,
		NextComfort:     nextISO,
		LearningSamples: stats.Samples,
		LearningAvgRate: stats.AvgRate,
	}
}

// fetchCalendarEvents gets the next 24 hours of events. A fetch failure
// degrades to "no events" rather than aborting the tick.
func (e *Engine) fetchCalendarEvents(ctx context.Context, now time.Time) []models.CalendarEvent {
	events, err := e.host.GetCalendarEvents(ctx, e.calendarID, now, now.Add(24*time.Hour))
	if err != nil {
		if e.log != nil {
			e.log.Warnw("calendar_fetch_failed", "calendar", e.calendarID, "err", err)
		}
		return nil
	}
	return events
}

// computePresence reports whether anyone is home: true iff at least one
// tracker is exactly "home". Unknown, unavailable or missing trackers count
// as not-home, so an empty list fails safe to eco.
func (e *Engine) computePresence(ctx context.Context) bool {
	for _, tracker := range e.presenceTrackers {
		st, err := e.host.GetState(ctx, tracker)
		if err != nil {
			if e.log != nil {
				e.log.Warnw("presence_fetch_failed", "tracker", tracker, "err", err)
			}
			continue
		}
		if st != nil && st.State == stateHome {
			return true
		}
	}
	return false
}

// outdoorTemperature resolves the outdoor reference temperature: the
// configured sensor first, then the fallback scan list.
func (e *Engine) outdoorTemperature(ctx context.Context) *float64 {
	candidates := outdoorFallbackEntities
	if e.outdoorSensor != "" {
		candidates = append([]string{e.outdoorSensor}, candidates...)
	}

	for _, entityID := range candidates {
		st, err := e.host.GetState(ctx, entityID)
		if err != nil || st == nil {
			continue
		}
		// Weather entities carry the temperature as an attribute, plain
		// sensors in their state.
		if strings.HasPrefix(entityID, "weather.") {
			if v, ok := parseAttributeFloat(st.Attributes, "temperature"); ok {
				return &v
			}
			continue
		}
		if v, ok := parseStateFloat(st.State); ok {
			return &v
		}
	}
	return nil
}

// currentTemperature reads the room's dedicated sensor first, then falls
// back to each heating device's own reported temperature.
func (e *Engine) currentTemperature(ctx context.Context, room models.Room) *float64 {
	if room.Sensor != "" {
		st, err := e.host.GetState(ctx, room.Sensor)
		if err != nil {
			if e.log != nil {
				e.log.Warnw("sensor_fetch_failed", "room", room.ID, "sensor", room.Sensor, "err", err)
			}
		} else if st != nil {
			if v, ok := parseStateFloat(st.State); ok {
				return &v
			}
		}
	}

	for _, device := range room.Devices {
		st, err := e.host.GetState(ctx, device)
		if err != nil || st == nil {
			continue
		}
		if v, ok := parseAttributeFloat(st.Attributes, "current_temperature"); ok {
			return &v
		}
	}
	return nil
}

//
// Manual control surface
//

// SetOverride pins a room's mode, optionally for a limited duration, and
// forces a refresh so it takes effect immediately.
func (e *Engine) SetOverride(ctx context.Context, roomID, mode string, durationMin *int) error {
	if _, ok := e.roomsByID[roomID]; !ok {
		return fmt.Errorf("%w: %s", errUnknownRoom, roomID)
	}
	if !models.ValidMode(mode) {
		return errInvalidMode
	}

	var expiry *time.Time
	if durationMin != nil && *durationMin > 0 {
		t := e.now().Add(time.Duration(*durationMin) * time.Minute)
		expiry = &t
	}
	e.overrides.Set(roomID, mode, expiry)

	if e.log != nil {
		e.log.Infow("override_set", "room", roomID, "mode", mode, "duration_min", durationMin)
	}
	e.appendEvent(ctx, models.HeatingEvent{
		Type:        models.EventOverrideSet,
		RoomID:      roomID,
		Description: fmt.Sprintf("override %s on %s", mode, roomID),
		Metadata:    map[string]any{"mode": mode, "duration_min": durationMin},
	})
	e.RequestRefresh()
	return nil
}

// ResetOverride clears one room's override, or all when roomID is empty.
func (e *Engine) ResetOverride(ctx context.Context, roomID string) error {
	if roomID == "" {
		e.overrides.ResetAll()
		if e.log != nil {
			e.log.Infow("overrides_reset_all")
		}
		e.appendEvent(ctx, models.HeatingEvent{
			Type:        models.EventOverrideReset,
			Description: "all overrides reset",
		})
		e.RequestRefresh()
		return nil
	}

	if _, ok := e.roomsByID[roomID]; !ok {
		return fmt.Errorf("%w: %s", errUnknownRoom, roomID)
	}
	e.overrides.Reset(roomID)
	if e.log != nil {
		e.log.Infow("override_reset", "room", roomID)
	}
	e.appendEvent(ctx, models.HeatingEvent{
		Type:        models.EventOverrideReset,
		RoomID:      roomID,
		Description: fmt.Sprintf("override reset on %s", roomID),
	})
	e.RequestRefresh()
	return nil
}

// RequestRefresh forces an extra cycle without waiting for the next tick.
// Non-blocking: a pending request is enough.
func (e *Engine) RequestRefresh() {
	select {
	case e.refreshCh <- struct{}{}:
	default:
	}
}

//
// Read model
//

// Snapshot returns the last published snapshot, if any tick succeeded yet.
func (e *Engine) Snapshot() (models.HouseSnapshot, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.last == nil {
		return models.HouseSnapshot{}, false
	}
	return *e.last, true
}

// Room returns the last decision for one room.
func (e *Engine) Room(roomID string) (models.RoomDecision, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.last == nil {
		return models.RoomDecision{}, false
	}
	d, ok := e.last.Rooms[roomID]
	return d, ok
}

func (e *Engine) appendEvent(ctx context.Context, ev models.HeatingEvent) {
	if e.events == nil {
		return
	}
	if err := e.events.Append(ctx, ev); err != nil && e.log != nil {
		e.log.Warnw("event_append_failed", "type", ev.Type, "err", err)
	}
}

func parseStateFloat(state string) (float64, bool) {
	if state == "" || state == "unknown" || state == "unavailable" {
		return 0, false
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(state), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func parseAttributeFloat(attrs map[string]any, key string) (float64, bool) {
	raw, ok := attrs[key]
	if !ok || raw == nil {
		return 0, false
	}
	switch v := raw.(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case string:
		return parseStateFloat(v)
	default:
		return 0, false
	}
}

// ensure Engine satisfies its service interfaces
var (
	_ Heating    = (*Engine)(nil)
	_ Monitoring = (*Engine)(nil)
	_ Runner     = (*Engine)(nil)
	_ HostClient = (*hass.Client)(nil)
)
