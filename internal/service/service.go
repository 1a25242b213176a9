package service

import (
	"context"
	"time"

	"smart_heating/internal/config"
	"smart_heating/internal/hass"
	"smart_heating/internal/logger"
	"smart_heating/internal/models"
	"smart_heating/internal/repository"
)

type Authorization interface {
	SignUp(username, password string) (int, error)
	GenerateToken(username, password string) (string, error)
	ParseToken(accessToken string) (int, error)
}

// Heating exposes the manual control surface: mode overrides and forced
// refreshes. Mutations take effect on the next tick.
type Heating interface {
	SetOverride(ctx context.Context, roomID, mode string, durationMin *int) error
	// ResetOverride clears one room's override, or all overrides when
	// roomID is empty.
	ResetOverride(ctx context.Context, roomID string) error
	RequestRefresh()
}

// Monitoring exposes the last published snapshot.
type Monitoring interface {
	Snapshot() (models.HouseSnapshot, bool)
	Room(roomID string) (models.RoomDecision, bool)
}

// Learning exposes the learner's descriptive statistics.
type Learning interface {
	Stats(roomID string) models.LearningStats
}

// EventLog exposes append-only logs with filtering access.
type EventLog interface {
	List(ctx context.Context, f LogFilter) ([]models.HeatingEvent, error)
}

// Runner runs the background decision loop. Stop via context cancellation
// in main() for graceful shutdown.
type Runner interface {
	Run(ctx context.Context, tick time.Duration)
}

// HostClient is what the engine needs from the host runtime.
type HostClient interface {
	GetState(ctx context.Context, entityID string) (*hass.EntityState, error)
	GetCalendarEvents(ctx context.Context, calendarID string, start, end time.Time) ([]models.CalendarEvent, error)
	SetTemperature(ctx context.Context, deviceID string, temperature float64) error
}

// SnapshotPublisher receives each published snapshot (e.g. MQTT telemetry).
type SnapshotPublisher interface {
	PublishSnapshot(snap models.HouseSnapshot) error
}

//
// Root Service aggregates all sub-services.
//

type Service struct {
	Heating
	Monitoring
	Learning
	EventLog
	Runner
	Authorization
}

// NewService wires the repository layer, host client and config into the
// concrete services. The engine implements Heating, Monitoring and Runner.
func NewService(cfg *config.Config, repos *repository.Repository, host HostClient, pub SnapshotPublisher, log *logger.Logger) *Service {
	learner := NewRateLearner(repos.Observations, log)
	engine := NewEngine(cfg, host, learner, repos.Events, pub, log)
	return &Service{
		Heating:       engine,
		Monitoring:    engine,
		Learning:      learner,
		EventLog:      NewEventLogService(repos.Events),
		Runner:        engine,
		Authorization: NewAuthService(repos.Auth, cfg.SigningKey),
	}
}
