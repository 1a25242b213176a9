package repository

import (
	"context"
	"database/sql"
	"time"

	"smart_heating/internal/models"
	"smart_heating/internal/repository/db"
)

type Authorization interface {
	Create(username, hash string) (int, error)
	GetByUsername(username string) (*models.User, error)
}

// ObservationRepo persists the learner's per-room heating-rate history.
type ObservationRepo interface {
	Append(ctx context.Context, roomID string, obs models.HeatingObservation) error
	// Prune keeps only the `keep` most recent observations for a room.
	Prune(ctx context.Context, roomID string, keep int) error
	LoadAll(ctx context.Context) (map[string][]models.HeatingObservation, error)
}

type EventRepo interface {
	Append(ctx context.Context, e models.HeatingEvent) error
	List(ctx context.Context, from, to time.Time, typ string) ([]models.HeatingEvent, error)
}

type Repository struct {
	Observations ObservationRepo
	Events       EventRepo
	Auth         Authorization
}

func NewRepository(sqlDB *sql.DB) *Repository {
	return &Repository{
		Observations: NewObservationSQLite(sqlDB),
		Events:       NewEventSQLite(sqlDB),
		Auth:         NewUserRepository(sqlDB),
	}
}

// InitDB opens the SQLite file and ensures the schema exists.
func InitDB(path string) (*sql.DB, error) {
	return db.InitDB(path)
}
