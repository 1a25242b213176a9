package repository

import (
	"context"
	"database/sql"
	"time"

	"smart_heating/internal/models"
)

type ObservationSQLite struct {
	db *sql.DB
}

func NewObservationSQLite(db *sql.DB) *ObservationSQLite {
	return &ObservationSQLite{db: db}
}

var _ ObservationRepo = (*ObservationSQLite)(nil)

const (
	insertObservationSQL = `
		INSERT INTO heating_observations (room_id, rate, outdoor_temp, hour, recorded_at)
		VALUES (?, ?, ?, ?, ?)
	`

	// Delete everything but the `keep` newest rows for the room. Insertion
	// order (autoincrement id) is the FIFO order.
	pruneObservationsSQL = `
		DELETE FROM heating_observations
		WHERE room_id = ? AND id NOT IN (
			SELECT id FROM heating_observations
			WHERE room_id = ?
			ORDER BY id DESC
			LIMIT ?
		)
	`

	selectObservationsSQL = `
		SELECT room_id, rate, outdoor_temp, hour, recorded_at
		FROM heating_observations
		ORDER BY room_id, id ASC
	`
)

// Append inserts one observation for a room.
func (r *ObservationSQLite) Append(ctx context.Context, roomID string, obs models.HeatingObservation) error {
	tsUTC := obs.RecordedAt
	if tsUTC.IsZero() {
		tsUTC = time.Now().UTC()
	} else {
		tsUTC = tsUTC.UTC()
	}

	var outdoor sql.NullFloat64
	if obs.OutdoorTemp != nil {
		outdoor = sql.NullFloat64{Float64: *obs.OutdoorTemp, Valid: true}
	}

	_, err := r.db.ExecContext(ctx, insertObservationSQL,
		roomID,
		obs.Rate,
		outdoor,
		obs.Hour,
		tsUTC,
	)
	return err
}

// Prune drops all but the newest `keep` observations for a room.
func (r *ObservationSQLite) Prune(ctx context.Context, roomID string, keep int) error {
	if keep < 0 {
		keep = 0
	}
	_, err := r.db.ExecContext(ctx, pruneObservationsSQL, roomID, roomID, keep)
	return err
}

// LoadAll fetches every stored observation grouped by room, oldest first.
func (r *ObservationSQLite) LoadAll(ctx context.Context) (map[string][]models.HeatingObservation, error) {
	rows, err := r.db.QueryContext(ctx, selectObservationsSQL)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string][]models.HeatingObservation)
	for rows.Next() {
		var (
			roomID  string
			obs     models.HeatingObservation
			outdoor sql.NullFloat64
		)
		if err := rows.Scan(&roomID, &obs.Rate, &outdoor, &obs.Hour, &obs.RecordedAt); err != nil {
			return nil, err
		}
		if outdoor.Valid {
			v := outdoor.Float64
			obs.OutdoorTemp = &v
		}
		obs.RecordedAt = obs.RecordedAt.UTC()
		out[roomID] = append(out[roomID], obs)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
