// Package sqlite stores room-day schedules in SQLite.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/example/cinema-scheduler/internal/clock"
	"github.com/example/cinema-scheduler/internal/persistence"
	"github.com/example/cinema-scheduler/internal/persistence/snapshot"
	"github.com/example/cinema-scheduler/internal/scheduler"
)

// Store implements persistence.RoomDayScheduleRepository on a ConnectionPool.
type Store struct {
	pool *ConnectionPool
	now  func() time.Time
}

// NewStore wraps an already migrated pool.
func NewStore(pool *ConnectionPool) *Store {
	return &Store{pool: pool, now: time.Now}
}

// Get returns the stored schedule for the room and day.
func (s *Store) Get(ctx context.Context, roomID string, day clock.Date) (persistence.VersionedEntity[scheduler.RoomDaySchedule], error) {
	var (
		version int
		payload string
	)
	err := s.pool.db.QueryRowContext(ctx,
		`SELECT version, payload FROM room_day_schedules WHERE room_id = ? AND day = ?`,
		roomID, day.String(),
	).Scan(&version, &payload)
	if err != nil {
		return persistence.VersionedEntity[scheduler.RoomDaySchedule]{}, MapError(err)
	}

	schedule, err := snapshot.Decode([]byte(payload))
	if err != nil {
		return persistence.VersionedEntity[scheduler.RoomDaySchedule]{}, err
	}
	return persistence.VersionedEntity[scheduler.RoomDaySchedule]{Version: version, Entity: schedule}, nil
}

// Save inserts version 1 or updates the row conditioned on the previous version.
func (s *Store) Save(ctx context.Context, entity persistence.VersionedEntity[scheduler.RoomDaySchedule]) error {
	payload, err := snapshot.Encode(entity.Entity)
	if err != nil {
		return err
	}
	roomID := entity.Entity.Room().ID
	day := entity.Entity.Day().String()
	updatedAt := s.now().UTC().Format(time.RFC3339)

	return s.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		var stored int
		err := tx.QueryRowContext(ctx,
			`SELECT version FROM room_day_schedules WHERE room_id = ? AND day = ?`, roomID, day,
		).Scan(&stored)
		exists := true
		if errors.Is(err, sql.ErrNoRows) {
			exists = false
		} else if err != nil {
			return fmt.Errorf("sqlite: read version: %w", err)
		}

		if err := persistence.CheckVersion(stored, exists, entity.Version); err != nil {
			return err
		}

		if !exists {
			_, err := tx.ExecContext(ctx,
				`INSERT INTO room_day_schedules (room_id, day, version, payload, updated_at) VALUES (?, ?, ?, ?, ?)`,
				roomID, day, entity.Version, string(payload), updatedAt)
			if err := MapError(err); errors.Is(err, ErrDuplicate) {
				return &persistence.StaleVersionError{Expected: entity.Version, Actual: 1}
			} else if err != nil {
				return fmt.Errorf("sqlite: insert schedule: %w", err)
			}
			return nil
		}

		res, err := tx.ExecContext(ctx,
			`UPDATE room_day_schedules SET version = ?, payload = ?, updated_at = ?
			 WHERE room_id = ? AND day = ? AND version = ?`,
			entity.Version, string(payload), updatedAt, roomID, day, entity.Version-1)
		if err != nil {
			return fmt.Errorf("sqlite: update schedule: %w", err)
		}
		if n, err := res.RowsAffected(); err != nil {
			return fmt.Errorf("sqlite: update schedule: %w", err)
		} else if n == 0 {
			return &persistence.StaleVersionError{Expected: entity.Version, Actual: stored}
		}
		return nil
	})
}

// AllBetween returns schedules whose day lies in [start, end], ordered by day then room.
func (s *Store) AllBetween(ctx context.Context, start, end clock.Date) ([]scheduler.RoomDaySchedule, error) {
	rows, err := s.pool.db.QueryContext(ctx,
		`SELECT payload FROM room_day_schedules WHERE day BETWEEN ? AND ? ORDER BY day ASC, room_id ASC`,
		start.String(), end.String())
	if err != nil {
		return nil, fmt.Errorf("sqlite: list schedules: %w", err)
	}
	defer rows.Close()

	var result []scheduler.RoomDaySchedule
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("sqlite: scan schedule: %w", err)
		}
		schedule, err := snapshot.Decode([]byte(payload))
		if err != nil {
			return nil, err
		}
		result = append(result, schedule)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterate schedules: %w", err)
	}
	return result, nil
}
