package persistence

import (
	"context"

	"github.com/example/cinema-scheduler/internal/clock"
	"github.com/example/cinema-scheduler/internal/movie"
	"github.com/example/cinema-scheduler/internal/room"
	"github.com/example/cinema-scheduler/internal/scheduler"
)

// VersionedEntity pairs a stored value with its optimistic-concurrency version.
type VersionedEntity[E any] struct {
	Version int
	Entity  E
}

// MovieRepository looks movies up by ID.
type MovieRepository interface {
	GetMovie(ctx context.Context, id string) (movie.Movie, error)
}

// RoomRepository looks rooms up by ID.
type RoomRepository interface {
	GetRoom(ctx context.Context, id string) (room.Room, error)
}

// RoomDayScheduleRepository stores room-day schedules under optimistic concurrency.
//
// Get returns ErrNotFound when no schedule is stored for the room and day.
// Save returns a *StaleVersionError unless the entity's version is exactly one
// greater than the stored version (or 1 when nothing is stored). AllBetween
// includes both end dates.
type RoomDayScheduleRepository interface {
	Get(ctx context.Context, roomID string, day clock.Date) (VersionedEntity[scheduler.RoomDaySchedule], error)
	Save(ctx context.Context, schedule VersionedEntity[scheduler.RoomDaySchedule]) error
	AllBetween(ctx context.Context, start, end clock.Date) ([]scheduler.RoomDaySchedule, error)
}
