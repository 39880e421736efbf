// Package testfixtures builds deterministic movies, rooms and schedules for tests.
package testfixtures

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/example/cinema-scheduler/internal/clock"
	"github.com/example/cinema-scheduler/internal/interval"
	"github.com/example/cinema-scheduler/internal/movie"
	"github.com/example/cinema-scheduler/internal/room"
	"github.com/example/cinema-scheduler/internal/scheduler"
)

var (
	movieCounter uint64
	roomCounter  uint64
)

var referenceDay = clock.NewDate(2022, time.January, 1)

// ReferenceDay returns the Saturday used as the baseline day by fixtures.
func ReferenceDay() clock.Date {
	return referenceDay
}

// OpeningHours returns the default 08:00-22:00 operating hours.
func OpeningHours() room.TimeRange {
	return Hours("08:00", "22:00")
}

// Hours builds a time-of-day range from HH:MM literals.
func Hours(start, end string) room.TimeRange {
	return interval.New(clock.MustTime(start), clock.MustTime(end))
}

// ----------------------------- Movie fixtures -----------------------------

// MovieOption configures the generated movie.
type MovieOption func(*movie.Movie)

// NewMovie returns a 120 minute movie that may start at any time of day.
func NewMovie(opts ...MovieOption) movie.Movie {
	idx := atomic.AddUint64(&movieCounter, 1)
	m := movie.New(fmt.Sprintf("movie-%03d", idx), fmt.Sprintf("Movie %03d", idx), 120*time.Minute, false)
	for _, opt := range opts {
		opt(&m)
	}
	return m
}

// WithMovieID overrides the generated movie ID.
func WithMovieID(id string) MovieOption {
	return func(m *movie.Movie) {
		m.ID = id
	}
}

// WithMovieName overrides the generated movie name.
func WithMovieName(name string) MovieOption {
	return func(m *movie.Movie) {
		m.Name = name
	}
}

// WithDuration overrides the runtime.
func WithDuration(d time.Duration) MovieOption {
	return func(m *movie.Movie) {
		m.Duration = d
	}
}

// WithAllowedStarts replaces the allowed start windows.
func WithAllowedStarts(windows ...movie.StartWindow) MovieOption {
	return func(m *movie.Movie) {
		m.AllowedStarts = windows
	}
}

// With3D marks the movie as requiring 3D glasses.
func With3D() MovieOption {
	return func(m *movie.Movie) {
		m.Requires3DGlasses = true
	}
}

// ----------------------------- Room fixtures -----------------------------

// RoomOption configures the generated room.
type RoomOption func(*roomFixture)

type roomFixture struct {
	id      string
	name    string
	cleanUp time.Duration
	rules   []room.UnavailabilityRule
}

// NewRoom returns a room with a 10 minute clean-up and no unavailability.
func NewRoom(opts ...RoomOption) room.Room {
	idx := atomic.AddUint64(&roomCounter, 1)
	f := roomFixture{
		id:      fmt.Sprintf("room-%03d", idx),
		name:    fmt.Sprintf("Room %03d", idx),
		cleanUp: 10 * time.Minute,
	}
	for _, opt := range opts {
		opt(&f)
	}
	return room.New(f.id, f.name, f.cleanUp, f.rules...)
}

// WithRoomID overrides the generated room ID.
func WithRoomID(id string) RoomOption {
	return func(f *roomFixture) {
		f.id = id
	}
}

// WithRoomName overrides the generated room name.
func WithRoomName(name string) RoomOption {
	return func(f *roomFixture) {
		f.name = name
	}
}

// WithCleanUp overrides the clean-up time.
func WithCleanUp(d time.Duration) RoomOption {
	return func(f *roomFixture) {
		f.cleanUp = d
	}
}

// WithUnavailability appends unavailability rules.
func WithUnavailability(rules ...room.UnavailabilityRule) RoomOption {
	return func(f *roomFixture) {
		f.rules = append(f.rules, rules...)
	}
}

// ----------------------------- Schedule fixtures -----------------------------

// NewRoomDaySchedule builds a schedule with the default opening hours and the
// given screenings, failing the test when any of them is rejected.
func NewRoomDaySchedule(tb testing.TB, r room.Room, day clock.Date, m movie.Movie, starts ...string) scheduler.RoomDaySchedule {
	tb.Helper()

	s := scheduler.NewRoomDaySchedule(r, day, OpeningHours())
	for _, start := range starts {
		next, err := s.AddScreening(m, clock.MustTime(start))
		if err != nil {
			tb.Fatalf("failed to add screening at %s: %v", start, err)
		}
		s = next
	}
	return s
}

// StartTimes lists the start times of a schedule's screenings as HH:MM strings.
func StartTimes(s scheduler.RoomDaySchedule) []string {
	out := make([]string, 0, s.Len())
	for _, sc := range s.Screenings() {
		out = append(out, clock.TimeOf(sc.Start()).String())
	}
	return out
}
