package scheduler

import (
	"fmt"
	"strings"

	"github.com/example/cinema-scheduler/internal/clock"
	"github.com/example/cinema-scheduler/internal/movie"
	"github.com/example/cinema-scheduler/internal/room"
)

// OutsideAllowedWindowError reports a start time outside every window the movie allows.
type OutsideAllowedWindowError struct {
	Movie movie.Movie
	Start clock.TimeOfDay
}

func (e *OutsideAllowedWindowError) Error() string {
	return fmt.Sprintf("movie %q cannot start at %s", e.Movie.Name, e.Start)
}

// RoomUnavailableError reports a screening that falls into one of the room's
// unavailability rules.
type RoomUnavailableError struct {
	Room      room.Room
	Screening Screening
}

func (e *RoomUnavailableError) Error() string {
	rules := e.Room.Unavailability()
	parts := make([]string, 0, len(rules))
	for _, rule := range rules {
		parts = append(parts, rule.String())
	}
	return fmt.Sprintf("cannot add %s: room %q is unavailable at that time (unavailable: %s)",
		e.Screening, e.Room.Name, strings.Join(parts, "; "))
}

// OutsideOperatingHoursError reports a screening starting outside the
// operating hours of the room-day.
type OutsideOperatingHoursError struct {
	Screening      Screening
	OperatingHours room.TimeRange
}

func (e *OutsideOperatingHoursError) Error() string {
	return fmt.Sprintf("screening %s is not within operating hours %s", e.Screening, e.OperatingHours)
}

// ConflictingScreeningsError lists the neighbouring screenings that overlap the candidate.
type ConflictingScreeningsError struct {
	Screening Screening
	Conflicts []Screening
}

func (e *ConflictingScreeningsError) Error() string {
	parts := make([]string, 0, len(e.Conflicts))
	for _, c := range e.Conflicts {
		parts = append(parts, c.String())
	}
	return fmt.Sprintf("screening %s conflicts with %s", e.Screening, strings.Join(parts, ", "))
}
