package scheduler

import (
	"slices"
	"sort"
	"time"

	"github.com/example/cinema-scheduler/internal/clock"
	"github.com/example/cinema-scheduler/internal/movie"
	"github.com/example/cinema-scheduler/internal/room"
)

// RoomDaySchedule is the ordered list of screenings for one room on one day.
// It is a value: AddScreening returns a new schedule and leaves the receiver
// untouched.
type RoomDaySchedule struct {
	room       room.Room
	day        clock.Date
	hours      room.TimeRange
	screenings []Screening
}

// NewRoomDaySchedule returns an empty schedule. No validation is performed.
func NewRoomDaySchedule(r room.Room, day clock.Date, operatingHours room.TimeRange) RoomDaySchedule {
	return RoomDaySchedule{room: r, day: day, hours: operatingHours}
}

// RestoreRoomDaySchedule rebuilds a schedule from stored screenings. The
// screenings are sorted by start but not re-validated.
func RestoreRoomDaySchedule(r room.Room, day clock.Date, operatingHours room.TimeRange, screenings []Screening) RoomDaySchedule {
	sorted := slices.Clone(screenings)
	slices.SortStableFunc(sorted, func(a, b Screening) int {
		return a.start.Compare(b.start)
	})
	return RoomDaySchedule{room: r, day: day, hours: operatingHours, screenings: sorted}
}

// RestoreScreening rebuilds a screening from stored fields without checking
// the movie's allowed windows.
func RestoreScreening(m movie.Movie, start time.Time, totalDuration time.Duration) Screening {
	return Screening{movie: m, start: start, duration: totalDuration}
}

// Room returns the scheduled room.
func (s RoomDaySchedule) Room() room.Room { return s.room }

// Day returns the calendar day of the schedule.
func (s RoomDaySchedule) Day() clock.Date { return s.day }

// OperatingHours returns the window in which screenings may start.
func (s RoomDaySchedule) OperatingHours() room.TimeRange { return s.hours }

// Screenings returns a copy of the screenings ordered by start.
func (s RoomDaySchedule) Screenings() []Screening {
	return slices.Clone(s.screenings)
}

// Len returns the number of screenings.
func (s RoomDaySchedule) Len() int { return len(s.screenings) }

// AddScreening schedules m at the given time of day. Checks run in order and
// stop at the first failure: movie start window, room availability,
// operating hours, then conflicts with the immediate neighbours.
func (s RoomDaySchedule) AddScreening(m movie.Movie, at clock.TimeOfDay) (RoomDaySchedule, error) {
	candidate, err := NewScreening(m, s.room, s.day.At(at))
	if err != nil {
		return s, err
	}
	if !s.room.AvailableDuring(candidate.Occupied()) {
		return s, &RoomUnavailableError{Room: s.room, Screening: candidate}
	}
	if !s.hours.Contains(at) {
		return s, &OutsideOperatingHoursError{Screening: candidate, OperatingHours: s.hours}
	}

	idx := s.insertionPoint(candidate.start)
	if conflicts := s.neighbourConflicts(idx, candidate); len(conflicts) > 0 {
		return s, &ConflictingScreeningsError{Screening: candidate, Conflicts: conflicts}
	}

	next := make([]Screening, 0, len(s.screenings)+1)
	next = append(next, s.screenings[:idx]...)
	next = append(next, candidate)
	next = append(next, s.screenings[idx:]...)

	updated := s
	updated.screenings = next
	return updated, nil
}

// insertionPoint returns the index of the first screening starting strictly
// after start. The predecessor, if any, sits at idx-1 and the successor at idx.
func (s RoomDaySchedule) insertionPoint(start time.Time) int {
	return sort.Search(len(s.screenings), func(i int) bool {
		return s.screenings[i].start.After(start)
	})
}

func (s RoomDaySchedule) neighbourConflicts(idx int, candidate Screening) []Screening {
	var conflicts []Screening
	if idx > 0 {
		if prev := s.screenings[idx-1]; prev.ConflictsWith(candidate) {
			conflicts = append(conflicts, prev)
		}
	}
	if idx < len(s.screenings) {
		if next := s.screenings[idx]; next.ConflictsWith(candidate) {
			conflicts = append(conflicts, next)
		}
	}
	return conflicts
}
