// Package scheduler is the per-room, per-day screening engine.
package scheduler

import (
	"fmt"
	"time"

	"github.com/example/cinema-scheduler/internal/clock"
	"github.com/example/cinema-scheduler/internal/interval"
	"github.com/example/cinema-scheduler/internal/movie"
	"github.com/example/cinema-scheduler/internal/room"
)

// Screening is one showing of a movie in a room. Its total duration covers
// the movie runtime plus the room clean-up time.
type Screening struct {
	movie    movie.Movie
	start    time.Time
	duration time.Duration
}

// NewScreening validates the start against the movie's allowed windows and
// returns an *OutsideAllowedWindowError when it falls outside all of them.
func NewScreening(m movie.Movie, r room.Room, start time.Time) (Screening, error) {
	if at := clock.TimeOf(start); !m.CanStartAt(at) {
		return Screening{}, &OutsideAllowedWindowError{Movie: m, Start: at}
	}
	return Screening{movie: m, start: start, duration: m.Duration + r.CleanUp}, nil
}

// Movie returns the screened movie.
func (s Screening) Movie() movie.Movie { return s.movie }

// Start returns the wall-clock start date-time.
func (s Screening) Start() time.Time { return s.start }

// TotalDuration is the movie runtime plus clean-up.
func (s Screening) TotalDuration() time.Duration { return s.duration }

// End is the moment the room becomes free again.
func (s Screening) End() time.Time { return s.start.Add(s.duration) }

// Occupied is the span during which the room is taken, clean-up included.
func (s Screening) Occupied() room.DateTimeRange {
	return interval.New(s.start, s.End())
}

// ConflictsWith reports whether the occupied spans intersect. The end of a
// span is exclusive: a screening may start the moment clean-up finishes.
// Screenings sharing a start always conflict, zero-length spans included.
func (s Screening) ConflictsWith(other Screening) bool {
	return s.start.Equal(other.start) || s.Occupied().OverlapsHalfOpen(other.Occupied())
}

// Equal reports whether both screenings show the same movie at the same
// start for the same total duration.
func (s Screening) Equal(other Screening) bool {
	return s.movie.ID == other.movie.ID &&
		s.start.Equal(other.start) &&
		s.duration == other.duration
}

func (s Screening) String() string {
	return fmt.Sprintf("%s [%s, %s)", s.movie.Name, clock.FormatDateTime(s.start), clock.FormatDateTime(s.End()))
}
