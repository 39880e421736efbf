// Package movie holds the movie catalog entry and its allowed start windows.
package movie

import (
	"slices"
	"time"

	"github.com/example/cinema-scheduler/internal/clock"
	"github.com/example/cinema-scheduler/internal/interval"
)

// StartWindow is a closed range of times of day at which a screening may begin.
type StartWindow = interval.Interval[clock.TimeOfDay]

// WholeDay allows a screening to start at any time of the day.
var WholeDay = interval.New(clock.StartOfDay, clock.EndOfDay)

// Movie is a schedulable film.
type Movie struct {
	ID                string
	Name              string
	Duration          time.Duration
	AllowedStarts     []StartWindow
	Requires3DGlasses bool
}

// New builds a movie. When no windows are given the movie may start at any
// time of day; pass an explicit empty slice through the struct literal to
// forbid every start.
func New(id, name string, duration time.Duration, requires3D bool, windows ...StartWindow) Movie {
	if len(windows) == 0 {
		windows = []StartWindow{WholeDay}
	}
	return Movie{
		ID:                id,
		Name:              name,
		Duration:          duration,
		AllowedStarts:     slices.Clone(windows),
		Requires3DGlasses: requires3D,
	}
}

// CanStartAt reports whether a screening of the movie may begin at t.
func (m Movie) CanStartAt(t clock.TimeOfDay) bool {
	return interval.ContainsAny(m.AllowedStarts, t)
}

// Equal compares movies field by field.
func (m Movie) Equal(other Movie) bool {
	return m.ID == other.ID &&
		m.Name == other.Name &&
		m.Duration == other.Duration &&
		m.Requires3DGlasses == other.Requires3DGlasses &&
		slices.Equal(m.AllowedStarts, other.AllowedStarts)
}

func (m Movie) String() string {
	return m.Name
}
