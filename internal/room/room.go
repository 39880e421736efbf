// Package room models cinema rooms and the rules that make them unavailable.
package room

import (
	"fmt"
	"slices"
	"time"

	"github.com/example/cinema-scheduler/internal/clock"
	"github.com/example/cinema-scheduler/internal/interval"
)

// TimeRange is an interval of times of day.
type TimeRange = interval.Interval[clock.TimeOfDay]

// DateTimeRange is an interval of wall-clock date-times.
type DateTimeRange = interval.Interval[time.Time]

// UnavailabilityRule blocks a room during Hours on the days picked by Day.
type UnavailabilityRule struct {
	Day   DaySelector
	Hours TimeRange
}

// UnavailableDuring reports whether the rule blocks any part of span.
//
// Only the date of span.Start is considered: the rule's day selector is
// resolved from that date and the rule hours are projected onto the result.
func (r UnavailabilityRule) UnavailableDuring(span DateTimeRange) bool {
	date := r.Day.Resolve(clock.DateOf(span.Start))
	blocked := interval.New(date.At(r.Hours.Start), date.At(r.Hours.End))
	return span.Overlaps(blocked)
}

func (r UnavailabilityRule) String() string {
	return fmt.Sprintf("%s %s", r.Day, r.Hours)
}

// Room is a cinema room. Values are immutable; use WithUnavailability to
// derive a room with a different rule set.
type Room struct {
	ID      string
	Name    string
	CleanUp time.Duration
	rules   []UnavailabilityRule
}

// New builds a room with the given clean-up time and unavailability rules.
func New(id, name string, cleanUp time.Duration, rules ...UnavailabilityRule) Room {
	return Room{ID: id, Name: name, CleanUp: cleanUp, rules: slices.Clone(rules)}
}

// Unavailability returns a copy of the room's unavailability rules.
func (r Room) Unavailability() []UnavailabilityRule {
	return slices.Clone(r.rules)
}

// WithUnavailability returns a copy of the room with its rule set replaced.
func (r Room) WithUnavailability(rules ...UnavailabilityRule) Room {
	r.rules = slices.Clone(rules)
	return r
}

// AvailableDuring reports whether no rule blocks the room during span.
func (r Room) AvailableDuring(span DateTimeRange) bool {
	for _, rule := range r.rules {
		if rule.UnavailableDuring(span) {
			return false
		}
	}
	return true
}

// Equal reports whether two rooms have the same identity, clean-up time and rules.
func (r Room) Equal(other Room) bool {
	return r.ID == other.ID &&
		r.Name == other.Name &&
		r.CleanUp == other.CleanUp &&
		slices.Equal(r.rules, other.rules)
}

func (r Room) String() string {
	return r.Name
}
