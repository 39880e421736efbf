// Package recurrence expands a screening run (one movie at a fixed time of
// day over a date range) into the concrete start times it covers.
package recurrence

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/example/cinema-scheduler/internal/clock"
)

// Frequency represents supported recurrence intervals.
type Frequency int

const (
	// FrequencyUnspecified indicates the rule frequency is not set.
	FrequencyUnspecified Frequency = iota
	// FrequencyDaily generates occurrences for each day within the range.
	FrequencyDaily
	// FrequencyWeekly generates occurrences for the selected weekdays.
	FrequencyWeekly
)

// MaxOccurrences bounds a single expansion.
const MaxOccurrences = 366

// Rule describes a screening run.
type Rule struct {
	Frequency Frequency
	Weekdays  []time.Weekday
	From      clock.Date
	Until     clock.Date
	At        clock.TimeOfDay
}

// Occurrence is one dated start of a run.
type Occurrence struct {
	Day   clock.Date
	Start time.Time
}

// ErrInvalidFrequency indicates the recurrence frequency is not supported.
var ErrInvalidFrequency = errors.New("recurrence: invalid frequency")

// ErrInvalidWindow indicates Until is before From or either bound is missing.
var ErrInvalidWindow = errors.New("recurrence: run requires from <= until")

// ErrTooManyOccurrences indicates the run spans more than MaxOccurrences days.
var ErrTooManyOccurrences = fmt.Errorf("recurrence: run exceeds %d occurrences", MaxOccurrences)

// Expand produces the occurrences of rule in chronological order.
//
// Daily rules cover every day of the window, or only the listed weekdays when
// any are given. Weekly rules require at least one weekday.
func Expand(rule Rule) ([]Occurrence, error) {
	if rule.From.IsZero() || rule.Until.IsZero() || rule.Until.Before(rule.From) {
		return nil, ErrInvalidWindow
	}
	if rule.Until.DayNumber()-rule.From.DayNumber() >= MaxOccurrences {
		return nil, ErrTooManyOccurrences
	}

	weekdaySet := make(map[time.Weekday]struct{}, len(rule.Weekdays))
	for _, day := range rule.Weekdays {
		weekdaySet[day] = struct{}{}
	}

	occurrences := make([]Occurrence, 0)
	for day := rule.From; !day.After(rule.Until); day = day.AddDays(1) {
		include, err := shouldInclude(rule.Frequency, weekdaySet, day.Weekday())
		if err != nil {
			return nil, err
		}
		if include {
			occurrences = append(occurrences, Occurrence{Day: day, Start: day.At(rule.At)})
		}
	}

	return occurrences, nil
}

func shouldInclude(freq Frequency, weekdaySet map[time.Weekday]struct{}, day time.Weekday) (bool, error) {
	switch freq {
	case FrequencyDaily:
		if len(weekdaySet) == 0 {
			return true, nil
		}
		_, ok := weekdaySet[day]
		return ok, nil
	case FrequencyWeekly:
		if len(weekdaySet) == 0 {
			return false, nil
		}
		_, ok := weekdaySet[day]
		return ok, nil
	case FrequencyUnspecified:
		fallthrough
	default:
		return false, ErrInvalidFrequency
	}
}

// ParseFrequency accepts "daily" and "weekly".
func ParseFrequency(value string) (Frequency, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "daily":
		return FrequencyDaily, nil
	case "weekly":
		return FrequencyWeekly, nil
	}
	return FrequencyUnspecified, fmt.Errorf("%w: %q", ErrInvalidFrequency, value)
}

func (f Frequency) String() string {
	switch f {
	case FrequencyDaily:
		return "daily"
	case FrequencyWeekly:
		return "weekly"
	}
	return "unspecified"
}

// ParseWeekdays parses English weekday names, dropping duplicates and
// returning them Sunday first.
func ParseWeekdays(values []string) ([]time.Weekday, error) {
	out := make([]time.Weekday, 0, len(values))
	for _, v := range values {
		day, ok := weekdayNames[strings.ToLower(strings.TrimSpace(v))]
		if !ok {
			return nil, fmt.Errorf("recurrence: unknown weekday %q", v)
		}
		if !slices.Contains(out, day) {
			out = append(out, day)
		}
	}
	slices.Sort(out)
	return out, nil
}

var weekdayNames = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}
