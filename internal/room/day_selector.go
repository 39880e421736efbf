package room

import (
	"fmt"
	"strings"
	"time"

	"github.com/example/cinema-scheduler/internal/clock"
)

// DaySelector picks the days an unavailability rule applies to. It is either
// every day or one specific weekday; the zero value selects every day.
type DaySelector struct {
	weekday  time.Weekday
	specific bool
}

// AnyDay selects every day of the week.
func AnyDay() DaySelector {
	return DaySelector{}
}

// OnWeekday selects a single day of the week.
func OnWeekday(day time.Weekday) DaySelector {
	return DaySelector{weekday: day, specific: true}
}

// Weekday returns the selected weekday; ok is false for AnyDay.
func (s DaySelector) Weekday() (day time.Weekday, ok bool) {
	return s.weekday, s.specific
}

// IsAny reports whether the selector matches every day.
func (s DaySelector) IsAny() bool {
	return !s.specific
}

// Resolve projects the selector onto a concrete date: AnyDay keeps the date,
// a weekday selector moves forward to the next occurrence of that weekday,
// keeping the date when it already falls on it.
func (s DaySelector) Resolve(date clock.Date) clock.Date {
	if !s.specific {
		return date
	}
	offset := (int(s.weekday) - int(date.Weekday()) + 7) % 7
	return date.AddDays(offset)
}

func (s DaySelector) String() string {
	if !s.specific {
		return "any"
	}
	return strings.ToLower(s.weekday.String())
}

// ParseDaySelector accepts "any" (or an empty string) and English weekday names.
func ParseDaySelector(value string) (DaySelector, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "any", "every", "daily":
		return AnyDay(), nil
	case "sunday":
		return OnWeekday(time.Sunday), nil
	case "monday":
		return OnWeekday(time.Monday), nil
	case "tuesday":
		return OnWeekday(time.Tuesday), nil
	case "wednesday":
		return OnWeekday(time.Wednesday), nil
	case "thursday":
		return OnWeekday(time.Thursday), nil
	case "friday":
		return OnWeekday(time.Friday), nil
	case "saturday":
		return OnWeekday(time.Saturday), nil
	}
	return DaySelector{}, fmt.Errorf("room: unknown day selector %q", value)
}

// MarshalText encodes the selector as "any" or a lower-case weekday name.
func (s DaySelector) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText decodes values accepted by ParseDaySelector.
func (s *DaySelector) UnmarshalText(text []byte) error {
	parsed, err := ParseDaySelector(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
