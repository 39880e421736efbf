// Package clock provides calendar date and time-of-day values on a single
// wall-clock calendar. Date-times are represented as time.Time in UTC.
package clock

import (
	"fmt"
	"time"
)

const (
	dateLayout     = "2006-01-02"
	timeLayout     = "15:04"
	dateTimeLayout = "2006-01-02T15:04"
	// Seconds and fractions are optional under this layout.
	preciseDateTimeLayout = "2006-01-02T15:04:05.999999999"
)

// Date is a calendar day without a time-of-day component.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// NewDate returns a normalized Date, so NewDate(2022, 1, 32) is 2022-02-01.
func NewDate(year int, month time.Month, day int) Date {
	return DateOf(time.Date(year, month, day, 0, 0, 0, 0, time.UTC))
}

// DateOf returns the calendar day of t in t's own location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(value string) (Date, error) {
	t, err := time.Parse(dateLayout, value)
	if err != nil {
		return Date{}, fmt.Errorf("clock: invalid date %q: %w", value, err)
	}
	return DateOf(t), nil
}

// MustDate is ParseDate for literals; it panics on malformed input.
func MustDate(value string) Date {
	d, err := ParseDate(value)
	if err != nil {
		panic(err)
	}
	return d
}

// Midnight returns the start of the day in UTC.
func (d Date) Midnight() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

// At combines the date with a time of day.
func (d Date) At(t TimeOfDay) time.Time {
	return d.Midnight().Add(time.Duration(t))
}

// AddDays returns the date n days later (earlier when n is negative).
func (d Date) AddDays(n int) Date {
	return DateOf(d.Midnight().AddDate(0, 0, n))
}

// Weekday reports the day of the week.
func (d Date) Weekday() time.Weekday {
	return d.Midnight().Weekday()
}

// Compare returns -1, 0 or +1 depending on whether d is before, equal to or after other.
func (d Date) Compare(other Date) int {
	return d.Midnight().Compare(other.Midnight())
}

// Before reports whether d is strictly before other.
func (d Date) Before(other Date) bool {
	return d.Compare(other) < 0
}

// After reports whether d is strictly after other.
func (d Date) After(other Date) bool {
	return d.Compare(other) > 0
}

// IsZero reports whether d is the zero Date.
func (d Date) IsZero() bool {
	return d == Date{}
}

// DayNumber returns the number of days since 1970-01-01; it orders dates in external indexes.
func (d Date) DayNumber() int64 {
	return d.Midnight().Unix() / int64(24*60*60)
}

func (d Date) String() string {
	return d.Midnight().Format(dateLayout)
}

// MarshalText encodes the date as YYYY-MM-DD.
func (d Date) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText decodes a YYYY-MM-DD date.
func (d *Date) UnmarshalText(text []byte) error {
	parsed, err := ParseDate(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// ParseDateTime parses a wall-clock date-time. "2006-01-02T15:04", the same with
// seconds, and RFC 3339 are accepted; RFC 3339 values keep their local wall
// clock and drop the offset.
func ParseDateTime(value string) (time.Time, error) {
	for _, layout := range []string{dateTimeLayout, preciseDateTimeLayout} {
		if t, err := time.Parse(layout, value); err == nil {
			return t, nil
		}
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("clock: invalid date-time %q", value)
	}
	return DateOf(t).At(TimeOf(t)), nil
}

// FormatDateTime renders a wall-clock date-time as "2006-01-02T15:04".
func FormatDateTime(t time.Time) string {
	return t.Format(dateTimeLayout)
}
