package clock

import (
	"fmt"
	"time"
)

// TimeOfDay is the offset from midnight, in the range [0, 24h).
type TimeOfDay time.Duration

const preciseTimeLayout = "15:04:05.999999999"

const (
	// StartOfDay is 00:00.
	StartOfDay TimeOfDay = 0
	// EndOfDay is the last representable instant of a day, 23:59:59.999999999.
	EndOfDay = TimeOfDay(24*time.Hour - time.Nanosecond)
)

// NewTimeOfDay builds a time of day from hour and minute components.
func NewTimeOfDay(hour, minute int) TimeOfDay {
	return TimeOfDay(time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute)
}

// TimeOf returns the time-of-day component of t.
func TimeOf(t time.Time) TimeOfDay {
	h, m, s := t.Clock()
	return TimeOfDay(time.Duration(h)*time.Hour +
		time.Duration(m)*time.Minute +
		time.Duration(s)*time.Second +
		time.Duration(t.Nanosecond()))
}

// ParseTimeOfDay parses an HH:MM string. Seconds with an optional fraction
// ("23:59:59.999999999") are accepted as well.
func ParseTimeOfDay(value string) (TimeOfDay, error) {
	for _, layout := range []string{timeLayout, preciseTimeLayout} {
		if t, err := time.Parse(layout, value); err == nil {
			return TimeOf(t), nil
		}
	}
	return 0, fmt.Errorf("clock: invalid time %q, expected HH:MM", value)
}

// MustTime is ParseTimeOfDay for literals; it panics on malformed input.
func MustTime(value string) TimeOfDay {
	t, err := ParseTimeOfDay(value)
	if err != nil {
		panic(err)
	}
	return t
}

// Compare returns -1, 0 or +1 depending on whether t is before, equal to or after other.
func (t TimeOfDay) Compare(other TimeOfDay) int {
	switch {
	case t < other:
		return -1
	case t > other:
		return 1
	default:
		return 0
	}
}

func (t TimeOfDay) String() string {
	base := time.Date(2000, time.January, 1, 0, 0, 0, 0, time.UTC).Add(time.Duration(t))
	if time.Duration(t)%time.Minute != 0 {
		return base.Format(preciseTimeLayout)
	}
	return base.Format(timeLayout)
}

// MarshalText encodes the time of day as HH:MM.
func (t TimeOfDay) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText decodes an HH:MM time of day.
func (t *TimeOfDay) UnmarshalText(text []byte) error {
	parsed, err := ParseTimeOfDay(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}
