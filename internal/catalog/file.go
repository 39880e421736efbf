// Package catalog loads the movie and room catalog from a YAML file and serves
// lookups from an in-memory snapshot that can be swapped on reload.
package catalog

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gosimple/slug"
	"gopkg.in/yaml.v3"

	"github.com/example/cinema-scheduler/internal/clock"
	"github.com/example/cinema-scheduler/internal/interval"
	"github.com/example/cinema-scheduler/internal/movie"
	"github.com/example/cinema-scheduler/internal/room"
)

// DefaultPath is used when no catalog path is configured.
const DefaultPath = "configs/catalog.yaml"

// WindowConfig is a time-of-day range written as HH:MM strings.
type WindowConfig struct {
	Start string `yaml:"start" validate:"required,hhmm"`
	End   string `yaml:"end" validate:"required,hhmm"`
}

// MovieConfig describes one movie.
type MovieConfig struct {
	ID                string         `yaml:"id"`
	Name              string         `yaml:"name" validate:"required"`
	DurationMinutes   int            `yaml:"duration_minutes" validate:"gt=0"`
	Requires3DGlasses bool           `yaml:"requires_3d_glasses"`
	AllowedStarts     []WindowConfig `yaml:"allowed_starts" validate:"dive"`
}

// UnavailabilityConfig blocks a room on a weekday ("any" or empty for every day).
type UnavailabilityConfig struct {
	Day   string `yaml:"day" validate:"omitempty,weekday"`
	Start string `yaml:"start" validate:"required,hhmm"`
	End   string `yaml:"end" validate:"required,hhmm"`
}

// RoomConfig describes one room.
type RoomConfig struct {
	ID             string                 `yaml:"id"`
	Name           string                 `yaml:"name" validate:"required"`
	CleanUpMinutes int                    `yaml:"clean_up_minutes" validate:"gte=0"`
	Unavailability []UnavailabilityConfig `yaml:"unavailability" validate:"dive"`
}

// File is the root of catalog.yaml.
type File struct {
	Movies []MovieConfig `yaml:"movies" validate:"dive"`
	Rooms  []RoomConfig  `yaml:"rooms" validate:"min=1,dive"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("hhmm", func(fl validator.FieldLevel) bool {
		_, err := clock.ParseTimeOfDay(fl.Field().String())
		return err == nil
	})
	_ = v.RegisterValidation("weekday", func(fl validator.FieldLevel) bool {
		_, err := room.ParseDaySelector(fl.Field().String())
		return err == nil
	})
	return v
}

// Load reads, parses and validates a catalog file.
func Load(path string) (*File, error) {
	if path == "" {
		path = DefaultPath
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates catalog YAML. Missing IDs are derived from names.
func Parse(data []byte) (*File, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	f.applyDefaults()
	if err := f.Validate(); err != nil {
		return nil, fmt.Errorf("validate catalog: %w", err)
	}
	return &f, nil
}

func (f *File) applyDefaults() {
	for i := range f.Movies {
		if strings.TrimSpace(f.Movies[i].ID) == "" {
			f.Movies[i].ID = slug.Make(f.Movies[i].Name)
		}
	}
	for i := range f.Rooms {
		if strings.TrimSpace(f.Rooms[i].ID) == "" {
			f.Rooms[i].ID = slug.Make(f.Rooms[i].Name)
		}
	}
}

// Validate checks field formats, unique IDs and that every range ends after it starts.
func (f *File) Validate() error {
	if err := validate.Struct(f); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			msgs := make([]string, 0, len(fieldErrs))
			for _, fe := range fieldErrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
			}
			return errors.New(strings.Join(msgs, "; "))
		}
		return err
	}

	movieIDs := make(map[string]bool, len(f.Movies))
	for i, m := range f.Movies {
		if movieIDs[m.ID] {
			return fmt.Errorf("movies[%d]: duplicate id %q", i, m.ID)
		}
		movieIDs[m.ID] = true
		for j, w := range m.AllowedStarts {
			if err := checkOrder(w.Start, w.End); err != nil {
				return fmt.Errorf("movies[%d].allowed_starts[%d]: %w", i, j, err)
			}
		}
	}

	roomIDs := make(map[string]bool, len(f.Rooms))
	for i, r := range f.Rooms {
		if roomIDs[r.ID] {
			return fmt.Errorf("rooms[%d]: duplicate id %q", i, r.ID)
		}
		roomIDs[r.ID] = true
		for j, u := range r.Unavailability {
			if err := checkOrder(u.Start, u.End); err != nil {
				return fmt.Errorf("rooms[%d].unavailability[%d]: %w", i, j, err)
			}
		}
	}
	return nil
}

func checkOrder(start, end string) error {
	s, err := clock.ParseTimeOfDay(start)
	if err != nil {
		return err
	}
	e, err := clock.ParseTimeOfDay(end)
	if err != nil {
		return err
	}
	if e.Compare(s) < 0 {
		return fmt.Errorf("end %s is before start %s", end, start)
	}
	return nil
}

// Movie converts the entry into a domain movie. An entry without windows may
// start at any time of day.
func (c MovieConfig) Movie() movie.Movie {
	windows := make([]movie.StartWindow, 0, len(c.AllowedStarts))
	for _, w := range c.AllowedStarts {
		windows = append(windows, interval.New(clock.MustTime(w.Start), clock.MustTime(w.End)))
	}
	return movie.New(c.ID, c.Name, time.Duration(c.DurationMinutes)*time.Minute, c.Requires3DGlasses, windows...)
}

// Room converts the entry into a domain room.
func (c RoomConfig) Room() room.Room {
	rules := make([]room.UnavailabilityRule, 0, len(c.Unavailability))
	for _, u := range c.Unavailability {
		day, _ := room.ParseDaySelector(u.Day)
		rules = append(rules, room.UnavailabilityRule{
			Day:   day,
			Hours: interval.New(clock.MustTime(u.Start), clock.MustTime(u.End)),
		})
	}
	return room.New(c.ID, c.Name, time.Duration(c.CleanUpMinutes)*time.Minute, rules...)
}
