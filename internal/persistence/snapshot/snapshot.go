// Package snapshot encodes room-day schedules as self-contained JSON documents
// so stores can persist them without consulting the catalog on load.
package snapshot

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/example/cinema-scheduler/internal/clock"
	"github.com/example/cinema-scheduler/internal/interval"
	"github.com/example/cinema-scheduler/internal/movie"
	"github.com/example/cinema-scheduler/internal/room"
	"github.com/example/cinema-scheduler/internal/scheduler"
)

// FormatVersion is bumped whenever the document layout changes incompatibly.
const FormatVersion = 1

type document struct {
	Format         int               `json:"format"`
	Room           roomRecord        `json:"room"`
	Day            clock.Date        `json:"day"`
	OperatingHours hoursRecord       `json:"operating_hours"`
	Screenings     []screeningRecord `json:"screenings"`
}

type hoursRecord struct {
	Start clock.TimeOfDay `json:"start"`
	End   clock.TimeOfDay `json:"end"`
}

type ruleRecord struct {
	Day   room.DaySelector `json:"day"`
	Hours hoursRecord      `json:"hours"`
}

type roomRecord struct {
	ID             string       `json:"id"`
	Name           string       `json:"name"`
	CleanUp        string       `json:"clean_up"`
	Unavailability []ruleRecord `json:"unavailability,omitempty"`
}

type movieRecord struct {
	ID                string        `json:"id"`
	Name              string        `json:"name"`
	Duration          string        `json:"duration"`
	AllowedStarts     []hoursRecord `json:"allowed_starts"`
	Requires3DGlasses bool          `json:"requires_3d_glasses"`
}

type screeningRecord struct {
	Movie         movieRecord `json:"movie"`
	Start         time.Time   `json:"start"`
	TotalDuration string      `json:"total_duration"`
}

// Encode renders the schedule as JSON.
func Encode(s scheduler.RoomDaySchedule) ([]byte, error) {
	doc := document{
		Format:         FormatVersion,
		Room:           fromRoom(s.Room()),
		Day:            s.Day(),
		OperatingHours: fromHours(s.OperatingHours()),
		Screenings:     make([]screeningRecord, 0, s.Len()),
	}
	for _, sc := range s.Screenings() {
		doc.Screenings = append(doc.Screenings, screeningRecord{
			Movie:         fromMovie(sc.Movie()),
			Start:         sc.Start(),
			TotalDuration: sc.TotalDuration().String(),
		})
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("snapshot: encode schedule: %w", err)
	}
	return data, nil
}

// Decode rebuilds a schedule from a document produced by Encode.
func Decode(data []byte) (scheduler.RoomDaySchedule, error) {
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return scheduler.RoomDaySchedule{}, fmt.Errorf("snapshot: decode schedule: %w", err)
	}
	if doc.Format != FormatVersion {
		return scheduler.RoomDaySchedule{}, fmt.Errorf("snapshot: unsupported format %d", doc.Format)
	}

	r, err := doc.Room.toRoom()
	if err != nil {
		return scheduler.RoomDaySchedule{}, err
	}
	screenings := make([]scheduler.Screening, 0, len(doc.Screenings))
	for _, rec := range doc.Screenings {
		m, err := rec.Movie.toMovie()
		if err != nil {
			return scheduler.RoomDaySchedule{}, err
		}
		total, err := time.ParseDuration(rec.TotalDuration)
		if err != nil {
			return scheduler.RoomDaySchedule{}, fmt.Errorf("snapshot: screening duration: %w", err)
		}
		screenings = append(screenings, scheduler.RestoreScreening(m, rec.Start.UTC(), total))
	}
	return scheduler.RestoreRoomDaySchedule(r, doc.Day, doc.OperatingHours.toRange(), screenings), nil
}

func fromHours(h room.TimeRange) hoursRecord {
	return hoursRecord{Start: h.Start, End: h.End}
}

func (h hoursRecord) toRange() room.TimeRange {
	return interval.New(h.Start, h.End)
}

func fromRoom(r room.Room) roomRecord {
	rec := roomRecord{ID: r.ID, Name: r.Name, CleanUp: r.CleanUp.String()}
	for _, rule := range r.Unavailability() {
		rec.Unavailability = append(rec.Unavailability, ruleRecord{Day: rule.Day, Hours: fromHours(rule.Hours)})
	}
	return rec
}

func (rec roomRecord) toRoom() (room.Room, error) {
	cleanUp, err := time.ParseDuration(rec.CleanUp)
	if err != nil {
		return room.Room{}, fmt.Errorf("snapshot: room %s clean-up: %w", rec.ID, err)
	}
	rules := make([]room.UnavailabilityRule, 0, len(rec.Unavailability))
	for _, rule := range rec.Unavailability {
		rules = append(rules, room.UnavailabilityRule{Day: rule.Day, Hours: rule.Hours.toRange()})
	}
	return room.New(rec.ID, rec.Name, cleanUp, rules...), nil
}

func fromMovie(m movie.Movie) movieRecord {
	rec := movieRecord{
		ID:                m.ID,
		Name:              m.Name,
		Duration:          m.Duration.String(),
		AllowedStarts:     make([]hoursRecord, 0, len(m.AllowedStarts)),
		Requires3DGlasses: m.Requires3DGlasses,
	}
	for _, w := range m.AllowedStarts {
		rec.AllowedStarts = append(rec.AllowedStarts, fromHours(w))
	}
	return rec
}

func (rec movieRecord) toMovie() (movie.Movie, error) {
	d, err := time.ParseDuration(rec.Duration)
	if err != nil {
		return movie.Movie{}, fmt.Errorf("snapshot: movie %s duration: %w", rec.ID, err)
	}
	windows := make([]movie.StartWindow, 0, len(rec.AllowedStarts))
	for _, w := range rec.AllowedStarts {
		windows = append(windows, w.toRange())
	}
	return movie.Movie{
		ID:                rec.ID,
		Name:              rec.Name,
		Duration:          d,
		AllowedStarts:     windows,
		Requires3DGlasses: rec.Requires3DGlasses,
	}, nil
}
