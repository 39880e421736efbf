package scheduler

import (
	"slices"

	"github.com/example/cinema-scheduler/internal/clock"
)

// DailySchedule holds every room schedule of a single day keyed by room ID.
type DailySchedule struct {
	Day           clock.Date
	RoomSchedules map[string]RoomDaySchedule
}

// Schedule is a list of daily schedules ordered by day.
type Schedule struct {
	SchedulesByDay []DailySchedule
}

// BuildSchedule groups room schedules by day and orders the groups by day.
// When two schedules share a room and day the later one wins.
func BuildSchedule(roomSchedules []RoomDaySchedule) Schedule {
	byDay := make(map[clock.Date]map[string]RoomDaySchedule)
	for _, rs := range roomSchedules {
		rooms, ok := byDay[rs.day]
		if !ok {
			rooms = make(map[string]RoomDaySchedule)
			byDay[rs.day] = rooms
		}
		rooms[rs.room.ID] = rs
	}

	days := make([]DailySchedule, 0, len(byDay))
	for day, rooms := range byDay {
		days = append(days, DailySchedule{Day: day, RoomSchedules: rooms})
	}
	slices.SortFunc(days, func(a, b DailySchedule) int {
		return a.Day.Compare(b.Day)
	})
	return Schedule{SchedulesByDay: days}
}
