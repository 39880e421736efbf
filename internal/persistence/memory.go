package persistence

import (
	"context"
	"slices"
	"strings"
	"sync"

	"github.com/example/cinema-scheduler/internal/clock"
	"github.com/example/cinema-scheduler/internal/scheduler"
)

type scheduleKey struct {
	roomID string
	day    clock.Date
}

// MemoryStore keeps room-day schedules in process memory.
type MemoryStore struct {
	mu        sync.Mutex
	schedules map[scheduleKey]VersionedEntity[scheduler.RoomDaySchedule]
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{schedules: make(map[scheduleKey]VersionedEntity[scheduler.RoomDaySchedule])}
}

// Get returns the stored schedule for the room and day.
func (s *MemoryStore) Get(_ context.Context, roomID string, day clock.Date) (VersionedEntity[scheduler.RoomDaySchedule], error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entity, ok := s.schedules[scheduleKey{roomID: roomID, day: day}]
	if !ok {
		return VersionedEntity[scheduler.RoomDaySchedule]{}, ErrNotFound
	}
	return entity, nil
}

// Save stores the schedule when its version follows the stored one.
func (s *MemoryStore) Save(_ context.Context, schedule VersionedEntity[scheduler.RoomDaySchedule]) error {
	key := scheduleKey{roomID: schedule.Entity.Room().ID, day: schedule.Entity.Day()}

	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.schedules[key]
	if err := CheckVersion(current.Version, ok, schedule.Version); err != nil {
		return err
	}
	s.schedules[key] = schedule
	return nil
}

// AllBetween returns every schedule whose day lies in [start, end], ordered
// by day and then room ID.
func (s *MemoryStore) AllBetween(_ context.Context, start, end clock.Date) ([]scheduler.RoomDaySchedule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var result []scheduler.RoomDaySchedule
	for key, entity := range s.schedules {
		if key.day.Before(start) || key.day.After(end) {
			continue
		}
		result = append(result, entity.Entity)
	}
	SortSchedules(result)
	return result, nil
}

// SortSchedules orders schedules by day and then room ID.
func SortSchedules(schedules []scheduler.RoomDaySchedule) {
	slices.SortFunc(schedules, func(a, b scheduler.RoomDaySchedule) int {
		if c := a.Day().Compare(b.Day()); c != 0 {
			return c
		}
		return strings.Compare(a.Room().ID, b.Room().ID)
	})
}
