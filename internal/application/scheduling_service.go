package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/example/cinema-scheduler/internal/clock"
	"github.com/example/cinema-scheduler/internal/events"
	"github.com/example/cinema-scheduler/internal/interval"
	"github.com/example/cinema-scheduler/internal/metrics"
	"github.com/example/cinema-scheduler/internal/persistence"
	"github.com/example/cinema-scheduler/internal/room"
	"github.com/example/cinema-scheduler/internal/scheduler"
)

const serviceName = "SchedulingService"

// DefaultOpeningHours are used for room-days that have no stored schedule yet.
var DefaultOpeningHours = interval.New(clock.NewTimeOfDay(8, 0), clock.NewTimeOfDay(22, 0))

// DefaultMaxStaleRetries bounds how often AddScreening re-reads after a lost race.
const DefaultMaxStaleRetries = 2

// DefaultPublishTimeout bounds how long a committed screening waits on the publisher.
const DefaultPublishTimeout = 2 * time.Second

// ScheduleEntity is a room-day schedule with its stored version.
type ScheduleEntity = persistence.VersionedEntity[scheduler.RoomDaySchedule]

// AddScreeningResult is the committed schedule and the screening that was added.
type AddScreeningResult struct {
	Schedule  ScheduleEntity
	Screening scheduler.Screening
}

// SchedulingService adds screenings to room-day schedules and assembles weekly views.
type SchedulingService struct {
	movies    persistence.MovieRepository
	rooms     persistence.RoomRepository
	schedules persistence.RoomDayScheduleRepository

	publisher       events.Publisher
	metrics         *metrics.Metrics
	logger          *slog.Logger
	openingHours    room.TimeRange
	maxStaleRetries int
	publishTimeout  time.Duration
	now             func() time.Time
}

// Option customises a SchedulingService.
type Option func(*SchedulingService)

// WithOpeningHours sets the operating hours of new room-day schedules.
func WithOpeningHours(hours room.TimeRange) Option {
	return func(s *SchedulingService) { s.openingHours = hours }
}

// WithMaxStaleRetries sets how many times a stale save is retried; 0 disables retries.
func WithMaxStaleRetries(n int) Option {
	return func(s *SchedulingService) {
		if n >= 0 {
			s.maxStaleRetries = n
		}
	}
}

// WithPublisher sets the event publisher.
func WithPublisher(p events.Publisher) Option {
	return func(s *SchedulingService) {
		if p != nil {
			s.publisher = p
		}
	}
}

// WithPublishTimeout bounds each publish call; non-positive values are ignored.
func WithPublishTimeout(d time.Duration) Option {
	return func(s *SchedulingService) {
		if d > 0 {
			s.publishTimeout = d
		}
	}
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *SchedulingService) { s.metrics = m }
}

// WithLogger sets the base logger used when the context carries none.
func WithLogger(logger *slog.Logger) Option {
	return func(s *SchedulingService) { s.logger = logger }
}

// WithClock overrides the time source used for event timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *SchedulingService) {
		if now != nil {
			s.now = now
		}
	}
}

// NewSchedulingService wires the repositories the service depends on.
func NewSchedulingService(movies persistence.MovieRepository, rooms persistence.RoomRepository, schedules persistence.RoomDayScheduleRepository, opts ...Option) *SchedulingService {
	s := &SchedulingService{
		movies:          movies,
		rooms:           rooms,
		schedules:       schedules,
		publisher:       events.NoopPublisher{},
		openingHours:    DefaultOpeningHours,
		maxStaleRetries: DefaultMaxStaleRetries,
		publishTimeout:  DefaultPublishTimeout,
		now:             time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// OpeningHours returns the operating hours applied to new room-days.
func (s *SchedulingService) OpeningHours() room.TimeRange {
	return s.openingHours
}

// AddScreening schedules movieID in roomID starting at the wall-clock time start.
//
// Business-rule failures are returned as the scheduler's typed errors and are
// never retried. A stale save re-reads the schedule and reapplies the
// screening up to the configured number of retries.
func (s *SchedulingService) AddScreening(ctx context.Context, roomID, movieID string, start time.Time) (result AddScreeningResult, err error) {
	logger := serviceLogger(ctx, s.logger, serviceName, "AddScreening",
		"room_id", roomID, "movie_id", movieID, "start", clock.FormatDateTime(start))
	started := s.now()
	defer func() {
		outcome := "success"
		if err != nil {
			outcome = ErrorKind(err)
			logger.WarnContext(ctx, "screening rejected", "error_kind", outcome, "error", err)
		}
		s.metrics.ObserveScreening(outcome, s.now().Sub(started))
	}()

	m, err := s.movies.GetMovie(ctx, movieID)
	if err != nil {
		return AddScreeningResult{}, errOrNotFound(err, func() error { return &MovieNotFoundError{MovieID: movieID} })
	}

	day := clock.DateOf(start)
	at := clock.TimeOf(start)

	for attempt := 0; ; attempt++ {
		current, err := s.loadOrCreate(ctx, roomID, day)
		if err != nil {
			return AddScreeningResult{}, err
		}

		updated, err := current.Entity.AddScreening(m, at)
		if err != nil {
			return AddScreeningResult{}, err
		}

		next := ScheduleEntity{Version: current.Version + 1, Entity: updated}
		err = s.schedules.Save(ctx, next)
		if errors.Is(err, persistence.ErrStaleVersion) && attempt < s.maxStaleRetries {
			s.metrics.IncStaleRetry()
			logger.InfoContext(ctx, "retrying after stale version", "attempt", attempt+1, "error", err)
			continue
		}
		if err != nil {
			return AddScreeningResult{}, fmt.Errorf("save room-day schedule: %w", err)
		}

		screening, err := scheduler.NewScreening(m, updated.Room(), start)
		if err != nil {
			return AddScreeningResult{}, err
		}
		result = AddScreeningResult{Schedule: next, Screening: screening}
		break
	}

	logger.InfoContext(ctx, "screening scheduled", "version", result.Schedule.Version)
	s.publish(ctx, logger, roomID, result)
	return result, nil
}

func (s *SchedulingService) publish(ctx context.Context, logger *slog.Logger, roomID string, result AddScreeningResult) {
	event := events.NewScreeningScheduled(roomID, result.Screening, result.Schedule.Version, s.now())
	ctx, cancel := context.WithTimeout(ctx, s.publishTimeout)
	defer cancel()
	if err := s.publisher.PublishScreeningScheduled(ctx, event); err != nil {
		s.metrics.IncPublished("error")
		logger.ErrorContext(ctx, "failed to publish screening event", "event_id", event.EventID, "error", err)
		return
	}
	s.metrics.IncPublished("ok")
}

// loadOrCreate returns the stored schedule or a fresh version 0 schedule for a known room.
func (s *SchedulingService) loadOrCreate(ctx context.Context, roomID string, day clock.Date) (ScheduleEntity, error) {
	current, err := s.schedules.Get(ctx, roomID, day)
	if err == nil {
		return current, nil
	}
	if !errors.Is(err, persistence.ErrNotFound) {
		return ScheduleEntity{}, fmt.Errorf("load room-day schedule: %w", err)
	}

	r, err := s.rooms.GetRoom(ctx, roomID)
	if err != nil {
		return ScheduleEntity{}, errOrNotFound(err, func() error { return &RoomNotFoundError{RoomID: roomID} })
	}
	return ScheduleEntity{Version: 0, Entity: scheduler.NewRoomDaySchedule(r, day, s.openingHours)}, nil
}

// RoomDaySchedule returns the stored schedule of a room for a day, or an empty
// version 0 schedule when nothing has been scheduled yet.
func (s *SchedulingService) RoomDaySchedule(ctx context.Context, roomID string, day clock.Date) (ScheduleEntity, error) {
	return s.loadOrCreate(ctx, roomID, day)
}

// WeeklySchedule returns every stored room-day schedule of the Monday-to-Sunday
// week containing day, grouped and ordered by day.
func (s *SchedulingService) WeeklySchedule(ctx context.Context, day clock.Date) (scheduler.Schedule, error) {
	monday := MondayOf(day)
	sunday := monday.AddDays(6)

	logger := serviceLogger(ctx, s.logger, serviceName, "WeeklySchedule", "from", monday.String(), "to", sunday.String())

	roomSchedules, err := s.schedules.AllBetween(ctx, monday, sunday)
	if err != nil {
		logger.ErrorContext(ctx, "failed to load weekly schedules", "error", err)
		return scheduler.Schedule{}, fmt.Errorf("load weekly schedules: %w", err)
	}
	logger.DebugContext(ctx, "weekly schedules loaded", "count", len(roomSchedules))
	return scheduler.BuildSchedule(roomSchedules), nil
}

// MondayOf returns the Monday on or before day.
func MondayOf(day clock.Date) clock.Date {
	offset := (int(day.Weekday()) + 6) % 7
	return day.AddDays(-offset)
}
