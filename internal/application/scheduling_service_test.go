package application

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/cinema-scheduler/internal/clock"
	"github.com/example/cinema-scheduler/internal/events"
	"github.com/example/cinema-scheduler/internal/metrics"
	"github.com/example/cinema-scheduler/internal/movie"
	"github.com/example/cinema-scheduler/internal/persistence"
	"github.com/example/cinema-scheduler/internal/room"
	"github.com/example/cinema-scheduler/internal/scheduler"
	"github.com/example/cinema-scheduler/internal/testfixtures"
)

type staticCatalog struct {
	movies map[string]movie.Movie
	rooms  map[string]room.Room
}

func newStaticCatalog(movies []movie.Movie, rooms []room.Room) *staticCatalog {
	c := &staticCatalog{movies: map[string]movie.Movie{}, rooms: map[string]room.Room{}}
	for _, m := range movies {
		c.movies[m.ID] = m
	}
	for _, r := range rooms {
		c.rooms[r.ID] = r
	}
	return c
}

func (c *staticCatalog) GetMovie(_ context.Context, id string) (movie.Movie, error) {
	m, ok := c.movies[id]
	if !ok {
		return movie.Movie{}, persistence.ErrNotFound
	}
	return m, nil
}

func (c *staticCatalog) GetRoom(_ context.Context, id string) (room.Room, error) {
	r, ok := c.rooms[id]
	if !ok {
		return room.Room{}, persistence.ErrNotFound
	}
	return r, nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.ScreeningScheduled
	err    error
}

func (p *recordingPublisher) PublishScreeningScheduled(_ context.Context, e events.ScreeningScheduled) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return p.err
}

// blockingPublisher waits until the publish context is done.
type blockingPublisher struct {
	hadDeadline bool
}

func (p *blockingPublisher) PublishScreeningScheduled(ctx context.Context, _ events.ScreeningScheduled) error {
	_, p.hadDeadline = ctx.Deadline()
	<-ctx.Done()
	return ctx.Err()
}

// racingStore lets a competing writer commit right before each of the first
// `races` saves, so those saves lose the optimistic-concurrency race.
type racingStore struct {
	*persistence.MemoryStore
	races      int
	competitor func(ctx context.Context, store *persistence.MemoryStore) error
	saves      int
}

func (s *racingStore) Save(ctx context.Context, e persistence.VersionedEntity[scheduler.RoomDaySchedule]) error {
	s.saves++
	if s.races > 0 {
		s.races--
		if err := s.competitor(ctx, s.MemoryStore); err != nil {
			return err
		}
	}
	return s.MemoryStore.Save(ctx, e)
}

type alwaysStaleStore struct {
	*persistence.MemoryStore
	saves int
}

func (s *alwaysStaleStore) Save(_ context.Context, e persistence.VersionedEntity[scheduler.RoomDaySchedule]) error {
	s.saves++
	return &persistence.StaleVersionError{Expected: e.Version, Actual: e.Version}
}

type fixture struct {
	room    room.Room
	movie   movie.Movie
	catalog *staticCatalog
}

func newFixture() fixture {
	r := testfixtures.NewRoom(testfixtures.WithRoomID("room-r"))
	m := testfixtures.NewMovie(testfixtures.WithMovieID("movie-m"))
	return fixture{room: r, movie: m, catalog: newStaticCatalog([]movie.Movie{m}, []room.Room{r})}
}

func dateTime(t *testing.T, value string) time.Time {
	t.Helper()
	dt, err := clock.ParseDateTime(value)
	require.NoError(t, err)
	return dt
}

func TestAddScreeningStoresIncrementingVersions(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newFixture()
	store := persistence.NewMemoryStore()
	svc := NewSchedulingService(f.catalog, f.catalog, store)

	first, err := svc.AddScreening(ctx, f.room.ID, f.movie.ID, dateTime(t, "2022-01-04T10:00"))
	require.NoError(t, err)
	assert.Equal(t, 1, first.Schedule.Version)
	assert.Equal(t, dateTime(t, "2022-01-04T10:00"), first.Screening.Start())

	second, err := svc.AddScreening(ctx, f.room.ID, f.movie.ID, dateTime(t, "2022-01-04T14:00"))
	require.NoError(t, err)
	assert.Equal(t, 2, second.Schedule.Version)

	stored, err := store.Get(ctx, f.room.ID, clock.MustDate("2022-01-04"))
	require.NoError(t, err)
	assert.Equal(t, 2, stored.Version)
	assert.Equal(t, []string{"10:00", "14:00"}, testfixtures.StartTimes(stored.Entity))
	assert.Equal(t, DefaultOpeningHours, stored.Entity.OperatingHours())
	assert.Equal(t, DefaultOpeningHours, svc.OpeningHours())
}

func TestAddScreeningUnknownMovie(t *testing.T) {
	t.Parallel()

	f := newFixture()
	store := persistence.NewMemoryStore()
	svc := NewSchedulingService(f.catalog, f.catalog, store)

	_, err := svc.AddScreening(context.Background(), f.room.ID, "missing", dateTime(t, "2022-01-04T10:00"))

	var movieErr *MovieNotFoundError
	require.ErrorAs(t, err, &movieErr)
	assert.Equal(t, "missing", movieErr.MovieID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAddScreeningUnknownRoom(t *testing.T) {
	t.Parallel()

	f := newFixture()
	svc := NewSchedulingService(f.catalog, f.catalog, persistence.NewMemoryStore())

	_, err := svc.AddScreening(context.Background(), "missing", f.movie.ID, dateTime(t, "2022-01-04T10:00"))

	var roomErr *RoomNotFoundError
	require.ErrorAs(t, err, &roomErr)
	assert.Equal(t, "missing", roomErr.RoomID)
}

func TestAddScreeningPropagatesBusinessErrorsUnchanged(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newFixture()
	store := persistence.NewMemoryStore()
	m := metrics.New()
	svc := NewSchedulingService(f.catalog, f.catalog, store, WithMetrics(m))

	_, err := svc.AddScreening(ctx, f.room.ID, f.movie.ID, dateTime(t, "2022-01-04T10:00"))
	require.NoError(t, err)

	_, err = svc.AddScreening(ctx, f.room.ID, f.movie.ID, dateTime(t, "2022-01-04T12:09"))
	var conflictErr *scheduler.ConflictingScreeningsError
	require.ErrorAs(t, err, &conflictErr)
	require.Len(t, conflictErr.Conflicts, 1)

	_, err = svc.AddScreening(ctx, f.room.ID, f.movie.ID, dateTime(t, "2022-01-04T07:59"))
	var hoursErr *scheduler.OutsideOperatingHoursError
	require.ErrorAs(t, err, &hoursErr)

	stored, err := store.Get(ctx, f.room.ID, clock.MustDate("2022-01-04"))
	require.NoError(t, err)
	assert.Equal(t, 1, stored.Version)
	assert.Equal(t, []string{"10:00"}, testfixtures.StartTimes(stored.Entity))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.ScreeningsTotal.WithLabelValues("success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ScreeningsTotal.WithLabelValues(KindConflictingScreenings)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ScreeningsTotal.WithLabelValues(KindOutsideOperatingHours)))
}

func TestAddScreeningHonoursOpeningHoursOption(t *testing.T) {
	t.Parallel()

	f := newFixture()
	svc := NewSchedulingService(f.catalog, f.catalog, persistence.NewMemoryStore(),
		WithOpeningHours(testfixtures.Hours("10:00", "12:00")))
	assert.Equal(t, testfixtures.Hours("10:00", "12:00"), svc.OpeningHours())

	_, err := svc.AddScreening(context.Background(), f.room.ID, f.movie.ID, dateTime(t, "2022-01-04T09:00"))
	var hoursErr *scheduler.OutsideOperatingHoursError
	require.ErrorAs(t, err, &hoursErr)
	assert.Equal(t, testfixtures.Hours("10:00", "12:00"), hoursErr.OperatingHours)
}

func TestAddScreeningRetriesAfterStaleVersion(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newFixture()
	day := clock.MustDate("2022-01-04")
	store := &racingStore{
		MemoryStore: persistence.NewMemoryStore(),
		races:       1,
		competitor: func(ctx context.Context, store *persistence.MemoryStore) error {
			s := testfixtures.NewRoomDaySchedule(t, f.room, day, f.movie, "18:00")
			return store.Save(ctx, persistence.VersionedEntity[scheduler.RoomDaySchedule]{Version: 1, Entity: s})
		},
	}
	m := metrics.New()
	svc := NewSchedulingService(f.catalog, f.catalog, store, WithMetrics(m))

	result, err := svc.AddScreening(ctx, f.room.ID, f.movie.ID, dateTime(t, "2022-01-04T10:00"))
	require.NoError(t, err)

	assert.Equal(t, 2, result.Schedule.Version)
	assert.Equal(t, []string{"10:00", "18:00"}, testfixtures.StartTimes(result.Schedule.Entity))
	assert.Equal(t, 2, store.saves)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.StaleRetries))
}

func TestAddScreeningRetryReappliesValidation(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newFixture()
	day := clock.MustDate("2022-01-04")
	store := &racingStore{
		MemoryStore: persistence.NewMemoryStore(),
		races:       1,
		competitor: func(ctx context.Context, store *persistence.MemoryStore) error {
			// The competitor takes the same slot.
			s := testfixtures.NewRoomDaySchedule(t, f.room, day, f.movie, "10:30")
			return store.Save(ctx, persistence.VersionedEntity[scheduler.RoomDaySchedule]{Version: 1, Entity: s})
		},
	}
	svc := NewSchedulingService(f.catalog, f.catalog, store)

	_, err := svc.AddScreening(ctx, f.room.ID, f.movie.ID, dateTime(t, "2022-01-04T10:00"))

	var conflictErr *scheduler.ConflictingScreeningsError
	require.ErrorAs(t, err, &conflictErr)
	assert.Equal(t, 1, store.saves)
}

func TestAddScreeningGivesUpAfterMaxStaleRetries(t *testing.T) {
	t.Parallel()

	f := newFixture()
	store := &alwaysStaleStore{MemoryStore: persistence.NewMemoryStore()}
	svc := NewSchedulingService(f.catalog, f.catalog, store, WithMaxStaleRetries(2))

	_, err := svc.AddScreening(context.Background(), f.room.ID, f.movie.ID, dateTime(t, "2022-01-04T10:00"))

	assert.ErrorIs(t, err, persistence.ErrStaleVersion)
	assert.Equal(t, KindStaleVersion, ErrorKind(err))
	assert.Equal(t, 3, store.saves)
}

func TestAddScreeningWithoutRetries(t *testing.T) {
	t.Parallel()

	f := newFixture()
	store := &alwaysStaleStore{MemoryStore: persistence.NewMemoryStore()}
	svc := NewSchedulingService(f.catalog, f.catalog, store, WithMaxStaleRetries(0))

	_, err := svc.AddScreening(context.Background(), f.room.ID, f.movie.ID, dateTime(t, "2022-01-04T10:00"))

	assert.ErrorIs(t, err, persistence.ErrStaleVersion)
	assert.Equal(t, 1, store.saves)
}

func TestAddScreeningPublishesEvent(t *testing.T) {
	t.Parallel()

	f := newFixture()
	publisher := &recordingPublisher{}
	fixed := time.Date(2022, 1, 3, 12, 0, 0, 0, time.UTC)
	svc := NewSchedulingService(f.catalog, f.catalog, persistence.NewMemoryStore(),
		WithPublisher(publisher), WithClock(func() time.Time { return fixed }))

	_, err := svc.AddScreening(context.Background(), f.room.ID, f.movie.ID, dateTime(t, "2022-01-04T10:00"))
	require.NoError(t, err)

	require.Len(t, publisher.events, 1)
	event := publisher.events[0]
	assert.Equal(t, f.room.ID, event.RoomID)
	assert.Equal(t, f.movie.ID, event.MovieID)
	assert.Equal(t, "2022-01-04T10:00", event.Start)
	assert.Equal(t, 1, event.Version)
	assert.Equal(t, fixed, event.OccurredAt)
}

func TestAddScreeningIgnoresPublishFailures(t *testing.T) {
	t.Parallel()

	f := newFixture()
	publisher := &recordingPublisher{err: errors.New("broker down")}
	m := metrics.New()
	svc := NewSchedulingService(f.catalog, f.catalog, persistence.NewMemoryStore(),
		WithPublisher(publisher), WithMetrics(m))

	result, err := svc.AddScreening(context.Background(), f.room.ID, f.movie.ID, dateTime(t, "2022-01-04T10:00"))
	require.NoError(t, err)
	assert.Equal(t, 1, result.Schedule.Version)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.EventsPublished.WithLabelValues("error")))
}

func TestAddScreeningBoundsSlowPublisher(t *testing.T) {
	t.Parallel()

	f := newFixture()
	publisher := &blockingPublisher{}
	m := metrics.New()
	svc := NewSchedulingService(f.catalog, f.catalog, persistence.NewMemoryStore(),
		WithPublisher(publisher), WithMetrics(m), WithPublishTimeout(20*time.Millisecond))

	started := time.Now()
	result, err := svc.AddScreening(context.Background(), f.room.ID, f.movie.ID, dateTime(t, "2022-01-04T10:00"))
	require.NoError(t, err)
	assert.Less(t, time.Since(started), DefaultPublishTimeout)
	assert.Equal(t, 1, result.Schedule.Version)
	assert.True(t, publisher.hadDeadline)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.EventsPublished.WithLabelValues("error")))
}

func TestWeeklySchedule(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newFixture()
	svc := NewSchedulingService(f.catalog, f.catalog, persistence.NewMemoryStore())

	tuesday, err := svc.AddScreening(ctx, f.room.ID, f.movie.ID, dateTime(t, "2022-01-04T10:00"))
	require.NoError(t, err)
	wednesday, err := svc.AddScreening(ctx, f.room.ID, f.movie.ID, dateTime(t, "2022-01-05T10:00"))
	require.NoError(t, err)

	for day := clock.MustDate("2022-01-03"); !day.After(clock.MustDate("2022-01-09")); day = day.AddDays(1) {
		t.Run(day.String(), func(t *testing.T) {
			schedule, err := svc.WeeklySchedule(ctx, day)
			require.NoError(t, err)

			require.Len(t, schedule.SchedulesByDay, 2)
			first, second := schedule.SchedulesByDay[0], schedule.SchedulesByDay[1]
			assert.Equal(t, clock.MustDate("2022-01-04"), first.Day)
			assert.Equal(t, clock.MustDate("2022-01-05"), second.Day)
			require.Len(t, first.RoomSchedules, 1)
			require.Len(t, second.RoomSchedules, 1)
			assert.Equal(t, testfixtures.StartTimes(tuesday.Schedule.Entity), testfixtures.StartTimes(first.RoomSchedules[f.room.ID]))
			assert.Equal(t, testfixtures.StartTimes(wednesday.Schedule.Entity), testfixtures.StartTimes(second.RoomSchedules[f.room.ID]))
		})
	}

	for _, outside := range []string{"2022-01-02", "2022-01-10"} {
		schedule, err := svc.WeeklySchedule(ctx, clock.MustDate(outside))
		require.NoError(t, err)
		assert.Empty(t, schedule.SchedulesByDay, outside)
	}
}

func TestRoomDaySchedule(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newFixture()
	svc := NewSchedulingService(f.catalog, f.catalog, persistence.NewMemoryStore())
	day := clock.MustDate("2022-01-04")

	empty, err := svc.RoomDaySchedule(ctx, f.room.ID, day)
	require.NoError(t, err)
	assert.Equal(t, 0, empty.Version)
	assert.Zero(t, empty.Entity.Len())

	_, err = svc.AddScreening(ctx, f.room.ID, f.movie.ID, dateTime(t, "2022-01-04T10:00"))
	require.NoError(t, err)

	stored, err := svc.RoomDaySchedule(ctx, f.room.ID, day)
	require.NoError(t, err)
	assert.Equal(t, 1, stored.Version)

	_, err = svc.RoomDaySchedule(ctx, "missing", day)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMondayOf(t *testing.T) {
	t.Parallel()

	for offset := 0; offset < 7; offset++ {
		day := clock.MustDate("2022-01-03").AddDays(offset)
		t.Run(fmt.Sprint(day), func(t *testing.T) {
			assert.Equal(t, clock.MustDate("2022-01-03"), MondayOf(day))
		})
	}
}
