// Package storetest holds the behaviour every RoomDayScheduleRepository must show.
package storetest

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/cinema-scheduler/internal/clock"
	"github.com/example/cinema-scheduler/internal/persistence"
	"github.com/example/cinema-scheduler/internal/scheduler"
	"github.com/example/cinema-scheduler/internal/testfixtures"
)

// Factory returns a fresh, empty store for one subtest.
type Factory func(t *testing.T) persistence.RoomDayScheduleRepository

// Run exercises the optimistic-concurrency and range-query contract.
func Run(t *testing.T, newStore Factory) {
	t.Helper()

	t.Run("get missing returns ErrNotFound", func(t *testing.T) {
		store := newStore(t)
		_, err := store.Get(context.Background(), "nope", testfixtures.ReferenceDay())
		assert.ErrorIs(t, err, persistence.ErrNotFound)
	})

	t.Run("versions must follow one another", func(t *testing.T) {
		ctx := context.Background()
		store := newStore(t)
		r := testfixtures.NewRoom()
		m := testfixtures.NewMovie()
		day := testfixtures.ReferenceDay()

		first := testfixtures.NewRoomDaySchedule(t, r, day, m, "10:00")
		require.NoError(t, store.Save(ctx, persistence.VersionedEntity[scheduler.RoomDaySchedule]{Version: 1, Entity: first}))

		err := store.Save(ctx, persistence.VersionedEntity[scheduler.RoomDaySchedule]{Version: 1, Entity: first})
		var stale *persistence.StaleVersionError
		require.ErrorAs(t, err, &stale)
		assert.Equal(t, 1, stale.Expected)
		assert.Equal(t, 1, stale.Actual)
		assert.ErrorIs(t, err, persistence.ErrStaleVersion)

		second, err := first.AddScreening(m, clock.MustTime("14:00"))
		require.NoError(t, err)
		require.NoError(t, store.Save(ctx, persistence.VersionedEntity[scheduler.RoomDaySchedule]{Version: 2, Entity: second}))

		err = store.Save(ctx, persistence.VersionedEntity[scheduler.RoomDaySchedule]{Version: 4, Entity: second})
		assert.ErrorIs(t, err, persistence.ErrStaleVersion)

		got, err := store.Get(ctx, r.ID, day)
		require.NoError(t, err)
		assert.Equal(t, 2, got.Version)
		assert.Equal(t, []string{"10:00", "14:00"}, testfixtures.StartTimes(got.Entity))
		assert.True(t, got.Entity.Room().Equal(r))
	})

	t.Run("first save must be version one", func(t *testing.T) {
		store := newStore(t)
		s := testfixtures.NewRoomDaySchedule(t, testfixtures.NewRoom(), testfixtures.ReferenceDay(), testfixtures.NewMovie())

		err := store.Save(context.Background(), persistence.VersionedEntity[scheduler.RoomDaySchedule]{Version: 2, Entity: s})
		var stale *persistence.StaleVersionError
		require.ErrorAs(t, err, &stale)
		assert.Equal(t, 0, stale.Actual)
	})

	t.Run("all between is inclusive and ordered", func(t *testing.T) {
		ctx := context.Background()
		store := newStore(t)
		roomA := testfixtures.NewRoom(testfixtures.WithRoomID("a"))
		roomB := testfixtures.NewRoom(testfixtures.WithRoomID("b"))
		m := testfixtures.NewMovie()
		monday := clock.MustDate("2022-01-03")

		for _, s := range []scheduler.RoomDaySchedule{
			testfixtures.NewRoomDaySchedule(t, roomB, monday.AddDays(6), m, "10:00"),
			testfixtures.NewRoomDaySchedule(t, roomA, monday, m, "10:00"),
			testfixtures.NewRoomDaySchedule(t, roomB, monday, m, "12:00"),
			testfixtures.NewRoomDaySchedule(t, roomA, monday.AddDays(7), m, "10:00"),
			testfixtures.NewRoomDaySchedule(t, roomA, monday.AddDays(-1), m, "10:00"),
		} {
			require.NoError(t, store.Save(ctx, persistence.VersionedEntity[scheduler.RoomDaySchedule]{Version: 1, Entity: s}))
		}

		got, err := store.AllBetween(ctx, monday, monday.AddDays(6))
		require.NoError(t, err)
		require.Len(t, got, 3)
		assert.Equal(t, monday, got[0].Day())
		assert.Equal(t, "a", got[0].Room().ID)
		assert.Equal(t, monday, got[1].Day())
		assert.Equal(t, "b", got[1].Room().ID)
		assert.Equal(t, monday.AddDays(6), got[2].Day())

		empty, err := store.AllBetween(ctx, monday.AddDays(20), monday.AddDays(26))
		require.NoError(t, err)
		assert.Empty(t, empty)
	})

	t.Run("concurrent saves of the same version admit one winner", func(t *testing.T) {
		ctx := context.Background()
		store := newStore(t)
		r := testfixtures.NewRoom()
		s := testfixtures.NewRoomDaySchedule(t, r, testfixtures.ReferenceDay(), testfixtures.NewMovie(), "10:00")

		const writers = 8
		var (
			wg      sync.WaitGroup
			mu      sync.Mutex
			success int
			stale   int
		)
		for i := 0; i < writers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				err := store.Save(ctx, persistence.VersionedEntity[scheduler.RoomDaySchedule]{Version: 1, Entity: s})
				mu.Lock()
				defer mu.Unlock()
				switch {
				case err == nil:
					success++
				case errors.Is(err, persistence.ErrStaleVersion):
					stale++
				default:
					t.Errorf("unexpected error: %v", err)
				}
			}()
		}
		wg.Wait()

		assert.Equal(t, 1, success)
		assert.Equal(t, writers-1, stale)
	})
}
