package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/cinema-scheduler/internal/application"
	"github.com/example/cinema-scheduler/internal/catalog"
	"github.com/example/cinema-scheduler/internal/clock"
	"github.com/example/cinema-scheduler/internal/persistence"
	"github.com/example/cinema-scheduler/internal/scheduler"
)

const testCatalog = `
movies:
  - id: heat
    name: Heat
    duration_minutes: 170
  - id: avatar
    name: Avatar
    duration_minutes: 192
    requires_3d_glasses: true
    allowed_starts:
      - start: "18:00"
        end: "20:00"
rooms:
  - id: room-1
    name: Room 1
    clean_up_minutes: 10
    unavailability:
      - day: saturday
        start: "09:00"
        end: "12:00"
  - id: room-2
    name: Room 2
    clean_up_minutes: 15
`

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type testServer struct {
	handler http.Handler
	service *application.SchedulingService
}

func newTestServer(t *testing.T) testServer {
	t.Helper()

	f, err := catalog.Parse([]byte(testCatalog))
	require.NoError(t, err)
	c := catalog.New(f)

	logger := discardLogger()
	svc := application.NewSchedulingService(c, c, persistence.NewMemoryStore(), application.WithLogger(logger))
	schedules := NewScheduleHandler(svc, logger)
	schedules.now = func() time.Time { return time.Date(2022, 1, 6, 12, 0, 0, 0, time.UTC) }

	return testServer{
		handler: NewRouter(RouterConfig{
			Screenings: NewScreeningHandler(svc, logger),
			Schedules:  schedules,
			Catalog:    NewCatalogHandler(c, logger),
			Logger:     logger,
		}),
		service: svc,
	}
}

func (s testServer) do(t *testing.T, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(b)
	default:
		payload, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}

	req := httptest.NewRequest(method, target, reader)
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestScreeningHandlers(t *testing.T) {
	t.Parallel()

	t.Run("creates a screening and returns the room-day schedule", func(t *testing.T) {
		t.Parallel()
		srv := newTestServer(t)

		rec := srv.do(t, http.MethodPost, "/screenings", screeningRequest{RoomID: "room-1", MovieID: "heat", Start: "2022-01-04T10:00"})
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		resp := decode[screeningResponse](t, rec)
		require.NotNil(t, resp.Schedule.Version)
		assert.Equal(t, 1, *resp.Schedule.Version)
		assert.Equal(t, "room-1", resp.Schedule.RoomID)
		assert.Equal(t, "2022-01-04", resp.Schedule.Day)
		assert.Equal(t, timeRangeDTO{Start: "08:00", End: "22:00"}, resp.Schedule.OperatingHours)
		require.Len(t, resp.Schedule.Screenings, 1)
		assert.Equal(t, "2022-01-04T10:00", resp.Screening.Start)
		assert.Equal(t, "2022-01-04T13:00", resp.Screening.End)
		assert.Equal(t, 180, resp.Screening.TotalMinutes)
	})

	t.Run("rejects malformed bodies", func(t *testing.T) {
		t.Parallel()
		srv := newTestServer(t)

		rec := srv.do(t, http.MethodPost, "/screenings", "{")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("reports every invalid field", func(t *testing.T) {
		t.Parallel()
		srv := newTestServer(t)

		rec := srv.do(t, http.MethodPost, "/screenings", screeningRequest{Start: "tomorrow"})
		require.Equal(t, http.StatusBadRequest, rec.Code)

		resp := decode[errorResponse](t, rec)
		assert.Equal(t, application.KindValidation, resp.ErrorCode)
		assert.Contains(t, resp.Errors, "room_id")
		assert.Contains(t, resp.Errors, "movie_id")
		assert.Contains(t, resp.Errors, "start")
	})

	t.Run("maps unknown movies and rooms to 404", func(t *testing.T) {
		t.Parallel()
		srv := newTestServer(t)

		rec := srv.do(t, http.MethodPost, "/screenings", screeningRequest{RoomID: "room-1", MovieID: "missing", Start: "2022-01-04T10:00"})
		require.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, application.KindMovieNotFound, decode[errorResponse](t, rec).ErrorCode)

		rec = srv.do(t, http.MethodPost, "/screenings", screeningRequest{RoomID: "missing", MovieID: "heat", Start: "2022-01-04T10:00"})
		require.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, application.KindRoomNotFound, decode[errorResponse](t, rec).ErrorCode)
	})

	t.Run("maps business rule failures to 422", func(t *testing.T) {
		t.Parallel()
		srv := newTestServer(t)

		rec := srv.do(t, http.MethodPost, "/screenings", screeningRequest{RoomID: "room-1", MovieID: "heat", Start: "2022-01-04T10:00"})
		require.Equal(t, http.StatusCreated, rec.Code)

		tests := []struct {
			name string
			req  screeningRequest
			kind string
		}{
			{"conflict", screeningRequest{RoomID: "room-1", MovieID: "heat", Start: "2022-01-04T11:00"}, application.KindConflictingScreenings},
			{"operating hours", screeningRequest{RoomID: "room-1", MovieID: "heat", Start: "2022-01-04T07:00"}, application.KindOutsideOperatingHours},
			{"allowed window", screeningRequest{RoomID: "room-2", MovieID: "avatar", Start: "2022-01-04T10:00"}, application.KindOutsideAllowedWindow},
			{"room unavailable", screeningRequest{RoomID: "room-1", MovieID: "heat", Start: "2022-01-01T10:00"}, application.KindRoomUnavailable},
		}
		for _, tt := range tests {
			rec := srv.do(t, http.MethodPost, "/screenings", tt.req)
			require.Equal(t, http.StatusUnprocessableEntity, rec.Code, tt.name)
			resp := decode[errorResponse](t, rec)
			assert.Equal(t, tt.kind, resp.ErrorCode, tt.name)
			if tt.kind == application.KindConflictingScreenings {
				require.Len(t, resp.Conflicts, 1)
				assert.Equal(t, "2022-01-04T10:00", resp.Conflicts[0].Start)
			}
		}
	})

	t.Run("maps lost races to 409", func(t *testing.T) {
		t.Parallel()

		handler := NewScreeningHandler(staleScreeningService{}, discardLogger())
		req := httptest.NewRequest(http.MethodPost, "/screenings",
			bytes.NewBufferString(`{"room_id":"room-1","movie_id":"heat","start":"2022-01-04T10:00"}`))
		rec := httptest.NewRecorder()
		handler.Create(rec, req)

		require.Equal(t, http.StatusConflict, rec.Code)
		assert.Equal(t, application.KindStaleVersion, decode[errorResponse](t, rec).ErrorCode)
	})

	t.Run("hides unexpected errors", func(t *testing.T) {
		t.Parallel()

		handler := NewScreeningHandler(failingScreeningService{}, discardLogger())
		req := httptest.NewRequest(http.MethodPost, "/screenings",
			bytes.NewBufferString(`{"room_id":"room-1","movie_id":"heat","start":"2022-01-04T10:00"}`))
		rec := httptest.NewRecorder()
		handler.Create(rec, req)

		require.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.NotContains(t, rec.Body.String(), "disk on fire")
	})

	t.Run("rejects other methods", func(t *testing.T) {
		t.Parallel()
		srv := newTestServer(t)

		rec := srv.do(t, http.MethodGet, "/screenings", nil)
		assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	})
}

func TestScreeningRunHandler(t *testing.T) {
	t.Parallel()

	t.Run("schedules a run and lists refused days", func(t *testing.T) {
		t.Parallel()
		srv := newTestServer(t)

		rec := srv.do(t, http.MethodPost, "/screenings", screeningRequest{RoomID: "room-2", MovieID: "heat", Start: "2022-01-05T19:00"})
		require.Equal(t, http.StatusCreated, rec.Code)

		rec = srv.do(t, http.MethodPost, "/screenings/runs", runRequest{
			RoomID:    "room-2",
			MovieID:   "avatar",
			At:        "18:00",
			From:      "2022-01-03",
			Until:     "2022-01-09",
			Frequency: "weekly",
			Weekdays:  []string{"monday", "wednesday", "friday"},
		})
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		resp := decode[runResponse](t, rec)
		require.Len(t, resp.Scheduled, 2)
		assert.Equal(t, "2022-01-03T18:00", resp.Scheduled[0].Start)
		assert.Equal(t, 1, resp.Scheduled[0].Version)
		assert.Equal(t, "2022-01-07T18:00", resp.Scheduled[1].Start)
		require.Len(t, resp.Rejected, 1)
		assert.Equal(t, "2022-01-05", resp.Rejected[0].Day)
		assert.Equal(t, application.KindConflictingScreenings, resp.Rejected[0].ErrorCode)
	})

	t.Run("validates the request", func(t *testing.T) {
		t.Parallel()
		srv := newTestServer(t)

		rec := srv.do(t, http.MethodPost, "/screenings/runs", runRequest{
			RoomID:    "room-2",
			MovieID:   "heat",
			At:        "6pm",
			From:      "2022-01-03",
			Until:     "soon",
			Frequency: "monthly",
			Weekdays:  []string{"caturday"},
		})
		require.Equal(t, http.StatusBadRequest, rec.Code)

		resp := decode[errorResponse](t, rec)
		for _, field := range []string{"at", "until", "frequency", "weekdays"} {
			assert.Contains(t, resp.Errors, field)
		}
		assert.NotContains(t, resp.Errors, "from")
	})

	t.Run("reversed windows are rejected by the service", func(t *testing.T) {
		t.Parallel()
		srv := newTestServer(t)

		rec := srv.do(t, http.MethodPost, "/screenings/runs", runRequest{
			RoomID: "room-2", MovieID: "heat", At: "10:00", From: "2022-01-09", Until: "2022-01-03",
		})
		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, decode[errorResponse](t, rec).Errors, "rule")
	})
}

type staleScreeningService struct{}

func (staleScreeningService) AddScreening(context.Context, string, string, time.Time) (application.AddScreeningResult, error) {
	return application.AddScreeningResult{}, &persistence.StaleVersionError{Expected: 2, Actual: 2}
}

func (staleScreeningService) ScheduleRun(context.Context, application.RunRequest) (application.RunResult, error) {
	return application.RunResult{}, &persistence.StaleVersionError{Expected: 2, Actual: 2}
}

type failingScreeningService struct{}

func (failingScreeningService) ScheduleRun(context.Context, application.RunRequest) (application.RunResult, error) {
	return application.RunResult{}, errors.New("disk on fire")
}

func (failingScreeningService) AddScreening(context.Context, string, string, time.Time) (application.AddScreeningResult, error) {
	return application.AddScreeningResult{}, errors.New("disk on fire")
}

func TestScheduleHandlers(t *testing.T) {
	t.Parallel()

	t.Run("weekly schedule groups room-days by day", func(t *testing.T) {
		t.Parallel()
		srv := newTestServer(t)

		for _, req := range []screeningRequest{
			{RoomID: "room-2", MovieID: "heat", Start: "2022-01-04T10:00"},
			{RoomID: "room-1", MovieID: "heat", Start: "2022-01-04T14:00"},
			{RoomID: "room-1", MovieID: "heat", Start: "2022-01-05T10:00"},
			{RoomID: "room-1", MovieID: "heat", Start: "2022-01-10T10:00"},
		} {
			rec := srv.do(t, http.MethodPost, "/screenings", req)
			require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		}

		rec := srv.do(t, http.MethodGet, "/schedules/week?date=2022-01-09", nil)
		require.Equal(t, http.StatusOK, rec.Code)

		week := decode[weekDTO](t, rec)
		assert.Equal(t, "2022-01-03", week.From)
		assert.Equal(t, "2022-01-09", week.To)
		require.Len(t, week.Days, 2)
		assert.Equal(t, "2022-01-04", week.Days[0].Day)
		require.Len(t, week.Days[0].Rooms, 2)
		assert.Equal(t, "room-1", week.Days[0].Rooms[0].RoomID)
		assert.Equal(t, "room-2", week.Days[0].Rooms[1].RoomID)
		assert.Nil(t, week.Days[0].Rooms[0].Version)
		assert.Equal(t, "2022-01-05", week.Days[1].Day)
	})

	t.Run("weekly schedule defaults to the current week", func(t *testing.T) {
		t.Parallel()
		srv := newTestServer(t)

		rec := srv.do(t, http.MethodGet, "/schedules/week", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		week := decode[weekDTO](t, rec)
		assert.Equal(t, "2022-01-03", week.From)
		assert.Empty(t, week.Days)
	})

	t.Run("weekly schedule rejects malformed dates", func(t *testing.T) {
		t.Parallel()
		srv := newTestServer(t)

		rec := srv.do(t, http.MethodGet, "/schedules/week?date=06/01/2022", nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("room-day schedule", func(t *testing.T) {
		t.Parallel()
		srv := newTestServer(t)

		rec := srv.do(t, http.MethodGet, "/rooms/room-1/days/2022-01-04", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		empty := decode[roomDayScheduleDTO](t, rec)
		require.NotNil(t, empty.Version)
		assert.Equal(t, 0, *empty.Version)
		assert.Empty(t, empty.Screenings)

		_, err := srv.service.AddScreening(context.Background(), "room-1", "heat", time.Date(2022, 1, 4, 10, 0, 0, 0, time.UTC))
		require.NoError(t, err)

		rec = srv.do(t, http.MethodGet, "/rooms/room-1/days/2022-01-04", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		stored := decode[roomDayScheduleDTO](t, rec)
		assert.Equal(t, 1, *stored.Version)
		require.Len(t, stored.Screenings, 1)
		assert.Equal(t, "heat", stored.Screenings[0].MovieID)

		rec = srv.do(t, http.MethodGet, "/rooms/missing/days/2022-01-04", nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)

		rec = srv.do(t, http.MethodGet, "/rooms/room-1/days/tomorrow", nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestCatalogHandlers(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t)

	rec := srv.do(t, http.MethodGet, "/movies", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	movies := decode[movieListResponse](t, rec)
	require.Len(t, movies.Movies, 2)
	assert.Equal(t, "heat", movies.Movies[0].ID)
	assert.Equal(t, 170, movies.Movies[0].DurationMinutes)
	assert.Equal(t, []timeRangeDTO{{Start: "18:00", End: "20:00"}}, movies.Movies[1].AllowedStarts)

	rec = srv.do(t, http.MethodGet, "/rooms", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rooms := decode[roomListResponse](t, rec)
	require.Len(t, rooms.Rooms, 2)
	assert.Equal(t, 10, rooms.Rooms[0].CleanUpMinutes)
	assert.Equal(t, []unavailabilityDTO{{Day: "saturday", Start: "09:00", End: "12:00"}}, rooms.Rooms[0].Unavailability)
	assert.Empty(t, rooms.Rooms[1].Unavailability)
}

func TestHealthz(t *testing.T) {
	t.Parallel()

	t.Run("ok", func(t *testing.T) {
		t.Parallel()
		handler := NewRouter(RouterConfig{Health: func(context.Context) error { return nil }})
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "ok", decode[healthResponse](t, rec).Status)
	})

	t.Run("store unreachable", func(t *testing.T) {
		t.Parallel()
		handler := NewRouter(RouterConfig{
			Health: func(context.Context) error { return errors.New("connection refused") },
			Logger: discardLogger(),
		})
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

		require.Equal(t, http.StatusServiceUnavailable, rec.Code)
		resp := decode[healthResponse](t, rec)
		assert.Equal(t, "unavailable", resp.Status)
		assert.Equal(t, "connection refused", resp.Error)
	})
}

func TestStatusForKind(t *testing.T) {
	t.Parallel()

	tests := map[string]int{
		application.KindMovieNotFound:         http.StatusNotFound,
		application.KindRoomNotFound:          http.StatusNotFound,
		application.KindNotFound:              http.StatusNotFound,
		application.KindOutsideAllowedWindow:  http.StatusUnprocessableEntity,
		application.KindRoomUnavailable:       http.StatusUnprocessableEntity,
		application.KindOutsideOperatingHours: http.StatusUnprocessableEntity,
		application.KindConflictingScreenings: http.StatusUnprocessableEntity,
		application.KindValidation:            http.StatusBadRequest,
		application.KindStaleVersion:          http.StatusConflict,
		application.KindCanceled:              http.StatusServiceUnavailable,
		application.KindUnexpected:            http.StatusInternalServerError,
	}
	for kind, want := range tests {
		assert.Equal(t, want, statusForKind(kind), kind)
	}
}

func TestToWeekDTOUsesSundayAsLastDay(t *testing.T) {
	t.Parallel()

	dto := toWeekDTO(clock.MustDate("2022-01-03"), scheduler.Schedule{})
	assert.Equal(t, "2022-01-09", dto.To)
	assert.NotNil(t, dto.Days)
}
