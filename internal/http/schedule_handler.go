package http

import (
	"context"
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/example/cinema-scheduler/internal/application"
	"github.com/example/cinema-scheduler/internal/clock"
	"github.com/example/cinema-scheduler/internal/scheduler"
)

type scheduleService interface {
	WeeklySchedule(ctx context.Context, day clock.Date) (scheduler.Schedule, error)
	RoomDaySchedule(ctx context.Context, roomID string, day clock.Date) (application.ScheduleEntity, error)
}

// ScheduleHandler serves weekly and room-day schedule views.
type ScheduleHandler struct {
	service   scheduleService
	responder responder
	logger    *slog.Logger
	now       func() time.Time
}

func NewScheduleHandler(service scheduleService, logger *slog.Logger) *ScheduleHandler {
	base := defaultLogger(logger)
	return &ScheduleHandler{service: service, responder: newResponder(base), logger: base, now: time.Now}
}

func (h *ScheduleHandler) Week(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	day := clock.DateOf(h.now())
	if value := strings.TrimSpace(r.URL.Query().Get("date")); value != "" {
		parsed, err := clock.ParseDate(value)
		if err != nil {
			h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidDate)
			return
		}
		day = parsed
	}

	schedule, err := h.service.WeeklySchedule(r.Context(), day)
	if err != nil {
		handlerLogger(r.Context(), h.logger, "ScheduleHandler", "Week", "date", day.String()).
			ErrorContext(r.Context(), "weekly schedule failed", "error", err)
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	monday := application.MondayOf(day)
	h.responder.writeJSON(r.Context(), w, http.StatusOK, toWeekDTO(monday, schedule))
}

func (h *ScheduleHandler) RoomDay(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	roomID := strings.TrimSpace(r.PathValue("id"))
	if roomID == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidRoomID)
		return
	}
	day, err := clock.ParseDate(r.PathValue("date"))
	if err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidDate)
		return
	}

	entity, err := h.service.RoomDaySchedule(r.Context(), roomID, day)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, toRoomDayScheduleDTO(entity.Entity, &entity.Version))
}

type timeRangeDTO struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

type screeningDTO struct {
	MovieID           string `json:"movie_id"`
	MovieName         string `json:"movie_name"`
	Start             string `json:"start"`
	End               string `json:"end"`
	TotalMinutes      int    `json:"total_minutes"`
	Requires3DGlasses bool   `json:"requires_3d_glasses"`
}

type roomDayScheduleDTO struct {
	RoomID         string         `json:"room_id"`
	RoomName       string         `json:"room_name"`
	Day            string         `json:"day"`
	Version        *int           `json:"version,omitempty"`
	OperatingHours timeRangeDTO   `json:"operating_hours"`
	Screenings     []screeningDTO `json:"screenings"`
}

type dailyScheduleDTO struct {
	Day   string               `json:"day"`
	Rooms []roomDayScheduleDTO `json:"rooms"`
}

type weekDTO struct {
	From string             `json:"from"`
	To   string             `json:"to"`
	Days []dailyScheduleDTO `json:"days"`
}

func toScreeningDTO(s scheduler.Screening) screeningDTO {
	m := s.Movie()
	return screeningDTO{
		MovieID:           m.ID,
		MovieName:         m.Name,
		Start:             clock.FormatDateTime(s.Start()),
		End:               clock.FormatDateTime(s.End()),
		TotalMinutes:      int(s.TotalDuration() / time.Minute),
		Requires3DGlasses: m.Requires3DGlasses,
	}
}

func toRoomDayScheduleDTO(s scheduler.RoomDaySchedule, version *int) roomDayScheduleDTO {
	screenings := s.Screenings()
	dto := roomDayScheduleDTO{
		RoomID:   s.Room().ID,
		RoomName: s.Room().Name,
		Day:      s.Day().String(),
		Version:  version,
		OperatingHours: timeRangeDTO{
			Start: s.OperatingHours().Start.String(),
			End:   s.OperatingHours().End.String(),
		},
		Screenings: make([]screeningDTO, 0, len(screenings)),
	}
	for _, sc := range screenings {
		dto.Screenings = append(dto.Screenings, toScreeningDTO(sc))
	}
	return dto
}

func toWeekDTO(monday clock.Date, schedule scheduler.Schedule) weekDTO {
	dto := weekDTO{
		From: monday.String(),
		To:   monday.AddDays(6).String(),
		Days: make([]dailyScheduleDTO, 0, len(schedule.SchedulesByDay)),
	}
	for _, daily := range schedule.SchedulesByDay {
		roomIDs := make([]string, 0, len(daily.RoomSchedules))
		for id := range daily.RoomSchedules {
			roomIDs = append(roomIDs, id)
		}
		slices.Sort(roomIDs)

		day := dailyScheduleDTO{Day: daily.Day.String(), Rooms: make([]roomDayScheduleDTO, 0, len(roomIDs))}
		for _, id := range roomIDs {
			day.Rooms = append(day.Rooms, toRoomDayScheduleDTO(daily.RoomSchedules[id], nil))
		}
		dto.Days = append(dto.Days, day)
	}
	return dto
}
