package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/example/cinema-scheduler/internal/application"
	"github.com/example/cinema-scheduler/internal/clock"
	"github.com/example/cinema-scheduler/internal/recurrence"
)

type screeningService interface {
	AddScreening(ctx context.Context, roomID, movieID string, start time.Time) (application.AddScreeningResult, error)
	ScheduleRun(ctx context.Context, req application.RunRequest) (application.RunResult, error)
}

// ScreeningHandler accepts new screenings.
type ScreeningHandler struct {
	service   screeningService
	responder responder
	logger    *slog.Logger
}

func NewScreeningHandler(service screeningService, logger *slog.Logger) *ScreeningHandler {
	base := defaultLogger(logger)
	return &ScreeningHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *ScreeningHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "ScreeningHandler", operation, attrs...)
}

func (h *ScreeningHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req screeningRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Create", "error_kind", "bad_request").WarnContext(r.Context(), "failed to decode screening request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	start, err := req.validate()
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger := h.log(r.Context(), "Create", "room_id", req.RoomID, "movie_id", req.MovieID)

	result, err := h.service.AddScreening(r.Context(), req.RoomID, req.MovieID, start)
	if err != nil {
		logger.InfoContext(r.Context(), "screening rejected", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "screening created", "version", result.Schedule.Version)
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, screeningResponse{
		Schedule:  toRoomDayScheduleDTO(result.Schedule.Entity, &result.Schedule.Version),
		Screening: toScreeningDTO(result.Screening),
	})
}

type screeningRequest struct {
	RoomID  string `json:"room_id"`
	MovieID string `json:"movie_id"`
	Start   string `json:"start"`
}

func (req *screeningRequest) validate() (time.Time, error) {
	req.RoomID = strings.TrimSpace(req.RoomID)
	req.MovieID = strings.TrimSpace(req.MovieID)

	vErr := &application.ValidationError{}
	if req.RoomID == "" {
		vErr.Add("room_id", "room_id is required")
	}
	if req.MovieID == "" {
		vErr.Add("movie_id", "movie_id is required")
	}

	var start time.Time
	if strings.TrimSpace(req.Start) == "" {
		vErr.Add("start", "start is required")
	} else {
		parsed, err := clock.ParseDateTime(req.Start)
		if err != nil {
			vErr.Add("start", "start must be formatted as YYYY-MM-DDTHH:MM or RFC 3339")
		} else {
			start = parsed
		}
	}
	return start, vErr.OrNil()
}

type screeningResponse struct {
	Schedule  roomDayScheduleDTO `json:"schedule"`
	Screening screeningDTO       `json:"screening"`
}

func (h *ScreeningHandler) CreateRun(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req runRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "CreateRun", "error_kind", "bad_request").WarnContext(r.Context(), "failed to decode run request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	params, err := req.toParams()
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	result, err := h.service.ScheduleRun(r.Context(), params)
	if err != nil {
		h.log(r.Context(), "CreateRun", "room_id", params.RoomID, "movie_id", params.MovieID).
			InfoContext(r.Context(), "screening run failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	resp := runResponse{
		Scheduled: make([]runScreeningDTO, 0, len(result.Scheduled)),
		Rejected:  make([]runRejectionDTO, 0, len(result.Rejected)),
	}
	for _, s := range result.Scheduled {
		resp.Scheduled = append(resp.Scheduled, runScreeningDTO{
			screeningDTO: toScreeningDTO(s.Screening),
			Version:      s.Schedule.Version,
		})
	}
	for _, rej := range result.Rejected {
		resp.Rejected = append(resp.Rejected, runRejectionDTO{
			Day:       rej.Day.String(),
			ErrorCode: application.ErrorKind(rej.Err),
			Message:   rej.Err.Error(),
		})
	}

	status := http.StatusOK
	if len(resp.Scheduled) > 0 {
		status = http.StatusCreated
	}
	h.responder.writeJSON(r.Context(), w, status, resp)
}

type runRequest struct {
	RoomID    string   `json:"room_id"`
	MovieID   string   `json:"movie_id"`
	At        string   `json:"at"`
	From      string   `json:"from"`
	Until     string   `json:"until"`
	Frequency string   `json:"frequency"`
	Weekdays  []string `json:"weekdays"`
}

func (req runRequest) toParams() (application.RunRequest, error) {
	params := application.RunRequest{
		RoomID:  strings.TrimSpace(req.RoomID),
		MovieID: strings.TrimSpace(req.MovieID),
	}

	vErr := &application.ValidationError{}
	if params.RoomID == "" {
		vErr.Add("room_id", "room_id is required")
	}
	if params.MovieID == "" {
		vErr.Add("movie_id", "movie_id is required")
	}
	if at, err := clock.ParseTimeOfDay(strings.TrimSpace(req.At)); err != nil {
		vErr.Add("at", "at must be formatted as HH:MM")
	} else {
		params.Rule.At = at
	}
	if from, err := clock.ParseDate(strings.TrimSpace(req.From)); err != nil {
		vErr.Add("from", "from must be formatted as YYYY-MM-DD")
	} else {
		params.Rule.From = from
	}
	if until, err := clock.ParseDate(strings.TrimSpace(req.Until)); err != nil {
		vErr.Add("until", "until must be formatted as YYYY-MM-DD")
	} else {
		params.Rule.Until = until
	}
	frequency := req.Frequency
	if strings.TrimSpace(frequency) == "" {
		frequency = "daily"
	}
	if f, err := recurrence.ParseFrequency(frequency); err != nil {
		vErr.Add("frequency", "frequency must be daily or weekly")
	} else {
		params.Rule.Frequency = f
	}
	if weekdays, err := recurrence.ParseWeekdays(req.Weekdays); err != nil {
		vErr.Add("weekdays", err.Error())
	} else {
		params.Rule.Weekdays = weekdays
	}

	return params, vErr.OrNil()
}

type runScreeningDTO struct {
	screeningDTO
	Version int `json:"version"`
}

type runRejectionDTO struct {
	Day       string `json:"day"`
	ErrorCode string `json:"error_code"`
	Message   string `json:"message"`
}

type runResponse struct {
	Scheduled []runScreeningDTO `json:"scheduled"`
	Rejected  []runRejectionDTO `json:"rejected"`
}
