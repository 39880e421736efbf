package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/example/cinema-scheduler/internal/application"
	"github.com/example/cinema-scheduler/internal/scheduler"
)

var (
	errBadRequestBody = errors.New("invalid request body")
	errInvalidDate    = errors.New("date must be formatted as YYYY-MM-DD")
	errInvalidRoomID  = errors.New("invalid room id")
)

type responder struct {
	logger *slog.Logger
}

func newResponder(logger *slog.Logger) responder {
	if logger == nil {
		logger = slog.Default()
	}
	return responder{logger: logger}
}

func (r responder) writeJSON(ctx context.Context, w http.ResponseWriter, status int, payload any) {
	if w == nil {
		return
	}

	if status == http.StatusNoContent || payload == nil {
		w.WriteHeader(status)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		r.loggerFor(ctx).ErrorContext(ctx, "failed to encode response", "error", err)
	}
}

func (r responder) writeError(ctx context.Context, w http.ResponseWriter, status int, err error) {
	message := http.StatusText(status)
	if err != nil {
		if msg := strings.TrimSpace(err.Error()); msg != "" {
			message = msg
		}
		r.loggerFor(ctx).WarnContext(ctx, "request failed", "status", status, "error", err)
	}

	r.writeJSON(ctx, w, status, errorResponse{Message: message})
}

func (r responder) handleServiceError(ctx context.Context, w http.ResponseWriter, err error) {
	if err == nil {
		r.writeError(ctx, w, http.StatusInternalServerError, errors.New("unknown error"))
		return
	}

	kind := application.ErrorKind(err)
	status := statusForKind(kind)
	resp := errorResponse{ErrorCode: kind, Message: err.Error()}

	switch kind {
	case application.KindValidation:
		var vErr *application.ValidationError
		if errors.As(err, &vErr) {
			resp.Errors = vErr.FieldErrors
		}
	case application.KindConflictingScreenings:
		var cErr *scheduler.ConflictingScreeningsError
		if errors.As(err, &cErr) {
			resp.Conflicts = make([]screeningDTO, 0, len(cErr.Conflicts))
			for _, c := range cErr.Conflicts {
				resp.Conflicts = append(resp.Conflicts, toScreeningDTO(c))
			}
		}
	case application.KindUnexpected:
		r.loggerFor(ctx).ErrorContext(ctx, "unexpected service error", "error", err)
		resp.Message = http.StatusText(http.StatusInternalServerError)
	}

	r.writeJSON(ctx, w, status, resp)
}

func (r responder) loggerFor(ctx context.Context) *slog.Logger {
	if logger := LoggerFromContext(ctx); logger != nil {
		return logger
	}
	return r.logger
}

func statusForKind(kind string) int {
	switch kind {
	case application.KindMovieNotFound, application.KindRoomNotFound, application.KindNotFound:
		return http.StatusNotFound
	case application.KindOutsideAllowedWindow, application.KindRoomUnavailable,
		application.KindOutsideOperatingHours, application.KindConflictingScreenings:
		return http.StatusUnprocessableEntity
	case application.KindValidation:
		return http.StatusBadRequest
	case application.KindStaleVersion:
		return http.StatusConflict
	case application.KindCanceled:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

type errorResponse struct {
	ErrorCode string            `json:"error_code,omitempty"`
	Message   string            `json:"message"`
	Errors    map[string]string `json:"errors,omitempty"`
	Conflicts []screeningDTO    `json:"conflicts,omitempty"`
}
