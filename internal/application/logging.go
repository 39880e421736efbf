package application

import (
	"context"
	"errors"
	"log/slog"

	"github.com/example/cinema-scheduler/internal/logging"
	"github.com/example/cinema-scheduler/internal/persistence"
	"github.com/example/cinema-scheduler/internal/scheduler"
)

func defaultLogger(logger *slog.Logger) *slog.Logger {
	if logger != nil {
		return logger
	}
	return slog.Default()
}

func serviceLogger(ctx context.Context, base *slog.Logger, serviceName, operation string, attrs ...any) *slog.Logger {
	logger := logging.FromContext(ctx)
	if logger == nil {
		logger = defaultLogger(base)
	}

	pairs := []any{"service", serviceName}
	if operation != "" {
		pairs = append(pairs, "operation", operation)
	}
	if len(attrs) > 0 {
		pairs = append(pairs, attrs...)
	}
	return logger.With(pairs...)
}

// Error kinds returned by ErrorKind.
const (
	KindMovieNotFound         = "movie_not_found"
	KindRoomNotFound          = "room_not_found"
	KindNotFound              = "not_found"
	KindOutsideAllowedWindow  = "outside_allowed_window"
	KindRoomUnavailable       = "room_unavailable"
	KindOutsideOperatingHours = "outside_operating_hours"
	KindConflictingScreenings = "conflicting_screenings"
	KindStaleVersion          = "stale_version"
	KindValidation            = "validation"
	KindCanceled              = "canceled"
	KindUnexpected            = "unexpected"
)

// ErrorKind maps domain, persistence and validation errors to a stable label
// shared by logs, metrics and HTTP error codes.
func ErrorKind(err error) string {
	if err == nil {
		return ""
	}

	var (
		movieErr       *MovieNotFoundError
		roomErr        *RoomNotFoundError
		windowErr      *scheduler.OutsideAllowedWindowError
		unavailableErr *scheduler.RoomUnavailableError
		hoursErr       *scheduler.OutsideOperatingHoursError
		conflictErr    *scheduler.ConflictingScreeningsError
		vErr           *ValidationError
	)
	switch {
	case errors.As(err, &movieErr):
		return KindMovieNotFound
	case errors.As(err, &roomErr):
		return KindRoomNotFound
	case errors.As(err, &windowErr):
		return KindOutsideAllowedWindow
	case errors.As(err, &unavailableErr):
		return KindRoomUnavailable
	case errors.As(err, &hoursErr):
		return KindOutsideOperatingHours
	case errors.As(err, &conflictErr):
		return KindConflictingScreenings
	case errors.Is(err, persistence.ErrStaleVersion):
		return KindStaleVersion
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.As(err, &vErr):
		return KindValidation
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return KindCanceled
	}
	return KindUnexpected
}
