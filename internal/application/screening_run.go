package application

import (
	"context"
	"fmt"

	"github.com/example/cinema-scheduler/internal/clock"
	"github.com/example/cinema-scheduler/internal/recurrence"
)

// RunRequest schedules one movie in one room at the same time on every day
// the rule selects.
type RunRequest struct {
	RoomID  string
	MovieID string
	Rule    recurrence.Rule
}

// RunRejection is a day of a run that a scheduling rule refused.
type RunRejection struct {
	Day clock.Date
	Err error
}

// RunResult lists the committed screenings and the refused days of a run,
// both in day order.
type RunResult struct {
	Scheduled []AddScreeningResult
	Rejected  []RunRejection
}

// ScheduleRun adds every screening of a run. Each day is committed on its
// own; days refused by a scheduling rule are reported in Rejected and do not
// stop the run. Lookup, storage and cancellation errors abort it and are
// returned together with the days committed so far.
func (s *SchedulingService) ScheduleRun(ctx context.Context, req RunRequest) (RunResult, error) {
	logger := serviceLogger(ctx, s.logger, serviceName, "ScheduleRun",
		"room_id", req.RoomID, "movie_id", req.MovieID, "frequency", req.Rule.Frequency.String())

	occurrences, err := recurrence.Expand(req.Rule)
	if err != nil {
		vErr := &ValidationError{}
		vErr.Add("rule", err.Error())
		return RunResult{}, vErr
	}

	if _, err := s.movies.GetMovie(ctx, req.MovieID); err != nil {
		return RunResult{}, errOrNotFound(err, func() error { return &MovieNotFoundError{MovieID: req.MovieID} })
	}
	if _, err := s.rooms.GetRoom(ctx, req.RoomID); err != nil {
		return RunResult{}, errOrNotFound(err, func() error { return &RoomNotFoundError{RoomID: req.RoomID} })
	}

	var result RunResult
	for _, o := range occurrences {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		added, err := s.AddScreening(ctx, req.RoomID, req.MovieID, o.Start)
		if err != nil {
			if !IsSchedulingRule(err) {
				return result, fmt.Errorf("schedule run on %s: %w", o.Day, err)
			}
			result.Rejected = append(result.Rejected, RunRejection{Day: o.Day, Err: err})
			continue
		}
		result.Scheduled = append(result.Scheduled, added)
	}

	logger.InfoContext(ctx, "screening run processed",
		"days", len(occurrences), "scheduled", len(result.Scheduled), "rejected", len(result.Rejected))
	return result, nil
}

// IsSchedulingRule reports whether err is one of the scheduler's rule
// rejections rather than an infrastructure or lookup failure.
func IsSchedulingRule(err error) bool {
	switch ErrorKind(err) {
	case KindOutsideAllowedWindow, KindRoomUnavailable, KindOutsideOperatingHours, KindConflictingScreenings:
		return true
	}
	return false
}
