// Package events announces committed screenings to other services.
package events

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/example/cinema-scheduler/internal/clock"
	"github.com/example/cinema-scheduler/internal/scheduler"
)

// ScreeningScheduledQueue is the queue ScreeningScheduled events are routed to.
const ScreeningScheduledQueue = "screening.scheduled"

// ScreeningScheduled is emitted after a screening has been stored.
type ScreeningScheduled struct {
	EventID    string    `json:"event_id"`
	RoomID     string    `json:"room_id"`
	MovieID    string    `json:"movie_id"`
	MovieName  string    `json:"movie_name"`
	Day        string    `json:"day"`
	Start      string    `json:"start"`
	End        string    `json:"end"`
	Requires3D bool      `json:"requires_3d_glasses"`
	Version    int       `json:"version"`
	OccurredAt time.Time `json:"occurred_at"`
}

// NewScreeningScheduled builds the event for a screening committed at version.
func NewScreeningScheduled(roomID string, s scheduler.Screening, version int, now time.Time) ScreeningScheduled {
	m := s.Movie()
	return ScreeningScheduled{
		EventID:    uuid.NewString(),
		RoomID:     roomID,
		MovieID:    m.ID,
		MovieName:  m.Name,
		Day:        clock.DateOf(s.Start()).String(),
		Start:      clock.FormatDateTime(s.Start()),
		End:        clock.FormatDateTime(s.End()),
		Requires3D: m.Requires3DGlasses,
		Version:    version,
		OccurredAt: now.UTC(),
	}
}

// Publisher delivers events. Implementations must be safe for concurrent use.
type Publisher interface {
	PublishScreeningScheduled(ctx context.Context, event ScreeningScheduled) error
}

// NoopPublisher drops every event; it is used when no broker is configured.
type NoopPublisher struct{}

// PublishScreeningScheduled implements Publisher.
func (NoopPublisher) PublishScreeningScheduled(context.Context, ScreeningScheduled) error {
	return nil
}
