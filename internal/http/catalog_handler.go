package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/example/cinema-scheduler/internal/movie"
	"github.com/example/cinema-scheduler/internal/room"
)

type catalogReader interface {
	Movies() []movie.Movie
	Rooms() []room.Room
}

// CatalogHandler lists the movies and rooms the scheduler knows about.
type CatalogHandler struct {
	catalog   catalogReader
	responder responder
}

func NewCatalogHandler(catalog catalogReader, logger *slog.Logger) *CatalogHandler {
	return &CatalogHandler{catalog: catalog, responder: newResponder(defaultLogger(logger))}
}

func (h *CatalogHandler) ListMovies(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.catalog == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	movies := h.catalog.Movies()
	resp := movieListResponse{Movies: make([]movieDTO, 0, len(movies))}
	for _, m := range movies {
		resp.Movies = append(resp.Movies, toMovieDTO(m))
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, resp)
}

func (h *CatalogHandler) ListRooms(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.catalog == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	rooms := h.catalog.Rooms()
	resp := roomListResponse{Rooms: make([]roomDTO, 0, len(rooms))}
	for _, rm := range rooms {
		resp.Rooms = append(resp.Rooms, toRoomDTO(rm))
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, resp)
}

type movieDTO struct {
	ID                string         `json:"id"`
	Name              string         `json:"name"`
	DurationMinutes   int            `json:"duration_minutes"`
	Requires3DGlasses bool           `json:"requires_3d_glasses"`
	AllowedStarts     []timeRangeDTO `json:"allowed_starts"`
}

type unavailabilityDTO struct {
	Day   string `json:"day"`
	Start string `json:"start"`
	End   string `json:"end"`
}

type roomDTO struct {
	ID             string              `json:"id"`
	Name           string              `json:"name"`
	CleanUpMinutes int                 `json:"clean_up_minutes"`
	Unavailability []unavailabilityDTO `json:"unavailability"`
}

type movieListResponse struct {
	Movies []movieDTO `json:"movies"`
}

type roomListResponse struct {
	Rooms []roomDTO `json:"rooms"`
}

func toMovieDTO(m movie.Movie) movieDTO {
	dto := movieDTO{
		ID:                m.ID,
		Name:              m.Name,
		DurationMinutes:   int(m.Duration / time.Minute),
		Requires3DGlasses: m.Requires3DGlasses,
		AllowedStarts:     make([]timeRangeDTO, 0, len(m.AllowedStarts)),
	}
	for _, window := range m.AllowedStarts {
		dto.AllowedStarts = append(dto.AllowedStarts, timeRangeDTO{Start: window.Start.String(), End: window.End.String()})
	}
	return dto
}

func toRoomDTO(r room.Room) roomDTO {
	rules := r.Unavailability()
	dto := roomDTO{
		ID:             r.ID,
		Name:           r.Name,
		CleanUpMinutes: int(r.CleanUp / time.Minute),
		Unavailability: make([]unavailabilityDTO, 0, len(rules)),
	}
	for _, rule := range rules {
		dto.Unavailability = append(dto.Unavailability, unavailabilityDTO{
			Day:   rule.Day.String(),
			Start: rule.Hours.Start.String(),
			End:   rule.Hours.End.String(),
		})
	}
	return dto
}
