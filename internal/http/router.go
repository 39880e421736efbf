package http

import (
	"context"
	"log/slog"
	"net/http"
)

// HealthCheck reports whether the backing store is reachable.
type HealthCheck func(ctx context.Context) error

type RouterConfig struct {
	Screenings *ScreeningHandler
	Schedules  *ScheduleHandler
	Catalog    *CatalogHandler
	Metrics    http.Handler
	Health     HealthCheck
	Logger     *slog.Logger
	Middleware []func(http.Handler) http.Handler
}

func NewRouter(cfg RouterConfig) http.Handler {
	mux := http.NewServeMux()

	if cfg.Screenings != nil {
		mux.HandleFunc("POST /screenings", cfg.Screenings.Create)
		mux.HandleFunc("POST /screenings/runs", cfg.Screenings.CreateRun)
	}

	if cfg.Schedules != nil {
		mux.HandleFunc("GET /schedules/week", cfg.Schedules.Week)
		mux.HandleFunc("GET /rooms/{id}/days/{date}", cfg.Schedules.RoomDay)
	}

	if cfg.Catalog != nil {
		mux.HandleFunc("GET /movies", cfg.Catalog.ListMovies)
		mux.HandleFunc("GET /rooms", cfg.Catalog.ListRooms)
	}

	if cfg.Metrics != nil {
		mux.Handle("GET /metrics", cfg.Metrics)
	}

	mux.HandleFunc("GET /healthz", healthHandler(cfg.Health, newResponder(cfg.Logger)))

	var handler http.Handler = mux
	if len(cfg.Middleware) > 0 {
		for i := len(cfg.Middleware) - 1; i >= 0; i-- {
			if cfg.Middleware[i] != nil {
				handler = cfg.Middleware[i](handler)
			}
		}
	}

	return handler
}

type healthResponse struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

func healthHandler(check HealthCheck, responder responder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if check != nil {
			if err := check(r.Context()); err != nil {
				responder.loggerFor(r.Context()).WarnContext(r.Context(), "health check failed", "error", err)
				responder.writeJSON(r.Context(), w, http.StatusServiceUnavailable, healthResponse{Status: "unavailable", Error: err.Error()})
				return
			}
		}
		responder.writeJSON(r.Context(), w, http.StatusOK, healthResponse{Status: "ok"})
	}
}
