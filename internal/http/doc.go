// Package http exposes the cinema scheduler over a JSON HTTP API.
//
// The router serves the following endpoints:
//   - POST /screenings: adds a screening. Body: {"room_id","movie_id","start"} where
//     start is "2006-01-02T15:04" or RFC 3339. Responds 201 with the updated room-day
//     schedule and the new screening. Business-rule rejections answer 422 with an
//     `error_code` naming the rule, unknown rooms or movies answer 404, and a schedule
//     that kept changing underneath the request answers 409.
//   - POST /screenings/runs: schedules one movie at the same time on every day of a
//     run. Body: {"room_id","movie_id","at":"HH:MM","from","until","frequency","weekdays"}
//     where frequency is daily (default) or weekly. Each day is committed on its own;
//     days refused by a rule are listed under "rejected" with their error code.
//   - GET /schedules/week?date=YYYY-MM-DD: every stored room-day schedule of the
//     Monday-to-Sunday week containing date, grouped by day. date defaults to today.
//   - GET /rooms/{id}/days/{date}: one room-day schedule. Known rooms without
//     screenings answer an empty schedule at version 0.
//   - GET /movies, GET /rooms: the catalog.
//   - GET /healthz: liveness plus store reachability.
//   - GET /metrics: Prometheus exposition.
//
// Request/response DTOs live alongside their respective handlers so tests and
// documentation share the same ground truth.
package http
