package application

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/example/cinema-scheduler/internal/persistence"
)

// ErrNotFound is matched by every lookup failure, including
// *MovieNotFoundError and *RoomNotFoundError.
var ErrNotFound = persistence.ErrNotFound

// MovieNotFoundError reports an unknown movie ID.
type MovieNotFoundError struct {
	MovieID string
}

func (e *MovieNotFoundError) Error() string {
	return fmt.Sprintf("movie with id %s not found", e.MovieID)
}

// Is makes errors.Is(err, ErrNotFound) hold.
func (e *MovieNotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// RoomNotFoundError reports an unknown room ID.
type RoomNotFoundError struct {
	RoomID string
}

func (e *RoomNotFoundError) Error() string {
	return fmt.Sprintf("room with id %s not found", e.RoomID)
}

// Is makes errors.Is(err, ErrNotFound) hold.
func (e *RoomNotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// ValidationError captures field level validation issues that callers can surface to users.
type ValidationError struct {
	FieldErrors map[string]string
}

// Error implements the error interface.
func (v *ValidationError) Error() string {
	if v == nil || len(v.FieldErrors) == 0 {
		return "validation failed"
	}
	fields := make([]string, 0, len(v.FieldErrors))
	for field := range v.FieldErrors {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	return "validation failed: " + strings.Join(fields, ", ")
}

// HasErrors reports whether any field level issues were recorded.
func (v *ValidationError) HasErrors() bool {
	return v != nil && len(v.FieldErrors) > 0
}

// Add records a field level validation error.
func (v *ValidationError) Add(field, message string) {
	if v.FieldErrors == nil {
		v.FieldErrors = make(map[string]string)
	}
	v.FieldErrors[field] = message
}

// OrNil returns v when it holds errors and nil otherwise.
func (v *ValidationError) OrNil() error {
	if v.HasErrors() {
		return v
	}
	return nil
}

// errOrNotFound turns a repository not-found into the typed error built by wrap.
func errOrNotFound(err error, wrap func() error) error {
	if errors.Is(err, persistence.ErrNotFound) {
		return wrap()
	}
	return err
}
