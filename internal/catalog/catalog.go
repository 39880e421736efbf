package catalog

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/example/cinema-scheduler/internal/movie"
	"github.com/example/cinema-scheduler/internal/persistence"
	"github.com/example/cinema-scheduler/internal/room"
)

type contents struct {
	movies     []movie.Movie
	rooms      []room.Room
	movieIndex map[string]movie.Movie
	roomIndex  map[string]room.Room
}

// Catalog serves movie and room lookups. It is safe for concurrent use and
// Replace swaps the whole catalog atomically.
type Catalog struct {
	current atomic.Pointer[contents]
}

// New builds a catalog from a validated file.
func New(f *File) *Catalog {
	c := &Catalog{}
	c.Replace(f)
	return c
}

// Open loads the file at path and builds a catalog from it.
func Open(path string) (*Catalog, error) {
	f, err := Load(path)
	if err != nil {
		return nil, err
	}
	return New(f), nil
}

// Replace installs the contents of f.
func (c *Catalog) Replace(f *File) {
	next := &contents{
		movies:     make([]movie.Movie, 0, len(f.Movies)),
		rooms:      make([]room.Room, 0, len(f.Rooms)),
		movieIndex: make(map[string]movie.Movie, len(f.Movies)),
		roomIndex:  make(map[string]room.Room, len(f.Rooms)),
	}
	for _, mc := range f.Movies {
		m := mc.Movie()
		next.movies = append(next.movies, m)
		next.movieIndex[m.ID] = m
	}
	for _, rc := range f.Rooms {
		r := rc.Room()
		next.rooms = append(next.rooms, r)
		next.roomIndex[r.ID] = r
	}
	c.current.Store(next)
}

// GetMovie returns the movie with the given ID or persistence.ErrNotFound.
func (c *Catalog) GetMovie(_ context.Context, id string) (movie.Movie, error) {
	m, ok := c.current.Load().movieIndex[id]
	if !ok {
		return movie.Movie{}, fmt.Errorf("movie %q: %w", id, persistence.ErrNotFound)
	}
	return m, nil
}

// GetRoom returns the room with the given ID or persistence.ErrNotFound.
func (c *Catalog) GetRoom(_ context.Context, id string) (room.Room, error) {
	r, ok := c.current.Load().roomIndex[id]
	if !ok {
		return room.Room{}, fmt.Errorf("room %q: %w", id, persistence.ErrNotFound)
	}
	return r, nil
}

// Movies lists movies in file order.
func (c *Catalog) Movies() []movie.Movie {
	return append([]movie.Movie(nil), c.current.Load().movies...)
}

// Rooms lists rooms in file order.
func (c *Catalog) Rooms() []room.Room {
	return append([]room.Room(nil), c.current.Load().rooms...)
}
