package catalog

import (
	"context"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
)

// Watcher reloads the catalog file when its modification time advances.
type Watcher struct {
	path     string
	catalog  *Catalog
	logger   *slog.Logger
	onReload func(*File)

	mu      sync.Mutex
	lastMod time.Time
}

// NewWatcher prepares a watcher for path. onReload may be nil.
func NewWatcher(path string, c *Catalog, logger *slog.Logger, onReload func(*File)) *Watcher {
	if logger == nil {
		logger = slog.Default()
	}
	w := &Watcher{path: path, catalog: c, logger: logger, onReload: onReload}
	if info, err := os.Stat(path); err == nil {
		w.lastMod = info.ModTime()
	}
	return w
}

// Check reloads the file once if it changed. Invalid files are logged and
// ignored, keeping the previous catalog. It reports whether a reload happened.
func (w *Watcher) Check(ctx context.Context) bool {
	info, err := os.Stat(w.path)
	if err != nil {
		w.logger.WarnContext(ctx, "catalog stat failed", slog.String("path", w.path), slog.Any("error", err))
		return false
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if !info.ModTime().After(w.lastMod) {
		return false
	}

	f, err := Load(w.path)
	if err != nil {
		w.logger.ErrorContext(ctx, "catalog reload rejected", slog.String("path", w.path), slog.Any("error", err))
		return false
	}
	w.lastMod = info.ModTime()
	w.catalog.Replace(f)
	w.logger.InfoContext(ctx, "catalog reloaded",
		slog.String("path", w.path),
		slog.Int("movies", len(f.Movies)),
		slog.Int("rooms", len(f.Rooms)),
	)
	if w.onReload != nil {
		w.onReload(f)
	}
	return true
}

// Start schedules Check every interval until ctx is cancelled. The returned
// function stops the scheduler.
func (w *Watcher) Start(ctx context.Context, interval time.Duration) (func() error, error) {
	if interval <= 0 {
		interval = 30 * time.Second
	}

	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}
	_, err = s.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() { w.Check(ctx) }),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		_ = s.Shutdown()
		return nil, err
	}
	s.Start()

	var once sync.Once
	var stopErr error
	stop := func() error {
		once.Do(func() { stopErr = s.Shutdown() })
		return stopErr
	}
	go func() {
		<-ctx.Done()
		_ = stop()
	}()
	return stop, nil
}
