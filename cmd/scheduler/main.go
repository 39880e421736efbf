package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/example/cinema-scheduler/internal/application"
	"github.com/example/cinema-scheduler/internal/catalog"
	"github.com/example/cinema-scheduler/internal/config"
	"github.com/example/cinema-scheduler/internal/events"
	httptransport "github.com/example/cinema-scheduler/internal/http"
	"github.com/example/cinema-scheduler/internal/logging"
	"github.com/example/cinema-scheduler/internal/metrics"
	"github.com/example/cinema-scheduler/internal/persistence"
	"github.com/example/cinema-scheduler/internal/persistence/redisstore"
	"github.com/example/cinema-scheduler/internal/persistence/sqlite"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		slog.New(slog.NewJSONHandler(os.Stderr, nil)).Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := logging.New(os.Stdout, cfg.LogFormat, cfg.LogLevel)
	slog.SetDefault(logger)

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("scheduler stopped with error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	m := metrics.New()

	movieCatalog, err := catalog.Open(cfg.CatalogPath)
	if err != nil {
		return fmt.Errorf("load catalog: %w", err)
	}
	if cfg.CatalogReload > 0 {
		watcher := catalog.NewWatcher(cfg.CatalogPath, movieCatalog, logger, func(*catalog.File) { m.IncCatalogReload() })
		stopWatcher, err := watcher.Start(ctx, cfg.CatalogReload)
		if err != nil {
			return fmt.Errorf("start catalog watcher: %w", err)
		}
		defer func() {
			if err := stopWatcher(); err != nil {
				logger.Error("failed to stop catalog watcher", "error", err)
			}
		}()
	}

	store, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := store.close(); cerr != nil {
			logger.Error("failed to close storage", "error", cerr)
		}
	}()

	publisher := newPublisher(cfg, logger)
	defer func() {
		if cerr := publisher.close(); cerr != nil {
			logger.Error("failed to close event publisher", "error", cerr)
		}
	}()

	service := application.NewSchedulingService(movieCatalog, movieCatalog, store.schedules,
		application.WithOpeningHours(cfg.OpeningHours),
		application.WithMaxStaleRetries(cfg.StaleRetries),
		application.WithPublisher(publisher.Publisher),
		application.WithMetrics(m),
		application.WithLogger(logger),
	)

	server := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           newHandler(cfg, logger, m, movieCatalog, service, store.health),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("failed to shutdown server", "error", err)
		}
	}()

	logger.Info("cinema scheduler listening",
		"addr", server.Addr,
		"store", cfg.Store,
		"catalog", cfg.CatalogPath,
		"opening_hours", cfg.OpeningHours.String(),
	)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve http: %w", err)
	}
	return nil
}

func newHandler(cfg config.Config, logger *slog.Logger, m *metrics.Metrics, c *catalog.Catalog, service *application.SchedulingService, health httptransport.HealthCheck) http.Handler {
	return httptransport.NewRouter(httptransport.RouterConfig{
		Screenings: httptransport.NewScreeningHandler(service, logger),
		Schedules:  httptransport.NewScheduleHandler(service, logger),
		Catalog:    httptransport.NewCatalogHandler(c, logger),
		Metrics:    m.Handler(),
		Health:     health,
		Logger:     logger,
		Middleware: []func(http.Handler) http.Handler{
			httptransport.RequestLogger(logger),
			httptransport.Instrument(m),
			httptransport.RateLimit(cfg.RateLimit, cfg.RateBurst, logger),
		},
	})
}

type scheduleStore struct {
	schedules persistence.RoomDayScheduleRepository
	health    httptransport.HealthCheck
	close     func() error
}

func openStore(ctx context.Context, cfg config.Config, logger *slog.Logger) (scheduleStore, error) {
	switch cfg.Store {
	case config.StoreSQLite:
		pool, err := sqlite.NewConnectionPool(sqlite.DefaultConfig(cfg.SQLiteDSN))
		if err != nil {
			return scheduleStore{}, fmt.Errorf("open sqlite store: %w", err)
		}
		if err := pool.Migrate(ctx, logger); err != nil {
			_ = pool.Close()
			return scheduleStore{}, fmt.Errorf("apply migrations: %w", err)
		}
		return scheduleStore{schedules: sqlite.NewStore(pool), health: pool.Ping, close: pool.Close}, nil

	case config.StoreRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return scheduleStore{}, fmt.Errorf("connect redis at %s: %w", cfg.RedisAddr, err)
		}
		health := func(ctx context.Context) error { return client.Ping(ctx).Err() }
		return scheduleStore{schedules: redisstore.New(client, cfg.RedisPrefix), health: health, close: client.Close}, nil

	default:
		logger.Warn("using in-memory schedule store; schedules are lost on restart")
		return scheduleStore{schedules: persistence.NewMemoryStore(), close: func() error { return nil }}, nil
	}
}

type eventPublisher struct {
	events.Publisher
	close func() error
}

func newPublisher(cfg config.Config, logger *slog.Logger) eventPublisher {
	if cfg.AMQPURL == "" {
		return eventPublisher{Publisher: events.NoopPublisher{}, close: func() error { return nil }}
	}
	p := events.NewAMQPPublisher(cfg.AMQPURL, logger)
	return eventPublisher{Publisher: p, close: p.Close}
}
