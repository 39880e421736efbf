// Package redisstore keeps room-day schedules in Redis.
//
// Each schedule is a hash holding its version and JSON snapshot. A sorted set
// scored by day number indexes the hashes so a date range maps to one
// ZRANGEBYSCORE.
package redisstore

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/example/cinema-scheduler/internal/clock"
	"github.com/example/cinema-scheduler/internal/persistence"
	"github.com/example/cinema-scheduler/internal/persistence/snapshot"
	"github.com/example/cinema-scheduler/internal/scheduler"
)

const (
	fieldVersion = "version"
	fieldPayload = "payload"

	// DefaultPrefix namespaces every key written by the store.
	DefaultPrefix = "cinema"
)

// Store implements persistence.RoomDayScheduleRepository on a Redis client.
type Store struct {
	client redis.UniversalClient
	prefix string
}

// New returns a store that namespaces its keys with prefix (DefaultPrefix when empty).
func New(client redis.UniversalClient, prefix string) *Store {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Store{client: client, prefix: prefix}
}

func (s *Store) scheduleKey(roomID string, day clock.Date) string {
	return fmt.Sprintf("%s:schedule:%s:%s", s.prefix, day, roomID)
}

func (s *Store) indexKey() string {
	return s.prefix + ":schedule-days"
}

// Get returns the stored schedule for the room and day.
func (s *Store) Get(ctx context.Context, roomID string, day clock.Date) (persistence.VersionedEntity[scheduler.RoomDaySchedule], error) {
	values, err := s.client.HMGet(ctx, s.scheduleKey(roomID, day), fieldVersion, fieldPayload).Result()
	if err != nil {
		return persistence.VersionedEntity[scheduler.RoomDaySchedule]{}, fmt.Errorf("redisstore: get schedule: %w", err)
	}
	return decodeEntry(values)
}

// Save writes the schedule when its version follows the stored one. The
// version check and the write run under WATCH, so a concurrent writer makes
// the transaction fail and the save report a stale version.
func (s *Store) Save(ctx context.Context, entity persistence.VersionedEntity[scheduler.RoomDaySchedule]) error {
	payload, err := snapshot.Encode(entity.Entity)
	if err != nil {
		return err
	}
	day := entity.Entity.Day()
	key := s.scheduleKey(entity.Entity.Room().ID, day)

	var stored int
	err = s.client.Watch(ctx, func(tx *redis.Tx) error {
		var exists bool
		var err error
		stored, exists, err = readVersion(ctx, tx, key)
		if err != nil {
			return err
		}
		if err := persistence.CheckVersion(stored, exists, entity.Version); err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, key, fieldVersion, entity.Version, fieldPayload, payload)
			pipe.ZAdd(ctx, s.indexKey(), redis.Z{Score: float64(day.DayNumber()), Member: key})
			return nil
		})
		return err
	}, key)

	if errors.Is(err, redis.TxFailedErr) {
		// Another writer committed between WATCH and EXEC.
		current, _, readErr := readVersion(ctx, s.client, key)
		if readErr != nil {
			current = stored + 1
		}
		return &persistence.StaleVersionError{Expected: entity.Version, Actual: current}
	}
	if err != nil && !errors.Is(err, persistence.ErrStaleVersion) {
		return fmt.Errorf("redisstore: save schedule: %w", err)
	}
	return err
}

// AllBetween returns schedules whose day lies in [start, end], ordered by day then room.
func (s *Store) AllBetween(ctx context.Context, start, end clock.Date) ([]scheduler.RoomDaySchedule, error) {
	keys, err := s.client.ZRangeByScore(ctx, s.indexKey(), &redis.ZRangeBy{
		Min: strconv.FormatInt(start.DayNumber(), 10),
		Max: strconv.FormatInt(end.DayNumber(), 10),
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("redisstore: list schedule keys: %w", err)
	}
	if len(keys) == 0 {
		return nil, nil
	}

	cmds := make([]*redis.SliceCmd, 0, len(keys))
	_, err = s.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, key := range keys {
			cmds = append(cmds, pipe.HMGet(ctx, key, fieldVersion, fieldPayload))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("redisstore: load schedules: %w", err)
	}

	result := make([]scheduler.RoomDaySchedule, 0, len(cmds))
	for _, cmd := range cmds {
		entry, err := decodeEntry(cmd.Val())
		if errors.Is(err, persistence.ErrNotFound) {
			// Index entry without a hash, e.g. after a manual delete.
			continue
		}
		if err != nil {
			return nil, err
		}
		result = append(result, entry.Entity)
	}
	persistence.SortSchedules(result)
	return result, nil
}

type hashGetter interface {
	HGet(ctx context.Context, key, field string) *redis.StringCmd
}

func readVersion(ctx context.Context, c hashGetter, key string) (int, bool, error) {
	version, err := c.HGet(ctx, key, fieldVersion).Int()
	switch {
	case errors.Is(err, redis.Nil):
		return 0, false, nil
	case err != nil:
		return 0, false, fmt.Errorf("redisstore: read version: %w", err)
	}
	return version, true, nil
}

func decodeEntry(values []interface{}) (persistence.VersionedEntity[scheduler.RoomDaySchedule], error) {
	if len(values) != 2 || values[0] == nil || values[1] == nil {
		return persistence.VersionedEntity[scheduler.RoomDaySchedule]{}, persistence.ErrNotFound
	}
	versionText, _ := values[0].(string)
	payload, _ := values[1].(string)

	version, err := strconv.Atoi(versionText)
	if err != nil {
		return persistence.VersionedEntity[scheduler.RoomDaySchedule]{}, fmt.Errorf("redisstore: invalid version %q: %w", versionText, err)
	}
	schedule, err := snapshot.Decode([]byte(payload))
	if err != nil {
		return persistence.VersionedEntity[scheduler.RoomDaySchedule]{}, err
	}
	return persistence.VersionedEntity[scheduler.RoomDaySchedule]{Version: version, Entity: schedule}, nil
}
