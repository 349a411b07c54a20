package cooldown

import (
	"context"
	"time"

	"github.com/go-redis/cache/v9"
	"github.com/redis/go-redis/v9"
)

// Tracker shared through redis, with a small local TinyLFU cache in front.
type RedisTracker struct {
	Data  *cache.Cache
	TTL   time.Duration
	Clock func() time.Time
}

var _ Tracker = (*RedisTracker)(nil)

func NewRedisTracker(redisURL string, ttl time.Duration) (*RedisTracker, error) {
	ctx := context.Background()
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	rdb := redis.NewClient(opt)
	// check redis connection
	_, err = rdb.Ping(ctx).Result()
	if err != nil {
		return nil, err
	}
	data := cache.New(&cache.Options{
		Redis:      rdb,
		LocalCache: cache.NewTinyLFU(10_000, ttl),
	})
	return &RedisTracker{
		Data:  data,
		TTL:   ttl,
		Clock: time.Now,
	}, nil
}

func redisTrackerKey(guildID, userID string) string {
	return "cooldown/" + trackerKey(guildID, userID)
}

func (t *RedisTracker) Active(ctx context.Context, guildID, userID string, window time.Duration) (bool, error) {
	if window <= 0 {
		return false, nil
	}
	var last int64
	err := t.Data.Get(ctx, redisTrackerKey(guildID, userID), &last)
	if err == cache.ErrCacheMiss {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return t.Clock().UnixMilli()-last < window.Milliseconds(), nil
}

func (t *RedisTracker) Touch(ctx context.Context, guildID, userID string) error {
	return t.Data.Set(&cache.Item{
		Ctx:   ctx,
		Key:   redisTrackerKey(guildID, userID),
		Value: t.Clock().UnixMilli(),
		TTL:   t.TTL,
	})
}
