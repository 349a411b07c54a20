package warnstore

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

var redisWarnPrefix string = "warns/"

// WarnStore using one redis list per (guild, user). RPUSH returns the new length, which makes AddWarn a single round-trip.
type RedisWarnStore struct {
	Client *redis.Client
}

var _ WarnStore = (*RedisWarnStore)(nil)

func NewRedisWarnStore(redisURL string) (*RedisWarnStore, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	rdb := redis.NewClient(opt)
	// check redis connection
	_, err = rdb.Ping(context.TODO()).Result()
	if err != nil {
		return nil, err
	}
	return &RedisWarnStore{Client: rdb}, nil
}

func (s *RedisWarnStore) AddWarn(ctx context.Context, guildID, userID string, rec WarnRecord) (int, error) {
	raw, err := json.Marshal(rec)
	if err != nil {
		return 0, err
	}
	n, err := s.Client.RPush(ctx, redisWarnPrefix+warnKey(guildID, userID), raw).Result()
	if err != nil {
		return 0, fmt.Errorf("appending warn: %w", err)
	}
	return int(n), nil
}

func (s *RedisWarnStore) ClearWarns(ctx context.Context, guildID, userID string) error {
	return s.Client.Del(ctx, redisWarnPrefix+warnKey(guildID, userID)).Err()
}

func (s *RedisWarnStore) GetWarns(ctx context.Context, guildID, userID string) ([]WarnRecord, error) {
	vals, err := s.Client.LRange(ctx, redisWarnPrefix+warnKey(guildID, userID), 0, -1).Result()
	if err == redis.Nil {
		return []WarnRecord{}, nil
	} else if err != nil {
		return nil, err
	}
	out := make([]WarnRecord, 0, len(vals))
	for _, v := range vals {
		var rec WarnRecord
		if err := json.Unmarshal([]byte(v), &rec); err != nil {
			return nil, fmt.Errorf("decoding warn record: %w", err)
		}
		out = append(out, rec)
	}
	return out, nil
}
