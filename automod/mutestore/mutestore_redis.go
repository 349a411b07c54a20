package mutestore

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// single hash; field is "guild/user", value is the JSON entry
var redisMuteKey string = "mutes/active"

type RedisMuteStore struct {
	Client *redis.Client
}

var _ MuteStore = (*RedisMuteStore)(nil)

func NewRedisMuteStore(redisURL string) (*RedisMuteStore, error) {
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
	return &RedisMuteStore{Client: rdb}, nil
}

func (s *RedisMuteStore) Load(ctx context.Context) ([]MuteEntry, error) {
	vals, err := s.Client.HGetAll(ctx, redisMuteKey).Result()
	if err == redis.Nil {
		return []MuteEntry{}, nil
	} else if err != nil {
		return nil, err
	}
	out := make([]MuteEntry, 0, len(vals))
	for field, v := range vals {
		var e MuteEntry
		if err := json.Unmarshal([]byte(v), &e); err != nil {
			return nil, fmt.Errorf("decoding mute entry %s: %w", field, err)
		}
		out = append(out, e)
	}
	return out, nil
}

func (s *RedisMuteStore) Put(ctx context.Context, entry MuteEntry) error {
	raw, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	return s.Client.HSet(ctx, redisMuteKey, entry.Key(), raw).Err()
}

func (s *RedisMuteStore) Delete(ctx context.Context, guildID, userID string) (int, error) {
	n, err := s.Client.HDel(ctx, redisMuteKey, EntryKey(guildID, userID)).Result()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

func (s *RedisMuteStore) Replace(ctx context.Context, entries []MuteEntry) error {
	// delete and re-populate in a single MULTI/EXEC round-trip
	multi := s.Client.TxPipeline()
	multi.Del(ctx, redisMuteKey)
	for _, e := range Dedupe(entries) {
		raw, err := json.Marshal(e)
		if err != nil {
			return err
		}
		multi.HSet(ctx, redisMuteKey, e.Key(), raw)
	}
	_, err := multi.Exec(ctx)
	return err
}
