package warnstore

import (
	"context"
	"sync"
)

type MemWarnStore struct {
	lk   sync.Mutex
	Data map[string]map[string][]WarnRecord
}

func NewMemWarnStore() *MemWarnStore {
	return &MemWarnStore{
		Data: make(map[string]map[string][]WarnRecord),
	}
}

func (s *MemWarnStore) AddWarn(ctx context.Context, guildID, userID string, rec WarnRecord) (int, error) {
	s.lk.Lock()
	defer s.lk.Unlock()
	return addToLayout(s.Data, guildID, userID, rec), nil
}

func (s *MemWarnStore) ClearWarns(ctx context.Context, guildID, userID string) error {
	s.lk.Lock()
	defer s.lk.Unlock()
	clearFromLayout(s.Data, guildID, userID)
	return nil
}

func (s *MemWarnStore) GetWarns(ctx context.Context, guildID, userID string) ([]WarnRecord, error) {
	s.lk.Lock()
	defer s.lk.Unlock()
	return copyRecords(s.Data[guildID][userID]), nil
}

func addToLayout(data map[string]map[string][]WarnRecord, guildID, userID string, rec WarnRecord) int {
	users, ok := data[guildID]
	if !ok {
		users = make(map[string][]WarnRecord)
		data[guildID] = users
	}
	users[userID] = append(users[userID], rec)
	return len(users[userID])
}

// returns true if anything was removed
func clearFromLayout(data map[string]map[string][]WarnRecord, guildID, userID string) bool {
	users, ok := data[guildID]
	if !ok {
		return false
	}
	if _, ok := users[userID]; !ok {
		return false
	}
	delete(users, userID)
	if len(users) == 0 {
		delete(data, guildID)
	}
	return true
}

func copyRecords(in []WarnRecord) []WarnRecord {
	out := make([]WarnRecord, len(in))
	copy(out, in)
	return out
}
