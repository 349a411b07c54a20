package mutestore

import (
	"context"
	"sync"
)

type MemMuteStore struct {
	lk      sync.Mutex
	Entries map[string]MuteEntry
}

func NewMemMuteStore() *MemMuteStore {
	return &MemMuteStore{
		Entries: make(map[string]MuteEntry),
	}
}

func (s *MemMuteStore) Load(ctx context.Context) ([]MuteEntry, error) {
	s.lk.Lock()
	defer s.lk.Unlock()
	out := make([]MuteEntry, 0, len(s.Entries))
	for _, e := range s.Entries {
		out = append(out, e)
	}
	return out, nil
}

func (s *MemMuteStore) Put(ctx context.Context, entry MuteEntry) error {
	s.lk.Lock()
	defer s.lk.Unlock()
	s.Entries[entry.Key()] = entry
	return nil
}

func (s *MemMuteStore) Delete(ctx context.Context, guildID, userID string) (int, error) {
	s.lk.Lock()
	defer s.lk.Unlock()
	k := EntryKey(guildID, userID)
	if _, ok := s.Entries[k]; !ok {
		return 0, nil
	}
	delete(s.Entries, k)
	return 1, nil
}

func (s *MemMuteStore) Replace(ctx context.Context, entries []MuteEntry) error {
	s.lk.Lock()
	defer s.lk.Unlock()
	s.Entries = make(map[string]MuteEntry, len(entries))
	for _, e := range Dedupe(entries) {
		s.Entries[e.Key()] = e
	}
	return nil
}
