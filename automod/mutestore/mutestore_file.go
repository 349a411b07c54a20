package mutestore

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

// MuteStore backed by a JSON file holding a flat list of entries.
//
// Entries are held in memory, indexed by (guild, user), and the whole file is rewritten on every mutation while the store lock is held. A missing or corrupt file loads as empty; write failures are logged and otherwise ignored.
type FileMuteStore struct {
	Path   string
	Logger *slog.Logger

	lk      sync.Mutex
	entries map[string]MuteEntry
}

var _ MuteStore = (*FileMuteStore)(nil)

func NewFileMuteStore(path string, logger *slog.Logger) *FileMuteStore {
	if logger == nil {
		logger = slog.Default()
	}
	s := &FileMuteStore{
		Path:   path,
		Logger: logger.With("store", "mutes", "path", path),
	}
	s.entries = make(map[string]MuteEntry)
	for _, e := range Dedupe(s.read()) {
		s.entries[e.Key()] = e
	}
	return s
}

func (s *FileMuteStore) read() []MuteEntry {
	raw, err := os.ReadFile(s.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		s.Logger.Warn("failed to read mute store, starting empty", "err", err)
		return nil
	}
	var entries []MuteEntry
	if err := json.Unmarshal(raw, &entries); err != nil {
		s.Logger.Warn("corrupt mute store, starting empty", "err", err)
		return nil
	}
	return entries
}

// must hold s.lk
func (s *FileMuteStore) flush() {
	list := make([]MuteEntry, 0, len(s.entries))
	for _, e := range s.entries {
		list = append(list, e)
	}
	// stable output keeps diffs of the file readable
	sort.Slice(list, func(i, j int) bool {
		if list[i].EndsAt != list[j].EndsAt {
			return list[i].EndsAt < list[j].EndsAt
		}
		return list[i].Key() < list[j].Key()
	})
	raw, err := json.MarshalIndent(list, "", "  ")
	if err != nil {
		s.Logger.Error("failed to encode mute store", "err", err)
		return
	}
	if err := writeFileReplace(s.Path, raw); err != nil {
		s.Logger.Error("failed to persist mute store", "err", err)
	}
}

func (s *FileMuteStore) Load(ctx context.Context) ([]MuteEntry, error) {
	s.lk.Lock()
	defer s.lk.Unlock()
	out := make([]MuteEntry, 0, len(s.entries))
	for _, e := range s.entries {
		out = append(out, e)
	}
	return out, nil
}

func (s *FileMuteStore) Put(ctx context.Context, entry MuteEntry) error {
	s.lk.Lock()
	defer s.lk.Unlock()
	s.entries[entry.Key()] = entry
	s.flush()
	return nil
}

func (s *FileMuteStore) Delete(ctx context.Context, guildID, userID string) (int, error) {
	s.lk.Lock()
	defer s.lk.Unlock()
	k := EntryKey(guildID, userID)
	if _, ok := s.entries[k]; !ok {
		return 0, nil
	}
	delete(s.entries, k)
	s.flush()
	return 1, nil
}

func (s *FileMuteStore) Replace(ctx context.Context, entries []MuteEntry) error {
	s.lk.Lock()
	defer s.lk.Unlock()
	s.entries = make(map[string]MuteEntry, len(entries))
	for _, e := range Dedupe(entries) {
		s.entries[e.Key()] = e
	}
	s.flush()
	return nil
}

func writeFileReplace(path string, raw []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	defer func() { _ = os.Remove(tmp.Name()) }()
	if _, err := tmp.Write(raw); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
