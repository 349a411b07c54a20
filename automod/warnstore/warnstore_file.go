package warnstore

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
)

// WarnStore backed by a single JSON file, laid out as guildId -> userId -> [record].
//
// The whole file is rewritten on every mutation, while holding the store lock, so writers never interleave. A missing or corrupt file is treated as an empty store. Write failures are logged and otherwise ignored: persistence is best-effort and the in-process state stays authoritative until restart.
type FileWarnStore struct {
	Path   string
	Logger *slog.Logger

	lk   sync.Mutex
	data map[string]map[string][]WarnRecord
}

var _ WarnStore = (*FileWarnStore)(nil)

func NewFileWarnStore(path string, logger *slog.Logger) *FileWarnStore {
	if logger == nil {
		logger = slog.Default()
	}
	s := &FileWarnStore{
		Path:   path,
		Logger: logger.With("store", "warns", "path", path),
	}
	s.data = s.load()
	return s
}

func (s *FileWarnStore) load() map[string]map[string][]WarnRecord {
	data := make(map[string]map[string][]WarnRecord)
	raw, err := os.ReadFile(s.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return data
	}
	if err != nil {
		s.Logger.Warn("failed to read warn store, starting empty", "err", err)
		return data
	}
	if err := json.Unmarshal(raw, &data); err != nil {
		s.Logger.Warn("corrupt warn store, starting empty", "err", err)
		return make(map[string]map[string][]WarnRecord)
	}
	if data == nil {
		data = make(map[string]map[string][]WarnRecord)
	}
	return data
}

// must hold s.lk
func (s *FileWarnStore) flush() {
	raw, err := json.MarshalIndent(s.data, "", "  ")
	if err != nil {
		s.Logger.Error("failed to encode warn store", "err", err)
		return
	}
	if err := writeFileReplace(s.Path, raw); err != nil {
		s.Logger.Error("failed to persist warn store", "err", err)
	}
}

func (s *FileWarnStore) AddWarn(ctx context.Context, guildID, userID string, rec WarnRecord) (int, error) {
	s.lk.Lock()
	defer s.lk.Unlock()
	count := addToLayout(s.data, guildID, userID, rec)
	s.flush()
	return count, nil
}

func (s *FileWarnStore) ClearWarns(ctx context.Context, guildID, userID string) error {
	s.lk.Lock()
	defer s.lk.Unlock()
	if clearFromLayout(s.data, guildID, userID) {
		s.flush()
	}
	return nil
}

func (s *FileWarnStore) GetWarns(ctx context.Context, guildID, userID string) ([]WarnRecord, error) {
	s.lk.Lock()
	defer s.lk.Unlock()
	return copyRecords(s.data[guildID][userID]), nil
}

// replaces the file contents in one step (temp file in the same directory, then rename)
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
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
