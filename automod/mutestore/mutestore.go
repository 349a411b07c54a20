// Persistence for active mutes.
//
// Entries are indexed by (guild, user): a store holds at most one entry per pair, and writing a new entry for a muted user replaces the old one. Implementations exist for a JSON file (the default, compatible with the original bot's mutes file), redis, and SQL via gorm.
package mutestore

import (
	"context"
	"fmt"
	"time"
)

// Field names match the on-disk layout of the original mutes file.
type MuteEntry struct {
	GuildID string `json:"guildId"`
	UserID  string `json:"userId"`
	// unix epoch milliseconds
	EndsAt  int64  `json:"endsAt"`
	Reason  string `json:"reason"`
	ActorID string `json:"actorId"`
}

func (e *MuteEntry) Key() string {
	return EntryKey(e.GuildID, e.UserID)
}

func (e *MuteEntry) EndsAtTime() time.Time {
	return time.UnixMilli(e.EndsAt)
}

func (e *MuteEntry) Expired(now time.Time) bool {
	return e.EndsAt <= now.UnixMilli()
}

func EntryKey(guildID, userID string) string {
	return fmt.Sprintf("%s/%s", guildID, userID)
}

type MuteStore interface {
	// Returns every persisted entry, in no particular order.
	Load(ctx context.Context) ([]MuteEntry, error)
	// Inserts the entry, replacing any existing entry for the same (guild, user).
	Put(ctx context.Context, entry MuteEntry) error
	// Removes the entry for (guild, user), returning the number of entries removed. Removing a missing entry is not an error.
	Delete(ctx context.Context, guildID, userID string) (int, error)
	// Replaces the entire contents of the store.
	Replace(ctx context.Context, entries []MuteEntry) error
}

// Collapses entries to one per (guild, user), keeping the latest expiry. Files written by older versions may contain stacked duplicates.
func Dedupe(entries []MuteEntry) []MuteEntry {
	idx := make(map[string]int, len(entries))
	out := make([]MuteEntry, 0, len(entries))
	for _, e := range entries {
		k := e.Key()
		if i, ok := idx[k]; ok {
			if e.EndsAt > out[i].EndsAt {
				out[i] = e
			}
			continue
		}
		idx[k] = len(out)
		out = append(out, e)
	}
	return out
}
