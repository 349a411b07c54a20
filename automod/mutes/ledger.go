// Package mutes implements the mute ledger: durable mute records with scheduled, crash-recoverable expiry.
//
// Expiry is driven by a single scheduler goroutine (Run) over a min-heap of entries ordered by end time. The heap is indexed by (guild, user), and every armed entry corresponds to exactly one persisted entry.
package mutes

import (
	"container/heap"
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/deadlockdevs/warden/automod/mutestore"
)

// Lifts a platform-side timeout. Called on expiry and on manual clears; failures are logged and otherwise ignored.
type Unmuter interface {
	RemoveTimeout(ctx context.Context, guildID, userID, reason string) error
}

type Ledger struct {
	Store   mutestore.MuteStore
	Unmuter Unmuter
	Logger  *slog.Logger
	Clock   func() time.Time

	lk    sync.Mutex
	queue expiryHeap
	index map[string]*heapItem
	wake  chan struct{}
}

func NewLedger(store mutestore.MuteStore, unmuter Unmuter, logger *slog.Logger) *Ledger {
	if logger == nil {
		logger = slog.Default()
	}
	return &Ledger{
		Store:   store,
		Unmuter: unmuter,
		Logger:  logger.With("component", "mutes"),
		Clock:   time.Now,
		index:   make(map[string]*heapItem),
		wake:    make(chan struct{}, 1),
	}
}

func (l *Ledger) now() time.Time {
	if l.Clock != nil {
		return l.Clock()
	}
	return time.Now()
}

// non-blocking nudge to the scheduler loop
func (l *Ledger) notify() {
	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// must hold l.lk
func (l *Ledger) arm(e mutestore.MuteEntry) {
	k := e.Key()
	if it, ok := l.index[k]; ok {
		it.entry = e
		heap.Fix(&l.queue, it.index)
		return
	}
	it := &heapItem{entry: e}
	heap.Push(&l.queue, it)
	l.index[k] = it
	activeMutes.Set(float64(len(l.queue)))
}

// must hold l.lk
func (l *Ledger) disarm(k string) bool {
	it, ok := l.index[k]
	if !ok {
		return false
	}
	heap.Remove(&l.queue, it.index)
	delete(l.index, k)
	activeMutes.Set(float64(len(l.queue)))
	return true
}

// Records a mute ending `dur` from now and arms its expiry. An existing mute for the same (guild, user) is replaced.
func (l *Ledger) AddMute(ctx context.Context, guildID, userID string, dur time.Duration, reason, actorID string) (*mutestore.MuteEntry, error) {
	if dur <= 0 {
		return nil, fmt.Errorf("mute duration must be positive: %s", dur)
	}
	e := mutestore.MuteEntry{
		GuildID: guildID,
		UserID:  userID,
		EndsAt:  l.now().Add(dur).UnixMilli(),
		Reason:  reason,
		ActorID: actorID,
	}

	l.lk.Lock()
	defer l.lk.Unlock()
	if err := l.Store.Put(ctx, e); err != nil {
		return nil, fmt.Errorf("persisting mute: %w", err)
	}
	l.arm(e)
	l.notify()
	return &e, nil
}

// Removes any mute for (guild, user) and makes a best-effort attempt to lift the platform timeout. Returns whether an entry existed.
func (l *Ledger) ClearMute(ctx context.Context, guildID, userID string) (bool, error) {
	k := mutestore.EntryKey(guildID, userID)

	l.lk.Lock()
	n, err := l.Store.Delete(ctx, guildID, userID)
	if err != nil {
		l.lk.Unlock()
		return false, fmt.Errorf("removing mute: %w", err)
	}
	armed := l.disarm(k)
	l.lk.Unlock()
	l.notify()

	l.liftTimeout(ctx, guildID, userID, "Mute cleared")
	return n > 0 || armed, nil
}

func (l *Ledger) liftTimeout(ctx context.Context, guildID, userID, reason string) {
	if l.Unmuter == nil {
		return
	}
	if err := l.Unmuter.RemoveTimeout(ctx, guildID, userID, reason); err != nil {
		unmuteFailures.Inc()
		l.Logger.Warn("failed to remove timeout", "guild", guildID, "user", userID, "err", err)
	}
}

// Recovery pass at process start. Entries which already expired are dropped without contacting the platform; the rest are re-armed with their original end times, and the store is rewritten to match.
func (l *Ledger) RestoreAll(ctx context.Context) (int, error) {
	entries, err := l.Store.Load(ctx)
	if err != nil {
		return 0, fmt.Errorf("loading mutes: %w", err)
	}
	now := l.now()
	remaining := make([]mutestore.MuteEntry, 0, len(entries))
	for _, e := range entries {
		if e.Expired(now) {
			continue
		}
		remaining = append(remaining, e)
	}
	remaining = mutestore.Dedupe(remaining)

	l.lk.Lock()
	defer l.lk.Unlock()
	if err := l.Store.Replace(ctx, remaining); err != nil {
		return 0, fmt.Errorf("rewriting mutes: %w", err)
	}
	l.queue = make(expiryHeap, 0, len(remaining))
	l.index = make(map[string]*heapItem, len(remaining))
	for _, e := range remaining {
		l.arm(e)
	}
	activeMutes.Set(float64(len(l.queue)))
	l.notify()

	l.Logger.Info("restored mutes", "loaded", len(entries), "armed", len(remaining))
	return len(remaining), nil
}

func (l *Ledger) Active(guildID, userID string) (mutestore.MuteEntry, bool) {
	l.lk.Lock()
	defer l.lk.Unlock()
	it, ok := l.index[mutestore.EntryKey(guildID, userID)]
	if !ok {
		return mutestore.MuteEntry{}, false
	}
	return it.entry, true
}

// Armed entries, soonest expiry first. An empty guildID lists every guild.
func (l *Ledger) List(guildID string) []mutestore.MuteEntry {
	l.lk.Lock()
	out := make([]mutestore.MuteEntry, 0, len(l.queue))
	for _, it := range l.queue {
		if guildID != "" && it.entry.GuildID != guildID {
			continue
		}
		out = append(out, it.entry)
	}
	l.lk.Unlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].EndsAt != out[j].EndsAt {
			return out[i].EndsAt < out[j].EndsAt
		}
		return out[i].Key() < out[j].Key()
	})
	return out
}

func (l *Ledger) nextDeadline() (time.Time, bool) {
	l.lk.Lock()
	defer l.lk.Unlock()
	it := l.queue.peek()
	if it == nil {
		return time.Time{}, false
	}
	return it.entry.EndsAtTime(), true
}

// Lifts every mute due at or before `now`. Returns the number of entries expired.
func (l *Ledger) expireDue(ctx context.Context, now time.Time) int {
	var due []mutestore.MuteEntry
	l.lk.Lock()
	for {
		it := l.queue.peek()
		if it == nil || !it.entry.Expired(now) {
			break
		}
		e := it.entry
		if _, err := l.Store.Delete(ctx, e.GuildID, e.UserID); err != nil {
			// leave it armed and retry on the next pass
			l.Logger.Error("failed to remove expired mute", "guild", e.GuildID, "user", e.UserID, "err", err)
			break
		}
		l.disarm(e.Key())
		due = append(due, e)
	}
	l.lk.Unlock()

	for _, e := range due {
		// skip if a fresh mute was recorded since the entry was popped
		if _, ok := l.Active(e.GuildID, e.UserID); ok {
			continue
		}
		expiredMutes.Inc()
		l.Logger.Info("mute expired", "guild", e.GuildID, "user", e.UserID)
		l.liftTimeout(ctx, e.GuildID, e.UserID, "Mute expired")
	}
	return len(due)
}

// Scheduler loop. Blocks until the context is cancelled.
func (l *Ledger) Run(ctx context.Context) error {
	// retry delay after a store failure leaves a due entry armed
	const retryDelay = 5 * time.Second

	timer := time.NewTimer(time.Hour)
	defer timer.Stop()
	for {
		wait := time.Hour
		if deadline, ok := l.nextDeadline(); ok {
			wait = deadline.Sub(l.now())
			if wait <= 0 {
				if l.expireDue(ctx, l.now()) == 0 {
					wait = retryDelay
				} else {
					continue
				}
			}
		}

		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer.Reset(wait)

		select {
		case <-ctx.Done():
			return nil
		case <-l.wake:
		case <-timer.C:
		}
	}
}
