package engine

import (
	"sync"

	"github.com/puzpuzpuz/xsync/v3"
)

type subjectLock struct {
	mu   sync.Mutex
	refs int
}

// Serializes escalation for a single (guild, user). Entries are reference counted and dropped once no goroutine holds or waits on them.
func (eng *Engine) lockSubject(guildID, userID string) func() {
	eng.locksOnce.Do(func() {
		eng.locks = xsync.NewMapOf[string, *subjectLock]()
	})
	key := guildID + "/" + userID
	l, _ := eng.locks.Compute(key, func(old *subjectLock, loaded bool) (*subjectLock, bool) {
		if !loaded {
			old = &subjectLock{}
		}
		old.refs++
		return old, false
	})
	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		eng.locks.Compute(key, func(old *subjectLock, loaded bool) (*subjectLock, bool) {
			old.refs--
			return old, old.refs <= 0
		})
	}
}
