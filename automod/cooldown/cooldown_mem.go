package cooldown

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

type MemTracker struct {
	Data  *expirable.LRU[string, int64]
	Clock func() time.Time
}

var _ Tracker = (*MemTracker)(nil)

// `ttl` bounds how long an entry is retained, and should be at least the largest configured window.
func NewMemTracker(capacity int, ttl time.Duration) *MemTracker {
	return &MemTracker{
		Data:  expirable.NewLRU[string, int64](capacity, nil, ttl),
		Clock: time.Now,
	}
}

func (t *MemTracker) Active(ctx context.Context, guildID, userID string, window time.Duration) (bool, error) {
	if window <= 0 {
		return false, nil
	}
	last, ok := t.Data.Get(trackerKey(guildID, userID))
	if !ok {
		return false, nil
	}
	return t.Clock().UnixMilli()-last < window.Milliseconds(), nil
}

func (t *MemTracker) Touch(ctx context.Context, guildID, userID string) error {
	t.Data.Add(trackerKey(guildID, userID), t.Clock().UnixMilli())
	return nil
}
