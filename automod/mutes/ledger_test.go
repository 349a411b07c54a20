package mutes

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/deadlockdevs/warden/automod/mutestore"
	"github.com/stretchr/testify/assert"
)

type fakeUnmuter struct {
	lk    sync.Mutex
	calls []string
	err   error
}

func (f *fakeUnmuter) RemoveTimeout(ctx context.Context, guildID, userID, reason string) error {
	f.lk.Lock()
	defer f.lk.Unlock()
	f.calls = append(f.calls, guildID+"/"+userID+":"+reason)
	return f.err
}

func (f *fakeUnmuter) Calls() []string {
	f.lk.Lock()
	defer f.lk.Unlock()
	return append([]string{}, f.calls...)
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestLedgerAddMute(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	now := time.UnixMilli(1_700_000_000_000)
	store := mutestore.NewMemMuteStore()
	l := NewLedger(store, &fakeUnmuter{}, nil)
	l.Clock = fixedClock(now)

	e, err := l.AddMute(ctx, "g1", "u1", 10*time.Minute, "spam", "automod")
	assert.NoError(err)
	assert.Equal(now.UnixMilli()+600_000, e.EndsAt)

	active, ok := l.Active("g1", "u1")
	assert.True(ok)
	assert.Equal("spam", active.Reason)

	persisted, err := store.Load(ctx)
	assert.NoError(err)
	assert.Equal([]mutestore.MuteEntry{*e}, persisted)

	// replacing a mute keeps a single armed entry
	_, err = l.AddMute(ctx, "g1", "u1", time.Minute, "again", "mod1")
	assert.NoError(err)
	assert.Equal(1, len(l.List("")))
	active, _ = l.Active("g1", "u1")
	assert.Equal(now.UnixMilli()+60_000, active.EndsAt)
	persisted, _ = store.Load(ctx)
	assert.Equal(1, len(persisted))

	_, err = l.AddMute(ctx, "g1", "u2", 0, "bad", "mod1")
	assert.Error(err)
}

func TestLedgerClearMute(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	store := mutestore.NewMemMuteStore()
	um := &fakeUnmuter{err: errors.New("member left")}
	l := NewLedger(store, um, nil)

	_, err := l.AddMute(ctx, "g1", "u1", time.Hour, "spam", "automod")
	assert.NoError(err)
	_, err = l.AddMute(ctx, "g1", "u2", time.Hour, "spam", "automod")
	assert.NoError(err)

	// platform failure does not surface
	existed, err := l.ClearMute(ctx, "g1", "u1")
	assert.NoError(err)
	assert.True(existed)
	assert.Equal([]string{"g1/u1:Mute cleared"}, um.Calls())

	_, ok := l.Active("g1", "u1")
	assert.False(ok)
	persisted, _ := store.Load(ctx)
	assert.Equal(1, len(persisted))
	assert.Equal("u2", persisted[0].UserID)

	existed, err = l.ClearMute(ctx, "g1", "u1")
	assert.NoError(err)
	assert.False(existed)
}

func TestLedgerRestoreAll(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	now := time.UnixMilli(1_700_000_000_000)
	store := mutestore.NewMemMuteStore()
	assert.NoError(store.Put(ctx, mutestore.MuteEntry{GuildID: "g1", UserID: "expired", EndsAt: now.UnixMilli() - 1}))
	assert.NoError(store.Put(ctx, mutestore.MuteEntry{GuildID: "g1", UserID: "exact", EndsAt: now.UnixMilli()}))
	assert.NoError(store.Put(ctx, mutestore.MuteEntry{GuildID: "g1", UserID: "later", EndsAt: now.UnixMilli() + 90_000, Reason: "spam"}))
	assert.NoError(store.Put(ctx, mutestore.MuteEntry{GuildID: "g2", UserID: "soon", EndsAt: now.UnixMilli() + 1_000}))

	um := &fakeUnmuter{}
	l := NewLedger(store, um, nil)
	l.Clock = fixedClock(now)

	n, err := l.RestoreAll(ctx)
	assert.NoError(err)
	assert.Equal(2, n)

	// expired entries are dropped without contacting the platform
	assert.Empty(um.Calls())

	// original end times are kept
	e, ok := l.Active("g1", "later")
	assert.True(ok)
	assert.Equal(now.UnixMilli()+90_000, e.EndsAt)
	assert.Equal("spam", e.Reason)

	list := l.List("")
	assert.Equal(2, len(list))
	assert.Equal("soon", list[0].UserID)
	assert.Equal(1, len(l.List("g1")))

	persisted, _ := store.Load(ctx)
	assert.Equal(2, len(persisted))
}

func TestLedgerExpireDue(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	now := time.UnixMilli(1_700_000_000_000)
	store := mutestore.NewMemMuteStore()
	um := &fakeUnmuter{}
	l := NewLedger(store, um, nil)
	l.Clock = fixedClock(now)

	_, err := l.AddMute(ctx, "g1", "u1", time.Minute, "spam", "automod")
	assert.NoError(err)
	_, err = l.AddMute(ctx, "g1", "u2", time.Hour, "spam", "automod")
	assert.NoError(err)

	assert.Equal(0, l.expireDue(ctx, now.Add(59*time.Second)))
	assert.Equal(1, l.expireDue(ctx, now.Add(time.Minute)))
	assert.Equal([]string{"g1/u1:Mute expired"}, um.Calls())

	_, ok := l.Active("g1", "u1")
	assert.False(ok)
	persisted, _ := store.Load(ctx)
	assert.Equal(1, len(persisted))
	assert.Equal("u2", persisted[0].UserID)

	deadline, ok := l.nextDeadline()
	assert.True(ok)
	assert.Equal(now.Add(time.Hour).UnixMilli(), deadline.UnixMilli())
}

func TestLedgerRun(t *testing.T) {
	assert := assert.New(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	um := &fakeUnmuter{}
	l := NewLedger(mutestore.NewMemMuteStore(), um, nil)

	done := make(chan struct{})
	go func() {
		_ = l.Run(ctx)
		close(done)
	}()

	_, err := l.AddMute(ctx, "g1", "u1", 50*time.Millisecond, "spam", "automod")
	assert.NoError(err)

	assert.Eventually(func() bool {
		return len(um.Calls()) == 1
	}, 2*time.Second, 10*time.Millisecond)
	assert.Empty(l.List(""))

	cancel()
	<-done
}
