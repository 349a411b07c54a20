package engine

import (
	"context"
	"time"

	"github.com/deadlockdevs/warden/automod/mutestore"
)

// Chat platform primitives used to carry out moderation. Implementations should return an error for any failure; the engine converts errors to failed directives or ignores them for best-effort sends.
type Platform interface {
	SendDM(ctx context.Context, userID, content string) error
	SendMessage(ctx context.Context, channelID, content string) error
	DeleteMessage(ctx context.Context, channelID, messageID string) error
	Timeout(ctx context.Context, guildID, userID string, dur time.Duration, reason string) error
	RemoveTimeout(ctx context.Context, guildID, userID, reason string) error
	Kick(ctx context.Context, guildID, userID, reason string) error
	Ban(ctx context.Context, guildID, userID, reason string) error
}

type MuteLedger interface {
	AddMute(ctx context.Context, guildID, userID string, dur time.Duration, reason, actorID string) (*mutestore.MuteEntry, error)
	ClearMute(ctx context.Context, guildID, userID string) (bool, error)
}

// identifier recorded as the actor of automated actions
const AutomodActorID = "automod"

// User an action is taken against.
type Target struct {
	GuildID   string
	GuildName string
	UserID    string
	// display handle, like "name#0"; falls back to the user ID
	Tag string
}

func (t Target) Display() string {
	if t.Tag != "" {
		return t.Tag
	}
	return t.UserID
}

func (t Target) Mention() string {
	return "<@" + t.UserID + ">"
}

// Who is taking an action. The zero value is not valid; use AutomodActor for automated actions.
type Actor struct {
	ID string
	// channel where the action originated, if any
	ChannelID string
}

func AutomodActor(channelID string) Actor {
	return Actor{ID: AutomodActorID, ChannelID: channelID}
}

func (a Actor) Automated() bool {
	return a.ID == AutomodActorID
}

func (a Actor) Mention() string {
	if a.Automated() {
		return "AutoMod"
	}
	return "<@" + a.ID + ">"
}
