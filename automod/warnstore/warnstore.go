package warnstore

import (
	"context"
	"fmt"
)

// ActorID recorded on warnings issued by the rules engine rather than a moderator.
const AutomodActor = "automod"

// One warning against a user. Field names match the on-disk layout of the original warns file.
type WarnRecord struct {
	ActorID string `json:"actor,omitempty"`
	Rule    string `json:"rule,omitempty"`
	Reason  string `json:"reason"`
	// unix epoch milliseconds
	At int64 `json:"at"`
}

// Durable, ordered, per-(guild, user) warning history. Records are append-only until cleared.
type WarnStore interface {
	// Appends a record and returns the new number of warnings for the user.
	AddWarn(ctx context.Context, guildID, userID string, rec WarnRecord) (int, error)
	// Removes all warnings for the user. Clearing a user with no warnings is not an error.
	ClearWarns(ctx context.Context, guildID, userID string) error
	GetWarns(ctx context.Context, guildID, userID string) ([]WarnRecord, error)
}

func warnKey(guildID, userID string) string {
	return fmt.Sprintf("%s/%s", guildID, userID)
}
