// Per-user cooldown after an automod action, so a burst of offending messages from one account results in a single enforcement.
//
// Trackers record the time of the last action; the window is supplied on each check, so configuration reloads take effect immediately.
package cooldown

import (
	"context"
	"time"
)

type Tracker interface {
	// True if an action was recorded for (guild, user) within the trailing window.
	Active(ctx context.Context, guildID, userID string, window time.Duration) (bool, error)
	Touch(ctx context.Context, guildID, userID string) error
}

func trackerKey(guildID, userID string) string {
	return guildID + "/" + userID
}
