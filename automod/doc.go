// Automated moderation engine for chat communities.
//
// This package (`github.com/deadlockdevs/warden/automod`) inspects inbound messages against an ordered, configurable list of rules, and converts the first violation in to an escalating disciplinary action: warn, mute, kick or ban. Three warns result in a kick. Warns and mutes are persisted so they survive restarts, and mutes expire on a schedule which is rebuilt from storage at startup.
//
// Sub-packages hold the pieces: `engine` (message pipeline and escalation), `rules` (the rule kinds), `warnstore` and `mutestore` (persistence), `mutes` (the mute ledger and expiry scheduler), `ratelimit` (command admission), and `commands` (moderator commands). See `cmd/warden` for a daemon built on this package.
package automod
