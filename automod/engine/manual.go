package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/deadlockdevs/warden/automod/warnstore"
)

// Moderator-issued actions. These share the escalation path with automod, so a manual warn can also trigger the warn threshold kick.

func (eng *Engine) Warn(ctx context.Context, target Target, actor Actor, reason string) Directive {
	d := eng.apply(ctx, request{target: target, actor: actor, severity: SeverityWarn, reason: reason})
	eng.auditManual(ctx, target, actor, SeverityWarn, reason, d)
	return d
}

func (eng *Engine) Mute(ctx context.Context, target Target, actor Actor, dur time.Duration, reason string) Directive {
	d := eng.apply(ctx, request{target: target, actor: actor, severity: SeverityMute, reason: reason, duration: dur})
	eng.auditManual(ctx, target, actor, SeverityMute, reason, d)
	return d
}

func (eng *Engine) Kick(ctx context.Context, target Target, actor Actor, reason string) Directive {
	d := eng.apply(ctx, request{target: target, actor: actor, severity: SeverityKick, reason: reason})
	eng.auditManual(ctx, target, actor, SeverityKick, reason, d)
	return d
}

func (eng *Engine) Ban(ctx context.Context, target Target, actor Actor, reason string) Directive {
	d := eng.apply(ctx, request{target: target, actor: actor, severity: SeverityBan, reason: reason})
	eng.auditManual(ctx, target, actor, SeverityBan, reason, d)
	return d
}

// Clears any recorded mute and lifts the platform timeout. Returns whether a mute was recorded.
func (eng *Engine) Unmute(ctx context.Context, target Target, actor Actor) (bool, error) {
	if eng.Mutes == nil {
		return false, fmt.Errorf("no mute ledger configured")
	}
	unlock := eng.lockSubject(target.GuildID, target.UserID)
	existed, err := eng.Mutes.ClearMute(ctx, target.GuildID, target.UserID)
	unlock()
	if err != nil {
		return false, err
	}
	eng.emitAudit(ctx, &AuditEntry{
		Title:  "User unmuted",
		Target: target,
		Actor:  actor,
		Body:   fmt.Sprintf("%s unmuted by %s", target.Display(), actor.Mention()),
		At:     eng.now(),
	})
	return existed, nil
}

func (eng *Engine) ClearWarns(ctx context.Context, target Target, actor Actor) error {
	unlock := eng.lockSubject(target.GuildID, target.UserID)
	err := eng.Warns.ClearWarns(ctx, target.GuildID, target.UserID)
	unlock()
	if err != nil {
		return err
	}
	eng.emitAudit(ctx, &AuditEntry{
		Title:  "Warns cleared",
		Target: target,
		Actor:  actor,
		Body:   fmt.Sprintf("Warns for %s cleared by %s", target.Display(), actor.Mention()),
		At:     eng.now(),
	})
	return nil
}

func (eng *Engine) Warnings(ctx context.Context, guildID, userID string) ([]warnstore.WarnRecord, error) {
	return eng.Warns.GetWarns(ctx, guildID, userID)
}

func (eng *Engine) auditManual(ctx context.Context, target Target, actor Actor, sev Severity, reason string, d Directive) {
	var title, body string
	switch d.Kind {
	case DirectiveWarned:
		title = "User warned"
		body = fmt.Sprintf("%s warned by %s (%d/%d) | Reason: %s | DM: %s", target.Display(), actor.Mention(), d.WarnCount, WarnKickThreshold, reason, sentOrFailed(d.DMSent))
	case DirectiveWarnedThenKicked:
		title = "Warn -> Kick"
		body = fmt.Sprintf("%s kicked after %d warns by %s | Reason: %s | DM: %s", target.Display(), WarnKickThreshold, actor.Mention(), reason, sentOrFailed(d.DMSent))
	case DirectiveMuted:
		title = "User muted"
		body = fmt.Sprintf("%s muted by %s for %s | Reason: %s", target.Display(), actor.Mention(), FormatDuration(d.Duration), reason)
	case DirectiveKicked:
		title = "User kicked"
		body = fmt.Sprintf("%s kicked by %s | Reason: %s", target.Display(), actor.Mention(), reason)
	case DirectiveBanned:
		title = "User banned"
		body = fmt.Sprintf("%s banned by %s | Reason: %s", target.Display(), actor.Mention(), reason)
	default:
		title = "Action failed"
		body = fmt.Sprintf("%s on %s by %s failed: %v | Reason: %s", d.Action, target.Display(), actor.Mention(), d.Err, reason)
	}
	eng.emitAudit(ctx, &AuditEntry{
		Title:     title,
		ChannelID: actor.ChannelID,
		Target:    target,
		Actor:     actor,
		Severity:  sev,
		Reason:    reason,
		Directive: d,
		Body:      body,
		At:        eng.now(),
	})
}

func sentOrFailed(ok bool) string {
	if ok {
		return "sent"
	}
	return "failed"
}
