package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/deadlockdevs/warden/automod/countstore"
	"github.com/deadlockdevs/warden/automod/warnstore"
)

// counter name for the daily automated removal budget, bucketed by guild
const quotaCounter = "automod-quota"

type request struct {
	target   Target
	actor    Actor
	severity Severity
	// empty for manual actions
	rule     string
	reason   string
	duration time.Duration
}

// Converts a rule match in to a ledger update and a platform action. Platform failures come back as failed directives; nothing is retried or rolled back.
func (eng *Engine) Apply(ctx context.Context, rule *RuleSpec, v *Violation, target Target, actor Actor) Directive {
	req := request{
		target:   target,
		actor:    actor,
		severity: v.Severity,
		rule:     v.RuleName,
		reason:   v.Reason,
	}
	if v.Severity == SeverityMute {
		req.duration = rule.MuteDuration()
	}
	return eng.apply(ctx, req)
}

func (eng *Engine) apply(ctx context.Context, req request) Directive {
	unlock := eng.lockSubject(req.target.GuildID, req.target.UserID)
	defer unlock()

	var d Directive
	switch req.severity {
	case SeverityWarn:
		d = eng.applyWarn(ctx, req)
	case SeverityMute:
		d = eng.applyMute(ctx, req)
	case SeverityKick:
		d = eng.applyKick(ctx, req)
	case SeverityBan:
		d = eng.applyBan(ctx, req)
	default:
		d = Directive{Kind: DirectiveFailed, Action: req.severity, Err: ErrUnknownSeverity}
	}

	directiveCount.WithLabelValues(string(d.Kind), string(req.severity)).Inc()
	if d.Failed() {
		eng.logger().Warn("moderation action failed", "guild", req.target.GuildID, "user", req.target.UserID, "action", d.Action, "err", d.Err)
	}
	return d
}

func (eng *Engine) applyWarn(ctx context.Context, req request) Directive {
	rec := warnstore.WarnRecord{
		ActorID: req.actor.ID,
		Rule:    req.rule,
		Reason:  req.reason,
		At:      eng.now().UnixMilli(),
	}
	count, err := eng.Warns.AddWarn(ctx, req.target.GuildID, req.target.UserID, rec)
	if err != nil {
		return Directive{Kind: DirectiveFailed, Action: SeverityWarn, Err: fmt.Errorf("recording warn: %w", err)}
	}

	dmWarn := eng.sendDM(ctx, req.target.UserID, warnNotice(req, count))
	if count < WarnKickThreshold {
		return Directive{Kind: DirectiveWarned, WarnCount: count, DMSent: dmWarn}
	}

	if err := eng.checkQuota(ctx, req); err != nil {
		return Directive{Kind: DirectiveFailed, Action: SeverityKick, WarnCount: count, Err: err}
	}
	dmRemoval := eng.sendDM(ctx, req.target.UserID, removalNotice(req))
	kickReason := fmt.Sprintf("Manual warn threshold reached: %s", req.reason)
	if req.actor.Automated() {
		kickReason = fmt.Sprintf("AutoMod: %d warns - %s", WarnKickThreshold, req.reason)
	}
	if err := eng.Platform.Kick(ctx, req.target.GuildID, req.target.UserID, kickReason); err != nil {
		return Directive{Kind: DirectiveFailed, Action: SeverityKick, WarnCount: count, Err: err}
	}
	eng.spendQuota(ctx, req)
	if err := eng.Warns.ClearWarns(ctx, req.target.GuildID, req.target.UserID); err != nil {
		eng.logger().Error("failed to clear warns after kick", "guild", req.target.GuildID, "user", req.target.UserID, "err", err)
	}
	return Directive{Kind: DirectiveWarnedThenKicked, WarnCount: count, DMSent: dmRemoval}
}

func (eng *Engine) applyMute(ctx context.Context, req request) Directive {
	dur := req.duration
	if dur <= 0 {
		dur = DefaultMuteDuration
	}
	if err := eng.Platform.Timeout(ctx, req.target.GuildID, req.target.UserID, dur, eng.platformReason(req)); err != nil {
		return Directive{Kind: DirectiveFailed, Action: SeverityMute, Duration: dur, Err: err}
	}
	if eng.Mutes != nil {
		if _, err := eng.Mutes.AddMute(ctx, req.target.GuildID, req.target.UserID, dur, req.reason, req.actor.ID); err != nil {
			// the platform timeout still lapses on its own
			eng.logger().Error("failed to record mute", "guild", req.target.GuildID, "user", req.target.UserID, "err", err)
		}
	}
	return Directive{Kind: DirectiveMuted, Duration: dur}
}

func (eng *Engine) applyKick(ctx context.Context, req request) Directive {
	if err := eng.checkQuota(ctx, req); err != nil {
		return Directive{Kind: DirectiveFailed, Action: SeverityKick, Err: err}
	}
	if err := eng.Platform.Kick(ctx, req.target.GuildID, req.target.UserID, eng.platformReason(req)); err != nil {
		return Directive{Kind: DirectiveFailed, Action: SeverityKick, Err: err}
	}
	eng.spendQuota(ctx, req)
	return Directive{Kind: DirectiveKicked}
}

func (eng *Engine) applyBan(ctx context.Context, req request) Directive {
	if err := eng.checkQuota(ctx, req); err != nil {
		return Directive{Kind: DirectiveFailed, Action: SeverityBan, Err: err}
	}
	if err := eng.Platform.Ban(ctx, req.target.GuildID, req.target.UserID, eng.platformReason(req)); err != nil {
		return Directive{Kind: DirectiveFailed, Action: SeverityBan, Err: err}
	}
	eng.spendQuota(ctx, req)
	return Directive{Kind: DirectiveBanned}
}

func (eng *Engine) platformReason(req request) string {
	if req.actor.Automated() {
		return "AutoMod: " + req.reason
	}
	return req.reason
}

// Automated removals are capped per guild per day, when a quota is configured. Manual actions are never capped.
func (eng *Engine) checkQuota(ctx context.Context, req request) error {
	if !req.actor.Automated() || eng.AutoRemovalQuota <= 0 || eng.Counters == nil {
		return nil
	}
	n, err := eng.Counters.GetCount(ctx, quotaCounter, req.target.GuildID, countstore.PeriodDay)
	if err != nil {
		// fail open; the counter store being down shouldn't stop moderation
		eng.logger().Warn("failed to read removal quota", "guild", req.target.GuildID, "err", err)
		return nil
	}
	if n >= eng.AutoRemovalQuota {
		quotaExceededCount.Inc()
		return ErrQuotaExceeded
	}
	return nil
}

func (eng *Engine) spendQuota(ctx context.Context, req request) {
	if !req.actor.Automated() || eng.Counters == nil {
		return
	}
	if err := eng.Counters.Increment(ctx, quotaCounter, req.target.GuildID); err != nil {
		eng.logger().Warn("failed to count automated removal", "guild", req.target.GuildID, "err", err)
	}
}

// Best effort; only the outcome is reported.
func (eng *Engine) sendDM(ctx context.Context, userID, content string) bool {
	if err := eng.Platform.SendDM(ctx, userID, content); err != nil {
		eng.logger().Debug("failed to DM user", "user", userID, "err", err)
		return false
	}
	return true
}

func warnNotice(req request, count int) string {
	if req.actor.Automated() {
		return fmt.Sprintf("You received an AutoMod warning in %s.\nReason: %s\nRule: %s\nCount: %d/%d",
			req.target.GuildName, req.reason, req.rule, count, WarnKickThreshold)
	}
	return fmt.Sprintf("You have received a warning in %s.\nReason: %s\nCount: %d/%d\nIssued by: %s",
		req.target.GuildName, req.reason, count, WarnKickThreshold, req.actor.Mention())
}

func removalNotice(req request) string {
	if req.actor.Automated() {
		return fmt.Sprintf("You have reached %d AutoMod warnings and will be removed.\nLast reason: %s\nRule: %s\nChannel: <#%s>",
			WarnKickThreshold, req.reason, req.rule, req.actor.ChannelID)
	}
	return fmt.Sprintf("You have reached %d warnings and will be removed from the server.\nLast reason: %s\nIssued by: %s\nGuild: %s",
		WarnKickThreshold, req.reason, req.actor.Mention(), req.target.GuildName)
}
