// Prefix moderation commands ("!warn", "!mute", etc), with rate limiting and staff authorization.
package commands

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/deadlockdevs/warden/automod/countstore"
	"github.com/deadlockdevs/warden/automod/engine"
	"github.com/deadlockdevs/warden/automod/helpers"
	"github.com/deadlockdevs/warden/automod/ratelimit"
)

const DefaultPrefix = "!"

const (
	ReplyNotAuthorized  = "You are not authorized to use this command."
	ReplyUserNotFound   = "User not found."
	ReplyNeedDuration   = "Provide a duration like 1m, 1h, or 1d."
	ReplyMuteFailed     = "Unable to mute this user."
	ReplyWarnKickFailed = "Reached 3 warns but failed to kick this user."
	defaultReason       = "No reason provided"
)

// Looks up guild members. Returns a nil Member (and nil error) if the user is not in the guild.
type MemberLookup interface {
	Member(ctx context.Context, guildID, userID string) (*Member, error)
}

// A prefixed message from a guild member.
type Invocation struct {
	GuildID   string
	GuildName string
	ChannelID string
	Author    Member
	Content   string
	// user IDs mentioned in the message, in order
	Mentions []string
}

type commandFunc func(ctx context.Context, inv *Invocation, args []string) string

type commandDef struct {
	perm int64
	run  commandFunc
}

type Handler struct {
	Engine  *engine.Engine
	Limiter *ratelimit.Limiter
	Members MemberLookup
	Policy  StaffPolicy
	Prefix  string
	Logger  *slog.Logger

	commands map[string]commandDef
}

func NewHandler(eng *engine.Engine, limiter *ratelimit.Limiter, members MemberLookup, policy StaffPolicy, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Handler{
		Engine:  eng,
		Limiter: limiter,
		Members: members,
		Policy:  policy,
		Prefix:  DefaultPrefix,
		Logger:  logger,
	}
	h.commands = map[string]commandDef{
		"warn":       {perm: PermKickMembers, run: h.warn},
		"mute":       {perm: PermModerateMembers, run: h.mute},
		"unmute":     {perm: PermModerateMembers, run: h.unmute},
		"kick":       {perm: PermKickMembers, run: h.kick},
		"ban":        {perm: PermBanMembers, run: h.ban},
		"clearwarns": {perm: PermKickMembers, run: h.clearWarns},
		"warnings":   {perm: PermKickMembers, run: h.warnings},
		"modstats":   {perm: PermManageGuild, run: h.modStats},
	}
	return h
}

// Handles a message which may be a command. Returns the reply text, and false if the message was not a command at all. Every recognized command produces exactly one reply.
func (h *Handler) Handle(ctx context.Context, inv *Invocation) (string, bool) {
	name, args := Parse(h.Prefix, inv.Content)
	if name == "" {
		return "", false
	}

	if h.Limiter != nil {
		if d := h.Limiter.Admit(inv.Author.UserID, name); !d.Allowed {
			commandCount.WithLabelValues(name, "rate_limited").Inc()
			return d.Reason, true
		}
	}

	def, ok := h.commands[name]
	if !ok {
		return "", false
	}
	logger := h.Logger.With("guild", inv.GuildID, "channel", inv.ChannelID, "user", inv.Author.UserID, "command", name)
	logger.Info("moderation command used")

	if err := h.Policy.EnsureStaff(&inv.Author, def.perm); err != nil {
		commandCount.WithLabelValues(name, "denied").Inc()
		return ReplyNotAuthorized, true
	}
	reply := def.run(ctx, inv, args)
	commandCount.WithLabelValues(name, "ok").Inc()
	return reply, true
}

// Resolves the first argument (or, failing that, the first mention) to a target in the invoking guild.
func (h *Handler) resolveTarget(ctx context.Context, inv *Invocation, args []string) (*engine.Target, error) {
	userID := ""
	if len(args) > 0 {
		userID = ParseTarget(args[0])
	}
	if userID == "" && len(inv.Mentions) > 0 {
		userID = inv.Mentions[0]
	}
	if userID == "" {
		return nil, nil
	}
	m, err := h.Members.Member(ctx, inv.GuildID, userID)
	if err != nil || m == nil {
		return nil, err
	}
	return &engine.Target{
		GuildID:   inv.GuildID,
		GuildName: inv.GuildName,
		UserID:    m.UserID,
		Tag:       m.Tag,
	}, nil
}

func (h *Handler) target(ctx context.Context, inv *Invocation, args []string) *engine.Target {
	t, err := h.resolveTarget(ctx, inv, args)
	if err != nil {
		h.Logger.Warn("member lookup failed", "guild", inv.GuildID, "err", err)
	}
	return t
}

func actorOf(inv *Invocation) engine.Actor {
	return engine.Actor{ID: inv.Author.UserID, ChannelID: inv.ChannelID}
}

// Joins the remaining arguments as a sanitized reason.
func reasonFrom(args []string, skip int) string {
	if len(args) <= skip {
		return defaultReason
	}
	raw := strings.Join(args[skip:], " ")
	if strings.TrimSpace(raw) == "" {
		return defaultReason
	}
	return helpers.Sanitize(raw, helpers.CommandTextMaxLength)
}

func (h *Handler) warn(ctx context.Context, inv *Invocation, args []string) string {
	t := h.target(ctx, inv, args)
	if t == nil {
		return ReplyUserNotFound
	}
	d := h.Engine.Warn(ctx, *t, actorOf(inv), reasonFrom(args, 1))
	switch d.Kind {
	case engine.DirectiveWarned:
		return fmt.Sprintf("Warned %s. (%d/%d) DM %s.", t.Display(), d.WarnCount, engine.WarnKickThreshold, sentOrFailed(d.DMSent))
	case engine.DirectiveWarnedThenKicked:
		return fmt.Sprintf("Kicked %s after %d warnings. DM %s.", t.Display(), engine.WarnKickThreshold, sentOrFailed(d.DMSent))
	}
	if d.Action == engine.SeverityKick {
		return ReplyWarnKickFailed
	}
	return "Unable to warn this user."
}

func (h *Handler) mute(ctx context.Context, inv *Invocation, args []string) string {
	t := h.target(ctx, inv, args)
	if t == nil {
		return ReplyUserNotFound
	}
	if len(args) < 2 {
		return ReplyNeedDuration
	}
	dur, err := ParseDuration(args[1])
	if err != nil {
		return ReplyNeedDuration
	}
	d := h.Engine.Mute(ctx, *t, actorOf(inv), dur, reasonFrom(args, 2))
	if d.Failed() {
		return ReplyMuteFailed
	}
	return fmt.Sprintf("Muted %s for %s.", t.Display(), args[1])
}

func (h *Handler) unmute(ctx context.Context, inv *Invocation, args []string) string {
	t := h.target(ctx, inv, args)
	if t == nil {
		return ReplyUserNotFound
	}
	existed, err := h.Engine.Unmute(ctx, *t, actorOf(inv))
	if err != nil {
		h.Logger.Error("failed to clear mute", "guild", t.GuildID, "user", t.UserID, "err", err)
		return "Unable to unmute this user."
	}
	if !existed {
		return fmt.Sprintf("No recorded mute for %s; timeout lifted.", t.Display())
	}
	return fmt.Sprintf("Unmuted %s.", t.Display())
}

func (h *Handler) kick(ctx context.Context, inv *Invocation, args []string) string {
	t := h.target(ctx, inv, args)
	if t == nil {
		return ReplyUserNotFound
	}
	d := h.Engine.Kick(ctx, *t, actorOf(inv), reasonFrom(args, 1))
	if d.Failed() {
		return "Unable to kick this user."
	}
	return fmt.Sprintf("Kicked %s.", t.Display())
}

func (h *Handler) ban(ctx context.Context, inv *Invocation, args []string) string {
	t := h.target(ctx, inv, args)
	if t == nil {
		return ReplyUserNotFound
	}
	d := h.Engine.Ban(ctx, *t, actorOf(inv), reasonFrom(args, 1))
	if d.Failed() {
		return "Unable to ban this user."
	}
	return fmt.Sprintf("Banned %s.", t.Display())
}

func (h *Handler) clearWarns(ctx context.Context, inv *Invocation, args []string) string {
	t := h.target(ctx, inv, args)
	if t == nil {
		return ReplyUserNotFound
	}
	if err := h.Engine.ClearWarns(ctx, *t, actorOf(inv)); err != nil {
		h.Logger.Error("failed to clear warns", "guild", t.GuildID, "user", t.UserID, "err", err)
		return "Unable to clear warnings right now."
	}
	return fmt.Sprintf("Cleared warnings for %s.", t.Display())
}

func (h *Handler) warnings(ctx context.Context, inv *Invocation, args []string) string {
	t := h.target(ctx, inv, args)
	if t == nil {
		return ReplyUserNotFound
	}
	warns, err := h.Engine.Warnings(ctx, t.GuildID, t.UserID)
	if err != nil {
		h.Logger.Error("failed to read warns", "guild", t.GuildID, "user", t.UserID, "err", err)
		return "Unable to read warnings right now."
	}
	if len(warns) == 0 {
		return fmt.Sprintf("%s has no warnings.", t.Display())
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s has %d/%d warnings:", t.Display(), len(warns), engine.WarnKickThreshold)
	for i, w := range warns {
		by := "AutoMod"
		if w.ActorID != "" && w.ActorID != engine.AutomodActorID {
			by = "<@" + w.ActorID + ">"
		}
		fmt.Fprintf(&sb, "\n%d. %s (by %s", i+1, w.Reason, by)
		if w.Rule != "" {
			fmt.Fprintf(&sb, ", rule %s", w.Rule)
		}
		if w.At > 0 {
			fmt.Fprintf(&sb, ", <t:%d:R>", time.UnixMilli(w.At).Unix())
		}
		sb.WriteString(")")
	}
	return sb.String()
}

func (h *Handler) modStats(ctx context.Context, inv *Invocation, args []string) string {
	counters := h.Engine.Counters
	if counters == nil {
		return "Stats are not available."
	}
	g := inv.GuildID
	violations, err := counters.GetCount(ctx, engine.CounterViolation, g, countstore.PeriodDay)
	if err != nil {
		h.Logger.Error("failed to read counters", "guild", g, "err", err)
		return "Unable to read stats right now."
	}
	offenders, err := counters.GetCountDistinct(ctx, engine.CounterOffender, g, countstore.PeriodDay)
	if err != nil {
		h.Logger.Error("failed to read counters", "guild", g, "err", err)
		return "Unable to read stats right now."
	}
	total, err := counters.GetCount(ctx, engine.CounterViolation, g, countstore.PeriodTotal)
	if err != nil {
		h.Logger.Error("failed to read counters", "guild", g, "err", err)
		return "Unable to read stats right now."
	}
	return fmt.Sprintf("AutoMod today: %d violations from %d users. All time: %d violations.", violations, offenders, total)
}

func sentOrFailed(ok bool) string {
	if ok {
		return "sent"
	}
	return "failed"
}
