package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/deadlockdevs/warden/automod/cooldown"
	"github.com/deadlockdevs/warden/automod/countstore"
	"github.com/deadlockdevs/warden/automod/helpers"
	"github.com/deadlockdevs/warden/automod/warnstore"
	"github.com/puzpuzpuz/xsync/v3"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var tracer = otel.Tracer("automod")

// counter names, for stats
const (
	CounterViolation = "violation"
	CounterRule      = "rule"
	CounterAction    = "action"
	CounterOffender  = "offender"
)

// runtime for evaluating messages against automod rules, escalating violations, and recording moderation actions.
//
// Platform and Warns must be set. Mutes, Cooldowns and Counters are optional.
type Engine struct {
	Logger    *slog.Logger
	Rules     RuleSet
	Platform  Platform
	Warns     warnstore.WarnStore
	Mutes     MuteLedger
	Cooldowns cooldown.Tracker
	Counters  countstore.CountStore
	Notifiers []Notifier
	// max automated kicks and bans per guild per UTC day. zero disables the limit
	AutoRemovalQuota int
	Clock            func() time.Time

	settings  atomic.Pointer[Settings]
	locksOnce sync.Once
	locks     *xsync.MapOf[string, *subjectLock]
	audits    sync.WaitGroup
}

// Outcome of automod processing for a message which violated a rule.
type Outcome struct {
	Rule      RuleSpec
	Violation Violation
	Directive Directive
}

func (eng *Engine) logger() *slog.Logger {
	if eng.Logger != nil {
		return eng.Logger
	}
	return slog.Default()
}

func (eng *Engine) now() time.Time {
	if eng.Clock != nil {
		return eng.Clock()
	}
	return time.Now()
}

// Current automod settings. Never nil.
func (eng *Engine) Settings() *Settings {
	if s := eng.settings.Load(); s != nil {
		return s
	}
	return DefaultSettings()
}

// Swaps in new settings. Messages already being processed keep the settings they started with.
func (eng *Engine) SetSettings(s *Settings) {
	eng.settings.Store(s)
}

// Runs automod over a single message. Returns nil if the message was skipped or did not violate any rule.
func (eng *Engine) ProcessMessage(ctx context.Context, msg *Message) (out *Outcome, err error) {
	ctx, span := tracer.Start(ctx, "ProcessMessage")
	defer span.End()
	span.SetAttributes(attribute.String("guild", msg.GuildID), attribute.String("channel", msg.ChannelID))

	start := time.Now()
	defer func() {
		messageProcessDuration.Observe(time.Since(start).Seconds())
	}()

	// similar to an HTTP server, we want to recover any panics from rule execution
	defer func() {
		if r := recover(); r != nil {
			eng.logger().Error("automod message execution exception", "err", r, "guild", msg.GuildID, "message", msg.ID)
			messageErrorCount.Inc()
			out = nil
			err = fmt.Errorf("automod panic: %v", r)
		}
	}()

	settings := eng.Settings()
	if skip := eng.skipReason(settings, msg); skip != "" {
		messageProcessCount.WithLabelValues("skipped").Inc()
		return nil, nil
	}
	if msg.Author.ID == "" {
		return nil, fmt.Errorf("message %s has no author", msg.ID)
	}

	logger := eng.logger().With("guild", msg.GuildID, "channel", msg.ChannelID, "user", msg.Author.ID, "message", msg.ID)
	if eng.Cooldowns != nil {
		active, err := eng.Cooldowns.Active(ctx, msg.GuildID, msg.Author.ID, settings.Cooldown())
		if err != nil {
			logger.Warn("cooldown check failed", "err", err)
		} else if active {
			messageProcessCount.WithLabelValues("cooldown").Inc()
			return nil, nil
		}
	}

	mc := &MessageContext{
		Ctx:     ctx,
		Logger:  logger,
		Message: msg,
	}
	rule, v := eng.Rules.Evaluate(mc, settings.Rules)
	if v == nil {
		messageProcessCount.WithLabelValues("clean").Inc()
		return nil, nil
	}
	messageProcessCount.WithLabelValues("violation").Inc()
	violationCount.WithLabelValues(v.RuleName, string(v.Severity)).Inc()
	span.SetAttributes(attribute.String("rule", v.RuleName))

	if eng.Cooldowns != nil {
		if err := eng.Cooldowns.Touch(ctx, msg.GuildID, msg.Author.ID); err != nil {
			logger.Warn("failed to record cooldown", "err", err)
		}
	}

	d := eng.HandleViolation(ctx, settings, msg, rule, v)
	logger.Info("canonical-automod-line",
		"rule", v.RuleName,
		"severity", v.Severity,
		"directive", d.String(),
		"failed", d.Failed(),
	)
	return &Outcome{Rule: *rule, Violation: *v, Directive: d}, nil
}

func (eng *Engine) skipReason(settings *Settings, msg *Message) string {
	switch {
	case !settings.Enabled:
		return "disabled"
	case msg.GuildID == "":
		return "direct-message"
	case msg.Author.Bot:
		return "bot"
	case settings.ShouldBypass(msg):
		return "bypass"
	}
	return ""
}

// Deletes the message (if configured), escalates, replies to the author (if configured), and emits an audit entry.
func (eng *Engine) HandleViolation(ctx context.Context, settings *Settings, msg *Message, rule *RuleSpec, v *Violation) Directive {
	logger := eng.logger().With("guild", msg.GuildID, "user", msg.Author.ID, "rule", v.RuleName)
	if settings.DeleteMessage {
		if err := eng.Platform.DeleteMessage(ctx, msg.ChannelID, msg.ID); err != nil {
			logger.Debug("failed to delete message", "err", err)
		}
	}

	target := Target{
		GuildID:   msg.GuildID,
		GuildName: msg.GuildName,
		UserID:    msg.Author.ID,
		Tag:       msg.Author.Tag,
	}
	d := eng.Apply(ctx, rule, v, target, AutomodActor(msg.ChannelID))

	if settings.ReplyToUser {
		reply := fmt.Sprintf("<@%s>, %s\n%s [%s]", msg.Author.ID, settings.ReplyMessage, v.Reason, d.String())
		if err := eng.Platform.SendMessage(ctx, msg.ChannelID, reply); err != nil {
			logger.Debug("failed to reply to user", "err", err)
		}
	}

	eng.countViolation(ctx, msg, v, d)
	eng.emitAudit(ctx, &AuditEntry{
		Title:       "AutoMod Action",
		LogChannel:  settings.LogChannelID,
		ChannelID:   msg.ChannelID,
		Target:      target,
		Actor:       AutomodActor(msg.ChannelID),
		Rule:        v.RuleName,
		Severity:    v.Severity,
		Reason:      v.Reason,
		Directive:   d,
		Content:     helpers.Sanitize(msg.Content, helpers.ReasonMaxLength),
		ContentHash: helpers.HashOfString(msg.Content),
		Links:       helpers.ExtractLinks(msg.Content),
		At:          eng.now(),
	})
	return d
}

func (eng *Engine) countViolation(ctx context.Context, msg *Message, v *Violation, d Directive) {
	if eng.Counters == nil {
		return
	}
	g := msg.GuildID
	for _, c := range [][2]string{
		{CounterViolation, g},
		{CounterRule, g + "/" + v.RuleName},
		{CounterAction, g + "/" + string(d.Kind)},
	} {
		if err := eng.Counters.Increment(ctx, c[0], c[1]); err != nil {
			eng.logger().Warn("failed to increment counter", "counter", c[0], "err", err)
		}
	}
	if err := eng.Counters.IncrementDistinct(ctx, CounterOffender, g, msg.Author.ID); err != nil {
		eng.logger().Warn("failed to increment counter", "counter", CounterOffender, "err", err)
	}
}

// Waits for in-flight audit notifications to finish.
func (eng *Engine) Flush() {
	eng.audits.Wait()
}
