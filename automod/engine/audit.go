package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// Record of a moderation action, sent to every configured notifier.
type AuditEntry struct {
	Title string
	// configured log channel at the time of the action, if any
	LogChannel string
	// channel where the action originated
	ChannelID string
	Target    Target
	Actor     Actor
	Rule      string
	Severity  Severity
	// sanitized
	Reason    string
	Directive Directive
	// free-form description, for manual actions
	Body string

	// automod actions only: sanitized content of the offending message, a hash of the raw content, and normalized links found in it
	Content     string
	ContentHash string
	Links       []string

	At time.Time
}

// One-paragraph human-readable description.
func (a *AuditEntry) Summary() string {
	if a.Body != "" {
		return a.Body
	}
	var sb strings.Builder
	sb.WriteString(a.Reason)
	sb.WriteString("\nAction: ")
	sb.WriteString(a.Directive.String())
	d := a.Directive
	if d.Kind == DirectiveWarnedThenKicked || (d.Failed() && d.WarnCount > 0) {
		fmt.Fprintf(&sb, " | Warns: %d", d.WarnCount)
	}
	if d.Kind == DirectiveWarned && d.DMSent {
		sb.WriteString(" | DM sent")
	}
	return sb.String()
}

// Interface for a type that can deliver audit entries somewhere humans will see them.
type Notifier interface {
	SendAudit(ctx context.Context, entry *AuditEntry) error
}

// timeout for a single notifier delivery
var auditTimeout = 30 * time.Second

// Fire-and-forget: each notifier runs in its own goroutine, detached from the caller's cancellation. Failures are logged.
func (eng *Engine) emitAudit(ctx context.Context, entry *AuditEntry) {
	if entry.LogChannel == "" {
		entry.LogChannel = eng.Settings().LogChannelID
	}
	for _, n := range eng.Notifiers {
		eng.audits.Add(1)
		go func(n Notifier) {
			defer eng.audits.Done()
			actx, cancel := context.WithTimeout(context.WithoutCancel(ctx), auditTimeout)
			defer cancel()
			if err := n.SendAudit(actx, entry); err != nil {
				auditErrorCount.WithLabelValues(fmt.Sprintf("%T", n)).Inc()
				eng.logger().Warn("failed to deliver audit entry", "notifier", fmt.Sprintf("%T", n), "title", entry.Title, "err", err)
			}
		}(n)
	}
}

// Writes audit entries to the structured log.
type LogNotifier struct {
	Logger *slog.Logger
}

var _ Notifier = (*LogNotifier)(nil)

func (n *LogNotifier) SendAudit(ctx context.Context, entry *AuditEntry) error {
	logger := n.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("moderation audit",
		"title", entry.Title,
		"guild", entry.Target.GuildID,
		"user", entry.Target.UserID,
		"actor", entry.Actor.ID,
		"rule", entry.Rule,
		"severity", entry.Severity,
		"directive", entry.Directive.String(),
		"content_hash", entry.ContentHash,
		"links", entry.Links,
		"summary", entry.Summary(),
	)
	return nil
}
