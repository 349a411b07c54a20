package discord

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/deadlockdevs/warden/automod/engine"
)

const auditEmbedColor = 0xda373c

// Posts audit entries as embeds to the configured log channel. Entries with no log channel are dropped.
type ChannelNotifier struct {
	Session *discordgo.Session
	// used when an entry carries no log channel
	DefaultChannel string
}

var _ engine.Notifier = (*ChannelNotifier)(nil)

func (n *ChannelNotifier) SendAudit(ctx context.Context, entry *engine.AuditEntry) error {
	channelID := entry.LogChannel
	if channelID == "" {
		channelID = n.DefaultChannel
	}
	if channelID == "" {
		return nil
	}
	_, err := n.Session.ChannelMessageSendEmbed(channelID, AuditEmbed(entry), discordgo.WithContext(ctx))
	return err
}

func embedField(name, value string, inline bool) *discordgo.MessageEmbedField {
	if value == "" {
		value = "-"
	}
	return &discordgo.MessageEmbedField{Name: name, Value: value, Inline: inline}
}

func AuditEmbed(entry *engine.AuditEntry) *discordgo.MessageEmbed {
	fields := []*discordgo.MessageEmbedField{
		embedField("User", fmt.Sprintf("%s (%s)", entry.Target.Display(), entry.Target.UserID), false),
	}
	if entry.ChannelID != "" {
		fields = append(fields, embedField("Channel", "<#"+entry.ChannelID+">", false))
	}
	if entry.Actor.Automated() {
		fields = append(fields,
			embedField("Rule", entry.Rule, true),
			embedField("Severity", string(entry.Severity), true),
			embedField("Content", entry.Content, false),
		)
	} else {
		fields = append(fields, embedField("Moderator", entry.Actor.Mention(), true))
	}

	at := entry.At
	if at.IsZero() {
		at = time.Now()
	}
	return &discordgo.MessageEmbed{
		Title:       entry.Title,
		Color:       auditEmbedColor,
		Description: entry.Summary(),
		Fields:      fields,
		Timestamp:   at.Format(time.RFC3339),
	}
}
