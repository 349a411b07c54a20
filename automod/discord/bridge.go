package discord

import (
	"context"
	"log/slog"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/deadlockdevs/warden/automod/commands"
	"github.com/deadlockdevs/warden/automod/engine"
)

// Gateway intents needed to read guild messages and resolve members.
const Intents = discordgo.IntentGuilds | discordgo.IntentGuildMessages | discordgo.IntentMessageContent | discordgo.IntentGuildMembers

// upper bound on handling a single gateway message
var handleTimeout = 2 * time.Minute

// Routes gateway messages: automod runs first, and commands only run if automod did not act on the message.
type Bridge struct {
	Engine   *engine.Engine
	Commands *commands.Handler
	Logger   *slog.Logger

	ctx context.Context
}

// Adds the message handler to the session. `ctx` is the parent of every per-message context.
func (b *Bridge) Register(ctx context.Context, s *discordgo.Session) {
	if b.Logger == nil {
		b.Logger = slog.Default()
	}
	b.ctx = ctx
	s.AddHandler(b.onReady)
	s.AddHandler(b.onMessageCreate)
}

func (b *Bridge) onReady(s *discordgo.Session, r *discordgo.Ready) {
	b.Logger.Info("discord session ready", "user", r.User.String(), "guilds", len(r.Guilds))
}

func (b *Bridge) onMessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.Bot || m.GuildID == "" {
		return
	}
	ctx, cancel := context.WithTimeout(b.ctx, handleTimeout)
	defer cancel()

	guildName := ""
	if g, err := s.State.Guild(m.GuildID); err == nil {
		guildName = g.Name
	}

	out, err := b.Engine.ProcessMessage(ctx, ConvertMessage(m.Message, guildName))
	if err != nil {
		b.Logger.Error("automod processing failed", "guild", m.GuildID, "message", m.ID, "err", err)
	}
	if out != nil || b.Commands == nil {
		return
	}

	inv := &commands.Invocation{
		GuildID:   m.GuildID,
		GuildName: guildName,
		ChannelID: m.ChannelID,
		Author:    authorMember(m.Message),
		Content:   m.Content,
		Mentions:  mentionIDs(m.Message),
	}
	if inv.Author.UserID == "" {
		return
	}
	if perms, err := s.UserChannelPermissions(m.Author.ID, m.ChannelID, discordgo.WithContext(ctx)); err == nil {
		inv.Author.Permissions = perms
	} else {
		b.Logger.Warn("failed to resolve member permissions", "guild", m.GuildID, "user", m.Author.ID, "err", err)
	}

	reply, ok := b.Commands.Handle(ctx, inv)
	if !ok || reply == "" {
		return
	}
	if _, err := s.ChannelMessageSendReply(m.ChannelID, reply, m.Reference(), discordgo.WithContext(ctx)); err != nil {
		b.Logger.Warn("failed to send command reply", "guild", m.GuildID, "channel", m.ChannelID, "err", err)
	}
}

// Converts a gateway message to the engine's representation.
func ConvertMessage(m *discordgo.Message, guildName string) *engine.Message {
	msg := &engine.Message{
		ID:        m.ID,
		GuildID:   m.GuildID,
		GuildName: guildName,
		ChannelID: m.ChannelID,
		Content:   m.Content,
		Mentions: engine.Mentions{
			Users:    len(m.Mentions),
			Roles:    len(m.MentionRoles),
			Everyone: m.MentionEveryone,
		},
		CreatedAt: m.Timestamp,
	}
	if m.Author != nil {
		msg.Author = engine.Author{ID: m.Author.ID, Tag: m.Author.String(), Bot: m.Author.Bot}
	}
	if m.Member != nil {
		msg.RoleIDs = m.Member.Roles
	}
	return msg
}

func authorMember(m *discordgo.Message) commands.Member {
	if m.Author == nil {
		return commands.Member{}
	}
	out := commands.Member{UserID: m.Author.ID, Tag: m.Author.String()}
	if m.Member != nil {
		out.RoleIDs = m.Member.Roles
	}
	return out
}

func mentionIDs(m *discordgo.Message) []string {
	var out []string
	for _, u := range m.Mentions {
		if u != nil {
			out = append(out, u.ID)
		}
	}
	return out
}
