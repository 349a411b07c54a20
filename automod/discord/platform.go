// Discord adapter: carries out moderation actions through discordgo, posts audit entries to a log channel, and feeds gateway messages to the engine and command handler.
package discord

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/deadlockdevs/warden/automod/commands"
	"github.com/deadlockdevs/warden/automod/engine"
	"golang.org/x/time/rate"
)

// Implements engine.Platform and commands.MemberLookup on top of a discordgo session. Calls are paced by Limiter, on top of discordgo's own per-route rate limit handling.
type Platform struct {
	Session *discordgo.Session
	Limiter *rate.Limiter
}

var (
	_ engine.Platform       = (*Platform)(nil)
	_ commands.MemberLookup = (*Platform)(nil)
)

func NewPlatform(session *discordgo.Session, perSecond float64, burst int) *Platform {
	return &Platform{
		Session: session,
		Limiter: rate.NewLimiter(rate.Limit(perSecond), burst),
	}
}

func (p *Platform) wait(ctx context.Context) error {
	if p.Limiter == nil {
		return nil
	}
	return p.Limiter.Wait(ctx)
}

func (p *Platform) SendDM(ctx context.Context, userID, content string) error {
	if err := p.wait(ctx); err != nil {
		return err
	}
	ch, err := p.Session.UserChannelCreate(userID, discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("opening DM channel: %w", err)
	}
	_, err = p.Session.ChannelMessageSend(ch.ID, content, discordgo.WithContext(ctx))
	return err
}

func (p *Platform) SendMessage(ctx context.Context, channelID, content string) error {
	if err := p.wait(ctx); err != nil {
		return err
	}
	_, err := p.Session.ChannelMessageSend(channelID, content, discordgo.WithContext(ctx))
	return err
}

func (p *Platform) DeleteMessage(ctx context.Context, channelID, messageID string) error {
	if err := p.wait(ctx); err != nil {
		return err
	}
	return p.Session.ChannelMessageDelete(channelID, messageID, discordgo.WithContext(ctx))
}

func (p *Platform) Timeout(ctx context.Context, guildID, userID string, dur time.Duration, reason string) error {
	if err := p.wait(ctx); err != nil {
		return err
	}
	until := time.Now().Add(dur)
	return p.Session.GuildMemberTimeout(guildID, userID, &until, discordgo.WithContext(ctx), discordgo.WithAuditLogReason(reason))
}

func (p *Platform) RemoveTimeout(ctx context.Context, guildID, userID, reason string) error {
	if err := p.wait(ctx); err != nil {
		return err
	}
	return p.Session.GuildMemberTimeout(guildID, userID, nil, discordgo.WithContext(ctx), discordgo.WithAuditLogReason(reason))
}

func (p *Platform) Kick(ctx context.Context, guildID, userID, reason string) error {
	if err := p.wait(ctx); err != nil {
		return err
	}
	return p.Session.GuildMemberDeleteWithReason(guildID, userID, reason, discordgo.WithContext(ctx))
}

func (p *Platform) Ban(ctx context.Context, guildID, userID, reason string) error {
	if err := p.wait(ctx); err != nil {
		return err
	}
	return p.Session.GuildBanCreateWithReason(guildID, userID, reason, 0, discordgo.WithContext(ctx))
}

// Fetches a guild member. A member who is not in the guild (or an unknown user) is nil, not an error.
func (p *Platform) Member(ctx context.Context, guildID, userID string) (*commands.Member, error) {
	if m, err := p.Session.State.Member(guildID, userID); err == nil && m.User != nil {
		return &commands.Member{UserID: m.User.ID, Tag: m.User.String(), RoleIDs: m.Roles}, nil
	}
	if err := p.wait(ctx); err != nil {
		return nil, err
	}
	m, err := p.Session.GuildMember(guildID, userID, discordgo.WithContext(ctx))
	if err != nil {
		var restErr *discordgo.RESTError
		if errors.As(err, &restErr) && restErr.Response != nil && restErr.Response.StatusCode == http.StatusNotFound {
			return nil, nil
		}
		return nil, err
	}
	if m.User == nil {
		return nil, nil
	}
	return &commands.Member{UserID: m.User.ID, Tag: m.User.String(), RoleIDs: m.Roles}, nil
}
