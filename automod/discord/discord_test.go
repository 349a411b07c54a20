package discord

import (
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/deadlockdevs/warden/automod/engine"
	"github.com/stretchr/testify/assert"
)

func testGatewayMessage() *discordgo.Message {
	return &discordgo.Message{
		ID:        "m1",
		GuildID:   "g1",
		ChannelID: "c1",
		Content:   "hello <@2> <@3>",
		Author:    &discordgo.User{ID: "1", Username: "alice", Discriminator: "0"},
		Member:    &discordgo.Member{Roles: []string{"r1", "r2"}},
		Mentions: []*discordgo.User{
			{ID: "2", Username: "bob", Discriminator: "0"},
			{ID: "3", Username: "carol", Discriminator: "4242"},
		},
		MentionRoles:    []string{"r9"},
		MentionEveryone: true,
		Timestamp:       time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestConvertMessage(t *testing.T) {
	assert := assert.New(t)

	msg := ConvertMessage(testGatewayMessage(), "Test Guild")
	assert.Equal(&engine.Message{
		ID:        "m1",
		GuildID:   "g1",
		GuildName: "Test Guild",
		ChannelID: "c1",
		Author:    engine.Author{ID: "1", Tag: "alice"},
		RoleIDs:   []string{"r1", "r2"},
		Content:   "hello <@2> <@3>",
		Mentions:  engine.Mentions{Users: 2, Roles: 1, Everyone: true},
		CreatedAt: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
	}, msg)
	assert.Equal(4, msg.Mentions.Total())

	bare := ConvertMessage(&discordgo.Message{ID: "m2", ChannelID: "dm"}, "")
	assert.Equal("", bare.Author.ID)
	assert.Nil(bare.RoleIDs)
}

func TestAuthorAndMentions(t *testing.T) {
	assert := assert.New(t)
	m := testGatewayMessage()

	author := authorMember(m)
	assert.Equal("1", author.UserID)
	assert.Equal("alice", author.Tag)
	assert.Equal([]string{"r1", "r2"}, author.RoleIDs)
	assert.Equal([]string{"2", "3"}, mentionIDs(m))
}

func TestAuditEmbed(t *testing.T) {
	assert := assert.New(t)
	at := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	automated := &engine.AuditEntry{
		Title:     "AutoMod Action",
		ChannelID: "c1",
		Target:    engine.Target{GuildID: "g1", UserID: "1", Tag: "alice"},
		Actor:     engine.AutomodActor("c1"),
		Rule:      "blockedDomains",
		Severity:  engine.SeverityMute,
		Reason:    "Links to blocked domains are not allowed.",
		Directive: engine.Directive{Kind: engine.DirectiveMuted, Duration: 10 * time.Minute},
		Content:   "free stuff at http://short.url/abc",
		At:        at,
	}
	embed := AuditEmbed(automated)
	assert.Equal("AutoMod Action", embed.Title)
	assert.Equal(auditEmbedColor, embed.Color)
	assert.Equal("Links to blocked domains are not allowed.\nAction: muted 10m", embed.Description)
	assert.Equal("2024-03-01T12:00:00Z", embed.Timestamp)
	names := []string{}
	for _, f := range embed.Fields {
		names = append(names, f.Name)
	}
	assert.Equal([]string{"User", "Channel", "Rule", "Severity", "Content"}, names)
	assert.Equal("alice (1)", embed.Fields[0].Value)
	assert.Equal("<#c1>", embed.Fields[1].Value)

	manual := &engine.AuditEntry{
		Title:  "User unmuted",
		Target: engine.Target{GuildID: "g1", UserID: "1"},
		Actor:  engine.Actor{ID: "99"},
		Body:   "1 unmuted by <@99>",
		At:     at,
	}
	embed = AuditEmbed(manual)
	assert.Equal("1 unmuted by <@99>", embed.Description)
	assert.Equal(2, len(embed.Fields))
	assert.Equal("1 (1)", embed.Fields[0].Value)
	assert.Equal("Moderator", embed.Fields[1].Name)
	assert.Equal("<@99>", embed.Fields[1].Value)
}
