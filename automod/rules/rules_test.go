package rules

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/deadlockdevs/warden/automod"
	"github.com/deadlockdevs/warden/automod/engine"
	"github.com/stretchr/testify/assert"
)

func ruleContext(content string) *automod.MessageContext {
	return &automod.MessageContext{
		Ctx:     context.Background(),
		Logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		Message: engine.TestMessage(content),
	}
}

func TestBlockedWordsRule(t *testing.T) {
	assert := assert.New(t)
	rule := &automod.RuleSpec{Name: "blockedWords", Blocked: []string{"badword1", "c++", ""}}

	fixtures := []struct {
		text   string
		reason string
	}{
		{text: "", reason: ""},
		{text: "all good", reason: ""},
		{text: "this has BADWORD1 in it", reason: "Blocked word detected: badword1"},
		{text: "badword1s", reason: ""},
		{text: "xbadword1", reason: ""},
		{text: "(badword1)", reason: "Blocked word detected: badword1"},
		{text: "i like c++ a lot", reason: ""},
	}
	for _, fix := range fixtures {
		assert.Equal(fix.reason, BlockedWordsRule(ruleContext(fix.text), rule), fix.text)
	}

	// first listed word wins, not first in the text
	rule = &automod.RuleSpec{Name: "blockedWords", Blocked: []string{"zeta", "alpha"}}
	assert.Equal("Blocked word detected: zeta", BlockedWordsRule(ruleContext("alpha zeta"), rule))
	assert.Equal("", BlockedWordsRule(ruleContext("alpha zeta"), &automod.RuleSpec{}))
}

func TestBlockedTokensRule(t *testing.T) {
	assert := assert.New(t)
	rule := &automod.RuleSpec{Name: "strictWords", Kind: "blockedTokens", Blocked: []string{"badword"}}

	assert.Equal("Blocked word detected: badword", BlockedTokensRule(ruleContext("ｂáｄｗｏｒｄ"), rule))
	assert.Equal("", BlockedTokensRule(ruleContext("good words"), rule))
	assert.Equal("", BlockedTokensRule(ruleContext("badword"), &automod.RuleSpec{}))
}

func TestDiscordInvitesRule(t *testing.T) {
	assert := assert.New(t)
	rule := &automod.RuleSpec{Name: "discordInvites", Block: true}

	for _, text := range []string{
		"join discord.gg/abc",
		"https://DISCORD.com/invite/xyz",
		"discordapp.com/invite/abc",
		"discord.me/server",
	} {
		assert.Equal("Discord invite links are not allowed.", DiscordInvitesRule(ruleContext(text), rule), text)
	}
	assert.Equal("", DiscordInvitesRule(ruleContext("I like discord"), rule))
	assert.Equal("", DiscordInvitesRule(ruleContext("discord.gg/abc"), &automod.RuleSpec{Block: false}))
}

func TestBlockedDomainsRule(t *testing.T) {
	assert := assert.New(t)
	rule := &automod.RuleSpec{Name: "blockedDomains", Domains: []string{"short.url", "bad.example"}}

	assert.Equal("Links to blocked domains are not allowed.", BlockedDomainsRule(ruleContext("go to http://SHORT.url/x"), rule))
	assert.Equal("Links to blocked domains are not allowed.", BlockedDomainsRule(ruleContext("bad.example"), rule))
	// dots are literal
	assert.Equal("", BlockedDomainsRule(ruleContext("shortXurl"), rule))
	assert.Equal("", BlockedDomainsRule(ruleContext("anything"), &automod.RuleSpec{Domains: []string{""}}))
	assert.Equal("", BlockedDomainsRule(ruleContext("anything"), &automod.RuleSpec{}))
}

func TestMentionsRule(t *testing.T) {
	assert := assert.New(t)
	rule := &automod.RuleSpec{Name: "mentions", Max: 5}

	c := ruleContext("hi")
	c.Message.Mentions.Users = 3
	c.Message.Mentions.Roles = 2
	assert.Equal("", MentionsRule(c, rule))

	c.Message.Mentions.Everyone = true
	assert.Equal("Too many mentions (6/5).", MentionsRule(c, rule))
	assert.Equal("", MentionsRule(c, &automod.RuleSpec{}))
}

func TestEmojiRule(t *testing.T) {
	assert := assert.New(t)
	rule := &automod.RuleSpec{Name: "emoji", Max: 2}

	assert.Equal("", EmojiRule(ruleContext("😀 <:pog:1234>"), rule))
	assert.Equal("Too many emoji (3/2).", EmojiRule(ruleContext("😀 <:pog:1234> <a:dance:99>"), rule))
	assert.Equal("", EmojiRule(ruleContext("😀😀😀"), &automod.RuleSpec{}))
}

func TestCapsRule(t *testing.T) {
	assert := assert.New(t)
	rule := &automod.RuleSpec{Name: "caps", MinLength: 12, MaxPercent: 70}

	assert.Equal("Excessive caps (100% > 70%).", CapsRule(ruleContext("THIS IS VERY LOUD"), rule))
	// too short to judge
	assert.Equal("", CapsRule(ruleContext("LOUD"), rule))
	assert.Equal("", CapsRule(ruleContext("This is a normal sentence"), rule))
	// exactly at the limit does not fire
	assert.Equal("", CapsRule(ruleContext("AAAAAAAbbb 1234"), rule))
	assert.Equal("", CapsRule(ruleContext("THIS IS VERY LOUD"), &automod.RuleSpec{MinLength: 1}))
}
