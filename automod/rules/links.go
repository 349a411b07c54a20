package rules

import (
	"regexp"
	"strings"

	"github.com/deadlockdevs/warden/automod"
)

var inviteRegex = regexp.MustCompile(`(?i)(discord\.(gg|com|io|me)/|discordapp\.com/invite)`)

var _ automod.MessageRuleFunc = DiscordInvitesRule

func DiscordInvitesRule(c *automod.MessageContext, rule *automod.RuleSpec) string {
	if !rule.Block {
		return ""
	}
	if inviteRegex.MatchString(c.Message.Content) {
		return "Discord invite links are not allowed."
	}
	return ""
}

var _ automod.MessageRuleFunc = BlockedDomainsRule

// Case-insensitive substring match on any listed domain, anywhere in the message.
func BlockedDomainsRule(c *automod.MessageContext, rule *automod.RuleSpec) string {
	parts := make([]string, 0, len(rule.Domains))
	for _, d := range rule.Domains {
		// an empty alternative would match every message
		if d == "" {
			continue
		}
		parts = append(parts, regexp.QuoteMeta(d))
	}
	if len(parts) == 0 {
		return ""
	}
	re, err := cachedRegexp(`(?i)` + strings.Join(parts, "|"))
	if err != nil {
		c.Logger.Warn("invalid blocked domain pattern", "rule", rule.Name, "err", err)
		return ""
	}
	if re.MatchString(c.Message.Content) {
		return "Links to blocked domains are not allowed."
	}
	return ""
}
