package rules

import (
	"github.com/deadlockdevs/warden/automod"
)

// Rule kinds, keyed by the name used in the settings file.
func DefaultRules() automod.RuleSet {
	rules := automod.RuleSet{
		Kinds: map[string]automod.MessageRuleFunc{
			"blockedWords":   BlockedWordsRule,
			"blockedTokens":  BlockedTokensRule,
			"discordInvites": DiscordInvitesRule,
			"blockedDomains": BlockedDomainsRule,
			"mentions":       MentionsRule,
			"emoji":          EmojiRule,
			"caps":           CapsRule,
		},
	}
	return rules
}
