package rules

import (
	"fmt"
	"unicode/utf8"

	"github.com/deadlockdevs/warden/automod"
	"github.com/deadlockdevs/warden/automod/helpers"
)

var _ automod.MessageRuleFunc = MentionsRule

// User, role and @everyone mentions combined.
func MentionsRule(c *automod.MessageContext, rule *automod.RuleSpec) string {
	if rule.Max <= 0 {
		return ""
	}
	count := c.Message.Mentions.Total()
	if count > rule.Max {
		return fmt.Sprintf("Too many mentions (%d/%d).", count, rule.Max)
	}
	return ""
}

var _ automod.MessageRuleFunc = EmojiRule

func EmojiRule(c *automod.MessageContext, rule *automod.RuleSpec) string {
	if rule.Max <= 0 {
		return ""
	}
	count := helpers.CountEmoji(c.Message.Content)
	if count > rule.Max {
		return fmt.Sprintf("Too many emoji (%d/%d).", count, rule.Max)
	}
	return ""
}

var _ automod.MessageRuleFunc = CapsRule

// Fires when the message is at least rule.MinLength characters and the share of upper-case letters exceeds rule.MaxPercent.
func CapsRule(c *automod.MessageContext, rule *automod.RuleSpec) string {
	if rule.MaxPercent <= 0 {
		return ""
	}
	if utf8.RuneCountInString(c.Message.Content) < rule.MinLength {
		return ""
	}
	pct := helpers.CapsPercent(c.Message.Content)
	if pct > rule.MaxPercent {
		return fmt.Sprintf("Excessive caps (%d%% > %d%%).", pct, rule.MaxPercent)
	}
	return ""
}
