package rules

import (
	"fmt"
	"regexp"

	"github.com/deadlockdevs/warden/automod"
	"github.com/deadlockdevs/warden/automod/keyword"
)

var _ automod.MessageRuleFunc = BlockedWordsRule

// Case-insensitive whole-word match against rule.Blocked. The reason names the first listed word found.
func BlockedWordsRule(c *automod.MessageContext, rule *automod.RuleSpec) string {
	for _, w := range rule.Blocked {
		if w == "" {
			continue
		}
		re, err := cachedRegexp(`(?i)\b` + regexp.QuoteMeta(w) + `\b`)
		if err != nil {
			c.Logger.Warn("invalid blocked word pattern", "rule", rule.Name, "word", w, "err", err)
			continue
		}
		if re.MatchString(c.Message.Content) {
			return fmt.Sprintf("Blocked word detected: %s", w)
		}
	}
	return ""
}

var _ automod.MessageRuleFunc = BlockedTokensRule

// Like BlockedWordsRule, but matches on normalized tokens, so styled unicode, accents and zero-width splitting don't evade it.
func BlockedTokensRule(c *automod.MessageContext, rule *automod.RuleSpec) string {
	if len(rule.Blocked) == 0 {
		return ""
	}
	if hit := keyword.FirstBlocked(c.Message.Content, rule.Blocked); hit != "" {
		return fmt.Sprintf("Blocked word detected: %s", hit)
	}
	return ""
}
