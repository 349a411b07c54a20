package helpers

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/rivo/uniseg"
	"github.com/spaolacci/murmur3"
)

const (
	// max length of a sanitized automod reason or content excerpt
	ReasonMaxLength = 800
	// max length of free-form text supplied to moderation commands
	CommandTextMaxLength = 1800
)

// three dot-separated base64url segments, the shape of a bot/user auth token
var tokenRegex = regexp.MustCompile(`[A-Za-z0-9_\-]{23,}\.[A-Za-z0-9_\-]{6,}\.[A-Za-z0-9_\-]{27,}`)

var whitespaceRegex = regexp.MustCompile(`\s+`)

// custom server emoji, eg "<:name:123>" or animated "<a:name:123>"
var customEmojiRegex = regexp.MustCompile(`<a?:\w+:\d+>`)

func DedupeStrings(in []string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, v := range in {
		if !seen[v] {
			out = append(out, v)
			seen[v] = true
		}
	}
	return out
}

// returns a fast, compact hash of a string
//
// current implementation uses murmur3, default seed, and hex encoding
func HashOfString(s string) string {
	val := murmur3.Sum64([]byte(s))
	return fmt.Sprintf("%016x", val)
}

// Cleans up free-form text before it is echoed anywhere outside the engine (replies, DMs, audit logs).
//
// Token-shaped substrings are replaced with "[redacted]", runs of whitespace are collapsed to a single space, and the result is truncated to maxLen runes. Empty input becomes "[no content]".
func Sanitize(text string, maxLen int) string {
	if text == "" {
		return "[no content]"
	}
	out := tokenRegex.ReplaceAllString(text, "[redacted]")
	out = strings.TrimSpace(whitespaceRegex.ReplaceAllString(out, " "))
	return truncateRunes(out, maxLen)
}

func truncateRunes(s string, maxLen int) string {
	if maxLen <= 0 || utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	runes := []rune(s)
	return string(runes[:maxLen])
}

// Percentage (0-100, rounded) of upper-case letters among ASCII letters. Non-letters are ignored entirely; text with no letters is 0.
func CapsPercent(content string) int {
	letters := 0
	caps := 0
	for _, r := range content {
		switch {
		case r >= 'A' && r <= 'Z':
			letters++
			caps++
		case r >= 'a' && r <= 'z':
			letters++
		}
	}
	if letters == 0 {
		return 0
	}
	return (caps*200 + letters) / (letters * 2)
}

// Counts emoji in a message: each custom emoji token is one unit, and each grapheme cluster starting with a Unicode emoji codepoint is one unit.
func CountEmoji(content string) int {
	count := len(customEmojiRegex.FindAllStringIndex(content, -1))
	rest := customEmojiRegex.ReplaceAllString(content, " ")
	gr := uniseg.NewGraphemes(rest)
	for gr.Next() {
		if isEmojiRune(gr.Runes()[0]) {
			count++
		}
	}
	return count
}

func isEmojiRune(r rune) bool {
	switch {
	case r >= 0x1F000 && r <= 0x1FAFF:
		// mahjong, cards, enclosed, pictographs, emoticons, transport, supplemental
		return true
	case r >= 0x2600 && r <= 0x27BF:
		// misc symbols and dingbats
		return true
	case r >= 0x2B00 && r <= 0x2BFF:
		// arrows and stars, eg ⭐
		return true
	case r == 0x00A9 || r == 0x00AE || r == 0x203C || r == 0x2049 || r == 0x2122 || r == 0x3030 || r == 0x303D:
		return true
	}
	return false
}
