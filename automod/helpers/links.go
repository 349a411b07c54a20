package helpers

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/purell"
)

var linkRegex = regexp.MustCompile(`(?i)\bhttps?://[^\s<>"']+`)

// bare hostnames with a path, like "discord.gg/abc"
var bareLinkRegex = regexp.MustCompile(`(?i)(?:^|\s)((?:[a-z0-9-]+\.)+[a-z]{2,}/[^\s<>"']*)`)

// Finds links in chat text and returns them normalized (lower-case host, no "www.", no fragment, sorted query), de-duplicated in order of appearance.
func ExtractLinks(text string) []string {
	var raw []string
	raw = append(raw, linkRegex.FindAllString(text, -1)...)
	for _, m := range bareLinkRegex.FindAllStringSubmatch(text, -1) {
		raw = append(raw, "https://"+m[1])
	}
	out := make([]string, 0, len(raw))
	for _, r := range raw {
		out = append(out, NormalizeLink(strings.TrimRight(r, ".,;:!?)")))
	}
	return DedupeStrings(out)
}

func NormalizeLink(raw string) string {
	clean, err := purell.NormalizeURLString(raw, purell.FlagsUsuallySafeGreedy|purell.FlagRemoveFragment|purell.FlagRemoveDuplicateSlashes|purell.FlagRemoveWWW|purell.FlagSortQuery)
	if err != nil {
		return raw
	}
	return clean
}
