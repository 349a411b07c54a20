package keyword

import (
	"log/slog"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	nonTokenChars = regexp.MustCompile(`[^\pL\pN\s]+`)
	// zero-width characters are commonly inserted to split a word without changing how it renders
	zeroWidthChars = regexp.MustCompile("[\u200b\u200c\u200d\u2060\ufeff]")
)

// Splits chat text in to lower-case tokens, with compatibility normalization (full-width and styled letters fold to plain ones) and diacritics removed.
func TokenizeText(text string) []string {
	// transformers are stateful, so the chain is built per call
	normFunc := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	bare := zeroWidthChars.ReplaceAllString(text, "")
	bare = strings.ToLower(nonTokenChars.ReplaceAllString(bare, " "))
	out, _, err := transform.String(normFunc, bare)
	if err != nil {
		slog.Warn("unicode normalization error", "err", err)
		out = bare
	}
	return strings.Fields(out)
}
