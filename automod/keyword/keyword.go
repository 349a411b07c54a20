// Token-level keyword matching, tolerant of the usual evasions (styled unicode letters, diacritics, zero-width characters, punctuation between words).
package keyword

import "slices"

func TokenInSet(tok string, set []string) bool {
	return slices.Contains(set, tok)
}

// Returns the first entry of `blocked` which appears in `text` as a whole token, or as a run of adjacent tokens for multi-word entries. Returns an empty string if nothing matches.
func FirstBlocked(text string, blocked []string) string {
	tokens := TokenizeText(text)
	if len(tokens) == 0 {
		return ""
	}
	for _, entry := range blocked {
		want := TokenizeText(entry)
		if len(want) == 0 {
			continue
		}
		if containsRun(tokens, want) {
			return entry
		}
	}
	return ""
}

func containsRun(tokens, run []string) bool {
	if len(run) == 1 {
		return TokenInSet(run[0], tokens)
	}
	for i := 0; i+len(run) <= len(tokens); i++ {
		if slices.Equal(tokens[i:i+len(run)], run) {
			return true
		}
	}
	return false
}
