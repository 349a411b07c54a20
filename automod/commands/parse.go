package commands

import (
	"errors"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var ErrInvalidDuration = errors.New("invalid duration")

var durationRegex = regexp.MustCompile(`(?i)^(\d+)([smhd])$`)

var durationUnits = map[byte]time.Duration{
	's': time.Second,
	'm': time.Minute,
	'h': time.Hour,
	'd': 24 * time.Hour,
}

// Parses a short duration like "30s", "10m", "2h" or "1d". The value must be positive.
func ParseDuration(raw string) (time.Duration, error) {
	m := durationRegex.FindStringSubmatch(strings.TrimSpace(raw))
	if m == nil {
		return 0, ErrInvalidDuration
	}
	n, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil || n <= 0 {
		return 0, ErrInvalidDuration
	}
	unit := durationUnits[strings.ToLower(m[2])[0]]
	// guard against overflow for absurd values
	if n > int64((1<<63-1)/unit) {
		return 0, ErrInvalidDuration
	}
	return time.Duration(n) * unit, nil
}

// Splits a prefixed command in to a lower-cased command name and arguments. Returns an empty name if the text is not a command.
func Parse(prefix, content string) (string, []string) {
	if prefix == "" || !strings.HasPrefix(content, prefix) {
		return "", nil
	}
	fields := strings.Fields(content[len(prefix):])
	if len(fields) == 0 {
		return "", nil
	}
	return strings.ToLower(fields[0]), fields[1:]
}

var (
	mentionRegex   = regexp.MustCompile(`^<@!?(\d+)>$`)
	snowflakeRegex = regexp.MustCompile(`^\d{5,20}$`)
)

// Extracts a user ID from a mention ("<@id>" or "<@!id>") or a raw numeric ID. Returns an empty string otherwise.
func ParseTarget(arg string) string {
	if m := mentionRegex.FindStringSubmatch(arg); m != nil {
		return m[1]
	}
	if snowflakeRegex.MatchString(arg) {
		return arg
	}
	return ""
}
