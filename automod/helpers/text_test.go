package helpers

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitize(t *testing.T) {
	assert := assert.New(t)

	fixtures := []struct {
		s   string
		out string
	}{
		{
			s:   "",
			out: "[no content]",
		},
		{
			s:   "  hello\n\n  world\t ",
			out: "hello world",
		},
		{
			s:   "my token is MTAxNTk0NjQ2NzQ2MjQ4NzA0MQ.GZ3s1a.aBcDeFgHiJkLmNoPqRsTuVwXyZ012345 oops",
			out: "my token is [redacted] oops",
		},
		{
			// segments too short to look like a token
			s:   "short.abc.def",
			out: "short.abc.def",
		},
	}

	for _, fix := range fixtures {
		assert.Equal(fix.out, Sanitize(fix.s, ReasonMaxLength))
	}

	long := strings.Repeat("é", 900)
	assert.Equal(ReasonMaxLength, len([]rune(Sanitize(long, ReasonMaxLength))))
}

func TestCapsPercent(t *testing.T) {
	assert := assert.New(t)

	assert.Equal(100, CapsPercent("123!!!ABC"))
	assert.Equal(0, CapsPercent("1234 !!!"))
	assert.Equal(50, CapsPercent("AbCd"))
	assert.Equal(67, CapsPercent("ABc"))
	assert.Equal(0, CapsPercent("quiet please"))
}

func TestCountEmoji(t *testing.T) {
	assert := assert.New(t)

	assert.Equal(0, CountEmoji("no emoji here 123"))
	assert.Equal(1, CountEmoji("<a:name:123>"))
	assert.Equal(1, CountEmoji("look <:pepe:98765> here"))
	assert.Equal(3, CountEmoji("<a:name:123> 😀😀"))
	// ZWJ family sequence is a single grapheme
	assert.Equal(1, CountEmoji("👨‍👩‍👧"))
	assert.Equal(2, CountEmoji("☀️ and ⭐"))
}

func TestHashOfString(t *testing.T) {
	assert := assert.New(t)

	// hashing function should be consistent over time
	assert.Equal("4e6f69c0e3d10992", HashOfString("dummy-value"))
}

func TestExtractLinks(t *testing.T) {
	assert := assert.New(t)

	fixtures := []struct {
		text string
		out  []string
	}{
		{text: "", out: nil},
		{text: "no links here.", out: nil},
		{text: "see https://WWW.Example.com/path/#top ok", out: []string{"https://example.com/path"}},
		{text: "join discord.gg/abc123 now", out: []string{"https://discord.gg/abc123"}},
		{text: "http://short.url/x, http://short.url/x", out: []string{"http://short.url/x"}},
	}

	for _, fix := range fixtures {
		assert.Equal(fix.out, ExtractLinks(fix.text), fix.text)
	}
}
