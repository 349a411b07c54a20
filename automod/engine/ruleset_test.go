package engine

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func testContext(content string) *MessageContext {
	return &MessageContext{
		Ctx:     context.Background(),
		Logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		Message: TestMessage(content),
	}
}

func TestRuleSetFirstMatch(t *testing.T) {
	assert := assert.New(t)

	rs := RuleSet{Kinds: map[string]MessageRuleFunc{"keyword": keywordRule}}
	specs := []RuleSpec{
		{Name: "nothing", Kind: "keyword", Blocked: []string{"zzz"}},
		{Name: "first", Kind: "keyword", Severity: SeverityMute, Blocked: []string{"spam"}},
		{Name: "second", Kind: "keyword", Severity: SeverityBan, Blocked: []string{"spam"}},
	}

	rule, v := rs.Evaluate(testContext("some spam here"), specs)
	assert.NotNil(v)
	assert.Equal("first", rule.Name)
	assert.Equal("first", v.RuleName)
	assert.Equal(SeverityMute, v.Severity)
	assert.Equal("keyword: spam", v.Reason)

	rule, v = rs.Evaluate(testContext("all good"), specs)
	assert.Nil(rule)
	assert.Nil(v)
}

func TestRuleSetUnknownKindSkipped(t *testing.T) {
	assert := assert.New(t)

	rs := RuleSet{Kinds: map[string]MessageRuleFunc{"keyword": keywordRule}}
	specs := []RuleSpec{
		{Name: "mystery", Blocked: []string{"spam"}},
		{Name: "keyword", Blocked: []string{"spam"}},
	}

	rule, v := rs.Evaluate(testContext("spam"), specs)
	assert.NotNil(v)
	assert.Equal("keyword", rule.Name)
	// empty severity means warn
	assert.Equal(SeverityWarn, v.Severity)
}

func TestRuleSetReasonSanitized(t *testing.T) {
	assert := assert.New(t)

	rs := RuleSet{Kinds: map[string]MessageRuleFunc{
		"loud": func(c *MessageContext, rule *RuleSpec) string {
			return "  too\n\nloud   " + c.Message.Content
		},
	}}
	_, v := rs.Evaluate(testContext("x"), []RuleSpec{{Name: "loud"}})
	assert.Equal("too loud x", v.Reason)
}
