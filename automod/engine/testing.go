package engine

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/deadlockdevs/warden/automod/cooldown"
	"github.com/deadlockdevs/warden/automod/countstore"
	"github.com/deadlockdevs/warden/automod/warnstore"
)

// Platform which records every call. Errors can be injected per method name ("Kick", "Timeout", etc).
type MockPlatform struct {
	lk     sync.Mutex
	Calls  []string
	DMs    map[string][]string
	Sent   map[string][]string
	Errors map[string]error
}

var _ Platform = (*MockPlatform)(nil)

func NewMockPlatform() *MockPlatform {
	return &MockPlatform{
		DMs:    make(map[string][]string),
		Sent:   make(map[string][]string),
		Errors: make(map[string]error),
	}
}

func (p *MockPlatform) record(method, format string, args ...any) error {
	p.lk.Lock()
	defer p.lk.Unlock()
	p.Calls = append(p.Calls, method+" "+fmt.Sprintf(format, args...))
	return p.Errors[method]
}

func (p *MockPlatform) SetError(method string, err error) {
	p.lk.Lock()
	defer p.lk.Unlock()
	p.Errors[method] = err
}

func (p *MockPlatform) CallLog() []string {
	p.lk.Lock()
	defer p.lk.Unlock()
	return append([]string{}, p.Calls...)
}

// Calls whose method name matches, in order.
func (p *MockPlatform) CallsTo(method string) []string {
	out := []string{}
	for _, c := range p.CallLog() {
		if strings.HasPrefix(c, method+" ") {
			out = append(out, c)
		}
	}
	return out
}

func (p *MockPlatform) SendDM(ctx context.Context, userID, content string) error {
	if err := p.record("SendDM", "%s", userID); err != nil {
		return err
	}
	p.lk.Lock()
	p.DMs[userID] = append(p.DMs[userID], content)
	p.lk.Unlock()
	return nil
}

func (p *MockPlatform) SendMessage(ctx context.Context, channelID, content string) error {
	if err := p.record("SendMessage", "%s", channelID); err != nil {
		return err
	}
	p.lk.Lock()
	p.Sent[channelID] = append(p.Sent[channelID], content)
	p.lk.Unlock()
	return nil
}

func (p *MockPlatform) DeleteMessage(ctx context.Context, channelID, messageID string) error {
	return p.record("DeleteMessage", "%s/%s", channelID, messageID)
}

func (p *MockPlatform) Timeout(ctx context.Context, guildID, userID string, dur time.Duration, reason string) error {
	return p.record("Timeout", "%s/%s %s %s", guildID, userID, dur, reason)
}

func (p *MockPlatform) RemoveTimeout(ctx context.Context, guildID, userID, reason string) error {
	return p.record("RemoveTimeout", "%s/%s %s", guildID, userID, reason)
}

func (p *MockPlatform) Kick(ctx context.Context, guildID, userID, reason string) error {
	return p.record("Kick", "%s/%s %s", guildID, userID, reason)
}

func (p *MockPlatform) Ban(ctx context.Context, guildID, userID, reason string) error {
	return p.record("Ban", "%s/%s %s", guildID, userID, reason)
}

// Notifier which keeps every entry in memory.
type MemNotifier struct {
	lk      sync.Mutex
	Entries []AuditEntry
}

func (n *MemNotifier) SendAudit(ctx context.Context, entry *AuditEntry) error {
	n.lk.Lock()
	defer n.lk.Unlock()
	n.Entries = append(n.Entries, *entry)
	return nil
}

func (n *MemNotifier) All() []AuditEntry {
	n.lk.Lock()
	defer n.lk.Unlock()
	return append([]AuditEntry{}, n.Entries...)
}

var _ MessageRuleFunc = keywordRule

// fires on any entry of rule.Blocked as a plain substring
func keywordRule(c *MessageContext, rule *RuleSpec) string {
	for _, w := range rule.Blocked {
		if strings.Contains(c.Message.Content, w) {
			return "keyword: " + w
		}
	}
	return ""
}

func panicRule(c *MessageContext, rule *RuleSpec) string {
	panic("rule exploded")
}

// Engine with in-memory stores, a mock platform, and a pair of simple rule kinds ("keyword" and "panic"). Mutes is left nil; tests which exercise mutes wire in a ledger.
func EngineTestFixture() (*Engine, *MockPlatform) {
	platform := NewMockPlatform()
	eng := &Engine{
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		Rules: RuleSet{
			Kinds: map[string]MessageRuleFunc{
				"keyword": keywordRule,
				"panic":   panicRule,
			},
		},
		Platform:  platform,
		Warns:     warnstore.NewMemWarnStore(),
		Cooldowns: cooldown.NewMemTracker(100, time.Hour),
		Counters:  countstore.NewMemCountStore(),
	}
	settings := DefaultSettings()
	settings.Rules = []RuleSpec{
		{Name: "keyword", Severity: SeverityWarn, Blocked: []string{"slur"}},
	}
	eng.SetSettings(settings)
	return eng, platform
}

func TestMessage(content string) *Message {
	return &Message{
		ID:        "m1",
		GuildID:   "g1",
		GuildName: "Test Guild",
		ChannelID: "c1",
		Author:    Author{ID: "u1", Tag: "user#0001"},
		Content:   content,
		CreatedAt: time.Now(),
	}
}
