package engine

import (
	"slices"
	"time"
)

type Severity string

const (
	SeverityWarn Severity = "warn"
	SeverityMute Severity = "mute"
	SeverityKick Severity = "kick"
	SeverityBan  Severity = "ban"
)

func (s Severity) Valid() bool {
	switch s {
	case SeverityWarn, SeverityMute, SeverityKick, SeverityBan:
		return true
	}
	return false
}

// number of warns which results in a kick
const WarnKickThreshold = 3

const DefaultMuteDuration = 10 * time.Minute

// One entry in the ordered automod rule list. Parameters are flat fields, and each rule kind reads only the ones it needs.
//
// Immutable while a message is being processed; a reload swaps in a new Settings value.
type RuleSpec struct {
	Name string `json:"name"`
	// Rule kind to dispatch to. Defaults to Name, which lets several rules share a kind under different names.
	Kind     string   `json:"kind,omitempty"`
	Severity Severity `json:"severity,omitempty"`

	Blocked         []string `json:"blocked,omitempty"`
	Block           bool     `json:"block,omitempty"`
	Domains         []string `json:"domains,omitempty"`
	Max             int      `json:"max,omitempty"`
	MinLength       int      `json:"minLength,omitempty"`
	MaxPercent      int      `json:"maxPercent,omitempty"`
	DurationMinutes *int     `json:"durationMinutes,omitempty"`
}

func (r *RuleSpec) RuleKind() string {
	if r.Kind != "" {
		return r.Kind
	}
	return r.Name
}

func (r *RuleSpec) EffectiveSeverity() Severity {
	if r.Severity == "" {
		return SeverityWarn
	}
	return r.Severity
}

func (r *RuleSpec) MuteDuration() time.Duration {
	if r.DurationMinutes == nil || *r.DurationMinutes <= 0 {
		return DefaultMuteDuration
	}
	return time.Duration(*r.DurationMinutes) * time.Minute
}

// Automod configuration, as stored in the settings file.
type Settings struct {
	Enabled           bool       `json:"enabled"`
	LogChannelID      string     `json:"logChannelId"`
	BypassRoles       []string   `json:"bypassRoles"`
	WhitelistChannels []string   `json:"whitelistChannels"`
	DeleteMessage     bool       `json:"deleteMessage"`
	ReplyToUser       bool       `json:"replyToUser"`
	ReplyMessage      string     `json:"replyMessage"`
	CooldownSeconds   int        `json:"cooldownSeconds"`
	Rules             []RuleSpec `json:"rules"`
}

func DefaultSettings() *Settings {
	return &Settings{
		Enabled:           true,
		LogChannelID:      "",
		BypassRoles:       []string{},
		WhitelistChannels: []string{},
		DeleteMessage:     true,
		ReplyToUser:       true,
		ReplyMessage:      "Your message was removed by AutoMod.",
		CooldownSeconds:   5,
		Rules: []RuleSpec{
			{Name: "blockedWords", Severity: SeverityWarn, Blocked: []string{"badword1", "badword2"}},
			{Name: "discordInvites", Severity: SeverityMute, Block: true},
			{Name: "blockedDomains", Severity: SeverityMute, Domains: []string{"short.url"}},
			{Name: "mentions", Severity: SeverityWarn, Max: 5},
			{Name: "emoji", Severity: SeverityWarn, Max: 20},
			{Name: "caps", Severity: SeverityWarn, MinLength: 12, MaxPercent: 70},
		},
	}
}

func (s *Settings) Cooldown() time.Duration {
	if s.CooldownSeconds <= 0 {
		return 0
	}
	return time.Duration(s.CooldownSeconds) * time.Second
}

// Whitelisted channel, or any bypass role held by the author. Messages outside a guild never bypass.
func (s *Settings) ShouldBypass(msg *Message) bool {
	if msg.GuildID == "" {
		return false
	}
	if slices.Contains(s.WhitelistChannels, msg.ChannelID) {
		return true
	}
	for _, role := range msg.RoleIDs {
		if slices.Contains(s.BypassRoles, role) {
			return true
		}
	}
	return false
}

type Author struct {
	ID  string
	Tag string
	Bot bool
}

type Mentions struct {
	Users    int
	Roles    int
	Everyone bool
}

func (m Mentions) Total() int {
	n := m.Users + m.Roles
	if m.Everyone {
		n++
	}
	return n
}

// Inbound chat message, as seen by rules. Immutable.
type Message struct {
	ID        string
	GuildID   string
	GuildName string
	ChannelID string
	Author    Author
	// roles held by the author in the guild
	RoleIDs   []string
	Content   string
	Mentions  Mentions
	CreatedAt time.Time
}
