package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/deadlockdevs/warden/automod/countstore"
	"github.com/deadlockdevs/warden/automod/mutes"
	"github.com/deadlockdevs/warden/automod/mutestore"
	"github.com/stretchr/testify/assert"
)

func TestEngineBasics(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	eng, platform := EngineTestFixture()
	notes := &MemNotifier{}
	eng.Notifiers = []Notifier{notes}

	out, err := eng.ProcessMessage(ctx, TestMessage("a perfectly fine message"))
	assert.NoError(err)
	assert.Nil(out)
	assert.Empty(platform.CallLog())

	out, err = eng.ProcessMessage(ctx, TestMessage("that is a slur"))
	assert.NoError(err)
	assert.NotNil(out)
	assert.Equal("keyword", out.Violation.RuleName)
	assert.Equal(DirectiveWarned, out.Directive.Kind)
	assert.Equal(1, out.Directive.WarnCount)
	assert.True(out.Directive.DMSent)

	assert.Equal([]string{"DeleteMessage c1/m1"}, platform.CallsTo("DeleteMessage"))
	assert.Equal([]string{"<@u1>, Your message was removed by AutoMod.\nkeyword: slur [warned (1/3)]"}, platform.Sent["c1"])
	assert.Equal([]string{"You received an AutoMod warning in Test Guild.\nReason: keyword: slur\nRule: keyword\nCount: 1/3"}, platform.DMs["u1"])

	eng.Flush()
	entries := notes.All()
	assert.Equal(1, len(entries))
	assert.Equal("AutoMod Action", entries[0].Title)
	assert.Equal("keyword: slur\nAction: warned (1/3) | DM sent", entries[0].Summary())
	assert.Equal("that is a slur", entries[0].Content)
	assert.NotEmpty(entries[0].ContentHash)

	c, err := eng.Counters.GetCount(ctx, CounterViolation, "g1", countstore.PeriodTotal)
	assert.NoError(err)
	assert.Equal(1, c)
	c, err = eng.Counters.GetCountDistinct(ctx, CounterOffender, "g1", countstore.PeriodDay)
	assert.NoError(err)
	assert.Equal(1, c)
}

func TestEngineSkips(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	eng, platform := EngineTestFixture()

	settings := DefaultSettings()
	settings.Rules = eng.Settings().Rules
	settings.BypassRoles = []string{"staff"}
	settings.WhitelistChannels = []string{"bots"}
	eng.SetSettings(settings)

	bot := TestMessage("slur")
	bot.Author.Bot = true
	staff := TestMessage("slur")
	staff.RoleIDs = []string{"staff"}
	whitelisted := TestMessage("slur")
	whitelisted.ChannelID = "bots"
	dm := TestMessage("slur")
	dm.GuildID = ""

	for _, msg := range []*Message{bot, staff, whitelisted, dm} {
		out, err := eng.ProcessMessage(ctx, msg)
		assert.NoError(err)
		assert.Nil(out)
	}

	disabled := *settings
	disabled.Enabled = false
	eng.SetSettings(&disabled)
	out, err := eng.ProcessMessage(ctx, TestMessage("slur"))
	assert.NoError(err)
	assert.Nil(out)

	assert.Empty(platform.CallLog())
}

func TestEngineCooldown(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	eng, _ := EngineTestFixture()

	out, err := eng.ProcessMessage(ctx, TestMessage("slur"))
	assert.NoError(err)
	assert.NotNil(out)

	// flood within the cooldown window is absorbed
	out, err = eng.ProcessMessage(ctx, TestMessage("slur again"))
	assert.NoError(err)
	assert.Nil(out)

	warns, err := eng.Warnings(ctx, "g1", "u1")
	assert.NoError(err)
	assert.Equal(1, len(warns))

	// clean messages don't start a cooldown
	other := TestMessage("hello")
	other.Author.ID = "u2"
	out, _ = eng.ProcessMessage(ctx, other)
	assert.Nil(out)
	other.Content = "slur"
	out, _ = eng.ProcessMessage(ctx, other)
	assert.NotNil(out)
}

func TestEngineRecoversPanic(t *testing.T) {
	assert := assert.New(t)
	eng, platform := EngineTestFixture()
	settings := DefaultSettings()
	settings.Rules = []RuleSpec{{Name: "panic"}}
	eng.SetSettings(settings)

	out, err := eng.ProcessMessage(context.Background(), TestMessage("anything"))
	assert.Error(err)
	assert.Nil(out)
	assert.Empty(platform.CallLog())
}

func TestEngineNoDeleteNoReply(t *testing.T) {
	assert := assert.New(t)
	eng, platform := EngineTestFixture()
	settings := *eng.Settings()
	settings.DeleteMessage = false
	settings.ReplyToUser = false
	eng.SetSettings(&settings)

	out, err := eng.ProcessMessage(context.Background(), TestMessage("slur"))
	assert.NoError(err)
	assert.NotNil(out)
	assert.Empty(platform.CallsTo("DeleteMessage"))
	assert.Empty(platform.CallsTo("SendMessage"))
}

func TestWarnEscalation(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	eng, platform := EngineTestFixture()
	target := Target{GuildID: "g1", GuildName: "Test Guild", UserID: "u1", Tag: "user#0001"}
	rule := &RuleSpec{Name: "keyword", Severity: SeverityWarn}
	v := &Violation{RuleName: "keyword", Severity: SeverityWarn, Reason: "spam"}

	d := eng.Apply(ctx, rule, v, target, AutomodActor("c1"))
	assert.Equal(Directive{Kind: DirectiveWarned, WarnCount: 1, DMSent: true}, d)
	d = eng.Apply(ctx, rule, v, target, AutomodActor("c1"))
	assert.Equal(2, d.WarnCount)
	assert.Empty(platform.CallsTo("Kick"))

	d = eng.Apply(ctx, rule, v, target, AutomodActor("c1"))
	assert.Equal(DirectiveWarnedThenKicked, d.Kind)
	assert.Equal(3, d.WarnCount)
	assert.True(d.DMSent)
	assert.Equal([]string{"Kick g1/u1 AutoMod: 3 warns - spam"}, platform.CallsTo("Kick"))
	dms := platform.DMs["u1"]
	assert.Equal("You have reached 3 AutoMod warnings and will be removed.\nLast reason: spam\nRule: keyword\nChannel: <#c1>", dms[len(dms)-1])

	warns, err := eng.Warnings(ctx, "g1", "u1")
	assert.NoError(err)
	assert.Empty(warns)

	// count starts again from one
	d = eng.Apply(ctx, rule, v, target, AutomodActor("c1"))
	assert.Equal(1, d.WarnCount)
}

func TestWarnEscalationKickFails(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	eng, platform := EngineTestFixture()
	platform.SetError("Kick", errors.New("missing permissions"))
	platform.SetError("SendDM", errors.New("dms closed"))
	target := Target{GuildID: "g1", UserID: "u1"}

	var d Directive
	for i := 0; i < 3; i++ {
		d = eng.Warn(ctx, target, Actor{ID: "mod1"}, "rude")
	}
	assert.Equal(DirectiveFailed, d.Kind)
	assert.Equal(SeverityKick, d.Action)
	assert.Equal(3, d.WarnCount)
	assert.EqualError(d.Err, "missing permissions")
	assert.Equal("kick_failed_after_warns", d.String())

	// no rollback: the warns stay on record
	warns, err := eng.Warnings(ctx, "g1", "u1")
	assert.NoError(err)
	assert.Equal(3, len(warns))
	assert.Equal("mod1", warns[0].ActorID)

	d = eng.Warn(ctx, target, Actor{ID: "mod1"}, "rude")
	assert.Equal(4, d.WarnCount)
	assert.Equal(DirectiveFailed, d.Kind)
}

func TestMuteDirective(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	eng, platform := EngineTestFixture()
	now := time.UnixMilli(1_700_000_000_000)
	eng.Clock = func() time.Time { return now }
	store := mutestore.NewMemMuteStore()
	ledger := mutes.NewLedger(store, platform, eng.Logger)
	ledger.Clock = eng.Clock
	eng.Mutes = ledger
	target := Target{GuildID: "g1", UserID: "u1"}

	rule := &RuleSpec{Name: "blockedDomains", Severity: SeverityMute}
	d := eng.Apply(ctx, rule, &Violation{RuleName: "blockedDomains", Severity: SeverityMute, Reason: "links"}, target, AutomodActor("c1"))
	assert.Equal(DirectiveMuted, d.Kind)
	assert.Equal(10*time.Minute, d.Duration)
	assert.Equal([]string{"Timeout g1/u1 10m0s AutoMod: links"}, platform.CallsTo("Timeout"))

	entries, err := store.Load(ctx)
	assert.NoError(err)
	assert.Equal(1, len(entries))
	assert.Equal(now.UnixMilli()+600_000, entries[0].EndsAt)
	assert.Equal(AutomodActorID, entries[0].ActorID)

	// platform failure: no ledger write
	platform.SetError("Timeout", errors.New("role hierarchy"))
	d = eng.Mute(ctx, Target{GuildID: "g1", UserID: "u2"}, Actor{ID: "mod1"}, time.Hour, "spam")
	assert.Equal(DirectiveFailed, d.Kind)
	assert.Equal("mute_failed", d.String())
	entries, _ = store.Load(ctx)
	assert.Equal(1, len(entries))

	existed, err := eng.Unmute(ctx, target, Actor{ID: "mod1"})
	assert.NoError(err)
	assert.True(existed)
	entries, _ = store.Load(ctx)
	assert.Empty(entries)
	assert.Equal(1, len(platform.CallsTo("RemoveTimeout")))
}

func TestKickBanPassThrough(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	eng, platform := EngineTestFixture()
	target := Target{GuildID: "g1", UserID: "u1"}

	assert.Equal(DirectiveKicked, eng.Kick(ctx, target, Actor{ID: "mod1"}, "bye").Kind)
	assert.Equal(DirectiveBanned, eng.Ban(ctx, target, Actor{ID: "mod1"}, "bye").Kind)
	assert.Equal([]string{"Kick g1/u1 bye"}, platform.CallsTo("Kick"))
	assert.Equal([]string{"Ban g1/u1 bye"}, platform.CallsTo("Ban"))

	platform.SetError("Ban", errors.New("nope"))
	d := eng.Ban(ctx, target, Actor{ID: "mod1"}, "bye")
	assert.Equal("ban_failed", d.String())
}

func TestRemovalQuota(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	eng, platform := EngineTestFixture()
	eng.AutoRemovalQuota = 2
	rule := &RuleSpec{Name: "nuke", Severity: SeverityBan}
	v := &Violation{RuleName: "nuke", Severity: SeverityBan, Reason: "raid"}

	for _, u := range []string{"u1", "u2"} {
		d := eng.Apply(ctx, rule, v, Target{GuildID: "g1", UserID: u}, AutomodActor("c1"))
		assert.Equal(DirectiveBanned, d.Kind)
	}
	d := eng.Apply(ctx, rule, v, Target{GuildID: "g1", UserID: "u3"}, AutomodActor("c1"))
	assert.Equal(DirectiveFailed, d.Kind)
	assert.ErrorIs(d.Err, ErrQuotaExceeded)
	assert.Equal(2, len(platform.CallsTo("Ban")))

	// other guilds and moderators are unaffected
	d = eng.Apply(ctx, rule, v, Target{GuildID: "g2", UserID: "u3"}, AutomodActor("c1"))
	assert.Equal(DirectiveBanned, d.Kind)
	d = eng.Ban(ctx, Target{GuildID: "g1", UserID: "u3"}, Actor{ID: "mod1"}, "raid")
	assert.Equal(DirectiveBanned, d.Kind)
}

func TestManualAudit(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	eng, platform := EngineTestFixture()
	notes := &MemNotifier{}
	eng.Notifiers = []Notifier{notes}
	target := Target{GuildID: "g1", GuildName: "Test Guild", UserID: "u1", Tag: "user#0001"}

	d := eng.Warn(ctx, target, Actor{ID: "mod1", ChannelID: "c1"}, "rude")
	assert.Equal(1, d.WarnCount)
	assert.Equal([]string{"You have received a warning in Test Guild.\nReason: rude\nCount: 1/3\nIssued by: <@mod1>"}, platform.DMs["u1"])

	assert.NoError(eng.ClearWarns(ctx, target, Actor{ID: "mod1"}))
	warns, _ := eng.Warnings(ctx, "g1", "u1")
	assert.Empty(warns)

	eng.Flush()
	entries := notes.All()
	assert.Equal(2, len(entries))
	titles := []string{entries[0].Title, entries[1].Title}
	assert.ElementsMatch([]string{"User warned", "Warns cleared"}, titles)
	for _, e := range entries {
		if e.Title == "User warned" {
			assert.Equal("user#0001 warned by <@mod1> (1/3) | Reason: rude | DM: sent", e.Summary())
		}
	}
}

func TestConcurrentWarnsSerialized(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	eng, platform := EngineTestFixture()
	target := Target{GuildID: "g1", UserID: "u1"}

	done := make(chan Directive, 6)
	for i := 0; i < 6; i++ {
		go func() {
			done <- eng.Warn(ctx, target, Actor{ID: "mod1"}, "spam")
		}()
	}
	kicks := 0
	for i := 0; i < 6; i++ {
		if d := <-done; d.Kind == DirectiveWarnedThenKicked {
			kicks++
		}
	}
	// two full rounds of three
	assert.Equal(2, kicks)
	assert.Equal(2, len(platform.CallsTo("Kick")))
}
