package automod

import (
	"github.com/deadlockdevs/warden/automod/countstore"
	"github.com/deadlockdevs/warden/automod/engine"
)

type Engine = engine.Engine
type RuleSet = engine.RuleSet
type RuleSpec = engine.RuleSpec
type Settings = engine.Settings
type Severity = engine.Severity
type Violation = engine.Violation
type Directive = engine.Directive
type Outcome = engine.Outcome

type Message = engine.Message
type MessageContext = engine.MessageContext
type MessageRuleFunc = engine.MessageRuleFunc

type Platform = engine.Platform
type Target = engine.Target
type Actor = engine.Actor

type Notifier = engine.Notifier
type AuditEntry = engine.AuditEntry
type LogNotifier = engine.LogNotifier
type SlackNotifier = engine.SlackNotifier

var (
	SeverityWarn = engine.SeverityWarn
	SeverityMute = engine.SeverityMute
	SeverityKick = engine.SeverityKick
	SeverityBan  = engine.SeverityBan

	PeriodTotal = countstore.PeriodTotal
	PeriodDay   = countstore.PeriodDay
	PeriodHour  = countstore.PeriodHour
)
