package engine

import (
	"errors"
	"fmt"
	"time"
)

type DirectiveKind string

const (
	DirectiveWarned           DirectiveKind = "warned"
	DirectiveWarnedThenKicked DirectiveKind = "warned_then_kicked"
	DirectiveMuted            DirectiveKind = "muted"
	DirectiveKicked           DirectiveKind = "kicked"
	DirectiveBanned           DirectiveKind = "banned"
	DirectiveFailed           DirectiveKind = "failed"
)

var ErrQuotaExceeded = errors.New("daily automated removal quota exceeded")

var ErrUnknownSeverity = errors.New("unknown rule severity")

// Outcome of an escalation step, returned to the caller for replies and audit.
type Directive struct {
	Kind DirectiveKind
	// warn count after the warn was recorded (warn and warn-then-kick, or a kick which failed after warns)
	WarnCount int
	Duration  time.Duration
	// for failures, the action which failed
	Action Severity
	Err    error
	// whether the notice DM reached the user: the warning for Warned, the removal notice for WarnedThenKicked
	DMSent bool
}

func (d Directive) Failed() bool {
	return d.Kind == DirectiveFailed
}

func (d Directive) String() string {
	switch d.Kind {
	case DirectiveWarned:
		return fmt.Sprintf("warned (%d/%d)", d.WarnCount, WarnKickThreshold)
	case DirectiveWarnedThenKicked:
		if d.DMSent {
			return "warn->kick (dm sent)"
		}
		return "warn->kick"
	case DirectiveMuted:
		return "muted " + FormatDuration(d.Duration)
	case DirectiveKicked:
		return "kicked"
	case DirectiveBanned:
		return "banned"
	case DirectiveFailed:
		if d.Action == SeverityKick && d.WarnCount >= WarnKickThreshold {
			return "kick_failed_after_warns"
		}
		return fmt.Sprintf("%s_failed", d.Action)
	}
	return string(d.Kind)
}

// Compact duration in the largest whole unit: "10m", "2h", "1d", "90s".
func FormatDuration(d time.Duration) string {
	const day = 24 * time.Hour
	switch {
	case d > 0 && d%day == 0:
		return fmt.Sprintf("%dd", d/day)
	case d > 0 && d%time.Hour == 0:
		return fmt.Sprintf("%dh", d/time.Hour)
	case d > 0 && d%time.Minute == 0:
		return fmt.Sprintf("%dm", d/time.Minute)
	default:
		return fmt.Sprintf("%ds", d/time.Second)
	}
}
