package engine

import (
	"context"
	"log/slog"
)

// Passed to every rule function.
type MessageContext struct {
	// Actual golang "context.Context", if needed for timeouts etc
	Ctx context.Context
	// slog logger handle, with message-specific structured fields pre-populated. Pointer, but expected to never be nil.
	Logger  *slog.Logger
	Message *Message
}

// Returns a human-readable reason if the message violates the rule, or an empty string.
type MessageRuleFunc = func(c *MessageContext, rule *RuleSpec) string
