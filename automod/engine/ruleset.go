package engine

import (
	"github.com/deadlockdevs/warden/automod/helpers"
)

// Registry of rule kinds. Which rules run, and in which order, comes from Settings.
type RuleSet struct {
	Kinds map[string]MessageRuleFunc
}

type Violation struct {
	RuleName string
	Severity Severity
	// sanitized
	Reason string
}

// Walks the rule list in order and returns the first rule which fires, along with the violation. Rules of unknown kind are skipped. Returns nil if nothing fires.
func (r *RuleSet) Evaluate(c *MessageContext, specs []RuleSpec) (*RuleSpec, *Violation) {
	for i := range specs {
		spec := &specs[i]
		f, ok := r.Kinds[spec.RuleKind()]
		if !ok {
			c.Logger.Debug("skipping rule of unknown kind", "rule", spec.Name, "kind", spec.RuleKind())
			continue
		}
		reason := f(c, spec)
		if reason == "" {
			continue
		}
		return spec, &Violation{
			RuleName: spec.Name,
			Severity: spec.EffectiveSeverity(),
			Reason:   helpers.Sanitize(reason, helpers.ReasonMaxLength),
		}
	}
	return nil, nil
}
