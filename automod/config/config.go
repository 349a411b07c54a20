// Loading and validation of the automod settings file.
//
// The file is JSON, in the shape of engine.Settings. Keys present in the file override the built-in defaults; missing keys keep the default. A missing file is created with the defaults. Any read or parse error falls back to the defaults, so a broken file never disables moderation outright.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/deadlockdevs/warden/automod/engine"
)

const DefaultPath = "automodconfig.json"

// Reads settings from `path`. Never returns nil.
func Load(path string, logger *slog.Logger) *engine.Settings {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("path", path)

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		s := engine.DefaultSettings()
		if err := Write(path, s); err != nil {
			logger.Warn("failed to write default automod settings", "err", err)
		} else {
			logger.Info("wrote default automod settings")
		}
		return s
	}
	if err != nil {
		logger.Warn("failed to read automod settings, using defaults", "err", err)
		return engine.DefaultSettings()
	}

	s, err := Parse(data)
	if err != nil {
		logger.Warn("failed to parse automod settings, using defaults", "err", err)
		return engine.DefaultSettings()
	}
	for i := range s.Rules {
		r := &s.Rules[i]
		if r.Severity != "" && !r.Severity.Valid() {
			logger.Warn("unknown rule severity, treating as warn", "rule", r.Name, "severity", r.Severity)
			r.Severity = engine.SeverityWarn
		}
	}
	return s
}

// Decodes settings merged over the defaults.
func Parse(data []byte) (*engine.Settings, error) {
	s := engine.DefaultSettings()
	defaultRules := s.Rules
	// decoding in to the existing slice would merge each rule with the default at the same index
	s.Rules = nil
	if err := json.Unmarshal(data, s); err != nil {
		return nil, err
	}
	if s.Rules == nil {
		s.Rules = defaultRules
	}
	if s.BypassRoles == nil {
		s.BypassRoles = []string{}
	}
	if s.WhitelistChannels == nil {
		s.WhitelistChannels = []string{}
	}
	return s, nil
}

// Writes settings as indented JSON, replacing any existing file.
func Write(path string, s *engine.Settings) error {
	b, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, append(b, '\n'), 0644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// Checks settings against the available rule kinds. Returns every problem found; an empty result means the settings are usable as-is.
func Validate(s *engine.Settings, rules engine.RuleSet) []error {
	var errs []error
	if s.CooldownSeconds < 0 {
		errs = append(errs, fmt.Errorf("cooldownSeconds must not be negative: %d", s.CooldownSeconds))
	}
	seen := make(map[string]bool)
	for i, r := range s.Rules {
		if r.Name == "" {
			errs = append(errs, fmt.Errorf("rule %d: missing name", i))
			continue
		}
		if seen[r.Name] {
			errs = append(errs, fmt.Errorf("rule %q: duplicate name", r.Name))
		}
		seen[r.Name] = true
		if _, ok := rules.Kinds[r.RuleKind()]; !ok {
			errs = append(errs, fmt.Errorf("rule %q: unknown kind %q (rule will be skipped)", r.Name, r.RuleKind()))
		}
		if r.Severity != "" && !r.Severity.Valid() {
			errs = append(errs, fmt.Errorf("rule %q: unknown severity %q", r.Name, r.Severity))
		}
		if r.DurationMinutes != nil && r.EffectiveSeverity() != engine.SeverityMute {
			errs = append(errs, fmt.Errorf("rule %q: durationMinutes only applies to mute severity", r.Name))
		}
		if r.MaxPercent > 100 {
			errs = append(errs, fmt.Errorf("rule %q: maxPercent above 100 never fires", r.Name))
		}
	}
	return errs
}
