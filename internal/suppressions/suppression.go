// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package suppressions

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"pan-scan/internal/aggregate"
	"pan-scan/internal/paths"
	"pan-scan/internal/resilience"
)

// DefaultExpiry is the lifetime of a rule added without an explicit one.
const DefaultExpiry = 7 * 24 * time.Hour

var maskedPattern = regexp.MustCompile(`^\d{6}\.\.\.\d{4}$`)

// SuppressionRule hides findings whose masked number matches and, when
// Source is set, whose source matches the glob.
type SuppressionRule struct {
	ID           string     `yaml:"id"`
	MaskedNumber string     `yaml:"masked_number"`
	Source       string     `yaml:"source,omitempty"`
	Reason       string     `yaml:"reason"`
	Enabled      bool       `yaml:"enabled"`
	CreatedBy    string     `yaml:"created_by,omitempty"`
	CreatedAt    time.Time  `yaml:"created_at"`
	ExpiresAt    *time.Time `yaml:"expires_at,omitempty"`
}

// Active reports whether the rule applies at now.
func (r SuppressionRule) Active(now time.Time) bool {
	return r.Enabled && (r.ExpiresAt == nil || now.Before(*r.ExpiresAt))
}

// Matches reports whether the rule covers e, ignoring state and expiry.
func (r SuppressionRule) Matches(e aggregate.Entry) bool {
	if r.MaskedNumber != e.MaskedNumber {
		return false
	}
	if r.Source == "" {
		return true
	}
	ok, err := path.Match(r.Source, e.Source())
	return err == nil && ok
}

// SuppressionConfig represents the suppression configuration file
type SuppressionConfig struct {
	Version string            `yaml:"version"`
	Rules   []SuppressionRule `yaml:"rules"`
}

// SuppressionManager handles finding suppressions
type SuppressionManager struct {
	configPath string
	config     *SuppressionConfig
	enabled    bool
	now        func() time.Time
}

// NewSuppressionManager loads the rule file at configPath, or the default
// location when it is empty. A missing file yields an empty rule set; a
// file that cannot be parsed is a configuration error.
func NewSuppressionManager(configPath string) (*SuppressionManager, error) {
	if configPath == "" {
		configPath = paths.GetSuppressionsFile()
	}

	sm := &SuppressionManager{
		configPath: configPath,
		config:     &SuppressionConfig{Version: "1.0"},
		enabled:    true,
		now:        time.Now,
	}

	data, err := os.ReadFile(filepath.Clean(configPath))
	if errors.Is(err, fs.ErrNotExist) {
		return sm, nil
	}
	if err != nil {
		return nil, resilience.NewConfigError("read suppressions %s: %v", configPath, err)
	}

	var config SuppressionConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, resilience.NewConfigError("parse suppressions %s: %v", configPath, err)
	}
	for i, rule := range config.Rules {
		if err := validateRule(rule); err != nil {
			return nil, resilience.NewConfigError("suppressions %s: rule %d: %v", configPath, i+1, err)
		}
	}
	if config.Version == "" {
		config.Version = "1.0"
	}
	sm.config = &config
	return sm, nil
}

func validateRule(rule SuppressionRule) error {
	if !maskedPattern.MatchString(rule.MaskedNumber) {
		return fmt.Errorf("masked_number %q must look like 453201...0366", rule.MaskedNumber)
	}
	if rule.Source != "" {
		if _, err := path.Match(rule.Source, ""); err != nil {
			return fmt.Errorf("source pattern %q: %w", rule.Source, err)
		}
	}
	return nil
}

// IsSuppressed returns the first active rule matching e.
func (sm *SuppressionManager) IsSuppressed(e aggregate.Entry) (bool, *SuppressionRule) {
	if !sm.enabled {
		return false, nil
	}
	now := sm.now()
	for i := range sm.config.Rules {
		rule := sm.config.Rules[i]
		if rule.Active(now) && rule.Matches(e) {
			return true, &rule
		}
	}
	return false, nil
}

// Apply moves suppressed entries of report into report.Suppressed and
// returns how many were moved.
func (sm *SuppressionManager) Apply(report *aggregate.Report) int {
	if !sm.enabled || len(sm.config.Rules) == 0 {
		return 0
	}

	kept := report.Entries[:0:0]
	moved := 0
	for _, e := range report.Entries {
		suppressed, rule := sm.IsSuppressed(e)
		if !suppressed {
			kept = append(kept, e)
			continue
		}
		report.Suppressed = append(report.Suppressed, aggregate.SuppressedEntry{
			Entry:     e,
			RuleID:    rule.ID,
			Reason:    rule.Reason,
			ExpiresAt: rule.ExpiresAt,
		})
		moved++
	}
	report.Entries = kept
	return moved
}

// AddSuppression adds and saves a rule. A nil expiresAt never expires.
func (sm *SuppressionManager) AddSuppression(maskedNumber, source, reason, createdBy string, expiresAt *time.Time) (*SuppressionRule, error) {
	rule := SuppressionRule{
		ID:           uuid.NewString(),
		MaskedNumber: maskedNumber,
		Source:       source,
		Reason:       reason,
		Enabled:      true,
		CreatedBy:    createdBy,
		CreatedAt:    sm.now().UTC(),
		ExpiresAt:    expiresAt,
	}
	if err := validateRule(rule); err != nil {
		return nil, err
	}

	for _, existing := range sm.config.Rules {
		if existing.MaskedNumber == maskedNumber && existing.Source == source {
			return nil, fmt.Errorf("suppression rule %s already covers %s", existing.ID, maskedNumber)
		}
	}

	sm.config.Rules = append(sm.config.Rules, rule)
	if err := sm.saveConfig(); err != nil {
		sm.config.Rules = sm.config.Rules[:len(sm.config.Rules)-1]
		return nil, err
	}
	return &rule, nil
}

// RemoveSuppression removes a suppression rule by ID
func (sm *SuppressionManager) RemoveSuppression(id string) error {
	for i, rule := range sm.config.Rules {
		if rule.ID == id {
			sm.config.Rules = append(sm.config.Rules[:i], sm.config.Rules[i+1:]...)
			return sm.saveConfig()
		}
	}
	return fmt.Errorf("suppression rule with ID %s not found", id)
}

// DisableSuppressionByID disables a suppression rule by ID
func (sm *SuppressionManager) DisableSuppressionByID(id string) error {
	for i := range sm.config.Rules {
		if sm.config.Rules[i].ID == id {
			sm.config.Rules[i].Enabled = false
			return sm.saveConfig()
		}
	}
	return fmt.Errorf("suppression rule with ID %s not found", id)
}

// ListSuppressions returns all suppression rules
func (sm *SuppressionManager) ListSuppressions() []SuppressionRule {
	return sm.config.Rules
}

// CleanupExpired removes expired rules and saves the file when any were
// removed.
func (sm *SuppressionManager) CleanupExpired() (int, error) {
	now := sm.now()
	var active []SuppressionRule
	for _, rule := range sm.config.Rules {
		if rule.ExpiresAt == nil || now.Before(*rule.ExpiresAt) {
			active = append(active, rule)
		}
	}

	removed := len(sm.config.Rules) - len(active)
	if removed == 0 {
		return 0, nil
	}
	sm.config.Rules = active
	return removed, sm.saveConfig()
}

// saveConfig saves the suppression configuration to file
func (sm *SuppressionManager) saveConfig() error {
	data, err := yaml.Marshal(sm.config)
	if err != nil {
		return fmt.Errorf("failed to marshal suppression config: %w", err)
	}

	dir := filepath.Dir(sm.configPath)
	if dir != "." {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	if err := os.WriteFile(sm.configPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write suppression config: %w", err)
	}
	return nil
}

// SetEnabled enables or disables the suppression manager
func (sm *SuppressionManager) SetEnabled(enabled bool) {
	sm.enabled = enabled
}

// IsEnabled returns whether the suppression manager is enabled
func (sm *SuppressionManager) IsEnabled() bool {
	return sm.enabled
}

// GetConfigPath returns the path to the suppression config file
func (sm *SuppressionManager) GetConfigPath() string {
	return sm.configPath
}
