package config

import (
	"fmt"
	"time"
)

// HygieneConfig configures the Admission/TTL/Hygiene reaper's periodic
// cycle that expires breadcrumbs per their TTL policy and emits
// system.hygiene.v1.
type HygieneConfig struct {
	// CycleInterval is how often the reaper runs when CycleCron is unset.
	// Default: 30s, matching the spec's documented reaper cadence.
	CycleInterval time.Duration `yaml:"cycle_interval,omitempty"`

	// CycleCron, when set, overrides CycleInterval with a cron expression
	// (five-field, robfig/cron/v3 standard parser) for operators who want
	// a configurable cadence rather than a fixed interval.
	CycleCron string `yaml:"cycle_cron,omitempty"`

	// BatchSize bounds how many expired breadcrumbs a single cycle reaps,
	// so one slow cycle cannot starve the event bus or store under load.
	BatchSize int `yaml:"batch_size,omitempty"`
}

// SetDefaults applies default values.
func (c *HygieneConfig) SetDefaults() {
	if c.CycleInterval == 0 && c.CycleCron == "" {
		c.CycleInterval = 30 * time.Second
	}
	if c.BatchSize == 0 {
		c.BatchSize = 500
	}
}

// Validate checks the hygiene configuration for errors.
func (c *HygieneConfig) Validate() error {
	if c.CycleInterval <= 0 && c.CycleCron == "" {
		return fmt.Errorf("hygiene: one of cycle_interval or cycle_cron is required")
	}
	if c.BatchSize <= 0 {
		return fmt.Errorf("hygiene: batch_size must be positive")
	}
	return nil
}
