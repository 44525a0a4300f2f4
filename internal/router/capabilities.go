// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package router

import (
	"database/sql"
	"slices"
	"sync"

	"pan-scan/internal/resilience"
)

// Adapter kinds.
const (
	KindFile     = "file"
	KindDatabase = "database"
	KindCloud    = "cloud"
)

// Probe reports whether an adapter can run in this binary and
// configuration. reason explains an unavailable adapter.
type Probe func() (available bool, reason string)

// Capability describes one adapter.
type Capability struct {
	Name        string
	Kind        string
	Description string
	Probe       Probe
}

// CapabilityStatus is a capability with its probe evaluated.
type CapabilityStatus struct {
	Name        string `json:"name" yaml:"name"`
	Kind        string `json:"kind" yaml:"kind"`
	Description string `json:"description" yaml:"description"`
	Available   bool   `json:"available" yaml:"available"`
	Reason      string `json:"reason,omitempty" yaml:"reason,omitempty"`
}

// CapabilityRegistry records which adapters exist and whether they can
// run. It is safe for concurrent use.
type CapabilityRegistry struct {
	mu    sync.RWMutex
	caps  map[string]Capability
	order []string
}

// NewCapabilityRegistry creates an empty registry
func NewCapabilityRegistry() *CapabilityRegistry {
	return &CapabilityRegistry{caps: make(map[string]Capability)}
}

// Register adds or replaces a capability. A nil probe means always available.
func (r *CapabilityRegistry) Register(c Capability) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.caps[c.Name]; !exists {
		r.order = append(r.order, c.Name)
	}
	r.caps[c.Name] = c
}

// Available evaluates the named capability's probe.
func (r *CapabilityRegistry) Available(name string) (bool, string) {
	r.mu.RLock()
	c, ok := r.caps[name]
	r.mu.RUnlock()
	if !ok {
		return false, "unknown adapter"
	}
	if c.Probe == nil {
		return true, ""
	}
	return c.Probe()
}

// Require returns a configuration error unless the named adapter is
// available. Used when the user asks for an adapter explicitly.
func (r *CapabilityRegistry) Require(name string) error {
	if ok, reason := r.Available(name); !ok {
		return resilience.NewConfigError("adapter %q is not available: %s", name, reason)
	}
	return nil
}

// List evaluates every capability in registration order.
func (r *CapabilityRegistry) List() []CapabilityStatus {
	r.mu.RLock()
	caps := make([]Capability, 0, len(r.order))
	for _, name := range r.order {
		caps = append(caps, r.caps[name])
	}
	r.mu.RUnlock()

	statuses := make([]CapabilityStatus, 0, len(caps))
	for _, c := range caps {
		available, reason := true, ""
		if c.Probe != nil {
			available, reason = c.Probe()
		}
		statuses = append(statuses, CapabilityStatus{
			Name:        c.Name,
			Kind:        c.Kind,
			Description: c.Description,
			Available:   available,
			Reason:      reason,
		})
	}
	return statuses
}

// DriverLinked is available when a database/sql driver of that name was
// compiled in. Drivers are excluded with build tags.
func DriverLinked(driver string) Probe {
	return func() (bool, string) {
		if slices.Contains(sql.Drivers(), driver) {
			return true, ""
		}
		return false, "driver " + driver + " not compiled into this binary"
	}
}

// Enabled reflects a configuration switch.
func Enabled(enabled bool) Probe {
	return func() (bool, string) {
		if enabled {
			return true, ""
		}
		return false, "disabled in configuration"
	}
}

// AllOf is available when every probe is.
func AllOf(probes ...Probe) Probe {
	return func() (bool, string) {
		for _, p := range probes {
			if p == nil {
				continue
			}
			if ok, reason := p(); !ok {
				return false, reason
			}
		}
		return true, ""
	}
}
