// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package engine

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/AleutianAI/hooman/services/intent/mediator"
)

// Alert is the risk level of a command. Any level above AlertNone forces
// the confirmation gate.
type Alert int

const (
	// AlertNone commands run without confirmation when fully understood.
	AlertNone Alert = iota

	// AlertModifying commands change state in a recoverable way.
	AlertModifying

	// AlertCritical commands change state irrecoverably.
	AlertCritical
)

// String returns the alert name.
func (a Alert) String() string {
	switch a {
	case AlertNone:
		return "none"
	case AlertModifying:
		return "modifying"
	case AlertCritical:
		return "critical"
	default:
		return fmt.Sprintf("Alert(%d)", int(a))
	}
}

// Descriptor is everything the engine needs to know about one command.
//
// # Description
//
// Mediators are in priority order: when several could claim the same token,
// the earlier one wins in the second commit pass. Declare them from the
// narrowest match (prefixed, strictly validated) to the broadest.
//
// # Thread Safety
//
// Read-only after registration; safe to share across resolutions.
type Descriptor struct {
	Name        string
	Description string
	Mediators   []*mediator.Mediator
	Alert       Alert
}

// Mediator returns the mediator called name, or nil.
func (d *Descriptor) Mediator(name string) *mediator.Mediator {
	for _, m := range d.Mediators {
		if m.Name == name {
			return m
		}
	}
	return nil
}

// Validate checks the descriptor and every mediator.
func (d *Descriptor) Validate() error {
	if d.Name == "" {
		return errors.New("descriptor name must not be empty")
	}
	if strings.ContainsFunc(d.Name, unicode.IsSpace) {
		return fmt.Errorf("descriptor %q: name must be a single word", d.Name)
	}
	if d.Alert < AlertNone || d.Alert > AlertCritical {
		return fmt.Errorf("descriptor %q: alert %d out of range [0, 2]", d.Name, int(d.Alert))
	}

	seen := make(map[string]bool, len(d.Mediators))
	for i, m := range d.Mediators {
		if m == nil {
			return fmt.Errorf("descriptor %q: mediator %d is nil", d.Name, i)
		}
		if err := m.Validate(); err != nil {
			return fmt.Errorf("descriptor %q: %w", d.Name, err)
		}
		if seen[m.Name] {
			return fmt.Errorf("descriptor %q: duplicate argument %q", d.Name, m.Name)
		}
		seen[m.Name] = true
	}
	return nil
}
