// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package rules provides the accept/transform functions that argument
// mediators run against candidate tokens.
package rules

import (
	"fmt"
	"strings"
)

// =============================================================================
// Rule Contract
// =============================================================================

// Rule accepts or rejects a value and optionally transforms it.
//
// # Description
//
// The first rule of a pipeline always receives the raw token text as a
// string. Later rules receive whatever the previous rule returned, so a rule
// placed after Int may see an int. Rules must not retain the context.
//
// # Inputs
//
//   - value: Raw token text, or the previous rule's output.
//   - ctx: The step's shared context object (lists, ranges, type names). May be nil.
//
// # Outputs
//
//   - bool: True if the value is accepted.
//   - any: The transformed value. Ignored when rejected.
type Rule func(value any, ctx any) (bool, any)

// Step is one entry of a Pipeline.
type Step struct {
	// Name identifies the rule in logs and help text (e.g. "duration").
	Name string

	// Rule is the function to run. Must not be nil.
	Rule Rule

	// Description is a human-friendly statement of what the rule requires.
	Description string

	// Context is passed to Rule on every call.
	Context any
}

// Pipeline is an ordered list of steps. The zero value accepts everything.
type Pipeline []Step

// Run feeds text through every step in order.
//
// # Description
//
// Stops at the first rejecting step. Each accepted value becomes the input of
// the next step. An empty pipeline accepts text unchanged.
//
// # Inputs
//
//   - text: Raw token text.
//
// # Outputs
//
//   - bool: True if every step accepted.
//   - any: The final transformed value, or nil when rejected.
func (p Pipeline) Run(text string) (bool, any) {
	var value any = text
	for _, step := range p {
		ok, out := step.Rule(value, step.Context)
		if !ok {
			return false, nil
		}
		value = out
	}
	return true, value
}

// Describe joins the step descriptions for usage text.
func (p Pipeline) Describe() string {
	parts := make([]string, 0, len(p))
	for _, step := range p {
		if step.Description != "" {
			parts = append(parts, step.Description)
		}
	}
	return strings.Join(parts, " ")
}

// Then returns a new pipeline with step appended.
func (p Pipeline) Then(step Step) Pipeline {
	out := make(Pipeline, len(p), len(p)+1)
	copy(out, p)
	return append(out, step)
}

// =============================================================================
// Helpers
// =============================================================================

// AsText returns value as a string, formatting non-string values.
func AsText(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case fmt.Stringer:
		return v.String()
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}
