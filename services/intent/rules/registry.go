// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package rules

import (
	"fmt"
	"sort"
	"strings"
)

// =============================================================================
// Named Rules
// =============================================================================

// namedRule describes a built-in rule selectable by name from configuration.
type namedRule struct {
	rule        Rule
	description string

	// context converts a decoded YAML value into the rule's typed context.
	// Nil means the rule takes no context.
	context func(raw any) (any, error)
}

var namedRules = map[string]namedRule{
	"duration": {
		rule:        Duration,
		description: "Value must be a duration such as 90, 1.5h, 1d2h30m, or 1:02:03.",
	},
	"int": {
		rule:        Int,
		description: "Value must be a whole number.",
	},
	"float": {
		rule:        Float,
		description: "Value must be a number.",
	},
	"date": {
		rule:        Date,
		description: "Value must be a date (YYYY-MM-DD, today, tomorrow).",
	},
	"datetime": {
		rule:        DateTime,
		description: "Value must be a date and time (RFC 3339) or a date.",
	},
	"first_type": {
		rule:        FirstType,
		description: "Value must be translatable to one of the listed types.",
		context:     typeListContext,
	},
	"list_first_type": {
		rule:        ListFirstType,
		description: "Value must be a comma-separated list of the listed types.",
		context:     typeListContext,
	},
	"in_list": {
		rule:        InList,
		description: "Value must be one of the listed words.",
		context:     stringListContext,
	},
	"lcase_in_list": {
		rule:        LowerInList,
		description: "Value must be one of the listed words (any case).",
		context:     stringListContext,
	},
	"int_range": {
		rule:        IntRange,
		description: "Value must be a whole number within the range.",
		context:     intRangeContext,
	},
	"dict_key": {
		rule:        DictKey,
		description: "Value must be one of the accepted words.",
		context:     choicesContext,
	},
}

// Names returns the built-in rule names in sorted order.
func Names() []string {
	names := make([]string, 0, len(namedRules))
	for name := range namedRules {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Named builds a Step for the built-in rule called name.
//
// # Description
//
// Converts raw (as decoded from YAML: []any, map[string]any, scalars) into
// the typed context the rule expects. An empty description falls back to
// the rule's default.
//
// # Inputs
//
//   - name: Built-in rule name (see Names).
//   - raw: Decoded context value. May be nil for rules without context.
//   - description: Optional override for help text.
//
// # Outputs
//
//   - Step: Ready-to-run step.
//   - error: Non-nil for unknown names or malformed context.
func Named(name string, raw any, description string) (Step, error) {
	nr, ok := namedRules[name]
	if !ok {
		return Step{}, fmt.Errorf("unknown rule %q (known: %s)", name, strings.Join(Names(), ", "))
	}

	var ctx any
	if nr.context != nil {
		c, err := nr.context(raw)
		if err != nil {
			return Step{}, fmt.Errorf("rule %q: %w", name, err)
		}
		ctx = c
	} else if raw != nil {
		return Step{}, fmt.Errorf("rule %q takes no context", name)
	}

	if description == "" {
		description = nr.description
	}
	return Step{Name: name, Rule: nr.rule, Description: description, Context: ctx}, nil
}

// =============================================================================
// Context Converters
// =============================================================================

func stringListContext(raw any) (any, error) {
	items, ok := raw.([]any)
	if !ok || len(items) == 0 {
		return nil, fmt.Errorf("context must be a non-empty list of words")
	}
	out := make([]string, 0, len(items))
	for i, item := range items {
		s, ok := item.(string)
		if !ok {
			return nil, fmt.Errorf("context[%d] must be a string, got %T", i, item)
		}
		out = append(out, s)
	}
	return out, nil
}

func typeListContext(raw any) (any, error) {
	if raw == nil {
		return []string{"str"}, nil
	}
	if s, ok := raw.(string); ok {
		raw = []any{s}
	}
	v, err := stringListContext(raw)
	if err != nil {
		return nil, err
	}
	for _, name := range v.([]string) {
		if _, ok := TypeCasts[name]; !ok {
			return nil, fmt.Errorf("unknown type %q", name)
		}
	}
	return v, nil
}

func intRangeContext(raw any) (any, error) {
	items, ok := raw.([]any)
	if !ok || len(items) != 2 {
		return nil, fmt.Errorf("context must be [min, max]")
	}
	var bounds [2]int
	for i, item := range items {
		n, ok := item.(int)
		if !ok {
			return nil, fmt.Errorf("context[%d] must be an integer, got %T", i, item)
		}
		bounds[i] = n
	}
	if bounds[0] > bounds[1] {
		return nil, fmt.Errorf("min %d is greater than max %d", bounds[0], bounds[1])
	}
	return bounds, nil
}

func choicesContext(raw any) (any, error) {
	items, ok := raw.([]any)
	if !ok || len(items) == 0 {
		return nil, fmt.Errorf("context must be a non-empty list of {key, words}")
	}
	out := make([]Choice, 0, len(items))
	for i, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("context[%d] must be a mapping", i)
		}
		key, _ := m["key"].(string)
		if key == "" {
			return nil, fmt.Errorf("context[%d]: key must not be empty", i)
		}
		words, err := stringListContext(m["words"])
		if err != nil {
			return nil, fmt.Errorf("context[%d] (%s): %w", i, key, err)
		}
		out = append(out, Choice{Key: key, Words: words.([]string)})
	}
	return out, nil
}
