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
	"fmt"
	"strings"
	"time"
)

// ManagedArgs is the argument set built by a resolution.
//
// Names keep the order in which they were first committed. Multi-value
// arguments hold a []any.
type ManagedArgs struct {
	names  []string
	values map[string]any
}

// NewManagedArgs returns an empty set.
func NewManagedArgs() *ManagedArgs {
	return &ManagedArgs{values: make(map[string]any)}
}

// Set stores a single value, replacing any earlier one.
func (a *ManagedArgs) Set(name string, value any) {
	if _, ok := a.values[name]; !ok {
		a.names = append(a.names, name)
	}
	a.values[name] = value
}

// Append adds value to the list stored under name.
func (a *ManagedArgs) Append(name string, value any) {
	list, _ := a.values[name].([]any)
	a.Set(name, append(list, value))
}

// Get returns the value stored under name.
func (a *ManagedArgs) Get(name string) (any, bool) {
	if a == nil {
		return nil, false
	}
	v, ok := a.values[name]
	return v, ok
}

// Has reports whether name holds a value.
func (a *ManagedArgs) Has(name string) bool {
	_, ok := a.Get(name)
	return ok
}

// Count returns the number of values stored under name: the list length
// for multi-value arguments, otherwise 0 or 1.
func (a *ManagedArgs) Count(name string) int {
	v, ok := a.Get(name)
	if !ok {
		return 0
	}
	if list, ok := v.([]any); ok {
		return len(list)
	}
	return 1
}

// String returns the value stored under name formatted for display, or "".
func (a *ManagedArgs) String(name string) string {
	v, ok := a.Get(name)
	if !ok {
		return ""
	}
	return formatValue(v)
}

// Names returns argument names in commit order.
func (a *ManagedArgs) Names() []string {
	if a == nil {
		return nil
	}
	return append([]string(nil), a.names...)
}

// Len returns the number of arguments.
func (a *ManagedArgs) Len() int {
	if a == nil {
		return 0
	}
	return len(a.names)
}

// Map returns a copy of the arguments as a plain map.
func (a *ManagedArgs) Map() map[string]any {
	out := make(map[string]any, a.Len())
	for _, n := range a.Names() {
		out[n] = a.values[n]
	}
	return out
}

// Summary renders "name: value" lines indented for confirmation prompts.
func (a *ManagedArgs) Summary() string {
	var b strings.Builder
	for _, n := range a.Names() {
		fmt.Fprintf(&b, "\n    %s: %s", n, formatValue(a.values[n]))
	}
	return b.String()
}

func formatValue(v any) string {
	switch t := v.(type) {
	case []any:
		parts := make([]string, len(t))
		for i, item := range t {
			parts[i] = formatValue(item)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case time.Time:
		if t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 && t.Nanosecond() == 0 {
			return t.Format(time.DateOnly)
		}
		return t.Format(time.RFC3339)
	default:
		return fmt.Sprint(v)
	}
}
