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
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/go-openapi/strfmt"
)

// Now is the clock used for relative dates. Tests replace it.
var Now = time.Now

// Choice maps a canonical key to the words that select it.
type Choice struct {
	Key   string   `yaml:"key"`
	Words []string `yaml:"words"`
}

// =============================================================================
// Type Casts
// =============================================================================

// Cast converts text to a typed value.
type Cast func(text string) (any, bool)

// TypeCasts are the casts FirstType and ListFirstType select by name.
var TypeCasts = map[string]Cast{
	"str":      func(s string) (any, bool) { return s, true },
	"int":      castInt,
	"float":    castFloat,
	"datetime": castDateTime,
	"date":     castDate,
}

func castInt(s string) (any, bool) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return nil, false
	}
	return n, true
}

func castFloat(s string) (any, bool) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return nil, false
	}
	return f, true
}

func castDateTime(s string) (any, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, false
	}
	if d, ok := relativeDay(s); ok {
		return d, true
	}
	dt, err := strfmt.ParseDateTime(s)
	if err != nil {
		// Fall back to a bare date at midnight.
		if d, ok := castDate(s); ok {
			return d, true
		}
		return nil, false
	}
	return time.Time(dt), true
}

func castDate(s string) (any, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, false
	}
	if d, ok := relativeDay(s); ok {
		return d, true
	}
	var d strfmt.Date
	if err := d.UnmarshalText([]byte(s)); err != nil {
		return nil, false
	}
	return time.Time(d), true
}

// relativeDay understands today, tomorrow, and yesterday.
func relativeDay(s string) (time.Time, bool) {
	now := Now()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	switch strings.ToLower(s) {
	case "today", "now":
		return midnight, true
	case "tomorrow":
		return midnight.AddDate(0, 0, 1), true
	case "yesterday":
		return midnight.AddDate(0, 0, -1), true
	}
	return time.Time{}, false
}

// =============================================================================
// Translation Rules
// =============================================================================

// Int accepts base-10 integers.
func Int(value any, _ any) (bool, any) {
	if n, ok := value.(int); ok {
		return true, n
	}
	v, ok := castInt(AsText(value))
	return ok, v
}

// Float accepts decimal numbers.
func Float(value any, _ any) (bool, any) {
	v, ok := castFloat(AsText(value))
	return ok, v
}

// Date accepts ISO dates (2006-01-02) and today/tomorrow/yesterday.
func Date(value any, _ any) (bool, any) {
	v, ok := castDate(AsText(value))
	return ok, v
}

// DateTime accepts RFC 3339 date-times, bare dates, and relative days.
func DateTime(value any, _ any) (bool, any) {
	v, ok := castDateTime(AsText(value))
	return ok, v
}

// FirstType casts to the first type name in ctx ([]string) that accepts the text.
func FirstType(value any, ctx any) (bool, any) {
	text := AsText(value)
	for _, name := range typeNames(ctx) {
		cast, ok := TypeCasts[name]
		if !ok {
			continue
		}
		if v, ok := cast(text); ok {
			return true, v
		}
	}
	return false, nil
}

// ListFirstType splits comma-separated text and casts every item with
// FirstType. One uncastable item rejects the whole list.
func ListFirstType(value any, ctx any) (bool, any) {
	items := strings.Split(AsText(value), ",")
	out := make([]any, 0, len(items))
	for _, item := range items {
		ok, v := FirstType(strings.TrimSpace(item), ctx)
		if !ok {
			return false, nil
		}
		out = append(out, v)
	}
	return true, out
}

// DictKey maps a word to the key of the first Choice listing it.
//
// ctx is a []Choice or a func() []Choice evaluated on every call.
func DictKey(value any, ctx any) (bool, any) {
	var choices []Choice
	switch c := ctx.(type) {
	case []Choice:
		choices = c
	case func() []Choice:
		choices = c()
	}
	text := AsText(value)
	for _, ch := range choices {
		if slices.Contains(ch.Words, text) {
			return true, ch.Key
		}
	}
	return false, nil
}

// =============================================================================
// Validation Rules
// =============================================================================

// InList accepts text that is exactly one of the words in ctx.
//
// ctx is a []string or a func() []string evaluated on every call.
func InList(value any, ctx any) (bool, any) {
	list := stringList(ctx)
	text := AsText(value)
	if slices.Contains(list, text) {
		return true, text
	}
	return false, nil
}

// LowerInList is InList ignoring case. The original text is returned.
func LowerInList(value any, ctx any) (bool, any) {
	text := AsText(value)
	for _, w := range stringList(ctx) {
		if strings.EqualFold(w, text) {
			return true, text
		}
	}
	return false, nil
}

// IntRange accepts an integer within the inclusive range ctx ([2]int or []int{min, max}).
func IntRange(value any, ctx any) (bool, any) {
	lo, hi, ok := intBounds(ctx)
	if !ok {
		return false, nil
	}
	ok, v := Int(value, nil)
	if !ok {
		return false, nil
	}
	n := v.(int)
	if n < lo || n > hi {
		return false, nil
	}
	return true, n
}

// =============================================================================
// Context Helpers
// =============================================================================

func stringList(ctx any) []string {
	switch c := ctx.(type) {
	case []string:
		return c
	case func() []string:
		return c()
	}
	return nil
}

func typeNames(ctx any) []string {
	switch c := ctx.(type) {
	case []string:
		return c
	case string:
		return []string{c}
	}
	return []string{"str"}
}

func intBounds(ctx any) (int, int, bool) {
	switch c := ctx.(type) {
	case [2]int:
		return c[0], c[1], true
	case []int:
		if len(c) == 2 {
			return c[0], c[1], true
		}
	}
	return 0, 0, false
}
