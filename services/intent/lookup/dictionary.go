// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package lookup maps typed command words to canonical commands.
package lookup

import (
	"context"
	"slices"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "hooman.intent"

// =============================================================================
// Dictionary
// =============================================================================

// Entry maps a canonical command string to the words that select it.
//
// Canonical may hold more than one word ("addtag urgent"): the first word is
// the command and the rest is argument text supplied in front of whatever the
// user typed.
type Entry struct {
	Canonical string   `yaml:"canonical"`
	Synonyms  []string `yaml:"words"`
}

// Command returns the first word of Canonical.
func (e Entry) Command() string {
	cmd, _ := splitCanonical(e.Canonical)
	return cmd
}

// Prefix returns the argument text after the first word of Canonical.
func (e Entry) Prefix() string {
	_, prefix := splitCanonical(e.Canonical)
	return prefix
}

// Dictionary is an ordered list of entries. When a word appears in several
// entries, the earliest entry wins.
//
// # Thread Safety
//
// Immutable after registration; safe for concurrent reads.
type Dictionary []Entry

// Words returns every synonym in dictionary order, without duplicates.
func (d Dictionary) Words() []string {
	seen := make(map[string]bool)
	var out []string
	for _, e := range d {
		for _, w := range e.Synonyms {
			if !seen[w] {
				seen[w] = true
				out = append(out, w)
			}
		}
	}
	return out
}

// Lookup returns the first entry listing word.
func (d Dictionary) Lookup(word string) (Entry, bool) {
	for _, e := range d {
		if slices.Contains(e.Synonyms, word) {
			return e, true
		}
	}
	return Entry{}, false
}

// SynonymsOf returns every word that resolves to command, in dictionary order.
func (d Dictionary) SynonymsOf(command string) []string {
	var out []string
	for _, w := range d.Words() {
		if e, ok := d.Lookup(w); ok && e.Command() == command {
			out = append(out, w)
		}
	}
	return out
}

// DuplicateWords lists words claimed by more than one entry, in dictionary
// order. Only the first entry can ever be reached through such a word.
func (d Dictionary) DuplicateWords() []string {
	owners := make(map[string]int)
	var order []string
	for _, e := range d {
		for _, w := range slices.Compact(slices.Sorted(slices.Values(e.Synonyms))) {
			if owners[w] == 0 {
				order = append(order, w)
			}
			owners[w]++
		}
	}

	var dups []string
	for _, w := range order {
		if owners[w] > 1 {
			dups = append(dups, w)
		}
	}
	return dups
}

// =============================================================================
// Resolution
// =============================================================================

// ResolveCommand finds the canonical command for a typed word.
//
// # Description
//
// Scans entries in order and stops at the first whose synonyms contain word
// exactly. The first word of the entry's canonical string is the command;
// any remaining words, joined by single spaces, are the argument prefix to
// place in front of the user's own argument text.
//
// # Inputs
//
//   - ctx: Carries the trace.
//   - dict: Ordered dictionary.
//   - word: The typed command word.
//
// # Outputs
//
//   - bool: True when a synonym matched.
//   - string: Canonical command, or "" on a miss.
//   - string: Argument prefix, or "".
func ResolveCommand(ctx context.Context, dict Dictionary, word string) (bool, string, string) {
	_, span := otel.Tracer(tracerName).Start(ctx, "lookup.ResolveCommand",
		trace.WithAttributes(
			attribute.String("word", word),
			attribute.Int("entries", len(dict)),
		),
	)
	defer span.End()

	e, ok := dict.Lookup(word)
	if !ok {
		span.SetAttributes(attribute.Bool("found", false))
		return false, "", ""
	}

	cmd, prefix := splitCanonical(e.Canonical)
	span.SetAttributes(
		attribute.Bool("found", true),
		attribute.String("command", cmd),
		attribute.Bool("has_prefix", prefix != ""),
	)
	return true, cmd, prefix
}

func splitCanonical(canonical string) (string, string) {
	fields := strings.Fields(canonical)
	if len(fields) == 0 {
		return "", ""
	}
	return fields[0], strings.Join(fields[1:], " ")
}

// =============================================================================
// Word Building
// =============================================================================

// BuildCommandWords joins word parts into every combination, in order.
//
// # Description
//
// Each part is a list of alternatives. The result holds one word per
// combination, the first part varying slowest:
//
//	BuildCommandWords([]string{"find", "search"}, []string{"action", "task"})
//	// findaction, findtask, searchaction, searchtask
//
// A single part is returned as given. No parts, or any empty part, yields nil.
func BuildCommandWords(parts ...[]string) []string {
	if len(parts) == 0 {
		return nil
	}
	out := []string{""}
	for _, part := range parts {
		if len(part) == 0 {
			return nil
		}
		next := make([]string, 0, len(out)*len(part))
		for _, head := range out {
			for _, w := range part {
				next = append(next, head+w)
			}
		}
		out = next
	}
	return out
}
