// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package operator

import (
	"context"
	"fmt"
	"strings"

	"github.com/AleutianAI/hooman/services/intent/engine"
	"github.com/AleutianAI/hooman/services/intent/lookup"
)

const helpCommand = "help"

// =============================================================================
// Line Parsing
// =============================================================================

// parseLine splits a line into its command word and argument text.
//
// The line is trimmed and a leading '?' becomes "help ". The command word is
// the leading run of ASCII letters, digits and underscores; the rest, trimmed,
// is the argument text. Either part may be empty.
func parseLine(line string) (string, string) {
	line = strings.TrimSpace(line)
	if line == "" {
		return "", ""
	}
	if line[0] == '?' {
		line = helpCommand + " " + line[1:]
	}

	i := 0
	for i < len(line) && isIdentChar(line[i]) {
		i++
	}
	return line[:i], strings.TrimSpace(line[i:])
}

func isIdentChar(c byte) bool {
	return c == '_' ||
		(c >= 'a' && c <= 'z') ||
		(c >= 'A' && c <= 'Z') ||
		(c >= '0' && c <= '9')
}

func firstField(s string) string {
	if f := strings.Fields(s); len(f) > 0 {
		return f[0]
	}
	return ""
}

// =============================================================================
// Help and Usage
// =============================================================================

// help tells the command listing, or the usage of the command named by the
// first word of rest.
func (o *Operator) help(ctx context.Context, t *tables, rest string) (Result, error) {
	word := firstField(rest)
	if word == "" {
		if err := o.prompter.Tell(ctx, helpText(t)); err != nil {
			return Result{Outcome: OutcomeError}, fmt.Errorf("Translate help: %w", err)
		}
		return Result{Success: true, Outcome: OutcomeHelp}, nil
	}

	found, name, _ := lookup.ResolveCommand(ctx, t.dict, word)
	if !found {
		return o.notFound(t, word, rest), nil
	}
	cmd := t.commands[name]
	if err := o.prompter.Tell(ctx, Usage(cmd.Descriptor)); err != nil {
		return Result{Outcome: OutcomeError, Command: name}, fmt.Errorf("Translate help %q: %w", name, err)
	}
	return Result{Success: true, Outcome: OutcomeHelp, Command: name}, nil
}

// Help returns one line per command listing the words that select it.
func (o *Operator) Help() string {
	t, _ := o.snapshot()
	return helpText(t)
}

func helpText(t *tables) string {
	var b strings.Builder
	for i, name := range t.order {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "Command: %s  ::  Synonyms: [%s]", name, strings.Join(t.dict.SynonymsOf(name), ", "))
	}
	return b.String()
}

// Usage returns the usage text of the command registered as name.
func (o *Operator) Usage(name string) (string, bool) {
	desc, ok := o.Descriptor(name)
	if !ok {
		return "", false
	}
	return Usage(desc), true
}

// Usage formats desc for the user:
//
//	addtask: Add a task to the list.
//
//	Command Arguments:
//	  title (required): What needs doing. It can only be used once.
func Usage(desc *engine.Descriptor) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s\n", desc.Name, desc.Description)
	if len(desc.Mediators) == 0 {
		return b.String()
	}

	b.WriteString("\nCommand Arguments:\n")
	for _, m := range desc.Mediators {
		required := " (optional)"
		if m.Required {
			required = " (required)"
		}

		var count string
		switch {
		case m.IsUnbounded():
			count = " There is no limit to the number of times this argument can be used."
		case m.MaxCount == 1:
			count = " It can only be used once."
		default:
			count = fmt.Sprintf(" It can only be used up to %d times.", m.MaxCount)
		}

		fmt.Fprintf(&b, "  %s%s: %s%s\n", m.Name, required, m.Description, count)
		if len(m.Prefixes) > 0 {
			fmt.Fprintf(&b, "      introduced by: %s\n", strings.Join(m.Prefixes, ", "))
		}
		if rules := m.Rules.Describe(); rules != "" {
			fmt.Fprintf(&b, "      %s\n", rules)
		}
	}
	return b.String()
}
