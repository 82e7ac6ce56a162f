// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package config

import (
	"fmt"
	"log/slog"

	"github.com/AleutianAI/hooman/services/intent/engine"
	"github.com/AleutianAI/hooman/services/intent/lookup"
	"github.com/AleutianAI/hooman/services/intent/mediator"
	"github.com/AleutianAI/hooman/services/intent/rules"
)

// =============================================================================
// Descriptors
// =============================================================================

// Descriptor compiles the command into an engine descriptor.
//
// # Outputs
//
//   - *engine.Descriptor: Validated descriptor.
//   - error: Non-nil for unknown rules, malformed rule context, or an
//     invalid declaration.
func (c CommandConfig) Descriptor() (*engine.Descriptor, error) {
	desc := &engine.Descriptor{
		Name:        c.Name,
		Description: c.Description,
		Alert:       engine.Alert(c.Alert),
		Mediators:   make([]*mediator.Mediator, 0, len(c.Arguments)),
	}

	for _, arg := range c.Arguments {
		m, err := arg.Mediator()
		if err != nil {
			return nil, fmt.Errorf("command %q: %w", c.Name, err)
		}
		desc.Mediators = append(desc.Mediators, m)
	}

	if err := desc.Validate(); err != nil {
		return nil, err
	}
	return desc, nil
}

// Mediator compiles the argument into a mediator.
func (a ArgumentConfig) Mediator() (*mediator.Mediator, error) {
	opts := []mediator.Option{
		mediator.WithDescription(a.Description),
		mediator.WithQuestion(a.Question),
		mediator.WithPrefixes(a.Prefixes...),
	}
	if a.Required {
		opts = append(opts, mediator.WithRequired())
	}
	if a.MaxCount != nil {
		opts = append(opts, mediator.WithMaxCount(*a.MaxCount))
	}

	for i, rc := range a.Rules {
		step, err := rules.Named(rc.Rule, rc.Context, rc.Description)
		if err != nil {
			return nil, fmt.Errorf("argument %q: rules[%d]: %w", a.Name, i, err)
		}
		opts = append(opts, mediator.WithRules(step))
	}
	return mediator.New(a.Name, opts...), nil
}

// Descriptors compiles every command in registry order.
func (c *RegistryConfig) Descriptors() ([]*engine.Descriptor, error) {
	out := make([]*engine.Descriptor, 0, len(c.Commands))
	for _, cmd := range c.Commands {
		d, err := cmd.Descriptor()
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}

// =============================================================================
// Dictionary
// =============================================================================

// Entries returns the command's synonym entries with combined words
// expanded. Listed words come before combined ones; repeats are dropped.
func (c CommandConfig) Entries() []lookup.Entry {
	out := make([]lookup.Entry, 0, len(c.Synonyms))
	for _, syn := range c.Synonyms {
		candidates := append([]string(nil), syn.Words...)
		if len(syn.Combine) > 0 {
			candidates = append(candidates, lookup.BuildCommandWords(syn.Combine...)...)
		}
		seen := make(map[string]bool, len(candidates))
		words := make([]string, 0, len(candidates))
		for _, w := range candidates {
			if !seen[w] {
				seen[w] = true
				words = append(words, w)
			}
		}
		out = append(out, lookup.Entry{Canonical: syn.Canonical, Synonyms: words})
	}
	return out
}

// Dictionary returns every command's entries in registry order.
func (c *RegistryConfig) Dictionary() lookup.Dictionary {
	var dict lookup.Dictionary
	for _, cmd := range c.Commands {
		dict = append(dict, cmd.Entries()...)
	}
	return dict
}

// =============================================================================
// Settings
// =============================================================================

// Dialogue returns the recovery wording with unset fields left at the
// built-in defaults.
func (s Settings) Dialogue() mediator.Dialogue {
	d := mediator.DefaultDialogue()
	if len(s.CancelWords) > 0 {
		d.CancelWords = s.CancelWords
	}
	if s.DefaultQuestion != "" {
		d.DefaultQuestion = s.DefaultQuestion
	}
	if s.NotUnderstood != "" {
		d.NotUnderstood = s.NotUnderstood
	}
	return d
}

// EngineOptions returns engine options carrying the settings. logger may be
// nil.
func (s Settings) EngineOptions(logger *slog.Logger) []engine.Option {
	return []engine.Option{
		engine.WithLogger(logger),
		engine.WithDialogue(s.Dialogue()),
		engine.WithAffirmativeWords(s.AffirmativeWords...),
		engine.WithConfirmQuestion(s.ConfirmQuestion),
	}
}

// Engine builds an engine configured by the settings.
func (s Settings) Engine(logger *slog.Logger) *engine.Engine {
	return engine.New(s.EngineOptions(logger)...)
}
