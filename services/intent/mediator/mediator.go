// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package mediator describes one expected argument of a command and decides
// which tokens of a chain could supply it.
package mediator

import (
	"fmt"
	"slices"
	"strings"
	"unicode"

	"github.com/AleutianAI/hooman/services/intent/chain"
	"github.com/AleutianAI/hooman/services/intent/rules"
	"github.com/go-playground/validator/v10"
)

// Unbounded is the MaxCount of a mediator that claims any number of values.
const Unbounded = 0

// validate is shared; validator.Validate caches struct metadata and is safe
// for concurrent use.
var validate = validator.New(validator.WithRequiredStructEnabled())

// =============================================================================
// Mediator
// =============================================================================

// Mediator describes one named argument and matches it against tokens.
//
// # Description
//
// A mediator is created once at registration and only read afterwards. Its
// annotations live on the chain's links, never on the mediator itself, so a
// single mediator can serve any number of sequential resolutions.
//
// # Thread Safety
//
// Read-only after construction; safe to share.
type Mediator struct {
	// Name is the argument name, unique within a command.
	Name string `validate:"required"`

	// Description is shown in usage text.
	Description string

	// Required arguments are asked for when no token supplies them.
	Required bool

	// MaxCount bounds the number of values claimed. Unbounded (0) means no
	// limit. Anything other than 1 collects values into a list.
	MaxCount int `validate:"gte=0"`

	// Prefixes, when set, must contain the text of the token immediately
	// before a candidate value (e.g. "--tag").
	Prefixes []string `validate:"dive,required"`

	// Rules accept and transform candidate text. Empty accepts anything.
	Rules rules.Pipeline

	// Question overrides the default recovery prompt.
	Question string
}

// Option configures a Mediator built with New.
type Option func(*Mediator)

// WithRequired marks the argument as required.
func WithRequired() Option {
	return func(m *Mediator) {
		m.Required = true
	}
}

// WithMaxCount sets the maximum number of claimed values. Use Unbounded for no limit.
func WithMaxCount(n int) Option {
	return func(m *Mediator) {
		m.MaxCount = n
	}
}

// WithPrefixes sets the accepted prefix markers.
func WithPrefixes(prefixes ...string) Option {
	return func(m *Mediator) {
		m.Prefixes = prefixes
	}
}

// WithRules appends steps to the rule pipeline.
func WithRules(steps ...rules.Step) Option {
	return func(m *Mediator) {
		for _, s := range steps {
			m.Rules = m.Rules.Then(s)
		}
	}
}

// WithQuestion sets the recovery prompt.
func WithQuestion(q string) Option {
	return func(m *Mediator) {
		m.Question = q
	}
}

// WithDescription sets the usage description.
func WithDescription(d string) Option {
	return func(m *Mediator) {
		m.Description = d
	}
}

// New creates a mediator with MaxCount 1 and applies opts.
func New(name string, opts ...Option) *Mediator {
	m := &Mediator{Name: name, MaxCount: 1}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Validate checks the mediator's declaration.
//
// # Outputs
//
//   - error: Non-nil if the name is empty or contains whitespace, MaxCount is
//     negative, a prefix is empty, or a rule step has no function.
func (m *Mediator) Validate() error {
	if err := validate.Struct(m); err != nil {
		return fmt.Errorf("mediator %q: %w", m.Name, err)
	}
	if strings.ContainsFunc(m.Name, unicode.IsSpace) {
		return fmt.Errorf("mediator %q: name must not contain whitespace", m.Name)
	}
	for i, step := range m.Rules {
		if step.Rule == nil {
			return fmt.Errorf("mediator %q: rule %d (%s) has no function", m.Name, i, step.Name)
		}
	}
	return nil
}

// IsUnbounded reports whether the mediator claims any number of values.
func (m *Mediator) IsUnbounded() bool {
	return m.MaxCount == Unbounded
}

// MultiValue reports whether values are collected into a list.
func (m *Mediator) MultiValue() bool {
	return m.MaxCount != 1
}

// HasRoom reports whether another value may be claimed after claimed values.
func (m *Mediator) HasRoom(claimed int) bool {
	return m.IsUnbounded() || claimed < m.MaxCount
}

// IsPrefixed reports whether the mediator is anchored to prefix markers.
func (m *Mediator) IsPrefixed() bool {
	return len(m.Prefixes) > 0
}

// =============================================================================
// Matching
// =============================================================================

// TryMatch decides whether link can supply this argument and annotates it.
//
// # Description
//
//  1. A prefixed mediator fails unless prefixSatisfied or the previous link's
//     text is one of Prefixes.
//  2. The rule pipeline runs on the link text; any rejection fails the match.
//  3. The link is annotated {value, false, 1}.
//  4. If a prefix link was consumed it is annotated {value, true, 1}.
//  5. A prefix-anchored multi-value mediator then walks forward with the
//     prefix satisfied, stopping at the first link that fails, at the chain
//     end, or once MaxCount values (this one included) are annotated. It
//     never skips a failing link.
//
// # Inputs
//
//   - link: A live link. Nil never matches.
//   - prefixSatisfied: True when the caller already established the prefix.
//
// # Outputs
//
//   - bool: True if link was annotated as a value.
func (m *Mediator) TryMatch(link *chain.Link, prefixSatisfied bool) bool {
	if link == nil {
		return false
	}

	var prefixLink *chain.Link
	if m.IsPrefixed() && !prefixSatisfied {
		prev := link.ReadBackwards()
		if prev == nil || !slices.Contains(m.Prefixes, prev.Text()) {
			return false
		}
		prefixLink = prev
	}

	ok, value := m.Rules.Run(link.Text())
	if !ok {
		return false
	}

	link.AddMatch(m.Name, chain.MatchRecord{Value: value, Confidence: 1})
	if prefixLink == nil {
		return true
	}
	prefixLink.AddMatch(m.Name, chain.MatchRecord{Value: value, IsPrefix: true, Confidence: 1})

	if m.MultiValue() {
		matched := 1
		for next := link.Read(); next != nil && m.HasRoom(matched); next = next.Read() {
			if !m.TryMatch(next, true) {
				break
			}
			matched++
		}
	}
	return true
}
