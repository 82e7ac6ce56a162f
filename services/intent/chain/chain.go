// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package chain holds the tokenized argument text of a single utterance.
//
// A Chain is an arena of Links addressed by stable Position ids. Removing a
// link relinks its neighbours by id; the remaining links always keep their
// original relative order, and a Position is never reassigned.
package chain

// =============================================================================
// Types
// =============================================================================

// Position is the stable identifier of a link within its chain.
//
// Positions are 1-based and assigned in input order at build time. The zero
// value means "no link".
type Position int

// MatchRecord is one mediator's interpretation of a link.
type MatchRecord struct {
	// Value is the (possibly transformed) value produced by the rule pipeline.
	Value any

	// IsPrefix marks the link as context for a value (e.g. "--tag"), not a value.
	IsPrefix bool

	// Confidence is the certainty of the match in [0, 1].
	Confidence float64
}

// MatchResult pairs a link with the record a mediator left on it.
type MatchResult struct {
	Link   *Link
	Record MatchRecord
}

// Link is one token of input text.
//
// # Thread Safety
//
// Not safe for concurrent use. A chain is owned by one resolution call.
type Link struct {
	chain   *Chain
	text    string
	pos     Position
	prev    Position
	next    Position
	removed bool
	matches map[string]MatchRecord
}

// Chain is the mutable, ordered sequence of links for one utterance.
//
// # Thread Safety
//
// Not safe for concurrent use.
type Chain struct {
	links []Link
	head  Position
	tail  Position
	size  int
}

// =============================================================================
// Construction
// =============================================================================

// Build tokenizes text and returns the resulting chain.
//
// # Description
//
// Splits on whitespace with quote grouping (see Tokenize). Returns nil when
// the text holds no tokens, so callers can treat "no argument text" and "no
// chain" the same way.
//
// # Inputs
//
//   - text: Raw argument text.
//
// # Outputs
//
//   - *Chain: The chain, or nil for empty/whitespace-only input.
func Build(text string) *Chain {
	return FromTokens(Tokenize(text))
}

// FromTokens builds a chain from already-split tokens.
//
// Returns nil for an empty slice.
func FromTokens(tokens []string) *Chain {
	if len(tokens) == 0 {
		return nil
	}

	c := &Chain{
		links: make([]Link, len(tokens)),
		size:  len(tokens),
	}
	for i, tok := range tokens {
		pos := Position(i + 1)
		l := &c.links[i]
		l.chain = c
		l.text = tok
		l.pos = pos
		if i > 0 {
			l.prev = pos - 1
		}
		if i < len(tokens)-1 {
			l.next = pos + 1
		}
	}
	c.head = 1
	c.tail = Position(len(tokens))
	return c
}

// =============================================================================
// Chain Accessors
// =============================================================================

// at returns the live link for pos, or nil.
func (c *Chain) at(pos Position) *Link {
	if c == nil || pos <= 0 || int(pos) > len(c.links) {
		return nil
	}
	l := &c.links[pos-1]
	if l.removed {
		return nil
	}
	return l
}

// First returns the first remaining link, or nil when the chain is empty.
func (c *Chain) First() *Link {
	if c == nil {
		return nil
	}
	return c.at(c.head)
}

// Last returns the last remaining link, or nil when the chain is empty.
func (c *Chain) Last() *Link {
	if c == nil {
		return nil
	}
	return c.at(c.tail)
}

// Len returns the number of links still in the chain.
func (c *Chain) Len() int {
	if c == nil {
		return 0
	}
	return c.size
}

// IsEmpty reports whether every link has been accepted.
func (c *Chain) IsEmpty() bool {
	return c.Len() == 0
}

// GetByPos returns the live link with the given position.
//
// Returns nil if no such link was built or it was already accepted.
func (c *Chain) GetByPos(pos Position) *Link {
	return c.at(pos)
}

// Links returns the remaining links in order.
func (c *Chain) Links() []*Link {
	if c == nil {
		return nil
	}
	out := make([]*Link, 0, c.size)
	for l := c.First(); l != nil; l = l.Read() {
		out = append(out, l)
	}
	return out
}

// Texts returns the text of the remaining links in order.
func (c *Chain) Texts() []string {
	links := c.Links()
	out := make([]string, len(links))
	for i, l := range links {
		out[i] = l.text
	}
	return out
}

// LinksMatchedBy returns every remaining link annotated by the named
// mediator, in chain order.
func (c *Chain) LinksMatchedBy(name string) []*Link {
	var out []*Link
	for l := c.First(); l != nil; l = l.Read() {
		if _, ok := l.matches[name]; ok {
			out = append(out, l)
		}
	}
	return out
}

// MatchResults aggregates the annotations of every remaining link.
//
// # Outputs
//
//   - map[string][]MatchResult: Mediator name → results in chain order.
//     Never nil.
func (c *Chain) MatchResults() map[string][]MatchResult {
	results := make(map[string][]MatchResult)
	for l := c.First(); l != nil; l = l.Read() {
		for name, rec := range l.matches {
			results[name] = append(results[name], MatchResult{Link: l, Record: rec})
		}
	}
	return results
}

// =============================================================================
// Mutation
// =============================================================================

// AcceptInput removes link from the chain and relinks its neighbours.
//
// # Description
//
// This is the only way links leave a chain. The removed link keeps its text,
// position, and annotations but is detached: Read and ReadBackwards return
// nil and GetByPos no longer finds it.
//
// # Inputs
//
//   - link: A live link of this chain. Links of other chains and links that
//     were already accepted are ignored.
//
// # Outputs
//
//   - *Link: The previous neighbour if any, else the next neighbour, else nil
//     when the chain is now empty.
func (c *Chain) AcceptInput(link *Link) *Link {
	if c == nil || link == nil || link.chain != c || link.removed {
		return nil
	}

	prev := c.at(link.prev)
	next := c.at(link.next)

	if prev != nil {
		prev.next = link.next
	} else {
		c.head = link.next
	}
	if next != nil {
		next.prev = link.prev
	} else {
		c.tail = link.prev
	}

	link.prev = 0
	link.next = 0
	link.removed = true
	c.size--

	if prev != nil {
		return prev
	}
	return next
}

// =============================================================================
// Link Accessors
// =============================================================================

// Text returns the raw token text.
func (l *Link) Text() string {
	return l.text
}

// Pos returns the link's stable position.
func (l *Link) Pos() Position {
	return l.pos
}

// Read returns the next link, or nil at the end of the chain.
func (l *Link) Read() *Link {
	if l == nil || l.removed {
		return nil
	}
	return l.chain.at(l.next)
}

// ReadBackwards returns the previous link, or nil at the start of the chain.
func (l *Link) ReadBackwards() *Link {
	if l == nil || l.removed {
		return nil
	}
	return l.chain.at(l.prev)
}

// Count returns the number of links from l to the tail, l included.
func (l *Link) Count() int {
	n := 0
	for cur := l; cur != nil; cur = cur.Read() {
		n++
	}
	return n
}

// Removed reports whether the link has been accepted out of its chain.
func (l *Link) Removed() bool {
	return l.removed
}

// AddMatch annotates the link with a mediator's interpretation, replacing any
// earlier record from the same mediator.
func (l *Link) AddMatch(name string, rec MatchRecord) {
	if l.matches == nil {
		l.matches = make(map[string]MatchRecord)
	}
	l.matches[name] = rec
}

// Match returns the record left by the named mediator.
func (l *Link) Match(name string) (MatchRecord, bool) {
	rec, ok := l.matches[name]
	return rec, ok
}

// IsMatched reports whether any mediator annotated the link.
func (l *Link) IsMatched() bool {
	return len(l.matches) > 0
}
