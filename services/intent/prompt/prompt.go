// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package prompt provides the blocking question/answer channel used for
// interactive recovery and confirmation.
package prompt

import (
	"context"
	"io"
	"sync"
)

// Prompter asks the user a question and waits for one line of reply.
//
// # Description
//
// Ask blocks until the user answers. Implementations return io.EOF when the
// input is exhausted or the user closed the prompt; callers treat that as an
// abort. Any other error is an I/O failure.
//
// # Thread Safety
//
// Implementations need not be safe for concurrent use. Resolution is
// single-threaded and owns the prompter for its duration.
type Prompter interface {
	// Ask presents message and returns the reply with surrounding whitespace removed.
	Ask(ctx context.Context, message string) (string, error)

	// Tell shows message without waiting for a reply.
	Tell(ctx context.Context, message string) error
}

// Warner is implemented by prompters that show warnings differently from
// plain messages.
type Warner interface {
	Warn(ctx context.Context, message string) error
}

// Warn shows message as a warning when p supports it, otherwise through
// Tell.
func Warn(ctx context.Context, p Prompter, message string) error {
	if w, ok := p.(Warner); ok {
		return w.Warn(ctx, message)
	}
	return p.Tell(ctx, message)
}

// =============================================================================
// Scripted
// =============================================================================

// Scripted replays a fixed list of answers.
//
// Once the answers run out, Ask returns io.EOF. Every message passed to Ask
// and Tell is recorded for inspection.
type Scripted struct {
	mu      sync.Mutex
	answers []string
	asked   []string
	told    []string
}

// NewScripted creates a Scripted prompter that answers in order.
func NewScripted(answers ...string) *Scripted {
	return &Scripted{answers: answers}
}

// Ask returns the next scripted answer.
func (s *Scripted) Ask(ctx context.Context, message string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.asked = append(s.asked, message)
	if len(s.answers) == 0 {
		return "", io.EOF
	}
	answer := s.answers[0]
	s.answers = s.answers[1:]
	return answer, nil
}

// Tell records message.
func (s *Scripted) Tell(_ context.Context, message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.told = append(s.told, message)
	return nil
}

// Asked returns every question asked so far.
func (s *Scripted) Asked() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.asked...)
}

// Told returns every message told so far.
func (s *Scripted) Told() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.told...)
}

// Remaining returns the number of unused answers.
func (s *Scripted) Remaining() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.answers)
}
