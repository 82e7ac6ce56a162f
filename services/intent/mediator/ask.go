// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package mediator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/AleutianAI/hooman/services/intent/chain"
	"github.com/AleutianAI/hooman/services/intent/prompt"
)

// AskOutcome is the result of one recovery prompt.
type AskOutcome int

const (
	// AskMatched means the reply supplied a value.
	AskMatched AskOutcome = iota

	// AskRetry means the reply was not understood; the caller should ask again.
	AskRetry

	// AskAborted means the user cancelled.
	AskAborted
)

// String returns the outcome name used in logs and metrics.
func (o AskOutcome) String() string {
	switch o {
	case AskMatched:
		return "matched"
	case AskRetry:
		return "retry"
	case AskAborted:
		return "aborted"
	default:
		return fmt.Sprintf("AskOutcome(%d)", int(o))
	}
}

// Dialogue holds the user-facing wording of recovery prompts.
type Dialogue struct {
	// CancelWords abort recovery. Compared case-insensitively. An empty reply
	// always aborts.
	CancelWords []string

	// DefaultQuestion is used when a mediator has no Question. "{name}" is
	// replaced by the argument name.
	DefaultQuestion string

	// NotUnderstood is shown as a warning when a reply fails to match.
	NotUnderstood string
}

// DefaultDialogue returns the built-in wording.
func DefaultDialogue() Dialogue {
	return Dialogue{
		CancelWords:     []string{"quit", "cancel", "q", "abort", "nevermind", "forget it"},
		DefaultQuestion: "Please supply a value for required argument '{name}':",
		NotUnderstood:   "Sorry, I didn't understand that. Please try again or hit enter to abort.",
	}
}

// IsCancel reports whether reply aborts recovery.
func (d Dialogue) IsCancel(reply string) bool {
	reply = strings.TrimSpace(reply)
	if reply == "" {
		return true
	}
	for _, w := range d.CancelWords {
		if strings.EqualFold(reply, w) {
			return true
		}
	}
	return false
}

// QuestionFor returns the prompt shown for m.
func (d Dialogue) QuestionFor(m *Mediator) string {
	if m.Question != "" {
		return m.Question
	}
	return strings.ReplaceAll(d.DefaultQuestion, "{name}", m.Name)
}

// Ask prompts the user for a missing value.
//
// # Description
//
// Reads one reply. An empty reply, a cancel word, or end of input aborts.
// Otherwise the reply is tokenized into a fresh chain and its first link is
// matched with the prefix treated as satisfied: the question itself stands
// in for the prefix. A failed match warns with Dialogue.NotUnderstood and asks
// the caller to retry.
//
// # Inputs
//
//   - ctx: Cancels a blocked prompt where the prompter supports it.
//   - p: Prompter to ask through.
//   - d: Wording.
//
// # Outputs
//
//   - AskOutcome: Matched, Retry, or Aborted.
//   - any: The matched value when AskMatched.
//   - error: Prompter failures other than end of input, or ctx errors.
func (m *Mediator) Ask(ctx context.Context, p prompt.Prompter, d Dialogue) (AskOutcome, any, error) {
	reply, err := p.Ask(ctx, d.QuestionFor(m))
	if err != nil {
		if errors.Is(err, io.EOF) {
			return AskAborted, nil, nil
		}
		return AskAborted, nil, fmt.Errorf("Mediator.Ask %s: %w", m.Name, err)
	}
	if d.IsCancel(reply) {
		return AskAborted, nil, nil
	}

	reader := chain.Build(reply).First()
	if reader != nil && m.TryMatch(reader, true) {
		rec, _ := reader.Match(m.Name)
		return AskMatched, rec.Value, nil
	}

	if err := prompt.Warn(ctx, p, d.NotUnderstood); err != nil {
		return AskAborted, nil, fmt.Errorf("Mediator.Ask %s: %w", m.Name, err)
	}
	return AskRetry, nil, nil
}
