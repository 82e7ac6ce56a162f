// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package engine resolves a command's arguments from a token chain.
//
// Resolution runs in fixed stages: every mediator is matched against every
// token, unambiguous required arguments are committed, the remaining
// candidates are committed in mediator priority order, missing required
// arguments are asked for, and finally risky or partially understood input
// is confirmed with the user.
package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/AleutianAI/hooman/services/intent/chain"
	"github.com/AleutianAI/hooman/services/intent/mediator"
	"github.com/AleutianAI/hooman/services/intent/prompt"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "hooman.intent"

// Outcome is how a resolution ended.
type Outcome string

const (
	// OutcomeResolved means every required argument was found and any
	// confirmation was accepted.
	OutcomeResolved Outcome = "resolved"

	// OutcomeAborted means the user cancelled while supplying a missing argument.
	OutcomeAborted Outcome = "aborted"

	// OutcomeDeclined means the user did not confirm.
	OutcomeDeclined Outcome = "declined"

	// OutcomeError means the prompter failed or the context was cancelled.
	OutcomeError Outcome = "error"
)

// Report is the detailed result of Run.
type Report struct {
	// Outcome is how the resolution ended.
	Outcome Outcome

	// Args holds the committed arguments. Set for every outcome so callers
	// can log partial progress; only meaningful when Outcome is resolved.
	Args *ManagedArgs

	// Unclaimed is the text of tokens no mediator claimed, in input order.
	Unclaimed []string

	// Confirmed is true when the confirmation gate was shown.
	Confirmed bool

	// Prompts counts questions put to the user, confirmation included.
	Prompts int
}

// =============================================================================
// Engine
// =============================================================================

// Engine resolves arguments for any descriptor.
//
// # Description
//
// The engine holds only wording and a logger. All per-utterance state lives
// in the chain and the ManagedArgs of a single call.
//
// # Thread Safety
//
// Safe to share, but each Resolve call needs exclusive use of its chain and
// prompter.
type Engine struct {
	logger      *slog.Logger
	dialogue    mediator.Dialogue
	affirmative []string
	confirmText string
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithDialogue sets the recovery wording.
func WithDialogue(d mediator.Dialogue) Option {
	return func(e *Engine) {
		e.dialogue = d
	}
}

// WithAffirmativeWords sets the answers accepted by the confirmation gate.
// Compared case-insensitively.
func WithAffirmativeWords(words ...string) Option {
	return func(e *Engine) {
		if len(words) > 0 {
			e.affirmative = words
		}
	}
}

// WithConfirmQuestion sets the question closing the confirmation summary.
func WithConfirmQuestion(q string) Option {
	return func(e *Engine) {
		if q != "" {
			e.confirmText = q
		}
	}
}

// New creates an engine.
func New(opts ...Option) *Engine {
	e := &Engine{
		logger:      slog.Default(),
		dialogue:    mediator.DefaultDialogue(),
		affirmative: []string{"y", "yes"},
		confirmText: "Is this what you want to do?",
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Resolve builds the argument set for desc from c.
//
// # Description
//
// See Run. This is the two-valued form: success and the arguments, or
// (false, nil) when the user aborted or declined.
//
// # Outputs
//
//   - bool: True on success.
//   - *ManagedArgs: The arguments on success, otherwise nil.
//   - error: Prompter failure or context cancellation only.
func (e *Engine) Resolve(ctx context.Context, desc *Descriptor, c *chain.Chain, p prompt.Prompter) (bool, *ManagedArgs, error) {
	rep, err := e.Run(ctx, desc, c, p)
	if err != nil || rep.Outcome != OutcomeResolved {
		return false, nil, err
	}
	return true, rep.Args, nil
}

// Run resolves desc's arguments from c and reports how it went.
//
// # Description
//
//  1. Matching: every mediator, in declared order, is tried on every link.
//  2. Required single candidates: a required mediator with exactly one
//     annotated link commits it at once, so no broader mediator can take it.
//  3. Priority commit: mediators in declared order claim their remaining
//     links in chain order while they have room. Prefix links are removed
//     without producing a value.
//  4. Recovery: each required argument still missing is asked for until the
//     user supplies it or aborts. An abort ends the resolution.
//  5. Confirmation: when desc.Alert is above AlertNone or links remain
//     unclaimed, the summary is shown and an affirmative answer is required.
//
// # Inputs
//
//   - ctx: Cancellation and tracing.
//   - desc: Command descriptor. Must not be nil.
//   - c: Argument chain. May be nil when no argument text was given. The
//     chain is consumed.
//   - p: Prompter for recovery and confirmation. Must not be nil.
//
// # Outputs
//
//   - Report: Outcome, arguments, and leftovers.
//   - error: Non-nil only with OutcomeError.
func (e *Engine) Run(ctx context.Context, desc *Descriptor, c *chain.Chain, p prompt.Prompter) (Report, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "engine.Resolve",
		trace.WithAttributes(
			attribute.String("command", desc.Name),
			attribute.Int("tokens", c.Len()),
			attribute.Int("mediators", len(desc.Mediators)),
			attribute.String("alert", desc.Alert.String()),
		),
	)
	defer span.End()

	start := time.Now()
	r := &resolution{
		engine: e,
		desc:   desc,
		chain:  c,
		args:   NewManagedArgs(),
		logger: e.logger.With(slog.String("command", desc.Name)),
	}

	rep, err := r.run(ctx, p)

	span.SetAttributes(
		attribute.String("outcome", string(rep.Outcome)),
		attribute.Int("unclaimed", len(rep.Unclaimed)),
		attribute.Int("prompts", rep.Prompts),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	recordResolution(desc.Name, rep.Outcome, len(rep.Unclaimed), time.Since(start).Seconds())

	r.logger.Info("arguments resolved",
		slog.String("outcome", string(rep.Outcome)),
		slog.Int("args", rep.Args.Len()),
		slog.Int("unclaimed", len(rep.Unclaimed)),
		slog.Duration("duration", time.Since(start)),
	)
	return rep, err
}

// =============================================================================
// Resolution
// =============================================================================

// resolution is the state of one Run call.
type resolution struct {
	engine  *Engine
	desc    *Descriptor
	chain   *chain.Chain
	args    *ManagedArgs
	logger  *slog.Logger
	prompts int
}

func (r *resolution) run(ctx context.Context, p prompt.Prompter) (Report, error) {
	r.matchAll()
	r.commitRequiredSingles()
	r.commitByPriority()

	unclaimed := r.chain.Texts()

	report := func(o Outcome) Report {
		return Report{
			Outcome:   o,
			Args:      r.args,
			Unclaimed: unclaimed,
			Prompts:   r.prompts,
		}
	}

	ok, err := r.recover(ctx, p)
	if err != nil {
		return report(OutcomeError), err
	}
	if !ok {
		return report(OutcomeAborted), nil
	}

	if r.desc.Alert == AlertNone && len(unclaimed) == 0 {
		return report(OutcomeResolved), nil
	}

	confirmed, err := r.confirm(ctx, p, unclaimed)
	rep := report(OutcomeResolved)
	rep.Confirmed = true
	switch {
	case err != nil:
		rep.Outcome = OutcomeError
		return rep, err
	case !confirmed:
		rep.Outcome = OutcomeDeclined
	}
	return rep, nil
}

// matchAll annotates every link with every mediator that accepts it.
func (r *resolution) matchAll() {
	for l := r.chain.First(); l != nil; l = l.Read() {
		for _, m := range r.desc.Mediators {
			if m.TryMatch(l, false) {
				r.logger.Debug("token matched",
					slog.String("token", l.Text()),
					slog.Int("pos", int(l.Pos())),
					slog.String("argument", m.Name),
				)
			}
		}
	}
}

// commitRequiredSingles commits every required mediator that has exactly
// one candidate link.
func (r *resolution) commitRequiredSingles() {
	for _, m := range r.desc.Mediators {
		if r.chain.IsEmpty() {
			return
		}
		if !m.Required {
			continue
		}
		results := r.chain.MatchResults()[m.Name]
		if len(results) != 1 {
			continue
		}
		r.commit(m, results[0].Link, "required_single")
	}
}

// commitByPriority lets each mediator, in declared order, claim its
// remaining candidates while it has room.
func (r *resolution) commitByPriority() {
	for _, m := range r.desc.Mediators {
		if r.chain.IsEmpty() {
			return
		}
		for _, l := range r.chain.LinksMatchedBy(m.Name) {
			if !m.HasRoom(r.args.Count(m.Name)) {
				break
			}
			r.commit(m, l, "priority")
		}
	}
}

// commit removes link from the chain and records its value for m unless the
// link is only m's prefix.
func (r *resolution) commit(m *mediator.Mediator, link *chain.Link, pass string) {
	live := r.chain.GetByPos(link.Pos())
	if live == nil {
		return
	}
	rec, ok := live.Match(m.Name)
	if !ok {
		return
	}
	r.chain.AcceptInput(live)

	r.logger.Debug("token committed",
		slog.String("pass", pass),
		slog.String("token", live.Text()),
		slog.String("argument", m.Name),
		slog.Bool("prefix", rec.IsPrefix),
	)
	if rec.IsPrefix {
		return
	}
	r.record(m, rec.Value)
}

func (r *resolution) record(m *mediator.Mediator, value any) {
	if m.MultiValue() {
		r.args.Append(m.Name, value)
		return
	}
	r.args.Set(m.Name, value)
}

// recover asks for every required argument still missing. Returns false when
// the user aborted.
func (r *resolution) recover(ctx context.Context, p prompt.Prompter) (bool, error) {
	for _, m := range r.desc.Mediators {
		if !m.Required || r.args.Has(m.Name) {
			continue
		}

		kind := "recovery"
		for {
			if err := ctx.Err(); err != nil {
				return false, err
			}
			r.prompts++
			recordPrompt(kind)

			outcome, value, err := m.Ask(ctx, p, r.engine.dialogue)
			if err != nil {
				return false, err
			}

			r.logger.Debug("recovery answered",
				slog.String("argument", m.Name),
				slog.String("outcome", outcome.String()),
			)

			switch outcome {
			case mediator.AskMatched:
				r.record(m, value)
			case mediator.AskRetry:
				kind = "retry"
				continue
			default:
				return false, nil
			}
			break
		}
	}
	return true, nil
}

// confirm shows the summary and reports whether the user agreed.
func (r *resolution) confirm(ctx context.Context, p prompt.Prompter, unclaimed []string) (bool, error) {
	r.prompts++
	recordPrompt("confirmation")

	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s", r.desc.Name, r.desc.Description)
	b.WriteString(r.args.Summary())
	if len(unclaimed) > 0 {
		fmt.Fprintf(&b, "\n    (not understood: %s)", strings.Join(unclaimed, " "))
	}
	fmt.Fprintf(&b, "\n\n%s", r.engine.confirmText)

	answer, err := p.Ask(ctx, b.String())
	if err != nil {
		if errors.Is(err, io.EOF) {
			return false, nil
		}
		return false, fmt.Errorf("engine.confirm: %w", err)
	}

	answer = strings.TrimSpace(answer)
	for _, w := range r.engine.affirmative {
		if strings.EqualFold(answer, w) {
			return true, nil
		}
	}
	return false, nil
}
