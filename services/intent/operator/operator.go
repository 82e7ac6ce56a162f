// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package operator turns a typed line into a handler call.
//
// # Description
//
// The operator owns the handler table and the synonym dictionary. For each
// line it splits off the command word, resolves it through the dictionary,
// builds the argument chain, lets the engine resolve arguments (asking the
// user through the prompter when needed), and finally runs the handler.
//
// # Thread Safety
//
// Registration and Reload may run concurrently with Translate. Each
// Translate works on a snapshot of the tables taken when it starts. The
// prompter is shared, so concurrent Translate calls are only sensible with
// a prompter that can serve them.
package operator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/AleutianAI/hooman/services/intent/chain"
	"github.com/AleutianAI/hooman/services/intent/engine"
	"github.com/AleutianAI/hooman/services/intent/journal"
	"github.com/AleutianAI/hooman/services/intent/lookup"
	"github.com/AleutianAI/hooman/services/intent/prompt"
)

const tracerName = "hooman.intent"

// DefaultSuggestionLimit is how many commands are offered for an unknown word.
const DefaultSuggestionLimit = 3

var (
	// ErrHandlerMissing is returned when a command has no handler.
	ErrHandlerMissing = errors.New("handler missing")

	// ErrDuplicateCommand is returned when a command name is registered twice.
	ErrDuplicateCommand = errors.New("command already registered")
)

// =============================================================================
// Types
// =============================================================================

// Outcome is how a Translate call ended.
type Outcome string

const (
	// OutcomeExecuted means the handler ran without error.
	OutcomeExecuted Outcome = "executed"

	// OutcomeCancelled means the user aborted while supplying an argument.
	OutcomeCancelled Outcome = "cancelled"

	// OutcomeDeclined means the user did not confirm.
	OutcomeDeclined Outcome = "declined"

	// OutcomeCommandNotFound means the command word is unknown.
	OutcomeCommandNotFound Outcome = "not_found"

	// OutcomeHelp means help or usage text was told.
	OutcomeHelp Outcome = "help"

	// OutcomeEmpty means the line was blank.
	OutcomeEmpty Outcome = "empty"

	// OutcomeHandlerError means the handler returned an error.
	OutcomeHandlerError Outcome = "handler_error"

	// OutcomeError means the prompter failed or the context was cancelled.
	OutcomeError Outcome = "error"
)

// Handler runs a resolved command.
type Handler func(ctx context.Context, args *engine.ManagedArgs) (any, error)

// Command bundles everything registered for one command.
type Command struct {
	Descriptor *engine.Descriptor
	Handler    Handler

	// Synonyms select the command. The command name is always added as its
	// own synonym.
	Synonyms []lookup.Entry
}

// Result is the outcome of Translate.
type Result struct {
	// Success is true only when the handler ran without error.
	Success bool

	// Value is what the handler returned.
	Value any

	Outcome Outcome

	// Command is the canonical command, empty when none was found.
	Command string

	// Args holds the resolved arguments when resolution got that far.
	Args *engine.ManagedArgs

	// Unclaimed lists argument tokens nothing understood.
	Unclaimed []string

	// Suggestions lists commands close to an unknown word, best first.
	Suggestions []string

	// JournalID is set when the line was journaled.
	JournalID string
}

// tables is an immutable snapshot of everything registered.
type tables struct {
	commands  map[string]Command
	order     []string
	dict      lookup.Dictionary
	suggester *lookup.Suggester
}

// =============================================================================
// Operator
// =============================================================================

// Operator routes lines to handlers.
type Operator struct {
	mu     sync.RWMutex
	tables *tables
	engine *engine.Engine

	prompter     prompt.Prompter
	journal      journal.Store
	logger       *slog.Logger
	suggestLimit int
}

// Option configures an Operator.
type Option func(*Operator)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(o *Operator) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithEngine sets the resolution engine. Defaults to engine.New().
func WithEngine(e *engine.Engine) Option {
	return func(o *Operator) {
		if e != nil {
			o.engine = e
		}
	}
}

// WithJournal records every translated line in store. Nil disables the
// journal.
func WithJournal(store journal.Store) Option {
	return func(o *Operator) {
		o.journal = store
	}
}

// WithSuggestionLimit sets how many commands are suggested for an unknown
// word. Zero or less means no limit.
func WithSuggestionLimit(n int) Option {
	return func(o *Operator) {
		o.suggestLimit = n
	}
}

// New creates an operator with no commands.
//
// # Inputs
//
//   - p: Prompter for recovery, confirmation and help text. Must not be nil.
//   - opts: Options.
func New(p prompt.Prompter, opts ...Option) *Operator {
	if p == nil {
		panic("operator.New: prompter must not be nil")
	}
	o := &Operator{
		tables:       buildTables(nil),
		prompter:     p,
		logger:       slog.Default(),
		suggestLimit: DefaultSuggestionLimit,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.engine == nil {
		o.engine = engine.New(engine.WithLogger(o.logger))
	}
	return o
}

// Register adds a command.
//
// # Inputs
//
//   - desc: Command descriptor. Must be valid.
//   - h: Handler. Must not be nil.
//   - synonyms: Dictionary entries selecting the command. Each canonical
//     must start with desc.Name.
//
// # Outputs
//
//   - error: Wraps ErrHandlerMissing or ErrDuplicateCommand, or describes an
//     invalid descriptor or synonym.
func (o *Operator) Register(desc *engine.Descriptor, h Handler, synonyms ...lookup.Entry) error {
	cmd, err := prepare(Command{Descriptor: desc, Handler: h, Synonyms: synonyms})
	if err != nil {
		return fmt.Errorf("Register: %w", err)
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	if _, exists := o.tables.commands[cmd.Descriptor.Name]; exists {
		return fmt.Errorf("Register %q: %w", cmd.Descriptor.Name, ErrDuplicateCommand)
	}

	cmds := make([]Command, 0, len(o.tables.order)+1)
	for _, name := range o.tables.order {
		cmds = append(cmds, o.tables.commands[name])
	}
	o.tables = buildTables(append(cmds, cmd))

	o.logger.Debug("command registered",
		slog.String("command", cmd.Descriptor.Name),
		slog.Int("arguments", len(cmd.Descriptor.Mediators)),
		slog.Int("synonyms", len(cmd.Synonyms)),
	)
	return nil
}

// Reload replaces every command at once. e replaces the engine unless nil.
// On error nothing changes.
func (o *Operator) Reload(e *engine.Engine, cmds []Command) error {
	prepared := make([]Command, 0, len(cmds))
	seen := make(map[string]bool, len(cmds))
	for _, c := range cmds {
		pc, err := prepare(c)
		if err != nil {
			return fmt.Errorf("Reload: %w", err)
		}
		if seen[pc.Descriptor.Name] {
			return fmt.Errorf("Reload %q: %w", pc.Descriptor.Name, ErrDuplicateCommand)
		}
		seen[pc.Descriptor.Name] = true
		prepared = append(prepared, pc)
	}

	t := buildTables(prepared)

	o.mu.Lock()
	o.tables = t
	if e != nil {
		o.engine = e
	}
	o.mu.Unlock()

	o.logger.Info("commands reloaded", slog.Int("commands", len(prepared)))
	return nil
}

// Commands returns the registered command names in registration order.
func (o *Operator) Commands() []string {
	t, _ := o.snapshot()
	return slices.Clone(t.order)
}

// Dictionary returns the current synonym dictionary.
func (o *Operator) Dictionary() lookup.Dictionary {
	t, _ := o.snapshot()
	return t.dict
}

// Descriptor returns the descriptor registered as name.
func (o *Operator) Descriptor(name string) (*engine.Descriptor, bool) {
	t, _ := o.snapshot()
	c, ok := t.commands[name]
	return c.Descriptor, ok
}

func (o *Operator) snapshot() (*tables, *engine.Engine) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.tables, o.engine
}

// =============================================================================
// Translate
// =============================================================================

// Translate interprets one line and runs the matching handler.
//
// # Description
//
// A leading '?' asks for help. "help" alone tells every command with its
// synonyms; "help <word>" tells the usage of the command word selects.
// Otherwise the first word is resolved through the dictionary. An unknown
// word yields OutcomeCommandNotFound with suggestions and no error. A known
// word has its arguments resolved by the engine and, on success, its handler
// called. Every line except a blank one is journaled when a journal is set.
//
// # Outputs
//
//   - Result: Always set, also alongside an error.
//   - error: Prompter failure, context cancellation, or a handler error.
func (o *Operator) Translate(ctx context.Context, text string) (Result, error) {
	start := time.Now()
	ctx, span := otel.Tracer(tracerName).Start(ctx, "operator.Translate",
		trace.WithAttributes(attribute.Int("utterance_len", len(text))),
	)
	defer span.End()

	res, err := o.translate(ctx, text)

	span.SetAttributes(
		attribute.String("outcome", string(res.Outcome)),
		attribute.String("command", res.Command),
		attribute.Bool("success", res.Success),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "translate failed")
	}
	recordTranslation(res.Outcome)

	if res.Outcome != OutcomeEmpty {
		res.JournalID = o.record(ctx, text, res, err)
	}

	o.logger.Info("line translated",
		slog.String("command", res.Command),
		slog.String("outcome", string(res.Outcome)),
		slog.Bool("success", res.Success),
		slog.Duration("duration", time.Since(start)),
	)
	return res, err
}

func (o *Operator) translate(ctx context.Context, text string) (Result, error) {
	t, eng := o.snapshot()

	word, rest := parseLine(text)
	if word == "" && rest == "" {
		return Result{Outcome: OutcomeEmpty}, nil
	}
	if word == helpCommand {
		return o.help(ctx, t, rest)
	}
	if word == "" {
		// Nothing identifier-like up front; offer what the rest resembles.
		word = firstField(rest)
		return o.notFound(t, word, text), nil
	}

	found, name, prefix := lookup.ResolveCommand(ctx, t.dict, word)
	if !found {
		return o.notFound(t, word, text), nil
	}
	cmd, ok := t.commands[name]
	if !ok || cmd.Handler == nil {
		return Result{Outcome: OutcomeError, Command: name},
			fmt.Errorf("Translate %q: %w", name, ErrHandlerMissing)
	}

	argText := strings.TrimSpace(prefix + " " + rest)
	rep, err := eng.Run(ctx, cmd.Descriptor, chain.Build(argText), o.prompter)
	res := Result{Command: name, Args: rep.Args, Unclaimed: rep.Unclaimed}
	if err != nil {
		res.Outcome = OutcomeError
		return res, fmt.Errorf("Translate %q: %w", name, err)
	}

	switch rep.Outcome {
	case engine.OutcomeAborted:
		res.Outcome = OutcomeCancelled
		return res, nil
	case engine.OutcomeDeclined:
		res.Outcome = OutcomeDeclined
		return res, nil
	}

	value, err := cmd.Handler(ctx, rep.Args)
	if err != nil {
		res.Outcome = OutcomeHandlerError
		return res, fmt.Errorf("Translate %q: handler: %w", name, err)
	}
	res.Success = true
	res.Value = value
	res.Outcome = OutcomeExecuted
	return res, nil
}

func (o *Operator) notFound(t *tables, word, text string) Result {
	suggestions := t.suggester.Suggest(word, text, o.suggestLimit)
	o.logger.Debug("command not found",
		slog.String("word", word),
		slog.Int("suggestions", len(suggestions)),
	)
	return Result{Outcome: OutcomeCommandNotFound, Suggestions: suggestions}
}

// =============================================================================
// Journal
// =============================================================================

// record journals the line and returns the entry id, or "" when the journal
// is disabled or the write failed. Failures only warn.
func (o *Operator) record(ctx context.Context, text string, res Result, translateErr error) string {
	if o.journal == nil {
		return ""
	}

	e := journal.Entry{
		Utterance:   text,
		Command:     res.Command,
		Outcome:     string(res.Outcome),
		Unclaimed:   res.Unclaimed,
		Suggestions: res.Suggestions,
	}
	if res.Args != nil && res.Args.Len() > 0 {
		e.Args = make(map[string]string, res.Args.Len())
		for _, name := range res.Args.Names() {
			e.Args[name] = res.Args.String(name)
		}
	}
	if translateErr != nil {
		e.Error = translateErr.Error()
	}

	// A cancelled line is still worth journaling.
	id, err := o.journal.Record(context.WithoutCancel(ctx), e)
	if err != nil {
		o.logger.Warn("journal write failed",
			slog.String("command", res.Command),
			slog.String("error", err.Error()),
		)
		return ""
	}
	return id
}

// =============================================================================
// Table Construction
// =============================================================================

// prepare validates c and adds the command name as its own synonym.
func prepare(c Command) (Command, error) {
	if c.Descriptor == nil {
		return Command{}, errors.New("descriptor must not be nil")
	}
	name := c.Descriptor.Name
	if err := c.Descriptor.Validate(); err != nil {
		return Command{}, err
	}
	if c.Handler == nil {
		return Command{}, fmt.Errorf("command %q: %w", name, ErrHandlerMissing)
	}

	self := false
	for i, e := range c.Synonyms {
		if e.Command() != name {
			return Command{}, fmt.Errorf("command %q: synonym %d: canonical %q names another command", name, i, e.Canonical)
		}
		if e.Canonical == name && slices.Contains(e.Synonyms, name) {
			self = true
		}
	}

	entries := slices.Clone(c.Synonyms)
	if !self {
		entries = append(entries, lookup.Entry{Canonical: name, Synonyms: []string{name}})
	}
	c.Synonyms = entries
	return c, nil
}

// buildTables indexes cmds, which must already be prepared and unique.
func buildTables(cmds []Command) *tables {
	t := &tables{commands: make(map[string]Command, len(cmds))}
	docs := make([]lookup.Document, 0, len(cmds))
	for _, c := range cmds {
		name := c.Descriptor.Name
		t.commands[name] = c
		t.order = append(t.order, name)
		t.dict = append(t.dict, c.Synonyms...)
		docs = append(docs, lookup.Document{Command: name, Text: documentText(c)})
	}
	t.suggester = lookup.NewSuggester(t.dict, lookup.BuildIndex(docs))
	return t
}

// documentText is what description search sees for a command.
func documentText(c Command) string {
	parts := []string{c.Descriptor.Name, c.Descriptor.Description}
	for _, e := range c.Synonyms {
		parts = append(parts, e.Synonyms...)
	}
	for _, m := range c.Descriptor.Mediators {
		parts = append(parts, m.Name, m.Description)
	}
	return strings.Join(parts, " ")
}
