// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/AleutianAI/hooman/services/intent/config"
	"github.com/AleutianAI/hooman/services/intent/operator"
	"github.com/AleutianAI/hooman/services/intent/prompt"
)

// quitWords end a REPL session.
var quitWords = []string{"exit", "quit", "bye"}

// =============================================================================
// repl
// =============================================================================

func newREPLCmd(opts *cliOptions) *cobra.Command {
	var watch bool

	cmd := &cobra.Command{
		Use:   "repl",
		Short: "Start an interactive session",
		Long: `Reads one line at a time and runs it. Missing arguments are asked for;
risky commands and lines with words that were not understood are confirmed
first. Type "?" for help and "exit" to leave.

With --registry and --watch, edits to the registry file take effect
without restarting.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			in, out := cmd.InOrStdin(), cmd.OutOrStdout()

			lines := prompt.NewLinePrompter(in, out)
			var p prompt.Prompter = lines
			if isTerminal(in, out) {
				p = prompt.NewFormPrompter(in, out)
			}

			a, err := newApp(ctx, opts, p)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			if watch && opts.registry != "" {
				w, err := config.NewWatcher(opts.registry, a.apply, config.WithWatcherLogger(a.logger))
				if err != nil {
					return err
				}
				if err := w.Start(ctx); err != nil {
					return err
				}
				defer w.Stop()
			}

			return runREPL(ctx, a.op, lines, p)
		},
	}
	cmd.Flags().BoolVar(&watch, "watch", true, "Reload the registry file when it changes")
	return cmd
}

// runREPL reads lines until end of input or a quit word.
func runREPL(ctx context.Context, op *operator.Operator, lines *prompt.LinePrompter, p prompt.Prompter) error {
	_ = p.Tell(ctx, `Type a command, "?" for help, or "exit" to leave.`)
	for {
		if err := ctx.Err(); err != nil {
			return nil
		}
		line, err := lines.Ask(ctx, ">")
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		if isQuit(line) {
			return nil
		}

		res, err := op.Translate(ctx, line)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		msg := describe(res, err)
		if msg == "" {
			continue
		}
		if failed(res.Outcome) {
			err = prompt.Warn(ctx, p, msg)
		} else {
			err = p.Tell(ctx, msg)
		}
		if err != nil {
			return err
		}
	}
}

func isQuit(line string) bool {
	line = strings.TrimSpace(line)
	for _, w := range quitWords {
		if strings.EqualFold(line, w) {
			return true
		}
	}
	return false
}

// =============================================================================
// run
// =============================================================================

func newRunCmd(opts *cliOptions) *cobra.Command {
	var answers []string

	cmd := &cobra.Command{
		Use:   "run LINE...",
		Short: "Translate and run one line",
		Long: `Joins the arguments into one line and runs it. Prompts are read from
stdin unless --answer is given, in which case the answers are used in order
and any further prompt counts as no answer.`,
		Example: `  hooman run at milk --for 1h30m
  hooman run --answer y rm 3`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			var p prompt.Prompter = prompt.NewLinePrompter(cmd.InOrStdin(), out)
			if cmd.Flags().Changed("answer") {
				p = &echoPrompter{Scripted: prompt.NewScripted(answers...), out: out}
			}

			a, err := newApp(ctx, opts, p)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			res, err := a.op.Translate(ctx, strings.Join(args, " "))
			if msg := describe(res, err); msg != "" {
				fmt.Fprintln(out, msg)
			}
			if err != nil {
				return err
			}
			if !res.Success && res.Outcome != operator.OutcomeHelp {
				return fmt.Errorf("not run: %s", res.Outcome)
			}
			return nil
		},
	}
	cmd.Flags().StringArrayVar(&answers, "answer", nil, "Answer to the next prompt (repeatable)")
	// Flags after the first word belong to the line, not to run.
	cmd.Flags().SetInterspersed(false)
	return cmd
}

// echoPrompter shows scripted questions and answers so a run is readable.
type echoPrompter struct {
	*prompt.Scripted
	out io.Writer
}

func (e *echoPrompter) Ask(ctx context.Context, message string) (string, error) {
	answer, err := e.Scripted.Ask(ctx, message)
	if err == nil {
		fmt.Fprintf(e.out, "%s %s\n", message, answer)
	}
	return answer, err
}

func (e *echoPrompter) Tell(ctx context.Context, message string) error {
	fmt.Fprintln(e.out, message)
	return e.Scripted.Tell(ctx, message)
}

// =============================================================================
// commands
// =============================================================================

func newCommandsCmd(opts *cliOptions) *cobra.Command {
	var usage bool

	cmd := &cobra.Command{
		Use:   "commands",
		Short: "List commands and the words that select them",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			p := prompt.NewLinePrompter(cmd.InOrStdin(), out)

			noJournal := *opts
			noJournal.noJournal = true
			a, err := newApp(cmd.Context(), &noJournal, p)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			fmt.Fprintln(out, a.op.Help())
			if dups := a.op.Dictionary().DuplicateWords(); len(dups) > 0 {
				fmt.Fprintf(out, "\nWords claimed by more than one command (first wins): %s\n", strings.Join(dups, ", "))
			}
			if !usage {
				return nil
			}
			for _, name := range a.op.Commands() {
				text, _ := a.op.Usage(name)
				fmt.Fprintf(out, "\n%s", text)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&usage, "usage", false, "Also print each command's arguments")
	return cmd
}

// =============================================================================
// Shared
// =============================================================================

// describe turns a result into the line shown to the user.
func describe(res operator.Result, err error) string {
	switch res.Outcome {
	case operator.OutcomeExecuted:
		if res.Value == nil {
			return "Done."
		}
		return fmt.Sprint(res.Value)
	case operator.OutcomeCancelled:
		return "Cancelled."
	case operator.OutcomeDeclined:
		return "OK, not doing that."
	case operator.OutcomeCommandNotFound:
		msg := "Sorry, I don't know that command."
		if len(res.Suggestions) > 0 {
			msg += " Did you mean: " + strings.Join(res.Suggestions, ", ") + "?"
		}
		return msg
	case operator.OutcomeHandlerError:
		cause := err
		if inner := errors.Unwrap(err); inner != nil {
			cause = inner
		}
		if cause == nil {
			return "Sorry, that failed."
		}
		return "Sorry, that failed: " + cause.Error()
	case operator.OutcomeError:
		if err != nil {
			slog.Error("translate failed", slog.String("error", err.Error()))
		}
		return ""
	default:
		return ""
	}
}

// failed reports whether an outcome is shown as a warning.
func failed(o operator.Outcome) bool {
	return o == operator.OutcomeCommandNotFound || o == operator.OutcomeHandlerError
}

// isTerminal reports whether both streams are an interactive terminal.
func isTerminal(in io.Reader, out io.Writer) bool {
	fi, ok := in.(*os.File)
	if !ok {
		return false
	}
	fo, ok := out.(*os.File)
	if !ok {
		return false
	}
	return (isatty.IsTerminal(fi.Fd()) || isatty.IsCygwinTerminal(fi.Fd())) &&
		(isatty.IsTerminal(fo.Fd()) || isatty.IsCygwinTerminal(fo.Fd()))
}
