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
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// Environment variables read when the matching flag is not given.
const (
	envRegistry   = "HOOMAN_REGISTRY"
	envJournalDir = "HOOMAN_JOURNAL_DIR"
	envLogLevel   = "HOOMAN_LOG_LEVEL"
)

// cliOptions holds the persistent flags.
type cliOptions struct {
	registry   string
	journalDir string
	noJournal  bool
	logLevel   string
	trace      bool

	// set by PersistentPreRunE
	shutdownTracing func(context.Context) error
}

// newRootCmd builds the command tree. Streams are injected so tests can
// drive the CLI without a terminal.
func newRootCmd(in io.Reader, out, errOut io.Writer) *cobra.Command {
	opts := &cliOptions{}

	root := &cobra.Command{
		Use:   "hooman",
		Short: "Run commands written the way people talk",
		Long: `hooman turns loosely written lines like "at milk --for 1h30m" into a
command and a checked set of arguments, asking for anything missing and
confirming anything risky or unclear.

Commands, their synonyms and their arguments come from a YAML registry.
Without --registry the built-in task list registry is used.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := setupLogging(errOut, opts.logLevel); err != nil {
				return err
			}
			if opts.trace {
				shutdown, err := setupTracing(errOut)
				if err != nil {
					return err
				}
				opts.shutdownTracing = shutdown
			}
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, _ []string) error {
			if opts.shutdownTracing == nil {
				return nil
			}
			return opts.shutdownTracing(cmd.Context())
		},
	}
	root.SetIn(in)
	root.SetOut(out)
	root.SetErr(errOut)

	flags := root.PersistentFlags()
	flags.StringVar(&opts.registry, "registry", os.Getenv(envRegistry),
		"Path to a registry YAML file (env "+envRegistry+"; default: built-in task list)")
	flags.StringVar(&opts.journalDir, "journal-dir", os.Getenv(envJournalDir),
		"Journal database directory (env "+envJournalDir+"; default: ~/.hooman/journal)")
	flags.BoolVar(&opts.noJournal, "no-journal", false, "Do not record translated lines")
	flags.StringVar(&opts.logLevel, "log-level", envOr(envLogLevel, "warn"),
		"Log level: debug, info, warn, error (env "+envLogLevel+")")
	flags.BoolVar(&opts.trace, "trace", false, "Print trace spans to stderr")

	root.AddCommand(
		newREPLCmd(opts),
		newRunCmd(opts),
		newCommandsCmd(opts),
		newJournalCmd(opts),
	)
	return root
}

// =============================================================================
// Ambient Setup
// =============================================================================

// setupLogging installs a text slog handler on w at level.
func setupLogging(w io.Writer, level string) error {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.TrimSpace(level))); err != nil {
		return fmt.Errorf("invalid --log-level %q: %w", level, err)
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl})))
	return nil
}

// setupTracing installs a tracer provider that writes finished spans to w.
func setupTracing(w io.Writer) (func(context.Context) error, error) {
	exporter, err := stdouttrace.New(
		stdouttrace.WithWriter(w),
		stdouttrace.WithPrettyPrint(),
	)
	if err != nil {
		return nil, fmt.Errorf("create trace exporter: %w", err)
	}
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	otel.SetTracerProvider(tp)
	return tp.Shutdown, nil
}

// =============================================================================
// Helpers
// =============================================================================

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// journalPath resolves the journal directory from the flag or the default.
func (o *cliOptions) journalPath() (string, error) {
	if o.journalDir != "" {
		return o.journalDir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot resolve home directory: %w", err)
	}
	return filepath.Join(home, ".hooman", "journal"), nil
}
