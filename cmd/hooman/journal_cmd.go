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
	"fmt"
	"io"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/hooman/services/intent/journal"
)

const separatorWidth = 80

func newJournalCmd(opts *cliOptions) *cobra.Command {
	var last int

	cmd := &cobra.Command{
		Use:   "journal",
		Short: "Print the journal of translated lines",
		Long: `Opens the journal read-only and prints every unexpired entry: the line
as typed, the command and arguments it resolved to, words nobody claimed,
and how long the entry is kept.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			dir, err := opts.journalPath()
			if err != nil {
				return err
			}
			return dumpJournal(cmd, dir, last)
		},
	}
	cmd.Flags().IntVarP(&last, "last", "n", 0, "Only print the newest N entries")
	return cmd
}

// dumpJournal prints the journal at dir. A missing directory is not an error.
func dumpJournal(cmd *cobra.Command, dir string, last int) error {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Journal path: %s\n", dir)

	if _, err := os.Stat(dir); os.IsNotExist(err) {
		fmt.Fprintln(out, "Journal directory does not exist. Nothing has been recorded yet.")
		return nil
	}

	db, err := journal.OpenDB(journal.Config{Path: dir, ReadOnly: true})
	if err != nil {
		return fmt.Errorf("open journal at %s: %w", dir, err)
	}
	defer func() { _ = db.Close() }()

	entries, err := journal.NewBadgerStore(db, 0, nil).List(cmd.Context())
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Fprintln(out, "\nNo journal entries found.")
		return nil
	}
	total := len(entries)
	if last > 0 && last < len(entries) {
		entries = entries[len(entries)-last:]
	}

	fmt.Fprintf(out, "\nFound %d journal entr%s:\n", total, plural(total, "y", "ies"))
	fmt.Fprintln(out, strings.Repeat("─", separatorWidth))

	now := time.Now()
	for i, e := range entries {
		printEntry(out, i+1, e, now)
	}

	fmt.Fprintf(out, "\n%s\n", strings.Repeat("─", separatorWidth))
	fmt.Fprintf(out, "Summary: %d entr%s (%s), journal path: %s\n",
		total, plural(total, "y", "ies"), outcomeCounts(entries), dir)
	return nil
}

func printEntry(w io.Writer, n int, e journal.Entry, now time.Time) {
	fmt.Fprintf(w, "\n[%d] ID:          %s\n", n, e.ID)
	fmt.Fprintf(w, "    Time:        %s\n", e.Time.Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintf(w, "    Line:        %q\n", e.Utterance)
	fmt.Fprintf(w, "    Outcome:     %s\n", e.Outcome)
	if e.Command != "" {
		fmt.Fprintf(w, "    Command:     %s\n", e.Command)
	}

	if len(e.Args) > 0 {
		names := make([]string, 0, len(e.Args))
		for name := range e.Args {
			names = append(names, name)
		}
		slices.Sort(names)
		width := 0
		for _, name := range names {
			width = max(width, len(name))
		}
		fmt.Fprintln(w, "    Arguments:")
		for _, name := range names {
			fmt.Fprintf(w, "      %-*s  %s\n", width, name, e.Args[name])
		}
	}
	if len(e.Unclaimed) > 0 {
		fmt.Fprintf(w, "    Unclaimed:   %s\n", strings.Join(e.Unclaimed, " "))
	}
	if len(e.Suggestions) > 0 {
		fmt.Fprintf(w, "    Suggested:   %s\n", strings.Join(e.Suggestions, ", "))
	}
	if e.Error != "" {
		fmt.Fprintf(w, "    Error:       %s\n", e.Error)
	}

	if e.ExpiresAt.IsZero() {
		fmt.Fprintln(w, "    TTL:         no expiry set")
		return
	}
	remaining := e.ExpiresAt.Sub(now)
	if remaining < 0 {
		fmt.Fprintf(w, "    TTL:         EXPIRED (%s ago)\n", (-remaining).Round(time.Second))
		return
	}
	fmt.Fprintf(w, "    TTL:         %s remaining (expires %s)\n",
		remaining.Round(time.Second),
		e.ExpiresAt.Format("2006-01-02 15:04:05 MST"),
	)
}

// outcomeCounts summarizes entries as "2 executed, 1 not_found" in first-seen
// order.
func outcomeCounts(entries []journal.Entry) string {
	counts := make(map[string]int)
	var order []string
	for _, e := range entries {
		if counts[e.Outcome] == 0 {
			order = append(order, e.Outcome)
		}
		counts[e.Outcome]++
	}
	parts := make([]string, len(order))
	for i, o := range order {
		parts[i] = fmt.Sprintf("%d %s", counts[o], o)
	}
	return strings.Join(parts, ", ")
}

// plural returns the singular or plural suffix for n.
func plural(n int, singular, pluralSuffix string) string {
	if n == 1 {
		return singular
	}
	return pluralSuffix
}
