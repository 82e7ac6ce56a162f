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
	"log/slog"
	"os"

	"github.com/AleutianAI/hooman/services/intent/config"
	"github.com/AleutianAI/hooman/services/intent/journal"
	"github.com/AleutianAI/hooman/services/intent/operator"
	"github.com/AleutianAI/hooman/services/intent/prompt"
)

// app is everything one CLI invocation needs.
type app struct {
	op     *operator.Operator
	tasks  *taskList
	db     *journal.DB
	logger *slog.Logger
}

// newApp loads the registry, opens the journal and builds the operator.
//
// # Inputs
//
//   - ctx: Context for loading.
//   - opts: Parsed flags.
//   - p: Prompter the operator talks through.
//
// # Outputs
//
//   - *app: Ready application. The caller must Close it.
//   - error: Registry or journal failure.
func newApp(ctx context.Context, opts *cliOptions, p prompt.Prompter) (*app, error) {
	logger := slog.Default()

	reg, err := loadRegistry(ctx, opts.registry)
	if err != nil {
		return nil, err
	}

	a := &app{tasks: newTaskList(), logger: logger}

	var store journal.Store
	if !opts.noJournal {
		dir, err := opts.journalPath()
		if err != nil {
			return nil, err
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create journal dir: %w", err)
		}
		db, err := journal.OpenDB(journal.DirConfig(dir))
		if err != nil {
			return nil, fmt.Errorf("open journal: %w", err)
		}
		a.db = db
		store = journal.NewBadgerStore(db, journal.DefaultTTL, logger)
	}

	a.op = operator.New(p,
		operator.WithLogger(logger),
		operator.WithJournal(store),
		operator.WithEngine(reg.Settings.Engine(logger)),
	)
	if err := a.apply(ctx, reg); err != nil {
		_ = a.Close()
		return nil, err
	}
	return a, nil
}

// apply binds handlers to reg's commands and swaps them into the operator.
// It doubles as the registry watcher's reload callback, so it only touches
// the operator, which is safe for concurrent use.
func (a *app) apply(_ context.Context, reg *config.RegistryConfig) error {
	cmds, err := bindCommands(reg, a.tasks.handlers())
	if err != nil {
		return err
	}
	return a.op.Reload(reg.Settings.Engine(a.logger), cmds)
}

// Close releases the journal.
func (a *app) Close() error {
	if a.db == nil {
		return nil
	}
	return a.db.Close()
}

// loadRegistry reads path, or the embedded registry when path is empty.
func loadRegistry(ctx context.Context, path string) (*config.RegistryConfig, error) {
	if path == "" {
		return config.GetRegistryConfig(ctx)
	}
	return config.LoadRegistryFile(ctx, path)
}

// bindCommands pairs each registry command with its handler. Commands with
// no handler get one that reports what was understood.
func bindCommands(reg *config.RegistryConfig, handlers map[string]operator.Handler) ([]operator.Command, error) {
	cmds := make([]operator.Command, 0, len(reg.Commands))
	for _, c := range reg.Commands {
		desc, err := c.Descriptor()
		if err != nil {
			return nil, err
		}
		h, ok := handlers[c.Name]
		if !ok {
			h = echoHandler(c.Name)
		}
		cmds = append(cmds, operator.Command{Descriptor: desc, Handler: h, Synonyms: c.Entries()})
	}
	return cmds, nil
}
