// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package journal

import (
	"context"
	"errors"
	"fmt"

	dgbadger "github.com/dgraph-io/badger/v4"
)

// Config selects where and how the journal database is opened.
type Config struct {
	// Path is the database directory. Ignored when InMemory is set.
	Path string

	// InMemory keeps everything in memory. Used by tests.
	InMemory bool

	// ReadOnly opens an existing database without write access.
	ReadOnly bool
}

// InMemoryConfig returns a config for a throwaway in-memory database.
func InMemoryConfig() Config {
	return Config{InMemory: true}
}

// DirConfig returns a config for an on-disk database at path.
func DirConfig(path string) Config {
	return Config{Path: path}
}

// DB is a thin wrapper around BadgerDB that threads a context through
// transactions.
//
// # Thread Safety
//
// Safe for concurrent use.
type DB struct {
	db *dgbadger.DB
}

// OpenDB opens a database.
//
// # Outputs
//
//   - *DB: Open database. The caller must Close it.
//   - error: Non-nil if the path is missing or the database cannot be opened.
func OpenDB(cfg Config) (*DB, error) {
	var opts dgbadger.Options
	switch {
	case cfg.InMemory:
		opts = dgbadger.DefaultOptions("").WithInMemory(true)
	case cfg.Path != "":
		opts = dgbadger.DefaultOptions(cfg.Path).WithReadOnly(cfg.ReadOnly)
	default:
		return nil, errors.New("OpenDB: path is required unless in-memory")
	}

	db, err := dgbadger.Open(opts.WithLogger(nil))
	if err != nil {
		return nil, fmt.Errorf("OpenDB: %w", err)
	}
	return &DB{db: db}, nil
}

// WithTxn runs fn in a read-write transaction and commits it.
func (d *DB) WithTxn(ctx context.Context, fn func(txn *dgbadger.Txn) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return d.db.Update(fn)
}

// WithReadTxn runs fn in a read-only transaction.
func (d *DB) WithReadTxn(ctx context.Context, fn func(txn *dgbadger.Txn) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return d.db.View(fn)
}

// Close flushes and closes the database.
func (d *DB) Close() error {
	return d.db.Close()
}
