// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package journal keeps an audit trail of translated utterances.
//
// The journal is write-only from the point of view of resolution: nothing in
// the engine ever reads it back. It exists so an operator can see what was
// typed, how it was understood, and whether the user confirmed.
//
// Storage layout:
//
//	intent/journal/v1/{uuidv7}  →  gob-encoded Entry
//	                               TTL: 7 days
//
// UUIDv7 ids sort by creation time, so a prefix scan lists entries oldest
// first.
package journal

import (
	"bytes"
	"context"
	"encoding/gob"
	"fmt"
	"log/slog"
	"strings"
	"time"

	dgbadger "github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
)

// DefaultTTL is the lifetime of a journal entry.
const DefaultTTL = 7 * 24 * time.Hour

// KeyPrefix is prepended to every entry id. Versioned so the encoding can
// change without collisions.
const KeyPrefix = "intent/journal/v1/"

// Entry is one translated utterance.
type Entry struct {
	// ID is a UUIDv7. Assigned by Record when empty.
	ID string

	// Time is when the utterance was received. Set by Record when zero.
	Time time.Time

	// Utterance is the line as typed.
	Utterance string

	// Command is the canonical command, empty when none was found.
	Command string

	// Outcome is the operator outcome (executed, cancelled, not_found, ...).
	Outcome string

	// Args holds the committed arguments formatted for display.
	Args map[string]string

	// Unclaimed lists tokens no argument claimed.
	Unclaimed []string

	// Suggestions lists commands offered for an unknown word.
	Suggestions []string

	// Error is the handler or prompter error text, if any.
	Error string

	// ExpiresAt is filled in by List from the stored TTL.
	ExpiresAt time.Time
}

// =============================================================================
// Store Interface
// =============================================================================

// Store persists journal entries.
//
// # Description
//
// Callers treat a nil Store as "journal disabled". Write failures are
// reported but never stop an utterance from being handled.
//
// # Thread Safety
//
// Implementations must be safe for concurrent use.
type Store interface {
	// Record persists e and returns the id it was stored under.
	Record(ctx context.Context, e Entry) (string, error)

	// List returns every unexpired entry, oldest first.
	List(ctx context.Context) ([]Entry, error)
}

// =============================================================================
// BadgerStore
// =============================================================================

// BadgerStore implements Store on BadgerDB with native TTL expiry.
//
// # Thread Safety
//
// Safe for concurrent use.
type BadgerStore struct {
	db     *DB
	ttl    time.Duration
	logger *slog.Logger
	now    func() time.Time
}

// NewBadgerStore creates a store on db. The caller owns db.
//
// # Inputs
//
//   - db: Open database. Must not be nil.
//   - ttl: Entry lifetime. 0 uses DefaultTTL.
//   - logger: May be nil.
func NewBadgerStore(db *DB, ttl time.Duration, logger *slog.Logger) *BadgerStore {
	if db == nil {
		panic("NewBadgerStore: db must not be nil")
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &BadgerStore{db: db, ttl: ttl, logger: logger, now: time.Now}
}

// Record redacts secrets from e, gob-encodes it and writes it with the
// store's TTL.
func (s *BadgerStore) Record(ctx context.Context, e Entry) (string, error) {
	if e.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return "", fmt.Errorf("journal record: new id: %w", err)
		}
		e.ID = id.String()
	}
	if e.Time.IsZero() {
		e.Time = s.now()
	}

	raw, err := encodeEntry(redactEntry(e))
	if err != nil {
		return "", fmt.Errorf("journal record: %w", err)
	}

	err = s.db.WithTxn(ctx, func(txn *dgbadger.Txn) error {
		return txn.SetEntry(dgbadger.NewEntry(entryKey(e.ID), raw).WithTTL(s.ttl))
	})
	if err != nil {
		return "", fmt.Errorf("journal record: %w", err)
	}

	s.logger.Debug("journal: recorded",
		slog.String("id", e.ID),
		slog.String("command", e.Command),
		slog.String("outcome", e.Outcome),
	)
	return e.ID, nil
}

// List returns all unexpired entries in key order, which for UUIDv7 ids is
// creation order. Entries that fail to decode are skipped with a warning.
func (s *BadgerStore) List(ctx context.Context) ([]Entry, error) {
	var entries []Entry
	err := s.db.WithReadTxn(ctx, func(txn *dgbadger.Txn) error {
		opts := dgbadger.DefaultIteratorOptions
		opts.PrefetchValues = true
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(KeyPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			raw, err := item.ValueCopy(nil)
			if err != nil {
				return fmt.Errorf("copy value: %w", err)
			}
			e, err := decodeEntry(raw)
			if err != nil {
				s.logger.Warn("journal: skipping undecodable entry",
					slog.String("id", IDFromKey(item.Key())),
					slog.String("error", err.Error()),
				)
				continue
			}
			if exp := item.ExpiresAt(); exp > 0 {
				e.ExpiresAt = time.Unix(int64(exp), 0)
			}
			entries = append(entries, e)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("journal list: %w", err)
	}
	return entries, nil
}

// =============================================================================
// Helpers
// =============================================================================

func entryKey(id string) []byte {
	return []byte(KeyPrefix + id)
}

// IDFromKey strips KeyPrefix from a raw key.
func IDFromKey(key []byte) string {
	return strings.TrimPrefix(string(key), KeyPrefix)
}

func encodeEntry(e Entry) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(e); err != nil {
		return nil, fmt.Errorf("gob encode: %w", err)
	}
	return buf.Bytes(), nil
}

func decodeEntry(data []byte) (Entry, error) {
	var e Entry
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&e); err != nil {
		return Entry{}, fmt.Errorf("gob decode: %w", err)
	}
	return e, nil
}
