// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package config

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/hooman/services/intent/engine"
	"github.com/AleutianAI/hooman/services/intent/lookup"
	"github.com/AleutianAI/hooman/services/intent/mediator"
)

const minimalRegistry = `
commands:
  - name: ping
    synonyms:
      - canonical: ping
        words: [ping]
`

// =============================================================================
// Embedded Registry
// =============================================================================

func TestLoadRegistryConfig_Embedded(t *testing.T) {
	cfg, err := LoadRegistryConfig(context.Background(), defaultRegistryYAML)
	require.NoError(t, err)

	names := make([]string, 0, len(cfg.Commands))
	for _, c := range cfg.Commands {
		names = append(names, c.Name)
	}
	assert.Equal(t, []string{"addtask", "addtag", "deltask", "listtasks", "timer"}, names)

	descs, err := cfg.Descriptors()
	require.NoError(t, err)
	require.Len(t, descs, 5)
	assert.Equal(t, engine.AlertCritical, descs[2].Alert)

	title := descs[0].Mediator("title")
	require.NotNil(t, title)
	assert.True(t, title.Required)
	assert.True(t, title.IsUnbounded())

	minutes := descs[0].Mediator("minutes")
	require.NotNil(t, minutes)
	assert.Equal(t, []string{"--for", "for"}, minutes.Prefixes)
	assert.Equal(t, 1, minutes.MaxCount)
	require.Len(t, minutes.Rules, 1)
	assert.Equal(t, "duration", minutes.Rules[0].Name)
}

func TestLoadRegistryConfig_EmbeddedDictionary(t *testing.T) {
	cfg, err := LoadRegistryConfig(context.Background(), defaultRegistryYAML)
	require.NoError(t, err)
	dict := cfg.Dictionary()

	tests := []struct {
		word    string
		command string
		prefix  string
	}{
		{"at", "addtask", ""},
		{"newtask", "addtask", ""},
		{"createitem", "addtask", ""},
		{"buy", "addtask", "buy"},
		{"urgent", "addtag", "urgent"},
		{"removeitem", "deltask", ""},
		{"showtasks", "listtasks", ""},
		{"countdown", "timer", ""},
	}
	for _, tt := range tests {
		t.Run(tt.word, func(t *testing.T) {
			found, cmd, prefix := lookup.ResolveCommand(context.Background(), dict, tt.word)
			require.True(t, found)
			assert.Equal(t, tt.command, cmd)
			assert.Equal(t, tt.prefix, prefix)
		})
	}
	assert.Empty(t, dict.DuplicateWords())
}

func TestGetRegistryConfig_Cached(t *testing.T) {
	ResetRegistryConfig()
	t.Cleanup(ResetRegistryConfig)

	first, err := GetRegistryConfig(context.Background())
	require.NoError(t, err)
	second, err := GetRegistryConfig(context.Background())
	require.NoError(t, err)
	assert.Same(t, first, second)

	ResetRegistryConfig()
	third, err := GetRegistryConfig(context.Background())
	require.NoError(t, err)
	assert.NotSame(t, first, third)
}

func TestGetRegistryConfig_NilContext(t *testing.T) {
	//nolint:staticcheck // nil context is the case under test
	_, err := GetRegistryConfig(nil)
	assert.Error(t, err)
}

func TestDefaultRegistryYAML_IsCopy(t *testing.T) {
	data := DefaultRegistryYAML()
	require.NotEmpty(t, data)
	data[0] = 'X'
	assert.NotEqual(t, byte('X'), defaultRegistryYAML[0])
}

// =============================================================================
// Defaults and Settings
// =============================================================================

func TestLoadRegistryConfig_Defaults(t *testing.T) {
	cfg, err := LoadRegistryConfig(context.Background(), []byte(minimalRegistry))
	require.NoError(t, err)

	d := cfg.Settings.Dialogue()
	assert.Equal(t, mediator.DefaultDialogue(), d)

	descs, err := cfg.Descriptors()
	require.NoError(t, err)
	assert.Equal(t, engine.AlertNone, descs[0].Alert)
	assert.Empty(t, descs[0].Mediators)
}

func TestSettings_Dialogue(t *testing.T) {
	s := Settings{
		CancelWords:     []string{"stop"},
		DefaultQuestion: "Value for {name}?",
		NotUnderstood:   "Sorry, what?",
	}
	d := s.Dialogue()
	assert.Equal(t, []string{"stop"}, d.CancelWords)
	assert.Equal(t, "Value for {name}?", d.DefaultQuestion)
	assert.Equal(t, "Sorry, what?", d.NotUnderstood)
	assert.True(t, d.IsCancel("STOP"))
	assert.False(t, d.IsCancel("quit"))
}

func TestSettings_Engine(t *testing.T) {
	s := Settings{AffirmativeWords: []string{"sure"}, ConfirmQuestion: "Go ahead?"}
	assert.Len(t, s.EngineOptions(nil), 4)
	assert.NotNil(t, s.Engine(nil))
}

// =============================================================================
// Validation
// =============================================================================

func TestLoadRegistryConfig_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{
			name:    "empty data",
			yaml:    "",
			wantErr: "empty YAML",
		},
		{
			name:    "bad yaml",
			yaml:    "commands: [",
			wantErr: "parsing YAML",
		},
		{
			name:    "missing name",
			yaml:    "commands:\n  - description: x\n",
			wantErr: "Name",
		},
		{
			name: "alert out of range",
			yaml: `
commands:
  - name: x
    alert: 3
`,
			wantErr: "Alert",
		},
		{
			name: "negative max_count",
			yaml: `
commands:
  - name: x
    arguments:
      - name: a
        max_count: -1
`,
			wantErr: "MaxCount",
		},
		{
			name: "empty prefix",
			yaml: `
commands:
  - name: x
    arguments:
      - name: a
        prefixes: [""]
`,
			wantErr: "Prefixes",
		},
		{
			name: "multi word name",
			yaml: `
commands:
  - name: add task
`,
			wantErr: "single word",
		},
		{
			name: "duplicate command",
			yaml: `
commands:
  - name: x
  - name: x
`,
			wantErr: "duplicate command",
		},
		{
			name: "canonical names another command",
			yaml: `
commands:
  - name: x
    synonyms:
      - canonical: y extra
        words: [y]
`,
			wantErr: "must start with the command name",
		},
		{
			name: "synonym without words",
			yaml: `
commands:
  - name: x
    synonyms:
      - canonical: x
`,
			wantErr: "words or combine",
		},
		{
			name: "empty combine part",
			yaml: `
commands:
  - name: x
    synonyms:
      - canonical: x
        combine: [[a], []]
`,
			wantErr: "combine[1]",
		},
		{
			name: "unknown rule",
			yaml: `
commands:
  - name: x
    arguments:
      - name: a
        rules:
          - rule: nope
`,
			wantErr: "unknown rule",
		},
		{
			name: "bad rule context",
			yaml: `
commands:
  - name: x
    arguments:
      - name: a
        rules:
          - rule: int_range
            context: [10, 1]
`,
			wantErr: "greater than max",
		},
		{
			name: "duplicate argument",
			yaml: `
commands:
  - name: x
    arguments:
      - name: a
      - name: a
`,
			wantErr: "duplicate argument",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadRegistryConfig(context.Background(), []byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadRegistryConfig_NoCommands(t *testing.T) {
	_, err := LoadRegistryConfig(context.Background(), []byte("settings:\n  affirmative_words: [y]\n"))
	assert.ErrorIs(t, err, ErrEmptyRegistry)
}

func TestLoadRegistryConfig_TooLarge(t *testing.T) {
	data := []byte("# " + strings.Repeat("x", MaxYAMLFileSize))
	_, err := LoadRegistryConfig(context.Background(), data)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "maximum size")
}

// =============================================================================
// Builders
// =============================================================================

func TestCommandConfig_Entries(t *testing.T) {
	cmd := CommandConfig{
		Name: "addtask",
		Synonyms: []SynonymConfig{
			{Canonical: "addtask", Words: []string{"at"}, Combine: [][]string{{"add", "new"}, {"task", "todo"}}},
			{Canonical: "addtask buy", Words: []string{"buy"}},
		},
	}
	entries := cmd.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, []string{"at", "addtask", "addtodo", "newtask", "newtodo"}, entries[0].Synonyms)
	assert.Equal(t, "buy", entries[1].Prefix())
}

func TestArgumentConfig_Mediator(t *testing.T) {
	zero := 0
	arg := ArgumentConfig{
		Name:     "tags",
		Required: true,
		MaxCount: &zero,
		Prefixes: []string{"--tag"},
		Question: "Which tags?",
		Rules:    []RuleConfig{{Rule: "lcase_in_list", Context: []any{"home", "work"}}},
	}
	m, err := arg.Mediator()
	require.NoError(t, err)
	assert.True(t, m.Required)
	assert.True(t, m.IsUnbounded())
	assert.Equal(t, "Which tags?", m.Question)

	ok, v := m.Rules.Run("WORK")
	assert.True(t, ok)
	assert.Equal(t, "WORK", v)
	ok, _ = m.Rules.Run("garden")
	assert.False(t, ok)
}

// =============================================================================
// Files and Watcher
// =============================================================================

func writeRegistry(t *testing.T, path, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
}

func TestLoadRegistryFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "registry.yaml")
	writeRegistry(t, path, minimalRegistry)

	cfg, err := LoadRegistryFile(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "ping", cfg.Commands[0].Name)

	_, err = LoadRegistryFile(context.Background(), filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestWatcher_ReloadsOnChange(t *testing.T) {
	path := filepath.Join(t.TempDir(), "registry.yaml")
	writeRegistry(t, path, minimalRegistry)

	var latest atomic.Pointer[RegistryConfig]
	w, err := NewWatcher(path, func(_ context.Context, cfg *RegistryConfig) error {
		latest.Store(cfg)
		return nil
	}, WithDebounce(20*time.Millisecond))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, w.Start(ctx))
	defer w.Stop()

	writeRegistry(t, path, `
commands:
  - name: pong
    synonyms:
      - canonical: pong
        words: [pong]
`)

	require.Eventually(t, func() bool {
		cfg := latest.Load()
		return cfg != nil && cfg.Commands[0].Name == "pong"
	}, 5*time.Second, 10*time.Millisecond)
	assert.GreaterOrEqual(t, w.Stats().Reloads, 1)
}

func TestWatcher_KeepsGoingAfterBadRegistry(t *testing.T) {
	path := filepath.Join(t.TempDir(), "registry.yaml")
	writeRegistry(t, path, minimalRegistry)

	var reloads atomic.Int32
	w, err := NewWatcher(path, func(context.Context, *RegistryConfig) error {
		reloads.Add(1)
		return nil
	}, WithDebounce(20*time.Millisecond))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, w.Start(ctx))
	defer w.Stop()

	writeRegistry(t, path, "commands: [")
	require.Eventually(t, func() bool { return w.Stats().Failures >= 1 }, 5*time.Second, 10*time.Millisecond)
	assert.Equal(t, int32(0), reloads.Load())
	assert.Contains(t, w.Stats().LastError, "parsing YAML")

	writeRegistry(t, path, minimalRegistry)
	require.Eventually(t, func() bool { return reloads.Load() >= 1 }, 5*time.Second, 10*time.Millisecond)
}

func TestWatcher_IgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "registry.yaml")
	writeRegistry(t, path, minimalRegistry)

	w, err := NewWatcher(path, func(context.Context, *RegistryConfig) error { return nil },
		WithDebounce(20*time.Millisecond))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, w.Start(ctx))
	defer w.Stop()

	writeRegistry(t, filepath.Join(dir, "other.yaml"), "x: 1")
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, 0, w.Stats().Events)
}

func TestWatcher_StopWithoutStart(t *testing.T) {
	w, err := NewWatcher(filepath.Join(t.TempDir(), "r.yaml"), func(context.Context, *RegistryConfig) error { return nil })
	require.NoError(t, err)
	w.Stop()
	w.Stop()
}

func TestWatcher_RestartAfterStop(t *testing.T) {
	path := filepath.Join(t.TempDir(), "registry.yaml")
	writeRegistry(t, path, minimalRegistry)

	var latest atomic.Pointer[RegistryConfig]
	w, err := NewWatcher(path, func(_ context.Context, cfg *RegistryConfig) error {
		latest.Store(cfg)
		return nil
	}, WithDebounce(20*time.Millisecond))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, w.Start(ctx))
	w.Stop()
	require.NoError(t, w.Start(ctx))
	defer w.Stop()

	writeRegistry(t, path, `
commands:
  - name: pong
    synonyms:
      - canonical: pong
        words: [pong]
`)
	require.Eventually(t, func() bool {
		cfg := latest.Load()
		return cfg != nil && cfg.Commands[0].Name == "pong"
	}, 5*time.Second, 10*time.Millisecond)
}

func TestWatcher_RestartAfterContextDone(t *testing.T) {
	path := filepath.Join(t.TempDir(), "registry.yaml")
	writeRegistry(t, path, minimalRegistry)

	var reloads atomic.Int32
	w, err := NewWatcher(path, func(context.Context, *RegistryConfig) error {
		reloads.Add(1)
		return nil
	}, WithDebounce(20*time.Millisecond))
	require.NoError(t, err)

	first, cancel := context.WithCancel(context.Background())
	require.NoError(t, w.Start(first))
	cancel()

	// Start keeps returning early until the old loop has exited.
	require.Eventually(t, func() bool {
		assert.NoError(t, w.Start(context.Background()))
		assert.NoError(t, os.WriteFile(path, []byte(minimalRegistry), 0o644))
		return reloads.Load() >= 1
	}, 5*time.Second, 50*time.Millisecond)
	w.Stop()
}

func TestNewWatcher_NilCallbackPanics(t *testing.T) {
	assert.Panics(t, func() { _, _ = NewWatcher("r.yaml", nil) })
}
