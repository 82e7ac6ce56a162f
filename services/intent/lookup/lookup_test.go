// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package lookup

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func taskDictionary() Dictionary {
	return Dictionary{
		{Canonical: "addtask", Synonyms: []string{"addtask", "at", "newtask"}},
		{Canonical: "addtag", Synonyms: []string{"addtag", "tag"}},
		{Canonical: "listtasks", Synonyms: []string{"listtasks", "ls"}},
	}
}

// =============================================================================
// ResolveCommand
// =============================================================================

func TestResolveCommand_CanonicalWithPrefix(t *testing.T) {
	dict := Dictionary{{Canonical: "addtask buy", Synonyms: []string{"at"}}}

	found, cmd, prefix := ResolveCommand(context.Background(), dict, "at")
	assert.True(t, found)
	assert.Equal(t, "addtask", cmd)
	assert.Equal(t, "buy", prefix)
}

func TestResolveCommand_MultiWordPrefix(t *testing.T) {
	dict := Dictionary{{Canonical: "addtag  very   urgent", Synonyms: []string{"!!"}}}

	found, cmd, prefix := ResolveCommand(context.Background(), dict, "!!")
	assert.True(t, found)
	assert.Equal(t, "addtag", cmd)
	assert.Equal(t, "very urgent", prefix)
}

func TestResolveCommand_Miss(t *testing.T) {
	found, cmd, prefix := ResolveCommand(context.Background(), taskDictionary(), "delete")
	assert.False(t, found)
	assert.Empty(t, cmd)
	assert.Empty(t, prefix)
}

func TestResolveCommand_ExactWordOnly(t *testing.T) {
	found, _, _ := ResolveCommand(context.Background(), taskDictionary(), "AT")
	assert.False(t, found, "synonyms are case-sensitive")
}

func TestResolveCommand_EarliestEntryWins(t *testing.T) {
	dict := Dictionary{
		{Canonical: "addtask", Synonyms: []string{"add"}},
		{Canonical: "addtag", Synonyms: []string{"add"}},
	}
	for i := 0; i < 20; i++ {
		_, cmd, _ := ResolveCommand(context.Background(), dict, "add")
		require.Equal(t, "addtask", cmd)
	}
}

func TestResolveCommand_Span(t *testing.T) {
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	defer otel.SetTracerProvider(prev)

	ResolveCommand(context.Background(), taskDictionary(), "ls")

	spans := sr.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "lookup.ResolveCommand", spans[0].Name())
	assert.Contains(t, spans[0].Attributes(), attribute.String("command", "listtasks"))
	assert.Contains(t, spans[0].Attributes(), attribute.Bool("found", true))
}

// =============================================================================
// Dictionary
// =============================================================================

func TestEntry_CommandAndPrefix(t *testing.T) {
	e := Entry{Canonical: "addtask buy"}
	assert.Equal(t, "addtask", e.Command())
	assert.Equal(t, "buy", e.Prefix())

	assert.Empty(t, Entry{}.Command())
}

func TestDictionary_Words(t *testing.T) {
	dict := taskDictionary()
	dict = append(dict, Entry{Canonical: "addtask buy", Synonyms: []string{"buy", "at"}})

	assert.Equal(t,
		[]string{"addtask", "at", "newtask", "addtag", "tag", "listtasks", "ls", "buy"},
		dict.Words())
}

func TestDictionary_SynonymsOf(t *testing.T) {
	dict := append(taskDictionary(), Entry{Canonical: "addtask buy", Synonyms: []string{"buy"}})
	assert.Equal(t, []string{"addtask", "at", "newtask", "buy"}, dict.SynonymsOf("addtask"))
	assert.Empty(t, dict.SynonymsOf("deltask"))
}

func TestDictionary_DuplicateWords(t *testing.T) {
	dict := Dictionary{
		{Canonical: "addtask", Synonyms: []string{"add", "at", "at"}},
		{Canonical: "addtag", Synonyms: []string{"tag", "add"}},
		{Canonical: "addnote", Synonyms: []string{"tag", "note"}},
	}
	assert.Equal(t, []string{"add", "tag"}, dict.DuplicateWords())
	assert.Empty(t, taskDictionary().DuplicateWords())
}

func TestBuildCommandWords(t *testing.T) {
	assert.Equal(t,
		[]string{"findaction", "findtask", "searchaction", "searchtask"},
		BuildCommandWords([]string{"find", "search"}, []string{"action", "task"}))

	assert.Equal(t,
		[]string{"delmytask", "delthetask", "removemytask", "removethetask"},
		BuildCommandWords([]string{"del", "remove"}, []string{"my", "the"}, []string{"task"}))

	assert.Equal(t, []string{"ls"}, BuildCommandWords([]string{"ls"}))
	assert.Nil(t, BuildCommandWords())
	assert.Nil(t, BuildCommandWords([]string{"a"}, nil))
}

// =============================================================================
// Suggestions
// =============================================================================

func TestIndex_Rank(t *testing.T) {
	idx := BuildIndex([]Document{
		{Command: "addtask", Text: "Add a task to remember something to buy"},
		{Command: "addtag", Text: "Attach a tag to a task"},
		{Command: "listtasks", Text: "Show every task"},
	})

	assert.Equal(t, []string{"addtask"}, idx.Rank("remember milk"))

	ranked := idx.Rank("tag the task")
	require.NotEmpty(t, ranked)
	assert.Equal(t, "addtag", ranked[0])

	assert.Empty(t, idx.Rank("the a to"), "stop words alone score nothing")
	assert.True(t, BuildIndex(nil).IsEmpty())
	assert.Empty(t, BuildIndex(nil).Score("task"))
}

func TestSuggester(t *testing.T) {
	idx := BuildIndex([]Document{
		{Command: "addtask", Text: "Add a task to remember something to buy"},
	})
	s := NewSuggester(taskDictionary(), idx)

	t.Run("fuzzy subsequence", func(t *testing.T) {
		assert.Equal(t, []string{"addtask"}, s.Suggest("adtsk", "", 0))
	})

	t.Run("typo within edit distance", func(t *testing.T) {
		got := s.Suggest("addtaks", "", 0)
		require.NotEmpty(t, got)
		assert.Equal(t, "addtask", got[0])
	})

	t.Run("description match", func(t *testing.T) {
		assert.Equal(t, []string{"addtask"}, s.Suggest("zzz", "zzz remember milk", 3))
	})

	t.Run("limit", func(t *testing.T) {
		got := s.Suggest("addtaks", "", 1)
		assert.Len(t, got, 1)
	})

	t.Run("nothing close", func(t *testing.T) {
		assert.Empty(t, NewSuggester(taskDictionary(), nil).Suggest("qqqqqq", "qqqqqq", 0))
	})
}
