// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package mediator

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/AleutianAI/hooman/services/intent/chain"
	"github.com/AleutianAI/hooman/services/intent/prompt"
	"github.com/AleutianAI/hooman/services/intent/rules"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var intStep = rules.Step{Name: "int", Rule: rules.Int}

// matchAll runs m against every link of c the way the matching pass does.
func matchAll(m *Mediator, c *chain.Chain) {
	for l := c.First(); l != nil; l = l.Read() {
		m.TryMatch(l, false)
	}
}

func matchedTexts(c *chain.Chain, name string) []string {
	var out []string
	for _, l := range c.LinksMatchedBy(name) {
		out = append(out, l.Text())
	}
	return out
}

// =============================================================================
// Builder & Validation
// =============================================================================

func TestNew_Defaults(t *testing.T) {
	m := New("title")
	assert.Equal(t, 1, m.MaxCount)
	assert.False(t, m.Required)
	assert.False(t, m.MultiValue())
	assert.False(t, m.IsPrefixed())
	require.NoError(t, m.Validate())
}

func TestNew_Options(t *testing.T) {
	m := New("tags",
		WithRequired(),
		WithMaxCount(Unbounded),
		WithPrefixes("--tag", "-t"),
		WithRules(intStep),
		WithQuestion("Which tags?"),
		WithDescription("Tags to attach."),
	)
	assert.True(t, m.Required)
	assert.True(t, m.IsUnbounded())
	assert.True(t, m.MultiValue())
	assert.True(t, m.HasRoom(100))
	assert.Equal(t, []string{"--tag", "-t"}, m.Prefixes)
	assert.Len(t, m.Rules, 1)
	assert.Equal(t, "Which tags?", m.Question)
	assert.Equal(t, "Tags to attach.", m.Description)
	require.NoError(t, m.Validate())
}

func TestValidate_Rejects(t *testing.T) {
	tests := []struct {
		name string
		m    *Mediator
	}{
		{"empty name", New("")},
		{"whitespace name", New("due date")},
		{"negative max", New("n", WithMaxCount(-1))},
		{"empty prefix", New("n", WithPrefixes(""))},
		{"nil rule", New("n", WithRules(rules.Step{Name: "broken"}))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, tt.m.Validate())
		})
	}
}

func TestHasRoom(t *testing.T) {
	m := New("n", WithMaxCount(2))
	assert.True(t, m.HasRoom(0))
	assert.True(t, m.HasRoom(1))
	assert.False(t, m.HasRoom(2))
}

// =============================================================================
// TryMatch
// =============================================================================

func TestTryMatch_EmptyPipelineAcceptsRawText(t *testing.T) {
	c := chain.Build("milk")
	m := New("title")

	require.True(t, m.TryMatch(c.First(), false))
	rec, ok := c.First().Match("title")
	require.True(t, ok)
	assert.Equal(t, "milk", rec.Value)
	assert.False(t, rec.IsPrefix)
	assert.Equal(t, 1.0, rec.Confidence)
}

func TestTryMatch_RuleRejection(t *testing.T) {
	c := chain.Build("milk")
	m := New("count", WithRules(intStep))

	assert.False(t, m.TryMatch(c.First(), false))
	assert.False(t, c.First().IsMatched())
}

func TestTryMatch_TransformsValue(t *testing.T) {
	c := chain.Build("1d2h30m")
	m := New("minutes", WithRules(rules.Step{Name: "duration", Rule: rules.Duration}))

	require.True(t, m.TryMatch(c.First(), false))
	rec, _ := c.First().Match("minutes")
	assert.Equal(t, 1950, rec.Value)
}

func TestTryMatch_Prefix(t *testing.T) {
	m := New("tag", WithPrefixes("--tag"))

	t.Run("no previous link", func(t *testing.T) {
		c := chain.Build("urgent")
		assert.False(t, m.TryMatch(c.First(), false))
	})

	t.Run("wrong previous link", func(t *testing.T) {
		c := chain.Build("--label urgent")
		assert.False(t, m.TryMatch(c.Last(), false))
	})

	t.Run("matching prefix annotates both links", func(t *testing.T) {
		c := chain.Build("--tag urgent")
		require.True(t, m.TryMatch(c.Last(), false))

		rec, ok := c.Last().Match("tag")
		require.True(t, ok)
		assert.Equal(t, "urgent", rec.Value)
		assert.False(t, rec.IsPrefix)

		rec, ok = c.First().Match("tag")
		require.True(t, ok)
		assert.Equal(t, "urgent", rec.Value)
		assert.True(t, rec.IsPrefix)
	})

	t.Run("prefix already satisfied", func(t *testing.T) {
		c := chain.Build("urgent")
		assert.True(t, m.TryMatch(c.First(), true))
	})

	t.Run("any of several prefixes", func(t *testing.T) {
		multi := New("tag", WithPrefixes("--tag", "-t"))
		c := chain.Build("-t urgent")
		assert.True(t, multi.TryMatch(c.Last(), false))
	})
}

func TestTryMatch_GreedyWalkBoundedByMaxCount(t *testing.T) {
	c := chain.Build("--n 1 2 3 4")
	m := New("n", WithPrefixes("--n"), WithMaxCount(3), WithRules(intStep))

	matchAll(m, c)

	values := 0
	for _, r := range c.MatchResults()["n"] {
		if !r.Record.IsPrefix {
			values++
		}
	}
	assert.Equal(t, 3, values)
	assert.Equal(t, []string{"--n", "1", "2", "3"}, matchedTexts(c, "n"))
}

func TestTryMatch_GreedyWalkStopsAtFirstFailure(t *testing.T) {
	c := chain.Build("--n 1 x 3")
	m := New("n", WithPrefixes("--n"), WithMaxCount(Unbounded), WithRules(intStep))

	matchAll(m, c)

	assert.Equal(t, []string{"--n", "1"}, matchedTexts(c, "n"), "3 is never reached past the failing x")
}

func TestTryMatch_GreedyWalkOnlyForMultiValue(t *testing.T) {
	c := chain.Build("--tag a b")
	m := New("tag", WithPrefixes("--tag"))

	matchAll(m, c)

	assert.Equal(t, []string{"--tag", "a"}, matchedTexts(c, "tag"))
}

func TestTryMatch_RepeatedPrefixes(t *testing.T) {
	c := chain.Build("--tag a --tag b")
	m := New("tags", WithPrefixes("--tag"), WithMaxCount(Unbounded))

	matchAll(m, c)

	var prefixes, values []string
	for _, r := range c.MatchResults()["tags"] {
		if r.Record.IsPrefix {
			prefixes = append(prefixes, r.Link.Text())
		} else {
			values = append(values, r.Link.Text())
		}
	}
	assert.Equal(t, []string{"--tag", "--tag"}, prefixes)
	assert.Equal(t, []string{"a", "b"}, values)
}

func TestTryMatch_NilLink(t *testing.T) {
	assert.False(t, New("x").TryMatch(nil, false))
}

// =============================================================================
// Ask
// =============================================================================

func TestAsk_Matched(t *testing.T) {
	m := New("count", WithRules(intStep))
	p := prompt.NewScripted("42")

	outcome, value, err := m.Ask(context.Background(), p, DefaultDialogue())
	require.NoError(t, err)
	assert.Equal(t, AskMatched, outcome)
	assert.Equal(t, 42, value)
	assert.Equal(t, []string{"Please supply a value for required argument 'count':"}, p.Asked())
}

func TestAsk_PrefixedMediatorAcceptsBareReply(t *testing.T) {
	m := New("tag", WithPrefixes("--tag"), WithQuestion("Which tag?"))
	p := prompt.NewScripted("urgent")

	outcome, value, err := m.Ask(context.Background(), p, DefaultDialogue())
	require.NoError(t, err)
	assert.Equal(t, AskMatched, outcome)
	assert.Equal(t, "urgent", value)
	assert.Equal(t, []string{"Which tag?"}, p.Asked())
}

func TestAsk_Cancel(t *testing.T) {
	for _, reply := range []string{"", "cancel", "Q", "forget it", "NeverMind"} {
		t.Run(reply, func(t *testing.T) {
			outcome, value, err := New("x").Ask(context.Background(), prompt.NewScripted(reply), DefaultDialogue())
			require.NoError(t, err)
			assert.Equal(t, AskAborted, outcome)
			assert.Nil(t, value)
		})
	}
}

func TestAsk_EndOfInputAborts(t *testing.T) {
	outcome, _, err := New("x").Ask(context.Background(), prompt.NewScripted(), DefaultDialogue())
	require.NoError(t, err)
	assert.Equal(t, AskAborted, outcome)
}

func TestAsk_NotUnderstoodAsksForRetry(t *testing.T) {
	m := New("count", WithRules(intStep))
	p := prompt.NewScripted("lots")

	outcome, value, err := m.Ask(context.Background(), p, DefaultDialogue())
	require.NoError(t, err)
	assert.Equal(t, AskRetry, outcome)
	assert.Nil(t, value)
	assert.Equal(t, []string{DefaultDialogue().NotUnderstood}, p.Told())
}

// warningPrompter keeps warnings apart from plain messages.
type warningPrompter struct {
	*prompt.Scripted
	warned []string
}

func (w *warningPrompter) Warn(_ context.Context, message string) error {
	w.warned = append(w.warned, message)
	return nil
}

func TestAsk_NotUnderstoodIsAWarning(t *testing.T) {
	d := DefaultDialogue()
	d.NotUnderstood = "Hmm, that is not a number."
	p := &warningPrompter{Scripted: prompt.NewScripted("lots")}

	outcome, _, err := New("count", WithRules(intStep)).Ask(context.Background(), p, d)
	require.NoError(t, err)
	assert.Equal(t, AskRetry, outcome)
	assert.Equal(t, []string{"Hmm, that is not a number."}, p.warned)
	assert.Empty(t, p.Told())
}

type failingPrompter struct{ err error }

func (f failingPrompter) Ask(context.Context, string) (string, error) { return "", f.err }
func (f failingPrompter) Tell(context.Context, string) error          { return f.err }

func TestAsk_PrompterError(t *testing.T) {
	boom := errors.New("terminal gone")
	outcome, _, err := New("x").Ask(context.Background(), failingPrompter{err: boom}, DefaultDialogue())
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, AskAborted, outcome)

	_, _, err = New("x").Ask(context.Background(), failingPrompter{err: io.EOF}, DefaultDialogue())
	assert.NoError(t, err)
}

func TestDialogue_CustomWording(t *testing.T) {
	d := Dialogue{CancelWords: []string{"stop"}, DefaultQuestion: "{name}? ({name})"}
	assert.True(t, d.IsCancel("STOP"))
	assert.False(t, d.IsCancel("cancel"))
	assert.Equal(t, "due? (due)", d.QuestionFor(New("due")))
}

func TestAskOutcome_String(t *testing.T) {
	assert.Equal(t, "matched", AskMatched.String())
	assert.Equal(t, "retry", AskRetry.String())
	assert.Equal(t, "aborted", AskAborted.String())
	assert.Equal(t, "AskOutcome(9)", AskOutcome(9).String())
}
