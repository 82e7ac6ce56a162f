// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package prompt

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScripted(t *testing.T) {
	ctx := context.Background()
	p := NewScripted("first", "second")

	a, err := p.Ask(ctx, "one?")
	require.NoError(t, err)
	assert.Equal(t, "first", a)

	require.NoError(t, p.Tell(ctx, "noted"))

	a, err = p.Ask(ctx, "two?")
	require.NoError(t, err)
	assert.Equal(t, "second", a)

	_, err = p.Ask(ctx, "three?")
	assert.ErrorIs(t, err, io.EOF)

	assert.Equal(t, []string{"one?", "two?", "three?"}, p.Asked())
	assert.Equal(t, []string{"noted"}, p.Told())
	assert.Zero(t, p.Remaining())
}

func TestScripted_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := NewScripted("unused")
	_, err := p.Ask(ctx, "q?")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, p.Remaining())
}

func TestLinePrompter(t *testing.T) {
	ctx := context.Background()
	var out bytes.Buffer
	p := NewLinePrompter(strings.NewReader("  hello there \nlast"), &out)

	a, err := p.Ask(ctx, "Name?")
	require.NoError(t, err)
	assert.Equal(t, "hello there", a)
	assert.Equal(t, "Name? ", out.String())

	a, err = p.Ask(ctx, "Again?")
	require.NoError(t, err)
	assert.Equal(t, "last", a, "unterminated final line is still returned")

	_, err = p.Ask(ctx, "More?")
	assert.ErrorIs(t, err, io.EOF)

	out.Reset()
	require.NoError(t, p.Tell(ctx, "done"))
	assert.Equal(t, "done\n", out.String())
}

func TestSplitMessage(t *testing.T) {
	title, desc := splitMessage("Continue?")
	assert.Equal(t, "Continue?", title)
	assert.Empty(t, desc)

	title, desc = splitMessage("addtask: Add a task.\n    title: milk\n\nIs this what you want to do? ")
	assert.Equal(t, "Is this what you want to do?", title)
	assert.Equal(t, "addtask: Add a task.\n    title: milk", desc)
}

func TestFormPrompter_Tell(t *testing.T) {
	var out bytes.Buffer
	p := NewFormPrompter(nil, &out)
	require.NoError(t, p.Tell(context.Background(), "Sorry, no."))
	assert.Equal(t, tellStyle.Render("Sorry, no.")+"\n", out.String())
}

func TestFormPrompter_Warn(t *testing.T) {
	var out bytes.Buffer
	p := NewFormPrompter(nil, &out)
	require.NoError(t, Warn(context.Background(), p, "That is not a number."))
	assert.Equal(t, warnStyle.Render("That is not a number.")+"\n", out.String())
}

// recordingWarner tells and warns into separate lists.
type recordingWarner struct {
	*Scripted
	warned []string
}

func (r *recordingWarner) Warn(_ context.Context, message string) error {
	r.warned = append(r.warned, message)
	return nil
}

func TestWarn(t *testing.T) {
	ctx := context.Background()

	t.Run("uses Warn when available", func(t *testing.T) {
		p := &recordingWarner{Scripted: NewScripted()}
		require.NoError(t, Warn(ctx, p, "careful"))
		assert.Equal(t, []string{"careful"}, p.warned)
		assert.Empty(t, p.Told())
	})

	t.Run("falls back to Tell", func(t *testing.T) {
		p := NewScripted()
		require.NoError(t, Warn(ctx, p, "careful"))
		assert.Equal(t, []string{"careful"}, p.Told())
	})
}
