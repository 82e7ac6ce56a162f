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
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
)

// Styles used by FormPrompter.Tell and FormPrompter.Warn.
var (
	tellStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#8BC34A"))

	warnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFC107")).
			Bold(true)
)

// FormPrompter asks questions with a huh input form.
//
// # Description
//
// Each Ask renders a single-field form titled with the message. A user
// abort (ctrl+c, esc) is reported as io.EOF so resolution treats it like
// any other cancellation.
//
// # Thread Safety
//
// Not safe for concurrent use; a terminal can only show one form.
type FormPrompter struct {
	in  io.Reader
	out io.Writer
}

// NewFormPrompter creates a form prompter.
//
// # Inputs
//
//   - in: Terminal input. Nil uses huh's default (stdin).
//   - out: Terminal output. Must not be nil.
func NewFormPrompter(in io.Reader, out io.Writer) *FormPrompter {
	if out == nil {
		panic("NewFormPrompter: out must not be nil")
	}
	return &FormPrompter{in: in, out: out}
}

// Ask shows message as the title of a one-line input.
func (p *FormPrompter) Ask(ctx context.Context, message string) (string, error) {
	title, description := splitMessage(message)

	var answer string
	input := huh.NewInput().
		Title(title).
		Description(description).
		Value(&answer)

	form := huh.NewForm(huh.NewGroup(input)).
		WithShowHelp(false).
		WithOutput(p.out)
	if p.in != nil {
		form = form.WithInput(p.in)
	}

	if err := form.RunWithContext(ctx); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return "", io.EOF
		}
		return "", fmt.Errorf("FormPrompter.Ask: %w", err)
	}
	return strings.TrimSpace(answer), nil
}

// Tell prints message in the regular style.
func (p *FormPrompter) Tell(_ context.Context, message string) error {
	return p.print(tellStyle, message)
}

// Warn prints message in the warning style.
func (p *FormPrompter) Warn(_ context.Context, message string) error {
	return p.print(warnStyle, message)
}

func (p *FormPrompter) print(style lipgloss.Style, message string) error {
	if _, err := fmt.Fprintln(p.out, style.Render(message)); err != nil {
		return fmt.Errorf("FormPrompter: %w", err)
	}
	return nil
}

// splitMessage uses the last line of a multi-line message as the title and
// everything above it as the description, so confirmation summaries render
// as a block with the question underneath.
func splitMessage(message string) (string, string) {
	message = strings.TrimRight(message, " \n")
	i := strings.LastIndex(message, "\n")
	if i < 0 {
		return message, ""
	}
	return strings.TrimSpace(message[i+1:]), strings.TrimRight(message[:i], "\n")
}
