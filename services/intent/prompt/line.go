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
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

// LinePrompter reads answers line by line from a plain reader.
//
// Used when stdin is not a terminal (pipes, scripts) and by the REPL, which
// shares the same reader for commands and answers.
type LinePrompter struct {
	in  *bufio.Reader
	out io.Writer
}

// NewLinePrompter creates a prompter over in and out.
//
// Pass the same *bufio.Reader the caller reads commands from, or any
// io.Reader; a non-buffered reader is wrapped.
func NewLinePrompter(in io.Reader, out io.Writer) *LinePrompter {
	br, ok := in.(*bufio.Reader)
	if !ok {
		br = bufio.NewReader(in)
	}
	return &LinePrompter{in: br, out: out}
}

// Ask writes message followed by a space and reads one line.
func (p *LinePrompter) Ask(ctx context.Context, message string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if _, err := fmt.Fprintf(p.out, "%s ", message); err != nil {
		return "", fmt.Errorf("LinePrompter.Ask: writing prompt: %w", err)
	}
	return p.ReadLine()
}

// ReadLine reads one line without printing anything.
//
// A final line without a trailing newline is returned normally; io.EOF is
// only reported when nothing was read.
func (p *LinePrompter) ReadLine() (string, error) {
	line, err := p.in.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) && line != "" {
			return strings.TrimSpace(line), nil
		}
		if errors.Is(err, io.EOF) {
			return "", io.EOF
		}
		return "", fmt.Errorf("LinePrompter.ReadLine: %w", err)
	}
	return strings.TrimSpace(line), nil
}

// Tell writes message on its own line.
func (p *LinePrompter) Tell(_ context.Context, message string) error {
	if _, err := fmt.Fprintln(p.out, message); err != nil {
		return fmt.Errorf("LinePrompter.Tell: %w", err)
	}
	return nil
}
