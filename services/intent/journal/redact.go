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
	"maps"
	"regexp"
)

// secretPattern pairs a secret format with the label that replaces it.
type secretPattern struct {
	re          *regexp.Regexp
	replacement string
}

// secretPatterns are applied in order. Specific formats come before the
// generic ones that would otherwise swallow them.
var secretPatterns = []secretPattern{
	{regexp.MustCompile(`sk-ant-[A-Za-z0-9_-]{20,}`), "[REDACTED:anthropic_key]"},
	{regexp.MustCompile(`sk-[A-Za-z0-9]{20,}`), "[REDACTED:openai_key]"},
	{regexp.MustCompile(`AIza[A-Za-z0-9_-]{30,}`), "[REDACTED:google_key]"},
	{regexp.MustCompile(`gh[pousr]_[A-Za-z0-9]{30,}`), "[REDACTED:github_token]"},
	{regexp.MustCompile(`(?i)bearer\s+[A-Za-z0-9._-]{10,}`), "[REDACTED:bearer_token]"},
	{regexp.MustCompile(`(?i)\b(password|passwd|pwd|secret|token)([=:])[^\s&]{3,}`), "${1}${2}[REDACTED]"},
	{regexp.MustCompile(`key=[A-Za-z0-9._-]{10,}`), "key=[REDACTED]"},
	{regexp.MustCompile(`([a-z][a-z0-9+.-]*)://[^\s/@]+@`), "${1}://[REDACTED]@"},
}

// Redact replaces known secret formats in s with labeled placeholders.
//
// # Description
//
// People paste tokens and connection strings into command lines. The
// journal keeps lines for days, so anything that looks like a credential is
// replaced before it is written. Detection is pattern based; a secret in an
// unknown format passes through.
//
// # Thread Safety
//
// Safe for concurrent use.
func Redact(s string) string {
	if s == "" {
		return s
	}
	for _, p := range secretPatterns {
		s = p.re.ReplaceAllString(s, p.replacement)
	}
	return s
}

// redactEntry returns e with every free-text field redacted. e is not
// modified.
func redactEntry(e Entry) Entry {
	e.Utterance = Redact(e.Utterance)
	e.Error = Redact(e.Error)
	if len(e.Args) > 0 {
		args := maps.Clone(e.Args)
		for k, v := range args {
			args[k] = Redact(v)
		}
		e.Args = args
	}
	if len(e.Unclaimed) > 0 {
		unclaimed := make([]string, len(e.Unclaimed))
		for i, w := range e.Unclaimed {
			unclaimed[i] = Redact(w)
		}
		e.Unclaimed = unclaimed
	}
	return e
}
