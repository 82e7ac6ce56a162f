// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package chain

import (
	"strings"
	"unicode"
)

// Tokenize splits text into tokens with shell-like quote grouping.
//
// # Description
//
// Grammar:
//
//   - Whitespace separates tokens outside quotes.
//   - '...' groups literally. There are no escapes inside single quotes.
//   - "..." groups. Inside, \" and \\ are escapes; other backslashes are kept.
//   - Outside quotes, \x yields a literal x (so "\ " joins two words).
//   - Quoted and unquoted runs that touch form one token: a"b c" → "ab c".
//   - "" and '' produce an empty token.
//   - An unterminated quote is closed at end of input.
//
// # Inputs
//
//   - text: Raw text. May be empty.
//
// # Outputs
//
//   - []string: Tokens in input order, quotes stripped. Nil when there are none.
func Tokenize(text string) []string {
	var (
		tokens  []string
		cur     strings.Builder
		inToken bool
		quote   rune
		escaped bool
	)

	flush := func() {
		if inToken {
			tokens = append(tokens, cur.String())
		}
		cur.Reset()
		inToken = false
	}

	for _, r := range text {
		switch {
		case escaped:
			if quote == '"' && r != '"' && r != '\\' {
				cur.WriteRune('\\')
			}
			cur.WriteRune(r)
			escaped = false
		case quote == '\'':
			if r == '\'' {
				quote = 0
			} else {
				cur.WriteRune(r)
			}
		case quote == '"':
			switch r {
			case '"':
				quote = 0
			case '\\':
				escaped = true
			default:
				cur.WriteRune(r)
			}
		case r == '\'' || r == '"':
			quote = r
			inToken = true
		case r == '\\':
			escaped = true
			inToken = true
		case unicode.IsSpace(r):
			flush()
		default:
			cur.WriteRune(r)
			inToken = true
		}
	}

	// A trailing lone backslash is kept as-is.
	if escaped {
		cur.WriteRune('\\')
	}
	flush()
	return tokens
}
