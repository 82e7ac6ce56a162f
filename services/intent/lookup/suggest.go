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
	"sort"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"
)

// maxEditDistance is the largest Levenshtein distance at which a synonym is
// still offered for a typo.
const maxEditDistance = 2

// Suggester proposes commands for a word the dictionary does not know.
type Suggester struct {
	dict  Dictionary
	index *Index
}

// NewSuggester creates a suggester. index may be nil to disable
// description matching.
func NewSuggester(dict Dictionary, index *Index) *Suggester {
	return &Suggester{dict: dict, index: index}
}

// Suggest returns up to limit canonical commands, best first.
//
// # Description
//
// Candidates come from three sources, in this order of preference:
//
//  1. Synonyms that contain word as a case-insensitive fuzzy subsequence
//     ("adtsk" → addtask), closest first.
//  2. Synonyms within a small edit distance of word ("addtaks" → addtask).
//  3. Commands whose description index matches utterance.
//
// Each command appears once. A limit of zero or less means no limit.
//
// # Inputs
//
//   - word: The unknown command word.
//   - utterance: The whole line as typed, for description matching.
//   - limit: Maximum number of suggestions.
//
// # Outputs
//
//   - []string: Canonical command names. Empty when nothing is close.
func (s *Suggester) Suggest(word, utterance string, limit int) []string {
	var out []string
	seen := make(map[string]bool)
	add := func(cmd string) {
		if cmd == "" || seen[cmd] {
			return
		}
		seen[cmd] = true
		out = append(out, cmd)
	}

	words := s.dict.Words()

	if word != "" {
		ranks := fuzzy.RankFindFold(word, words)
		sort.Sort(ranks)
		for _, r := range ranks {
			add(s.commandFor(r.Target))
		}

		type near struct {
			word string
			dist int
		}
		var nearby []near
		lw := strings.ToLower(word)
		for _, w := range words {
			if d := fuzzy.LevenshteinDistance(lw, strings.ToLower(w)); d <= maxEditDistance {
				nearby = append(nearby, near{w, d})
			}
		}
		sort.SliceStable(nearby, func(i, j int) bool { return nearby[i].dist < nearby[j].dist })
		for _, c := range nearby {
			add(s.commandFor(c.word))
		}
	}

	if s.index != nil {
		for _, cmd := range s.index.Rank(utterance) {
			add(cmd)
		}
	}

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func (s *Suggester) commandFor(word string) string {
	e, ok := s.dict.Lookup(word)
	if !ok {
		return ""
	}
	return e.Command()
}
