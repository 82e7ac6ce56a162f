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
	"math"
	"sort"
	"strings"
	"unicode"
)

// =============================================================================
// BM25 Description Index
// =============================================================================

// BM25 tuning constants (Robertson et al. defaults).
const (
	// bm25K1 controls term frequency saturation.
	bm25K1 = 1.5

	// bm25B controls document length normalization.
	bm25B = 0.75
)

// stopWords are dropped from documents and queries.
var stopWords = map[string]bool{
	"a": true, "an": true, "and": true, "the": true, "to": true, "of": true,
	"for": true, "in": true, "on": true, "or": true, "is": true, "it": true,
	"my": true, "me": true, "i": true, "please": true, "with": true,
}

// Document is the searchable text of one command.
type Document struct {
	// Command is the canonical command name returned by Rank.
	Command string

	// Text is the command's description, synonyms, and argument names.
	Text string
}

type bm25Doc struct {
	command string
	tf      map[string]int
	len     int
}

// Index ranks commands by how well their documents match free text.
//
// # Description
//
// Okapi BM25 over one document per command with Lucene-style IDF smoothing.
// Used when the typed command word is unknown, to suggest commands whose
// descriptions share words with the whole utterance ("remember to buy milk"
// → addtask).
//
// # Thread Safety
//
// Immutable after BuildIndex; safe for concurrent use.
type Index struct {
	docs   []bm25Doc
	idf    map[string]float64
	avgLen float64
}

// BuildIndex constructs an index. An empty slice gives an index that scores
// nothing.
func BuildIndex(docs []Document) *Index {
	idx := &Index{idf: make(map[string]float64)}
	if len(docs) == 0 {
		return idx
	}

	df := make(map[string]int)
	total := 0
	for _, d := range docs {
		tf := make(map[string]int)
		n := 0
		for _, term := range terms(d.Text) {
			tf[term]++
			n++
		}
		idx.docs = append(idx.docs, bm25Doc{command: d.Command, tf: tf, len: n})
		total += n
		for term := range tf {
			df[term]++
		}
	}

	n := len(idx.docs)
	idx.avgLen = float64(total) / float64(n)
	for term, freq := range df {
		idx.idf[term] = math.Log(float64(n+1)/float64(freq+1)) + 1.0
	}
	return idx
}

// IsEmpty reports whether the index holds no documents.
func (idx *Index) IsEmpty() bool {
	return idx == nil || len(idx.docs) == 0
}

// Score returns command → score normalized to [0, 1]. Commands scoring zero
// are omitted.
func (idx *Index) Score(query string) map[string]float64 {
	scores := make(map[string]float64)
	if idx.IsEmpty() {
		return scores
	}

	queryTerms := make(map[string]bool)
	for _, t := range terms(query) {
		queryTerms[t] = true
	}
	if len(queryTerms) == 0 {
		return scores
	}

	var maxScore float64
	for _, doc := range idx.docs {
		s := idx.score(queryTerms, doc)
		if s > 0 {
			scores[doc.command] += s
			maxScore = math.Max(maxScore, scores[doc.command])
		}
	}
	for cmd := range scores {
		scores[cmd] /= maxScore
	}
	return scores
}

// Rank returns the commands with a non-zero score, best first. Ties are
// broken by command name.
func (idx *Index) Rank(query string) []string {
	scores := idx.Score(query)
	out := make([]string, 0, len(scores))
	for cmd := range scores {
		out = append(out, cmd)
	}
	sort.Slice(out, func(i, j int) bool {
		if scores[out[i]] != scores[out[j]] {
			return scores[out[i]] > scores[out[j]]
		}
		return out[i] < out[j]
	})
	return out
}

func (idx *Index) score(queryTerms map[string]bool, doc bm25Doc) float64 {
	dl := float64(doc.len)
	var score float64
	for term := range queryTerms {
		tf, ok := doc.tf[term]
		if !ok {
			continue
		}
		f := float64(tf)
		numerator := f * (bm25K1 + 1)
		denominator := f + bm25K1*(1.0-bm25B+bm25B*dl/idx.avgLen)
		score += idx.idf[term] * (numerator / denominator)
	}
	return score
}

// terms lowercases text, splits on anything that is not a letter or digit,
// and drops stop words.
func terms(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	out := fields[:0]
	for _, f := range fields {
		if !stopWords[f] {
			out = append(out, f)
		}
	}
	return out
}
