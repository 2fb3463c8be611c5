// Taskfeed - Marketplace Task Recommendation Engine
// Copyright 2026 Taskfeed Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/openmarket/taskfeed

package prefs

import (
	"sort"
	"strings"
	"unicode"
)

// stopwords are dropped before keyword counting. Deliberately small; the
// extraction contract is deterministic token frequency, not a language model.
var stopwords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "are": {}, "as": {}, "at": {}, "be": {},
	"by": {}, "for": {}, "from": {}, "has": {}, "have": {}, "in": {},
	"is": {}, "it": {}, "its": {}, "of": {}, "on": {}, "or": {}, "that": {},
	"the": {}, "this": {}, "to": {}, "was": {}, "will": {}, "with": {},
	"you": {}, "your": {}, "we": {}, "our": {}, "need": {}, "needed": {},
	"looking": {}, "help": {}, "please": {},
}

const minTokenLen = 3

// TopKeywords extracts the n most frequent non-stopword tokens from text.
// Ties break alphabetically so the result is deterministic.
func TopKeywords(text string, n int) []string {
	if n <= 0 {
		return nil
	}

	counts := make(map[string]int)
	for _, tok := range tokenize(text) {
		counts[tok]++
	}
	if len(counts) == 0 {
		return nil
	}

	type kw struct {
		token string
		count int
	}
	ranked := make([]kw, 0, len(counts))
	for t, c := range counts {
		ranked = append(ranked, kw{t, c})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].count != ranked[j].count {
			return ranked[i].count > ranked[j].count
		}
		return ranked[i].token < ranked[j].token
	})

	if len(ranked) > n {
		ranked = ranked[:n]
	}
	out := make([]string, len(ranked))
	for i, k := range ranked {
		out[i] = k.token
	}
	return out
}

func tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	out := fields[:0]
	for _, f := range fields {
		if len(f) < minTokenLen {
			continue
		}
		if _, stop := stopwords[f]; stop {
			continue
		}
		out = append(out, f)
	}
	return out
}
